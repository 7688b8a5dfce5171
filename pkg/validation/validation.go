package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	v     *validator.Validate
	isoRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	ndcRe = regexp.MustCompile(`^[0-9][0-9-]{3,12}$`)
)

// Validator returns a singleton validator with custom rules registered.
func Validator() *validator.Validate {
	if v == nil {
		v = validator.New()
		// Custom: calendar date in YYYY-MM-DD shape. Shape only; whether the
		// date exists (or a range is ordered sensibly) is left to the datastore.
		_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
			return isoRe.MatchString(strings.TrimSpace(fl.Field().String()))
		})
		// Custom: National Drug Code, digits with optional dashes.
		_ = v.RegisterValidation("ndc", func(fl validator.FieldLevel) bool {
			return ndcRe.MatchString(strings.TrimSpace(fl.Field().String()))
		})
	}
	return v
}

// ValidateStruct validates a struct and returns a user-friendly error string
// suitable for MCP tool errors. Returns empty string when valid.
func ValidateStruct(s any) string {
	if err := Validator().Struct(s); err != nil {
		if ve, ok := err.(validator.ValidationErrors); ok && len(ve) > 0 {
			fe := ve[0]
			field := strings.ToLower(fe.Field())
			switch fe.Tag() {
			case "required":
				return fmt.Sprintf("VALIDATION: %s is required", field)
			case "isodate":
				return fmt.Sprintf("VALIDATION: %s must be a YYYY-MM-DD date", field)
			case "ndc":
				return "INVALID_NDC: NDC must be digits with optional dashes (e.g. 00093-7146-56)"
			case "oneof":
				return fmt.Sprintf("VALIDATION: %s must be one of: %s", field, fe.Param())
			case "min", "max", "gte", "lte":
				return fmt.Sprintf("VALIDATION: %s must satisfy %s=%s", field, fe.Tag(), fe.Param())
			}
			return fmt.Sprintf("VALIDATION: invalid %s", field)
		}
		return "VALIDATION: invalid inputs"
	}
	return ""
}
