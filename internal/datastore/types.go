package datastore

import (
	"fmt"
	"strconv"
	"strings"
)

// Operator enumerates the comparison operators accepted by the datastore
// query API.
type Operator string

const (
	OpEquals   Operator = "="
	OpGTE      Operator = ">="
	OpLTE      Operator = "<="
	OpContains Operator = "contains"
)

// FilterCondition is a single predicate sent to the remote API. The API ANDs
// conditions together in index order.
type FilterCondition struct {
	Property string
	Operator Operator
	Value    string
}

// Format selects the response encoding of the download endpoint.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// QueryRequest describes one bounded query against the dataset.
type QueryRequest struct {
	Conditions []FilterCondition
	Limit      int
	Format     Format
}

// Row is a loosely typed record returned by the datastore. The NADAC schema
// is not owned by this server, so fields are read as strings on demand and
// parsed ad hoc where a number or date is needed.
type Row map[string]any

// Str returns the named field rendered as a string, or "" when absent.
func (r Row) Str(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	default:
		return fmt.Sprint(v)
	}
}

// Float parses the named field as a decimal. The second return is false when
// the field is missing or unparseable.
func (r Row) Float(key string) (float64, bool) {
	s := strings.TrimSpace(r.Str(key))
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
