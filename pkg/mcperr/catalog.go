package mcperr

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// Code defines a canonical MCP error code used across tools.
type Code string

const (
	// Validation & input
	Validation Code = "VALIDATION"
	InvalidNDC Code = "INVALID_NDC"

	// Resource & limits
	BusyResource Code = "BUSY_RESOURCE"
	Timeout      Code = "TIMEOUT"

	// Upstream dataset
	UpstreamFailed Code = "UPSTREAM_FAILED"
	DecodeFailed   Code = "DECODE_FAILED"
	NotFound       Code = "NOT_FOUND"
)

// Entry documents a code's standard message, retry semantics, and next steps.
type Entry struct {
	Code      Code
	Message   string
	Retryable bool
	NextSteps []string
}

// catalog maps canonical codes to guidance. Messages can be overridden per error.
var catalog = map[Code]Entry{
	Validation: {Code: Validation, Message: "invalid inputs", Retryable: true, NextSteps: []string{"Correct the inputs per schema and retry", "See examples in tool description"}},
	InvalidNDC: {Code: InvalidNDC, Message: "NDC is malformed", Retryable: true, NextSteps: []string{"Supply the 11-digit NDC, digits and dashes only"}},

	BusyResource: {Code: BusyResource, Message: "concurrent request limit reached", Retryable: true, NextSteps: []string{"Retry after a short delay"}},
	Timeout:      {Code: Timeout, Message: "operation exceeded configured time limit", Retryable: true, NextSteps: []string{"Retry, or narrow the query with more filters or a lower limit"}},

	UpstreamFailed: {Code: UpstreamFailed, Message: "NADAC datastore query failed", Retryable: true, NextSteps: []string{"Retry after a short delay", "Check filter values; the datastore rejects malformed conditions"}},
	DecodeFailed:   {Code: DecodeFailed, Message: "could not decode datastore response", Retryable: true, NextSteps: []string{"Retry; if persistent the dataset schema may have changed"}},
	NotFound:       {Code: NotFound, Message: "no rows matched the query", Retryable: true, NextSteps: []string{"Broaden the search (partial drug name, wider date range)"}},
}

// normalize builds a standard error string including next steps for MCP clients
// that surface only a message string. Format: "CODE: message" plus a guidance tail.
func normalize(code Code, msg string) string {
	base := strings.TrimSpace(msg)
	e, ok := catalog[code]
	if !ok {
		if base == "" {
			return string(code)
		}
		return fmt.Sprintf("%s: %s", string(code), base)
	}
	if base == "" {
		base = e.Message
	}
	guidance := ""
	if len(e.NextSteps) > 0 {
		guidance = " | nextSteps: " + strings.Join(e.NextSteps, "; ")
	}
	return fmt.Sprintf("%s: %s%s", e.Code, base, guidance)
}

// FromText parses a "CODE: message" string, enriches it with catalog guidance,
// and returns an MCP tool error result.
func FromText(text string) *mcp.CallToolResult {
	t := strings.TrimSpace(text)
	if t == "" {
		return mcp.NewToolResultError(normalize(Validation, ""))
	}
	parts := strings.SplitN(t, ":", 2)
	code := Code(strings.TrimSpace(parts[0]))
	msg := ""
	if len(parts) > 1 {
		msg = strings.TrimSpace(parts[1])
	}
	return mcp.NewToolResultError(normalize(code, msg))
}

// New returns an MCP error result for a given code and optional message override.
func New(code Code, message string) *mcp.CallToolResult {
	return mcp.NewToolResultError(normalize(code, message))
}

// Wrapf formats details and returns an MCP error result for the code.
func Wrapf(code Code, format string, args ...any) *mcp.CallToolResult {
	return mcp.NewToolResultError(normalize(code, fmt.Sprintf(format, args...)))
}

// FromUpstream maps a query failure to the right catalog code, preserving the
// underlying message. Context expiry becomes TIMEOUT; everything else is an
// upstream failure.
func FromUpstream(err error) *mcp.CallToolResult {
	if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "context deadline exceeded") {
		return New(Timeout, err.Error())
	}
	return New(UpstreamFailed, err.Error())
}
