package config

import "time"

// Default endpoint and guardrail values for the NADAC MCP server. These are
// conservative and can be overridden through a YAML config file or
// NADAC_MCP_* environment variables; see Load.

const (
	// Remote datastore endpoint
	DefaultBaseURL   = "https://data.medicaid.gov/api/1/datastore/query"
	DefaultDatasetID = "4d7af295-2132-58c8-93f2-332fbfbf1d4b"
	DefaultUserAgent = "nadac-mcp/1.0 (github.com/openmedicaid/nadac-mcp)"

	// Recency lower bound applied as an implicit as_of_date filter by the
	// drug search and statistics tools.
	DefaultRecencyCutoff = "2025-01-01"
)

const (
	// Query bounds
	DefaultQueryLimit = 100
	MaxQueryLimit     = 100

	// Statistics tools always fetch this many rows so aggregates run over a
	// working set rather than a user-facing page size.
	StatisticsSampleLimit = 1000
)

const (
	// Concurrency
	DefaultMaxConcurrentRequests = 8

	// Timeouts
	DefaultRequestTimeout        = 30 * time.Second
	DefaultOperationTimeout      = 45 * time.Second
	DefaultAcquireRequestTimeout = 2 * time.Second
)
