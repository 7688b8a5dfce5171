package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config carries every injectable setting for the server. The dataset
// identifier and recency cutoff live here rather than in the condition
// builders so a dataset refresh never touches query logic.
type Config struct {
	BaseURL       string
	DatasetID     string
	UserAgent     string
	RecencyCutoff string

	RequestTimeout        time.Duration
	OperationTimeout      time.Duration
	MaxConcurrentRequests int
}

// fileConfig is the YAML-facing shape. Durations are strings in Go duration
// syntax ("30s", "1m") because yaml.v3 has no native time.Duration decoding.
type fileConfig struct {
	BaseURL       string `yaml:"base_url"`
	DatasetID     string `yaml:"dataset_id"`
	UserAgent     string `yaml:"user_agent"`
	RecencyCutoff string `yaml:"recency_cutoff"`

	RequestTimeout        string `yaml:"request_timeout"`
	OperationTimeout      string `yaml:"operation_timeout"`
	MaxConcurrentRequests *int   `yaml:"max_concurrent_requests"`
}

// Default returns the compiled-in configuration.
func Default() Config {
	return Config{
		BaseURL:               DefaultBaseURL,
		DatasetID:             DefaultDatasetID,
		UserAgent:             DefaultUserAgent,
		RecencyCutoff:         DefaultRecencyCutoff,
		RequestTimeout:        DefaultRequestTimeout,
		OperationTimeout:      DefaultOperationTimeout,
		MaxConcurrentRequests: DefaultMaxConcurrentRequests,
	}
}

// Load builds the effective configuration: compiled defaults, overlaid with
// an optional YAML file, overlaid with NADAC_MCP_* environment variables.
// An empty path skips the file layer.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		var fc fileConfig
		if err := yaml.Unmarshal(raw, &fc); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", path, err)
		}
		if err := cfg.applyFile(fc); err != nil {
			return cfg, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if cfg.BaseURL == "" || cfg.DatasetID == "" {
		return cfg, fmt.Errorf("config: base_url and dataset_id must be set")
	}
	if cfg.MaxConcurrentRequests <= 0 {
		cfg.MaxConcurrentRequests = DefaultMaxConcurrentRequests
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.OperationTimeout <= 0 {
		cfg.OperationTimeout = DefaultOperationTimeout
	}

	return cfg, nil
}

func (c *Config) applyFile(fc fileConfig) error {
	if fc.BaseURL != "" {
		c.BaseURL = fc.BaseURL
	}
	if fc.DatasetID != "" {
		c.DatasetID = fc.DatasetID
	}
	if fc.UserAgent != "" {
		c.UserAgent = fc.UserAgent
	}
	if fc.RecencyCutoff != "" {
		c.RecencyCutoff = fc.RecencyCutoff
	}
	if fc.RequestTimeout != "" {
		d, err := time.ParseDuration(fc.RequestTimeout)
		if err != nil {
			return fmt.Errorf("request_timeout: %w", err)
		}
		c.RequestTimeout = d
	}
	if fc.OperationTimeout != "" {
		d, err := time.ParseDuration(fc.OperationTimeout)
		if err != nil {
			return fmt.Errorf("operation_timeout: %w", err)
		}
		c.OperationTimeout = d
	}
	if fc.MaxConcurrentRequests != nil {
		c.MaxConcurrentRequests = *fc.MaxConcurrentRequests
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("NADAC_MCP_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("NADAC_MCP_DATASET_ID"); v != "" {
		c.DatasetID = v
	}
	if v := os.Getenv("NADAC_MCP_USER_AGENT"); v != "" {
		c.UserAgent = v
	}
	if v := os.Getenv("NADAC_MCP_RECENCY_CUTOFF"); v != "" {
		c.RecencyCutoff = v
	}
	if v := os.Getenv("NADAC_MCP_REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.RequestTimeout = d
		}
	}
	if v := os.Getenv("NADAC_MCP_OPERATION_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.OperationTimeout = d
		}
	}
	if v := os.Getenv("NADAC_MCP_MAX_CONCURRENT_REQUESTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxConcurrentRequests = n
		}
	}
}
