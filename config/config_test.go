package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWhenNoFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, DefaultBaseURL, cfg.BaseURL)
	require.Equal(t, DefaultDatasetID, cfg.DatasetID)
	require.Equal(t, DefaultRecencyCutoff, cfg.RecencyCutoff)
	require.Equal(t, DefaultRequestTimeout, cfg.RequestTimeout)
}

func TestLoad_YAMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nadac.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"dataset_id: override-dataset\nrecency_cutoff: \"2026-01-01\"\nrequest_timeout: 10s\n",
	), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "override-dataset", cfg.DatasetID)
	require.Equal(t, "2026-01-01", cfg.RecencyCutoff)
	require.Equal(t, 10*time.Second, cfg.RequestTimeout)
	// Untouched fields keep their defaults.
	require.Equal(t, DefaultBaseURL, cfg.BaseURL)
}

func TestLoad_EnvBeatsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nadac.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dataset_id: from-file\n"), 0o600))
	t.Setenv("NADAC_MCP_DATASET_ID", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.DatasetID)
}

func TestLoad_TimeoutEnvOverrides(t *testing.T) {
	t.Setenv("NADAC_MCP_REQUEST_TIMEOUT", "12s")
	t.Setenv("NADAC_MCP_OPERATION_TIMEOUT", "90s")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 12*time.Second, cfg.RequestTimeout)
	require.Equal(t, 90*time.Second, cfg.OperationTimeout)
}

func TestLoad_RejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
