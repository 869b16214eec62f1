package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"compliscan/internal/config"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	require.Equal(t, config.DefaultConfig().Quota.DefaultScansLimit, cfg.Quota.DefaultScansLimit)
}

func TestLoad_OverlaysFileOntoDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
quota:
  default_scans_limit: 42
`), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, 42, cfg.Quota.DefaultScansLimit)
	require.Equal(t, config.DefaultConfig().Quota.DefaultFixesLimit, cfg.Quota.DefaultFixesLimit, "unspecified fields keep their default")
}

func TestLoad_RejectsCorruptYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("not: [valid"), 0o644))

	_, err := config.Load(path)
	require.Error(t, err)
}

func TestLoad_EnvVarOverridesLLMAPIKey(t *testing.T) {
	t.Setenv("COMPLISCAN_LLM_API_KEY", "env-key-123")

	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, "env-key-123", cfg.LLM.APIKey)
}
