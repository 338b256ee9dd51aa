package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "openai", cfg.Oracle.Provider)
	assert.Equal(t, 8, cfg.Limits.MaxIterations)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9090"
oracle:
  provider: anthropic
limits:
  max_teams: 2
store:
  driver: memory
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "anthropic", cfg.Oracle.Provider)
	assert.Equal(t, 2, cfg.Limits.MaxTeams)
	assert.Equal(t, "memory", cfg.Store.Driver)
	// Untouched values keep their defaults.
	assert.Equal(t, 4, cfg.Limits.MaxParallel)
}

func TestLoad_Validation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("oracle:\n  provider: cohere\n"), 0o644))
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oracle provider")

	require.NoError(t, os.WriteFile(path, []byte("store:\n  driver: postgres\n"), 0o644))
	_, err = Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store driver")

	require.NoError(t, os.WriteFile(path, []byte("limits:\n  max_iterations: 0\n"), 0o644))
	_, err = Load(path)
	require.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
