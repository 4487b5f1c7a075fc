package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "recon.db", cfg.Storage.DatabasePath)
	assert.Equal(t, "info", cfg.Observability.Logging.Level)
	assert.Equal(t, 1, cfg.Recon.DefaultCategory)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
storage:
  database_path: /tmp/recon-test.db
observability:
  logging:
    level: debug
    format: json
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/tmp/recon-test.db", cfg.Storage.DatabasePath)
	assert.Equal(t, "debug", cfg.Observability.Logging.Level)
	assert.Equal(t, "json", cfg.Observability.Logging.Format)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("RECON_SERVER_PORT", "7070")
	t.Setenv("RECON_DATABASE_PATH", "/tmp/env.db")
	t.Setenv("RECON_LOG_LEVEL", "warn")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "/tmp/env.db", cfg.Storage.DatabasePath)
	assert.Equal(t, "warn", cfg.Observability.Logging.Level)
}

func TestInvalidPortRejected(t *testing.T) {
	t.Setenv("RECON_SERVER_PORT", "70000")

	_, err := Load("")
	assert.Error(t, err)
}

func TestMissingFileRejected(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
