package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "portfolio.db", cfg.Database.Path)
	assert.NotEmpty(t, cfg.Simulation.Symbols)
	assert.Equal(t, 180, cfg.Simulation.LookbackDays)
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "9090"
database:
  path: ledger.db
loader:
  symbols: [IBM.US]
  lookback_days: 10
`), 0o644))

	t.Setenv("PORT", "7070")
	t.Setenv("JWT_SECRET", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)

	// Env beats file beats defaults.
	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, "ledger.db", cfg.Database.Path)
	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, []string{"IBM.US"}, cfg.Loader.Symbols)
	assert.Equal(t, 10, cfg.Loader.LookbackDays)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not: a map"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
