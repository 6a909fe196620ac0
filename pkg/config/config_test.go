package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sovereigndoc/sdc/pkg/config"
	"github.com/stretchr/testify/assert"
)

// TestLoad_Defaults verifies that Load() returns sensible defaults
// when no environment variables are set.
func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("SDC_LEDGER_DIR", "")
	t.Setenv("SDC_ANCHOR_CHAIN", "")

	cfg := config.Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Contains(t, cfg.DatabaseURL, "localhost")
	assert.Equal(t, "offline", cfg.AnchorChain)
}

// TestLoad_Overrides verifies that environment variables correctly
// override default values.
func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("DATABASE_URL", "postgres://production:5432/db")
	t.Setenv("SDC_ANCHOR_CHAIN", "ipfs")

	cfg := config.Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, "postgres://production:5432/db", cfg.DatabaseURL)
	assert.Equal(t, "ipfs", cfg.AnchorChain)
}

func TestLoadWithOverlay(t *testing.T) {
	t.Setenv("PORT", "")
	dir := t.TempDir()
	path := filepath.Join(dir, "overlay.yaml")
	err := os.WriteFile(path, []byte("port: \"9191\"\nanchorChain: ipfs\n"), 0o644)
	assert.NoError(t, err)

	cfg, err := config.LoadWithOverlay(path)
	assert.NoError(t, err)
	assert.Equal(t, "9191", cfg.Port)
	assert.Equal(t, "ipfs", cfg.AnchorChain)
}

func TestLoadWithOverlayMissingFileIsNotError(t *testing.T) {
	cfg, err := config.LoadWithOverlay(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
}
