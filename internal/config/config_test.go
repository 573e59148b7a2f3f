package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/opsnlops/mpchess/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsUsableStandalone(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, ":5000", cfg.Server.Address)
	assert.Equal(t, 200, cfg.Matchmaker.Band)
	assert.Equal(t, 100*time.Millisecond, cfg.Clock.TickInterval.Duration)
}

func TestLoadWithEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoadOverlaysPartialFileOntoDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `
[server]
address = ":9999"

[matchmaker]
band = 50
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.Server.Address)
	assert.Equal(t, 50, cfg.Matchmaker.Band)
	// Untouched sections keep their defaults.
	assert.Equal(t, 1024, cfg.Server.MaxClients)
	assert.Equal(t, 60*time.Second, cfg.Matchmaker.BotFallback.Duration)
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	assert.Error(t, err)
}

func TestDurationUnmarshalsFromTomlString(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `
[clock]
tick_interval = "250ms"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cfg.Clock.TickInterval.Duration)
}
