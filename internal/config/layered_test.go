package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsOnly(t *testing.T) {
	l := NewLayeredLoader()
	cfg, err := l.Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coolercontrold.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: debug\nmetrics_addr: \":9999\"\n"), 0o644))

	l := NewLayeredLoader()
	cfg, err := l.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, ":9999", cfg.MetricsAddr)
	assert.Equal(t, Default().ConfigStorePath, cfg.ConfigStorePath)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	l := NewLayeredLoader()
	cfg, err := l.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestEnvLayerOverridesFile(t *testing.T) {
	t.Setenv("COOLERCONTROLD_LOG_LEVEL", "warn")
	t.Setenv("COOLERCONTROLD_TICK_INTERVAL", "2s")
	path := filepath.Join(t.TempDir(), "coolercontrold.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: debug\n"), 0o644))

	l := NewLayeredLoader()
	cfg, err := l.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 2*time.Second, cfg.TickInterval)
}

func TestDisableLayerSkipsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coolercontrold.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: debug\n"), 0o644))

	l := NewLayeredLoader()
	l.DisableLayer(LayerFile)
	cfg, err := l.Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default().LogLevel, cfg.LogLevel)
}
