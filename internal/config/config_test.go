package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8732", cfg.Server.Addr)
	assert.Equal(t, "http://localhost:11434", cfg.AI.BaseURL)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 20.0, cfg.Canvas.GridSize)
	assert.True(t, cfg.Canvas.SnapToGrid)
}

func TestEnvOverridesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("MURAL_AI_BASE_URL", "http://model-host:9000/v1")
	t.Setenv("MURAL_SERVER_ADDR", ":9999")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://model-host:9000/v1", cfg.AI.BaseURL)
	assert.Equal(t, ":9999", cfg.Server.Addr)
}

func TestConfigFileIsRead(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	dir := filepath.Join(home, ".config", "mural")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	yaml := "ai:\n  model: local-llama\ncanvas:\n  grid_size: 40\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "local-llama", cfg.AI.Model)
	assert.Equal(t, 40.0, cfg.Canvas.GridSize)
}

func TestMalformedConfigFails(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	dir := filepath.Join(home, ".config", "mural")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("{{{"), 0o644))

	_, err := Load()
	assert.Error(t, err)
}
