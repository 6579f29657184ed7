package config

import (
	"flag"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := Default()

	assert.Equal(t, 5, c.IdleFPS)
	assert.Equal(t, 30, c.ActiveFPS)
	assert.Equal(t, 620.0, c.SheetW)
	assert.Equal(t, 400.0, c.SheetH)
	assert.True(t, c.Mirrored)
	assert.Equal(t, ":8080", c.Addr)
	assert.Equal(t, filepath.Join(c.DataDir, "plugins"), c.PluginDir)
	assert.Equal(t, filepath.Join(c.DataDir, "paperdrum.db"), c.DBPath())
	assert.NoError(t, c.Validate())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv(EnvCamera, "2")
	t.Setenv(EnvMirrored, "false")
	t.Setenv(EnvSheetW, "310.5")
	t.Setenv(EnvAddr, "127.0.0.1:9000")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvVideo, "/tmp/take1.mp4")

	c, err := FromEnv(Default())
	require.NoError(t, err)

	assert.Equal(t, 2, c.CameraID)
	assert.False(t, c.Mirrored)
	assert.Equal(t, 310.5, c.SheetW)
	assert.Equal(t, "127.0.0.1:9000", c.Addr)
	assert.Equal(t, "debug", c.LogLevel)
	assert.Equal(t, "/tmp/take1.mp4", c.VideoFile)
}

func TestFromEnv_DataDirMovesPlugins(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvDataDir, dir)

	c, err := FromEnv(Default())
	require.NoError(t, err)
	assert.Equal(t, dir, c.DataDir)
	assert.Equal(t, filepath.Join(dir, "plugins"), c.PluginDir)

	t.Setenv(EnvPluginDir, "/opt/plugins")
	c, err = FromEnv(Default())
	require.NoError(t, err)
	assert.Equal(t, "/opt/plugins", c.PluginDir)
}

func TestFromEnv_InvalidValues(t *testing.T) {
	t.Setenv(EnvIdleFPS, "fast")
	t.Setenv(EnvTray, "maybe")

	base := Default()
	c, err := FromEnv(base)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), EnvIdleFPS)
	assert.Contains(t, err.Error(), EnvTray)
	assert.Equal(t, base, c)
}

func TestRegisterFlags(t *testing.T) {
	c := Default()
	fs := flag.NewFlagSet("paperdrum", flag.ContinueOnError)
	c.RegisterFlags(fs)

	err := fs.Parse([]string{"-camera", "1", "-mirror=false", "-overlay-width", "1280", "-overlay-height", "720"})
	require.NoError(t, err)

	assert.Equal(t, 1, c.CameraID)
	assert.False(t, c.Mirrored)
	assert.Equal(t, 1280, c.OverlayW)
	assert.Equal(t, 720, c.OverlayH)
	assert.Equal(t, 5, c.IdleFPS, "untouched flags keep their defaults")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero fps", func(c *Config) { c.ActiveFPS = 0 }},
		{"negative overlay", func(c *Config) { c.OverlayW, c.OverlayH = -1, -1 }},
		{"half overlay", func(c *Config) { c.OverlayW = 640 }},
		{"empty sheet", func(c *Config) { c.SheetH = 0 }},
		{"no data dir", func(c *Config) { c.DataDir = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(&c)
			assert.ErrorIs(t, c.Validate(), ErrInvalid)
		})
	}
}
