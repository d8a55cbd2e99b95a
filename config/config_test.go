package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vrterm.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 1280, cfg.Window.Width)
	assert.Equal(t, 720, cfg.Window.Height)
	assert.Equal(t, "vsync", cfg.Render.PresentMode)
	assert.Equal(t, 4, cfg.Render.MSAA)
	assert.False(t, cfg.Render.Headless)
	assert.Equal(t, 640, cfg.Render.ScreenWidth)
	assert.Equal(t, 480, cfg.Render.ScreenHeight)
	assert.Equal(t, 8, cfg.Terminal.MaxSessions)
	assert.Equal(t, "beep", cfg.Terminal.Bell)
	assert.Equal(t, 1, cfg.Terminal.FontScale)
	assert.InDelta(t, 0.064, cfg.Head.IPD, 1e-6)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Empty(t, cfg.Metrics.Addr)
	assert.NoError(t, cfg.Validate())
}

func TestLoadWithoutFile(t *testing.T) {
	t.Setenv("VRTERM_CONFIG_FILE", "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	t.Setenv("VRTERM_WINDOW_WIDTH", "1920")
	t.Setenv("VRTERM_RENDER_HEADLESS", "true")
	t.Setenv("VRTERM_RENDER_PRESENT_MODE", "uncapped")
	t.Setenv("VRTERM_TERMINAL_SHELL", "/bin/zsh")
	t.Setenv("VRTERM_TERMINAL_BELL", "vibrate")
	t.Setenv("VRTERM_HEAD_IPD", "0.07")
	t.Setenv("VRTERM_LOG_LEVEL", "debug")
	t.Setenv("VRTERM_METRICS_ADDR", ":9464")
	// unprefixed names are never read
	t.Setenv("WIDTH", "10")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 1920, cfg.Window.Width)
	assert.True(t, cfg.Render.Headless)
	assert.Equal(t, "uncapped", cfg.Render.PresentMode)
	assert.Equal(t, "/bin/zsh", cfg.Terminal.Shell)
	assert.Equal(t, "vibrate", cfg.Terminal.Bell)
	assert.InDelta(t, 0.07, cfg.Head.IPD, 1e-6)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, ":9464", cfg.Metrics.Addr)
	assert.Equal(t, 720, cfg.Window.Height, "unset variables keep defaults")
}

func TestLoadFileThenEnvironment(t *testing.T) {
	path := writeFile(t, `
[window]
title = "from file"
height = 600

[terminal]
max_sessions = 3
font_scale = 2
`)
	t.Setenv("VRTERM_WINDOW_HEIGHT", "800")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from file", cfg.Window.Title)
	assert.Equal(t, 800, cfg.Window.Height, "environment wins over the file")
	assert.Equal(t, 3, cfg.Terminal.MaxSessions)
	assert.Equal(t, 2, cfg.Terminal.FontScale)
	assert.Equal(t, 1280, cfg.Window.Width, "fields missing from the file keep defaults")

	t.Run("file named by the environment", func(t *testing.T) {
		t.Setenv("VRTERM_CONFIG_FILE", path)
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, "from file", cfg.Window.Title)
	})
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
		assert.Error(t, err)
	})
	t.Run("unknown key", func(t *testing.T) {
		_, err := Load(writeFile(t, "[window]\ncolour = \"red\"\n"))
		assert.Error(t, err)
	})
	t.Run("malformed environment value", func(t *testing.T) {
		t.Setenv("VRTERM_RENDER_MSAA", "lots")
		_, err := Load("")
		assert.Error(t, err)
	})
	t.Run("invalid value", func(t *testing.T) {
		t.Setenv("VRTERM_TERMINAL_BELL", "flash")
		_, err := Load("")
		assert.ErrorContains(t, err, "flash")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"window", func(c *Config) { c.Window.Width = 0 }},
		{"present mode", func(c *Config) { c.Render.PresentMode = "mailbox" }},
		{"msaa", func(c *Config) { c.Render.MSAA = 2 }},
		{"frame limit", func(c *Config) { c.Render.FrameLimit = -1 }},
		{"screen", func(c *Config) { c.Render.ScreenHeight = 0 }},
		{"sessions", func(c *Config) { c.Terminal.MaxSessions = 0 }},
		{"font scale", func(c *Config) { c.Terminal.FontScale = 5 }},
		{"ipd", func(c *Config) { c.Head.IPD = -0.1 }},
		{"fov", func(c *Config) { c.Head.FovDegrees = 180 }},
		{"encoding", func(c *Config) { c.Logging.Encoding = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := Default()
	cfg.Window.Width = 0
	cfg.Terminal.Bell = "nope"
	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "window size")
	assert.ErrorContains(t, err, "nope")
}
