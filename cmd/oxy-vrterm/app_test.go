package main

import (
	"context"
	"os"
	"testing"

	"github.com/Carmen-Shannon/oxy-vrterm/config"
	"github.com/Carmen-Shannon/oxy-vrterm/engine/stereo"
	"github.com/Carmen-Shannon/oxy-vrterm/engine/profiler"
	"github.com/creack/pty"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func requirePty(t *testing.T) {
	t.Helper()
	ptmx, tty, err := pty.Open()
	if err != nil {
		t.Skipf("no pty available: %v", err)
	}
	_ = tty.Close()
	_ = ptmx.Close()
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh")
	}
}

func TestRunHeadless(t *testing.T) {
	requirePty(t)
	t.Setenv("VRTERM_CONFIG_FILE", "")
	t.Setenv("VRTERM_TERMINAL_SHELL", "/bin/sh")
	t.Setenv("VRTERM_LOG_LEVEL", "error")
	t.Setenv("VRTERM_RENDER_SCREEN_WIDTH", "160")
	t.Setenv("VRTERM_RENDER_SCREEN_HEIGHT", "120")

	err := run(context.Background(), runOptions{headless: true, frames: 3})
	assert.NoError(t, err)
}

func TestRunInvalidConfig(t *testing.T) {
	t.Setenv("VRTERM_CONFIG_FILE", "")
	t.Setenv("VRTERM_TERMINAL_BELL", "flash")

	err := run(context.Background(), runOptions{headless: true, frames: 1})
	assert.ErrorContains(t, err, "flash")
}

func TestNewSessionManagerMarksDirty(t *testing.T) {
	requirePty(t)
	cfg := config.Default()
	cfg.Terminal.Shell = "/bin/sh"
	cfg.Render.ScreenWidth, cfg.Render.ScreenHeight = 160, 120
	dirty := &stereo.DirtyFlag{}
	prof := profiler.NewProfiler()
	emptied := make(chan struct{})

	sessions, err := newSessionManager(cfg, dirty, prof, func() { close(emptied) }, zap.NewNop())
	require.NoError(t, err)

	s, err := sessions.Spawn()
	require.NoError(t, err)
	assert.True(t, dirty.IsSet(), "spawning shows a new session")
	assert.Positive(t, testutil.ToFloat64(prof.ContentChanges()))

	snap := sessions.RenderSnapshot()
	assert.Equal(t, 160, snap.Rect.Dx())
	assert.Equal(t, 120, snap.Rect.Dy())

	sessions.Remove(s)
	<-emptied
	sessions.Close()
}

func TestRootCommandFlags(t *testing.T) {
	cmd := newRootCommand()
	require.NoError(t, cmd.ParseFlags([]string{"--headless", "--frames", "12", "-c", "vrterm.toml"}))

	headless, err := cmd.Flags().GetBool("headless")
	require.NoError(t, err)
	assert.True(t, headless)
	frames, err := cmd.Flags().GetUint64("frames")
	require.NoError(t, err)
	assert.Equal(t, uint64(12), frames)
	path, err := cmd.Flags().GetString("config")
	require.NoError(t, err)
	assert.Equal(t, "vrterm.toml", path)

	assert.Error(t, cmd.Args(cmd, []string{"extra"}))
}
