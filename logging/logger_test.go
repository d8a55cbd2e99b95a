package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("WARN"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("verbose"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel(""))
}

func TestNewWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.json")
	cfg := DefaultConfig()
	cfg.Level = "warn"
	cfg.OutputPaths = []string{path}

	logger, err := New(cfg)
	require.NoError(t, err)
	logger.Info("dropped")
	logger.Warn("kept", zap.Int("frame", 7))
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(data, &entry), "exactly one JSON line")
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, float64(7), entry["frame"])
}

func TestNewConsole(t *testing.T) {
	logger, err := New(Config{Level: "debug", Development: true, OutputPaths: []string{filepath.Join(t.TempDir(), "log")}})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
	assert.NotPanics(t, func() { NewNop().Info("nothing") })
}
