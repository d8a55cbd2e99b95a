package terminal

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseBellMode(t *testing.T) {
	for in, want := range map[string]BellMode{
		"beep":     BellBeep,
		" Vibrate": BellVibrate,
		"IGNORE":   BellIgnore,
	} {
		got, err := ParseBellMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseBellMode("flash")
	assert.Error(t, err)
}

func TestNewBell(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	var out bytes.Buffer
	NewBell(BellBeep, &out, logger)()
	assert.Equal(t, []byte{'\a'}, out.Bytes())

	out.Reset()
	NewBell(BellIgnore, &out, logger)()
	assert.Zero(t, out.Len())
	assert.Zero(t, logs.Len())

	NewBell(BellVibrate, &out, logger)()
	assert.Zero(t, out.Len())
	require.Equal(t, 1, logs.FilterMessage("vibrate").Len())
	assert.Equal(t, vibrateDuration, logs.All()[0].ContextMap()["duration"])
}
