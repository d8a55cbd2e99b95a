package terminal

import (
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
)

const vibrateDuration = 50 * time.Millisecond

// BellMode selects what happens when a session rings the terminal bell.
type BellMode string

const (
	// BellBeep forwards the bell to the host terminal.
	BellBeep BellMode = "beep"

	// BellVibrate requests haptic feedback. There is no haptic device on the desktop host, so the
	// request is only logged.
	BellVibrate BellMode = "vibrate"

	// BellIgnore drops the bell.
	BellIgnore BellMode = "ignore"
)

// ParseBellMode converts a configuration string to a BellMode.
//
// Parameters:
//   - s: "beep", "vibrate" or "ignore", case-insensitive
//
// Returns:
//   - BellMode: the parsed mode
//   - error: if s names no mode
func ParseBellMode(s string) (BellMode, error) {
	switch m := BellMode(strings.ToLower(strings.TrimSpace(s))); m {
	case BellBeep, BellVibrate, BellIgnore:
		return m, nil
	default:
		return "", fmt.Errorf("unknown bell mode %q", s)
	}
}

// NewBell returns the bell handler for a mode.
//
// Parameters:
//   - mode: the configured behaviour
//   - out: where BellBeep writes the BEL byte, usually os.Stderr
//   - logger: receives the vibrate request and write failures
//
// Returns:
//   - func(): the handler, safe to call from any goroutine
func NewBell(mode BellMode, out io.Writer, logger *zap.Logger) func() {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch mode {
	case BellBeep:
		return func() {
			if _, err := out.Write([]byte{'\a'}); err != nil {
				logger.Warn("bell", zap.Error(err))
			}
		}
	case BellVibrate:
		return func() {
			logger.Info("vibrate", zap.Duration("duration", vibrateDuration))
		}
	default:
		return func() {}
	}
}
