package stereo

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// FrameLoopBuilderOption is a functional option for configuring a FrameLoop.
type FrameLoopBuilderOption func(*frameLoop)

// WithDirtyFlag shares an existing flag instead of creating one, so producers built before the
// loop can mark it.
//
// Parameters:
//   - flag: the shared dirty flag
//
// Returns:
//   - FrameLoopBuilderOption: option function to apply
func WithDirtyFlag(flag *DirtyFlag) FrameLoopBuilderOption {
	return func(fl *frameLoop) {
		if flag != nil {
			fl.dirty = flag
		}
	}
}

// WithLogger sets the frame loop logger.
//
// Parameters:
//   - logger: the zap logger
//
// Returns:
//   - FrameLoopBuilderOption: option function to apply
func WithLogger(logger *zap.Logger) FrameLoopBuilderOption {
	return func(fl *frameLoop) {
		if logger != nil {
			fl.logger = logger
		}
	}
}

// WithFrameCounter counts presented frames.
//
// Parameters:
//   - counter: incremented once per finished frame
//
// Returns:
//   - FrameLoopBuilderOption: option function to apply
func WithFrameCounter(counter prometheus.Counter) FrameLoopBuilderOption {
	return func(fl *frameLoop) {
		fl.frameCounter = counter
	}
}

// WithStateObserver calls fn on every state transition, on the render goroutine.
//
// Parameters:
//   - fn: the observer
//
// Returns:
//   - FrameLoopBuilderOption: option function to apply
func WithStateObserver(fn func(FrameState)) FrameLoopBuilderOption {
	return func(fl *frameLoop) {
		fl.observer = fn
	}
}
