package texture

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// BridgeBuilderOption is a functional option used to configure a Bridge during construction.
type BridgeBuilderOption func(*bridge)

// WithLogger sets the logger used for texture creation events.
//
// Parameters:
//   - logger: the zap logger; nil keeps the no-op default
//
// Returns:
//   - BridgeBuilderOption: a function that applies the logger to a bridge
func WithLogger(logger *zap.Logger) BridgeBuilderOption {
	return func(b *bridge) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithUploadCounter sets a Prometheus counter incremented on every successful upload.
func WithUploadCounter(counter prometheus.Counter) BridgeBuilderOption {
	return func(b *bridge) {
		b.counter = counter
	}
}
