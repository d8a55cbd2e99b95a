package terminal

import "go.uber.org/zap"

// ManagerBuilderOption is a functional option for configuring a Manager.
type ManagerBuilderOption func(*manager)

// WithMaxSessions sets the session limit.
//
// Parameters:
//   - n: maximum number of live sessions, at least 1
//
// Returns:
//   - ManagerBuilderOption: option function to apply
func WithMaxSessions(n int) ManagerBuilderOption {
	return func(m *manager) {
		if n > 0 {
			m.maxSessions = n
		}
	}
}

// WithSessionFactory replaces StartSession as the way sessions are created.
//
// Parameters:
//   - factory: creates a session for an id and grid size
//
// Returns:
//   - ManagerBuilderOption: option function to apply
func WithSessionFactory(factory SessionFactory) ManagerBuilderOption {
	return func(m *manager) {
		if factory != nil {
			m.factory = factory
		}
	}
}

// WithSessionOptions sets options passed to every spawned session, such as WithShell.
//
// Parameters:
//   - opts: session options
//
// Returns:
//   - ManagerBuilderOption: option function to apply
func WithSessionOptions(opts ...SessionBuilderOption) ManagerBuilderOption {
	return func(m *manager) {
		m.sessionOpts = append(m.sessionOpts, opts...)
	}
}

// WithDirtyMarker sets the function called whenever the visible content changes. It may be
// called from any goroutine.
//
// Parameters:
//   - mark: the marker, usually the Mark method of the frame loop's dirty flag
//
// Returns:
//   - ManagerBuilderOption: option function to apply
func WithDirtyMarker(mark func()) ManagerBuilderOption {
	return func(m *manager) {
		if mark != nil {
			m.markDirty = mark
		}
	}
}

// WithEmptyCallback sets the function called after the last session is removed.
//
// Parameters:
//   - fn: the callback
//
// Returns:
//   - ManagerBuilderOption: option function to apply
func WithEmptyCallback(fn func()) ManagerBuilderOption {
	return func(m *manager) {
		if fn != nil {
			m.onEmpty = fn
		}
	}
}

// WithBell sets the handler run when the current session rings the bell.
//
// Parameters:
//   - bell: the handler, see NewBell
//
// Returns:
//   - ManagerBuilderOption: option function to apply
func WithBell(bell func()) ManagerBuilderOption {
	return func(m *manager) {
		if bell != nil {
			m.bell = bell
		}
	}
}

// WithLogger sets the manager logger. Spawned sessions share it.
//
// Parameters:
//   - logger: the zap logger
//
// Returns:
//   - ManagerBuilderOption: option function to apply
func WithLogger(logger *zap.Logger) ManagerBuilderOption {
	return func(m *manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}
