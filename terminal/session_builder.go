package terminal

import "go.uber.org/zap"

// SessionBuilderOption is a functional option for configuring a Session.
type SessionBuilderOption func(*session)

// WithShell sets the program started on the pty. Defaults to $SHELL, then /bin/sh.
//
// Parameters:
//   - path: the shell executable
//
// Returns:
//   - SessionBuilderOption: option function to apply
func WithShell(path string) SessionBuilderOption {
	return func(s *session) {
		if path != "" {
			s.shell = path
		}
	}
}

// WithEnv appends KEY=VALUE entries to the shell environment.
//
// Parameters:
//   - env: environment entries
//
// Returns:
//   - SessionBuilderOption: option function to apply
func WithEnv(env ...string) SessionBuilderOption {
	return func(s *session) {
		s.env = append(s.env, env...)
	}
}

// WithOutputCallback sets the function called after every chunk of output reaches the emulator.
// It runs on the session's reader goroutine.
//
// Parameters:
//   - fn: the callback
//
// Returns:
//   - SessionBuilderOption: option function to apply
func WithOutputCallback(fn func()) SessionBuilderOption {
	return func(s *session) {
		s.onOutput = fn
	}
}

// WithBellCallback sets the function called when the output rings the bell.
//
// Parameters:
//   - fn: the callback
//
// Returns:
//   - SessionBuilderOption: option function to apply
func WithBellCallback(fn func()) SessionBuilderOption {
	return func(s *session) {
		s.onBell = fn
	}
}

// WithSessionLogger sets the session logger.
//
// Parameters:
//   - logger: the zap logger
//
// Returns:
//   - SessionBuilderOption: option function to apply
func WithSessionLogger(logger *zap.Logger) SessionBuilderOption {
	return func(s *session) {
		if logger != nil {
			s.logger = logger
		}
	}
}
