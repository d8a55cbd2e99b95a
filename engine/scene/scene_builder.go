package scene

import "go.uber.org/zap"

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithName sets the scene's identifier used in logs and error messages.
//
// Parameters:
//   - name: the scene name
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithName(name string) SceneBuilderOption {
	return func(s *scene) {
		if name != "" {
			s.name = name
		}
	}
}

// WithShaderDir loads shader overrides from a directory.
//
// Parameters:
//   - dir: the directory holding WGSL overrides
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithShaderDir(dir string) SceneBuilderOption {
	return func(s *scene) {
		s.shaderDir = dir
	}
}

// WithLogger sets the logger for the scene and its programs.
//
// Parameters:
//   - logger: the zap logger
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithLogger(logger *zap.Logger) SceneBuilderOption {
	return func(s *scene) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithPlacement overrides the floor height and screen distance. The floor must stay below the
// viewer and the screen in front of it; the values are visual tuning only.
//
// Parameters:
//   - floorY: the floor translation along Y (default -20)
//   - screenZ: the screen translation along Z (default -10)
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithPlacement(floorY, screenZ float32) SceneBuilderOption {
	return func(s *scene) {
		s.floorY = floorY
		s.screenZ = screenZ
	}
}
