package mesh

import "go.uber.org/zap"

// ProgramBuilderOption is a functional option used to configure a Program during construction.
type ProgramBuilderOption func(*program)

// WithShaderDir sets a directory searched for WGSL overrides. A file named after the variant's
// stage (e.g. "lit_grid_vertex.wgsl") replaces the embedded source for that stage.
//
// Parameters:
//   - dir: the override directory; empty disables overrides
//
// Returns:
//   - ProgramBuilderOption: a function that sets the override directory
func WithShaderDir(dir string) ProgramBuilderOption {
	return func(p *program) {
		p.shaderDir = dir
	}
}

// WithProgramLogger sets the logger used while building the program.
func WithProgramLogger(logger *zap.Logger) ProgramBuilderOption {
	return func(p *program) {
		if logger != nil {
			p.logger = logger
		}
	}
}
