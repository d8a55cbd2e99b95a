package shader

import (
	"fmt"
	"os"

	"github.com/cogentcore/webgpu/wgpu"
)

// ShaderType identifies the pipeline stage a shader module is written for.
type ShaderType int

const (
	// ShaderTypeVertex is the vertex shader type, used for vertex processing in render pipelines.
	ShaderTypeVertex ShaderType = iota

	// ShaderTypeFragment is the fragment shader type, used for fragment processing in pair with a vertex shader.
	ShaderTypeFragment
)

// String returns the lower-case stage name.
func (t ShaderType) String() string {
	switch t {
	case ShaderTypeVertex:
		return "vertex"
	case ShaderTypeFragment:
		return "fragment"
	default:
		return fmt.Sprintf("shader_type_%d", int(t))
	}
}

// shader is the implementation of the Shader interface.
// It holds all of the persistent shader data required for pipeline creation and resource binding.
type shader struct {
	key                        string
	source                     string
	shaderType                 ShaderType
	bindGroupLayoutDescriptors map[int]wgpu.BindGroupLayoutDescriptor
	bindingVarNames            map[int]map[int]string
	vertexInputs               []vertexInput
	entryPoint                 string
	module                     *wgpu.ShaderModuleDescriptor
	declarations               []Annotation
}

// Shader defines the interface for a parsed WGSL shader. It exposes the shader's unique key,
// processed source, entry point, bind group layout descriptors, per-attribute vertex buffer
// layouts and pre-processor declarations needed for pipeline creation and resource wiring.
// A Shader is immutable once created.
type Shader interface {
	// Key retrieves the unique identifier for this shader, used for caching and lookups.
	//
	// Returns:
	//   - string: the shader's unique key
	Key() string

	// Source retrieves the pre-processed WGSL shader source code.
	//
	// Returns:
	//   - string: the WGSL source code of the shader
	Source() string

	// ShaderType returns the stage of the shader.
	//
	// Returns:
	//   - ShaderType: ShaderTypeVertex or ShaderTypeFragment
	ShaderType() ShaderType

	// EntryPoint returns the entry point name for this shader.
	//
	// Returns:
	//   - string: the entry point name (e.g. "vs_main")
	EntryPoint() string

	// Module returns the wgpu.ShaderModuleDescriptor built from the processed source.
	//
	// Returns:
	//   - *wgpu.ShaderModuleDescriptor: the shader module descriptor containing the WGSL code and label
	Module() *wgpu.ShaderModuleDescriptor

	// BindGroupLayoutDescriptors retrieves all parsed bind group layout descriptors keyed by group index.
	//
	// Returns:
	//   - map[int]wgpu.BindGroupLayoutDescriptor: descriptors keyed by group index
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// BindGroupVarName retrieves the variable name for a given group and binding index.
	//
	// Parameters:
	//   - group: the bind group index
	//   - binding: the binding index within the group
	//
	// Returns:
	//   - string: the variable name, or an empty string if not found
	BindGroupVarName(group, binding int) string

	// FindBinding locates a resource binding by its WGSL variable name across all groups.
	//
	// Parameters:
	//   - varName: the variable name (e.g. "u_mesh")
	//
	// Returns:
	//   - int: the group index, or -1 if not found
	//   - int: the binding index, or -1 if not found
	//   - bool: true if the variable is declared
	FindBinding(varName string) (int, int, bool)

	// VertexLayouts returns one vertex buffer layout per vertex attribute in slot order.
	// Returns nil for fragment shaders.
	//
	// Returns:
	//   - []wgpu.VertexBufferLayout: single-attribute layouts, slot i at index i
	VertexLayouts() []wgpu.VertexBufferLayout

	// VertexSlot resolves a vertex attribute name to its vertex buffer slot.
	//
	// Parameters:
	//   - attribute: the vertex input field name (e.g. "a_position")
	//
	// Returns:
	//   - int: the buffer slot, or -1 if not found
	//   - bool: true if the attribute is an input of this shader
	VertexSlot(attribute string) (int, bool)

	// VertexAttributeNames returns the vertex input field names in slot order.
	//
	// Returns:
	//   - []string: attribute names
	VertexAttributeNames() []string

	// Declarations returns the group and provider annotations parsed from the shader source.
	//
	// Returns:
	//   - []Annotation: annotations in source order
	Declarations() []Annotation
}

var _ Shader = &shader{}

// NewShader creates a new Shader by reading WGSL source from a file.
//
// Parameters:
//   - key: a unique identifier for the shader, used for caching and lookups
//   - shaderType: the stage the shader is written for
//   - sourcePath: the file path to read WGSL source from
//
// Returns:
//   - Shader: the parsed shader
//   - error: an error if the file cannot be read or the source cannot be processed
func NewShader(key string, shaderType ShaderType, sourcePath string) (Shader, error) {
	if sourcePath == "" {
		return nil, fmt.Errorf("shader %s: empty source path", key)
	}
	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("shader %s: read %q: %w", key, sourcePath, err)
	}
	return NewShaderFromSource(key, shaderType, string(data))
}

// NewShaderFromSource creates a new Shader from in-memory WGSL source. The source is run through
// the pre-processor, then the entry point, vertex inputs (vertex shaders only) and bind group
// layouts are parsed from the result.
//
// Parameters:
//   - key: a unique identifier for the shader
//   - shaderType: the stage the shader is written for
//   - source: raw WGSL source, possibly containing @oxy: annotations
//
// Returns:
//   - Shader: the parsed shader
//   - error: an error if pre-processing fails or no entry point for the stage exists
func NewShaderFromSource(key string, shaderType ShaderType, source string) (Shader, error) {
	pp := NewPreProcessor()
	processed, err := pp.Process(source)
	if err != nil {
		return nil, fmt.Errorf("shader %s: pre-process: %w", key, err)
	}

	s := &shader{
		key:          key,
		source:       processed,
		shaderType:   shaderType,
		declarations: pp.Declarations(),
		module: &wgpu.ShaderModuleDescriptor{
			Label: key,
			WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
				Code: processed,
			},
		},
	}

	s.entryPoint = parseEntryPoint(processed, shaderType)
	if s.entryPoint == "" {
		return nil, fmt.Errorf("shader %s: no @%s entry point", key, shaderType)
	}

	var visibility wgpu.ShaderStage
	switch shaderType {
	case ShaderTypeVertex:
		visibility = wgpu.ShaderStageVertex
		s.vertexInputs = parseVertexInputs(processed)
	case ShaderTypeFragment:
		visibility = wgpu.ShaderStageFragment
	}
	s.bindGroupLayoutDescriptors, s.bindingVarNames = parseBindGroupLayouts(processed, visibility)
	return s, nil
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) ShaderType() ShaderType {
	return s.shaderType
}

func (s *shader) EntryPoint() string {
	return s.entryPoint
}

func (s *shader) Module() *wgpu.ShaderModuleDescriptor {
	return s.module
}

func (s *shader) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors
}

func (s *shader) BindGroupVarName(group, binding int) string {
	if s.bindingVarNames[group] == nil {
		return ""
	}
	return s.bindingVarNames[group][binding]
}

func (s *shader) FindBinding(varName string) (int, int, bool) {
	for group, bindings := range s.bindingVarNames {
		for binding, name := range bindings {
			if name == varName {
				return group, binding, true
			}
		}
	}
	return -1, -1, false
}

func (s *shader) VertexLayouts() []wgpu.VertexBufferLayout {
	if len(s.vertexInputs) == 0 {
		return nil
	}
	out := make([]wgpu.VertexBufferLayout, len(s.vertexInputs))
	for i, in := range s.vertexInputs {
		out[i] = in.layout
	}
	return out
}

func (s *shader) VertexSlot(attribute string) (int, bool) {
	for i, in := range s.vertexInputs {
		if in.name == attribute {
			return i, true
		}
	}
	return -1, false
}

func (s *shader) VertexAttributeNames() []string {
	out := make([]string, len(s.vertexInputs))
	for i, in := range s.vertexInputs {
		out[i] = in.name
	}
	return out
}

func (s *shader) Declarations() []Annotation {
	return s.declarations
}
