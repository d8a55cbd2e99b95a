package mesh

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Carmen-Shannon/oxy-vrterm/common"
	"github.com/Carmen-Shannon/oxy-vrterm/engine/model"
	"github.com/Carmen-Shannon/oxy-vrterm/engine/renderer"
	"github.com/Carmen-Shannon/oxy-vrterm/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-vrterm/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"
)

//go:embed assets/lit_grid_vertex.wgsl
var litGridVertexSource string

//go:embed assets/grid_fragment.wgsl
var gridFragmentSource string

//go:embed assets/textured_vertex.wgsl
var texturedVertexSource string

//go:embed assets/passthrough_fragment.wgsl
var passthroughFragmentSource string

// ErrMissingBinding is returned when a program's shaders do not declare an attribute or resource
// that every draw of that program binds.
var ErrMissingBinding = errors.New("missing shader binding")

const (
	// UniformMesh is the WGSL variable name of the per-draw MeshUniform block.
	UniformMesh = "u_mesh"

	// UniformTexture is the WGSL variable name of the screen texture.
	UniformTexture = "u_texture"

	// UniformSampler is the WGSL variable name of the screen sampler.
	UniformSampler = "u_sampler"
)

// ProgramVariant selects one of the built-in shader programs.
type ProgramVariant int

const (
	// ProgramLitGrid lights vertex colors with a point light and overlays a distance-faded grid.
	// Used by the floor.
	ProgramLitGrid ProgramVariant = iota

	// ProgramTexturedPassthrough samples the screen texture without lighting.
	// Used by the screen quad.
	ProgramTexturedPassthrough
)

// String returns the variant's key, which is also the pipeline key and the shader file prefix.
func (v ProgramVariant) String() string {
	switch v {
	case ProgramLitGrid:
		return "lit_grid"
	case ProgramTexturedPassthrough:
		return "textured_passthrough"
	default:
		return fmt.Sprintf("program_%d", int(v))
	}
}

type variantSources struct {
	vertexFile, fragmentFile string
	vertex, fragment         string
	attributes               []model.Attribute
	textured                 bool
}

var builtinSources = map[ProgramVariant]variantSources{
	ProgramLitGrid: {
		vertexFile:   "lit_grid_vertex.wgsl",
		fragmentFile: "grid_fragment.wgsl",
		vertex:       litGridVertexSource,
		fragment:     gridFragmentSource,
		attributes:   []model.Attribute{model.AttributePosition, model.AttributeNormal, model.AttributeColor},
	},
	ProgramTexturedPassthrough: {
		vertexFile:   "textured_vertex.wgsl",
		fragmentFile: "passthrough_fragment.wgsl",
		vertex:       texturedVertexSource,
		fragment:     passthroughFragmentSource,
		attributes:   []model.Attribute{model.AttributePosition, model.AttributeNormal, model.AttributeColor, model.AttributeTexCoord},
		textured:     true,
	},
}

// binding locates a resource in the pipeline layout.
type binding struct {
	group, binding int
}

// program is the implementation of the Program interface.
type program struct {
	variant  ProgramVariant
	pipeline pipeline.Pipeline

	attributes []model.Attribute
	slots      map[model.Attribute]uint32
	uniform    binding
	texture    binding
	sampler    binding
	textured   bool

	logger    *zap.Logger
	shaderDir string
}

// Program is a linked vertex + fragment shader pair with its attribute slots and resource
// bindings resolved by name. A Program is built once and shared by every Renderable of its
// variant; it is never mutated after construction.
type Program interface {
	// Variant returns the built-in program this was created from.
	//
	// Returns:
	//   - ProgramVariant: the variant
	Variant() ProgramVariant

	// Pipeline returns the linked pipeline description.
	//
	// Returns:
	//   - pipeline.Pipeline: the registered pipeline
	Pipeline() pipeline.Pipeline

	// Handle returns the backend pipeline handle.
	//
	// Returns:
	//   - common.PipelineHandle: the linked pipeline
	Handle() common.PipelineHandle

	// Textured reports whether the program samples a texture.
	//
	// Returns:
	//   - bool: true for ProgramTexturedPassthrough
	Textured() bool

	// Attributes returns the vertex attributes every draw must bind, in slot order.
	//
	// Returns:
	//   - []model.Attribute: the required attributes
	Attributes() []model.Attribute

	// AttributeSlot returns the vertex buffer slot of an attribute.
	//
	// Parameters:
	//   - a: the attribute
	//
	// Returns:
	//   - uint32: the slot
	//   - bool: false if the program does not consume the attribute
	AttributeSlot(a model.Attribute) (uint32, bool)

	// UniformBinding returns where u_mesh is bound.
	//
	// Returns:
	//   - int: the group index
	//   - int: the binding index
	UniformBinding() (int, int)

	// TextureBindings returns where u_texture and u_sampler are bound. Only meaningful when Textured.
	//
	// Returns:
	//   - int: the group index shared by texture and sampler
	//   - int: the texture binding index
	//   - int: the sampler binding index
	TextureBindings() (int, int, int)
}

var _ Program = &program{}

// NewProgram compiles and links a built-in program through the renderer. Embedded WGSL is used
// unless a shader directory holds a file with the variant's name, which then takes precedence.
// Every attribute and resource the variant binds is resolved by name before linking.
//
// Parameters:
//   - r: the renderer to link the pipeline with
//   - variant: the built-in program to build
//   - opts: variadic list of ProgramBuilderOption functions
//
// Returns:
//   - Program: the linked program
//   - error: ErrMissingBinding naming the absent binding, or a compile/link error
func NewProgram(r renderer.Renderer, variant ProgramVariant, opts ...ProgramBuilderOption) (Program, error) {
	src, ok := builtinSources[variant]
	if !ok {
		return nil, fmt.Errorf("program %s: unknown variant", variant)
	}
	p := &program{
		variant:    variant,
		attributes: src.attributes,
		textured:   src.textured,
		slots:      make(map[model.Attribute]uint32, len(src.attributes)),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}

	key := variant.String()
	vs, err := p.loadShader(key+"_vs", shader.ShaderTypeVertex, src.vertexFile, src.vertex)
	if err != nil {
		return nil, fmt.Errorf("program %s: %w", key, err)
	}
	fs, err := p.loadShader(key+"_fs", shader.ShaderTypeFragment, src.fragmentFile, src.fragment)
	if err != nil {
		return nil, fmt.Errorf("program %s: %w", key, err)
	}

	if err := p.resolve(vs, fs); err != nil {
		return nil, fmt.Errorf("program %s: %w", key, err)
	}

	p.pipeline, err = pipeline.NewPipeline(key,
		pipeline.WithVertexShader(vs),
		pipeline.WithFragmentShader(fs),
		pipeline.WithDepthTestEnabled(true),
		pipeline.WithDepthWriteEnabled(true),
		pipeline.WithCullMode(wgpu.CullModeNone),
	)
	if err != nil {
		return nil, fmt.Errorf("program %s: %w", key, err)
	}
	if err := r.RegisterPipelines(p.pipeline); err != nil {
		return nil, fmt.Errorf("program %s: %w", key, err)
	}

	p.logger.Debug("program linked",
		zap.String("program", key),
		zap.Uint32("pipeline", uint32(p.pipeline.Handle())),
		zap.Strings("attributes", vs.VertexAttributeNames()),
	)
	return p, nil
}

func (p *program) loadShader(key string, stage shader.ShaderType, file, embedded string) (shader.Shader, error) {
	if p.shaderDir != "" {
		path := filepath.Join(p.shaderDir, file)
		if _, err := os.Stat(path); err == nil {
			p.logger.Info("loading shader override", zap.String("path", path))
			return shader.NewShader(key, stage, path)
		}
	}
	return shader.NewShaderFromSource(key, stage, embedded)
}

// resolve looks up every attribute slot and resource binding the variant needs.
func (p *program) resolve(vs, fs shader.Shader) error {
	for _, a := range p.attributes {
		slot, ok := vs.VertexSlot(a.Name())
		if !ok {
			return fmt.Errorf("attribute %s: %w", a.Name(), ErrMissingBinding)
		}
		p.slots[a] = uint32(slot)
	}

	var ok bool
	if p.uniform, ok = findBinding(UniformMesh, vs, fs); !ok {
		return fmt.Errorf("uniform %s: %w", UniformMesh, ErrMissingBinding)
	}

	if !p.textured {
		return nil
	}
	if p.texture, ok = findBinding(UniformTexture, fs); !ok {
		return fmt.Errorf("texture %s: %w", UniformTexture, ErrMissingBinding)
	}
	if p.sampler, ok = findBinding(UniformSampler, fs); !ok {
		return fmt.Errorf("sampler %s: %w", UniformSampler, ErrMissingBinding)
	}
	if p.texture.group != p.sampler.group {
		return fmt.Errorf("%s and %s must share a bind group, got %d and %d", UniformTexture, UniformSampler, p.texture.group, p.sampler.group)
	}
	if p.texture.group == p.uniform.group {
		return fmt.Errorf("%s and %s must not share a bind group", UniformTexture, UniformMesh)
	}
	return nil
}

func findBinding(name string, shaders ...shader.Shader) (binding, bool) {
	for _, s := range shaders {
		if g, b, ok := s.FindBinding(name); ok {
			return binding{group: g, binding: b}, true
		}
	}
	return binding{}, false
}

func (p *program) Variant() ProgramVariant {
	return p.variant
}

func (p *program) Pipeline() pipeline.Pipeline {
	return p.pipeline
}

func (p *program) Handle() common.PipelineHandle {
	return p.pipeline.Handle()
}

func (p *program) Textured() bool {
	return p.textured
}

func (p *program) Attributes() []model.Attribute {
	out := make([]model.Attribute, len(p.attributes))
	copy(out, p.attributes)
	return out
}

func (p *program) AttributeSlot(a model.Attribute) (uint32, bool) {
	slot, ok := p.slots[a]
	return slot, ok
}

func (p *program) UniformBinding() (int, int) {
	return p.uniform.group, p.uniform.binding
}

func (p *program) TextureBindings() (int, int, int) {
	return p.texture.group, p.texture.binding, p.sampler.binding
}
