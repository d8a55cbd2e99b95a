package mesh

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-vrterm/common"
	"github.com/Carmen-Shannon/oxy-vrterm/engine/model"
	"github.com/Carmen-Shannon/oxy-vrterm/engine/renderer"
	"github.com/Carmen-Shannon/oxy-vrterm/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-vrterm/engine/texture"
)

// renderable is the implementation of the Renderable and TexturedRenderable interfaces.
type renderable struct {
	label    string
	program  Program
	geometry model.Geometry
	texture  texture.Texture

	translation [3]float32
	model       [16]float32
	provider    bind_group_provider.BindGroupProvider
}

// Renderable is a drawable unit: fixed geometry uploaded once, a shared Program, and a model
// transform. Draw records the same command sequence on every call for the same inputs.
type Renderable interface {
	// Label returns the debug label.
	//
	// Returns:
	//   - string: the label
	Label() string

	// Program returns the shared program this renderable draws with.
	//
	// Returns:
	//   - Program: the program
	Program() Program

	// VertexCount returns the number of vertices issued per draw.
	//
	// Returns:
	//   - int: positions / 3
	VertexCount() int

	// ModelMatrix returns a copy of the object-to-world transform.
	//
	// Returns:
	//   - [16]float32: the column-major model matrix
	ModelMatrix() [16]float32

	// Provider returns the GPU resources bound per draw.
	//
	// Returns:
	//   - bind_group_provider.BindGroupProvider: vertex buffers, uniform buffer and bind groups
	Provider() bind_group_provider.BindGroupProvider

	// Draw records one draw into an eye pass. MV = view × model and MVP = projection × MV are
	// written to the uniform block together with the model matrix and the eye-space light.
	// The command order is: pipeline, uniforms, bind groups by index, vertex buffers by slot, draw.
	//
	// Parameters:
	//   - pass: the active eye pass
	//   - lightEye: the light position in eye space
	//   - view: the 16-float column-major view matrix
	//   - projection: the 16-float column-major projection matrix
	//
	// Returns:
	//   - error: the first failing command, wrapped with the renderable label
	Draw(pass renderer.RenderPass, lightEye [3]float32, view, projection []float32) error
}

// TexturedRenderable is a Renderable that samples a texture.
type TexturedRenderable interface {
	Renderable

	// Texture returns the texture sampled by this renderable.
	//
	// Returns:
	//   - texture.Texture: the bound texture
	Texture() texture.Texture
}

var (
	_ Renderable         = &renderable{}
	_ TexturedRenderable = &renderable{}
)

// NewRenderable uploads an untextured geometry for a program that does not sample a texture.
// One vertex buffer is created per attribute, plus the uniform buffer and its bind group.
//
// Parameters:
//   - r: the renderer that owns the GPU resources
//   - p: a non-textured program
//   - g: the geometry; it must carry the program's attributes
//   - opts: variadic list of RenderableBuilderOption functions
//
// Returns:
//   - Renderable: the uploaded renderable
//   - error: a validation or resource creation error naming the step
func NewRenderable(r renderer.Renderer, p Program, g model.Geometry, opts ...RenderableBuilderOption) (Renderable, error) {
	if p == nil {
		return nil, errors.New("renderable: nil program")
	}
	if p.Textured() {
		return nil, fmt.Errorf("renderable: program %s samples a texture, use NewTexturedRenderable", p.Variant())
	}
	rd, err := newRenderable(r, p, g, nil, opts)
	if err != nil {
		return nil, err
	}
	return rd, nil
}

// NewTexturedRenderable uploads a textured geometry for a textured program and binds tex with
// its sampler.
//
// Parameters:
//   - r: the renderer that owns the GPU resources
//   - p: a textured program
//   - g: the geometry; it must carry texture coordinates
//   - tex: the texture to sample
//   - opts: variadic list of RenderableBuilderOption functions
//
// Returns:
//   - TexturedRenderable: the uploaded renderable
//   - error: a validation or resource creation error naming the step
func NewTexturedRenderable(r renderer.Renderer, p Program, g model.Geometry, tex texture.Texture, opts ...RenderableBuilderOption) (TexturedRenderable, error) {
	if p == nil {
		return nil, errors.New("renderable: nil program")
	}
	if !p.Textured() {
		return nil, fmt.Errorf("renderable: program %s does not sample a texture", p.Variant())
	}
	if tex == nil {
		return nil, errors.New("renderable: nil texture")
	}
	rd, err := newRenderable(r, p, g, tex, opts)
	if err != nil {
		return nil, err
	}
	return rd, nil
}

func newRenderable(r renderer.Renderer, p Program, g model.Geometry, tex texture.Texture, opts []RenderableBuilderOption) (*renderable, error) {
	if g == nil {
		return nil, errors.New("renderable: nil geometry")
	}
	rd := &renderable{
		label:    g.Label(),
		program:  p,
		geometry: g,
		texture:  tex,
	}
	for _, opt := range opts {
		opt(rd)
	}
	label := rd.label

	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("mesh %s: %w", label, err)
	}
	if g.Textured() != p.Textured() {
		return nil, fmt.Errorf("mesh %s: geometry textured=%t, program %s textured=%t", label, g.Textured(), p.Variant(), p.Textured())
	}

	common.Identity(rd.model[:])
	common.Translate(rd.model[:], rd.translation[0], rd.translation[1], rd.translation[2])

	providerOpts := []bind_group_provider.BindGroupProviderOption{
		bind_group_provider.WithVertexCount(g.VertexCount()),
	}

	for _, a := range p.Attributes() {
		slot, ok := p.AttributeSlot(a)
		if !ok {
			return nil, fmt.Errorf("mesh %s: attribute %s: %w", label, a.Name(), ErrMissingBinding)
		}
		h, err := r.CreateVertexBuffer(label+" "+a.Name(), g.Bytes(a))
		if err != nil {
			return nil, fmt.Errorf("mesh %s: create vertex buffer %s: %w", label, a.Name(), err)
		}
		providerOpts = append(providerOpts, bind_group_provider.WithVertexBuffer(int(slot), h))
	}

	ubo, err := r.CreateUniformBuffer(label+" "+UniformMesh, uint64((&model.GPUMeshUniform{}).Size()))
	if err != nil {
		return nil, fmt.Errorf("mesh %s: create uniform buffer: %w", label, err)
	}
	group, bindingIndex := p.UniformBinding()
	bg, err := r.CreateBindGroup(label+" uniforms", p.Pipeline(), group, []common.BindGroupEntry{
		{Binding: uint32(bindingIndex), Buffer: ubo},
	})
	if err != nil {
		return nil, fmt.Errorf("mesh %s: create uniform bind group: %w", label, err)
	}
	providerOpts = append(providerOpts,
		bind_group_provider.WithUniformBuffer(ubo),
		bind_group_provider.WithBindGroup(group, bg),
	)

	if tex != nil {
		texGroup, texBinding, samplerBinding := p.TextureBindings()
		tbg, err := r.CreateBindGroup(label+" texture", p.Pipeline(), texGroup, []common.BindGroupEntry{
			{Binding: uint32(texBinding), Texture: tex.Handle()},
			{Binding: uint32(samplerBinding), Sampler: tex.Sampler()},
		})
		if err != nil {
			return nil, fmt.Errorf("mesh %s: create texture bind group: %w", label, err)
		}
		providerOpts = append(providerOpts, bind_group_provider.WithBindGroup(texGroup, tbg))
	}

	rd.provider = bind_group_provider.NewBindGroupProvider(label, providerOpts...)
	return rd, nil
}

func (rd *renderable) Label() string {
	return rd.label
}

func (rd *renderable) Program() Program {
	return rd.program
}

func (rd *renderable) VertexCount() int {
	return rd.provider.VertexCount()
}

func (rd *renderable) ModelMatrix() [16]float32 {
	return rd.model
}

func (rd *renderable) Provider() bind_group_provider.BindGroupProvider {
	return rd.provider
}

func (rd *renderable) Texture() texture.Texture {
	return rd.texture
}

func (rd *renderable) Draw(pass renderer.RenderPass, lightEye [3]float32, view, projection []float32) error {
	if len(view) != 16 || len(projection) != 16 {
		return fmt.Errorf("draw %s: view and projection must be 4x4 matrices", rd.label)
	}

	// derived matrices are scratch for this draw only
	u := model.GPUMeshUniform{Model: rd.model, LightPos: lightEye}
	common.Mul4(u.ModelView[:], view, rd.model[:])
	common.Mul4(u.MVP[:], projection, u.ModelView[:])

	if err := pass.SetPipeline(rd.program.Handle()); err != nil {
		return fmt.Errorf("draw %s: set pipeline: %w", rd.label, err)
	}
	if err := pass.WriteUniforms(rd.provider.UniformBuffer(), u.Marshal()); err != nil {
		return fmt.Errorf("draw %s: write uniforms: %w", rd.label, err)
	}
	for _, g := range rd.provider.Groups() {
		if err := pass.SetBindGroup(uint32(g), rd.provider.BindGroup(g)); err != nil {
			return fmt.Errorf("draw %s: set bind group %d: %w", rd.label, g, err)
		}
	}
	for _, slot := range rd.provider.VertexSlots() {
		if err := pass.SetVertexBuffer(uint32(slot), rd.provider.VertexBuffer(slot)); err != nil {
			return fmt.Errorf("draw %s: set vertex buffer %d: %w", rd.label, slot, err)
		}
	}
	if err := pass.Draw(uint32(rd.provider.VertexCount())); err != nil {
		return fmt.Errorf("draw %s: %w", rd.label, err)
	}
	return nil
}
