package pipeline

import (
	"fmt"
	"sort"

	"github.com/Carmen-Shannon/oxy-vrterm/common"
	"github.com/Carmen-Shannon/oxy-vrterm/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// pipeline is the implementation of the Pipeline interface.
// It holds the render state and the shader pair that a backend links into a GPU render pipeline.
type pipeline struct {
	// pipelineKey is the unique identifier for this pipeline, used for caching and lookups
	pipelineKey string

	vertexShader, fragmentShader shader.Shader

	// handle is assigned by the renderer backend once the pipeline is linked
	handle common.PipelineHandle

	depthTestEnabled  bool
	depthWriteEnabled bool
	blendEnabled      bool
	cullMode          wgpu.CullMode
	topology          wgpu.PrimitiveTopology
	frontFace         wgpu.FrontFace
	writeMask         wgpu.ColorWriteMask
	blendState        *wgpu.BlendState
}

// Pipeline defines the interface for a render pipeline description: a vertex and fragment
// shader pair plus the fixed-function state (depth, blend, cull, topology) used when the
// renderer backend links it. Once linked the backend assigns a PipelineHandle; the description
// is never mutated afterwards.
type Pipeline interface {
	// PipelineKey returns the unique key associated with this pipeline, used for caching and lookups.
	//
	// Returns:
	//   - string: the unique key for this pipeline
	PipelineKey() string

	// VertexShader returns the vertex stage shader.
	//
	// Returns:
	//   - shader.Shader: the vertex shader
	VertexShader() shader.Shader

	// FragmentShader returns the fragment stage shader.
	//
	// Returns:
	//   - shader.Shader: the fragment shader
	FragmentShader() shader.Shader

	// Handle returns the backend handle of the linked pipeline, or the zero handle if not yet linked.
	//
	// Returns:
	//   - common.PipelineHandle: the pipeline handle
	Handle() common.PipelineHandle

	// SetHandle records the backend handle after linking. Called by the renderer only.
	//
	// Parameters:
	//   - h: the handle assigned by the backend
	SetHandle(h common.PipelineHandle)

	// BindGroupLayoutDescriptors merges the bind group layouts of both stages. Entries declared
	// by both stages at the same group and binding get the union of their visibilities.
	//
	// Returns:
	//   - map[int]wgpu.BindGroupLayoutDescriptor: merged descriptors keyed by group index
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// GroupCount returns the number of bind groups in the pipeline layout (highest group index + 1).
	//
	// Returns:
	//   - int: the group count
	GroupCount() int

	// DepthTestEnabled returns whether depth testing is enabled for this pipeline.
	//
	// Returns:
	//   - bool: true if depth testing is enabled, false otherwise
	DepthTestEnabled() bool

	// DepthWriteEnabled returns whether depth writing is enabled for this pipeline.
	//
	// Returns:
	//   - bool: true if depth writing is enabled, false otherwise
	DepthWriteEnabled() bool

	// BlendEnabled returns whether blending is enabled for this pipeline.
	//
	// Returns:
	//   - bool: true if blending is enabled, false otherwise
	BlendEnabled() bool

	// CullMode returns the cull mode configured for this pipeline.
	//
	// Returns:
	//   - wgpu.CullMode: the cull mode for this pipeline
	CullMode() wgpu.CullMode

	// Topology returns the primitive topology configured for this pipeline.
	//
	// Returns:
	//   - wgpu.PrimitiveTopology: the primitive topology for this pipeline
	Topology() wgpu.PrimitiveTopology

	// FrontFace returns the front face winding order configured for this pipeline.
	//
	// Returns:
	//   - wgpu.FrontFace: the front face winding order for this pipeline
	FrontFace() wgpu.FrontFace

	// WriteMask returns the color write mask configured for this pipeline.
	//
	// Returns:
	//   - wgpu.ColorWriteMask: the color write mask for this pipeline
	WriteMask() wgpu.ColorWriteMask

	// BlendState returns the blend state configured for this pipeline.
	//
	// Returns:
	//   - *wgpu.BlendState: the blend state, or nil if blending is not enabled
	BlendState() *wgpu.BlendState
}

var _ Pipeline = &pipeline{}

// NewPipeline creates a render pipeline description. Both a vertex and a fragment shader are required.
// Defaults: depth test and write on, no blending, no culling, triangle list, CCW front faces.
//
// Parameters:
//   - pipelineKey: the unique key for this pipeline
//   - opts: a variadic list of PipelineBuilderOption functions to configure the pipeline
//
// Returns:
//   - Pipeline: a new Pipeline instance with the specified configuration
//   - error: an error if a shader is missing or has the wrong stage
func NewPipeline(pipelineKey string, opts ...PipelineBuilderOption) (Pipeline, error) {
	p := &pipeline{
		pipelineKey:       pipelineKey,
		depthTestEnabled:  true,
		depthWriteEnabled: true,
		blendEnabled:      false,
		cullMode:          wgpu.CullModeNone,
		topology:          wgpu.PrimitiveTopologyTriangleList,
		frontFace:         wgpu.FrontFaceCCW,
		writeMask:         wgpu.ColorWriteMaskAll,
		blendState: &wgpu.BlendState{
			Color: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorSrcAlpha,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
			Alpha: wgpu.BlendComponent{
				SrcFactor: wgpu.BlendFactorOne,
				DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
				Operation: wgpu.BlendOperationAdd,
			},
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.vertexShader == nil || p.vertexShader.ShaderType() != shader.ShaderTypeVertex {
		return nil, fmt.Errorf("pipeline %s: a vertex shader is required", pipelineKey)
	}
	if p.fragmentShader == nil || p.fragmentShader.ShaderType() != shader.ShaderTypeFragment {
		return nil, fmt.Errorf("pipeline %s: a fragment shader is required", pipelineKey)
	}
	return p, nil
}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) VertexShader() shader.Shader {
	return p.vertexShader
}

func (p *pipeline) FragmentShader() shader.Shader {
	return p.fragmentShader
}

func (p *pipeline) Handle() common.PipelineHandle {
	return p.handle
}

func (p *pipeline) SetHandle(h common.PipelineHandle) {
	p.handle = h
}

func (p *pipeline) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	merged := make(map[int]map[uint32]wgpu.BindGroupLayoutEntry)
	for _, s := range []shader.Shader{p.vertexShader, p.fragmentShader} {
		for g, desc := range s.BindGroupLayoutDescriptors() {
			if merged[g] == nil {
				merged[g] = make(map[uint32]wgpu.BindGroupLayoutEntry)
			}
			for _, e := range desc.Entries {
				if existing, ok := merged[g][e.Binding]; ok {
					existing.Visibility |= e.Visibility
					merged[g][e.Binding] = existing
					continue
				}
				merged[g][e.Binding] = e
			}
		}
	}

	out := make(map[int]wgpu.BindGroupLayoutDescriptor, len(merged))
	for g, entries := range merged {
		list := make([]wgpu.BindGroupLayoutEntry, 0, len(entries))
		for _, e := range entries {
			list = append(list, e)
		}
		sort.Slice(list, func(i, j int) bool {
			return list[i].Binding < list[j].Binding
		})
		out[g] = wgpu.BindGroupLayoutDescriptor{
			Label:   fmt.Sprintf("%s_group_%d", p.pipelineKey, g),
			Entries: list,
		}
	}
	return out
}

func (p *pipeline) GroupCount() int {
	n := 0
	for g := range p.BindGroupLayoutDescriptors() {
		n = max(n, g+1)
	}
	return n
}

func (p *pipeline) DepthTestEnabled() bool {
	return p.depthTestEnabled
}

func (p *pipeline) DepthWriteEnabled() bool {
	return p.depthWriteEnabled
}

func (p *pipeline) BlendEnabled() bool {
	return p.blendEnabled
}

func (p *pipeline) CullMode() wgpu.CullMode {
	return p.cullMode
}

func (p *pipeline) Topology() wgpu.PrimitiveTopology {
	return p.topology
}

func (p *pipeline) FrontFace() wgpu.FrontFace {
	return p.frontFace
}

func (p *pipeline) WriteMask() wgpu.ColorWriteMask {
	return p.writeMask
}

func (p *pipeline) BlendState() *wgpu.BlendState {
	return p.blendState
}
