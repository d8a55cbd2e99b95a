package renderer

import (
	"github.com/Carmen-Shannon/oxy-vrterm/common"
	"github.com/Carmen-Shannon/oxy-vrterm/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// RendererBackendType identifies the GPU backend implementation used by the Renderer.
type RendererBackendType int

const (
	// BackendTypeWGPU selects the WebGPU-based rendering backend.
	BackendTypeWGPU RendererBackendType = iota

	// BackendTypeRecording selects the headless backend that records every command instead of
	// submitting it to a GPU.
	BackendTypeRecording
)

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

// ParsePresentMode maps "vsync" and "uncapped" to their PresentMode. Anything else is VSync.
func ParsePresentMode(s string) PresentMode {
	if s == "uncapped" {
		return PresentModeUncapped
	}
	return PresentModeVSync
}

// MSAASampleCount controls the number of samples used for multisample anti-aliasing (MSAA).
// WebGPU guarantees support for 1 (off) and 4; higher values are adapter-dependent.
type MSAASampleCount uint32

const (
	// MSAAOff disables multisample anti-aliasing (sample count 1).
	MSAAOff MSAASampleCount = 1

	// MSAA4x enables 4× multisample anti-aliasing. This is the default.
	MSAA4x MSAASampleCount = 4
)

// Eye selects one half of the side-by-side stereo surface.
type Eye int

const (
	// EyeLeft renders into the left half of the surface and is always drawn first in a frame.
	EyeLeft Eye = iota

	// EyeRight renders into the right half of the surface.
	EyeRight
)

// String returns "left" or "right".
func (e Eye) String() string {
	if e == EyeRight {
		return "right"
	}
	return "left"
}

// EyeViewport returns the half of a width × height surface an eye renders into.
//
// Parameters:
//   - eye: the eye to compute the viewport for
//   - width: the surface width in pixels
//   - height: the surface height in pixels
//
// Returns:
//   - common.Viewport: the left half for EyeLeft, the right half for EyeRight
func EyeViewport(eye Eye, width, height int) common.Viewport {
	half := float32(width / 2)
	vp := common.Viewport{Width: half, Height: float32(height)}
	if eye == EyeRight {
		vp.X = half
	}
	return vp
}

// BufferKind selects the usage of a buffer created through the backend.
type BufferKind int

const (
	// BufferKindVertex is a per-attribute vertex buffer filled once at creation.
	BufferKindVertex BufferKind = iota

	// BufferKindUniform is a uniform block buffer rewritten before each draw.
	BufferKindUniform
)

// EyePassDescriptor configures one per-eye render pass.
type EyePassDescriptor struct {
	Eye      Eye
	Viewport common.Viewport

	// LoadColor keeps the existing color attachment contents instead of clearing them. Depth is
	// always cleared.
	LoadColor bool
}

// RendererBackend is the GPU boundary behind the Renderer. Implementations own every GPU object
// and hand out opaque handles for them. Handle validation of pipeline layouts is done by the
// Renderer; the backend only checks that handles exist.
type RendererBackend interface {
	// ConfigureSurface (re)creates the surface-sized attachments.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	ConfigureSurface(width, height int)

	// SetPresentMode sets the surface present mode. Takes effect on the next ConfigureSurface.
	//
	// Parameters:
	//   - mode: the PresentMode to use
	SetPresentMode(mode PresentMode)

	// SetClearColor sets the color the left eye pass clears the color attachment to.
	//
	// Parameters:
	//   - color: the clear color
	SetClearColor(color wgpu.Color)

	// RegisterRenderPipeline links a vertex and fragment shader pair into a render pipeline.
	//
	// Parameters:
	//   - p: the pipeline description
	//
	// Returns:
	//   - common.PipelineHandle: the handle of the linked pipeline
	//   - error: an error if shader compilation or linking fails
	RegisterRenderPipeline(p pipeline.Pipeline) (common.PipelineHandle, error)

	// CreateBuffer creates a GPU buffer. Vertex buffers are filled with data; uniform buffers are
	// allocated with size bytes and data is ignored.
	//
	// Parameters:
	//   - label: a debug label
	//   - kind: vertex or uniform
	//   - size: the buffer size in bytes
	//   - data: the initial contents for vertex buffers
	//
	// Returns:
	//   - common.BufferHandle: the handle of the created buffer
	//   - error: an error if allocation fails
	CreateBuffer(label string, kind BufferKind, size uint64, data []byte) (common.BufferHandle, error)

	// CreateTexture creates an RGBA8 2D texture with one mip level and uploads the pixels.
	//
	// Parameters:
	//   - label: a debug label
	//   - staging: the pixel data and dimensions
	//
	// Returns:
	//   - common.TextureHandle: the handle of the created texture
	//   - error: an error if creation fails
	CreateTexture(label string, staging common.TextureStagingData) (common.TextureHandle, error)

	// WriteTexture replaces the full contents of an existing texture.
	//
	// Parameters:
	//   - h: the texture to write
	//   - staging: the new pixels; dimensions must equal the texture's
	//
	// Returns:
	//   - error: ErrUnknownHandle or an upload error
	WriteTexture(h common.TextureHandle, staging common.TextureStagingData) error

	// CreateSampler creates a sampler. Zero fields fall back to backend defaults.
	//
	// Parameters:
	//   - label: a debug label
	//   - staging: the sampler configuration
	//
	// Returns:
	//   - common.SamplerHandle: the handle of the created sampler
	//   - error: an error if creation fails
	CreateSampler(label string, staging common.SamplerStagingData) (common.SamplerHandle, error)

	// CreateBindGroup creates a bind group against group index group of a linked pipeline.
	//
	// Parameters:
	//   - label: a debug label
	//   - p: the linked pipeline whose layout is used
	//   - group: the group index within the pipeline layout
	//   - entries: one entry per layout binding
	//
	// Returns:
	//   - common.BindGroupHandle: the handle of the created bind group
	//   - error: ErrUnknownHandle or a creation error
	CreateBindGroup(label string, p common.PipelineHandle, group int, entries []common.BindGroupEntry) (common.BindGroupHandle, error)

	// BeginFrame acquires the surface image for a new frame.
	//
	// Returns:
	//   - error: an error if the surface image could not be acquired
	BeginFrame() error

	// BeginEyePass starts the render pass of one eye and applies its viewport.
	//
	// Parameters:
	//   - desc: the eye, its viewport and the color load behavior
	//
	// Returns:
	//   - error: an error if the pass could not be started
	BeginEyePass(desc EyePassDescriptor) error

	SetPipeline(h common.PipelineHandle) error
	WriteBuffer(h common.BufferHandle, data []byte) error
	SetBindGroup(index uint32, h common.BindGroupHandle) error
	SetVertexBuffer(slot uint32, h common.BufferHandle) error
	Draw(vertexCount uint32) error

	// EndEyePass ends the current eye pass and submits its commands.
	//
	// Returns:
	//   - error: an error if command submission fails
	EndEyePass() error

	// EndFrame presents the surface image acquired by BeginFrame.
	//
	// Returns:
	//   - error: an error if no frame is in flight
	EndFrame() error

	// Release frees every GPU object owned by the backend.
	Release()
}
