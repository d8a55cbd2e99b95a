package renderer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-vrterm/common"
	"github.com/Carmen-Shannon/oxy-vrterm/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-vrterm/engine/window"
	"github.com/cogentcore/webgpu/wgpu"
	"go.uber.org/zap"
)

var (
	// ErrUnknownHandle is returned when a handle does not refer to a resource owned by the backend.
	ErrUnknownHandle = errors.New("unknown handle")

	// ErrNoActivePass is returned when a draw command is issued outside of an eye pass.
	ErrNoActivePass = errors.New("no active eye pass")

	// ErrFrameState is returned when frame and eye pass calls are made out of order.
	ErrFrameState = errors.New("invalid frame state")
)

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu     *sync.Mutex
	logger *zap.Logger

	pipelineCache map[string]pipeline.Pipeline

	backendType RendererBackendType
	backend     RendererBackend

	width, height int

	inFrame   bool
	activeEye *Eye
	pass      *eyePass

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
	pendingMSAA          *MSAASampleCount
	clearColor           wgpu.Color
	recorder             *Recorder
}

// Renderer defines the interface for the rendering system.
//
// The Renderer owns the GPU backend and exposes it through opaque handles: pipelines are linked
// once, buffers, textures, samplers and bind groups are created once, and a frame is drawn as
// BeginFrame, one RenderPass per eye (left first), EndFrame. Resource creation is safe from any
// goroutine; frame calls must come from the render goroutine.
type Renderer interface {
	// Pipeline retrieves the registered Pipeline associated with the given key.
	//
	// Parameters:
	//   - key: the unique identifier for the Pipeline to retrieve
	//
	// Returns:
	//   - pipeline.Pipeline: the Pipeline associated with the key, or nil if not found
	Pipeline(key string) pipeline.Pipeline

	// RegisterPipelines links one or more pipelines through the backend, assigns their handles
	// and caches them by PipelineKey. Pipelines whose keys are already registered are skipped
	// and receive the handle of the cached pipeline.
	//
	// Parameters:
	//   - pipelines: the Pipelines to register
	//
	// Returns:
	//   - error: an error if pipeline creation fails
	RegisterPipelines(pipelines ...pipeline.Pipeline) error

	// CreateVertexBuffer uploads one attribute's bytes into a new vertex buffer.
	//
	// Parameters:
	//   - label: a debug label
	//   - data: the little-endian attribute data
	//
	// Returns:
	//   - common.BufferHandle: the created buffer
	//   - error: an error if data is empty or allocation fails
	CreateVertexBuffer(label string, data []byte) (common.BufferHandle, error)

	// CreateUniformBuffer allocates a uniform buffer of the given size.
	//
	// Parameters:
	//   - label: a debug label
	//   - size: the buffer size in bytes
	//
	// Returns:
	//   - common.BufferHandle: the created buffer
	//   - error: an error if size is zero or allocation fails
	CreateUniformBuffer(label string, size uint64) (common.BufferHandle, error)

	// CreateTexture creates an RGBA8 texture from staging data.
	//
	// Parameters:
	//   - label: a debug label
	//   - staging: the pixels and dimensions
	//
	// Returns:
	//   - common.TextureHandle: the created texture
	//   - error: an error if the staging data is inconsistent or creation fails
	CreateTexture(label string, staging common.TextureStagingData) (common.TextureHandle, error)

	// WriteTexture replaces the full contents of a texture.
	//
	// Parameters:
	//   - h: the texture to overwrite
	//   - staging: the new pixels
	//
	// Returns:
	//   - error: ErrUnknownHandle, or an error if the upload fails
	WriteTexture(h common.TextureHandle, staging common.TextureStagingData) error

	// CreateSampler creates a sampler from staging data.
	//
	// Parameters:
	//   - label: a debug label
	//   - staging: the sampler configuration
	//
	// Returns:
	//   - common.SamplerHandle: the created sampler
	//   - error: an error if creation fails
	CreateSampler(label string, staging common.SamplerStagingData) (common.SamplerHandle, error)

	// CreateBindGroup creates a bind group for one group of a registered pipeline. Every binding
	// of the group layout must be given exactly once with a resource of the matching kind.
	//
	// Parameters:
	//   - label: a debug label
	//   - p: a registered pipeline
	//   - group: the group index in the pipeline layout
	//   - entries: the resources to bind
	//
	// Returns:
	//   - common.BindGroupHandle: the created bind group
	//   - error: an error if the entries do not match the layout or creation fails
	CreateBindGroup(label string, p pipeline.Pipeline, group int, entries []common.BindGroupEntry) (common.BindGroupHandle, error)

	// BeginFrame starts a new frame.
	//
	// Returns:
	//   - error: ErrFrameState if a frame is already in flight, or a surface acquisition error
	BeginFrame() error

	// BeginEye starts the render pass of one eye. The left eye clears color and depth; the right
	// eye keeps the color drawn by the left eye and clears depth only.
	//
	// Parameters:
	//   - eye: the eye to draw
	//
	// Returns:
	//   - RenderPass: the pass to record draw commands into, valid until EndEye
	//   - error: ErrFrameState if no frame is in flight or another eye pass is active
	BeginEye(eye Eye) (RenderPass, error)

	// EndEye ends and submits the active eye pass.
	//
	// Returns:
	//   - error: ErrNoActivePass, or a submission error
	EndEye() error

	// EndFrame presents the frame.
	//
	// Returns:
	//   - error: ErrFrameState if no frame is in flight or an eye pass is still active
	EndFrame() error

	// AbortFrame drops any in-flight eye pass and frame state after a failed frame so the next
	// BeginFrame starts cleanly.
	AbortFrame()

	// Resize configures the backend for a new surface size. The surface belongs to the frame in
	// flight, so a resize is only accepted between frames.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	//
	// Returns:
	//   - error: ErrFrameState while a frame is in flight
	Resize(width, height int) error

	// Size returns the current surface size.
	//
	// Returns:
	//   - int: width in pixels
	//   - int: height in pixels
	Size() (int, int)

	// EyeAspect returns the aspect ratio of one eye's half of the surface.
	//
	// Returns:
	//   - float32: half width divided by height, or 1 when the surface is empty
	EyeAspect() float32

	// SetPresentMode sets the present mode and reconfigures the surface.
	//
	// Parameters:
	//   - mode: the PresentMode to use
	//
	// Returns:
	//   - error: ErrFrameState while a frame is in flight
	SetPresentMode(mode PresentMode) error

	// Close releases every GPU resource.
	Close()
}

// RenderPass records the draw commands of one eye. All methods return ErrNoActivePass once the
// eye pass has ended.
type RenderPass interface {
	// Eye returns the eye this pass draws.
	//
	// Returns:
	//   - Eye: the eye
	Eye() Eye

	// SetPipeline binds a linked pipeline.
	//
	// Parameters:
	//   - h: the pipeline handle
	//
	// Returns:
	//   - error: ErrNoActivePass or ErrUnknownHandle
	SetPipeline(h common.PipelineHandle) error

	// WriteUniforms replaces the contents of a uniform buffer before the pass is submitted.
	//
	// Parameters:
	//   - h: the uniform buffer
	//   - data: the marshalled uniform block
	//
	// Returns:
	//   - error: ErrNoActivePass or ErrUnknownHandle
	WriteUniforms(h common.BufferHandle, data []byte) error

	// SetBindGroup binds a bind group at a group index.
	//
	// Parameters:
	//   - index: the group index
	//   - h: the bind group
	//
	// Returns:
	//   - error: ErrNoActivePass or ErrUnknownHandle
	SetBindGroup(index uint32, h common.BindGroupHandle) error

	// SetVertexBuffer binds a vertex buffer at a slot.
	//
	// Parameters:
	//   - slot: the vertex buffer slot
	//   - h: the buffer
	//
	// Returns:
	//   - error: ErrNoActivePass or ErrUnknownHandle
	SetVertexBuffer(slot uint32, h common.BufferHandle) error

	// Draw issues a non-indexed draw of vertexCount vertices.
	//
	// Parameters:
	//   - vertexCount: the number of vertices
	//
	// Returns:
	//   - error: ErrNoActivePass
	Draw(vertexCount uint32) error
}

var _ Renderer = &renderer{}

// NewRenderer creates a new Renderer with the specified backend type bound to a window's surface.
// The wgpu backend panics if no adapter or device is available.
//
// Parameters:
//   - backendType: the type of rendering backend to use
//   - win: the window providing the surface descriptor and the initial size; ignored by the recording backend
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: a new instance of Renderer configured with the specified backend and options
func NewRenderer(backendType RendererBackendType, win window.Window, options ...RendererBuilderOption) Renderer {
	r := &renderer{
		mu:            &sync.Mutex{},
		logger:        zap.NewNop(),
		pipelineCache: make(map[string]pipeline.Pipeline),
		backendType:   backendType,
		width:         1280,
		height:        720,
		clearColor:    wgpu.Color{R: 0, G: 0, B: 0, A: 1},
	}

	// Apply options first so config flags (e.g. forceFallbackAdapter) are
	// available before the backend requests a GPU adapter.
	for _, opt := range options {
		opt(r)
	}

	msaa := MSAA4x
	if r.pendingMSAA != nil {
		msaa = *r.pendingMSAA
	}

	switch backendType {
	case BackendTypeRecording:
		if r.recorder == nil {
			r.recorder = NewRecorder()
		}
		r.backend = newRecordingRendererBackend(r.recorder)
	case BackendTypeWGPU:
		fallthrough
	default:
		r.width, r.height = win.Width(), win.Height()
		r.backend = newWGPURendererBackend(win.SurfaceDescriptor(), r.forceFallbackAdapter, msaa)
	}

	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}
	r.backend.SetClearColor(r.clearColor)
	r.backend.ConfigureSurface(r.width, r.height)

	r.logger.Info("renderer ready",
		zap.Int("backend", int(backendType)),
		zap.Int("width", r.width),
		zap.Int("height", r.height),
		zap.Uint32("msaa", uint32(msaa)),
	)
	return r
}

// NewHeadlessRenderer creates a Renderer on the recording backend and returns the Recorder that
// captures its commands.
//
// Parameters:
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: the renderer
//   - *Recorder: the recorder receiving every backend command
func NewHeadlessRenderer(options ...RendererBuilderOption) (Renderer, *Recorder) {
	rec := NewRecorder()
	r := NewRenderer(BackendTypeRecording, nil, append(options, withRecorder(rec))...)
	return r, rec
}

func (r *renderer) Pipeline(key string) pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelineCache[key]
}

func (r *renderer) RegisterPipelines(pipelines ...pipeline.Pipeline) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range pipelines {
		key := p.PipelineKey()
		if cached, exists := r.pipelineCache[key]; exists {
			p.SetHandle(cached.Handle())
			continue
		}
		h, err := r.backend.RegisterRenderPipeline(p)
		if err != nil {
			return fmt.Errorf("register pipeline %s: %w", key, err)
		}
		p.SetHandle(h)
		r.pipelineCache[key] = p
		r.logger.Debug("pipeline linked", zap.String("pipeline", key), zap.Uint32("handle", uint32(h)))
	}
	return nil
}

func (r *renderer) CreateVertexBuffer(label string, data []byte) (common.BufferHandle, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("vertex buffer %s: empty data", label)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.backend.CreateBuffer(label, BufferKindVertex, uint64(len(data)), data)
}

func (r *renderer) CreateUniformBuffer(label string, size uint64) (common.BufferHandle, error) {
	if size == 0 {
		return 0, fmt.Errorf("uniform buffer %s: zero size", label)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.backend.CreateBuffer(label, BufferKindUniform, size, nil)
}

func (r *renderer) CreateTexture(label string, staging common.TextureStagingData) (common.TextureHandle, error) {
	if err := validateStaging(staging); err != nil {
		return 0, fmt.Errorf("texture %s: %w", label, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.backend.CreateTexture(label, staging)
}

func (r *renderer) WriteTexture(h common.TextureHandle, staging common.TextureStagingData) error {
	if err := validateStaging(staging); err != nil {
		return fmt.Errorf("texture %d: %w", h, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.backend.WriteTexture(h, staging)
}

func (r *renderer) CreateSampler(label string, staging common.SamplerStagingData) (common.SamplerHandle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.backend.CreateSampler(label, staging)
}

func (r *renderer) CreateBindGroup(label string, p pipeline.Pipeline, group int, entries []common.BindGroupEntry) (common.BindGroupHandle, error) {
	if p == nil || !p.Handle().Valid() {
		return 0, fmt.Errorf("bind group %s: pipeline not registered: %w", label, ErrUnknownHandle)
	}
	desc, ok := p.BindGroupLayoutDescriptors()[group]
	if !ok {
		return 0, fmt.Errorf("bind group %s: pipeline %s has no group %d", label, p.PipelineKey(), group)
	}
	if err := matchLayout(desc, entries); err != nil {
		return 0, fmt.Errorf("bind group %s: %w", label, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.backend.CreateBindGroup(label, p.Handle(), group, entries)
}

func (r *renderer) BeginFrame() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inFrame {
		return fmt.Errorf("begin frame: frame already in flight: %w", ErrFrameState)
	}
	if err := r.backend.BeginFrame(); err != nil {
		return fmt.Errorf("begin frame: %w", err)
	}
	r.inFrame = true
	return nil
}

func (r *renderer) BeginEye(eye Eye) (RenderPass, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.inFrame {
		return nil, fmt.Errorf("begin %s eye: no frame in flight: %w", eye, ErrFrameState)
	}
	if r.activeEye != nil {
		return nil, fmt.Errorf("begin %s eye: %s eye pass still active: %w", eye, *r.activeEye, ErrFrameState)
	}
	desc := EyePassDescriptor{
		Eye:       eye,
		Viewport:  EyeViewport(eye, r.width, r.height),
		LoadColor: eye != EyeLeft,
	}
	if err := r.backend.BeginEyePass(desc); err != nil {
		return nil, fmt.Errorf("begin %s eye: %w", eye, err)
	}
	r.activeEye = &eye
	r.pass = &eyePass{r: r, eye: eye}
	return r.pass, nil
}

func (r *renderer) EndEye() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.activeEye == nil {
		return fmt.Errorf("end eye: %w", ErrNoActivePass)
	}
	eye := *r.activeEye
	r.closePass()
	if err := r.backend.EndEyePass(); err != nil {
		return fmt.Errorf("end %s eye: %w", eye, err)
	}
	return nil
}

func (r *renderer) EndFrame() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.inFrame {
		return fmt.Errorf("end frame: no frame in flight: %w", ErrFrameState)
	}
	if r.activeEye != nil {
		return fmt.Errorf("end frame: %s eye pass still active: %w", *r.activeEye, ErrFrameState)
	}
	r.inFrame = false
	if err := r.backend.EndFrame(); err != nil {
		return fmt.Errorf("end frame: %w", err)
	}
	return nil
}

func (r *renderer) AbortFrame() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.activeEye != nil {
		r.closePass()
		if err := r.backend.EndEyePass(); err != nil {
			r.logger.Warn("abort eye pass", zap.Error(err))
		}
	}
	if r.inFrame {
		r.inFrame = false
		if err := r.backend.EndFrame(); err != nil {
			r.logger.Warn("abort frame", zap.Error(err))
		}
	}
}

func (r *renderer) Resize(width, height int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inFrame {
		return fmt.Errorf("resize to %dx%d: frame in flight: %w", width, height, ErrFrameState)
	}
	if width <= 0 || height <= 0 {
		return nil
	}
	r.width, r.height = width, height
	r.backend.ConfigureSurface(width, height)
	r.logger.Debug("surface resized", zap.Int("width", width), zap.Int("height", height))
	return nil
}

func (r *renderer) Size() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.width, r.height
}

func (r *renderer) EyeAspect() float32 {
	w, h := r.Size()
	if w < 2 || h == 0 {
		return 1
	}
	return float32(w/2) / float32(h)
}

func (r *renderer) SetPresentMode(mode PresentMode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inFrame {
		return fmt.Errorf("set present mode: frame in flight: %w", ErrFrameState)
	}
	r.backend.SetPresentMode(mode)
	r.backend.ConfigureSurface(r.width, r.height)
	return nil
}

func (r *renderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backend.Release()
	r.pipelineCache = make(map[string]pipeline.Pipeline)
}

// closePass invalidates the active RenderPass. Caller holds r.mu.
func (r *renderer) closePass() {
	if r.pass != nil {
		r.pass.closed = true
		r.pass = nil
	}
	r.activeEye = nil
}

// validateStaging checks that the pixel slice holds exactly width × height RGBA texels.
func validateStaging(staging common.TextureStagingData) error {
	if staging.Width == 0 || staging.Height == 0 {
		return fmt.Errorf("empty size %dx%d", staging.Width, staging.Height)
	}
	want := int(staging.Width) * int(staging.Height) * 4
	if len(staging.Pixels) != want {
		return fmt.Errorf("got %d bytes, want %d for %dx%d RGBA", len(staging.Pixels), want, staging.Width, staging.Height)
	}
	return nil
}

// matchLayout checks bind group entries against a group layout: every layout binding must be
// given exactly once with a resource of the kind the layout declares.
func matchLayout(desc wgpu.BindGroupLayoutDescriptor, entries []common.BindGroupEntry) error {
	given := make(map[uint32]common.BindGroupEntry, len(entries))
	for _, e := range entries {
		if _, dup := given[e.Binding]; dup {
			return fmt.Errorf("binding %d given twice", e.Binding)
		}
		given[e.Binding] = e
	}
	if len(given) != len(desc.Entries) {
		return fmt.Errorf("got %d entries, layout has %d", len(given), len(desc.Entries))
	}
	for _, le := range desc.Entries {
		e, ok := given[le.Binding]
		if !ok {
			return fmt.Errorf("binding %d missing", le.Binding)
		}
		switch {
		case le.Texture.SampleType != wgpu.TextureSampleTypeUndefined:
			if !e.Texture.Valid() {
				return fmt.Errorf("binding %d expects a texture", le.Binding)
			}
		case le.Sampler.Type != wgpu.SamplerBindingTypeUndefined:
			if !e.Sampler.Valid() {
				return fmt.Errorf("binding %d expects a sampler", le.Binding)
			}
		default:
			if !e.Buffer.Valid() {
				return fmt.Errorf("binding %d expects a buffer", le.Binding)
			}
		}
	}
	return nil
}

// eyePass is the RenderPass handed out by BeginEye. It forwards to the backend while open.
type eyePass struct {
	r      *renderer
	eye    Eye
	closed bool
}

var _ RenderPass = &eyePass{}

func (p *eyePass) Eye() Eye {
	return p.eye
}

func (p *eyePass) do(fn func() error) error {
	p.r.mu.Lock()
	defer p.r.mu.Unlock()
	if p.closed {
		return ErrNoActivePass
	}
	return fn()
}

func (p *eyePass) SetPipeline(h common.PipelineHandle) error {
	return p.do(func() error { return p.r.backend.SetPipeline(h) })
}

func (p *eyePass) WriteUniforms(h common.BufferHandle, data []byte) error {
	return p.do(func() error { return p.r.backend.WriteBuffer(h, data) })
}

func (p *eyePass) SetBindGroup(index uint32, h common.BindGroupHandle) error {
	return p.do(func() error { return p.r.backend.SetBindGroup(index, h) })
}

func (p *eyePass) SetVertexBuffer(slot uint32, h common.BufferHandle) error {
	return p.do(func() error { return p.r.backend.SetVertexBuffer(slot, h) })
}

func (p *eyePass) Draw(vertexCount uint32) error {
	return p.do(func() error { return p.r.backend.Draw(vertexCount) })
}
