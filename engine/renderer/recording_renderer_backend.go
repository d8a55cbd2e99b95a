package renderer

import (
	"fmt"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-vrterm/common"
	"github.com/Carmen-Shannon/oxy-vrterm/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// CommandOp names a command captured by the recording backend.
type CommandOp string

const (
	OpConfigureSurface CommandOp = "configure_surface"
	OpRegisterPipeline CommandOp = "register_pipeline"
	OpCreateBuffer     CommandOp = "create_buffer"
	OpCreateTexture    CommandOp = "create_texture"
	OpWriteTexture     CommandOp = "write_texture"
	OpCreateSampler    CommandOp = "create_sampler"
	OpCreateBindGroup  CommandOp = "create_bind_group"
	OpBeginFrame       CommandOp = "begin_frame"
	OpBeginEye         CommandOp = "begin_eye"
	OpSetPipeline      CommandOp = "set_pipeline"
	OpWriteBuffer      CommandOp = "write_buffer"
	OpSetBindGroup     CommandOp = "set_bind_group"
	OpSetVertexBuffer  CommandOp = "set_vertex_buffer"
	OpDraw             CommandOp = "draw"
	OpEndEye           CommandOp = "end_eye"
	OpEndFrame         CommandOp = "end_frame"
)

// Command is one captured backend call. Fields that do not apply to an Op are zero.
type Command struct {
	Op    CommandOp
	Label string

	// Handle is the resource created or referenced by the command.
	Handle uint32

	// Index is the vertex slot, group index or eye, depending on Op.
	Index uint32

	// Count is the vertex count of a draw or the byte size of a created buffer.
	Count uint32

	// Data is a copy of the uploaded bytes for buffer and texture writes.
	Data []byte

	Viewport  common.Viewport
	LoadColor bool
}

// Recorder captures the command stream of a recording backend. It is safe for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	commands []Command
	textures map[common.TextureHandle][]byte
	buffers  map[common.BufferHandle][]byte
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		textures: make(map[common.TextureHandle][]byte),
		buffers:  make(map[common.BufferHandle][]byte),
	}
}

// Commands returns a copy of every command recorded since the last Reset.
func (rec *Recorder) Commands() []Command {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return slices.Clone(rec.commands)
}

// Count returns how many commands with the given op were recorded since the last Reset.
func (rec *Recorder) Count(op CommandOp) int {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	n := 0
	for _, c := range rec.commands {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Reset drops the recorded commands. Resource contents are kept.
func (rec *Recorder) Reset() {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.commands = nil
}

// TextureContents returns a copy of the current pixels of a texture, or nil if it does not exist.
func (rec *Recorder) TextureContents(h common.TextureHandle) []byte {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return slices.Clone(rec.textures[h])
}

// BufferContents returns a copy of the last data written to a buffer, or nil if it does not exist.
func (rec *Recorder) BufferContents(h common.BufferHandle) []byte {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return slices.Clone(rec.buffers[h])
}

func (rec *Recorder) record(c Command) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.commands = append(rec.commands, c)
}

type recordedTexture struct {
	width, height uint32
}

// recordingRendererBackend implements RendererBackend without a GPU. It validates handles and
// pass state the way the wgpu backend does and records every call.
type recordingRendererBackend struct {
	mu  *sync.Mutex
	rec *Recorder

	nextHandle uint32
	buffers    map[common.BufferHandle]BufferKind
	textures   map[common.TextureHandle]recordedTexture
	samplers   map[common.SamplerHandle]struct{}
	pipelines  map[common.PipelineHandle]int
	bindGroups map[common.BindGroupHandle]struct{}

	inFrame bool
	inPass  bool
}

var _ RendererBackend = &recordingRendererBackend{}

func newRecordingRendererBackend(rec *Recorder) *recordingRendererBackend {
	return &recordingRendererBackend{
		mu:         &sync.Mutex{},
		rec:        rec,
		buffers:    make(map[common.BufferHandle]BufferKind),
		textures:   make(map[common.TextureHandle]recordedTexture),
		samplers:   make(map[common.SamplerHandle]struct{}),
		pipelines:  make(map[common.PipelineHandle]int),
		bindGroups: make(map[common.BindGroupHandle]struct{}),
	}
}

func (b *recordingRendererBackend) handle() uint32 {
	b.nextHandle++
	return b.nextHandle
}

func (b *recordingRendererBackend) ConfigureSurface(width, height int) {
	b.rec.record(Command{
		Op:       OpConfigureSurface,
		Viewport: common.Viewport{Width: float32(width), Height: float32(height)},
	})
}

func (b *recordingRendererBackend) SetPresentMode(PresentMode) {}

func (b *recordingRendererBackend) SetClearColor(wgpu.Color) {}

func (b *recordingRendererBackend) RegisterRenderPipeline(p pipeline.Pipeline) (common.PipelineHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	h := common.PipelineHandle(b.handle())
	b.pipelines[h] = p.GroupCount()
	b.rec.record(Command{Op: OpRegisterPipeline, Label: p.PipelineKey(), Handle: uint32(h)})
	return h, nil
}

func (b *recordingRendererBackend) CreateBuffer(label string, kind BufferKind, size uint64, data []byte) (common.BufferHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	h := common.BufferHandle(b.handle())
	b.buffers[h] = kind
	contents := make([]byte, size)
	copy(contents, data)

	b.rec.mu.Lock()
	b.rec.buffers[h] = contents
	b.rec.mu.Unlock()

	b.rec.record(Command{
		Op:     OpCreateBuffer,
		Label:  label,
		Handle: uint32(h),
		Index:  uint32(kind),
		Count:  uint32(size),
		Data:   slices.Clone(data),
	})
	return h, nil
}

func (b *recordingRendererBackend) CreateTexture(label string, staging common.TextureStagingData) (common.TextureHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	h := common.TextureHandle(b.handle())
	b.textures[h] = recordedTexture{width: staging.Width, height: staging.Height}

	b.rec.mu.Lock()
	b.rec.textures[h] = slices.Clone(staging.Pixels)
	b.rec.mu.Unlock()

	b.rec.record(Command{Op: OpCreateTexture, Label: label, Handle: uint32(h), Count: uint32(len(staging.Pixels))})
	return h, nil
}

func (b *recordingRendererBackend) WriteTexture(h common.TextureHandle, staging common.TextureStagingData) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.textures[h]
	if !ok {
		return fmt.Errorf("texture %d: %w", h, ErrUnknownHandle)
	}
	if t.width != staging.Width || t.height != staging.Height {
		return fmt.Errorf("texture %d is %dx%d, got %dx%d", h, t.width, t.height, staging.Width, staging.Height)
	}

	b.rec.mu.Lock()
	b.rec.textures[h] = slices.Clone(staging.Pixels)
	b.rec.mu.Unlock()

	b.rec.record(Command{Op: OpWriteTexture, Handle: uint32(h), Count: uint32(len(staging.Pixels))})
	return nil
}

func (b *recordingRendererBackend) CreateSampler(label string, _ common.SamplerStagingData) (common.SamplerHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	h := common.SamplerHandle(b.handle())
	b.samplers[h] = struct{}{}
	b.rec.record(Command{Op: OpCreateSampler, Label: label, Handle: uint32(h)})
	return h, nil
}

func (b *recordingRendererBackend) CreateBindGroup(label string, p common.PipelineHandle, group int, entries []common.BindGroupEntry) (common.BindGroupHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	groups, ok := b.pipelines[p]
	if !ok {
		return 0, fmt.Errorf("pipeline %d: %w", p, ErrUnknownHandle)
	}
	if group < 0 || group >= groups {
		return 0, fmt.Errorf("pipeline %d has no group %d", p, group)
	}
	for _, e := range entries {
		switch {
		case e.Texture.Valid():
			if _, ok := b.textures[e.Texture]; !ok {
				return 0, fmt.Errorf("texture %d: %w", e.Texture, ErrUnknownHandle)
			}
		case e.Sampler.Valid():
			if _, ok := b.samplers[e.Sampler]; !ok {
				return 0, fmt.Errorf("sampler %d: %w", e.Sampler, ErrUnknownHandle)
			}
		default:
			if _, ok := b.buffers[e.Buffer]; !ok {
				return 0, fmt.Errorf("buffer %d: %w", e.Buffer, ErrUnknownHandle)
			}
		}
	}

	h := common.BindGroupHandle(b.handle())
	b.bindGroups[h] = struct{}{}
	b.rec.record(Command{Op: OpCreateBindGroup, Label: label, Handle: uint32(h), Index: uint32(group)})
	return h, nil
}

func (b *recordingRendererBackend) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.inFrame {
		return fmt.Errorf("previous frame surface not yet presented")
	}
	b.inFrame = true
	b.rec.record(Command{Op: OpBeginFrame})
	return nil
}

func (b *recordingRendererBackend) BeginEyePass(desc EyePassDescriptor) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.inFrame {
		return fmt.Errorf("no surface image acquired")
	}
	if b.inPass {
		return fmt.Errorf("eye pass already open")
	}
	b.inPass = true
	b.rec.record(Command{
		Op:        OpBeginEye,
		Index:     uint32(desc.Eye),
		Viewport:  desc.Viewport,
		LoadColor: desc.LoadColor,
	})
	return nil
}

func (b *recordingRendererBackend) SetPipeline(h common.PipelineHandle) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.pipelines[h]; !ok {
		return fmt.Errorf("pipeline %d: %w", h, ErrUnknownHandle)
	}
	if !b.inPass {
		return ErrNoActivePass
	}
	b.rec.record(Command{Op: OpSetPipeline, Handle: uint32(h)})
	return nil
}

func (b *recordingRendererBackend) WriteBuffer(h common.BufferHandle, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.buffers[h]; !ok {
		return fmt.Errorf("buffer %d: %w", h, ErrUnknownHandle)
	}

	b.rec.mu.Lock()
	copy(b.rec.buffers[h], data)
	b.rec.mu.Unlock()

	b.rec.record(Command{Op: OpWriteBuffer, Handle: uint32(h), Count: uint32(len(data)), Data: slices.Clone(data)})
	return nil
}

func (b *recordingRendererBackend) SetBindGroup(index uint32, h common.BindGroupHandle) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.bindGroups[h]; !ok {
		return fmt.Errorf("bind group %d: %w", h, ErrUnknownHandle)
	}
	if !b.inPass {
		return ErrNoActivePass
	}
	b.rec.record(Command{Op: OpSetBindGroup, Handle: uint32(h), Index: index})
	return nil
}

func (b *recordingRendererBackend) SetVertexBuffer(slot uint32, h common.BufferHandle) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	kind, ok := b.buffers[h]
	if !ok {
		return fmt.Errorf("buffer %d: %w", h, ErrUnknownHandle)
	}
	if kind != BufferKindVertex {
		return fmt.Errorf("buffer %d is not a vertex buffer", h)
	}
	if !b.inPass {
		return ErrNoActivePass
	}
	b.rec.record(Command{Op: OpSetVertexBuffer, Handle: uint32(h), Index: slot})
	return nil
}

func (b *recordingRendererBackend) Draw(vertexCount uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.inPass {
		return ErrNoActivePass
	}
	b.rec.record(Command{Op: OpDraw, Count: vertexCount})
	return nil
}

func (b *recordingRendererBackend) EndEyePass() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.inPass {
		return ErrNoActivePass
	}
	b.inPass = false
	b.rec.record(Command{Op: OpEndEye})
	return nil
}

func (b *recordingRendererBackend) EndFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.inFrame {
		return fmt.Errorf("no surface image acquired")
	}
	b.inFrame = false
	b.rec.record(Command{Op: OpEndFrame})
	return nil
}

func (b *recordingRendererBackend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	clear(b.buffers)
	clear(b.textures)
	clear(b.samplers)
	clear(b.pipelines)
	clear(b.bindGroups)
}
