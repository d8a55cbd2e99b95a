package renderer

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/Carmen-Shannon/oxy-vrterm/common"
	"github.com/Carmen-Shannon/oxy-vrterm/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

type wgpuTexture struct {
	texture       *wgpu.Texture
	view          *wgpu.TextureView
	width, height uint32
}

type wgpuPipeline struct {
	pipeline         *wgpu.RenderPipeline
	bindGroupLayouts []*wgpu.BindGroupLayout
}

type wgpuRendererBackendImpl struct {
	mu     *sync.Mutex
	device *wgpu.Device
	queue  *wgpu.Queue

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface

	surfaceFormat        *wgpu.TextureFormat
	msaaTexture          *wgpu.Texture
	msaaTextureView      *wgpu.TextureView
	depthTexture         *wgpu.Texture
	depthTextureView     *wgpu.TextureView
	renderPassDescriptor *wgpu.RenderPassDescriptor

	presentMode wgpu.PresentMode
	sampleCount MSAASampleCount
	clearColor  wgpu.Color

	// Resources are addressed by handle; handle 0 is never issued.
	nextHandle uint32
	buffers    map[common.BufferHandle]*wgpu.Buffer
	textures   map[common.TextureHandle]*wgpuTexture
	samplers   map[common.SamplerHandle]*wgpu.Sampler
	pipelines  map[common.PipelineHandle]*wgpuPipeline
	bindGroups map[common.BindGroupHandle]*wgpu.BindGroup

	// Frame state. The surface image is held from BeginFrame to EndFrame; each eye pass has its
	// own encoder and is submitted on EndEyePass so uniform writes of one eye land before its draws.
	frameSurface *wgpu.Texture
	frameView    *wgpu.TextureView
	eyeEncoder   *wgpu.CommandEncoder
	eyePass      *wgpu.RenderPassEncoder
}

var _ RendererBackend = &wgpuRendererBackendImpl{}

func newWGPURendererBackend(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool, sampleCount MSAASampleCount) *wgpuRendererBackendImpl {
	runtime.LockOSThread()
	w := &wgpuRendererBackendImpl{
		mu:          &sync.Mutex{},
		instance:    wgpu.CreateInstance(nil),
		presentMode: wgpu.PresentModeFifo,
		sampleCount: sampleCount,
		buffers:     make(map[common.BufferHandle]*wgpu.Buffer),
		textures:    make(map[common.TextureHandle]*wgpuTexture),
		samplers:    make(map[common.SamplerHandle]*wgpu.Sampler),
		pipelines:   make(map[common.PipelineHandle]*wgpuPipeline),
		bindGroups:  make(map[common.BindGroupHandle]*wgpu.BindGroup),
	}
	w.surface = w.instance.CreateSurface(surfaceDescriptor)

	a, err := w.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    w.surface,
	})
	if err != nil {
		panic(err)
	}
	w.adapter = a

	d, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Main Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		panic(err)
	}
	w.device = d
	w.queue = d.GetQueue()

	return w
}

func (b *wgpuRendererBackendImpl) handle() uint32 {
	b.nextHandle++
	return b.nextHandle
}

func (b *wgpuRendererBackendImpl) ConfigureSurface(width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	capabilities := b.surface.GetCapabilities(b.adapter)
	b.surfaceFormat = &capabilities.Formats[0]

	b.surface.Configure(b.adapter, b.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      *b.surfaceFormat,
		Width:       uint32(width),
		Height:      uint32(height),
		PresentMode: b.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})

	b.releaseAttachments()

	count := uint32(b.sampleCount)
	if count > 1 {
		// The eye passes draw into the MSAA texture and resolve into the swapchain view.
		msaaTexture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
			Label: "MSAA Texture",
			Size: wgpu.Extent3D{
				Width:              uint32(width),
				Height:             uint32(height),
				DepthOrArrayLayers: 1,
			},
			MipLevelCount: 1,
			SampleCount:   count,
			Dimension:     wgpu.TextureDimension2D,
			Format:        *b.surfaceFormat,
			Usage:         wgpu.TextureUsageRenderAttachment,
		})
		if err != nil {
			panic(err)
		}
		b.msaaTexture = msaaTexture
		b.msaaTextureView, err = msaaTexture.CreateView(nil)
		if err != nil {
			panic(err)
		}
	}

	// Depth texture sample count must match the color attachment.
	depthTexture, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label: "Depth Texture",
		Size: wgpu.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   count,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatDepth24Plus,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		panic(err)
	}
	b.depthTexture = depthTexture
	b.depthTextureView, err = depthTexture.CreateView(nil)
	if err != nil {
		panic(err)
	}

	// The right eye loads the color written by the left eye, so the MSAA color is stored too.
	b.renderPassDescriptor = &wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       b.msaaTextureView, // nil when MSAA is off; set in BeginFrame
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: b.clearColor,
			},
		},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            b.depthTextureView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpDiscard,
			DepthClearValue: 1.0,
		},
	}
}

func (b *wgpuRendererBackendImpl) releaseAttachments() {
	if b.msaaTextureView != nil {
		b.msaaTextureView.Release()
		b.msaaTextureView = nil
	}
	if b.msaaTexture != nil {
		b.msaaTexture.Release()
		b.msaaTexture = nil
	}
	if b.depthTextureView != nil {
		b.depthTextureView.Release()
		b.depthTextureView = nil
	}
	if b.depthTexture != nil {
		b.depthTexture.Release()
		b.depthTexture = nil
	}
}

func (b *wgpuRendererBackendImpl) SetPresentMode(mode PresentMode) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch mode {
	case PresentModeUncapped:
		b.presentMode = wgpu.PresentModeImmediate
	case PresentModeVSync:
		fallthrough
	default:
		b.presentMode = wgpu.PresentModeFifo
	}
}

func (b *wgpuRendererBackendImpl) SetClearColor(color wgpu.Color) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.clearColor = color
	if b.renderPassDescriptor != nil {
		b.renderPassDescriptor.ColorAttachments[0].ClearValue = color
	}
}

func (b *wgpuRendererBackendImpl) RegisterRenderPipeline(p pipeline.Pipeline) (common.PipelineHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	vertexShader := p.VertexShader()
	fragmentShader := p.FragmentShader()

	vs, err := b.device.CreateShaderModule(vertexShader.Module())
	if err != nil {
		return 0, fmt.Errorf("vertex shader %s: %w", vertexShader.Key(), err)
	}
	defer vs.Release()
	fs, err := b.device.CreateShaderModule(fragmentShader.Module())
	if err != nil {
		return 0, fmt.Errorf("fragment shader %s: %w", fragmentShader.Key(), err)
	}
	defer fs.Release()

	merged := p.BindGroupLayoutDescriptors()
	bindGroupLayouts := make([]*wgpu.BindGroupLayout, p.GroupCount())
	for g := range bindGroupLayouts {
		desc := merged[g]
		layout, layoutErr := b.device.CreateBindGroupLayout(&desc)
		if layoutErr != nil {
			return 0, fmt.Errorf("bind group layout for group %d: %w", g, layoutErr)
		}
		bindGroupLayouts[g] = layout
	}

	pipelineLayout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.PipelineKey(),
		BindGroupLayouts: bindGroupLayouts,
	})
	if err != nil {
		return 0, err
	}

	target := wgpu.ColorTargetState{
		Format:    *b.surfaceFormat,
		WriteMask: p.WriteMask(),
	}
	if p.BlendEnabled() {
		target.Blend = p.BlendState()
	}
	depthCompare := wgpu.CompareFunctionLess
	if !p.DepthTestEnabled() {
		depthCompare = wgpu.CompareFunctionAlways
	}

	created, err := b.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  p.PipelineKey() + " Render Pipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     vs,
			EntryPoint: vertexShader.EntryPoint(),
			Buffers:    vertexShader.VertexLayouts(),
		},
		Fragment: &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: fragmentShader.EntryPoint(),
			Targets:    []wgpu.ColorTargetState{target},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  p.Topology(),
			FrontFace: p.FrontFace(),
			CullMode:  p.CullMode(),
		},
		Multisample: wgpu.MultisampleState{
			Count: uint32(b.sampleCount),
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            wgpu.TextureFormatDepth24Plus,
			DepthWriteEnabled: p.DepthWriteEnabled(),
			DepthCompare:      depthCompare,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		},
	})
	if err != nil {
		return 0, err
	}

	h := common.PipelineHandle(b.handle())
	b.pipelines[h] = &wgpuPipeline{pipeline: created, bindGroupLayouts: bindGroupLayouts}
	return h, nil
}

func (b *wgpuRendererBackendImpl) CreateBuffer(label string, kind BufferKind, size uint64, data []byte) (common.BufferHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	usage := wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst
	if kind == BufferKindUniform {
		usage = wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst
	}
	buf, err := b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            label,
		Size:             size,
		Usage:            usage,
		MappedAtCreation: false,
	})
	if err != nil {
		return 0, err
	}
	if kind == BufferKindVertex {
		b.queue.WriteBuffer(buf, 0, data)
	}

	h := common.BufferHandle(b.handle())
	b.buffers[h] = buf
	return h, nil
}

func (b *wgpuRendererBackendImpl) CreateTexture(label string, staging common.TextureStagingData) (common.TextureHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	tex, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:     label,
		Usage:     wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension: wgpu.TextureDimension2D,
		Size: wgpu.Extent3D{
			Width:              staging.Width,
			Height:             staging.Height,
			DepthOrArrayLayers: 1,
		},
		Format:        wgpu.TextureFormatRGBA8UnormSrgb,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return 0, err
	}

	t := &wgpuTexture{texture: tex, width: staging.Width, height: staging.Height}
	b.uploadTexture(t, staging)

	t.view, err = tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return 0, err
	}

	h := common.TextureHandle(b.handle())
	b.textures[h] = t
	return h, nil
}

func (b *wgpuRendererBackendImpl) WriteTexture(h common.TextureHandle, staging common.TextureStagingData) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.textures[h]
	if !ok {
		return fmt.Errorf("texture %d: %w", h, ErrUnknownHandle)
	}
	if t.width != staging.Width || t.height != staging.Height {
		return fmt.Errorf("texture %d is %dx%d, got %dx%d", h, t.width, t.height, staging.Width, staging.Height)
	}
	b.uploadTexture(t, staging)
	return nil
}

func (b *wgpuRendererBackendImpl) uploadTexture(t *wgpuTexture, staging common.TextureStagingData) {
	b.queue.WriteTexture(
		&wgpu.ImageCopyTexture{
			Texture:  t.texture,
			MipLevel: 0,
			Origin:   wgpu.Origin3D{},
			Aspect:   wgpu.TextureAspectAll,
		},
		staging.Pixels,
		&wgpu.TextureDataLayout{
			Offset:       0,
			BytesPerRow:  staging.Width * 4,
			RowsPerImage: staging.Height,
		},
		&wgpu.Extent3D{
			Width:              staging.Width,
			Height:             staging.Height,
			DepthOrArrayLayers: 1,
		},
	)
}

func (b *wgpuRendererBackendImpl) CreateSampler(label string, staging common.SamplerStagingData) (common.SamplerHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	samp, err := b.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         label,
		AddressModeU:  common.Coalesce(staging.AddressModeU, wgpu.AddressModeClampToEdge),
		AddressModeV:  common.Coalesce(staging.AddressModeV, wgpu.AddressModeClampToEdge),
		AddressModeW:  common.Coalesce(staging.AddressModeW, wgpu.AddressModeClampToEdge),
		MagFilter:     common.Coalesce(staging.MagFilter, wgpu.FilterModeNearest),
		MinFilter:     common.Coalesce(staging.MinFilter, wgpu.FilterModeNearest),
		MipmapFilter:  common.Coalesce(staging.MipmapFilter, wgpu.MipmapFilterModeNearest),
		LodMinClamp:   common.Coalesce(staging.LodMinClamp, 0.0),
		LodMaxClamp:   common.Coalesce(staging.LodMaxClamp, 32.0),
		MaxAnisotropy: common.Coalesce(staging.MaxAnisotropy, 1),
	})
	if err != nil {
		return 0, err
	}

	h := common.SamplerHandle(b.handle())
	b.samplers[h] = samp
	return h, nil
}

func (b *wgpuRendererBackendImpl) CreateBindGroup(label string, p common.PipelineHandle, group int, entries []common.BindGroupEntry) (common.BindGroupHandle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	wp, ok := b.pipelines[p]
	if !ok {
		return 0, fmt.Errorf("pipeline %d: %w", p, ErrUnknownHandle)
	}
	if group < 0 || group >= len(wp.bindGroupLayouts) {
		return 0, fmt.Errorf("pipeline %d has no group %d", p, group)
	}

	bindGroupEntries := make([]wgpu.BindGroupEntry, len(entries))
	for i, e := range entries {
		switch {
		case e.Texture.Valid():
			t, ok := b.textures[e.Texture]
			if !ok {
				return 0, fmt.Errorf("texture %d: %w", e.Texture, ErrUnknownHandle)
			}
			bindGroupEntries[i] = wgpu.BindGroupEntry{Binding: e.Binding, TextureView: t.view}
		case e.Sampler.Valid():
			s, ok := b.samplers[e.Sampler]
			if !ok {
				return 0, fmt.Errorf("sampler %d: %w", e.Sampler, ErrUnknownHandle)
			}
			bindGroupEntries[i] = wgpu.BindGroupEntry{Binding: e.Binding, Sampler: s}
		default:
			buf, ok := b.buffers[e.Buffer]
			if !ok {
				return 0, fmt.Errorf("buffer %d: %w", e.Buffer, ErrUnknownHandle)
			}
			bindGroupEntries[i] = wgpu.BindGroupEntry{
				Binding: e.Binding,
				Buffer:  buf,
				Offset:  0,
				Size:    wgpu.WholeSize,
			}
		}
	}

	bindGroup, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   label,
		Layout:  wp.bindGroupLayouts[group],
		Entries: bindGroupEntries,
	})
	if err != nil {
		return 0, err
	}

	h := common.BindGroupHandle(b.handle())
	b.bindGroups[h] = bindGroup
	return h, nil
}

func (b *wgpuRendererBackendImpl) BeginFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface != nil {
		return errors.New("previous frame surface not yet presented")
	}

	surfaceTexture, err := b.surface.GetCurrentTexture()
	if err != nil {
		return err
	}

	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		surfaceTexture.Release()
		return err
	}

	// With MSAA the swapchain view is the resolve target, otherwise it is drawn into directly.
	if b.sampleCount > 1 {
		b.renderPassDescriptor.ColorAttachments[0].ResolveTarget = view
	} else {
		b.renderPassDescriptor.ColorAttachments[0].View = view
	}

	b.frameSurface = surfaceTexture
	b.frameView = view
	return nil
}

func (b *wgpuRendererBackendImpl) BeginEyePass(desc EyePassDescriptor) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface == nil {
		return errors.New("no surface image acquired")
	}
	if b.eyePass != nil {
		return errors.New("eye pass already open")
	}

	encoder, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}

	b.renderPassDescriptor.ColorAttachments[0].LoadOp = wgpu.LoadOpClear
	if desc.LoadColor {
		b.renderPassDescriptor.ColorAttachments[0].LoadOp = wgpu.LoadOpLoad
	}
	pass := encoder.BeginRenderPass(b.renderPassDescriptor)
	vp := desc.Viewport
	pass.SetViewport(vp.X, vp.Y, vp.Width, vp.Height, 0, 1)
	pass.SetScissorRect(uint32(vp.X), uint32(vp.Y), uint32(vp.Width), uint32(vp.Height))

	b.eyeEncoder = encoder
	b.eyePass = pass
	return nil
}

func (b *wgpuRendererBackendImpl) SetPipeline(h common.PipelineHandle) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.pipelines[h]
	if !ok {
		return fmt.Errorf("pipeline %d: %w", h, ErrUnknownHandle)
	}
	if b.eyePass == nil {
		return ErrNoActivePass
	}
	b.eyePass.SetPipeline(p.pipeline)
	return nil
}

func (b *wgpuRendererBackendImpl) WriteBuffer(h common.BufferHandle, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	buf, ok := b.buffers[h]
	if !ok {
		return fmt.Errorf("buffer %d: %w", h, ErrUnknownHandle)
	}
	b.queue.WriteBuffer(buf, 0, data)
	return nil
}

func (b *wgpuRendererBackendImpl) SetBindGroup(index uint32, h common.BindGroupHandle) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	bg, ok := b.bindGroups[h]
	if !ok {
		return fmt.Errorf("bind group %d: %w", h, ErrUnknownHandle)
	}
	if b.eyePass == nil {
		return ErrNoActivePass
	}
	b.eyePass.SetBindGroup(index, bg, nil)
	return nil
}

func (b *wgpuRendererBackendImpl) SetVertexBuffer(slot uint32, h common.BufferHandle) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	buf, ok := b.buffers[h]
	if !ok {
		return fmt.Errorf("buffer %d: %w", h, ErrUnknownHandle)
	}
	if b.eyePass == nil {
		return ErrNoActivePass
	}
	b.eyePass.SetVertexBuffer(slot, buf, 0, wgpu.WholeSize)
	return nil
}

func (b *wgpuRendererBackendImpl) Draw(vertexCount uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.eyePass == nil {
		return ErrNoActivePass
	}
	b.eyePass.Draw(vertexCount, 1, 0, 0)
	return nil
}

func (b *wgpuRendererBackendImpl) EndEyePass() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.eyePass == nil {
		return ErrNoActivePass
	}
	b.eyePass.End()
	b.eyePass.Release()
	b.eyePass = nil

	commandBuffer, err := b.eyeEncoder.Finish(nil)
	b.eyeEncoder.Release()
	b.eyeEncoder = nil
	if err != nil {
		return err
	}
	b.queue.Submit(commandBuffer)
	commandBuffer.Release()
	return nil
}

func (b *wgpuRendererBackendImpl) EndFrame() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frameSurface == nil {
		return errors.New("no surface image acquired")
	}

	b.surface.Present()

	b.frameView.Release()
	b.frameView = nil
	b.frameSurface.Release()
	b.frameSurface = nil
	return nil
}

func (b *wgpuRendererBackendImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for h, bg := range b.bindGroups {
		bg.Release()
		delete(b.bindGroups, h)
	}
	for h, s := range b.samplers {
		s.Release()
		delete(b.samplers, h)
	}
	for h, t := range b.textures {
		t.view.Release()
		t.texture.Release()
		delete(b.textures, h)
	}
	for h, buf := range b.buffers {
		buf.Release()
		delete(b.buffers, h)
	}
	for h, p := range b.pipelines {
		p.pipeline.Release()
		for _, l := range p.bindGroupLayouts {
			l.Release()
		}
		delete(b.pipelines, h)
	}
	b.releaseAttachments()
	if b.queue != nil {
		b.queue.Release()
	}
	if b.device != nil {
		b.device.Release()
	}
	if b.adapter != nil {
		b.adapter.Release()
	}
	if b.surface != nil {
		b.surface.Release()
	}
	if b.instance != nil {
		b.instance.Release()
	}
}
