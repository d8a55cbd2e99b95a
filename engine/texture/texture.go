package texture

import (
	"fmt"
	"image"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-vrterm/common"
	"github.com/Carmen-Shannon/oxy-vrterm/engine/renderer"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// texture is the implementation of the Texture interface.
type texture struct {
	label         string
	handle        common.TextureHandle
	sampler       common.SamplerHandle
	width, height int
}

// Texture is a GPU-resident RGBA8 image with its sampler. The size is fixed at creation.
type Texture interface {
	// Label returns the debug label given at creation.
	//
	// Returns:
	//   - string: the label
	Label() string

	// Handle returns the backend texture handle.
	//
	// Returns:
	//   - common.TextureHandle: the texture handle
	Handle() common.TextureHandle

	// Sampler returns the nearest-filtering, clamp-to-edge sampler created with the texture.
	//
	// Returns:
	//   - common.SamplerHandle: the sampler handle
	Sampler() common.SamplerHandle

	// Width returns the texture width in pixels.
	Width() int

	// Height returns the texture height in pixels.
	Height() int
}

var _ Texture = &texture{}

func (t *texture) Label() string {
	return t.label
}

func (t *texture) Handle() common.TextureHandle {
	return t.handle
}

func (t *texture) Sampler() common.SamplerHandle {
	return t.sampler
}

func (t *texture) Width() int {
	return t.width
}

func (t *texture) Height() int {
	return t.height
}

// bridge is the implementation of the Bridge interface.
type bridge struct {
	renderer renderer.Renderer
	logger   *zap.Logger
	counter  prometheus.Counter
	uploads  atomic.Uint64
}

// Bridge moves CPU-side RGBA images into GPU textures. Create allocates a texture of the image's
// size; Update replaces the entire contents of an existing texture with an image of the same size.
// Nothing is cached, so every Update is one full upload.
type Bridge interface {
	// Create allocates an RGBA8 texture with one mip level, a nearest/nearest clamp-to-edge
	// sampler, and uploads the image.
	//
	// Parameters:
	//   - label: debug label for the GPU objects
	//   - img: the initial contents; its bounds define the texture size
	//
	// Returns:
	//   - Texture: the created texture
	//   - error: an error if the image is empty or the backend fails
	Create(label string, img *image.RGBA) (Texture, error)

	// Update uploads img as the full new contents of tex. img must have the texture's size.
	//
	// Parameters:
	//   - tex: a texture returned by Create
	//   - img: the new contents
	//
	// Returns:
	//   - error: an error if the upload fails
	Update(tex Texture, img *image.RGBA) error

	// Uploads returns the number of successful uploads (creates and updates) so far.
	//
	// Returns:
	//   - uint64: the upload count
	Uploads() uint64
}

var _ Bridge = &bridge{}

// NewBridge creates a Bridge that uploads through r.
//
// Parameters:
//   - r: the renderer owning the textures
//   - opts: variadic list of BridgeBuilderOption functions
//
// Returns:
//   - Bridge: the texture bridge
func NewBridge(r renderer.Renderer, opts ...BridgeBuilderOption) Bridge {
	b := &bridge{
		renderer: r,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *bridge) Create(label string, img *image.RGBA) (Texture, error) {
	staging, err := stagingFromImage(img)
	if err != nil {
		return nil, fmt.Errorf("texture %s: %w", label, err)
	}

	h, err := b.renderer.CreateTexture(label, staging)
	if err != nil {
		return nil, fmt.Errorf("texture %s: create: %w", label, err)
	}
	s, err := b.renderer.CreateSampler(label, common.SamplerStagingData{
		AddressModeU: wgpu.AddressModeClampToEdge,
		AddressModeV: wgpu.AddressModeClampToEdge,
		AddressModeW: wgpu.AddressModeClampToEdge,
		MagFilter:    wgpu.FilterModeNearest,
		MinFilter:    wgpu.FilterModeNearest,
		MipmapFilter: wgpu.MipmapFilterModeNearest,
	})
	if err != nil {
		return nil, fmt.Errorf("texture %s: sampler: %w", label, err)
	}
	b.uploaded()

	b.logger.Debug("texture created",
		zap.String("texture", label),
		zap.Int("width", int(staging.Width)),
		zap.Int("height", int(staging.Height)),
	)
	return &texture{
		label:   label,
		handle:  h,
		sampler: s,
		width:   int(staging.Width),
		height:  int(staging.Height),
	}, nil
}

func (b *bridge) Update(tex Texture, img *image.RGBA) error {
	staging, err := stagingFromImage(img)
	if err != nil {
		return fmt.Errorf("texture %s: %w", tex.Label(), err)
	}
	if err := b.renderer.WriteTexture(tex.Handle(), staging); err != nil {
		return fmt.Errorf("texture %s: update: %w", tex.Label(), err)
	}
	b.uploaded()
	return nil
}

func (b *bridge) Uploads() uint64 {
	return b.uploads.Load()
}

func (b *bridge) uploaded() {
	b.uploads.Add(1)
	if b.counter != nil {
		b.counter.Inc()
	}
}

// stagingFromImage returns the tightly packed RGBA rows of img. The pixel slice is shared when
// img is already tightly packed and anchored at the origin.
func stagingFromImage(img *image.RGBA) (common.TextureStagingData, error) {
	if img == nil {
		return common.TextureStagingData{}, fmt.Errorf("nil image")
	}
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		return common.TextureStagingData{}, fmt.Errorf("empty image %dx%d", w, h)
	}

	rowBytes := w * 4
	var pix []byte
	if img.Stride == rowBytes && bounds.Min == (image.Point{}) {
		pix = img.Pix[:rowBytes*h]
	} else {
		pix = make([]byte, rowBytes*h)
		for y := range h {
			start := img.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			copy(pix[y*rowBytes:], img.Pix[start:start+rowBytes])
		}
	}
	return common.TextureStagingData{Pixels: pix, Width: uint32(w), Height: uint32(h)}, nil
}
