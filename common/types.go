// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"github.com/cogentcore/webgpu/wgpu"
)

// The handle types below are opaque identifiers for GPU resources owned by a renderer backend.
// The zero value of every handle is invalid. Handles are plain comparable values so that two
// recorded command streams can be compared for equality.

// BufferHandle identifies a GPU buffer (vertex or uniform).
type BufferHandle uint32

// TextureHandle identifies a 2D GPU texture together with its default view.
type TextureHandle uint32

// SamplerHandle identifies a GPU sampler.
type SamplerHandle uint32

// PipelineHandle identifies a linked render pipeline (vertex + fragment program pair).
type PipelineHandle uint32

// BindGroupHandle identifies a bind group created against one of a pipeline's group layouts.
type BindGroupHandle uint32

// Valid reports whether the handle refers to a created resource.
func (h BufferHandle) Valid() bool { return h != 0 }

// Valid reports whether the handle refers to a created resource.
func (h TextureHandle) Valid() bool { return h != 0 }

// Valid reports whether the handle refers to a created resource.
func (h SamplerHandle) Valid() bool { return h != 0 }

// Valid reports whether the handle refers to a created resource.
func (h PipelineHandle) Valid() bool { return h != 0 }

// Valid reports whether the handle refers to a created resource.
func (h BindGroupHandle) Valid() bool { return h != 0 }

// TextureStagingData holds RGBA pixel data for a texture pending GPU upload.
type TextureStagingData struct {
	// Pixels is the byte slice representing the actual pixel data for the texture. It should be in RGBA format, with 4 bytes per pixel.
	Pixels []byte
	// Width is the width of the texture in pixels.
	Width uint32
	// Height is the height of the texture in pixels.
	Height uint32
}

// SamplerStagingData holds the configuration for a sampler pending GPU creation.
// Zero fields fall back to backend defaults.
type SamplerStagingData struct {
	// AddressModeU, AddressModeV, AddressModeW specify the addressing mode for texture coordinates outside the [0, 1] range in each dimension (U, V, W).
	AddressModeU, AddressModeV, AddressModeW wgpu.AddressMode
	// MagFilter and MinFilter specify the filtering mode for magnification and minification.
	MagFilter, MinFilter wgpu.FilterMode
	// MipmapFilter specifies the filtering mode for mipmap level selection.
	MipmapFilter wgpu.MipmapFilterMode
	// LodMinClamp and LodMaxClamp specify the minimum and maximum level of detail (LOD) for mipmapping.
	LodMinClamp, LodMaxClamp float32
	// MaxAnisotropy specifies the maximum anisotropy level for anisotropic filtering.
	MaxAnisotropy uint16
}

// BindGroupEntry describes one resource bound at a binding index when creating a bind group.
// Exactly one of Buffer, Texture or Sampler is set.
type BindGroupEntry struct {
	Binding uint32
	Buffer  BufferHandle
	Texture TextureHandle
	Sampler SamplerHandle
}

// Viewport is a rectangle in surface pixels.
type Viewport struct {
	X, Y, Width, Height float32
}
