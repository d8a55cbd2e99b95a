package model

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUMeshUniformSource is the canonical WGSL definition of the MeshUniform struct.
// Matches GPUMeshUniform layout exactly (208 bytes, WGSL uniform aligned).
//
//go:embed assets/mesh_uniform.wgsl
var GPUMeshUniformSource string

// GPULitVertexSource is the WGSL definition of the LitVertexInput struct used by the lit-grid program.
// Each field is fed from its own vertex buffer.
//
//go:embed assets/lit_vertex.wgsl
var GPULitVertexSource string

// GPUTexturedVertexSource is the WGSL definition of the TexturedVertexInput struct used by the
// textured-passthrough program. It extends the lit vertex with a texture coordinate.
//
//go:embed assets/textured_vertex.wgsl
var GPUTexturedVertexSource string

// GPULitVaryingsSource is the WGSL struct passed from the lit vertex stage to the grid fragment stage.
//
//go:embed assets/lit_varyings.wgsl
var GPULitVaryingsSource string

// GPUTexturedVaryingsSource is the WGSL struct passed from the textured vertex stage to the passthrough fragment stage.
//
//go:embed assets/textured_varyings.wgsl
var GPUTexturedVaryingsSource string

// GPUMeshUniform is the GPU-aligned per-draw uniform block of a Renderable.
// It carries the model matrix, the derived model-view and model-view-projection matrices and the
// light position already transformed into eye space.
// Matches the WGSL MeshUniform struct layout exactly (see GPUMeshUniformSource).
// Size: 208 bytes.
type GPUMeshUniform struct {
	Model     [16]float32 // offset   0: object to world (mat4x4<f32>)
	ModelView [16]float32 // offset  64: view * model (mat4x4<f32>)
	MVP       [16]float32 // offset 128: projection * view * model (mat4x4<f32>)
	LightPos  [3]float32  // offset 192: light position in eye space (vec3<f32>)
	_pad      float32     // offset 204: padding to 208 bytes
}

// Size returns the size of the GPUMeshUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (208)
func (g *GPUMeshUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUMeshUniform struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: the serialized 208-byte buffer
func (g *GPUMeshUniform) Marshal() []byte {
	buf := make([]byte, g.Size())
	for i := range 16 {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(g.Model[i]))
		binary.LittleEndian.PutUint32(buf[64+i*4:], math.Float32bits(g.ModelView[i]))
		binary.LittleEndian.PutUint32(buf[128+i*4:], math.Float32bits(g.MVP[i]))
	}
	for i := range 3 {
		binary.LittleEndian.PutUint32(buf[192+i*4:], math.Float32bits(g.LightPos[i]))
	}
	binary.LittleEndian.PutUint32(buf[204:], 0) // _pad
	return buf
}
