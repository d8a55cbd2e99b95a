package shader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testLitVertex = `//@oxy:include mesh_uniform
//@oxy:include lit_vertex
//@oxy:include lit_varyings
//@oxy:group 0 0 storage_uniform u_mesh mesh_uniform

@vertex
fn vs_main(input: LitVertexInput) -> LitVaryings {
    var out: LitVaryings;
    out.position = u_mesh.mvp * vec4<f32>(input.a_position, 1.0);
    out.color = input.a_color;
    out.grid = input.a_position;
    out.depth = 0.0;
    return out;
}
`

const testTexturedFragment = `//@oxy:include textured_varyings
//@oxy:provider 1 0 screen texture
@group(1) @binding(0) var u_texture: texture_2d<f32>;
//@oxy:provider 1 1 screen sampler
@group(1) @binding(1) var u_sampler: sampler;

@fragment
fn fs_main(input: TexturedVaryings) -> @location(0) vec4<f32> {
    return textureSample(u_texture, u_sampler, input.texcoord);
}
`

func TestNewShaderFromSourceVertex(t *testing.T) {
	s, err := NewShaderFromSource("lit_vs", ShaderTypeVertex, testLitVertex)
	require.NoError(t, err)

	assert.Equal(t, "vs_main", s.EntryPoint())
	assert.Equal(t, ShaderTypeVertex, s.ShaderType())
	assert.Contains(t, s.Source(), "struct MeshUniform")
	assert.Contains(t, s.Source(), "@group(0) @binding(0) var<uniform> u_mesh: MeshUniform;")
	assert.NotContains(t, s.Source(), "@oxy:")

	t.Run("one buffer per attribute", func(t *testing.T) {
		assert.Equal(t, []string{"a_position", "a_normal", "a_color"}, s.VertexAttributeNames())
		layouts := s.VertexLayouts()
		require.Len(t, layouts, 3)
		assert.Equal(t, uint64(12), layouts[0].ArrayStride)
		assert.Equal(t, uint64(12), layouts[1].ArrayStride)
		assert.Equal(t, uint64(16), layouts[2].ArrayStride)
		for i, l := range layouts {
			require.Len(t, l.Attributes, 1)
			assert.Equal(t, uint64(0), l.Attributes[0].Offset)
			assert.Equal(t, uint32(i), l.Attributes[0].ShaderLocation)
		}
		assert.Equal(t, wgpu.VertexFormatFloat32x4, layouts[2].Attributes[0].Format)

		slot, ok := s.VertexSlot("a_color")
		assert.True(t, ok)
		assert.Equal(t, 2, slot)
		_, ok = s.VertexSlot("a_texcoord")
		assert.False(t, ok)
	})

	t.Run("uniform binding", func(t *testing.T) {
		group, binding, ok := s.FindBinding("u_mesh")
		require.True(t, ok)
		assert.Equal(t, 0, group)
		assert.Equal(t, 0, binding)

		desc := s.BindGroupLayoutDescriptors()[0]
		require.Len(t, desc.Entries, 1)
		assert.Equal(t, wgpu.BufferBindingTypeUniform, desc.Entries[0].Buffer.Type)
		assert.Equal(t, uint64(208), desc.Entries[0].Buffer.MinBindingSize)
		assert.Equal(t, wgpu.ShaderStageVertex, desc.Entries[0].Visibility)
	})

	t.Run("declarations", func(t *testing.T) {
		decls := s.Declarations()
		require.Len(t, decls, 1)
		assert.Equal(t, AnnotationTypeBindingGroup, decls[0].Type)
		assert.Equal(t, AnnotationArgMeshUniform, decls[0].Args[2])
	})
}

func TestNewShaderFromSourceFragment(t *testing.T) {
	s, err := NewShaderFromSource("tex_fs", ShaderTypeFragment, testTexturedFragment)
	require.NoError(t, err)

	assert.Equal(t, "fs_main", s.EntryPoint())
	assert.Nil(t, s.VertexLayouts())

	desc := s.BindGroupLayoutDescriptors()[1]
	require.Len(t, desc.Entries, 2)
	assert.Equal(t, wgpu.TextureViewDimension2D, desc.Entries[0].Texture.ViewDimension)
	assert.Equal(t, wgpu.TextureSampleTypeFloat, desc.Entries[0].Texture.SampleType)
	assert.Equal(t, wgpu.SamplerBindingTypeFiltering, desc.Entries[1].Sampler.Type)
	assert.Equal(t, "u_sampler", s.BindGroupVarName(1, 1))

	decls := s.Declarations()
	require.Len(t, decls, 2)
	assert.Equal(t, AnnotationTypeProvider, decls[0].Type)
	assert.Equal(t, []AnnotationArg{AnnotationArgScreen, AnnotationArgTexture}, decls[0].Args)
}

func TestNewShaderErrors(t *testing.T) {
	_, err := NewShaderFromSource("bad", ShaderTypeVertex, "//@oxy:include nope\n")
	assert.ErrorContains(t, err, "unknown struct type")

	_, err = NewShaderFromSource("no_entry", ShaderTypeFragment, testLitVertex)
	assert.ErrorContains(t, err, "no @fragment entry point")

	_, err = NewShader("missing", ShaderTypeVertex, filepath.Join(t.TempDir(), "missing.wgsl"))
	assert.Error(t, err)

	_, err = NewShader("empty", ShaderTypeVertex, "")
	assert.Error(t, err)
}

func TestNewShaderFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lit.wgsl")
	require.NoError(t, os.WriteFile(path, []byte(testLitVertex), 0o644))

	s, err := NewShader("lit_vs", ShaderTypeVertex, path)
	require.NoError(t, err)
	assert.Len(t, s.VertexLayouts(), 3)
}

func TestPreProcessorIncludesOnce(t *testing.T) {
	pp := NewPreProcessor()
	out, err := pp.Process("//@oxy:include mesh_uniform\n//@oxy:include mesh_uniform\n")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "struct MeshUniform"))
	assert.Empty(t, pp.Declarations())
}

func TestParseAnnotation(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		wantNil bool
		wantErr string
	}{
		{name: "plain line", line: "let x = 1;", wantNil: true},
		{name: "plain comment", line: "// hello", wantNil: true},
		{name: "empty", line: "//@oxy:", wantErr: "empty"},
		{name: "unknown type", line: "//@oxy:bogus 1", wantErr: "unknown @oxy annotation type"},
		{name: "bad group", line: "//@oxy:group x 0 storage_uniform u mesh_uniform", wantErr: "invalid group number"},
		{name: "bad space", line: "//@oxy:group 0 0 storage_read u mesh_uniform", wantErr: "unknown address space"},
		{name: "bad role", line: "//@oxy:provider 1 0 screen diffuse", wantErr: "unknown binding role"},
		{name: "bad provider", line: "//@oxy:provider 1 0 lights", wantErr: "unknown provider identity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := parseAnnotation(tt.line, 1)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, a)
			}
		})
	}
}

func TestLayoutStructs(t *testing.T) {
	structs := parseStructBlocks(stripComments(`
struct Outer { m: mat4x4<f32>, i: Inner, f: array<vec4<f32>, 2>, }
struct Inner { a: vec3<f32>, }
struct Scalars { s: array<f32, 3>, }
struct Broken { t: texture_2d<f32>, }
`))
	sizes := layoutStructs(structs)
	assert.Equal(t, wgslTypeLayout{16, 16}, sizes["Inner"])
	assert.Equal(t, uint64(64+16+32), sizes["Outer"].size, "declared before its dependency")
	assert.Equal(t, uint64(48), sizes["Scalars"].size, "uniform array elements take 16 bytes")
	assert.NotContains(t, sizes, "Broken")
}

func TestStripComments(t *testing.T) {
	src := "a // one\nb /* two /* nested */ still */ c\n/* x\ny */d"
	assert.Equal(t, "a \nb  c\n\nd", stripComments(src))
}

func TestClassifyResource(t *testing.T) {
	e := classifyResource(0, wgpu.ShaderStageFragment, "", "texture_2d<u32>")
	assert.Equal(t, wgpu.TextureSampleTypeUint, e.Texture.SampleType)

	e = classifyResource(1, wgpu.ShaderStageFragment, "storage, read", "array<f32>")
	assert.Equal(t, wgpu.BufferBindingTypeUndefined, e.Buffer.Type)
	assert.Equal(t, wgpu.TextureSampleTypeUndefined, e.Texture.SampleType)

	e = classifyResource(2, wgpu.ShaderStageFragment, "", "texture_depth_2d")
	assert.Equal(t, wgpu.TextureSampleTypeUndefined, e.Texture.SampleType)
}
