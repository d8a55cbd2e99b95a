package mesh

import (
	"encoding/binary"
	"image"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Carmen-Shannon/oxy-vrterm/common"
	"github.com/Carmen-Shannon/oxy-vrterm/engine/model"
	"github.com/Carmen-Shannon/oxy-vrterm/engine/renderer"
	"github.com/Carmen-Shannon/oxy-vrterm/engine/texture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func triangle(t *testing.T, textured bool) model.Geometry {
	t.Helper()
	opts := []model.GeometryBuilderOption{model.WithLabel("tri")}
	if textured {
		opts = append(opts, model.WithTexCoords([]float32{0, 0, 1, 0, 0, 1}))
	}
	g, err := model.NewGeometry(
		[]float32{0, 0, 0, 1, 0, 0, 0, 1, 0},
		[]float32{0, 0, 1, 0, 0, 1, 0, 0, 1},
		[]float32{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1},
		opts...,
	)
	require.NoError(t, err)
	return g
}

func decodeMatrix(b []byte, offset int) [16]float32 {
	var m [16]float32
	for i := range m {
		m[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[offset+i*4:]))
	}
	return m
}

func ops(cmds []renderer.Command) []renderer.CommandOp {
	out := make([]renderer.CommandOp, len(cmds))
	for i, c := range cmds {
		out[i] = c.Op
	}
	return out
}

func TestNewProgram(t *testing.T) {
	r, _ := renderer.NewHeadlessRenderer()

	t.Run("lit grid", func(t *testing.T) {
		p, err := NewProgram(r, ProgramLitGrid)
		require.NoError(t, err)
		assert.False(t, p.Textured())
		assert.True(t, p.Handle().Valid())
		assert.Equal(t, []model.Attribute{model.AttributePosition, model.AttributeNormal, model.AttributeColor}, p.Attributes())
		for i, a := range p.Attributes() {
			slot, ok := p.AttributeSlot(a)
			require.True(t, ok)
			assert.Equal(t, uint32(i), slot)
		}
		_, ok := p.AttributeSlot(model.AttributeTexCoord)
		assert.False(t, ok)
		group, binding := p.UniformBinding()
		assert.Equal(t, 0, group)
		assert.Equal(t, 0, binding)
	})

	t.Run("textured passthrough", func(t *testing.T) {
		p, err := NewProgram(r, ProgramTexturedPassthrough)
		require.NoError(t, err)
		assert.True(t, p.Textured())
		slot, ok := p.AttributeSlot(model.AttributeTexCoord)
		require.True(t, ok)
		assert.Equal(t, uint32(3), slot)
		group, tex, smp := p.TextureBindings()
		assert.Equal(t, 1, group)
		assert.Equal(t, 0, tex)
		assert.Equal(t, 1, smp)
		assert.Equal(t, 2, p.Pipeline().GroupCount())
	})
}

func TestNewProgramMissingBindings(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{
			name: "no uniform block",
			source: `//@oxy:include lit_vertex
//@oxy:include lit_varyings
@vertex
fn vs_main(input: LitVertexInput) -> LitVaryings {
    var out: LitVaryings;
    out.position = vec4<f32>(input.a_position, 1.0);
    out.color = input.a_color;
    out.grid = input.a_normal;
    out.depth = 0.0;
    return out;
}
`,
		},
		{
			name: "no normal attribute",
			source: `//@oxy:include mesh_uniform
//@oxy:include lit_varyings
//@oxy:group 0 0 storage_uniform u_mesh mesh_uniform
struct VertexIn {
    @location(0) a_position: vec3<f32>,
    @location(1) a_color: vec4<f32>,
}
@vertex
fn vs_main(input: VertexIn) -> LitVaryings {
    var out: LitVaryings;
    out.position = u_mesh.mvp * vec4<f32>(input.a_position, 1.0);
    out.color = input.a_color;
    out.grid = input.a_position;
    out.depth = 0.0;
    return out;
}
`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, "lit_grid_vertex.wgsl"), []byte(tt.source), 0o644))

			r, rec := renderer.NewHeadlessRenderer()
			_, err := NewProgram(r, ProgramLitGrid, WithShaderDir(dir))
			assert.ErrorIs(t, err, ErrMissingBinding)
			assert.Zero(t, rec.Count(renderer.OpRegisterPipeline), "nothing is linked")
		})
	}

	t.Run("empty override dir falls back to embedded sources", func(t *testing.T) {
		r, _ := renderer.NewHeadlessRenderer()
		_, err := NewProgram(r, ProgramLitGrid, WithShaderDir(t.TempDir()))
		assert.NoError(t, err)
	})
}

func TestRenderableDraw(t *testing.T) {
	r, rec := renderer.NewHeadlessRenderer()
	lit, err := NewProgram(r, ProgramLitGrid)
	require.NoError(t, err)

	rd, err := NewRenderable(r, lit, triangle(t, false), WithLabel("floor"), WithTranslation(0, -20, 0))
	require.NoError(t, err)
	assert.Equal(t, "floor", rd.Label())
	assert.Equal(t, 3, rd.VertexCount())
	assert.Equal(t, []int{0, 1, 2}, rd.Provider().VertexSlots())

	modelMatrix := rd.ModelMatrix()
	assert.Equal(t, float32(-20), modelMatrix[13])

	view := make([]float32, 16)
	common.LookAt(view, 0, 0, 0.01, 0, 0, 0, 0, 1, 0)
	proj := make([]float32, 16)
	common.Perspective(proj, math.Pi/2, 1, 0.1, 100)
	light := [3]float32{1, 2, 3}

	draw := func() []renderer.Command {
		rec.Reset()
		require.NoError(t, r.BeginFrame())
		pass, err := r.BeginEye(renderer.EyeLeft)
		require.NoError(t, err)
		require.NoError(t, rd.Draw(pass, light, view, proj))
		require.NoError(t, r.EndEye())
		require.NoError(t, r.EndFrame())
		return rec.Commands()
	}

	cmds := draw()
	body := cmds[2 : len(cmds)-2]
	assert.Equal(t, []renderer.CommandOp{
		renderer.OpSetPipeline,
		renderer.OpWriteBuffer,
		renderer.OpSetBindGroup,
		renderer.OpSetVertexBuffer,
		renderer.OpSetVertexBuffer,
		renderer.OpSetVertexBuffer,
		renderer.OpDraw,
	}, ops(body))
	assert.Equal(t, uint32(3), body[len(body)-1].Count)

	t.Run("uniforms follow MV = V×M and MVP = P×MV", func(t *testing.T) {
		data := rec.BufferContents(rd.Provider().UniformBuffer())
		require.Len(t, data, 208)

		var mv, mvp [16]float32
		common.Mul4(mv[:], view, modelMatrix[:])
		common.Mul4(mvp[:], proj, mv[:])
		assert.Equal(t, modelMatrix, decodeMatrix(data, 0))
		assert.Equal(t, mv, decodeMatrix(data, 64))
		assert.Equal(t, mvp, decodeMatrix(data, 128))
		for i, want := range light {
			got := math.Float32frombits(binary.LittleEndian.Uint32(data[192+i*4:]))
			assert.Equal(t, want, got)
		}
	})

	t.Run("same inputs record the same commands", func(t *testing.T) {
		assert.Equal(t, cmds, draw())
	})

	t.Run("draw outside a pass fails", func(t *testing.T) {
		require.NoError(t, r.BeginFrame())
		pass, err := r.BeginEye(renderer.EyeLeft)
		require.NoError(t, err)
		require.NoError(t, r.EndEye())
		assert.ErrorIs(t, rd.Draw(pass, light, view, proj), renderer.ErrNoActivePass)
		require.NoError(t, r.EndFrame())
	})

	t.Run("bad matrices are rejected", func(t *testing.T) {
		require.NoError(t, r.BeginFrame())
		pass, err := r.BeginEye(renderer.EyeLeft)
		require.NoError(t, err)
		assert.Error(t, rd.Draw(pass, light, view[:4], proj))
		r.AbortFrame()
	})
}

func TestTexturedRenderableDraw(t *testing.T) {
	r, rec := renderer.NewHeadlessRenderer()
	prog, err := NewProgram(r, ProgramTexturedPassthrough)
	require.NoError(t, err)
	tex, err := texture.NewBridge(r).Create("screen", image.NewRGBA(image.Rect(0, 0, 8, 6)))
	require.NoError(t, err)

	rd, err := NewTexturedRenderable(r, prog, triangle(t, true), tex, WithLabel("screen"))
	require.NoError(t, err)
	assert.Same(t, tex, rd.Texture())
	assert.Equal(t, []int{0, 1}, rd.Provider().Groups())

	rec.Reset()
	require.NoError(t, r.BeginFrame())
	pass, err := r.BeginEye(renderer.EyeLeft)
	require.NoError(t, err)
	identity := common.IdentityMatrix()
	require.NoError(t, rd.Draw(pass, [3]float32{}, identity[:], identity[:]))
	require.NoError(t, r.EndEye())
	require.NoError(t, r.EndFrame())

	cmds := rec.Commands()
	body := cmds[2 : len(cmds)-2]
	assert.Equal(t, []renderer.CommandOp{
		renderer.OpSetPipeline,
		renderer.OpWriteBuffer,
		renderer.OpSetBindGroup,
		renderer.OpSetBindGroup,
		renderer.OpSetVertexBuffer,
		renderer.OpSetVertexBuffer,
		renderer.OpSetVertexBuffer,
		renderer.OpSetVertexBuffer,
		renderer.OpDraw,
	}, ops(body))
	assert.Equal(t, uint32(0), body[2].Index)
	assert.Equal(t, uint32(1), body[3].Index)
}

func TestRenderableProgramMismatch(t *testing.T) {
	r, _ := renderer.NewHeadlessRenderer()
	lit, err := NewProgram(r, ProgramLitGrid)
	require.NoError(t, err)
	textured, err := NewProgram(r, ProgramTexturedPassthrough)
	require.NoError(t, err)
	tex, err := texture.NewBridge(r).Create("screen", image.NewRGBA(image.Rect(0, 0, 2, 2)))
	require.NoError(t, err)

	_, err = NewRenderable(r, textured, triangle(t, true))
	assert.Error(t, err)

	_, err = NewTexturedRenderable(r, lit, triangle(t, true), tex)
	assert.Error(t, err)

	_, err = NewTexturedRenderable(r, textured, triangle(t, false), tex)
	assert.Error(t, err, "textured program needs texture coordinates")

	_, err = NewRenderable(r, lit, triangle(t, true))
	assert.Error(t, err, "untextured program rejects texture coordinates")

	_, err = NewTexturedRenderable(r, textured, triangle(t, true), nil)
	assert.Error(t, err)
}

// uniformPass keeps the uniform bytes of every draw and ignores the rest.
type uniformPass struct {
	uniforms [][]byte
}

func (p *uniformPass) Eye() renderer.Eye { return renderer.EyeLeft }

func (p *uniformPass) SetPipeline(common.PipelineHandle) error { return nil }

func (p *uniformPass) WriteUniforms(_ common.BufferHandle, data []byte) error {
	p.uniforms = append(p.uniforms, data)
	return nil
}

func (p *uniformPass) SetBindGroup(uint32, common.BindGroupHandle) error { return nil }

func (p *uniformPass) SetVertexBuffer(uint32, common.BufferHandle) error { return nil }

func (p *uniformPass) Draw(uint32) error { return nil }

func TestRenderableDrawKeepsNoMatrixState(t *testing.T) {
	r, _ := renderer.NewHeadlessRenderer()
	lit, err := NewProgram(r, ProgramLitGrid)
	require.NoError(t, err)
	rd, err := NewRenderable(r, lit, triangle(t, false), WithTranslation(1, 2, 3))
	require.NoError(t, err)
	modelMatrix := rd.ModelMatrix()
	identity := common.IdentityMatrix()

	// each goroutine draws with its own view; none may see another's derived matrices
	passes := make([]*uniformPass, 4)
	var wg sync.WaitGroup
	for i := range passes {
		passes[i] = &uniformPass{}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			view := common.IdentityMatrix()
			common.Translate(view[:], float32(i), 0, 0)
			for range 50 {
				assert.NoError(t, rd.Draw(passes[i], [3]float32{}, view[:], identity[:]))
			}
		}(i)
	}
	wg.Wait()

	for i, p := range passes {
		view := common.IdentityMatrix()
		common.Translate(view[:], float32(i), 0, 0)
		var mv [16]float32
		common.Mul4(mv[:], view[:], modelMatrix[:])
		require.Len(t, p.uniforms, 50)
		for _, u := range p.uniforms {
			assert.Equal(t, mv, decodeMatrix(u, 64))
		}
	}
	assert.Equal(t, modelMatrix, rd.ModelMatrix())
}
