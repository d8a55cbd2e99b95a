package renderer

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-vrterm/common"
	"github.com/Carmen-Shannon/oxy-vrterm/engine/model"
	"github.com/Carmen-Shannon/oxy-vrterm/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-vrterm/engine/renderer/shader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testVertex = `//@oxy:include mesh_uniform
//@oxy:include textured_vertex
//@oxy:include textured_varyings
//@oxy:group 0 0 storage_uniform u_mesh mesh_uniform

@vertex
fn vs_main(input: TexturedVertexInput) -> TexturedVaryings {
    var out: TexturedVaryings;
    out.position = u_mesh.mvp * vec4<f32>(input.a_position, 1.0);
    out.color = input.a_color;
    out.texcoord = input.a_texcoord;
    return out;
}
`

const testFragment = `//@oxy:include textured_varyings
//@oxy:provider 1 0 screen texture
@group(1) @binding(0) var u_texture: texture_2d<f32>;
//@oxy:provider 1 1 screen sampler
@group(1) @binding(1) var u_sampler: sampler;

@fragment
fn fs_main(input: TexturedVaryings) -> @location(0) vec4<f32> {
    return textureSample(u_texture, u_sampler, input.texcoord);
}
`

func newTestPipeline(t *testing.T, key string) pipeline.Pipeline {
	t.Helper()
	vs, err := shader.NewShaderFromSource(key+"_vs", shader.ShaderTypeVertex, testVertex)
	require.NoError(t, err)
	fs, err := shader.NewShaderFromSource(key+"_fs", shader.ShaderTypeFragment, testFragment)
	require.NoError(t, err)
	p, err := pipeline.NewPipeline(key, pipeline.WithVertexShader(vs), pipeline.WithFragmentShader(fs))
	require.NoError(t, err)
	return p
}

func pixels(w, h int, v byte) []byte {
	out := make([]byte, w*h*4)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestEyeViewport(t *testing.T) {
	assert.Equal(t, common.Viewport{X: 0, Y: 0, Width: 640, Height: 720}, EyeViewport(EyeLeft, 1280, 720))
	assert.Equal(t, common.Viewport{X: 640, Y: 0, Width: 640, Height: 720}, EyeViewport(EyeRight, 1280, 720))
	assert.Equal(t, "left", EyeLeft.String())
	assert.Equal(t, "right", EyeRight.String())
}

func TestRegisterPipelines(t *testing.T) {
	r, rec := NewHeadlessRenderer()
	p := newTestPipeline(t, "screen")

	require.NoError(t, r.RegisterPipelines(p))
	assert.True(t, p.Handle().Valid())
	assert.Same(t, p, r.Pipeline("screen"))

	t.Run("same key reuses the linked pipeline", func(t *testing.T) {
		again := newTestPipeline(t, "screen")
		require.NoError(t, r.RegisterPipelines(again))
		assert.Equal(t, p.Handle(), again.Handle())
		assert.Equal(t, 1, rec.Count(OpRegisterPipeline))
	})
}

func TestCreateResources(t *testing.T) {
	r, rec := NewHeadlessRenderer()

	t.Run("vertex buffer keeps its bytes", func(t *testing.T) {
		data := []byte{1, 2, 3, 4}
		h, err := r.CreateVertexBuffer("pos", data)
		require.NoError(t, err)
		assert.Equal(t, data, rec.BufferContents(h))

		_, err = r.CreateVertexBuffer("empty", nil)
		assert.Error(t, err)
	})

	t.Run("uniform buffer has the requested size", func(t *testing.T) {
		var u model.GPUMeshUniform
		h, err := r.CreateUniformBuffer("u_mesh", uint64(u.Size()))
		require.NoError(t, err)
		assert.Len(t, rec.BufferContents(h), 208)

		_, err = r.CreateUniformBuffer("zero", 0)
		assert.Error(t, err)
	})

	t.Run("texture write replaces contents", func(t *testing.T) {
		h, err := r.CreateTexture("screen", common.TextureStagingData{Pixels: pixels(4, 2, 1), Width: 4, Height: 2})
		require.NoError(t, err)
		assert.Equal(t, pixels(4, 2, 1), rec.TextureContents(h))

		require.NoError(t, r.WriteTexture(h, common.TextureStagingData{Pixels: pixels(4, 2, 9), Width: 4, Height: 2}))
		assert.Equal(t, pixels(4, 2, 9), rec.TextureContents(h))

		err = r.WriteTexture(h, common.TextureStagingData{Pixels: pixels(2, 2, 9), Width: 2, Height: 2})
		assert.Error(t, err)

		err = r.WriteTexture(999, common.TextureStagingData{Pixels: pixels(4, 2, 9), Width: 4, Height: 2})
		assert.ErrorIs(t, err, ErrUnknownHandle)
	})

	t.Run("texture staging must match its size", func(t *testing.T) {
		_, err := r.CreateTexture("bad", common.TextureStagingData{Pixels: pixels(1, 1, 0), Width: 4, Height: 2})
		assert.Error(t, err)
	})
}

func TestCreateBindGroup(t *testing.T) {
	r, _ := NewHeadlessRenderer()
	p := newTestPipeline(t, "screen")
	require.NoError(t, r.RegisterPipelines(p))

	var u model.GPUMeshUniform
	ubo, err := r.CreateUniformBuffer("u_mesh", uint64(u.Size()))
	require.NoError(t, err)
	tex, err := r.CreateTexture("screen", common.TextureStagingData{Pixels: pixels(2, 2, 0), Width: 2, Height: 2})
	require.NoError(t, err)
	smp, err := r.CreateSampler("screen", common.SamplerStagingData{})
	require.NoError(t, err)

	t.Run("matching entries", func(t *testing.T) {
		bg, err := r.CreateBindGroup("uniforms", p, 0, []common.BindGroupEntry{{Binding: 0, Buffer: ubo}})
		require.NoError(t, err)
		assert.True(t, bg.Valid())

		bg, err = r.CreateBindGroup("texture", p, 1, []common.BindGroupEntry{
			{Binding: 0, Texture: tex},
			{Binding: 1, Sampler: smp},
		})
		require.NoError(t, err)
		assert.True(t, bg.Valid())
	})

	tests := []struct {
		name    string
		group   int
		entries []common.BindGroupEntry
	}{
		{"missing binding", 1, []common.BindGroupEntry{{Binding: 0, Texture: tex}}},
		{"wrong kind", 1, []common.BindGroupEntry{{Binding: 0, Sampler: smp}, {Binding: 1, Sampler: smp}}},
		{"duplicate binding", 0, []common.BindGroupEntry{{Binding: 0, Buffer: ubo}, {Binding: 0, Buffer: ubo}}},
		{"unknown group", 5, []common.BindGroupEntry{{Binding: 0, Buffer: ubo}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.CreateBindGroup("bad", p, tt.group, tt.entries)
			assert.Error(t, err)
		})
	}

	t.Run("unregistered pipeline", func(t *testing.T) {
		other := newTestPipeline(t, "other")
		_, err := r.CreateBindGroup("bad", other, 0, []common.BindGroupEntry{{Binding: 0, Buffer: ubo}})
		assert.ErrorIs(t, err, ErrUnknownHandle)
	})

	t.Run("unknown buffer handle", func(t *testing.T) {
		_, err := r.CreateBindGroup("bad", p, 0, []common.BindGroupEntry{{Binding: 0, Buffer: 4242}})
		assert.ErrorIs(t, err, ErrUnknownHandle)
	})
}

func TestFramePasses(t *testing.T) {
	r, rec := NewHeadlessRenderer(WithSurfaceSize(1000, 500))
	p := newTestPipeline(t, "screen")
	require.NoError(t, r.RegisterPipelines(p))
	vbo, err := r.CreateVertexBuffer("pos", make([]byte, 36))
	require.NoError(t, err)
	rec.Reset()

	require.NoError(t, r.BeginFrame())

	left, err := r.BeginEye(EyeLeft)
	require.NoError(t, err)
	assert.Equal(t, EyeLeft, left.Eye())
	require.NoError(t, left.SetPipeline(p.Handle()))
	require.NoError(t, left.SetVertexBuffer(0, vbo))
	require.NoError(t, left.Draw(3))

	_, err = r.BeginEye(EyeRight)
	assert.ErrorIs(t, err, ErrFrameState, "only one eye pass at a time")

	require.NoError(t, r.EndEye())
	assert.ErrorIs(t, left.Draw(3), ErrNoActivePass, "pass is closed after EndEye")

	right, err := r.BeginEye(EyeRight)
	require.NoError(t, err)
	require.NoError(t, right.Draw(3))
	require.NoError(t, r.EndEye())
	require.NoError(t, r.EndFrame())

	cmds := rec.Commands()
	var eyes []Command
	for _, c := range cmds {
		if c.Op == OpBeginEye {
			eyes = append(eyes, c)
		}
	}
	require.Len(t, eyes, 2)
	assert.False(t, eyes[0].LoadColor, "left eye clears color")
	assert.True(t, eyes[1].LoadColor, "right eye keeps the left eye's color")
	assert.Equal(t, common.Viewport{Width: 500, Height: 500}, eyes[0].Viewport)
	assert.Equal(t, common.Viewport{X: 500, Width: 500, Height: 500}, eyes[1].Viewport)
	assert.Equal(t, OpBeginFrame, cmds[0].Op)
	assert.Equal(t, OpEndFrame, cmds[len(cmds)-1].Op)
	assert.Equal(t, float32(1), r.EyeAspect())
}

func TestFrameStateErrors(t *testing.T) {
	r, _ := NewHeadlessRenderer()

	_, err := r.BeginEye(EyeLeft)
	assert.ErrorIs(t, err, ErrFrameState)
	assert.ErrorIs(t, r.EndEye(), ErrNoActivePass)
	assert.ErrorIs(t, r.EndFrame(), ErrFrameState)

	require.NoError(t, r.BeginFrame())
	assert.ErrorIs(t, r.BeginFrame(), ErrFrameState)

	_, err = r.BeginEye(EyeLeft)
	require.NoError(t, err)
	assert.ErrorIs(t, r.EndFrame(), ErrFrameState)

	t.Run("abort leaves the renderer ready for a new frame", func(t *testing.T) {
		r.AbortFrame()
		require.NoError(t, r.BeginFrame())
		_, err := r.BeginEye(EyeLeft)
		require.NoError(t, err)
		require.NoError(t, r.EndEye())
		require.NoError(t, r.EndFrame())
	})
}

func TestParsePresentMode(t *testing.T) {
	assert.Equal(t, PresentModeUncapped, ParsePresentMode("uncapped"))
	assert.Equal(t, PresentModeVSync, ParsePresentMode("vsync"))
	assert.Equal(t, PresentModeVSync, ParsePresentMode(""))
}

func TestResizeBetweenFrames(t *testing.T) {
	r, rec := NewHeadlessRenderer(WithSurfaceSize(1280, 720))
	rec.Reset()

	require.NoError(t, r.BeginFrame())
	_, err := r.BeginEye(EyeLeft)
	require.NoError(t, err)
	require.NoError(t, r.EndEye())

	assert.ErrorIs(t, r.Resize(800, 600), ErrFrameState, "both eyes of a frame share one surface")
	assert.ErrorIs(t, r.SetPresentMode(PresentModeUncapped), ErrFrameState)
	w, h := r.Size()
	assert.Equal(t, []int{1280, 720}, []int{w, h})

	_, err = r.BeginEye(EyeRight)
	require.NoError(t, err)
	require.NoError(t, r.EndEye())
	require.NoError(t, r.EndFrame())

	var eyes []common.Viewport
	for _, c := range rec.Commands() {
		assert.NotEqual(t, OpConfigureSurface, c.Op, "no reconfigure inside the frame")
		if c.Op == OpBeginEye {
			eyes = append(eyes, c.Viewport)
		}
	}
	require.Len(t, eyes, 2)
	assert.Equal(t, common.Viewport{Width: 640, Height: 720}, eyes[0])
	assert.Equal(t, common.Viewport{X: 640, Width: 640, Height: 720}, eyes[1])

	t.Run("accepted once the frame is presented", func(t *testing.T) {
		require.NoError(t, r.Resize(800, 600))
		assert.Equal(t, 1, rec.Count(OpConfigureSurface))
		assert.InDelta(t, 400.0/600.0, r.EyeAspect(), 1e-6)
		assert.NoError(t, r.Resize(0, 600), "an empty size is ignored")
		w, h := r.Size()
		assert.Equal(t, []int{800, 600}, []int{w, h})
	})
}
