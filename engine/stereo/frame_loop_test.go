package stereo

import (
	"encoding/binary"
	"image"
	"math"
	"sync"
	"testing"

	"github.com/Carmen-Shannon/oxy-vrterm/common"
	"github.com/Carmen-Shannon/oxy-vrterm/engine/camera"
	"github.com/Carmen-Shannon/oxy-vrterm/engine/renderer"
	"github.com/Carmen-Shannon/oxy-vrterm/engine/scene"
	"github.com/Carmen-Shannon/oxy-vrterm/engine/texture"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	snapW = 16
	snapH = 12
)

// countingSource returns a snapshot filled with the number of the call that produced it.
type countingSource struct {
	mu    sync.Mutex
	calls int
	w, h  int
}

func (s *countingSource) RenderSnapshot() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	img := image.NewRGBA(image.Rect(0, 0, s.w, s.h))
	v := uint8(s.calls)
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func (s *countingSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// fixedTracker offsets each eye by ±0.5 along X with distinct projections.
type fixedTracker struct{}

func (fixedTracker) HeadTransform() HeadTransform {
	return HeadTransform{View: common.IdentityMatrix()}
}

func (fixedTracker) EyeParams(_ HeadTransform, eye Eye) EyeParams {
	p := EyeParams{Eye: eye, View: common.IdentityMatrix()}
	offset := float32(0.5)
	aspect := float32(1)
	if eye == renderer.EyeRight {
		offset = -0.5
		aspect = 2
	}
	common.Translate(p.View[:], offset, 0, 0)
	common.Perspective(p.Projection[:], math.Pi/2, aspect, 0.1, 100)
	return p
}

type harness struct {
	r      renderer.Renderer
	rec    *renderer.Recorder
	source *countingSource
	scene  scene.Scene
	loop   FrameLoop
	states []FrameState
}

func newHarness(t *testing.T, opts ...FrameLoopBuilderOption) *harness {
	t.Helper()
	return newHarnessWithConfig(t, DefaultFrameConfig(), opts...)
}

func newHarnessWithConfig(t *testing.T, cfg FrameConfig, opts ...FrameLoopBuilderOption) *harness {
	t.Helper()
	h := &harness{source: &countingSource{w: snapW, h: snapH}}
	h.r, h.rec = renderer.NewHeadlessRenderer()

	bridge := texture.NewBridge(h.r)
	tex, err := bridge.Create("screen", image.NewRGBA(image.Rect(0, 0, snapW, snapH)))
	require.NoError(t, err)
	h.scene, err = scene.NewScene(h.r, tex)
	require.NoError(t, err)

	opts = append(opts, WithStateObserver(func(s FrameState) { h.states = append(h.states, s) }))
	h.loop, err = NewFrameLoop(cfg, h.scene, bridge, h.source, h.r, opts...)
	require.NoError(t, err)
	h.rec.Reset()
	return h
}

func (h *harness) screenPixels() []byte {
	return h.rec.TextureContents(h.scene.Screen().Texture().Handle())
}

func TestDirtyFlag(t *testing.T) {
	var f DirtyFlag
	assert.False(t, f.IsSet())
	assert.False(t, f.TakeAndClear())

	var wg sync.WaitGroup
	for range 64 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.Mark()
		}()
	}
	wg.Wait()

	assert.True(t, f.IsSet())
	assert.True(t, f.TakeAndClear(), "all marks collapse into one take")
	assert.False(t, f.TakeAndClear())
	assert.False(t, f.IsSet())
}

func TestFrameConfig(t *testing.T) {
	c := DefaultFrameConfig()
	assert.Equal(t, [4]float32{0, 2, 0, 1}, c.LightWorld())
	assert.Equal(t, [3]float32{0, 0, 0.01}, c.CameraEye())
	assert.Equal(t, [3]float32{0, 0, 0}, c.CameraCenter())
	assert.Equal(t, [3]float32{0, 1, 0}, c.CameraUp())
	assert.Equal(t, float32(0.1), c.Near())
	assert.Equal(t, float32(100), c.Far())

	custom := NewFrameConfig(WithLightWorld(1, 2, 3), WithCameraEye(0, 1, 0), WithClipPlanes(0.5, 50))
	assert.Equal(t, [4]float32{1, 2, 3, 1}, custom.LightWorld())
	assert.Equal(t, [3]float32{0, 1, 0}, custom.CameraEye())
	assert.Equal(t, float32(0.5), custom.Near())
	assert.Equal(t, float32(50), custom.Far())
	assert.Equal(t, DefaultFrameConfig(), c, "options do not touch the defaults")
}

func TestDirtyFlagCoalescing(t *testing.T) {
	for _, n := range []int{0, 1, 3, 50} {
		h := newHarness(t)
		for range n {
			h.loop.Dirty().Mark()
		}
		require.NoError(t, h.loop.RenderFrame(fixedTracker{}))

		want := 0
		if n > 0 {
			want = 1
		}
		assert.Equal(t, want, h.rec.Count(renderer.OpWriteTexture), "%d marks", n)
		assert.Equal(t, want, h.source.Calls(), "%d marks", n)
		assert.False(t, h.loop.Dirty().IsSet())
	}
}

func TestChangeBurstUsesLatestSnapshot(t *testing.T) {
	h := newHarness(t)

	h.loop.Dirty().Mark()
	require.NoError(t, h.loop.RenderFrame(fixedTracker{}))
	require.Equal(t, 1, h.source.Calls())

	h.rec.Reset()
	for range 3 {
		h.loop.Dirty().Mark()
	}
	require.NoError(t, h.loop.RenderFrame(fixedTracker{}))

	assert.Equal(t, 2, h.source.Calls(), "snapshot is pulled at the tick, not per mark")
	assert.Equal(t, 1, h.rec.Count(renderer.OpWriteTexture))
	for _, b := range h.screenPixels() {
		require.Equal(t, uint8(2), b)
	}

	t.Run("upload happens before the first eye", func(t *testing.T) {
		var ops []renderer.CommandOp
		for _, c := range h.rec.Commands() {
			if c.Op == renderer.OpWriteTexture || c.Op == renderer.OpBeginEye {
				ops = append(ops, c.Op)
			}
		}
		assert.Equal(t, []renderer.CommandOp{renderer.OpWriteTexture, renderer.OpBeginEye, renderer.OpBeginEye}, ops)
	})
}

func TestIdleFrameKeepsTexture(t *testing.T) {
	h := newHarness(t)
	h.loop.Dirty().Mark()
	require.NoError(t, h.loop.RenderFrame(fixedTracker{}))
	before := h.screenPixels()

	h.rec.Reset()
	require.NoError(t, h.loop.RenderFrame(fixedTracker{}))

	assert.Equal(t, before, h.screenPixels())
	assert.Zero(t, h.rec.Count(renderer.OpWriteTexture))
	assert.Equal(t, 1, h.source.Calls())
	assert.Equal(t, uint64(2), h.loop.Frames())
}

func TestEyeOrder(t *testing.T) {
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "frames_total"})
	h := newHarness(t, WithFrameCounter(counter))
	h.loop.Dirty().Mark()
	require.NoError(t, h.loop.RenderFrame(fixedTracker{}))

	assert.Equal(t, []FrameState{
		StateHeadPoseReady,
		StateContentRefreshed,
		StateEyeDrawingLeft,
		StateEyeDrawingRight,
		StateFrameDone,
		StateIdle,
	}, h.states)
	assert.Equal(t, float64(1), testutil.ToFloat64(counter))

	var eyes []renderer.Command
	for _, c := range h.rec.Commands() {
		if c.Op == renderer.OpBeginEye {
			eyes = append(eyes, c)
		}
	}
	require.Len(t, eyes, 2)
	assert.Equal(t, uint32(renderer.EyeLeft), eyes[0].Index)
	assert.Equal(t, uint32(renderer.EyeRight), eyes[1].Index)

	t.Run("idle frame skips the refresh state", func(t *testing.T) {
		h.states = nil
		require.NoError(t, h.loop.RenderFrame(fixedTracker{}))
		assert.Equal(t, []FrameState{
			StateHeadPoseReady,
			StateEyeDrawingLeft,
			StateEyeDrawingRight,
			StateFrameDone,
			StateIdle,
		}, h.states)
	})
}

func TestEyeOrderViolations(t *testing.T) {
	h := newHarness(t)
	tr := fixedTracker{}

	assert.ErrorIs(t, h.loop.OnDrawEye(tr.EyeParams(HeadTransform{}, renderer.EyeLeft)), ErrEyeOrder, "no frame started")
	assert.ErrorIs(t, h.loop.OnFinishFrame(), ErrEyeOrder)

	require.NoError(t, h.loop.OnNewFrame(tr.HeadTransform()))
	assert.ErrorIs(t, h.loop.OnNewFrame(tr.HeadTransform()), ErrFrameInProgress)
	assert.ErrorIs(t, h.loop.OnDrawEye(tr.EyeParams(HeadTransform{}, renderer.EyeRight)), ErrEyeOrder, "right before left")
	assert.Equal(t, StateHeadPoseReady, h.loop.State())

	require.NoError(t, h.loop.OnDrawEye(tr.EyeParams(HeadTransform{}, renderer.EyeLeft)))
	assert.ErrorIs(t, h.loop.OnDrawEye(tr.EyeParams(HeadTransform{}, renderer.EyeLeft)), ErrEyeOrder, "left twice")
	assert.ErrorIs(t, h.loop.OnFinishFrame(), ErrEyeOrder, "right eye missing")

	require.NoError(t, h.loop.OnDrawEye(tr.EyeParams(HeadTransform{}, renderer.EyeRight)))
	require.NoError(t, h.loop.OnFinishFrame())
	assert.Equal(t, StateIdle, h.loop.State())
}

func decodeVec3(b []byte, offset int) [3]float32 {
	var v [3]float32
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[offset+i*4:]))
	}
	return v
}

func decodeMat(b []byte, offset int) [16]float32 {
	var m [16]float32
	for i := range m {
		m[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[offset+i*4:]))
	}
	return m
}

func TestPerEyeMatrices(t *testing.T) {
	h := newHarness(t)
	tr := fixedTracker{}
	require.NoError(t, h.loop.RenderFrame(tr))

	// uniform writes in draw order: left floor, left screen, right floor, right screen
	var writes [][]byte
	for _, c := range h.rec.Commands() {
		if c.Op == renderer.OpWriteBuffer {
			writes = append(writes, c.Data)
		}
	}
	require.Len(t, writes, 4)

	cam := camera.NewCamera()
	cameraView := cam.ViewMatrix()
	floorModel := h.scene.Floor().ModelMatrix()
	lightWorld := DefaultFrameConfig().LightWorld()

	for i, eye := range []Eye{renderer.EyeLeft, renderer.EyeRight} {
		p := tr.EyeParams(HeadTransform{}, eye)
		var view, mv, mvp [16]float32
		common.Mul4(view[:], p.View[:], cameraView[:])
		common.Mul4(mv[:], view[:], floorModel[:])
		common.Mul4(mvp[:], p.Projection[:], mv[:])
		var light [4]float32
		common.MulVec4(light[:], view[:], lightWorld[:])

		floor := writes[i*2]
		screen := writes[i*2+1]
		assert.Equal(t, floorModel, decodeMat(floor, 0), "%s model", eye)
		assert.Equal(t, mv, decodeMat(floor, 64), "%s model-view", eye)
		assert.Equal(t, mvp, decodeMat(floor, 128), "%s mvp", eye)
		assert.Equal(t, [3]float32{light[0], light[1], light[2]}, decodeVec3(floor, 192), "%s light", eye)
		assert.Equal(t, decodeVec3(floor, 192), decodeVec3(screen, 192), "%s: both renderables share the light", eye)
	}
	assert.NotEqual(t, writes[0], writes[2], "eyes use distinct views")
}

func TestRefreshFailureKeepsFlag(t *testing.T) {
	h := newHarness(t)
	h.source.w = snapW * 2
	h.loop.Dirty().Mark()

	err := h.loop.RenderFrame(fixedTracker{})
	require.Error(t, err)
	assert.Equal(t, StateIdle, h.loop.State())
	assert.True(t, h.loop.Dirty().IsSet(), "stale content is refreshed on the next frame")

	h.source.w = snapW
	require.NoError(t, h.loop.RenderFrame(fixedTracker{}))
	assert.False(t, h.loop.Dirty().IsSet())
	assert.Equal(t, 1, h.rec.Count(renderer.OpWriteTexture))
}

func TestDrawFailureAbortsFrame(t *testing.T) {
	h := newHarness(t)
	h.r.Close()

	err := h.loop.RenderFrame(fixedTracker{})
	assert.ErrorIs(t, err, renderer.ErrUnknownHandle)
	assert.Equal(t, StateIdle, h.loop.State())
	assert.Zero(t, h.loop.Frames())

	t.Run("next frame starts cleanly", func(t *testing.T) {
		err := h.loop.RenderFrame(fixedTracker{})
		assert.ErrorIs(t, err, renderer.ErrUnknownHandle)
		assert.NotErrorIs(t, err, ErrFrameInProgress)
	})
}

func TestNewFrameLoopRequiresCollaborators(t *testing.T) {
	h := newHarness(t)
	bridge := texture.NewBridge(h.r)
	_, err := NewFrameLoop(DefaultFrameConfig(), nil, bridge, h.source, h.r)
	assert.Error(t, err)
	_, err = NewFrameLoop(DefaultFrameConfig(), h.scene, nil, h.source, h.r)
	assert.Error(t, err)
	_, err = NewFrameLoop(DefaultFrameConfig(), h.scene, bridge, nil, h.r)
	assert.Error(t, err)
	_, err = NewFrameLoop(DefaultFrameConfig(), h.scene, bridge, h.source, nil)
	assert.Error(t, err)
}

// turningTracker turns the head and changes the aspect right after handing out the left eye, as
// window input landing between the two eye draws would.
type turningTracker struct {
	camera.HeadController
	heads []HeadTransform
}

func (tr *turningTracker) EyeParams(head HeadTransform, eye Eye) EyeParams {
	tr.heads = append(tr.heads, head)
	p := tr.HeadController.EyeParams(head, eye)
	if eye == renderer.EyeLeft {
		tr.Look(300, 0)
		tr.SetAspect(3)
	}
	return p
}

func TestEyesShareOneHeadSample(t *testing.T) {
	h := newHarnessWithConfig(t, NewFrameConfig(WithClipPlanes(0.5, 50)))
	tr := &turningTracker{HeadController: camera.NewHeadController(camera.WithMouseSensitivity(0.01))}

	require.NoError(t, h.loop.RenderFrame(tr))

	require.Len(t, tr.heads, 2)
	head := tr.heads[0]
	assert.Equal(t, head, tr.heads[1], "both eyes derive from one sample")
	assert.Equal(t, head, h.loop.Head())
	assert.Zero(t, head.Yaw)
	assert.Equal(t, float32(1), head.Aspect)

	t.Run("clip planes come from the frame config", func(t *testing.T) {
		assert.Equal(t, float32(0.5), head.Near)
		assert.Equal(t, float32(50), head.Far)
		var want [16]float32
		common.Perspective(want[:], head.Fov, head.Aspect, 0.5, 50)
		assert.Equal(t, want, head.EyeParams(renderer.EyeRight).Projection)
	})

	var writes [][]byte
	for _, c := range h.rec.Commands() {
		if c.Op == renderer.OpWriteBuffer {
			writes = append(writes, c.Data)
		}
	}
	require.Len(t, writes, 4)

	cameraView := camera.NewCamera().ViewMatrix()
	floorModel := h.scene.Floor().ModelMatrix()
	for i, eye := range []Eye{renderer.EyeLeft, renderer.EyeRight} {
		p := head.EyeParams(eye)
		var view, mv, mvp [16]float32
		common.Mul4(view[:], p.View[:], cameraView[:])
		common.Mul4(mv[:], view[:], floorModel[:])
		common.Mul4(mvp[:], p.Projection[:], mv[:])
		assert.Equal(t, mvp, decodeMat(writes[i*2], 128), "%s mvp", eye)
	}

	t.Run("the turn lands on the next frame", func(t *testing.T) {
		require.NoError(t, h.loop.RenderFrame(tr))
		require.Len(t, tr.heads, 4)
		assert.InDelta(t, 3, tr.heads[2].Yaw, 1e-5)
		assert.Equal(t, float32(3), tr.heads[2].Aspect)
		assert.Equal(t, tr.heads[2], tr.heads[3])
	})
}
