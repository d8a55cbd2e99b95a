package camera

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-vrterm/common"
	"github.com/Carmen-Shannon/oxy-vrterm/engine/renderer"
	"github.com/stretchr/testify/assert"
)

func assertMatrixInDelta(t *testing.T, want, got [16]float32) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-5, "element %d", i)
	}
}

func TestCameraDefaults(t *testing.T) {
	c := NewCamera()

	x, y, z := c.Eye()
	assert.Equal(t, [3]float32{0, 0, 0.01}, [3]float32{x, y, z})
	x, y, z = c.Center()
	assert.Equal(t, [3]float32{0, 0, 0}, [3]float32{x, y, z})
	x, y, z = c.Up()
	assert.Equal(t, [3]float32{0, 1, 0}, [3]float32{x, y, z})

	want := common.IdentityMatrix()
	want[14] = -0.01
	assertMatrixInDelta(t, want, c.ViewMatrix())
	assert.Equal(t, uint64(1), c.Updates())
}

func TestCameraUpdate(t *testing.T) {
	c := NewCamera()
	before := c.ViewMatrix()

	t.Run("fixed camera recomputes the same matrix", func(t *testing.T) {
		c.Update()
		c.Update()
		assert.Equal(t, before, c.ViewMatrix())
		assert.Equal(t, uint64(3), c.Updates())
	})

	t.Run("moved camera is picked up on the next update", func(t *testing.T) {
		c.SetEye(0, 0, 5)
		assert.Equal(t, before, c.ViewMatrix())
		c.Update()
		assert.InDelta(t, -5, c.ViewMatrix()[14], 1e-5)
	})
}

func TestCameraOptions(t *testing.T) {
	c := NewCamera(WithEye(0, 10, 0), WithCenter(0, 0, 0), WithUp(0, 0, -1))
	v := c.ViewMatrix()
	// looking straight down: world -Y maps to view -Z
	var out [4]float32
	common.MulVec4(out[:], v[:], []float32{0, 0, 0, 1})
	assert.InDelta(t, -10, out[2], 1e-5)
}

func TestHeadControllerRecentered(t *testing.T) {
	hc := NewHeadController()

	head := hc.HeadTransform()
	assertMatrixInDelta(t, common.IdentityMatrix(), head.View)
	assert.Zero(t, head.Yaw)
	assert.Zero(t, head.Pitch)

	left := hc.EyeParams(head, renderer.EyeLeft)
	right := hc.EyeParams(head, renderer.EyeRight)
	assert.Equal(t, renderer.EyeLeft, left.Eye)
	assert.Equal(t, renderer.EyeRight, right.Eye)
	assert.InDelta(t, 0.032, left.View[12], 1e-6)
	assert.InDelta(t, -0.032, right.View[12], 1e-6)
	assert.InDelta(t, hc.IPD(), left.View[12]-right.View[12], 1e-6)
	assert.Equal(t, left.Projection, right.Projection)
}

func TestHeadControllerLook(t *testing.T) {
	hc := NewHeadController(WithMouseSensitivity(0.01))

	hc.Look(50, 0)
	assert.InDelta(t, 0.5, hc.Yaw(), 1e-6)

	t.Run("looking right moves -Z content to the left of view", func(t *testing.T) {
		head := hc.HeadTransform()
		var out [4]float32
		common.MulVec4(out[:], head.View[:], []float32{0, 0, -10, 1})
		assert.Less(t, out[0], float32(0))
	})

	t.Run("pitch is clamped", func(t *testing.T) {
		hc.Look(0, -1e6)
		assert.InDelta(t, math.Pi/2-0.01, hc.Pitch(), 1e-6)
		hc.Look(0, 2e6)
		assert.InDelta(t, -(math.Pi/2 - 0.01), hc.Pitch(), 1e-6)
	})

	t.Run("recenter faces -Z again", func(t *testing.T) {
		hc.Recenter()
		assert.Zero(t, hc.Yaw())
		assert.Zero(t, hc.Pitch())
		assertMatrixInDelta(t, common.IdentityMatrix(), hc.HeadTransform().View)
	})
}

func TestHeadControllerProjection(t *testing.T) {
	hc := NewHeadController(WithFov(float32(math.Pi/2)), WithClipPlanes(0.5, 50), WithIPD(0.07))
	hc.SetAspect(2)

	var want [16]float32
	common.Perspective(want[:], float32(math.Pi/2), 2, 0.5, 50)
	head := hc.HeadTransform()
	assert.Equal(t, float32(0.5), head.Near)
	assert.Equal(t, float32(50), head.Far)
	assert.Equal(t, want, hc.EyeParams(head, renderer.EyeLeft).Projection)
	assert.InDelta(t, 0.07, hc.IPD(), 1e-7)

	hc.SetAspect(0)
	assert.Equal(t, want, hc.EyeParams(hc.HeadTransform(), renderer.EyeLeft).Projection, "non-positive aspect is ignored")
}

func TestHeadControllerSampleIsStable(t *testing.T) {
	hc := NewHeadController(WithMouseSensitivity(0.01))

	head := hc.HeadTransform()
	left := hc.EyeParams(head, renderer.EyeLeft)
	hc.Look(300, 0)
	hc.SetAspect(3)
	right := hc.EyeParams(head, renderer.EyeRight)

	assert.Equal(t, left.Projection, right.Projection)
	// the eyes differ only by the IPD translation
	want := left.View
	want[12] -= head.IPD
	assertMatrixInDelta(t, want, right.View)

	t.Run("the next sample sees the turn", func(t *testing.T) {
		next := hc.HeadTransform()
		assert.InDelta(t, 3, next.Yaw, 1e-5)
		assert.Equal(t, float32(3), next.Aspect)
		assert.NotEqual(t, head.View, next.View)
	})
}
