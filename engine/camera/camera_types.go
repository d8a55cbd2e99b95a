package camera

import (
	"github.com/Carmen-Shannon/oxy-vrterm/common"
	"github.com/Carmen-Shannon/oxy-vrterm/engine/renderer"
)

// HeadTransform is the head pose sampled once per frame, together with the eye geometry that
// was current at sampling time. Both eyes of a frame are derived from the same HeadTransform.
type HeadTransform struct {
	// View is the head rotation as a column-major view matrix.
	View [16]float32

	// Yaw and Pitch are the head angles in radians the view was built from.
	Yaw, Pitch float32

	// IPD is the distance between the eyes in world units.
	IPD float32

	// Fov is the vertical field of view in radians and Aspect the per-eye aspect ratio.
	Fov, Aspect float32

	// Near and Far are the clip planes of the eye projections.
	Near, Far float32
}

// EyeParams derives one eye's view and projection from the sampled pose. The world shifts
// opposite to the eye by half the IPD.
//
// Parameters:
//   - eye: the eye to compute
//
// Returns:
//   - EyeParams: the eye view (offset × head) and the eye projection
func (h HeadTransform) EyeParams(eye renderer.Eye) EyeParams {
	offset := h.IPD / 2
	if eye == renderer.EyeRight {
		offset = -offset
	}
	var shift [16]float32
	common.Identity(shift[:])
	common.Translate(shift[:], offset, 0, 0)

	p := EyeParams{Eye: eye}
	common.Mul4(p.View[:], shift[:], h.View[:])
	common.Perspective(p.Projection[:], h.Fov, h.Aspect, h.Near, h.Far)
	return p
}

// EyeParams is what the head-tracking layer supplies ahead of each eye draw.
type EyeParams struct {
	Eye renderer.Eye

	// View is the eye view matrix: eye offset × head rotation.
	View [16]float32

	// Projection is the eye's near/far clipped perspective matrix.
	Projection [16]float32
}
