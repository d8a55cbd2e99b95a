package camera

import "github.com/Carmen-Shannon/oxy-vrterm/engine/renderer"

// HeadController stands in for a head-mounted display's tracker on the desktop. Mouse motion
// turns the head, and each eye is offset by half the interpupillary distance. It satisfies the
// frame loop's head tracker contract.
type HeadController interface {
	// HeadTransform samples the current head pose along with the IPD, field of view, aspect
	// ratio and clip planes. Later Look or SetAspect calls do not change a sampled value.
	//
	// Returns:
	//   - HeadTransform: the head pose for this frame
	HeadTransform() HeadTransform

	// EyeParams returns the view and projection for one eye of a sampled head pose. It reads
	// nothing but head, so both eyes of a frame agree even if the head moves in between.
	//
	// Parameters:
	//   - head: the pose sampled for the frame
	//   - eye: the eye to compute
	//
	// Returns:
	//   - EyeParams: the eye view (offset × head) and the eye projection
	EyeParams(head HeadTransform, eye renderer.Eye) EyeParams

	// Look turns the head by a mouse delta scaled by the mouse sensitivity. Pitch is clamped
	// just short of straight up and straight down.
	//
	// Parameters:
	//   - dx: horizontal delta, positive turns right
	//   - dy: vertical delta, positive looks down
	Look(dx, dy float32)

	// Recenter resets yaw and pitch to face -Z.
	Recenter()

	// Yaw returns the head yaw in radians.
	//
	// Returns:
	//   - float32: yaw, positive to the right
	Yaw() float32

	// Pitch returns the head pitch in radians.
	//
	// Returns:
	//   - float32: pitch, positive up
	Pitch() float32

	// IPD returns the interpupillary distance in world units.
	//
	// Returns:
	//   - float32: the distance between the two eyes
	IPD() float32

	// SetAspect sets the per-eye aspect ratio used by the projection.
	//
	// Parameters:
	//   - aspect: half surface width divided by height
	SetAspect(aspect float32)
}
