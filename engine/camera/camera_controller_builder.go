package camera

// HeadControllerOption is a functional option for configuring a HeadController.
type HeadControllerOption func(*headControllerImpl)

// WithIPD sets the interpupillary distance.
//
// Parameters:
//   - ipd: distance between the eyes in world units; non-positive values are ignored
//
// Returns:
//   - HeadControllerOption: functional option to set the IPD
func WithIPD(ipd float32) HeadControllerOption {
	return func(hc *headControllerImpl) {
		if ipd > 0 {
			hc.ipd = ipd
		}
	}
}

// WithFov sets the vertical field of view of each eye.
//
// Parameters:
//   - fov: field of view in radians; non-positive values are ignored
//
// Returns:
//   - HeadControllerOption: functional option to set the field of view
func WithFov(fov float32) HeadControllerOption {
	return func(hc *headControllerImpl) {
		if fov > 0 {
			hc.fov = fov
		}
	}
}

// WithAspect sets the initial per-eye aspect ratio.
//
// Parameters:
//   - aspect: half surface width divided by height
//
// Returns:
//   - HeadControllerOption: functional option to set the aspect ratio
func WithAspect(aspect float32) HeadControllerOption {
	return func(hc *headControllerImpl) {
		if aspect > 0 {
			hc.aspect = aspect
		}
	}
}

// WithClipPlanes sets the near and far clip planes of the eye projections.
//
// Parameters:
//   - near: near plane distance
//   - far: far plane distance
//
// Returns:
//   - HeadControllerOption: functional option to set the clip planes
func WithClipPlanes(near, far float32) HeadControllerOption {
	return func(hc *headControllerImpl) {
		hc.near = near
		hc.far = far
	}
}

// WithMouseSensitivity sets the radians turned per unit of mouse motion.
//
// Parameters:
//   - sensitivity: the multiplier for Look deltas
//
// Returns:
//   - HeadControllerOption: functional option to set the mouse sensitivity
func WithMouseSensitivity(sensitivity float32) HeadControllerOption {
	return func(hc *headControllerImpl) {
		hc.mouseSensitivity = sensitivity
	}
}
