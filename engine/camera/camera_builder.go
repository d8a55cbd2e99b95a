package camera

type CameraBuilderOption func(*cameraImpl)

// WithEye sets the camera position.
//
// Parameters:
//   - x, y, z: world-space camera position
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera position
func WithEye(x, y, z float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.eye = [3]float32{x, y, z}
	}
}

// WithCenter sets the point the camera looks at.
//
// Parameters:
//   - x, y, z: world-space look-at point
//
// Returns:
//   - CameraBuilderOption: a function that sets the look-at point
func WithCenter(x, y, z float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.center = [3]float32{x, y, z}
	}
}

// WithUp sets the camera's up vector.
//
// Parameters:
//   - x, y, z: up vector components
//
// Returns:
//   - CameraBuilderOption: a function that sets the camera's up vector
func WithUp(x, y, z float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.up = [3]float32{x, y, z}
	}
}
