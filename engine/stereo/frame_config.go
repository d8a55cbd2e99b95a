package stereo

// FrameConfig holds the constants a frame is rendered with: the world light, the world camera
// placement and the clip planes. It is an immutable value; options apply only at construction.
type FrameConfig struct {
	lightWorld   [4]float32
	cameraEye    [3]float32
	cameraCenter [3]float32
	cameraUp     [3]float32
	near, far    float32
}

// FrameConfigOption configures a FrameConfig during construction.
type FrameConfigOption func(*FrameConfig)

// DefaultFrameConfig returns the standard constants: a point light at (0, 2, 0), the camera at
// (0, 0, 0.01) looking at the origin with +Y up, and clip planes at 0.1 and 100.
//
// Returns:
//   - FrameConfig: the default configuration
func DefaultFrameConfig() FrameConfig {
	return FrameConfig{
		lightWorld:   [4]float32{0, 2, 0, 1},
		cameraEye:    [3]float32{0, 0, 0.01},
		cameraCenter: [3]float32{0, 0, 0},
		cameraUp:     [3]float32{0, 1, 0},
		near:         0.1,
		far:          100,
	}
}

// NewFrameConfig returns the default configuration with options applied.
//
// Parameters:
//   - opts: variadic list of FrameConfigOption functions
//
// Returns:
//   - FrameConfig: the configuration
func NewFrameConfig(opts ...FrameConfigOption) FrameConfig {
	c := DefaultFrameConfig()
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithLightWorld sets the world-space point light position.
//
// Parameters:
//   - x, y, z: light position
//
// Returns:
//   - FrameConfigOption: option function to apply
func WithLightWorld(x, y, z float32) FrameConfigOption {
	return func(c *FrameConfig) {
		c.lightWorld = [4]float32{x, y, z, 1}
	}
}

// WithCameraEye sets the world camera position.
//
// Parameters:
//   - x, y, z: camera position
//
// Returns:
//   - FrameConfigOption: option function to apply
func WithCameraEye(x, y, z float32) FrameConfigOption {
	return func(c *FrameConfig) {
		c.cameraEye = [3]float32{x, y, z}
	}
}

// WithClipPlanes sets the near and far clip planes.
//
// Parameters:
//   - near: near plane distance
//   - far: far plane distance
//
// Returns:
//   - FrameConfigOption: option function to apply
func WithClipPlanes(near, far float32) FrameConfigOption {
	return func(c *FrameConfig) {
		c.near = near
		c.far = far
	}
}

// LightWorld returns the homogeneous world-space light position.
func (c FrameConfig) LightWorld() [4]float32 { return c.lightWorld }

// CameraEye returns the world camera position.
func (c FrameConfig) CameraEye() [3]float32 { return c.cameraEye }

// CameraCenter returns the world camera look-at point.
func (c FrameConfig) CameraCenter() [3]float32 { return c.cameraCenter }

// CameraUp returns the world camera up vector.
func (c FrameConfig) CameraUp() [3]float32 { return c.cameraUp }

// Near returns the near clip plane distance.
func (c FrameConfig) Near() float32 { return c.near }

// Far returns the far clip plane distance.
func (c FrameConfig) Far() float32 { return c.far }
