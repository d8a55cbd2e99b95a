package camera

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-vrterm/common"
)

type cameraImpl struct {
	mu *sync.Mutex

	eye    [3]float32
	center [3]float32
	up     [3]float32

	viewMatrix [16]float32
	updates    uint64
}

// Camera is the world camera every eye view is composed with. It holds a look-at placement and
// recomputes its view matrix on Update. The placement is fixed by default, but Update is still
// called once per frame so a moving camera needs no frame loop changes.
type Camera interface {
	// Eye returns the camera position.
	//
	// Returns:
	//   - x, y, z: world-space camera position
	Eye() (x, y, z float32)

	// Center returns the look-at point.
	//
	// Returns:
	//   - x, y, z: world-space look-at point
	Center() (x, y, z float32)

	// Up returns the camera's up vector.
	//
	// Returns:
	//   - x, y, z: up vector components
	Up() (x, y, z float32)

	// ViewMatrix returns the view matrix computed by the last Update.
	//
	// Returns:
	//   - [16]float32: the column-major look-at matrix
	ViewMatrix() [16]float32

	// Updates returns how many times the view matrix has been recomputed.
	//
	// Returns:
	//   - uint64: the number of Update calls, including the one made at construction
	Updates() uint64

	// Update recomputes the look-at matrix from the current placement.
	Update()

	// SetEye moves the camera. The new position is picked up by the next Update.
	//
	// Parameters:
	//   - x, y, z: world-space camera position
	SetEye(x, y, z float32)
}

var _ Camera = &cameraImpl{}

// NewCamera creates a Camera at (0, 0, 0.01) looking at the origin with +Y up, and computes its
// initial view matrix.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:     &sync.Mutex{},
		eye:    [3]float32{0, 0, 0.01},
		center: [3]float32{0, 0, 0},
		up:     [3]float32{0, 1, 0},
	}
	for _, option := range options {
		option(c)
	}
	c.updateMatrix()
	return c
}

func (c *cameraImpl) Eye() (x, y, z float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.eye[0], c.eye[1], c.eye[2]
}

func (c *cameraImpl) Center() (x, y, z float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.center[0], c.center[1], c.center[2]
}

func (c *cameraImpl) Up() (x, y, z float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.up[0], c.up[1], c.up[2]
}

func (c *cameraImpl) ViewMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewMatrix
}

func (c *cameraImpl) Updates() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updates
}

func (c *cameraImpl) Update() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updateMatrix()
}

func (c *cameraImpl) SetEye(x, y, z float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.eye = [3]float32{x, y, z}
}

// updateMatrix recomputes the look-at matrix. Caller must hold the mutex.
func (c *cameraImpl) updateMatrix() {
	common.LookAt(c.viewMatrix[:],
		c.eye[0], c.eye[1], c.eye[2],
		c.center[0], c.center[1], c.center[2],
		c.up[0], c.up[1], c.up[2],
	)
	c.updates++
}
