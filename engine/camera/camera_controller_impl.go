package camera

import (
	"math"
	"sync"

	"github.com/Carmen-Shannon/oxy-vrterm/common"
	"github.com/Carmen-Shannon/oxy-vrterm/engine/renderer"
)

// headControllerImpl is the desktop implementation of HeadController.
type headControllerImpl struct {
	mu *sync.Mutex

	yaw   float32
	pitch float32

	ipd    float32
	fov    float32
	aspect float32
	near   float32
	far    float32

	mouseSensitivity float32
	maxPitch         float32
}

var _ HeadController = &headControllerImpl{}

// NewHeadController creates a desktop head controller facing -Z with a 64mm IPD, a 90° field
// of view and clip planes at 0.1 and 100.
//
// Parameters:
//   - options: functional options to configure the controller
//
// Returns:
//   - HeadController: the newly created controller
func NewHeadController(options ...HeadControllerOption) HeadController {
	hc := &headControllerImpl{
		mu:               &sync.Mutex{},
		ipd:              0.064,
		fov:              float32(math.Pi / 2),
		aspect:           1.0,
		near:             0.1,
		far:              100.0,
		mouseSensitivity: 0.005,
		maxPitch:         float32(math.Pi/2 - 0.01),
	}
	for _, option := range options {
		option(hc)
	}
	return hc
}

// headView builds the head rotation from yaw and pitch. Caller must hold the mutex.
func (hc *headControllerImpl) headView() [16]float32 {
	cosPitch := float32(math.Cos(float64(hc.pitch)))
	fx := float32(math.Sin(float64(hc.yaw))) * cosPitch
	fy := float32(math.Sin(float64(hc.pitch)))
	fz := -float32(math.Cos(float64(hc.yaw))) * cosPitch

	var view [16]float32
	common.LookAt(view[:], 0, 0, 0, fx, fy, fz, 0, 1, 0)
	return view
}

func (hc *headControllerImpl) HeadTransform() HeadTransform {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	return HeadTransform{
		View:   hc.headView(),
		Yaw:    hc.yaw,
		Pitch:  hc.pitch,
		IPD:    hc.ipd,
		Fov:    hc.fov,
		Aspect: hc.aspect,
		Near:   hc.near,
		Far:    hc.far,
	}
}

func (hc *headControllerImpl) EyeParams(head HeadTransform, eye renderer.Eye) EyeParams {
	return head.EyeParams(eye)
}

func (hc *headControllerImpl) Look(dx, dy float32) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.yaw += dx * hc.mouseSensitivity
	hc.pitch -= dy * hc.mouseSensitivity
	hc.pitch = max(-hc.maxPitch, min(hc.maxPitch, hc.pitch))
	hc.yaw = float32(math.Remainder(float64(hc.yaw), 2*math.Pi))
}

func (hc *headControllerImpl) Recenter() {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.yaw = 0
	hc.pitch = 0
}

func (hc *headControllerImpl) Yaw() float32 {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	return hc.yaw
}

func (hc *headControllerImpl) Pitch() float32 {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	return hc.pitch
}

func (hc *headControllerImpl) IPD() float32 {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	return hc.ipd
}

func (hc *headControllerImpl) SetAspect(aspect float32) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	if aspect > 0 {
		hc.aspect = aspect
	}
}
