package stereo

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/oxy-vrterm/common"
	"github.com/Carmen-Shannon/oxy-vrterm/engine/camera"
	"github.com/Carmen-Shannon/oxy-vrterm/engine/light"
	"github.com/Carmen-Shannon/oxy-vrterm/engine/renderer"
	"github.com/Carmen-Shannon/oxy-vrterm/engine/scene"
	"github.com/Carmen-Shannon/oxy-vrterm/engine/texture"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type frameLoop struct {
	mu *sync.Mutex

	cfg    FrameConfig
	scene  scene.Scene
	bridge texture.Bridge
	source ContentSource
	target renderer.Renderer

	camera camera.Camera
	light  light.Light
	dirty  *DirtyFlag

	state    FrameState
	head     HeadTransform
	frames   uint64
	observer func(FrameState)

	logger       *zap.Logger
	frameCounter prometheus.Counter
}

// FrameLoop renders one stereo frame at a time: the head pose and a conditional content refresh,
// then the left eye, the right eye and the present. It runs on the render goroutine only; the
// dirty flag is the one thing other goroutines touch.
type FrameLoop interface {
	// OnNewFrame starts a frame. The camera is recomputed and, if the dirty flag was set, the
	// flag is cleared and exactly one snapshot is fetched and uploaded to the screen texture.
	//
	// Parameters:
	//   - head: the head pose for this frame
	//
	// Returns:
	//   - error: ErrFrameInProgress if the previous frame is unfinished, or the upload/acquire error
	OnNewFrame(head HeadTransform) error

	// OnDrawEye draws one eye: view = eyeView × camera, lightEye = view × lightWorld, then the
	// floor and the screen. The left eye must come first, then the right.
	//
	// Parameters:
	//   - eye: the eye's view and projection
	//
	// Returns:
	//   - error: ErrEyeOrder for an out-of-order eye, or the first draw error
	OnDrawEye(eye EyeParams) error

	// OnFinishFrame presents the frame and returns the loop to StateIdle.
	//
	// Returns:
	//   - error: ErrEyeOrder if the right eye has not been drawn, or the present error
	OnFinishFrame() error

	// RenderFrame drives one whole frame from a head tracker. The pose is sampled once, given
	// the configured clip planes, and both eyes are derived from that one sample.
	//
	// Parameters:
	//   - tracker: the head-tracking layer
	//
	// Returns:
	//   - error: the first error of the frame; the loop is left in StateIdle
	RenderFrame(tracker HeadTracker) error

	// State returns the current state.
	State() FrameState

	// Head returns the head pose the current or last frame was started with.
	//
	// Returns:
	//   - HeadTransform: the sampled pose, with the clip planes of the frame config when the
	//     frame was driven by RenderFrame
	Head() HeadTransform

	// Dirty returns the flag content producers mark.
	//
	// Returns:
	//   - *DirtyFlag: the shared coalescing flag
	Dirty() *DirtyFlag

	// Config returns the constants the loop was built with.
	Config() FrameConfig

	// Frames returns the number of frames presented.
	Frames() uint64
}

var _ FrameLoop = &frameLoop{}

// NewFrameLoop creates a frame loop in StateIdle. The world camera and light are built from cfg.
//
// Parameters:
//   - cfg: the frame constants
//   - sc: the scene to draw
//   - bridge: the texture bridge that uploads snapshots
//   - source: the content source snapshots are pulled from
//   - target: the renderer whose frames and eye passes are driven
//   - opts: variadic list of FrameLoopBuilderOption functions
//
// Returns:
//   - FrameLoop: the frame loop
//   - error: if a collaborator is missing
func NewFrameLoop(cfg FrameConfig, sc scene.Scene, bridge texture.Bridge, source ContentSource, target renderer.Renderer, opts ...FrameLoopBuilderOption) (FrameLoop, error) {
	switch {
	case sc == nil:
		return nil, errors.New("frame loop: nil scene")
	case bridge == nil:
		return nil, errors.New("frame loop: nil texture bridge")
	case source == nil:
		return nil, errors.New("frame loop: nil content source")
	case target == nil:
		return nil, errors.New("frame loop: nil renderer")
	}

	eye, center, up := cfg.CameraEye(), cfg.CameraCenter(), cfg.CameraUp()
	lw := cfg.LightWorld()
	lightType := light.LightTypePoint
	if lw[3] == 0 {
		lightType = light.LightTypeDirectional
	}

	fl := &frameLoop{
		mu:     &sync.Mutex{},
		cfg:    cfg,
		scene:  sc,
		bridge: bridge,
		source: source,
		target: target,
		camera: camera.NewCamera(
			camera.WithEye(eye[0], eye[1], eye[2]),
			camera.WithCenter(center[0], center[1], center[2]),
			camera.WithUp(up[0], up[1], up[2]),
		),
		light:  light.NewLight(light.WithType(lightType), light.WithPosition(lw[0], lw[1], lw[2])),
		dirty:  &DirtyFlag{},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(fl)
	}
	return fl, nil
}

// transition moves to a new state. Caller must hold the mutex.
func (fl *frameLoop) transition(to FrameState) {
	fl.state = to
	if fl.observer != nil {
		fl.observer(to)
	}
}

// abort drops the frame after an error. Caller must hold the mutex.
func (fl *frameLoop) abort() {
	fl.logger.Warn("frame aborted", zap.Stringer("state", fl.state), zap.Uint64("frame", fl.frames))
	if fl.state != StateIdle {
		fl.target.AbortFrame()
	}
	fl.transition(StateIdle)
}

func (fl *frameLoop) OnNewFrame(head HeadTransform) error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.state != StateIdle {
		return fmt.Errorf("new frame in state %s: %w", fl.state, ErrFrameInProgress)
	}

	fl.camera.Update()
	fl.head = head
	fl.transition(StateHeadPoseReady)

	if fl.dirty.TakeAndClear() {
		snapshot := fl.source.RenderSnapshot()
		if err := fl.bridge.Update(fl.scene.Screen().Texture(), snapshot); err != nil {
			// the content is still stale
			fl.dirty.Mark()
			fl.transition(StateIdle)
			return fmt.Errorf("refresh screen texture: %w", err)
		}
		fl.logger.Debug("screen refreshed",
			zap.Uint64("frame", fl.frames),
			zap.Int("width", snapshot.Rect.Dx()),
			zap.Int("height", snapshot.Rect.Dy()),
		)
		fl.transition(StateContentRefreshed)
	}

	if err := fl.target.BeginFrame(); err != nil {
		fl.transition(StateIdle)
		return fmt.Errorf("begin frame: %w", err)
	}
	return nil
}

func (fl *frameLoop) OnDrawEye(eye EyeParams) error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	var next FrameState
	switch {
	case eye.Eye == renderer.EyeLeft && (fl.state == StateHeadPoseReady || fl.state == StateContentRefreshed):
		next = StateEyeDrawingLeft
	case eye.Eye == renderer.EyeRight && fl.state == StateEyeDrawingLeft:
		next = StateEyeDrawingRight
	default:
		return fmt.Errorf("draw %s eye in state %s: %w", eye.Eye, fl.state, ErrEyeOrder)
	}

	cameraView := fl.camera.ViewMatrix()
	var view [16]float32
	common.Mul4(view[:], eye.View[:], cameraView[:])
	lightEye := fl.light.EyePosition(view[:])

	pass, err := fl.target.BeginEye(eye.Eye)
	if err != nil {
		fl.abort()
		return fmt.Errorf("begin %s eye: %w", eye.Eye, err)
	}
	if err := fl.scene.Draw(pass, lightEye, view[:], eye.Projection[:]); err != nil {
		fl.abort()
		return fmt.Errorf("%s eye: %w", eye.Eye, err)
	}
	if err := fl.target.EndEye(); err != nil {
		fl.abort()
		return fmt.Errorf("end %s eye: %w", eye.Eye, err)
	}
	fl.transition(next)
	return nil
}

func (fl *frameLoop) OnFinishFrame() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.state != StateEyeDrawingRight {
		return fmt.Errorf("finish frame in state %s: %w", fl.state, ErrEyeOrder)
	}
	if err := fl.target.EndFrame(); err != nil {
		fl.abort()
		return fmt.Errorf("end frame: %w", err)
	}
	fl.frames++
	if fl.frameCounter != nil {
		fl.frameCounter.Inc()
	}
	fl.transition(StateFrameDone)
	fl.transition(StateIdle)
	return nil
}

func (fl *frameLoop) RenderFrame(tracker HeadTracker) error {
	// the pose is sampled once; the clip planes always come from the frame config
	head := tracker.HeadTransform()
	head.Near, head.Far = fl.cfg.Near(), fl.cfg.Far()

	if err := fl.OnNewFrame(head); err != nil {
		return err
	}
	for _, eye := range []Eye{renderer.EyeLeft, renderer.EyeRight} {
		if err := fl.OnDrawEye(tracker.EyeParams(head, eye)); err != nil {
			return err
		}
	}
	return fl.OnFinishFrame()
}

func (fl *frameLoop) State() FrameState {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	return fl.state
}

func (fl *frameLoop) Head() HeadTransform {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	return fl.head
}

func (fl *frameLoop) Dirty() *DirtyFlag {
	return fl.dirty
}

func (fl *frameLoop) Config() FrameConfig {
	return fl.cfg
}

func (fl *frameLoop) Frames() uint64 {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	return fl.frames
}
