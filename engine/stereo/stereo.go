package stereo

import (
	"errors"
	"image"

	"github.com/Carmen-Shannon/oxy-vrterm/engine/camera"
	"github.com/Carmen-Shannon/oxy-vrterm/engine/renderer"
)

var (
	// ErrEyeOrder is returned when an eye is drawn out of order or a frame is finished before
	// both eyes were drawn.
	ErrEyeOrder = errors.New("stereo: eye drawn out of order")

	// ErrFrameInProgress is returned when a new frame starts before the previous one finished.
	ErrFrameInProgress = errors.New("stereo: frame already in progress")
)

// Eye identifies one of the two stereoscopic viewpoints.
type Eye = renderer.Eye

// HeadTransform is the per-frame head pose supplied by the head-tracking layer.
type HeadTransform = camera.HeadTransform

// EyeParams is the per-eye view and projection supplied ahead of each eye draw.
type EyeParams = camera.EyeParams

// HeadTracker is the head-tracking layer as seen by the frame loop.
type HeadTracker interface {
	// HeadTransform samples the head pose for the coming frame.
	HeadTransform() HeadTransform

	// EyeParams returns the view and projection for one eye of the given sampled pose.
	EyeParams(head HeadTransform, eye Eye) EyeParams
}

// ContentSource supplies the pixels shown on the screen. RenderSnapshot is pulled by the frame
// loop only when the dirty flag was set, and always returns the newest full frame.
type ContentSource interface {
	// RenderSnapshot renders the current content.
	//
	// Returns:
	//   - *image.RGBA: a full-frame snapshot with the size the screen texture was created with
	RenderSnapshot() *image.RGBA
}

// FrameState is the position of the frame loop within one frame.
type FrameState int

const (
	// StateIdle waits for the next frame.
	StateIdle FrameState = iota

	// StateHeadPoseReady has the head pose and the recomputed camera.
	StateHeadPoseReady

	// StateContentRefreshed has uploaded a fresh snapshot this frame.
	StateContentRefreshed

	// StateEyeDrawingLeft has drawn the left eye.
	StateEyeDrawingLeft

	// StateEyeDrawingRight has drawn the right eye.
	StateEyeDrawingRight

	// StateFrameDone has presented the frame; the loop returns to StateIdle right after.
	StateFrameDone
)

// String returns the state name.
func (s FrameState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateHeadPoseReady:
		return "head_pose_ready"
	case StateContentRefreshed:
		return "content_refreshed"
	case StateEyeDrawingLeft:
		return "eye_drawing_left"
	case StateEyeDrawingRight:
		return "eye_drawing_right"
	case StateFrameDone:
		return "frame_done"
	default:
		return "unknown"
	}
}
