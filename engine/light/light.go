package light

import "github.com/Carmen-Shannon/oxy-vrterm/common"

// LightType identifies the kind of light source.
type LightType int

const (
	// LightTypePoint emits from a world position. Its homogeneous w is 1, so view translation
	// applies when it is moved into eye space.
	LightTypePoint LightType = iota

	// LightTypeDirectional has a direction only. Its homogeneous w is 0, so only the view
	// rotation applies.
	LightTypeDirectional
)

// lightImpl is the implementation of the Light interface.
type lightImpl struct {
	lightType LightType
	position  [3]float32
}

// Light is the scene's single light. Its world position is constant for the session; shaders
// receive it in eye space, recomputed per eye per frame from that eye's view matrix.
type Light interface {
	// Type returns the kind of light source.
	//
	// Returns:
	//   - LightType: point or directional
	Type() LightType

	// Position returns the world-space position, or the direction for a directional light.
	//
	// Returns:
	//   - [3]float32: position as (x, y, z)
	Position() [3]float32

	// Homogeneous returns the world position with w set by the light type.
	//
	// Returns:
	//   - [4]float32: (x, y, z, 1) for point lights, (x, y, z, 0) for directional lights
	Homogeneous() [4]float32

	// EyePosition transforms the light into eye space: view × lightWorld.
	//
	// Parameters:
	//   - view: the 16-float column-major view matrix of the eye being drawn
	//
	// Returns:
	//   - [3]float32: the xyz of the transformed position
	EyePosition(view []float32) [3]float32
}

var _ Light = &lightImpl{}

// NewLight creates a point light at (0, 2, 0) unless options say otherwise.
//
// Parameters:
//   - opts: variadic list of LightBuilderOption functions to configure the light
//
// Returns:
//   - Light: a new Light instance
func NewLight(opts ...LightBuilderOption) Light {
	l := &lightImpl{
		lightType: LightTypePoint,
		position:  [3]float32{0, 2, 0},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *lightImpl) Type() LightType {
	return l.lightType
}

func (l *lightImpl) Position() [3]float32 {
	return l.position
}

func (l *lightImpl) Homogeneous() [4]float32 {
	var w float32
	if l.lightType == LightTypePoint {
		w = 1
	}
	return [4]float32{l.position[0], l.position[1], l.position[2], w}
}

func (l *lightImpl) EyePosition(view []float32) [3]float32 {
	world := l.Homogeneous()
	var eye [4]float32
	common.MulVec4(eye[:], view, world[:])
	return [3]float32{eye[0], eye[1], eye[2]}
}
