package scene

import (
	"slices"

	"github.com/Carmen-Shannon/oxy-vrterm/engine/model"
)

// The floor is split into four 200×200 quadrants around the origin. The grid is drawn
// procedurally from world coordinates, and smaller polygons keep it precise far from the viewer.
var floorPositions = []float32{
	// +X, +Z
	200, 0, 0,
	0, 0, 0,
	0, 0, 200,
	200, 0, 0,
	0, 0, 200,
	200, 0, 200,

	// -X, +Z
	0, 0, 0,
	-200, 0, 0,
	-200, 0, 200,
	0, 0, 0,
	-200, 0, 200,
	0, 0, 200,

	// +X, -Z
	200, 0, -200,
	0, 0, -200,
	0, 0, 0,
	200, 0, -200,
	0, 0, 0,
	200, 0, 0,

	// -X, -Z
	0, 0, -200,
	-200, 0, -200,
	-200, 0, 0,
	0, 0, -200,
	-200, 0, 0,
	0, 0, 0,
}

// FloorColor is the RGBA color of every floor vertex.
var FloorColor = [4]float32{0.0, 0.3398, 0.9023, 1.0}

// The screen is a 6×4 quad facing +Z; texture row 0 is the top edge.
var (
	screenPositions = []float32{
		-3, 2, 0,
		-3, -2, 0,
		3, 2, 0,
		-3, -2, 0,
		3, -2, 0,
		3, 2, 0,
	}

	screenTexCoords = []float32{
		0, 0,
		0, 1,
		1, 0,
		0, 1,
		1, 1,
		1, 0,
	}
)

// FloorGeometry returns the 24-vertex floor mesh: up-facing normals and a uniform blue color.
//
// Returns:
//   - model.Geometry: the floor geometry
//   - error: a validation error; only possible if the tables above are edited inconsistently
func FloorGeometry() (model.Geometry, error) {
	n := len(floorPositions) / 3
	return model.NewGeometry(
		floorPositions,
		slices.Repeat([]float32{0, 1, 0}, n),
		slices.Repeat(FloorColor[:], n),
		model.WithLabel("floor"),
	)
}

// ScreenGeometry returns the 6-vertex textured screen quad: +Z normals and white vertex color.
//
// Returns:
//   - model.Geometry: the screen geometry
//   - error: a validation error; only possible if the tables above are edited inconsistently
func ScreenGeometry() (model.Geometry, error) {
	n := len(screenPositions) / 3
	return model.NewGeometry(
		screenPositions,
		slices.Repeat([]float32{0, 0, 1}, n),
		slices.Repeat([]float32{1, 1, 1, 1}, n),
		model.WithLabel("screen"),
		model.WithTexCoords(screenTexCoords),
	)
}
