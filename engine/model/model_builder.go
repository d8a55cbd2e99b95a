package model

// GeometryBuilderOption is a functional option for configuring a Geometry via NewGeometry.
type GeometryBuilderOption func(*geometry)

// WithLabel is an option builder that sets the debug label of the Geometry.
//
// Parameters:
//   - label: the label used in error messages and GPU resource names
//
// Returns:
//   - GeometryBuilderOption: a function that applies the label option to a geometry
func WithLabel(label string) GeometryBuilderOption {
	return func(g *geometry) {
		g.label = label
	}
}

// WithTexCoords is an option builder that attaches texture coordinates at construction time.
// It is equivalent to calling Geometry.WithTexCoords on the built geometry.
//
// Parameters:
//   - texCoords: 2 floats per vertex
//
// Returns:
//   - GeometryBuilderOption: a function that applies the texture coordinates to a geometry
func WithTexCoords(texCoords []float32) GeometryBuilderOption {
	return func(g *geometry) {
		g.texCoords = cloneFloats(texCoords)
		if g.texCoords == nil {
			g.texCoords = []float32{}
		}
	}
}

// NewGeometry creates an immutable Geometry from parallel attribute arrays.
// The input slices are copied; later changes by the caller do not affect the geometry.
//
// Parameters:
//   - positions: 3 floats per vertex
//   - normals: 3 floats per vertex
//   - colors: 4 floats per vertex (RGBA)
//   - options: variadic list of GeometryBuilderOption functions
//
// Returns:
//   - Geometry: the validated geometry
//   - error: ErrVertexCountMismatch if the arrays disagree on the vertex count
func NewGeometry(positions, normals, colors []float32, options ...GeometryBuilderOption) (Geometry, error) {
	g := &geometry{
		label:     "geometry",
		positions: cloneFloats(positions),
		normals:   cloneFloats(normals),
		colors:    cloneFloats(colors),
	}
	for _, opt := range options {
		opt(g)
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}
