package model

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrVertexCountMismatch is returned when an attribute array does not hold exactly one element per vertex.
var ErrVertexCountMismatch = errors.New("model: vertex count mismatch")

// Attribute identifies one per-vertex attribute stream of a Geometry.
// Attributes are uploaded to separate vertex buffers; the numeric value is the buffer slot.
type Attribute int

const (
	// AttributePosition is the 3-component object-space position.
	AttributePosition Attribute = iota

	// AttributeNormal is the 3-component object-space normal.
	AttributeNormal

	// AttributeColor is the 4-component RGBA vertex color.
	AttributeColor

	// AttributeTexCoord is the optional 2-component texture coordinate.
	AttributeTexCoord
)

// Name returns the shader-side binding name of the attribute.
//
// Returns:
//   - string: the WGSL vertex input field name (e.g. "a_position")
func (a Attribute) Name() string {
	switch a {
	case AttributePosition:
		return "a_position"
	case AttributeNormal:
		return "a_normal"
	case AttributeColor:
		return "a_color"
	case AttributeTexCoord:
		return "a_texcoord"
	default:
		return fmt.Sprintf("a_unknown_%d", int(a))
	}
}

// Components returns the number of float32 components per vertex for the attribute.
//
// Returns:
//   - int: 3 for position and normal, 4 for color, 2 for texture coordinates
func (a Attribute) Components() int {
	switch a {
	case AttributePosition, AttributeNormal:
		return 3
	case AttributeColor:
		return 4
	case AttributeTexCoord:
		return 2
	default:
		return 0
	}
}

// geometry is the implementation of the Geometry interface.
type geometry struct {
	label     string
	positions []float32
	normals   []float32
	colors    []float32
	texCoords []float32
}

// Geometry is the immutable per-mesh vertex attribute storage of a Renderable.
// It holds parallel position, normal and color arrays and optional texture coordinates,
// all with the same vertex count. A Geometry is never mutated after construction; attaching
// texture coordinates produces a new Geometry.
type Geometry interface {
	// Label returns the debug label used in error messages and GPU resource names.
	//
	// Returns:
	//   - string: the geometry label
	Label() string

	// VertexCount returns the number of vertices, derived from the position array length.
	//
	// Returns:
	//   - int: len(positions) / 3
	VertexCount() int

	// Textured reports whether texture coordinates are attached.
	//
	// Returns:
	//   - bool: true if the geometry carries an AttributeTexCoord stream
	Textured() bool

	// Attributes returns the active attribute streams in vertex buffer slot order.
	//
	// Returns:
	//   - []Attribute: position, normal, color and, when textured, texcoord
	Attributes() []Attribute

	// Data returns a copy of the raw float data for an attribute.
	//
	// Parameters:
	//   - a: the attribute to read
	//
	// Returns:
	//   - []float32: the attribute data, or nil if the attribute is absent
	Data(a Attribute) []float32

	// Bytes serializes an attribute stream into a little-endian float32 byte buffer ready for a vertex buffer upload.
	//
	// Parameters:
	//   - a: the attribute to serialize
	//
	// Returns:
	//   - []byte: the serialized attribute data, or nil if the attribute is absent
	Bytes(a Attribute) []byte

	// WithTexCoords returns a new Geometry sharing this geometry's streams with texture coordinates attached.
	// The receiver is not modified.
	//
	// Parameters:
	//   - texCoords: 2 floats per vertex
	//
	// Returns:
	//   - Geometry: the textured geometry
	//   - error: ErrVertexCountMismatch if texCoords does not match the vertex count
	WithTexCoords(texCoords []float32) (Geometry, error)

	// Validate checks that every present attribute has exactly one element per vertex.
	// It is a one-time construction check and is never repeated per draw.
	//
	// Returns:
	//   - error: ErrVertexCountMismatch wrapped with the offending attribute, or nil
	Validate() error
}

var _ Geometry = &geometry{}

func (g *geometry) Label() string {
	return g.label
}

func (g *geometry) VertexCount() int {
	return len(g.positions) / 3
}

func (g *geometry) Textured() bool {
	return g.texCoords != nil
}

func (g *geometry) Attributes() []Attribute {
	if g.Textured() {
		return []Attribute{AttributePosition, AttributeNormal, AttributeColor, AttributeTexCoord}
	}
	return []Attribute{AttributePosition, AttributeNormal, AttributeColor}
}

func (g *geometry) stream(a Attribute) []float32 {
	switch a {
	case AttributePosition:
		return g.positions
	case AttributeNormal:
		return g.normals
	case AttributeColor:
		return g.colors
	case AttributeTexCoord:
		return g.texCoords
	default:
		return nil
	}
}

func (g *geometry) Data(a Attribute) []float32 {
	s := g.stream(a)
	if s == nil {
		return nil
	}
	out := make([]float32, len(s))
	copy(out, s)
	return out
}

func (g *geometry) Bytes(a Attribute) []byte {
	s := g.stream(a)
	if len(s) == 0 {
		return nil
	}
	buf := make([]byte, len(s)*4)
	for i, f := range s {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func (g *geometry) WithTexCoords(texCoords []float32) (Geometry, error) {
	out := &geometry{
		label:     g.label,
		positions: g.positions,
		normals:   g.normals,
		colors:    g.colors,
		texCoords: cloneFloats(texCoords),
	}
	if out.texCoords == nil {
		out.texCoords = []float32{}
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

func (g *geometry) Validate() error {
	if len(g.positions)%3 != 0 {
		return fmt.Errorf("%w: %s: %s has %d floats, not a multiple of 3", ErrVertexCountMismatch, g.label, AttributePosition.Name(), len(g.positions))
	}
	n := g.VertexCount()
	for _, a := range g.Attributes() {
		want := n * a.Components()
		if got := len(g.stream(a)); got != want {
			return fmt.Errorf("%w: %s: %s has %d floats, want %d for %d vertices", ErrVertexCountMismatch, g.label, a.Name(), got, want, n)
		}
	}
	return nil
}

// cloneFloats copies a float slice so the geometry owns its storage exclusively.
func cloneFloats(in []float32) []float32 {
	if in == nil {
		return nil
	}
	out := make([]float32, len(in))
	copy(out, in)
	return out
}
