package model

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func triangle() ([]float32, []float32, []float32) {
	pos := []float32{0, 0, 0, 1, 0, 0, 0, 1, 0}
	norm := []float32{0, 0, 1, 0, 0, 1, 0, 0, 1}
	col := []float32{1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1}
	return pos, norm, col
}

func TestNewGeometry(t *testing.T) {
	t.Run("valid untextured geometry", func(t *testing.T) {
		pos, norm, col := triangle()
		g, err := NewGeometry(pos, norm, col, WithLabel("tri"))
		require.NoError(t, err)

		assert.Equal(t, 3, g.VertexCount())
		assert.False(t, g.Textured())
		assert.Equal(t, []Attribute{AttributePosition, AttributeNormal, AttributeColor}, g.Attributes())
		assert.Nil(t, g.Bytes(AttributeTexCoord))
		assert.Equal(t, "tri", g.Label())
	})

	t.Run("inputs are copied", func(t *testing.T) {
		pos, norm, col := triangle()
		g, err := NewGeometry(pos, norm, col)
		require.NoError(t, err)

		pos[0] = 42
		assert.Equal(t, float32(0), g.Data(AttributePosition)[0])
	})

	t.Run("normal count mismatch", func(t *testing.T) {
		pos, norm, col := triangle()
		_, err := NewGeometry(pos, norm[:6], col)
		require.ErrorIs(t, err, ErrVertexCountMismatch)
		assert.Contains(t, err.Error(), "a_normal")
	})

	t.Run("position not divisible by three", func(t *testing.T) {
		pos, norm, col := triangle()
		_, err := NewGeometry(pos[:8], norm, col)
		require.ErrorIs(t, err, ErrVertexCountMismatch)
		assert.Contains(t, err.Error(), "a_position")
	})

	t.Run("color count mismatch", func(t *testing.T) {
		pos, norm, col := triangle()
		_, err := NewGeometry(pos, norm, col[:9])
		require.ErrorIs(t, err, ErrVertexCountMismatch)
	})
}

func TestGeometryWithTexCoords(t *testing.T) {
	pos, norm, col := triangle()
	g, err := NewGeometry(pos, norm, col)
	require.NoError(t, err)

	textured, err := g.WithTexCoords([]float32{0, 0, 1, 0, 0, 1})
	require.NoError(t, err)
	assert.True(t, textured.Textured())
	assert.False(t, g.Textured(), "receiver must not change")
	assert.Len(t, textured.Attributes(), 4)

	_, err = g.WithTexCoords([]float32{0, 0, 1, 0})
	require.ErrorIs(t, err, ErrVertexCountMismatch)
	assert.Contains(t, err.Error(), "a_texcoord")

	_, err = NewGeometry(pos, norm, col, WithTexCoords([]float32{0, 0}))
	require.ErrorIs(t, err, ErrVertexCountMismatch)
}

func TestGeometryBytes(t *testing.T) {
	pos, norm, col := triangle()
	g, err := NewGeometry(pos, norm, col)
	require.NoError(t, err)

	b := g.Bytes(AttributePosition)
	require.Len(t, b, len(pos)*4)
	for i, want := range pos {
		got := math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
		assert.Equal(t, want, got)
	}
	assert.Len(t, g.Bytes(AttributeColor), len(col)*4)
}

func TestGPUMeshUniformMarshal(t *testing.T) {
	u := GPUMeshUniform{LightPos: [3]float32{1, 2, 3}}
	u.Model[0] = 5
	u.ModelView[15] = 6
	u.MVP[5] = 7

	assert.Equal(t, 208, u.Size())
	buf := u.Marshal()
	require.Len(t, buf, 208)

	f := func(off int) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(buf[off:])) }
	assert.Equal(t, float32(5), f(0))
	assert.Equal(t, float32(6), f(64+15*4))
	assert.Equal(t, float32(7), f(128+5*4))
	assert.Equal(t, float32(1), f(192))
	assert.Equal(t, float32(3), f(200))
	assert.Contains(t, GPUMeshUniformSource, "light_pos: vec3<f32>")
}

func TestAttributeNames(t *testing.T) {
	assert.Equal(t, "a_position", AttributePosition.Name())
	assert.Equal(t, "a_texcoord", AttributeTexCoord.Name())
	assert.Equal(t, 4, AttributeColor.Components())
	assert.Equal(t, 2, AttributeTexCoord.Components())
}
