package renderer

import (
	"encoding/binary"
	gomath "math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vivid-engine/vivid/engine/math"
)

func float32FromBytes(b []byte) float32 {
	return gomath.Float32frombits(binary.LittleEndian.Uint32(b))
}

func TestTriangulateFansFromFirstVertex(t *testing.T) {
	square := []math.Vec2{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}
	verts := triangulate(square)
	require.Len(t, verts, 6)

	// Triangle i is (first, i+2, i+1).
	assert.Equal(t, square[0], math.NewVec2(verts[0].Pos.X, verts[0].Pos.Y))
	assert.Equal(t, square[2], math.NewVec2(verts[1].Pos.X, verts[1].Pos.Y))
	assert.Equal(t, square[1], math.NewVec2(verts[2].Pos.X, verts[2].Pos.Y))
	assert.Equal(t, square[0], math.NewVec2(verts[3].Pos.X, verts[3].Pos.Y))
	assert.Equal(t, square[3], math.NewVec2(verts[4].Pos.X, verts[4].Pos.Y))
	assert.Equal(t, square[2], math.NewVec2(verts[5].Pos.X, verts[5].Pos.Y))
}

func TestCloseOutlineAppendsFirstPoint(t *testing.T) {
	tri := []math.Vec2{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}}
	verts := closeOutline(tri)
	require.Len(t, verts, 4)
	assert.Equal(t, verts[0].Pos, verts[3].Pos)
}

func TestCreatePolygonRejectsTooFewPoints(t *testing.T) {
	drv := newFakeDriver(3)
	r := newTestRenderer(t, drv)

	_, err := r.CreatePolygon([]math.Vec2{{X: 0, Y: 0}, {X: 1, Y: 1}})
	assert.ErrorIs(t, err, errTooFewVertices)

	_, err = r.CreatePolygonOutline([]math.Vec2{{X: 0, Y: 0}})
	assert.ErrorIs(t, err, errTooFewVertices)
}

func TestCreatePolygonVertexCount(t *testing.T) {
	drv := newFakeDriver(3)
	r := newTestRenderer(t, drv)

	pentagon := circlePoints(5)
	p, err := r.CreatePolygon(pentagon)
	require.NoError(t, err)
	assert.Equal(t, uint32(9), p.vertexCount, "n points fan into 3(n-2) vertices")

	o, err := r.CreatePolygonOutline(pentagon)
	require.NoError(t, err)
	assert.Equal(t, uint32(6), o.vertexCount, "outline closes back to the first point")

	r.DestroyPolygon(p)
	r.DestroyPolygon(o)
}

func TestColourVertexBytesLayout(t *testing.T) {
	verts := []ColourVertex{{
		Pos:    math.Vec3{X: 1, Y: 2, Z: 3},
		Colour: math.NewVec4(4, 5, 6, 7),
	}}
	data := colourVertexBytes(verts)
	require.Len(t, data, colourVertexStride)

	got := make([]float32, 7)
	for i := range got {
		got[i] = float32FromBytes(data[i*4:])
	}
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6, 7}, got)
}
