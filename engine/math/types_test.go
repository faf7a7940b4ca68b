package math

import (
	m "math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMat4IdentityMul(t *testing.T) {
	id := NewMat4Identity()
	tr := NewMat4Translation(3, -2, 0)
	assert.Equal(t, tr, id.Mul(tr))
	assert.Equal(t, tr, tr.Mul(id))
}

func TestMat4TranslationComposesWithScale(t *testing.T) {
	// Scale then translate: the translation must be unscaled.
	out := NewMat4Translation(10, 20, 0).Mul(NewMat4Scale(2, 2, 1))
	assert.Equal(t, float32(2), out.Data[0])
	assert.Equal(t, float32(10), out.Data[12])
	assert.Equal(t, float32(20), out.Data[13])
}

func TestMat4RotationZQuarterTurn(t *testing.T) {
	r := NewMat4RotationZ(float32(m.Pi / 2))
	assert.InDelta(t, 0.0, float64(r.Data[0]), 1e-6)
	assert.InDelta(t, 1.0, float64(r.Data[1]), 1e-6)
	assert.InDelta(t, -1.0, float64(r.Data[4]), 1e-6)
}

func TestOrthographicMapsCorners(t *testing.T) {
	o := NewMat4Orthographic(0, 800, 600, 0, -1, 1)
	assert.InDelta(t, -1.0, float64(o.Data[12]), 1e-6)
	assert.InDelta(t, 1.0, float64(o.Data[13]), 1e-6)
	assert.InDelta(t, 2.0/800.0, float64(o.Data[0]), 1e-6)
	assert.InDelta(t, -2.0/600.0, float64(o.Data[5]), 1e-6)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 5, Clamp(7, 0, 5))
	assert.Equal(t, 0, Clamp(-1, 0, 5))
	assert.Equal(t, float32(2.5), Clamp(float32(2.5), 0, 5))
}
