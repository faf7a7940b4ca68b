package math

import m "math"

type Vec2 struct {
	X, Y float32
}

type Vec3 struct {
	X, Y, Z float32
}

// Vec4 is also used as an RGBA colour with components in [0, 1].
type Vec4 struct {
	X, Y, Z, W float32
}

func NewVec2(x, y float32) Vec2 {
	return Vec2{X: x, Y: y}
}

func NewVec3Zero() Vec3 {
	return Vec3{}
}

func NewVec4(x, y, z, w float32) Vec4 {
	return Vec4{X: x, Y: y, Z: z, W: w}
}

// Mat4 is a column-major 4x4 matrix, laid out the way uniform buffers
// expect it.
type Mat4 struct {
	Data [16]float32
}

func NewMat4Identity() Mat4 {
	out := Mat4{}
	out.Data[0] = 1.0
	out.Data[5] = 1.0
	out.Data[10] = 1.0
	out.Data[15] = 1.0
	return out
}

// NewMat4Orthographic returns an orthographic projection matrix mapping the
// given box to clip space with a Vulkan depth range of [0, 1].
func NewMat4Orthographic(left, right, bottom, top, near, far float32) Mat4 {
	out := NewMat4Identity()

	lr := 1.0 / (left - right)
	bt := 1.0 / (bottom - top)
	nf := 1.0 / (near - far)

	out.Data[0] = -2.0 * lr
	out.Data[5] = -2.0 * bt
	out.Data[10] = nf
	out.Data[12] = (left + right) * lr
	out.Data[13] = (top + bottom) * bt
	out.Data[14] = near * nf
	return out
}

func (a Mat4) Mul(b Mat4) Mat4 {
	out := Mat4{}
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += a.Data[k*4+row] * b.Data[col*4+k]
			}
			out.Data[col*4+row] = sum
		}
	}
	return out
}

func NewMat4Translation(x, y, z float32) Mat4 {
	out := NewMat4Identity()
	out.Data[12] = x
	out.Data[13] = y
	out.Data[14] = z
	return out
}

func NewMat4Scale(x, y, z float32) Mat4 {
	out := NewMat4Identity()
	out.Data[0] = x
	out.Data[5] = y
	out.Data[10] = z
	return out
}

// NewMat4RotationZ rotates around the Z axis, the only rotation a 2D draw
// call needs.
func NewMat4RotationZ(radians float32) Mat4 {
	out := NewMat4Identity()
	c := float32(m.Cos(float64(radians)))
	s := float32(m.Sin(float64(radians)))
	out.Data[0] = c
	out.Data[1] = s
	out.Data[4] = -s
	out.Data[5] = c
	return out
}
