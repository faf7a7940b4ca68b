package renderer

import (
	"encoding/binary"
	gomath "math"

	"github.com/vivid-engine/vivid/engine/core"
	"github.com/vivid-engine/vivid/engine/gpu"
	"github.com/vivid-engine/vivid/engine/math"
)

// Vertex strides in bytes: position vec3 + colour vec4, and position vec3
// + uv vec2.
const (
	colourVertexStride  = 28
	textureVertexStride = 20
)

// circleSegments is how many perimeter points the unit circle geometry
// uses.
const circleSegments = 36

// Polygon is caller-visible geometry: a vertex buffer plus its vertex
// count, drawn with the shape pipelines.
type Polygon struct {
	buffer      gpu.Buffer
	vertexCount uint32
}

// ColourVertex is one vertex of shape geometry.
type ColourVertex struct {
	Pos    math.Vec3
	Colour math.Vec4
}

func putFloat32(dst []byte, v float32) {
	binary.LittleEndian.PutUint32(dst, gomath.Float32bits(v))
}

func colourVertexBytes(verts []ColourVertex) []byte {
	out := make([]byte, len(verts)*colourVertexStride)
	for i, v := range verts {
		o := i * colourVertexStride
		putFloat32(out[o:], v.Pos.X)
		putFloat32(out[o+4:], v.Pos.Y)
		putFloat32(out[o+8:], v.Pos.Z)
		putFloat32(out[o+12:], v.Colour.X)
		putFloat32(out[o+16:], v.Colour.Y)
		putFloat32(out[o+20:], v.Colour.Z)
		putFloat32(out[o+24:], v.Colour.W)
	}
	return out
}

// textureVertexBytes lays out {pos vec3, uv vec2} vertices.
func textureVertexBytes(verts [][5]float32) []byte {
	out := make([]byte, len(verts)*textureVertexStride)
	for i, v := range verts {
		o := i * textureVertexStride
		for j, f := range v {
			putFloat32(out[o+j*4:], f)
		}
	}
	return out
}

// triangulate fans a convex polygon outline into a triangle list: for each
// vertex from the third onward, emit (first, current, previous).
func triangulate(points []math.Vec2) []ColourVertex {
	white := math.NewVec4(1, 1, 1, 1)
	out := make([]ColourVertex, 0, (len(points)-2)*3)
	for i := 2; i < len(points); i++ {
		out = append(out,
			ColourVertex{Pos: math.Vec3{X: points[0].X, Y: points[0].Y}, Colour: white},
			ColourVertex{Pos: math.Vec3{X: points[i].X, Y: points[i].Y}, Colour: white},
			ColourVertex{Pos: math.Vec3{X: points[i-1].X, Y: points[i-1].Y}, Colour: white},
		)
	}
	return out
}

// closeOutline copies the points and appends the first one again so a line
// strip forms a closed loop.
func closeOutline(points []math.Vec2) []ColourVertex {
	white := math.NewVec4(1, 1, 1, 1)
	out := make([]ColourVertex, 0, len(points)+1)
	for _, p := range points {
		out = append(out, ColourVertex{Pos: math.Vec3{X: p.X, Y: p.Y}, Colour: white})
	}
	out = append(out, out[0])
	return out
}

// circlePoints returns the perimeter of a unit-radius circle centred on
// the origin.
func circlePoints(segments int) []math.Vec2 {
	out := make([]math.Vec2, segments)
	for i := 0; i < segments; i++ {
		a := 2 * gomath.Pi * float64(i) / float64(segments)
		out[i] = math.NewVec2(float32(gomath.Cos(a)), float32(gomath.Sin(a)))
	}
	return out
}

func (r *Renderer) createShapeRaw(verts []ColourVertex) (*Polygon, error) {
	data := colourVertexBytes(verts)
	buf, res := r.drv.CreateBuffer(uint64(len(data)), gpu.BufferUsageVertex, true)
	if !res.IsSuccess() {
		core.LogError("failed to create vertex buffer: %s", res)
		return nil, resultError("create vertex buffer", res)
	}
	if res := r.drv.WriteBuffer(buf, 0, data); !res.IsSuccess() {
		r.drv.DestroyBuffer(buf)
		core.LogError("failed to write vertex buffer: %s", res)
		return nil, resultError("write vertex buffer", res)
	}
	return &Polygon{buffer: buf, vertexCount: uint32(len(verts))}, nil
}

// CreatePolygon triangulates a convex outline into filled shape geometry.
func (r *Renderer) CreatePolygon(points []math.Vec2) (*Polygon, error) {
	if r == nil || r.sc == nil {
		core.LogError("CreatePolygon called on an uninitialized renderer")
		return nil, errNotInitialized
	}
	if len(points) < 3 {
		return nil, errTooFewVertices
	}
	return r.createShapeRaw(triangulate(points))
}

// CreatePolygonOutline builds closed line-strip geometry from an outline.
func (r *Renderer) CreatePolygonOutline(points []math.Vec2) (*Polygon, error) {
	if r == nil || r.sc == nil {
		core.LogError("CreatePolygonOutline called on an uninitialized renderer")
		return nil, errNotInitialized
	}
	if len(points) < 2 {
		return nil, errTooFewVertices
	}
	return r.createShapeRaw(closeOutline(points))
}

// DestroyPolygon releases polygon geometry. The renderer must be idle with
// respect to frames that used it.
func (r *Renderer) DestroyPolygon(p *Polygon) {
	if r == nil || p == nil {
		return
	}
	r.drv.DestroyBuffer(p.buffer)
	p.buffer = 0
	p.vertexCount = 0
}

// createBuiltinGeometry builds the unit shapes every draw call scales into
// place: a textured quad, a filled and an outlined unit square, a filled
// and an outlined unit circle, and a unit line.
func (r *Renderer) createBuiltinGeometry() error {
	quadTex := [][5]float32{
		{0, 0, 0, 0, 0},
		{1, 0, 0, 1, 0},
		{1, 1, 0, 1, 1},
		{1, 1, 0, 1, 1},
		{0, 1, 0, 0, 1},
		{0, 0, 0, 0, 0},
	}
	data := textureVertexBytes(quadTex)
	buf, res := r.drv.CreateBuffer(uint64(len(data)), gpu.BufferUsageVertex, true)
	if !res.IsSuccess() {
		return resultError("create quad vertex buffer", res)
	}
	if res := r.drv.WriteBuffer(buf, 0, data); !res.IsSuccess() {
		return resultError("write quad vertex buffer", res)
	}
	r.texQuad = &Polygon{buffer: buf, vertexCount: uint32(len(quadTex))}

	unitSquare := []math.Vec2{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}
	var err error
	if r.unitQuad, err = r.createShapeRaw(triangulate(unitSquare)); err != nil {
		return err
	}
	if r.unitQuadOutline, err = r.createShapeRaw(closeOutline(unitSquare)); err != nil {
		return err
	}

	circle := circlePoints(circleSegments)
	if r.unitCircle, err = r.createShapeRaw(triangulate(circle)); err != nil {
		return err
	}
	if r.unitCircleOutline, err = r.createShapeRaw(closeOutline(circle)); err != nil {
		return err
	}

	line := []ColourVertex{
		{Pos: math.Vec3{}, Colour: math.NewVec4(1, 1, 1, 1)},
		{Pos: math.Vec3{X: 1}, Colour: math.NewVec4(1, 1, 1, 1)},
	}
	if r.unitLine, err = r.createShapeRaw(line); err != nil {
		return err
	}
	return nil
}

func (r *Renderer) destroyBuiltinGeometry() {
	for _, p := range []*Polygon{r.texQuad, r.unitQuad, r.unitQuadOutline, r.unitCircle, r.unitCircleOutline, r.unitLine} {
		if p != nil && p.buffer != 0 {
			r.drv.DestroyBuffer(p.buffer)
			p.buffer = 0
		}
	}
	r.texQuad, r.unitQuad, r.unitQuadOutline = nil, nil, nil
	r.unitCircle, r.unitCircleOutline, r.unitLine = nil, nil, nil
}
