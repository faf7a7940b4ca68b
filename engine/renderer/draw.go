package renderer

import (
	gomath "math"

	"github.com/vivid-engine/vivid/engine/core"
	"github.com/vivid-engine/vivid/engine/gpu"
	"github.com/vivid-engine/vivid/engine/math"
)

// pushConstantSize is one model matrix, the colour modulation, and a
// normalized texture region.
const pushConstantSize = 96

// fullRegion samples the whole texture.
var fullRegion = [4]float32{0, 0, 1, 1}

// modelMatrix builds the per-draw transform: translate into place, rotate
// about the origin point, scale, then shift by the negated origin.
func modelMatrix(x, y, scaleX, scaleY, rotation, originX, originY float32) math.Mat4 {
	m := math.NewMat4Translation(x, y, 0)
	if rotation != 0 {
		m = m.Mul(math.NewMat4RotationZ(rotation))
	}
	if scaleX != 1 || scaleY != 1 {
		m = m.Mul(math.NewMat4Scale(scaleX, scaleY, 1))
	}
	if originX != 0 || originY != 0 {
		m = m.Mul(math.NewMat4Translation(-originX, -originY, 0))
	}
	return m
}

// draw is the single recording path every public draw call funnels into.
// It selects the pipeline variant for the current blend mode, rebinds only
// when it differs from the last one bound this frame, binds the given sets
// and geometry, applies viewport and blend-constant dynamic state, writes
// the push constants, and issues the draw.
func (r *Renderer) draw(sets []gpu.DescriptorSet, pipe *Pipeline, geo *Polygon, model math.Mat4, lineWidth float32, texRegion [4]float32) {
	cmd := r.cmd

	handle := pipe.handles[r.blendMode]
	if handle != r.boundPipe {
		r.drv.CmdBindPipeline(cmd, handle)
		r.boundPipe = handle
	}
	r.drv.CmdBindDescriptorSets(cmd, handle, sets)
	r.drv.CmdBindVertexBuffer(cmd, geo.buffer)

	vx, vy, vw, vh := r.viewport[0], r.viewport[1], r.viewport[2], r.viewport[3]
	if vw == 0 {
		tw, th := r.targetSize()
		vx, vy, vw, vh = 0, 0, float32(tw), float32(th)
	}
	r.drv.CmdSetViewport(cmd, vx, vy, vw, vh)
	r.drv.CmdSetLineWidth(cmd, lineWidth)
	r.drv.CmdSetBlendConstants(cmd, r.colourMod)

	data := make([]byte, pushConstantSize)
	for i, f := range model.Data {
		putFloat32(data[i*4:], f)
	}
	for i, f := range r.colourMod {
		putFloat32(data[64+i*4:], f)
	}
	for i, f := range texRegion {
		putFloat32(data[80+i*4:], f)
	}
	r.drv.CmdPushConstants(cmd, handle, data)

	r.drv.CmdDraw(cmd, geo.vertexCount)
}

// targetSize returns the pixel dimensions of the active target.
func (r *Renderer) targetSize() (uint32, uint32) {
	if tex := r.activeTarget.tex; tex != nil {
		return tex.Width, tex.Height
	}
	return r.sc.width, r.sc.height
}

// cameraBuffer returns the active camera's uniform buffer for the
// acquired image.
func (r *Renderer) cameraBuffer() gpu.Buffer {
	return r.activeCamera().buffers[r.imageIndex]
}

func (r *Renderer) canDraw(op string) bool {
	if r == nil || r.sc == nil || !r.frameActive {
		core.LogError("%s called with no active frame", op)
		return false
	}
	return true
}

func (r *Renderer) drawTextured(pipe *Pipeline, tex *Texture, geo *Polygon, model math.Mat4, region [4]float32) {
	set, err := r.sc.texDescCons[r.imageIndex].GetSamplerBufferSet(tex.view, r.sc.sampler, r.cameraBuffer(), cameraUBOSize)
	if err != nil {
		core.LogError("failed to acquire texture descriptor set: %s", err)
		return
	}
	r.draw([]gpu.DescriptorSet{set}, pipe, geo, model, 1, region)
}

func (r *Renderer) drawShape(pipe *Pipeline, geo *Polygon, model math.Mat4, lineWidth float32) {
	set, err := r.sc.shapeDescCons[r.imageIndex].GetBufferSet(r.cameraBuffer(), cameraUBOSize)
	if err != nil {
		core.LogError("failed to acquire shape descriptor set: %s", err)
		return
	}
	r.draw([]gpu.DescriptorSet{set}, pipe, geo, model, lineWidth, fullRegion)
}

// DrawTexture draws the whole texture with its top-left corner at (x, y),
// scaled, then rotated about (originX, originY) relative to that corner.
func (r *Renderer) DrawTexture(tex *Texture, x, y, scaleX, scaleY, rotation, originX, originY float32) {
	if !r.canDraw("DrawTexture") || tex == nil {
		return
	}
	model := modelMatrix(x, y, scaleX*float32(tex.Width), scaleY*float32(tex.Height), rotation, originX, originY)
	r.drawTextured(r.texPipe, tex, r.texQuad, model, fullRegion)
}

// DrawTexturePart draws the sub-rectangle (texX, texY, texW, texH) of the
// texture, in texels.
func (r *Renderer) DrawTexturePart(tex *Texture, x, y, scaleX, scaleY, rotation, originX, originY, texX, texY, texW, texH float32) {
	if !r.canDraw("DrawTexturePart") || tex == nil {
		return
	}
	w := float32(tex.Width)
	h := float32(tex.Height)
	region := [4]float32{texX / w, texY / h, texW / w, texH / h}
	model := modelMatrix(x, y, scaleX*texW, scaleY*texH, rotation, originX, originY)
	r.drawTextured(r.texPipe, tex, r.texQuad, model, region)
}

// DrawShader draws the texture through a caller-supplied custom pipeline
// instead of the built-in texture pipeline.
func (r *Renderer) DrawShader(pipe *Pipeline, tex *Texture, x, y, scaleX, scaleY, rotation, originX, originY float32) {
	if !r.canDraw("DrawShader") || pipe == nil || tex == nil {
		return
	}
	model := modelMatrix(x, y, scaleX*float32(tex.Width), scaleY*float32(tex.Height), rotation, originX, originY)
	r.drawTextured(pipe, tex, r.texQuad, model, fullRegion)
}

// DrawPolygon draws caller-created geometry. Outline geometry draws with
// the line pipeline at the given width; filled geometry ignores the
// width.
func (r *Renderer) DrawPolygon(p *Polygon, x, y float32, filled bool, lineWidth, scaleX, scaleY, rotation, originX, originY float32) {
	if !r.canDraw("DrawPolygon") || p == nil {
		return
	}
	pipe := r.fillPipe
	if !filled {
		pipe = r.linePipe
	}
	r.drawShape(pipe, p, modelMatrix(x, y, scaleX, scaleY, rotation, originX, originY), lineWidth)
}

// DrawRectangle draws a filled w-by-h rectangle with its top-left corner
// at (x, y).
func (r *Renderer) DrawRectangle(x, y, w, h, rotation, originX, originY float32) {
	if !r.canDraw("DrawRectangle") {
		return
	}
	r.drawShape(r.fillPipe, r.unitQuad, modelMatrix(x, y, w, h, rotation, originX, originY), 1)
}

// DrawRectangleOutline draws the outline of a w-by-h rectangle.
func (r *Renderer) DrawRectangleOutline(x, y, w, h, rotation, originX, originY, lineWidth float32) {
	if !r.canDraw("DrawRectangleOutline") {
		return
	}
	r.drawShape(r.linePipe, r.unitQuadOutline, modelMatrix(x, y, w, h, rotation, originX, originY), lineWidth)
}

// DrawCircle draws a filled circle centred on (x, y).
func (r *Renderer) DrawCircle(x, y, radius float32) {
	if !r.canDraw("DrawCircle") {
		return
	}
	r.drawShape(r.fillPipe, r.unitCircle, modelMatrix(x, y, radius, radius, 0, 0, 0), 1)
}

// DrawCircleOutline draws the outline of a circle centred on (x, y).
func (r *Renderer) DrawCircleOutline(x, y, radius, lineWidth float32) {
	if !r.canDraw("DrawCircleOutline") {
		return
	}
	r.drawShape(r.linePipe, r.unitCircleOutline, modelMatrix(x, y, radius, radius, 0, 0, 0), lineWidth)
}

// DrawLine draws a line segment between two points.
func (r *Renderer) DrawLine(x1, y1, x2, y2, lineWidth float32) {
	if !r.canDraw("DrawLine") {
		return
	}
	dx := float64(x2 - x1)
	dy := float64(y2 - y1)
	length := float32(gomath.Hypot(dx, dy))
	angle := float32(gomath.Atan2(dy, dx))
	r.drawShape(r.linePipe, r.unitLine, modelMatrix(x1, y1, length, 1, angle, 0, 0), lineWidth)
}
