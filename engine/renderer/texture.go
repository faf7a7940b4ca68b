package renderer

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"

	"github.com/vivid-engine/vivid/engine/core"
	"github.com/vivid-engine/vivid/engine/gpu"
)

// Texture is a sampled image, optionally usable as an off-screen render
// target. Target textures own the auxiliary images and framebuffer the
// render pass template requires, mirroring the screen framebuffers.
type Texture struct {
	ID     string
	Width  uint32
	Height uint32

	img  gpu.Image
	view gpu.ImageView

	// Target-only state, zero for plain sampled textures.
	canTarget bool
	fb        gpu.Framebuffer
	depthImg  gpu.Image
	depthView gpu.ImageView
	msaaImg   gpu.Image
	msaaView  gpu.ImageView
	layout    gpu.ImageLayout
}

// CreateTexture creates an off-screen texture that can both be drawn into
// (via SetTarget) and sampled from. Its framebuffer is rebuilt together
// with the swapchain so it always matches the current render passes.
func (r *Renderer) CreateTexture(width, height uint32) (*Texture, error) {
	if r == nil || r.sc == nil {
		core.LogError("CreateTexture called on an uninitialized renderer")
		return nil, fmt.Errorf("renderer not initialized")
	}

	tex := &Texture{
		ID:        uuid.New().String(),
		Width:     width,
		Height:    height,
		canTarget: true,
		layout:    gpu.LayoutUndefined,
	}

	var res gpu.Result
	tex.img, tex.view, res = r.drv.CreateImage(gpu.ImageOptions{
		Width:   width,
		Height:  height,
		Format:  r.drv.SurfaceFormat(),
		Aspect:  gpu.AspectColour,
		Usage:   gpu.UsageColourAttachment | gpu.UsageSampled,
		Samples: gpu.MSAA1x,
	})
	if !res.IsSuccess() {
		err := fmt.Errorf("failed to create target texture image: %s", res)
		core.LogError(err.Error())
		return nil, err
	}

	if err := r.createTargetAttachments(tex); err != nil {
		r.drv.DestroyImage(tex.img, tex.view)
		return nil, err
	}

	r.targets[tex] = struct{}{}
	core.LogDebug("created target texture %s (%dx%d)", tex.ID, width, height)
	return tex, nil
}

// createTargetAttachments builds the depth/MSAA companions and the
// framebuffer for a target texture against the current off-screen render
// pass. Called at creation and again after every swapchain rebuild.
func (r *Renderer) createTargetAttachments(tex *Texture) error {
	var res gpu.Result

	if r.sc.depthAvailable {
		tex.depthImg, tex.depthView, res = r.drv.CreateImage(gpu.ImageOptions{
			Width:   tex.Width,
			Height:  tex.Height,
			Format:  r.sc.depthFormat,
			Aspect:  gpu.AspectDepth,
			Usage:   gpu.UsageDepthStencilAttachment,
			Samples: r.config.MSAA,
		})
		if !res.IsSuccess() {
			return fmt.Errorf("failed to create target depth image: %s", res)
		}
	}

	if r.config.MSAA > gpu.MSAA1x {
		tex.msaaImg, tex.msaaView, res = r.drv.CreateImage(gpu.ImageOptions{
			Width:   tex.Width,
			Height:  tex.Height,
			Format:  r.drv.SurfaceFormat(),
			Aspect:  gpu.AspectColour,
			Usage:   gpu.UsageColourAttachment | gpu.UsageTransient,
			Samples: r.config.MSAA,
		})
		if !res.IsSuccess() {
			return fmt.Errorf("failed to create target MSAA image: %s", res)
		}
	}

	// Attachment order matches the screen framebuffers: depth, colour
	// (the MSAA buffer when enabled), then the resolve view.
	attachments := make([]gpu.ImageView, 0, 3)
	if r.sc.depthAvailable {
		attachments = append(attachments, tex.depthView)
	}
	if r.config.MSAA > gpu.MSAA1x {
		attachments = append(attachments, tex.msaaView, tex.view)
	} else {
		attachments = append(attachments, tex.view)
	}

	tex.fb, res = r.drv.CreateFramebuffer(r.sc.passes.external, attachments, tex.Width, tex.Height)
	if !res.IsSuccess() {
		return fmt.Errorf("failed to create target framebuffer: %s", res)
	}
	return nil
}

// destroyTargetAttachments tears down everything createTargetAttachments
// built, leaving the sampled image itself alone.
func (r *Renderer) destroyTargetAttachments(tex *Texture) {
	if tex.fb != 0 {
		r.drv.DestroyFramebuffer(tex.fb)
		tex.fb = 0
	}
	if tex.msaaImg != 0 {
		r.drv.DestroyImage(tex.msaaImg, tex.msaaView)
		tex.msaaImg, tex.msaaView = 0, 0
	}
	if tex.depthImg != 0 {
		r.drv.DestroyImage(tex.depthImg, tex.depthView)
		tex.depthImg, tex.depthView = 0, 0
	}
}

// LoadTexture decodes a PNG or JPEG file into a sampled texture.
func (r *Renderer) LoadTexture(path string) (*Texture, error) {
	if r == nil || r.sc == nil {
		core.LogError("LoadTexture called on an uninitialized renderer")
		return nil, fmt.Errorf("renderer not initialized")
	}

	f, err := os.Open(path)
	if err != nil {
		core.LogError("failed to open texture %s: %s", path, err)
		return nil, err
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		core.LogError("failed to decode texture %s: %s", path, err)
		return nil, err
	}

	bounds := src.Bounds()
	rgba := image.NewRGBA(bounds)
	xdraw.Draw(rgba, bounds, src, bounds.Min, xdraw.Src)

	return r.CreateTextureFromPixels(uint32(bounds.Dx()), uint32(bounds.Dy()), rgba.Pix)
}

// CreateTextureFromPixels uploads tightly packed RGBA pixels into a new
// sampled texture.
func (r *Renderer) CreateTextureFromPixels(width, height uint32, pixels []byte) (*Texture, error) {
	if r == nil || r.sc == nil {
		core.LogError("CreateTextureFromPixels called on an uninitialized renderer")
		return nil, fmt.Errorf("renderer not initialized")
	}
	if uint32(len(pixels)) != width*height*4 {
		return nil, fmt.Errorf("pixel data is %d bytes, want %d", len(pixels), width*height*4)
	}

	tex := &Texture{
		ID:     uuid.New().String(),
		Width:  width,
		Height: height,
		layout: gpu.LayoutShaderReadOnly,
	}

	var res gpu.Result
	tex.img, tex.view, res = r.drv.CreateImage(gpu.ImageOptions{
		Width:   width,
		Height:  height,
		Format:  gpu.FormatR8G8B8A8Unorm,
		Aspect:  gpu.AspectColour,
		Usage:   gpu.UsageSampled | gpu.UsageTransferDst,
		Samples: gpu.MSAA1x,
	})
	if !res.IsSuccess() {
		err := fmt.Errorf("failed to create texture image: %s", res)
		core.LogError(err.Error())
		return nil, err
	}

	if res := r.drv.UploadImagePixels(tex.img, width, height, pixels); !res.IsSuccess() {
		r.drv.DestroyImage(tex.img, tex.view)
		err := fmt.Errorf("failed to upload texture pixels: %s", res)
		core.LogError(err.Error())
		return nil, err
	}
	return tex, nil
}

// DestroyTexture releases a texture. The caller must not destroy a texture
// that may still be referenced by in-flight frames; waiting for the
// renderer to go idle first is sufficient.
func (r *Renderer) DestroyTexture(tex *Texture) {
	if r == nil || tex == nil {
		return
	}
	if tex.canTarget {
		r.destroyTargetAttachments(tex)
		delete(r.targets, tex)
	}
	r.drv.DestroyImage(tex.img, tex.view)
	tex.img, tex.view = 0, 0
}
