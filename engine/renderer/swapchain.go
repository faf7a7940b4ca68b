package renderer

import (
	"fmt"

	"github.com/vivid-engine/vivid/engine/core"
	"github.com/vivid-engine/vivid/engine/gpu"
)

// depthFormatPreference is probed in order; the first supported format
// wins. The renderer runs without a depth attachment when none is
// supported.
var depthFormatPreference = []gpu.Format{
	gpu.FormatD32Sfloat,
	gpu.FormatD32SfloatS8Uint,
	gpu.FormatD24UnormS8Uint,
}

// swapchainResources is everything whose lifetime is bound to one
// swapchain generation: the swapchain and its image views, the shared
// depth and MSAA attachments, the render pass set, the screen
// framebuffers, per-image descriptor controllers and command buffers,
// the sampler, and the frame synchronization ring. A rebuild destroys
// the whole bundle and creates a fresh one.
type swapchainResources struct {
	handle gpu.Swapchain
	images []gpu.Image
	views  []gpu.ImageView

	width  uint32
	height uint32

	depthAvailable bool
	depthFormat    gpu.Format
	depthImg       gpu.Image
	depthView      gpu.ImageView

	msaaImg  gpu.Image
	msaaView gpu.ImageView

	passes       renderPassSet
	framebuffers []gpu.Framebuffer

	// One controller per swapchain image per layout, reset when that
	// image's fence has signaled so bulk reclaim never races the GPU.
	texDescCons   []*DescriptorController
	shapeDescCons []*DescriptorController

	sampler gpu.Sampler

	commandBuffers []gpu.CommandBuffer

	ring *syncRing

	// teardown holds one destructor per acquired resource, pushed in
	// creation order and popped in reverse by destroy. A partially built
	// bundle unwinds the same way.
	teardown []func()
}

func (r *Renderer) createSwapchainResources() (*swapchainResources, error) {
	sc := &swapchainResources{}
	if err := r.buildSwapchainResources(sc); err != nil {
		sc.destroy()
		return nil, err
	}
	return sc, nil
}

func (r *Renderer) buildSwapchainResources(sc *swapchainResources) error {
	drv := r.drv
	cfg := r.config

	sc.width, sc.height = drv.SurfaceSize()

	var res gpu.Result
	sc.handle, sc.images, res = drv.CreateSwapchain(gpu.SwapchainOptions{
		Width:       sc.width,
		Height:      sc.height,
		PresentMode: cfg.PresentMode,
	})
	if !res.IsSuccess() {
		err := fmt.Errorf("failed to create swapchain: %s", res)
		core.LogError(err.Error())
		return err
	}
	sc.teardown = append(sc.teardown, func() { drv.DestroySwapchain(sc.handle) })

	sc.views = make([]gpu.ImageView, len(sc.images))
	for i, img := range sc.images {
		view, res := drv.CreateSwapchainImageView(img)
		if !res.IsSuccess() {
			return resultError("create swapchain image view", res)
		}
		sc.views[i] = view
		sc.teardown = append(sc.teardown, func() { drv.DestroyImageView(view) })
	}
	core.LogDebug("swapchain created: %dx%d, %d images", sc.width, sc.height, len(sc.images))

	if cfg.MSAA > gpu.MSAA1x {
		sc.msaaImg, sc.msaaView, res = drv.CreateImage(gpu.ImageOptions{
			Width:   sc.width,
			Height:  sc.height,
			Format:  drv.SurfaceFormat(),
			Aspect:  gpu.AspectColour,
			Usage:   gpu.UsageColourAttachment | gpu.UsageTransient,
			Samples: cfg.MSAA,
		})
		if !res.IsSuccess() {
			return resultError("create MSAA colour image", res)
		}
		sc.teardown = append(sc.teardown, func() { drv.DestroyImage(sc.msaaImg, sc.msaaView) })
	}

	for _, f := range depthFormatPreference {
		if drv.DepthFormatSupported(f) {
			sc.depthAvailable = true
			sc.depthFormat = f
			break
		}
	}
	if sc.depthAvailable {
		sc.depthImg, sc.depthView, res = drv.CreateImage(gpu.ImageOptions{
			Width:   sc.width,
			Height:  sc.height,
			Format:  sc.depthFormat,
			Aspect:  gpu.AspectDepth,
			Usage:   gpu.UsageDepthStencilAttachment,
			Samples: cfg.MSAA,
		})
		if !res.IsSuccess() {
			return resultError("create depth image", res)
		}
		sc.teardown = append(sc.teardown, func() { drv.DestroyImage(sc.depthImg, sc.depthView) })
	} else {
		core.LogWarn("no supported depth format, rendering without a depth attachment")
	}

	passes, err := createRenderPasses(drv, drv.SurfaceFormat(), sc.depthFormat, cfg.MSAA)
	if err != nil {
		return err
	}
	sc.passes = passes
	sc.teardown = append(sc.teardown, func() { sc.passes.destroy(drv) })

	sc.framebuffers = make([]gpu.Framebuffer, len(sc.images))
	for i, view := range sc.views {
		attachments := make([]gpu.ImageView, 0, 3)
		if sc.depthAvailable {
			attachments = append(attachments, sc.depthView)
		}
		if cfg.MSAA > gpu.MSAA1x {
			attachments = append(attachments, sc.msaaView, view)
		} else {
			attachments = append(attachments, view)
		}
		fb, res := drv.CreateFramebuffer(sc.passes.screen, attachments, sc.width, sc.height)
		if !res.IsSuccess() {
			return resultError("create screen framebuffer", res)
		}
		sc.framebuffers[i] = fb
		sc.teardown = append(sc.teardown, func() { drv.DestroyFramebuffer(fb) })
	}

	sc.texDescCons = make([]*DescriptorController, len(sc.images))
	sc.shapeDescCons = make([]*DescriptorController, len(sc.images))
	for i := range sc.images {
		dc, err := NewDescriptorController(drv, r.texLayout, 0, 1, NoBinding)
		if err != nil {
			return err
		}
		sc.texDescCons[i] = dc
		sc.teardown = append(sc.teardown, dc.Destroy)

		dc, err = NewDescriptorController(drv, r.shapeLayout, 0, NoBinding, NoBinding)
		if err != nil {
			return err
		}
		sc.shapeDescCons[i] = dc
		sc.teardown = append(sc.teardown, dc.Destroy)
	}

	sc.sampler, res = drv.CreateSampler(cfg.Filter)
	if !res.IsSuccess() {
		return resultError("create sampler", res)
	}
	sc.teardown = append(sc.teardown, func() { drv.DestroySampler(sc.sampler) })

	sc.commandBuffers = make([]gpu.CommandBuffer, len(sc.images))
	for i := range sc.commandBuffers {
		cb, res := drv.GetCommandBuffer(true)
		if !res.IsSuccess() {
			return resultError("allocate command buffer", res)
		}
		sc.commandBuffers[i] = cb
		sc.teardown = append(sc.teardown, func() { drv.FreeCommandBuffer(cb) })
	}

	ring, err := newSyncRing(drv, len(sc.images))
	if err != nil {
		return err
	}
	sc.ring = ring
	sc.teardown = append(sc.teardown, func() { sc.ring.destroy(drv) })

	return nil
}

// destroy unwinds the teardown stack, releasing every resource in the
// reverse of creation order. The caller must have waited for the device
// to go idle.
func (sc *swapchainResources) destroy() {
	for i := len(sc.teardown) - 1; i >= 0; i-- {
		sc.teardown[i]()
	}
	sc.teardown = nil
}
