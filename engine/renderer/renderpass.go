package renderer

import (
	"github.com/vivid-engine/vivid/engine/gpu"
)

// renderPassSet is the three render passes built from one attachment
// template. They differ only in initial/final image layouts because three
// transition scenarios exist: the normal screen frame (undefined at start,
// presentable at end), a mid-frame return to the screen from an off-screen
// target, and rendering into an off-screen colour target. They are always
// created and destroyed together since their layout expectations are
// mutually derived.
type renderPassSet struct {
	screen   gpu.RenderPass
	midFrame gpu.RenderPass
	external gpu.RenderPass
}

func createRenderPasses(drv gpu.Driver, colourFormat, depthFormat gpu.Format, samples gpu.MSAA) (renderPassSet, error) {
	var set renderPassSet

	template := gpu.RenderPassOptions{
		ColourFormat: colourFormat,
		DepthFormat:  depthFormat,
		Samples:      samples,
	}

	// Normal frame start: the attachment's previous contents are
	// irrelevant and the image ends up presentable.
	opts := template
	if samples > gpu.MSAA1x {
		opts.InitialLayout = gpu.LayoutUndefined
		opts.FinalLayout = gpu.LayoutColourAttachment
		opts.ResolveInitialLayout = gpu.LayoutUndefined
		opts.ResolveFinalLayout = gpu.LayoutPresentSrc
	} else {
		opts.InitialLayout = gpu.LayoutUndefined
		opts.FinalLayout = gpu.LayoutPresentSrc
	}
	rp, res := drv.CreateRenderPass(opts)
	if !res.IsSuccess() {
		return set, resultError("create screen render pass", res)
	}
	set.screen = rp

	// Mid-frame return to the screen: the presentable image already holds
	// this frame's earlier drawing and must stay presentable.
	opts = template
	if samples > gpu.MSAA1x {
		opts.InitialLayout = gpu.LayoutColourAttachment
		opts.FinalLayout = gpu.LayoutColourAttachment
		opts.ResolveInitialLayout = gpu.LayoutPresentSrc
		opts.ResolveFinalLayout = gpu.LayoutPresentSrc
	} else {
		opts.InitialLayout = gpu.LayoutPresentSrc
		opts.FinalLayout = gpu.LayoutPresentSrc
	}
	rp, res = drv.CreateRenderPass(opts)
	if !res.IsSuccess() {
		drv.DestroyRenderPass(set.screen)
		return set, resultError("create mid-frame render pass", res)
	}
	set.midFrame = rp

	// Off-screen colour target.
	opts = template
	opts.InitialLayout = gpu.LayoutColourAttachment
	opts.FinalLayout = gpu.LayoutColourAttachment
	opts.ResolveInitialLayout = gpu.LayoutColourAttachment
	opts.ResolveFinalLayout = gpu.LayoutColourAttachment
	rp, res = drv.CreateRenderPass(opts)
	if !res.IsSuccess() {
		drv.DestroyRenderPass(set.midFrame)
		drv.DestroyRenderPass(set.screen)
		return set, resultError("create off-screen render pass", res)
	}
	set.external = rp

	return set, nil
}

func (s *renderPassSet) destroy(drv gpu.Driver) {
	drv.DestroyRenderPass(s.external)
	drv.DestroyRenderPass(s.midFrame)
	drv.DestroyRenderPass(s.screen)
	*s = renderPassSet{}
}
