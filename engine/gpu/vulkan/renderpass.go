package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/vivid-engine/vivid/engine/core"
	"github.com/vivid-engine/vivid/engine/gpu"
)

// CreateRenderPass instantiates the shared attachment template. The
// attachment order matches the framebuffers the renderer builds: depth
// first when present, then the colour target, then the single-sample
// resolve target when multisampling.
func (d *Driver) CreateRenderPass(opts gpu.RenderPassOptions) (gpu.RenderPass, gpu.Result) {
	var attachments []vk.AttachmentDescription
	var depthRef *vk.AttachmentReference

	if opts.DepthFormat != gpu.FormatUndefined {
		attachments = append(attachments, vk.AttachmentDescription{
			Format:         vkFormat(opts.DepthFormat),
			Samples:        vkSampleCount(opts.Samples),
			LoadOp:         vk.AttachmentLoadOpClear,
			StoreOp:        vk.AttachmentStoreOpDontCare,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
		})
		depthRef = &vk.AttachmentReference{
			Attachment: uint32(len(attachments) - 1),
			Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
		}
	}

	colourLoadOp := vk.AttachmentLoadOpLoad
	if opts.InitialLayout == gpu.LayoutUndefined {
		colourLoadOp = vk.AttachmentLoadOpClear
	}
	attachments = append(attachments, vk.AttachmentDescription{
		Format:         vkFormat(opts.ColourFormat),
		Samples:        vkSampleCount(opts.Samples),
		LoadOp:         colourLoadOp,
		StoreOp:        vk.AttachmentStoreOpStore,
		StencilLoadOp:  vk.AttachmentLoadOpDontCare,
		StencilStoreOp: vk.AttachmentStoreOpDontCare,
		InitialLayout:  vkImageLayout(opts.InitialLayout),
		FinalLayout:    vkImageLayout(opts.FinalLayout),
	})
	colourRef := vk.AttachmentReference{
		Attachment: uint32(len(attachments) - 1),
		Layout:     vk.ImageLayoutColorAttachmentOptimal,
	}

	var resolveRefs []vk.AttachmentReference
	if opts.Samples > gpu.MSAA1x {
		resolveLoadOp := vk.AttachmentLoadOpDontCare
		if opts.ResolveInitialLayout != gpu.LayoutUndefined {
			resolveLoadOp = vk.AttachmentLoadOpLoad
		}
		attachments = append(attachments, vk.AttachmentDescription{
			Format:         vkFormat(opts.ColourFormat),
			Samples:        vk.SampleCount1Bit,
			LoadOp:         resolveLoadOp,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vkImageLayout(opts.ResolveInitialLayout),
			FinalLayout:    vkImageLayout(opts.ResolveFinalLayout),
		})
		resolveRefs = []vk.AttachmentReference{{
			Attachment: uint32(len(attachments) - 1),
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		}}
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:       vk.PipelineBindPointGraphics,
		ColorAttachmentCount:    1,
		PColorAttachments:       []vk.AttachmentReference{colourRef},
		PResolveAttachments:     resolveRefs,
		PDepthStencilAttachment: depthRef,
	}

	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		SrcAccessMask: 0,
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit),
	}

	createInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}

	var handle vk.RenderPass
	if res := vk.CreateRenderPass(d.device.LogicalDevice, &createInfo, d.allocator, &handle); res != vk.Success {
		core.LogError("failed to create render pass: %s", resultString(res))
		return 0, gpuResult(res)
	}
	id := gpu.RenderPass(d.handle())
	d.renderPasses[id] = &renderPassResource{handle: handle, opts: opts}
	return id, gpu.Success
}

func (d *Driver) DestroyRenderPass(rp gpu.RenderPass) {
	if res, ok := d.renderPasses[rp]; ok {
		vk.DestroyRenderPass(d.device.LogicalDevice, res.handle, d.allocator)
		delete(d.renderPasses, rp)
	}
}

func (d *Driver) CreateFramebuffer(rp gpu.RenderPass, attachments []gpu.ImageView, width, height uint32) (gpu.Framebuffer, gpu.Result) {
	pass, ok := d.renderPasses[rp]
	if !ok {
		return 0, gpu.ErrUnknown
	}
	views := make([]vk.ImageView, len(attachments))
	for i, a := range attachments {
		views[i] = d.views[a]
	}
	createInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      pass.handle,
		AttachmentCount: uint32(len(views)),
		PAttachments:    views,
		Width:           width,
		Height:          height,
		Layers:          1,
	}
	var handle vk.Framebuffer
	if res := vk.CreateFramebuffer(d.device.LogicalDevice, &createInfo, d.allocator, &handle); res != vk.Success {
		core.LogError("failed to create framebuffer: %s", resultString(res))
		return 0, gpuResult(res)
	}
	id := gpu.Framebuffer(d.handle())
	d.framebuffers[id] = handle
	return id, gpu.Success
}

func (d *Driver) DestroyFramebuffer(fb gpu.Framebuffer) {
	if handle, ok := d.framebuffers[fb]; ok {
		vk.DestroyFramebuffer(d.device.LogicalDevice, handle, d.allocator)
		delete(d.framebuffers, fb)
	}
}
