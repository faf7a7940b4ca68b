package vulkan

import (
	gomath "math"

	vk "github.com/goki/vulkan"

	"github.com/vivid-engine/vivid/engine/core"
	"github.com/vivid-engine/vivid/engine/gpu"
	"github.com/vivid-engine/vivid/engine/math"
)

func (d *Driver) CreateSwapchain(opts gpu.SwapchainOptions) (gpu.Swapchain, []gpu.Image, gpu.Result) {
	var caps vk.SurfaceCapabilities
	if res := vk.GetPhysicalDeviceSurfaceCapabilities(d.device.PhysicalDevice, d.surface, &caps); res != vk.Success {
		core.LogError("failed to query surface capabilities: %s", resultString(res))
		return 0, nil, gpuResult(res)
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	caps.MinImageExtent.Deref()
	caps.MaxImageExtent.Deref()

	extent := vk.Extent2D{Width: opts.Width, Height: opts.Height}
	if caps.CurrentExtent.Width != gomath.MaxUint32 {
		extent = caps.CurrentExtent
	}
	extent.Width = math.Clamp(extent.Width, caps.MinImageExtent.Width, caps.MaxImageExtent.Width)
	extent.Height = math.Clamp(extent.Height, caps.MinImageExtent.Height, caps.MaxImageExtent.Height)

	imageCount := caps.MinImageCount + 1
	if caps.MaxImageCount > 0 && imageCount > caps.MaxImageCount {
		imageCount = caps.MaxImageCount
	}

	createInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          d.surface,
		MinImageCount:    imageCount,
		ImageFormat:      d.surfaceFormat.Format,
		ImageColorSpace:  d.surfaceFormat.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      vkPresentMode(opts.PresentMode),
		Clipped:          vk.True,
		OldSwapchain:     vk.NullSwapchain,
	}

	if d.device.GraphicsQueueIndex != d.device.PresentQueueIndex {
		createInfo.ImageSharingMode = vk.SharingModeConcurrent
		createInfo.QueueFamilyIndexCount = 2
		createInfo.PQueueFamilyIndices = []uint32{
			uint32(d.device.GraphicsQueueIndex),
			uint32(d.device.PresentQueueIndex),
		}
	} else {
		createInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	var scHandle vk.Swapchain
	if res := vk.CreateSwapchain(d.device.LogicalDevice, &createInfo, d.allocator, &scHandle); res != vk.Success {
		core.LogError("failed to create swapchain: %s", resultString(res))
		return 0, nil, gpuResult(res)
	}

	var count uint32
	if res := vk.GetSwapchainImages(d.device.LogicalDevice, scHandle, &count, nil); res != vk.Success {
		vk.DestroySwapchain(d.device.LogicalDevice, scHandle, d.allocator)
		core.LogError("failed to get swapchain images: %s", resultString(res))
		return 0, nil, gpuResult(res)
	}
	vkImages := make([]vk.Image, count)
	if res := vk.GetSwapchainImages(d.device.LogicalDevice, scHandle, &count, vkImages); res != vk.Success {
		vk.DestroySwapchain(d.device.LogicalDevice, scHandle, d.allocator)
		core.LogError("failed to get swapchain images: %s", resultString(res))
		return 0, nil, gpuResult(res)
	}

	sc := gpu.Swapchain(d.handle())
	d.swapchains[sc] = scHandle

	images := make([]gpu.Image, count)
	for i, img := range vkImages {
		id := gpu.Image(d.handle())
		// Swapchain images have no backing allocation of their own.
		d.images[id] = &imageResource{
			handle: img,
			width:  extent.Width,
			height: extent.Height,
			aspect: vk.ImageAspectColorBit,
		}
		images[i] = id
	}
	d.swapchainImages[sc] = images
	core.LogDebug("swapchain created: %dx%d, %d images", extent.Width, extent.Height, count)
	return sc, images, gpu.Success
}

func (d *Driver) DestroySwapchain(sc gpu.Swapchain) {
	handle, ok := d.swapchains[sc]
	if !ok {
		return
	}
	// The swapchain owns its images; only the bookkeeping entries go.
	for _, id := range d.swapchainImages[sc] {
		delete(d.images, id)
	}
	delete(d.swapchainImages, sc)
	vk.DestroySwapchain(d.device.LogicalDevice, handle, d.allocator)
	delete(d.swapchains, sc)
}

func (d *Driver) CreateSwapchainImageView(img gpu.Image) (gpu.ImageView, gpu.Result) {
	res, ok := d.images[img]
	if !ok {
		return 0, gpu.ErrUnknown
	}
	viewInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    res.handle,
		ViewType: vk.ImageViewType2d,
		Format:   d.surfaceFormat.Format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
			LevelCount: 1,
			LayerCount: 1,
		},
	}
	var view vk.ImageView
	if r := vk.CreateImageView(d.device.LogicalDevice, &viewInfo, d.allocator, &view); r != vk.Success {
		core.LogError("failed to create swapchain image view: %s", resultString(r))
		return 0, gpuResult(r)
	}
	id := gpu.ImageView(d.handle())
	d.views[id] = view
	return id, gpu.Success
}

func (d *Driver) DestroyImageView(view gpu.ImageView) {
	if handle, ok := d.views[view]; ok {
		vk.DestroyImageView(d.device.LogicalDevice, handle, d.allocator)
		delete(d.views, view)
	}
}

func (d *Driver) AcquireNextImage(sc gpu.Swapchain, imageAvailable gpu.Semaphore) (uint32, gpu.Result) {
	handle, ok := d.swapchains[sc]
	if !ok {
		return 0, gpu.ErrUnknown
	}
	var imageIndex uint32
	res := vk.AcquireNextImage(d.device.LogicalDevice, handle, gomath.MaxUint64,
		d.semaphores[imageAvailable], vk.NullFence, &imageIndex)
	return imageIndex, gpuResult(res)
}

func (d *Driver) Present(sc gpu.Swapchain, renderFinished gpu.Semaphore, imageIndex uint32) gpu.Result {
	handle, ok := d.swapchains[sc]
	if !ok {
		return gpu.ErrUnknown
	}
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{d.semaphores[renderFinished]},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{handle},
		PImageIndices:      []uint32{imageIndex},
	}
	return gpuResult(vk.QueuePresent(d.device.PresentQueue, &presentInfo))
}
