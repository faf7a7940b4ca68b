package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/vivid-engine/vivid/engine/core"
	"github.com/vivid-engine/vivid/engine/gpu"
)

func vkImageUsage(usage gpu.ImageUsage) vk.ImageUsageFlags {
	var flags vk.ImageUsageFlags
	if usage&gpu.UsageColourAttachment != 0 {
		flags |= vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit)
	}
	if usage&gpu.UsageDepthStencilAttachment != 0 {
		flags |= vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit)
	}
	if usage&gpu.UsageSampled != 0 {
		flags |= vk.ImageUsageFlags(vk.ImageUsageSampledBit)
	}
	if usage&gpu.UsageTransient != 0 {
		flags |= vk.ImageUsageFlags(vk.ImageUsageTransientAttachmentBit)
	}
	if usage&gpu.UsageTransferDst != 0 {
		flags |= vk.ImageUsageFlags(vk.ImageUsageTransferDstBit)
	}
	return flags
}

func (d *Driver) CreateImage(opts gpu.ImageOptions) (gpu.Image, gpu.ImageView, gpu.Result) {
	aspect := vk.ImageAspectColorBit
	if opts.Aspect == gpu.AspectDepth {
		aspect = vk.ImageAspectDepthBit
	}
	samples := opts.Samples
	if samples == 0 {
		samples = gpu.MSAA1x
	}

	imageInfo := vk.ImageCreateInfo{
		SType:         vk.StructureTypeImageCreateInfo,
		ImageType:     vk.ImageType2d,
		Format:        vkFormat(opts.Format),
		Extent:        vk.Extent3D{Width: opts.Width, Height: opts.Height, Depth: 1},
		MipLevels:     1,
		ArrayLayers:   1,
		Samples:       vkSampleCount(samples),
		Tiling:        vk.ImageTilingOptimal,
		Usage:         vkImageUsage(opts.Usage),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}

	var image vk.Image
	if res := vk.CreateImage(d.device.LogicalDevice, &imageInfo, d.allocator, &image); res != vk.Success {
		core.LogError("failed to create image: %s", resultString(res))
		return 0, 0, gpuResult(res)
	}

	var memReq vk.MemoryRequirements
	vk.GetImageMemoryRequirements(d.device.LogicalDevice, image, &memReq)
	memReq.Deref()

	memIndex := d.device.findMemoryIndex(memReq.MemoryTypeBits, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if memIndex < 0 {
		vk.DestroyImage(d.device.LogicalDevice, image, d.allocator)
		return 0, 0, gpu.ErrOutOfDeviceMemory
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memReq.Size,
		MemoryTypeIndex: uint32(memIndex),
	}
	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(d.device.LogicalDevice, &allocInfo, d.allocator, &memory); res != vk.Success {
		vk.DestroyImage(d.device.LogicalDevice, image, d.allocator)
		core.LogError("failed to allocate image memory: %s", resultString(res))
		return 0, 0, gpuResult(res)
	}
	if res := vk.BindImageMemory(d.device.LogicalDevice, image, memory, 0); res != vk.Success {
		vk.FreeMemory(d.device.LogicalDevice, memory, d.allocator)
		vk.DestroyImage(d.device.LogicalDevice, image, d.allocator)
		core.LogError("failed to bind image memory: %s", resultString(res))
		return 0, 0, gpuResult(res)
	}

	viewInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: vk.ImageViewType2d,
		Format:   imageInfo.Format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(aspect),
			LevelCount: 1,
			LayerCount: 1,
		},
	}
	var view vk.ImageView
	if res := vk.CreateImageView(d.device.LogicalDevice, &viewInfo, d.allocator, &view); res != vk.Success {
		vk.FreeMemory(d.device.LogicalDevice, memory, d.allocator)
		vk.DestroyImage(d.device.LogicalDevice, image, d.allocator)
		core.LogError("failed to create image view: %s", resultString(res))
		return 0, 0, gpuResult(res)
	}

	imgID := gpu.Image(d.handle())
	d.images[imgID] = &imageResource{
		handle: image,
		memory: memory,
		width:  opts.Width,
		height: opts.Height,
		aspect: aspect,
	}
	viewID := gpu.ImageView(d.handle())
	d.views[viewID] = view
	return imgID, viewID, gpu.Success
}

func (d *Driver) DestroyImage(img gpu.Image, view gpu.ImageView) {
	d.DestroyImageView(view)
	res, ok := d.images[img]
	if !ok {
		return
	}
	vk.DestroyImage(d.device.LogicalDevice, res.handle, d.allocator)
	if res.memory != vk.NullDeviceMemory {
		vk.FreeMemory(d.device.LogicalDevice, res.memory, d.allocator)
	}
	delete(d.images, img)
}

// UploadImagePixels copies tightly packed RGBA pixels through a staging
// buffer and leaves the image in the shader-read-only layout.
func (d *Driver) UploadImagePixels(img gpu.Image, width, height uint32, pixels []byte) gpu.Result {
	res, ok := d.images[img]
	if !ok {
		return gpu.ErrUnknown
	}

	staging, stagingMem, result := d.createRawBuffer(vk.DeviceSize(len(pixels)),
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if result != gpu.Success {
		return result
	}
	defer func() {
		vk.DestroyBuffer(d.device.LogicalDevice, staging, d.allocator)
		vk.FreeMemory(d.device.LogicalDevice, stagingMem, d.allocator)
	}()

	var mapped unsafe.Pointer
	if r := vk.MapMemory(d.device.LogicalDevice, stagingMem, 0, vk.DeviceSize(len(pixels)), 0, &mapped); r != vk.Success {
		core.LogError("failed to map staging memory: %s", resultString(r))
		return gpuResult(r)
	}
	vk.Memcopy(mapped, pixels)
	vk.UnmapMemory(d.device.LogicalDevice, stagingMem)

	cb, result := d.beginOneTimeCommands()
	if result != gpu.Success {
		return result
	}

	recordImageBarrier(cb, res.handle, res.aspect,
		vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal,
		0, vk.AccessFlags(vk.AccessTransferWriteBit),
		vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit), vk.PipelineStageFlags(vk.PipelineStageTransferBit))

	region := vk.BufferImageCopy{
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask: vk.ImageAspectFlags(res.aspect),
			LayerCount: 1,
		},
		ImageExtent: vk.Extent3D{Width: width, Height: height, Depth: 1},
	}
	vk.CmdCopyBufferToImage(cb, staging, res.handle, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{region})

	recordImageBarrier(cb, res.handle, res.aspect,
		vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal,
		vk.AccessFlags(vk.AccessTransferWriteBit), vk.AccessFlags(vk.AccessShaderReadBit),
		vk.PipelineStageFlags(vk.PipelineStageTransferBit), vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit))

	return d.endOneTimeCommands(cb)
}

// layoutAccess maps one of the renderer's layouts onto the access and
// stage masks its barriers use.
func layoutAccess(layout gpu.ImageLayout) (vk.AccessFlags, vk.PipelineStageFlags) {
	switch layout {
	case gpu.LayoutColourAttachment:
		return vk.AccessFlags(vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit),
			vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)
	case gpu.LayoutShaderReadOnly:
		return vk.AccessFlags(vk.AccessShaderReadBit),
			vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit)
	case gpu.LayoutPresentSrc:
		return vk.AccessFlags(vk.AccessMemoryReadBit),
			vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)
	case gpu.LayoutDepthStencilAttachment:
		return vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit | vk.AccessDepthStencilAttachmentWriteBit),
			vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit | vk.PipelineStageLateFragmentTestsBit)
	default:
		return 0, vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)
	}
}

func (d *Driver) CmdTransitionImageLayout(cb gpu.CommandBuffer, img gpu.Image, from, to gpu.ImageLayout) {
	res, ok := d.images[img]
	if !ok {
		return
	}
	srcAccess, srcStage := layoutAccess(from)
	dstAccess, dstStage := layoutAccess(to)
	recordImageBarrier(d.commandBuffers[cb], res.handle, res.aspect,
		vkImageLayout(from), vkImageLayout(to),
		srcAccess, dstAccess, srcStage, dstStage)
}

func recordImageBarrier(cb vk.CommandBuffer, image vk.Image, aspect vk.ImageAspectFlagBits,
	oldLayout, newLayout vk.ImageLayout, srcAccess, dstAccess vk.AccessFlags,
	srcStage, dstStage vk.PipelineStageFlags) {
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		OldLayout:           oldLayout,
		NewLayout:           newLayout,
		SrcAccessMask:       srcAccess,
		DstAccessMask:       dstAccess,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               image,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(aspect),
			LevelCount: 1,
			LayerCount: 1,
		},
	}
	vk.CmdPipelineBarrier(cb, srcStage, dstStage, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
}
