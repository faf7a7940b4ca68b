package gpu

// Driver enumerates every call the renderer core makes into the graphics
// API. The production implementation wraps Vulkan; tests substitute an
// in-memory fake. All calls are driven from a single goroutine.
type Driver interface {
	// Surface and capability queries.
	SurfaceSize() (width, height uint32)
	SupportsPresentMode(mode PresentMode) bool
	MaxMSAA() MSAA
	DepthFormatSupported(format Format) bool
	SurfaceFormat() Format

	// Swapchain. CreateSwapchain returns the presentable images; their
	// views are created and destroyed one by one.
	CreateSwapchain(opts SwapchainOptions) (Swapchain, []Image, Result)
	DestroySwapchain(sc Swapchain)
	CreateSwapchainImageView(img Image) (ImageView, Result)
	DestroyImageView(view ImageView)
	AcquireNextImage(sc Swapchain, imageAvailable Semaphore) (uint32, Result)
	Present(sc Swapchain, renderFinished Semaphore, imageIndex uint32) Result

	// Images and framebuffers.
	CreateImage(opts ImageOptions) (Image, ImageView, Result)
	DestroyImage(img Image, view ImageView)
	// UploadImagePixels stages tightly packed RGBA pixels into the image
	// and leaves it in the shader-read-only layout.
	UploadImagePixels(img Image, width, height uint32, pixels []byte) Result
	CreateRenderPass(opts RenderPassOptions) (RenderPass, Result)
	DestroyRenderPass(rp RenderPass)
	CreateFramebuffer(rp RenderPass, attachments []ImageView, width, height uint32) (Framebuffer, Result)
	DestroyFramebuffer(fb Framebuffer)

	// Pipelines.
	CreateDescriptorSetLayout(bindings []DescriptorBinding) (DescriptorSetLayout, Result)
	DestroyDescriptorSetLayout(layout DescriptorSetLayout)
	CreatePipeline(opts PipelineOptions) (Pipeline, Result)
	DestroyPipeline(p Pipeline)

	// Descriptors. AllocateDescriptorSet reports ErrOutOfPoolMemory as a
	// recoverable condition distinct from device memory exhaustion.
	CreateDescriptorPool(sizes []DescriptorPoolSize, maxSets uint32) (DescriptorPool, Result)
	DestroyDescriptorPool(pool DescriptorPool)
	AllocateDescriptorSet(pool DescriptorPool, layout DescriptorSetLayout) (DescriptorSet, Result)
	ResetDescriptorPool(pool DescriptorPool) Result
	UpdateDescriptorSet(set DescriptorSet, writes []DescriptorWrite)

	// Buffers and samplers.
	CreateBuffer(size uint64, usage BufferUsage, hostVisible bool) (Buffer, Result)
	DestroyBuffer(buf Buffer)
	WriteBuffer(buf Buffer, offset uint64, data []byte) Result
	CreateSampler(filter Filter) (Sampler, Result)
	DestroySampler(s Sampler)

	// Synchronization.
	CreateSemaphore() (Semaphore, Result)
	DestroySemaphore(s Semaphore)
	CreateFence(signaled bool) (Fence, Result)
	DestroyFence(f Fence)
	WaitForFence(f Fence) Result
	ResetFence(f Fence) Result
	QueueWaitIdle() Result
	DeviceWaitIdle() Result

	// Command recording. Command buffers come from the driver's pool and
	// are recycled with ResetCommandBuffer between frames; FreeCommandBuffer
	// returns one to the pool for good.
	GetCommandBuffer(primary bool) (CommandBuffer, Result)
	ResetCommandBuffer(cb CommandBuffer)
	FreeCommandBuffer(cb CommandBuffer)
	BeginCommandBuffer(cb CommandBuffer) Result
	EndCommandBuffer(cb CommandBuffer) Result
	CmdBeginRenderPass(cb CommandBuffer, rp RenderPass, fb Framebuffer, width, height uint32, clear ClearValue)
	CmdEndRenderPass(cb CommandBuffer)
	CmdBindPipeline(cb CommandBuffer, p Pipeline)
	CmdBindDescriptorSets(cb CommandBuffer, p Pipeline, sets []DescriptorSet)
	CmdBindVertexBuffer(cb CommandBuffer, buf Buffer)
	CmdSetViewport(cb CommandBuffer, x, y, width, height float32)
	CmdSetLineWidth(cb CommandBuffer, width float32)
	CmdSetBlendConstants(cb CommandBuffer, constants [4]float32)
	CmdPushConstants(cb CommandBuffer, p Pipeline, data []byte)
	CmdDraw(cb CommandBuffer, vertexCount uint32)
	CmdTransitionImageLayout(cb CommandBuffer, img Image, from, to ImageLayout)
	Submit(info SubmitInfo) Result
}
