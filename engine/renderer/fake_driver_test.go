package renderer

import (
	"github.com/vivid-engine/vivid/engine/gpu"
)

// fakeDriver is an in-memory gpu.Driver. Handles are unique uint64s; the
// "GPU" completes work the moment a fence is waited on. It records enough
// of the call stream for the tests to check ordering properties.
type fakeDriver struct {
	next uint64

	width  uint32
	height uint32

	imageCount int
	nextImage  uint32
	acquired   []uint32

	// Descriptor pools: capacity and live allocation count per pool.
	pools map[gpu.DescriptorPool]*fakePool

	// Fence state: true means signaled.
	fences     map[gpu.Fence]bool
	fenceWaits int

	// Per-image fence of the last submitted frame, recorded at Present.
	imageFences     map[uint32]gpu.Fence
	lastSubmitFence gpu.Fence
	imageIndexes    map[gpu.Framebuffer]uint32
	reusedBusyImage bool

	swapchainImages []gpu.Image
	framebuffers    []gpu.Framebuffer

	passBegins  int
	passEnds    int
	transitions int

	pipelines  map[gpu.Pipeline]gpu.PipelineOptions
	boundPipes []gpu.Pipeline

	cbAllocs       int
	cbFrees        int
	queueWaitIdles int

	presentResult gpu.Result
	buffers       map[gpu.Buffer][]byte
}

type fakePool struct {
	capacity  int
	allocated int
}

func newFakeDriver(imageCount int) *fakeDriver {
	return &fakeDriver{
		width:         800,
		height:        600,
		imageCount:    imageCount,
		pools:         make(map[gpu.DescriptorPool]*fakePool),
		fences:        make(map[gpu.Fence]bool),
		imageFences:   make(map[uint32]gpu.Fence),
		imageIndexes:  make(map[gpu.Framebuffer]uint32),
		pipelines:     make(map[gpu.Pipeline]gpu.PipelineOptions),
		presentResult: gpu.Success,
		buffers:       make(map[gpu.Buffer][]byte),
	}
}

func (d *fakeDriver) handle() uint64 {
	d.next++
	return d.next
}

func (d *fakeDriver) SurfaceSize() (uint32, uint32) { return d.width, d.height }
func (d *fakeDriver) SupportsPresentMode(gpu.PresentMode) bool { return true }
func (d *fakeDriver) MaxMSAA() gpu.MSAA { return gpu.MSAA8x }
func (d *fakeDriver) DepthFormatSupported(f gpu.Format) bool { return f == gpu.FormatD32Sfloat }
func (d *fakeDriver) SurfaceFormat() gpu.Format { return gpu.FormatB8G8R8A8Srgb }

func (d *fakeDriver) CreateSwapchain(opts gpu.SwapchainOptions) (gpu.Swapchain, []gpu.Image, gpu.Result) {
	d.swapchainImages = make([]gpu.Image, d.imageCount)
	for i := range d.swapchainImages {
		d.swapchainImages[i] = gpu.Image(d.handle())
	}
	d.framebuffers = nil
	d.nextImage = 0
	return gpu.Swapchain(d.handle()), d.swapchainImages, gpu.Success
}

func (d *fakeDriver) DestroySwapchain(gpu.Swapchain) {}

func (d *fakeDriver) CreateSwapchainImageView(gpu.Image) (gpu.ImageView, gpu.Result) {
	return gpu.ImageView(d.handle()), gpu.Success
}

func (d *fakeDriver) DestroyImageView(gpu.ImageView) {}

func (d *fakeDriver) AcquireNextImage(gpu.Swapchain, gpu.Semaphore) (uint32, gpu.Result) {
	idx := d.nextImage
	d.nextImage = (d.nextImage + 1) % uint32(d.imageCount)
	d.acquired = append(d.acquired, idx)
	return idx, gpu.Success
}

func (d *fakeDriver) Present(_ gpu.Swapchain, _ gpu.Semaphore, imageIndex uint32) gpu.Result {
	d.imageFences[imageIndex] = d.lastSubmitFence
	res := d.presentResult
	d.presentResult = gpu.Success
	return res
}

func (d *fakeDriver) CreateImage(gpu.ImageOptions) (gpu.Image, gpu.ImageView, gpu.Result) {
	return gpu.Image(d.handle()), gpu.ImageView(d.handle()), gpu.Success
}

func (d *fakeDriver) DestroyImage(gpu.Image, gpu.ImageView) {}

func (d *fakeDriver) UploadImagePixels(gpu.Image, uint32, uint32, []byte) gpu.Result {
	return gpu.Success
}

func (d *fakeDriver) CreateRenderPass(gpu.RenderPassOptions) (gpu.RenderPass, gpu.Result) {
	return gpu.RenderPass(d.handle()), gpu.Success
}

func (d *fakeDriver) DestroyRenderPass(gpu.RenderPass) {}

func (d *fakeDriver) CreateFramebuffer(rp gpu.RenderPass, attachments []gpu.ImageView, w, h uint32) (gpu.Framebuffer, gpu.Result) {
	fb := gpu.Framebuffer(d.handle())
	// Screen framebuffers are created in swapchain image order.
	if w == d.width && h == d.height && len(d.framebuffers) < d.imageCount {
		d.imageIndexes[fb] = uint32(len(d.framebuffers))
		d.framebuffers = append(d.framebuffers, fb)
	}
	return fb, gpu.Success
}

func (d *fakeDriver) DestroyFramebuffer(gpu.Framebuffer) {}

func (d *fakeDriver) CreateDescriptorSetLayout([]gpu.DescriptorBinding) (gpu.DescriptorSetLayout, gpu.Result) {
	return gpu.DescriptorSetLayout(d.handle()), gpu.Success
}

func (d *fakeDriver) DestroyDescriptorSetLayout(gpu.DescriptorSetLayout) {}

func (d *fakeDriver) CreatePipeline(opts gpu.PipelineOptions) (gpu.Pipeline, gpu.Result) {
	p := gpu.Pipeline(d.handle())
	d.pipelines[p] = opts
	return p, gpu.Success
}

func (d *fakeDriver) DestroyPipeline(p gpu.Pipeline) {
	delete(d.pipelines, p)
}

func (d *fakeDriver) CreateDescriptorPool(sizes []gpu.DescriptorPoolSize, maxSets uint32) (gpu.DescriptorPool, gpu.Result) {
	pool := gpu.DescriptorPool(d.handle())
	d.pools[pool] = &fakePool{capacity: int(maxSets)}
	return pool, gpu.Success
}

func (d *fakeDriver) DestroyDescriptorPool(pool gpu.DescriptorPool) {
	delete(d.pools, pool)
}

func (d *fakeDriver) AllocateDescriptorSet(pool gpu.DescriptorPool, _ gpu.DescriptorSetLayout) (gpu.DescriptorSet, gpu.Result) {
	p := d.pools[pool]
	if p.allocated >= p.capacity {
		return 0, gpu.ErrOutOfPoolMemory
	}
	p.allocated++
	return gpu.DescriptorSet(d.handle()), gpu.Success
}

func (d *fakeDriver) ResetDescriptorPool(pool gpu.DescriptorPool) gpu.Result {
	d.pools[pool].allocated = 0
	return gpu.Success
}

func (d *fakeDriver) UpdateDescriptorSet(gpu.DescriptorSet, []gpu.DescriptorWrite) {}

func (d *fakeDriver) CreateBuffer(size uint64, _ gpu.BufferUsage, _ bool) (gpu.Buffer, gpu.Result) {
	buf := gpu.Buffer(d.handle())
	d.buffers[buf] = make([]byte, size)
	return buf, gpu.Success
}

func (d *fakeDriver) DestroyBuffer(buf gpu.Buffer) {
	delete(d.buffers, buf)
}

func (d *fakeDriver) WriteBuffer(buf gpu.Buffer, offset uint64, data []byte) gpu.Result {
	copy(d.buffers[buf][offset:], data)
	return gpu.Success
}

func (d *fakeDriver) CreateSampler(gpu.Filter) (gpu.Sampler, gpu.Result) {
	return gpu.Sampler(d.handle()), gpu.Success
}

func (d *fakeDriver) DestroySampler(gpu.Sampler) {}

func (d *fakeDriver) CreateSemaphore() (gpu.Semaphore, gpu.Result) {
	return gpu.Semaphore(d.handle()), gpu.Success
}

func (d *fakeDriver) DestroySemaphore(gpu.Semaphore) {}

func (d *fakeDriver) CreateFence(signaled bool) (gpu.Fence, gpu.Result) {
	f := gpu.Fence(d.handle())
	d.fences[f] = signaled
	return f, gpu.Success
}

func (d *fakeDriver) DestroyFence(f gpu.Fence) {
	delete(d.fences, f)
}

// WaitForFence completes the work fenced by f: an unsignaled fence becomes
// signaled, as if the GPU finished right then.
func (d *fakeDriver) WaitForFence(f gpu.Fence) gpu.Result {
	d.fenceWaits++
	d.fences[f] = true
	return gpu.Success
}

func (d *fakeDriver) ResetFence(f gpu.Fence) gpu.Result {
	d.fences[f] = false
	return gpu.Success
}

func (d *fakeDriver) QueueWaitIdle() gpu.Result {
	d.queueWaitIdles++
	d.signalAll()
	return gpu.Success
}

func (d *fakeDriver) DeviceWaitIdle() gpu.Result {
	d.signalAll()
	return gpu.Success
}

func (d *fakeDriver) signalAll() {
	for f := range d.fences {
		d.fences[f] = true
	}
}

func (d *fakeDriver) GetCommandBuffer(bool) (gpu.CommandBuffer, gpu.Result) {
	d.cbAllocs++
	return gpu.CommandBuffer(d.handle()), gpu.Success
}

func (d *fakeDriver) FreeCommandBuffer(gpu.CommandBuffer) {
	d.cbFrees++
}

func (d *fakeDriver) ResetCommandBuffer(gpu.CommandBuffer) {}
func (d *fakeDriver) BeginCommandBuffer(gpu.CommandBuffer) gpu.Result { return gpu.Success }
func (d *fakeDriver) EndCommandBuffer(gpu.CommandBuffer) gpu.Result { return gpu.Success }

func (d *fakeDriver) CmdBeginRenderPass(_ gpu.CommandBuffer, _ gpu.RenderPass, fb gpu.Framebuffer, _, _ uint32, _ gpu.ClearValue) {
	d.passBegins++
	if idx, ok := d.imageIndexes[fb]; ok {
		if f, used := d.imageFences[idx]; used && !d.fences[f] {
			// A new frame started writing a presentable image while its
			// previous user's fence was still unsignaled.
			d.reusedBusyImage = true
		}
	}
}

func (d *fakeDriver) CmdEndRenderPass(gpu.CommandBuffer) {
	d.passEnds++
}

func (d *fakeDriver) CmdBindPipeline(_ gpu.CommandBuffer, p gpu.Pipeline) {
	d.boundPipes = append(d.boundPipes, p)
}
func (d *fakeDriver) CmdBindDescriptorSets(gpu.CommandBuffer, gpu.Pipeline, []gpu.DescriptorSet) {}
func (d *fakeDriver) CmdBindVertexBuffer(gpu.CommandBuffer, gpu.Buffer) {}
func (d *fakeDriver) CmdSetViewport(gpu.CommandBuffer, float32, float32, float32, float32) {}
func (d *fakeDriver) CmdSetLineWidth(gpu.CommandBuffer, float32) {}
func (d *fakeDriver) CmdSetBlendConstants(gpu.CommandBuffer, [4]float32) {}
func (d *fakeDriver) CmdPushConstants(gpu.CommandBuffer, gpu.Pipeline, []byte) {}
func (d *fakeDriver) CmdDraw(gpu.CommandBuffer, uint32) {}

func (d *fakeDriver) CmdTransitionImageLayout(_ gpu.CommandBuffer, _ gpu.Image, _, _ gpu.ImageLayout) {
	d.transitions++
}

func (d *fakeDriver) Submit(info gpu.SubmitInfo) gpu.Result {
	d.lastSubmitFence = info.Fence
	return gpu.Success
}

type fakeWindow struct{}

func (fakeWindow) Minimized() bool { return false }
func (fakeWindow) PollEvents() {}
