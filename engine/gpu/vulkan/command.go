package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/vivid-engine/vivid/engine/core"
	"github.com/vivid-engine/vivid/engine/gpu"
)

func (d *Driver) allocateCommandBuffer(primary bool) (vk.CommandBuffer, gpu.Result) {
	level := vk.CommandBufferLevelPrimary
	if !primary {
		level = vk.CommandBufferLevelSecondary
	}
	allocInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        d.device.GraphicsCommandPool,
		Level:              level,
		CommandBufferCount: 1,
	}
	cbs := make([]vk.CommandBuffer, 1)
	if res := vk.AllocateCommandBuffers(d.device.LogicalDevice, &allocInfo, cbs); res != vk.Success {
		core.LogError("failed to allocate command buffer: %s", resultString(res))
		return nil, gpuResult(res)
	}
	return cbs[0], gpu.Success
}

func (d *Driver) GetCommandBuffer(primary bool) (gpu.CommandBuffer, gpu.Result) {
	cb, res := d.allocateCommandBuffer(primary)
	if res != gpu.Success {
		return 0, res
	}
	id := gpu.CommandBuffer(d.handle())
	d.commandBuffers[id] = cb
	return id, gpu.Success
}

func (d *Driver) ResetCommandBuffer(cb gpu.CommandBuffer) {
	if handle, ok := d.commandBuffers[cb]; ok {
		vk.ResetCommandBuffer(handle, 0)
	}
}

func (d *Driver) FreeCommandBuffer(cb gpu.CommandBuffer) {
	if handle, ok := d.commandBuffers[cb]; ok {
		vk.FreeCommandBuffers(d.device.LogicalDevice, d.device.GraphicsCommandPool, 1, []vk.CommandBuffer{handle})
		delete(d.commandBuffers, cb)
	}
}

func (d *Driver) BeginCommandBuffer(cb gpu.CommandBuffer) gpu.Result {
	handle, ok := d.commandBuffers[cb]
	if !ok {
		return gpu.ErrUnknown
	}
	beginInfo := vk.CommandBufferBeginInfo{SType: vk.StructureTypeCommandBufferBeginInfo}
	return gpuResult(vk.BeginCommandBuffer(handle, &beginInfo))
}

func (d *Driver) EndCommandBuffer(cb gpu.CommandBuffer) gpu.Result {
	handle, ok := d.commandBuffers[cb]
	if !ok {
		return gpu.ErrUnknown
	}
	return gpuResult(vk.EndCommandBuffer(handle))
}

// CmdBeginRenderPass builds the clear values in the pass's attachment
// order: depth when present, then colour, then the resolve target.
func (d *Driver) CmdBeginRenderPass(cb gpu.CommandBuffer, rp gpu.RenderPass, fb gpu.Framebuffer, width, height uint32, clear gpu.ClearValue) {
	handle, ok := d.commandBuffers[cb]
	if !ok {
		return
	}
	pass, ok := d.renderPasses[rp]
	if !ok {
		return
	}

	var clearValues []vk.ClearValue
	if pass.opts.DepthFormat != gpu.FormatUndefined {
		var depthClear vk.ClearValue
		depthClear.SetDepthStencil(1.0, 0)
		clearValues = append(clearValues, depthClear)
	}
	var colourClear vk.ClearValue
	colourClear.SetColor([]float32{clear.R, clear.G, clear.B, clear.A})
	clearValues = append(clearValues, colourClear)
	if pass.opts.Samples > gpu.MSAA1x {
		clearValues = append(clearValues, colourClear)
	}

	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  pass.handle,
		Framebuffer: d.framebuffers[fb],
		RenderArea: vk.Rect2D{
			Extent: vk.Extent2D{Width: width, Height: height},
		},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}
	vk.CmdBeginRenderPass(handle, &beginInfo, vk.SubpassContentsInline)
}

func (d *Driver) CmdEndRenderPass(cb gpu.CommandBuffer) {
	if handle, ok := d.commandBuffers[cb]; ok {
		vk.CmdEndRenderPass(handle)
	}
}

func (d *Driver) CmdBindPipeline(cb gpu.CommandBuffer, p gpu.Pipeline) {
	handle, ok := d.commandBuffers[cb]
	if !ok {
		return
	}
	if pipe, ok := d.pipelines[p]; ok {
		vk.CmdBindPipeline(handle, vk.PipelineBindPointGraphics, pipe.handle)
	}
}

func (d *Driver) CmdBindDescriptorSets(cb gpu.CommandBuffer, p gpu.Pipeline, sets []gpu.DescriptorSet) {
	handle, ok := d.commandBuffers[cb]
	if !ok {
		return
	}
	pipe, ok := d.pipelines[p]
	if !ok {
		return
	}
	vkSets := make([]vk.DescriptorSet, len(sets))
	for i, s := range sets {
		vkSets[i] = d.descSets[s]
	}
	vk.CmdBindDescriptorSets(handle, vk.PipelineBindPointGraphics, pipe.layout, 0, uint32(len(vkSets)), vkSets, 0, nil)
}

func (d *Driver) CmdBindVertexBuffer(cb gpu.CommandBuffer, buf gpu.Buffer) {
	handle, ok := d.commandBuffers[cb]
	if !ok {
		return
	}
	res, ok := d.buffers[buf]
	if !ok {
		return
	}
	vk.CmdBindVertexBuffers(handle, 0, 1, []vk.Buffer{res.handle}, []vk.DeviceSize{0})
}

// CmdSetViewport sets the viewport and a matching scissor.
func (d *Driver) CmdSetViewport(cb gpu.CommandBuffer, x, y, width, height float32) {
	handle, ok := d.commandBuffers[cb]
	if !ok {
		return
	}
	viewport := vk.Viewport{
		X:        x,
		Y:        y,
		Width:    width,
		Height:   height,
		MaxDepth: 1.0,
	}
	vk.CmdSetViewport(handle, 0, 1, []vk.Viewport{viewport})
	scissor := vk.Rect2D{
		Offset: vk.Offset2D{X: int32(x), Y: int32(y)},
		Extent: vk.Extent2D{Width: uint32(width), Height: uint32(height)},
	}
	vk.CmdSetScissor(handle, 0, 1, []vk.Rect2D{scissor})
}

func (d *Driver) CmdSetLineWidth(cb gpu.CommandBuffer, width float32) {
	if handle, ok := d.commandBuffers[cb]; ok {
		vk.CmdSetLineWidth(handle, width)
	}
}

func (d *Driver) CmdSetBlendConstants(cb gpu.CommandBuffer, constants [4]float32) {
	if handle, ok := d.commandBuffers[cb]; ok {
		vk.CmdSetBlendConstants(handle, constants)
	}
}

func (d *Driver) CmdPushConstants(cb gpu.CommandBuffer, p gpu.Pipeline, data []byte) {
	handle, ok := d.commandBuffers[cb]
	if !ok {
		return
	}
	pipe, ok := d.pipelines[p]
	if !ok || len(data) == 0 {
		return
	}
	stages := vk.ShaderStageFlags(vk.ShaderStageVertexBit) | vk.ShaderStageFlags(vk.ShaderStageFragmentBit)
	vk.CmdPushConstants(handle, pipe.layout, stages, 0, uint32(len(data)), unsafe.Pointer(&data[0]))
}

func (d *Driver) CmdDraw(cb gpu.CommandBuffer, vertexCount uint32) {
	if handle, ok := d.commandBuffers[cb]; ok {
		vk.CmdDraw(handle, vertexCount, 1, 0, 0)
	}
}

func (d *Driver) Submit(info gpu.SubmitInfo) gpu.Result {
	handle, ok := d.commandBuffers[info.CommandBuffer]
	if !ok {
		return gpu.ErrUnknown
	}
	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{handle},
	}
	if info.WaitSemaphore != 0 {
		submitInfo.WaitSemaphoreCount = 1
		submitInfo.PWaitSemaphores = []vk.Semaphore{d.semaphores[info.WaitSemaphore]}
		submitInfo.PWaitDstStageMask = []vk.PipelineStageFlags{
			vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		}
	}
	if info.SignalSem != 0 {
		submitInfo.SignalSemaphoreCount = 1
		submitInfo.PSignalSemaphores = []vk.Semaphore{d.semaphores[info.SignalSem]}
	}
	fence := vk.NullFence
	if info.Fence != 0 {
		fence = d.fences[info.Fence]
	}
	return gpuResult(vk.QueueSubmit(d.device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, fence))
}

// One-time command helpers for transfer work outside the frame loop.

func (d *Driver) beginOneTimeCommands() (vk.CommandBuffer, gpu.Result) {
	cb, res := d.allocateCommandBuffer(true)
	if res != gpu.Success {
		return nil, res
	}
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if r := vk.BeginCommandBuffer(cb, &beginInfo); r != vk.Success {
		vk.FreeCommandBuffers(d.device.LogicalDevice, d.device.GraphicsCommandPool, 1, []vk.CommandBuffer{cb})
		return nil, gpuResult(r)
	}
	return cb, gpu.Success
}

func (d *Driver) endOneTimeCommands(cb vk.CommandBuffer) gpu.Result {
	defer vk.FreeCommandBuffers(d.device.LogicalDevice, d.device.GraphicsCommandPool, 1, []vk.CommandBuffer{cb})
	if r := vk.EndCommandBuffer(cb); r != vk.Success {
		return gpuResult(r)
	}
	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cb},
	}
	if r := vk.QueueSubmit(d.device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, vk.NullFence); r != vk.Success {
		core.LogError("one-time submit failed: %s", resultString(r))
		return gpuResult(r)
	}
	return gpuResult(vk.QueueWaitIdle(d.device.GraphicsQueue))
}
