package vulkan

import (
	gomath "math"

	vk "github.com/goki/vulkan"

	"github.com/vivid-engine/vivid/engine/core"
	"github.com/vivid-engine/vivid/engine/gpu"
)

func (d *Driver) CreateSemaphore() (gpu.Semaphore, gpu.Result) {
	createInfo := vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}
	var handle vk.Semaphore
	if res := vk.CreateSemaphore(d.device.LogicalDevice, &createInfo, d.allocator, &handle); res != vk.Success {
		core.LogError("failed to create semaphore: %s", resultString(res))
		return 0, gpuResult(res)
	}
	id := gpu.Semaphore(d.handle())
	d.semaphores[id] = handle
	return id, gpu.Success
}

func (d *Driver) DestroySemaphore(s gpu.Semaphore) {
	if handle, ok := d.semaphores[s]; ok {
		vk.DestroySemaphore(d.device.LogicalDevice, handle, d.allocator)
		delete(d.semaphores, s)
	}
}

func (d *Driver) CreateFence(signaled bool) (gpu.Fence, gpu.Result) {
	createInfo := vk.FenceCreateInfo{SType: vk.StructureTypeFenceCreateInfo}
	if signaled {
		createInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	var handle vk.Fence
	if res := vk.CreateFence(d.device.LogicalDevice, &createInfo, d.allocator, &handle); res != vk.Success {
		core.LogError("failed to create fence: %s", resultString(res))
		return 0, gpuResult(res)
	}
	id := gpu.Fence(d.handle())
	d.fences[id] = handle
	return id, gpu.Success
}

func (d *Driver) DestroyFence(f gpu.Fence) {
	if handle, ok := d.fences[f]; ok {
		vk.DestroyFence(d.device.LogicalDevice, handle, d.allocator)
		delete(d.fences, f)
	}
}

func (d *Driver) WaitForFence(f gpu.Fence) gpu.Result {
	handle, ok := d.fences[f]
	if !ok {
		return gpu.ErrUnknown
	}
	return gpuResult(vk.WaitForFences(d.device.LogicalDevice, 1, []vk.Fence{handle}, vk.True, gomath.MaxUint64))
}

func (d *Driver) ResetFence(f gpu.Fence) gpu.Result {
	handle, ok := d.fences[f]
	if !ok {
		return gpu.ErrUnknown
	}
	return gpuResult(vk.ResetFences(d.device.LogicalDevice, 1, []vk.Fence{handle}))
}

func (d *Driver) QueueWaitIdle() gpu.Result {
	return gpuResult(vk.QueueWaitIdle(d.device.GraphicsQueue))
}

func (d *Driver) DeviceWaitIdle() gpu.Result {
	return gpuResult(vk.DeviceWaitIdle(d.device.LogicalDevice))
}
