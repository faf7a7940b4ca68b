package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/vivid-engine/vivid/engine/core"
	"github.com/vivid-engine/vivid/engine/gpu"
)

func (d *Driver) createRawBuffer(size vk.DeviceSize, usage vk.BufferUsageFlags, memFlags vk.MemoryPropertyFlags) (vk.Buffer, vk.DeviceMemory, gpu.Result) {
	createInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}
	var buffer vk.Buffer
	if res := vk.CreateBuffer(d.device.LogicalDevice, &createInfo, d.allocator, &buffer); res != vk.Success {
		core.LogError("failed to create buffer: %s", resultString(res))
		return vk.NullBuffer, vk.NullDeviceMemory, gpuResult(res)
	}

	var memReq vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.device.LogicalDevice, buffer, &memReq)
	memReq.Deref()

	memIndex := d.device.findMemoryIndex(memReq.MemoryTypeBits, memFlags)
	if memIndex < 0 {
		vk.DestroyBuffer(d.device.LogicalDevice, buffer, d.allocator)
		return vk.NullBuffer, vk.NullDeviceMemory, gpu.ErrOutOfDeviceMemory
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memReq.Size,
		MemoryTypeIndex: uint32(memIndex),
	}
	var memory vk.DeviceMemory
	if res := vk.AllocateMemory(d.device.LogicalDevice, &allocInfo, d.allocator, &memory); res != vk.Success {
		vk.DestroyBuffer(d.device.LogicalDevice, buffer, d.allocator)
		core.LogError("failed to allocate buffer memory: %s", resultString(res))
		return vk.NullBuffer, vk.NullDeviceMemory, gpuResult(res)
	}
	if res := vk.BindBufferMemory(d.device.LogicalDevice, buffer, memory, 0); res != vk.Success {
		vk.FreeMemory(d.device.LogicalDevice, memory, d.allocator)
		vk.DestroyBuffer(d.device.LogicalDevice, buffer, d.allocator)
		core.LogError("failed to bind buffer memory: %s", resultString(res))
		return vk.NullBuffer, vk.NullDeviceMemory, gpuResult(res)
	}
	return buffer, memory, gpu.Success
}

func (d *Driver) CreateBuffer(size uint64, usage gpu.BufferUsage, hostVisible bool) (gpu.Buffer, gpu.Result) {
	var usageFlags vk.BufferUsageFlags
	switch usage {
	case gpu.BufferUsageVertex:
		usageFlags = vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit)
	default:
		usageFlags = vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit)
	}

	memFlags := vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	if hostVisible {
		memFlags = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
	}

	buffer, memory, result := d.createRawBuffer(vk.DeviceSize(size), usageFlags, memFlags)
	if result != gpu.Success {
		return 0, result
	}

	res := &bufferResource{handle: buffer, memory: memory, size: vk.DeviceSize(size)}
	if hostVisible {
		// Persistently mapped for the buffer's lifetime.
		if r := vk.MapMemory(d.device.LogicalDevice, memory, 0, vk.DeviceSize(size), 0, &res.mapped); r != vk.Success {
			vk.FreeMemory(d.device.LogicalDevice, memory, d.allocator)
			vk.DestroyBuffer(d.device.LogicalDevice, buffer, d.allocator)
			core.LogError("failed to map buffer memory: %s", resultString(r))
			return 0, gpuResult(r)
		}
	}

	id := gpu.Buffer(d.handle())
	d.buffers[id] = res
	return id, gpu.Success
}

func (d *Driver) DestroyBuffer(buf gpu.Buffer) {
	res, ok := d.buffers[buf]
	if !ok {
		return
	}
	if res.mapped != nil {
		vk.UnmapMemory(d.device.LogicalDevice, res.memory)
	}
	vk.DestroyBuffer(d.device.LogicalDevice, res.handle, d.allocator)
	vk.FreeMemory(d.device.LogicalDevice, res.memory, d.allocator)
	delete(d.buffers, buf)
}

func (d *Driver) WriteBuffer(buf gpu.Buffer, offset uint64, data []byte) gpu.Result {
	res, ok := d.buffers[buf]
	if !ok || res.mapped == nil {
		return gpu.ErrUnknown
	}
	if vk.DeviceSize(offset)+vk.DeviceSize(len(data)) > res.size {
		return gpu.ErrUnknown
	}
	vk.Memcopy(unsafe.Pointer(uintptr(res.mapped)+uintptr(offset)), data)
	return gpu.Success
}

func (d *Driver) CreateSampler(filter gpu.Filter) (gpu.Sampler, gpu.Result) {
	vkFilter := vk.FilterLinear
	if filter == gpu.FilterNearest {
		vkFilter = vk.FilterNearest
	}
	createInfo := vk.SamplerCreateInfo{
		SType:        vk.StructureTypeSamplerCreateInfo,
		MagFilter:    vkFilter,
		MinFilter:    vkFilter,
		MipmapMode:   vk.SamplerMipmapModeNearest,
		AddressModeU: vk.SamplerAddressModeClampToEdge,
		AddressModeV: vk.SamplerAddressModeClampToEdge,
		AddressModeW: vk.SamplerAddressModeClampToEdge,
		MaxLod:       1.0,
		BorderColor:  vk.BorderColorIntOpaqueBlack,
	}
	var handle vk.Sampler
	if res := vk.CreateSampler(d.device.LogicalDevice, &createInfo, d.allocator, &handle); res != vk.Success {
		core.LogError("failed to create sampler: %s", resultString(res))
		return 0, gpuResult(res)
	}
	id := gpu.Sampler(d.handle())
	d.samplers[id] = handle
	return id, gpu.Success
}

func (d *Driver) DestroySampler(s gpu.Sampler) {
	if handle, ok := d.samplers[s]; ok {
		vk.DestroySampler(d.device.LogicalDevice, handle, d.allocator)
		delete(d.samplers, s)
	}
}
