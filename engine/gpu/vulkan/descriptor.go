package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/vivid-engine/vivid/engine/core"
	"github.com/vivid-engine/vivid/engine/gpu"
)

func (d *Driver) CreateDescriptorPool(sizes []gpu.DescriptorPoolSize, maxSets uint32) (gpu.DescriptorPool, gpu.Result) {
	poolSizes := make([]vk.DescriptorPoolSize, len(sizes))
	for i, s := range sizes {
		poolSizes[i] = vk.DescriptorPoolSize{
			Type:            vkDescriptorType(s.Kind),
			DescriptorCount: s.Count,
		}
	}
	createInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
		MaxSets:       maxSets,
	}
	var handle vk.DescriptorPool
	if res := vk.CreateDescriptorPool(d.device.LogicalDevice, &createInfo, d.allocator, &handle); res != vk.Success {
		core.LogError("failed to create descriptor pool: %s", resultString(res))
		return 0, gpuResult(res)
	}
	id := gpu.DescriptorPool(d.handle())
	d.descPools[id] = handle
	return id, gpu.Success
}

func (d *Driver) DestroyDescriptorPool(pool gpu.DescriptorPool) {
	handle, ok := d.descPools[pool]
	if !ok {
		return
	}
	d.dropPoolSets(pool)
	vk.DestroyDescriptorPool(d.device.LogicalDevice, handle, d.allocator)
	delete(d.descPools, pool)
}

func (d *Driver) AllocateDescriptorSet(pool gpu.DescriptorPool, layout gpu.DescriptorSetLayout) (gpu.DescriptorSet, gpu.Result) {
	poolHandle, ok := d.descPools[pool]
	if !ok {
		return 0, gpu.ErrUnknown
	}
	layoutHandle, ok := d.setLayouts[layout]
	if !ok {
		return 0, gpu.ErrUnknown
	}
	allocInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     poolHandle,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layoutHandle},
	}
	var set vk.DescriptorSet
	if res := vk.AllocateDescriptorSets(d.device.LogicalDevice, &allocInfo, &set); res != vk.Success {
		// Pool exhaustion is recoverable; the caller appends a new pool.
		return 0, gpuResult(res)
	}
	id := gpu.DescriptorSet(d.handle())
	d.descSets[id] = set
	d.poolSets[pool] = append(d.poolSets[pool], id)
	return id, gpu.Success
}

// ResetDescriptorPool returns every set allocated from the pool at once.
func (d *Driver) ResetDescriptorPool(pool gpu.DescriptorPool) gpu.Result {
	handle, ok := d.descPools[pool]
	if !ok {
		return gpu.ErrUnknown
	}
	d.dropPoolSets(pool)
	return gpuResult(vk.ResetDescriptorPool(d.device.LogicalDevice, handle, 0))
}

func (d *Driver) dropPoolSets(pool gpu.DescriptorPool) {
	for _, id := range d.poolSets[pool] {
		delete(d.descSets, id)
	}
	delete(d.poolSets, pool)
}

func (d *Driver) UpdateDescriptorSet(set gpu.DescriptorSet, writes []gpu.DescriptorWrite) {
	setHandle, ok := d.descSets[set]
	if !ok {
		return
	}
	vkWrites := make([]vk.WriteDescriptorSet, len(writes))
	for i, w := range writes {
		vkWrites[i] = vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          setHandle,
			DstBinding:      w.Binding,
			DescriptorCount: 1,
			DescriptorType:  vkDescriptorType(w.Kind),
		}
		if w.Kind == gpu.DescriptorSampledImage {
			vkWrites[i].PImageInfo = []vk.DescriptorImageInfo{{
				Sampler:     d.samplers[w.Sampler],
				ImageView:   d.views[w.View],
				ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
			}}
		} else {
			vkWrites[i].PBufferInfo = []vk.DescriptorBufferInfo{{
				Buffer: d.buffers[w.Buffer].handle,
				Range:  vk.DeviceSize(w.Range),
			}}
		}
	}
	vk.UpdateDescriptorSets(d.device.LogicalDevice, uint32(len(vkWrites)), vkWrites, 0, nil)
}
