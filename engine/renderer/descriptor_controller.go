package renderer

import (
	"fmt"

	"github.com/vivid-engine/vivid/engine/core"
	"github.com/vivid-engine/vivid/engine/gpu"
)

// DefaultPoolAllocation is how many descriptors of each enabled kind a
// single backing pool is sized for.
const DefaultPoolAllocation = 100

// NoBinding marks a descriptor kind the controller's layout does not use.
const NoBinding int32 = -1

// DescriptorController hands out ready-to-write descriptor sets for one
// layout without per-frame allocation stalls. It owns a growable list of
// fixed-capacity pools; exhaustion of every pool appends another one.
// Sets are never freed individually, only reclaimed in bulk by Reset,
// which the renderer calls once per frame per swapchain image.
type DescriptorController struct {
	drv    gpu.Driver
	layout gpu.DescriptorSetLayout

	// Binding indices for each enabled descriptor kind, NoBinding when
	// the layout has no such binding.
	bufferBinding  int32
	samplerBinding int32
	storageBinding int32

	pools []gpu.DescriptorPool
}

// NewDescriptorController creates a controller for the given layout with
// one backing pool. The binding arguments enumerate which kinds the layout
// uses and at which binding index; pass NoBinding for unused kinds.
func NewDescriptorController(drv gpu.Driver, layout gpu.DescriptorSetLayout, bufferBinding, samplerBinding, storageBinding int32) (*DescriptorController, error) {
	dc := &DescriptorController{
		drv:            drv,
		layout:         layout,
		bufferBinding:  bufferBinding,
		samplerBinding: samplerBinding,
		storageBinding: storageBinding,
	}
	if err := dc.appendPool(); err != nil {
		return nil, err
	}
	return dc, nil
}

func (dc *DescriptorController) appendPool() error {
	sizes := make([]gpu.DescriptorPoolSize, 0, 3)
	if dc.bufferBinding != NoBinding {
		sizes = append(sizes, gpu.DescriptorPoolSize{Kind: gpu.DescriptorUniformBuffer, Count: DefaultPoolAllocation})
	}
	if dc.samplerBinding != NoBinding {
		sizes = append(sizes, gpu.DescriptorPoolSize{Kind: gpu.DescriptorSampledImage, Count: DefaultPoolAllocation})
	}
	if dc.storageBinding != NoBinding {
		sizes = append(sizes, gpu.DescriptorPoolSize{Kind: gpu.DescriptorStorageBuffer, Count: DefaultPoolAllocation})
	}

	pool, res := dc.drv.CreateDescriptorPool(sizes, DefaultPoolAllocation)
	if !res.IsSuccess() {
		err := fmt.Errorf("failed to create descriptor pool: %s", res)
		core.LogError(err.Error())
		return err
	}
	dc.pools = append(dc.pools, pool)
	return nil
}

// getSet returns one descriptor set with no bound resources yet. Pools are
// scanned in creation order; when the allocator reports pool exhaustion the
// scan advances, and once every existing pool is exhausted a new one is
// appended. Allocation only fails if the device itself is out of memory.
func (dc *DescriptorController) getSet() (gpu.DescriptorSet, error) {
	for i := 0; ; i++ {
		if i == len(dc.pools) {
			if err := dc.appendPool(); err != nil {
				return 0, err
			}
		}
		set, res := dc.drv.AllocateDescriptorSet(dc.pools[i], dc.layout)
		switch {
		case res.IsSuccess():
			return set, nil
		case res == gpu.ErrOutOfPoolMemory:
			// This pool is full, try the next one.
		default:
			err := fmt.Errorf("failed to allocate descriptor set: %s", res)
			core.LogError(err.Error())
			return 0, err
		}
	}
}

// GetBufferSet returns a set with the given uniform buffer written into
// the controller's buffer binding.
func (dc *DescriptorController) GetBufferSet(buf gpu.Buffer, size uint64) (gpu.DescriptorSet, error) {
	set, err := dc.getSet()
	if err != nil {
		return 0, err
	}
	dc.drv.UpdateDescriptorSet(set, []gpu.DescriptorWrite{{
		Binding: uint32(dc.bufferBinding),
		Kind:    gpu.DescriptorUniformBuffer,
		Buffer:  buf,
		Range:   size,
	}})
	return set, nil
}

// GetSamplerSet returns a set with the given image view and sampler
// written into the controller's sampler binding.
func (dc *DescriptorController) GetSamplerSet(view gpu.ImageView, sampler gpu.Sampler) (gpu.DescriptorSet, error) {
	set, err := dc.getSet()
	if err != nil {
		return 0, err
	}
	dc.drv.UpdateDescriptorSet(set, []gpu.DescriptorWrite{{
		Binding: uint32(dc.samplerBinding),
		Kind:    gpu.DescriptorSampledImage,
		View:    view,
		Sampler: sampler,
	}})
	return set, nil
}

// GetSamplerBufferSet returns a set with both the uniform buffer and the
// sampled image written, avoiding a second update round trip per draw.
func (dc *DescriptorController) GetSamplerBufferSet(view gpu.ImageView, sampler gpu.Sampler, buf gpu.Buffer, size uint64) (gpu.DescriptorSet, error) {
	set, err := dc.getSet()
	if err != nil {
		return 0, err
	}
	dc.drv.UpdateDescriptorSet(set, []gpu.DescriptorWrite{
		{
			Binding: uint32(dc.bufferBinding),
			Kind:    gpu.DescriptorUniformBuffer,
			Buffer:  buf,
			Range:   size,
		},
		{
			Binding: uint32(dc.samplerBinding),
			Kind:    gpu.DescriptorSampledImage,
			View:    view,
			Sampler: sampler,
		},
	})
	return set, nil
}

// Reset reclaims every set this controller has handed out by resetting the
// backing pools. O(pools), not O(sets). The caller must guarantee no
// in-flight GPU work still references those sets; the renderer enforces
// this by resetting only at the frame boundary for the image whose fence
// has signaled.
func (dc *DescriptorController) Reset() {
	for _, pool := range dc.pools {
		dc.drv.ResetDescriptorPool(pool)
	}
}

// Destroy releases every backing pool. Must be called only after the GPU
// has finished with every set the controller issued.
func (dc *DescriptorController) Destroy() {
	for _, pool := range dc.pools {
		dc.drv.DestroyDescriptorPool(pool)
	}
	dc.pools = nil
}
