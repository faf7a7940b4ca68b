package renderer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vivid-engine/vivid/engine/gpu"
)

func newTestController(t *testing.T, drv *fakeDriver) *DescriptorController {
	t.Helper()
	layout, res := drv.CreateDescriptorSetLayout([]gpu.DescriptorBinding{
		{Binding: 0, Kind: gpu.DescriptorUniformBuffer},
	})
	require.Equal(t, gpu.Success, res)
	dc, err := NewDescriptorController(drv, layout, 0, NoBinding, NoBinding)
	require.NoError(t, err)
	return dc
}

func TestDescriptorControllerGrowsOnExhaustion(t *testing.T) {
	drv := newFakeDriver(3)
	dc := newTestController(t, drv)

	n := DefaultPoolAllocation*2 + 5
	seen := make(map[gpu.DescriptorSet]bool, n)
	for i := 0; i < n; i++ {
		set, err := dc.getSet()
		require.NoError(t, err, "allocation %d", i)
		assert.False(t, seen[set], "set %v returned twice", set)
		seen[set] = true
	}
	assert.Equal(t, 3, len(dc.pools), "two pools' worth plus five sets should need a third pool")
}

func TestDescriptorControllerResetReusesCapacity(t *testing.T) {
	drv := newFakeDriver(3)
	dc := newTestController(t, drv)

	// Repeated fill/reset cycles must not grow the pool list.
	for cycle := 0; cycle < 4; cycle++ {
		for i := 0; i < DefaultPoolAllocation+1; i++ {
			_, err := dc.getSet()
			require.NoError(t, err)
		}
		dc.Reset()
	}
	assert.Equal(t, 2, len(dc.pools))
}

func TestDescriptorControllerFatalOnDeviceExhaustion(t *testing.T) {
	drv := newFakeDriver(3)
	dc := newTestController(t, drv)

	// Device memory exhaustion is not recoverable by appending pools.
	dc.drv = &failingAllocDriver{fakeDriver: drv}

	_, err := dc.getSet()
	assert.Error(t, err)
}

// failingAllocDriver reports device memory exhaustion for every
// descriptor set allocation.
type failingAllocDriver struct {
	*fakeDriver
}

func (d *failingAllocDriver) AllocateDescriptorSet(gpu.DescriptorPool, gpu.DescriptorSetLayout) (gpu.DescriptorSet, gpu.Result) {
	return 0, gpu.ErrOutOfDeviceMemory
}

func TestDescriptorControllerDestroyReleasesPools(t *testing.T) {
	drv := newFakeDriver(3)
	dc := newTestController(t, drv)

	for i := 0; i < DefaultPoolAllocation+1; i++ {
		_, err := dc.getSet()
		require.NoError(t, err)
	}
	require.Equal(t, 2, len(drv.pools))

	dc.Destroy()
	assert.Empty(t, drv.pools)
}
