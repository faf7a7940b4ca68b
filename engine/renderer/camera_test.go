package renderer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vivid-engine/vivid/engine/gpu"
)

func TestCreateCameraFillsSlotsUpToLimit(t *testing.T) {
	drv := newFakeDriver(3)
	r := newTestRenderer(t, drv)

	spec := CameraSpec{W: 100, H: 100, Zoom: 1}
	indexes := make([]CameraIndex, 0, MaxCameras-1)
	for i := 1; i < MaxCameras; i++ {
		idx, err := r.CreateCamera(spec)
		require.NoError(t, err)
		indexes = append(indexes, idx)
	}

	_, err := r.CreateCamera(spec)
	assert.Error(t, err, "all slots in use")

	r.DestroyCamera(indexes[0])
	idx, err := r.CreateCamera(spec)
	require.NoError(t, err)
	assert.Equal(t, indexes[0], idx, "freed slot must be reused")
}

func TestDefaultCameraCannotBeDestroyed(t *testing.T) {
	drv := newFakeDriver(3)
	r := newTestRenderer(t, drv)

	r.DestroyCamera(DefaultCamera)
	assert.Equal(t, cameraStateNormal, r.cameras[DefaultCamera].state)
}

func TestDestroyCameraClearsLock(t *testing.T) {
	drv := newFakeDriver(3)
	r := newTestRenderer(t, drv)

	idx, err := r.CreateCamera(CameraSpec{W: 100, H: 100, Zoom: 1})
	require.NoError(t, err)

	r.LockCameras(idx)
	assert.Equal(t, &r.cameras[idx], r.activeCamera())

	r.DestroyCamera(idx)
	assert.Equal(t, &r.cameras[DefaultCamera], r.activeCamera())
}

func TestLockCamerasRejectsDisabledSlot(t *testing.T) {
	drv := newFakeDriver(3)
	r := newTestRenderer(t, drv)

	r.LockCameras(5)
	assert.Equal(t, &r.cameras[DefaultCamera], r.activeCamera())
}

func TestDefaultCameraTracksWindowUntilSetCamera(t *testing.T) {
	drv := newFakeDriver(3)
	r := newTestRenderer(t, drv)

	assert.Equal(t, float32(800), r.cameras[DefaultCamera].spec.W)

	drv.width, drv.height = 1024, 768
	r.ResetSwapchain()
	require.NoError(t, r.StartFrame(gpu.ClearValue{}))
	require.NoError(t, r.EndFrame())
	assert.Equal(t, float32(1024), r.cameras[DefaultCamera].spec.W, "default camera follows the surface")

	r.SetCamera(CameraSpec{W: 320, H: 240, Zoom: 1})
	drv.width, drv.height = 800, 600
	r.ResetSwapchain()
	require.NoError(t, r.StartFrame(gpu.ClearValue{}))
	require.NoError(t, r.EndFrame())
	assert.Equal(t, float32(320), r.cameras[DefaultCamera].spec.W, "explicit spec stops the tracking")
}

func TestCameraViewProjZoomDefaultsToOne(t *testing.T) {
	a := cameraSlot{spec: CameraSpec{W: 800, H: 600, Zoom: 0}}
	b := cameraSlot{spec: CameraSpec{W: 800, H: 600, Zoom: 1}}
	assert.Equal(t, b.viewProj(), a.viewProj())
}

func TestUpdateCameraBuffersWritesViewProj(t *testing.T) {
	drv := newFakeDriver(3)
	r := newTestRenderer(t, drv)

	require.NoError(t, r.StartFrame(gpu.ClearValue{}))
	buf := r.cameras[DefaultCamera].buffers[r.imageIndex]
	data := drv.buffers[buf]
	require.Len(t, data, cameraUBOSize)

	nonZero := false
	for _, b := range data {
		if b != 0 {
			nonZero = true
			break
		}
	}
	assert.True(t, nonZero, "camera uniforms must be flushed at StartFrame")
	require.NoError(t, r.EndFrame())
}
