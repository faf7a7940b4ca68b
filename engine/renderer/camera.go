package renderer

import (
	"fmt"

	"github.com/vivid-engine/vivid/engine/core"
	"github.com/vivid-engine/vivid/engine/gpu"
	"github.com/vivid-engine/vivid/engine/math"
)

// MaxCameras is the fixed number of camera slots.
const MaxCameras = 10

// DefaultCamera is the camera slot that always exists and tracks the
// window unless given an explicit spec.
const DefaultCamera = CameraIndex(0)

// cameraUBOSize is one view-projection matrix.
const cameraUBOSize = 64

type CameraIndex int32

// CameraSpec describes the world rectangle a camera projects onto its
// target.
type CameraSpec struct {
	X        float32
	Y        float32
	W        float32
	H        float32
	Zoom     float32
	Rotation float32
}

type cameraState int

const (
	cameraStateDisabled cameraState = iota
	cameraStateNormal
)

// cameraSlot owns one uniform buffer per swapchain image. The buffers are
// recreated whenever the swapchain is, since the image count may change.
type cameraSlot struct {
	state   cameraState
	spec    CameraSpec
	buffers []gpu.Buffer
}

// viewProj builds the camera's combined view-projection matrix.
func (s *cameraSlot) viewProj() math.Mat4 {
	spec := s.spec
	zoom := spec.Zoom
	if zoom == 0 {
		zoom = 1
	}
	w := spec.W / zoom
	h := spec.H / zoom
	proj := math.NewMat4Orthographic(spec.X, spec.X+w, spec.Y+h, spec.Y, -1, 1)
	if spec.Rotation == 0 {
		return proj
	}
	cx := spec.X + w/2
	cy := spec.Y + h/2
	rot := math.NewMat4Translation(cx, cy, 0).
		Mul(math.NewMat4RotationZ(spec.Rotation)).
		Mul(math.NewMat4Translation(-cx, -cy, 0))
	return proj.Mul(rot)
}

// CreateCamera claims a free camera slot. The camera renders with the
// given spec until updated or destroyed.
func (r *Renderer) CreateCamera(spec CameraSpec) (CameraIndex, error) {
	if r == nil || r.sc == nil {
		core.LogError("CreateCamera called on an uninitialized renderer")
		return -1, errNotInitialized
	}
	for i := range r.cameras {
		if r.cameras[i].state != cameraStateDisabled {
			continue
		}
		r.cameras[i].spec = spec
		if err := r.createCameraSlotBuffers(&r.cameras[i]); err != nil {
			return -1, err
		}
		r.cameras[i].state = cameraStateNormal
		return CameraIndex(i), nil
	}
	return -1, fmt.Errorf("all %d camera slots are in use", MaxCameras)
}

// UpdateCamera replaces a camera's spec. The change reaches the GPU at the
// next StartFrame.
func (r *Renderer) UpdateCamera(index CameraIndex, spec CameraSpec) {
	if r == nil || r.sc == nil {
		core.LogError("UpdateCamera called on an uninitialized renderer")
		return
	}
	if index < 0 || index >= MaxCameras || r.cameras[index].state == cameraStateDisabled {
		core.LogError("UpdateCamera: no such camera %d", index)
		return
	}
	r.cameras[index].spec = spec
}

// SetCamera replaces the default camera's spec. The default camera stops
// tracking the window size from then on.
func (r *Renderer) SetCamera(spec CameraSpec) {
	if r == nil || r.sc == nil {
		core.LogError("SetCamera called on an uninitialized renderer")
		return
	}
	r.defaultCameraExplicit = true
	r.UpdateCamera(DefaultCamera, spec)
}

// DestroyCamera frees a camera slot. The default camera cannot be
// destroyed.
func (r *Renderer) DestroyCamera(index CameraIndex) {
	if r == nil || r.sc == nil {
		core.LogError("DestroyCamera called on an uninitialized renderer")
		return
	}
	if index == DefaultCamera {
		core.LogError("DestroyCamera: the default camera cannot be destroyed")
		return
	}
	if index < 0 || index >= MaxCameras || r.cameras[index].state == cameraStateDisabled {
		return
	}
	if r.lockedCamera == index {
		r.lockedCamera = -1
	}
	r.destroyCameraSlotBuffers(&r.cameras[index])
	r.cameras[index].state = cameraStateDisabled
}

// LockCameras makes the given camera the exclusive camera applied to
// draws until UnlockCameras.
func (r *Renderer) LockCameras(index CameraIndex) {
	if r == nil || r.sc == nil {
		core.LogError("LockCameras called on an uninitialized renderer")
		return
	}
	if index < 0 || index >= MaxCameras || r.cameras[index].state == cameraStateDisabled {
		core.LogError("LockCameras: no such camera %d", index)
		return
	}
	r.lockedCamera = index
}

func (r *Renderer) UnlockCameras() {
	if r == nil {
		return
	}
	r.lockedCamera = -1
}

// activeCamera returns the camera applied to draws: the locked one, or the
// default.
func (r *Renderer) activeCamera() *cameraSlot {
	if r.lockedCamera >= 0 {
		return &r.cameras[r.lockedCamera]
	}
	return &r.cameras[DefaultCamera]
}

func (r *Renderer) createCameraSlotBuffers(slot *cameraSlot) error {
	slot.buffers = make([]gpu.Buffer, len(r.sc.images))
	for i := range slot.buffers {
		buf, res := r.drv.CreateBuffer(cameraUBOSize, gpu.BufferUsageUniform, true)
		if !res.IsSuccess() {
			return resultError("create camera uniform buffer", res)
		}
		slot.buffers[i] = buf
	}
	return nil
}

func (r *Renderer) destroyCameraSlotBuffers(slot *cameraSlot) {
	for _, buf := range slot.buffers {
		r.drv.DestroyBuffer(buf)
	}
	slot.buffers = nil
}

// createCameraBuffers allocates per-image uniform buffers for every live
// camera. Called at init and after every swapchain rebuild.
func (r *Renderer) createCameraBuffers() error {
	for i := range r.cameras {
		if r.cameras[i].state == cameraStateDisabled {
			continue
		}
		if err := r.createCameraSlotBuffers(&r.cameras[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) destroyCameraBuffers() {
	for i := range r.cameras {
		r.destroyCameraSlotBuffers(&r.cameras[i])
	}
}

// updateCameraBuffers flushes every live camera's view-projection into its
// uniform buffer slice for the acquired image.
func (r *Renderer) updateCameraBuffers(imageIndex uint32) {
	data := make([]byte, cameraUBOSize)
	for i := range r.cameras {
		slot := &r.cameras[i]
		if slot.state != cameraStateNormal {
			continue
		}
		vp := slot.viewProj()
		for j, f := range vp.Data {
			putFloat32(data[j*4:], f)
		}
		if res := r.drv.WriteBuffer(slot.buffers[imageIndex], 0, data); !res.IsSuccess() {
			core.LogError("failed to flush camera %d uniforms: %s", i, res)
		}
	}
}
