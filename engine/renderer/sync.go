package renderer

import (
	"fmt"

	"github.com/vivid-engine/vivid/engine/core"
	"github.com/vivid-engine/vivid/engine/gpu"
)

// MaxFramesInFlight bounds how many frames may have outstanding GPU work
// at once.
const MaxFramesInFlight = 2

// frameSlot holds the synchronization primitives for one frame in flight.
// At most one submission is outstanding per slot; a new acquire for a slot
// waits on its fence first.
type frameSlot struct {
	imageAvailable gpu.Semaphore
	renderFinished gpu.Semaphore
	inFlight       gpu.Fence
}

// syncRing is the fixed ring of frame slots plus, per swapchain image, a
// weak reference to the fence of the frame that last used that image.
type syncRing struct {
	slots   [MaxFramesInFlight]frameSlot
	current int

	// imagesInFlight[i] is the in-flight fence of the last frame to target
	// image i, or the zero handle. The fences are owned by the slots.
	imagesInFlight []gpu.Fence
}

func newSyncRing(drv gpu.Driver, imageCount int) (*syncRing, error) {
	r := &syncRing{
		imagesInFlight: make([]gpu.Fence, imageCount),
	}
	for i := range r.slots {
		var res gpu.Result
		if r.slots[i].imageAvailable, res = drv.CreateSemaphore(); !res.IsSuccess() {
			return nil, fmt.Errorf("failed to create image-available semaphore: %s", res)
		}
		if r.slots[i].renderFinished, res = drv.CreateSemaphore(); !res.IsSuccess() {
			return nil, fmt.Errorf("failed to create render-finished semaphore: %s", res)
		}
		// Created signaled so the first frame does not wait forever on a
		// submission that never happened.
		if r.slots[i].inFlight, res = drv.CreateFence(true); !res.IsSuccess() {
			return nil, fmt.Errorf("failed to create in-flight fence: %s", res)
		}
	}
	return r, nil
}

func (r *syncRing) destroy(drv gpu.Driver) {
	for i := range r.slots {
		drv.DestroySemaphore(r.slots[i].imageAvailable)
		drv.DestroySemaphore(r.slots[i].renderFinished)
		drv.DestroyFence(r.slots[i].inFlight)
		r.slots[i] = frameSlot{}
	}
	r.imagesInFlight = nil
}

func (r *syncRing) slot() *frameSlot {
	return &r.slots[r.current]
}

// claimImage enforces the per-image discipline: before image idx is reused,
// the fence of its previous user must be observed signaled. The current
// slot's fence is then recorded as the image's new user.
func (r *syncRing) claimImage(drv gpu.Driver, idx uint32) {
	if prior := r.imagesInFlight[idx]; prior != 0 {
		if res := drv.WaitForFence(prior); !res.IsSuccess() {
			core.LogWarn("wait on prior user of swapchain image %d failed: %s", idx, res)
		}
	}
	r.imagesInFlight[idx] = r.slot().inFlight
}

func (r *syncRing) advance() {
	r.current = (r.current + 1) % MaxFramesInFlight
}
