// Package renderer is the 2D drawing layer: it owns the swapchain, the
// frame state machine, cameras, pipelines, and the draw API. One Renderer
// exists per window; every operation takes the Renderer explicitly, there
// is no package-level state.
package renderer

import (
	"github.com/vivid-engine/vivid/engine/core"
	"github.com/vivid-engine/vivid/engine/gpu"
)

// Window is the subset of platform window behaviour the renderer needs
// while rebuilding the swapchain.
type Window interface {
	Minimized() bool
	PollEvents()
}

// Renderer drives one window's frames. All methods must be called from a
// single goroutine; the GPU runs asynchronously behind the driver's
// fences and semaphores.
type Renderer struct {
	drv    gpu.Driver
	window Window

	config Config
	// pendingConfig is the staged configuration; it replaces config only
	// at the next swapchain rebuild boundary, never mid-frame.
	pendingConfig  Config
	resetRequested bool

	texLayout   gpu.DescriptorSetLayout
	shapeLayout gpu.DescriptorSetLayout

	texPipe     *Pipeline
	fillPipe    *Pipeline
	linePipe    *Pipeline
	customPipes []*Pipeline

	sc *swapchainResources

	cameras               [MaxCameras]cameraSlot
	lockedCamera          CameraIndex
	defaultCameraExplicit bool

	// targets tracks every off-screen target texture so their
	// framebuffers can be rebuilt along with the swapchain.
	targets map[*Texture]struct{}

	// Per-frame state, valid only between StartFrame and EndFrame.
	frameActive  bool
	imageIndex   uint32
	cmd          gpu.CommandBuffer
	activeTarget Target
	boundPipe    gpu.Pipeline
	clearColour  gpu.ClearValue

	// Draw state, persists across frames until changed.
	viewport  [4]float32 // zero width means "full target"
	colourMod [4]float32
	blendMode gpu.BlendMode

	clock   *core.Clock
	metrics core.FrameMetrics

	texQuad           *Polygon
	unitQuad          *Polygon
	unitQuadOutline   *Polygon
	unitCircle        *Polygon
	unitCircleOutline *Polygon
	unitLine          *Polygon
}

// NewRenderer initializes the renderer against an already-created driver
// and window. A non-nil error means total failure; the caller must not use
// the renderer afterwards.
func NewRenderer(drv gpu.Driver, window Window, cfg Config) (*Renderer, error) {
	r := &Renderer{
		drv:          drv,
		window:       window,
		config:       clampConfig(drv, cfg),
		lockedCamera: -1,
		targets:      make(map[*Texture]struct{}),
		colourMod:    [4]float32{1, 1, 1, 1},
		blendMode:    gpu.BlendModeBlend,
		clock:        core.NewClock(),
	}
	r.pendingConfig = r.config

	var res gpu.Result
	r.texLayout, res = drv.CreateDescriptorSetLayout([]gpu.DescriptorBinding{
		{Binding: 0, Kind: gpu.DescriptorUniformBuffer},
		{Binding: 1, Kind: gpu.DescriptorSampledImage},
	})
	if !res.IsSuccess() {
		return nil, resultError("create texture descriptor layout", res)
	}
	r.shapeLayout, res = drv.CreateDescriptorSetLayout([]gpu.DescriptorBinding{
		{Binding: 0, Kind: gpu.DescriptorUniformBuffer},
	})
	if !res.IsSuccess() {
		drv.DestroyDescriptorSetLayout(r.texLayout)
		return nil, resultError("create shape descriptor layout", res)
	}

	if err := r.loadBuiltinShaders(); err != nil {
		r.Quit()
		return nil, err
	}

	sc, err := r.createSwapchainResources()
	if err != nil {
		r.Quit()
		return nil, err
	}
	r.sc = sc

	if err := r.createPipelines(); err != nil {
		r.Quit()
		return nil, err
	}
	if err := r.createBuiltinGeometry(); err != nil {
		r.Quit()
		return nil, err
	}

	// The default camera tracks the window until SetCamera overrides it.
	r.cameras[DefaultCamera].spec = CameraSpec{W: float32(sc.width), H: float32(sc.height), Zoom: 1}
	r.cameras[DefaultCamera].state = cameraStateNormal
	if err := r.createCameraBuffers(); err != nil {
		r.Quit()
		return nil, err
	}

	r.clock.Start()
	core.LogInfo("renderer initialized (%dx%d, %dx MSAA)", sc.width, sc.height, r.config.MSAA)
	return r, nil
}

// clampConfig brings a requested configuration within device limits: the
// multisample level is capped at the device maximum and an unsupported
// present mode falls back to fifo, which is always available.
func clampConfig(drv gpu.Driver, cfg Config) Config {
	if max := drv.MaxMSAA(); cfg.MSAA > max {
		core.LogWarn("%dx MSAA not supported, clamping to %dx", cfg.MSAA, max)
		cfg.MSAA = max
	}
	if cfg.MSAA == 0 {
		cfg.MSAA = gpu.MSAA1x
	}
	if !drv.SupportsPresentMode(cfg.PresentMode) {
		core.LogWarn("present mode %d not supported, falling back to fifo", cfg.PresentMode)
		cfg.PresentMode = gpu.PresentModeFifo
	}
	if cfg.ShaderDir == "" {
		cfg.ShaderDir = DefaultConfig().ShaderDir
	}
	return cfg
}

// Quit waits for the GPU to go idle and tears everything down in the
// reverse of creation order. The renderer is unusable afterwards.
func (r *Renderer) Quit() {
	if r == nil || r.drv == nil {
		return
	}
	r.drv.DeviceWaitIdle()

	for i := range r.cameras {
		r.destroyCameraSlotBuffers(&r.cameras[i])
		r.cameras[i].state = cameraStateDisabled
	}
	for tex := range r.targets {
		r.DestroyTexture(tex)
	}
	r.destroyBuiltinGeometry()
	r.destroyPipelines()
	r.customPipes = nil
	if r.sc != nil {
		r.sc.destroy()
		r.sc = nil
	}
	if r.shapeLayout != 0 {
		r.drv.DestroyDescriptorSetLayout(r.shapeLayout)
		r.shapeLayout = 0
	}
	if r.texLayout != 0 {
		r.drv.DestroyDescriptorSetLayout(r.texLayout)
		r.texLayout = 0
	}
	r.drv = nil
	core.LogInfo("renderer shut down")
}

// StartFrame begins a new frame targeting the screen, clearing it to the
// given colour. Idempotent: a second call while a frame is active is a
// no-op. Blocks until the frame slot's previous submission has completed.
func (r *Renderer) StartFrame(clear gpu.ClearValue) error {
	if r == nil || r.sc == nil {
		core.LogError("StartFrame called on an uninitialized renderer")
		return nil
	}
	if r.frameActive {
		return nil
	}

	slot := r.sc.ring.slot()
	if res := r.drv.WaitForFence(slot.inFlight); !res.IsSuccess() {
		return resultError("wait for frame fence", res)
	}

	idx, res := r.drv.AcquireNextImage(r.sc.handle, slot.imageAvailable)
	if res == gpu.ErrOutOfDate {
		if err := r.rebuild(); err != nil {
			return err
		}
		slot = r.sc.ring.slot()
		if idx, res = r.drv.AcquireNextImage(r.sc.handle, slot.imageAvailable); !res.IsSuccess() {
			return resultError("acquire swapchain image", res)
		}
	} else if !res.IsSuccess() {
		return resultError("acquire swapchain image", res)
	}

	r.sc.ring.claimImage(r.drv, idx)
	r.imageIndex = idx

	// All sets handed out for this image's previous frame are now
	// reclaimable: its fence was observed signaled by claimImage.
	r.sc.texDescCons[idx].Reset()
	r.sc.shapeDescCons[idx].Reset()

	r.updateCameraBuffers(idx)

	cmd := r.sc.commandBuffers[idx]
	r.drv.ResetCommandBuffer(cmd)
	if res := r.drv.BeginCommandBuffer(cmd); !res.IsSuccess() {
		return resultError("begin command buffer", res)
	}
	r.drv.CmdBeginRenderPass(cmd, r.sc.passes.screen, r.sc.framebuffers[idx], r.sc.width, r.sc.height, clear)

	r.cmd = cmd
	r.clearColour = clear
	r.activeTarget = Screen()
	r.boundPipe = 0
	r.frameActive = true
	return nil
}

// SetTarget redirects drawing into the given target for the rest of the
// frame (or until the next SetTarget). A call naming the already-active
// target is a no-op; equality is identity, so a different texture with the
// same dimensions is still a real switch. Otherwise the current render
// pass ends, image layouts transition on both sides of the switch, and
// the target-appropriate render pass begins.
func (r *Renderer) SetTarget(t Target) {
	if r == nil || r.sc == nil || !r.frameActive {
		core.LogError("SetTarget called with no active frame")
		return
	}
	if t.Equal(r.activeTarget) {
		return
	}
	if t.tex != nil && !t.tex.canTarget {
		core.LogError("SetTarget: texture %s was not created as a target", t.tex.ID)
		return
	}

	r.drv.CmdEndRenderPass(r.cmd)

	if out := r.activeTarget.tex; out != nil {
		r.drv.CmdTransitionImageLayout(r.cmd, out.img, gpu.LayoutColourAttachment, gpu.LayoutShaderReadOnly)
		out.layout = gpu.LayoutShaderReadOnly
	}

	if in := t.tex; in != nil {
		r.drv.CmdTransitionImageLayout(r.cmd, in.img, in.layout, gpu.LayoutColourAttachment)
		in.layout = gpu.LayoutColourAttachment
		r.drv.CmdBeginRenderPass(r.cmd, r.sc.passes.external, in.fb, in.Width, in.Height, r.clearColour)
	} else {
		r.drv.CmdBeginRenderPass(r.cmd, r.sc.passes.midFrame, r.sc.framebuffers[r.imageIndex], r.sc.width, r.sc.height, r.clearColour)
	}

	r.activeTarget = t
	// Force the next draw to rebind everything against the new pass.
	r.boundPipe = 0
}

// EndFrame submits the recorded frame and presents it. A no-op when no
// frame is active. Out-of-date or suboptimal presentation, a staged
// configuration change, or an explicit reset request all trigger a
// swapchain rebuild before returning.
func (r *Renderer) EndFrame() error {
	if r == nil || r.sc == nil || !r.frameActive {
		return nil
	}
	if !r.activeTarget.IsScreen() {
		// Frames must end on the screen so the presentable image is in
		// its final layout.
		r.SetTarget(Screen())
	}
	r.frameActive = false

	r.drv.CmdEndRenderPass(r.cmd)
	if res := r.drv.EndCommandBuffer(r.cmd); !res.IsSuccess() {
		return resultError("end command buffer", res)
	}

	slot := r.sc.ring.slot()
	if res := r.drv.ResetFence(slot.inFlight); !res.IsSuccess() {
		return resultError("reset frame fence", res)
	}
	if res := r.drv.Submit(gpu.SubmitInfo{
		CommandBuffer: r.cmd,
		WaitSemaphore: slot.imageAvailable,
		SignalSem:     slot.renderFinished,
		Fence:         slot.inFlight,
	}); !res.IsSuccess() {
		return resultError("submit frame", res)
	}

	res := r.drv.Present(r.sc.handle, slot.renderFinished, r.imageIndex)
	switch {
	case res == gpu.ErrOutOfDate || res == gpu.Suboptimal:
		if err := r.rebuild(); err != nil {
			return err
		}
	case !res.IsSuccess():
		return resultError("present frame", res)
	case r.resetRequested:
		if err := r.rebuild(); err != nil {
			return err
		}
	}

	r.sc.ring.advance()

	r.clock.Update()
	r.metrics.Accumulate(r.clock.Elapsed())
	r.clock.Start()
	return nil
}

// SetConfig stages a new presentation configuration. It takes effect at
// the next frame boundary, when the swapchain rebuilds; the in-progress
// frame is unaffected.
func (r *Renderer) SetConfig(cfg Config) {
	if r == nil || r.sc == nil {
		core.LogError("SetConfig called on an uninitialized renderer")
		return
	}
	r.pendingConfig = clampConfig(r.drv, cfg)
	r.resetRequested = true
}

// Config returns the configuration currently in effect (not any staged
// change).
func (r *Renderer) Config() Config {
	if r == nil {
		return Config{}
	}
	return r.config
}

// ResetSwapchain requests a swapchain rebuild at the next frame boundary.
func (r *Renderer) ResetSwapchain() {
	if r == nil || r.sc == nil {
		core.LogError("ResetSwapchain called on an uninitialized renderer")
		return
	}
	r.resetRequested = true
}

// SurfaceSize returns the current presentable dimensions.
func (r *Renderer) SurfaceSize() (uint32, uint32) {
	if r == nil || r.sc == nil {
		return 0, 0
	}
	return r.sc.width, r.sc.height
}

// AverageFrameTime returns the rolling average frame time in
// milliseconds, recomputed once per second of accumulated frames.
func (r *Renderer) AverageFrameTime() float64 {
	if r == nil {
		return 0
	}
	return r.metrics.AverageFrameTime()
}

// SetColourMod sets the colour modulation applied to subsequent draws.
func (r *Renderer) SetColourMod(red, green, blue, alpha float32) {
	if r == nil {
		return
	}
	r.colourMod = [4]float32{red, green, blue, alpha}
}

func (r *Renderer) ColourMod() (red, green, blue, alpha float32) {
	return r.colourMod[0], r.colourMod[1], r.colourMod[2], r.colourMod[3]
}

// SetBlendMode selects the blend mode applied to subsequent draws. Every
// pipeline carries one variant per mode, so the next draw binds the
// matching variant.
func (r *Renderer) SetBlendMode(mode gpu.BlendMode) {
	if r == nil {
		return
	}
	if mode < 0 || mode >= gpu.BlendModeCount {
		core.LogError("SetBlendMode: unknown blend mode %d", mode)
		return
	}
	r.blendMode = mode
}

func (r *Renderer) BlendMode() gpu.BlendMode {
	return r.blendMode
}

// SetViewport restricts subsequent draws to a sub-rectangle of the active
// target. A zero width restores the full-target viewport.
func (r *Renderer) SetViewport(x, y, width, height float32) {
	if r == nil {
		return
	}
	r.viewport = [4]float32{x, y, width, height}
}

// rebuild destroys and recreates everything sized by the swapchain. The
// staged configuration is swapped in between teardown and reconstruction.
// While the window is minimized this blocks, polling window events,
// rather than attempting a zero-area swapchain.
func (r *Renderer) rebuild() error {
	for r.window != nil && r.window.Minimized() {
		r.window.PollEvents()
	}

	if res := r.drv.QueueWaitIdle(); !res.IsSuccess() {
		return resultError("wait for queue idle", res)
	}

	r.destroyPipelines()
	for tex := range r.targets {
		r.destroyTargetAttachments(tex)
	}
	r.destroyCameraBuffers()
	r.sc.destroy()
	r.sc = nil

	r.config = r.pendingConfig
	r.resetRequested = false

	sc, err := r.createSwapchainResources()
	if err != nil {
		return err
	}
	r.sc = sc

	if err := r.createPipelines(); err != nil {
		return err
	}
	for tex := range r.targets {
		if err := r.createTargetAttachments(tex); err != nil {
			return err
		}
	}
	if !r.defaultCameraExplicit {
		r.cameras[DefaultCamera].spec = CameraSpec{W: float32(sc.width), H: float32(sc.height), Zoom: 1}
	}
	if err := r.createCameraBuffers(); err != nil {
		return err
	}

	core.LogDebug("swapchain rebuilt: %dx%d", sc.width, sc.height)
	return nil
}
