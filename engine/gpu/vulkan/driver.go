// Package vulkan is the production gpu.Driver: a thin handle-table layer
// over the Vulkan API. The renderer core never touches vk types; every
// object it holds is an opaque uint64 resolved through the tables here.
// All calls happen on the goroutine that created the Driver.
package vulkan

import (
	"fmt"
	gomath "math"
	"runtime"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"

	"github.com/vivid-engine/vivid/engine/core"
	"github.com/vivid-engine/vivid/engine/gpu"
)

// WindowSource is what the driver needs from the platform window: surface
// creation, the instance extensions the window system requires, and the
// framebuffer size for surfaces that leave the extent up to the
// application. *glfw.Window satisfies it.
type WindowSource interface {
	CreateWindowSurface(instance interface{}, allocCallbacks unsafe.Pointer) (uintptr, error)
	GetRequiredInstanceExtensions() []string
	GetFramebufferSize() (int, int)
}

type imageResource struct {
	handle vk.Image
	memory vk.DeviceMemory
	width  uint32
	height uint32
	aspect vk.ImageAspectFlagBits
}

type bufferResource struct {
	handle vk.Buffer
	memory vk.DeviceMemory
	mapped unsafe.Pointer
	size   vk.DeviceSize
}

type renderPassResource struct {
	handle vk.RenderPass
	opts   gpu.RenderPassOptions
}

type pipelineResource struct {
	handle vk.Pipeline
	layout vk.PipelineLayout
}

// Driver implements gpu.Driver on Vulkan. Handles are monotonically
// increasing uint64s; zero is never issued.
type Driver struct {
	window    WindowSource
	instance  vk.Instance
	surface   vk.Surface
	allocator *vk.AllocationCallbacks
	device    *Device

	debug          bool
	hasDebugger    bool
	debugMessenger vk.DebugReportCallback

	surfaceFormat vk.SurfaceFormat

	next            uint64
	swapchains      map[gpu.Swapchain]vk.Swapchain
	swapchainImages map[gpu.Swapchain][]gpu.Image
	images          map[gpu.Image]*imageResource
	views           map[gpu.ImageView]vk.ImageView
	framebuffers    map[gpu.Framebuffer]vk.Framebuffer
	renderPasses    map[gpu.RenderPass]*renderPassResource
	setLayouts      map[gpu.DescriptorSetLayout]vk.DescriptorSetLayout
	pipelines       map[gpu.Pipeline]*pipelineResource
	descPools       map[gpu.DescriptorPool]vk.DescriptorPool
	descSets        map[gpu.DescriptorSet]vk.DescriptorSet
	poolSets        map[gpu.DescriptorPool][]gpu.DescriptorSet
	buffers         map[gpu.Buffer]*bufferResource
	samplers        map[gpu.Sampler]vk.Sampler
	fences          map[gpu.Fence]vk.Fence
	semaphores      map[gpu.Semaphore]vk.Semaphore
	commandBuffers  map[gpu.CommandBuffer]vk.CommandBuffer
}

// Options configures driver creation.
type Options struct {
	AppName string
	Debug   bool
}

// New creates the Vulkan instance, surface, and device against the given
// window. A non-nil error means nothing was initialized; the Driver must
// not be used.
func New(window WindowSource, opts Options) (*Driver, error) {
	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		err := fmt.Errorf("vulkan loader not available")
		core.LogError(err.Error())
		return nil, err
	}
	vk.SetGetInstanceProcAddr(procAddr)

	d := &Driver{
		window:          window,
		debug:           opts.Debug,
		swapchains:      make(map[gpu.Swapchain]vk.Swapchain),
		swapchainImages: make(map[gpu.Swapchain][]gpu.Image),
		images:          make(map[gpu.Image]*imageResource),
		views:           make(map[gpu.ImageView]vk.ImageView),
		framebuffers:    make(map[gpu.Framebuffer]vk.Framebuffer),
		renderPasses:    make(map[gpu.RenderPass]*renderPassResource),
		setLayouts:      make(map[gpu.DescriptorSetLayout]vk.DescriptorSetLayout),
		pipelines:       make(map[gpu.Pipeline]*pipelineResource),
		descPools:       make(map[gpu.DescriptorPool]vk.DescriptorPool),
		descSets:        make(map[gpu.DescriptorSet]vk.DescriptorSet),
		poolSets:        make(map[gpu.DescriptorPool][]gpu.DescriptorSet),
		buffers:         make(map[gpu.Buffer]*bufferResource),
		samplers:        make(map[gpu.Sampler]vk.Sampler),
		fences:          make(map[gpu.Fence]vk.Fence),
		semaphores:      make(map[gpu.Semaphore]vk.Semaphore),
		commandBuffers:  make(map[gpu.CommandBuffer]vk.CommandBuffer),
	}

	if err := vk.Init(); err != nil {
		core.LogError("failed to initialize vulkan: %s", err)
		return nil, err
	}

	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 0, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   safeString(opts.AppName),
		PEngineName:        safeString("Vivid"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	requiredExtensions := []string{"VK_KHR_surface"}
	requiredExtensions = append(requiredExtensions, window.GetRequiredInstanceExtensions()...)
	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		createInfo.Flags |= 1
	}
	if d.debug {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)
	}
	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = safeStrings(requiredExtensions)

	var layers []string
	if d.debug && validationLayerAvailable() {
		layers = []string{"VK_LAYER_KHRONOS_validation"}
	}
	createInfo.EnabledLayerCount = uint32(len(layers))
	createInfo.PpEnabledLayerNames = safeStrings(layers)

	if res := vk.CreateInstance(&createInfo, d.allocator, &d.instance); res != vk.Success {
		err := fmt.Errorf("failed to create vulkan instance: %s", resultString(res))
		core.LogError(err.Error())
		return nil, err
	}
	if err := vk.InitInstance(d.instance); err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	core.LogDebug("vulkan instance created")

	if d.debug {
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit),
			PfnCallback: debugCallback,
		}
		if res := vk.CreateDebugReportCallback(d.instance, &debugCreateInfo, nil, &d.debugMessenger); res != vk.Success {
			core.LogWarn("failed to create debug callback: %s", resultString(res))
		} else {
			d.hasDebugger = true
		}
	}

	surfacePtr, err := window.CreateWindowSurface(d.instance, nil)
	if err != nil {
		core.LogError("vulkan surface creation failed: %s", err)
		d.destroyInstance()
		return nil, err
	}
	d.surface = vk.SurfaceFromPointer(surfacePtr)

	device, err := newDevice(d.instance, d.surface, d.allocator)
	if err != nil {
		d.destroyInstance()
		return nil, err
	}
	d.device = device

	d.surfaceFormat = device.chooseSurfaceFormat(d.surface)
	core.LogInfo("vulkan device ready: %s", device.Name)
	return d, nil
}

func validationLayerAvailable() bool {
	var count uint32
	if res := vk.EnumerateInstanceLayerProperties(&count, nil); res != vk.Success {
		return false
	}
	layers := make([]vk.LayerProperties, count)
	if res := vk.EnumerateInstanceLayerProperties(&count, layers); res != vk.Success {
		return false
	}
	for i := range layers {
		layers[i].Deref()
		end := firstZero(layers[i].LayerName[:])
		if vk.ToString(layers[i].LayerName[:end+1]) == "VK_LAYER_KHRONOS_validation" {
			return true
		}
	}
	return false
}

func debugCallback(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType,
	object uint64, location uint, messageCode int32, pLayerPrefix string,
	pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("[vulkan] %s", pMessage)
	default:
		core.LogWarn("[vulkan] %s", pMessage)
	}
	return vk.Bool32(vk.False)
}

func (d *Driver) handle() uint64 {
	d.next++
	return d.next
}

// Destroy tears the driver down. Every renderer-owned object must already
// have been destroyed.
func (d *Driver) Destroy() {
	if d == nil || d.instance == nil {
		return
	}
	vk.DeviceWaitIdle(d.device.LogicalDevice)
	d.device.destroy(d.allocator)
	vk.DestroySurface(d.instance, d.surface, d.allocator)
	d.destroyInstance()
}

func (d *Driver) destroyInstance() {
	if d.hasDebugger {
		vk.DestroyDebugReportCallback(d.instance, d.debugMessenger, d.allocator)
		d.hasDebugger = false
	}
	vk.DestroyInstance(d.instance, d.allocator)
	d.instance = nil
}

// SurfaceSize returns the surface's current extent, falling back to the
// window framebuffer size when the surface leaves the extent to the
// application.
func (d *Driver) SurfaceSize() (uint32, uint32) {
	var caps vk.SurfaceCapabilities
	if res := vk.GetPhysicalDeviceSurfaceCapabilities(d.device.PhysicalDevice, d.surface, &caps); res != vk.Success {
		core.LogError("failed to query surface capabilities: %s", resultString(res))
		return 0, 0
	}
	caps.Deref()
	caps.CurrentExtent.Deref()
	if caps.CurrentExtent.Width != gomath.MaxUint32 {
		return caps.CurrentExtent.Width, caps.CurrentExtent.Height
	}
	w, h := d.window.GetFramebufferSize()
	return uint32(w), uint32(h)
}

func (d *Driver) SupportsPresentMode(mode gpu.PresentMode) bool {
	want := vkPresentMode(mode)
	var count uint32
	if res := vk.GetPhysicalDeviceSurfacePresentModes(d.device.PhysicalDevice, d.surface, &count, nil); res != vk.Success {
		return mode == gpu.PresentModeFifo
	}
	modes := make([]vk.PresentMode, count)
	if res := vk.GetPhysicalDeviceSurfacePresentModes(d.device.PhysicalDevice, d.surface, &count, modes); res != vk.Success {
		return mode == gpu.PresentModeFifo
	}
	for _, m := range modes {
		if m == want {
			return true
		}
	}
	return false
}

// MaxMSAA returns the highest sample count the device supports for both
// colour and depth framebuffer attachments.
func (d *Driver) MaxMSAA() gpu.MSAA {
	counts := vk.SampleCountFlags(d.device.Properties.Limits.FramebufferColorSampleCounts) &
		vk.SampleCountFlags(d.device.Properties.Limits.FramebufferDepthSampleCounts)
	switch {
	case counts&vk.SampleCountFlags(vk.SampleCount32Bit) != 0:
		return gpu.MSAA32x
	case counts&vk.SampleCountFlags(vk.SampleCount16Bit) != 0:
		return gpu.MSAA16x
	case counts&vk.SampleCountFlags(vk.SampleCount8Bit) != 0:
		return gpu.MSAA8x
	case counts&vk.SampleCountFlags(vk.SampleCount4Bit) != 0:
		return gpu.MSAA4x
	case counts&vk.SampleCountFlags(vk.SampleCount2Bit) != 0:
		return gpu.MSAA2x
	default:
		return gpu.MSAA1x
	}
}

func (d *Driver) DepthFormatSupported(format gpu.Format) bool {
	var props vk.FormatProperties
	vk.GetPhysicalDeviceFormatProperties(d.device.PhysicalDevice, vkFormat(format), &props)
	props.Deref()
	return vk.FormatFeatureFlags(props.OptimalTilingFeatures)&vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit) != 0
}

func (d *Driver) SurfaceFormat() gpu.Format {
	switch d.surfaceFormat.Format {
	case vk.FormatB8g8r8a8Srgb:
		return gpu.FormatB8G8R8A8Srgb
	default:
		return gpu.FormatR8G8B8A8Unorm
	}
}
