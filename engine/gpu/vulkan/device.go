package vulkan

import (
	"fmt"
	"runtime"

	vk "github.com/goki/vulkan"

	"github.com/vivid-engine/vivid/engine/core"
)

// Device bundles the physical device, the logical device built on it, and
// the graphics/present queues the driver records against.
type Device struct {
	PhysicalDevice vk.PhysicalDevice
	LogicalDevice  vk.Device
	Name           string

	GraphicsQueueIndex int32
	PresentQueueIndex  int32

	GraphicsQueue vk.Queue
	PresentQueue  vk.Queue

	GraphicsCommandPool vk.CommandPool

	Properties vk.PhysicalDeviceProperties
	Memory     vk.PhysicalDeviceMemoryProperties
}

type queueFamilyInfo struct {
	graphicsIndex int32
	presentIndex  int32
}

func newDevice(instance vk.Instance, surface vk.Surface, allocator *vk.AllocationCallbacks) (*Device, error) {
	d := &Device{GraphicsQueueIndex: -1, PresentQueueIndex: -1}
	if err := d.selectPhysicalDevice(instance, surface); err != nil {
		return nil, err
	}
	if err := d.createLogicalDevice(allocator); err != nil {
		return nil, err
	}

	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: uint32(d.GraphicsQueueIndex),
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	if res := vk.CreateCommandPool(d.LogicalDevice, &poolCreateInfo, allocator, &d.GraphicsCommandPool); res != vk.Success {
		err := fmt.Errorf("failed to create graphics command pool: %s", resultString(res))
		core.LogError(err.Error())
		vk.DestroyDevice(d.LogicalDevice, allocator)
		return nil, err
	}
	core.LogDebug("graphics command pool created")
	return d, nil
}

func (d *Device) selectPhysicalDevice(instance vk.Instance, surface vk.Surface) error {
	var deviceCount uint32
	if res := vk.EnumeratePhysicalDevices(instance, &deviceCount, nil); res != vk.Success {
		err := fmt.Errorf("failed to enumerate physical devices: %s", resultString(res))
		core.LogError(err.Error())
		return err
	}
	if deviceCount == 0 {
		err := fmt.Errorf("no devices which support vulkan were found")
		core.LogError(err.Error())
		return err
	}
	devices := make([]vk.PhysicalDevice, deviceCount)
	if res := vk.EnumeratePhysicalDevices(instance, &deviceCount, devices); res != vk.Success {
		err := fmt.Errorf("failed to enumerate physical devices: %s", resultString(res))
		core.LogError(err.Error())
		return err
	}

	requireDiscrete := runtime.GOOS != "darwin"

	// Two passes: prefer a discrete GPU, then accept whatever can draw
	// and present.
	for _, discreteOnly := range []bool{requireDiscrete, false} {
		for _, candidate := range devices {
			var properties vk.PhysicalDeviceProperties
			vk.GetPhysicalDeviceProperties(candidate, &properties)
			properties.Deref()
			properties.Limits.Deref()

			if discreteOnly && properties.DeviceType != vk.PhysicalDeviceTypeDiscreteGpu {
				continue
			}

			queues, ok := findQueueFamilies(candidate, surface)
			if !ok {
				continue
			}
			if !supportsSwapchainExtension(candidate) {
				continue
			}

			var memory vk.PhysicalDeviceMemoryProperties
			vk.GetPhysicalDeviceMemoryProperties(candidate, &memory)
			memory.Deref()

			d.PhysicalDevice = candidate
			d.GraphicsQueueIndex = queues.graphicsIndex
			d.PresentQueueIndex = queues.presentIndex
			d.Properties = properties
			d.Memory = memory
			d.Name = vk.ToString(properties.DeviceName[:firstZero(properties.DeviceName[:])+1])
			core.LogInfo("selected device: '%s'", d.Name)
			return nil
		}
		if discreteOnly {
			core.LogDebug("no discrete GPU found, falling back to any capable device")
		}
	}

	err := fmt.Errorf("no physical device meets the requirements")
	core.LogError(err.Error())
	return err
}

func findQueueFamilies(device vk.PhysicalDevice, surface vk.Surface) (queueFamilyInfo, bool) {
	info := queueFamilyInfo{graphicsIndex: -1, presentIndex: -1}

	var familyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &familyCount, nil)
	families := make([]vk.QueueFamilyProperties, familyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(device, &familyCount, families)

	for i := uint32(0); i < familyCount; i++ {
		families[i].Deref()
		if info.graphicsIndex < 0 && vk.QueueFlagBits(families[i].QueueFlags)&vk.QueueGraphicsBit > 0 {
			info.graphicsIndex = int32(i)
		}
		var supportsPresent vk.Bool32
		if res := vk.GetPhysicalDeviceSurfaceSupport(device, i, surface, &supportsPresent); res != vk.Success {
			continue
		}
		if info.presentIndex < 0 && supportsPresent == vk.True {
			info.presentIndex = int32(i)
		}
	}
	return info, info.graphicsIndex >= 0 && info.presentIndex >= 0
}

func supportsSwapchainExtension(device vk.PhysicalDevice) bool {
	var count uint32
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &count, nil); res != vk.Success {
		return false
	}
	available := make([]vk.ExtensionProperties, count)
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &count, available); res != vk.Success {
		return false
	}
	for i := range available {
		available[i].Deref()
		end := firstZero(available[i].ExtensionName[:])
		if vk.ToString(available[i].ExtensionName[:end+1]) == vk.KhrSwapchainExtensionName {
			return true
		}
	}
	return false
}

func (d *Device) createLogicalDevice(allocator *vk.AllocationCallbacks) error {
	// Do not create additional queues for shared indices.
	indices := []uint32{uint32(d.GraphicsQueueIndex)}
	if d.PresentQueueIndex != d.GraphicsQueueIndex {
		indices = append(indices, uint32(d.PresentQueueIndex))
	}

	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(indices))
	for i := range indices {
		queueCreateInfos[i].SType = vk.StructureTypeDeviceQueueCreateInfo
		queueCreateInfos[i].QueueFamilyIndex = indices[i]
		queueCreateInfos[i].QueueCount = 1
		queueCreateInfos[i].PQueuePriorities = []float32{1.0}
	}

	deviceFeatures := vk.PhysicalDeviceFeatures{}
	deviceFeatures.SamplerAnisotropy = vk.True
	deviceFeatures.FillModeNonSolid = vk.True

	extensionNames := []string{vk.KhrSwapchainExtensionName}
	if devicePortabilityRequired(d.PhysicalDevice) {
		core.LogInfo("adding required extension 'VK_KHR_portability_subset'")
		extensionNames = append(extensionNames, "VK_KHR_portability_subset")
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{deviceFeatures},
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: safeStrings(extensionNames),
	}

	if res := vk.CreateDevice(d.PhysicalDevice, &deviceCreateInfo, allocator, &d.LogicalDevice); res != vk.Success {
		err := fmt.Errorf("failed to create logical device: %s", resultString(res))
		core.LogError(err.Error())
		return err
	}
	core.LogDebug("logical device created")

	vk.GetDeviceQueue(d.LogicalDevice, uint32(d.GraphicsQueueIndex), 0, &d.GraphicsQueue)
	vk.GetDeviceQueue(d.LogicalDevice, uint32(d.PresentQueueIndex), 0, &d.PresentQueue)
	return nil
}

func devicePortabilityRequired(device vk.PhysicalDevice) bool {
	var count uint32
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &count, nil); res != vk.Success {
		return false
	}
	available := make([]vk.ExtensionProperties, count)
	if res := vk.EnumerateDeviceExtensionProperties(device, "", &count, available); res != vk.Success {
		return false
	}
	for i := range available {
		available[i].Deref()
		end := firstZero(available[i].ExtensionName[:])
		if vk.ToString(available[i].ExtensionName[:end+1]) == "VK_KHR_portability_subset" {
			return true
		}
	}
	return false
}

// chooseSurfaceFormat prefers BGRA8 sRGB with an sRGB colour space and
// otherwise takes the first format the surface offers.
func (d *Device) chooseSurfaceFormat(surface vk.Surface) vk.SurfaceFormat {
	var count uint32
	if res := vk.GetPhysicalDeviceSurfaceFormats(d.PhysicalDevice, surface, &count, nil); res != vk.Success || count == 0 {
		return vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	}
	formats := make([]vk.SurfaceFormat, count)
	if res := vk.GetPhysicalDeviceSurfaceFormats(d.PhysicalDevice, surface, &count, formats); res != vk.Success {
		return vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	}
	for i := range formats {
		formats[i].Deref()
		if formats[i].Format == vk.FormatB8g8r8a8Srgb && formats[i].ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return formats[i]
		}
	}
	return formats[0]
}

// findMemoryIndex returns the index of a memory type matching typeFilter
// and the requested property flags, or -1 if none exists.
func (d *Device) findMemoryIndex(typeFilter uint32, flags vk.MemoryPropertyFlags) int32 {
	for i := uint32(0); i < d.Memory.MemoryTypeCount; i++ {
		d.Memory.MemoryTypes[i].Deref()
		if typeFilter&(1<<i) != 0 && d.Memory.MemoryTypes[i].PropertyFlags&flags == flags {
			return int32(i)
		}
	}
	core.LogWarn("unable to find suitable memory type")
	return -1
}

func (d *Device) destroy(allocator *vk.AllocationCallbacks) {
	d.GraphicsQueue = nil
	d.PresentQueue = nil
	vk.DestroyCommandPool(d.LogicalDevice, d.GraphicsCommandPool, allocator)
	if d.LogicalDevice != nil {
		vk.DestroyDevice(d.LogicalDevice, allocator)
		d.LogicalDevice = nil
	}
	d.PhysicalDevice = nil
}
