package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/vivid-engine/vivid/engine/gpu"
)

// gpuResult maps a Vulkan result onto the codes the renderer core
// inspects. Everything it has no case for collapses to ErrUnknown.
func gpuResult(res vk.Result) gpu.Result {
	switch res {
	case vk.Success:
		return gpu.Success
	case vk.Suboptimal:
		return gpu.Suboptimal
	case vk.ErrorOutOfDate:
		return gpu.ErrOutOfDate
	case vk.ErrorOutOfPoolMemory:
		return gpu.ErrOutOfPoolMemory
	case vk.ErrorOutOfHostMemory:
		return gpu.ErrOutOfHostMemory
	case vk.ErrorOutOfDeviceMemory:
		return gpu.ErrOutOfDeviceMemory
	case vk.ErrorDeviceLost:
		return gpu.ErrDeviceLost
	case vk.ErrorSurfaceLost:
		return gpu.ErrSurfaceLost
	case vk.ErrorInitializationFailed:
		return gpu.ErrInitializationFailed
	default:
		return gpu.ErrUnknown
	}
}

func resultString(res vk.Result) string {
	return gpuResult(res).String()
}

func vkPresentMode(mode gpu.PresentMode) vk.PresentMode {
	switch mode {
	case gpu.PresentModeMailbox:
		return vk.PresentModeMailbox
	case gpu.PresentModeImmediate:
		return vk.PresentModeImmediate
	default:
		return vk.PresentModeFifo
	}
}

func vkFormat(format gpu.Format) vk.Format {
	switch format {
	case gpu.FormatB8G8R8A8Srgb:
		return vk.FormatB8g8r8a8Srgb
	case gpu.FormatR8G8B8A8Unorm:
		return vk.FormatR8g8b8a8Unorm
	case gpu.FormatD32Sfloat:
		return vk.FormatD32Sfloat
	case gpu.FormatD32SfloatS8Uint:
		return vk.FormatD32SfloatS8Uint
	case gpu.FormatD24UnormS8Uint:
		return vk.FormatD24UnormS8Uint
	default:
		return vk.FormatUndefined
	}
}

func vkSampleCount(samples gpu.MSAA) vk.SampleCountFlagBits {
	switch samples {
	case gpu.MSAA32x:
		return vk.SampleCount32Bit
	case gpu.MSAA16x:
		return vk.SampleCount16Bit
	case gpu.MSAA8x:
		return vk.SampleCount8Bit
	case gpu.MSAA4x:
		return vk.SampleCount4Bit
	case gpu.MSAA2x:
		return vk.SampleCount2Bit
	default:
		return vk.SampleCount1Bit
	}
}

func vkImageLayout(layout gpu.ImageLayout) vk.ImageLayout {
	switch layout {
	case gpu.LayoutColourAttachment:
		return vk.ImageLayoutColorAttachmentOptimal
	case gpu.LayoutShaderReadOnly:
		return vk.ImageLayoutShaderReadOnlyOptimal
	case gpu.LayoutPresentSrc:
		return vk.ImageLayoutPresentSrc
	case gpu.LayoutDepthStencilAttachment:
		return vk.ImageLayoutDepthStencilAttachmentOptimal
	default:
		return vk.ImageLayoutUndefined
	}
}

func vkDescriptorType(kind gpu.DescriptorKind) vk.DescriptorType {
	switch kind {
	case gpu.DescriptorSampledImage:
		return vk.DescriptorTypeCombinedImageSampler
	case gpu.DescriptorStorageBuffer:
		return vk.DescriptorTypeStorageBuffer
	default:
		return vk.DescriptorTypeUniformBuffer
	}
}

var end = "\x00"

func safeString(s string) string {
	if len(s) == 0 {
		return end
	}
	if s[len(s)-1] != '\x00' {
		return s + end
	}
	return s
}

func safeStrings(list []string) []string {
	out := make([]string, len(list))
	for i := range list {
		out[i] = safeString(list[i])
	}
	return out
}

func firstZero(arr []byte) int {
	for i, b := range arr {
		if b == 0 {
			return i
		}
	}
	return 0
}
