// Package gpu defines the contract between the renderer core and the
// underlying graphics driver. The core only ever sees the opaque handles
// and result codes declared here; the Vulkan implementation lives in the
// vulkan subpackage.
package gpu

// Opaque driver-owned handles. Zero is the null handle for every type.
type (
	Swapchain           uint64
	Image               uint64
	ImageView           uint64
	Framebuffer         uint64
	RenderPass          uint64
	Pipeline            uint64
	DescriptorSetLayout uint64
	DescriptorPool      uint64
	DescriptorSet       uint64
	Buffer              uint64
	Sampler             uint64
	Fence               uint64
	Semaphore           uint64
	CommandBuffer       uint64
)

// Result mirrors the driver's result codes. Only codes the core inspects
// are enumerated; everything else maps to ErrUnknown.
type Result int

const (
	Success Result = iota
	// Suboptimal presents succeeded but the swapchain no longer matches
	// the surface exactly; the caller should rebuild at the frame boundary.
	Suboptimal
	ErrOutOfDate
	ErrOutOfPoolMemory
	ErrOutOfHostMemory
	ErrOutOfDeviceMemory
	ErrDeviceLost
	ErrSurfaceLost
	ErrInitializationFailed
	ErrUnknown
)

// IsSuccess reports whether the result is a non-error code.
func (r Result) IsSuccess() bool {
	return r == Success || r == Suboptimal
}

func (r Result) String() string {
	switch r {
	case Success:
		return "SUCCESS"
	case Suboptimal:
		return "SUBOPTIMAL"
	case ErrOutOfDate:
		return "ERROR_OUT_OF_DATE"
	case ErrOutOfPoolMemory:
		return "ERROR_OUT_OF_POOL_MEMORY"
	case ErrOutOfHostMemory:
		return "ERROR_OUT_OF_HOST_MEMORY"
	case ErrOutOfDeviceMemory:
		return "ERROR_OUT_OF_DEVICE_MEMORY"
	case ErrDeviceLost:
		return "ERROR_DEVICE_LOST"
	case ErrSurfaceLost:
		return "ERROR_SURFACE_LOST"
	case ErrInitializationFailed:
		return "ERROR_INITIALIZATION_FAILED"
	default:
		return "ERROR_UNKNOWN"
	}
}

// PresentMode selects how presentation is paced.
type PresentMode int

const (
	PresentModeFifo PresentMode = iota
	PresentModeMailbox
	PresentModeImmediate
)

// MSAA is a multisample level; the value is the sample count.
type MSAA uint32

const (
	MSAA1x  MSAA = 1
	MSAA2x  MSAA = 2
	MSAA4x  MSAA = 4
	MSAA8x  MSAA = 8
	MSAA16x MSAA = 16
	MSAA32x MSAA = 32
)

type Filter int

const (
	FilterNearest Filter = iota
	FilterLinear
)

type Format int

const (
	FormatUndefined Format = iota
	FormatB8G8R8A8Srgb
	FormatR8G8B8A8Unorm
	FormatD32Sfloat
	FormatD32SfloatS8Uint
	FormatD24UnormS8Uint
)

type ImageLayout int

const (
	LayoutUndefined ImageLayout = iota
	LayoutColourAttachment
	LayoutShaderReadOnly
	LayoutPresentSrc
	LayoutDepthStencilAttachment
)

type ImageAspect int

const (
	AspectColour ImageAspect = iota
	AspectDepth
)

type ImageUsage int

const (
	UsageColourAttachment ImageUsage = 1 << iota
	UsageDepthStencilAttachment
	UsageSampled
	UsageTransient
	UsageTransferDst
)

type BufferUsage int

const (
	BufferUsageUniform BufferUsage = iota
	BufferUsageVertex
)

// DescriptorKind is the subset of descriptor types the renderer binds.
type DescriptorKind int

const (
	DescriptorUniformBuffer DescriptorKind = iota
	DescriptorSampledImage
	DescriptorStorageBuffer
)

type BlendMode int

const (
	BlendModeBlend BlendMode = iota
	BlendModeNone
	BlendModeAdd
	BlendModeSubtract

	// BlendModeCount sizes per-mode pipeline variant tables.
	BlendModeCount
)

// VertexInput identifies one of the fixed vertex layouts the renderer
// feeds its pipelines.
type VertexInput int

const (
	// VertexInputTexture is {vec3 pos, vec2 uv}.
	VertexInputTexture VertexInput = iota
	// VertexInputColour is {vec3 pos, vec4 colour}.
	VertexInputColour
)

type SwapchainOptions struct {
	Width       uint32
	Height      uint32
	PresentMode PresentMode
}

type ImageOptions struct {
	Width   uint32
	Height  uint32
	Format  Format
	Aspect  ImageAspect
	Usage   ImageUsage
	Samples MSAA
}

// RenderPassOptions is one instantiation of the shared attachment template.
// The three render passes the renderer owns differ only in the initial and
// final layouts of the colour (and resolve) attachment.
type RenderPassOptions struct {
	ColourFormat  Format
	DepthFormat   Format // FormatUndefined when depth is unavailable
	Samples       MSAA
	InitialLayout ImageLayout
	FinalLayout   ImageLayout
	// ResolveInitialLayout/ResolveFinalLayout apply only when Samples > 1.
	ResolveInitialLayout ImageLayout
	ResolveFinalLayout   ImageLayout
}

type DescriptorBinding struct {
	Binding uint32
	Kind    DescriptorKind
}

type DescriptorPoolSize struct {
	Kind  DescriptorKind
	Count uint32
}

// DescriptorWrite binds one resource into a set. Exactly one of the
// Buffer or View/Sampler pairs is meaningful depending on Kind.
type DescriptorWrite struct {
	Binding uint32
	Kind    DescriptorKind
	Buffer  Buffer
	Range   uint64
	View    ImageView
	Sampler Sampler
}

type PipelineOptions struct {
	RenderPass RenderPass
	Width      uint32
	Height     uint32
	VertSPIRV  []byte
	FragSPIRV  []byte
	Layout     DescriptorSetLayout
	Input      VertexInput
	Fill       bool
	Samples    MSAA
	Blend      BlendMode
}

type SubmitInfo struct {
	CommandBuffer CommandBuffer
	WaitSemaphore Semaphore
	SignalSem     Semaphore
	Fence         Fence
}

// ClearValue carries the clear colour for the colour attachment; depth is
// always cleared to 1.0.
type ClearValue struct {
	R, G, B, A float32
}
