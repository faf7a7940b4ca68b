package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/vivid-engine/vivid/engine/core"
	"github.com/vivid-engine/vivid/engine/gpu"
)

// pushConstantBytes is the size of the per-draw push constant block:
// mat4 model, vec4 colour modifier, vec4 texture region.
const pushConstantBytes = 96

func (d *Driver) CreateDescriptorSetLayout(bindings []gpu.DescriptorBinding) (gpu.DescriptorSetLayout, gpu.Result) {
	vkBindings := make([]vk.DescriptorSetLayoutBinding, len(bindings))
	for i, b := range bindings {
		stages := vk.ShaderStageFlags(vk.ShaderStageVertexBit)
		switch b.Kind {
		case gpu.DescriptorSampledImage:
			stages = vk.ShaderStageFlags(vk.ShaderStageFragmentBit)
		case gpu.DescriptorStorageBuffer:
			stages = vk.ShaderStageFlags(vk.ShaderStageVertexBit) | vk.ShaderStageFlags(vk.ShaderStageFragmentBit)
		}
		vkBindings[i] = vk.DescriptorSetLayoutBinding{
			Binding:         b.Binding,
			DescriptorType:  vkDescriptorType(b.Kind),
			DescriptorCount: 1,
			StageFlags:      stages,
		}
	}
	createInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(vkBindings)),
		PBindings:    vkBindings,
	}
	var handle vk.DescriptorSetLayout
	if res := vk.CreateDescriptorSetLayout(d.device.LogicalDevice, &createInfo, d.allocator, &handle); res != vk.Success {
		core.LogError("failed to create descriptor set layout: %s", resultString(res))
		return 0, gpuResult(res)
	}
	id := gpu.DescriptorSetLayout(d.handle())
	d.setLayouts[id] = handle
	return id, gpu.Success
}

func (d *Driver) DestroyDescriptorSetLayout(layout gpu.DescriptorSetLayout) {
	if handle, ok := d.setLayouts[layout]; ok {
		vk.DestroyDescriptorSetLayout(d.device.LogicalDevice, handle, d.allocator)
		delete(d.setLayouts, layout)
	}
}

func vertexAttributes(input gpu.VertexInput) (uint32, []vk.VertexInputAttributeDescription) {
	switch input {
	case gpu.VertexInputColour:
		// {vec3 pos, vec4 colour}
		return 28, []vk.VertexInputAttributeDescription{
			{Location: 0, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 0},
			{Location: 1, Binding: 0, Format: vk.FormatR32g32b32a32Sfloat, Offset: 12},
		}
	default:
		// {vec3 pos, vec2 uv}
		return 20, []vk.VertexInputAttributeDescription{
			{Location: 0, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 0},
			{Location: 1, Binding: 0, Format: vk.FormatR32g32Sfloat, Offset: 12},
		}
	}
}

func blendAttachmentState(mode gpu.BlendMode) vk.PipelineColorBlendAttachmentState {
	state := vk.PipelineColorBlendAttachmentState{
		BlendEnable: vk.True,
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit) | vk.ColorComponentFlags(vk.ColorComponentGBit) |
			vk.ColorComponentFlags(vk.ColorComponentBBit) | vk.ColorComponentFlags(vk.ColorComponentABit),
	}
	switch mode {
	case gpu.BlendModeNone:
		state.BlendEnable = vk.False
	case gpu.BlendModeAdd:
		state.SrcColorBlendFactor = vk.BlendFactorSrcAlpha
		state.DstColorBlendFactor = vk.BlendFactorOne
		state.ColorBlendOp = vk.BlendOpAdd
		state.SrcAlphaBlendFactor = vk.BlendFactorSrcAlpha
		state.DstAlphaBlendFactor = vk.BlendFactorOne
		state.AlphaBlendOp = vk.BlendOpAdd
	case gpu.BlendModeSubtract:
		state.SrcColorBlendFactor = vk.BlendFactorSrcAlpha
		state.DstColorBlendFactor = vk.BlendFactorOne
		state.ColorBlendOp = vk.BlendOpReverseSubtract
		state.SrcAlphaBlendFactor = vk.BlendFactorSrcAlpha
		state.DstAlphaBlendFactor = vk.BlendFactorOne
		state.AlphaBlendOp = vk.BlendOpReverseSubtract
	default:
		state.SrcColorBlendFactor = vk.BlendFactorSrcAlpha
		state.DstColorBlendFactor = vk.BlendFactorOneMinusSrcAlpha
		state.ColorBlendOp = vk.BlendOpAdd
		state.SrcAlphaBlendFactor = vk.BlendFactorOne
		state.DstAlphaBlendFactor = vk.BlendFactorOneMinusSrcAlpha
		state.AlphaBlendOp = vk.BlendOpAdd
	}
	return state
}

func (d *Driver) createShaderModule(code []byte) (vk.ShaderModule, gpu.Result) {
	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    vk.SliceUint32(code),
	}
	var module vk.ShaderModule
	if res := vk.CreateShaderModule(d.device.LogicalDevice, &createInfo, d.allocator, &module); res != vk.Success {
		core.LogError("failed to create shader module: %s", resultString(res))
		return vk.NullShaderModule, gpuResult(res)
	}
	return module, gpu.Success
}

func (d *Driver) CreatePipeline(opts gpu.PipelineOptions) (gpu.Pipeline, gpu.Result) {
	pass, ok := d.renderPasses[opts.RenderPass]
	if !ok {
		return 0, gpu.ErrUnknown
	}
	setLayout, ok := d.setLayouts[opts.Layout]
	if !ok {
		return 0, gpu.ErrUnknown
	}

	vertModule, res := d.createShaderModule(opts.VertSPIRV)
	if res != gpu.Success {
		return 0, res
	}
	fragModule, res := d.createShaderModule(opts.FragSPIRV)
	if res != gpu.Success {
		vk.DestroyShaderModule(d.device.LogicalDevice, vertModule, d.allocator)
		return 0, res
	}
	defer func() {
		// Modules are owned by the pipeline once it is created.
		vk.DestroyShaderModule(d.device.LogicalDevice, vertModule, d.allocator)
		vk.DestroyShaderModule(d.device.LogicalDevice, fragModule, d.allocator)
	}()

	stages := []vk.PipelineShaderStageCreateInfo{
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageVertexBit,
			Module: vertModule,
			PName:  safeString("main"),
		},
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFragmentBit,
			Module: fragModule,
			PName:  safeString("main"),
		},
	}

	stride, attributes := vertexAttributes(opts.Input)
	bindingDescription := vk.VertexInputBindingDescription{
		Binding:   0,
		Stride:    stride,
		InputRate: vk.VertexInputRateVertex,
	}
	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   1,
		PVertexBindingDescriptions:      []vk.VertexInputBindingDescription{bindingDescription},
		VertexAttributeDescriptionCount: uint32(len(attributes)),
		PVertexAttributeDescriptions:    attributes,
	}

	topology := vk.PrimitiveTopologyTriangleList
	if !opts.Fill {
		topology = vk.PrimitiveTopologyLineStrip
	}
	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology: topology,
	}

	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		PViewports: []vk.Viewport{{
			Width:    float32(opts.Width),
			Height:   float32(opts.Height),
			MaxDepth: 1.0,
		}},
		ScissorCount: 1,
		PScissors: []vk.Rect2D{{
			Extent: vk.Extent2D{Width: opts.Width, Height: opts.Height},
		}},
	}

	rasterizer := vk.PipelineRasterizationStateCreateInfo{
		SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
		PolygonMode: vk.PolygonModeFill,
		LineWidth:   1.0,
		CullMode:    vk.CullModeFlags(vk.CullModeNone),
		FrontFace:   vk.FrontFaceCounterClockwise,
	}

	samples := opts.Samples
	if samples == 0 {
		samples = gpu.MSAA1x
	}
	multisampling := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: vkSampleCount(samples),
		MinSampleShading:     1.0,
	}

	// Draws are painter-ordered; the depth attachment exists for the
	// render pass, not for per-fragment tests.
	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType: vk.StructureTypePipelineDepthStencilStateCreateInfo,
	}

	colorBlend := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{blendAttachmentState(opts.Blend)},
	}

	dynamicStates := []vk.DynamicState{
		vk.DynamicStateViewport,
		vk.DynamicStateScissor,
		vk.DynamicStateLineWidth,
		vk.DynamicStateBlendConstants,
	}
	dynamicState := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	pushRange := vk.PushConstantRange{
		StageFlags: vk.ShaderStageFlags(vk.ShaderStageVertexBit) | vk.ShaderStageFlags(vk.ShaderStageFragmentBit),
		Offset:     0,
		Size:       pushConstantBytes,
	}
	layoutCreateInfo := vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         1,
		PSetLayouts:            []vk.DescriptorSetLayout{setLayout},
		PushConstantRangeCount: 1,
		PPushConstantRanges:    []vk.PushConstantRange{pushRange},
	}
	var pipelineLayout vk.PipelineLayout
	if res := vk.CreatePipelineLayout(d.device.LogicalDevice, &layoutCreateInfo, d.allocator, &pipelineLayout); res != vk.Success {
		core.LogError("failed to create pipeline layout: %s", resultString(res))
		return 0, gpuResult(res)
	}

	createInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizer,
		PMultisampleState:   &multisampling,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlend,
		PDynamicState:       &dynamicState,
		Layout:              pipelineLayout,
		RenderPass:          pass.handle,
		Subpass:             0,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}

	pipelines := make([]vk.Pipeline, 1)
	if res := vk.CreateGraphicsPipelines(d.device.LogicalDevice, vk.NullPipelineCache, 1,
		[]vk.GraphicsPipelineCreateInfo{createInfo}, d.allocator, pipelines); res != vk.Success {
		vk.DestroyPipelineLayout(d.device.LogicalDevice, pipelineLayout, d.allocator)
		core.LogError("failed to create graphics pipeline: %s", resultString(res))
		return 0, gpuResult(res)
	}

	id := gpu.Pipeline(d.handle())
	d.pipelines[id] = &pipelineResource{handle: pipelines[0], layout: pipelineLayout}
	core.LogDebug("graphics pipeline created")
	return id, gpu.Success
}

func (d *Driver) DestroyPipeline(p gpu.Pipeline) {
	res, ok := d.pipelines[p]
	if !ok {
		return
	}
	vk.DestroyPipeline(d.device.LogicalDevice, res.handle, d.allocator)
	vk.DestroyPipelineLayout(d.device.LogicalDevice, res.layout, d.allocator)
	delete(d.pipelines, p)
}
