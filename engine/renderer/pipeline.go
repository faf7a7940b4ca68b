package renderer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vivid-engine/vivid/engine/core"
	"github.com/vivid-engine/vivid/engine/gpu"
)

// PipelineSpec is the driver-independent definition of a pipeline: the
// shader bytecode plus fixed-function choices. Specs survive swapchain
// rebuilds unchanged so the pipeline objects recreated against the new
// render pass use the exact same bytecode buffers.
type PipelineSpec struct {
	Vert  []byte
	Frag  []byte
	Input gpu.VertexInput
	Fill  bool
}

// Pipeline pairs live pipeline objects, one variant per blend mode, with
// the spec they were built from. The draw path selects the variant for
// the renderer's current blend mode.
type Pipeline struct {
	handles [gpu.BlendModeCount]gpu.Pipeline
	spec    PipelineSpec
	layout  gpu.DescriptorSetLayout
}

// builtin shader file names under Config.ShaderDir.
const (
	texVertShader   = "tex.vert.spv"
	texFragShader   = "tex.frag.spv"
	shapeVertShader = "shapes.vert.spv"
	shapeFragShader = "shapes.frag.spv"
)

func loadShader(dir, name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		core.LogError("failed to load shader %s: %s", name, err)
		return nil, err
	}
	return data, nil
}

// loadBuiltinShaders reads the compiled SPIR-V for the texture and shape
// pipelines. Called once at init; the bytes live in the pipeline specs
// from then on.
func (r *Renderer) loadBuiltinShaders() error {
	dir := r.config.ShaderDir
	texVert, err := loadShader(dir, texVertShader)
	if err != nil {
		return err
	}
	texFrag, err := loadShader(dir, texFragShader)
	if err != nil {
		return err
	}
	shapeVert, err := loadShader(dir, shapeVertShader)
	if err != nil {
		return err
	}
	shapeFrag, err := loadShader(dir, shapeFragShader)
	if err != nil {
		return err
	}

	r.texPipe = &Pipeline{spec: PipelineSpec{Vert: texVert, Frag: texFrag, Input: gpu.VertexInputTexture, Fill: true}, layout: r.texLayout}
	r.fillPipe = &Pipeline{spec: PipelineSpec{Vert: shapeVert, Frag: shapeFrag, Input: gpu.VertexInputColour, Fill: true}, layout: r.shapeLayout}
	r.linePipe = &Pipeline{spec: PipelineSpec{Vert: shapeVert, Frag: shapeFrag, Input: gpu.VertexInputColour, Fill: false}, layout: r.shapeLayout}
	return nil
}

func (r *Renderer) createPipelineFromSpec(p *Pipeline) error {
	for mode := gpu.BlendMode(0); mode < gpu.BlendModeCount; mode++ {
		handle, res := r.drv.CreatePipeline(gpu.PipelineOptions{
			RenderPass: r.sc.passes.screen,
			Width:      r.sc.width,
			Height:     r.sc.height,
			VertSPIRV:  p.spec.Vert,
			FragSPIRV:  p.spec.Frag,
			Layout:     p.layout,
			Input:      p.spec.Input,
			Fill:       p.spec.Fill,
			Samples:    r.config.MSAA,
			Blend:      mode,
		})
		if !res.IsSuccess() {
			for m := gpu.BlendMode(0); m < mode; m++ {
				r.drv.DestroyPipeline(p.handles[m])
				p.handles[m] = 0
			}
			err := fmt.Errorf("failed to create pipeline: %s", res)
			core.LogError(err.Error())
			return err
		}
		p.handles[mode] = handle
	}
	return nil
}

// createPipelines builds pipeline objects for the built-in and every
// caller-supplied spec against the current render passes. Called at init
// and again after every swapchain rebuild.
func (r *Renderer) createPipelines() error {
	for _, p := range []*Pipeline{r.texPipe, r.fillPipe, r.linePipe} {
		if err := r.createPipelineFromSpec(p); err != nil {
			return err
		}
	}
	for _, p := range r.customPipes {
		if err := r.createPipelineFromSpec(p); err != nil {
			return err
		}
	}
	return nil
}

// destroyPipelines releases the pipeline objects but keeps every spec so a
// rebuild recreates identical pipelines.
func (r *Renderer) destroyPipelines() {
	for _, p := range []*Pipeline{r.texPipe, r.fillPipe, r.linePipe} {
		if p != nil {
			p.destroyVariants(r.drv)
		}
	}
	for _, p := range r.customPipes {
		p.destroyVariants(r.drv)
	}
}

func (p *Pipeline) destroyVariants(drv gpu.Driver) {
	for i, h := range p.handles {
		if h != 0 {
			drv.DestroyPipeline(h)
			p.handles[i] = 0
		}
	}
}

// CreatePipeline builds a custom shader pipeline for DrawShader. It uses
// the texture vertex layout and descriptor layout, so custom shaders
// receive the same camera uniforms and sampler bindings as the built-in
// texture pipeline. The spec is retained and the pipeline survives
// swapchain rebuilds.
func (r *Renderer) CreatePipeline(spec PipelineSpec) (*Pipeline, error) {
	if r == nil || r.sc == nil {
		core.LogError("CreatePipeline called on an uninitialized renderer")
		return nil, errNotInitialized
	}
	if len(spec.Vert) == 0 || len(spec.Frag) == 0 {
		return nil, fmt.Errorf("pipeline spec is missing shader bytecode")
	}
	p := &Pipeline{spec: spec, layout: r.texLayout}
	if err := r.createPipelineFromSpec(p); err != nil {
		return nil, err
	}
	r.customPipes = append(r.customPipes, p)
	return p, nil
}

// DestroyPipeline releases a custom pipeline and forgets its spec.
func (r *Renderer) DestroyPipeline(p *Pipeline) {
	if r == nil || p == nil {
		return
	}
	for i, cp := range r.customPipes {
		if cp == p {
			r.customPipes = append(r.customPipes[:i], r.customPipes[i+1:]...)
			break
		}
	}
	p.destroyVariants(r.drv)
}

// Spec returns a copy of the pipeline's definition.
func (p *Pipeline) Spec() PipelineSpec {
	return p.spec
}
