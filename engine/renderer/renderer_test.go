package renderer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vivid-engine/vivid/engine/gpu"
)

// writeTestShaders drops placeholder bytecode files into a temp shader
// directory; the fake driver never inspects them.
func writeTestShaders(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range []string{texVertShader, texFragShader, shapeVertShader, shapeFragShader} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0o644))
	}
	return dir
}

func newTestRenderer(t *testing.T, drv *fakeDriver) *Renderer {
	t.Helper()
	cfg := DefaultConfig()
	cfg.ShaderDir = writeTestShaders(t)
	r, err := NewRenderer(drv, fakeWindow{}, cfg)
	require.NoError(t, err)
	t.Cleanup(r.Quit)
	return r
}

func TestStartFrameIsIdempotent(t *testing.T) {
	drv := newFakeDriver(3)
	r := newTestRenderer(t, drv)

	require.NoError(t, r.StartFrame(gpu.ClearValue{}))
	acquires := len(drv.acquired)
	waits := drv.fenceWaits

	require.NoError(t, r.StartFrame(gpu.ClearValue{}))
	assert.Equal(t, acquires, len(drv.acquired), "second StartFrame must not acquire again")
	assert.Equal(t, waits, drv.fenceWaits, "second StartFrame must not wait again")

	require.NoError(t, r.EndFrame())
}

func TestEndFrameWithoutActiveFrameIsNoop(t *testing.T) {
	drv := newFakeDriver(3)
	r := newTestRenderer(t, drv)

	ends := drv.passEnds
	require.NoError(t, r.EndFrame())
	assert.Equal(t, ends, drv.passEnds)
}

func TestSetTargetSameTargetIsNoop(t *testing.T) {
	drv := newFakeDriver(3)
	r := newTestRenderer(t, drv)

	tex, err := r.CreateTexture(128, 128)
	require.NoError(t, err)

	require.NoError(t, r.StartFrame(gpu.ClearValue{}))

	begins, ends := drv.passBegins, drv.passEnds
	r.SetTarget(TextureTarget(tex))
	assert.Equal(t, begins+1, drv.passBegins, "switch must begin exactly one pass")
	assert.Equal(t, ends+1, drv.passEnds, "switch must end exactly one pass")

	begins, ends = drv.passBegins, drv.passEnds
	transitions := drv.transitions
	r.SetTarget(TextureTarget(tex))
	assert.Equal(t, begins, drv.passBegins, "same-target switch must be a no-op")
	assert.Equal(t, ends, drv.passEnds)
	assert.Equal(t, transitions, drv.transitions)

	require.NoError(t, r.EndFrame())
}

func TestSetTargetDistinctTexturesSameSizeIsRealSwitch(t *testing.T) {
	drv := newFakeDriver(3)
	r := newTestRenderer(t, drv)

	a, err := r.CreateTexture(64, 64)
	require.NoError(t, err)
	b, err := r.CreateTexture(64, 64)
	require.NoError(t, err)

	require.NoError(t, r.StartFrame(gpu.ClearValue{}))
	r.SetTarget(TextureTarget(a))

	begins := drv.passBegins
	r.SetTarget(TextureTarget(b))
	assert.Equal(t, begins+1, drv.passBegins, "identical dimensions do not make targets equal")

	require.NoError(t, r.EndFrame())
}

func TestFrameCyclesRespectImageFences(t *testing.T) {
	drv := newFakeDriver(3)
	r := newTestRenderer(t, drv)

	for i := 0; i < 5; i++ {
		require.NoError(t, r.StartFrame(gpu.ClearValue{}))
		require.NoError(t, r.EndFrame())
	}

	require.Len(t, drv.acquired, 5)
	seen := map[uint32]bool{}
	for _, idx := range drv.acquired {
		seen[idx] = true
	}
	assert.Len(t, seen, 3, "five frames over three images must revisit each image")
	assert.False(t, drv.reusedBusyImage, "an image was rewritten while its prior user's fence was unsignaled")
}

func TestSetConfigIsStagedUntilFrameBoundary(t *testing.T) {
	drv := newFakeDriver(3)
	r := newTestRenderer(t, drv)

	require.NoError(t, r.StartFrame(gpu.ClearValue{}))

	cfg := r.Config()
	cfg.MSAA = gpu.MSAA4x
	r.SetConfig(cfg)
	assert.Equal(t, gpu.MSAA1x, r.Config().MSAA, "change must not apply mid-frame")

	drv.width, drv.height = 1024, 768
	require.NoError(t, r.EndFrame())
	assert.Equal(t, gpu.MSAA4x, r.Config().MSAA, "change must apply at the frame boundary")

	w, h := r.SurfaceSize()
	assert.Equal(t, uint32(1024), w)
	assert.Equal(t, uint32(768), h)
}

func TestRebuildPreservesCustomPipelineBytecode(t *testing.T) {
	drv := newFakeDriver(3)
	r := newTestRenderer(t, drv)

	vert := []byte{1, 2, 3, 4}
	frag := []byte{5, 6, 7, 8}
	p, err := r.CreatePipeline(PipelineSpec{Vert: vert, Frag: frag, Input: gpu.VertexInputTexture, Fill: true})
	require.NoError(t, err)
	oldHandle := p.handles[gpu.BlendModeBlend]

	r.ResetSwapchain()
	require.NoError(t, r.StartFrame(gpu.ClearValue{}))
	require.NoError(t, r.EndFrame())

	require.NotZero(t, p.handles[gpu.BlendModeBlend])
	assert.NotEqual(t, oldHandle, p.handles[gpu.BlendModeBlend], "rebuild must produce a new pipeline object")

	for mode := gpu.BlendMode(0); mode < gpu.BlendModeCount; mode++ {
		opts, ok := drv.pipelines[p.handles[mode]]
		require.True(t, ok, "mode %d variant missing after rebuild", mode)
		assert.Equal(t, vert, opts.VertSPIRV, "rebuilt pipeline must reuse the exact bytecode")
		assert.Equal(t, frag, opts.FragSPIRV)
		assert.Equal(t, mode, opts.Blend)
	}
}

func TestPresentOutOfDateTriggersRebuild(t *testing.T) {
	drv := newFakeDriver(3)
	r := newTestRenderer(t, drv)

	require.NoError(t, r.StartFrame(gpu.ClearValue{}))
	drv.presentResult = gpu.ErrOutOfDate
	drv.width, drv.height = 640, 480
	require.NoError(t, r.EndFrame())

	w, h := r.SurfaceSize()
	assert.Equal(t, uint32(640), w)
	assert.Equal(t, uint32(480), h)
}

func TestSetBlendModeSelectsPipelineVariant(t *testing.T) {
	drv := newFakeDriver(3)
	r := newTestRenderer(t, drv)

	require.NoError(t, r.StartFrame(gpu.ClearValue{}))

	r.DrawRectangle(0, 0, 10, 10, 0, 0, 0)
	require.NotEmpty(t, drv.boundPipes)
	last := drv.boundPipes[len(drv.boundPipes)-1]
	assert.Equal(t, gpu.BlendModeBlend, drv.pipelines[last].Blend)

	binds := len(drv.boundPipes)
	r.DrawRectangle(0, 0, 10, 10, 0, 0, 0)
	assert.Equal(t, binds, len(drv.boundPipes), "same pipeline and mode must not rebind")

	r.SetBlendMode(gpu.BlendModeAdd)
	r.DrawRectangle(0, 0, 10, 10, 0, 0, 0)
	require.Greater(t, len(drv.boundPipes), binds, "mode change must rebind")
	last = drv.boundPipes[len(drv.boundPipes)-1]
	assert.Equal(t, gpu.BlendModeAdd, drv.pipelines[last].Blend)

	r.SetBlendMode(gpu.BlendMode(99))
	assert.Equal(t, gpu.BlendModeAdd, r.BlendMode(), "unknown mode must be rejected")

	require.NoError(t, r.EndFrame())
}

func TestRebuildFreesCommandBuffers(t *testing.T) {
	drv := newFakeDriver(3)
	r := newTestRenderer(t, drv)

	for i := 0; i < 4; i++ {
		r.ResetSwapchain()
		require.NoError(t, r.StartFrame(gpu.ClearValue{}))
		require.NoError(t, r.EndFrame())
	}

	assert.Equal(t, 3, drv.cbAllocs-drv.cbFrees, "rebuilds must free the old per-image command buffers")
}

func TestRebuildWaitsForQueueIdle(t *testing.T) {
	drv := newFakeDriver(3)
	r := newTestRenderer(t, drv)

	waits := drv.queueWaitIdles
	r.ResetSwapchain()
	require.NoError(t, r.StartFrame(gpu.ClearValue{}))
	require.NoError(t, r.EndFrame())
	assert.Greater(t, drv.queueWaitIdles, waits, "rebuild must drain the queue before tearing down")
}

func TestDrawOutsideFrameIsIgnored(t *testing.T) {
	drv := newFakeDriver(3)
	r := newTestRenderer(t, drv)

	// Must log and return, not panic or record commands.
	r.DrawRectangle(0, 0, 10, 10, 0, 0, 0)
	r.DrawCircle(5, 5, 2)
	assert.Zero(t, drv.passBegins)
}
