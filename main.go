/*
This is an example of application that will use the
renderer package to test things out
*/
package main

import (
	"os"

	"github.com/vivid-engine/vivid/engine/core"
	"github.com/vivid-engine/vivid/engine/gpu"
	"github.com/vivid-engine/vivid/engine/gpu/vulkan"
	"github.com/vivid-engine/vivid/engine/platform"
	"github.com/vivid-engine/vivid/engine/renderer"
)

const configFile = "vivid.toml"

func main() {
	cfg := renderer.DefaultConfig()
	if _, err := os.Stat(configFile); err == nil {
		loaded, err := renderer.LoadConfig(configFile)
		if err != nil {
			core.LogFatal("bad config: %s", err)
		}
		cfg = loaded
	}

	p, err := platform.New()
	if err != nil {
		core.LogFatal("platform init failed: %s", err)
	}
	if err := p.Startup("Vivid Demo", 100, 100, 1280, 720); err != nil {
		os.Exit(1)
	}
	defer p.Shutdown()

	drv, err := vulkan.New(p.Window, vulkan.Options{
		AppName: "Vivid Demo",
		Debug:   os.Getenv("VIVID_DEBUG") != "",
	})
	if err != nil {
		core.LogFatal("driver init failed: %s", err)
	}
	defer drv.Destroy()

	r, err := renderer.NewRenderer(drv, p, cfg)
	if err != nil {
		core.LogFatal("renderer init failed: %s", err)
	}
	defer r.Quit()

	watcher, err := renderer.NewShaderWatcher(cfg.ShaderDir)
	if err != nil {
		core.LogWarn("shader watcher disabled: %s", err)
	} else {
		defer watcher.Close()
	}

	canvas, err := r.CreateTexture(256, 256)
	if err != nil {
		core.LogFatal("canvas creation failed: %s", err)
	}

	var angle float32
	for !p.ShouldClose() {
		p.PollEvents()

		if watcher != nil && watcher.Dirty() {
			if err := r.ReloadShaders(); err != nil {
				core.LogWarn("shader reload failed: %s", err)
			}
		}

		if err := r.StartFrame(gpu.ClearValue{R: 0.05, G: 0.05, B: 0.08, A: 1}); err != nil {
			core.LogError("start frame: %s", err)
			break
		}

		// Paint a spinning rectangle into the off-screen canvas, then
		// stamp the canvas onto the screen alongside some shapes.
		r.SetTarget(renderer.TextureTarget(canvas))
		r.SetColourMod(0.9, 0.4, 0.2, 1)
		r.DrawRectangle(128, 128, 120, 80, angle, 60, 40)
		r.SetColourMod(1, 1, 1, 1)
		r.SetTarget(renderer.Screen())

		r.DrawTexture(canvas, 80, 80, 1, 1, 0, 0, 0)
		r.DrawCircle(600, 300, 90)
		r.DrawCircleOutline(600, 300, 120, 2)
		r.DrawLine(0, 0, 1280, 720, 1)
		r.DrawRectangleOutline(400, 500, 200, 120, -angle, 100, 60, 3)

		if err := r.EndFrame(); err != nil {
			core.LogError("end frame: %s", err)
			break
		}
		angle += 0.01
	}

	core.LogInfo("average frame time: %.2fms", r.AverageFrameTime())
}
