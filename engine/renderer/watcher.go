package renderer

import (
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/vivid-engine/vivid/engine/core"
)

// ShaderWatcher watches a shader directory for recompiled SPIR-V and
// flags the change. The watching goroutine only sets an atomic flag; the
// renderer goroutine polls Dirty at frame boundaries and performs the
// actual reload, so pipeline recreation never races command recording.
type ShaderWatcher struct {
	fsnotify *fsnotify.Watcher
	done     chan struct{}
	dirty    atomic.Bool
}

// NewShaderWatcher starts watching the given directory for .spv changes.
func NewShaderWatcher(dir string) (*ShaderWatcher, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsWatch.Add(dir); err != nil {
		fsWatch.Close()
		return nil, err
	}

	w := &ShaderWatcher{
		fsnotify: fsWatch,
		done:     make(chan struct{}),
	}
	go w.start()
	core.LogDebug("watching %s for shader changes", dir)
	return w, nil
}

func (w *ShaderWatcher) start() {
	for {
		select {
		case e := <-w.fsnotify.Events:
			if e.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if filepath.Ext(e.Name) != ".spv" {
				continue
			}
			core.LogInfo("shader %s changed", filepath.Base(e.Name))
			w.dirty.Store(true)

		case e := <-w.fsnotify.Errors:
			core.LogError(e.Error())

		case <-w.done:
			w.fsnotify.Close()
			return
		}
	}
}

// Dirty reports whether a shader changed since the last call, consuming
// the flag.
func (w *ShaderWatcher) Dirty() bool {
	return w.dirty.Swap(false)
}

// Close stops the watcher.
func (w *ShaderWatcher) Close() {
	close(w.done)
}

// ReloadShaders re-reads the built-in shader bytecode from the shader
// directory and requests a swapchain rebuild so the pipelines are
// recreated from the new bytes at the next frame boundary. Custom
// pipeline specs are caller-owned byte buffers and are left untouched.
func (r *Renderer) ReloadShaders() error {
	if r == nil || r.sc == nil {
		core.LogError("ReloadShaders called on an uninitialized renderer")
		return errNotInitialized
	}

	dir := r.config.ShaderDir
	files := []struct {
		name string
		dst  *[]byte
	}{
		{texVertShader, &r.texPipe.spec.Vert},
		{texFragShader, &r.texPipe.spec.Frag},
		{shapeVertShader, &r.fillPipe.spec.Vert},
		{shapeFragShader, &r.fillPipe.spec.Frag},
	}
	for _, f := range files {
		data, err := loadShader(dir, f.name)
		if err != nil {
			return err
		}
		*f.dst = data
	}
	// The line pipeline shares the shape shaders.
	r.linePipe.spec.Vert = r.fillPipe.spec.Vert
	r.linePipe.spec.Frag = r.fillPipe.spec.Frag

	r.ResetSwapchain()
	return nil
}
