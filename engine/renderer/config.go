package renderer

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/vivid-engine/vivid/engine/gpu"
)

// Config is the presentation configuration. Changing it on a live renderer
// is staged and applied at the next swapchain rebuild boundary, never
// mid-frame.
type Config struct {
	PresentMode gpu.PresentMode
	MSAA        gpu.MSAA
	Filter      gpu.Filter
	// ShaderDir holds the compiled SPIR-V for the built-in pipelines
	// (tex.vert.spv, tex.frag.spv, shapes.vert.spv, shapes.frag.spv).
	ShaderDir string
}

func DefaultConfig() Config {
	return Config{
		PresentMode: gpu.PresentModeFifo,
		MSAA:        gpu.MSAA1x,
		Filter:      gpu.FilterLinear,
		ShaderDir:   "shaders",
	}
}

type fileConfig struct {
	PresentMode string `toml:"present_mode"`
	MSAA        uint32 `toml:"msaa"`
	Filter      string `toml:"filter"`
	ShaderDir   string `toml:"shader_dir"`
}

// LoadConfig reads a TOML configuration file. Missing keys keep their
// defaults; an unreadable file is an error.
func LoadConfig(path string) (Config, error) {
	out := DefaultConfig()

	raw, err := os.ReadFile(path)
	if err != nil {
		return out, err
	}

	var fc fileConfig
	if err := toml.Unmarshal(raw, &fc); err != nil {
		return out, fmt.Errorf("parse %s: %w", path, err)
	}

	switch fc.PresentMode {
	case "", "fifo":
	case "mailbox":
		out.PresentMode = gpu.PresentModeMailbox
	case "immediate":
		out.PresentMode = gpu.PresentModeImmediate
	default:
		return out, fmt.Errorf("unknown present_mode %q", fc.PresentMode)
	}

	switch fc.MSAA {
	case 0:
	case 1, 2, 4, 8, 16, 32:
		out.MSAA = gpu.MSAA(fc.MSAA)
	default:
		return out, fmt.Errorf("msaa must be a power of two sample count, got %d", fc.MSAA)
	}

	switch fc.Filter {
	case "", "linear":
	case "nearest":
		out.Filter = gpu.FilterNearest
	default:
		return out, fmt.Errorf("unknown filter %q", fc.Filter)
	}

	if fc.ShaderDir != "" {
		out.ShaderDir = fc.ShaderDir
	}
	return out, nil
}
