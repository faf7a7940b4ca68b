package renderer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vivid-engine/vivid/engine/gpu"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vivid.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfigFile(t, `
present_mode = "mailbox"
msaa = 4
filter = "nearest"
shader_dir = "assets/shaders"
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, gpu.PresentModeMailbox, cfg.PresentMode)
	assert.Equal(t, gpu.MSAA4x, cfg.MSAA)
	assert.Equal(t, gpu.FilterNearest, cfg.Filter)
	assert.Equal(t, "assets/shaders", cfg.ShaderDir)
}

func TestLoadConfigMissingKeysKeepDefaults(t *testing.T) {
	path := writeConfigFile(t, `msaa = 8`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, gpu.PresentModeFifo, cfg.PresentMode)
	assert.Equal(t, gpu.MSAA8x, cfg.MSAA)
	assert.Equal(t, gpu.FilterLinear, cfg.Filter)
	assert.Equal(t, "shaders", cfg.ShaderDir)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	for _, content := range []string{
		`present_mode = "vsync"`,
		`msaa = 3`,
		`filter = "cubic"`,
	} {
		_, err := LoadConfig(writeConfigFile(t, content))
		assert.Error(t, err, content)
	}
}

func TestClampConfig(t *testing.T) {
	drv := newFakeDriver(3)

	cfg := clampConfig(drv, Config{MSAA: gpu.MSAA32x, PresentMode: gpu.PresentModeMailbox})
	assert.Equal(t, gpu.MSAA8x, cfg.MSAA, "clamped to the device maximum")
	assert.Equal(t, gpu.PresentModeMailbox, cfg.PresentMode)
	assert.Equal(t, "shaders", cfg.ShaderDir)
}
