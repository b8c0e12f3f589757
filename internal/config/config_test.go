package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/clintro/internal/cl"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clintro.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, float32(5), cfg.A)
	assert.Equal(t, float32(10), cfg.B)
	assert.Equal(t, cl.DeviceTypeGPU, cfg.Kind())
	assert.Zero(t, cfg.PlatformIndex)
	assert.Zero(t, cfg.DeviceIndex)
	assert.Equal(t, FormatText, cfg.Format)
	require.NoError(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
platform_index: 1
device_type: cpu
a: 1.5
build_options: "-cl-fast-relaxed-math"
format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.PlatformIndex)
	assert.Equal(t, cl.DeviceTypeCPU, cfg.Kind())
	assert.Equal(t, float32(1.5), cfg.A)
	assert.Equal(t, float32(10), cfg.B, "unset keys keep their defaults")
	assert.Equal(t, "-cl-fast-relaxed-math", cfg.BuildOptions)
	assert.Equal(t, FormatJSON, cfg.Format)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad yaml", "a: [1, 2"},
		{"negative platform", "platform_index: -1"},
		{"negative device", "device_index: -3"},
		{"unknown device type", "device_type: tpu"},
		{"unknown format", "format: xml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
