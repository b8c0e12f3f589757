package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cwbudde/clintro/internal/cl"
)

const (
	DefaultA          = 5.0
	DefaultB          = 10.0
	DefaultDeviceType = "gpu"
	DefaultFormat     = FormatText
)

// Output formats understood by the run and devices commands.
const (
	FormatText = "text"
	FormatJSON = "json"
)

type Config struct {
	PlatformIndex int     `yaml:"platform_index"`
	DeviceIndex   int     `yaml:"device_index"`
	DeviceType    string  `yaml:"device_type"`
	A             float32 `yaml:"a"`
	B             float32 `yaml:"b"`
	BuildOptions  string  `yaml:"build_options"`
	Format        string  `yaml:"format"`
}

func DefaultConfig() *Config {
	return &Config{
		DeviceType: DefaultDeviceType,
		A:          DefaultA,
		B:          DefaultB,
		Format:     DefaultFormat,
	}
}

// Load reads a YAML file on top of the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.PlatformIndex < 0 {
		return fmt.Errorf("platform_index must be >= 0, got %d", c.PlatformIndex)
	}
	if c.DeviceIndex < 0 {
		return fmt.Errorf("device_index must be >= 0, got %d", c.DeviceIndex)
	}
	if cl.ParseDeviceType(c.DeviceType) == cl.DeviceTypeUnknown {
		return fmt.Errorf("unknown device_type %q", c.DeviceType)
	}
	switch c.Format {
	case FormatText, FormatJSON:
	default:
		return fmt.Errorf("unknown format %q", c.Format)
	}
	return nil
}

// Kind returns the parsed device type.
func (c *Config) Kind() cl.DeviceType {
	return cl.ParseDeviceType(c.DeviceType)
}
