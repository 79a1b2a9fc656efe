package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Layer identifies a configuration source in the load order.
type Layer string

const (
	LayerDefaults Layer = "defaults"
	LayerFile     Layer = "file"
	LayerEnv      Layer = "env"
)

// LayeredLoader resolves Config through defaults -> file -> env, each layer
// overriding the previous, following the teacher's internal/config.LayeredLoader.
type LayeredLoader struct {
	enabled map[Layer]bool
}

// NewLayeredLoader builds a loader with every layer enabled.
func NewLayeredLoader() *LayeredLoader {
	return &LayeredLoader{enabled: map[Layer]bool{LayerDefaults: true, LayerFile: true, LayerEnv: true}}
}

// DisableLayer turns off one layer, useful in tests that want to isolate a
// single source.
func (l *LayeredLoader) DisableLayer(layer Layer) { l.enabled[layer] = false }

// Load resolves the bootstrap Config from the given file path (may be
// empty or not-yet-exist) and the process environment.
func (l *LayeredLoader) Load(configPath string) (*Config, error) {
	var cfg *Config
	if l.enabled[LayerDefaults] {
		cfg = Default()
	} else {
		cfg = &Config{}
	}

	if l.enabled[LayerFile] && configPath != "" {
		if err := l.mergeFromFile(cfg, configPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if l.enabled[LayerEnv] {
		if err := LoadFromEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from environment: %w", err)
		}
	}

	return cfg, nil
}

func (l *LayeredLoader) mergeFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}
