// Package config handles the daemon's process bootstrap configuration: log
// level, config store path, metrics listen address. This is distinct from
// internal/configstore, which persists the domain documents (Profiles,
// Functions, Modes, Alerts, per-device settings) the core operates on.
package config

import "time"

// Config is the daemon's process-level bootstrap configuration.
type Config struct {
	LogLevel       string        `yaml:"log_level" env:"COOLERCONTROLD_LOG_LEVEL"`
	LogPretty      bool          `yaml:"log_pretty" env:"COOLERCONTROLD_LOG_PRETTY"`
	ConfigStorePath string       `yaml:"config_store_path" env:"COOLERCONTROLD_CONFIG_PATH"`
	MetricsAddr    string        `yaml:"metrics_addr" env:"COOLERCONTROLD_METRICS_ADDR"`
	TickInterval   time.Duration `yaml:"tick_interval" env:"COOLERCONTROLD_TICK_INTERVAL"`
}

// Default returns the hardcoded baseline configuration (layer 1 of 3).
func Default() *Config {
	return &Config{
		LogLevel:        "info",
		LogPretty:       false,
		ConfigStorePath: "/etc/coolercontrol/config.yaml",
		MetricsAddr:     ":11988",
		TickInterval:    time.Second,
	}
}
