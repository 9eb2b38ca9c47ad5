package config

import (
	"os"
	"strconv"
	"time"
)

const (
	DefaultPort        = 8000
	DefaultMetricsPort = 9090
	DefaultRoot        = "."
	DefaultBranch      = "main"
)

// EnvPort overrides the preview port when set (useful for containers).
const EnvPort = "MIRAGE_PORT"

func applyDefaults(cfg *Config) error {
	if cfg.Root == "" {
		cfg.Root = DefaultRoot
	}
	if v := os.Getenv(EnvPort); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Port = p
		}
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Metrics.Enabled && cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = DefaultMetricsPort
	}
	if cfg.Deploy.Service == "git" && cfg.Deploy.Branch == "" {
		cfg.Deploy.Branch = DefaultBranch
	}
	return nil
}

// RebuildInterval returns the parsed periodic rebuild interval (zero when disabled).
func (c *Config) RebuildInterval() time.Duration {
	if c == nil || c.Watch.RebuildInterval == "" {
		return 0
	}
	d, err := time.ParseDuration(c.Watch.RebuildInterval)
	if err != nil {
		return 0
	}
	return d
}
