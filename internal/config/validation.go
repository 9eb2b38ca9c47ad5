package config

import (
	"fmt"
	"slices"
	"time"

	ferrors "git.home.luguber.info/inful/mirage/internal/foundation/errors"
)

// DeployServices lists the supported deploy providers.
var DeployServices = []string{"nats", "git", "filesystem"}

// RetryBackoffModes lists the accepted deploy.retry-backoff values.
var RetryBackoffModes = []string{"fixed", "linear", "exponential"}

// Validate checks value ranges. Deploy settings are only checked by ValidateDeploy
// so that compile and watch work without deploy configuration.
func Validate(cfg *Config) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return invalid("port", fmt.Sprintf("port out of range: %d", cfg.Port))
	}
	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535 {
			return invalid("metrics.port", fmt.Sprintf("metrics port out of range: %d", cfg.Metrics.Port))
		}
		if cfg.Metrics.Port == cfg.Port {
			return invalid("metrics.port", "metrics port must differ from preview port")
		}
	}
	if cfg.Watch.RebuildInterval != "" {
		d, err := time.ParseDuration(cfg.Watch.RebuildInterval)
		if err != nil {
			return invalid("watch.rebuild-interval", fmt.Sprintf("invalid duration %q", cfg.Watch.RebuildInterval))
		}
		if d < time.Second {
			return invalid("watch.rebuild-interval", "rebuild interval must be at least 1s")
		}
	}
	return nil
}

// ValidateDeploy checks that the deploy section names a known provider and a target.
func ValidateDeploy(cfg *Config) error {
	d := cfg.Deploy
	if d.Service == "" {
		return ferrors.ConfigError("you must specify a service to deploy to in config.yml").
			WithContext("field", "deploy.service").
			Build()
	}
	if !slices.Contains(DeployServices, d.Service) {
		return ferrors.ConfigError(fmt.Sprintf("unknown deploy service %q", d.Service)).
			WithContext("field", "deploy.service").
			WithContext("available", DeployServices).
			Build()
	}
	if d.ContainerName == "" {
		return invalid("deploy.container-name", "deploy container-name is required")
	}
	if d.Service == "nats" && d.URL == "" {
		return invalid("deploy.url", "deploy url is required for the nats service")
	}
	if d.Retries != nil && *d.Retries < 0 {
		return invalid("deploy.retries", "deploy retries cannot be negative")
	}
	if d.RetryBackoff != "" && !slices.Contains(RetryBackoffModes, d.RetryBackoff) {
		return invalid("deploy.retry-backoff", fmt.Sprintf("unknown retry backoff %q", d.RetryBackoff))
	}
	return nil
}

func invalid(field, msg string) error {
	return ferrors.ValidationError(msg).WithContext("field", field).Build()
}
