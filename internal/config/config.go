package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/mirage/internal/foundation/errors"
)

// DefaultFile is the configuration file read when no --config flag is given.
const DefaultFile = "config.yml"

// Config is the project configuration loaded from config.yml.
type Config struct {
	BlogTitle    string        `yaml:"blog-title"`
	BlogSubtitle string        `yaml:"blog-subtitle"`
	Port         int           `yaml:"port"`
	Root         string        `yaml:"root,omitempty"`
	Deploy       DeployConfig  `yaml:"deploy"`
	Watch        WatchConfig   `yaml:"watch,omitempty"`
	Metrics      MetricsConfig `yaml:"metrics,omitempty"`
	History      HistoryConfig `yaml:"history,omitempty"`
}

// DeployConfig selects and configures the deploy provider.
type DeployConfig struct {
	Service       string `yaml:"service"`        // nats | git | filesystem
	AccessKey     string `yaml:"access-key"`     // user name / token owner
	SecretKey     string `yaml:"secret-key"`     // password / token
	ContainerName string `yaml:"container-name"` // bucket, repository dir or target dir
	URL           string `yaml:"url,omitempty"`  // NATS server URL
	Branch        string `yaml:"branch,omitempty"`
	Remote        string `yaml:"remote,omitempty"`
	// Retries bounds re-uploads of a failed file (default 2).
	Retries      *int   `yaml:"retries,omitempty"`
	RetryBackoff string `yaml:"retry-backoff,omitempty"` // fixed | linear | exponential
}

// WatchConfig controls watch mode.
type WatchConfig struct {
	// RebuildInterval schedules an additional periodic full rebuild (e.g. "10m"). Empty disables it.
	RebuildInterval string `yaml:"rebuild-interval,omitempty"`
}

// MetricsConfig enables the Prometheus endpoint in watch mode.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port,omitempty"`
}

// HistoryConfig points at the optional SQLite build journal.
type HistoryConfig struct {
	Path string `yaml:"path,omitempty"`
}

// Load reads configPath, expands ${ENV} references, applies defaults and validates.
// A .env file next to the working directory is loaded first when present.
func Load(configPath string) (*Config, error) {
	loadEnvFile()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ferrors.ConfigError(fmt.Sprintf("configuration file not found: %s", configPath)).
				WithContext("path", configPath).
				WithContext("hint", "run `mirage setup` to create one").
				Build()
		}
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to read config file").
			WithContext("path", configPath).
			Fatal().
			Build()
	}

	return Parse(data)
}

// Parse decodes configuration bytes, applying env expansion, defaults and validation.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to unmarshal config").
			Fatal().
			Build()
	}
	if err := applyDefaults(&cfg); err != nil {
		return nil, err
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a configuration with only defaults applied.
// Used when compiling a project that has no config.yml yet.
func Default() *Config {
	cfg := &Config{}
	_ = applyDefaults(cfg)
	return cfg
}
