package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Resolver ResolverConfig `yaml:"resolver" envconfig:"RESOLVER"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int             `yaml:"port" envconfig:"PORT" default:"8080" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration   `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration   `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"15s"`
	IdleTimeout     time.Duration   `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	RateLimit       RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"false"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"100"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"50"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/resolverd.log"`
}

// ResolverConfig contains handler resolution configuration
type ResolverConfig struct {
	// ScriptRoot is the root assumed when a handler is registered with a
	// relative resource type. Either a path starting with "/" or a search
	// path index; -1 always points at the last search path entry.
	ScriptRoot string `yaml:"script_root" envconfig:"SCRIPT_ROOT" default:"0"`

	// CacheSize configures the resolution cache. A value lower than
	// MinCacheSize disables caching entirely.
	CacheSize int `yaml:"cache_size" envconfig:"CACHE_SIZE" default:"200" validate:"min=0"`

	// ExecutionPaths limits where executable scripts may live. An entry
	// ending with a slash allows the whole subtree, otherwise only the
	// exact path. Empty, or any entry equal to "/", allows everything.
	ExecutionPaths []string `yaml:"execution_paths" envconfig:"EXECUTION_PATHS" default:"/"`

	// DefaultExtensions lists the request extensions for which the last
	// segment of the resource type may be used as the script name.
	DefaultExtensions []string `yaml:"default_extensions" envconfig:"DEFAULT_EXTENSIONS" default:"html"`

	// SearchPaths are the namespace locations searched for scripts, in
	// order of preference.
	SearchPaths []string `yaml:"search_paths" envconfig:"SEARCH_PATHS" default:"/apps,/libs" validate:"min=1,dive,startswith=/"`
}

// MinCacheSize is the threshold below which resolution caching is disabled.
const MinCacheSize = 5

// Load loads configuration from environment variables and an optional
// YAML config file. Environment variables win over file values.
func Load() (*Config, error) {
	var cfg Config

	configFile := configFilePath()
	if _, err := os.Stat(configFile); err == nil {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// Environment variables override file values and fill defaults.
	if err := envconfig.Process("RESOLVERD", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return err
	}
	for _, p := range c.Resolver.ExecutionPaths {
		if p != "" && !strings.HasPrefix(p, "/") {
			return fmt.Errorf("execution path %q must be absolute", p)
		}
	}
	return nil
}

func configFilePath() string {
	if path := os.Getenv("RESOLVERD_CONFIG"); path != "" {
		return path
	}
	return "config.yaml"
}
