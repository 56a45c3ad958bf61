package config

import (
	"os"
	"regexp"
	"time"

	"github.com/gloamlab/gloam/pkg/helper"
	"github.com/gloamlab/gloam/pkg/trace"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type (
	// GloamdConfig represents the gloamd service configuration
	GloamdConfig struct {
		Port    int           `yaml:"port"`
		PID     string        `yaml:"pid"`
		Logger  LoggerConfig  `yaml:"logger"`
		Metrics MetricsConfig `yaml:"metrics"`
		Tracing trace.Config  `yaml:"tracing"`
		API     APIConfig     `yaml:"api"`
		Engine  EngineConfig  `yaml:"engine"`
		World   WorldConfig   `yaml:"world"`
	}

	// LoggerConfig represents the logger configuration
	LoggerConfig struct {
		Level      string `yaml:"level"`       // debug, info, warn, error
		Format     string `yaml:"format"`      // json, console
		Output     string `yaml:"output"`      // stdout, file
		FilePath   string `yaml:"file_path"`   // path to log file when output is file
		MaxSize    int    `yaml:"max_size"`    // max size of log file in MB
		MaxBackups int    `yaml:"max_backups"` // max number of backup files
		MaxAge     int    `yaml:"max_age"`     // max age of backup files in days
		Compress   bool   `yaml:"compress"`    // whether to compress backup files
		Color      bool   `yaml:"color"`       // whether to use color in console output
		Stacktrace bool   `yaml:"stacktrace"`  // whether to include stacktrace in error logs
		TimeZone   string `yaml:"time_zone"`   // time zone for log timestamps, e.g., "UTC", default is local
		TimeFormat string `yaml:"time_format"` // time format for log timestamps, default is "2006-01-02 15:04:05"
	}

	// MetricsConfig represents the Prometheus metrics configuration
	MetricsConfig struct {
		Enabled   bool      `yaml:"enabled"`
		Namespace string    `yaml:"namespace"`
		Path      string    `yaml:"path"`
		Buckets   []float64 `yaml:"buckets"`
	}

	// APIConfig represents the HTTP API authentication configuration
	APIConfig struct {
		// KeysJSON is a JSON object mapping api key to client name.
		// When empty, all authenticated endpoints refuse requests.
		KeysJSON  string          `yaml:"keys_json"`
		RateLimit RateLimitConfig `yaml:"rate_limit"`
	}

	// RateLimitConfig represents the per-client rate limit configuration
	RateLimitConfig struct {
		MaxAttempts int           `yaml:"max_attempts"`
		Window      time.Duration `yaml:"window"`
	}
)

// LoadConfig loads configuration from a YAML file with environment variable support
func LoadConfig(filename string) (*GloamdConfig, string, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	cfgPath := helper.GetCfgPath(filename)
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		return nil, cfgPath, err
	}

	// Resolve environment variables
	data = resolveEnv(data)
	var cfg GloamdConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, cfgPath, err
	}

	cfg.setDefaults()

	return &cfg, cfgPath, nil
}

// setDefaults fills zero-valued fields after unmarshalling.
func (c *GloamdConfig) setDefaults() {
	if c.Port == 0 {
		c.Port = 5353
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "gloam"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.API.RateLimit.MaxAttempts == 0 {
		c.API.RateLimit.MaxAttempts = 10
	}
	if c.API.RateLimit.Window <= 0 {
		c.API.RateLimit.Window = 60 * time.Second
	}
	c.Engine.setDefaults()
	c.World.setDefaults()
}

// resolveEnv replaces environment variable placeholders in YAML content
func resolveEnv(content []byte) []byte {
	regex := regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

	return regex.ReplaceAllFunc(content, func(match []byte) []byte {
		matches := regex.FindSubmatch(match)
		envKey := string(matches[1])
		var defaultValue string

		if len(matches) > 2 {
			defaultValue = string(matches[2])
		}

		if value, exists := os.LookupEnv(envKey); exists {
			return []byte(value)
		}
		return []byte(defaultValue)
	})
}
