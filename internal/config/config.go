package config

import (
	"time"

	"github.com/replykit/replykit/internal/ailink/driver/gemini"
)

// Config is the complete replykit configuration. Values come from viper
// defaults, the config file and REPLYKIT_* environment variables, in
// increasing precedence.
type Config struct {
	Gemini  GeminiConfig  `mapstructure:"gemini" yaml:"gemini"`
	Store   StoreConfig   `mapstructure:"store" yaml:"store"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
	Health  HealthConfig  `mapstructure:"health" yaml:"health"`
	Debug   DebugConfig   `mapstructure:"debug" yaml:"debug"`
}

// GeminiConfig configures the generateContent client and its retry schedule.
type GeminiConfig struct {
	// APIKey is sent as the `key` query parameter. Never logged.
	APIKey  string        `mapstructure:"api_key" yaml:"api_key"`
	BaseURL string        `mapstructure:"base_url" yaml:"base_url"`
	Model   string        `mapstructure:"model" yaml:"model"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`

	// MinInterval is the spacing between the end of one request and the
	// start of the next.
	MinInterval time.Duration `mapstructure:"min_interval" yaml:"min_interval"`
	MaxRetries  int           `mapstructure:"max_retries" yaml:"max_retries"`
	// RateLimitBase drives the 429 delay: RateLimitBase^(attempt+2) seconds.
	RateLimitBase float64       `mapstructure:"rate_limit_base" yaml:"rate_limit_base"`
	RetryDelay    time.Duration `mapstructure:"retry_delay" yaml:"retry_delay"`

	Generation      gemini.GenerationConfig `mapstructure:"generation" yaml:"generation"`
	SafetyThreshold string                  `mapstructure:"safety_threshold" yaml:"safety_threshold"`
}

// StoreConfig contains database configuration for libsql/Turso
type StoreConfig struct {
	// Enabled persists throttle state and reply metadata between runs.
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	Driver    string `mapstructure:"driver" yaml:"driver"`
	Path      string `mapstructure:"path" yaml:"path"`
	URL       string `mapstructure:"url" yaml:"url"`
	AuthToken string `mapstructure:"auth_token" yaml:"auth_token"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	// Level controls the minimum log level
	// Valid values: trace, debug, info, warn, error
	Level string `mapstructure:"level" yaml:"level"`

	// Profile selects the logging complexity level (SIMPLE, STRUCTURED)
	Profile string `mapstructure:"profile" yaml:"profile"`
}

// MetricsConfig contains Prometheus metrics configuration
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	Port    int  `mapstructure:"port" yaml:"port"`
}

// HealthConfig contains health check configuration
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// DebugConfig contains debug configuration
type DebugConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// TraceFile receives NDJSON request/response traces when set.
	TraceFile string `mapstructure:"trace_file" yaml:"trace_file"`
}

const redacted = "REDACTED"

// Redacted returns a copy safe to print: credentials are replaced.
func (c Config) Redacted() Config {
	out := c
	if out.Gemini.APIKey != "" {
		out.Gemini.APIKey = redacted
	}
	if out.Store.AuthToken != "" {
		out.Store.AuthToken = redacted
	}
	out.Gemini.Generation.StopSequences = append([]string{}, c.Gemini.Generation.StopSequences...)
	return out
}
