// Package config loads replykit configuration from viper (defaults, config
// file, environment) into a typed Config.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/replykit/replykit/internal/ailink/driver/gemini"
	"github.com/replykit/replykit/internal/appid"
)

// FallbackAPIKeyEnv is read when gemini.api_key is not configured.
const FallbackAPIKeyEnv = "GEMINI_API_KEY"

var (
	// ErrMissingAPIKey is returned when no Gemini API key is configured.
	ErrMissingAPIKey = errors.New("gemini api key is not configured (set gemini.api_key, REPLYKIT_GEMINI_API_KEY or GEMINI_API_KEY)")

	// ErrInvalidConfig wraps range and value errors found by Validate.
	ErrInvalidConfig = errors.New("invalid configuration")
)

var (
	appConfig *Config
	configMu  sync.RWMutex
)

// SetDefaults registers a default for every known key, so that viper's
// AutomaticEnv can resolve each of them from the environment.
func SetDefaults(v *viper.Viper) {
	gen := gemini.DefaultGenerationConfig()

	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.base_url", gemini.DefaultBaseURL)
	v.SetDefault("gemini.model", gemini.DefaultModel)
	v.SetDefault("gemini.timeout", gemini.DefaultTimeout.String())
	v.SetDefault("gemini.min_interval", "2s")
	v.SetDefault("gemini.max_retries", 3)
	v.SetDefault("gemini.rate_limit_base", 2.0)
	v.SetDefault("gemini.retry_delay", "2s")
	v.SetDefault("gemini.generation.temperature", gen.Temperature)
	v.SetDefault("gemini.generation.top_k", gen.TopK)
	v.SetDefault("gemini.generation.top_p", gen.TopP)
	v.SetDefault("gemini.generation.max_output_tokens", gen.MaxOutputTokens)
	v.SetDefault("gemini.generation.stop_sequences", []string{})
	v.SetDefault("gemini.safety_threshold", gemini.BlockMediumAndAbove)

	v.SetDefault("store.enabled", true)
	v.SetDefault("store.driver", "libsql")
	v.SetDefault("store.path", "")
	v.SetDefault("store.url", "")
	v.SetDefault("store.auth_token", "")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "300s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "structured")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)

	v.SetDefault("health.enabled", true)

	v.SetDefault("debug.enabled", false)
	v.SetDefault("debug.trace_file", "")
}

// BindEnv makes every key resolvable from {prefix}{SECTION}_{KEY}, e.g.
// REPLYKIT_GEMINI_API_KEY for gemini.api_key.
func BindEnv(v *viper.Viper, prefix string) {
	v.SetEnvPrefix(strings.TrimSuffix(prefix, "_"))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load decodes the viper settings into a Config, applies derived defaults
// and stores it for GetConfig. It does not require an API key; commands that
// call Gemini check Validate.
func Load(ctx context.Context, v *viper.Viper) (*Config, error) {
	if v == nil {
		v = viper.GetViper()
	}

	cfg, err := Decode(v.AllSettings())
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.Gemini.APIKey) == "" {
		cfg.Gemini.APIKey = strings.TrimSpace(os.Getenv(FallbackAPIKeyEnv))
	}
	if strings.TrimSpace(cfg.Store.URL) == "" && strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = DefaultStorePath(ctx)
	}

	if err := cfg.validateSettings(); err != nil {
		return nil, err
	}

	setConfig(cfg)
	return cfg, nil
}

// Decode converts a settings map (viper.AllSettings) into a Config.
func Decode(settings map[string]any) (*Config, error) {
	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.StringToFloat64HookFunc(),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.Gemini.Generation.StopSequences == nil {
		cfg.Gemini.Generation.StopSequences = []string{}
	}
	return cfg, nil
}

// Validate checks the settings and requires an API key.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Gemini.APIKey) == "" {
		return ErrMissingAPIKey
	}
	return c.validateSettings()
}

func (c *Config) validateSettings() error {
	g := c.Gemini
	var problems []string
	if strings.TrimSpace(g.BaseURL) == "" {
		problems = append(problems, "gemini.base_url is required")
	}
	if strings.TrimSpace(g.Model) == "" {
		problems = append(problems, "gemini.model is required")
	}
	if g.Timeout <= 0 {
		problems = append(problems, "gemini.timeout must be positive")
	}
	if g.MinInterval < 0 {
		problems = append(problems, "gemini.min_interval must not be negative")
	}
	if g.MaxRetries < 0 {
		problems = append(problems, "gemini.max_retries must not be negative")
	}
	if g.RateLimitBase < 1 {
		problems = append(problems, "gemini.rate_limit_base must be at least 1")
	}
	if g.RetryDelay <= 0 {
		problems = append(problems, "gemini.retry_delay must be positive")
	}
	if c.Store.Enabled && c.Store.Driver != "" && c.Store.Driver != "libsql" {
		problems = append(problems, fmt.Sprintf("store.driver %q is not supported", c.Store.Driver))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		problems = append(problems, "server.port must be between 0 and 65535")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// GetConfig returns the configuration stored by the last Load.
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

func appNamesForPaths(ctx context.Context) (configName string, binaryName string) {
	identity := appid.Resolve(ctx)
	configName = identity.ConfigName
	binaryName = identity.BinaryName
	if strings.TrimSpace(binaryName) == "" {
		binaryName = appid.DefaultBinaryName
	}
	if strings.TrimSpace(configName) == "" {
		configName = binaryName
	}
	return configName, binaryName
}

// DefaultConfigPath returns the XDG-compliant path to the user config file.
func DefaultConfigPath(ctx context.Context) string {
	configName, _ := appNamesForPaths(ctx)
	configDir := gfconfig.GetAppConfigDir(configName)
	if strings.TrimSpace(configDir) == "" {
		return ""
	}
	return filepath.Join(configDir, "config.yaml")
}

// DefaultStorePath returns the XDG-compliant path to the database file.
func DefaultStorePath(ctx context.Context) string {
	configName, binaryName := appNamesForPaths(ctx)
	dataDir := gfconfig.GetAppDataDir(configName)
	if strings.TrimSpace(dataDir) == "" {
		return "./" + binaryName + ".db"
	}
	return filepath.Join(dataDir, binaryName+".db")
}
