package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fulmenhq/gofulmen/appidentity"
	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/telemetry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/replykit/replykit/internal/ailink/driver"
	"github.com/replykit/replykit/internal/appid"
	"github.com/replykit/replykit/internal/config"
	"github.com/replykit/replykit/internal/observability"
)

var (
	cfgFile   string
	verbose   bool
	traceFile string

	// App identity loaded from .fulmen/app.yaml or the embedded copy
	appIdentity *appidentity.Identity

	// Version info set by main package
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo is called by main package to set version information
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// GetAppIdentity returns the loaded app identity, or the built-in one before
// initConfig has run.
func GetAppIdentity() *appidentity.Identity {
	if appIdentity == nil {
		return appid.Default()
	}
	return appIdentity
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	// NOTE: initConfig() overwrites these from app identity.
	Use:   filepath.Base(os.Args[0]),
	Short: "Gemini reply client with throttling and retry",
	Long: `Send messages to the Gemini generateContent API and print the reply.

Requests are spaced by a minimum interval and retried with backoff on
rate limiting and transient failures.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Keep config loading quiet; serve installs the real telemetry system.
	disabledConfig := &telemetry.Config{Enabled: false}
	if sys, err := telemetry.NewSystem(disabledConfig); err == nil {
		telemetry.SetGlobalSystem(sys)
	}

	// Load app identity early for help text (before cobra processes --help)
	if identity, err := appid.Get(context.Background()); err == nil && identity != nil {
		applyIdentity(identity)
	}

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional; defaults to app identity config path)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")
	rootCmd.PersistentFlags().StringVar(&traceFile, "trace", "", "trace Gemini requests/responses to NDJSON file")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func applyIdentity(identity *appidentity.Identity) {
	appIdentity = identity
	if identity.BinaryName != "" {
		rootCmd.Use = identity.BinaryName
	}
	if identity.Description != "" {
		rootCmd.Short = identity.Description
	}
	if f := rootCmd.PersistentFlags().Lookup("config"); f != nil && identity.ConfigName != "" {
		f.Usage = fmt.Sprintf("config file (default is $XDG_CONFIG_HOME/%s/config.yaml)", identity.ConfigName)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	ctx := context.Background()
	identity, err := appid.Get(ctx)
	if err != nil {
		ExitWithCodeStderr(foundry.ExitFileNotFound, "Failed to load app identity", err)
	}
	applyIdentity(identity)

	// Initialize CLI logger early so we can use it in config loading
	observability.InitCLILogger(identity.BinaryName, verbose)

	v := viper.GetViper()
	configureConfigSearch(v, identity)

	config.SetDefaults(v)
	config.BindEnv(v, identity.EnvPrefix)

	if err := v.ReadInConfig(); err == nil {
		observability.CLILogger.Debug("Using config file", zap.String("path", v.ConfigFileUsed()))
	} else if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		observability.CLILogger.Debug("No config file found, using defaults and environment variables")
	} else {
		ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Error reading config file", err)
	}

	// Re-init with the configured level now that it is known.
	observability.InitCLILogger(identity.BinaryName, verbose, v.GetString("logging.level"))

	enableTracing(v.GetString("debug.trace_file"))
}

func configureConfigSearch(v *viper.Viper, identity *appidentity.Identity) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		return
	}

	if appConfigDir := gfconfig.GetAppConfigDir(identity.ConfigName); appConfigDir != "" {
		v.AddConfigPath(appConfigDir)
		v.SetConfigName("config")
	} else {
		observability.CLILogger.Debug("Could not resolve XDG config directory, falling back to home directory")
		home, err := os.UserHomeDir()
		if err != nil {
			ExitWithCode(observability.CLILogger, foundry.ExitFileNotFound, "Could not find home directory", err)
		}
		v.AddConfigPath(home)
		v.SetConfigName("." + identity.ConfigName)
	}

	v.AddConfigPath("./config")
	v.SetConfigType("yaml")
}

// enableTracing turns on NDJSON tracing from --trace, or from
// debug.trace_file when the flag is absent.
func enableTracing(configured string) {
	path := traceFile
	if path == "" {
		path = configured
	}
	if path == "" {
		return
	}

	// The tracer stays open for the whole process.
	if _, err := driver.EnableTracing(path); err != nil {
		observability.CLILogger.Warn("Failed to enable tracing", zap.Error(err))
		return
	}
	observability.CLILogger.Debug("Gemini tracing enabled", zap.String("file", path))
}

// loadConfig decodes the effective configuration from the global viper.
func loadConfig(ctx context.Context) (*config.Config, error) {
	return config.Load(ctx, viper.GetViper())
}
