package cmd

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/replykit/replykit/internal/config"
	"github.com/replykit/replykit/internal/observability"
	"github.com/replykit/replykit/internal/output"
	"github.com/replykit/replykit/internal/store"
)

var (
	doctorConnectivity bool
	doctorTimeout      time.Duration
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks",
	Long: `Run diagnostic checks on configuration, the store and (with
--connectivity) the Gemini endpoint. No message is sent to the API.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveOutputFormat(cmd, output.FormatTable, output.FormatTable, output.FormatJSON)
		if err != nil {
			return err
		}

		checks := runDoctorChecks(cmd.Context(), doctorConnectivity, doctorTimeout)
		rendered, err := output.FormatChecks(format, checks)
		if err != nil {
			return err
		}
		if err := writeRendered(cmd, rendered); err != nil {
			return err
		}

		for _, c := range checks {
			if c.Status == output.CheckFail {
				ExitWithCode(observability.CLILogger, foundry.ExitFailure, "Diagnostic checks failed", fmt.Errorf("%s: %s", c.Name, c.Detail))
			}
		}
		return nil
	},
}

func runDoctorChecks(ctx context.Context, connectivity bool, timeout time.Duration) []output.Check {
	checks := []output.Check{
		checkGoVersion(),
		checkFulmenVersions(),
		checkConfigFile(ctx),
	}

	cfg, err := loadConfig(ctx)
	if err != nil {
		observability.CLILogger.Debug("Config load failed", zap.Error(err))
		checks = append(checks, output.Check{Name: "configuration", Status: output.CheckFail, Detail: err.Error()})
		return checks
	}
	checks = append(checks,
		output.Check{Name: "configuration", Status: output.CheckOK, Detail: "valid"},
		checkAPIKey(cfg),
		output.Check{Name: "model", Status: output.CheckOK, Detail: cfg.Gemini.Model},
		checkStore(ctx, cfg),
	)

	if connectivity {
		checks = append(checks, checkEndpoint(ctx, cfg.Gemini.BaseURL, timeout))
	}
	return checks
}

func checkGoVersion() output.Check {
	goVersion := runtime.Version()
	detail := fmt.Sprintf("%s %s/%s", goVersion, runtime.GOOS, runtime.GOARCH)
	if goVersion >= "go1.23" {
		return output.Check{Name: "go version", Status: output.CheckOK, Detail: detail}
	}
	return output.Check{Name: "go version", Status: output.CheckWarn, Detail: detail + " (recommended: go1.23+)"}
}

func checkFulmenVersions() output.Check {
	version := crucible.GetVersion()
	if version.Gofulmen == "" || version.Crucible == "" {
		return output.Check{Name: "gofulmen", Status: output.CheckWarn, Detail: "version metadata unavailable"}
	}
	return output.Check{Name: "gofulmen", Status: output.CheckOK, Detail: fmt.Sprintf("gofulmen v%s, crucible v%s", version.Gofulmen, version.Crucible)}
}

func checkConfigFile(ctx context.Context) output.Check {
	if used := viper.ConfigFileUsed(); used != "" {
		if _, err := os.Stat(used); err == nil {
			return output.Check{Name: "config file", Status: output.CheckOK, Detail: used}
		}
	}
	path := config.DefaultConfigPath(ctx)
	if path == "" {
		return output.Check{Name: "config file", Status: output.CheckWarn, Detail: "config directory not resolved; using defaults and environment"}
	}
	return output.Check{Name: "config file", Status: output.CheckOK, Detail: "none (defaults and environment); run 'doctor init' to create " + path}
}

// checkAPIKey reports presence only; the key itself is never printed.
func checkAPIKey(cfg *config.Config) output.Check {
	if err := cfg.Validate(); err != nil {
		return output.Check{Name: "api key", Status: output.CheckFail, Detail: err.Error()}
	}
	return output.Check{Name: "api key", Status: output.CheckOK, Detail: "configured"}
}

func checkStore(ctx context.Context, cfg *config.Config) output.Check {
	if !cfg.Store.Enabled {
		return output.Check{Name: "store", Status: output.CheckWarn, Detail: "disabled; throttle state kept in memory"}
	}

	db, err := openStore(ctx, cfg.Store)
	if err != nil {
		return output.Check{Name: "store", Status: output.CheckWarn, Detail: err.Error()}
	}
	defer func() { _ = db.Close() }()

	if err := db.CheckHealth(ctx); err != nil {
		return output.Check{Name: "store", Status: output.CheckWarn, Detail: err.Error()}
	}

	location := cfg.Store.Path
	if cfg.Store.URL != "" {
		location = "remote"
	}
	entries, err := db.ListThrottle(ctx, store.ThrottleQuery{All: true})
	if err != nil {
		return output.Check{Name: "store", Status: output.CheckWarn, Detail: fmt.Sprintf("%s (throttle state unreadable: %v)", location, err)}
	}
	return output.Check{Name: "store", Status: output.CheckOK, Detail: fmt.Sprintf("%s (%d throttle entries)", location, len(entries))}
}

// checkEndpoint resolves the base URL host and completes a TLS handshake.
func checkEndpoint(ctx context.Context, baseURL string, timeout time.Duration) output.Check {
	const name = "connectivity"

	host, port, err := endpointHostPort(baseURL)
	if err != nil {
		return output.Check{Name: name, Status: output.CheckFail, Detail: err.Error()}
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	dialer := &tls.Dialer{NetDialer: &net.Dialer{}, Config: &tls.Config{ServerName: host}}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, port))
	if err != nil {
		return output.Check{Name: name, Status: output.CheckFail, Detail: fmt.Sprintf("%s: %v", host, err)}
	}
	_ = conn.Close()

	return output.Check{Name: name, Status: output.CheckOK, Detail: fmt.Sprintf("%s:%s TLS ok in %s", host, port, time.Since(start).Round(time.Millisecond))}
}

func endpointHostPort(baseURL string) (string, string, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return "", "", fmt.Errorf("invalid base_url: %w", err)
	}
	if u.Hostname() == "" {
		return "", "", fmt.Errorf("invalid base_url: missing host")
	}
	port := u.Port()
	if port == "" {
		port = "443"
	}
	return u.Hostname(), port, nil
}

var doctorInitForce bool

var doctorInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config file",
	Long: `Write a config file with the default settings. The API key is left
empty; set it in the file or via REPLYKIT_GEMINI_API_KEY / GEMINI_API_KEY.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.DefaultConfigPath(cmd.Context())
		if path == "" {
			return fmt.Errorf("config path not resolved")
		}
		if err := writeDefaultConfig(path, doctorInitForce); err != nil {
			return err
		}
		observability.CLILogger.Info("Config initialized", zap.String("path", path))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.AddCommand(doctorInitCmd)

	doctorCmd.Flags().BoolVar(&doctorConnectivity, "connectivity", false, "also check TLS connectivity to the Gemini endpoint")
	doctorCmd.Flags().DurationVar(&doctorTimeout, "timeout", 10*time.Second, "connectivity check timeout")
	addOutputFlags(doctorCmd, output.FormatTable, output.FormatTable, output.FormatJSON)

	doctorInitCmd.Flags().BoolVar(&doctorInitForce, "force", false, "overwrite an existing config file")
}
