package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/replykit/replykit/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML (secrets redacted)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd.Context())
		if err != nil {
			return err
		}
		rendered, err := renderConfigYAML(cfg.Redacted())
		if err != nil {
			return err
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), rendered)
		return err
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file in use and the default locations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		used := viper.ConfigFileUsed()
		if used == "" {
			used = "(none)"
		}
		_, _ = fmt.Fprintf(out, "config file:  %s\n", used)
		_, _ = fmt.Fprintf(out, "default:      %s\n", config.DefaultConfigPath(ctx))
		_, err := fmt.Fprintf(out, "store:        %s\n", config.DefaultStorePath(ctx))
		return err
	},
}

func renderConfigYAML(cfg config.Config) (string, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}
	return string(data), nil
}

// writeDefaultConfig writes the default settings to path. It refuses to
// overwrite an existing file unless force is set.
func writeDefaultConfig(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file already exists: %s (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	v := viper.New()
	config.SetDefaults(v)
	cfg, err := config.Decode(v.AllSettings())
	if err != nil {
		return err
	}

	rendered, err := renderConfigYAML(*cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	// 0600: the user is expected to add the API key to this file.
	if err := os.WriteFile(path, []byte(rendered), 0600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}
