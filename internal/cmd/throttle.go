package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/replykit/replykit/internal/output"
	"github.com/replykit/replykit/internal/store"
)

var (
	throttleEndpoint string
	throttleAll      bool
	throttleYes      bool
	throttleDryRun   bool
)

var throttleCmd = &cobra.Command{
	Use:   "throttle",
	Short: "Manage persisted throttle state",
}

var throttleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored last-request times",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveOutputFormat(cmd, output.FormatTable, output.FormatTable, output.FormatJSON)
		if err != nil {
			return err
		}

		db, err := openConfiguredStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		query := store.ThrottleQuery{Endpoint: strings.TrimSpace(throttleEndpoint)}
		query.All = query.Endpoint == ""

		entries, err := db.ListThrottle(cmd.Context(), query)
		if err != nil {
			return err
		}

		rendered, err := output.FormatThrottle(format, entries, time.Now())
		if err != nil {
			return err
		}
		return writeRendered(cmd, rendered)
	},
}

var throttleResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete stored last-request times",
	RunE: func(cmd *cobra.Command, args []string) error {
		query := store.ThrottleQuery{
			All:      throttleAll,
			Endpoint: strings.TrimSpace(throttleEndpoint),
		}
		if err := query.Validate(); err != nil {
			return err
		}
		if query.All && !throttleYes && !throttleDryRun {
			return errors.New("--all requires --yes (or use --dry-run)")
		}

		db, err := openConfiguredStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		matched, err := db.ListThrottle(cmd.Context(), query)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if throttleDryRun {
			_, err := fmt.Fprintf(out, "Would delete %d throttle entr(ies)\n", len(matched))
			return err
		}

		deleted, err := db.ResetThrottle(cmd.Context(), query)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "Deleted %d/%d throttle entr(ies)\n", deleted, len(matched))
		return err
	},
}

func init() {
	throttleListCmd.Flags().StringVar(&throttleEndpoint, "endpoint", "", "Only show this endpoint (model name)")
	addOutputFlags(throttleListCmd, output.FormatTable, output.FormatTable, output.FormatJSON)

	throttleResetCmd.Flags().StringVar(&throttleEndpoint, "endpoint", "", "Reset a single endpoint (exact match)")
	throttleResetCmd.Flags().BoolVar(&throttleAll, "all", false, "Reset all endpoints")
	throttleResetCmd.Flags().BoolVar(&throttleYes, "yes", false, "Confirm destructive reset")
	throttleResetCmd.Flags().BoolVar(&throttleDryRun, "dry-run", false, "Show what would be deleted")

	throttleCmd.AddCommand(throttleListCmd)
	throttleCmd.AddCommand(throttleResetCmd)
	rootCmd.AddCommand(throttleCmd)
}
