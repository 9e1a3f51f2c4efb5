package cmd

import (
	"github.com/spf13/cobra"

	"github.com/replykit/replykit/internal/output"
	"github.com/replykit/replykit/internal/store"
)

var logLimit int

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Inspect stored reply metadata",
}

var logListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent replies (kind, attempts, duration), newest first",
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

		entries, err := db.ListReplies(cmd.Context(), logLimit)
		if err != nil {
			return err
		}

		rendered, err := output.FormatReplyLog(format, entries)
		if err != nil {
			return err
		}
		return writeRendered(cmd, rendered)
	},
}

func init() {
	logListCmd.Flags().IntVarP(&logLimit, "limit", "n", store.DefaultReplyLogLimit, "maximum entries to show")
	addOutputFlags(logListCmd, output.FormatTable, output.FormatTable, output.FormatJSON)

	logCmd.AddCommand(logListCmd)
	rootCmd.AddCommand(logCmd)
}
