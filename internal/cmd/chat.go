package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/replykit/replykit/internal/observability"
)

// replyGetter is the string-only view of the reply client.
type replyGetter interface {
	GetReply(ctx context.Context, userInput string) string
}

var chatPrompt bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Reply to each line read from stdin",
	Long: `Read messages line by line and print a reply to each.

Every line is sent on its own; no history is carried between lines.
Type "exit" or "quit", or send EOF, to stop.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := loadConfig(ctx)
		if err != nil {
			exitOnSetupError("Failed to load configuration", err)
		}

		rt, err := newReplyRuntime(ctx, cfg, observability.CLILogger)
		if err != nil {
			exitOnSetupError("Failed to create reply client", err)
		}
		defer func() { _ = rt.Close() }()

		prompt := chatPrompt && isTerminal(cmd.InOrStdin())
		return runChat(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), rt.client, prompt)
	},
}

func runChat(ctx context.Context, in io.Reader, out io.Writer, replier replyGetter, prompt bool) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxStdinMessageBytes)

	for {
		if prompt {
			_, _ = fmt.Fprint(out, "> ")
		}
		if !scanner.Scan() {
			break
		}

		line := scanner.Text()
		switch strings.TrimSpace(line) {
		case "exit", "quit":
			return nil
		}

		if _, err := fmt.Fprintln(out, replier.GetReply(ctx, line)); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return nil
		}
	}

	return scanner.Err()
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().BoolVar(&chatPrompt, "prompt", true, "show a prompt when stdin is a terminal")
}
