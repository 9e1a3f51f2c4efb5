package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/replykit/replykit/internal/observability"
	"github.com/replykit/replykit/internal/output"
	"github.com/replykit/replykit/internal/reply"
)

// maxStdinMessageBytes bounds a message read from stdin.
const maxStdinMessageBytes = 1 << 20

var askCmd = &cobra.Command{
	Use:   "ask [message...]",
	Short: "Send one message and print the reply",
	Long: `Send one message to Gemini and print the reply.

The message is taken from the arguments, or from stdin when no arguments are
given and stdin is not a terminal. Errors from the API are printed as reply
text; the exit code is non-zero only for setup failures.`,
	Example: `  replykit ask "Summarize the plot of Hamlet in one sentence"
  echo "hello" | replykit ask --output-format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveOutputFormat(cmd, output.FormatText,
			output.FormatText, output.FormatJSON, output.FormatMarkdown, output.FormatTable)
		if err != nil {
			return err
		}

		message, err := readMessage(args, cmd.InOrStdin())
		if err != nil {
			return err
		}

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

		doc := askOnce(ctx, rt.client, message)
		rendered, err := output.FormatReply(format, doc)
		if err != nil {
			return err
		}
		return writeRendered(cmd, rendered)
	},
}

func askOnce(ctx context.Context, replier outcomeGenerator, message string) output.ReplyDocument {
	requestID := uuid.NewString()
	ctx = reply.WithRequestID(ctx, requestID)

	start := time.Now()
	outcome := replier.Generate(ctx, message)
	return output.NewReplyDocument(outcome, requestID, time.Since(start))
}

type outcomeGenerator interface {
	Generate(ctx context.Context, userInput string) reply.Outcome
}

// readMessage joins args, or reads stdin when there are none and it is not
// an interactive terminal. Blank input is passed through; the client answers
// it without a network call.
func readMessage(args []string, in io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if in == nil || isTerminal(in) {
		return "", nil
	}

	data, err := io.ReadAll(io.LimitReader(in, maxStdinMessageBytes+1))
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	if len(data) > maxStdinMessageBytes {
		return "", fmt.Errorf("message on stdin exceeds %d bytes", maxStdinMessageBytes)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

func isTerminal(in io.Reader) bool {
	f, ok := in.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

func init() {
	rootCmd.AddCommand(askCmd)
	addOutputFlags(askCmd, output.FormatText,
		output.FormatText, output.FormatJSON, output.FormatMarkdown, output.FormatTable)
}
