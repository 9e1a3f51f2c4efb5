package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/replykit/replykit/internal/reply"
)

// Format represents an output format.
type Format string

const (
	FormatText     Format = "text"
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
)

// ParseFormat validates and normalizes a format string. An empty value
// selects fallback.
func ParseFormat(value string, fallback Format) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "":
		return fallback, nil
	case string(FormatText):
		return FormatText, nil
	case string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatMarkdown), "md":
		return FormatMarkdown, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// RequireFormat returns an error unless format is one of allowed.
func RequireFormat(format Format, allowed ...Format) error {
	for _, f := range allowed {
		if f == format {
			return nil
		}
	}
	names := make([]string, 0, len(allowed))
	for _, f := range allowed {
		names = append(names, string(f))
	}
	return fmt.Errorf("unsupported output format: %s (expected %s)", format, strings.Join(names, "|"))
}

// ReplyDocument is a rendered reply with its metadata.
type ReplyDocument struct {
	Reply     string        `json:"reply"`
	Kind      reply.Kind    `json:"kind"`
	Attempts  int           `json:"attempts"`
	RequestID string        `json:"request_id,omitempty"`
	Duration  time.Duration `json:"-"`
}

// NewReplyDocument builds a document from an outcome.
func NewReplyDocument(outcome reply.Outcome, requestID string, elapsed time.Duration) ReplyDocument {
	return ReplyDocument{
		Reply:     outcome.String(),
		Kind:      outcome.Kind,
		Attempts:  outcome.Attempts,
		RequestID: requestID,
		Duration:  elapsed,
	}
}

// FormatReply renders doc in the requested format. Text output is the reply
// string alone.
func FormatReply(format Format, doc ReplyDocument) (string, error) {
	switch format {
	case FormatJSON:
		return formatReplyJSON(doc)
	case FormatMarkdown:
		return formatReplyMarkdown(doc), nil
	case FormatTable:
		return formatReplyTable(doc), nil
	default:
		return doc.Reply, nil
	}
}
