package output

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/replykit/replykit/internal/store"
)

const millisecond = time.Millisecond

// Check status values for doctor output.
const (
	CheckOK   = "ok"
	CheckWarn = "warn"
	CheckFail = "fail"
)

// Check is one doctor diagnostic.
type Check struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Detail string `json:"detail"`
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	return t
}

func formatReplyTable(doc ReplyDocument) string {
	t := newTable()
	t.AppendHeader(table.Row{"Kind", "Attempts", "Duration", "Reply"})
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 4, WidthMax: 80}})
	t.AppendRow(table.Row{doc.Kind.String(), doc.Attempts, doc.Duration.Round(millisecond).String(), doc.Reply})
	return t.Render()
}

// FormatChecks renders doctor checks with a pass/total footer.
func FormatChecks(format Format, checks []Check) (string, error) {
	if format == FormatJSON {
		return JSON(checks)
	}

	t := newTable()
	t.AppendHeader(table.Row{"Check", "Status", "Detail"})
	passed := 0
	for _, c := range checks {
		if c.Status == CheckOK {
			passed++
		}
		t.AppendRow(table.Row{c.Name, statusLabel(c.Status), c.Detail})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d/%d ok", passed, len(checks)), ""})
	return t.Render(), nil
}

func statusLabel(status string) string {
	switch status {
	case CheckOK:
		return text.FgGreen.Sprint("✅ ok")
	case CheckWarn:
		return text.FgYellow.Sprint("⚠️  warn")
	default:
		return text.FgRed.Sprint("❌ fail")
	}
}

// FormatThrottle renders persisted throttle state.
func FormatThrottle(format Format, entries []store.ThrottleEntry, now time.Time) (string, error) {
	if format == FormatJSON {
		rows := make([]throttleJSON, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, throttleJSON{Endpoint: e.Endpoint, LastRequestAt: e.LastRequestAt.UTC()})
		}
		return JSON(rows)
	}

	if len(entries) == 0 {
		return "(no stored throttle state)", nil
	}

	t := newTable()
	t.AppendHeader(table.Row{"Endpoint", "Last Request", "Age"})
	for _, e := range entries {
		t.AppendRow(table.Row{
			e.Endpoint,
			e.LastRequestAt.UTC().Format(time.RFC3339),
			now.Sub(e.LastRequestAt).Round(time.Second).String(),
		})
	}
	return t.Render(), nil
}

// FormatReplyLog renders stored reply metadata, newest first.
func FormatReplyLog(format Format, entries []store.ReplyLogEntry) (string, error) {
	if format == FormatJSON {
		rows := make([]replyLogJSON, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, replyLogJSON{
				ID:         e.ID,
				RequestID:  e.RequestID,
				Kind:       e.Kind,
				Attempts:   e.Attempts,
				StatusCode: e.StatusCode,
				DurationMS: e.Duration.Milliseconds(),
				CreatedAt:  e.CreatedAt.UTC(),
			})
		}
		return JSON(rows)
	}

	if len(entries) == 0 {
		return "(no replies logged)", nil
	}

	t := newTable()
	t.AppendHeader(table.Row{"ID", "Time", "Kind", "Attempts", "Status", "Duration", "Request ID"})
	for _, e := range entries {
		status := "-"
		if e.StatusCode != 0 {
			status = fmt.Sprint(e.StatusCode)
		}
		t.AppendRow(table.Row{
			e.ID,
			e.CreatedAt.UTC().Format(time.RFC3339),
			e.Kind,
			e.Attempts,
			status,
			e.Duration.Round(millisecond).String(),
			e.RequestID,
		})
	}
	return t.Render(), nil
}
