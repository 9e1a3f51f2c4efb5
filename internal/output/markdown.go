package output

import (
	"fmt"
	"strings"
)

func formatReplyMarkdown(doc ReplyDocument) string {
	var sb strings.Builder
	sb.WriteString("## Reply\n\n")
	sb.WriteString(strings.TrimSpace(doc.Reply))
	sb.WriteString("\n\n")
	sb.WriteString("| Kind | Attempts | Duration |\n")
	sb.WriteString("|------|----------|----------|\n")
	sb.WriteString(fmt.Sprintf("| %s | %d | %s |\n",
		escapeMarkdownCell(doc.Kind.String()),
		doc.Attempts,
		escapeMarkdownCell(doc.Duration.Round(millisecond).String()),
	))
	return sb.String()
}

func escapeMarkdownCell(value string) string {
	value = strings.ReplaceAll(value, "|", "\\|")
	return strings.ReplaceAll(value, "\n", " ")
}
