package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"ollama-chat/internal/chatapi"
	"ollama-chat/internal/session"
	"ollama-chat/internal/terminal"
)

// renderMessages lays out the conversation log for the viewport.
func renderMessages(msgs []session.Message, styles Styles, renderer *glamour.TermRenderer) string {
	var sb strings.Builder
	for i, msg := range msgs {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(renderMessage(msg, styles, renderer))
	}
	return sb.String()
}

func renderMessage(msg session.Message, styles Styles, renderer *glamour.TermRenderer) string {
	stamp := styles.Meta.Render(msg.Timestamp.Format("15:04:05"))

	switch msg.Origin {
	case session.OriginUser:
		return fmt.Sprintf("%s %s\n%s", styles.User.Render("Vous"), stamp, msg.Content)

	case session.OriginAssistant:
		content := msg.Content
		if renderer != nil {
			if rendered, err := renderer.Render(content); err == nil {
				content = strings.Trim(rendered, "\n")
			}
		}
		header := styles.Assistant.Render("IA") + " " + stamp
		if msg.Latency > 0 {
			header += styles.Meta.Render(" · ⏱ " + terminal.FormatDuration(msg.Latency))
		}
		return header + "\n" + content

	default:
		return styles.System.Render(msg.Content)
	}
}

// renderHistoryPanel renders the history snapshot for a panel of the given
// inner width.
func renderHistoryPanel(entries []chatapi.HistoryEntry, width int, styles Styles) string {
	var sb strings.Builder
	sb.WriteString(styles.Header.Render(fmt.Sprintf("Historique (%d)", len(entries))))
	sb.WriteString("\n\n")

	if len(entries) == 0 {
		sb.WriteString(styles.Meta.Render("Aucun historique."))
		return sb.String()
	}

	maxLen := width - 8
	if maxLen < 10 {
		maxLen = 10
	}
	for i := len(entries) - 1; i >= 0; i-- {
		v := entries[i].View()
		sb.WriteString(styles.Meta.Render(terminal.FormatTimestamp(v.Timestamp) + " · " + v.Model))
		sb.WriteString("\n")
		sb.WriteString(styles.User.Render("› ") + terminal.Truncate(oneLine(v.UserMessage), maxLen))
		sb.WriteString("\n")
		sb.WriteString(styles.Assistant.Render("‹ ") + terminal.Truncate(oneLine(v.AIResponse), maxLen))
		if i > 0 {
			sb.WriteString("\n\n")
		}
	}
	return sb.String()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
