package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"ollama-chat/internal/session"
)

// keyEvent translates a terminal key press into the session's key model.
// Terminals cannot report Shift+Enter, so Alt+Enter and Ctrl+J stand in for
// it: both arrive as a Shift-modified Enter and insert a newline.
func keyEvent(msg tea.KeyMsg) (session.KeyEvent, bool) {
	switch {
	case msg.Type == tea.KeyEnter:
		return session.KeyEvent{Key: session.KeyEnter, Shift: msg.Alt}, true
	case msg.Type == tea.KeyCtrlJ:
		return session.KeyEvent{Key: session.KeyEnter, Shift: true}, true
	default:
		return session.KeyEvent{}, false
	}
}
