package terminal

import (
	"os"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// IsTerminal reports whether both stdin and stdout are terminals.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// Size returns the terminal size of stdout, or 80x24 when unknown.
func Size() (width, height int) {
	width, height, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 || height <= 0 {
		return 80, 24 // defaults
	}
	return width, height
}

// Markdown styles accepted by NewMarkdownRenderer, besides glamour's
// standard style names.
const (
	StyleAuto  = "auto"
	StylePlain = "notty"
)

// NewMarkdownRenderer creates a glamour renderer wrapping at width. StyleAuto
// detects the terminal background; StylePlain suits pipes.
func NewMarkdownRenderer(width int, style string) (*glamour.TermRenderer, error) {
	opt := glamour.WithStandardStyle(style)
	if style == StyleAuto {
		opt = glamour.WithAutoStyle()
	}
	if width < 20 {
		width = 20
	}
	return glamour.NewTermRenderer(
		opt,
		glamour.WithWordWrap(width),
	)
}
