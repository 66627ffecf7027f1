package terminal

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"

	"ollama-chat/internal/chatapi"
	"ollama-chat/internal/session"
)

// Display handles line-mode output with optional colors and markdown
// rendering. It is safe for concurrent use.
type Display struct {
	out      io.Writer
	color    bool
	renderer *glamour.TermRenderer
	mu       sync.Mutex
}

// NewDisplay creates a new display instance. renderer may be nil.
func NewDisplay(out io.Writer, color bool, renderer *glamour.TermRenderer) *Display {
	return &Display{
		out:      out,
		color:    color,
		renderer: renderer,
	}
}

// Color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
)

func (d *Display) c(code string) string {
	if !d.color {
		return ""
	}
	return code
}

func (d *Display) printf(format string, args ...any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintf(d.out, format, args...)
}

// PrintWelcome displays the banner and the active model
func (d *Display) PrintWelcome(cfg session.Config) {
	d.printf("%s╔════════════════════════════════════════╗%s\n", d.c(colorCyan), d.c(colorReset))
	d.printf("%s║        ollama-chat · Chat IA           ║%s\n", d.c(colorCyan), d.c(colorReset))
	d.printf("%s╚════════════════════════════════════════╝%s\n", d.c(colorCyan), d.c(colorReset))
	d.printf("\n%sModèle : %s · température %.1f%s\n", d.c(colorGray), cfg.Model, cfg.Temperature, d.c(colorReset))
	d.printf("%sTapez /help pour les commandes, /quit pour quitter. Terminez une ligne par \\ pour continuer le message.%s\n\n", d.c(colorGray), d.c(colorReset))
}

// PrintMessage displays one conversation message
func (d *Display) PrintMessage(msg session.Message) {
	stamp := msg.Timestamp.Format("15:04:05")

	switch msg.Origin {
	case session.OriginUser:
		d.printf("%s┌─ Vous · %s%s\n%s\n", d.c(colorGreen), stamp, d.c(colorReset), indent(msg.Content))

	case session.OriginAssistant:
		content := msg.Content
		if d.renderer != nil {
			if rendered, err := d.renderer.Render(content); err == nil {
				content = strings.Trim(rendered, "\n")
			}
		}
		meta := stamp
		if msg.Latency > 0 {
			meta += " · ⏱ " + FormatDuration(msg.Latency)
		}
		d.printf("%s┌─ IA · %s%s\n%s\n", d.c(colorBlue), meta, d.c(colorReset), indent(content))

	default:
		d.printf("%s• %s%s\n", d.c(colorYellow), msg.Content, d.c(colorReset))
	}
}

// PrintHistory displays the server history snapshot
func (d *Display) PrintHistory(entries []chatapi.HistoryEntry) {
	line := strings.Repeat("─", 40)
	d.printf("%s%s\nHistorique (%d)\n%s%s\n", d.c(colorGray), line, len(entries), line, d.c(colorReset))
	d.printf("%s\n", FormatHistory(entries, 0))
	d.printf("%s%s%s\n", d.c(colorGray), line, d.c(colorReset))
}

// PrintError displays an error message
func (d *Display) PrintError(err error) {
	d.printf("%s✗ Erreur : %v%s\n", d.c(colorRed), err, d.c(colorReset))
}

// PrintInfo displays an info message
func (d *Display) PrintInfo(msg string) {
	d.printf("%sℹ %s%s\n", d.c(colorCyan), msg, d.c(colorReset))
}

// PrintWarning displays a warning message
func (d *Display) PrintWarning(msg string) {
	d.printf("%s⚠ %s%s\n", d.c(colorYellow), msg, d.c(colorReset))
}

// PrintSuccess displays a success message
func (d *Display) PrintSuccess(msg string) {
	d.printf("%s✓ %s%s\n", d.c(colorGreen), msg, d.c(colorReset))
}

// PrintConfirm asks a yes/no question
func (d *Display) PrintConfirm(prompt string) {
	d.printf("%s? %s (o/N)%s\n", d.c(colorYellow), prompt, d.c(colorReset))
}

// PrintGoodbye displays the goodbye message
func (d *Display) PrintGoodbye() {
	d.printf("\n%sAu revoir ! 👋%s\n", d.c(colorCyan), d.c(colorReset))
}

func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = "│ " + l
	}
	return strings.Join(lines, "\n")
}
