package terminal

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ollama-chat/internal/chatapi"
	"ollama-chat/internal/session"
)

// Command names, typed after a leading slash.
const (
	CmdModel        = "model"
	CmdModels       = "models"
	CmdTemp         = "temp"
	CmdHistory      = "history"
	CmdRecent       = "recent"
	CmdClear        = "clear"
	CmdClearHistory = "clear-history"
	CmdHealth       = "health"
	CmdHelp         = "help"
	CmdQuit         = "quit"
	CmdExit         = "exit"
)

// HelpText lists the commands.
const HelpText = `Commandes :
  /model <nom>      changer de modèle (sans argument : modèle actuel)
  /models           lister les modèles disponibles
  /temp <0-2>       changer la température
  /history          afficher ou masquer l'historique
  /recent           afficher les 10 derniers échanges
  /clear            effacer la conversation
  /clear-history    effacer tout l'historique du serveur
  /health           vérifier l'état du serveur
  /quit             quitter`

// Command is a parsed slash command.
type Command struct {
	Name string
	Arg  string
}

// ParseCommand splits "/name arg". It reports false when line is not a
// command.
func ParseCommand(line string) (Command, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") || len(line) == 1 {
		return Command{}, false
	}

	name, arg, _ := strings.Cut(line[1:], " ")
	return Command{
		Name: strings.ToLower(name),
		Arg:  strings.TrimSpace(arg),
	}, true
}

// Session is the part of the session manager commands act on.
type Session interface {
	Config() session.Config
	Models() []string
	SetModel(model string) error
	SetTemperature(t float64) error
	ToggleHistoryPanel()
	HistoryVisible() bool
	RecentHistory(ctx context.Context) ([]chatapi.HistoryEntry, error)
	CheckHealth(ctx context.Context) (string, error)
	RequestClearConversation() session.Confirmation
	RequestClearHistory() session.Confirmation
}

// Result is what a front-end should do after a command ran.
type Result struct {
	Output  string
	// Changed is set when the command updated the session configuration.
	Changed bool
	// Confirm, when set, must be answered with Confirm or Cancel.
	Confirm *session.Confirmation
	Quit    bool
}

// Execute runs cmd against s.
func Execute(ctx context.Context, s Session, cmd Command) (Result, error) {
	switch cmd.Name {
	case CmdQuit, CmdExit:
		return Result{Quit: true}, nil

	case CmdHelp:
		return Result{Output: HelpText}, nil

	case CmdModel:
		if cmd.Arg == "" {
			return Result{Output: "Modèle actuel : " + s.Config().Model}, nil
		}
		if err := s.SetModel(cmd.Arg); err != nil {
			return Result{}, err
		}
		return Result{Output: "Modèle : " + cmd.Arg, Changed: true}, nil

	case CmdModels:
		return Result{Output: formatModels(s.Models(), s.Config().Model)}, nil

	case CmdTemp:
		if cmd.Arg == "" {
			return Result{Output: fmt.Sprintf("Température actuelle : %.1f", s.Config().Temperature)}, nil
		}
		t, err := strconv.ParseFloat(strings.Replace(cmd.Arg, ",", ".", 1), 64)
		if err != nil {
			return Result{}, fmt.Errorf("invalid temperature %q", cmd.Arg)
		}
		if err := s.SetTemperature(t); err != nil {
			return Result{}, err
		}
		return Result{Output: fmt.Sprintf("Température : %.1f", t), Changed: true}, nil

	case CmdHistory:
		s.ToggleHistoryPanel()
		if s.HistoryVisible() {
			return Result{Output: "Chargement de l'historique..."}, nil
		}
		return Result{Output: "Historique masqué."}, nil

	case CmdRecent:
		entries, err := s.RecentHistory(ctx)
		if err != nil {
			return Result{}, err
		}
		return Result{Output: FormatHistory(entries, 0)}, nil

	case CmdClear:
		c := s.RequestClearConversation()
		return Result{Confirm: &c}, nil

	case CmdClearHistory:
		c := s.RequestClearHistory()
		return Result{Confirm: &c}, nil

	case CmdHealth:
		status, err := s.CheckHealth(ctx)
		if err != nil {
			return Result{}, err
		}
		return Result{Output: status}, nil

	default:
		return Result{}, fmt.Errorf("unknown command /%s (try /help)", cmd.Name)
	}
}

// IsAffirmative reports whether answer accepts a confirmation prompt.
func IsAffirmative(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "o", "oui", "y", "yes":
		return true
	}
	return false
}

func formatModels(models []string, current string) string {
	var sb strings.Builder
	sb.WriteString("Modèles disponibles :")
	for _, m := range models {
		marker := " "
		if m == current {
			marker = "*"
		}
		fmt.Fprintf(&sb, "\n %s %s", marker, m)
	}
	if current != "" && !contains(models, current) {
		fmt.Fprintf(&sb, "\n * %s", current)
	}
	return sb.String()
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// FormatHistory renders history records as plain text. Long messages are
// cut to maxLen runes; maxLen <= 0 uses 80.
func FormatHistory(entries []chatapi.HistoryEntry, maxLen int) string {
	if len(entries) == 0 {
		return "Aucun historique."
	}
	if maxLen <= 0 {
		maxLen = 80
	}

	var sb strings.Builder
	for i, e := range entries {
		v := e.View()
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "[%s] %s", FormatTimestamp(v.Timestamp), v.Model)
		if v.ResponseTime > 0 {
			fmt.Fprintf(&sb, " · %s", FormatDuration(time.Duration(v.ResponseTime)*time.Millisecond))
		}
		fmt.Fprintf(&sb, "\n  Vous : %s\n  IA   : %s", Truncate(oneLine(v.UserMessage), maxLen), Truncate(oneLine(v.AIResponse), maxLen))
	}
	return sb.String()
}

// FormatTimestamp shortens a server timestamp for display and returns raw
// unchanged when it cannot be parsed.
func FormatTimestamp(raw string) string {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("02/01 15:04")
		}
	}
	return raw
}

func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
