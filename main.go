package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"ollama-chat/internal/chatapi"
	"ollama-chat/internal/config"
	"ollama-chat/internal/logging"
	"ollama-chat/internal/session"
	"ollama-chat/internal/terminal"
	"ollama-chat/internal/ui"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, config.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.LoadClient(args)
	if err != nil {
		return err
	}

	logger, closer, err := logging.Open(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to open log: %w", err)
	}
	defer closer.Close()

	client := chatapi.NewClient(cfg.API.URL, cfg.API.Timeout, logger)
	mgr := session.NewManager(client, session.Config{
		Model:       cfg.Session.Model,
		Temperature: cfg.Session.Temperature,
	},
		session.WithLogger(logger),
		session.WithModels(cfg.Session.Models),
	)
	defer mgr.Close()

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	notice := checkBackend(ctx, mgr, cfg.API.URL, logger)
	mgr.FetchHistory()

	mode := cfg.UI.Mode
	if mode == config.UIModeAuto {
		mode = config.UIModeLine
		if terminal.IsTerminal() {
			mode = config.UIModeTUI
		}
	}
	logger.Info().
		Str("mode", mode).
		Str(logging.FieldModel, cfg.Session.Model).
		Str("api", cfg.API.URL).
		Msg("client started")

	if mode == config.UIModeTUI {
		return ui.Run(ctx, mgr, ui.Options{
			RenderMarkdown: cfg.UI.RenderMarkdown,
			Notice:         notice,
		})
	}
	return runLine(ctx, mgr, cfg, notice)
}

func runLine(ctx context.Context, mgr *session.Manager, cfg *config.ClientConfig, notice string) error {
	color := terminal.IsTerminal()

	var display *terminal.Display
	if cfg.UI.RenderMarkdown {
		width, _ := terminal.Size()
		style := terminal.StylePlain
		if color {
			style = terminal.StyleAuto
		}
		renderer, err := terminal.NewMarkdownRenderer(width-4, style)
		if err != nil {
			return fmt.Errorf("failed to create markdown renderer: %w", err)
		}
		display = terminal.NewDisplay(os.Stdout, color, renderer)
	} else {
		display = terminal.NewDisplay(os.Stdout, color, nil)
	}

	if notice != "" {
		display.PrintWarning(notice)
	}

	err := terminal.NewLineUI(mgr, display).Run(ctx, os.Stdin)
	if errors.Is(err, context.Canceled) {
		display.PrintGoodbye()
		return nil
	}
	return err
}

// checkBackend pings the chat API. A failure is not fatal: the session
// reports send failures in the conversation.
func checkBackend(ctx context.Context, mgr *session.Manager, url string, logger zerolog.Logger) string {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	status, err := mgr.CheckHealth(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("backend health check failed")
		return fmt.Sprintf("Serveur injoignable sur %s. Démarrez-le avec chat-server.", url)
	}
	logger.Info().Str("status", status).Msg("backend reachable")
	return ""
}
