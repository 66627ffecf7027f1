package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/pflag"

	"ollama-chat/internal/logging"
)

// UI modes.
const (
	UIModeAuto = "auto"
	UIModeTUI  = "tui"
	UIModeLine = "line"
)

// ClientConfig holds the chat client configuration
type ClientConfig struct {
	API     APIConfig      `mapstructure:"api"`
	Session SessionConfig  `mapstructure:"session"`
	UI      UIConfig       `mapstructure:"ui"`
	Log     logging.Config `mapstructure:"log"`
}

// APIConfig points the client at the chat backend.
type APIConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// SessionConfig seeds the session's model selection.
type SessionConfig struct {
	Model       string   `mapstructure:"model"`
	Temperature float64  `mapstructure:"temperature"`
	Models      []string `mapstructure:"models"`
}

// UIConfig selects and tunes the front-end.
type UIConfig struct {
	Mode           string `mapstructure:"mode"`
	RenderMarkdown bool   `mapstructure:"render_markdown"`
}

// NewClientConfig creates a client configuration with default values
func NewClientConfig() *ClientConfig {
	return &ClientConfig{
		API: APIConfig{
			URL:     "http://localhost:8080/api",
			Timeout: 600 * time.Second,
		},
		Session: SessionConfig{
			Model:       "llama2",
			Temperature: 0.7,
			Models:      []string{"qwen3", "gemma3:1b", "llama3.2"},
		},
		UI: UIConfig{
			Mode:           UIModeAuto,
			RenderMarkdown: true,
		},
		Log: logging.Config{
			Level:       "info",
			ServiceName: "ollama-chat",
			File:        expandHome("~/.ollama-chat/client.log"),
		},
	}
}

// LoadClient builds the client configuration from defaults, an optional
// config file, OLLAMA_CHAT_* environment variables and args.
func LoadClient(args []string) (*ClientConfig, error) {
	cfg := NewClientConfig()

	fs := pflag.NewFlagSet("ollama-chat", pflag.ContinueOnError)
	fs.String("api-url", cfg.API.URL, "Chat backend base URL (including /api)")
	fs.Duration("timeout", cfg.API.Timeout, "Backend request timeout")
	fs.String("model", cfg.Session.Model, "Initially selected model")
	fs.Float64("temperature", cfg.Session.Temperature, "Initial sampling temperature")
	fs.StringSlice("models", cfg.Session.Models, "Models offered for selection")
	fs.String("ui", cfg.UI.Mode, "Front-end: auto, tui or line")
	fs.Bool("markdown", cfg.UI.RenderMarkdown, "Render assistant replies as markdown")
	fs.String("log-level", cfg.Log.Level, "Log level")
	fs.String("log-file", cfg.Log.File, "Log file (empty for stdout)")

	defaults := map[string]any{
		"api.url":             cfg.API.URL,
		"api.timeout":         cfg.API.Timeout,
		"session.model":       cfg.Session.Model,
		"session.temperature": cfg.Session.Temperature,
		"session.models":      cfg.Session.Models,
		"ui.mode":             cfg.UI.Mode,
		"ui.render_markdown":  cfg.UI.RenderMarkdown,
		"log.level":           cfg.Log.Level,
		"log.pretty":          cfg.Log.Pretty,
		"log.service_name":    cfg.Log.ServiceName,
		"log.file":            cfg.Log.File,
	}
	bindings := []binding{
		{"api.url", "api-url"},
		{"api.timeout", "timeout"},
		{"session.model", "model"},
		{"session.temperature", "temperature"},
		{"session.models", "models"},
		{"ui.mode", "ui"},
		{"ui.render_markdown", "markdown"},
		{"log.level", "log-level"},
		{"log.file", "log-file"},
	}

	if err := load(fs, args, defaults, bindings, cfg); err != nil {
		return nil, err
	}
	cfg.Log.File = expandHome(cfg.Log.File)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *ClientConfig) Validate() error {
	if c.API.URL == "" {
		return fmt.Errorf("api URL cannot be empty")
	}
	if u, err := url.Parse(c.API.URL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api URL %q is not an absolute URL", c.API.URL)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api timeout must be positive")
	}
	if c.Session.Model == "" {
		return fmt.Errorf("model name cannot be empty")
	}
	if err := validateTemperature(c.Session.Temperature); err != nil {
		return err
	}
	switch c.UI.Mode {
	case UIModeAuto, UIModeTUI, UIModeLine:
	default:
		return fmt.Errorf("ui mode must be one of auto, tui, line (got %q)", c.UI.Mode)
	}
	return nil
}

func validateTemperature(t float64) error {
	if t < 0 || t > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	return nil
}
