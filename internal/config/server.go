package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"ollama-chat/internal/logging"
)

// Storage drivers.
const (
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageFile     = "file"
)

// ServerConfig holds the chat backend configuration
type ServerConfig struct {
	Server  HTTPConfig     `mapstructure:"server"`
	Ollama  OllamaConfig   `mapstructure:"ollama"`
	Storage StorageConfig  `mapstructure:"storage"`
	Redis   RedisConfig    `mapstructure:"redis"`
	Cache   CacheConfig    `mapstructure:"cache"`
	Log     logging.Config `mapstructure:"log"`
}

type HTTPConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// OllamaConfig configures the language-model backend and the defaults
// applied when a chat request omits model or temperature.
type OllamaConfig struct {
	URL         string        `mapstructure:"url"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type StorageConfig struct {
	Driver string `mapstructure:"driver"`
	// Path is the sqlite database or the JSON history file.
	Path string `mapstructure:"path"`
	// DSN is used by postgres.
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	// MaxEntries caps the JSON history file; 0 keeps everything.
	MaxEntries int `mapstructure:"max_entries"`
}

// RedisConfig enables the recent-history cache when Address is set.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type CacheConfig struct {
	Prefix string        `mapstructure:"prefix"`
	TTL    time.Duration `mapstructure:"ttl"`
}

// Addr returns the listen address.
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NewServerConfig creates a server configuration with default values
func NewServerConfig() *ServerConfig {
	return &ServerConfig{
		Server: HTTPConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ShutdownTimeout: 5 * time.Second,
		},
		Ollama: OllamaConfig{
			URL:         "http://localhost:11434",
			Model:       "llama2",
			Temperature: 0.7,
			Timeout:     600 * time.Second,
		},
		Storage: StorageConfig{
			Driver: StorageSQLite,
			Path:   expandHome("~/.ollama-chat/history.db"),
		},
		Cache: CacheConfig{
			Prefix: "chat:history",
			TTL:    30 * time.Second,
		},
		Log: logging.Config{
			Level:       "info",
			ServiceName: "chat-server",
		},
	}
}

// LoadServer builds the server configuration from defaults, an optional
// config file, OLLAMA_CHAT_* environment variables and args.
func LoadServer(args []string) (*ServerConfig, error) {
	cfg := NewServerConfig()

	fs := pflag.NewFlagSet("chat-server", pflag.ContinueOnError)
	fs.String("host", cfg.Server.Host, "Listen host")
	fs.Int("port", cfg.Server.Port, "Listen port")
	fs.String("ollama-url", cfg.Ollama.URL, "Ollama API URL")
	fs.String("model", cfg.Ollama.Model, "Default model when a request names none")
	fs.Float64("temperature", cfg.Ollama.Temperature, "Default temperature when a request sets none")
	fs.Duration("ollama-timeout", cfg.Ollama.Timeout, "Ollama request timeout")
	fs.String("storage", cfg.Storage.Driver, "History storage: sqlite, postgres or file")
	fs.String("storage-path", cfg.Storage.Path, "sqlite database or JSON history file")
	fs.String("storage-dsn", cfg.Storage.DSN, "postgres DSN")
	fs.String("redis", cfg.Redis.Address, "Redis address for the recent-history cache (empty disables)")
	fs.String("log-level", cfg.Log.Level, "Log level")
	fs.Bool("log-pretty", cfg.Log.Pretty, "Human-readable console logs")

	defaults := map[string]any{
		"server.host":             cfg.Server.Host,
		"server.port":             cfg.Server.Port,
		"server.shutdown_timeout": cfg.Server.ShutdownTimeout,
		"ollama.url":              cfg.Ollama.URL,
		"ollama.model":            cfg.Ollama.Model,
		"ollama.temperature":      cfg.Ollama.Temperature,
		"ollama.timeout":          cfg.Ollama.Timeout,
		"storage.driver":          cfg.Storage.Driver,
		"storage.path":            cfg.Storage.Path,
		"storage.dsn":             cfg.Storage.DSN,
		"storage.max_open_conns":  cfg.Storage.MaxOpenConns,
		"storage.max_idle_conns":  cfg.Storage.MaxIdleConns,
		"storage.max_entries":     cfg.Storage.MaxEntries,
		"redis.address":           cfg.Redis.Address,
		"redis.password":          cfg.Redis.Password,
		"redis.db":                cfg.Redis.DB,
		"cache.prefix":            cfg.Cache.Prefix,
		"cache.ttl":               cfg.Cache.TTL,
		"log.level":               cfg.Log.Level,
		"log.pretty":              cfg.Log.Pretty,
		"log.service_name":        cfg.Log.ServiceName,
		"log.file":                cfg.Log.File,
	}
	bindings := []binding{
		{"server.host", "host"},
		{"server.port", "port"},
		{"ollama.url", "ollama-url"},
		{"ollama.model", "model"},
		{"ollama.temperature", "temperature"},
		{"ollama.timeout", "ollama-timeout"},
		{"storage.driver", "storage"},
		{"storage.path", "storage-path"},
		{"storage.dsn", "storage-dsn"},
		{"redis.address", "redis"},
		{"log.level", "log-level"},
		{"log.pretty", "log-pretty"},
	}

	if err := load(fs, args, defaults, bindings, cfg); err != nil {
		return nil, err
	}
	cfg.Storage.Path = expandHome(cfg.Storage.Path)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *ServerConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	if c.Ollama.URL == "" {
		return fmt.Errorf("ollama URL cannot be empty")
	}
	if c.Ollama.Model == "" {
		return fmt.Errorf("model name cannot be empty")
	}
	if err := validateTemperature(c.Ollama.Temperature); err != nil {
		return err
	}
	if c.Ollama.Timeout <= 0 {
		return fmt.Errorf("ollama timeout must be positive")
	}
	switch c.Storage.Driver {
	case StorageSQLite, StorageFile:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage path is required for the %s driver", c.Storage.Driver)
		}
	case StoragePostgres:
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage DSN is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported storage driver: %s", c.Storage.Driver)
	}
	if c.Storage.MaxEntries < 0 {
		return fmt.Errorf("storage max entries cannot be negative")
	}
	if c.Redis.Address != "" && c.Cache.TTL <= 0 {
		return fmt.Errorf("cache TTL must be positive when redis is enabled")
	}
	return nil
}
