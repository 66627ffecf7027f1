package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// OLLAMA_CHAT_API_URL for api.url.
const EnvPrefix = "OLLAMA_CHAT"

// ErrHelp is returned by the loaders when -h/--help was requested.
var ErrHelp = pflag.ErrHelp

// binding ties a configuration key to the flag that can override it.
type binding struct {
	key  string
	flag string
}

// load layers defaults, an optional YAML file, environment variables and
// command-line flags (highest precedence) and decodes the result into out.
func load(fs *pflag.FlagSet, args []string, defaults map[string]any, bindings []binding, out any) error {
	configFile := fs.String("config", "", "Path to a YAML configuration file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	for _, b := range bindings {
		if err := v.BindPFlag(b.key, fs.Lookup(b.flag)); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", b.flag, err)
		}
	}

	path := *configFile
	if path == "" {
		path = GetEnv(EnvPrefix + "_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(expandHome(path))
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	if err := v.Unmarshal(out); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}
	return nil
}

// expandHome expands the ~ in file paths to the user's home directory
func expandHome(path string) string {
	if len(path) > 0 && path[0] == '~' {
		return getHomeDir() + path[1:]
	}
	return path
}

// getHomeDir returns the user's home directory
func getHomeDir() string {
	if home := GetEnv("HOME"); home != "" {
		return home
	}
	// Fallback for Windows
	if home := GetEnv("USERPROFILE"); home != "" {
		return home
	}
	return "."
}

// GetEnv is a wrapper around os.Getenv for easier testing
var GetEnv = os.Getenv
