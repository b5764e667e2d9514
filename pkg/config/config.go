// Package config loads docchat settings. Sources are applied in order:
// built-in defaults, a TOML file, a .env file, then process environment.
// Command line flags are applied on top by the cobra commands.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/papercomputeco/docchat/pkg/llm"
)

// DefaultConfigFile is read from the working directory when no path is given.
const DefaultConfigFile = "docchat.toml"

// Config is the full application configuration.
type Config struct {
	Provider ProviderConfig `toml:"provider"`
	Server   ServerConfig   `toml:"server"`
	Log      LogConfig      `toml:"log"`
}

// ProviderConfig configures the model provider.
type ProviderConfig struct {
	// APIKey authenticates against the provider. Prefer OPENAI_API_KEY over the file.
	APIKey string `toml:"api_key"`

	// BaseURL points at an OpenAI-compatible endpoint; empty means the public API.
	BaseURL string `toml:"base_url"`

	Temperature float64 `toml:"temperature"`
	MaxTokens   int     `toml:"max_tokens"`

	// ModelsTTL is how long a model listing is reused.
	ModelsTTL Duration `toml:"models_ttl"`
}

// ServerConfig configures the web UI server.
type ServerConfig struct {
	ListenAddr string `toml:"listen"`

	// DBPath is the SQLite transcript archive; empty keeps the archive in memory.
	DBPath string `toml:"db"`

	// SessionTTL expires idle chat sessions.
	SessionTTL Duration `toml:"session_ttl"`

	// TurnsPerMinute limits completions across all sessions; zero disables the limit.
	TurnsPerMinute int `toml:"turns_per_minute"`

	// MaxUploadMB bounds request bodies (attachments included).
	MaxUploadMB int `toml:"max_upload_mb"`
}

// LogConfig configures logging.
type LogConfig struct {
	Debug bool   `toml:"debug"`
	File  string `toml:"file"`
}

// Duration is a time.Duration that decodes from TOML strings like "10m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Provider: ProviderConfig{
			Temperature: 0,
			MaxTokens:   llm.DefaultMaxTokens,
			ModelsTTL:   Duration{10 * time.Minute},
		},
		Server: ServerConfig{
			ListenAddr:  "0.0.0.0:7860",
			SessionTTL:  Duration{24 * time.Hour},
			MaxUploadMB: 20,
		},
	}
}

// Load builds the configuration. path may be empty, in which case
// DOCCHAT_CONFIG or DefaultConfigFile is tried; a missing default file is not
// an error, a missing explicit file is.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = os.Getenv("DOCCHAT_CONFIG")
		explicit = path != ""
	}
	if path == "" {
		path = DefaultConfigFile
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	// .env is optional; the process environment still applies without it
	_ = godotenv.Load()

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
		c.Provider.APIKey = v
	}
	if v, ok := os.LookupEnv("OPENAI_BASE_URL"); ok {
		c.Provider.BaseURL = v
	}
	if v, ok := os.LookupEnv("PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		host, _, err := net.SplitHostPort(c.Server.ListenAddr)
		if err != nil {
			host = "0.0.0.0"
		}
		c.Server.ListenAddr = net.JoinHostPort(host, strconv.Itoa(port))
	}
	if v, ok := os.LookupEnv("DOCCHAT_DB"); ok {
		c.Server.DBPath = v
	}
	if v, ok := os.LookupEnv("DOCCHAT_LOG_FILE"); ok {
		c.Log.File = v
	}
	if v, ok := os.LookupEnv("DOCCHAT_DEBUG"); ok {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid DOCCHAT_DEBUG %q: %w", v, err)
		}
		c.Log.Debug = debug
	}
	return nil
}
