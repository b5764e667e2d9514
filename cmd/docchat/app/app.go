// Package app wires configuration into the logger, provider client, model
// catalog and turn processor shared by the docchat commands.
package app

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/docchat/pkg/catalog"
	"github.com/papercomputeco/docchat/pkg/config"
	"github.com/papercomputeco/docchat/pkg/conversation"
	"github.com/papercomputeco/docchat/pkg/logger"
	"github.com/papercomputeco/docchat/pkg/merkle"
	"github.com/papercomputeco/docchat/pkg/provider/openai"
)

// Flags are the options every provider-facing command accepts.
type Flags struct {
	ConfigPath string
	Debug      bool
	LogFile    string
	BaseURL    string
}

// Bind registers the flags on cmd.
func (f *Flags) Bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.ConfigPath, "config", "c", "", "Path to TOML config file (default: $DOCCHAT_CONFIG or ./docchat.toml)")
	cmd.Flags().BoolVar(&f.Debug, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&f.LogFile, "log-file", "", "Also write JSON logs to this file")
	cmd.Flags().StringVar(&f.BaseURL, "base-url", "", "OpenAI-compatible API base URL")
}

// Load reads the configuration and applies flags on top.
func (f *Flags) Load() (*config.Config, error) {
	cfg, err := config.Load(f.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("could not load configuration: %w", err)
	}

	if f.Debug {
		cfg.Log.Debug = true
	}
	if f.LogFile != "" {
		cfg.Log.File = f.LogFile
	}
	if f.BaseURL != "" {
		cfg.Provider.BaseURL = f.BaseURL
	}
	return cfg, nil
}

// App holds the long-lived collaborators built from a configuration.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Provider *openai.Client
	Catalog  *catalog.Catalog
}

// New builds the logger, provider client and catalog. A quiet App logs only
// to the configured file.
func New(cfg *config.Config, quiet bool) *App {
	log := logger.NewLogger(logger.Options{
		Debug: cfg.Log.Debug,
		File:  cfg.Log.File,
		Quiet: quiet,
	})

	provider := openai.NewClient(openai.Config{
		APIKey:  cfg.Provider.APIKey,
		BaseURL: cfg.Provider.BaseURL,
	}, log)

	return &App{
		Config:   cfg,
		Logger:   log,
		Provider: provider,
		Catalog:  catalog.New(provider, cfg.Provider.ModelsTTL.Duration, log),
	}
}

// NewProcessor creates a turn processor using the configured sampling settings.
func (a *App) NewProcessor(opts ...conversation.Option) *conversation.Processor {
	return conversation.NewProcessor(conversation.Config{
		Temperature: a.Config.Provider.Temperature,
		MaxTokens:   a.Config.Provider.MaxTokens,
	}, a.Provider, a.Logger, opts...)
}

// Close flushes the logger.
func (a *App) Close() {
	_ = a.Logger.Sync()
}

// OpenArchive opens the SQLite archive at path, or an in-memory archive when
// path is empty.
func OpenArchive(path string) (merkle.Storer, error) {
	if path == "" {
		return merkle.NewMemoryStorer(), nil
	}

	storer, err := merkle.NewSQLiteStorer(path)
	if err != nil {
		return nil, fmt.Errorf("could not open archive %s: %w", path, err)
	}
	return storer, nil
}
