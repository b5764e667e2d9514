package servecmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/docchat/cmd/docchat/app"
	"github.com/papercomputeco/docchat/pkg/config"
	"github.com/papercomputeco/docchat/pkg/conversation"
	"github.com/papercomputeco/docchat/pkg/merkle"
	"github.com/papercomputeco/docchat/server"
)

const serveLongDesc string = `Serve the chat web UI.

Each browser gets its own conversation. Answers stream into the page as
they are generated, and every completed turn is written to the transcript
archive (in memory unless --db or DOCCHAT_DB names a SQLite file).

Examples:
  docchat serve
  PORT=8080 docchat serve
  docchat serve --listen 127.0.0.1:7860 --db ~/.docchat/archive.sqlite`

const serveShortDesc string = "Serve the chat web UI"

type serveCommander struct {
	flags          app.Flags
	listenAddr     string
	dbPath         string
	turnsPerMinute int
}

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context())
		},
	}

	cmder.flags.Bind(cmd)
	cmd.Flags().StringVarP(&cmder.listenAddr, "listen", "l", "", "Address to listen on (default: 0.0.0.0:$PORT or 0.0.0.0:7860)")
	cmd.Flags().StringVar(&cmder.dbPath, "db", "", "Path to SQLite transcript archive (default: in-memory)")
	cmd.Flags().IntVar(&cmder.turnsPerMinute, "turns-per-minute", -1, "Limit completions per minute across all sessions (0 disables)")

	return cmd
}

func (c *serveCommander) run(ctx context.Context) error {
	cfg, err := c.flags.Load()
	if err != nil {
		return err
	}
	c.applyFlags(cfg)

	a := app.New(cfg, false)
	defer a.Close()

	a.Logger.Info("docchat starting",
		zap.String("listen", cfg.Server.ListenAddr),
		zap.String("db", cfg.Server.DBPath),
		zap.Bool("debug", cfg.Log.Debug),
	)

	srv, err := newServer(a)
	if err != nil {
		return err
	}
	defer srv.Close()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("chat server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		a.Logger.Info("shutting down")
		return srv.Shutdown()
	}
}

func (c *serveCommander) applyFlags(cfg *config.Config) {
	if c.listenAddr != "" {
		cfg.Server.ListenAddr = c.listenAddr
	}
	if c.dbPath != "" {
		cfg.Server.DBPath = c.dbPath
	}
	if c.turnsPerMinute >= 0 {
		cfg.Server.TurnsPerMinute = c.turnsPerMinute
	}
}

func newServer(a *app.App) (*server.Server, error) {
	cfg := a.Config

	storer, err := app.OpenArchive(cfg.Server.DBPath)
	if err != nil {
		return nil, err
	}

	processor := a.NewProcessor(conversation.WithRecorder(merkle.NewRecorder(storer)))

	srv, err := server.New(server.Config{
		ListenAddr:     cfg.Server.ListenAddr,
		SessionTTL:     cfg.Server.SessionTTL.Duration,
		TurnsPerMinute: cfg.Server.TurnsPerMinute,
		BodyLimit:      cfg.Server.MaxUploadMB * 1024 * 1024,
	}, processor, a.Catalog, storer, a.Logger)
	if err != nil {
		storer.Close()
		return nil, fmt.Errorf("could not create chat server: %w", err)
	}
	return srv, nil
}
