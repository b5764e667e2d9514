package chatcmder

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/papercomputeco/docchat/cmd/docchat/app"
	"github.com/papercomputeco/docchat/pkg/conversation"
	"github.com/papercomputeco/docchat/pkg/merkle"
	"github.com/papercomputeco/docchat/tui"
)

const chatLongDesc string = `Chat from the terminal.

Type a message and press enter; the answer streams in as it is generated.
Attach a PDF with /attach and its text is appended to your next message.

Commands:
  /attach <file>   attach a PDF to the next message
  /model <id>      switch model
  /models          list available models
  /clear           start a new conversation
  /clearform       drop the pending input and attachment
  /quit            exit (also ctrl+c)

Press esc to stop an answer that is still streaming. Logs are written only
to --log-file while the chat is open.

Examples:
  docchat chat
  docchat chat --model gpt-4o --db ~/.docchat/archive.sqlite`

const chatShortDesc string = "Chat from the terminal"

var errNotTerminal = errors.New("docchat chat needs an interactive terminal; use docchat serve instead")

type chatCommander struct {
	flags  app.Flags
	model  string
	dbPath string

	isTerminal func() bool
}

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{
		isTerminal: func() bool {
			return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
		},
	}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context())
		},
	}

	cmder.flags.Bind(cmd)
	cmd.Flags().StringVarP(&cmder.model, "model", "m", "", "Model to start with (default: first listed model)")
	cmd.Flags().StringVar(&cmder.dbPath, "db", "", "Path to SQLite transcript archive (default: no archive)")

	return cmd
}

func (c *chatCommander) run(ctx context.Context) error {
	if !c.isTerminal() {
		return errNotTerminal
	}

	cfg, err := c.flags.Load()
	if err != nil {
		return err
	}

	a := app.New(cfg, true)
	defer a.Close()

	var opts []conversation.Option
	if c.dbPath != "" {
		storer, err := app.OpenArchive(c.dbPath)
		if err != nil {
			return err
		}
		defer storer.Close()
		opts = append(opts, conversation.WithRecorder(merkle.NewRecorder(storer)))
	}

	model := c.model
	if model == "" {
		model = a.Catalog.Default(ctx)
	}
	a.Logger.Info("chat client starting", zap.String("model", model))

	return tui.Run(ctx, tui.Options{
		Processor: a.NewProcessor(opts...),
		Catalog:   a.Catalog,
		Logger:    a.Logger,
		Model:     model,
	})
}
