package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/docchat/cmd/docchat/chatcmder"
	"github.com/papercomputeco/docchat/cmd/docchat/mergecmder"
	"github.com/papercomputeco/docchat/cmd/docchat/modelscmder"
	"github.com/papercomputeco/docchat/cmd/docchat/pushcmder"
	"github.com/papercomputeco/docchat/cmd/docchat/servecmder"
)

const docchatLongDesc string = `docchat is a chat front end for OpenAI-compatible models.

Ask questions directly, or attach a PDF and its text is sent along with
your message. Use it from the browser (serve) or the terminal (chat).

Configuration is read from docchat.toml (or --config / DOCCHAT_CONFIG),
then .env, then the environment: OPENAI_API_KEY, OPENAI_BASE_URL, PORT,
DOCCHAT_DB, DOCCHAT_DEBUG and DOCCHAT_LOG_FILE.`

const docchatShortDesc string = "Chat with OpenAI models about your PDFs"

func NewDocchatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "docchat",
		Short:         docchatShortDesc,
		Long:          docchatLongDesc,
		SilenceUsage:  true,
	}

	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(modelscmder.NewModelsCmd())
	cmd.AddCommand(mergecmder.NewMergeCmd())
	cmd.AddCommand(pushcmder.NewPushCmd())

	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewDocchatCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
