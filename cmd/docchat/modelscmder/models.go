package modelscmder

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/docchat/cmd/docchat/app"
)

const modelsLongDesc string = `List the models offered by the provider.

When the provider cannot be reached or rejects the API key, the single
fallback model gpt-3.5-turbo is listed instead.

Examples:
  docchat models
  docchat models --json
  docchat models --base-url http://localhost:11434/v1`

const modelsShortDesc string = "List available models"

type modelsCommander struct {
	flags  app.Flags
	asJSON bool
}

func NewModelsCmd() *cobra.Command {
	cmder := &modelsCommander{}

	cmd := &cobra.Command{
		Use:   "models",
		Short: modelsShortDesc,
		Long:  modelsLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmder.flags.Bind(cmd)
	cmd.Flags().BoolVar(&cmder.asJSON, "json", false, "Print the list as JSON")

	return cmd
}

func (c *modelsCommander) run(ctx context.Context, cmd *cobra.Command) error {
	cfg, err := c.flags.Load()
	if err != nil {
		return err
	}

	// logs would interleave with the listing
	a := app.New(cfg, true)
	defer a.Close()

	models := a.Catalog.List(ctx)

	if c.asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"models": models})
	}

	for _, id := range models {
		fmt.Fprintln(cmd.OutOrStdout(), id)
	}
	return nil
}
