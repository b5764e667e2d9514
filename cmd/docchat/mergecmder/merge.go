package mergecmder

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/docchat/cmd/docchat/sqlitepath"
	"github.com/papercomputeco/docchat/pkg/merkle"
)

const mergeLongDesc string = `Merge one or more transcript archives into a target archive.

Archives are content-addressed, so merging is a plain union: turns that
already exist in the target are skipped (deduped by hash), and different
answers to the same conversation become branches.

Examples:
  docchat merge laptop.sqlite desktop.sqlite
  docchat merge --sqlite /tmp/merged.sqlite ~/alice/archive.sqlite ~/bob/archive.sqlite`

const mergeShortDesc string = "Merge transcript archives"

type mergeCommander struct {
	sqlitePath string
}

func NewMergeCmd() *cobra.Command {
	cmder := &mergeCommander{}

	cmd := &cobra.Command{
		Use:   "merge [sources...]",
		Short: mergeShortDesc,
		Long:  mergeLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd, args)
		},
	}

	cmd.Flags().StringVarP(&cmder.sqlitePath, "sqlite", "s", "", "Path to target archive (default: $DOCCHAT_DB)")

	return cmd
}

func (c *mergeCommander) run(ctx context.Context, cmd *cobra.Command, sources []string) error {
	targetPath, err := sqlitepath.ResolveSQLitePath(c.sqlitePath)
	if err != nil {
		return fmt.Errorf("could not resolve target archive: %w", err)
	}

	target, err := merkle.NewSQLiteStorer(targetPath)
	if err != nil {
		return fmt.Errorf("could not open target archive %s: %w", targetPath, err)
	}
	defer target.Close()

	var totalNew, totalDuped int

	for _, srcPath := range sources {
		srcNew, srcDuped, err := mergeSource(ctx, target, srcPath)
		if err != nil {
			return err
		}

		totalNew += srcNew
		totalDuped += srcDuped

		fmt.Fprintf(cmd.OutOrStdout(), "  %s: %d new, %d already existed\n", srcPath, srcNew, srcDuped)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Merged %d new nodes from %d sources (%d already existed) into %s\n",
		totalNew, len(sources), totalDuped, targetPath)

	return nil
}

func mergeSource(ctx context.Context, target merkle.Storer, srcPath string) (newCount, dupCount int, err error) {
	source, err := merkle.NewSQLiteStorer(srcPath)
	if err != nil {
		return 0, 0, fmt.Errorf("could not open source archive %s: %w", srcPath, err)
	}
	defer source.Close()

	// List is in insertion order, so parents land before their children
	nodes, err := source.List(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("could not list nodes from %s: %w", srcPath, err)
	}

	for _, n := range nodes {
		if !n.Verify() {
			return newCount, dupCount, fmt.Errorf("node %s in %s does not match its content", n.Hash, srcPath)
		}

		isNew, err := target.Put(ctx, n)
		if err != nil {
			return newCount, dupCount, fmt.Errorf("could not put node %s: %w", n.Hash, err)
		}
		if isNew {
			newCount++
		} else {
			dupCount++
		}
	}

	return newCount, dupCount, nil
}
