package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/indexkit/pkg/index"
)

func (a *app) newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <collection> [collection...]",
		Short: "List the indexes of one or more collections",
		Example: `  indexctl list users
  indexctl list users orders --output json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.newClient(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			results := make([][]index.Descriptor, len(args))
			g, ctx := errgroup.WithContext(cmd.Context())
			for i, coll := range args {
				g.Go(func() error {
					ds, err := c.ListIndexes(ctx, coll)
					if err != nil {
						return err
					}
					results[i] = ds
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if a.output == outputJSON {
				byCollection := make(map[string][]index.Descriptor, len(args))
				for i, coll := range args {
					byCollection[coll] = results[i]
				}
				return writeJSON(out, byCollection)
			}
			for i, coll := range args {
				if len(args) > 1 {
					fmt.Fprintf(out, "%s:\n", coll)
				}
				if err := printIndexes(out, a.output, results[i]); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
