package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) newLoadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load <collection> [collection...]",
		Short: "Load the indexes of collections into server memory",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.newClient(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			results := make(map[string]bool, len(args))
			for _, coll := range args {
				ok, err := c.LoadIndexes(cmd.Context(), coll)
				if err != nil {
					return err
				}
				results[coll] = ok
			}

			out := cmd.OutOrStdout()
			if a.output == outputJSON {
				return writeJSON(out, results)
			}
			for _, coll := range args {
				if results[coll] {
					fmt.Fprintf(out, "loaded %s\n", coll)
				} else {
					fmt.Fprintf(out, "%s: store reported no load\n", coll)
				}
			}
			return nil
		},
	}
}
