package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func (a *app) newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <collection> <id-or-name>",
		Short: "Delete an index by handle, id or name",
		Example: `  indexctl delete users 1234
  indexctl delete users users/1234
  indexctl delete users by_email`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			coll, ident := args[0], args[1]
			c, err := a.newClient(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			if isName(ident) {
				// Names resolve against the registry, which starts empty.
				if _, err := c.Snapshot(cmd.Context(), coll); err != nil {
					return err
				}
			}
			deleted, err := c.DeleteIndex(cmd.Context(), coll, ident)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if a.output == outputJSON {
				return writeJSON(out, map[string]any{"collection": coll, "index": ident, "deleted": deleted})
			}
			if deleted {
				fmt.Fprintf(out, "deleted %s\n", ident)
			} else {
				fmt.Fprintf(out, "%s not found, nothing deleted\n", ident)
			}
			return nil
		},
	}
}

// isName reports whether ident cannot be a handle or a scoped id.
func isName(ident string) bool {
	if strings.Contains(ident, "/") {
		return false
	}
	for _, r := range ident {
		if r < '0' || r > '9' {
			return true
		}
	}
	return false
}
