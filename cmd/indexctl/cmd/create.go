package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/indexkit/pkg/index"
)

func (a *app) newCreateCmd() *cobra.Command {
	var (
		kind        string
		spec        index.Spec
		minLength   int
		expireAfter int
		deduplicate bool
	)

	cmd := &cobra.Command{
		Use:   "create <collection>",
		Short: "Create an index, or confirm an equivalent one exists",
		Example: `  indexctl create users --kind hash --field email --unique
  indexctl create places --kind geo --field location --geo-json
  indexctl create sessions --kind ttl --field createdAt --expire-after 3600`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec.Kind = index.ParseKind(kind)
			if spec.Kind == index.KindUnknown {
				return fmt.Errorf("unknown index kind %q", kind)
			}
			flags := cmd.Flags()
			if flags.Changed("min-length") {
				spec.MinLength = &minLength
			}
			if flags.Changed("expire-after") {
				spec.ExpireAfter = &expireAfter
			}
			if flags.Changed("deduplicate") {
				spec.Deduplicate = &deduplicate
			}

			c, err := a.newClient(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			d, err := c.CreateIndex(cmd.Context(), args[0], spec)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if a.output == outputJSON {
				return writeJSON(out, d)
			}
			verb := "created"
			if !d.IsNew {
				verb = "exists"
			}
			fmt.Fprintf(out, "%s %s (%s on %v)\n", verb, d.ID, d.Type, d.Fields)
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "Index kind: hash, skiplist, persistent, geo, fulltext, ttl")
	cmd.Flags().StringArrayVarP(&spec.Fields, "field", "f", nil, "Indexed attribute path (repeatable)")
	cmd.Flags().StringVar(&spec.Name, "name", "", "Index name")
	cmd.Flags().BoolVar(&spec.Unique, "unique", false, "Reject duplicate values")
	cmd.Flags().BoolVar(&spec.Sparse, "sparse", false, "Skip documents missing the attributes")
	cmd.Flags().BoolVar(&spec.GeoJSON, "geo-json", false, "Treat the field as a GeoJSON [lng, lat] pair")
	cmd.Flags().IntVar(&minLength, "min-length", 0, "Minimum word length for fulltext indexes")
	cmd.Flags().IntVar(&expireAfter, "expire-after", 0, "Seconds after the indexed timestamp a document expires")
	cmd.Flags().BoolVar(&deduplicate, "deduplicate", true, "Deduplicate array values")
	_ = cmd.MarkFlagRequired("kind")

	return cmd
}
