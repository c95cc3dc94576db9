package cli

import (
	"github.com/spf13/cobra"

	errs "github.com/calavorn/realmmap/pkg/errors"
	"github.com/calavorn/realmmap/pkg/region"
	"github.com/calavorn/realmmap/pkg/source"
)

// importCommand copies tier datasets from JSON files into MongoDB.
func (c *CLI) importCommand() *cobra.Command {
	var (
		from     string
		mongoURI string
		strict   bool
	)
	cmd := &cobra.Command{
		Use:   "import <tier>...",
		Short: "Copy tier datasets from JSON files into MongoDB",
		Long: `Copy tier datasets from JSON files into MongoDB.

Reads {tier}.json from --from and replaces the tier's document in the
configured collection. Datasets with consistency issues are imported with a
warning unless --strict is set.`,
		Example: `  realmmap import county duchy --from ./data
  realmmap import kingdom --from ./data --mongo-uri mongodb://localhost:27017`,
		Args:              cobra.MinimumNArgs(1),
		ValidArgsFunction: tierArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			tiers := make([]region.Tier, len(args))
			for i, a := range args {
				t, err := region.ParseTier(a)
				if err != nil {
					return err
				}
				tiers[i] = t
			}

			cfg, err := c.loadConfig(sourceFlags{})
			if err != nil {
				return err
			}
			if mongoURI != "" {
				cfg.Source.MongoURI = mongoURI
			}

			dir, err := source.NewDirSource(from, "")
			if err != nil {
				return err
			}
			dst, err := source.OpenMongo(ctx, source.MongoOptions{
				URI:        cfg.Source.MongoURI,
				Database:   cfg.Source.MongoDatabase,
				Collection: cfg.Source.MongoCollection,
			})
			if err != nil {
				return err
			}
			defer dst.Close()

			p := newPrinter(cmd.OutOrStdout())
			for _, tier := range tiers {
				ds, err := dir.Dataset(ctx, tier)
				if err != nil {
					return err
				}
				if n := len(region.New(tier, ds).Issues()); n > 0 {
					if strict {
						return errs.New(errs.ErrCodeInvalidDataset, "%s tier has %d consistency issues", tier, n)
					}
					p.warning("%s tier has %d consistency issues", tier, n)
				}
				if err := dst.PutDataset(ctx, tier, ds); err != nil {
					return err
				}
				p.success("Imported %d %s regions", len(ds), tier)
			}
			p.detail("Collection: %s", dst.Location())
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", ".", "directory holding {tier}.json files")
	cmd.Flags().StringVar(&mongoURI, "mongo-uri", "", "MongoDB connection URI (overrides config)")
	cmd.Flags().BoolVar(&strict, "strict", false, "refuse datasets with consistency issues")
	return cmd
}
