package cli

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	errs "github.com/calavorn/realmmap/pkg/errors"
	"github.com/calavorn/realmmap/pkg/layers"
	"github.com/calavorn/realmmap/pkg/region"
)

// assetsCommand lists the overlay images a tier needs.
func (c *CLI) assetsCommand() *cobra.Command {
	var (
		flags  sourceFlags
		check  string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "assets <tier>",
		Short: "List the overlay images a tier needs",
		Long: `List the overlay images a tier needs.

Every region needs a collapsed layer and its hover variant; regions with
subjects also need a nested layer and its hover variant. With --check, the
paths are looked up under a local directory laid out the way the server
serves it, and missing files are reported.`,
		Example: `  realmmap assets duchy
  realmmap assets county --check ./public/regions`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: tierArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, cfg, err := c.loadGraph(cmd, flags, args[0])
			if err != nil {
				return err
			}
			a := cfg.LayerAssets()
			paths := a.Expected(g)

			if check == "" {
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), paths)
				}
				out := newPrinter(cmd.OutOrStdout())
				for _, p := range paths {
					out.line(p)
				}
				return nil
			}

			missing := missingAssets(a, check, paths)
			if asJSON {
				if err := writeJSON(cmd.OutOrStdout(), missing); err != nil {
					return err
				}
			} else {
				reportAssets(newPrinter(cmd.OutOrStdout()), g, check, len(paths), missing)
			}
			if len(missing) > 0 {
				return errs.New(errs.ErrCodeNotFound, "%d of %d overlay images missing", len(missing), len(paths))
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&check, "check", "", "report overlays missing from this directory")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

// missingAssets returns the paths with no file under dir. Paths are
// resolved relative to the overlay base, matching how the server mounts
// the assets directory; a path that would leave dir counts as missing.
func missingAssets(a layers.Assets, dir string, paths []string) []string {
	missing := []string{}
	for _, p := range paths {
		rel := strings.TrimPrefix(strings.TrimPrefix(p, a.OverlayBase), "/")
		if errs.ValidatePath(rel) != nil {
			missing = append(missing, p)
			continue
		}
		if _, err := os.Stat(filepath.Join(dir, filepath.FromSlash(rel))); err != nil {
			missing = append(missing, p)
		}
	}
	return missing
}

func reportAssets(p printer, g *region.Graph, dir string, total int, missing []string) {
	if len(missing) == 0 {
		p.success("All %d %s overlays present", total, g.Tier())
		p.detail("Directory: %s", dir)
		return
	}
	p.warning("%d of %d %s overlays missing", len(missing), total, g.Tier())
	for _, m := range missing {
		p.file(m)
	}
}
