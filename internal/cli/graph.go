package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/calavorn/realmmap/pkg/render/nodelink"
)

// graphCommand draws a tier's hierarchy with Graphviz.
func (c *CLI) graphCommand() *cobra.Command {
	var (
		flags  sourceFlags
		opts   nodelink.Options
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "graph <tier>",
		Short: "Draw a tier's overlord hierarchy",
		Long: `Draw a tier's overlord hierarchy as a node-link diagram.

Boxes are filled with each region's map colour and point at their subjects.
Regions with consistency issues are outlined in dashed red.`,
		Example: `  realmmap graph kingdom -f svg -o kingdom.svg
  realmmap graph county --root k_albion --depth 2 | dot -Tpng > albion.png`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: tierArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !nodelink.ValidFormat(format) {
				return fmt.Errorf("invalid format %q: must be one of %s", format, strings.Join(nodelink.Formats, ", "))
			}
			g, _, err := c.loadGraph(cmd, flags, args[0])
			if err != nil {
				return err
			}
			dot, err := nodelink.ToDOT(g, opts)
			if err != nil {
				return err
			}
			out, err := nodelink.Render(cmd.Context(), dot, format)
			if err != nil {
				return err
			}

			if output == "" && format == "dot" {
				_, err := cmd.OutOrStdout().Write(out)
				return err
			}
			if output == "" {
				output = g.Tier().String() + "." + format
			}
			if err := os.WriteFile(output, out, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			p := newPrinter(cmd.OutOrStdout())
			p.success("Drew the %s hierarchy", g.Tier())
			p.file(output)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", "dot", "output format: "+strings.Join(nodelink.Formats, ", "))
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout for dot, <tier>.<format> otherwise)")
	cmd.Flags().StringVar(&opts.Root, "root", "", "draw only this realm and its subjects")
	cmd.Flags().IntVar(&opts.MaxDepth, "depth", 0, "levels below the top to draw (0 for all)")
	cmd.Flags().BoolVar(&opts.Detailed, "detailed", false, "include ids and sizes in labels")
	return cmd
}
