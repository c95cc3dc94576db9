package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	errs "github.com/calavorn/realmmap/pkg/errors"
	"github.com/calavorn/realmmap/pkg/hover"
	"github.com/calavorn/realmmap/pkg/layers"
	"github.com/calavorn/realmmap/pkg/region"
)

// regionReport is the JSON form of a single region.
type regionReport struct {
	hover.Info
	Chain       []string `json:"chain"`
	Depth       int      `json:"depth"`
	SubjectIDs  []string `json:"subject_ids"`
	Descendants []string `json:"descendants,omitempty"`
}

// tierReport is the JSON form of a whole tier.
type tierReport struct {
	Tier    region.Tier    `json:"tier"`
	Regions int            `json:"regions"`
	Realms  []string       `json:"realms"`
	Issues  []region.Issue `json:"issues"`
	Layers  struct {
		Collapsed int `json:"collapsed"`
		Nested    int `json:"nested"`
	} `json:"default_layers"`
}

// inspectCommand shows a tier summary or one region's info panel.
func (c *CLI) inspectCommand() *cobra.Command {
	var (
		flags       sourceFlags
		asJSON      bool
		descendants bool
	)
	cmd := &cobra.Command{
		Use:   "inspect <tier> [region]",
		Short: "Show a tier summary or a region's details",
		Long: `Show a tier summary or a region's details.

Without a region, lists the tier's independent realms. With a region id,
prints the same panel the explorer shows on hover, plus the overlord chain.
--descendants also lists every region below it.`,
		Example: `  realmmap inspect county
  realmmap inspect duchy d_york --json
  realmmap inspect county k_albion --descendants`,
		Args:              cobra.RangeArgs(1, 2),
		ValidArgsFunction: tierArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, cfg, err := c.loadGraph(cmd, flags, args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(args) == 1 {
				return printTier(w, g, asJSON)
			}
			r := hover.NewResolver(g, hover.WithWorld(cfg.Display.World), hover.WithAssets(cfg.LayerAssets()))
			return printRegion(w, g, r, args[1], asJSON, descendants)
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	cmd.Flags().BoolVar(&descendants, "descendants", false, "list every region below the given one")
	return cmd
}

func printTier(w io.Writer, g *region.Graph, asJSON bool) error {
	collapsed, nested := layers.Default(g).Count()
	if asJSON {
		rep := tierReport{Tier: g.Tier(), Regions: g.Len(), Realms: g.Roots(), Issues: g.Issues()}
		rep.Layers.Collapsed, rep.Layers.Nested = collapsed, nested
		if rep.Issues == nil {
			rep.Issues = []region.Issue{}
		}
		return writeJSON(w, rep)
	}

	p := newPrinter(w)
	p.line(StyleTitle.Render(g.Tier().Title() + " tier"))
	p.tierStats(g)
	p.newline()

	var rows [][]string
	for _, id := range g.Roots() {
		r, _ := g.Region(id)
		rows = append(rows, []string{
			id,
			r.DisplayName(),
			hover.RealmSize(r.Size, r.SubjectSize),
			strconv.Itoa(len(g.Subjects(id))),
		})
	}
	p.table([]string{"Realm", "Name", "Size", "Subjects"}, rows)
	p.detail("%d layers shown by default (%d collapsed, %d nested)", collapsed+nested, collapsed, nested)
	if len(g.Issues()) > 0 {
		p.nextStep("See consistency issues", "realmmap validate "+g.Tier().String())
	}
	return nil
}

func printRegion(w io.Writer, g *region.Graph, r *hover.Resolver, id string, asJSON, descendants bool) error {
	info, ok := r.Info(id)
	if !ok {
		return errs.New(errs.ErrCodeRegionNotFound, "no region %q in the %s tier", id, g.Tier())
	}
	chain := g.Chain(id)
	var below []string
	if descendants {
		below = slices.Collect(g.Descendants(id))
	}
	if asJSON {
		subjects := g.Subjects(id)
		if subjects == nil {
			subjects = []string{}
		}
		return writeJSON(w, regionReport{Info: info, Chain: chain, Depth: g.Depth(id), SubjectIDs: subjects, Descendants: below})
	}

	names := make([]string, len(chain))
	for i, cid := range chain {
		cr, _ := g.Region(cid)
		names[i] = cr.DisplayName()
	}
	slices.Reverse(names)

	p := newPrinter(w)
	p.line(StyleTitle.Render(info.Title) + " " + StyleDim.Render("("+id+")"))
	p.keyValue("Tier", info.Tier)
	p.keyValue("Colour", info.Color)
	p.keyValue("Standing", info.Standing)
	p.keyValue("Realm size", info.RealmSize)
	p.keyValue("Hierarchy", strings.Join(names, " "+iconArrow+" "))
	if len(info.Subjects) > 0 {
		p.keyValue("Subjects", strings.Join(info.Subjects, ", "))
	}
	if info.Banner != "" {
		p.keyValue("Banner", info.Banner)
	}
	p.newline()
	p.line(info.Description)
	if descendants {
		p.newline()
		if len(below) == 0 {
			p.detail("No regions below %s", id)
			return nil
		}
		rows := make([][]string, len(below))
		for i, did := range below {
			dr, _ := g.Region(did)
			rows[i] = []string{did, dr.DisplayName(), strconv.Itoa(g.Depth(did) - g.Depth(id))}
		}
		p.table([]string{"Region", "Name", "Levels below"}, rows)
	}
	return nil
}

// validateCommand reports consistency issues in a tier.
func (c *CLI) validateCommand() *cobra.Command {
	var flags sourceFlags
	cmd := &cobra.Command{
		Use:   "validate <tier>",
		Short: "Check a tier for hierarchy and colour issues",
		Long: `Check a tier for hierarchy and colour issues.

Reports dangling overlords and subjects, regions listed under more than one
overlord, overlord cycles and duplicate colours. Exits non-zero when any
issue is found.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: tierArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, _, err := c.loadGraph(cmd, flags, args[0])
			if err != nil {
				return err
			}
			p := newPrinter(cmd.OutOrStdout())
			issues := g.Issues()
			if len(issues) == 0 {
				p.success("%s tier is consistent (%d regions)", g.Tier().Title(), g.Len())
				return nil
			}

			rows := make([][]string, len(issues))
			for i, is := range issues {
				rows[i] = []string{string(is.Kind), is.Region, is.String()}
			}
			p.warning("%d issues in the %s tier", len(issues), g.Tier())
			p.table([]string{"Kind", "Region", "Detail"}, rows)
			return errs.New(errs.ErrCodeInvalidDataset, "%s tier has %d consistency issues", g.Tier(), len(issues))
		},
	}
	flags.register(cmd)
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
