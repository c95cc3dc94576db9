package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/calavorn/realmmap/pkg/drill"
	errs "github.com/calavorn/realmmap/pkg/errors"
	"github.com/calavorn/realmmap/pkg/explorer"
	"github.com/calavorn/realmmap/pkg/region"
)

// point is one scripted pointer target: a display position, or a region
// id written as @id.
type point struct {
	X, Y   float64
	Region string
}

func (p point) String() string {
	if p.Region != "" {
		return "@" + p.Region
	}
	return strconv.FormatFloat(p.X, 'f', -1, 64) + "," + strconv.FormatFloat(p.Y, 'f', -1, 64)
}

func parsePoint(s string) (point, error) {
	if id, ok := strings.CutPrefix(s, "@"); ok {
		if err := errs.ValidateRegionID(id); err != nil {
			return point{}, err
		}
		return point{Region: id}, nil
	}
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return point{}, errs.New(errs.ErrCodeInvalidInput, "point %q: want x,y or @region", s)
	}
	x, errX := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	y, errY := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if errX != nil || errY != nil {
		return point{}, errs.New(errs.ErrCodeInvalidInput, "point %q: coordinates must be numbers", s)
	}
	return point{X: x, Y: y}, nil
}

// clickStep is the outcome of one scripted click.
type clickStep struct {
	Point       string      `json:"point"`
	Hovered     string      `json:"hovered,omitempty"`
	Target      string      `json:"target,omitempty"`
	Reset       bool        `json:"reset"`
	Changed     bool        `json:"changed"`
	Phase       drill.Phase `json:"phase"`
	Stack       []string    `json:"stack"`
	Breadcrumbs []string    `json:"breadcrumbs"`
}

// clickCommand replays a click sequence against a tier.
func (c *CLI) clickCommand() *cobra.Command {
	var (
		flags         sourceFlags
		width, height int
		asJSON        bool
	)
	cmd := &cobra.Command{
		Use:   "click <tier> <point>...",
		Short: "Replay a click sequence and print each transition",
		Long: `Replay a click sequence and print each transition.

Each point is a display position "x,y" or a region id "@id". The pointer
moves there, resolves the hover, and clicks. Positions are measured on a
display of --width by --height pixels, which defaults to the base map's
native size.`,
		Example: `  realmmap click county 410,220 415,224
  realmmap click duchy @k_albion @d_york --json`,
		Args:              cobra.MinimumNArgs(2),
		ValidArgsFunction: tierArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tier, err := region.ParseTier(args[0])
			if err != nil {
				return err
			}
			points := make([]point, len(args)-1)
			for i, a := range args[1:] {
				if points[i], err = parsePoint(a); err != nil {
					return err
				}
			}

			cfg, err := c.loadConfig(flags)
			if err != nil {
				return err
			}
			src, closeSrc, err := c.openSource(cmd.Context(), cfg, flags)
			if err != nil {
				return err
			}
			defer closeSrc()

			// One tier, loaded once: no registry needed.
			x := explorer.New(explorer.SourceLoader{Source: src, Settings: cfg.ExplorerSettings()})
			if err := x.Load(cmd.Context(), tier); err != nil {
				return err
			}
			m := x.Bundle().Map
			mw, mh := m.Size()
			c.Logger.Debug("base map", "format", m.Format(), "width", mw, "height", mh)
			if width <= 0 || height <= 0 {
				width, height = mw, mh
			}

			steps, err := replay(cmd.Context(), x, points, width, height)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), steps)
			}
			printSteps(newPrinter(cmd.OutOrStdout()), steps)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVar(&width, "width", 0, "display width the points are measured on")
	cmd.Flags().IntVar(&height, "height", 0, "display height the points are measured on")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

// replay hovers and clicks every point in order.
func replay(ctx context.Context, x *explorer.Explorer, points []point, w, h int) ([]clickStep, error) {
	steps := make([]clickStep, 0, len(points))
	for _, p := range points {
		var (
			snap explorer.Snapshot
			err  error
		)
		if p.Region != "" {
			snap, err = x.HoverRegion(ctx, p.Region)
		} else {
			snap, err = x.Move(ctx, p.X, p.Y, w, h)
		}
		if err != nil {
			return nil, err
		}
		step := clickStep{Point: p.String()}
		if snap.Hover != nil {
			step.Hovered = snap.Hover.Region
		}

		snap, tr, err := x.Click(ctx)
		if err != nil {
			return nil, err
		}
		step.Target = tr.Target
		step.Reset = tr.Reset
		step.Changed = tr.Changed()
		step.Phase = snap.Phase
		step.Stack = snap.Stack
		step.Breadcrumbs = snap.Breadcrumbs
		steps = append(steps, step)
	}
	return steps, nil
}

func printSteps(p printer, steps []clickStep) {
	for i, s := range steps {
		hovered := StyleDim.Render("nothing")
		if s.Hovered != "" {
			hovered = StyleHighlight.Render(s.Hovered)
		}
		p.line(fmt.Sprintf("%s %s hover %s", StyleDim.Render(fmt.Sprintf("%2d.", i+1)), s.Point, hovered))

		switch {
		case !s.Changed:
			p.detail("no change")
		case s.Reset:
			p.detail("reset, then drilled into %s", s.Target)
		default:
			p.detail("drilled into %s", s.Target)
		}
		crumbs := "(top level)"
		if len(s.Breadcrumbs) > 0 {
			crumbs = strings.Join(s.Breadcrumbs, " "+iconArrow+" ")
		}
		p.detail("%s · %s", s.Phase, crumbs)
	}
}
