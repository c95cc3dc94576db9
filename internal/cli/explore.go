package cli

import (
	"io"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/calavorn/realmmap/pkg/explorer"
	"github.com/calavorn/realmmap/pkg/region"
	"github.com/calavorn/realmmap/pkg/session"
)

// exploreCommand opens the interactive terminal explorer.
func (c *CLI) exploreCommand() *cobra.Command {
	var (
		flags sourceFlags
		fresh bool
	)
	cmd := &cobra.Command{
		Use:   "explore [tier]",
		Short: "Explore a tier interactively in the terminal",
		Long: `Explore a tier interactively in the terminal.

Move the mouse over the map to see which realm a region belongs to; click
to drill into it. Clicking a region outside the current branch starts over
from the top. The last position is saved and restored on the next run
unless --fresh is given or another tier is named.`,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: tierArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			tier := region.TierCounty
			if len(args) == 1 {
				t, err := region.ParseTier(args[0])
				if err != nil {
					return err
				}
				tier = t
			}

			reg, _, closeSrc, err := c.openRegistry(cmd, flags)
			if err != nil {
				return err
			}
			defer closeSrc()

			resume := c.openResume()
			var restore *explorer.Saved
			if resume != nil && !fresh {
				if saved, ok, err := resume.Load(ctx); err != nil {
					c.Logger.Warn("ignoring saved position", "err", err)
				} else if ok && (len(args) == 0 || saved.Tier == tier) {
					restore = &saved
				}
			}

			// Log lines would tear the alternate screen.
			c.Logger.SetOutput(io.Discard)
			x := explorer.New(reg)
			p := tea.NewProgram(
				NewExploreModel(ctx, x, tier, restore),
				tea.WithAltScreen(),
				tea.WithMouseAllMotion(),
				tea.WithContext(ctx),
			)
			final, err := p.Run()
			c.Logger.SetOutput(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			if m, ok := final.(ExploreModel); ok && resume != nil {
				if err := resume.Save(ctx, m.Saved()); err != nil {
					c.Logger.Warn("could not save position", "err", err)
				}
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&fresh, "fresh", false, "start from the top instead of the saved position")
	return cmd
}

// resumeTTL is how long the terminal explorer remembers its position.
const resumeTTL = 30 * 24 * time.Hour

// openResume opens the resume store, or returns nil when there is nowhere
// to keep it.
func (c *CLI) openResume() *session.ResumeStore {
	dir, err := stateDir()
	if err != nil {
		c.Logger.Debug("no state directory", "err", err)
		return nil
	}
	rs, err := session.NewResumeStore(filepath.Join(dir, "sessions"), resumeTTL)
	if err != nil {
		c.Logger.Debug("no resume store", "err", err)
		return nil
	}
	c.Logger.Debug("resume file", "path", rs.Path())
	return rs
}
