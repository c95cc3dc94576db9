package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/calavorn/realmmap/pkg/cache"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the tier data cache",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached datasets and base maps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig(sourceFlags{})
			if err != nil {
				return err
			}
			dir, err := cacheDir()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			opts := cfg.CacheOptions(dir)
			p := newPrinter(cmd.OutOrStdout())

			switch opts.Backend {
			case cache.BackendRedis:
				p.info("Redis entries expire on their own; nothing to clear")
				return nil
			case cache.BackendNone:
				p.info("Caching is disabled")
				return nil
			}

			if _, err := os.Stat(opts.Dir); os.IsNotExist(err) {
				p.info("Cache is empty")
				return nil
			}

			var cl interface {
				Clear() error
				Close() error
			}
			if opts.Backend == cache.BackendBadger {
				cl, err = cache.OpenBadger(opts.Dir)
			} else {
				cl, err = cache.NewFileCache(opts.Dir)
			}
			if err != nil {
				return err
			}
			defer cl.Close()
			if err := cl.Clear(); err != nil {
				return fmt.Errorf("clear cache: %w", err)
			}

			p.success("Cleared the %s cache", opts.Backend)
			p.detail("Directory: %s", opts.Dir)
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig(sourceFlags{})
			if err != nil {
				return err
			}
			dir, err := cacheDir()
			if err != nil {
				return fmt.Errorf("get cache dir: %w", err)
			}
			newPrinter(cmd.OutOrStdout()).line(cfg.CacheOptions(dir).Dir)
			return nil
		},
	}
}
