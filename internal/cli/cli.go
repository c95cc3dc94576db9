package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/calavorn/realmmap/internal/config"
	"github.com/calavorn/realmmap/pkg/cache"
	errs "github.com/calavorn/realmmap/pkg/errors"
	"github.com/calavorn/realmmap/pkg/explorer"
	"github.com/calavorn/realmmap/pkg/region"
	"github.com/calavorn/realmmap/pkg/source"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "realmmap"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// configPath is set by the persistent --config flag.
	configPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// =============================================================================
// Source Flags
// =============================================================================

// sourceFlags are the data source overrides shared by every command that
// reads a tier.
type sourceFlags struct {
	url     string
	dir     string
	noCache bool
	refresh bool
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.url, "url", "", "read tiers from this backend URL")
	cmd.Flags().StringVar(&f.dir, "dir", "", "read tiers from JSON files in this directory")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable the response cache")
	cmd.Flags().BoolVar(&f.refresh, "refresh", false, "ignore cached responses and fetch again")
}

// apply layers the flags over the loaded configuration.
func (f sourceFlags) apply(cfg *config.Config) {
	switch {
	case f.dir != "":
		cfg.Source.Kind = source.KindDir
		cfg.Source.Dir = f.dir
	case f.url != "":
		cfg.Source.Kind = source.KindHTTP
		cfg.Source.URL = f.url
	}
	if f.noCache {
		cfg.Cache.Backend = cache.BackendNone
	}
}

// =============================================================================
// Factories
// =============================================================================

// loadConfig reads the configuration named by --config, or realmmap.toml
// when present.
func (c *CLI) loadConfig(f sourceFlags) (config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return config.Config{}, err
	}
	f.apply(&cfg)
	c.Logger.Debug("config loaded", "source", cfg.Source.Kind, "cache", cfg.Cache.Backend)
	return cfg, nil
}

// openCache opens the configured cache backend. Failing to locate the
// default cache directory degrades to no cache.
func (c *CLI) openCache(ctx context.Context, cfg config.Config) (cache.Cache, error) {
	dir, err := cacheDir()
	if err != nil && cfg.Cache.Dir == "" && cfg.Cache.Backend != cache.BackendRedis {
		c.Logger.Warn("no cache directory, caching disabled", "err", err)
		return cache.NewNullCache(), nil
	}
	return cache.Open(ctx, cfg.CacheOptions(dir))
}

// openSource opens the configured data source. The returned close function
// releases both the source and its cache.
func (c *CLI) openSource(ctx context.Context, cfg config.Config, f sourceFlags) (source.Source, func(), error) {
	ch, err := c.openCache(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	o := cfg.SourceOptions()
	o.Cache = ch
	o.Refresh = f.refresh
	src, err := source.Open(ctx, o)
	if err != nil {
		ch.Close()
		return nil, nil, err
	}
	c.Logger.Debug("source opened", "location", src.Location())
	return src, func() {
		src.Close()
		ch.Close()
	}, nil
}

// loadGraph fetches a tier's dataset and builds its region graph. The base
// map is not needed and not fetched.
func (c *CLI) loadGraph(cmd *cobra.Command, f sourceFlags, name string) (*region.Graph, config.Config, error) {
	ctx := cmd.Context()
	tier, err := region.ParseTier(name)
	if err != nil {
		return nil, config.Config{}, err
	}
	cfg, err := c.loadConfig(f)
	if err != nil {
		return nil, config.Config{}, err
	}
	src, closeSrc, err := c.openSource(ctx, cfg, f)
	if err != nil {
		return nil, config.Config{}, err
	}
	defer closeSrc()

	prog := newProgress(c.Logger)
	spin := newSpinner(ctx, cmd.ErrOrStderr(), "Loading "+tier.String()+" tier...")
	spin.Start()
	ds, err := src.Dataset(ctx, tier)
	spin.Stop()
	if err != nil {
		return nil, config.Config{}, err
	}
	g := region.New(tier, ds)
	prog.done("Loaded "+tier.Title()+" tier", "regions", g.Len(), "issues", len(g.Issues()))
	return g, cfg, nil
}

// openRegistry opens the configured source behind a bundle registry for
// commands that drive an explorer.
func (c *CLI) openRegistry(cmd *cobra.Command, f sourceFlags) (*explorer.Registry, config.Config, func(), error) {
	cfg, err := c.loadConfig(f)
	if err != nil {
		return nil, config.Config{}, nil, err
	}
	src, closeSrc, err := c.openSource(cmd.Context(), cfg, f)
	if err != nil {
		return nil, config.Config{}, nil, err
	}
	return explorer.NewRegistry(src, cfg.ExplorerSettings(), c.Logger), cfg, closeSrc, nil
}

// tierArgs completes tier names for positional arguments.
func tierArgs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var names []string
	for _, t := range region.Tiers() {
		names = append(names, t.String())
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/realmmap/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// stateDir returns where the terminal explorer keeps its resume file
// (~/.config/realmmap/).
func stateDir() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errs.Wrap(errs.ErrCodeInternal, err, "locate home directory")
	}
	return filepath.Join(home, ".config", appName), nil
}
