package cli

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/calavorn/realmmap/internal/config"
	"github.com/calavorn/realmmap/internal/metrics"
	"github.com/calavorn/realmmap/internal/server"
	"github.com/calavorn/realmmap/pkg/cache"
	"github.com/calavorn/realmmap/pkg/explorer"
	"github.com/calavorn/realmmap/pkg/region"
	"github.com/calavorn/realmmap/pkg/session"
)

// serveCommand runs the HTTP and websocket API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		flags     sourceFlags
		addr      string
		assetsDir string
		rpm       int
		preload   []string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve explorer sessions over HTTP and websockets",
		Long: `Serve explorer sessions over HTTP and websockets.

Each browser tab creates a session and sends pointer moves and clicks; the
server answers with the overlays to draw. Tier data is loaded once and
shared by every session. Prometheus metrics are exposed on /metrics.`,
		Example: `  realmmap serve --addr :8080 --preload county,duchy
  realmmap serve --dir ./data --assets-dir ./public/regions`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			cfg, err := c.loadConfig(flags)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			if cmd.Flags().Changed("rate-limit") {
				cfg.Server.RateLimitRPM = rpm
			}
			if assetsDir != "" {
				cfg.Assets.Dir = assetsDir
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			m := metrics.New(reg)
			m.Install()

			src, closeSrc, err := c.openSource(ctx, cfg, flags)
			if err != nil {
				return err
			}
			defer closeSrc()

			store, closeStore, err := openSessionStore(cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			registry := explorer.NewRegistry(src, cfg.ExplorerSettings(), logger)
			if err := warm(ctx, registry, preload); err != nil {
				return err
			}

			srv := server.New(server.Options{
				Registry:     registry,
				Store:        store,
				Metrics:      m,
				Logger:       logger,
				Assets:       cfg.LayerAssets(),
				AssetsDir:    cfg.Assets.Dir,
				SessionTTL:   cfg.Server.SessionTTL.Duration,
				RateLimitRPM: cfg.Server.RateLimitRPM,
			})
			logger.Info("serving", "source", src.Location(), "sessions", cfg.Server.SessionStore)
			return srv.Run(ctx, cfg.Server.Addr)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&assetsDir, "assets-dir", "", "serve overlay images from this directory")
	cmd.Flags().IntVar(&rpm, "rate-limit", 600, "requests per minute per client (0 disables)")
	cmd.Flags().StringSliceVar(&preload, "preload", nil, "tiers to load before accepting requests")
	return cmd
}

// openSessionStore opens the configured session store. The server closes
// the store on shutdown; the returned function releases anything the store
// does not own.
func openSessionStore(cfg config.Config) (session.Store, func(), error) {
	switch cfg.Server.SessionStore {
	case "redis":
		client := cache.NewRedisClient(cache.RedisOptions{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		return session.NewRedisStore(client), func() { client.Close() }, nil
	case "memory", "":
		return session.NewMemoryStore(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown session store %q", cfg.Server.SessionStore)
}

// warm loads tiers into the registry so the first session does not wait.
func warm(ctx context.Context, reg *explorer.Registry, names []string) error {
	for _, name := range names {
		tier, err := region.ParseTier(name)
		if err != nil {
			return err
		}
		if _, err := reg.Bundle(ctx, tier); err != nil {
			return fmt.Errorf("preload %s: %w", tier, err)
		}
	}
	return nil
}
