// Package server exposes explorer sessions over HTTP and websockets.
//
// Every session owns an [explorer.Explorer]; tier bundles are shared
// between sessions through an [explorer.Registry]. Session state is saved
// to a [session.Store] after every event so another instance, or this one
// after a restart, can pick the session up again.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/calavorn/realmmap/internal/metrics"
	"github.com/calavorn/realmmap/pkg/explorer"
	"github.com/calavorn/realmmap/pkg/layers"
	"github.com/calavorn/realmmap/pkg/session"
)

// Options configures a Server.
type Options struct {
	Registry *explorer.Registry
	Store    session.Store
	Metrics  *metrics.Metrics
	Logger   *log.Logger

	Assets    layers.Assets
	AssetsDir string // served under Assets.OverlayBase when set

	SessionTTL   time.Duration
	RateLimitRPM int // 0 disables rate limiting
}

// Server is the realmmap HTTP API.
type Server struct {
	opts     Options
	registry *explorer.Registry
	store    session.Store
	metrics  *metrics.Metrics
	logger   *log.Logger
	live     *liveSessions
	limiter  *limiter
}

// New creates a server. Registry is required; a nil Store keeps sessions
// in memory and a nil Metrics disables /metrics.
func New(o Options) *Server {
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	if o.Store == nil {
		o.Store = session.NewMemoryStore()
	}
	if o.SessionTTL <= 0 {
		o.SessionTTL = session.DefaultTTL
	}
	s := &Server{
		opts:     o,
		registry: o.Registry,
		store:    o.Store,
		metrics:  o.Metrics,
		logger:   o.Logger,
		live:     newLiveSessions(),
	}
	if o.RateLimitRPM > 0 {
		s.limiter = newLimiter(o.RateLimitRPM)
	}
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		if s.limiter != nil {
			r.Use(s.rateLimit)
		}

		// Routes of the original map backend, so an HTTP source can point
		// at another realmmap instance.
		r.Get("/data/{tier}", s.handleLegacyData)
		r.Get("/map/{tier}", s.handleBaseMap)

		r.Route("/api", func(r chi.Router) {
			r.Get("/version", s.handleVersion)
			r.Get("/tiers", s.handleTiers)
			r.Get("/data/{tier}", s.handleData)
			r.Get("/tiers/{tier}/regions/{id}", s.handleRegion)
			r.Get("/tiers/{tier}/issues", s.handleIssues)

			r.Post("/sessions", s.handleCreateSession)
			r.Route("/sessions/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Delete("/", s.handleDeleteSession)
				r.Put("/tier/{tier}", s.handleSelectTier)
				r.Post("/move", s.handleMove)
				r.Post("/hover", s.handleHover)
				r.Post("/click", s.handleClick)
				r.Post("/reset", s.handleReset)
				r.Post("/reload", s.handleReload)
				r.Get("/ws", s.handleWebsocket)
			})
		})
	})

	if s.opts.AssetsDir != "" {
		prefix := s.opts.Assets.OverlayBase
		r.Handle(prefix+"/*", http.StripPrefix(prefix, http.FileServer(http.Dir(s.opts.AssetsDir))))
	}
	return r
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.janitor(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return s.store.Close()
}

// janitor drops idle in-memory sessions and expired stored ones.
func (s *Server) janitor(ctx context.Context) {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n := s.live.evictIdle(s.opts.SessionTTL)
			if err := s.store.Cleanup(ctx); err != nil {
				s.logger.Warn("session cleanup failed", "err", err)
			}
			if s.limiter != nil {
				s.limiter.prune(10 * time.Minute)
			}
			if s.metrics != nil {
				s.metrics.Sessions.Set(float64(s.live.len()))
			}
			if n > 0 {
				s.logger.Debug("evicted idle sessions", "count", n)
			}
		}
	}
}
