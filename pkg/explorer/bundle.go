package explorer

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/calavorn/realmmap/pkg/drill"
	"github.com/calavorn/realmmap/pkg/hover"
	"github.com/calavorn/realmmap/pkg/layers"
	"github.com/calavorn/realmmap/pkg/observability"
	"github.com/calavorn/realmmap/pkg/raster"
	"github.com/calavorn/realmmap/pkg/region"
	"github.com/calavorn/realmmap/pkg/source"
)

// Settings are the per-deployment choices shared by every bundle.
type Settings struct {
	Assets   layers.Assets
	World    string
	StackKey drill.StackKey
}

// DefaultSettings returns the stock asset layout, world name and id-keyed
// stack.
func DefaultSettings() Settings {
	return Settings{Assets: layers.DefaultAssets(), World: hover.DefaultWorld}
}

// Bundle is everything needed to explore one tier. Bundles are read-only
// once built and may be shared by any number of explorers.
type Bundle struct {
	Tier     region.Tier
	Graph    *region.Graph
	Index    *region.ColorIndex
	Engine   *drill.Engine
	Resolver *hover.Resolver
	Map      *raster.Map
	Assets   layers.Assets
	LoadedAt time.Time
}

// NewBundle indexes a tier from an already fetched dataset and base map.
func NewBundle(tier region.Tier, ds region.Dataset, m *raster.Map, s Settings) *Bundle {
	g := region.New(tier, ds)
	return &Bundle{
		Tier:     tier,
		Graph:    g,
		Index:    region.NewColorIndex(g),
		Engine:   drill.New(g, drill.WithStackKey(s.StackKey)),
		Resolver: hover.NewResolver(g, hover.WithWorld(s.World), hover.WithAssets(s.Assets)),
		Map:      m,
		Assets:   s.Assets,
		LoadedAt: time.Now(),
	}
}

// Loader produces tier bundles.
type Loader interface {
	Bundle(ctx context.Context, tier region.Tier) (*Bundle, error)
}

// LoadBundle fetches a tier's dataset and base map from src and indexes it.
func LoadBundle(ctx context.Context, src source.Source, tier region.Tier, s Settings) (*Bundle, error) {
	start := time.Now()
	b, err := loadBundle(ctx, src, tier, s)
	regions := 0
	if b != nil {
		regions = b.Graph.Len()
	}
	observability.Explorer().OnTierLoad(ctx, string(tier), regions, time.Since(start), err)
	return b, err
}

func loadBundle(ctx context.Context, src source.Source, tier region.Tier, s Settings) (*Bundle, error) {
	ds, err := src.Dataset(ctx, tier)
	if err != nil {
		return nil, err
	}
	m, err := src.BaseMap(ctx, tier)
	if err != nil {
		return nil, err
	}
	return NewBundle(tier, ds, m, s), nil
}

// Registry loads bundles from a source and keeps them for reuse.
// Concurrent requests for the same tier share one fetch. Failed loads are
// not kept, so the next request retries.
type Registry struct {
	src      source.Source
	settings Settings
	logger   *log.Logger

	group   singleflight.Group
	mu      sync.RWMutex
	bundles map[region.Tier]*Bundle
}

// NewRegistry creates a registry over src. A nil logger uses log.Default().
func NewRegistry(src source.Source, s Settings, logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.Default()
	}
	return &Registry{src: src, settings: s, logger: logger, bundles: make(map[region.Tier]*Bundle)}
}

// Bundle returns the tier's bundle, loading it on first use.
func (r *Registry) Bundle(ctx context.Context, tier region.Tier) (*Bundle, error) {
	r.mu.RLock()
	b, ok := r.bundles[tier]
	r.mu.RUnlock()
	if ok {
		return b, nil
	}

	v, err, shared := r.group.Do(string(tier), func() (any, error) {
		r.logger.Debug("loading tier", "tier", tier, "source", r.src.Location())
		b, err := LoadBundle(ctx, r.src, tier, r.settings)
		if err != nil {
			return nil, err
		}
		if issues := b.Graph.Issues(); len(issues) > 0 {
			r.logger.Warn("tier hierarchy has issues", "tier", tier, "issues", len(issues))
		}
		r.mu.Lock()
		r.bundles[tier] = b
		r.mu.Unlock()
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		r.logger.Debug("shared tier load", "tier", tier)
	}
	return v.(*Bundle), nil
}

// Invalidate drops the kept bundle for tier so the next request refetches.
func (r *Registry) Invalidate(tier region.Tier) {
	r.mu.Lock()
	delete(r.bundles, tier)
	r.mu.Unlock()
}

// Loaded lists the tiers currently kept, in display order.
func (r *Registry) Loaded() []region.Tier {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []region.Tier
	for _, t := range region.Tiers() {
		if _, ok := r.bundles[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

// Source returns the registry's source.
func (r *Registry) Source() source.Source { return r.src }

// SourceLoader loads a fresh bundle on every call.
type SourceLoader struct {
	Source   source.Source
	Settings Settings
}

func (l SourceLoader) Bundle(ctx context.Context, tier region.Tier) (*Bundle, error) {
	return LoadBundle(ctx, l.Source, tier, l.Settings)
}

var (
	_ Loader = (*Registry)(nil)
	_ Loader = SourceLoader{}
)
