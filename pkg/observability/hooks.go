// Package observability lets the explorer, the caches and the HTTP
// clients report events without importing a metrics backend.
//
// There are three hook interfaces: [ExplorerHooks] for tier loads, hovers,
// clicks and resets, [CacheHooks] for cache lookups and [HTTPHooks] for
// data source requests. Each starts out as a no-op. A binary registers its
// own implementations once at startup, before any goroutine emits events;
// realmmap serve registers the Prometheus collectors from internal/metrics.
//
//	observability.SetExplorerHooks(m)
//	observability.SetCacheHooks(m)
//
// Libraries emit through the accessors:
//
//	start := time.Now()
//	// ... fetch and index the tier ...
//	observability.Explorer().OnTierLoad(ctx, tier, regionCount, time.Since(start), err)
package observability

import (
	"context"
	"sync/atomic"
	"time"
)

// =============================================================================
// Explorer Hooks
// =============================================================================

// ExplorerHooks receives events from explorer sessions.
type ExplorerHooks interface {
	// OnTierLoad records a tier fetch and index build.
	OnTierLoad(ctx context.Context, tier string, regions int, duration time.Duration, err error)

	// OnHover records a pointer move. resolved is false when the pointer
	// is over background or a region with no visible ancestor.
	OnHover(ctx context.Context, tier string, resolved bool)

	// OnClick records a click. reset is true when the click started a new
	// branch; changed is false for no-op clicks.
	OnClick(ctx context.Context, tier string, reset, changed bool)

	// OnReset records an explicit reset.
	OnReset(ctx context.Context, tier string)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit. keyType is the key's prefix, e.g.
	// "dataset" or "basemap".
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from the data source HTTP client.
type HTTPHooks interface {
	// OnRequest records an outgoing HTTP request.
	OnRequest(ctx context.Context, method, host, path string)

	// OnResponse records an HTTP response.
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)

	// OnError records an HTTP error (network failure, timeout).
	OnError(ctx context.Context, method, host, path string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopExplorerHooks is a no-op implementation of ExplorerHooks.
type NoopExplorerHooks struct{}

func (NoopExplorerHooks) OnTierLoad(context.Context, string, int, time.Duration, error) {}
func (NoopExplorerHooks) OnHover(context.Context, string, bool)                        {}
func (NoopExplorerHooks) OnClick(context.Context, string, bool, bool)                  {}
func (NoopExplorerHooks) OnReset(context.Context, string)                              {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// =============================================================================
// Registry
// =============================================================================

// registry is swapped as a whole so that readers on the hover path never
// take a lock.
type registry struct {
	explorer ExplorerHooks
	cache    CacheHooks
	http     HTTPHooks
}

var current atomic.Pointer[registry]

func init() { Reset() }

func update(f func(*registry)) {
	for {
		old := current.Load()
		next := *old
		f(&next)
		if current.CompareAndSwap(old, &next) {
			return
		}
	}
}

// SetExplorerHooks registers explorer hooks. nil is ignored.
func SetExplorerHooks(h ExplorerHooks) {
	if h != nil {
		update(func(r *registry) { r.explorer = h })
	}
}

// SetCacheHooks registers cache hooks. nil is ignored.
func SetCacheHooks(h CacheHooks) {
	if h != nil {
		update(func(r *registry) { r.cache = h })
	}
}

// SetHTTPHooks registers HTTP hooks. nil is ignored.
func SetHTTPHooks(h HTTPHooks) {
	if h != nil {
		update(func(r *registry) { r.http = h })
	}
}

func Explorer() ExplorerHooks { return current.Load().explorer }
func Cache() CacheHooks       { return current.Load().cache }
func HTTP() HTTPHooks         { return current.Load().http }

// Reset restores the no-op hooks. Tests call it in cleanup.
func Reset() {
	current.Store(&registry{
		explorer: NoopExplorerHooks{},
		cache:    NoopCacheHooks{},
		http:     NoopHTTPHooks{},
	})
}
