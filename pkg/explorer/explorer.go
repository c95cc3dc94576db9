// Package explorer drives one user's exploration of the map.
//
// An [Explorer] owns the loaded tier, the drill state and the current
// hover. Pointer events are processed one at a time under a mutex; the
// only blocking step is [Explorer.Load], during which the explorer reports
// [StatusLoading] and refuses pointer events.
//
//	x := explorer.New(registry)
//	if err := x.Load(ctx, region.TierCounty); err != nil {
//	    // x.Status() is StatusUnavailable until the next Load
//	}
//	x.Move(ctx, 120, 48, 800, 600)
//	x.Click(ctx)
//	snap := x.Snapshot()
package explorer

import (
	"context"
	"sync"

	"github.com/calavorn/realmmap/pkg/drill"
	errs "github.com/calavorn/realmmap/pkg/errors"
	"github.com/calavorn/realmmap/pkg/hover"
	"github.com/calavorn/realmmap/pkg/observability"
	"github.com/calavorn/realmmap/pkg/raster"
	"github.com/calavorn/realmmap/pkg/region"
	"github.com/calavorn/realmmap/pkg/source"
)

// Status is the explorer's readiness.
type Status string

const (
	StatusIdle        Status = "idle"
	StatusLoading     Status = "loading"
	StatusReady       Status = "ready"
	StatusUnavailable Status = "unavailable"
)

// Explorer is a single exploration session. It is safe for concurrent use;
// events are serialised.
type Explorer struct {
	loader Loader

	mu      sync.Mutex
	gen     uint64
	tier    region.Tier
	status  Status
	loadErr error
	bundle  *Bundle
	state   drill.State
	hovered *hover.Hover
}

// New creates an idle explorer that loads tiers through loader.
func New(loader Loader) *Explorer {
	return &Explorer{loader: loader, status: StatusIdle}
}

// Status reports readiness and, when unavailable, the load error.
func (x *Explorer) Status() (Status, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.status, x.loadErr
}

// Tier returns the selected tier.
func (x *Explorer) Tier() region.Tier {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.tier
}

// Bundle returns the loaded bundle, nil unless ready.
func (x *Explorer) Bundle() *Bundle {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.status != StatusReady {
		return nil
	}
	return x.bundle
}

// Load selects tier and replaces the graph, index, layers and stack in one
// step. While the fetch runs the explorer reports StatusLoading. A failed
// load leaves it StatusUnavailable until the next Load. When loads
// overlap, the most recent one wins.
func (x *Explorer) Load(ctx context.Context, tier region.Tier) error {
	x.mu.Lock()
	x.gen++
	gen := x.gen
	x.tier = tier
	x.status = StatusLoading
	x.loadErr = nil
	x.bundle = nil
	x.state = drill.State{}
	x.hovered = nil
	x.mu.Unlock()

	b, err := x.loader.Bundle(ctx, tier)

	x.mu.Lock()
	defer x.mu.Unlock()
	if gen != x.gen {
		return errs.New(errs.ErrCodeNotReady, "load of tier %s superseded", tier)
	}
	if err != nil {
		x.status = StatusUnavailable
		x.loadErr = err
		return err
	}
	x.bundle = b
	x.state = b.Engine.Initial()
	x.status = StatusReady
	return nil
}

// Reload loads the selected tier again, bypassing kept bundles and cached
// source responses.
func (x *Explorer) Reload(ctx context.Context) error {
	tier := x.Tier()
	if tier == "" {
		return errs.New(errs.ErrCodeNotReady, "no tier selected")
	}
	if inv, ok := x.loader.(interface{ Invalidate(region.Tier) }); ok {
		inv.Invalidate(tier)
	}
	return x.Load(source.WithRefresh(ctx), tier)
}

// Move samples the base map at (px, py) on a display of size w×h and
// updates the hover. A position over background, a border, or a region
// with no visible ancestor clears the hover.
func (x *Explorer) Move(ctx context.Context, px, py float64, w, h int) (Snapshot, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if err := x.ready(); err != nil {
		return x.snapshot(), err
	}
	id, ok := x.sample(px, py, w, h)
	x.hover(id, ok)
	observability.Explorer().OnHover(ctx, string(x.tier), x.hovered != nil)
	return x.snapshot(), nil
}

// HoverRegion sets the hover as if the pointer were over region id.
func (x *Explorer) HoverRegion(ctx context.Context, id string) (Snapshot, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if err := x.ready(); err != nil {
		return x.snapshot(), err
	}
	x.hover(id, x.bundle.Graph.Contains(id))
	observability.Explorer().OnHover(ctx, string(x.tier), x.hovered != nil)
	return x.snapshot(), nil
}

// Click drills towards the hovered region. With nothing hovered, or when
// the hovered region offers nothing to drill into, it is a no-op. The
// returned transition lists every committed state, so a click that starts
// a new branch yields the reset state before the drilled one.
func (x *Explorer) Click(ctx context.Context) (Snapshot, drill.Transition, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if err := x.ready(); err != nil {
		return x.snapshot(), drill.Transition{}, err
	}
	var t drill.Transition
	if x.hovered != nil {
		t = x.bundle.Engine.Click(x.state, x.hovered.Sampled)
	}
	x.state = t.Final(x.state)
	if x.hovered != nil {
		x.hover(x.hovered.Sampled, true)
	}
	observability.Explorer().OnClick(ctx, string(x.tier), t.Reset, t.Changed())
	return x.snapshot(), t, nil
}

// Reset restores the default layers and empties the stack.
func (x *Explorer) Reset(ctx context.Context) (Snapshot, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if err := x.ready(); err != nil {
		return x.snapshot(), err
	}
	x.state = x.bundle.Engine.Reset(x.state)
	if x.hovered != nil {
		x.hover(x.hovered.Sampled, true)
	}
	observability.Explorer().OnReset(ctx, string(x.tier))
	return x.snapshot(), nil
}

// State returns the drill state.
func (x *Explorer) State() drill.State {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.state
}

func (x *Explorer) ready() error {
	switch x.status {
	case StatusReady:
		return nil
	case StatusUnavailable:
		return errs.Wrap(errs.ErrCodeDataUnavailable, x.loadErr, "tier %s is unavailable", x.tier)
	case StatusLoading:
		return errs.New(errs.ErrCodeNotReady, "tier %s is still loading", x.tier)
	}
	return errs.New(errs.ErrCodeNotReady, "no tier loaded")
}

func (x *Explorer) sample(px, py float64, w, h int) (string, bool) {
	if x.bundle.Map == nil {
		return "", false
	}
	c, ok := raster.SampleScaled(x.bundle.Map, px, py, w, h)
	if !ok {
		return "", false
	}
	return x.bundle.Index.Resolve(c)
}

func (x *Explorer) hover(id string, ok bool) {
	x.hovered = nil
	if !ok {
		return
	}
	if h, found := x.bundle.Resolver.Resolve(x.state.Table, id); found {
		x.hovered = &h
	}
}
