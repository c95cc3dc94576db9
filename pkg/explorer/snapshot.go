package explorer

import (
	"context"

	"github.com/calavorn/realmmap/pkg/drill"
	errs "github.com/calavorn/realmmap/pkg/errors"
	"github.com/calavorn/realmmap/pkg/hover"
	"github.com/calavorn/realmmap/pkg/layers"
	"github.com/calavorn/realmmap/pkg/region"
)

// Overlay is one layer the renderer must draw.
type Overlay struct {
	Region string      `json:"region"`
	Layer  layers.Kind `json:"layer"`
	Image  string      `json:"image"`
}

// Snapshot is everything a renderer needs to draw the current view.
type Snapshot struct {
	Tier        region.Tier  `json:"tier,omitempty"`
	Status      Status       `json:"status"`
	Error       string       `json:"error,omitempty"`
	Phase       drill.Phase  `json:"phase"`
	Stack       []string     `json:"stack"`
	Breadcrumbs []string     `json:"breadcrumbs"`
	BaseMap     string       `json:"base_map,omitempty"`
	Overlays    []Overlay    `json:"overlays"`
	Hover       *hover.Hover `json:"hover,omitempty"`
	Info        *hover.Info  `json:"info,omitempty"`
}

// Snapshot returns the current view.
func (x *Explorer) Snapshot() Snapshot {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.snapshot()
}

func (x *Explorer) snapshot() Snapshot {
	s := Snapshot{
		Tier:        x.tier,
		Status:      x.status,
		Stack:       []string{},
		Breadcrumbs: []string{},
		Overlays:    []Overlay{},
	}
	if x.loadErr != nil {
		s.Error = errs.UserMessage(x.loadErr)
	}
	if x.status != StatusReady {
		return s
	}
	b := x.bundle
	s.Phase = x.state.Phase
	s.Stack = append(s.Stack, x.state.Stack...)
	s.Breadcrumbs = append(s.Breadcrumbs, b.Engine.Breadcrumbs(x.state)...)
	s.BaseMap = b.Assets.BaseMap(b.Tier)
	for _, o := range x.state.Table.Overlays() {
		r, _ := b.Graph.Region(o.Region)
		s.Overlays = append(s.Overlays, Overlay{
			Region: o.Region,
			Layer:  o.Kind,
			Image:  b.Assets.Overlay(b.Tier, r.Color, o.Kind, false),
		})
	}
	if x.hovered != nil {
		h := *x.hovered
		s.Hover = &h
		if info, ok := b.Resolver.Info(h.Region); ok {
			s.Info = &info
		}
	}
	return s
}

// Saved is the persistable part of an explorer.
type Saved struct {
	Tier    region.Tier `json:"tier"`
	State   drill.State `json:"state"`
	Hovered string      `json:"hovered,omitempty"`
}

// Save captures the tier, drill state and hovered region.
func (x *Explorer) Save() Saved {
	x.mu.Lock()
	defer x.mu.Unlock()
	s := Saved{Tier: x.tier, State: x.state}
	if x.hovered != nil {
		s.Hovered = x.hovered.Sampled
	}
	return s
}

// Restore loads the saved tier and reinstates its drill state. Stack
// entries and layer flags for regions the tier no longer contains are
// dropped. If the result would leave a region without a visible ancestor
// the explorer starts from the default state instead.
func (x *Explorer) Restore(ctx context.Context, s Saved) error {
	if s.Tier == "" {
		return nil
	}
	if err := x.Load(ctx, s.Tier); err != nil {
		return err
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.status != StatusReady || x.tier != s.Tier {
		return nil
	}
	x.state = reconcile(x.bundle, s.State)
	if s.Hovered != "" {
		x.hover(s.Hovered, x.bundle.Graph.Contains(s.Hovered))
	}
	return nil
}

func reconcile(b *Bundle, s drill.State) drill.State {
	out := b.Engine.Initial()
	if s.Table == nil {
		return out
	}
	for id, e := range s.Table {
		if !b.Graph.Contains(id) {
			continue
		}
		if e.Nested && !b.Graph.HasSubjects(id) {
			e.Nested = false
		}
		e.HasNested = b.Graph.HasSubjects(id)
		if e.Collapsed && e.Nested {
			e.Collapsed = false
		}
		out.Table[id] = e
	}
	out.Stack = out.Stack[:0]
	for _, id := range s.Stack {
		if b.Graph.Contains(id) {
			out.Stack = append(out.Stack, id)
		}
	}
	if len(out.Stack) > 0 {
		out.Phase = drill.Drilled
	}
	if !covers(b, out) {
		return b.Engine.Initial()
	}
	return out
}

// covers reports whether every region that is reachable in the default
// view still has a visible ancestor in s.
func covers(b *Bundle, s drill.State) bool {
	def := b.Engine.Initial()
	for _, id := range b.Graph.IDs() {
		_, before := b.Resolver.Resolve(def.Table, id)
		_, after := b.Resolver.Resolve(s.Table, id)
		if before && !after {
			return false
		}
	}
	return true
}
