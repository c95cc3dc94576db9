// Package hover resolves a sampled region to the region the user sees.
//
// The region under the pointer is usually hidden behind its overlord's
// collapsed layer, or shown inside its overlord's nested outline. The
// [Resolver] climbs the ancestor chain of the sampled region and stops at
// the first region with a visible layer. That region's info record and
// the hover variant of its visible layer are what the user sees.
package hover

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/calavorn/realmmap/pkg/layers"
	"github.com/calavorn/realmmap/pkg/region"
)

// DefaultWorld names the world in default region descriptions.
const DefaultWorld = "Calavorn"

// Hover is a resolved pointer position.
type Hover struct {
	Sampled string      `json:"sampled"`
	Region  string      `json:"region"`
	Layer   layers.Kind `json:"layer"`
	Image   string      `json:"image"`
}

// Info is the panel shown for a hovered region.
type Info struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Tier        string   `json:"tier"`
	Color       string   `json:"rgb"`
	Size        int      `json:"size"`
	SubjectSize int      `json:"subject_size"`
	RealmSize   string   `json:"realm_size"`
	Overlord    string   `json:"overlord,omitempty"`
	Standing    string   `json:"standing"`
	Subjects    []string `json:"subjects"`
	Description string   `json:"description"`
	Banner      string   `json:"banner,omitempty"`
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithWorld sets the world name used in default descriptions.
func WithWorld(name string) Option {
	return func(r *Resolver) { r.world = name }
}

// WithAssets sets the asset layout for hover images and banners.
func WithAssets(a layers.Assets) Option {
	return func(r *Resolver) { r.assets = a }
}

// Resolver answers hover queries for one tier.
type Resolver struct {
	g      *region.Graph
	assets layers.Assets
	world  string
}

// NewResolver creates a resolver over g.
func NewResolver(g *region.Graph, opts ...Option) *Resolver {
	r := &Resolver{g: g, assets: layers.DefaultAssets(), world: DefaultWorld}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve finds the first ancestor of sampled, starting with sampled
// itself, that shows a layer in table. ok is false when no ancestor is
// visible or sampled is unknown.
func (r *Resolver) Resolve(table layers.Table, sampled string) (Hover, bool) {
	for id := range r.g.Ancestors(sampled) {
		k := table.Visible(id)
		if k == layers.None {
			continue
		}
		reg, _ := r.g.Region(id)
		return Hover{
			Sampled: sampled,
			Region:  id,
			Layer:   k,
			Image:   r.assets.Overlay(r.g.Tier(), reg.Color, k, true),
		}, true
	}
	return Hover{}, false
}

// Info builds the panel for region id.
func (r *Resolver) Info(id string) (Info, bool) {
	reg, ok := r.g.Region(id)
	if !ok {
		return Info{}, false
	}
	tier := r.g.Tier().Title()

	info := Info{
		ID:          id,
		Title:       reg.DisplayName(),
		Tier:        tier,
		Color:       reg.Color.String(),
		Size:        reg.Size,
		SubjectSize: reg.SubjectSize,
		RealmSize:   RealmSize(reg.Size, reg.SubjectSize),
		Standing:    "Independent",
		Subjects:    lo.Map(reg.Subjects, func(s string, _ int) string { return r.name(s) }),
		Description: reg.Description,
		Banner:      r.assets.Banner(r.g.Tier(), reg.Banner),
	}
	if reg.Overlord != "" {
		info.Overlord = r.name(reg.Overlord)
		info.Standing = "Subject of " + info.Overlord
	}
	if info.Description == "" {
		info.Description = fmt.Sprintf("A %s in %s", tier, r.world)
	}
	return info, true
}

// RealmSize formats a region's size, noting the share held by subjects.
func RealmSize(size, fromSubjects int) string {
	if fromSubjects > 0 {
		return fmt.Sprintf("%d (%d from subjects)", size, fromSubjects)
	}
	return fmt.Sprintf("%d", size)
}

func (r *Resolver) name(id string) string {
	if reg, ok := r.g.Region(id); ok {
		return reg.DisplayName()
	}
	return id
}
