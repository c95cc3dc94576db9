// Package layers holds the overlay visibility table of a loaded tier.
//
// Every region has a collapsed overlay (the region painted as one block)
// and, when it has subjects, a nested overlay (the region's outline drawn
// around its visible subjects). The [Table] records which of those layers
// is shown. At most one layer per region is visible; [Table.Show] enforces
// this by clearing the other flag.
//
// The table is a plain value. Callers that need to keep an older state
// take a [Table.Clone] before changing it.
package layers

import (
	"fmt"
	"maps"
	"slices"

	"github.com/calavorn/realmmap/pkg/region"
)

// Kind names one of a region's two overlay layers.
type Kind int

const (
	None Kind = iota
	Collapsed
	Nested
)

func (k Kind) String() string {
	switch k {
	case Collapsed:
		return "collapsed"
	case Nested:
		return "nested"
	default:
		return "none"
	}
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "collapsed":
		*k = Collapsed
	case "nested":
		*k = Nested
	case "none", "":
		*k = None
	default:
		return fmt.Errorf("unknown layer kind %q", b)
	}
	return nil
}

// Entry is the visibility of one region's layers. HasNested is false for
// regions without subjects; their Nested flag is never set.
type Entry struct {
	Collapsed bool `json:"collapsed"`
	Nested    bool `json:"nested,omitempty"`
	HasNested bool `json:"has_nested,omitempty"`
}

// Visible returns the layer that is shown, or None.
func (e Entry) Visible() Kind {
	switch {
	case e.Nested:
		return Nested
	case e.Collapsed:
		return Collapsed
	default:
		return None
	}
}

// Table maps region ids to their layer visibility.
type Table map[string]Entry

// Default returns the resting configuration for g: every region without an
// overlord shows its collapsed layer and everything else is hidden.
func Default(g *region.Graph) Table {
	t := make(Table, g.Len())
	for _, id := range g.IDs() {
		_, hasOverlord := g.Overlord(id)
		t[id] = Entry{
			Collapsed: !hasOverlord,
			HasNested: g.HasSubjects(id),
		}
	}
	return t
}

// Clone returns an independent copy.
func (t Table) Clone() Table { return maps.Clone(t) }

// Equal reports whether both tables show the same layers.
func (t Table) Equal(o Table) bool { return maps.Equal(t, o) }

// Visible returns the layer shown for id, or None for hidden and unknown
// regions.
func (t Table) Visible(id string) Kind { return t[id].Visible() }

// Show makes layer k the only visible layer of id. Show(id, None) hides the
// region. It reports false, leaving the table unchanged, when id is unknown
// or k is Nested for a region without subjects.
func (t Table) Show(id string, k Kind) bool {
	e, ok := t[id]
	if !ok || (k == Nested && !e.HasNested) {
		return false
	}
	e.Collapsed = k == Collapsed
	e.Nested = k == Nested
	t[id] = e
	return true
}

// Overlay is one layer to draw.
type Overlay struct {
	Region string `json:"region"`
	Kind   Kind   `json:"kind"`
}

// Overlays lists every visible layer ordered by region id.
func (t Table) Overlays() []Overlay {
	var out []Overlay
	for _, id := range slices.Sorted(maps.Keys(t)) {
		if k := t[id].Visible(); k != None {
			out = append(out, Overlay{Region: id, Kind: k})
		}
	}
	return out
}

// Count returns the number of visible collapsed and nested layers.
func (t Table) Count() (collapsed, nested int) {
	for _, e := range t {
		switch e.Visible() {
		case Collapsed:
			collapsed++
		case Nested:
			nested++
		}
	}
	return collapsed, nested
}
