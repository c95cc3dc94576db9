package region

import (
	"iter"
	"slices"
)

// Graph is the normalised hierarchy of one tier.
//
// The zero value is not usable; build one with [New]. A Graph is immutable
// after construction and safe for concurrent readers.
type Graph struct {
	tier    Tier
	regions map[string]Region
	ids     []string // sorted
	roots   []string // sorted
	issues  []Issue
}

// New normalises a dataset into a Graph.
//
// Subject lists are authoritative. Regions are visited in id order and a
// region listed by more than one overlord stays with the first. A region
// that no subject list claims but that declares an existing overlord is
// appended to that overlord's subjects. A declared overlord that does not
// exist is kept as a dangling link so the region's ancestor walk stops
// there instead of treating it as a root.
func New(tier Tier, ds Dataset) *Graph {
	g := &Graph{
		tier:    tier,
		regions: make(map[string]Region, len(ds)),
		ids:     ds.IDs(),
	}
	derived := !ds.declaresSubjects()

	parent := make(map[string]string, len(ds))
	subjects := make(map[string][]string, len(ds))

	for _, id := range g.ids {
		for _, s := range ds[id].Subjects {
			switch {
			case s == id:
				g.report(IssueCycle, id, s)
			case !has(ds, s):
				g.report(IssueMissingSubject, id, s)
			case parent[s] != "":
				g.report(IssueMultipleOverlords, s, id)
			default:
				parent[s] = id
				subjects[id] = append(subjects[id], s)
			}
		}
	}

	for _, id := range g.ids {
		declared := ds[id].Overlord
		if declared == "" {
			continue
		}
		if p, ok := parent[id]; ok {
			if p != declared {
				g.report(IssueOverlordMismatch, id, declared)
			}
			continue
		}
		if !has(ds, declared) {
			g.report(IssueMissingOverlord, id, declared)
			parent[id] = declared
			continue
		}
		if declared == id {
			g.report(IssueCycle, id, declared)
			parent[id] = declared
			continue
		}
		if !derived {
			g.report(IssueOverlordMismatch, id, declared)
		}
		parent[id] = declared
		subjects[declared] = append(subjects[declared], id)
	}

	for _, id := range g.ids {
		r := ds[id]
		r.ID = id
		r.Overlord = parent[id]
		r.Subjects = subjects[id]
		g.regions[id] = r
		if r.Overlord == "" {
			g.roots = append(g.roots, id)
		}
	}

	g.detectCycles()
	g.detectColorClashes()
	return g
}

func has(ds Dataset, id string) bool {
	_, ok := ds[id]
	return ok
}

// Tier returns the tier the graph was built for.
func (g *Graph) Tier() Tier { return g.tier }

// Len returns the number of regions.
func (g *Graph) Len() int { return len(g.regions) }

// IDs returns all region ids in sorted order.
func (g *Graph) IDs() []string { return slices.Clone(g.ids) }

// Roots returns the regions without an overlord, sorted.
func (g *Graph) Roots() []string { return slices.Clone(g.roots) }

// Region returns the normalised region with the given id.
func (g *Graph) Region(id string) (Region, bool) {
	r, ok := g.regions[id]
	return r, ok
}

// Dataset returns the normalised regions as a dataset.
func (g *Graph) Dataset() Dataset {
	ds := make(Dataset, len(g.regions))
	for id, r := range g.regions {
		r.Subjects = slices.Clone(r.Subjects)
		ds[id] = r
	}
	return ds
}

// Contains reports whether id is a region of this tier.
func (g *Graph) Contains(id string) bool {
	_, ok := g.regions[id]
	return ok
}

// Overlord returns the overlord of id. ok is false for roots and unknown
// ids. The returned id may be dangling; check it with [Graph.Contains].
func (g *Graph) Overlord(id string) (overlord string, ok bool) {
	r, found := g.regions[id]
	if !found || r.Overlord == "" {
		return "", false
	}
	return r.Overlord, true
}

// Subjects returns the subjects of id in dataset order. The slice must not
// be modified.
func (g *Graph) Subjects(id string) []string {
	return g.regions[id].Subjects
}

// HasSubjects reports whether id has at least one subject.
func (g *Graph) HasSubjects(id string) bool {
	return len(g.regions[id].Subjects) > 0
}

// Ancestors yields id, its overlord, that region's overlord and so on up to
// a root. The walk stops without yielding when it reaches an id that is not
// part of the tier or one it has already visited. An unknown starting id
// yields nothing.
//
// The sequence is lazy and can be ranged over any number of times.
func (g *Graph) Ancestors(id string) iter.Seq[string] {
	return func(yield func(string) bool) {
		seen := make(map[string]struct{}, 8)
		cur := id
		for cur != "" {
			r, ok := g.regions[cur]
			if !ok {
				return
			}
			if _, dup := seen[cur]; dup {
				return
			}
			seen[cur] = struct{}{}
			if !yield(cur) {
				return
			}
			cur = r.Overlord
		}
	}
}

// Chain collects [Graph.Ancestors] into a slice.
func (g *Graph) Chain(id string) []string {
	return slices.Collect(g.Ancestors(id))
}

// Depth returns the number of overlords above id, or -1 if id is unknown.
func (g *Graph) Depth(id string) int {
	n := 0
	for range g.Ancestors(id) {
		n++
	}
	return n - 1
}

// Descendants yields every region below id, depth first in subject order.
func (g *Graph) Descendants(id string) iter.Seq[string] {
	return func(yield func(string) bool) {
		seen := map[string]struct{}{id: {}}
		var walk func(string) bool
		walk = func(cur string) bool {
			for _, s := range g.regions[cur].Subjects {
				if _, dup := seen[s]; dup {
					continue
				}
				seen[s] = struct{}{}
				if !yield(s) || !walk(s) {
					return false
				}
			}
			return true
		}
		walk(id)
	}
}
