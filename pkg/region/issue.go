package region

import (
	"fmt"
	"slices"
)

// IssueKind classifies a hierarchy inconsistency found while loading.
type IssueKind string

const (
	// IssueMissingOverlord: a region declares an overlord that is not in the tier.
	IssueMissingOverlord IssueKind = "missing_overlord"
	// IssueMissingSubject: a subject list names a region that is not in the tier.
	IssueMissingSubject IssueKind = "missing_subject"
	// IssueMultipleOverlords: a region appears in more than one subject list.
	IssueMultipleOverlords IssueKind = "multiple_overlords"
	// IssueOverlordMismatch: a declared overlord disagrees with the subject lists.
	IssueOverlordMismatch IssueKind = "overlord_mismatch"
	// IssueCycle: following overlords from a region returns to it.
	IssueCycle IssueKind = "cycle"
	// IssueDuplicateColor: two regions share a colour.
	IssueDuplicateColor IssueKind = "duplicate_color"
)

// Issue is one consistency problem. Region is the affected region and Ref
// the other id (or colour) involved.
type Issue struct {
	Kind   IssueKind `json:"kind"`
	Region string    `json:"region"`
	Ref    string    `json:"ref,omitempty"`
}

func (i Issue) String() string {
	switch i.Kind {
	case IssueMissingOverlord:
		return fmt.Sprintf("%s: overlord %q does not exist", i.Region, i.Ref)
	case IssueMissingSubject:
		return fmt.Sprintf("%s: subject %q does not exist", i.Region, i.Ref)
	case IssueMultipleOverlords:
		return fmt.Sprintf("%s: also listed as a subject of %q", i.Region, i.Ref)
	case IssueOverlordMismatch:
		return fmt.Sprintf("%s: declares overlord %q but subject lists disagree", i.Region, i.Ref)
	case IssueCycle:
		return fmt.Sprintf("%s: overlord chain loops through %q", i.Region, i.Ref)
	case IssueDuplicateColor:
		return fmt.Sprintf("%s: colour %s already used", i.Region, i.Ref)
	}
	return fmt.Sprintf("%s: %s %s", i.Region, i.Kind, i.Ref)
}

// Issues returns the inconsistencies found while building the graph, in
// the order they were detected.
func (g *Graph) Issues() []Issue { return g.issues }

// Valid reports whether the graph was built without issues.
func (g *Graph) Valid() bool { return len(g.issues) == 0 }

func (g *Graph) report(kind IssueKind, id, ref string) {
	g.issues = append(g.issues, Issue{Kind: kind, Region: id, Ref: ref})
}

// detectCycles reports each overlord loop once, on its smallest member.
func (g *Graph) detectCycles() {
	const (
		white = iota
		gray
		black
	)
	state := make(map[string]int, len(g.regions))
	for _, start := range g.ids {
		if state[start] != white {
			continue
		}
		var path []string
		cur := start
		for {
			r, ok := g.regions[cur]
			if !ok || state[cur] == black {
				break
			}
			if state[cur] == gray {
				first := slices.Min(path[slices.Index(path, cur):])
				g.report(IssueCycle, first, g.regions[first].Overlord)
				break
			}
			state[cur] = gray
			path = append(path, cur)
			if r.Overlord == "" || r.Overlord == cur {
				break
			}
			cur = r.Overlord
		}
		for _, id := range path {
			state[id] = black
		}
	}
}

func (g *Graph) detectColorClashes() {
	owner := make(map[Color]string, len(g.regions))
	for _, id := range g.ids {
		c := g.regions[id].Color
		if _, taken := owner[c]; taken {
			g.report(IssueDuplicateColor, id, c.String())
			continue
		}
		owner[c] = id
	}
}
