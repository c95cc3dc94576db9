// Package drill implements click-to-drill navigation over a tier's region
// hierarchy.
//
// # State
//
// A [State] is the layer table plus the drill stack, the root-first list
// of regions whose subjects are currently expanded. Engine methods never
// modify the State they are given; they return a new one. Keeping the
// previous value is therefore enough to undo or to diff a transition.
//
// # Clicks
//
// [Engine.Click] turns a click on a hovered region into a [Transition]:
//
//  1. The drill target is the first region on the hovered region's
//     ancestor chain whose overlord is on the stack, or the chain's root
//     if the root itself is not on the stack.
//  2. A target without subjects makes the click a no-op.
//  3. If no region of the hovered chain is on the stack, the click starts
//     a new branch: the table is reset first and the reset state is a
//     separate step of the transition, in phase [Resetting]. The drill
//     then runs against that committed reset state.
//
// Otherwise the engine drills into the target directly and appends it to
// the stack.
package drill

import (
	"fmt"
	"slices"

	"github.com/samber/lo"

	"github.com/calavorn/realmmap/pkg/layers"
	"github.com/calavorn/realmmap/pkg/region"
)

// Phase is the navigation phase of a State.
type Phase int

const (
	// Flat: default layers, empty stack.
	Flat Phase = iota
	// Resetting: the intermediate step of a click that starts a new branch.
	Resetting
	// Drilled: at least one region is expanded.
	Drilled
)

func (p Phase) String() string {
	switch p {
	case Resetting:
		return "resetting"
	case Drilled:
		return "drilled"
	default:
		return "flat"
	}
}

func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Phase) UnmarshalText(b []byte) error {
	switch string(b) {
	case "flat", "":
		*p = Flat
	case "resetting":
		*p = Resetting
	case "drilled":
		*p = Drilled
	default:
		return fmt.Errorf("unknown drill phase %q", b)
	}
	return nil
}

// State is one snapshot of the navigation.
type State struct {
	Phase Phase        `json:"phase"`
	Stack []string     `json:"stack"`
	Table layers.Table `json:"layers"`
}

// Top returns the most recently drilled region.
func (s State) Top() (string, bool) {
	if len(s.Stack) == 0 {
		return "", false
	}
	return s.Stack[len(s.Stack)-1], true
}

func (s State) clone() State {
	return State{Phase: s.Phase, Stack: slices.Clone(s.Stack), Table: s.Table.Clone()}
}

// StackKey selects how stack membership is tested.
type StackKey int

const (
	// KeyByID compares region ids.
	KeyByID StackKey = iota
	// KeyByName compares display names. Regions that share a name are
	// treated as the same stack entry.
	KeyByName
)

// ParseStackKey parses "id" or "name".
func ParseStackKey(s string) (StackKey, error) {
	switch s {
	case "", "id":
		return KeyByID, nil
	case "name":
		return KeyByName, nil
	}
	return KeyByID, fmt.Errorf("unknown stack key %q (want id or name)", s)
}

func (k StackKey) String() string {
	if k == KeyByName {
		return "name"
	}
	return "id"
}

// Option configures an Engine.
type Option func(*Engine)

// WithStackKey sets how the engine tests stack membership.
func WithStackKey(k StackKey) Option {
	return func(e *Engine) { e.key = k }
}

// Engine runs drill transitions for one tier. It holds no mutable state
// and may be shared between sessions of the same tier.
type Engine struct {
	g   *region.Graph
	key StackKey
}

// New creates an engine over g.
func New(g *region.Graph, opts ...Option) *Engine {
	e := &Engine{g: g}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Graph returns the hierarchy the engine navigates.
func (e *Engine) Graph() *region.Graph { return e.g }

// Initial returns the resting state: default layers and an empty stack.
func (e *Engine) Initial() State {
	return State{Phase: Flat, Stack: []string{}, Table: layers.Default(e.g)}
}

// Reset returns the resting state regardless of s. Resetting twice yields
// the same result as resetting once.
func (e *Engine) Reset(State) State { return e.Initial() }

// DrillInto expands id: its nested layer becomes visible, its collapsed
// layer is hidden and every subject shows its collapsed layer. All other
// entries are left as they are. id is pushed onto the stack unless it is
// already the top entry.
//
// ok is false, and s is returned unchanged, when id is unknown or has no
// subjects.
func (e *Engine) DrillInto(s State, id string) (next State, ok bool) {
	if !e.g.Contains(id) || !e.g.HasSubjects(id) {
		return s, false
	}
	next = s.clone()
	if next.Table == nil {
		next.Table = layers.Default(e.g)
	}
	next.Table.Show(id, layers.Nested)
	for _, sub := range e.g.Subjects(id) {
		next.Table.Show(sub, layers.Collapsed)
	}
	if top, has := next.Top(); !has || !e.same(top, id) {
		next.Stack = append(next.Stack, id)
	}
	next.Phase = Drilled
	return next, true
}

// NextTarget returns the region a click on hovered would drill into.
func (e *Engine) NextTarget(s State, hovered string) (string, bool) {
	for c := range e.g.Ancestors(hovered) {
		if o, has := e.g.Overlord(c); has {
			if e.onStack(s, o) {
				return c, true
			}
			continue
		}
		if !e.onStack(s, c) {
			return c, true
		}
	}
	return "", false
}

// Transition is the outcome of a click. Steps holds every committed state
// in order: one state for a direct drill, the reset state followed by the
// drilled state when the click starts a new branch, and nothing for a
// no-op.
type Transition struct {
	Target string  `json:"target,omitempty"`
	Reset  bool    `json:"reset"`
	Steps  []State `json:"steps,omitempty"`
}

// Changed reports whether the click did anything.
func (t Transition) Changed() bool { return len(t.Steps) > 0 }

// Final returns the last committed state, or s for a no-op.
func (t Transition) Final(s State) State {
	if len(t.Steps) == 0 {
		return s
	}
	return t.Steps[len(t.Steps)-1]
}

// Click drills towards hovered.
func (e *Engine) Click(s State, hovered string) Transition {
	target, ok := e.NextTarget(s, hovered)
	if !ok || !e.g.HasSubjects(target) {
		return Transition{}
	}

	if e.branchOnStack(s, hovered) {
		next, _ := e.DrillInto(s, target)
		return Transition{Target: target, Steps: []State{next}}
	}

	reset := e.Initial()
	reset.Phase = Resetting
	next, _ := e.DrillInto(reset, target)
	return Transition{Target: target, Reset: true, Steps: []State{reset, next}}
}

// Breadcrumbs returns the display names of the stack, root first.
func (e *Engine) Breadcrumbs(s State) []string {
	return lo.Map(s.Stack, func(id string, _ int) string {
		return e.name(id)
	})
}

func (e *Engine) branchOnStack(s State, hovered string) bool {
	for c := range e.g.Ancestors(hovered) {
		if e.onStack(s, c) {
			return true
		}
	}
	return false
}

func (e *Engine) onStack(s State, id string) bool {
	return slices.ContainsFunc(s.Stack, func(entry string) bool {
		return e.same(entry, id)
	})
}

func (e *Engine) same(a, b string) bool {
	if e.key == KeyByName {
		return e.name(a) == e.name(b)
	}
	return a == b
}

func (e *Engine) name(id string) string {
	if r, ok := e.g.Region(id); ok {
		return r.DisplayName()
	}
	return id
}
