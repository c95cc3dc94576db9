package drill

import (
	"slices"
	"testing"

	"github.com/calavorn/realmmap/pkg/layers"
	"github.com/calavorn/realmmap/pkg/region"
)

const realmJSON = `{
  "k_a": {"name": "Kingdom A", "rgb": "10,0,0", "subjects": ["d_b"]},
  "d_b": {"name": "Duchy B", "rgb": "20,0,0", "overlord": "k_a", "subjects": ["c_c", "c_d"]},
  "c_c": {"name": "County C", "rgb": "30,0,0", "overlord": "d_b"},
  "c_d": {"name": "County D", "rgb": "40,0,0", "overlord": "d_b"},
  "k_x": {"name": "Kingdom X", "rgb": "50,0,0", "subjects": ["d_y"]},
  "d_y": {"name": "Duchy Y", "rgb": "60,0,0", "overlord": "k_x", "subjects": ["c_z"]},
  "c_z": {"name": "County Z", "rgb": "70,0,0", "overlord": "d_y"},
  "l": {"name": "Lone", "rgb": "80,0,0"}
}`

func newGraph(t *testing.T, data string) *region.Graph {
	t.Helper()
	ds, err := region.ParseDataset([]byte(data))
	if err != nil {
		t.Fatalf("ParseDataset() error = %v", err)
	}
	return region.New(region.TierCounty, ds)
}

func newEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	return New(newGraph(t, realmJSON), opts...)
}

// checkInvariants verifies the layer table against the hierarchy.
func checkInvariants(t *testing.T, g *region.Graph, s State) {
	t.Helper()
	for _, id := range g.IDs() {
		e := s.Table[id]
		if e.Collapsed && e.Nested {
			t.Errorf("%s: both layers visible", id)
		}
		if e.Nested && !e.HasNested {
			t.Errorf("%s: nested layer on a leaf", id)
		}
		visible, collapsed := 0, 0
		for a := range g.Ancestors(id) {
			switch s.Table.Visible(a) {
			case layers.Collapsed:
				visible++
				collapsed++
			case layers.Nested:
				visible++
			}
		}
		if visible == 0 {
			t.Errorf("%s: no visible ancestor", id)
		}
		if collapsed > 1 {
			t.Errorf("%s: %d collapsed layers on one chain", id, collapsed)
		}
	}
}

func TestSingleCountyScenario(t *testing.T) {
	g := newGraph(t, `{
	  "A": {"name": "A", "rgb": "1,0,0", "subjects": ["B", "C"]},
	  "B": {"name": "B", "rgb": "2,0,0", "overlord": "A"},
	  "C": {"name": "C", "rgb": "3,0,0", "overlord": "A"}
	}`)
	e := New(g)
	s := e.Initial()

	want := layers.Table{
		"A": {Collapsed: true, HasNested: true},
		"B": {},
		"C": {},
	}
	if !s.Table.Equal(want) {
		t.Fatalf("Initial().Table = %v, want %v", s.Table, want)
	}

	// Hovering any pixel of A samples one of its subjects.
	tr := e.Click(s, "B")
	if !tr.Changed() || tr.Target != "A" {
		t.Fatalf("Click() = %+v, want drill into A", tr)
	}
	s = tr.Final(s)
	want = layers.Table{
		"A": {Nested: true, HasNested: true},
		"B": {Collapsed: true},
		"C": {Collapsed: true},
	}
	if !s.Table.Equal(want) {
		t.Errorf("after click Table = %v, want %v", s.Table, want)
	}
	if !slices.Equal(s.Stack, []string{"A"}) {
		t.Errorf("Stack = %v, want [A]", s.Stack)
	}
	if s.Phase != Drilled {
		t.Errorf("Phase = %v, want drilled", s.Phase)
	}

	s = e.Reset(s)
	if !s.Table.Equal(e.Initial().Table) || len(s.Stack) != 0 || s.Phase != Flat {
		t.Errorf("Reset() = %+v, want initial state", s)
	}
}

func TestClickAncestryBranch(t *testing.T) {
	e := newEngine(t)
	s := e.Click(e.Initial(), "c_c").Final(e.Initial())
	if !slices.Equal(s.Stack, []string{"k_a"}) {
		t.Fatalf("Stack = %v, want [k_a]", s.Stack)
	}

	// County C -> Duchy B -> Kingdom A, with Kingdom A on the stack.
	tr := e.Click(s, "c_c")
	if tr.Reset {
		t.Error("Click(c_c) reset, want direct drill")
	}
	if tr.Target != "d_b" || len(tr.Steps) != 1 {
		t.Fatalf("Click(c_c) = target %q, %d steps; want d_b, 1 step", tr.Target, len(tr.Steps))
	}
	s = tr.Final(s)
	if !slices.Equal(s.Stack, []string{"k_a", "d_b"}) {
		t.Errorf("Stack = %v, want [k_a d_b]", s.Stack)
	}
	checkInvariants(t, e.Graph(), s)

	// A region with no stacked ancestor starts a new branch.
	tr = e.Click(s, "c_z")
	if !tr.Reset || len(tr.Steps) != 2 {
		t.Fatalf("Click(c_z) = reset %v, %d steps; want reset, 2 steps", tr.Reset, len(tr.Steps))
	}
	reset := tr.Steps[0]
	if reset.Phase != Resetting || len(reset.Stack) != 0 || !reset.Table.Equal(e.Initial().Table) {
		t.Errorf("reset step = %+v, want default table in resetting phase", reset)
	}
	s = tr.Final(s)
	if tr.Target != "k_x" || !slices.Equal(s.Stack, []string{"k_x"}) {
		t.Errorf("after branch Stack = %v, target %q; want [k_x], k_x", s.Stack, tr.Target)
	}
	if s.Table.Visible("k_a") != layers.Collapsed || s.Table.Visible("d_b") != layers.None {
		t.Errorf("old branch not reset: %v", s.Table)
	}
	checkInvariants(t, e.Graph(), s)
}

func TestClickNoOps(t *testing.T) {
	e := newEngine(t)
	drilled := e.Initial()
	for _, h := range []string{"c_c", "c_c"} {
		drilled = e.Click(drilled, h).Final(drilled)
	}
	// stack is [k_a d_b]

	tests := []struct {
		name    string
		state   State
		hovered string
	}{
		{"leaf root", e.Initial(), "l"},
		{"leaf under stacked overlord", drilled, "c_c"},
		{"unknown region", drilled, "ghost"},
		{"empty hover", drilled, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := e.Click(tt.state, tt.hovered)
			if tr.Changed() {
				t.Errorf("Click(%q) = %+v, want no-op", tt.hovered, tr)
			}
			if got := tr.Final(tt.state); !got.Table.Equal(tt.state.Table) || !slices.Equal(got.Stack, tt.state.Stack) {
				t.Errorf("Final() changed state")
			}
		})
	}
}

func TestNextTarget(t *testing.T) {
	e := newEngine(t)
	initial := e.Initial()
	onA := State{Stack: []string{"k_a"}, Table: initial.Table}
	onAB := State{Stack: []string{"k_a", "d_b"}, Table: initial.Table}

	tests := []struct {
		name    string
		state   State
		hovered string
		want    string
		wantOK  bool
	}{
		{"flat county", initial, "c_c", "k_a", true},
		{"flat root", initial, "k_x", "k_x", true},
		{"kingdom stacked", onA, "c_d", "d_b", true},
		{"duchy stacked", onAB, "c_d", "c_d", true},
		{"other branch", onA, "c_z", "k_x", true},
		{"stacked root hovered", onA, "k_a", "", false},
		{"unknown", initial, "ghost", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := e.NextTarget(tt.state, tt.hovered)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("NextTarget(%q) = %q, %v, want %q, %v", tt.hovered, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestDrillInto(t *testing.T) {
	e := newEngine(t)
	s := e.Initial()

	t.Run("leaf is a no-op", func(t *testing.T) {
		got, ok := e.DrillInto(s, "c_c")
		if ok || !got.Table.Equal(s.Table) || len(got.Stack) != 0 {
			t.Errorf("DrillInto(leaf) = %+v, %v", got, ok)
		}
	})

	t.Run("unknown is a no-op", func(t *testing.T) {
		if _, ok := e.DrillInto(s, "ghost"); ok {
			t.Error("DrillInto(unknown) ok = true")
		}
	})

	t.Run("other entries untouched", func(t *testing.T) {
		got, ok := e.DrillInto(s, "k_a")
		if !ok {
			t.Fatal("DrillInto(k_a) ok = false")
		}
		for _, id := range []string{"k_x", "d_y", "c_z", "l", "c_c", "c_d"} {
			if got.Table[id] != s.Table[id] {
				t.Errorf("%s changed: %+v -> %+v", id, s.Table[id], got.Table[id])
			}
		}
		if got.Table.Visible("k_a") != layers.Nested || got.Table.Visible("d_b") != layers.Collapsed {
			t.Errorf("Table = %v", got.Table)
		}
	})

	t.Run("does not modify input", func(t *testing.T) {
		before := s.Table.Clone()
		e.DrillInto(s, "k_a")
		if !s.Table.Equal(before) || len(s.Stack) != 0 {
			t.Error("DrillInto() modified its input state")
		}
	})

	t.Run("push skipped only for top", func(t *testing.T) {
		a, _ := e.DrillInto(s, "k_a")
		a, _ = e.DrillInto(a, "k_a")
		if !slices.Equal(a.Stack, []string{"k_a"}) {
			t.Errorf("repeat Stack = %v, want [k_a]", a.Stack)
		}
		ab, _ := e.DrillInto(a, "d_b")
		aba, _ := e.DrillInto(ab, "k_a")
		if !slices.Equal(aba.Stack, []string{"k_a", "d_b", "k_a"}) {
			t.Errorf("Stack = %v, want [k_a d_b k_a]", aba.Stack)
		}
	})

	t.Run("reset restores default", func(t *testing.T) {
		got, _ := e.DrillInto(s, "k_a")
		got, _ = e.DrillInto(got, "d_b")
		if r := e.Reset(got); !r.Table.Equal(layers.Default(e.Graph())) || len(r.Stack) != 0 {
			t.Errorf("Reset() = %+v", r)
		}
	})
}

func TestResetIdempotent(t *testing.T) {
	e := newEngine(t)
	s, _ := e.DrillInto(e.Initial(), "k_x")
	once := e.Reset(s)
	twice := e.Reset(once)
	if !once.Table.Equal(twice.Table) || !slices.Equal(once.Stack, twice.Stack) || once.Phase != twice.Phase {
		t.Errorf("Reset(Reset(s)) = %+v, want %+v", twice, once)
	}
}

// TestInvariantsUnderClicks explores every click sequence up to three
// clicks deep and checks the table after each committed step.
func TestInvariantsUnderClicks(t *testing.T) {
	e := newEngine(t)
	g := e.Graph()
	ids := g.IDs()

	var explore func(s State, depth int)
	explore = func(s State, depth int) {
		checkInvariants(t, g, s)
		if depth == 0 || t.Failed() {
			return
		}
		for _, h := range ids {
			tr := e.Click(s, h)
			for _, step := range tr.Steps {
				checkInvariants(t, g, step)
			}
			if tr.Changed() {
				explore(tr.Final(s), depth-1)
			}
		}
	}
	explore(e.Initial(), 3)
}

func TestStackKeyByName(t *testing.T) {
	g := newGraph(t, `{
	  "k1": {"name": "Realm", "rgb": "1,0,0", "subjects": ["d1"]},
	  "d1": {"name": "North", "rgb": "2,0,0", "overlord": "k1", "subjects": ["c1"]},
	  "c1": {"name": "C1", "rgb": "3,0,0", "overlord": "d1"},
	  "k2": {"name": "Realm", "rgb": "4,0,0", "subjects": ["d2"]},
	  "d2": {"name": "South", "rgb": "5,0,0", "overlord": "k2", "subjects": ["c2"]},
	  "c2": {"name": "C2", "rgb": "6,0,0", "overlord": "d2"}
	}`)

	byID := New(g)
	byName := New(g, WithStackKey(KeyByName))
	s, _ := byID.DrillInto(byID.Initial(), "k1")

	if tr := byID.Click(s, "c2"); tr.Target != "k2" || !tr.Reset {
		t.Errorf("by id: Click(c2) = %+v, want reset into k2", tr)
	}
	// k2 shares k1's name, so by name it counts as already drilled.
	if tr := byName.Click(s, "c2"); tr.Target != "d2" || tr.Reset {
		t.Errorf("by name: Click(c2) = %+v, want direct drill into d2", tr)
	}
}

func TestParseStackKey(t *testing.T) {
	tests := []struct {
		in      string
		want    StackKey
		wantErr bool
	}{
		{"", KeyByID, false},
		{"id", KeyByID, false},
		{"name", KeyByName, false},
		{"colour", KeyByID, true},
	}
	for _, tt := range tests {
		got, err := ParseStackKey(tt.in)
		if got != tt.want || (err != nil) != tt.wantErr {
			t.Errorf("ParseStackKey(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func TestBreadcrumbs(t *testing.T) {
	e := newEngine(t)
	s, _ := e.DrillInto(e.Initial(), "k_a")
	s, _ = e.DrillInto(s, "d_b")
	if got := e.Breadcrumbs(s); !slices.Equal(got, []string{"Kingdom A", "Duchy B"}) {
		t.Errorf("Breadcrumbs() = %v", got)
	}
}
