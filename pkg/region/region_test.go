package region

import (
	"slices"
	"testing"

	errs "github.com/calavorn/realmmap/pkg/errors"
)

const realmJSON = `{
  "k_a": {"name": "Kingdom A", "rgb": "10,0,0", "subjects": ["d_b"], "size": 3, "subject_size": 2},
  "d_b": {"name": "Duchy B", "rgb": "20,0,0", "overlord": "k_a", "subjects": ["c_c", "c_d"], "size": 2, "subject_size": 2},
  "c_c": {"name": "County C", "rgb": "30, 0, 0", "overlord": "d_b", "size": 1},
  "c_d": {"name": "County D", "rgb": [40, 0, 0], "overlord": "d_b", "size": 1},
  "k_x": {"name": "Kingdom X", "rgb": "50,0,0", "subjects": ["c_z"], "size": 1},
  "c_z": {"name": "County Z", "rgb": "60,0,0", "overlord": "k_x", "size": 1}
}`

func mustGraph(t *testing.T, data string) *Graph {
	t.Helper()
	ds, err := ParseDataset([]byte(data))
	if err != nil {
		t.Fatalf("ParseDataset() error = %v", err)
	}
	return New(TierCounty, ds)
}

func TestParseDataset(t *testing.T) {
	ds, err := ParseDataset([]byte(realmJSON))
	if err != nil {
		t.Fatalf("ParseDataset() error = %v", err)
	}
	if len(ds) != 6 {
		t.Fatalf("len = %d, want 6", len(ds))
	}
	c := ds["c_c"]
	if c.ID != "c_c" {
		t.Errorf("ID = %q, want c_c", c.ID)
	}
	if c.Color != RGB(30, 0, 0) {
		t.Errorf("Color = %v, want 30,0,0", c.Color)
	}
	if ds["c_d"].Color != RGB(40, 0, 0) {
		t.Errorf("array colour = %v, want 40,0,0", ds["c_d"].Color)
	}
}

func TestParseDatasetErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{`},
		{"null", `null`},
		{"bad colour", `{"a": {"name": "A", "rgb": "1,2"}}`},
		{"colour out of range", `{"a": {"name": "A", "rgb": "1,2,300"}}`},
		{"array out of range", `{"a": {"name": "A", "rgb": [1, 2, -1]}}`},
		{"empty id", `{"": {"name": "A", "rgb": "1,2,3"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDataset([]byte(tt.data))
			if err == nil {
				t.Fatal("ParseDataset() error = nil, want error")
			}
			if !errs.Is(err, errs.ErrCodeInvalidDataset) {
				t.Errorf("code = %v, want %v", errs.GetCode(err), errs.ErrCodeInvalidDataset)
			}
		})
	}
}

func TestColor(t *testing.T) {
	c, err := ParseColor(" 12 , 200,3 ")
	if err != nil {
		t.Fatalf("ParseColor() error = %v", err)
	}
	if c != RGB(12, 200, 3) {
		t.Errorf("ParseColor() = %v, want 12,200,3", c)
	}
	if got := c.Key(); got != "12_200_3" {
		t.Errorf("Key() = %q, want 12_200_3", got)
	}
	if got := c.String(); got != "12,200,3" {
		t.Errorf("String() = %q, want 12,200,3", got)
	}
	if got := c.Hex(); got != "#0cc803" {
		t.Errorf("Hex() = %q, want #0cc803", got)
	}
}

func TestAncestors(t *testing.T) {
	g := mustGraph(t, realmJSON)

	tests := []struct {
		id   string
		want []string
	}{
		{"c_c", []string{"c_c", "d_b", "k_a"}},
		{"d_b", []string{"d_b", "k_a"}},
		{"k_a", []string{"k_a"}},
		{"c_z", []string{"c_z", "k_x"}},
		{"missing", nil},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			if got := g.Chain(tt.id); !slices.Equal(got, tt.want) {
				t.Errorf("Ancestors(%q) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}

func TestAncestorsRestartable(t *testing.T) {
	g := mustGraph(t, realmJSON)
	seq := g.Ancestors("c_d")
	first := slices.Collect(seq)
	second := slices.Collect(seq)
	if !slices.Equal(first, second) {
		t.Errorf("second walk = %v, want %v", second, first)
	}

	// early stop
	for id := range seq {
		if id != "c_d" {
			t.Errorf("first yielded = %q, want c_d", id)
		}
		break
	}
}

func TestGraphStructure(t *testing.T) {
	g := mustGraph(t, realmJSON)

	if !g.Valid() {
		t.Errorf("Issues() = %v, want none", g.Issues())
	}
	if got := g.Roots(); !slices.Equal(got, []string{"k_a", "k_x"}) {
		t.Errorf("Roots() = %v, want [k_a k_x]", got)
	}
	if got := g.Subjects("d_b"); !slices.Equal(got, []string{"c_c", "c_d"}) {
		t.Errorf("Subjects(d_b) = %v", got)
	}
	if g.HasSubjects("c_c") {
		t.Error("HasSubjects(c_c) = true, want false")
	}
	if o, ok := g.Overlord("c_c"); !ok || o != "d_b" {
		t.Errorf("Overlord(c_c) = %q, %v", o, ok)
	}
	if _, ok := g.Overlord("k_a"); ok {
		t.Error("Overlord(k_a) ok = true, want false")
	}
	if got := g.Depth("c_c"); got != 2 {
		t.Errorf("Depth(c_c) = %d, want 2", got)
	}
	if got := g.Depth("nope"); got != -1 {
		t.Errorf("Depth(nope) = %d, want -1", got)
	}
	if got := slices.Collect(g.Descendants("k_a")); !slices.Equal(got, []string{"d_b", "c_c", "c_d"}) {
		t.Errorf("Descendants(k_a) = %v", got)
	}
}

func issueKinds(g *Graph) []IssueKind {
	var out []IssueKind
	for _, i := range g.Issues() {
		out = append(out, i.Kind)
	}
	return out
}

func TestInconsistentHierarchy(t *testing.T) {
	tests := []struct {
		name       string
		data       string
		chainFrom  string
		wantChain  []string
		wantIssues []IssueKind
	}{
		{
			name: "dangling overlord stops walk",
			data: `{
			  "a": {"name": "A", "rgb": "1,0,0", "subjects": []},
			  "b": {"name": "B", "rgb": "2,0,0", "overlord": "ghost"}
			}`,
			chainFrom:  "b",
			wantChain:  []string{"b"},
			wantIssues: []IssueKind{IssueMissingOverlord},
		},
		{
			name: "missing subject dropped",
			data: `{
			  "a": {"name": "A", "rgb": "1,0,0", "subjects": ["b", "ghost"]},
			  "b": {"name": "B", "rgb": "2,0,0", "overlord": "a"}
			}`,
			chainFrom:  "b",
			wantChain:  []string{"b", "a"},
			wantIssues: []IssueKind{IssueMissingSubject},
		},
		{
			name: "first overlord by id wins",
			data: `{
			  "a": {"name": "A", "rgb": "1,0,0", "subjects": ["c"]},
			  "b": {"name": "B", "rgb": "2,0,0", "subjects": ["c"]},
			  "c": {"name": "C", "rgb": "3,0,0", "overlord": "a"}
			}`,
			chainFrom:  "c",
			wantChain:  []string{"c", "a"},
			wantIssues: []IssueKind{IssueMultipleOverlords},
		},
		{
			name: "subject list beats declared overlord",
			data: `{
			  "a": {"name": "A", "rgb": "1,0,0", "subjects": ["c"]},
			  "b": {"name": "B", "rgb": "2,0,0"},
			  "c": {"name": "C", "rgb": "3,0,0", "overlord": "b"}
			}`,
			chainFrom:  "c",
			wantChain:  []string{"c", "a"},
			wantIssues: []IssueKind{IssueOverlordMismatch},
		},
		{
			name: "unlisted subject appended",
			data: `{
			  "a": {"name": "A", "rgb": "1,0,0", "subjects": ["b"]},
			  "b": {"name": "B", "rgb": "2,0,0", "overlord": "a"},
			  "c": {"name": "C", "rgb": "3,0,0", "overlord": "a"}
			}`,
			chainFrom:  "c",
			wantChain:  []string{"c", "a"},
			wantIssues: []IssueKind{IssueOverlordMismatch},
		},
		{
			name: "two-region cycle terminates",
			data: `{
			  "a": {"name": "A", "rgb": "1,0,0", "subjects": ["b"]},
			  "b": {"name": "B", "rgb": "2,0,0", "subjects": ["a"]}
			}`,
			chainFrom:  "a",
			wantChain:  []string{"a", "b"},
			wantIssues: []IssueKind{IssueCycle},
		},
		{
			name: "duplicate colour",
			data: `{
			  "a": {"name": "A", "rgb": "1,0,0"},
			  "b": {"name": "B", "rgb": "1,0,0"}
			}`,
			chainFrom:  "b",
			wantChain:  []string{"b"},
			wantIssues: []IssueKind{IssueDuplicateColor},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := mustGraph(t, tt.data)
			if got := g.Chain(tt.chainFrom); !slices.Equal(got, tt.wantChain) {
				t.Errorf("Ancestors(%q) = %v, want %v", tt.chainFrom, got, tt.wantChain)
			}
			if got := issueKinds(g); !slices.Equal(got, tt.wantIssues) {
				t.Errorf("Issues() = %v, want %v", g.Issues(), tt.wantIssues)
			}
		})
	}
}

func TestDerivedSubjects(t *testing.T) {
	g := mustGraph(t, `{
	  "n": {"name": "N", "rgb": "1,0,0"},
	  "z": {"name": "Z", "rgb": "2,0,0", "overlord": "n"},
	  "m": {"name": "M", "rgb": "3,0,0", "overlord": "n"}
	}`)
	if !g.Valid() {
		t.Errorf("Issues() = %v, want none", g.Issues())
	}
	if got := g.Subjects("n"); !slices.Equal(got, []string{"m", "z"}) {
		t.Errorf("Subjects(n) = %v, want [m z]", got)
	}
}

func TestColorIndex(t *testing.T) {
	g := mustGraph(t, realmJSON)
	x := NewColorIndex(g)

	if x.Len() != g.Len() {
		t.Errorf("Len() = %d, want %d", x.Len(), g.Len())
	}
	for _, id := range g.IDs() {
		r, _ := g.Region(id)
		if got, ok := x.Resolve(r.Color); !ok || got != id {
			t.Errorf("Resolve(%v) = %q, %v, want %q", r.Color, got, ok, id)
		}
	}
	if _, ok := x.Resolve(RGB(0, 0, 0)); ok {
		t.Error("Resolve(background) ok = true, want false")
	}
	if _, ok := x.Resolve(RGB(31, 0, 0)); ok {
		t.Error("Resolve(near miss) ok = true, want false")
	}
}

func TestColorIndexDuplicateFirstWins(t *testing.T) {
	g := mustGraph(t, `{
	  "b": {"name": "B", "rgb": "1,0,0"},
	  "a": {"name": "A", "rgb": "1,0,0"}
	}`)
	if got, _ := NewColorIndex(g).Resolve(RGB(1, 0, 0)); got != "a" {
		t.Errorf("Resolve() = %q, want a", got)
	}
}

func TestParseTier(t *testing.T) {
	tests := []struct {
		input    string
		want     Tier
		wantCode errs.Code
	}{
		{"county", TierCounty, ""},
		{"empire", TierEmpire, ""},
		{"nation", TierNation, ""},
		{"barony", "", errs.ErrCodeTierNotFound},
		{"County", "", errs.ErrCodeInvalidTier},
		{"", "", errs.ErrCodeInvalidTier},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseTier(tt.input)
			if got != tt.want {
				t.Errorf("ParseTier(%q) = %q, want %q", tt.input, got, tt.want)
			}
			if code := errs.GetCode(err); code != tt.wantCode {
				t.Errorf("ParseTier(%q) code = %q, want %q", tt.input, code, tt.wantCode)
			}
		})
	}
}

func TestTierTitle(t *testing.T) {
	if got := TierDuchy.Title(); got != "Duchy" {
		t.Errorf("Title() = %q, want Duchy", got)
	}
	if got := TierNation.Next(); got != TierCounty {
		t.Errorf("Next() = %q, want county", got)
	}
}
