package cli

import (
	"context"
	"io"
	"slices"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/calavorn/realmmap/pkg/drill"
	"github.com/calavorn/realmmap/pkg/explorer"
	"github.com/calavorn/realmmap/pkg/region"
	"github.com/calavorn/realmmap/pkg/source"
)

// loadedModel returns an explorer model with the county fixture loaded
// into an 80×24 terminal.
func loadedModel(t *testing.T) ExploreModel {
	t.Helper()
	src, err := source.NewDirSource(writeTiers(t), "")
	if err != nil {
		t.Fatal(err)
	}
	reg := explorer.NewRegistry(src, explorer.DefaultSettings(), log.New(io.Discard))
	m := NewExploreModel(context.Background(), explorer.New(reg), region.TierCounty, nil)

	m = send(t, m, m.Init()())
	m = send(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
	if m.snap.Status != explorer.StatusReady || m.thumb == nil {
		t.Fatalf("model not ready: status=%s err=%v", m.snap.Status, m.err)
	}
	return m
}

func send(t *testing.T, m ExploreModel, msg tea.Msg) ExploreModel {
	t.Helper()
	next, _ := m.Update(msg)
	em, ok := next.(ExploreModel)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return em
}

func TestExploreModelHoverAndClick(t *testing.T) {
	m := loadedModel(t)

	// Top-left cell of the map shows c_c, collapsed into its realm.
	m = send(t, m, tea.MouseMsg{X: 0, Y: headerRows, Action: tea.MouseActionMotion})
	if m.snap.Hover == nil || m.snap.Hover.Region != "k_a" {
		t.Fatalf("hover = %+v, want k_a", m.snap.Hover)
	}
	if m.snap.Info == nil || m.snap.Info.Title != "Kingdom A" {
		t.Errorf("info = %+v", m.snap.Info)
	}

	m = send(t, m, tea.MouseMsg{X: 0, Y: headerRows, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	if !slices.Equal(m.snap.Stack, []string{"k_a"}) {
		t.Errorf("stack = %v, want [k_a]", m.snap.Stack)
	}
	if m.status != "reset, then drilled into k_a" {
		t.Errorf("status = %q", m.status)
	}
	if m.visible[0][0] != "d_b" {
		t.Errorf("visible region after drilling = %q, want d_b", m.visible[0][0])
	}

	view := m.View()
	for _, want := range []string{"Realm Map", "Kingdom A", "Duchy B"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}

	m = send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	if len(m.snap.Stack) != 0 || m.status != "reset" {
		t.Errorf("after reset: stack = %v, status = %q", m.snap.Stack, m.status)
	}
}

func TestExploreModelOutsideMap(t *testing.T) {
	m := loadedModel(t)
	if x, y := m.toMap(m.mapW, headerRows); x >= 0 || y >= 0 {
		t.Errorf("toMap right of the map = (%v, %v)", x, y)
	}
	if x, y := m.toMap(0, 0); x >= 0 || y >= 0 {
		t.Errorf("toMap in the header = (%v, %v)", x, y)
	}

	m = send(t, m, tea.MouseMsg{X: 0, Y: headerRows, Action: tea.MouseActionMotion})
	m = send(t, m, tea.MouseMsg{X: 0, Y: 0, Action: tea.MouseActionMotion})
	if m.snap.Hover != nil {
		t.Errorf("hover outside the map = %+v", m.snap.Hover)
	}
}

func TestExploreModelNextTier(t *testing.T) {
	m := loadedModel(t)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = next.(ExploreModel)
	if m.tier != region.TierCounty.Next() || m.snap.Status != explorer.StatusLoading || cmd == nil {
		t.Fatalf("tab: tier=%s status=%s", m.tier, m.snap.Status)
	}
	if !strings.Contains(m.View(), "Loading") {
		t.Error("view should show the loading message")
	}
}

func TestDescribeTransition(t *testing.T) {
	tests := []struct {
		tr   drill.Transition
		want string
	}{
		{drill.Transition{}, "nothing to drill into"},
		{drill.Transition{Target: "d_b", Steps: []drill.State{{}}}, "drilled into d_b"},
		{drill.Transition{Target: "k_x", Reset: true, Steps: []drill.State{{}, {}}}, "reset, then drilled into k_x"},
	}
	for _, tt := range tests {
		if got := describeTransition(tt.tr); got != tt.want {
			t.Errorf("describeTransition(%+v) = %q, want %q", tt.tr, got, tt.want)
		}
	}
}
