package cli

import (
	"context"
	"fmt"
	"image"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/calavorn/realmmap/pkg/drill"
	errs "github.com/calavorn/realmmap/pkg/errors"
	"github.com/calavorn/realmmap/pkg/explorer"
	"github.com/calavorn/realmmap/pkg/region"
)

// Layout of the explorer screen: a two-line header, the map on the left,
// the info panel on the right and a status line above the key help.
const (
	headerRows = 2
	footerRows = 2
	panelWidth = 38
)

// Panel styles
var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDim).
			Padding(0, 1).
			Width(panelWidth - 2)
	panelLabelStyle = lipgloss.NewStyle().Foreground(colorGray)
	crumbStyle      = lipgloss.NewStyle().Foreground(colorBlue)
	keysStyle       = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// Messages
// =============================================================================

// loadedMsg reports the end of a tier load.
type loadedMsg struct {
	tier region.Tier
	err  error
}

// =============================================================================
// ExploreModel - Interactive map explorer
// =============================================================================

// ExploreModel is the bubbletea model for the terminal explorer. The map
// is drawn with half-block characters, two map pixels per cell, each
// pixel tinted with the colour of the region the user would see there.
type ExploreModel struct {
	ctx context.Context
	x   *explorer.Explorer

	// restore is applied by the first load instead of a plain one.
	restore *explorer.Saved
	tier    region.Tier

	width, height int // terminal
	mapW, mapH    int // map display size in pixels; mapH is even

	thumb   *image.RGBA
	visible [][]string // visible region per display pixel
	drawn   drill.State

	snap   explorer.Snapshot
	status string
	err    error
}

// NewExploreModel creates an explorer model that loads tier on start.
// When restore is non-nil and names a tier, that state is restored
// instead.
func NewExploreModel(ctx context.Context, x *explorer.Explorer, tier region.Tier, restore *explorer.Saved) ExploreModel {
	if restore != nil && restore.Tier != "" {
		tier = restore.Tier
	}
	return ExploreModel{ctx: ctx, x: x, tier: tier, restore: restore, width: 80, height: 24}
}

func (m ExploreModel) Init() tea.Cmd {
	return m.load(m.tier)
}

// load starts loading tier, or restoring the saved state, in the background.
func (m ExploreModel) load(tier region.Tier) tea.Cmd {
	ctx, x, saved := m.ctx, m.x, m.restore
	return func() tea.Msg {
		if saved != nil && saved.Tier == tier {
			return loadedMsg{tier: tier, err: x.Restore(ctx, *saved)}
		}
		return loadedMsg{tier: tier, err: x.Load(ctx, tier)}
	}
}

func (m ExploreModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	m, cmd := m.update(msg)
	if m.thumb != nil && m.snap.Status == explorer.StatusReady {
		m.resolveVisible()
	}
	return m, cmd
}

func (m ExploreModel) update(msg tea.Msg) (ExploreModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.key(msg)
	case tea.MouseMsg:
		return m.mouse(msg), nil
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
	case loadedMsg:
		m.restore = nil
		if msg.tier != m.tier {
			return m, nil
		}
		m.err = msg.err
		m.snap = m.x.Snapshot()
		m.thumb = nil
		m.layout()
		if msg.err == nil {
			m.status = fmt.Sprintf("%s tier ready", msg.tier.Title())
		}
	}
	return m, nil
}

func (m ExploreModel) key(msg tea.KeyMsg) (ExploreModel, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "r":
		m.apply(m.x.Reset(m.ctx))
		m.status = "reset"
	case "R":
		m.status = "reloading " + m.tier.String()
		m.snap.Status = explorer.StatusLoading
		ctx, x, tier := m.ctx, m.x, m.tier
		return m, func() tea.Msg { return loadedMsg{tier: tier, err: x.Reload(ctx)} }
	case "t", "tab":
		m.tier = m.tier.Next()
		m.status = "loading " + m.tier.String()
		m.snap = explorer.Snapshot{Tier: m.tier, Status: explorer.StatusLoading}
		m.thumb = nil
		return m, m.load(m.tier)
	}
	return m, nil
}

func (m ExploreModel) mouse(msg tea.MouseMsg) ExploreModel {
	if m.thumb == nil {
		return m
	}
	px, py := m.toMap(msg.X, msg.Y)
	switch {
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		m.apply(m.x.Move(m.ctx, px, py, m.mapW, m.mapH))
		snap, tr, err := m.x.Click(m.ctx)
		m.apply(snap, err)
		m.status = describeTransition(tr)
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonRight:
		m.apply(m.x.Reset(m.ctx))
		m.status = "reset"
	case msg.Action == tea.MouseActionMotion:
		m.apply(m.x.Move(m.ctx, px, py, m.mapW, m.mapH))
	}
	return m
}

// toMap converts a terminal cell to map display coordinates, sampling the
// upper pixel of the cell. Cells outside the map give negative
// coordinates, which clear the hover.
func (m ExploreModel) toMap(col, row int) (float64, float64) {
	row -= headerRows
	if col < 0 || row < 0 || col >= m.mapW || 2*row >= m.mapH {
		return -1, -1
	}
	return float64(col) + 0.5, float64(2*row) + 0.5
}

func (m *ExploreModel) apply(snap explorer.Snapshot, err error) {
	m.snap = snap
	if err != nil {
		m.status = errs.UserMessage(err)
	}
}

// layout fits the map into the space left of the panel, keeping its
// aspect ratio, and rebuilds the thumbnail when the size changed.
func (m *ExploreModel) layout() {
	b := m.x.Bundle()
	if b == nil {
		m.thumb = nil
		return
	}
	w, h := b.Map.Size()
	cols := max(m.width-panelWidth-1, 4)
	px := max(2*(m.height-headerRows-footerRows), 2)
	scale := min(float64(cols)/float64(w), float64(px)/float64(h))
	dw := max(int(float64(w)*scale), 1)
	dh := max(int(float64(h)*scale)/2*2, 2)
	if m.thumb != nil && dw == m.mapW && dh == m.mapH {
		return
	}
	m.mapW, m.mapH = dw, dh
	m.thumb = b.Map.Thumbnail(dw, dh)
	m.visible = nil
}

// resolveVisible computes the visible region of every display pixel for
// the current drill state. It only recomputes after the layers changed.
func (m *ExploreModel) resolveVisible() {
	b := m.x.Bundle()
	if b == nil {
		return
	}
	state := m.x.State()
	if m.visible != nil && m.drawn.Table.Equal(state.Table) {
		return
	}
	byColor := map[region.Color]string{}
	m.visible = make([][]string, m.mapH)
	for y := range m.mapH {
		m.visible[y] = make([]string, m.mapW)
		for x := range m.mapW {
			c := region.FromImage(m.thumb.At(x, y))
			v, ok := byColor[c]
			if !ok {
				if id, found := b.Index.Resolve(c); found {
					if hv, shown := b.Resolver.Resolve(state.Table, id); shown {
						v = hv.Region
					}
				}
				byColor[c] = v
			}
			m.visible[y][x] = v
		}
	}
	m.drawn = state
}

func (m ExploreModel) View() string {
	var b strings.Builder

	title := "Realm Map"
	if m.tier != "" {
		title += " · " + m.tier.Title()
	}
	b.WriteString(StyleTitle.Render(title))
	b.WriteString("  ")
	b.WriteString(m.breadcrumbs())
	b.WriteString("\n\n")

	var left string
	switch {
	case m.snap.Status == explorer.StatusUnavailable || (m.err != nil && m.snap.Status != explorer.StatusLoading):
		left = StyleWarning.Render(iconWarning + " " + m.snap.Error)
	case m.thumb == nil || m.snap.Status != explorer.StatusReady:
		left = StyleDim.Render("Loading " + m.tier.String() + " tier...")
	default:
		left = m.renderMap()
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, " ", m.panel()))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render(m.status))
	b.WriteString("\n")
	b.WriteString(keysStyle.Render("hover: inspect  click: drill  right click/r: reset  t: next tier  R: reload  q: quit"))
	return b.String()
}

func (m ExploreModel) breadcrumbs() string {
	if len(m.snap.Breadcrumbs) == 0 {
		return StyleDim.Render("all realms")
	}
	parts := make([]string, len(m.snap.Breadcrumbs))
	for i, c := range m.snap.Breadcrumbs {
		parts[i] = crumbStyle.Render(c)
	}
	return strings.Join(parts, StyleDim.Render(" "+iconArrow+" "))
}

// renderMap draws the map with each pixel tinted by its visible region.
// The hovered region is drawn lighter; pixels showing no region keep the
// base map colour, dimmed.
func (m ExploreModel) renderMap() string {
	bundle := m.x.Bundle()
	if bundle == nil || len(m.visible) != m.mapH {
		return StyleDim.Render("Loading " + m.tier.String() + " tier...")
	}
	hovered := ""
	if m.snap.Hover != nil {
		hovered = m.snap.Hover.Region
	}

	pixel := func(x, y int) lipgloss.Color {
		id := m.visible[y][x]
		if id == "" {
			c := region.FromImage(m.thumb.At(x, y))
			return lipgloss.Color(region.RGB(c.R/3, c.G/3, c.B/3).Hex())
		}
		r, _ := bundle.Graph.Region(id)
		if id == hovered {
			return lipgloss.Color(lighten(r.Color).Hex())
		}
		return lipgloss.Color(r.Color.Hex())
	}

	var b strings.Builder
	for y := 0; y < m.mapH; y += 2 {
		for x := range m.mapW {
			b.WriteString(lipgloss.NewStyle().
				Foreground(pixel(x, y)).
				Background(pixel(x, y+1)).
				Render("▀"))
		}
		if y+2 < m.mapH {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func lighten(c region.Color) region.Color {
	up := func(v uint8) uint8 { return v + (255-v)/2 }
	return region.RGB(up(c.R), up(c.G), up(c.B))
}

func (m ExploreModel) panel() string {
	var b strings.Builder
	info := m.snap.Info
	if info == nil {
		b.WriteString(StyleDim.Render("Hover a region"))
		return panelStyle.Render(b.String())
	}
	b.WriteString(StyleTitle.Render(info.Title))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render(info.Tier + " · " + info.ID))
	b.WriteString("\n\n")
	row := func(label, value string) {
		b.WriteString(panelLabelStyle.Render(label+": ") + StyleValue.Render(value) + "\n")
	}
	row("Standing", info.Standing)
	row("Realm size", info.RealmSize)
	if len(info.Subjects) > 0 {
		row("Subjects", strings.Join(info.Subjects, ", "))
	}
	if m.snap.Hover != nil {
		row("Layer", m.snap.Hover.Layer.String())
	}
	b.WriteString("\n")
	b.WriteString(info.Description)
	return panelStyle.Render(b.String())
}

// describeTransition summarises a click for the status line.
func describeTransition(tr drill.Transition) string {
	switch {
	case !tr.Changed():
		return "nothing to drill into"
	case tr.Reset:
		return "reset, then drilled into " + tr.Target
	default:
		return "drilled into " + tr.Target
	}
}

// Saved returns the explorer state to resume from next time.
func (m ExploreModel) Saved() explorer.Saved {
	return m.x.Save()
}
