package region

// ColorIndex maps the exact base-map colour of each region to its id.
// It is built per tier and never modified afterwards.
type ColorIndex struct {
	byColor map[Color]string
}

// NewColorIndex indexes every region of g. When two regions share a colour
// the one with the smaller id wins; [Graph.Issues] reports the clash.
func NewColorIndex(g *Graph) *ColorIndex {
	x := &ColorIndex{byColor: make(map[Color]string, g.Len())}
	for _, id := range g.ids {
		c := g.regions[id].Color
		if _, taken := x.byColor[c]; !taken {
			x.byColor[c] = id
		}
	}
	return x
}

// Resolve returns the region painted in c. ok is false for background,
// borders and any colour not assigned to a region.
func (x *ColorIndex) Resolve(c Color) (id string, ok bool) {
	id, ok = x.byColor[c]
	return id, ok
}

// Len returns the number of indexed colours.
func (x *ColorIndex) Len() int { return len(x.byColor) }
