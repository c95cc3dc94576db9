package layers

import (
	"path"

	"github.com/calavorn/realmmap/pkg/region"
)

// Assets builds the paths of pre-rendered overlay and base map images.
//
// Overlays live at {OverlayBase}/{tier}/{r_g_b}[_nested][_hover].{Ext};
// base maps at {MapBase}/{tier}_map.{Ext}; banners at
// {BannerBase}/{tier}/{banner}.png. Paths are slash separated so they can be
// served as URLs or joined onto a directory.
type Assets struct {
	OverlayBase string
	MapBase     string
	BannerBase  string
	Ext         string
}

// DefaultAssets mirrors the layout the map renderer writes.
func DefaultAssets() Assets {
	return Assets{
		OverlayBase: "/data/regions",
		MapBase:     "/data",
		BannerBase:  "/data/banners",
		Ext:         "png",
	}
}

func (a Assets) ext() string {
	if a.Ext == "" {
		return "png"
	}
	return a.Ext
}

// Overlay returns the image path of a region layer. k must be Collapsed or
// Nested; None is treated as Collapsed.
func (a Assets) Overlay(tier region.Tier, c region.Color, k Kind, hover bool) string {
	name := c.Key()
	if k == Nested {
		name += "_nested"
	}
	if hover {
		name += "_hover"
	}
	return path.Join(a.OverlayBase, string(tier), name+"."+a.ext())
}

// BaseMap returns the path of the tier's base raster.
func (a Assets) BaseMap(tier region.Tier) string {
	return path.Join(a.MapBase, string(tier)+"_map."+a.ext())
}

// Banner returns the banner image path, or "" when the region has none.
func (a Assets) Banner(tier region.Tier, banner string) string {
	if banner == "" {
		return ""
	}
	return path.Join(a.BannerBase, string(tier), banner+".png")
}

// Expected lists every overlay path a complete render of g provides:
// collapsed and collapsed hover for every region, plus nested and nested
// hover for regions with subjects.
func (a Assets) Expected(g *region.Graph) []string {
	var out []string
	for _, id := range g.IDs() {
		r, _ := g.Region(id)
		out = append(out,
			a.Overlay(g.Tier(), r.Color, Collapsed, false),
			a.Overlay(g.Tier(), r.Color, Collapsed, true),
		)
		if r.HasSubjects() {
			out = append(out,
				a.Overlay(g.Tier(), r.Color, Nested, false),
				a.Overlay(g.Tier(), r.Color, Nested, true),
			)
		}
	}
	return out
}
