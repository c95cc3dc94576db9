package region

import (
	"encoding/json"
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// Color is the exact RGB colour a region is painted with on the base map.
// In datasets it is written as "r,g,b".
type Color struct {
	R, G, B uint8
}

// RGB builds a Color from its components.
func RGB(r, g, b uint8) Color { return Color{R: r, G: g, B: b} }

// FromImage converts an image colour to a Color. The channels are read
// without alpha premultiplication and alpha is then dropped, so a
// translucent pixel keeps the colour it was painted with.
func FromImage(c color.Color) Color {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	return Color{R: n.R, G: n.G, B: n.B}
}

// ParseColor parses the dataset form "r,g,b". Whitespace around the
// components is ignored.
func ParseColor(s string) (Color, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return Color{}, fmt.Errorf("color %q: want 3 components, got %d", s, len(parts))
	}
	var out [3]uint8
	for i, p := range parts {
		v, err := strconv.ParseUint(strings.TrimSpace(p), 10, 8)
		if err != nil {
			return Color{}, fmt.Errorf("color %q: component %d: %w", s, i, err)
		}
		out[i] = uint8(v)
	}
	return Color{R: out[0], G: out[1], B: out[2]}, nil
}

// String returns the dataset form "r,g,b".
func (c Color) String() string {
	return fmt.Sprintf("%d,%d,%d", c.R, c.G, c.B)
}

// Key returns the form used in overlay asset file names, "r_g_b".
func (c Color) Key() string {
	return fmt.Sprintf("%d_%d_%d", c.R, c.G, c.B)
}

// Hex returns "#rrggbb".
func (c Color) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func (c Color) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON accepts either "r,g,b" or [r, g, b].
func (c *Color) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := ParseColor(s)
		if err != nil {
			return err
		}
		*c = parsed
		return nil
	}
	var arr []int
	if err := json.Unmarshal(data, &arr); err != nil {
		return fmt.Errorf("color: want \"r,g,b\" or [r,g,b]: %w", err)
	}
	if len(arr) != 3 {
		return fmt.Errorf("color: want 3 components, got %d", len(arr))
	}
	var out [3]uint8
	for i, v := range arr {
		if v < 0 || v > 255 {
			return fmt.Errorf("color: component %d out of range: %d", i, v)
		}
		out[i] = uint8(v)
	}
	*c = Color{R: out[0], G: out[1], B: out[2]}
	return nil
}
