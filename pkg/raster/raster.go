// Package raster samples region colours from a tier's base map.
//
// The base map paints every region in its unique colour. A pointer
// position in display coordinates is scaled to the image's native
// resolution and the pixel there is read with alpha dropped. Scaling and
// thumbnailing use nearest-neighbour so no blended colours are produced.
package raster

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"
	"os"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/calavorn/realmmap/pkg/region"
)

// Sampler reads the colour at a native pixel position.
type Sampler interface {
	Sample(x, y int) (region.Color, bool)
	Size() (w, h int)
}

// Map is a decoded base map.
type Map struct {
	img    image.Image
	bounds image.Rectangle
	format string
}

// New wraps an already decoded image.
func New(img image.Image) *Map {
	return &Map{img: img, bounds: img.Bounds()}
}

// Decode reads a PNG, JPEG or WebP base map.
func Decode(r io.Reader) (*Map, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode base map: %w", err)
	}
	m := New(img)
	m.format = format
	return m, nil
}

// DecodeBytes is Decode over an in-memory image.
func DecodeBytes(data []byte) (*Map, error) {
	return Decode(bytes.NewReader(data))
}

// Load decodes the base map at path.
func Load(path string) (*Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// Format returns the decoder name ("png", "jpeg", "webp"), empty for
// images passed to New.
func (m *Map) Format() string { return m.format }

// Image returns the underlying image.
func (m *Map) Image() image.Image { return m.img }

// Size returns the native width and height.
func (m *Map) Size() (w, h int) { return m.bounds.Dx(), m.bounds.Dy() }

// Sample returns the colour at native pixel (x, y), relative to the image
// origin. ok is false outside the image.
func (m *Map) Sample(x, y int) (region.Color, bool) {
	p := image.Pt(m.bounds.Min.X+x, m.bounds.Min.Y+y)
	if !p.In(m.bounds) {
		return region.Color{}, false
	}
	return region.FromImage(m.img.At(p.X, p.Y)), true
}

// Scale maps a position on a display of size dw×dh to native pixel
// coordinates, rounding down. ok is false for an empty display or a
// position outside it.
func Scale(s Sampler, x, y float64, dw, dh int) (nx, ny int, ok bool) {
	if dw <= 0 || dh <= 0 || x < 0 || y < 0 || x >= float64(dw) || y >= float64(dh) {
		return 0, 0, false
	}
	w, h := s.Size()
	nx = int(math.Floor(x * float64(w) / float64(dw)))
	ny = int(math.Floor(y * float64(h) / float64(dh)))
	return nx, ny, true
}

// SampleScaled samples at a display position.
func SampleScaled(s Sampler, x, y float64, dw, dh int) (region.Color, bool) {
	nx, ny, ok := Scale(s, x, y, dw, dh)
	if !ok {
		return region.Color{}, false
	}
	return s.Sample(nx, ny)
}

// Thumbnail scales the map to w×h with nearest-neighbour sampling, keeping
// every pixel an exact region colour.
func (m *Map) Thumbnail(w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), m.img, m.bounds, draw.Src, nil)
	return dst
}
