package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/calavorn/realmmap/pkg/region"
)

// Options configures hierarchy diagram rendering.
type Options struct {
	// Detailed adds the id and realm size under each name.
	Detailed bool

	// Root limits the diagram to one realm and everything below it.
	// Empty draws the whole tier.
	Root string

	// MaxDepth limits how many levels below the top are drawn. Zero or
	// negative draws every level.
	MaxDepth int
}

// ToDOT converts a tier's hierarchy to Graphviz DOT, with an edge from
// every overlord to each of its subjects. Nodes are filled with the
// region's map colour; regions involved in a consistency issue get a
// dashed red outline.
func ToDOT(g *region.Graph, opts Options) (string, error) {
	tops := g.Roots()
	if opts.Root != "" {
		if !g.Contains(opts.Root) {
			return "", fmt.Errorf("no region %q in the %s tier", opts.Root, g.Tier())
		}
		tops = []string{opts.Root}
	}

	flagged := map[string]bool{}
	for _, is := range g.Issues() {
		flagged[is.Region] = true
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fontsize=20, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.6;\n")
	buf.WriteString("  nodesep=0.25;\n")
	buf.WriteString("\n")

	var edges []string
	seen := map[string]bool{}
	var walk func(id string, depth int)
	walk = func(id string, depth int) {
		if seen[id] {
			return
		}
		seen[id] = true
		r, _ := g.Region(id)
		fmt.Fprintf(&buf, "  %q [%s];\n", id, strings.Join(fmtAttrs(r, opts.Detailed, flagged[id]), ", "))
		if opts.MaxDepth > 0 && depth >= opts.MaxDepth {
			return
		}
		for _, sub := range g.Subjects(id) {
			edges = append(edges, fmt.Sprintf("  %q -> %q;\n", id, sub))
			walk(sub, depth+1)
		}
	}
	for _, id := range tops {
		walk(id, 0)
	}
	if opts.Root == "" {
		// Regions under a missing overlord or inside a cycle have no root.
		for _, id := range g.IDs() {
			walk(id, 0)
		}
	}

	buf.WriteString("\n")
	for _, e := range edges {
		buf.WriteString(e)
	}
	buf.WriteString("}\n")
	return buf.String(), nil
}

func fmtLabel(r region.Region, detailed bool) string {
	if !detailed {
		return r.DisplayName()
	}
	parts := []string{r.DisplayName(), r.ID, fmt.Sprintf("size: %d", r.Size)}
	if r.SubjectSize > 0 {
		parts = append(parts, fmt.Sprintf("from subjects: %d", r.SubjectSize))
	}
	return strings.Join(parts, "\n")
}

func fmtAttrs(r region.Region, detailed, flagged bool) []string {
	attrs := []string{
		fmt.Sprintf("label=%q", fmtLabel(r, detailed)),
		fmt.Sprintf("fillcolor=%q", r.Color.Hex()),
		fmt.Sprintf("fontcolor=%q", textColor(r.Color)),
	}
	if flagged {
		attrs = append(attrs, "style=\"rounded,filled,dashed\"", "color=red", "penwidth=2")
	}
	return attrs
}

// textColor picks black or white, whichever reads better on c.
func textColor(c region.Color) string {
	lum := 0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)
	if lum > 140 {
		return "black"
	}
	return "white"
}

// Formats lists the output formats accepted by [Render].
var Formats = []string{"dot", "svg", "png"}

// Render produces the diagram in format, one of [Formats].
func Render(ctx context.Context, dot, format string) ([]byte, error) {
	switch format {
	case "dot":
		return []byte(dot), nil
	case "svg":
		out, err := render(ctx, dot, graphviz.SVG)
		if err != nil {
			return nil, err
		}
		return normalizeViewBox(out), nil
	case "png":
		return render(ctx, dot, graphviz.PNG)
	}
	return nil, fmt.Errorf("unsupported format %q (want one of %s)", format, strings.Join(Formats, ", "))
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(dot string) ([]byte, error) {
	return Render(context.Background(), dot, "svg")
}

func render(ctx context.Context, dot string, format graphviz.Format) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's pt-sized root element with one
// that scales to its container.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}

// ValidFormat reports whether format is one of [Formats].
func ValidFormat(format string) bool {
	return slices.Contains(Formats, format)
}
