// Package nodelink draws a tier's political hierarchy as a node-link
// diagram.
//
// Every region becomes a box filled with its map colour, and every
// overlord points at its subjects. The layout is left to Graphviz, which
// runs in-process through go-graphviz.
//
//	dot, err := nodelink.ToDOT(g, nodelink.Options{Root: "k_albion", MaxDepth: 2})
//	svg, err := nodelink.Render(ctx, dot, "svg")
//
// Regions named in one of the graph's consistency issues are outlined in
// dashed red so broken hierarchies stand out.
package nodelink
