// Package export renders a projected story graph to shareable formats.
//
// The node-link structure comes straight from the scene projection, so
// exports show exactly what the editor shows: the same status coloring,
// the same collapsed subtrees, the same path highlight.
package export

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/inkpath/plotline/pkg/scene"
)

// Supported export formats.
const (
	FormatDOT = "dot"
	FormatSVG = "svg"
)

// ValidFormats is the set of supported export format names.
var ValidFormats = map[string]bool{
	FormatDOT: true,
	FormatSVG: true,
}

// Options configures graph export.
type Options struct {
	// Detailed includes depth and choice counts in node labels.
	// When false, only the card title is shown.
	Detailed bool

	// Title is the graph title, shown above the diagram when non-empty.
	Title string
}

// ToDOT converts a projected node/edge set to Graphviz DOT format.
// The resulting DOT string can be rendered with [RenderSVG].
//
// Node fill encodes status: orphans red, dead ends orange, incomplete
// cards yellow, the first card blue. Ghost nodes and their edges are
// dashed, and path edges are drawn heavier.
func ToDOT(nodes []scene.Node, edges []scene.Edge, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph story {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.6;\n")
	buf.WriteString("  nodesep=0.3;\n")
	if opts.Title != "" {
		fmt.Fprintf(&buf, "  label=%q;\n  labelloc=t;\n  fontsize=20;\n", opts.Title)
	}
	buf.WriteString("\n")

	for _, n := range nodes {
		attrs := nodeAttrs(n, nodeLabel(n, opts.Detailed))
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range edges {
		attrs := edgeAttrs(e)
		if len(attrs) == 0 {
			fmt.Fprintf(&buf, "  %q -> %q;\n", e.SourceID, e.TargetID)
			continue
		}
		fmt.Fprintf(&buf, "  %q -> %q [%s];\n", e.SourceID, e.TargetID, strings.Join(attrs, ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeLabel(n scene.Node, detailed bool) string {
	label := n.Label
	if label == "" {
		label = n.ID
	}
	if n.IsCollapsed && n.HiddenDescendantCount > 0 {
		label = fmt.Sprintf("%s (+%d)", label, n.HiddenDescendantCount)
	}
	if !detailed {
		return label
	}

	parts := []string{
		fmt.Sprintf("depth: %d", n.Depth),
		fmt.Sprintf("choices: %d", n.ChoiceCount),
	}
	return label + "\n" + strings.Join(parts, "\n")
}

func nodeAttrs(n scene.Node, label string) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	switch {
	case n.Kind == scene.KindSuggestion:
		attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fillcolor=lightgrey", "fontcolor=grey30")
	case n.IsFirst:
		attrs = append(attrs, "fillcolor=lightblue", "penwidth=2")
	case n.IsOrphaned:
		attrs = append(attrs, "fillcolor=mistyrose", "color=red")
	case n.IsDeadEnd:
		attrs = append(attrs, "fillcolor=peachpuff", "color=darkorange")
	case n.IsIncomplete:
		attrs = append(attrs, "fillcolor=lightyellow")
	}
	if n.IsOnPath && !n.IsFirst {
		attrs = append(attrs, "penwidth=2")
	}
	return attrs
}

func edgeAttrs(e scene.Edge) []string {
	var attrs []string
	if e.Kind == scene.KindSuggestion {
		attrs = append(attrs, "style=dashed", "color=grey50")
	}
	if e.IsOnPath {
		attrs = append(attrs, "penwidth=2.5", "color=steelblue")
	}
	if e.Label != "" {
		attrs = append(attrs, fmt.Sprintf("label=%q", e.Label), "fontsize=10")
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
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
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the root <svg> tag so the viewBox origin is
// zero and explicit pixel dimensions are present. Some SVG consumers
// mishandle Graphviz's point-based sizing.
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

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
