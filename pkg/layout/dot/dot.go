package dot

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/diagramflow/pkg/geo"
	"github.com/matzehuels/diagramflow/pkg/layout"
	"github.com/matzehuels/diagramflow/pkg/scene"
)

// pointsPerInch converts between scene units and Graphviz inches.
const pointsPerInch = 72.0

// Engine lays out nodes with Graphviz dot. It implements [layout.Engine].
type Engine struct {
	// Program overrides the layout program ("dot", "neato", ...). Empty
	// means dot.
	Program string
}

var _ layout.Engine = (*Engine)(nil)

// Register adds the Graphviz engine to x under [layout.AlgorithmGraphviz].
func Register(x *layout.Executor) {
	x.Register(layout.AlgorithmGraphviz, &Engine{})
}

// Place implements layout.Engine.
func (e *Engine) Place(nodes []scene.Node, edges []scene.Edge, c layout.Choice) (layout.Placement, error) {
	src, names := ToDOT(nodes, edges, c, e.Program)
	out, err := render(src)
	if err != nil {
		return layout.Placement{}, err
	}
	return Parse(out, nodes, names)
}

// ToDOT writes the graph as DOT source. Nodes and edges are renamed to
// n<i> and e<i> so the output can be matched without quoting rules; names
// maps those back to scene ids.
func ToDOT(nodes []scene.Node, edges []scene.Edge, c layout.Choice, program string) (string, map[string]string) {
	inter, intra := c.Gaps()
	rankdir := "LR"
	if !c.Direction.Horizontal() {
		rankdir = "TB"
	}

	names := make(map[string]string, len(nodes)+len(edges))
	alias := make(map[string]string, len(nodes))

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	if program != "" {
		fmt.Fprintf(&buf, "  layout=%q;\n", program)
	}
	fmt.Fprintf(&buf, "  rankdir=%s;\n", rankdir)
	fmt.Fprintf(&buf, "  ranksep=%s;\n", inches(inter))
	fmt.Fprintf(&buf, "  nodesep=%s;\n", inches(intra))
	buf.WriteString("  splines=polyline;\n")
	buf.WriteString("  node [shape=box, fixedsize=true, label=\"\"];\n\n")

	for i, n := range nodes {
		name := "n" + strconv.Itoa(i)
		names[name] = n.ID
		alias[n.ID] = name
		s := n.Size()
		fmt.Fprintf(&buf, "  %s [width=%s, height=%s];\n", name, inches(s.Width), inches(s.Height))
	}
	buf.WriteString("\n")
	for i, e := range edges {
		from, okF := alias[e.Source]
		to, okT := alias[e.Target]
		if !okF || !okT || e.Source == e.Target {
			continue
		}
		name := "e" + strconv.Itoa(i)
		names[name] = e.ID
		fmt.Fprintf(&buf, "  %s -> %s [id=%s];\n", from, to, name)
	}
	buf.WriteString("}\n")
	return buf.String(), names
}

func inches(v float64) string {
	return strconv.FormatFloat(v/pointsPerInch, 'f', 4, 64)
}

func render(src string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(src))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.XDOT, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

var (
	bbRe   = regexp.MustCompile(`bb="([-0-9.e+]+),([-0-9.e+]+),([-0-9.e+]+),([-0-9.e+]+)"`)
	nodeRe = regexp.MustCompile(`(?m)^\s*(n\d+)\s*\[([^\]]*)\]`)
	edgeRe = regexp.MustCompile(`(?m)^\s*n\d+\s*->\s*n\d+\s*\[([^\]]*)\]`)
	posRe  = regexp.MustCompile(`\bpos="([^"]*)"`)
	idRe   = regexp.MustCompile(`\bid=("?)(e\d+)("?)`)
)

// Parse reads node centres and edge polylines out of rendered DOT output
// and converts them to top-left scene coordinates (Graphviz's y axis
// points up).
func Parse(out []byte, nodes []scene.Node, names map[string]string) (layout.Placement, error) {
	text := strings.ReplaceAll(string(out), "\\\n", "")

	m := bbRe.FindStringSubmatch(text)
	if m == nil {
		return layout.Placement{}, fmt.Errorf("graphviz output has no bounding box")
	}
	top, _ := strconv.ParseFloat(m[4], 64)

	sizes := make(map[string]geo.Size, len(nodes))
	for _, n := range nodes {
		sizes[n.ID] = n.Size()
	}

	place := layout.Placement{
		Positions: make(map[string]geo.Point, len(nodes)),
		Waypoints: map[string][]geo.Point{},
	}
	for _, nm := range nodeRe.FindAllStringSubmatch(text, -1) {
		id, ok := names[nm[1]]
		if !ok {
			continue
		}
		pm := posRe.FindStringSubmatch(nm[2])
		if pm == nil {
			continue
		}
		pts := parsePoints(pm[1])
		if len(pts) != 1 {
			continue
		}
		s := sizes[id]
		place.Positions[id] = geo.Point{
			X: pts[0].X - s.Width/2,
			Y: top - pts[0].Y - s.Height/2,
		}
	}

	for _, em := range edgeRe.FindAllStringSubmatch(text, -1) {
		im := idRe.FindStringSubmatch(em[1])
		pm := posRe.FindStringSubmatch(em[1])
		if im == nil || pm == nil {
			continue
		}
		id, ok := names[im[2]]
		if !ok {
			continue
		}
		pts := parsePoints(pm[1])
		if len(pts) <= 2 {
			continue
		}
		inner := make([]geo.Point, 0, len(pts)-2)
		for _, p := range pts[1 : len(pts)-1] {
			inner = append(inner, geo.Point{X: p.X, Y: top - p.Y})
		}
		place.Waypoints[id] = inner
	}
	return place, nil
}

// parsePoints reads a space-separated "x,y" list, skipping the "e," and
// "s," arrowhead markers of edge splines.
func parsePoints(s string) []geo.Point {
	var pts []geo.Point
	for _, f := range strings.Fields(s) {
		if strings.HasPrefix(f, "e,") || strings.HasPrefix(f, "s,") {
			continue
		}
		xs, ys, ok := strings.Cut(f, ",")
		if !ok {
			continue
		}
		x, errX := strconv.ParseFloat(xs, 64)
		y, errY := strconv.ParseFloat(ys, 64)
		if errX != nil || errY != nil {
			continue
		}
		pts = append(pts, geo.Point{X: x, Y: y})
	}
	return pts
}
