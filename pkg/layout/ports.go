package layout

import (
	"github.com/matzehuels/diagramflow/pkg/geo"
	"github.com/matzehuels/diagramflow/pkg/scene"
)

// AssignPorts fills in unset or invalid edge ports from the relative
// position of the source and target boxes along the main axis:
//
//	forward (target after source):  LR right→left,  TB bottom→top
//	backward (target before source): LR left→right,  TB top→bottom
//	same layer (main ranges overlap): cross-axis ports, ordered by cross position
//
// Explicit valid ports are kept. Boxes must share one coordinate space;
// edges with an endpoint missing from boxes are left alone.
func AssignPorts(edges []scene.Edge, boxes map[string]geo.Box, dir Direction) {
	for i := range edges {
		e := &edges[i]
		if !e.SourcePort.Valid() {
			e.SourcePort = scene.PortNone
		}
		if !e.TargetPort.Valid() {
			e.TargetPort = scene.PortNone
		}
		if e.SourcePort != scene.PortNone && e.TargetPort != scene.PortNone {
			continue
		}
		sb, okS := boxes[e.Source]
		tb, okT := boxes[e.Target]
		if !okS || !okT {
			continue
		}
		sp, tp := portsFor(sb, tb, dir)
		if e.SourcePort == scene.PortNone {
			e.SourcePort = sp
		}
		if e.TargetPort == scene.PortNone {
			e.TargetPort = tp
		}
	}
}

func portsFor(sb, tb geo.Box, dir Direction) (scene.Port, scene.Port) {
	horizontal := dir.Horizontal()

	var sMin, sMax, tMin, tMax, sCross, tCross float64
	if horizontal {
		sMin, sMax, tMin, tMax = sb.X, sb.MaxX(), tb.X, tb.MaxX()
		sCross, tCross = sb.Center().Y, tb.Center().Y
	} else {
		sMin, sMax, tMin, tMax = sb.Y, sb.MaxY(), tb.Y, tb.MaxY()
		sCross, tCross = sb.Center().X, tb.Center().X
	}

	switch {
	case tMin >= sMax: // forward
		if horizontal {
			return scene.PortRight, scene.PortLeft
		}
		return scene.PortBottom, scene.PortTop
	case tMax <= sMin: // backward
		if horizontal {
			return scene.PortLeft, scene.PortRight
		}
		return scene.PortTop, scene.PortBottom
	}

	after := tCross >= sCross
	if horizontal {
		if after {
			return scene.PortBottom, scene.PortTop
		}
		return scene.PortTop, scene.PortBottom
	}
	if after {
		return scene.PortRight, scene.PortLeft
	}
	return scene.PortLeft, scene.PortRight
}
