package pipeline

import (
	"github.com/matzehuels/diagramflow/pkg/errors"
	"github.com/matzehuels/diagramflow/pkg/layout"
	"github.com/matzehuels/diagramflow/pkg/merge"
	"github.com/matzehuels/diagramflow/pkg/scene"
	"github.com/matzehuels/diagramflow/pkg/stream"
)

// Relayout lays out a finished scene from scratch, as if it had arrived
// in one settled batch. Ids pass through unchanged, pinned nodes keep
// their positions, and edge ports and waypoints are recomputed.
func (r *Runner) Relayout(s scene.Scene, prefs layout.Preferences) (scene.Scene, merge.Report, error) {
	if err := s.Validate(); err != nil {
		return scene.Scene{}, merge.Report{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "scene")
	}
	b := Records(s)
	for i := range b.Edges {
		b.Edges[i].SourcePort, b.Edges[i].TargetPort = "", ""
	}
	b.Layout, b.Final = true, true
	out, rep := r.Controller.Apply(scene.New(), merge.NewRun("", "", prefs), b)
	r.Logger.Debug("relayout", "nodes", rep.Nodes, "edges", rep.Edges, "engine", rep.Engine, "iterations", rep.Iterations)
	return out, rep, nil
}

// Records converts a scene back into producer records. Positions are kept
// only for pinned nodes; container membership is expressed through the
// parent reference.
func Records(s scene.Scene) merge.Batch {
	var b merge.Batch
	for _, n := range s.SortedNodes() {
		raw := stream.RawNode{
			ID:     n.ID,
			Kind:   string(n.Kind),
			Parent: n.Parent,
			Width:  n.Width,
			Height: n.Height,
			Pinned: n.Pinned,
			Data:   n.Data,
		}
		if n.Pinned {
			p := s.AbsolutePosition(n.ID)
			raw.Position = &p
			raw.Parent = ""
		}
		b.Nodes = append(b.Nodes, raw)
	}
	for _, e := range s.SortedEdges() {
		b.Edges = append(b.Edges, stream.RawEdge{
			ID:         e.ID,
			Source:     e.Source,
			Target:     e.Target,
			SourcePort: string(e.SourcePort),
			TargetPort: string(e.TargetPort),
			Data:       e.Data,
		})
	}
	return b
}
