package pipeline

import (
	"context"
	"encoding/json"

	"github.com/matzehuels/diagramflow/pkg/cache"
	"github.com/matzehuels/diagramflow/pkg/errors"
	"github.com/matzehuels/diagramflow/pkg/ident"
	"github.com/matzehuels/diagramflow/pkg/merge"
	"github.com/matzehuels/diagramflow/pkg/observability"
	"github.com/matzehuels/diagramflow/pkg/preset"
	"github.com/matzehuels/diagramflow/pkg/scene"
)

// Save stores the run's content as a preset. Run tokens are stripped from
// every id, nodes whose container lies outside the run become top-level
// at their absolute position, and edges to nodes outside the run are
// dropped.
func (r *Runner) Save(ctx context.Context, id, presetID, name string) (*preset.Preset, error) {
	if r.Presets == nil {
		return nil, errors.New(errors.ErrCodeInternal, "no preset store configured")
	}
	if err := errors.ValidatePresetID(presetID); err != nil {
		return nil, err
	}
	sess, err := r.load(ctx, id)
	if err != nil {
		return nil, err
	}

	run := merge.RestoreRun(sess.Run)
	s := scene.FromDocument(sess.Scene)
	sub := ident.StripScene(standalone(s, run.Subset(s)), run.Token)
	p := preset.New(presetID, name, sub)
	if err := r.Presets.Put(ctx, p); err != nil {
		return nil, err
	}
	_ = r.Cache.Delete(ctx, r.Keyer.PresetKey(presetID))

	nodes, edges := sub.Len()
	r.Logger.Info("preset saved", "preset", presetID, "run", id, "nodes", nodes, "edges", edges)
	return p, nil
}

// Preset loads a stored preset as a scene, through the cache.
func (r *Runner) Preset(ctx context.Context, presetID string) (scene.Scene, error) {
	if r.Presets == nil {
		return scene.Scene{}, errors.New(errors.ErrCodeInternal, "no preset store configured")
	}
	if err := errors.ValidatePresetID(presetID); err != nil {
		return scene.Scene{}, err
	}

	key := r.Keyer.PresetKey(presetID)
	if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
		var p preset.Preset
		if json.Unmarshal(data, &p) == nil {
			observability.Cache().OnCacheHit(ctx, "preset")
			return p.SceneOf()
		}
	}
	observability.Cache().OnCacheMiss(ctx, "preset")

	p, err := r.Presets.Get(ctx, presetID)
	if err != nil {
		return scene.Scene{}, err
	}
	if data, err := json.Marshal(p); err == nil {
		if r.Cache.Set(ctx, key, data, cache.TTLPreset) == nil {
			observability.Cache().OnCacheSet(ctx, "preset", len(data))
		}
	}
	return p.SceneOf()
}

// PutPreset stores a finished scene as a preset under presetID, replacing
// any preset of that id.
func (r *Runner) PutPreset(ctx context.Context, presetID, name string, s scene.Scene) (*preset.Preset, error) {
	if r.Presets == nil {
		return nil, errors.New(errors.ErrCodeInternal, "no preset store configured")
	}
	if err := errors.ValidatePresetID(presetID); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "scene")
	}
	p := preset.New(presetID, name, s)
	if err := r.Presets.Put(ctx, p); err != nil {
		return nil, err
	}
	_ = r.Cache.Delete(ctx, r.Keyer.PresetKey(presetID))
	return p, nil
}

// DeletePreset removes a preset and its cached copy.
func (r *Runner) DeletePreset(ctx context.Context, presetID string) error {
	if r.Presets == nil {
		return errors.New(errors.ErrCodeInternal, "no preset store configured")
	}
	if err := errors.ValidatePresetID(presetID); err != nil {
		return err
	}
	if err := r.Presets.Delete(ctx, presetID); err != nil {
		return err
	}
	_ = r.Cache.Delete(ctx, r.Keyer.PresetKey(presetID))
	return nil
}

// standalone makes sub self-contained: children of containers outside sub
// move to the top level and edges with an endpoint outside sub are
// dropped.
func standalone(full, sub scene.Scene) scene.Scene {
	for _, id := range sub.NodeIDs() {
		n := sub.Nodes[id]
		if n.Parent == "" {
			continue
		}
		if _, ok := sub.Nodes[n.Parent]; !ok {
			n.Position = full.AbsolutePosition(id)
			n.Parent, n.Extent = "", ""
			sub.Nodes[id] = n
		}
	}
	for id, e := range sub.Edges {
		_, okS := sub.Nodes[e.Source]
		_, okT := sub.Nodes[e.Target]
		if !okS || !okT {
			delete(sub.Edges, id)
		}
	}
	return sub
}
