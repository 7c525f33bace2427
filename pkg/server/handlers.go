package server

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/diagramflow/pkg/errors"
	"github.com/matzehuels/diagramflow/pkg/layout"
	"github.com/matzehuels/diagramflow/pkg/merge"
	"github.com/matzehuels/diagramflow/pkg/pipeline"
	"github.com/matzehuels/diagramflow/pkg/scene"
)

// PrefsRequest carries the caller's layout hints.
type PrefsRequest struct {
	Direction   string `json:"direction,omitempty" validate:"omitempty,oneof=LR TB"`
	Tree        bool   `json:"tree,omitempty"`
	Algorithm   string `json:"algorithm,omitempty" validate:"omitempty,oneof=layered tree grid graphviz"`
	DiagramType string `json:"diagram_type,omitempty"`
}

func (p PrefsRequest) prefs() layout.Preferences {
	return layout.Preferences{
		Direction:   layout.Direction(p.Direction),
		Tree:        p.Tree,
		Algorithm:   layout.Algorithm(p.Algorithm),
		DiagramType: p.DiagramType,
	}
}

// BeginRequest is the body of POST /v1/runs. The base canvas comes from
// either an inline scene or a stored preset.
type BeginRequest struct {
	Mode     string          `json:"mode,omitempty" validate:"omitempty,oneof=generate refine load"`
	Anchor   string          `json:"anchor,omitempty" validate:"required_if=Mode refine"`
	Replaces string          `json:"replaces,omitempty"`
	Base     *scene.Document `json:"base,omitempty"`
	Preset   string          `json:"preset,omitempty" validate:"excluded_with=Base"`
	PrefsRequest
}

// SaveRequest is the body of POST /v1/runs/{id}/save.
type SaveRequest struct {
	PresetID string `json:"preset_id" validate:"required"`
	Name     string `json:"name,omitempty"`
}

// LayoutRequest is the body of POST /v1/layout.
type LayoutRequest struct {
	Scene scene.Document `json:"scene"`
	PrefsRequest
}

// stepResponse is a pipeline step with its scene serialised.
type stepResponse struct {
	*pipeline.Step
	Scene scene.Document `json:"scene"`
}

func stepBody(st *pipeline.Step) stepResponse {
	return stepResponse{Step: st, Scene: scene.ToDocument(st.Scene)}
}

func (s *Server) beginRun(w http.ResponseWriter, r *http.Request) {
	var req BeginRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	opts := pipeline.BeginOptions{
		Mode:     pipeline.Mode(req.Mode),
		Anchor:   req.Anchor,
		Replaces: req.Replaces,
		Prefs:    req.prefs(),
	}
	switch {
	case req.Base != nil:
		opts.Base = scene.FromDocument(*req.Base)
	case req.Preset != "":
		base, err := s.runner.Preset(r.Context(), req.Preset)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		opts.Base = base
	}

	step, err := s.runner.Begin(r.Context(), opts)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, stepBody(step))
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	step, err := s.runner.Scene(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, stepBody(step))
}

func (s *Server) feedRun(w http.ResponseWriter, r *http.Request) {
	chunk, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		s.respondError(w, r, errors.Wrap(errors.ErrCodeInvalidInput, err, "read chunk"))
		return
	}
	step, err := s.runner.Feed(r.Context(), chi.URLParam(r, "runID"), string(chunk))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, stepBody(step))
}

func (s *Server) completeRun(w http.ResponseWriter, r *http.Request) {
	step, err := s.runner.Complete(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, stepBody(step))
}

func (s *Server) cancelRun(w http.ResponseWriter, r *http.Request) {
	if err := s.runner.Cancel(r.Context(), chi.URLParam(r, "runID")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) saveRun(w http.ResponseWriter, r *http.Request) {
	var req SaveRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	p, err := s.runner.Save(r.Context(), chi.URLParam(r, "runID"), req.PresetID, req.Name)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

func (s *Server) listPresets(w http.ResponseWriter, r *http.Request) {
	if s.runner.Presets == nil {
		s.respondError(w, r, errors.New(errors.ErrCodeInternal, "no preset store configured"))
		return
	}
	infos, err := s.runner.Presets.List(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"presets": infos})
}

func (s *Server) getPreset(w http.ResponseWriter, r *http.Request) {
	if s.runner.Presets == nil {
		s.respondError(w, r, errors.New(errors.ErrCodeInternal, "no preset store configured"))
		return
	}
	id := chi.URLParam(r, "presetID")
	if err := errors.ValidatePresetID(id); err != nil {
		s.respondError(w, r, err)
		return
	}
	p, err := s.runner.Presets.Get(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (s *Server) deletePreset(w http.ResponseWriter, r *http.Request) {
	if err := s.runner.DeletePreset(r.Context(), chi.URLParam(r, "presetID")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) relayout(w http.ResponseWriter, r *http.Request) {
	var req LayoutRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	out, rep, err := s.runner.Relayout(scene.FromDocument(req.Scene), req.prefs())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, struct {
		Scene  scene.Document `json:"scene"`
		Report merge.Report   `json:"report"`
	}{scene.ToDocument(out), rep})
}
