// Package server exposes the run lifecycle over HTTP.
//
// Routes:
//
//	POST   /v1/runs                 begin a run
//	GET    /v1/runs/{id}            current scene
//	POST   /v1/runs/{id}/chunks     feed a chunk (raw request body)
//	POST   /v1/runs/{id}/complete   final settled pass
//	POST   /v1/runs/{id}/save       store the run as a preset
//	DELETE /v1/runs/{id}            cancel
//	GET    /v1/presets              list presets
//	GET    /v1/presets/{id}         one preset
//	DELETE /v1/presets/{id}         delete a preset
//	POST   /v1/layout               lay out a whole scene at once
//	GET    /healthz                 status and build version
//	GET    /metrics                 when a metrics handler is configured
//
// Errors are JSON objects carrying the error code; see [statusOf] for the
// code to status mapping.
package server

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/diagramflow/pkg/buildinfo"
	"github.com/matzehuels/diagramflow/pkg/observability"
	"github.com/matzehuels/diagramflow/pkg/pipeline"
)

// Options configures a [Server].
type Options struct {
	// MaxChunkBytes bounds one chunk or JSON request body.
	MaxChunkBytes int64
	// Metrics, if set, is mounted at /metrics.
	Metrics http.Handler
	Logger  *log.Logger
}

// Server holds the HTTP handlers.
type Server struct {
	runner  *pipeline.Runner
	logger  *log.Logger
	maxBody int64
	metrics http.Handler
}

// New creates a server around runner.
func New(runner *pipeline.Runner, opts Options) *Server {
	if opts.MaxChunkBytes <= 0 {
		opts.MaxChunkBytes = 1 << 20
	}
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Server{
		runner:  runner,
		logger:  opts.Logger,
		maxBody: opts.MaxChunkBytes,
		metrics: opts.Metrics,
	}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.health)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Route("/runs", func(r chi.Router) {
			r.Post("/", s.beginRun)
			r.Route("/{runID}", func(r chi.Router) {
				r.Get("/", s.getRun)
				r.Delete("/", s.cancelRun)
				r.Post("/chunks", s.feedRun)
				r.Post("/complete", s.completeRun)
				r.Post("/save", s.saveRun)
			})
		})
		r.Route("/presets", func(r chi.Router) {
			r.Get("/", s.listPresets)
			r.Get("/{presetID}", s.getPreset)
			r.Delete("/{presetID}", s.deletePreset)
		})
		r.Post("/layout", s.relayout)
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down within
// shutdownTimeout.
func ListenAndServe(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration, logger *log.Logger) error {
	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(sctx)
}

// requestLogger logs each request and reports it to the HTTP hooks under
// its route pattern.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		d := time.Since(start)
		observability.HTTP().OnRequest(r.Context(), r.Method, route, status, d)
		s.logger.Debug("request",
			"method", r.Method,
			"route", route,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", d,
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	b := buildinfo.Get()
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": b.Version, "commit": b.Commit})
}
