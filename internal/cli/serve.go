package cli

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/diagramflow/pkg/observability/prom"
	"github.com/matzehuels/diagramflow/pkg/pipeline"
	"github.com/matzehuels/diagramflow/pkg/server"
)

// serveCommand creates the serve command, which runs the HTTP service.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr      string
		noMetrics bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the run lifecycle over HTTP",
		Long: `Serve the run lifecycle over HTTP.

Producers begin a run, post chunks as they stream and complete it; each
response carries the updated scene. Storage backends for runs, the
layout cache and presets come from the config file. Prometheus metrics
are exposed at /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), addr, noMetrics)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().BoolVar(&noMetrics, "no-metrics", false, "do not expose /metrics")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr string, noMetrics bool) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}

	runner, err := buildRunner(ctx, cfg, c.Logger)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	opts := server.Options{MaxChunkBytes: cfg.Server.MaxChunkBytes, Logger: c.Logger}
	if !noMetrics {
		collector := prom.NewCollector(appName)
		collector.Register()
		opts.Metrics = collector.Handler()
	}

	if cfg.Server.CleanupInterval > 0 {
		go sweep(ctx, runner, cfg.Server.CleanupInterval, c)
	}

	c.Logger.Info("backends",
		"cache", cfg.Cache.Backend,
		"sessions", cfg.Session.Backend,
		"presets", cfg.Presets.Backend)
	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      server.New(runner, opts).Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return server.ListenAndServe(ctx, srv, cfg.Server.ShutdownTimeout, c.Logger)
}

// sweep removes expired runs every interval until ctx is done.
func sweep(ctx context.Context, r *pipeline.Runner, interval time.Duration, c *CLI) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := r.Cleanup(ctx); err != nil {
				c.Logger.Warn("run cleanup failed", "error", err)
			}
		}
	}
}
