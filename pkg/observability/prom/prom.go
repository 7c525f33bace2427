// Package prom implements the observability hooks with Prometheus
// metrics.
package prom

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/diagramflow/pkg/observability"
)

// Collector holds the metrics and the registry they live in. Each
// Collector has its own registry, so tests can create as many as they like.
type Collector struct {
	registry *prometheus.Registry

	RunsStarted   *prometheus.CounterVec
	RunsEnded     *prometheus.CounterVec
	Batches       *prometheus.CounterVec
	BatchDuration *prometheus.HistogramVec
	Warnings      prometheus.Counter
	Iterations    prometheus.Histogram
	Unconverged   prometheus.Counter

	CacheOps   *prometheus.CounterVec
	CacheBytes prometheus.Counter

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// NewCollector creates and registers every metric under namespace, plus
// the Go runtime and process collectors.
func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		RunsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "runs_started_total",
			Help: "Runs begun, by kind.",
		}, []string{"kind"}),
		RunsEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "runs_ended_total",
			Help: "Runs ended, by outcome.",
		}, []string{"outcome"}),
		Batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "batches_total",
			Help: "Applied batches, by pass type and engine.",
		}, []string{"pass", "engine"}),
		BatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "batch_duration_seconds",
			Help:    "Wall time of applied batches.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"pass"}),
		Warnings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "warnings_total",
			Help: "Soft warnings raised while merging.",
		}),
		Iterations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "collide_iterations",
			Help:    "Collision resolver passes per full layout.",
			Buckets: []float64{0, 1, 2, 4, 8, 16, 32, 64},
		}),
		Unconverged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "collide_unconverged_total",
			Help: "Layout passes that hit the resolver iteration cap.",
		}),
		CacheOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "cache_operations_total",
			Help: "Cache lookups and writes, by key type and result.",
		}, []string{"key_type", "result"}),
		CacheBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "cache_written_bytes_total",
			Help: "Bytes written to the cache.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "http_requests_total",
			Help: "HTTP requests served.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds",
			Help:    "HTTP request duration.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.RunsStarted, c.RunsEnded, c.Batches, c.BatchDuration,
		c.Warnings, c.Iterations, c.Unconverged,
		c.CacheOps, c.CacheBytes,
		c.HTTPRequests, c.HTTPDuration,
	)
	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Register installs c as the engine, cache and HTTP hooks.
func (c *Collector) Register() {
	observability.SetEngineHooks(c)
	observability.SetCacheHooks(c)
	observability.SetHTTPHooks(c)
}

func (c *Collector) OnRunStart(_ context.Context, _ string, refine bool) {
	kind := "generate"
	if refine {
		kind = "refine"
	}
	c.RunsStarted.WithLabelValues(kind).Inc()
}

func (c *Collector) OnBatch(_ context.Context, _ string, s observability.BatchStats) {
	pass := "placeholder"
	if s.LaidOut {
		pass = "layout"
		c.Iterations.Observe(float64(s.Iterations))
		if !s.Converged {
			c.Unconverged.Inc()
		}
	}
	if s.CacheHit {
		pass = "cached"
	}
	c.Batches.WithLabelValues(pass, s.Engine).Inc()
	c.BatchDuration.WithLabelValues(pass).Observe(s.Duration.Seconds())
	c.Warnings.Add(float64(s.Warnings))
}

func (c *Collector) OnRunEnd(_ context.Context, _ string, outcome string) {
	c.RunsEnded.WithLabelValues(outcome).Inc()
}

func (c *Collector) OnCacheHit(_ context.Context, keyType string) {
	c.CacheOps.WithLabelValues(keyType, "hit").Inc()
}

func (c *Collector) OnCacheMiss(_ context.Context, keyType string) {
	c.CacheOps.WithLabelValues(keyType, "miss").Inc()
}

func (c *Collector) OnCacheSet(_ context.Context, keyType string, size int) {
	c.CacheOps.WithLabelValues(keyType, "set").Inc()
	c.CacheBytes.Add(float64(size))
}

func (c *Collector) OnRequest(_ context.Context, method, route string, status int, d time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

var (
	_ observability.EngineHooks = (*Collector)(nil)
	_ observability.CacheHooks  = (*Collector)(nil)
	_ observability.HTTPHooks   = (*Collector)(nil)
)
