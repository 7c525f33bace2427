package prom

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/matzehuels/diagramflow/pkg/observability"
)

func TestCollectorCounts(t *testing.T) {
	ctx := context.Background()
	c := NewCollector("test")

	c.OnRunStart(ctx, "r", false)
	c.OnRunStart(ctx, "r", true)
	c.OnBatch(ctx, "r", observability.BatchStats{LaidOut: true, Engine: "layered", Iterations: 3, Converged: true, Warnings: 2})
	c.OnBatch(ctx, "r", observability.BatchStats{})
	c.OnBatch(ctx, "r", observability.BatchStats{LaidOut: true, Engine: "layered", Converged: false})
	c.OnRunEnd(ctx, "r", observability.OutcomeComplete)
	c.OnCacheMiss(ctx, "layout")
	c.OnCacheSet(ctx, "layout", 100)
	c.OnRequest(ctx, "POST", "/v1/runs", 201, time.Millisecond)

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"generate runs", testutil.ToFloat64(c.RunsStarted.WithLabelValues("generate")), 1},
		{"refine runs", testutil.ToFloat64(c.RunsStarted.WithLabelValues("refine")), 1},
		{"layout batches", testutil.ToFloat64(c.Batches.WithLabelValues("layout", "layered")), 2},
		{"placeholder batches", testutil.ToFloat64(c.Batches.WithLabelValues("placeholder", "")), 1},
		{"warnings", testutil.ToFloat64(c.Warnings), 2},
		{"unconverged", testutil.ToFloat64(c.Unconverged), 1},
		{"completed", testutil.ToFloat64(c.RunsEnded.WithLabelValues("complete")), 1},
		{"cache misses", testutil.ToFloat64(c.CacheOps.WithLabelValues("layout", "miss")), 1},
		{"cache bytes", testutil.ToFloat64(c.CacheBytes), 100},
		{"requests", testutil.ToFloat64(c.HTTPRequests.WithLabelValues("POST", "/v1/runs", "201")), 1},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := NewCollector("df")
	c.OnRunStart(context.Background(), "r", false)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `df_runs_started_total{kind="generate"} 1`) {
		t.Errorf("metrics output missing run counter:\n%s", body)
	}
}

func TestRegister(t *testing.T) {
	defer observability.Reset()
	c := NewCollector("reg")
	c.Register()
	if observability.Engine() != observability.EngineHooks(c) {
		t.Error("Register did not install engine hooks")
	}
}
