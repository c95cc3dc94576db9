package metrics

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/calavorn/realmmap/pkg/observability"
)

func TestExplorerEvents(t *testing.T) {
	ctx := context.Background()
	m := New(nil)

	m.OnTierLoad(ctx, "county", 42, 15*time.Millisecond, nil)
	m.OnTierLoad(ctx, "duchy", 0, time.Millisecond, errors.New("down"))
	m.OnClick(ctx, "county", true, true)
	m.OnClick(ctx, "county", false, true)
	m.OnClick(ctx, "county", false, false)
	m.OnHover(ctx, "county", true)
	m.OnReset(ctx, "county")

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"ok load", testutil.ToFloat64(m.TierLoads.WithLabelValues("county", "ok")), 1},
		{"failed load", testutil.ToFloat64(m.TierLoads.WithLabelValues("duchy", "error")), 1},
		{"regions", testutil.ToFloat64(m.TierRegions.WithLabelValues("county")), 42},
		{"reset drill", testutil.ToFloat64(m.Clicks.WithLabelValues("county", "reset_drill")), 1},
		{"drill", testutil.ToFloat64(m.Clicks.WithLabelValues("county", "drill")), 1},
		{"noop", testutil.ToFloat64(m.Clicks.WithLabelValues("county", "noop")), 1},
		{"hover", testutil.ToFloat64(m.Hovers.WithLabelValues("county", "true")), 1},
		{"reset", testutil.ToFloat64(m.Resets.WithLabelValues("county")), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestCacheAndUpstream(t *testing.T) {
	ctx := context.Background()
	m := New(nil)
	m.OnCacheHit(ctx, "dataset")
	m.OnCacheMiss(ctx, "basemap")
	m.OnCacheSet(ctx, "basemap", 512)
	m.OnResponse(ctx, "GET", "maps.example", "/data/county", 200, 3*time.Millisecond)
	m.OnError(ctx, "GET", "maps.example", "/map/county", errors.New("reset"))

	if got := testutil.ToFloat64(m.CacheBytes.WithLabelValues("basemap")); got != 512 {
		t.Errorf("CacheBytes = %v", got)
	}
	if got := testutil.ToFloat64(m.UpstreamRequests.WithLabelValues("maps.example", "200")); got != 1 {
		t.Errorf("UpstreamRequests = %v", got)
	}
	if got := testutil.ToFloat64(m.UpstreamErrors.WithLabelValues("maps.example")); got != 1 {
		t.Errorf("UpstreamErrors = %v", got)
	}
}

func TestInstallAndHandler(t *testing.T) {
	t.Cleanup(observability.Reset)
	m := New(nil)
	m.Install()

	observability.Explorer().OnReset(context.Background(), "kingdom")
	observability.Cache().OnCacheHit(context.Background(), "dataset")
	m.ObserveRequest("/api/tiers", 200, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`realmmap_resets_total{tier="kingdom"} 1`,
		`realmmap_cache_hits_total{type="dataset"} 1`,
		`realmmap_api_requests_total{route="/api/tiers",status="200"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
