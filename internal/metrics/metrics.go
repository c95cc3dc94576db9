// Package metrics exports realmmap events to Prometheus.
//
// [Metrics] implements the explorer, cache and HTTP hooks of the
// observability package plus API request counters. [Metrics.Install]
// registers it as the global hook set.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/calavorn/realmmap/pkg/observability"
)

var durationBuckets = []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 5000}

type Metrics struct {
	TierLoads        *prometheus.CounterVec
	TierLoadDuration *prometheus.HistogramVec
	TierRegions      *prometheus.GaugeVec
	Hovers           *prometheus.CounterVec
	Clicks           *prometheus.CounterVec
	Resets           *prometheus.CounterVec

	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec
	CacheBytes  *prometheus.CounterVec

	UpstreamRequests *prometheus.CounterVec
	UpstreamDuration *prometheus.HistogramVec
	UpstreamErrors   *prometheus.CounterVec

	APIRequests *prometheus.CounterVec
	APIDuration *prometheus.HistogramVec
	Sessions    prometheus.Gauge

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them with reg. A nil reg uses
// a fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		TierLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "realmmap_tier_loads_total",
			Help: "Tier loads by tier and result",
		}, []string{"tier", "result"}),
		TierLoadDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "realmmap_tier_load_duration_ms",
			Help:    "Tier fetch and index duration in milliseconds",
			Buckets: durationBuckets,
		}, []string{"tier"}),
		TierRegions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "realmmap_tier_regions",
			Help: "Regions in the most recently loaded dataset of each tier",
		}, []string{"tier"}),
		Hovers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "realmmap_hovers_total",
			Help: "Pointer moves by tier and whether a region resolved",
		}, []string{"tier", "resolved"}),
		Clicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "realmmap_clicks_total",
			Help: "Clicks by tier and outcome (drill, reset_drill, noop)",
		}, []string{"tier", "outcome"}),
		Resets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "realmmap_resets_total",
			Help: "Explicit resets by tier",
		}, []string{"tier"}),
		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "realmmap_cache_hits_total",
			Help: "Cache hits by key type",
		}, []string{"type"}),
		CacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "realmmap_cache_misses_total",
			Help: "Cache misses by key type",
		}, []string{"type"}),
		CacheBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "realmmap_cache_written_bytes_total",
			Help: "Bytes written to the cache by key type",
		}, []string{"type"}),
		UpstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "realmmap_upstream_requests_total",
			Help: "Data source HTTP responses by host and status",
		}, []string{"host", "status"}),
		UpstreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "realmmap_upstream_duration_ms",
			Help:    "Data source HTTP duration in milliseconds",
			Buckets: durationBuckets,
		}, []string{"host"}),
		UpstreamErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "realmmap_upstream_errors_total",
			Help: "Data source HTTP transport failures by host",
		}, []string{"host"}),
		APIRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "realmmap_api_requests_total",
			Help: "API requests by route and status",
		}, []string{"route", "status"}),
		APIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "realmmap_api_duration_ms",
			Help:    "API request duration in milliseconds",
			Buckets: durationBuckets,
		}, []string{"route"}),
		Sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "realmmap_sessions",
			Help: "Live explorer sessions held by this instance",
		}),
		gatherer: reg,
	}
	reg.MustRegister(
		m.TierLoads, m.TierLoadDuration, m.TierRegions, m.Hovers, m.Clicks, m.Resets,
		m.CacheHits, m.CacheMisses, m.CacheBytes,
		m.UpstreamRequests, m.UpstreamDuration, m.UpstreamErrors,
		m.APIRequests, m.APIDuration, m.Sessions,
	)
	return m
}

// Install registers m as the global explorer, cache and HTTP hooks.
func (m *Metrics) Install() {
	observability.SetExplorerHooks(m)
	observability.SetCacheHooks(m)
	observability.SetHTTPHooks(m)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// ObserveRequest records one API request.
func (m *Metrics) ObserveRequest(route string, status int, d time.Duration) {
	m.APIRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.APIDuration.WithLabelValues(route).Observe(ms(d))
}

func (m *Metrics) OnTierLoad(_ context.Context, tier string, regions int, d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	} else {
		m.TierRegions.WithLabelValues(tier).Set(float64(regions))
	}
	m.TierLoads.WithLabelValues(tier, result).Inc()
	m.TierLoadDuration.WithLabelValues(tier).Observe(ms(d))
}

func (m *Metrics) OnHover(_ context.Context, tier string, resolved bool) {
	m.Hovers.WithLabelValues(tier, strconv.FormatBool(resolved)).Inc()
}

func (m *Metrics) OnClick(_ context.Context, tier string, reset, changed bool) {
	outcome := "noop"
	switch {
	case changed && reset:
		outcome = "reset_drill"
	case changed:
		outcome = "drill"
	}
	m.Clicks.WithLabelValues(tier, outcome).Inc()
}

func (m *Metrics) OnReset(_ context.Context, tier string) {
	m.Resets.WithLabelValues(tier).Inc()
}

func (m *Metrics) OnCacheHit(_ context.Context, keyType string) {
	m.CacheHits.WithLabelValues(keyType).Inc()
}

func (m *Metrics) OnCacheMiss(_ context.Context, keyType string) {
	m.CacheMisses.WithLabelValues(keyType).Inc()
}

func (m *Metrics) OnCacheSet(_ context.Context, keyType string, size int) {
	m.CacheBytes.WithLabelValues(keyType).Add(float64(size))
}

func (m *Metrics) OnRequest(context.Context, string, string, string) {}

func (m *Metrics) OnResponse(_ context.Context, _, host, _ string, status int, d time.Duration) {
	m.UpstreamRequests.WithLabelValues(host, strconv.Itoa(status)).Inc()
	m.UpstreamDuration.WithLabelValues(host).Observe(ms(d))
}

func (m *Metrics) OnError(_ context.Context, _, host, _ string, _ error) {
	m.UpstreamErrors.WithLabelValues(host).Inc()
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

var (
	_ observability.ExplorerHooks = (*Metrics)(nil)
	_ observability.CacheHooks    = (*Metrics)(nil)
	_ observability.HTTPHooks     = (*Metrics)(nil)
)
