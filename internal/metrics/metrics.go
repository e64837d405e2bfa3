// Package metrics exposes the Prometheus collectors of the service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "electoral_map_http_requests_total",
		Help: "Total HTTP requests by route and status",
	}, []string{"method", "route", "status"})
	HTTPRequestDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "electoral_map_http_request_duration_ms",
		Help:    "HTTP request duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 5000},
	}, []string{"route"})
	StatsCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "electoral_map_stats_cache_hits_total",
		Help: "Section stats served from redis",
	})
	StatsCacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "electoral_map_stats_cache_misses_total",
		Help: "Section stats recomputed",
	})
	SectionLoadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "electoral_map_section_loads_total",
		Help: "Section polygon loads by result",
	}, []string{"result"})
	LocationUpdatesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "electoral_map_location_updates_total",
		Help: "Manual location updates by result",
	}, []string{"result"})
	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "electoral_map_active_sessions",
		Help: "Open map sessions",
	})
)

func init() {
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDurationMs)
	prometheus.MustRegister(StatsCacheHitsTotal)
	prometheus.MustRegister(StatsCacheMissesTotal)
	prometheus.MustRegister(SectionLoadsTotal)
	prometheus.MustRegister(LocationUpdatesTotal)
	prometheus.MustRegister(ActiveSessions)
}

// Result labels
const (
	ResultOK    = "ok"
	ResultError = "error"
	ResultStale = "stale"
)

// Handler serves the default registry on /metrics
func Handler() http.Handler { return promhttp.Handler() }
