// Package metrics holds the prometheus collectors for the HTTP surface, the
// clan service and the seeder. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	clanOps  *prometheus.CounterVec
	seedRows *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clans",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clans",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		clanOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clans",
			Name:      "operations_total",
			Help:      "Clan service operations by operation and outcome.",
		}, []string{"op", "outcome"}),
		seedRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clans",
			Name:      "seed_rows_total",
			Help:      "CSV seed rows by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.requests, m.duration, m.clanOps, m.seedRows)
	return m
}

func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) ClanOp(op, outcome string) {
	if m == nil {
		return
	}
	m.clanOps.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) SeedRow(outcome string) {
	if m == nil {
		return
	}
	m.seedRows.WithLabelValues(outcome).Inc()
}

// Handler exposes g in the prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
