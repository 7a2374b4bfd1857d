// Package metrics holds the Prometheus metrics of the locus server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	HttpRequestsTotal    *prometheus.CounterVec
	HttpRequestDuration  *prometheus.HistogramVec
	HttpRequestsInFlight prometheus.Gauge

	SocketConnections prometheus.Gauge
	ChatStreamsTotal  *prometheus.CounterVec
	ChatChunksTotal   prometheus.Counter

	ZoteroSyncsTotal    *prometheus.CounterVec
	ZoteroItemsTotal    *prometheus.CounterVec
	CatalogEventsTotal  *prometheus.CounterVec
	CatalogCacheLookups *prometheus.CounterVec
}

// New creates the metrics on their own registry, so several servers can
// live in one process.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{registry: reg}

	m.HttpRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "locus_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
	m.HttpRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "locus_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	m.HttpRequestsInFlight = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "locus_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	m.SocketConnections = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "locus_socket_connections",
			Help: "Open chat socket connections",
		},
	)
	m.ChatStreamsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "locus_chat_streams_total",
			Help: "Assistant replies streamed, by outcome",
		},
		[]string{"status"},
	)
	m.ChatChunksTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "locus_chat_chunks_total",
			Help: "Reply chunks sent to clients",
		},
	)

	m.ZoteroSyncsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "locus_zotero_syncs_total",
			Help: "Zotero syncs, by kind and outcome",
		},
		[]string{"kind", "status"},
	)
	m.ZoteroItemsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "locus_zotero_items_total",
			Help: "Zotero items applied to the catalog",
		},
		[]string{"action"},
	)
	m.CatalogEventsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "locus_catalog_events_total",
			Help: "Catalog events broadcast to clients",
		},
		[]string{"type"},
	)
	m.CatalogCacheLookups = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "locus_catalog_cache_lookups_total",
			Help: "Catalog cache lookups, by list and result",
		},
		[]string{"list", "result"},
	)

	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Middleware records every request under its route pattern.
func (m *Metrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		m.HttpRequestsInFlight.Inc()
		defer m.HttpRequestsInFlight.Dec()

		err := c.Next()

		route := c.Route().Path
		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			}
		}
		m.HttpRequestsTotal.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		m.HttpRequestDuration.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())
		return err
	}
}

func (m *Metrics) RecordSync(kind string, err error) {
	m.ZoteroSyncsTotal.WithLabelValues(kind, outcome(err)).Inc()
}

func (m *Metrics) RecordStream(err error) {
	m.ChatStreamsTotal.WithLabelValues(outcome(err)).Inc()
}

func (m *Metrics) RecordCacheLookup(list string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CatalogCacheLookups.WithLabelValues(list, result).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
