// Package observability exposes Prometheus metrics for the generation
// pipeline and the HTTP surface.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors registered on a private registry. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	generations    *prometheus.CounterVec
	sceneOutcomes  *prometheus.CounterVec
	genDuration    prometheus.Histogram
	imagesReturned prometheus.Histogram
	sweptRows      prometheus.Counter
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shortshive",
			Name:      "generations_total",
			Help:      "Animation generation requests by outcome.",
		}, []string{"outcome"}),
		sceneOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shortshive",
			Name:      "scene_images_total",
			Help:      "Scene image rows by final status.",
		}, []string{"status"}),
		genDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "shortshive",
			Name:      "generation_duration_seconds",
			Help:      "Wall time of one batch generation.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300},
		}),
		imagesReturned: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "shortshive",
			Name:      "provider_images_returned",
			Help:      "Images returned by the provider per batch.",
			Buckets:   prometheus.LinearBuckets(0, 2, 11),
		}),
		sweptRows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shortshive",
			Name:      "stale_scene_images_swept_total",
			Help:      "PROCESSING rows failed by the stale sweeper.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shortshive",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"method", "route", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "shortshive",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	m.registry.MustRegister(
		m.generations,
		m.sceneOutcomes,
		m.genDuration,
		m.imagesReturned,
		m.sweptRows,
		m.httpRequests,
		m.httpDuration,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveGeneration records one finished batch. outcome is "success",
// "provider_error", "storage_error" or "rejected".
func (m *Metrics) ObserveGeneration(outcome string, took time.Duration, imagesReturned int) {
	if m == nil {
		return
	}
	m.generations.WithLabelValues(outcome).Inc()
	if outcome == "rejected" {
		return
	}
	m.genDuration.Observe(took.Seconds())
	if imagesReturned >= 0 {
		m.imagesReturned.Observe(float64(imagesReturned))
	}
}

func (m *Metrics) ObserveScene(status string) {
	if m == nil {
		return
	}
	m.sceneOutcomes.WithLabelValues(status).Inc()
}

func (m *Metrics) AddSwept(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.sweptRows.Add(float64(n))
}

func (m *Metrics) ObserveHTTP(method, route string, code int, took time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(took.Seconds())
}
