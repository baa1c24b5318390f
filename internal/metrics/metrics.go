// Package metrics holds the Prometheus collectors for HTTP traffic, lifecycle
// transitions, inventory levels and scheduled jobs.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "assettracker"

type Metrics struct {
	Registry *prometheus.Registry

	httpInFlight prometheus.Gauge
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	transitions     *prometheus.CounterVec
	lifecycleErrors *prometheus.CounterVec

	assetsByStatus      *prometheus.GaugeVec
	requestsByStatus    *prometheus.GaugeVec
	invariantViolations *prometheus.GaugeVec

	jobRuns     *prometheus.CounterVec
	jobDuration *prometheus.HistogramVec
}

// New builds a Metrics with its own registry, so tests can create as many as they like.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		}, []string{"method", "route"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "transitions_total",
			Help:      "Status transitions applied by the lifecycle engine.",
		}, []string{"entity", "from", "to"}),
		lifecycleErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "rejections_total",
			Help:      "Lifecycle operations refused, by operation and reason.",
		}, []string{"operation", "reason"}),
		assetsByStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "inventory",
			Name:      "assets",
			Help:      "Assets by status.",
		}, []string{"status"}),
		requestsByStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "inventory",
			Name:      "requests",
			Help:      "Asset requests by status.",
		}, []string{"status"}),
		invariantViolations: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "violations",
			Help:      "Assignment invariant violations found by the last reconcile run.",
		}, []string{"kind"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "runs_total",
			Help:      "Scheduled job runs.",
		}, []string{"job", "success"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "run_duration_seconds",
			Help:      "Duration of scheduled job runs.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		}, []string{"job"}),
	}

	m.Registry.MustRegister(
		m.httpInFlight,
		m.httpRequests,
		m.httpDuration,
		m.transitions,
		m.lifecycleErrors,
		m.assetsByStatus,
		m.requestsByStatus,
		m.invariantViolations,
		m.jobRuns,
		m.jobDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

func (m *Metrics) InFlight(delta float64) {
	m.httpInFlight.Add(delta)
}

// ObserveHTTP records one handled request. route should be the route template, never the
// raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveHTTP(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	method = strings.ToUpper(method)
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (m *Metrics) RecordTransition(entity, from, to string) {
	if from == "" {
		from = "none"
	}
	m.transitions.WithLabelValues(entity, from, to).Inc()
}

func (m *Metrics) RecordRejection(operation, reason string) {
	m.lifecycleErrors.WithLabelValues(operation, reason).Inc()
}

// SetInventory replaces the inventory gauges. Statuses missing from the maps are zeroed.
func (m *Metrics) SetInventory(assets, requests map[string]int) {
	m.assetsByStatus.Reset()
	for status, n := range assets {
		m.assetsByStatus.WithLabelValues(status).Set(float64(n))
	}
	m.requestsByStatus.Reset()
	for status, n := range requests {
		m.requestsByStatus.WithLabelValues(status).Set(float64(n))
	}
}

func (m *Metrics) SetViolations(byKind map[string]int) {
	m.invariantViolations.Reset()
	for kind, n := range byKind {
		m.invariantViolations.WithLabelValues(kind).Set(float64(n))
	}
}

func (m *Metrics) RecordJob(job string, duration time.Duration, success bool) {
	m.jobRuns.WithLabelValues(job, strconv.FormatBool(success)).Inc()
	m.jobDuration.WithLabelValues(job).Observe(duration.Seconds())
}

// PushJobMetrics replaces the job's group on a Prometheus Pushgateway with the inventory,
// violation and job collectors. Short-lived runners use it instead of being scraped.
func (m *Metrics) PushJobMetrics(ctx context.Context, gatewayURL, job string) error {
	return push.New(gatewayURL, job).
		Collector(m.assetsByStatus).
		Collector(m.requestsByStatus).
		Collector(m.invariantViolations).
		Collector(m.jobRuns).
		Collector(m.jobDuration).
		PushContext(ctx)
}
