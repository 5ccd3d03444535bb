// Package metrics exposes Prometheus collectors for builds, link checks and
// the preview server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "blog"

// Metrics owns a private registry so several instances can coexist in tests.
type Metrics struct {
	registry *prometheus.Registry

	builds        *prometheus.CounterVec
	buildDuration prometheus.Histogram
	files         *prometheus.CounterVec
	posts         prometheus.Gauge
	brokenLinks   prometheus.Gauge
	linkChecks    *prometheus.CounterVec
	requests      *prometheus.CounterVec
}

// New registers every collector, plus the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		builds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "builds_total",
			Help:      "Site builds by outcome.",
		}, []string{"status"}),
		buildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Wall time of site builds.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "build_files_total",
			Help:      "Output files handled by builds, by category and action.",
		}, []string{"category", "action"}),
		posts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "posts_published",
			Help:      "Posts published by the last build.",
		}),
		brokenLinks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "broken_links",
			Help:      "Broken links found by the last link check.",
		}),
		linkChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "link_checks_total",
			Help:      "Link check runs by outcome.",
		}, []string{"status"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Preview server requests by status code.",
		}, []string{"code"}),
	}
	reg.MustRegister(
		m.builds, m.buildDuration, m.files, m.posts, m.brokenLinks, m.linkChecks, m.requests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveBuild records one build.
func (m *Metrics) ObserveBuild(err error, duration time.Duration, posts int) {
	m.builds.WithLabelValues(status(err)).Inc()
	m.buildDuration.Observe(duration.Seconds())
	if err == nil {
		m.posts.Set(float64(posts))
	}
}

// FileWritten counts a written output file.
func (m *Metrics) FileWritten(category string) {
	m.files.WithLabelValues(category, "written").Inc()
}

// FileSkipped counts an output left untouched by an incremental build.
func (m *Metrics) FileSkipped(category string) {
	m.files.WithLabelValues(category, "skipped").Inc()
}

// ObserveLinkCheck records one link check run.
func (m *Metrics) ObserveLinkCheck(err error, broken int) {
	m.linkChecks.WithLabelValues(status(err)).Inc()
	m.brokenLinks.Set(float64(broken))
}

// ObserveRequest counts a served request.
func (m *Metrics) ObserveRequest(code int) {
	m.requests.WithLabelValues(strconv.Itoa(code)).Inc()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
