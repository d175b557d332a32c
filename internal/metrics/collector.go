// Package metrics exposes Prometheus counters and histograms for document
// runs, script units and remote fetches.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a private registry so several collectors can live in one
// process, which tests rely on.
type Collector struct {
	registry *prometheus.Registry

	documentsTotal *prometheus.CounterVec
	unitsTotal     *prometheus.CounterVec
	unitDuration   *prometheus.HistogramVec
	fetchDuration  *prometheus.HistogramVec
}

// NewCollector creates a collector whose metric names are prefixed with
// namespace. Go runtime and process collectors are registered as well.
func NewCollector(namespace string) *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	c := &Collector{registry: reg}

	c.documentsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_total",
			Help:      "Total number of host documents processed",
		},
		[]string{"outcome"}, // ok, failed
	)

	c.unitsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "units_total",
			Help:      "Total number of script units that reached a terminal status",
		},
		[]string{"mode", "status"},
	)

	c.unitDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "unit_duration_seconds",
			Help:      "Time from load start to terminal status per script unit",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		},
		[]string{"mode"},
	)

	c.fetchDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Remote script fetch duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	return c
}

// RecordUnit records a unit that reached status.
func (c *Collector) RecordUnit(mode, status string, d time.Duration) {
	c.unitsTotal.WithLabelValues(mode, status).Inc()
	c.unitDuration.WithLabelValues(mode).Observe(d.Seconds())
}

// ObserveFetch records one remote fetch.
func (c *Collector) ObserveFetch(outcome string, d time.Duration) {
	c.fetchDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// RecordDocument records one processed document.
func (c *Collector) RecordDocument(failed bool) {
	outcome := "ok"
	if failed {
		outcome = "failed"
	}
	c.documentsTotal.WithLabelValues(outcome).Inc()
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
