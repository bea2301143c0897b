// Package metrics exposes pipeline counters through Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"AINewsDigest/internal/domain"
)

const namespace = "ainewsdigest"

// Metrics bundles the collectors on a private registry. A nil *Metrics is a no-op.
type Metrics struct {
	registry       *prometheus.Registry
	itemsCollected *prometheus.GaugeVec
	originFailures *prometheus.CounterVec
	batches        *prometheus.CounterVec
	runDuration    prometheus.Histogram
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		itemsCollected: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "items_collected",
			Help:      "Items kept per source in the latest run.",
		}, []string{"source"}),
		originFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "origin_failures_total",
			Help:      "Origins that failed during fetch.",
		}, []string{"source"}),
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_batches_total",
			Help:      "Delivery batches by outcome.",
		}, []string{"outcome"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of digest cycles.",
			Buckets:   []float64{5, 15, 30, 60, 120, 300, 600},
		}),
	}
	m.registry.MustRegister(m.itemsCollected, m.originFailures, m.batches, m.runDuration)
	return m
}

// ObserveItems records the kept item count for a source.
func (m *Metrics) ObserveItems(source domain.SourceType, n int) {
	if m == nil {
		return
	}
	m.itemsCollected.WithLabelValues(string(source)).Set(float64(n))
}

// OriginFailed counts one failed origin.
func (m *Metrics) OriginFailed(source domain.SourceType) {
	if m == nil {
		return
	}
	m.originFailures.WithLabelValues(string(source)).Inc()
}

// ObserveDelivery counts batches by outcome.
func (m *Metrics) ObserveDelivery(report domain.DeliveryReport) {
	if m == nil {
		return
	}
	failed := report.Failed()
	m.batches.WithLabelValues("failed").Add(float64(failed))
	m.batches.WithLabelValues("sent").Add(float64(report.Attempts() - failed))
}

// ObserveRun records a cycle duration.
func (m *Metrics) ObserveRun(d time.Duration) {
	if m == nil {
		return
	}
	m.runDuration.Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and embedding.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
