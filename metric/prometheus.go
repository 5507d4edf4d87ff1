// Package metric exposes cache operations as Prometheus metrics.
package metric

import (
	"errors"
	"time"

	"github.com/hupe1980/gsacache"
	"github.com/prometheus/client_golang/prometheus"
)

var _ gsacache.MetricsCollector = (*PrometheusCollector)(nil)

// PrometheusCollector implements gsacache.MetricsCollector.
type PrometheusCollector struct {
	opLatency *prometheus.HistogramVec
	upserts   *prometheus.CounterVec
	resolves  *prometheus.CounterVec
	links     *prometheus.CounterVec
	rehomes   prometheus.Counter
}

// NewPrometheusCollector creates the collector. Metric names are prefixed
// with namespace when it is not empty.
func NewPrometheusCollector(namespace string) *PrometheusCollector {
	return &PrometheusCollector{
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_latency_seconds",
			Help:      "Latency of cache operations",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		}, []string{"op", "status"}),
		upserts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "native_upserts_total",
			Help:      "Native record upserts by outcome",
		}, []string{"result"}),
		resolves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_resolutions_total",
			Help:      "Index resolutions by branch taken",
		}, []string{"state"}),
		links: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "object_links_total",
			Help:      "Domain objects linked to native records",
		}, []string{"status"}),
		rehomes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservation_rehomes_total",
			Help:      "Provisional indices moved because a real record claimed them",
		}),
	}
}

// Register registers all metrics on reg (or the default registerer if nil).
// Metrics that are already registered are not an error.
func (p *PrometheusCollector) Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{p.opLatency, p.upserts, p.resolves, p.links, p.rehomes} {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return err
			}
		}
	}
	return nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordUpsert implements gsacache.MetricsCollector.
func (p *PrometheusCollector) RecordUpsert(d time.Duration, created bool, err error) {
	p.opLatency.WithLabelValues("upsert", status(err)).Observe(d.Seconds())
	switch {
	case err != nil:
		p.upserts.WithLabelValues("error").Inc()
	case created:
		p.upserts.WithLabelValues("created").Inc()
	default:
		p.upserts.WithLabelValues("unchanged").Inc()
	}
}

// RecordBatchUpsert implements gsacache.MetricsCollector.
// Per-record outcomes are already counted by RecordUpsert.
func (p *PrometheusCollector) RecordBatchUpsert(count, failed int, d time.Duration) {
	s := "success"
	if failed > 0 {
		s = "error"
	}
	p.opLatency.WithLabelValues("batch_upsert", s).Observe(d.Seconds())
}

// RecordResolve implements gsacache.MetricsCollector.
func (p *PrometheusCollector) RecordResolve(state string, d time.Duration) {
	p.opLatency.WithLabelValues("resolve", "success").Observe(d.Seconds())
	p.resolves.WithLabelValues(state).Inc()
}

// RecordLink implements gsacache.MetricsCollector.
func (p *PrometheusCollector) RecordLink(count, failed int, d time.Duration) {
	s := "success"
	if failed > 0 {
		s = "error"
	}
	p.opLatency.WithLabelValues("link", s).Observe(d.Seconds())
	p.links.WithLabelValues("success").Add(float64(count - failed))
	p.links.WithLabelValues("error").Add(float64(failed))
}

// RecordRehome implements gsacache.MetricsCollector.
func (p *PrometheusCollector) RecordRehome(count int) {
	p.rehomes.Add(float64(count))
}
