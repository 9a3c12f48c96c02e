// Package prometheus exposes authcore service counters as Prometheus
// metrics.
package prometheus

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	authcore "github.com/softprint/authcore"
)

type metricsSource interface {
	MetricsSnapshot() authcore.MetricsSnapshot
	AuditDropped() uint64
}

// Exporter is a [prometheus.Collector] reading from a service's metric
// snapshot on every scrape. Counters are point-in-time copies; no
// scrape ever blocks an authentication path.
type Exporter struct {
	source  metricsSource
	descs   map[authcore.MetricID]*prometheus.Desc
	dropped *prometheus.Desc
}

// NewExporter creates an Exporter reading from svc.
func NewExporter(svc *authcore.Service) *Exporter {
	return NewExporterFromSource(svc)
}

// NewExporterFromSource creates an Exporter from any snapshot source.
func NewExporterFromSource(source metricsSource) *Exporter {
	descs := make(map[authcore.MetricID]*prometheus.Desc)
	for _, id := range authcore.MetricIDs() {
		name := "authcore_" + id.Name() + "_total"
		descs[id] = prometheus.NewDesc(name, "Count of "+id.Name()+" events.", nil, nil)
	}

	return &Exporter{
		source: source,
		descs:  descs,
		dropped: prometheus.NewDesc(
			"authcore_audit_dropped_total",
			"Audit events shed under dispatcher backpressure.",
			nil, nil,
		),
	}
}

// Describe implements [prometheus.Collector].
func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {
	for _, desc := range e.descs {
		ch <- desc
	}
	ch <- e.dropped
}

// Collect implements [prometheus.Collector].
func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	if e == nil || e.source == nil {
		return
	}

	snapshot := e.source.MetricsSnapshot()
	for id, desc := range e.descs {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(snapshot.Counters[id]))
	}
	ch <- prometheus.MustNewConstMetric(e.dropped, prometheus.CounterValue, float64(e.source.AuditDropped()))
}

// Handler returns an http.Handler serving the exporter's metrics from a
// dedicated registry.
func (e *Exporter) Handler() http.Handler {
	registry := prometheus.NewRegistry()
	registry.MustRegister(e)
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
