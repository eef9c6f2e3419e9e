// Package metrics owns the Prometheus registry exposed on /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ResultOK              = "ok"
	ResultValidationError = "validation_error"
	ResultStorageError    = "storage_error"
	ResultError           = "error"
)

// Metrics is safe to use as a nil pointer; every method is then a no-op.
type Metrics struct {
	registry *prometheus.Registry

	ingestTotal    *prometheus.CounterVec
	ingestDuration prometheus.Histogram
	rowsWritten    *prometheus.CounterVec
	collectTotal   *prometheus.CounterVec
	mqttMessages   *prometheus.CounterVec
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,
		ingestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "homenet_ingest_total",
			Help: "Ingestion calls by result.",
		}, []string{"result"}),
		ingestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "homenet_ingest_duration_seconds",
			Help:    "Duration of ingestion calls.",
			Buckets: prometheus.DefBuckets,
		}),
		rowsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "homenet_rows_written_total",
			Help: "Committed fact rows by table.",
		}, []string{"table"}),
		collectTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "homenet_collect_total",
			Help: "Open-Meteo collection attempts by result.",
		}, []string{"result"}),
		mqttMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "homenet_mqtt_messages_total",
			Help: "MQTT ingestion messages by result.",
		}, []string{"result"}),
	}
	registry.MustRegister(m.ingestTotal, m.ingestDuration, m.rowsWritten, m.collectTotal, m.mqttMessages)
	return m
}

func (m *Metrics) Ingest(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.ingestTotal.WithLabelValues(result).Inc()
	m.ingestDuration.Observe(d.Seconds())
}

func (m *Metrics) RowsWritten(table string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.rowsWritten.WithLabelValues(table).Add(float64(n))
}

func (m *Metrics) Collect(result string) {
	if m == nil {
		return
	}
	m.collectTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) MQTTMessage(result string) {
	if m == nil {
		return
	}
	m.mqttMessages.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}
