package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Ingest row outcome labels.
const (
	RowIndexed = "indexed"
	RowFailed  = "failed"
	RowSkipped = "skipped"
)

// Ingest holds the metrics of one ingestion run on a dedicated registry,
// so the CLI does not drag the server's collectors along.
type Ingest struct {
	registry *prometheus.Registry

	rows          *prometheus.CounterVec
	embedDuration prometheus.Histogram
	writeDuration prometheus.Histogram
}

// NewIngest creates ingestion metrics on a fresh registry.
func NewIngest() *Ingest {
	m := &Ingest{
		registry: prometheus.NewRegistry(),
		rows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "ingest",
				Name:      "rows_total",
				Help:      "CSV rows handled, by outcome",
			},
			[]string{"outcome"},
		),
		embedDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "embed_duration_seconds",
			Help:      "Per-row title embedding latency",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		writeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "write_duration_seconds",
			Help:      "Per-row index write latency",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),
	}
	m.registry.MustRegister(m.rows, m.embedDuration, m.writeDuration)
	return m
}

// Row counts one row outcome (RowIndexed, RowFailed or RowSkipped).
func (m *Ingest) Row(outcome string) {
	m.rows.WithLabelValues(outcome).Inc()
}

// ObserveEmbed records one embedding call.
func (m *Ingest) ObserveEmbed(d time.Duration) {
	m.embedDuration.Observe(d.Seconds())
}

// ObserveWrite records one index write.
func (m *Ingest) ObserveWrite(d time.Duration) {
	m.writeDuration.Observe(d.Seconds())
}

// Handler serves the ingestion registry in the Prometheus exposition format.
func (m *Ingest) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
