package observability

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Metrics holds the Prometheus counters and histograms for the analysis
// pipeline. The binaries are one-shot batch runs, so metrics are not served
// over HTTP; they are written to a node-exporter textfile at the end of the
// run via WriteTextfile.
type Metrics struct {
	registry *prometheus.Registry

	RowsIngested       *prometheus.CounterVec // labels: source={exposure,counties,asthma,facilities}
	RowsOut            *prometheus.CounterVec // labels: stage={monthly,combined,seasonal}
	JoinMisses         *prometheus.CounterVec // labels: join={asthma,facilities}
	ValidationFailures prometheus.Counter
	StageDuration      *prometheus.HistogramVec // labels: stage
	ModelFits          *prometheus.CounterVec   // labels: model, outcome={success,error}
}

// NewMetrics creates all pipeline metrics registered on a fresh registry, so
// repeated construction in tests never panics with duplicate registration.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		RowsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smoke_etl",
			Name:      "rows_ingested_total",
			Help:      "Rows read from each raw source file.",
		}, []string{"source"}),
		RowsOut: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smoke_etl",
			Name:      "rows_out_total",
			Help:      "Rows produced by each pipeline stage.",
		}, []string{"stage"}),
		JoinMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smoke_etl",
			Name:      "join_misses_total",
			Help:      "Exposure rows with no matching row on the named join.",
		}, []string{"join"}),
		ValidationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "smoke_etl",
			Name:      "validation_failures_total",
			Help:      "Hard validation failures (wrong county count).",
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "smoke_etl",
			Name:      "stage_duration_seconds",
			Help:      "Wall-clock duration of each pipeline stage.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"stage"}),
		ModelFits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "smoke_etl",
			Name:      "model_fits_total",
			Help:      "Regression fit attempts by model and outcome.",
		}, []string{"model", "outcome"}),
	}

	reg.MustRegister(
		m.RowsIngested,
		m.RowsOut,
		m.JoinMisses,
		m.ValidationFailures,
		m.StageDuration,
		m.ModelFits,
	)

	return m
}

// WriteTextfile writes all registered metrics to path in the Prometheus text
// exposition format, overwriting any previous file. Pass an empty path to
// skip the export.
func (m *Metrics) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}

	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create metrics textfile: %w", err)
	}
	defer f.Close()

	enc := expfmt.NewEncoder(f, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encode metrics: %w", err)
		}
	}
	return nil
}
