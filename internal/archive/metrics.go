package archive

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for the transcript archiver.
type Metrics struct {
	Runs             prometheus.Counter
	RunFailures      prometheus.Counter
	TranscriptsSaved prometheus.Counter
	RunDuration      prometheus.Histogram
}

// NewMetrics creates and registers archive metrics.
// Returns nil if reg is nil.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		return nil
	}

	m := &Metrics{
		Runs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kusina",
			Subsystem: "archive",
			Name:      "runs_total",
			Help:      "Total archive runs.",
		}),
		RunFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kusina",
			Subsystem: "archive",
			Name:      "run_failures_total",
			Help:      "Archive runs with at least one failed conversation.",
		}),
		TranscriptsSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "kusina",
			Subsystem: "archive",
			Name:      "transcripts_saved_total",
			Help:      "Transcripts written to storage.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "kusina",
			Subsystem: "archive",
			Name:      "run_duration_seconds",
			Help:      "Duration of an archive run.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		}),
	}

	reg.MustRegister(m.Runs, m.RunFailures, m.TranscriptsSaved, m.RunDuration)
	return m
}

func (m *Metrics) observeRun(saved int, err error, d time.Duration) {
	if m == nil {
		return
	}
	m.Runs.Inc()
	if err != nil {
		m.RunFailures.Inc()
	}
	m.TranscriptsSaved.Add(float64(saved))
	m.RunDuration.Observe(d.Seconds())
}
