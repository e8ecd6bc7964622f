package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for mitigation runs.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Finished runs by domain and terminal state
	RunsTotal *prometheus.CounterVec

	// Wall-clock duration of full runs by domain
	RunDuration *prometheus.HistogramVec

	// Iterations a run took before reaching a terminal state
	Iterations prometheus.Histogram

	// Records added and removed across committed candidates
	RecordsSynthesized prometheus.Counter
	RecordsRemoved     prometheus.Counter

	// Candidates generated and scored
	CandidatesEvaluated prometheus.Counter

	// Score-only requests by domain
	ScoreRequests *prometheus.CounterVec

	// Runs rejected because the concurrency limit was reached
	RunsRejected prometheus.Counter
}

// New creates a Metrics instance registered with reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "biasclean_runs_total",
			Help: "Total mitigation runs by domain and terminal state",
		}, []string{"domain", "state"}),

		RunDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "biasclean_run_duration_seconds",
			Help:    "Duration of mitigation runs",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"domain"}),

		Iterations: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "biasclean_run_iterations",
			Help:    "Iterations per mitigation run",
			Buckets: prometheus.LinearBuckets(0, 1, 11),
		}),

		RecordsSynthesized: factory.NewCounter(prometheus.CounterOpts{
			Name: "biasclean_records_synthesized_total",
			Help: "Synthetic records committed to mitigated datasets",
		}),

		RecordsRemoved: factory.NewCounter(prometheus.CounterOpts{
			Name: "biasclean_records_removed_total",
			Help: "Records removed from mitigated datasets",
		}),

		CandidatesEvaluated: factory.NewCounter(prometheus.CounterOpts{
			Name: "biasclean_candidates_evaluated_total",
			Help: "Candidate datasets generated and scored",
		}),

		ScoreRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "biasclean_score_requests_total",
			Help: "Disparity scoring requests by domain",
		}, []string{"domain"}),

		RunsRejected: factory.NewCounter(prometheus.CounterOpts{
			Name: "biasclean_runs_rejected_total",
			Help: "Mitigation runs rejected at the concurrency limit",
		}),
	}
}

// RunSummary is what a finished run contributes to the metrics
type RunSummary struct {
	Domain     string
	State      string
	Iterations int
	Candidates int
	Added      int
	Removed    int
	Duration   time.Duration
}

// ObserveRun records a finished run
func (m *Metrics) ObserveRun(s RunSummary) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(s.Domain, s.State).Inc()
	m.RunDuration.WithLabelValues(s.Domain).Observe(s.Duration.Seconds())
	m.Iterations.Observe(float64(s.Iterations))
	m.CandidatesEvaluated.Add(float64(s.Candidates))
	m.RecordsSynthesized.Add(float64(s.Added))
	m.RecordsRemoved.Add(float64(s.Removed))
}

// IncrementScore records a score-only request
func (m *Metrics) IncrementScore(domain string) {
	if m != nil {
		m.ScoreRequests.WithLabelValues(domain).Inc()
	}
}

// IncrementRejected records a run turned away at the concurrency limit
func (m *Metrics) IncrementRejected() {
	if m != nil {
		m.RunsRejected.Inc()
	}
}
