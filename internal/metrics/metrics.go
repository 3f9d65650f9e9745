package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the quiz collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	sessionsStarted   prometheus.Counter
	sessionsCompleted prometheus.Counter
	fetchFailures     prometheus.Counter
	results           *prometheus.CounterVec
	scoreRatio        prometheus.Histogram
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		sessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quiz_sessions_started_total",
			Help: "Sessions that entered the question loop",
		}),
		sessionsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quiz_sessions_completed_total",
			Help: "Sessions that reached the result screen",
		}),
		fetchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quiz_question_fetch_failures_total",
			Help: "Logins that failed because questions could not be loaded",
		}),
		results: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quiz_result_submissions_total",
				Help: "Result deliveries per sink by outcome",
			},
			[]string{"outcome"},
		),
		scoreRatio: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "quiz_score_ratio",
			Help:    "Final score divided by question count",
			Buckets: []float64{0.1, 0.25, 0.5, 0.75, 0.9, 1},
		}),
	}
	reg.MustRegister(m.sessionsStarted, m.sessionsCompleted, m.fetchFailures, m.results, m.scoreRatio)
	return m
}

func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.sessionsStarted.Inc()
}

func (m *Metrics) SessionCompleted(score, total int) {
	if m == nil {
		return
	}
	m.sessionsCompleted.Inc()
	if total > 0 {
		m.scoreRatio.Observe(float64(score) / float64(total))
	}
}

func (m *Metrics) FetchFailed() {
	if m == nil {
		return
	}
	m.fetchFailures.Inc()
}

func (m *Metrics) ResultSaved(ok bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "failed"
	}
	m.results.WithLabelValues(outcome).Inc()
}
