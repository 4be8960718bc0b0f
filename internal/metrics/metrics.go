package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "examvault"

// Metrics holds the collectors of the exam service. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	FetchDuration *prometheus.HistogramVec
	FetchErrors   *prometheus.CounterVec
	AttemptStarts *prometheus.CounterVec
	Submissions   *prometheus.CounterVec
	Notifications *prometheus.CounterVec
}

// New registers the collectors on reg. Pass prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		FetchDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "content_fetch_duration_seconds",
				Help:      "Time spent fetching encrypted exam content",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"source"},
		),
		FetchErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "content_fetch_errors_total",
				Help:      "Failed content fetches",
			},
			[]string{"source"},
		),
		AttemptStarts: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "attempt_starts_total",
				Help:      "Exam start requests by outcome",
			},
			[]string{"outcome"},
		),
		Submissions: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "submissions_total",
				Help:      "Exam submissions by outcome",
			},
			[]string{"outcome"},
		),
		Notifications: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_total",
				Help:      "Result notifications by outcome",
			},
			[]string{"outcome"},
		),
	}
}

func (m *Metrics) ObserveFetch(source string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.FetchDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
	if err != nil {
		m.FetchErrors.WithLabelValues(source).Inc()
	}
}

func (m *Metrics) AttemptStarted(outcome string) {
	if m == nil {
		return
	}
	m.AttemptStarts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Submitted(outcome string) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Notified(outcome string) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(outcome).Inc()
}
