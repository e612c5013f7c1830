package observability

import (
	"context"

	"github.com/aretw0/auraflow/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for pipeline activity.
type Metrics struct {
	StageVisits    *prometheus.CounterVec
	StageFailures  *prometheus.CounterVec
	StageDuration  *prometheus.HistogramVec
	OracleAttempts *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil registerer leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		StageVisits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auraflow_stage_visits_total",
				Help: "Total number of stage executions",
			},
			[]string{"stage"},
		),
		StageFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auraflow_stage_failures_total",
				Help: "Total number of stage executions that failed the session",
			},
			[]string{"stage"},
		),
		StageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "auraflow_stage_duration_seconds",
				Help:    "Duration of stage executions",
				Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 15, 30, 60, 120},
			},
			[]string{"stage"},
		),
		OracleAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auraflow_oracle_attempts_total",
				Help: "Generate attempts against the oracle, by whether the response was malformed",
			},
			[]string{"malformed"},
		),
	}

	if reg != nil {
		reg.MustRegister(m.StageVisits, m.StageFailures, m.StageDuration, m.OracleAttempts)
	}
	return m
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStageEnter: func(_ context.Context, e *domain.StageEvent) {
			m.StageVisits.WithLabelValues(string(e.Stage)).Inc()
		},
		OnStageLeave: func(_ context.Context, e *domain.StageEvent) {
			m.StageDuration.WithLabelValues(string(e.Stage)).Observe(e.Duration.Seconds())
			if e.Err != nil {
				m.StageFailures.WithLabelValues(string(e.Stage)).Inc()
			}
		},
		OnOracleAttempt: func(_ context.Context, e *domain.OracleAttemptEvent) {
			label := "false"
			if e.Malformed {
				label = "true"
			}
			m.OracleAttempts.WithLabelValues(label).Inc()
		},
	}
}
