package telemetry

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/victornm/trivia/internal/domain"
	"github.com/victornm/trivia/internal/event"
)

// Metrics exports game activity to Prometheus. It is fed from the event bus.
type Metrics struct {
	Rounds   *prometheus.CounterVec
	Sessions *prometheus.CounterVec
	Active   prometheus.Gauge
	Points   prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Rounds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trivia_rounds_total",
			Help: "Number of settled rounds by outcome.",
		}, []string{"outcome"}),
		Sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trivia_sessions_total",
			Help: "Number of finished sessions by result.",
		}, []string{"result"}),
		Active: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trivia_active_sessions",
			Help: "Number of sessions currently running.",
		}),
		Points: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trivia_points_awarded_total",
			Help: "Points awarded for correct answers.",
		}),
	}

	for _, c := range []prometheus.Collector{m.Rounds, m.Sessions, m.Active, m.Points} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}

	return m, nil
}

func (m *Metrics) Subscribe(eb *event.Bus) {
	eb.Subscribe(domain.EventNameSessionStarted, func(context.Context, event.Event) error {
		m.Active.Inc()
		return nil
	})

	eb.Subscribe(domain.EventNameSessionEnded, func(_ context.Context, e event.Event) error {
		ended := e.(domain.EventSessionEnded)

		result := "completed"
		switch {
		case ended.Aborted:
			result = "aborted"
		case ended.Cancelled:
			result = "cancelled"
		}

		m.Active.Dec()
		m.Sessions.WithLabelValues(result).Inc()
		return nil
	})

	eb.Subscribe(domain.EventNameRoundSettled, func(_ context.Context, e event.Event) error {
		settled := e.(domain.EventRoundSettled)

		m.Rounds.WithLabelValues(settled.Outcome.String()).Inc()
		if settled.Points > 0 {
			m.Points.Add(float64(settled.Points))
		}
		return nil
	})
}
