package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector groups the quiz counters. A nil *Collector is valid and records nothing.
type Collector struct {
	CardsEvaluated      *prometheus.CounterVec
	SessionsStarted     prometheus.Counter
	SessionsCompleted   prometheus.Counter
	StatementsPublished *prometheus.CounterVec
	SnapshotFailures    prometheus.Counter
}

func New() *Collector {
	return &Collector{
		CardsEvaluated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flashcards_cards_evaluated_total",
				Help: "Total number of card evaluations",
			},
			[]string{"result"},
		),
		SessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flashcards_sessions_started_total",
			Help: "Total number of quiz sessions started",
		}),
		SessionsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flashcards_sessions_completed_total",
			Help: "Total number of quiz sessions where every card was answered",
		}),
		StatementsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flashcards_statements_published_total",
				Help: "Result statements handed to report sinks",
			},
			[]string{"outcome"},
		),
		SnapshotFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flashcards_snapshot_failures_total",
			Help: "Session snapshots that could not be persisted",
		}),
	}
}

// Register adds all collectors to reg.
func (c *Collector) Register(reg prometheus.Registerer) error {
	for _, col := range []prometheus.Collector{
		c.CardsEvaluated,
		c.SessionsStarted,
		c.SessionsCompleted,
		c.StatementsPublished,
		c.SnapshotFailures,
	} {
		if err := reg.Register(col); err != nil {
			return err
		}
	}
	return nil
}

func (c *Collector) CardEvaluated(correct bool) {
	if c == nil {
		return
	}
	result := "incorrect"
	if correct {
		result = "correct"
	}
	c.CardsEvaluated.WithLabelValues(result).Inc()
}

func (c *Collector) SessionStarted() {
	if c == nil {
		return
	}
	c.SessionsStarted.Inc()
}

func (c *Collector) SessionCompleted() {
	if c == nil {
		return
	}
	c.SessionsCompleted.Inc()
}

func (c *Collector) StatementPublished(err error) {
	if c == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.StatementsPublished.WithLabelValues(outcome).Inc()
}

func (c *Collector) SnapshotFailed() {
	if c == nil {
		return
	}
	c.SnapshotFailures.Inc()
}
