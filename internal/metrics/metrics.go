package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the trivia engine.
type Metrics struct {
	SessionsStarted   prometheus.Counter
	SessionsCompleted prometheus.Counter
	SessionsExpired   prometheus.Counter
	AnswersAccepted   prometheus.Counter
	AnswersRejected   *prometheus.CounterVec
	CompletionRetries prometheus.Counter
	DialogsExpired    prometheus.Counter
	PoolRecycled      prometheus.Counter
}

// New registers the engine's metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		SessionsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "trivia",
			Name:      "sessions_started_total",
			Help:      "Trivia sessions opened",
		}),
		SessionsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "trivia",
			Name:      "sessions_completed_total",
			Help:      "Trivia sessions finalized by the completion engine",
		}),
		SessionsExpired: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "trivia",
			Name:      "sessions_expired_total",
			Help:      "Hanging sessions reclaimed by the sweep",
		}),
		AnswersAccepted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "trivia",
			Name:      "answers_accepted_total",
			Help:      "Answer submissions stored",
		}),
		AnswersRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trivia",
			Name:      "answers_rejected_total",
			Help:      "Answer submissions rejected",
		}, []string{"reason"}),
		CompletionRetries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "trivia",
			Name:      "completion_retries_total",
			Help:      "Completion transaction attempts beyond the first",
		}),
		DialogsExpired: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "trivia",
			Name:      "dialogs_expired_total",
			Help:      "Approval/review dialogs flipped to expired",
		}),
		PoolRecycled: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "trivia",
			Name:      "pool_recycled_total",
			Help:      "Answered questions recycled back into the pool",
		}),
	}
}

// Nop returns metrics bound to a throwaway registry, for tests.
func Nop() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		SessionsStarted:   factory.NewCounter(prometheus.CounterOpts{Name: "nop_sessions_started_total"}),
		SessionsCompleted: factory.NewCounter(prometheus.CounterOpts{Name: "nop_sessions_completed_total"}),
		SessionsExpired:   factory.NewCounter(prometheus.CounterOpts{Name: "nop_sessions_expired_total"}),
		AnswersAccepted:   factory.NewCounter(prometheus.CounterOpts{Name: "nop_answers_accepted_total"}),
		AnswersRejected:   factory.NewCounterVec(prometheus.CounterOpts{Name: "nop_answers_rejected_total"}, []string{"reason"}),
		CompletionRetries: factory.NewCounter(prometheus.CounterOpts{Name: "nop_completion_retries_total"}),
		DialogsExpired:    factory.NewCounter(prometheus.CounterOpts{Name: "nop_dialogs_expired_total"}),
		PoolRecycled:      factory.NewCounter(prometheus.CounterOpts{Name: "nop_pool_recycled_total"}),
	}
}
