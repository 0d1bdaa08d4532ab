package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	QueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "trivia_queue_depth",
		Help: "Players waiting for an opponent, by category",
	}, []string{"category"})

	ActiveMatches = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "trivia_active_matches",
		Help: "Matches currently in progress",
	})

	MatchesFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trivia_matches_finished_total",
		Help: "Matches that reached a terminal state, by finish reason",
	}, []string{"reason"})

	Answers = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trivia_answers_total",
		Help: "Accepted answers by result (correct, wrong, timeout)",
	}, []string{"result"})

	RejectedAnswers = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trivia_answers_rejected_total",
		Help: "Answers rejected by validation, by error",
	}, []string{"error"})

	QueueTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trivia_queue_timeouts_total",
		Help: "Queue entries that expired without an opponent",
	})

	PoolExhausted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trivia_question_pool_exhausted_total",
		Help: "Match attempts aborted because a difficulty band ran out of unseen questions",
	}, []string{"category", "difficulty"})

	SettlementFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trivia_settlement_failures_total",
		Help: "Settlement attempts that failed and were queued for retry",
	})

	SettlementPending = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "trivia_settlement_pending",
		Help: "Settlements waiting in the retry outbox",
	})
)
