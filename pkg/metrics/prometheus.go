package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all prometheus metrics
type Metrics struct {
	FlightsPolled      prometheus.Counter
	TransitionsDenied  prometheus.Counter
	LedgerCommits      prometheus.Counter
	LedgerFailures     *prometheus.CounterVec
	ReconcileRetries   prometheus.Counter
	DeadLetters        prometheus.Counter
	TicksSkipped       *prometheus.CounterVec
	PollCycleDuration  prometheus.Histogram
	LedgerCommitTiming prometheus.Histogram
}

// NewMetrics creates new prometheus metrics registered on reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		FlightsPolled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flights_polled_total",
			Help:      "The total number of flight status snapshots fetched",
		}),
		TransitionsDenied: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_denied_total",
			Help:      "The total number of status transitions denied by the validator",
		}),
		LedgerCommits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_commits_total",
			Help:      "The total number of records committed to the ledger",
		}),
		LedgerFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_failures_total",
			Help:      "The total number of failed ledger commits",
		}, []string{"reason"}),
		ReconcileRetries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_retries_total",
			Help:      "The total number of reconciliation retry attempts",
		}),
		DeadLetters: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dead_letters_total",
			Help:      "The total number of records moved to the dead-letter state",
		}),
		TicksSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_skipped_total",
			Help:      "Scheduler ticks skipped because the previous cycle was still running",
		}, []string{"cycle"}),
		PollCycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_cycle_duration_seconds",
			Help:      "Time taken to run one full poll cycle",
			Buckets:   prometheus.DefBuckets,
		}),
		LedgerCommitTiming: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ledger_commit_duration_seconds",
			Help:      "Time taken to commit one record to the ledger",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}
