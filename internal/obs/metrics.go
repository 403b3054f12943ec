package obs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fetch outcomes used as the "outcome" label.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeNotFound = "not_found"
	OutcomeStale    = "stale"
)

var (
	// FetchResults counts resolved async requests by operation and outcome.
	// Results discarded by the token check are counted as "stale".
	FetchResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Name:      "fetch_results_total",
		Help:      "Resolved catalog, product and checkout requests by outcome.",
	}, []string{"op", "outcome"})

	// FetchDuration observes API client latency per operation.
	FetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "storefront",
		Name:      "fetch_duration_seconds",
		Help:      "Latency of backend API calls.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op"})

	// CartActions counts applied cart transitions by action.
	CartActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Name:      "cart_actions_total",
		Help:      "Cart actions applied to session stores.",
	}, []string{"action"})

	// JobsSuperseded counts queued jobs dropped because a newer request for
	// the same key was submitted before they ran.
	JobsSuperseded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "storefront",
		Name:      "jobs_superseded_total",
		Help:      "Queued effect jobs replaced by a newer request before running.",
	})

	// JobsProcessed counts effect jobs executed by the worker pool.
	JobsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "storefront",
		Name:      "jobs_processed_total",
		Help:      "Effect jobs executed by workers.",
	})

	// WorkerCount tracks the current size of the worker pool.
	WorkerCount = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "storefront",
		Name:      "workers",
		Help:      "Current number of effect workers.",
	})

	// SessionsActive tracks live session stores.
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "storefront",
		Name:      "sessions_active",
		Help:      "Session stores currently held by the registry.",
	})
)
