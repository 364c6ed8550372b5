package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result label values for StatementsTotal.
const (
	ResultOK                  = "ok"
	ResultError               = "error"
	ResultConstraintSwallowed = "constraint_swallowed"
)

var (
	StatementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smashdb_statements_total",
		Help: "Statements run through the database layer, by backend, operation and outcome.",
	}, []string{"backend", "op", "result"})

	StatementDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "smashdb_statement_duration_seconds",
		Help:    "Time from handle acquisition to statement completion.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"backend", "op"})

	AcquireDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "smashdb_acquire_duration_seconds",
		Help:    "Time spent waiting for a pooled connection handle.",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
	}, []string{"backend"})

	LeakedHandlesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "smashdb_leaked_handles_total",
		Help: "Handles held past the leak detection threshold.",
	}, []string{"backend"})
)
