// Package metrics exports the provider's hook events as Prometheus counters.
// Wire it in through Options.Hooks; the cache store additionally registers
// its own file-level counters independent of this package.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/MeteoSwiss/weathermart"
)

var (
	cacheHitVars = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weathermart_cache_hit_variables_total",
			Help: "Requested variables served from the cache",
		},
		[]string{"source"},
	)

	cacheMissVars = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weathermart_cache_miss_variables_total",
			Help: "Requested variables that needed a retriever",
		},
		[]string{"source"},
	)

	retrievals = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weathermart_retrievals_total",
			Help: "Retriever invocations",
		},
		[]string{"source"},
	)

	retrievalFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weathermart_retrieval_failures_total",
			Help: "Retriever invocations that returned an error",
		},
		[]string{"source"},
	)
)

// Hooks counts provider events in the default Prometheus registry.
type Hooks struct{}

var _ weathermart.Hooks = Hooks{}

func (Hooks) CacheHit(source string, vars int) {
	cacheHitVars.WithLabelValues(source).Add(float64(vars))
}

func (Hooks) CacheMiss(source string, vars int) {
	cacheMissVars.WithLabelValues(source).Add(float64(vars))
}

func (Hooks) RetrieverInvoked(source string, dates int) {
	retrievals.WithLabelValues(source).Add(float64(dates))
}

func (Hooks) RetrievalFailed(source string, _ error) {
	retrievalFailures.WithLabelValues(source).Inc()
}
