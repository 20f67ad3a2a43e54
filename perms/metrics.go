package perms

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metricsOnce ensures metrics are only registered once per process.
var metricsOnce sync.Once

// metricsInstance is nil until InitMetrics is called; the engine works
// without metrics (tests, embedded use).
var metricsInstance *Metrics

// Metrics holds the Prometheus metrics for the permission engine.
type Metrics struct {
	Decisions     *prometheus.CounterVec // permgate_decisions_total{result}
	CacheHits     prometheus.Counter     // permgate_projection_cache_hits_total
	CacheMisses   prometheus.Counter     // permgate_projection_cache_misses_total
	Invalidations prometheus.Counter     // permgate_cache_invalidations_total
	PatternErrors prometheus.Counter     // permgate_pattern_errors_total
}

// InitMetrics registers the engine metrics. Subsequent calls return the
// same instance regardless of the registry argument.
func InitMetrics(registry prometheus.Registerer) *Metrics {
	metricsOnce.Do(func() {
		if registry == nil {
			registry = prometheus.DefaultRegisterer
		}
		metricsInstance = &Metrics{
			Decisions: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
				Name: "permgate_decisions_total",
				Help: "Permission decisions by result (allow/deny)",
			}, []string{"result"}),

			CacheHits: promauto.With(registry).NewCounter(prometheus.CounterOpts{
				Name: "permgate_projection_cache_hits_total",
				Help: "Projection cache hits",
			}),

			CacheMisses: promauto.With(registry).NewCounter(prometheus.CounterOpts{
				Name: "permgate_projection_cache_misses_total",
				Help: "Projection cache misses (recomputations)",
			}),

			Invalidations: promauto.With(registry).NewCounter(prometheus.CounterOpts{
				Name: "permgate_cache_invalidations_total",
				Help: "Projection cache invalidations",
			}),

			PatternErrors: promauto.With(registry).NewCounter(prometheus.CounterOpts{
				Name: "permgate_pattern_errors_total",
				Help: "Stored rule patterns that failed to compile",
			}),
		}
	})
	return metricsInstance
}

func incDecision(allowed bool) {
	if metricsInstance == nil {
		return
	}
	if allowed {
		metricsInstance.Decisions.WithLabelValues("allow").Inc()
	} else {
		metricsInstance.Decisions.WithLabelValues("deny").Inc()
	}
}

func incCacheHit() {
	if metricsInstance != nil {
		metricsInstance.CacheHits.Inc()
	}
}

func incCacheMiss() {
	if metricsInstance != nil {
		metricsInstance.CacheMisses.Inc()
	}
}

func incInvalidation() {
	if metricsInstance != nil {
		metricsInstance.Invalidations.Inc()
	}
}

func incPatternError() {
	if metricsInstance != nil {
		metricsInstance.PatternErrors.Inc()
	}
}
