package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// SessionMetrics tracks the session pool.
//
// Metrics:
//   - relay_sessions_created_total: Sessions constructed on cache miss
//   - relay_session_cache_hits_total: Acquires served from the cache
//   - relay_session_cache_misses_total: Acquires that had to construct
//   - relay_sessions_evicted_total: Sessions removed, by reason
//   - relay_sessions_active: Sessions currently cached
type SessionMetrics struct {
	createdTotal prometheus.Counter
	hitsTotal    prometheus.Counter
	missesTotal  prometheus.Counter
	evictedTotal *prometheus.CounterVec
	active       prometheus.Gauge
}

// NewSessionMetrics creates and registers session metrics with the provided registry.
func NewSessionMetrics(namespace string, registry *prometheus.Registry) *SessionMetrics {
	sm := &SessionMetrics{
		createdTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_created_total",
			Help:      "Total number of upstream sessions created",
		}),

		hitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_cache_hits_total",
			Help:      "Total number of session pool cache hits",
		}),

		missesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_cache_misses_total",
			Help:      "Total number of session pool cache misses",
		}),

		evictedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sessions_evicted_total",
				Help:      "Total number of sessions evicted from the pool",
			},
			[]string{"reason"},
		),

		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Current number of cached upstream sessions",
		}),
	}

	registry.MustRegister(
		sm.createdTotal,
		sm.hitsTotal,
		sm.missesTotal,
		sm.evictedTotal,
		sm.active,
	)

	return sm
}
