package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"mercator-hq/relay/pkg/config"
	"mercator-hq/relay/pkg/dispatch"
)

// DefaultMaxModels bounds the number of distinct model label values.
const DefaultMaxModels = 200

// Collector records pool and dispatch metrics. It implements both
// session.Observer and dispatch.Observer, so one collector is handed to the
// pool and the dispatcher.
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	pool, _ := session.NewPool(session.Config{Observer: collector})
//	d := dispatch.New(dispatch.Config{Observers: []dispatch.Observer{collector}})
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	sessions *SessionMetrics
	dispatch *DispatchMetrics

	models *CardinalityLimiter
}

// NewCollector creates a collector registering on registry. A nil registry
// gets a fresh one carrying the Go runtime and process collectors.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	namespace := cfg.Namespace
	if namespace == "" {
		namespace = config.DefaultMetricsNamespace
	}

	return &Collector{
		config:   cfg,
		registry: registry,
		sessions: NewSessionMetrics(namespace, registry),
		dispatch: NewDispatchMetrics(namespace, registry),
		models:   NewCardinalityLimiter(DefaultMaxModels),
	}
}

// SessionCreated implements session.Observer.
func (c *Collector) SessionCreated() {
	if !c.config.Enabled {
		return
	}
	c.sessions.createdTotal.Inc()
}

// SessionHit implements session.Observer.
func (c *Collector) SessionHit() {
	if !c.config.Enabled {
		return
	}
	c.sessions.hitsTotal.Inc()
}

// SessionMiss implements session.Observer.
func (c *Collector) SessionMiss() {
	if !c.config.Enabled {
		return
	}
	c.sessions.missesTotal.Inc()
}

// SessionEvicted implements session.Observer.
func (c *Collector) SessionEvicted(reason string) {
	if !c.config.Enabled {
		return
	}
	c.sessions.evictedTotal.WithLabelValues(reason).Inc()
}

// SessionsActive implements session.Observer.
func (c *Collector) SessionsActive(n int) {
	if !c.config.Enabled {
		return
	}
	c.sessions.active.Set(float64(n))
}

// DispatchStarted implements dispatch.Observer.
func (c *Collector) DispatchStarted(model string, stream bool) {
	if !c.config.Enabled {
		return
	}
	c.dispatch.inFlight.WithLabelValues(mode(stream)).Inc()
}

// DispatchFinished implements dispatch.Observer. Models beyond the
// cardinality limit are recorded as "other".
func (c *Collector) DispatchFinished(outcome dispatch.Outcome) {
	if !c.config.Enabled {
		return
	}

	model := outcome.Model
	if !c.models.Allow(model) {
		model = "other"
	}
	c.dispatch.record(model, outcome)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label values.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether value may be used as a label. Known values are
// always allowed; new ones only while under the limit.
func (cl *CardinalityLimiter) Allow(value string) bool {
	cl.mu.RLock()
	_, exists := cl.current[value]
	cl.mu.RUnlock()
	if exists {
		return true
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.current[value]; exists {
		return true
	}
	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[value] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
