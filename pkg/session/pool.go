package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/samber/lo"

	"mercator-hq/relay/pkg/providerfactory"
	"mercator-hq/relay/pkg/telemetry/logging"
)

// ErrPoolClosed is returned by Acquire after Shutdown.
var ErrPoolClosed = errors.New("session pool is shut down")

// Pool defaults.
const (
	DefaultMaxSessions   = 50
	DefaultIdleTTL       = time.Hour
	DefaultSweepInterval = 5 * time.Minute
)

// Eviction reasons reported to the Observer.
const (
	EvictCapacity = "capacity"
	EvictIdle     = "idle"
)

// Observer receives pool events. Implementations must be cheap and must not
// call back into the pool.
type Observer interface {
	SessionCreated()
	SessionHit()
	SessionMiss()
	SessionEvicted(reason string)
	SessionsActive(n int)
}

// Config contains pool configuration.
type Config struct {
	// MaxSessions is the capacity N. Zero selects DefaultMaxSessions.
	MaxSessions int

	// IdleTTL is the idle time-to-live T. Zero selects DefaultIdleTTL.
	IdleTTL time.Duration

	// SweepInterval is how often idle handles are swept. Zero selects
	// DefaultSweepInterval. The scheduler resolution is one second.
	SweepInterval time.Duration

	// Factory builds upstream connections. Nil selects providerfactory.NewConn.
	Factory providerfactory.Func

	// Observer receives pool events (optional).
	Observer Observer

	// Clock returns the current time (optional, for tests).
	Clock func() time.Time
}

// entry pairs a handle with its last-used timestamp.
type entry struct {
	handle   *Handle
	lastUsed time.Time
}

// Pool is a bounded cache of session handles keyed by credential.
// It is safe for concurrent use.
type Pool struct {
	capacity int
	ttl      time.Duration
	interval time.Duration
	factory  providerfactory.Func
	observer Observer
	now      func() time.Time
	logger   *slog.Logger

	mu      sync.Mutex
	entries map[string]*entry
	closed  bool

	cron *cron.Cron

	created atomic.Int64
	hits    atomic.Int64
	misses  atomic.Int64
	evicted atomic.Int64
	size    atomic.Int64
}

// NewPool creates a pool and starts its sweep task.
func NewPool(cfg Config) (*Pool, error) {
	if cfg.MaxSessions < 0 {
		return nil, fmt.Errorf("max sessions must be positive, got %d", cfg.MaxSessions)
	}
	if cfg.MaxSessions == 0 {
		cfg.MaxSessions = DefaultMaxSessions
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultIdleTTL
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	if cfg.Factory == nil {
		cfg.Factory = providerfactory.NewConn
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	p := &Pool{
		capacity: cfg.MaxSessions,
		ttl:      cfg.IdleTTL,
		interval: cfg.SweepInterval,
		factory:  cfg.Factory,
		observer: cfg.Observer,
		now:      cfg.Clock,
		logger:   slog.Default().With("component", "session.pool"),
		entries:  make(map[string]*entry),
		cron:     cron.New(),
	}

	if _, err := p.cron.AddFunc(fmt.Sprintf("@every %s", cfg.SweepInterval), p.runSweep); err != nil {
		return nil, fmt.Errorf("failed to schedule sweep: %w", err)
	}
	p.cron.Start()

	p.logger.Info("session pool started",
		"max_sessions", p.capacity,
		"idle_ttl", p.ttl,
		"sweep_interval", p.interval,
	)

	return p, nil
}

// Acquire returns the cached handle for params.Credential, creating one on a
// miss. A cached handle is returned as-is even if the endpoint or variant in
// params differ from those it was created with.
//
// Connection construction failures are returned and leave the cache
// untouched, including when the pool is full. After Shutdown, Acquire fails with ErrPoolClosed.
func (p *Pool) Acquire(ctx context.Context, params Params) (*Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrPoolClosed
	}

	if e, ok := p.entries[params.Credential]; ok {
		e.lastUsed = p.now()
		p.hits.Add(1)
		p.notify(func(o Observer) { o.SessionHit() })
		return e.handle, nil
	}

	p.misses.Add(1)
	p.notify(func(o Observer) { o.SessionMiss() })

	conn, err := p.factory(params.connConfig())
	if err != nil {
		p.logger.Warn("failed to create session",
			"key", logging.KeyPrefix(params.Credential),
			"error", err,
		)
		return nil, err
	}

	// Evict only once the replacement exists.
	if len(p.entries) >= p.capacity {
		p.evictOldestLocked()
	}

	handle := NewHandle(params, conn)
	p.entries[params.Credential] = &entry{handle: handle, lastUsed: p.now()}
	p.created.Add(1)
	p.updateSizeLocked()
	p.notify(func(o Observer) { o.SessionCreated() })

	p.logger.Info("creating new session",
		"key", logging.KeyPrefix(params.Credential),
		"azure", params.Variant != "",
		"cached_sessions", len(p.entries),
	)

	return handle, nil
}

// Lookup returns the cached handle for credential without creating one or
// refreshing its last-used time. It is used to reach in-flight requests,
// for example to cancel one.
func (p *Pool) Lookup(credential string) (*Handle, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.entries[credential]
	if !ok {
		return nil, false
	}
	return e.handle, true
}

// evictOldestLocked removes the entry with the smallest last-used time. Ties
// go to the lexicographically smallest credential. Must be called with p.mu
// held.
func (p *Pool) evictOldestLocked() {
	if len(p.entries) == 0 {
		return
	}

	oldest := lo.MinBy(lo.Entries(p.entries), func(a, b lo.Entry[string, *entry]) bool {
		if a.Value.lastUsed.Equal(b.Value.lastUsed) {
			return a.Key < b.Key
		}
		return a.Value.lastUsed.Before(b.Value.lastUsed)
	})

	p.logger.Info("evicting oldest session",
		"key", logging.KeyPrefix(oldest.Key),
		"active_requests", oldest.Value.handle.ActiveRequests(),
	)
	p.removeLocked(oldest.Key, oldest.Value, EvictCapacity)
}

// removeLocked closes and deletes one entry. A close failure is logged and
// the entry is removed regardless.
func (p *Pool) removeLocked(credential string, e *entry, reason string) {
	if err := e.handle.Close(); err != nil {
		p.logger.Error("error closing session",
			"key", logging.KeyPrefix(credential),
			"reason", reason,
			"error", err,
		)
	}
	delete(p.entries, credential)
	p.evicted.Add(1)
	p.updateSizeLocked()
	p.notify(func(o Observer) { o.SessionEvicted(reason) })
}

// Sweep removes every handle idle for longer than the TTL and returns how
// many were removed. It runs on the sweep schedule and may also be called
// directly.
func (p *Pool) Sweep() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0
	}

	now := p.now()
	expired := lo.PickBy(p.entries, func(_ string, e *entry) bool {
		return now.Sub(e.lastUsed) > p.ttl
	})

	keys := lo.Keys(expired)
	slices.Sort(keys)
	for _, key := range keys {
		p.logger.Info("cleaning up idle session", "key", logging.KeyPrefix(key))
		p.removeLocked(key, expired[key], EvictIdle)
	}

	return len(keys)
}

// runSweep is the scheduled job.
func (p *Pool) runSweep() {
	removed := p.Sweep()
	if removed > 0 {
		p.logger.Info("idle sweep completed", "removed", removed)
	} else {
		p.logger.Debug("idle sweep completed, nothing to remove")
	}
}

// Shutdown closes every handle, clears the cache, then stops the sweep task
// and waits for a running sweep to finish. It is idempotent.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true

	count := len(p.entries)
	for credential, e := range p.entries {
		if err := e.handle.Close(); err != nil {
			p.logger.Error("error closing session",
				"key", logging.KeyPrefix(credential),
				"reason", "shutdown",
				"error", err,
			)
		}
	}
	clear(p.entries)
	p.updateSizeLocked()
	p.mu.Unlock()

	ctx := p.cron.Stop()
	<-ctx.Done()

	p.logger.Info("session pool shut down", "closed_sessions", count)
}

// Metrics is a point-in-time snapshot of pool counters.
type Metrics struct {
	Created  int64 `json:"clients_created"`
	Hits     int64 `json:"cache_hits"`
	Misses   int64 `json:"cache_misses"`
	Evicted  int64 `json:"clients_evicted"`
	Active   int64 `json:"active_clients"`
	Capacity int   `json:"max_clients"`

	// TTLSeconds is the idle time-to-live in seconds.
	TTLSeconds int64 `json:"client_ttl"`
}

// Metrics returns a snapshot of the pool counters without taking the pool
// lock.
func (p *Pool) Metrics() Metrics {
	return Metrics{
		Created:    p.created.Load(),
		Hits:       p.hits.Load(),
		Misses:     p.misses.Load(),
		Evicted:    p.evicted.Load(),
		Active:     p.size.Load(),
		Capacity:   p.capacity,
		TTLSeconds: int64(p.ttl / time.Second),
	}
}

// SessionInfo describes one cached handle without exposing its credential.
type SessionInfo struct {
	KeyPrefix      string    `json:"key_prefix"`
	Azure          bool      `json:"azure"`
	LastUsed       time.Time `json:"last_used"`
	ActiveRequests int       `json:"active_requests"`
}

// Sessions lists the cached handles, most recently used first.
func (p *Pool) Sessions() []SessionInfo {
	p.mu.Lock()
	infos := lo.MapToSlice(p.entries, func(credential string, e *entry) SessionInfo {
		return SessionInfo{
			KeyPrefix:      logging.KeyPrefix(credential),
			Azure:          e.handle.Variant() != "",
			LastUsed:       e.lastUsed,
			ActiveRequests: e.handle.ActiveRequests(),
		}
	})
	p.mu.Unlock()

	slices.SortFunc(infos, func(a, b SessionInfo) int {
		return b.LastUsed.Compare(a.LastUsed)
	})
	return infos
}

// Len returns the number of cached handles.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

func (p *Pool) updateSizeLocked() {
	n := len(p.entries)
	p.size.Store(int64(n))
	p.notify(func(o Observer) { o.SessionsActive(n) })
}

func (p *Pool) notify(fn func(Observer)) {
	if p.observer != nil {
		fn(p.observer)
	}
}
