// Package session manages upstream session handles.
//
// # Overview
//
// A Handle wraps one upstream connection bound to one credential, together
// with a registry of the cancellation signals of requests currently being
// dispatched through it. Handles are shared: many requests run through the
// same handle at once.
//
// A Pool caches handles by credential. It is bounded: on a miss with the pool
// full, the least recently used handle is closed and removed before the new
// one is inserted. Handles idle for longer than the TTL are removed by a
// background sweep scheduled with robfig/cron when the pool is constructed.
//
// All cache mutation (the size check, eviction and insert of Acquire, Sweep and
// Shutdown) happens under a single pool-wide mutex. Metrics reads atomic
// counters and never takes the lock.
//
// # Usage
//
//	pool, err := session.NewPool(session.Config{
//	    MaxSessions:   50,
//	    IdleTTL:       time.Hour,
//	    SweepInterval: 5 * time.Minute,
//	    Factory:       providerfactory.NewConn,
//	})
//	if err != nil {
//	    return err
//	}
//	defer pool.Shutdown()
//
//	handle, err := pool.Acquire(ctx, session.Params{
//	    Credential: apiKey,
//	    Endpoint:   "https://api.openai.com/v1",
//	    Timeout:    90 * time.Second,
//	})
//
// # Closing
//
// Closing a handle fires every outstanding cancellation signal before the
// connection is released, so dispatches blocked on "signal or completion"
// return promptly. Closing happens on capacity eviction, idle eviction and
// pool shutdown. Capacity eviction does not skip busy handles.
//
// After Shutdown the pool rejects Acquire with ErrPoolClosed.
package session
