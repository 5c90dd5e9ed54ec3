package session

import "sync"

// Signal is a single-fire cancellation flag. Firing is idempotent and safe
// from any goroutine. Observers either poll Fired or wait on Done.
type Signal struct {
	once sync.Once
	done chan struct{}
}

// NewSignal returns an unfired signal.
func NewSignal() *Signal {
	return &Signal{done: make(chan struct{})}
}

// Fire marks the signal as cancelled. Only the first call has an effect.
func (s *Signal) Fire() {
	s.once.Do(func() {
		close(s.done)
	})
}

// Done returns a channel closed when the signal fires.
func (s *Signal) Done() <-chan struct{} {
	return s.done
}

// Fired reports whether the signal has fired.
func (s *Signal) Fired() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}
