// Package ratelimit implements sliding-window admission control per provider
// key.
//
// The central type is [Limiter], which tracks the timestamps of admitted
// requests inside a trailing window per key and decides whether a new request
// may proceed. Admission check and slot reservation happen in one mutex-held
// step so that concurrent pipeline runs targeting the same provider can never
// over-admit.
//
// A Limiter instance is the only state shared across pipeline runs. It is
// explicitly constructed and injected into the dispatchers rather than being
// ambient package state, so tests get clean isolation from fresh instances.
package ratelimit

import (
	"sync"
	"time"
)

// Config is the rate-limit budget for one provider key.
type Config struct {
	// MaxRequests is the number of requests admitted per window.
	MaxRequests int

	// Window is the sliding window length.
	Window time.Duration
}

// windowState tracks the admitted request timestamps for one key, ordered
// oldest first.
type windowState struct {
	timestamps []time.Time
	remaining  int
	resetTime  time.Time
}

// Limiter is a sliding-window rate limiter keyed by provider name.
// It is safe for concurrent use.
type Limiter struct {
	mu    sync.Mutex
	keys  map[string]*windowState
	clock func() time.Time
}

// Option is a functional option for [New].
type Option func(*Limiter)

// WithClock replaces the time source. Tests use this to step through a
// window deterministically.
func WithClock(clock func() time.Time) Option {
	return func(l *Limiter) {
		l.clock = clock
	}
}

// New creates an empty [Limiter].
func New(opts ...Option) *Limiter {
	l := &Limiter{
		keys:  make(map[string]*windowState),
		clock: time.Now,
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Allow reports whether a request for key may proceed under cfg. When it
// returns true the slot is already booked: the current timestamp is appended
// to the window and remaining is decremented. Check and reservation are a
// single atomic step.
//
// When it returns false, remaining is pinned at zero and the reset time is
// set to the oldest surviving timestamp plus the window length.
//
// A MaxRequests of zero or below means unlimited: the request is admitted
// without booking a slot.
func (l *Limiter) Allow(key string, cfg Config) bool {
	if cfg.MaxRequests <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	st := l.state(key, cfg, now)
	l.prune(st, now, cfg.Window)

	if len(st.timestamps) >= cfg.MaxRequests {
		st.remaining = 0
		st.resetTime = st.timestamps[0].Add(cfg.Window)
		return false
	}

	st.timestamps = append(st.timestamps, now)
	st.remaining = cfg.MaxRequests - len(st.timestamps)
	st.resetTime = st.timestamps[0].Add(cfg.Window)
	return true
}

// RecordRequest is called by the dispatcher after a confirmed provider call.
// The slot was already booked in [Allow]; this only decrements the cached
// remaining count if it is still positive and never appends a second
// timestamp.
func (l *Limiter) RecordRequest(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	st, ok := l.keys[key]
	if !ok {
		return
	}
	if st.remaining > 0 {
		st.remaining--
	}
}

// Remaining returns the cached remaining request count for key, or 0 for an
// unseen key.
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	st, ok := l.keys[key]
	if !ok {
		return 0
	}
	return st.remaining
}

// ResetTime returns when the oldest booked slot for key falls out of the
// window. For an unseen key it returns the current time.
func (l *Limiter) ResetTime(key string) time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()

	st, ok := l.keys[key]
	if !ok {
		return l.clock()
	}
	return st.resetTime
}

// RetryAfter returns how long a caller must wait before a request for key
// can be admitted again. Zero when the key is under its limit or the limit
// is unlimited.
func (l *Limiter) RetryAfter(key string, cfg Config) time.Duration {
	if cfg.MaxRequests <= 0 {
		return 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	st, ok := l.keys[key]
	if !ok {
		return 0
	}
	l.prune(st, now, cfg.Window)
	if len(st.timestamps) < cfg.MaxRequests {
		return 0
	}
	wait := st.timestamps[0].Add(cfg.Window).Sub(now)
	if wait < 0 {
		wait = 0
	}
	return wait
}

// Reset clears all recorded state for key. Intended for tests and manual
// operator overrides.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.keys, key)
}

// state lazily initialises the window state for an unseen key.
// Must be called with l.mu held.
func (l *Limiter) state(key string, cfg Config, now time.Time) *windowState {
	st, ok := l.keys[key]
	if !ok {
		st = &windowState{
			remaining: cfg.MaxRequests,
			resetTime: now,
		}
		l.keys[key] = st
	}
	return st
}

// prune drops timestamps that have aged out of the window. The window is
// open on the old end: a timestamp exactly at now-window is excluded.
// Must be called with l.mu held.
func (l *Limiter) prune(st *windowState, now time.Time, window time.Duration) {
	cut := 0
	for cut < len(st.timestamps) && now.Sub(st.timestamps[cut]) >= window {
		cut++
	}
	if cut > 0 {
		st.timestamps = append(st.timestamps[:0], st.timestamps[cut:]...)
	}
}
