// Package resilience provides the ordered-fallback dispatcher and the
// per-provider circuit breaker used by every pipeline stage.
//
// The central type is [Chain], which tries a fixed priority-ordered list of
// provider entries for one stage, consulting the shared rate limiter before
// each attempt and collecting per-provider errors without aborting the stage.
// Each entry additionally carries a [Breaker] so that a provider failing
// repeatedly is skipped before its rate-limit quota is consumed.
//
// All types are safe for concurrent use.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrBreakerOpen is returned by [Breaker.Call] when the breaker is open and
// the cooldown has not yet elapsed.
var ErrBreakerOpen = errors.New("circuit breaker is open")

// BreakerConfig tunes a [Breaker]. Zero-value fields get defaults.
type BreakerConfig struct {
	// Name is a human-readable label used in log messages.
	Name string

	// Threshold is the number of consecutive failures before the breaker
	// opens. Default: 5.
	Threshold int

	// Cooldown is how long the breaker stays open before allowing a single
	// probe call. Default: 30s.
	Cooldown time.Duration
}

// Breaker is a two-and-a-half-state circuit breaker: closed, open, and a
// single-probe half-open transition once the cooldown elapses. A successful
// probe closes the breaker; a failed probe re-opens it.
type Breaker struct {
	name      string
	threshold int
	cooldown  time.Duration

	mu       sync.Mutex
	open     bool
	failures int
	openedAt time.Time
}

// NewBreaker creates a [Breaker] from cfg, applying defaults for zero fields.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	return &Breaker{
		name:      cfg.Name,
		threshold: cfg.Threshold,
		cooldown:  cfg.Cooldown,
	}
}

// Tripped reports whether a call would currently be rejected. It does not
// mutate state, so dispatchers can check it before reserving a rate-limit
// slot.
func (b *Breaker) Tripped() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open && time.Since(b.openedAt) < b.cooldown
}

// Call runs fn if the breaker allows it, recording the result. When the
// breaker is open and the cooldown has not elapsed, fn is not called and
// [ErrBreakerOpen] is returned.
func (b *Breaker) Call(fn func() error) error {
	b.mu.Lock()
	if b.open {
		if time.Since(b.openedAt) < b.cooldown {
			b.mu.Unlock()
			return ErrBreakerOpen
		}
		// Cooldown elapsed: let this call through as the probe.
		slog.Debug("circuit breaker probing", "name", b.name)
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.failures++
		if b.open || b.failures >= b.threshold {
			b.open = true
			b.openedAt = time.Now()
			slog.Warn("circuit breaker open",
				"name", b.name, "consecutive_failures", b.failures)
		}
		return err
	}

	if b.open {
		slog.Info("circuit breaker closed after successful probe", "name", b.name)
	}
	b.open = false
	b.failures = 0
	return nil
}

// Reset forces the breaker back to closed, clearing the failure count.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.open = false
	b.failures = 0
}
