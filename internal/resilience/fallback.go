package resilience

import (
	"context"
	"log/slog"
	"time"

	"github.com/verselate/verselate/internal/ratelimit"
	"github.com/verselate/verselate/pkg/types"
)

// Error messages recorded on [types.ServiceError] for skipped entries. The
// pipeline's retry logic distinguishes these from transport errors, which are
// the only failures worth retrying.
const (
	MsgRateLimited = "rate limit exceeded"
	MsgBreakerOpen = "circuit breaker open"
)

// Attempt invokes one provider for one stage. A nil result with a nil error
// is a semantic miss ("not found") and is not an error. A non-nil error is a
// transport or protocol failure.
type Attempt[Req, Res any] func(ctx context.Context, req Req) (*Res, error)

// Entry is one provider in a [Chain], in priority position.
type Entry[Req, Res any] struct {
	// Name is the provider key, used for rate-limit accounting, error
	// attribution, and the result's source tag.
	Name string

	// Limits is the provider's sliding-window budget.
	Limits ratelimit.Config

	// Timeout bounds a single attempt. Zero means no per-attempt bound
	// beyond the caller's context.
	Timeout time.Duration

	// Trusted marks providers that receive the quality scorer's trust bonus
	// in best-quality dispatch.
	Trusted bool

	// Attempt calls the provider.
	Attempt Attempt[Req, Res]
}

// chainEntry pairs an [Entry] with its dedicated circuit breaker.
type chainEntry[Req, Res any] struct {
	Entry[Req, Res]
	breaker *Breaker
}

// ChainConfig configures a [Chain].
type ChainConfig struct {
	// Breaker is the per-entry circuit breaker configuration. The Name field
	// is overwritten with each entry's name.
	Breaker BreakerConfig
}

// Chain tries a fixed, priority-ordered list of providers for one pipeline
// stage and returns the first successful result. The shared rate limiter is
// consulted before every attempt; exhausted, tripped, and failing providers
// are skipped with a recorded error rather than aborting the stage.
//
// Entries are registered once during wiring; Dispatch is safe for concurrent
// use afterwards.
type Chain[Req, Res any] struct {
	stage   string
	limiter *ratelimit.Limiter
	cfg     ChainConfig
	entries []chainEntry[Req, Res]
}

// NewChain creates an empty [Chain] for the named stage, sharing limiter
// with every other chain in the process.
func NewChain[Req, Res any](stage string, limiter *ratelimit.Limiter, cfg ChainConfig) *Chain[Req, Res] {
	return &Chain[Req, Res]{
		stage:   stage,
		limiter: limiter,
		cfg:     cfg,
	}
}

// Add appends a provider entry. Entries are tried in the order they are
// added; ordering encodes the manual quality/cost preference for the stage.
func (c *Chain[Req, Res]) Add(e Entry[Req, Res]) {
	bc := c.cfg.Breaker
	bc.Name = e.Name
	c.entries = append(c.entries, chainEntry[Req, Res]{
		Entry:   e,
		breaker: NewBreaker(bc),
	})
}

// Len returns the number of registered entries.
func (c *Chain[Req, Res]) Len() int {
	return len(c.entries)
}

// Stage returns the stage name this chain dispatches for.
func (c *Chain[Req, Res]) Stage() string {
	return c.stage
}

// Admissible returns how many entries could currently accept a request.
// It inspects rate-limit and breaker state only and books nothing, so it is
// suitable for health checks.
func (c *Chain[Req, Res]) Admissible() int {
	n := 0
	for i := range c.entries {
		e := &c.entries[i]
		if e.breaker.Tripped() {
			continue
		}
		if c.limiter.RetryAfter(e.Name, e.Limits) > 0 {
			continue
		}
		n++
	}
	return n
}

// TrustedEntry reports whether the named entry is marked trusted.
// Unknown names report false.
func (c *Chain[Req, Res]) TrustedEntry(name string) bool {
	for i := range c.entries {
		if c.entries[i].Name == name {
			return c.entries[i].Trusted
		}
	}
	return false
}

// Providers returns the entry names in priority order.
func (c *Chain[Req, Res]) Providers() []string {
	names := make([]string, len(c.entries))
	for i := range c.entries {
		names[i] = c.entries[i].Name
	}
	return names
}

// Dispatch tries each entry in priority order and returns the first
// populated result together with the winning provider's name. Skipped and
// failed entries are reported in the returned error list; a nil result means
// the stage is exhausted. No error is recorded for entries that were never
// reached or that reported a clean miss.
func (c *Chain[Req, Res]) Dispatch(ctx context.Context, req Req) (*Res, string, []types.ServiceError) {
	var errs []types.ServiceError

	for i := range c.entries {
		e := &c.entries[i]

		res, serr, ok := c.tryEntry(ctx, e, req)
		if serr != nil {
			errs = append(errs, *serr)
			continue
		}
		if !ok {
			// Clean miss: fall through silently.
			continue
		}
		c.limiter.RecordRequest(e.Name)
		slog.Debug("provider succeeded",
			"stage", c.stage, "provider", e.Name)
		return res, e.Name, errs
	}

	slog.Warn("all providers exhausted",
		"stage", c.stage, "providers", len(c.entries), "errors", len(errs))
	return nil, "", errs
}

// tryEntry runs a single entry through breaker, admission, and attempt.
// Returns (result, nil, true) on success, (nil, nil, false) on a clean miss,
// and (nil, serviceError, false) when the entry was skipped or failed.
func (c *Chain[Req, Res]) tryEntry(ctx context.Context, e *chainEntry[Req, Res], req Req) (*Res, *types.ServiceError, bool) {
	// Breaker first so a tripped provider does not consume quota.
	if e.breaker.Tripped() {
		slog.Debug("skipping provider (circuit open)",
			"stage", c.stage, "provider", e.Name)
		return nil, &types.ServiceError{Service: e.Name, Message: MsgBreakerOpen}, false
	}

	if !c.limiter.Allow(e.Name, e.Limits) {
		retry := c.limiter.RetryAfter(e.Name, e.Limits)
		slog.Debug("skipping provider (rate limited)",
			"stage", c.stage, "provider", e.Name, "retry_after", retry)
		return nil, &types.ServiceError{
			Service:    e.Name,
			Message:    MsgRateLimited,
			RetryAfter: retry,
		}, false
	}

	var res *Res
	err := e.breaker.Call(func() error {
		attemptCtx := ctx
		if e.Timeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, e.Timeout)
			defer cancel()
		}
		var attemptErr error
		res, attemptErr = e.Attempt(attemptCtx, req)
		return attemptErr
	})
	if err != nil {
		slog.Warn("provider failed, trying next",
			"stage", c.stage, "provider", e.Name, "error", err)
		return nil, &types.ServiceError{Service: e.Name, Message: err.Error()}, false
	}
	if res == nil {
		slog.Debug("provider reported no match",
			"stage", c.stage, "provider", e.Name)
		return nil, nil, false
	}
	return res, nil, true
}

// HasTransportError reports whether errs contains at least one failure that
// was neither an admission denial nor a breaker skip. Only those failures
// justify a stage-level retry: re-running a rate-limited or cleanly missed
// dispatch cannot change the outcome.
func HasTransportError(errs []types.ServiceError) bool {
	for _, e := range errs {
		if e.Message != MsgRateLimited && e.Message != MsgBreakerOpen {
			return true
		}
	}
	return false
}
