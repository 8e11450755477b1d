package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/verselate/verselate/internal/ratelimit"
	"github.com/verselate/verselate/pkg/types"
)

var errBoom = errors.New("boom")

// lyricsResult is a stand-in stage result for dispatcher tests.
type lyricsResult struct {
	text string
}

func relaxedLimits() ratelimit.Config {
	return ratelimit.Config{MaxRequests: 100, Window: time.Minute}
}

func newTestChain(limiter *ratelimit.Limiter) *Chain[string, lyricsResult] {
	return NewChain[string, lyricsResult]("lyrics", limiter, ChainConfig{
		Breaker: BreakerConfig{Threshold: 100},
	})
}

func TestDispatch_FirstSuccessWins(t *testing.T) {
	limiter := ratelimit.New()
	chain := newTestChain(limiter)

	var calls []string
	for _, name := range []string{"a", "b", "c"} {
		chain.Add(Entry[string, lyricsResult]{
			Name:   name,
			Limits: relaxedLimits(),
			Attempt: func(name string) Attempt[string, lyricsResult] {
				return func(_ context.Context, req string) (*lyricsResult, error) {
					calls = append(calls, name)
					return &lyricsResult{text: "from " + name}, nil
				}
			}(name),
		})
	}

	res, source, errs := chain.Dispatch(context.Background(), "song")
	if res == nil || res.text != "from a" {
		t.Fatalf("res = %+v, want result from a", res)
	}
	if source != "a" {
		t.Errorf("source = %q, want a", source)
	}
	if len(errs) != 0 {
		t.Errorf("errs = %v, want none", errs)
	}
	if len(calls) != 1 || calls[0] != "a" {
		t.Errorf("calls = %v, want only a (no further providers tried)", calls)
	}
}

func TestDispatch_RateLimitedEntrySkipped(t *testing.T) {
	limiter := ratelimit.New()
	chain := newTestChain(limiter)

	tight := ratelimit.Config{MaxRequests: 1, Window: time.Hour}
	var calledC bool
	chain.Add(Entry[string, lyricsResult]{
		Name:   "a",
		Limits: tight,
		Attempt: func(_ context.Context, _ string) (*lyricsResult, error) {
			return &lyricsResult{text: "a"}, nil
		},
	})
	chain.Add(Entry[string, lyricsResult]{
		Name:   "b",
		Limits: relaxedLimits(),
		Attempt: func(_ context.Context, _ string) (*lyricsResult, error) {
			return &lyricsResult{text: "b"}, nil
		},
	})
	chain.Add(Entry[string, lyricsResult]{
		Name:   "c",
		Limits: relaxedLimits(),
		Attempt: func(_ context.Context, _ string) (*lyricsResult, error) {
			calledC = true
			return &lyricsResult{text: "c"}, nil
		},
	})

	// Exhaust a's budget.
	if res, _, _ := chain.Dispatch(context.Background(), "one"); res.text != "a" {
		t.Fatalf("warm-up dispatch went to %q, want a", res.text)
	}

	res, source, errs := chain.Dispatch(context.Background(), "two")
	if res == nil || res.text != "b" {
		t.Fatalf("res = %+v, want result from b", res)
	}
	if source != "b" {
		t.Errorf("source = %q, want b", source)
	}
	if len(errs) != 1 {
		t.Fatalf("errs = %v, want exactly one (for a)", errs)
	}
	if errs[0].Service != "a" || errs[0].Message != MsgRateLimited {
		t.Errorf("errs[0] = %+v, want rate limit error for a", errs[0])
	}
	if errs[0].RetryAfter <= 0 {
		t.Errorf("RetryAfter = %v, want positive", errs[0].RetryAfter)
	}
	if calledC {
		t.Error("provider c was called even though b succeeded")
	}
}

func TestDispatch_ErrorFallsThrough(t *testing.T) {
	limiter := ratelimit.New()
	chain := newTestChain(limiter)

	chain.Add(Entry[string, lyricsResult]{
		Name:   "flaky",
		Limits: relaxedLimits(),
		Attempt: func(_ context.Context, _ string) (*lyricsResult, error) {
			return nil, errBoom
		},
	})
	chain.Add(Entry[string, lyricsResult]{
		Name:   "steady",
		Limits: relaxedLimits(),
		Attempt: func(_ context.Context, _ string) (*lyricsResult, error) {
			return &lyricsResult{text: "ok"}, nil
		},
	})

	res, source, errs := chain.Dispatch(context.Background(), "song")
	if res == nil || res.text != "ok" {
		t.Fatalf("res = %+v, want result from steady", res)
	}
	if source != "steady" {
		t.Errorf("source = %q, want steady", source)
	}
	if len(errs) != 1 || errs[0].Service != "flaky" {
		t.Fatalf("errs = %v, want one error for flaky", errs)
	}
}

func TestDispatch_MissIsSilent(t *testing.T) {
	limiter := ratelimit.New()
	chain := newTestChain(limiter)

	chain.Add(Entry[string, lyricsResult]{
		Name:   "empty",
		Limits: relaxedLimits(),
		Attempt: func(_ context.Context, _ string) (*lyricsResult, error) {
			return nil, nil // not found is not an error
		},
	})
	chain.Add(Entry[string, lyricsResult]{
		Name:   "full",
		Limits: relaxedLimits(),
		Attempt: func(_ context.Context, _ string) (*lyricsResult, error) {
			return &lyricsResult{text: "found"}, nil
		},
	})

	res, _, errs := chain.Dispatch(context.Background(), "song")
	if res == nil || res.text != "found" {
		t.Fatalf("res = %+v, want result from full", res)
	}
	if len(errs) != 0 {
		t.Errorf("errs = %v, want none (miss must not be recorded)", errs)
	}
}

func TestDispatch_ExhaustionCountsOnlyRealErrors(t *testing.T) {
	limiter := ratelimit.New()
	chain := newTestChain(limiter)

	chain.Add(Entry[string, lyricsResult]{
		Name:   "failing",
		Limits: relaxedLimits(),
		Attempt: func(_ context.Context, _ string) (*lyricsResult, error) {
			return nil, errBoom
		},
	})
	chain.Add(Entry[string, lyricsResult]{
		Name:   "missing",
		Limits: relaxedLimits(),
		Attempt: func(_ context.Context, _ string) (*lyricsResult, error) {
			return nil, nil
		},
	})

	res, source, errs := chain.Dispatch(context.Background(), "song")
	if res != nil {
		t.Fatalf("res = %+v, want nil on exhaustion", res)
	}
	if source != "" {
		t.Errorf("source = %q, want empty", source)
	}
	if len(errs) != 1 || errs[0].Service != "failing" {
		t.Fatalf("errs = %v, want exactly one error for failing", errs)
	}
}

func TestDispatch_TimeoutTreatedAsError(t *testing.T) {
	limiter := ratelimit.New()
	chain := newTestChain(limiter)

	chain.Add(Entry[string, lyricsResult]{
		Name:    "slow",
		Limits:  relaxedLimits(),
		Timeout: 10 * time.Millisecond,
		Attempt: func(ctx context.Context, _ string) (*lyricsResult, error) {
			select {
			case <-time.After(time.Second):
				return &lyricsResult{text: "too late"}, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		},
	})
	chain.Add(Entry[string, lyricsResult]{
		Name:   "fast",
		Limits: relaxedLimits(),
		Attempt: func(_ context.Context, _ string) (*lyricsResult, error) {
			return &lyricsResult{text: "ok"}, nil
		},
	})

	res, source, errs := chain.Dispatch(context.Background(), "song")
	if res == nil || source != "fast" {
		t.Fatalf("res = %+v source = %q, want fallback to fast", res, source)
	}
	if len(errs) != 1 || errs[0].Service != "slow" {
		t.Fatalf("errs = %v, want one timeout error for slow", errs)
	}
}

func TestDispatch_BreakerSkipConsumesNoQuota(t *testing.T) {
	limiter := ratelimit.New()
	chain := NewChain[string, lyricsResult]("lyrics", limiter, ChainConfig{
		Breaker: BreakerConfig{Threshold: 1, Cooldown: time.Hour},
	})

	tight := ratelimit.Config{MaxRequests: 2, Window: time.Hour}
	chain.Add(Entry[string, lyricsResult]{
		Name:   "broken",
		Limits: tight,
		Attempt: func(_ context.Context, _ string) (*lyricsResult, error) {
			return nil, errBoom
		},
	})
	chain.Add(Entry[string, lyricsResult]{
		Name:   "good",
		Limits: relaxedLimits(),
		Attempt: func(_ context.Context, _ string) (*lyricsResult, error) {
			return &lyricsResult{text: "ok"}, nil
		},
	})

	// First dispatch trips broken's breaker (threshold 1).
	chain.Dispatch(context.Background(), "one")

	// Second dispatch skips broken via the breaker without booking a slot.
	_, _, errs := chain.Dispatch(context.Background(), "two")
	if len(errs) != 1 || errs[0].Message != MsgBreakerOpen {
		t.Fatalf("errs = %v, want breaker-open skip for broken", errs)
	}
	if got := limiter.Remaining("broken"); got != 1 {
		t.Errorf("Remaining(broken) = %d, want 1 (only the first attempt booked)", got)
	}
}

func TestAdmissible_ReflectsLimiterState(t *testing.T) {
	limiter := ratelimit.New()
	chain := newTestChain(limiter)

	tight := ratelimit.Config{MaxRequests: 1, Window: time.Hour}
	chain.Add(Entry[string, lyricsResult]{
		Name:   "a",
		Limits: tight,
		Attempt: func(_ context.Context, _ string) (*lyricsResult, error) {
			return &lyricsResult{}, nil
		},
	})
	chain.Add(Entry[string, lyricsResult]{
		Name:   "b",
		Limits: relaxedLimits(),
		Attempt: func(_ context.Context, _ string) (*lyricsResult, error) {
			return &lyricsResult{}, nil
		},
	})

	if got := chain.Admissible(); got != 2 {
		t.Fatalf("Admissible = %d, want 2", got)
	}
	chain.Dispatch(context.Background(), "song")
	if got := chain.Admissible(); got != 1 {
		t.Errorf("Admissible after exhausting a = %d, want 1", got)
	}
	// Admissible itself must not book slots.
	if got := chain.Admissible(); got != 1 {
		t.Errorf("repeated Admissible = %d, want 1", got)
	}
}

func TestHasTransportError(t *testing.T) {
	tests := []struct {
		name string
		errs []types.ServiceError
		want bool
	}{
		{name: "empty", errs: nil, want: false},
		{
			name: "only rate limited",
			errs: []types.ServiceError{
				{Service: "a", Message: MsgRateLimited, RetryAfter: time.Second},
				{Service: "b", Message: MsgRateLimited, RetryAfter: time.Second},
			},
			want: false,
		},
		{
			name: "only breaker open",
			errs: []types.ServiceError{{Service: "a", Message: MsgBreakerOpen}},
			want: false,
		},
		{
			name: "mixed with transport failure",
			errs: []types.ServiceError{
				{Service: "a", Message: MsgRateLimited, RetryAfter: time.Second},
				{Service: "b", Message: "connection reset"},
			},
			want: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasTransportError(tt.errs); got != tt.want {
				t.Errorf("HasTransportError = %v, want %v", got, tt.want)
			}
		})
	}
}
