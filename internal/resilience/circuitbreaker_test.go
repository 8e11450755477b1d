package resilience

import (
	"errors"
	"testing"
	"time"
)

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := NewBreaker(BreakerConfig{Name: "test", Threshold: 3, Cooldown: time.Hour})

	for i := 0; i < 3; i++ {
		if b.Tripped() {
			t.Fatalf("tripped after %d failures, threshold is 3", i)
		}
		_ = b.Call(func() error { return errBoom })
	}
	if !b.Tripped() {
		t.Fatal("breaker should be open after 3 consecutive failures")
	}
	if err := b.Call(func() error { return nil }); !errors.Is(err, ErrBreakerOpen) {
		t.Fatalf("Call while open = %v, want ErrBreakerOpen", err)
	}
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b := NewBreaker(BreakerConfig{Name: "test", Threshold: 2, Cooldown: time.Hour})

	_ = b.Call(func() error { return errBoom })
	_ = b.Call(func() error { return nil })
	_ = b.Call(func() error { return errBoom })

	if b.Tripped() {
		t.Error("one failure after a success should not trip a threshold-2 breaker")
	}
}

func TestBreaker_ProbeAfterCooldown(t *testing.T) {
	b := NewBreaker(BreakerConfig{Name: "test", Threshold: 1, Cooldown: 5 * time.Millisecond})

	_ = b.Call(func() error { return errBoom })
	if !b.Tripped() {
		t.Fatal("breaker should be open")
	}

	time.Sleep(10 * time.Millisecond)
	if b.Tripped() {
		t.Fatal("cooldown elapsed, probe should be allowed")
	}

	// Successful probe closes the breaker.
	if err := b.Call(func() error { return nil }); err != nil {
		t.Fatalf("probe call: %v", err)
	}
	if b.Tripped() {
		t.Error("breaker should be closed after successful probe")
	}
}

func TestBreaker_FailedProbeReopens(t *testing.T) {
	b := NewBreaker(BreakerConfig{Name: "test", Threshold: 1, Cooldown: 5 * time.Millisecond})

	_ = b.Call(func() error { return errBoom })
	time.Sleep(10 * time.Millisecond)

	_ = b.Call(func() error { return errBoom })
	if !b.Tripped() {
		t.Error("failed probe should re-open the breaker immediately")
	}
}

func TestBreaker_Reset(t *testing.T) {
	b := NewBreaker(BreakerConfig{Name: "test", Threshold: 1, Cooldown: time.Hour})

	_ = b.Call(func() error { return errBoom })
	if !b.Tripped() {
		t.Fatal("breaker should be open")
	}

	b.Reset()
	if b.Tripped() {
		t.Error("breaker should be closed after Reset")
	}
}
