package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/verselate/verselate/internal/ratelimit"
	"github.com/verselate/verselate/internal/resilience"
	"github.com/verselate/verselate/pkg/provider/translation"
	"github.com/verselate/verselate/pkg/types"
)

func addRecognition(tc *testChains, name string) {
	tc.recognition.Add(resilience.Entry[[]byte, types.SongInfo]{
		Name:   name,
		Limits: ratelimit.Config{MaxRequests: 10, Window: time.Minute},
		Attempt: func(ctx context.Context, audio []byte) (*types.SongInfo, error) {
			return nil, nil
		},
	})
}

func TestHealthCheckHealthy(t *testing.T) {
	tc := newTestChains()
	addRecognition(tc, "acrcloud")
	tc.addLyrics("lrclib", "x")
	tc.addTranslation("mymemory", echoTranslation("mymemory"))
	p := tc.pipeline(t, Config{})

	h := p.HealthCheck()
	if h.Status != HealthHealthy {
		t.Errorf("status = %q, want healthy", h.Status)
	}
	if len(h.Details) != 0 {
		t.Errorf("details = %v, want empty", h.Details)
	}
}

func TestHealthCheckDegraded(t *testing.T) {
	tc := newTestChains()
	// No recognition providers configured at all.
	tc.addLyrics("lrclib", "x")
	tc.addTranslation("mymemory", echoTranslation("mymemory"))
	p := tc.pipeline(t, Config{})

	h := p.HealthCheck()
	if h.Status != HealthDegraded {
		t.Errorf("status = %q, want degraded", h.Status)
	}
	if h.Categories[StageRecognition] {
		t.Error("recognition should be unavailable")
	}
	if len(h.Details) != 1 {
		t.Errorf("details = %v, want one entry", h.Details)
	}
}

func TestHealthCheckUnhealthyWhenAllExhausted(t *testing.T) {
	tc := newTestChains()
	cfg := ratelimit.Config{MaxRequests: 1, Window: time.Hour}
	for _, name := range []string{"acrcloud", "lrclib", "mymemory"} {
		tc.limiter.Allow(name, cfg)
	}
	tc.recognition.Add(resilience.Entry[[]byte, types.SongInfo]{
		Name: "acrcloud", Limits: cfg,
		Attempt: func(ctx context.Context, audio []byte) (*types.SongInfo, error) { return nil, nil },
	})
	tc.lyrics.Add(resilience.Entry[LyricsQuery, types.Lyrics]{
		Name: "lrclib", Limits: cfg,
		Attempt: func(ctx context.Context, q LyricsQuery) (*types.Lyrics, error) { return nil, nil },
	})
	tc.translation.Add(resilience.Entry[translation.Request, types.Translation]{
		Name: "mymemory", Limits: cfg,
		Attempt: echoTranslation("mymemory"),
	})
	p := tc.pipeline(t, Config{})

	h := p.HealthCheck()
	if h.Status != HealthUnhealthy {
		t.Errorf("status = %q, want unhealthy", h.Status)
	}
	if len(h.Details) != 3 {
		t.Errorf("details = %v, want three entries", h.Details)
	}
}

func TestServiceStatusSnapshot(t *testing.T) {
	tc := newTestChains()
	addRecognition(tc, "acrcloud")
	tc.addLyrics("lrclib", "x")
	tc.addTranslation("mymemory", echoTranslation("mymemory"))
	p := tc.pipeline(t, Config{})

	st := p.ServiceStatus()
	if len(st.Providers) != 3 {
		t.Fatalf("providers = %d, want 3", len(st.Providers))
	}
	for _, cat := range []string{StageRecognition, StageLyrics, StageTranslation} {
		c, ok := st.Categories[cat]
		if !ok {
			t.Fatalf("category %s missing", cat)
		}
		if !c.Available || c.Admissible != 1 {
			t.Errorf("%s: available=%v admissible=%d, want available with 1", cat, c.Available, c.Admissible)
		}
	}
}
