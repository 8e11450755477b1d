package resilience

import (
	"context"
	"log/slog"

	"github.com/verselate/verselate/pkg/types"
)

// Scorer rates one provider result for best-quality dispatch. Higher is
// better. Implementations are pure heuristics and may be swapped for a real
// quality model without touching the dispatcher.
type Scorer[Req, Res any] interface {
	// Score rates res produced for req. trusted is the entry's trust flag;
	// scorers typically award it a small fixed bonus.
	Score(req Req, res *Res, trusted bool) float64
}

// ScorerFunc adapts a plain function to the [Scorer] interface.
type ScorerFunc[Req, Res any] func(req Req, res *Res, trusted bool) float64

// Score implements [Scorer].
func (f ScorerFunc[Req, Res]) Score(req Req, res *Res, trusted bool) float64 {
	return f(req, res, trusted)
}

// scored pairs a result with its provider name and score.
type scored[Res any] struct {
	res    *Res
	source string
	score  float64
}

// DispatchBest tries every admissible entry in order — not just until the
// first success — scores each populated result with scorer, and returns the
// highest-scoring one. This trades latency and quota for quality and is
// opt-in; the first-success [Chain.Dispatch] remains the default path.
//
// Entries are still attempted strictly in sequence so that each admission
// decision completes before the next provider is consulted. Skips and
// failures are recorded exactly as in Dispatch; clean misses stay silent.
// A nil result means no entry produced anything scoreable.
func (c *Chain[Req, Res]) DispatchBest(ctx context.Context, req Req, scorer Scorer[Req, Res]) (*Res, string, []types.ServiceError) {
	var (
		errs []types.ServiceError
		best *scored[Res]
	)

	for i := range c.entries {
		e := &c.entries[i]

		res, serr, ok := c.tryEntry(ctx, e, req)
		if serr != nil {
			errs = append(errs, *serr)
			continue
		}
		if !ok {
			continue
		}
		c.limiter.RecordRequest(e.Name)

		s := scorer.Score(req, res, e.Trusted)
		slog.Debug("scored provider result",
			"stage", c.stage, "provider", e.Name, "score", s)
		if best == nil || s > best.score {
			best = &scored[Res]{res: res, source: e.Name, score: s}
		}
	}

	if best == nil {
		slog.Warn("best-quality dispatch produced no result",
			"stage", c.stage, "errors", len(errs))
		return nil, "", errs
	}
	return best.res, best.source, errs
}
