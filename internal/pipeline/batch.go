package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/verselate/verselate/pkg/types"
)

// BatchTranslate runs the pipeline once per request and returns one outcome
// per request, index-aligned with the input. Item starts are staggered by the
// configured batch delay so shared provider quotas are not drained in one
// burst, and items run at most BatchConcurrency at a time (default
// sequential). A failed item never stops the batch; its failure surfaces on
// its own outcome.
func (p *Pipeline) BatchTranslate(ctx context.Context, reqs []types.Request) []*types.Outcome {
	results := make([]*types.Outcome, len(reqs))
	if len(reqs) == 0 {
		return results
	}

	p.metrics.ActiveBatches.Add(ctx, 1)
	defer p.metrics.ActiveBatches.Add(ctx, -1)

	limit := p.cfg.BatchConcurrency
	if limit < 1 {
		limit = 1
	}

	g := new(errgroup.Group)
	g.SetLimit(limit)

	for i, req := range reqs {
		if i > 0 {
			if err := p.sleep(ctx, p.cfg.BatchDelay); err != nil {
				// Context cancelled mid-batch: mark the rest as not run.
				for j := i; j < len(reqs); j++ {
					results[j] = &types.Outcome{Errors: []types.ServiceError{
						{Service: "batch", Message: err.Error()},
					}}
				}
				break
			}
		}
		g.Go(func() error {
			results[i] = p.run(ctx, req)
			return nil
		})
	}

	// Workers never return errors; outcomes carry their own failures.
	_ = g.Wait()
	return results
}
