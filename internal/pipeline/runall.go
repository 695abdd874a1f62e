package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/sourdough-cli/internal/model"
)

// CityResult is the outcome of one city in RunAll.
type CityResult struct {
	Target  model.Target
	Summary *model.RunSummary
	Skipped bool
	Err     error
}

// RunAll runs several cities with at most MaxConcurrentCities in flight.
// Each city gets its own deduplicator and worker pool; the search client,
// limiter and fetch semaphore behind Deps are shared. With Resume, cities
// whose last completed run had no failed candidates are skipped. Results
// keep the order of targets.
func (c *Coordinator) RunAll(ctx context.Context, targets []model.Target) ([]CityResult, error) {
	results := make([]CityResult, len(targets))

	var g errgroup.Group
	g.SetLimit(c.opts.MaxConcurrentCities)

	for i, t := range targets {
		results[i].Target = t
		if ctx.Err() != nil {
			results[i].Err = ctx.Err()
			continue
		}
		g.Go(func() error {
			if c.opts.Resume {
				last, err := c.deps.Store.LastCompletedRun(ctx, t)
				if err != nil {
					zap.L().Warn("pipeline: failed to look up previous run", zap.String("target", t.String()), zap.Error(err))
				}
				if last != nil && last.Summary.Failed > 0 {
					zap.L().Info("pipeline: previous run had failures, rerunning",
						zap.String("target", t.String()), zap.String("run_id", last.ID),
						zap.Int("failed", last.Summary.Failed))
				} else if last != nil {
					zap.L().Info("pipeline: city already completed, skipping",
						zap.String("target", t.String()), zap.String("run_id", last.ID))
					summary := last.Summary
					results[i].Summary = &summary
					results[i].Skipped = true
					return nil
				}
			}
			results[i].Summary, results[i].Err = c.Run(ctx, t)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return results, eris.Wrap(err, "pipeline: cancelled")
	}
	return results, nil
}
