// Package pipeline drives discovery and verification for one or more
// cities: plan, search, deduplicate, classify, verify, persist.
package pipeline

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/sourdough-cli/internal/classify"
	"github.com/sells-group/sourdough-cli/internal/config"
	"github.com/sells-group/sourdough-cli/internal/dedup"
	"github.com/sells-group/sourdough-cli/internal/model"
	"github.com/sells-group/sourdough-cli/internal/persist"
	"github.com/sells-group/sourdough-cli/internal/query"
	"github.com/sells-group/sourdough-cli/internal/search"
	"github.com/sells-group/sourdough-cli/internal/store"
)

// Verifier decides one candidate. *verify.Engine implements it.
type Verifier interface {
	Verify(ctx context.Context, c model.CanonicalCandidate) model.Verdict
}

// Deps are the collaborators of a Coordinator. Search, store and gateway
// are shared by every city of a process.
type Deps struct {
	Store      store.Store
	Search     search.Client
	Planner    *query.Planner
	Classifier *classify.Classifier
	Verifier   Verifier
	Gateway    *persist.Gateway
}

// Options bounds a run.
type Options struct {
	MaxQueries                 int
	ResultLimit                int
	MaxConcurrentVerifications int
	MaxConcurrentCities        int
	ProgressEvery              int
	Resume                     bool
}

// OptionsFromConfig reads run bounds from configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		MaxQueries:                 cfg.Search.MaxQueries,
		ResultLimit:                cfg.Search.ResultLimit,
		MaxConcurrentVerifications: cfg.Pipeline.MaxConcurrentVerifications,
		MaxConcurrentCities:        cfg.Pipeline.MaxConcurrentCities,
		ProgressEvery:              cfg.Pipeline.ProgressEvery,
		Resume:                     cfg.Pipeline.Resume,
	}
}

// Coordinator runs the pipeline.
type Coordinator struct {
	deps Deps
	opts Options
}

// New creates a Coordinator. Zero options get defaults.
func New(deps Deps, opts Options) *Coordinator {
	if opts.ResultLimit <= 0 {
		opts.ResultLimit = 20
	}
	if opts.MaxConcurrentVerifications <= 0 {
		opts.MaxConcurrentVerifications = 5
	}
	if opts.MaxConcurrentCities <= 0 {
		opts.MaxConcurrentCities = 1
	}
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = 10
	}
	return &Coordinator{deps: deps, opts: opts}
}

// Run discovers and verifies establishments in one city. Query, fetch and
// insert failures are counted, never returned. The error is non-nil only
// when the run record cannot be created or the context is cancelled; in the
// latter case the summary still holds the counts so far.
func (c *Coordinator) Run(ctx context.Context, target model.Target) (*model.RunSummary, error) {
	run, err := c.deps.Store.CreateRun(ctx, target)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: create run for %s", target)
	}
	log := zap.L().With(
		zap.String("city", target.City),
		zap.String("state", target.State),
		zap.String("run_id", run.ID),
	)
	log.Info("pipeline: run started")

	progress := &Progress{}
	saveProgress := func() {
		if err := c.deps.Store.UpdateRunProgress(context.WithoutCancel(ctx), run.ID, progress.Snapshot()); err != nil {
			log.Warn("pipeline: failed to save progress", zap.Error(err))
		}
	}

	var checked map[string]bool
	if c.opts.Resume {
		checked, err = c.deps.Store.CheckedKeys(ctx, target)
		if err != nil {
			log.Warn("pipeline: failed to load checked candidates, verifying all", zap.Error(err))
			checked = nil
		}
	}

	dd := dedup.New()
	c.discover(ctx, target, dd, progress, log, saveProgress)

	var pizza []model.CanonicalCandidate
	for _, cand := range dd.Candidates() {
		ok, reason := c.deps.Classifier.Classify(&cand)
		if !ok {
			progress.notPizza.Add(1)
			log.Debug("pipeline: not a pizza establishment",
				zap.String("candidate", cand.Name), zap.String("reason", reason))
			continue
		}
		pizza = append(pizza, cand)
	}

	c.verifyAll(ctx, target, run.ID, pizza, checked, progress, log, saveProgress)

	summary := progress.Snapshot()
	status := model.RunStatusCompleted
	if ctx.Err() != nil {
		status = model.RunStatusCancelled
	}
	if err := c.deps.Store.CompleteRun(context.WithoutCancel(ctx), run.ID, status, summary); err != nil {
		log.Warn("pipeline: failed to complete run", zap.Error(err))
	}
	log.Info("pipeline: run finished",
		zap.String("status", string(status)),
		zap.Int("found", summary.Found),
		zap.Int("processed", summary.Processed),
		zap.Int("verified", summary.Verified),
		zap.Int("inserted", summary.Inserted),
		zap.Int("skipped_duplicate", summary.SkippedDuplicate),
		zap.Int("failed", summary.Failed),
	)

	if ctx.Err() != nil {
		return &summary, eris.Wrapf(ctx.Err(), "pipeline: run %s cancelled", run.ID)
	}
	return &summary, nil
}

// discover submits the planned queries one at a time and merges each batch
// as it arrives.
func (c *Coordinator) discover(ctx context.Context, target model.Target, dd *dedup.Deduplicator, progress *Progress, log *zap.Logger, save func()) {
	queries := query.Truncate(c.deps.Planner.Plan(target), c.opts.MaxQueries)
	for _, q := range queries {
		if ctx.Err() != nil {
			return
		}
		qlog := log.With(zap.String("query_id", q.ID))

		progress.queriesRun.Add(1)
		progress.searchCalls.Add(1)
		results, err := c.deps.Search.Search(ctx, q, c.opts.ResultLimit)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			progress.queriesFailed.Add(1)
			qlog.Warn("pipeline: query failed", zap.String("query", q.Text), zap.Error(err))
			save()
			continue
		}

		mr := dd.Merge(results)
		progress.found.Store(int64(dd.Len()))
		qlog.Debug("pipeline: query merged",
			zap.Int("results", len(results)),
			zap.Int("new", len(mr.Added)),
			zap.Int("merged", mr.Merged),
		)
		save()
	}
}

// verifyAll runs the bounded verification pool. Scheduling stops when ctx
// is cancelled; in-flight candidates finish through their own timeouts.
func (c *Coordinator) verifyAll(ctx context.Context, target model.Target, runID string, candidates []model.CanonicalCandidate,
	checked map[string]bool, progress *Progress, log *zap.Logger, save func()) {
	var g errgroup.Group
	g.SetLimit(c.opts.MaxConcurrentVerifications)

	for _, cand := range candidates {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			c.process(ctx, target, cand, checked, progress, log.With(zap.String("candidate", cand.Name)))
			if n := progress.processed.Load(); n > 0 && n%int64(c.opts.ProgressEvery) == 0 {
				save()
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (c *Coordinator) process(ctx context.Context, target model.Target, cand model.CanonicalCandidate,
	checked map[string]bool, progress *Progress, log *zap.Logger) {
	if ctx.Err() != nil {
		return
	}
	if checked[cand.Key] {
		progress.resumed.Add(1)
		progress.processed.Add(1)
		return
	}

	city := cityOf(cand, target)
	exists, err := c.deps.Gateway.Exists(ctx, strings.TrimSpace(cand.Name), city)
	if err != nil {
		progress.failed.Add(1)
		progress.processed.Add(1)
		log.Warn("pipeline: existence check failed", zap.Error(err))
		return
	}
	if exists {
		progress.skippedDuplicate.Add(1)
		progress.processed.Add(1)
		return
	}

	verdict := c.deps.Verifier.Verify(ctx, cand)
	if ctx.Err() != nil {
		return
	}
	progress.processed.Add(1)

	if verdict.Verified {
		progress.verified.Add(1)
		outcome, err := c.deps.Gateway.Upsert(ctx, persist.FromVerdict(cand, target, verdict))
		switch outcome {
		case persist.OutcomeInserted:
			progress.inserted.Add(1)
		case persist.OutcomeSkippedDuplicate:
			progress.skippedDuplicate.Add(1)
		default:
			progress.failed.Add(1)
			log.Warn("pipeline: insert failed", zap.Error(err))
			// Left unrecorded so a resumed run retries the insert.
			return
		}
	} else {
		progress.rejected.Add(1)
		log.Debug("pipeline: candidate not verified",
			zap.String("confidence", string(verdict.Confidence)),
			zap.Bool("vetoed", verdict.Vetoed),
		)
	}

	check := model.CandidateCheck{
		Target:     target,
		Key:        cand.Key,
		Name:       cand.Name,
		Verified:   verdict.Verified,
		Confidence: verdict.Confidence,
	}
	if err := c.deps.Store.RecordCheck(ctx, check); err != nil {
		log.Warn("pipeline: failed to record check", zap.Error(err))
	}
}

func cityOf(c model.CanonicalCandidate, target model.Target) string {
	if city := strings.TrimSpace(c.City); city != "" {
		return city
	}
	return target.City
}
