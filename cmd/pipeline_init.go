package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/sells-group/sourdough-cli/internal/classify"
	"github.com/sells-group/sourdough-cli/internal/evidence"
	"github.com/sells-group/sourdough-cli/internal/persist"
	"github.com/sells-group/sourdough-cli/internal/pipeline"
	"github.com/sells-group/sourdough-cli/internal/query"
	"github.com/sells-group/sourdough-cli/internal/resilience"
	"github.com/sells-group/sourdough-cli/internal/scrape"
	"github.com/sells-group/sourdough-cli/internal/search"
	"github.com/sells-group/sourdough-cli/internal/store"
	"github.com/sells-group/sourdough-cli/internal/verify"
	"github.com/sells-group/sourdough-cli/pkg/google"
	"github.com/sells-group/sourdough-cli/pkg/jina"
	"github.com/sells-group/sourdough-cli/pkg/outscraper"
)

// pipelineEnv holds the store and the coordinator built for discover.
type pipelineEnv struct {
	Store       store.Store
	Coordinator *pipeline.Coordinator
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline validates config, opens the store and wires search,
// classification, verification and persistence into a Coordinator.
// Callers should defer env.Close().
func initPipeline(ctx context.Context, opts pipeline.Options) (*pipelineEnv, error) {
	if err := cfg.Validate("discover"); err != nil {
		return nil, err
	}

	planner, err := buildPlanner()
	if err != nil {
		return nil, err
	}

	st, err := openMigrated(ctx)
	if err != nil {
		return nil, err
	}

	limiter := search.NewLimiter(cfg.Search.MinDelay())
	client, err := buildSearch(limiter)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	coord := pipeline.New(pipeline.Deps{
		Store:      st,
		Search:     client,
		Planner:    planner,
		Classifier: classify.New(cfg.Classify),
		Verifier:   buildVerifier(),
		Gateway:    persist.NewGateway(st),
	}, opts)

	zap.L().Info("pipeline ready",
		zap.String("provider", client.Name()),
		zap.String("store", cfg.Store.Driver),
		zap.Duration("min_delay", cfg.Search.MinDelay()),
	)
	return &pipelineEnv{Store: st, Coordinator: coord}, nil
}

func buildPlanner() (*query.Planner, error) {
	var areas query.Areas
	if cfg.Pipeline.AreasFile != "" {
		a, err := query.LoadAreas(cfg.Pipeline.AreasFile)
		if err != nil {
			return nil, eris.Wrap(err, "load areas")
		}
		areas = a
		zap.L().Info("area subdivisions loaded", zap.Int("cities", len(areas)))
	}
	return query.NewPlanner(areas, cfg.Search.IncludeAreaSearch), nil
}

// buildSearch returns the configured provider behind the shared limiter,
// breaker and submission retry policy. Outscraper result polls are charged
// against the same limiter.
func buildSearch(limiter *rate.Limiter) (search.Client, error) {
	breaker := resilience.NewBreaker(cfg.Search.BreakerThreshold,
		time.Duration(cfg.Search.BreakerResetSecs)*time.Second,
		func(from, to resilience.CircuitState) {
			zap.L().Warn("search circuit state changed",
				zap.String("from", from.String()), zap.String("to", to.String()))
		})

	var inner search.Client
	switch cfg.Search.Provider {
	case "outscraper":
		hc := &http.Client{Timeout: time.Duration(cfg.Outscraper.TimeoutSecs) * time.Second}
		client := outscraper.NewClient(cfg.Outscraper.Key,
			outscraper.WithBaseURL(cfg.Outscraper.BaseURL),
			outscraper.WithHTTPClient(hc),
		)
		inner = search.NewOutscraper(client, search.OutscraperOptions{
			Language: cfg.Search.Language,
			Region:   cfg.Search.Region,
			Async:    cfg.Outscraper.Async,
			Poll: []outscraper.PollOption{
				outscraper.WithPollInterval(time.Duration(cfg.Outscraper.PollInitialSecs) * time.Second),
				outscraper.WithPollStep(time.Duration(cfg.Outscraper.PollStepSecs) * time.Second),
				outscraper.WithPollCap(time.Duration(cfg.Outscraper.PollCapSecs) * time.Second),
				outscraper.WithMaxAttempts(cfg.Outscraper.PollMaxAttempts),
				outscraper.WithWaiter(limiter.Wait),
				outscraper.WithPollRetry(resilience.IsTransient),
			},
		})
	case "google":
		client := google.NewClient(cfg.Google.Key, google.WithBaseURL(cfg.Google.BaseURL))
		inner = search.NewGoogle(client, search.GoogleOptions{
			Language: cfg.Search.Language,
			Region:   cfg.Search.Region,
		})
	default:
		return nil, eris.Errorf("search: unsupported provider %q", cfg.Search.Provider)
	}

	return search.NewLimited(inner, limiter, breaker, resilience.SubmitPolicy(cfg.Search.SubmitRetries)), nil
}

// buildVerifier wires the evidence fetchers. Websites go through the local
// fetcher first and Jina Reader when a key is configured; social profiles
// only use the local fetcher and skip the directory blocklist, which lists
// the social hosts themselves.
func buildVerifier() *verify.Engine {
	inflight := cfg.Pipeline.MaxInflightFetches
	if inflight <= 0 {
		inflight = 10
	}
	sem := semaphore.NewWeighted(int64(inflight))

	local := scrape.NewLocalScraper(cfg.Verify.UserAgent, cfg.Verify.FetchTimeout())
	scrapers := []scrape.Scraper{local}
	if cfg.Jina.Key != "" {
		jinaClient := jina.NewClient(cfg.Jina.Key, jina.WithBaseURL(cfg.Jina.BaseURL))
		jinaBreaker := resilience.NewBreaker(5, time.Minute, func(from, to resilience.CircuitState) {
			zap.L().Warn("jina circuit state changed",
				zap.String("from", from.String()), zap.String("to", to.String()))
		})
		scrapers = append(scrapers, scrape.NewJinaScraper(jinaClient, jinaBreaker))
	} else {
		zap.L().Debug("SOURDOUGH_JINA_KEY not set, website fetch has no reader fallback")
	}

	fetchers := evidence.New(cfg.Verify, evidence.Options{
		Website: scrape.NewChain(scrape.NewBlocklist(cfg.Verify.DirectoryBlocklist), scrapers...),
		Social:  scrape.NewChain(nil, local),
		Sem:     sem,
	})
	return verify.New(cfg.Verify, verify.MatcherFromConfig(cfg.Verify), fetchers)
}
