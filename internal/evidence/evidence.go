// Package evidence gathers the text each verification source contributes for
// a candidate: its business profile, its own website, and a guessed social
// profile.
package evidence

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/sells-group/sourdough-cli/internal/config"
	"github.com/sells-group/sourdough-cli/internal/model"
	"github.com/sells-group/sourdough-cli/internal/scrape"
)

// Document is the text one source produced for a candidate.
type Document struct {
	URL  string
	Text string
}

// Fetcher produces the text of one evidence source. Failures are returned
// as *FetchUnavailable.
type Fetcher interface {
	Source() model.SourceKind
	Fetch(ctx context.Context, c model.CanonicalCandidate) (Document, error)
}

// PageScraper fetches one URL. *scrape.Chain satisfies it.
type PageScraper interface {
	Scrape(ctx context.Context, url string) (*scrape.Result, error)
}

// FetchUnavailable means a source could not be consulted. It downgrades
// the source and never fails the candidate.
type FetchUnavailable struct {
	Source model.SourceKind
	URL    string
	Reason string
	Err    error
}

func (e *FetchUnavailable) Error() string {
	msg := fmt.Sprintf("evidence: %s unavailable", e.Source)
	if e.URL != "" {
		msg += " (" + e.URL + ")"
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchUnavailable) Unwrap() error { return e.Err }

func unavailable(src model.SourceKind, url, reason string, err error) *FetchUnavailable {
	return &FetchUnavailable{Source: src, URL: url, Reason: reason, Err: err}
}

// Options carries the shared pieces every network fetcher needs.
type Options struct {
	// Website scrapes restaurant sites; it should refuse directory hosts.
	Website PageScraper
	// Social scrapes social profile pages.
	Social PageScraper
	// Sem bounds in-flight fetches across the whole process. Nil means
	// unbounded.
	Sem *semaphore.Weighted
}

// New builds the fetchers in verification priority order. The social
// fetcher is omitted when disabled or when no scraper is given.
func New(cfg config.VerifyConfig, opts Options) []Fetcher {
	blocklist := scrape.NewBlocklist(cfg.DirectoryBlocklist)
	fetchers := []Fetcher{
		NewProfileFetcher(),
		NewWebsiteFetcher(opts.Website, blocklist, cfg.FetchTimeout(), opts.Sem),
	}
	if cfg.Social.Enabled && opts.Social != nil && len(cfg.Social.URLTemplates) > 0 {
		fetchers = append(fetchers, NewSocialFetcher(opts.Social, cfg.Social.URLTemplates,
			cfg.Social.MaxGuesses, cfg.FetchTimeout(), opts.Sem))
	}
	return fetchers
}

// fetchOnce bounds a single page fetch by the shared semaphore and timeout.
func fetchOnce(ctx context.Context, s PageScraper, sem *semaphore.Weighted, timeout time.Duration, url string) (*scrape.Result, error) {
	if sem != nil {
		if err := sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		defer sem.Release(1)
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return s.Scrape(ctx, url)
}
