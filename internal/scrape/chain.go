package scrape

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Chain tries scrapers in priority order and returns the first success.
type Chain struct {
	blocklist *Blocklist
	scrapers  []Scraper
}

// NewChain creates a Chain. URLs on blocklist are refused without a fetch.
func NewChain(blocklist *Blocklist, scrapers ...Scraper) *Chain {
	return &Chain{blocklist: blocklist, scrapers: scrapers}
}

// ErrBlocklisted is returned for directory and aggregator URLs.
var ErrBlocklisted = eris.New("scrape: url is on the directory blocklist")

// Scrape tries each supporting scraper once for targetURL.
func (c *Chain) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	if c.blocklist.Blocked(targetURL) {
		return nil, eris.Wrapf(ErrBlocklisted, "scrape: %s", targetURL)
	}

	var lastErr error
	for _, s := range c.scrapers {
		if !s.Supports(targetURL) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "scrape: cancelled")
		}
		result, err := s.Scrape(ctx, targetURL)
		if err == nil && result != nil {
			return result, nil
		}
		if err != nil {
			zap.L().Debug("scrape: scraper failed, trying next",
				zap.String("scraper", s.Name()),
				zap.String("url", targetURL),
				zap.Error(err),
			)
			lastErr = err
		}
	}
	if lastErr != nil {
		return nil, eris.Wrap(lastErr, "scrape: all scrapers failed")
	}
	return nil, eris.Errorf("scrape: no suitable scraper for url: %s", targetURL)
}
