package evidence

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/sells-group/sourdough-cli/internal/model"
	"github.com/sells-group/sourdough-cli/internal/scrape"
)

// WebsiteFetcher reads the candidate's own website.
type WebsiteFetcher struct {
	scraper   PageScraper
	blocklist *scrape.Blocklist
	timeout   time.Duration
	sem       *semaphore.Weighted
}

// NewWebsiteFetcher creates a WebsiteFetcher. URLs on blocklist are treated
// as missing: a directory listing is not the restaurant's own copy.
func NewWebsiteFetcher(s PageScraper, blocklist *scrape.Blocklist, timeout time.Duration, sem *semaphore.Weighted) *WebsiteFetcher {
	return &WebsiteFetcher{scraper: s, blocklist: blocklist, timeout: timeout, sem: sem}
}

func (w *WebsiteFetcher) Source() model.SourceKind { return model.SourceWebsite }

// Fetch makes one bounded attempt to read the website.
func (w *WebsiteFetcher) Fetch(ctx context.Context, c model.CanonicalCandidate) (Document, error) {
	site := scrape.Normalize(c.Website)
	if site == "" {
		return Document{}, unavailable(w.Source(), "", "no website", nil)
	}
	if w.blocklist.Blocked(site) {
		return Document{}, unavailable(w.Source(), site, "directory url", scrape.ErrBlocklisted)
	}
	if w.scraper == nil {
		return Document{}, unavailable(w.Source(), site, "no scraper configured", nil)
	}

	res, err := fetchOnce(ctx, w.scraper, w.sem, w.timeout, site)
	if err != nil {
		return Document{}, unavailable(w.Source(), site, "", err)
	}
	text := strings.TrimSpace(res.Page.Content())
	if text == "" {
		return Document{}, unavailable(w.Source(), site, "empty page", nil)
	}
	url := res.Page.URL
	if url == "" {
		url = site
	}
	return Document{URL: url, Text: text}, nil
}
