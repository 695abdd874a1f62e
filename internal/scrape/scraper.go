// Package scrape fetches restaurant and social-profile pages and reduces
// them to plain text.
package scrape

import (
	"context"

	"github.com/sells-group/sourdough-cli/internal/model"
)

// Result holds a scraped page with its source.
type Result struct {
	Page   model.CrawledPage
	Source string // "local_http" or "jina"
}

// Scraper fetches a single URL and returns its content. Implementations make
// exactly one attempt.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*Result, error)
	Name() string
	Supports(url string) bool
}
