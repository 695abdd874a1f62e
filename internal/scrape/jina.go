package scrape

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/sourdough-cli/internal/model"
	"github.com/sells-group/sourdough-cli/internal/resilience"
	"github.com/sells-group/sourdough-cli/pkg/jina"
)

// JinaScraper reads pages through the Jina reader when a direct fetch
// fails. A breaker skips the reader after repeated failures.
type JinaScraper struct {
	client  jina.Client
	breaker *resilience.Breaker
}

// NewJinaScraper wraps a Jina client. breaker may be shared across
// scrapers; nil gets a private one.
func NewJinaScraper(client jina.Client, breaker *resilience.Breaker) *JinaScraper {
	if breaker == nil {
		breaker = resilience.NewBreaker(3, 0, nil)
	}
	return &JinaScraper{client: client, breaker: breaker}
}

func (j *JinaScraper) Name() string { return "jina" }

// Supports returns false while the breaker is open.
func (j *JinaScraper) Supports(_ string) bool {
	return j.breaker.State() != resilience.CircuitOpen
}

// Scrape reads a URL through Jina and rejects unusable responses.
func (j *JinaScraper) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	return resilience.Call(ctx, j.breaker, func(ctx context.Context) (*Result, error) {
		resp, err := j.client.Read(ctx, targetURL)
		if err != nil {
			return nil, err
		}
		if unusable(resp) {
			return nil, eris.Errorf("jina: unusable response for %s", targetURL)
		}
		return &Result{
			Page: model.CrawledPage{
				URL:         firstNonEmpty(resp.Data.URL, targetURL),
				Title:       resp.Data.Title,
				Description: resp.Data.Description,
				Text:        strings.TrimSpace(resp.Data.Content),
				StatusCode:  200,
			},
			Source: "jina",
		}, nil
	})
}

var jinaChallengeMarkers = []string{
	"checking your browser",
	"just a moment",
	"access denied",
	"enable javascript",
	"captcha",
}

// unusable reports whether a reader response is empty or a challenge page.
func unusable(resp *jina.ReadResponse) bool {
	if resp == nil {
		return true
	}
	if resp.Code != 0 && resp.Code != 200 {
		return true
	}
	content := strings.TrimSpace(resp.Data.Content)
	if len(content) < minTextChars {
		return true
	}
	if len(content) < 1000 {
		lower := strings.ToLower(content)
		for _, m := range jinaChallengeMarkers {
			if strings.Contains(lower, m) {
				return true
			}
		}
	}
	return false
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
