package evidence

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/sells-group/sourdough-cli/internal/model"
	"github.com/sells-group/sourdough-cli/internal/textutil"
)

// maxUsernameLen matches the common social-network handle limit.
const maxUsernameLen = 30

// SocialFetcher guesses social profile handles from the establishment name
// and reads the first profile page that loads. There is no way to confirm a
// guessed handle belongs to the candidate.
type SocialFetcher struct {
	scraper    PageScraper
	templates  []string
	maxGuesses int
	timeout    time.Duration
	sem        *semaphore.Weighted
}

// NewSocialFetcher creates a SocialFetcher. Each template holds one %s for
// the handle. maxGuesses < 1 means 3.
func NewSocialFetcher(s PageScraper, templates []string, maxGuesses int, timeout time.Duration, sem *semaphore.Weighted) *SocialFetcher {
	if maxGuesses < 1 {
		maxGuesses = 3
	}
	return &SocialFetcher{
		scraper:    s,
		templates:  templates,
		maxGuesses: maxGuesses,
		timeout:    timeout,
		sem:        sem,
	}
}

func (f *SocialFetcher) Source() model.SourceKind { return model.SourceSocialProfile }

// Fetch tries guessed profile URLs in order and stops at the first success.
func (f *SocialFetcher) Fetch(ctx context.Context, c model.CanonicalCandidate) (Document, error) {
	guesses := Usernames(c.Name, c.City)
	if len(guesses) == 0 {
		return Document{}, unavailable(f.Source(), "", "no username guesses", nil)
	}
	if len(guesses) > f.maxGuesses {
		guesses = guesses[:f.maxGuesses]
	}

	var lastErr error
	var lastURL string
	for _, handle := range guesses {
		for _, tmpl := range f.templates {
			if err := ctx.Err(); err != nil {
				return Document{}, unavailable(f.Source(), lastURL, "cancelled", err)
			}
			url := fmt.Sprintf(tmpl, handle)
			res, err := fetchOnce(ctx, f.scraper, f.sem, f.timeout, url)
			if err != nil {
				lastErr, lastURL = err, url
				continue
			}
			text := strings.TrimSpace(res.Page.Content())
			if text == "" {
				lastErr, lastURL = nil, url
				continue
			}
			return Document{URL: url, Text: text}, nil
		}
	}
	return Document{}, unavailable(f.Source(), lastURL, "no profile found", lastErr)
}

// Usernames returns ordered handle guesses for an establishment: all words
// joined, underscored, without a leading "the", with a "pizza" suffix, and
// with the city appended. Duplicates and over-long handles are dropped.
func Usernames(name, city string) []string {
	words := textutil.Words(name)
	if len(words) == 0 {
		return nil
	}
	core := words
	if len(core) > 1 && core[0] == "the" {
		core = core[1:]
	}

	var out []string
	seen := map[string]bool{}
	add := func(h string) {
		if h == "" || len(h) > maxUsernameLen || seen[h] {
			return
		}
		seen[h] = true
		out = append(out, h)
	}

	joined := strings.Join(core, "")
	add(strings.Join(words, ""))
	add(strings.Join(words, "_"))
	add(joined)
	if core[len(core)-1] != "pizza" {
		add(joined + "pizza")
	}
	if c := textutil.Compact(city); c != "" {
		add(joined + c)
	}
	return out
}
