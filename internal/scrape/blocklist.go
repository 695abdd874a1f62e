package scrape

import (
	"net/url"
	"strings"
)

// Blocklist matches aggregator and directory hosts whose pages describe many
// restaurants rather than the candidate's own copy.
type Blocklist struct {
	domains []string
}

// NewBlocklist creates a Blocklist from bare domains ("yelp.com"). A
// domain also matches all of its subdomains.
func NewBlocklist(domains []string) *Blocklist {
	b := &Blocklist{}
	for _, d := range domains {
		d = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(d)), "www.")
		if d != "" {
			b.domains = append(b.domains, d)
		}
	}
	return b
}

// Blocked reports whether rawURL is on a listed host. Unparseable URLs are
// blocked.
func (b *Blocklist) Blocked(rawURL string) bool {
	host := Host(rawURL)
	if host == "" {
		return true
	}
	if b == nil {
		return false
	}
	for _, d := range b.domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// Host returns the lowercased host of rawURL without a leading "www.".
// A missing scheme is treated as https.
func Host(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ""
	}
	if !strings.Contains(rawURL, "://") {
		rawURL = "https://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// Normalize adds a missing https scheme.
func Normalize(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL != "" && !strings.Contains(rawURL, "://") {
		return "https://" + rawURL
	}
	return rawURL
}
