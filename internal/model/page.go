package model

// CrawledPage represents a page fetched during evidence collection.
type CrawledPage struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Text        string `json:"text"`
	StatusCode  int    `json:"status_code"`
}

// Content joins title, meta description and body text.
func (p CrawledPage) Content() string {
	out := p.Title
	for _, s := range []string{p.Description, p.Text} {
		if s == "" {
			continue
		}
		if out != "" {
			out += "\n"
		}
		out += s
	}
	return out
}
