package scrape

import (
	"html"
	"regexp"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	commentRe    = regexp.MustCompile(`(?s)<!--.*?-->`)
	headRe       = regexp.MustCompile(`(?is)<head\b[^>]*>.*?</head\s*>`)
	titleRe      = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	metaRe       = regexp.MustCompile(`(?is)<meta\s[^>]*>`)
	attrRe       = regexp.MustCompile(`(?is)([a-z:-]+)\s*=\s*("[^"]*"|'[^']*')`)
	blockTagRe   = regexp.MustCompile(`(?i)</?(p|div|br|li|h[1-6]|section|article|tr|td|header|main)\b[^>]*>`)
	spaceRe      = regexp.MustCompile(`[ \t\r\f\v\x{00A0}]+`)
	blankLinesRe = regexp.MustCompile(`\n\s*\n+`)
)

// hiddenBlocks are elements whose content is never visible copy.
var hiddenBlocks = func() []*regexp.Regexp {
	var out []*regexp.Regexp
	for _, tag := range []string{"script", "style", "noscript", "svg", "template", "nav", "footer"} {
		out = append(out, regexp.MustCompile(`(?is)<`+tag+`\b[^>]*>.*?</`+tag+`\s*>`))
	}
	return out
}()

var (
	strictOnce   sync.Once
	strictPolicy *bluemonday.Policy
)

func policy() *bluemonday.Policy {
	strictOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()
	})
	return strictPolicy
}

// ExtractText reduces an HTML document to its title, meta description and
// visible body text. Scripts, styles, navigation, footers and comments are
// dropped; entities are decoded and whitespace collapsed.
func ExtractText(doc string) (title, description, text string) {
	if m := titleRe.FindStringSubmatch(doc); len(m) > 1 {
		title = cleanInline(m[1])
	}
	description = metaDescription(doc)

	body := commentRe.ReplaceAllString(doc, " ")
	for _, re := range hiddenBlocks {
		body = re.ReplaceAllString(body, " ")
	}
	body = headRe.ReplaceAllString(body, " ")
	body = blockTagRe.ReplaceAllString(body, "\n")
	body = policy().Sanitize(body)
	body = html.UnescapeString(body)

	return title, description, collapse(body)
}

// metaDescription returns the content of <meta name="description"> or, when
// absent, og:description.
func metaDescription(doc string) string {
	var og string
	for _, tag := range metaRe.FindAllString(doc, -1) {
		attrs := map[string]string{}
		for _, a := range attrRe.FindAllStringSubmatch(tag, -1) {
			attrs[strings.ToLower(a[1])] = strings.Trim(a[2], `"'`)
		}
		switch strings.ToLower(attrs["name"] + attrs["property"]) {
		case "description":
			return cleanInline(attrs["content"])
		case "og:description":
			if og == "" {
				og = cleanInline(attrs["content"])
			}
		}
	}
	return og
}

func cleanInline(s string) string {
	s = html.UnescapeString(policy().Sanitize(s))
	return strings.Join(strings.Fields(s), " ")
}

func collapse(s string) string {
	s = spaceRe.ReplaceAllString(s, " ")
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	s = strings.Join(lines, "\n")
	s = blankLinesRe.ReplaceAllString(s, "\n")
	return strings.TrimSpace(s)
}
