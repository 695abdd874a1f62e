package verify

import (
	"fmt"
	"strings"

	"github.com/sells-group/sourdough-cli/internal/model"
)

// Provenance renders the verification record stored with an establishment:
// confidence, matched keywords and where each was found.
func Provenance(v model.Verdict) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Sourdough verification: %s confidence (score %.1f).", v.Confidence, v.Score)
	if len(v.Keywords) > 0 {
		fmt.Fprintf(&b, "\nKeywords: %s.", strings.Join(v.Keywords, ", "))
	}
	for _, r := range v.Evidence {
		if !r.Contributed() {
			continue
		}
		label := r.Source.Label()
		b.WriteString("\n")
		b.WriteString(strings.ToUpper(label[:1]) + label[1:])
		if r.URL != "" {
			fmt.Fprintf(&b, " (%s)", r.URL)
		}
		terms := make([]string, len(r.Keywords))
		for i, h := range r.Keywords {
			terms[i] = h.Term
		}
		fmt.Fprintf(&b, ": %s", strings.Join(terms, ", "))
		if r.Snippet != "" {
			fmt.Fprintf(&b, " - %q", r.Snippet)
		}
	}
	return b.String()
}
