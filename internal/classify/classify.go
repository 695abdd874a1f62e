// Package classify decides whether a candidate is a pizza establishment.
package classify

import (
	"strings"

	"github.com/sells-group/sourdough-cli/internal/config"
	"github.com/sells-group/sourdough-cli/internal/model"
	"github.com/sells-group/sourdough-cli/internal/textutil"
)

// Default term lists.
var (
	DefaultIncludeTerms = []string{
		"pizza", "pizzeria", "pizzas", "pie", "pies",
		"wood-fired", "neapolitan", "napoletana",
	}
	DefaultSecondaryTerms = []string{
		"trattoria", "ristorante", "osteria", "italian restaurant",
	}
	DefaultExcludeTerms = []string{
		"grocery", "supermarket", "gas station", "convenience store",
		"courier", "delivery service", "food distributor", "catering supply",
	}
	DefaultSoftExcludeTerms = []string{
		"bakery", "deli", "bagel", "donut", "cafe",
	}
)

// Classifier applies exclude terms before include terms. Hard excludes beat
// any pizza term; soft excludes lose to a pizza term anywhere, description
// included.
type Classifier struct {
	include   []string
	secondary []string
	exclude   []string
	soft      []string
}

// New builds a Classifier from cfg. Empty lists fall back to the defaults.
func New(cfg config.ClassifyConfig) *Classifier {
	return &Classifier{
		include:   normalize(orDefault(cfg.IncludeTerms, DefaultIncludeTerms)),
		secondary: normalize(orDefault(cfg.SecondaryTerms, DefaultSecondaryTerms)),
		exclude:   normalize(orDefault(cfg.ExcludeTerms, DefaultExcludeTerms)),
		soft:      normalize(orDefault(cfg.SoftExcludeTerms, DefaultSoftExcludeTerms)),
	}
}

// IsPizzaEstablishment reports whether c looks like a pizza establishment.
func (cl *Classifier) IsPizzaEstablishment(c *model.CanonicalCandidate) bool {
	ok, _ := cl.Classify(c)
	return ok
}

// Classify returns the decision and a short reason naming the term that
// decided it.
func (cl *Classifier) Classify(c *model.CanonicalCandidate) (bool, string) {
	identity := haystack(append([]string{c.Name, c.Category}, c.Types...)...)
	full := identity + haystack(c.Description)

	if t, ok := firstMatch(identity, cl.exclude); ok {
		return false, "excluded: " + t
	}
	if t, ok := firstMatch(identity, cl.soft); ok {
		if _, pizza := firstMatch(full, cl.include); !pizza {
			return false, "excluded: " + t
		}
	}
	if t, ok := firstMatch(full, cl.include); ok {
		return true, "included: " + t
	}
	if t, ok := firstMatch(full, cl.secondary); ok {
		return true, "secondary: " + t
	}
	return false, "no pizza signal"
}

// haystack renders parts as space-delimited folded words with a leading and
// trailing space so terms can be matched on word boundaries.
func haystack(parts ...string) string {
	var b strings.Builder
	b.WriteByte(' ')
	for _, p := range parts {
		for _, w := range textutil.Words(p) {
			b.WriteString(w)
			b.WriteByte(' ')
		}
	}
	return b.String()
}

func firstMatch(hay string, terms []string) (string, bool) {
	for _, t := range terms {
		if strings.Contains(hay, " "+t+" ") {
			return t, true
		}
	}
	return "", false
}

func normalize(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if w := textutil.Words(t); len(w) > 0 {
			out = append(out, strings.Join(w, " "))
		}
	}
	return out
}

func orDefault(v, def []string) []string {
	if len(v) == 0 {
		return def
	}
	return v
}
