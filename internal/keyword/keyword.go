// Package keyword matches weighted sourdough phrases and veto phrases in
// free text.
package keyword

import (
	"regexp"
	"strings"

	"github.com/sells-group/sourdough-cli/internal/model"
)

// DefaultMaxHitsPerTerm caps how many occurrences of one term count toward a
// score, so a page that repeats "sourdough" ten times is not worth more than
// three mentions.
const DefaultMaxHitsPerTerm = 3

// Term is a weighted phrase.
type Term struct {
	Phrase string
	Weight float64
}

// CoreTerms are always matched.
var CoreTerms = []Term{
	{Phrase: "sourdough", Weight: 5},
	{Phrase: "naturally leavened", Weight: 5},
	{Phrase: "wild yeast", Weight: 3},
	{Phrase: "naturally fermented", Weight: 3},
}

// ExtendedTerms are weaker signals enabled by default.
var ExtendedTerms = []Term{
	{Phrase: "levain", Weight: 3},
	{Phrase: "fermented dough", Weight: 2},
	{Phrase: "long fermentation", Weight: 2},
	{Phrase: "starter", Weight: 2},
}

// NegativeTerms veto a source outright.
var NegativeTerms = []string{
	"not sourdough",
	"no sourdough",
	"commercial yeast",
	"isn't sourdough",
	"not a sourdough",
}

type compiledTerm struct {
	Term
	re *regexp.Regexp
}

type compiledVeto struct {
	phrase string
	re     *regexp.Regexp
}

// Matcher finds weighted terms and veto phrases. It is safe for concurrent
// use.
type Matcher struct {
	terms   []compiledTerm
	vetoes  []compiledVeto
	maxHits int
	maxW    float64
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithMaxHitsPerTerm overrides DefaultMaxHitsPerTerm. Values < 1 are ignored.
func WithMaxHitsPerTerm(n int) Option {
	return func(m *Matcher) {
		if n > 0 {
			m.maxHits = n
		}
	}
}

// NewMatcher compiles the given terms and veto phrases. Terms with an empty
// phrase or a non-positive weight are skipped; duplicate phrases keep the
// first weight seen.
func NewMatcher(terms []Term, vetoes []string, opts ...Option) *Matcher {
	m := &Matcher{maxHits: DefaultMaxHitsPerTerm}
	for _, o := range opts {
		o(m)
	}

	seen := make(map[string]bool, len(terms))
	for _, t := range terms {
		p := normalizePhrase(t.Phrase)
		if p == "" || t.Weight <= 0 || seen[p] {
			continue
		}
		seen[p] = true
		m.terms = append(m.terms, compiledTerm{
			Term: Term{Phrase: p, Weight: t.Weight},
			re:   compile(p),
		})
		if t.Weight > m.maxW {
			m.maxW = t.Weight
		}
	}
	for _, v := range vetoes {
		p := normalizePhrase(v)
		if p == "" {
			continue
		}
		m.vetoes = append(m.vetoes, compiledVeto{phrase: p, re: compile(p)})
	}
	return m
}

// Default returns a Matcher with the core terms, the extended terms when
// extended is true, and the default veto phrases.
func Default(extended bool, opts ...Option) *Matcher {
	terms := append([]Term(nil), CoreTerms...)
	if extended {
		terms = append(terms, ExtendedTerms...)
	}
	return NewMatcher(terms, NegativeTerms, opts...)
}

// Match returns one hit per term found in text, in term order. Counts are
// capped at the matcher's per-term limit.
func (m *Matcher) Match(text string) []model.KeywordHit {
	if text == "" {
		return nil
	}
	var hits []model.KeywordHit
	for _, t := range m.terms {
		locs := t.re.FindAllStringIndex(text, m.maxHits)
		if len(locs) == 0 {
			continue
		}
		hits = append(hits, model.KeywordHit{
			Term:   t.Phrase,
			Weight: t.Weight,
			Count:  len(locs),
		})
	}
	return hits
}

// FirstIndex returns the byte offset of the earliest term occurrence in
// text, or -1.
func (m *Matcher) FirstIndex(text string) int {
	first := -1
	for _, t := range m.terms {
		loc := t.re.FindStringIndex(text)
		if loc != nil && (first < 0 || loc[0] < first) {
			first = loc[0]
		}
	}
	return first
}

// Veto reports the first veto phrase present in text.
func (m *Matcher) Veto(text string) (string, bool) {
	if text == "" {
		return "", false
	}
	for _, v := range m.vetoes {
		if v.re.MatchString(text) {
			return v.phrase, true
		}
	}
	return "", false
}

// Score sums weight times count over hits.
func Score(hits []model.KeywordHit) float64 {
	var s float64
	for _, h := range hits {
		s += h.Weight * float64(h.Count)
	}
	return s
}

// MaxWeight returns the largest term weight, or 0 for an empty matcher.
func (m *Matcher) MaxWeight() float64 {
	return m.maxW
}

// Terms returns a copy of the compiled terms.
func (m *Matcher) Terms() []Term {
	out := make([]Term, len(m.terms))
	for i, t := range m.terms {
		out[i] = t.Term
	}
	return out
}

func normalizePhrase(p string) string {
	return strings.Join(strings.Fields(strings.ToLower(p)), " ")
}

// compile builds a case-insensitive, word-bounded pattern. Words of a
// multi-word phrase may be separated by whitespace or hyphens, and
// apostrophes match both straight and curly forms.
func compile(phrase string) *regexp.Regexp {
	words := strings.Fields(phrase)
	for i, w := range words {
		w = regexp.QuoteMeta(w)
		w = strings.ReplaceAll(w, "'", "['’]")
		words[i] = w
	}
	return regexp.MustCompile(`(?i)\b` + strings.Join(words, `[\s\-]+`) + `\b`)
}
