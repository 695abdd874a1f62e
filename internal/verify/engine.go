// Package verify decides whether a candidate serves sourdough pizza by
// matching weighted keywords across its evidence sources.
package verify

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/sells-group/sourdough-cli/internal/config"
	"github.com/sells-group/sourdough-cli/internal/evidence"
	"github.com/sells-group/sourdough-cli/internal/keyword"
	"github.com/sells-group/sourdough-cli/internal/model"
)

const (
	defaultSnippetChars = 400
	minSnippetChars     = 40
)

// Engine consults evidence fetchers in priority order and aggregates their
// keyword hits into a verdict.
type Engine struct {
	matcher      *keyword.Matcher
	fetchers     []evidence.Fetcher
	minScore     float64
	collectAll   bool
	snippetChars int
}

// New creates an Engine. fetchers are consulted in the order given.
func New(cfg config.VerifyConfig, matcher *keyword.Matcher, fetchers []evidence.Fetcher) *Engine {
	snippet := cfg.SnippetChars
	switch {
	case snippet <= 0:
		snippet = defaultSnippetChars
	case snippet < minSnippetChars:
		snippet = minSnippetChars
	}
	return &Engine{
		matcher:      matcher,
		fetchers:     fetchers,
		minScore:     cfg.MinScore,
		collectAll:   cfg.CollectAllSources,
		snippetChars: snippet,
	}
}

// MatcherFromConfig builds the keyword matcher. Configured keywords replace
// the built-in lists; otherwise the core list is used, plus the extended
// list when enabled.
func MatcherFromConfig(cfg config.VerifyConfig) *keyword.Matcher {
	opts := []keyword.Option{keyword.WithMaxHitsPerTerm(cfg.MaxHitsPerTerm)}
	vetoes := keyword.NegativeTerms
	if len(cfg.NegativeKeywords) > 0 {
		vetoes = cfg.NegativeKeywords
	}
	if len(cfg.Keywords) == 0 {
		terms := append([]keyword.Term(nil), keyword.CoreTerms...)
		if cfg.ExtendedKeywords {
			terms = append(terms, keyword.ExtendedTerms...)
		}
		return keyword.NewMatcher(terms, vetoes, opts...)
	}
	terms := make([]keyword.Term, 0, len(cfg.Keywords))
	for _, k := range cfg.Keywords {
		terms = append(terms, keyword.Term{Phrase: k.Term, Weight: k.Weight})
	}
	return keyword.NewMatcher(terms, vetoes, opts...)
}

// Verify gathers evidence for c and returns its verdict. Unavailable sources
// are recorded and skipped; Verify never fails.
func (e *Engine) Verify(ctx context.Context, c model.CanonicalCandidate) model.Verdict {
	log := zap.L().With(zap.String("candidate", c.Name), zap.String("city", c.City))

	var results []model.EvidenceResult
	for _, f := range e.fetchers {
		if !e.collectAll && e.aggregate(results).Verified {
			break
		}
		if ctx.Err() != nil {
			break
		}
		results = append(results, e.consult(ctx, f, c, log))
	}
	return e.aggregate(results)
}

func (e *Engine) consult(ctx context.Context, f evidence.Fetcher, c model.CanonicalCandidate, log *zap.Logger) model.EvidenceResult {
	res := model.EvidenceResult{Source: f.Source()}

	doc, err := f.Fetch(ctx, c)
	if err != nil {
		var fu *evidence.FetchUnavailable
		if errors.As(err, &fu) {
			res.URL = fu.URL
		}
		res.Err = err.Error()
		log.Debug("verify: source unavailable",
			zap.String("source", string(f.Source())),
			zap.Error(err),
		)
		return res
	}

	text := strings.Join(strings.Fields(doc.Text), " ")
	res.Fetched = true
	res.URL = doc.URL
	res.Keywords = e.matcher.Match(text)
	if term, ok := e.matcher.Veto(text); ok {
		res.Vetoed = true
		res.VetoTerm = term
	}
	res.Snippet = snippet(text, e.matcher.FirstIndex(text), e.snippetChars)
	return res
}

// aggregate derives the verdict from the evidence gathered so far.
func (e *Engine) aggregate(results []model.EvidenceResult) model.Verdict {
	v := model.Verdict{
		Confidence: model.ConfidenceNone,
		Evidence:   results,
		Sources:    []model.SourceKind{},
		Keywords:   []string{},
	}

	seen := map[string]bool{}
	var contributing []model.EvidenceResult
	for _, r := range results {
		if r.Vetoed {
			v.Vetoed = true
			continue
		}
		if !r.Contributed() {
			continue
		}
		contributing = append(contributing, r)
		v.Sources = append(v.Sources, r.Source)
		v.Score += keyword.Score(r.Keywords)
		for _, h := range r.Keywords {
			if !seen[h.Term] {
				seen[h.Term] = true
				v.Keywords = append(v.Keywords, h.Term)
			}
		}
	}

	switch {
	case len(contributing) >= 2:
		v.Confidence = model.ConfidenceHigh
	case len(contributing) == 1 && len(contributing[0].Keywords) >= 2:
		v.Confidence = model.ConfidenceMedium
	case len(contributing) == 1:
		v.Confidence = model.ConfidenceLow
	}

	if mw := e.matcher.MaxWeight(); mw > 0 {
		v.NormalizedScore = v.Score / mw
	}
	v.Verified = len(v.Keywords) > 0 && v.NormalizedScore >= e.minScore && !v.Vetoed
	return v
}

// snippet returns at most n bytes of text centered on idx, cut at rune
// boundaries.
func snippet(text string, idx, n int) string {
	if len(text) <= n {
		return text
	}
	if idx < 0 {
		idx = 0
	}
	start := idx - n/2
	if start < 0 {
		start = 0
	}
	end := start + n
	if end > len(text) {
		end = len(text)
		start = end - n
	}
	for end > start && end < len(text) && !utf8.RuneStart(text[end]) {
		end--
	}
	for start < end && !utf8.RuneStart(text[start]) {
		start++
	}
	out := strings.TrimSpace(text[start:end])
	if start > 0 {
		out = "..." + out
	}
	if end < len(text) {
		out += "..."
	}
	return out
}
