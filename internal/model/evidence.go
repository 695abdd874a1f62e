package model

// SourceKind identifies an evidence source. The declaration order is the
// verification priority order.
type SourceKind string

const (
	SourceBusinessProfile SourceKind = "business_profile"
	SourceWebsite         SourceKind = "website"
	SourceSocialProfile   SourceKind = "social_profile"
)

// Label returns a human-readable name for provenance text.
func (s SourceKind) Label() string {
	switch s {
	case SourceBusinessProfile:
		return "business profile"
	case SourceWebsite:
		return "website"
	case SourceSocialProfile:
		return "social profile"
	default:
		return string(s)
	}
}

// Confidence summarizes how strongly evidence supports a sourdough claim.
type Confidence string

const (
	ConfidenceNone   Confidence = "none"
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Rank orders confidence levels; higher is stronger.
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceLow:
		return 1
	case ConfidenceMedium:
		return 2
	case ConfidenceHigh:
		return 3
	default:
		return 0
	}
}

// KeywordHit is one positive keyword found in a text.
type KeywordHit struct {
	Term   string  `json:"term"`
	Weight float64 `json:"weight"`
	Count  int     `json:"count"`
}

// EvidenceResult is the output of one evidence source for one candidate.
type EvidenceResult struct {
	Source   SourceKind   `json:"source"`
	URL      string       `json:"url,omitempty"`
	Snippet  string       `json:"snippet,omitempty"`
	Keywords []KeywordHit `json:"keywords,omitempty"`
	Vetoed   bool         `json:"vetoed,omitempty"`
	VetoTerm string       `json:"veto_term,omitempty"`
	Fetched  bool         `json:"fetched"`
	Err      string       `json:"error,omitempty"`
}

// Contributed reports whether the source produced usable positive evidence.
func (e EvidenceResult) Contributed() bool {
	return e.Fetched && !e.Vetoed && len(e.Keywords) > 0
}

// Verdict aggregates all evidence gathered for one candidate.
type Verdict struct {
	Verified        bool             `json:"verified"`
	Sources         []SourceKind     `json:"sources"`
	Keywords        []string         `json:"keywords"`
	Confidence      Confidence       `json:"confidence"`
	Score           float64          `json:"score"`
	NormalizedScore float64          `json:"normalized_score"`
	Vetoed          bool             `json:"vetoed,omitempty"`
	Evidence        []EvidenceResult `json:"evidence"`
}
