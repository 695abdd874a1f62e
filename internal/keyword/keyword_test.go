package keyword

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatch_CoreTerms(t *testing.T) {
	m := Default(false)

	hits := m.Match("Our Sourdough crust is naturally-leavened for 48 hours.")
	require.Len(t, hits, 2)
	assert.Equal(t, "sourdough", hits[0].Term)
	assert.Equal(t, 5.0, hits[0].Weight)
	assert.Equal(t, 1, hits[0].Count)
	assert.Equal(t, "naturally leavened", hits[1].Term)
}

func TestMatch_WordBoundary(t *testing.T) {
	m := Default(true)

	assert.Empty(t, m.Match("We use a starterkit and sourdoughy bread"))
	assert.Len(t, m.Match("Pizza starter: garlic knots"), 1)
}

func TestMatch_CountCapped(t *testing.T) {
	m := Default(false)

	hits := m.Match("sourdough sourdough sourdough sourdough sourdough")
	require.Len(t, hits, 1)
	assert.Equal(t, DefaultMaxHitsPerTerm, hits[0].Count)

	m = Default(false, WithMaxHitsPerTerm(1))
	hits = m.Match("sourdough sourdough")
	require.Len(t, hits, 1)
	assert.Equal(t, 1, hits[0].Count)
}

func TestMatch_ExtendedTermsOptional(t *testing.T) {
	text := "Dough built on levain with a long fermentation"

	assert.Empty(t, Default(false).Match(text))

	hits := Default(true).Match(text)
	require.Len(t, hits, 2)
	assert.Equal(t, "levain", hits[0].Term)
	assert.Equal(t, "long fermentation", hits[1].Term)
}

func TestMatch_Empty(t *testing.T) {
	assert.Nil(t, Default(true).Match(""))
}

func TestVeto(t *testing.T) {
	m := Default(true)

	tests := []struct {
		name string
		text string
		want string
		ok   bool
	}{
		{"plain", "Note: our crust is NOT sourdough.", "not sourdough", true},
		{"curly apostrophe", "It isn’t sourdough, but it's great", "isn't sourdough", true},
		{"commercial yeast", "made with commercial yeast", "commercial yeast", true},
		{"none", "100% sourdough since 1998", "", false},
		{"empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := m.Veto(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScore(t *testing.T) {
	m := Default(true)

	hits := m.Match("sourdough sourdough with wild yeast")
	assert.InDelta(t, 13.0, Score(hits), 0.001)
	assert.Zero(t, Score(nil))
}

func TestMaxWeight(t *testing.T) {
	assert.Equal(t, 5.0, Default(true).MaxWeight())
	assert.Zero(t, NewMatcher(nil, nil).MaxWeight())
}

func TestNewMatcher_SkipsInvalidAndDuplicates(t *testing.T) {
	m := NewMatcher([]Term{
		{Phrase: "  Biga ", Weight: 1},
		{Phrase: "biga", Weight: 4},
		{Phrase: "", Weight: 2},
		{Phrase: "poolish", Weight: 0},
	}, nil)

	terms := m.Terms()
	require.Len(t, terms, 1)
	assert.Equal(t, Term{Phrase: "biga", Weight: 1}, terms[0])
}

func TestFirstIndex(t *testing.T) {
	m := Default(true)

	assert.Equal(t, 4, m.FirstIndex("our wild yeast sourdough"))
	assert.Equal(t, -1, m.FirstIndex("thin crust"))
}
