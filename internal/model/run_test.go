package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTarget(t *testing.T) {
	tests := []struct {
		in      string
		want    Target
		wantErr bool
	}{
		{in: "Sandpoint, ID", want: Target{City: "Sandpoint", State: "ID"}},
		{in: "Winston-Salem,nc", want: Target{City: "Winston-Salem", State: "NC"}},
		{in: "Washington, D.C., DC", want: Target{City: "Washington, D.C.", State: "DC"}},
		{in: "Portland", wantErr: true},
		{in: ", OR", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTarget(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got.City+", "+got.State, got.String())
		})
	}
}

func TestConfidenceRank(t *testing.T) {
	assert.Less(t, ConfidenceNone.Rank(), ConfidenceLow.Rank())
	assert.Less(t, ConfidenceLow.Rank(), ConfidenceMedium.Rank())
	assert.Less(t, ConfidenceMedium.Rank(), ConfidenceHigh.Rank())
}

func TestEvidenceContributed(t *testing.T) {
	hit := []KeywordHit{{Term: "sourdough", Weight: 5, Count: 1}}
	assert.True(t, EvidenceResult{Fetched: true, Keywords: hit}.Contributed())
	assert.False(t, EvidenceResult{Fetched: true, Keywords: hit, Vetoed: true}.Contributed())
	assert.False(t, EvidenceResult{Fetched: false, Keywords: hit}.Contributed())
	assert.False(t, EvidenceResult{Fetched: true}.Contributed())
}

func TestCrawledPageContent(t *testing.T) {
	p := CrawledPage{Title: "Forge Pizza", Description: "Sourdough pies", Text: "Menu"}
	assert.Equal(t, "Forge Pizza\nSourdough pies\nMenu", p.Content())
	assert.Equal(t, "Menu", CrawledPage{Text: "Menu"}.Content())
}
