package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAddress(t *testing.T) {
	tests := []struct {
		addr             string
		city, state, zip string
	}{
		{"123 1st Ave, Sandpoint, ID 83864, USA", "Sandpoint", "ID", "83864"},
		{"304 SE 28th Ave, Portland, OR 97214", "Portland", "OR", "97214"},
		{"Suite 2, 10 Main St, Burlington, vt 05401-1234, United States", "Burlington", "VT", "05401"},
		{"Boise, ID", "Boise", "ID", ""},
		{"somewhere without structure", "", "", ""},
		{"", "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			city, state, zip := parseAddress(tt.addr)
			assert.Equal(t, tt.city, city)
			assert.Equal(t, tt.state, state)
			assert.Equal(t, tt.zip, zip)
		})
	}
}

func TestNormalizeState(t *testing.T) {
	assert.Equal(t, "ID", normalizeState("Idaho"))
	assert.Equal(t, "NY", normalizeState(" new york "))
	assert.Equal(t, "OR", normalizeState("or"))
	assert.Empty(t, normalizeState("Atlantis"))
}
