package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/sourdough-cli/internal/config"
	"github.com/sells-group/sourdough-cli/internal/model"
)

func TestClassify(t *testing.T) {
	cl := New(config.ClassifyConfig{})

	tests := []struct {
		name   string
		c      model.CanonicalCandidate
		want   bool
		reason string
	}{
		{
			name:   "pizza in name",
			c:      model.CanonicalCandidate{Name: "The Forge Artisan Pizza"},
			want:   true,
			reason: "included: pizza",
		},
		{
			name:   "grocery beats pizza",
			c:      model.CanonicalCandidate{Name: "Joe's Grocery & Pizza Slice"},
			want:   false,
			reason: "excluded: grocery",
		},
		{
			name:   "exclusion precedence",
			c:      model.CanonicalCandidate{Name: "Pizza & Grocery Mart"},
			want:   false,
			reason: "excluded: grocery",
		},
		{
			name:   "gas station type",
			c:      model.CanonicalCandidate{Name: "Quick Stop Pizza", Types: []string{"gas_station"}},
			want:   false,
			reason: "excluded: gas station",
		},
		{
			name:   "bakery without pizza",
			c:      model.CanonicalCandidate{Name: "Sunrise Bakery", Description: "Sourdough loaves and croissants"},
			want:   false,
			reason: "excluded: bakery",
		},
		{
			name: "bakery with pizza in description",
			c: model.CanonicalCandidate{
				Name:        "Tartine Bakery",
				Category:    "Bakery",
				Description: "Sourdough bakery serving wood-fired pizza every Friday night.",
			},
			want:   true,
			reason: "included: pizza",
		},
		{
			name:   "grocery with pizza in description",
			c:      model.CanonicalCandidate{Name: "Corner Grocery", Description: "Hot pizza by the slice"},
			want:   false,
			reason: "excluded: grocery",
		},
		{
			name:   "bakery with pizza in category",
			c:      model.CanonicalCandidate{Name: "Sunrise Bakery", Category: "Pizza restaurant"},
			want:   true,
			reason: "included: pizza",
		},
		{
			name:   "wood-fired hyphenated",
			c:      model.CanonicalCandidate{Name: "Ember", Description: "Wood-fired oven in the Pearl"},
			want:   true,
			reason: "included: wood fired",
		},
		{
			name:   "accented neapolitan",
			c:      model.CanonicalCandidate{Name: "Pizzería Napoletana"},
			want:   true,
			reason: "included: pizzeria",
		},
		{
			name:   "secondary italian signal",
			c:      model.CanonicalCandidate{Name: "Osteria Lupo", Category: "Italian restaurant"},
			want:   true,
			reason: "secondary: osteria",
		},
		{
			name:   "word boundary",
			c:      model.CanonicalCandidate{Name: "Piedmont Steakhouse"},
			want:   false,
			reason: "no pizza signal",
		},
		{
			name:   "no signal",
			c:      model.CanonicalCandidate{Name: "Taco Town", Category: "Mexican restaurant"},
			want:   false,
			reason: "no pizza signal",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := cl.Classify(&tt.c)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.reason, reason)
			assert.Equal(t, tt.want, cl.IsPizzaEstablishment(&tt.c))
		})
	}
}

func TestNew_CustomTerms(t *testing.T) {
	cl := New(config.ClassifyConfig{
		IncludeTerms: []string{"flatbread"},
		ExcludeTerms: []string{"Liquor Store"},
	})

	ok, _ := cl.Classify(&model.CanonicalCandidate{Name: "Flatbread Co"})
	assert.True(t, ok)

	ok, reason := cl.Classify(&model.CanonicalCandidate{Name: "Flatbread Co", Types: []string{"liquor_store"}})
	assert.False(t, ok)
	assert.Equal(t, "excluded: liquor store", reason)

	// Defaults were replaced, not extended.
	ok, _ = cl.Classify(&model.CanonicalCandidate{Name: "Joe's Pizza"})
	assert.False(t, ok)
}
