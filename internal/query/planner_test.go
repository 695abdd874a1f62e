package query

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/sourdough-cli/internal/model"
)

var sandpoint = model.Target{City: "Sandpoint", State: "ID"}

func TestPlan_Order(t *testing.T) {
	qs := NewPlanner(nil, true).Plan(sandpoint)

	require.Len(t, qs, len(SourdoughTerms)+len(GenericTerms)+len(StyleTerms))
	assert.Equal(t, model.Query{
		ID:      "sourdough:sourdough-pizza",
		Text:    "sourdough pizza in Sandpoint, ID",
		Channel: model.ChannelSourdough,
	}, qs[0])
	assert.Equal(t, "naturally leavened pizza in Sandpoint, ID", qs[1].Text)
	assert.Equal(t, "wild yeast pizza in Sandpoint, ID", qs[2].Text)

	channels := []model.Channel{}
	for _, q := range qs {
		if len(channels) == 0 || channels[len(channels)-1] != q.Channel {
			channels = append(channels, q.Channel)
		}
	}
	assert.Equal(t, []model.Channel{model.ChannelSourdough, model.ChannelGeneric, model.ChannelStyle}, channels)
}

func TestPlan_Deterministic(t *testing.T) {
	areas := Areas{"Portland, OR": {Neighborhoods: []string{"Pearl District", "Alberta Arts"}, Zips: []string{"97209"}}}
	p := NewPlanner(areas, true)
	target := model.Target{City: "Portland", State: "OR"}
	assert.Equal(t, p.Plan(target), p.Plan(target))
}

func TestPlan_Areas(t *testing.T) {
	center := &model.LatLng{Lat: 45.52, Lng: -122.68}
	areas := Areas{"portland,  or": {
		Neighborhoods: []string{"Pearl District"},
		Zips:          []string{"97209"},
		Center:        center,
	}}
	target := model.Target{City: "Portland", State: "OR"}

	qs := NewPlanner(areas, true).Plan(target)
	base := len(SourdoughTerms) + len(GenericTerms) + len(StyleTerms)
	require.Len(t, qs, base+2*len(AreaTerms))

	area := qs[base:]
	assert.Equal(t, "area:pearl-district:sourdough-pizza", area[0].ID)
	assert.Equal(t, "sourdough pizza in Pearl District, Portland, OR", area[0].Text)
	assert.Equal(t, "pizza 97209", area[3].Text)
	for _, q := range qs {
		require.NotNil(t, q.Center)
		assert.Equal(t, *center, *q.Center)
	}

	noAreas := NewPlanner(areas, false).Plan(target)
	assert.Len(t, noAreas, base)
}

func TestPlan_UniqueIDs(t *testing.T) {
	areas := Areas{"Sandpoint, ID": {Neighborhoods: []string{"Downtown"}, Zips: []string{"83864"}}}
	seen := map[string]bool{}
	for _, q := range NewPlanner(areas, true).Plan(sandpoint) {
		assert.False(t, seen[q.ID], q.ID)
		seen[q.ID] = true
	}
}

func TestTruncate_KeepsSourdough(t *testing.T) {
	qs := NewPlanner(nil, true).Plan(sandpoint)

	got := Truncate(qs, 6)
	require.Len(t, got, 6)
	for i := range SourdoughTerms {
		assert.Equal(t, model.ChannelSourdough, got[i].Channel)
	}
	assert.Equal(t, "pizza in Sandpoint, ID", got[4].Text)

	got = Truncate(qs, 2)
	assert.Len(t, got, len(SourdoughTerms))
	for _, q := range got {
		assert.Equal(t, model.ChannelSourdough, q.Channel)
	}

	assert.Equal(t, qs, Truncate(qs, 0))
	assert.Equal(t, qs, Truncate(qs, 100))
}

func TestLoadAreas(t *testing.T) {
	path := filepath.Join(t.TempDir(), "areas.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
areas:
  "Portland, OR":
    neighborhoods: [Pearl District, " ", Alberta Arts]
    zips: ["97209", "97211"]
    center: {lat: 45.52, lng: -122.68}
  "Sandpoint, ID":
    zips: ["83864"]
`), 0o644))

	areas, err := LoadAreas(path)
	require.NoError(t, err)
	require.Len(t, areas, 2)

	pdx, ok := areas.Lookup(model.Target{City: "portland", State: "or"})
	require.True(t, ok)
	assert.Equal(t, []string{"Pearl District", "Alberta Arts"}, pdx.Neighborhoods)
	assert.Equal(t, []string{"97209", "97211"}, pdx.Zips)
	require.NotNil(t, pdx.Center)
	assert.InDelta(t, -122.68, pdx.Center.Lng, 0.0001)

	sp, ok := areas.Lookup(sandpoint)
	require.True(t, ok)
	assert.Nil(t, sp.Center)
}

func TestLoadAreas_Errors(t *testing.T) {
	_, err := LoadAreas(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("areas:\n  Portland:\n    zips: [\"97209\"]\n"), 0o644))
	_, err = LoadAreas(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "area key")
}
