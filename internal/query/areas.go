package query

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/sourdough-cli/internal/model"
)

// Area lists the subdivisions searched for a dense city.
type Area struct {
	Neighborhoods []string      `yaml:"neighborhoods"`
	Zips          []string      `yaml:"zips"`
	Center        *model.LatLng `yaml:"center,omitempty"`
}

// Areas maps "City, ST" to its subdivisions.
type Areas map[string]Area

// Lookup finds the area for target, ignoring case and spacing.
func (a Areas) Lookup(target model.Target) (Area, bool) {
	want := areaKey(target.String())
	for k, v := range a {
		if areaKey(k) == want {
			return v, true
		}
	}
	return Area{}, false
}

// LoadAreas reads an areas file:
//
//	areas:
//	  "Portland, OR":
//	    neighborhoods: [Pearl District, Alberta Arts]
//	    zips: ["97209"]
//	    center: {lat: 45.52, lng: -122.68}
func LoadAreas(path string) (Areas, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "query: read areas %s", path)
	}

	var wrapper struct {
		Areas Areas `yaml:"areas"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "query: parse areas")
	}
	for k, v := range wrapper.Areas {
		if _, err := model.ParseTarget(k); err != nil {
			return nil, eris.Wrapf(err, "query: area key %q", k)
		}
		v.Neighborhoods = compact(v.Neighborhoods)
		v.Zips = compact(v.Zips)
		wrapper.Areas[k] = v
	}
	if wrapper.Areas == nil {
		wrapper.Areas = Areas{}
	}
	return wrapper.Areas, nil
}

func areaKey(s string) string {
	t, err := model.ParseTarget(s)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(s))
	}
	return strings.ToLower(t.City) + "," + strings.ToLower(t.State)
}

func compact(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
