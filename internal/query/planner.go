// Package query plans the search submissions for one target city.
package query

import (
	"fmt"
	"strings"

	"github.com/sells-group/sourdough-cli/internal/model"
	"github.com/sells-group/sourdough-cli/internal/textutil"
)

// Terms per channel, in plan order. Direct sourdough terms always come
// first.
var (
	SourdoughTerms = []string{
		"sourdough pizza",
		"naturally leavened pizza",
		"wild yeast pizza",
		"sourdough crust pizza",
	}
	GenericTerms = []string{
		"pizza",
		"pizzeria",
		"pizza restaurant",
	}
	StyleTerms = []string{
		"wood fired pizza",
		"neapolitan pizza",
		"artisan pizza",
		"new york style pizza",
	}
	// AreaTerms are repeated for every neighborhood and zip code.
	AreaTerms = []string{
		"sourdough pizza",
		"pizza",
	}
)

// Planner builds deterministic query plans.
type Planner struct {
	areas        Areas
	includeAreas bool
}

// NewPlanner creates a Planner. areas may be nil.
func NewPlanner(areas Areas, includeAreas bool) *Planner {
	return &Planner{areas: areas, includeAreas: includeAreas}
}

// Plan returns the ordered queries for target: sourdough, generic and style
// terms for the whole city, then area subdivisions when configured. The same
// target always yields the same plan.
func (p *Planner) Plan(target model.Target) []model.Query {
	area, hasArea := p.areas.Lookup(target)
	var center *model.LatLng
	if hasArea && area.Center != nil {
		c := *area.Center
		center = &c
	}
	where := target.String()

	var out []model.Query
	add := func(ch model.Channel, scope, term, text string) {
		id := string(ch) + ":" + slug(term)
		if scope != "" {
			id = string(ch) + ":" + slug(scope) + ":" + slug(term)
		}
		q := model.Query{ID: id, Text: text, Channel: ch}
		if center != nil {
			c := *center
			q.Center = &c
		}
		out = append(out, q)
	}

	for _, t := range SourdoughTerms {
		add(model.ChannelSourdough, "", t, fmt.Sprintf("%s in %s", t, where))
	}
	for _, t := range GenericTerms {
		add(model.ChannelGeneric, "", t, fmt.Sprintf("%s in %s", t, where))
	}
	for _, t := range StyleTerms {
		add(model.ChannelStyle, "", t, fmt.Sprintf("%s in %s", t, where))
	}

	if !p.includeAreas || !hasArea {
		return out
	}
	for _, n := range area.Neighborhoods {
		for _, t := range AreaTerms {
			add(model.ChannelArea, n, t, fmt.Sprintf("%s in %s, %s", t, n, where))
		}
	}
	for _, z := range area.Zips {
		for _, t := range AreaTerms {
			add(model.ChannelArea, z, t, fmt.Sprintf("%s %s", t, z))
		}
	}
	return out
}

// Truncate limits queries to limit entries without dropping any sourdough
// query; other channels fill the remaining slots in plan order. limit <= 0
// means no limit.
func Truncate(queries []model.Query, limit int) []model.Query {
	if limit <= 0 || len(queries) <= limit {
		return queries
	}
	budget := limit
	for _, q := range queries {
		if q.Channel == model.ChannelSourdough {
			budget--
		}
	}
	out := make([]model.Query, 0, limit)
	for _, q := range queries {
		if q.Channel == model.ChannelSourdough {
			out = append(out, q)
			continue
		}
		if budget > 0 {
			out = append(out, q)
			budget--
		}
	}
	return out
}

func slug(s string) string {
	return strings.Join(textutil.Words(s), "-")
}
