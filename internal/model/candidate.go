// Package model holds the shared types of the discovery and verification pipeline.
package model

import (
	"slices"
)

// LatLng is a WGS84 coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lng float64 `json:"lng" yaml:"lng"`
}

// RawCandidate is one hit from the place-search provider for one query.
// It is never persisted directly.
type RawCandidate struct {
	PlaceID     string   `json:"place_id,omitempty"`
	Name        string   `json:"name"`
	Address     string   `json:"address,omitempty"`
	City        string   `json:"city,omitempty"`
	State       string   `json:"state,omitempty"`
	ZipCode     string   `json:"zip_code,omitempty"`
	Location    *LatLng  `json:"location,omitempty"`
	Phone       string   `json:"phone,omitempty"`
	Website     string   `json:"website,omitempty"`
	Description string   `json:"description,omitempty"`
	Category    string   `json:"category,omitempty"`
	Types       []string `json:"types,omitempty"`
	Rating      *float64 `json:"rating,omitempty"`
	ReviewCount *int     `json:"review_count,omitempty"`
	SourceQuery string   `json:"source_query"`
}

// CanonicalCandidate is the deduplicated view of one physical establishment.
type CanonicalCandidate struct {
	Key          string   `json:"key"`
	PlaceID      string   `json:"place_id,omitempty"`
	Name         string   `json:"name"`
	Address      string   `json:"address,omitempty"`
	City         string   `json:"city,omitempty"`
	State        string   `json:"state,omitempty"`
	ZipCode      string   `json:"zip_code,omitempty"`
	Location     *LatLng  `json:"location,omitempty"`
	Phone        string   `json:"phone,omitempty"`
	Website      string   `json:"website,omitempty"`
	Description  string   `json:"description,omitempty"`
	Category     string   `json:"category,omitempty"`
	Types        []string `json:"types,omitempty"`
	Rating       *float64 `json:"rating,omitempty"`
	ReviewCount  *int     `json:"review_count,omitempty"`
	DiscoveredBy []string `json:"discovered_by"`
}

// NewCanonical starts a canonical candidate from its first raw sighting.
func NewCanonical(key string, r RawCandidate) CanonicalCandidate {
	c := CanonicalCandidate{
		Key:         key,
		PlaceID:     r.PlaceID,
		Name:        r.Name,
		Address:     r.Address,
		City:        r.City,
		State:       r.State,
		ZipCode:     r.ZipCode,
		Phone:       r.Phone,
		Website:     r.Website,
		Description: r.Description,
		Category:    r.Category,
		Types:       slices.Clone(r.Types),
	}
	if r.Location != nil {
		loc := *r.Location
		c.Location = &loc
	}
	if r.Rating != nil {
		v := *r.Rating
		c.Rating = &v
	}
	if r.ReviewCount != nil {
		v := *r.ReviewCount
		c.ReviewCount = &v
	}
	if r.SourceQuery != "" {
		c.DiscoveredBy = []string{r.SourceQuery}
	}
	return c
}

// Absorb fills every empty field of c from r and records r's query as a
// discoverer. Populated fields are never overwritten.
func (c *CanonicalCandidate) Absorb(r RawCandidate) {
	fill := func(dst *string, src string) {
		if *dst == "" {
			*dst = src
		}
	}
	fill(&c.PlaceID, r.PlaceID)
	fill(&c.Address, r.Address)
	fill(&c.City, r.City)
	fill(&c.State, r.State)
	fill(&c.ZipCode, r.ZipCode)
	fill(&c.Phone, r.Phone)
	fill(&c.Website, r.Website)
	fill(&c.Description, r.Description)
	fill(&c.Category, r.Category)

	if len(c.Types) == 0 && len(r.Types) > 0 {
		c.Types = slices.Clone(r.Types)
	}
	if c.Location == nil && r.Location != nil {
		loc := *r.Location
		c.Location = &loc
	}
	if c.Rating == nil && r.Rating != nil {
		v := *r.Rating
		c.Rating = &v
	}
	if c.ReviewCount == nil && r.ReviewCount != nil {
		v := *r.ReviewCount
		c.ReviewCount = &v
	}
	c.AddDiscoverer(r.SourceQuery)
}

// AddDiscoverer inserts a query id into the sorted DiscoveredBy set.
func (c *CanonicalCandidate) AddDiscoverer(queryID string) {
	if queryID == "" {
		return
	}
	i, found := slices.BinarySearch(c.DiscoveredBy, queryID)
	if found {
		return
	}
	c.DiscoveredBy = slices.Insert(c.DiscoveredBy, i, queryID)
}

// Clone returns a deep copy safe to hand to another goroutine.
func (c CanonicalCandidate) Clone() CanonicalCandidate {
	out := c
	out.Types = slices.Clone(c.Types)
	out.DiscoveredBy = slices.Clone(c.DiscoveredBy)
	if c.Location != nil {
		loc := *c.Location
		out.Location = &loc
	}
	if c.Rating != nil {
		v := *c.Rating
		out.Rating = &v
	}
	if c.ReviewCount != nil {
		v := *c.ReviewCount
		out.ReviewCount = &v
	}
	return out
}
