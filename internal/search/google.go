package search

import (
	"context"
	"errors"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/sourdough-cli/internal/model"
	"github.com/sells-group/sourdough-cli/pkg/google"
)

// biasRadiusMeters is the locationBias circle used for area queries.
const biasRadiusMeters = 5000

// maxGooglePageSize is the largest page Places Text Search returns.
const maxGooglePageSize = 20

// GoogleOptions configures the Places adapter.
type GoogleOptions struct {
	Language string
	Region   string
}

// Google adapts Places Text Search. It always answers immediately.
type Google struct {
	client google.Client
	opts   GoogleOptions
}

// NewGoogle wraps a Places client.
func NewGoogle(client google.Client, opts GoogleOptions) *Google {
	return &Google{client: client, opts: opts}
}

// Name implements Client.
func (g *Google) Name() string { return "google" }

// Search implements Client.
func (g *Google) Search(ctx context.Context, q model.Query, limit int) ([]model.RawCandidate, error) {
	req := google.TextSearchRequest{
		TextQuery:    q.Text,
		LanguageCode: g.opts.Language,
		RegionCode:   strings.ToLower(g.opts.Region),
		PageSize:     limit,
	}
	if req.PageSize <= 0 || req.PageSize > maxGooglePageSize {
		req.PageSize = maxGooglePageSize
	}
	if q.Center != nil {
		req.LocationBias = &google.LocationBias{Circle: google.Circle{
			Center: google.LatLng{Latitude: q.Center.Lat, Longitude: q.Center.Lng},
			Radius: biasRadiusMeters,
		}}
	}

	resp, err := g.client.TextSearch(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, eris.Wrapf(ctx.Err(), "search: google %q", q.Text)
		}
		pe := &ProviderError{Provider: g.Name(), Query: q.Text, Err: err}
		var apiErr *google.APIError
		if errors.As(err, &apiErr) {
			pe.StatusCode = apiErr.StatusCode
		}
		return nil, pe
	}

	out := make([]model.RawCandidate, 0, len(resp.Places))
	for _, p := range resp.Places {
		if strings.TrimSpace(p.DisplayName.Text) == "" {
			continue
		}
		out = append(out, fromGoogle(p, q.ID))
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func fromGoogle(p google.Place, queryID string) model.RawCandidate {
	city, state, zip := parseAddress(p.FormattedAddress)
	if c := p.Component("locality"); c != "" {
		city = c
	}
	if s := p.Component("administrative_area_level_1"); s != "" {
		state = normalizeState(s)
	}
	if z := p.Component("postal_code"); z != "" {
		zip = z
	}

	r := model.RawCandidate{
		PlaceID:     p.ID,
		Name:        strings.TrimSpace(p.DisplayName.Text),
		Address:     p.FormattedAddress,
		City:        city,
		State:       state,
		ZipCode:     zip,
		Phone:       p.NationalPhoneNumber,
		Website:     p.WebsiteURI,
		Description: p.EditorialSummary.Text,
		Category:    p.PrimaryTypeDisplayName.Text,
		Types:       p.Types,
		SourceQuery: queryID,
	}
	if p.Location != nil {
		r.Location = &model.LatLng{Lat: p.Location.Latitude, Lng: p.Location.Longitude}
	}
	if p.UserRatingCount > 0 {
		rating, count := p.Rating, p.UserRatingCount
		r.Rating = &rating
		r.ReviewCount = &count
	}
	return r
}
