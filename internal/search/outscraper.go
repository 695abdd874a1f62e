package search

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/sourdough-cli/internal/model"
	"github.com/sells-group/sourdough-cli/pkg/outscraper"
)

// OutscraperOptions configures the Outscraper adapter.
type OutscraperOptions struct {
	Language string
	Region   string
	Async    bool
	Poll     []outscraper.PollOption
}

// Outscraper adapts the Outscraper Maps Search API.
type Outscraper struct {
	client outscraper.Client
	opts   OutscraperOptions
}

// NewOutscraper wraps an Outscraper client.
func NewOutscraper(client outscraper.Client, opts OutscraperOptions) *Outscraper {
	return &Outscraper{client: client, opts: opts}
}

// Name implements Client.
func (o *Outscraper) Name() string { return "outscraper" }

// Search implements Client. Pending responses are polled to completion.
func (o *Outscraper) Search(ctx context.Context, q model.Query, limit int) ([]model.RawCandidate, error) {
	req := outscraper.SearchRequest{
		Query:    q.Text,
		Limit:    limit,
		Language: o.opts.Language,
		Region:   o.opts.Region,
		Async:    o.opts.Async,
	}
	if q.Center != nil {
		req.Coordinates = fmt.Sprintf("%.6f,%.6f", q.Center.Lat, q.Center.Lng)
	}

	resp, err := o.client.Search(ctx, req)
	if err != nil {
		return nil, o.providerErr(q, err)
	}

	job, err := outscraper.Wait(ctx, o.client, resp, o.opts.Poll...)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			return nil, eris.Wrapf(ctx.Err(), "search: outscraper %q", q.Text)
		case errors.Is(err, outscraper.ErrJobTimeout):
			return nil, &TimeoutError{Provider: o.Name(), Query: q.Text, JobID: job.ID, Attempts: job.Attempts, Err: err}
		default:
			return nil, o.submittedErr(q, err)
		}
	}

	places, err := outscraper.Flatten(job.Result.Data)
	if err != nil {
		return nil, o.submittedErr(q, err)
	}

	out := make([]model.RawCandidate, 0, len(places))
	for _, p := range places {
		if strings.TrimSpace(p.Name) == "" {
			continue
		}
		out = append(out, fromOutscraper(p, q.ID))
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (o *Outscraper) providerErr(q model.Query, err error) error {
	pe := &ProviderError{Provider: o.Name(), Query: q.Text, Err: err}
	var apiErr *outscraper.APIError
	if errors.As(err, &apiErr) {
		pe.StatusCode = apiErr.StatusCode
	}
	return pe
}

func (o *Outscraper) submittedErr(q model.Query, err error) error {
	pe := o.providerErr(q, err).(*ProviderError)
	pe.Submitted = true
	return pe
}

func fromOutscraper(p outscraper.Place, queryID string) model.RawCandidate {
	city, state, zip := parseAddress(p.FullAddress)
	if p.City != "" {
		city = p.City
	}
	if s := normalizeState(p.State); s != "" {
		state = s
	}
	if p.PostalCode != "" {
		zip = p.PostalCode
	}

	r := model.RawCandidate{
		PlaceID:     firstNonEmpty(p.PlaceID, p.GoogleID),
		Name:        strings.TrimSpace(p.Name),
		Address:     p.FullAddress,
		City:        city,
		State:       state,
		ZipCode:     zip,
		Phone:       p.Phone,
		Website:     p.Site,
		Description: p.Description,
		Category:    firstNonEmpty(p.Category, p.Type),
		Rating:      p.Rating,
		ReviewCount: p.Reviews,
		SourceQuery: queryID,
	}
	if p.Latitude != nil && p.Longitude != nil {
		r.Location = &model.LatLng{Lat: *p.Latitude, Lng: *p.Longitude}
	}
	for _, t := range strings.Split(p.Subtypes, ",") {
		if t = strings.TrimSpace(t); t != "" {
			r.Types = append(r.Types, t)
		}
	}
	return r
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
