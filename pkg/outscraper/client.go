package outscraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://api.app.outscraper.com"

// Job statuses reported by the API.
const (
	StatusSuccess = "Success"
	StatusPending = "Pending"
	StatusError   = "Error"
)

// Client defines the Outscraper Maps Search operations.
type Client interface {
	// Search submits a query. The response is either complete (Success)
	// or a pending job that must be polled with GetResult.
	Search(ctx context.Context, req SearchRequest) (*SearchResponse, error)
	GetResult(ctx context.Context, id string) (*SearchResponse, error)
}

// SearchRequest holds the parameters for GET /maps/search-v3.
type SearchRequest struct {
	Query       string
	Limit       int
	Language    string
	Region      string
	Coordinates string // "lat,lng"
	Async       bool
}

// SearchResponse is returned by both the search and the result endpoints.
type SearchResponse struct {
	ID              string          `json:"id"`
	Status          string          `json:"status"`
	ResultsLocation string          `json:"results_location,omitempty"`
	Data            json.RawMessage `json:"data,omitempty"`
}

// Place is one Google Maps place as returned by Outscraper.
type Place struct {
	PlaceID     string   `json:"place_id"`
	GoogleID    string   `json:"google_id"`
	Name        string   `json:"name"`
	FullAddress string   `json:"full_address"`
	Street      string   `json:"street"`
	City        string   `json:"city"`
	State       string   `json:"state"`
	PostalCode  string   `json:"postal_code"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Phone       string   `json:"phone"`
	Site        string   `json:"site"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Type        string   `json:"type"`
	Subtypes    string   `json:"subtypes"`
	Rating      *float64 `json:"rating"`
	Reviews     *int     `json:"reviews"`
}

// APIError is returned when Outscraper responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("outscraper: HTTP %d: %s", e.StatusCode, e.Body)
}

// HTTPStatus returns the response status code.
func (e *APIError) HTTPStatus() int {
	return e.StatusCode
}

// Option configures the httpClient.
type Option func(*httpClient)

// WithBaseURL overrides the default base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a new Outscraper client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	q := url.Values{}
	q.Set("query", req.Query)
	if req.Limit > 0 {
		q.Set("limit", strconv.Itoa(req.Limit))
	}
	if req.Language != "" {
		q.Set("language", req.Language)
	}
	if req.Region != "" {
		q.Set("region", req.Region)
	}
	if req.Coordinates != "" {
		q.Set("coordinates", req.Coordinates)
	}
	q.Set("async", strconv.FormatBool(req.Async))

	var resp SearchResponse
	if err := c.get(ctx, "/maps/search-v3?"+q.Encode(), &resp); err != nil {
		return nil, eris.Wrapf(err, "outscraper: search %q", req.Query)
	}
	return &resp, nil
}

func (c *httpClient) GetResult(ctx context.Context, id string) (*SearchResponse, error) {
	var resp SearchResponse
	if err := c.get(ctx, "/requests/"+url.PathEscape(id), &resp); err != nil {
		return nil, eris.Wrapf(err, "outscraper: get result %s", id)
	}
	return &resp, nil
}

func (c *httpClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "execute request")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return eris.Wrap(err, "read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Body:       string(data),
		}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return eris.Wrap(err, "decode response")
	}
	return nil
}

// Flatten decodes the data field into places. The API nests one array per
// submitted query ([[...], [...]]); both nested and flat shapes are
// accepted.
func Flatten(data json.RawMessage) ([]Place, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, eris.Wrap(err, "outscraper: data is not an array")
	}

	var places []Place
	for _, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) == 0 || string(item) == "null" {
			continue
		}
		if item[0] == '[' {
			nested, err := Flatten(item)
			if err != nil {
				return nil, err
			}
			places = append(places, nested...)
			continue
		}
		var p Place
		if err := json.Unmarshal(item, &p); err != nil {
			return nil, eris.Wrap(err, "outscraper: decode place")
		}
		places = append(places, p)
	}
	return places, nil
}
