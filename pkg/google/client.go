package google

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://places.googleapis.com/v1"

// fieldMask lists the place fields consumed by candidate discovery.
const fieldMask = "places.id,places.displayName,places.formattedAddress," +
	"places.addressComponents,places.location,places.nationalPhoneNumber," +
	"places.websiteUri,places.editorialSummary,places.primaryTypeDisplayName," +
	"places.types,places.rating,places.userRatingCount"

// Client performs Google Places API operations.
type Client interface {
	TextSearch(ctx context.Context, req TextSearchRequest) (*TextSearchResponse, error)
}

// TextSearchRequest is the body for places:searchText.
type TextSearchRequest struct {
	TextQuery        string        `json:"textQuery"`
	PageSize         int           `json:"pageSize,omitempty"`
	LanguageCode     string        `json:"languageCode,omitempty"`
	RegionCode       string        `json:"regionCode,omitempty"`
	LocationBias     *LocationBias `json:"locationBias,omitempty"`
	IncludedType     string        `json:"includedType,omitempty"`
	StrictTypeFilter bool          `json:"strictTypeFiltering,omitempty"`
}

// LocationBias biases results toward a circle.
type LocationBias struct {
	Circle Circle `json:"circle"`
}

// Circle is a center point and radius in meters.
type Circle struct {
	Center LatLng  `json:"center"`
	Radius float64 `json:"radius"`
}

// LatLng is a coordinate pair as encoded by the Places API.
type LatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// TextSearchResponse is the response from Places Text Search.
type TextSearchResponse struct {
	Places []Place `json:"places"`
}

// Place represents a place returned by the API.
type Place struct {
	ID                     string             `json:"id"`
	DisplayName            LocalizedText      `json:"displayName"`
	FormattedAddress       string             `json:"formattedAddress"`
	AddressComponents      []AddressComponent `json:"addressComponents"`
	Location               *LatLng            `json:"location"`
	NationalPhoneNumber    string             `json:"nationalPhoneNumber"`
	WebsiteURI             string             `json:"websiteUri"`
	EditorialSummary       LocalizedText      `json:"editorialSummary"`
	PrimaryTypeDisplayName LocalizedText      `json:"primaryTypeDisplayName"`
	Types                  []string           `json:"types"`
	Rating                 float64            `json:"rating"`
	UserRatingCount        int                `json:"userRatingCount"`
}

// LocalizedText holds a localized string.
type LocalizedText struct {
	Text string `json:"text"`
}

// AddressComponent is one structured part of a place's address.
type AddressComponent struct {
	LongText  string   `json:"longText"`
	ShortText string   `json:"shortText"`
	Types     []string `json:"types"`
}

// Component returns the short text of the first component with the given
// type, e.g. "locality" or "administrative_area_level_1".
func (p Place) Component(typ string) string {
	for _, c := range p.AddressComponents {
		for _, t := range c.Types {
			if t == typ {
				if typ == "locality" {
					return c.LongText
				}
				return c.ShortText
			}
		}
	}
	return ""
}

// APIError is returned for non-200 responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("google: unexpected status %d: %s", e.StatusCode, e.Body)
}

// HTTPStatus returns the response status code.
func (e *APIError) HTTPStatus() int {
	return e.StatusCode
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
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

// NewClient creates a Google Places API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) TextSearch(ctx context.Context, in TextSearchRequest) (*TextSearchResponse, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, eris.Wrap(err, "google: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/places:searchText", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "google: create request")
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", fieldMask)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "google: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "google: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var result TextSearchResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "google: unmarshal response")
	}

	return &result, nil
}
