package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextSearch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/places:searchText", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Goog-Api-Key"))
		assert.Contains(t, r.Header.Get("X-Goog-FieldMask"), "places.websiteUri")
		assert.Contains(t, r.Header.Get("X-Goog-FieldMask"), "places.editorialSummary")

		var body TextSearchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "sourdough pizza in Sandpoint, ID", body.TextQuery)
		assert.Equal(t, 20, body.PageSize)
		require.NotNil(t, body.LocationBias)
		assert.InDelta(t, 48.27, body.LocationBias.Circle.Center.Latitude, 0.001)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(TextSearchResponse{
			Places: []Place{
				{
					ID:               "ChIJ-forge",
					DisplayName:      LocalizedText{Text: "The Forge Artisan Pizza"},
					FormattedAddress: "123 1st Ave, Sandpoint, ID 83864, USA",
					AddressComponents: []AddressComponent{
						{LongText: "Sandpoint", ShortText: "Sandpoint", Types: []string{"locality", "political"}},
						{LongText: "Idaho", ShortText: "ID", Types: []string{"administrative_area_level_1", "political"}},
						{LongText: "83864", ShortText: "83864", Types: []string{"postal_code"}},
					},
					Location:         &LatLng{Latitude: 48.2766, Longitude: -116.5535},
					EditorialSummary: LocalizedText{Text: "Naturally leavened pies."},
					Rating:           4.7,
					UserRatingCount:  311,
				},
			},
		})
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	resp, err := client.TextSearch(context.Background(), TextSearchRequest{
		TextQuery: "sourdough pizza in Sandpoint, ID",
		PageSize:  20,
		LocationBias: &LocationBias{Circle: Circle{
			Center: LatLng{Latitude: 48.27, Longitude: -116.55},
			Radius: 5000,
		}},
	})

	require.NoError(t, err)
	require.Len(t, resp.Places, 1)
	p := resp.Places[0]
	assert.Equal(t, "The Forge Artisan Pizza", p.DisplayName.Text)
	assert.Equal(t, "Sandpoint", p.Component("locality"))
	assert.Equal(t, "ID", p.Component("administrative_area_level_1"))
	assert.Equal(t, "83864", p.Component("postal_code"))
	assert.Empty(t, p.Component("country"))
	assert.Equal(t, 311, p.UserRatingCount)
}

func TestTextSearch_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(TextSearchResponse{Places: nil})
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	resp, err := client.TextSearch(context.Background(), TextSearchRequest{TextQuery: "pizza in Nowhere, ZZ"})

	require.NoError(t, err)
	assert.Empty(t, resp.Places)
}

func TestTextSearch_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error": "invalid API key"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	client := NewClient("bad-key", WithBaseURL(srv.URL))
	resp, err := client.TextSearch(context.Background(), TextSearchRequest{TextQuery: "pizza"})

	assert.Error(t, err)
	assert.Nil(t, resp)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Contains(t, err.Error(), "403")
}

func TestTextSearch_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"places": [`)) //nolint:errcheck
	}))
	defer srv.Close()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	_, err := client.TextSearch(context.Background(), TextSearchRequest{TextQuery: "pizza"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal response")
}

func TestTextSearch_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient("test-key", WithBaseURL(srv.URL))
	resp, err := client.TextSearch(ctx, TextSearchRequest{TextQuery: "pizza"})

	assert.Error(t, err)
	assert.Nil(t, resp)
}
