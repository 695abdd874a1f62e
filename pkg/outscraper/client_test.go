package outscraper

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/maps/search-v3", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-API-KEY"))
		assert.Equal(t, "sourdough pizza Sandpoint, ID", r.URL.Query().Get("query"))
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		assert.Equal(t, "en", r.URL.Query().Get("language"))
		assert.Equal(t, "US", r.URL.Query().Get("region"))
		assert.Equal(t, "false", r.URL.Query().Get("async"))
		assert.Empty(t, r.URL.Query().Get("coordinates"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"job-1","status":"Success","data":[[{"name":"The Forge Artisan Pizza","latitude":48.27,"longitude":-116.55}]]}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", WithBaseURL(srv.URL))
	resp, err := c.Search(context.Background(), SearchRequest{
		Query:    "sourdough pizza Sandpoint, ID",
		Limit:    20,
		Language: "en",
		Region:   "US",
	})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, resp.Status)

	places, err := Flatten(resp.Data)
	require.NoError(t, err)
	require.Len(t, places, 1)
	assert.Equal(t, "The Forge Artisan Pizza", places[0].Name)
	require.NotNil(t, places[0].Latitude)
	assert.InDelta(t, 48.27, *places[0].Latitude, 0.0001)
}

func TestSearch_Coordinates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "45.52,-122.68", r.URL.Query().Get("coordinates"))
		assert.Equal(t, "true", r.URL.Query().Get("async"))
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"id":"job-2","status":"Pending","results_location":"https://api.app.outscraper.com/requests/job-2"}`))
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL))
	resp, err := c.Search(context.Background(), SearchRequest{Query: "pizza", Coordinates: "45.52,-122.68", Async: true})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, resp.Status)
	assert.Equal(t, "job-2", resp.ID)
	assert.Contains(t, resp.ResultsLocation, "/requests/job-2")
}

func TestSearch_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid api key"}`))
	}))
	defer srv.Close()

	c := NewClient("bad", WithBaseURL(srv.URL))
	_, err := c.Search(context.Background(), SearchRequest{Query: "pizza"})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Contains(t, apiErr.Error(), "invalid api key")
}

func TestSearch_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>oops</html>`))
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL))
	_, err := c.Search(context.Background(), SearchRequest{Query: "pizza"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}

func TestGetResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/requests/job-9", r.URL.Path)
		assert.Equal(t, "k", r.Header.Get("X-API-KEY"))
		w.Write([]byte(`{"id":"job-9","status":"Pending"}`))
	}))
	defer srv.Close()

	c := NewClient("k", WithBaseURL(srv.URL))
	resp, err := c.GetResult(context.Background(), "job-9")
	require.NoError(t, err)
	assert.Equal(t, StatusPending, resp.Status)
}

func TestFlatten(t *testing.T) {
	tests := []struct {
		name  string
		data  string
		names []string
	}{
		{"nested per query", `[[{"name":"A"},{"name":"B"}],[{"name":"C"}]]`, []string{"A", "B", "C"}},
		{"flat", `[{"name":"A"},{"name":"B"}]`, []string{"A", "B"}},
		{"empty batches", `[[],null,[{"name":"A"}]]`, []string{"A"}},
		{"null", `null`, nil},
		{"empty", ``, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			places, err := Flatten(json.RawMessage(tt.data))
			require.NoError(t, err)
			var names []string
			for _, p := range places {
				names = append(names, p.Name)
			}
			assert.Equal(t, tt.names, names)
		})
	}
}

func TestFlatten_Malformed(t *testing.T) {
	_, err := Flatten(json.RawMessage(`{"name":"A"}`))
	assert.Error(t, err)

	_, err = Flatten(json.RawMessage(`["not a place"]`))
	assert.Error(t, err)
}
