package pexels

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const curatedJSON = `{
	"page": 1,
	"per_page": 2,
	"total_results": 8000,
	"next_page": "https://api.pexels.com/v1/curated/?page=2&per_page=2",
	"photos": [
		{
			"id": 2014422,
			"width": 3024,
			"height": 3024,
			"url": "https://www.pexels.com/photo/brown-rocks-during-golden-hour-2014422/",
			"photographer": "Joey Farina",
			"photographer_url": "https://www.pexels.com/@joey",
			"photographer_id": 680589,
			"avg_color": "#978E82",
			"src": {
				"original": "https://images.pexels.com/photos/2014422/pexels-photo-2014422.jpeg",
				"portrait": "https://images.pexels.com/photos/2014422/pexels-photo-2014422.jpeg?fit=crop&h=1200&w=800",
				"tiny": "https://images.pexels.com/photos/2014422/pexels-photo-2014422.jpeg?h=200&w=280"
			},
			"liked": false,
			"alt": "Brown Rocks During Golden Hour"
		},
		{
			"id": 1,
			"width": 10,
			"height": 20,
			"url": "https://www.pexels.com/photo/1/",
			"src": {"original": "o"}
		}
	]
}`

func newTestClient(t *testing.T, srv *httptest.Server, key string) *Client {
	t.Helper()
	c, err := NewClient(Options{
		BaseURL:  srv.URL + "/v1",
		APIKey:   func() string { return key },
		PageSize: 2,
	}, srv.Client())
	require.NoError(t, err)
	return c
}

func TestClient_Curated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/curated", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("Authorization"))
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		assert.Equal(t, "2", r.URL.Query().Get("per_page"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(curatedJSON))
	}))
	defer server.Close()

	client := newTestClient(t, server, "test-key")
	page, err := client.Curated(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 2, page.PerPage)
	assert.True(t, page.HasNext)
	require.Len(t, page.Photos, 2)

	p := page.Photos[0]
	assert.Equal(t, 2014422, p.ID)
	assert.Equal(t, "Joey Farina", p.Photographer)
	assert.Equal(t, "#978E82", p.AvgColor)
	assert.Contains(t, p.Src.Portrait, "h=1200")
	assert.Empty(t, page.Photos[1].Photographer)
}

func TestClient_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/search", r.URL.Path)
		assert.Equal(t, "wirehair dachshund", r.URL.Query().Get("query"))
		assert.Equal(t, "3", r.URL.Query().Get("page"))
		_, _ = w.Write([]byte(`{"page":3,"per_page":2,"total_results":4,"photos":[]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server, "k")
	page, err := client.Search(context.Background(), "  wirehair dachshund ", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Page)
	assert.False(t, page.HasNext)
	assert.Empty(t, page.Photos)

	_, err = client.Search(context.Background(), "   ", 1)
	assert.Error(t, err)
}

func TestClient_Photo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/photos/42" {
			_, _ = w.Write([]byte(`{"id":42,"width":1,"height":1,"url":"u","src":{"large":"l"}}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := newTestClient(t, server, "k")
	photo, err := client.Photo(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, 42, photo.ID)
	assert.Equal(t, "l", photo.Src.Large)

	_, err = client.Photo(context.Background(), 7)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClient_MissingKeySkipsNetwork(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	client := newTestClient(t, server, "")
	_, err := client.Curated(context.Background(), 1)
	assert.ErrorIs(t, err, ErrMissingAPIKey)
	assert.Zero(t, calls.Load())
}

func TestClient_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(t *testing.T, err error)
	}{
		{
			name:   "rate limited",
			status: http.StatusTooManyRequests,
			check:  func(t *testing.T, err error) { assert.ErrorIs(t, err, ErrRateLimited) },
		},
		{
			name:   "unauthorized",
			status: http.StatusUnauthorized,
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				require.True(t, errors.As(err, &apiErr))
				assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
				assert.Contains(t, apiErr.Body, "bad key")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("bad key"))
			}))
			defer server.Close()

			_, err := newTestClient(t, server, "k").Curated(context.Background(), 1)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestClient_CancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client, err := NewClient(Options{
		BaseURL:     server.URL,
		APIKey:      func() string { return "k" },
		RatePerHour: 1,
		Burst:       1,
	}, server.Client())
	require.NoError(t, err)

	// First request drains the bucket, the second has to wait an hour.
	_, err = client.Curated(context.Background(), 1)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = client.Curated(ctx, 1)
	assert.Error(t, err)
}

func TestNewClient_ClampsPageSize(t *testing.T) {
	c, err := NewClient(Options{BaseURL: "https://api.pexels.com/v1/", PageSize: 500}, nil)
	require.NoError(t, err)
	assert.Equal(t, MaxPerPage, c.PageSize())

	c, err = NewClient(Options{BaseURL: "https://api.pexels.com/v1/"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 20, c.PageSize())
}
