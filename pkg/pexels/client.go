package pexels

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dixieflatline76/PexWall/util/log"
	"golang.org/x/time/rate"
)

var (
	// ErrMissingAPIKey is returned before any network call when no key is configured.
	ErrMissingAPIKey = errors.New("pexels API key is missing")
	// ErrRateLimited is returned when Pexels answers 429.
	ErrRateLimited = errors.New("pexels rate limit exceeded")
	// ErrNotFound is returned when Pexels answers 404.
	ErrNotFound = errors.New("pexels resource not found")
)

// APIError describes any other non-200 answer.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API returned status %d: %s", e.StatusCode, e.Body)
}

// Options configures a Client.
type Options struct {
	BaseURL     string
	APIKey      func() string
	PageSize    int
	RatePerHour int
	Burst       int
	UserAgent   string
}

// Client talks to the Pexels REST API.
type Client struct {
	baseURL    *url.URL
	apiKey     func() string
	pageSize   int
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a new Client. A nil hc uses a client with a 30 second timeout.
func NewClient(opts Options, hc *http.Client) (*Client, error) {
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	ua := opts.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	transport := hc.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	wrapped := *hc
	wrapped.Transport = &UserAgentTransport{RoundTripper: transport, UserAgent: ua}

	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > MaxPerPage {
		pageSize = MaxPerPage
	}

	limit := rate.Inf
	if opts.RatePerHour > 0 {
		limit = rate.Every(time.Hour / time.Duration(opts.RatePerHour))
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 5
	}

	apiKey := opts.APIKey
	if apiKey == nil {
		apiKey = func() string { return "" }
	}

	return &Client{
		baseURL:    base,
		apiKey:     apiKey,
		pageSize:   pageSize,
		httpClient: &wrapped,
		limiter:    rate.NewLimiter(limit, burst),
	}, nil
}

// PageSize returns the per_page value sent with list requests.
func (c *Client) PageSize() int {
	return c.pageSize
}

// Curated fetches a page of curated photos.
func (c *Client) Curated(ctx context.Context, page int) (*PhotosPage, error) {
	return c.list(ctx, curatedPath, nil, page)
}

// Search fetches a page of photos matching query.
func (c *Client) Search(ctx context.Context, query string, page int) (*PhotosPage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("search query is empty")
	}
	return c.list(ctx, searchPath, url.Values{"query": {query}}, page)
}

// Photo fetches a single photo by id.
func (c *Client) Photo(ctx context.Context, id int) (*Photo, error) {
	var photo Photo
	if err := c.get(ctx, fmt.Sprintf(photoPath, id), nil, &photo); err != nil {
		return nil, err
	}
	return &photo, nil
}

func (c *Client) list(ctx context.Context, path string, q url.Values, page int) (*PhotosPage, error) {
	if page < 1 {
		page = 1
	}
	if q == nil {
		q = url.Values{}
	}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(c.pageSize))

	var resp PhotosResponse
	if err := c.get(ctx, path, q, &resp); err != nil {
		return nil, err
	}

	if len(resp.Photos) == 0 {
		log.Printf("Pexels query returned 0 photos for %s page %d", path, page)
	} else {
		log.Debugf("Found %d photos from Pexels (%s page %d)", len(resp.Photos), path, page)
	}

	return &PhotosPage{
		Page:         page,
		PerPage:      c.pageSize,
		TotalResults: resp.TotalResults,
		Photos:       resp.Photos,
		HasNext:      resp.NextPage != "",
	}, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out interface{}) error {
	apiKey := c.apiKey()
	if apiKey == "" {
		return ErrMissingAPIKey
	}

	u := c.baseURL.ResolveReference(&url.URL{Path: path})
	if q != nil {
		u.RawQuery = q.Encode()
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(AuthorizationHeader, apiKey)

	log.Debugf("Fetching Pexels: %s", u.String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return ErrRateLimited
	case http.StatusNotFound:
		return ErrNotFound
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		log.Printf("Pexels API Error: %s", string(body))
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
