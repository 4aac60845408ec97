package flickr

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// DefaultBaseURL is the Flickr REST endpoint.
const DefaultBaseURL = "https://api.flickr.com/services/rest/"

const searchMethod = "flickr.photos.search"

// maxResponseBytes caps how much of a search reply is read.
const maxResponseBytes = 4 << 20

// Client searches Flickr for photos around a coordinate.
type Client struct {
	apiKey     string
	baseURL    string
	halfWidth  float64
	halfHeight float64
	httpClient *http.Client
	limiter    *rate.Limiter
	pick       func(n int) int
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithHalfSize sets the bounding box offsets around the searched coordinate.
func WithHalfSize(halfWidth, halfHeight float64) Option {
	return func(c *Client) {
		c.halfWidth = halfWidth
		c.halfHeight = halfHeight
	}
}

// WithRateLimit paces requests to rps per second with the given burst.
// A non-positive rps disables pacing.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
	}
}

// WithPagePicker replaces the random source used to choose a page.
// pick must return a value in [0, n).
func WithPagePicker(pick func(n int) int) Option {
	return func(c *Client) { c.pick = pick }
}

// NewClient creates a search client for the given API key.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		halfWidth:  DefaultHalfWidth,
		halfHeight: DefaultHalfHeight,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(1), 5),
		pick:       rand.IntN,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search returns thumbnail URLs from one random result page near the
// coordinate. It first asks for the page count, then fetches a page chosen
// uniformly from the reachable pages. No results yields an empty slice.
func (c *Client) Search(ctx context.Context, latitude, longitude float64) ([]string, error) {
	bbox := BoundingBox(latitude, longitude, c.halfWidth, c.halfHeight)

	pages, err := c.PageCount(ctx, bbox)
	if err != nil {
		return nil, err
	}

	page := RandomPage(ClampPages(pages), c.pick)
	if page == 0 {
		return []string{}, nil
	}

	return c.FetchPage(ctx, bbox, page)
}

// PageCount returns how many result pages the bounding box has.
func (c *Client) PageCount(ctx context.Context, bbox string) (int, error) {
	resp, err := c.search(ctx, bbox, 0)
	if err != nil {
		return 0, err
	}
	if resp.Photos == nil || resp.Photos.Pages == nil {
		return 0, fmt.Errorf("%w: no page count in response", ErrUnknown)
	}
	return int(*resp.Photos.Pages), nil
}

// FetchPage returns the thumbnail URLs on one result page. Entries without
// a thumbnail URL are skipped.
func (c *Client) FetchPage(ctx context.Context, bbox string, page int) ([]string, error) {
	resp, err := c.search(ctx, bbox, page)
	if err != nil {
		return nil, err
	}
	if resp.Photos == nil || resp.Photos.Photo == nil {
		return nil, fmt.Errorf("%w: no photo list in response", ErrUnknown)
	}

	urls := make([]string, 0, len(resp.Photos.Photo))
	for _, p := range resp.Photos.Photo {
		if p.URLQ == "" {
			continue
		}
		urls = append(urls, p.URLQ)
	}
	return urls, nil
}

// search performs one flickr.photos.search call; page 0 omits the page parameter.
func (c *Client) search(ctx context.Context, bbox string, page int) (*searchResponse, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.requestURL(bbox, page), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: building request: %w", ErrNetwork, err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, fmt.Errorf("%w: status %d", ErrNetwork, res.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %w", ErrNetwork, err)
	}

	var out searchResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	if out.rejected() {
		return nil, fmt.Errorf("%w: code %d: %s", ErrInput, out.Code, out.Message)
	}
	return &out, nil
}

func (c *Client) requestURL(bbox string, page int) string {
	q := url.Values{}
	q.Set("method", searchMethod)
	q.Set("api_key", c.apiKey)
	q.Set("format", "json")
	q.Set("safe_search", "1")
	q.Set("nojsoncallback", "1")
	q.Set("per_page", strconv.Itoa(PerPage))
	q.Set("media", "photos")
	q.Set("extras", "url_q")
	q.Set("bbox", bbox)
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	return c.baseURL + "?" + q.Encode()
}
