package imagefetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/disintegration/imaging"
	"golang.org/x/time/rate"

	"vt-go/internal/vt"
)

// ErrTooLarge is returned when an image exceeds the configured size cap.
var ErrTooLarge = errors.New("image exceeds size limit")

// HTTPFetcher downloads images over HTTP and checks they decode.
type HTTPFetcher struct {
	httpClient *http.Client
	maxBytes   int64
	limiter    *rate.Limiter
}

// NewHTTPFetcher creates a fetcher that reads at most maxBytes per image.
// A nil limiter leaves downloads unpaced.
func NewHTTPFetcher(timeout time.Duration, maxBytes int64, limiter *rate.Limiter) *HTTPFetcher {
	return &HTTPFetcher{
		httpClient: &http.Client{Timeout: timeout},
		maxBytes:   maxBytes,
		limiter:    limiter,
	}
}

// Fetch downloads url and returns its bytes with the decoded image bounds.
// Bytes that do not decode as an image are an error.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*vt.FetchedImage, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	res, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", url, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, fmt.Errorf("downloading %s: status %d", url, res.StatusCode)
	}

	// Read one byte past the cap so an oversized body is detected, not truncated.
	data, err := io.ReadAll(io.LimitReader(res.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", url, err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, fmt.Errorf("%w: %s is over %d bytes", ErrTooLarge, url, f.maxBytes)
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", url, err)
	}
	b := img.Bounds()

	return &vt.FetchedImage{Data: data, Width: b.Dx(), Height: b.Dy()}, nil
}

var _ vt.ImageFetcher = (*HTTPFetcher)(nil)
