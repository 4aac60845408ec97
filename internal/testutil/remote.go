package testutil

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"vt-go/internal/vt"
)

// FakeSearcher returns a fixed list of URLs, or Err if set.
type FakeSearcher struct {
	mu    sync.Mutex
	URLs  []string
	Err   error
	calls atomic.Int64
}

var _ vt.PhotoSearcher = (*FakeSearcher)(nil)

// NewFakeSearcher returns a searcher that answers every query with n URLs
// named after prefix.
func NewFakeSearcher(prefix string, n int) *FakeSearcher {
	return &FakeSearcher{URLs: URLs(prefix, n)}
}

func (f *FakeSearcher) Search(ctx context.Context, latitude, longitude float64) ([]string, error) {
	f.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	return append([]string(nil), f.URLs...), nil
}

// Set replaces the URLs returned by later searches.
func (f *FakeSearcher) Set(urls []string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.URLs, f.Err = urls, err
}

// Calls reports how many searches were issued.
func (f *FakeSearcher) Calls() int { return int(f.calls.Load()) }

// URLs builds n distinct photo URLs.
func URLs(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("https://photos.test/%s/%d.jpg", prefix, i)
	}
	return out
}

// FakeFetcher serves a small PNG for any URL not listed in Fail.
type FakeFetcher struct {
	mu    sync.Mutex
	Fail  map[string]error
	Gate  chan struct{} // if non-nil, each fetch waits for a receive
	calls map[string]int
	total atomic.Int64
}

var _ vt.ImageFetcher = (*FakeFetcher)(nil)

func NewFakeFetcher() *FakeFetcher {
	return &FakeFetcher{Fail: map[string]error{}, calls: map[string]int{}}
}

func (f *FakeFetcher) Fetch(ctx context.Context, url string) (*vt.FetchedImage, error) {
	f.total.Add(1)
	f.mu.Lock()
	f.calls[url]++
	err := f.Fail[url]
	gate := f.Gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return &vt.FetchedImage{Data: PNG(4, 3), Width: 4, Height: 3}, nil
}

// SetFailure makes fetches of url return err; a nil err clears it.
func (f *FakeFetcher) SetFailure(url string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.Fail, url)
		return
	}
	f.Fail[url] = err
}

// CallsFor reports how many times url was fetched.
func (f *FakeFetcher) CallsFor(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

// Total reports the number of fetches across all URLs.
func (f *FakeFetcher) Total() int { return int(f.total.Load()) }

// FakeGeocoder answers with Title, or Err if set.
type FakeGeocoder struct {
	Title string
	Err   error
}

var _ vt.Geocoder = (*FakeGeocoder)(nil)

func (g *FakeGeocoder) ReverseGeocode(ctx context.Context, latitude, longitude float64) (string, error) {
	if g.Err != nil {
		return "", g.Err
	}
	return g.Title, nil
}
