package vt

import "context"

// PhotoSearcher finds photo URLs near a coordinate.
type PhotoSearcher interface {
	Search(ctx context.Context, latitude, longitude float64) ([]string, error)
}

// FetchedImage is a downloaded image payload with its decoded bounds.
type FetchedImage struct {
	Data   []byte
	Width  int
	Height int
}

// ImageFetcher downloads a single image by URL.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) (*FetchedImage, error)
}

// Geocoder turns a coordinate into a human-readable placemark.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, latitude, longitude float64) (string, error)
}
