package geocode

import (
	"context"
	"fmt"
	"time"

	"vt-go/internal/config"
	"vt-go/internal/vt"
)

// None is a geocoder for offline use: every coordinate gets an empty title.
type None struct{}

func (None) ReverseGeocode(context.Context, float64, float64) (string, error) {
	return "", nil
}

// NewGeocoderFromConfig creates a Geocoder based on the geocoder config type.
func NewGeocoderFromConfig(cfg config.GeocoderConfig, timeout time.Duration) (vt.Geocoder, error) {
	switch cfg.Type {
	case "nominatim":
		if cfg.UserAgent == "" {
			return nil, fmt.Errorf("user_agent required for nominatim geocoder")
		}
		return NewNominatim(cfg.BaseURL, cfg.UserAgent, timeout), nil
	case "none":
		return None{}, nil
	default:
		return nil, fmt.Errorf("unknown geocoder type: %s", cfg.Type)
	}
}
