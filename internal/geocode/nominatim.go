package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrNoPlacemark is returned when a coordinate resolves to no named place,
// e.g. open ocean.
var ErrNoPlacemark = errors.New("no placemark for coordinate")

// DefaultBaseURL is the public OpenStreetMap Nominatim instance.
const DefaultBaseURL = "https://nominatim.openstreetmap.org"

// Nominatim performs reverse geocoding against the OpenStreetMap Nominatim
// API with caching and rate limiting.
type Nominatim struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter

	cacheMu sync.RWMutex
	cache   map[string]string
}

// nominatimResponse is the subset of Nominatim's reply we care about
// (city/town/village + country).
type nominatimResponse struct {
	Error   string `json:"error"`
	Address struct {
		City    string `json:"city"`
		Town    string `json:"town"`
		Village string `json:"village"`
		Country string `json:"country"`
	} `json:"address"`
}

// NewNominatim returns a geocoder that identifies itself with userAgent,
// as Nominatim's usage policy requires, and sends at most one request per
// second.
func NewNominatim(baseURL, userAgent string, timeout time.Duration) *Nominatim {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Nominatim{
		baseURL:    baseURL,
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(1), 1),
		cache:      make(map[string]string),
	}
}

// ReverseGeocode returns "City, Country" for the coordinate, using the most
// specific of city, town or village. Results are cached per coordinate
// rounded to four decimals.
func (n *Nominatim) ReverseGeocode(ctx context.Context, latitude, longitude float64) (string, error) {
	key := fmt.Sprintf("%.4f,%.4f", latitude, longitude)

	n.cacheMu.RLock()
	cached, ok := n.cache[key]
	n.cacheMu.RUnlock()
	if ok {
		return cached, nil
	}

	if err := n.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("waiting for rate limiter: %w", err)
	}

	resp, err := n.fetch(ctx, latitude, longitude)
	if err != nil {
		return "", err
	}

	title := placemark(resp)
	if title == "" {
		return "", fmt.Errorf("%w: %s", ErrNoPlacemark, key)
	}

	n.cacheMu.Lock()
	n.cache[key] = title
	n.cacheMu.Unlock()

	return title, nil
}

func (n *Nominatim) fetch(ctx context.Context, latitude, longitude float64) (*nominatimResponse, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("lat", strconv.FormatFloat(latitude, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(longitude, 'f', -1, 64))
	q.Set("zoom", "18")
	q.Set("addressdetails", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", n.userAgent)
	req.Header.Set("Accept-Language", "en")

	res, err := n.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling nominatim: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nominatim returned status %d", res.StatusCode)
	}

	var out nominatimResponse
	if err := json.NewDecoder(io.LimitReader(res.Body, 1<<20)).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding nominatim response: %w", err)
	}
	return &out, nil
}

// placemark picks the most specific available location from the response.
func placemark(r *nominatimResponse) string {
	city := firstNonEmpty(r.Address.City, r.Address.Town, r.Address.Village)
	country := r.Address.Country

	switch {
	case city != "" && country != "":
		return city + ", " + country
	case city != "":
		return city
	default:
		return country
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
