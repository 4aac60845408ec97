package vt

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"vt-go/internal/model"
)

const (
	SettingCenterLatitude  = "map.center_latitude"
	SettingCenterLongitude = "map.center_longitude"
	SettingSpanLatitude    = "map.span_latitude"
	SettingSpanLongitude   = "map.span_longitude"
)

// DefaultViewport is returned until a viewport has been saved.
var DefaultViewport = model.Viewport{
	CenterLatitude:  0,
	CenterLongitude: 0,
	SpanLatitude:    180,
	SpanLongitude:   360,
}

// Viewport returns the last saved map viewport, or DefaultViewport if none
// has been saved. A viewport is only used when all four keys are present.
func (s *Service) Viewport() (model.Viewport, error) {
	keys := []string{SettingCenterLatitude, SettingCenterLongitude, SettingSpanLatitude, SettingSpanLongitude}
	values := make([]float64, len(keys))
	for i, key := range keys {
		raw, ok, err := s.database.GetSetting(key)
		if err != nil {
			return model.Viewport{}, fmt.Errorf("reading setting %s: %w", key, err)
		}
		if !ok {
			return DefaultViewport, nil
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return model.Viewport{}, fmt.Errorf("parsing setting %s=%q: %w", key, raw, err)
		}
		values[i] = v
	}
	return model.Viewport{
		CenterLatitude:  values[0],
		CenterLongitude: values[1],
		SpanLatitude:    values[2],
		SpanLongitude:   values[3],
	}, nil
}

// SaveViewport persists the map viewport.
func (s *Service) SaveViewport(v model.Viewport) error {
	if err := ValidateCoordinate(v.CenterLatitude, v.CenterLongitude); err != nil {
		return err
	}
	if v.SpanLatitude < 0 || v.SpanLongitude < 0 {
		return fmt.Errorf("%w: negative span", ErrInvalidCoordinate)
	}

	format := func(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
	err := s.database.PutSettings(map[string]string{
		SettingCenterLatitude:  format(v.CenterLatitude),
		SettingCenterLongitude: format(v.CenterLongitude),
		SettingSpanLatitude:    format(v.SpanLatitude),
		SettingSpanLongitude:   format(v.SpanLongitude),
	})
	if err != nil {
		return fmt.Errorf("saving viewport: %w", err)
	}
	s.logger.Debug("viewport saved",
		"lat", v.CenterLatitude, "lon", v.CenterLongitude,
		"span_lat", v.SpanLatitude, "span_lon", v.SpanLongitude)
	return nil
}

// ViewportTracker buffers viewport changes in memory and writes the latest
// one on Flush, so rapid map movement does not hit the journal on every step.
type ViewportTracker struct {
	service *Service

	mu      sync.Mutex
	current model.Viewport
	dirty   bool
}

// NewViewportTracker creates a tracker that saves through service.
func NewViewportTracker(service *Service) *ViewportTracker {
	return &ViewportTracker{service: service}
}

// Update records v as the latest viewport.
func (t *ViewportTracker) Update(v model.Viewport) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = v
	t.dirty = true
}

// Flush saves the latest viewport if it changed since the last flush.
func (t *ViewportTracker) Flush() error {
	t.mu.Lock()
	if !t.dirty {
		t.mu.Unlock()
		return nil
	}
	v := t.current
	t.dirty = false
	t.mu.Unlock()

	if err := t.service.SaveViewport(v); err != nil {
		t.mu.Lock()
		t.dirty = true
		t.mu.Unlock()
		return err
	}
	return nil
}

// Run flushes every interval until ctx is done, then flushes once more.
func (t *ViewportTracker) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return t.Flush()
		case <-ticker.C:
			if err := t.Flush(); err != nil {
				t.service.logger.Warn("viewport sync failed", "error", err)
			}
		}
	}
}
