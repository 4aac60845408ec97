package vt

import (
	"context"
	"errors"
	"fmt"
	"math"

	"golang.org/x/sync/singleflight"

	"vt-go/internal/model"
)

var (
	ErrPinNotFound       = errors.New("pin not found")
	ErrPhotoNotFound     = errors.New("photo not found")
	ErrInvalidCoordinate = errors.New("invalid coordinate")
)

// DefaultDownloadConcurrency bounds parallel payload downloads when the
// caller does not configure it.
const DefaultDownloadConcurrency = 4

// Service is the orchestration layer behind the CLI: it owns pins and their
// photo albums and coordinates search, materialization and payload loading.
type Service struct {
	database    Database
	searcher    PhotoSearcher
	fetcher     ImageFetcher
	geocoder    Geocoder
	logger      Logger
	clock       Clock
	idgen       IDGenerator
	concurrency int

	loads singleflight.Group
}

// NewService creates a Service with the provided dependencies.
func NewService(database Database, searcher PhotoSearcher, fetcher ImageFetcher, geocoder Geocoder, logger Logger, clock Clock, idgen IDGenerator) *Service {
	return &Service{
		database:    database,
		searcher:    searcher,
		fetcher:     fetcher,
		geocoder:    geocoder,
		logger:      logger,
		clock:       clock,
		idgen:       idgen,
		concurrency: DefaultDownloadConcurrency,
	}
}

// SetDownloadConcurrency sets how many payloads LoadAlbumData fetches at once.
// Values below 1 are ignored.
func (s *Service) SetDownloadConcurrency(n int) {
	if n >= 1 {
		s.concurrency = n
	}
}

// ValidateCoordinate checks that a coordinate is finite and within
// [-90, 90] latitude and [-180, 180] longitude.
func ValidateCoordinate(latitude, longitude float64) error {
	if math.IsNaN(latitude) || math.IsInf(latitude, 0) || latitude < -90 || latitude > 90 {
		return fmt.Errorf("%w: latitude %v out of range [-90, 90]", ErrInvalidCoordinate, latitude)
	}
	if math.IsNaN(longitude) || math.IsInf(longitude, 0) || longitude < -180 || longitude > 180 {
		return fmt.Errorf("%w: longitude %v out of range [-180, 180]", ErrInvalidCoordinate, longitude)
	}
	return nil
}

// AddPin drops a new pin at the coordinate.
// The pin is only created once reverse geocoding succeeds.
func (s *Service) AddPin(ctx context.Context, latitude, longitude float64) (*model.Pin, error) {
	if err := ValidateCoordinate(latitude, longitude); err != nil {
		return nil, err
	}

	title, err := s.geocoder.ReverseGeocode(ctx, latitude, longitude)
	if err != nil {
		return nil, fmt.Errorf("reverse geocoding: %w", err)
	}

	pin := &model.Pin{
		ID:        s.idgen.New(),
		Latitude:  latitude,
		Longitude: longitude,
		Title:     title,
		CreatedAt: s.clock.Now(),
	}
	if err := s.database.CreatePin(pin); err != nil {
		return nil, fmt.Errorf("creating pin: %w", err)
	}

	s.logger.Info("pin added", "pin", pin.ID, "title", title)
	return pin, nil
}

// GetPin returns the pin with the given ID.
func (s *Service) GetPin(id string) (*model.Pin, error) {
	pin, err := s.database.FindPin(id)
	if err != nil {
		return nil, fmt.Errorf("finding pin: %w", err)
	}
	if pin == nil {
		return nil, fmt.Errorf("%w: %s", ErrPinNotFound, id)
	}
	return pin, nil
}

// ListPins returns every pin in the journal.
func (s *Service) ListPins() ([]*model.Pin, error) {
	pins, err := s.database.ListPins()
	if err != nil {
		return nil, fmt.Errorf("listing pins: %w", err)
	}
	return pins, nil
}

// RemovePin deletes a pin together with its album.
func (s *Service) RemovePin(id string) error {
	if _, err := s.GetPin(id); err != nil {
		return err
	}
	if err := s.database.DeletePin(id); err != nil {
		return fmt.Errorf("deleting pin: %w", err)
	}
	s.logger.Info("pin removed", "pin", id)
	return nil
}

// Album returns the photos of a pin. A pin without photos is searched and
// its results materialized first; a search error leaves the journal untouched.
func (s *Service) Album(ctx context.Context, pinID string) ([]*model.Photo, error) {
	pin, err := s.GetPin(pinID)
	if err != nil {
		return nil, err
	}

	photos, err := s.database.ListPhotos(pin.ID)
	if err != nil {
		return nil, fmt.Errorf("listing photos: %w", err)
	}
	if len(photos) > 0 {
		return photos, nil
	}

	s.logger.Debug("album empty, searching", "pin", pin.ID)
	urls, err := s.searcher.Search(ctx, pin.Latitude, pin.Longitude)
	if err != nil {
		return nil, fmt.Errorf("searching photos: %w", err)
	}

	return s.Materialize(pin.ID, urls)
}

// RefreshAlbum replaces a pin's album with a fresh search ("new collection").
// The search runs first; only on success are the old photos deleted and the
// new ones inserted, in one transaction. Returns the presentation changes.
func (s *Service) RefreshAlbum(ctx context.Context, pinID string) ([]Change, error) {
	pin, err := s.GetPin(pinID)
	if err != nil {
		return nil, err
	}

	before, err := s.database.ListPhotos(pin.ID)
	if err != nil {
		return nil, fmt.Errorf("listing photos: %w", err)
	}

	urls, err := s.searcher.Search(ctx, pin.Latitude, pin.Longitude)
	if err != nil {
		return nil, fmt.Errorf("searching photos: %w", err)
	}

	after := s.newPhotos(pin.ID, urls)
	if err := s.database.ReplacePhotos(pin.ID, after); err != nil {
		return nil, fmt.Errorf("replacing photos: %w", err)
	}

	s.logger.Info("album refreshed", "pin", pin.ID, "removed", len(before), "added", len(after))
	return Reconcile(before, after), nil
}

// Materialize creates one payload-less photo per URL for the pin.
func (s *Service) Materialize(pinID string, urls []string) ([]*model.Photo, error) {
	photos := s.newPhotos(pinID, urls)
	if len(photos) == 0 {
		return photos, nil
	}
	if err := s.database.CreatePhotos(photos); err != nil {
		return nil, fmt.Errorf("creating photos: %w", err)
	}
	s.logger.Info("photos materialized", "pin", pinID, "count", len(photos))
	return photos, nil
}

func (s *Service) newPhotos(pinID string, urls []string) []*model.Photo {
	now := s.clock.Now()
	photos := make([]*model.Photo, len(urls))
	for i, u := range urls {
		photos[i] = &model.Photo{
			ID:        s.idgen.New(),
			PinID:     pinID,
			Position:  i,
			URL:       u,
			CreatedAt: now,
		}
	}
	return photos
}

// RemovePhotos deletes the selected photos from a pin's album.
func (s *Service) RemovePhotos(pinID string, ids []string) (int, error) {
	if _, err := s.GetPin(pinID); err != nil {
		return 0, err
	}
	n, err := s.database.DeletePhotos(pinID, ids)
	if err != nil {
		return 0, fmt.Errorf("deleting photos: %w", err)
	}
	s.logger.Info("photos removed", "pin", pinID, "count", n)
	return n, nil
}

// GetHistory returns the most recent journal operations, newest first.
func (s *Service) GetHistory(limit int) ([]*model.Operation, error) {
	ops, err := s.database.ListOperations(limit)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	return ops, nil
}
