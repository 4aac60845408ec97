package vt

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"vt-go/internal/model"
)

// GetPhoto returns the photo with the given ID without loading its payload.
func (s *Service) GetPhoto(id string) (*model.Photo, error) {
	photo, err := s.database.FindPhoto(id)
	if err != nil {
		return nil, fmt.Errorf("finding photo: %w", err)
	}
	if photo == nil {
		return nil, fmt.Errorf("%w: %s", ErrPhotoNotFound, id)
	}
	return photo, nil
}

// LoadPhotoData returns the photo with its payload, downloading it first if
// it has none. Concurrent calls for the same photo share one download.
//
// A failed download is not an error: it is logged and the photo is returned
// without payload, so a later call retries.
func (s *Service) LoadPhotoData(ctx context.Context, id string) (*model.Photo, error) {
	photo, err := s.GetPhoto(id)
	if err != nil {
		return nil, err
	}
	if photo.HasData() || photo.URL == "" {
		return photo, nil
	}

	v, err, _ := s.loads.Do(photo.ID, func() (any, error) {
		return s.fetchAndStore(ctx, photo)
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.Photo), nil
}

// fetchAndStore downloads the payload and writes it if the row is still empty.
// Only database errors are returned; fetch failures yield the photo unchanged.
func (s *Service) fetchAndStore(ctx context.Context, photo *model.Photo) (*model.Photo, error) {
	img, err := s.fetcher.Fetch(ctx, photo.URL)
	if err != nil {
		s.logger.Warn("photo download failed", "photo", photo.ID, "url", photo.URL, "error", err)
		return photo, nil
	}

	stored, err := s.database.StorePhotoData(photo.ID, img.Data, img.Width, img.Height, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("storing photo data: %w", err)
	}
	if !stored {
		s.logger.Debug("photo data already present", "photo", photo.ID)
	}

	// Re-read so a payload written elsewhere wins over ours.
	current, err := s.database.FindPhoto(photo.ID)
	if err != nil {
		return nil, fmt.Errorf("finding photo: %w", err)
	}
	if current == nil {
		return nil, fmt.Errorf("%w: %s", ErrPhotoNotFound, photo.ID)
	}
	return current, nil
}

// LoadAlbumData downloads every missing payload of a pin's album, at most
// the configured concurrency at a time. Each photo whose payload is now
// present is passed to notify; calls to notify never overlap. Returns the
// number of photos that gained a payload.
func (s *Service) LoadAlbumData(ctx context.Context, pinID string, notify func(*model.Photo)) (int, error) {
	if _, err := s.GetPin(pinID); err != nil {
		return 0, err
	}

	photos, err := s.database.ListPhotos(pinID)
	if err != nil {
		return 0, fmt.Errorf("listing photos: %w", err)
	}

	var (
		mu     sync.Mutex
		loaded atomic.Int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, p := range photos {
		if p.HasData() || p.URL == "" {
			continue
		}
		g.Go(func() error {
			photo, err := s.LoadPhotoData(gctx, p.ID)
			if err != nil {
				return err
			}
			if !photo.HasData() {
				return nil
			}
			loaded.Add(1)
			if notify != nil {
				mu.Lock()
				notify(photo)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(loaded.Load()), err
	}

	s.logger.Info("album data loaded", "pin", pinID, "count", loaded.Load())
	return int(loaded.Load()), nil
}
