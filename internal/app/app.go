package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"vt-go/internal/config"
	"vt-go/internal/database"
	"vt-go/internal/encryption"
	"vt-go/internal/flickr"
	"vt-go/internal/geocode"
	"vt-go/internal/imagefetch"
	"vt-go/internal/model"
	"vt-go/internal/vault"
	"vt-go/internal/vt"
)

// flickrBurst lets a short series of searches through before pacing kicks in.
const flickrBurst = 5

// VTApp is the application layer between the CLI and vt.Service.
// It constructs all dependencies from config, exposes the journal operations
// the CLI needs, and snapshots the journal to the vaults on Close.
type VTApp struct {
	cfg       *config.Config
	db        *database.SQLiteDatabase
	vaults    []vt.Vault
	encryptor vt.Encryptor
	service   *vt.Service
	op        *Operation
	logger    *slog.Logger
	logFile   *os.File
}

// NewVTApp creates a fully wired VTApp from the given config.
// operation identifies the CLI command being run (e.g. "pin add", "album refresh").
// The caller must call Close when done.
func NewVTApp(ctx context.Context, cfg *config.Config, operation, parameters string) (*VTApp, error) {
	vaults := make([]vt.Vault, 0, len(cfg.Vaults))
	for _, vc := range cfg.Vaults {
		v, err := vault.NewVaultFromConfig(ctx, vc)
		if err != nil {
			return nil, fmt.Errorf("creating vault %q: %w", vc.Name, err)
		}
		vaults = append(vaults, v)
	}

	db, err := database.NewDatabaseFromConfig(cfg.Database, cfg.JournalID)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	if err := db.CheckMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal schema out of date (run `vt db migrate`): %w", err)
	}

	if err := checkRemoteVersions(db, vaults, cfg.JournalID); err != nil {
		db.Close()
		return nil, err
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	geocoder, err := geocode.NewGeocoderFromConfig(cfg.Geocoder, seconds(cfg.Flickr.TimeoutSeconds))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating geocoder: %w", err)
	}

	opID := time.Now().UTC().Format("20060102T150405Z")
	logger, logFile, err := newLogger(cfg.LogDir, opID, cfg.LogLevel)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	searcher := flickr.NewClient(cfg.Flickr.APIKey,
		flickr.WithBaseURL(cfg.Flickr.BaseURL),
		flickr.WithHTTPClient(&http.Client{Timeout: seconds(cfg.Flickr.TimeoutSeconds)}),
		flickr.WithHalfSize(cfg.Flickr.HalfWidth, cfg.Flickr.HalfHeight),
		flickr.WithRateLimit(cfg.Flickr.RequestsPerSecond, flickrBurst),
	)
	fetcher := imagefetch.NewHTTPFetcher(seconds(cfg.Download.TimeoutSeconds), cfg.Download.MaxBytes, nil)

	svc := vt.NewService(db, searcher, fetcher, geocoder, &slogAdapter{l: logger}, vt.RealClock{}, vt.UUIDGenerator{})
	svc.SetDownloadConcurrency(cfg.Download.Concurrency)

	return &VTApp{
		cfg:       cfg,
		db:        db,
		vaults:    vaults,
		encryptor: enc,
		service:   svc,
		op:        NewOperation(operation, parameters),
		logger:    logger,
		logFile:   logFile,
	}, nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// checkRemoteVersions refuses to open a journal that is behind a snapshot
// already stored in any vault.
func checkRemoteVersions(db vt.Database, vaults []vt.Vault, journalID string) error {
	if len(vaults) == 0 {
		return nil
	}
	localMax, err := db.MaxOperationID()
	if err != nil {
		return fmt.Errorf("checking local journal version: %w", err)
	}
	for _, v := range vaults {
		remote, err := v.GetSnapshotVersion(journalID)
		if err != nil {
			return fmt.Errorf("checking remote journal version: %w", err)
		}
		if remote > localMax {
			return fmt.Errorf("local journal is behind remote (local=%d, remote=%d): run `vt restore`", localMax, remote)
		}
	}
	return nil
}

// MigrateJournal applies all pending schema migrations to the configured journal.
func MigrateJournal(cfg *config.Config) error {
	db, err := database.NewDatabaseFromConfig(cfg.Database, cfg.JournalID)
	if err != nil {
		return fmt.Errorf("creating database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrating journal: %w", err)
	}
	return nil
}

// persistOperation saves the operation to the journal, giving it an auto-increment ID.
// This should only be called for journal-mutating commands.
func (a *VTApp) persistOperation() error {
	if a.op.Persisted() {
		return nil
	}
	dbOp, err := a.db.CreateOperation(a.op.Operation, a.op.Parameters)
	if err != nil {
		return fmt.Errorf("persisting operation: %w", err)
	}
	a.op.ID = dbOp.ID
	return nil
}

// mutate runs fn as part of the persisted operation and records its outcome.
func (a *VTApp) mutate(fn func() error) error {
	if err := a.persistOperation(); err != nil {
		return err
	}
	return a.op.Fail(fn())
}

// AddPin drops a pin at the coordinate.
func (a *VTApp) AddPin(ctx context.Context, latitude, longitude float64) (*model.Pin, error) {
	var pin *model.Pin
	err := a.mutate(func() (err error) {
		pin, err = a.service.AddPin(ctx, latitude, longitude)
		return err
	})
	return pin, err
}

// ListPins returns every pin in the journal.
func (a *VTApp) ListPins() ([]*model.Pin, error) {
	return a.service.ListPins()
}

// GetPin returns a single pin.
func (a *VTApp) GetPin(id string) (*model.Pin, error) {
	return a.service.GetPin(id)
}

// RemovePin deletes a pin and its album.
func (a *VTApp) RemovePin(id string) error {
	return a.mutate(func() error {
		return a.service.RemovePin(id)
	})
}

// Album returns a pin's photos, searching for them first if the album is empty.
func (a *VTApp) Album(ctx context.Context, pinID string) ([]*model.Photo, error) {
	var photos []*model.Photo
	err := a.mutate(func() (err error) {
		photos, err = a.service.Album(ctx, pinID)
		return err
	})
	return photos, err
}

// RefreshAlbum replaces a pin's album with a new search result.
func (a *VTApp) RefreshAlbum(ctx context.Context, pinID string) ([]vt.Change, error) {
	var changes []vt.Change
	err := a.mutate(func() (err error) {
		changes, err = a.service.RefreshAlbum(ctx, pinID)
		return err
	})
	return changes, err
}

// DownloadAlbum fetches every missing payload of a pin's album.
func (a *VTApp) DownloadAlbum(ctx context.Context, pinID string, notify func(*model.Photo)) (int, error) {
	var n int
	err := a.mutate(func() (err error) {
		n, err = a.service.LoadAlbumData(ctx, pinID, notify)
		return err
	})
	return n, err
}

// RemovePhotos deletes the selected photos from a pin's album.
func (a *VTApp) RemovePhotos(pinID string, ids []string) (int, error) {
	var n int
	err := a.mutate(func() (err error) {
		n, err = a.service.RemovePhotos(pinID, ids)
		return err
	})
	return n, err
}

// ErrNoPayload is returned by SavePhoto when the payload could not be downloaded.
var ErrNoPayload = errors.New("photo has no payload")

// SavePhoto writes a photo's payload to path, downloading it first if
// needed. With width > 0 the image is resized.
func (a *VTApp) SavePhoto(ctx context.Context, photoID, path string, width int) error {
	return a.mutate(func() error {
		photo, err := a.service.LoadPhotoData(ctx, photoID)
		if err != nil {
			return err
		}
		if !photo.HasData() {
			return fmt.Errorf("%w: %s", ErrNoPayload, photoID)
		}
		return imagefetch.Export(photo.Data, path, width)
	})
}

// Viewport returns the last saved map viewport.
func (a *VTApp) Viewport() (model.Viewport, error) {
	return a.service.Viewport()
}

// SaveViewport persists the map viewport.
func (a *VTApp) SaveViewport(v model.Viewport) error {
	return a.mutate(func() error {
		return a.service.SaveViewport(v)
	})
}

// GetHistory returns the most recent journal operations.
func (a *VTApp) GetHistory(limit int) ([]*model.Operation, error) {
	return a.service.GetHistory(limit)
}

// Close finalizes the operation and closes all resources.
// For persisted operations: finishes the operation record, snapshots the
// journal, and uploads the encrypted snapshot to every vault.
// For non-persisted operations: just closes the database.
func (a *VTApp) Close() error {
	var errs []error

	if a.op.Persisted() {
		if err := a.db.FinishOperation(a.op.ID, a.op.Status); err != nil {
			errs = append(errs, fmt.Errorf("finishing operation: %w", err))
		}
		if len(a.vaults) > 0 {
			if err := a.uploadSnapshot(); err != nil {
				errs = append(errs, err)
			}
		}
	}

	if err := a.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing database: %w", err))
	}
	if a.logFile != nil {
		a.logFile.Close()
	}

	return errors.Join(errs...)
}
