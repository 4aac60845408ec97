package vt

import (
	"time"

	"vt-go/internal/model"
)

// Database provides an interface for journal storage operations.
// Lookups return (nil, nil) when the record does not exist.
type Database interface {
	// Pin operations

	// CreatePin inserts a new pin.
	CreatePin(pin *model.Pin) error

	// FindPin returns a pin by ID.
	FindPin(id string) (*model.Pin, error)

	// ListPins returns all pins, oldest first.
	ListPins() ([]*model.Pin, error)

	// DeletePin deletes a pin and, through the foreign key, all of its photos.
	DeletePin(id string) error

	// Photo operations

	// ListPhotos returns a pin's photos ordered by position.
	ListPhotos(pinID string) ([]*model.Photo, error)

	// FindPhoto returns a photo by ID.
	FindPhoto(id string) (*model.Photo, error)

	// CreatePhotos inserts a batch of photos in a single transaction.
	CreatePhotos(photos []*model.Photo) error

	// ReplacePhotos deletes every photo of the pin and inserts photos,
	// all in one transaction.
	ReplacePhotos(pinID string, photos []*model.Photo) error

	// DeletePhotos deletes the given photos of a pin and returns how many were removed.
	DeletePhotos(pinID string, ids []string) (int, error)

	// StorePhotoData sets the payload of a photo that has none yet.
	// Returns false if the photo already had a payload or does not exist.
	StorePhotoData(id string, data []byte, width, height int, fetchedAt time.Time) (bool, error)

	// Settings

	// GetSetting returns the value stored under key and whether it exists.
	GetSetting(key string) (string, bool, error)

	// PutSettings writes all key/value pairs in one transaction.
	PutSettings(values map[string]string) error

	// Operation tracking

	CreateOperation(operation string, parameters string) (*model.Operation, error)
	FinishOperation(id int64, status string) error
	ListOperations(limit int) ([]*model.Operation, error)
	MaxOperationID() (int64, error)

	// BackupTo writes a complete copy of the journal to destPath.
	BackupTo(destPath string) error

	// Close closes the database connection.
	Close() error
}
