package vt

import (
	"errors"
	"io"
)

// ErrSnapshotNotFound is returned by GetSnapshot when the journal has no snapshot.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Vault stores versioned journal snapshots off the machine.
type Vault interface {
	// PutSnapshot stores the snapshot for a journal, replacing any previous one.
	// size is the number of bytes that will be read from r.
	// version is stored alongside the snapshot for consistency checks.
	PutSnapshot(journalID string, r io.Reader, size int64, version int64) error

	// GetSnapshot writes the stored snapshot for a journal to w.
	GetSnapshot(journalID string, w io.Writer) error

	// GetSnapshotVersion returns the stored snapshot version, or 0 if none exists.
	GetSnapshotVersion(journalID string) (int64, error)

	// ValidateSetup verifies that the vault is accessible and properly configured.
	ValidateSetup() error
}
