package vault

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"vt-go/internal/vt"
)

// FileSystemVault stores journal snapshots as files:
//
//	<root>/
//	  snapshots/
//	    <journalID>.db.age    (encrypted snapshot)
//	    <journalID>.version   (operation ID the snapshot was taken at)
type FileSystemVault struct {
	name         string
	root         string
	snapshotsDir string
}

// NewFileSystemVault creates a new filesystem vault rooted at the given path.
func NewFileSystemVault(name, root string) (*FileSystemVault, error) {
	snapshotsDir := filepath.Join(root, "snapshots")
	if err := os.MkdirAll(snapshotsDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create snapshots directory: %w", err)
	}

	return &FileSystemVault{
		name:         name,
		root:         root,
		snapshotsDir: snapshotsDir,
	}, nil
}

func (v *FileSystemVault) snapshotPath(journalID string) string {
	return filepath.Join(v.snapshotsDir, journalID+".db.age")
}

func (v *FileSystemVault) versionPath(journalID string) string {
	return filepath.Join(v.snapshotsDir, journalID+".version")
}

// PutSnapshot stores the snapshot, then its version. A reader never sees a
// version newer than the snapshot next to it.
func (v *FileSystemVault) PutSnapshot(journalID string, r io.Reader, size int64, version int64) error {
	if err := writeAtomic(v.snapshotPath(journalID), r, size); err != nil {
		return err
	}
	versionData := strconv.FormatInt(version, 10)
	if err := writeAtomic(v.versionPath(journalID), strings.NewReader(versionData), int64(len(versionData))); err != nil {
		return fmt.Errorf("writing version: %w", err)
	}
	return nil
}

// GetSnapshot writes the stored snapshot for a journal to w.
func (v *FileSystemVault) GetSnapshot(journalID string, w io.Writer) error {
	f, err := os.Open(v.snapshotPath(journalID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: journal %s in vault %s", vt.ErrSnapshotNotFound, journalID, v.name)
		}
		return fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}
	return nil
}

// GetSnapshotVersion returns 0 if no version file exists.
func (v *FileSystemVault) GetSnapshotVersion(journalID string) (int64, error) {
	data, err := os.ReadFile(v.versionPath(journalID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading version file: %w", err)
	}

	version, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing version: %w", err)
	}
	return version, nil
}

// ValidateSetup verifies that the vault directories are accessible.
func (v *FileSystemVault) ValidateSetup() error {
	for _, dir := range []string{v.root, v.snapshotsDir} {
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("vault directory not accessible: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("vault path is not a directory: %s", dir)
		}
	}
	return nil
}

// writeAtomic writes r to destPath through a temp file in the same directory
// and a rename, failing if the byte count differs from expectedSize.
func writeAtomic(destPath string, r io.Reader, expectedSize int64) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmpFile, r)
	if err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if written != expectedSize {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", expectedSize, written)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	success = true
	return nil
}

var _ vt.Vault = (*FileSystemVault)(nil)
