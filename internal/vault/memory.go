package vault

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"vt-go/internal/vt"
)

type memorySnapshot struct {
	data    []byte
	version int64
}

// MemoryVault keeps journal snapshots in memory, making it useful for testing.
// This implementation is safe for concurrent use.
type MemoryVault struct {
	name      string
	mu        sync.RWMutex
	snapshots map[string]memorySnapshot // journalID -> snapshot
}

// NewMemoryVault creates a new in-memory vault with the given name.
func NewMemoryVault(name string) *MemoryVault {
	return &MemoryVault{
		name:      name,
		snapshots: make(map[string]memorySnapshot),
	}
}

// PutSnapshot stores the snapshot for a journal.
func (m *MemoryVault) PutSnapshot(journalID string, r io.Reader, size int64, version int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[journalID] = memorySnapshot{data: data, version: version}
	return nil
}

// GetSnapshot writes the stored snapshot for a journal to w.
func (m *MemoryVault) GetSnapshot(journalID string, w io.Writer) error {
	m.mu.RLock()
	snap, ok := m.snapshots[journalID]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: journal %s in vault %s", vt.ErrSnapshotNotFound, journalID, m.name)
	}

	if _, err := io.Copy(w, bytes.NewReader(snap.data)); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// GetSnapshotVersion returns 0 if no snapshot has been stored for the journal.
func (m *MemoryVault) GetSnapshotVersion(journalID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshots[journalID].version, nil
}

// ValidateSetup always succeeds for in-memory vault.
func (m *MemoryVault) ValidateSetup() error {
	return nil
}

var _ vt.Vault = (*MemoryVault)(nil)
