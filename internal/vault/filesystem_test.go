package vault

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vt-go/internal/vt"
)

func TestNewFileSystemVault(t *testing.T) {
	t.Run("creates directory structure", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "vault")

		v, err := NewFileSystemVault("test", root)
		if err != nil {
			t.Fatalf("NewFileSystemVault() error = %v", err)
		}
		if _, err := os.Stat(filepath.Join(root, "snapshots")); err != nil {
			t.Errorf("snapshots directory not created: %v", err)
		}
		if err := v.ValidateSetup(); err != nil {
			t.Errorf("ValidateSetup() error = %v", err)
		}
	})

	t.Run("works with existing directory", func(t *testing.T) {
		if _, err := NewFileSystemVault("test", t.TempDir()); err != nil {
			t.Fatalf("NewFileSystemVault() error = %v", err)
		}
	})
}

func TestFileSystemVault_Snapshot(t *testing.T) {
	t.Run("round trip with version", func(t *testing.T) {
		v, err := NewFileSystemVault("test", t.TempDir())
		if err != nil {
			t.Fatalf("NewFileSystemVault() error = %v", err)
		}

		data := strings.Repeat("snapshot", 100)
		if err := v.PutSnapshot("journal-1", strings.NewReader(data), int64(len(data)), 42); err != nil {
			t.Fatalf("PutSnapshot() error = %v", err)
		}

		var buf bytes.Buffer
		if err := v.GetSnapshot("journal-1", &buf); err != nil {
			t.Fatalf("GetSnapshot() error = %v", err)
		}
		if buf.String() != data {
			t.Errorf("GetSnapshot() returned %d bytes, want %d", buf.Len(), len(data))
		}

		version, err := v.GetSnapshotVersion("journal-1")
		if err != nil {
			t.Fatalf("GetSnapshotVersion() error = %v", err)
		}
		if version != 42 {
			t.Errorf("GetSnapshotVersion() = %d, want 42", version)
		}
	})

	t.Run("size mismatch leaves no file", func(t *testing.T) {
		v, err := NewFileSystemVault("test", t.TempDir())
		if err != nil {
			t.Fatalf("NewFileSystemVault() error = %v", err)
		}

		if err := v.PutSnapshot("journal-1", strings.NewReader("short"), 100, 1); err == nil {
			t.Fatal("PutSnapshot() expected size mismatch error")
		}

		entries, err := os.ReadDir(v.snapshotsDir)
		if err != nil {
			t.Fatalf("ReadDir() error = %v", err)
		}
		if len(entries) != 0 {
			t.Errorf("snapshots dir has %d entries after failed put, want 0", len(entries))
		}
	})

	t.Run("missing snapshot", func(t *testing.T) {
		v, err := NewFileSystemVault("test", t.TempDir())
		if err != nil {
			t.Fatalf("NewFileSystemVault() error = %v", err)
		}

		version, err := v.GetSnapshotVersion("nobody")
		if err != nil || version != 0 {
			t.Errorf("GetSnapshotVersion() = (%d, %v), want (0, nil)", version, err)
		}
		if err := v.GetSnapshot("nobody", &bytes.Buffer{}); !errors.Is(err, vt.ErrSnapshotNotFound) {
			t.Errorf("GetSnapshot() error = %v, want ErrSnapshotNotFound", err)
		}
	})

	t.Run("corrupt version file", func(t *testing.T) {
		v, err := NewFileSystemVault("test", t.TempDir())
		if err != nil {
			t.Fatalf("NewFileSystemVault() error = %v", err)
		}
		if err := os.WriteFile(v.versionPath("j"), []byte("not-a-number"), 0600); err != nil {
			t.Fatal(err)
		}
		if _, err := v.GetSnapshotVersion("j"); err == nil {
			t.Error("GetSnapshotVersion() expected parse error")
		}
	})
}

func TestFileSystemVault_ValidateSetup(t *testing.T) {
	root := t.TempDir()
	v, err := NewFileSystemVault("test", root)
	if err != nil {
		t.Fatalf("NewFileSystemVault() error = %v", err)
	}

	if err := os.RemoveAll(filepath.Join(root, "snapshots")); err != nil {
		t.Fatal(err)
	}
	if err := v.ValidateSetup(); err == nil {
		t.Error("ValidateSetup() expected error after snapshots dir removed")
	}
}
