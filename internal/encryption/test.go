package encryption

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"vt-go/internal/vt"
)

// snapshotMagic marks snapshots written by TestEncryptor.
var snapshotMagic = []byte("VTSNAP\x00\x01")

// TestEncryptor frames snapshots with a fixed magic prefix instead of
// encrypting them. Output differs from the plaintext and decodes without
// keys, so journal backup and restore can be tested without age.
type TestEncryptor struct {
	passphrase string
}

var _ vt.Encryptor = (*TestEncryptor)(nil)

func NewTestEncryptor() *TestEncryptor {
	return &TestEncryptor{}
}

// Setup records the passphrase so Unlock can check it.
func (e *TestEncryptor) Setup(passphrase string) error {
	e.passphrase = passphrase
	return nil
}

func (e *TestEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := w.Write(snapshotMagic); err != nil {
		return fmt.Errorf("writing snapshot magic: %w", err)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying snapshot: %w", err)
	}
	return nil
}

// Unlock accepts any passphrase unless Setup was called with a non-empty one.
func (e *TestEncryptor) Unlock(passphrase string) (vt.DecryptionContext, error) {
	if e.passphrase != "" && passphrase != e.passphrase {
		return nil, ErrWrongPassphrase
	}
	return &TestDecryptionContext{}, nil
}

func (e *TestEncryptor) IsConfigured() bool {
	return true
}

// TestDecryptionContext strips the magic added by TestEncryptor.
type TestDecryptionContext struct{}

var _ vt.DecryptionContext = (*TestDecryptionContext)(nil)

var errNotTestSnapshot = errors.New("not a test-encrypted snapshot")

func (c *TestDecryptionContext) Decrypt(r io.Reader, w io.Writer) error {
	magic := make([]byte, len(snapshotMagic))
	if _, err := io.ReadFull(r, magic); err != nil {
		return fmt.Errorf("%w: %v", errNotTestSnapshot, err)
	}
	if !bytes.Equal(magic, snapshotMagic) {
		return errNotTestSnapshot
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("copying snapshot: %w", err)
	}
	return nil
}
