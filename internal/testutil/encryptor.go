package testutil

import (
	"vt-go/internal/encryption"
	"vt-go/internal/vt"
)

// NewTestEncryptor creates a new test encryptor for testing.
func NewTestEncryptor() vt.Encryptor {
	return encryption.NewTestEncryptor()
}
