package testutil

import (
	"vt-go/internal/vault"
	"vt-go/internal/vt"
)

// NewTestVault creates a new in-memory vault for testing.
func NewTestVault() vt.Vault {
	return vault.NewMemoryVault("test-vault")
}
