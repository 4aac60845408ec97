package vt

import "io"

// Encryptor encrypts journal snapshots before they leave the machine.
// Encryption needs only the public key; decryption needs the private key,
// which is unlocked with a passphrase.
type Encryptor interface {
	// Setup generates a key pair and protects the private key with passphrase.
	Setup(passphrase string) error

	// Encrypt encrypts data read from r and writes ciphertext to w.
	Encrypt(r io.Reader, w io.Writer) error

	// Unlock decrypts the private key and returns a context for decrypting
	// snapshots during this session.
	Unlock(passphrase string) (DecryptionContext, error)

	// IsConfigured returns true if the keys exist.
	IsConfigured() bool
}

// DecryptionContext holds an unlocked private key in memory.
type DecryptionContext interface {
	Decrypt(r io.Reader, w io.Writer) error
}
