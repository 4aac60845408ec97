package encryption

import (
	"bytes"
	"errors"
	"testing"

	"vt-go/internal/config"
)

func TestTestEncryptor_RoundTrip(t *testing.T) {
	e := NewTestEncryptor()
	input := []byte("SQLite format 3\x00")

	var encrypted bytes.Buffer
	if err := e.Encrypt(bytes.NewReader(input), &encrypted); err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if !bytes.HasPrefix(encrypted.Bytes(), snapshotMagic) {
		t.Errorf("encrypted output missing magic: %q", encrypted.Bytes())
	}

	dctx, err := e.Unlock("anything")
	if err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	var decrypted bytes.Buffer
	if err := dctx.Decrypt(&encrypted, &decrypted); err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if !bytes.Equal(decrypted.Bytes(), input) {
		t.Errorf("Decrypt() = %q, want %q", decrypted.Bytes(), input)
	}
}

func TestTestEncryptor_Passphrase(t *testing.T) {
	e := NewTestEncryptor()
	if err := e.Setup("secret"); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	if _, err := e.Unlock("wrong"); !errors.Is(err, ErrWrongPassphrase) {
		t.Errorf("Unlock(wrong) error = %v, want ErrWrongPassphrase", err)
	}
	if _, err := e.Unlock("secret"); err != nil {
		t.Errorf("Unlock(secret) error = %v", err)
	}
}

func TestTestDecryptionContext_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
	}{
		{name: "wrong magic", input: []byte("SQLite format 3\x00")},
		{name: "truncated", input: snapshotMagic[:3]},
		{name: "empty", input: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := (&TestDecryptionContext{}).Decrypt(bytes.NewReader(tt.input), &out)
			if !errors.Is(err, errNotTestSnapshot) {
				t.Errorf("Decrypt() error = %v, want errNotTestSnapshot", err)
			}
		})
	}
}

func TestPlainEncryptor(t *testing.T) {
	input := []byte("plain snapshot")
	var out bytes.Buffer
	if err := (PlainEncryptor{}).Encrypt(bytes.NewReader(input), &out); err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	if !bytes.Equal(out.Bytes(), input) {
		t.Errorf("Encrypt() = %q, want passthrough", out.Bytes())
	}

	dctx, err := PlainEncryptor{}.Unlock("")
	if err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	var back bytes.Buffer
	if err := dctx.Decrypt(&out, &back); err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if !bytes.Equal(back.Bytes(), input) {
		t.Errorf("Decrypt() = %q, want %q", back.Bytes(), input)
	}
}

func TestNewEncryptorFromConfig(t *testing.T) {
	tests := []struct {
		typ     string
		wantErr bool
	}{
		{typ: "", wantErr: false},
		{typ: "age", wantErr: false},
		{typ: "none", wantErr: false},
		{typ: "test", wantErr: false},
		{typ: "rot13", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			enc, err := NewEncryptorFromConfig(config.EncryptionConfig{Type: tt.typ})
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewEncryptorFromConfig(%q) error = %v, wantErr %v", tt.typ, err, tt.wantErr)
			}
			if !tt.wantErr && enc == nil {
				t.Errorf("NewEncryptorFromConfig(%q) returned nil", tt.typ)
			}
		})
	}
}
