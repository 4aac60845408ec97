package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"vt-go/internal/config"
	"vt-go/internal/database"
	"vt-go/internal/encryption"
	"vt-go/internal/vault"
	"vt-go/internal/vt"
)

// ErrJournalExists is returned by RestoreJournal when a local journal is
// present and the caller did not ask to overwrite it.
var ErrJournalExists = errors.New("local journal already exists")

// uploadSnapshot copies the journal, encrypts the copy, and stores it in
// every vault with the operation ID as its version.
func (a *VTApp) uploadSnapshot() error {
	tmpDir, err := os.MkdirTemp("", "vt-snapshot-*")
	if err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	plain := filepath.Join(tmpDir, "journal.db")
	if err := a.db.BackupTo(plain); err != nil {
		return fmt.Errorf("backing up journal: %w", err)
	}

	sealed := filepath.Join(tmpDir, "journal.db.enc")
	if err := transformFile(plain, sealed, a.encryptor.Encrypt); err != nil {
		return fmt.Errorf("encrypting snapshot: %w", err)
	}

	var errs []error
	for _, v := range a.vaults {
		if err := putSnapshot(v, a.cfg.JournalID, sealed, a.op.ID); err != nil {
			errs = append(errs, err)
			continue
		}
		a.logger.Debug("snapshot uploaded", "version", a.op.ID)
	}
	return errors.Join(errs...)
}

func putSnapshot(v vt.Vault, journalID, path string, version int64) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening snapshot for upload: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat snapshot: %w", err)
	}

	if err := v.PutSnapshot(journalID, f, info.Size(), version); err != nil {
		return fmt.Errorf("uploading snapshot to vault: %w", err)
	}
	return nil
}

func getSnapshot(v vt.Vault, journalID, path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0600)
	if err != nil {
		return err
	}
	if err := v.GetSnapshot(journalID, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// transformFile streams src through fn into a new file at dst.
func transformFile(src, dst string, fn func(io.Reader, io.Writer) error) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0600)
	if err != nil {
		return err
	}
	if err := fn(in, out); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// SetupKeys generates the snapshot encryption key pair.
func SetupKeys(cfg *config.Config, passphrase string) error {
	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return fmt.Errorf("creating encryptor: %w", err)
	}
	return enc.Setup(passphrase)
}

// RestoreJournal replaces the local journal with the snapshot stored in the
// first configured vault and returns the restored version. The snapshot is
// decrypted and checked before it replaces anything.
func RestoreJournal(ctx context.Context, cfg *config.Config, passphrase string, force bool) (int64, error) {
	if len(cfg.Vaults) == 0 {
		return 0, errors.New("no vaults configured")
	}
	if cfg.Database.Type != "sqlite" {
		return 0, fmt.Errorf("cannot restore into a %q database", cfg.Database.Type)
	}

	dest := database.JournalPath(cfg.Database, cfg.JournalID)
	if _, err := os.Stat(dest); err == nil && !force {
		return 0, fmt.Errorf("%w: %s", ErrJournalExists, dest)
	}

	v, err := vault.NewVaultFromConfig(ctx, cfg.Vaults[0])
	if err != nil {
		return 0, fmt.Errorf("creating vault: %w", err)
	}
	version, err := v.GetSnapshotVersion(cfg.JournalID)
	if err != nil {
		return 0, fmt.Errorf("checking snapshot version: %w", err)
	}
	if version == 0 {
		return 0, fmt.Errorf("%w: journal %s", vt.ErrSnapshotNotFound, cfg.JournalID)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		return 0, fmt.Errorf("creating encryptor: %w", err)
	}
	dctx, err := enc.Unlock(passphrase)
	if err != nil {
		return 0, fmt.Errorf("unlocking private key: %w", err)
	}

	if err := os.MkdirAll(cfg.Database.DataDir, 0700); err != nil {
		return 0, fmt.Errorf("creating data directory: %w", err)
	}
	tmpDir, err := os.MkdirTemp(cfg.Database.DataDir, ".restore-*")
	if err != nil {
		return 0, fmt.Errorf("creating restore directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	sealed := filepath.Join(tmpDir, "journal.db.enc")
	if err := getSnapshot(v, cfg.JournalID, sealed); err != nil {
		return 0, fmt.Errorf("downloading snapshot: %w", err)
	}

	plain := filepath.Join(tmpDir, "journal.db")
	if err := transformFile(sealed, plain, dctx.Decrypt); err != nil {
		return 0, fmt.Errorf("decrypting snapshot: %w", err)
	}
	if err := checkSnapshot(plain); err != nil {
		return 0, err
	}

	if err := os.Rename(plain, dest); err != nil {
		return 0, fmt.Errorf("replacing journal: %w", err)
	}
	return version, nil
}

// checkSnapshot opens a restored journal and verifies its schema.
func checkSnapshot(path string) error {
	db, err := database.NewSQLiteDatabase(path)
	if err != nil {
		return fmt.Errorf("opening restored journal: %w", err)
	}
	defer db.Close()

	if err := db.CheckMigrations(); err != nil {
		return fmt.Errorf("restored journal is not usable: %w", err)
	}
	return nil
}

// CheckVaults verifies that every configured vault is reachable.
func CheckVaults(ctx context.Context, cfg *config.Config) error {
	if len(cfg.Vaults) == 0 {
		return errors.New("no vaults configured")
	}
	var errs []error
	for _, vc := range cfg.Vaults {
		v, err := vault.NewVaultFromConfig(ctx, vc)
		if err == nil {
			err = v.ValidateSetup()
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("vault %q: %w", vc.Name, err))
		}
	}
	return errors.Join(errs...)
}
