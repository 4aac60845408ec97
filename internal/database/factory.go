package database

import (
	"fmt"
	"os"
	"path/filepath"

	"vt-go/internal/config"
)

// JournalPath returns the SQLite file that holds the journal with the given ID.
func JournalPath(cfg config.DatabaseConfig, journalID string) string {
	return filepath.Join(cfg.DataDir, journalID+".db")
}

// NewDatabaseFromConfig creates a journal database based on the database config type.
func NewDatabaseFromConfig(cfg config.DatabaseConfig, journalID string) (*SQLiteDatabase, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite database")
		}
		if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		return NewSQLiteDatabase(JournalPath(cfg, journalID))
	case "memory":
		return NewSQLiteDatabase(":memory:")
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
