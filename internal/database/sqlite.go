package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"vt-go/internal/database/migrations"
	"vt-go/internal/model"
	"vt-go/internal/vt"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteDatabase implements the journal Database interface using SQLite.
type SQLiteDatabase struct {
	db   *sql.DB
	path string
}

// NewSQLiteDatabase creates a new SQLite database connection.
// path can be a file path or ":memory:" for in-memory database.
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteDatabase{db: db, path: path}, nil
}

// NewSQLiteDatabaseFromDB wraps an existing database connection.
// The caller is responsible for ensuring the connection is properly configured.
func NewSQLiteDatabaseFromDB(db *sql.DB) *SQLiteDatabase {
	return &SQLiteDatabase{db: db}
}

// OpenConnection opens and configures a SQLite database connection with appropriate PRAGMAs.
// path can be a file path or ":memory:" for in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: every write is serialized, and ":memory:" stays a
	// single database instead of one per pooled connection.
	db.SetMaxOpenConns(1)

	// Enable foreign key constraints (SQLite default is OFF for backward compatibility)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// Pin operations

func (s *SQLiteDatabase) CreatePin(pin *model.Pin) error {
	_, err := s.db.Exec(
		"INSERT INTO pins (id, latitude, longitude, title, created_at) VALUES (?, ?, ?, ?, ?)",
		pin.ID, pin.Latitude, pin.Longitude, pin.Title, pin.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting pin: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) FindPin(id string) (*model.Pin, error) {
	row := s.db.QueryRow("SELECT id, latitude, longitude, title, created_at FROM pins WHERE id = ?", id)

	var pin model.Pin
	if err := row.Scan(&pin.ID, &pin.Latitude, &pin.Longitude, &pin.Title, &pin.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding pin: %w", err)
	}
	return &pin, nil
}

func (s *SQLiteDatabase) ListPins() ([]*model.Pin, error) {
	rows, err := s.db.Query("SELECT id, latitude, longitude, title, created_at FROM pins ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("listing pins: %w", err)
	}
	defer rows.Close()

	var pins []*model.Pin
	for rows.Next() {
		var pin model.Pin
		if err := rows.Scan(&pin.ID, &pin.Latitude, &pin.Longitude, &pin.Title, &pin.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning pin: %w", err)
		}
		pins = append(pins, &pin)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing pins: %w", err)
	}
	return pins, nil
}

func (s *SQLiteDatabase) DeletePin(id string) error {
	if _, err := s.db.Exec("DELETE FROM pins WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting pin: %w", err)
	}
	return nil
}

// Photo operations

const photoColumns = "id, pin_id, position, url, data, width, height, created_at, fetched_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPhoto(row rowScanner) (*model.Photo, error) {
	var p model.Photo
	if err := row.Scan(&p.ID, &p.PinID, &p.Position, &p.URL, &p.Data, &p.Width, &p.Height, &p.CreatedAt, &p.FetchedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *SQLiteDatabase) ListPhotos(pinID string) ([]*model.Photo, error) {
	rows, err := s.db.Query("SELECT "+photoColumns+" FROM photos WHERE pin_id = ? ORDER BY position, id", pinID)
	if err != nil {
		return nil, fmt.Errorf("listing photos: %w", err)
	}
	defer rows.Close()

	var photos []*model.Photo
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning photo: %w", err)
		}
		photos = append(photos, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing photos: %w", err)
	}
	return photos, nil
}

func (s *SQLiteDatabase) FindPhoto(id string) (*model.Photo, error) {
	p, err := scanPhoto(s.db.QueryRow("SELECT "+photoColumns+" FROM photos WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding photo: %w", err)
	}
	return p, nil
}

func (s *SQLiteDatabase) CreatePhotos(photos []*model.Photo) error {
	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertPhotos(tx, photos); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) ReplacePhotos(pinID string, photos []*model.Photo) error {
	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM photos WHERE pin_id = ?", pinID); err != nil {
		return fmt.Errorf("deleting photos: %w", err)
	}
	for _, p := range photos {
		if p.PinID != pinID {
			return fmt.Errorf("photo %s belongs to pin %s, not %s", p.ID, p.PinID, pinID)
		}
	}
	if err := insertPhotos(tx, photos); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func insertPhotos(tx *sql.Tx, photos []*model.Photo) error {
	stmt, err := tx.Prepare("INSERT INTO photos (" + photoColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing photo insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range photos {
		_, err := stmt.Exec(p.ID, p.PinID, p.Position, p.URL, p.Data, p.Width, p.Height, p.CreatedAt, p.FetchedAt)
		if err != nil {
			return fmt.Errorf("inserting photo %s: %w", p.ID, err)
		}
	}
	return nil
}

func (s *SQLiteDatabase) DeletePhotos(pinID string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	args := make([]any, 0, len(ids)+1)
	args = append(args, pinID)
	for _, id := range ids {
		args = append(args, id)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")

	res, err := s.db.Exec("DELETE FROM photos WHERE pin_id = ? AND id IN ("+placeholders+")", args...)
	if err != nil {
		return 0, fmt.Errorf("deleting photos: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted photos: %w", err)
	}
	return int(n), nil
}

func (s *SQLiteDatabase) StorePhotoData(id string, data []byte, width, height int, fetchedAt time.Time) (bool, error) {
	if data == nil {
		data = []byte{}
	}
	res, err := s.db.Exec(
		"UPDATE photos SET data = ?, width = ?, height = ?, fetched_at = ? WHERE id = ? AND data IS NULL",
		data, width, height, fetchedAt, id,
	)
	if err != nil {
		return false, fmt.Errorf("storing photo data: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("storing photo data: %w", err)
	}
	return n == 1, nil
}

// Settings

func (s *SQLiteDatabase) GetSetting(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("reading setting %s: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLiteDatabase) PutSettings(values map[string]string) error {
	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	for k, v := range values {
		_, err := tx.Exec(
			"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
			k, v,
		)
		if err != nil {
			return fmt.Errorf("writing setting %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Operation tracking

func (s *SQLiteDatabase) CreateOperation(operation string, parameters string) (*model.Operation, error) {
	op := &model.Operation{
		Operation:  operation,
		Parameters: parameters,
		StartedAt:  time.Now(),
		Status:     "running",
	}
	res, err := s.db.Exec(
		"INSERT INTO operations (operation, parameters, started_at, status) VALUES (?, ?, ?, ?)",
		op.Operation, op.Parameters, op.StartedAt, op.Status,
	)
	if err != nil {
		return nil, fmt.Errorf("creating operation: %w", err)
	}
	op.ID, err = res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("creating operation: %w", err)
	}
	return op, nil
}

func (s *SQLiteDatabase) FinishOperation(id int64, status string) error {
	_, err := s.db.Exec(
		"UPDATE operations SET finished_at = ?, status = ? WHERE id = ?",
		sql.NullTime{Time: time.Now(), Valid: true}, status, id,
	)
	if err != nil {
		return fmt.Errorf("finishing operation: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) ListOperations(limit int) ([]*model.Operation, error) {
	rows, err := s.db.Query(
		"SELECT id, operation, parameters, started_at, finished_at, status FROM operations ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	defer rows.Close()

	var ops []*model.Operation
	for rows.Next() {
		var op model.Operation
		if err := rows.Scan(&op.ID, &op.Operation, &op.Parameters, &op.StartedAt, &op.FinishedAt, &op.Status); err != nil {
			return nil, fmt.Errorf("scanning operation: %w", err)
		}
		ops = append(ops, &op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	return ops, nil
}

func (s *SQLiteDatabase) MaxOperationID() (int64, error) {
	var id int64
	if err := s.db.QueryRow("SELECT COALESCE(MAX(id), 0) FROM operations").Scan(&id); err != nil {
		return 0, fmt.Errorf("getting max operation ID: %w", err)
	}
	return id, nil
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// Migrate brings the journal schema to the latest version.
func (s *SQLiteDatabase) Migrate() error {
	return migrations.MigrateUp(s.db)
}

// CheckMigrations verifies the journal schema is up-to-date.
func (s *SQLiteDatabase) CheckMigrations() error {
	return migrations.CheckDBMigrationStatus(s.db)
}

// BackupTo creates a complete copy of the database at destPath using VACUUM INTO.
func (s *SQLiteDatabase) BackupTo(destPath string) error {
	if _, err := s.db.Exec("VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("backing up database: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

var _ vt.Database = (*SQLiteDatabase)(nil)
