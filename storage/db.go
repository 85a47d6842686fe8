// Package storage persists notes, the chat transcript and the memory cache
// under the data directory.
package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"notepilot/config"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB is the SQLite database holding notes and the transcript.
type DB struct {
	db   *sql.DB
	path string
}

// Open migrates and opens the database at path.
func Open(ctx context.Context, path string) (*DB, error) {
	if err := RunMigrations(path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer at a time; concurrent SQLite writers only produce SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	config.Log.Debugf("[Storage] opened %s", path)
	return &DB{db: db, path: path}, nil
}

// RunMigrations applies the embedded schema migrations to the database at path.
func RunMigrations(path string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, "sqlite://"+path)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, dirty, _ := m.Version()
	config.Log.Debugf("[Storage] schema version %d (dirty=%v)", version, dirty)
	return nil
}

// Notes returns the note store backed by this database.
func (d *DB) Notes() *NoteStore {
	return &NoteStore{db: d.db, now: time.Now}
}

// Transcript returns the transcript store backed by this database.
func (d *DB) Transcript() *TranscriptStore {
	return &TranscriptStore{db: d.db}
}

// Path returns the database file path.
func (d *DB) Path() string {
	return d.path
}

func (d *DB) Close() error {
	return d.db.Close()
}

func toUnix(t time.Time) int64 {
	return t.UnixNano()
}

func fromUnix(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}
