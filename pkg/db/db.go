package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// DefaultPath is where the workbench keeps users, saved strategies and
// paper trades unless DB_PATH says otherwise.
const DefaultPath = "./data/algoblocks.db"

const memoryPath = ":memory:"

// Database holds the workbench's SQLite handle.
type Database struct {
	DB   *sql.DB
	Path string
}

// New opens the workbench database at path, creating its directory. The
// special path ":memory:" opens a private in-memory database for tests.
func New(path string) (*Database, error) {
	if path == "" {
		return nil, errors.New("workbench database path is empty (set DB_PATH)")
	}

	dsn := path
	if path != memoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create workbench db directory for %s: %w", path, err)
		}
		// Concurrent saves and paper trades wait instead of failing with SQLITE_BUSY.
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open workbench db %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if path != memoryPath {
		// An in-memory database lives only as long as its one connection.
		db.SetConnMaxLifetime(time.Hour)
	}

	return &Database{DB: db, Path: path}, nil
}

// Ping reports whether the database answers.
func (d *Database) Ping(ctx context.Context) error {
	if d == nil || d.DB == nil {
		return errors.New("workbench db not open")
	}
	return d.DB.PingContext(ctx)
}

// Close releases the underlying DB handle.
func (d *Database) Close() error {
	if d == nil || d.DB == nil {
		return nil
	}
	return d.DB.Close()
}
