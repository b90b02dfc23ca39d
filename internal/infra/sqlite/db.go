// Package sqlite persists GIS models as relational SQLite artifacts.
// Each artifact is a single database file written in one transaction and
// moved into place only after it commits.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)
)

// Options configures how artifacts are written.
type Options struct {
	// Synchronous is the SQLite synchronous pragma: OFF, NORMAL, FULL or EXTRA.
	Synchronous string
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{Synchronous: "NORMAL"}
}

func (o Options) synchronous() (string, error) {
	if o.Synchronous == "" {
		return "NORMAL", nil
	}
	mode := strings.ToUpper(o.Synchronous)
	switch mode {
	case "OFF", "NORMAL", "FULL", "EXTRA":
		return mode, nil
	default:
		return "", fmt.Errorf("invalid synchronous mode %q", o.Synchronous)
	}
}

// openStore creates a brand-new database file at path. It refuses to open an
// existing file so a fresh artifact is never merged into an old one.
func openStore(ctx context.Context, path string, opts Options) (*sql.DB, error) {
	syncMode, err := opts.synchronous()
	if err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create artifact file: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("create artifact file: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// One connection: pragmas are per-connection and the writer is single-threaded.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = DELETE",
		"PRAGMA synchronous = " + syncMode,
		"PRAGMA foreign_keys = ON",
		"PRAGMA encoding = 'UTF-8'",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", p, err)
		}
	}
	return db, nil
}

// openReadOnly opens an existing artifact without any ability to modify it.
func openReadOnly(ctx context.Context, path string) (*sql.DB, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	db, err := sql.Open("sqlite", readOnlyDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return db, nil
}

// readOnlyDSN builds a SQLite URI for path with mode=ro. The path is escaped
// so '#', '?' and '%' in file names reach SQLite verbatim.
func readOnlyDSN(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	p := filepath.ToSlash(path)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p // drive-letter paths: file:///C:/...
	}
	u := url.URL{Scheme: "file", Path: p, RawQuery: "mode=ro"}
	return u.String()
}

// removeArtifact deletes a database file and any journal files SQLite left next to it.
func removeArtifact(path string) error {
	var firstErr error
	for _, p := range []string{path, path + "-journal", path + "-wal", path + "-shm"} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
