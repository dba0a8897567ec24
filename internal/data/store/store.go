// Package store persists identifier occurrences per file in SQLite so watch
// mode can replace a single file's rows and queries can aggregate by name.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"pycount/internal/engine/ident"
	"pycount/internal/shared/observability"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
)

type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

// NameCount is one row of CountByName.
type NameCount struct {
	Name  string
	Count int
}

func Open(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("store path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("store path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory %q: %w", dir, err)
		}
	}

	// busy_timeout + WAL reduce lock conflicts during watch-mode churn.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite store %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// BeginRun records a new extraction run over root and returns its id.
func (s *Store) BeginRun(ctx context.Context, root string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	started := time.Now().UTC().Format(time.RFC3339Nano)
	err := s.withRetry("begin run", func() error {
		_, err := s.db.ExecContext(ctx, `INSERT INTO runs(id, root, started_at_utc) VALUES (?, ?, ?)`, id, root, started)
		return err
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// ReplaceFile swaps every stored occurrence of file for occs in a single
// transaction.
func (s *Store) ReplaceFile(ctx context.Context, runID, file string, hash uint64, occs []ident.Occurrence) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	defer func() { observability.StoreWriteDuration.Observe(time.Since(start).Seconds()) }()

	return s.withRetry("replace file "+file, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, `DELETE FROM occurrences WHERE file = ?`, file); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO files(path, hash, run_id, updated_at_utc) VALUES (?, ?, ?, ?)
ON CONFLICT(path) DO UPDATE SET hash = excluded.hash, run_id = excluded.run_id, updated_at_utc = excluded.updated_at_utc`,
			file, formatHash(hash), runID, time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, `INSERT INTO occurrences(file, seq, name, line, col, role) VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for i, o := range occs {
			if _, err := stmt.ExecContext(ctx, file, i, o.Name, o.Line, o.Column, string(o.Role)); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
}

// DeleteFile removes file and its occurrences. Unknown files are ignored.
func (s *Store) DeleteFile(ctx context.Context, file string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withRetry("delete file "+file, func() error {
		_, err := s.db.ExecContext(ctx, `DELETE FROM files WHERE path = ?`, file)
		return err
	})
}

// FileHash returns the content hash recorded for file.
func (s *Store) FileHash(ctx context.Context, file string) (uint64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT hash FROM files WHERE path = ?`, file).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read hash for %s: %w", file, err)
	}
	hash, err := strconv.ParseUint(raw, 16, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse hash for %s: %w", file, err)
	}
	return hash, true, nil
}

// Files lists every stored file path in order.
func (s *Store) Files(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT path FROM files ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	var files []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return nil, err
		}
		files = append(files, path)
	}
	return files, rows.Err()
}

// Occurrences returns file's rows in emission order.
func (s *Store) Occurrences(ctx context.Context, file string) ([]ident.Occurrence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `SELECT name, line, col, role FROM occurrences WHERE file = ? ORDER BY seq`, file)
	if err != nil {
		return nil, fmt.Errorf("load occurrences for %s: %w", file, err)
	}
	defer rows.Close()

	var occs []ident.Occurrence
	for rows.Next() {
		var o ident.Occurrence
		var role string
		if err := rows.Scan(&o.Name, &o.Line, &o.Column, &role); err != nil {
			return nil, err
		}
		o.Role = ident.Role(role)
		occs = append(occs, o)
	}
	return occs, rows.Err()
}

// CountByName returns the most frequent names, ties broken by name. A
// non-positive limit returns every name.
func (s *Store) CountByName(ctx context.Context, limit int) ([]NameCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT name, COUNT(*) AS n FROM occurrences
GROUP BY name
ORDER BY n DESC, name ASC
LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("count by name: %w", err)
	}
	defer rows.Close()

	var out []NameCount
	for rows.Next() {
		var nc NameCount
		if err := rows.Scan(&nc.Name, &nc.Count); err != nil {
			return nil, err
		}
		out = append(out, nc)
	}
	return out, rows.Err()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return os.ErrClosed
	}
	return s.db.PingContext(ctx)
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

func formatHash(h uint64) string {
	return strconv.FormatUint(h, 16)
}
