package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"signbridge/internal/config"
)

// Store is the SQLite-backed clip index.
type Store struct {
	db   *sql.DB
	path string
}

// Clip is one indexed sign video.
type Clip struct {
	Word     string
	Filename string
	Size     int64
	ModTime  time.Time
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// retryOnBusy reruns op with doubling backoff while SQLite reports contention.
func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := range busyRetryAttempts {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay = min(delay*2, busyRetryMaxBackoff)
	}
	return lastErr
}

// Open connects to the catalog database under the configured state directory.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.CatalogDBPath())
}

// OpenPath connects to (or creates) the catalog database at path.
func OpenPath(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Replace swaps the whole index for clips in a single transaction.
func (s *Store) Replace(ctx context.Context, dir string, clips []Clip) error {
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin replace tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, "DELETE FROM clips"); err != nil {
			return fmt.Errorf("clear clips: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx,
			"INSERT OR REPLACE INTO clips (word, filename, size, mod_time) VALUES (?, ?, ?, ?)")
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()
		for _, clip := range clips {
			if _, err := stmt.ExecContext(ctx, clip.Word, clip.Filename, clip.Size, clip.ModTime.Unix()); err != nil {
				return fmt.Errorf("insert clip %q: %w", clip.Word, err)
			}
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO scans (dir, clip_count, finished_at) VALUES (?, ?, ?)",
			dir, len(clips), time.Now().Unix(),
		); err != nil {
			return fmt.Errorf("record scan: %w", err)
		}
		return tx.Commit()
	})
}

// Lookup returns the clip indexed under word.
func (s *Store) Lookup(ctx context.Context, word string) (Clip, bool, error) {
	ctx = ensureContext(ctx)
	var (
		clip    Clip
		modUnix int64
	)
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx,
			"SELECT word, filename, size, mod_time FROM clips WHERE word = ?", word,
		).Scan(&clip.Word, &clip.Filename, &clip.Size, &modUnix)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return Clip{}, false, nil
	}
	if err != nil {
		return Clip{}, false, fmt.Errorf("lookup %q: %w", word, err)
	}
	clip.ModTime = time.Unix(modUnix, 0)
	return clip, true, nil
}

// List returns every indexed clip ordered by word.
func (s *Store) List(ctx context.Context) ([]Clip, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, "SELECT word, filename, size, mod_time FROM clips ORDER BY word")
	if err != nil {
		return nil, fmt.Errorf("list clips: %w", err)
	}
	defer rows.Close()

	var clips []Clip
	for rows.Next() {
		var (
			clip    Clip
			modUnix int64
		)
		if err := rows.Scan(&clip.Word, &clip.Filename, &clip.Size, &modUnix); err != nil {
			return nil, fmt.Errorf("scan clip row: %w", err)
		}
		clip.ModTime = time.Unix(modUnix, 0)
		clips = append(clips, clip)
	}
	return clips, rows.Err()
}

// Count returns the number of indexed clips.
func (s *Store) Count(ctx context.Context) (int, error) {
	ctx = ensureContext(ctx)
	var n int
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM clips").Scan(&n)
	})
	if err != nil {
		return 0, fmt.Errorf("count clips: %w", err)
	}
	return n, nil
}

// LastScan reports when the index was last rebuilt. The zero time means never.
func (s *Store) LastScan(ctx context.Context) (time.Time, error) {
	ctx = ensureContext(ctx)
	var finished sql.NullInt64
	err := s.db.QueryRowContext(ctx, "SELECT MAX(finished_at) FROM scans").Scan(&finished)
	if err != nil {
		return time.Time{}, fmt.Errorf("read last scan: %w", err)
	}
	if !finished.Valid {
		return time.Time{}, nil
	}
	return time.Unix(finished.Int64, 0), nil
}
