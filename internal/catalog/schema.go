package catalog

import (
	"context"
	_ "embed"
	"fmt"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion lives in SQLite's user_version header field. Bump it with
// any change to schema.sql.
const schemaVersion = 1

// catalogTables lists every table schema.sql creates.
var catalogTables = []string{"clips", "scans"}

// initSchema prepares the index. The catalog only mirrors the clips
// directory, so a database at any other version is emptied and recreated
// instead of migrated; the next scan fills it again.
func (s *Store) initSchema(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read catalog version: %w", err)
	}
	if version == schemaVersion {
		return nil
	}
	return s.rebuildSchema(ctx)
}

func (s *Store) rebuildSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin catalog rebuild: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range catalogTables {
		if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
			return fmt.Errorf("drop %s: %w", table, err)
		}
	}
	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create catalog tables: %w", err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("stamp catalog version: %w", err)
	}
	return tx.Commit()
}
