package history

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// migration is one versioned schema change. Migrations must be listed in
// ascending Version order; applied versions are tracked in _migrations.
type migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

func migrations() []migration {
	return []migration{
		{
			Version:     1,
			Description: "create runs table",
			Up: func(tx *sql.Tx) error {
				stmts := []string{
					`CREATE TABLE runs (
						id            TEXT PRIMARY KEY,
						created_at    TEXT NOT NULL,
						source        TEXT NOT NULL DEFAULT '',
						device_count  INTEGER NOT NULL DEFAULT 0,
						link_count    INTEGER NOT NULL DEFAULT 0,
						subnet_count  INTEGER NOT NULL DEFAULT 0,
						error_count   INTEGER NOT NULL DEFAULT 0,
						warning_count INTEGER NOT NULL DEFAULT 0,
						info_count    INTEGER NOT NULL DEFAULT 0,
						document      TEXT NOT NULL DEFAULT '{}'
					)`,
					`CREATE INDEX idx_runs_created_at ON runs(created_at)`,
				}
				for _, stmt := range stmts {
					if _, err := tx.Exec(stmt); err != nil {
						return err
					}
				}
				return nil
			},
		},
	}
}

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS _migrations (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  TEXT NOT NULL DEFAULT (datetime('now'))
		)`); err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	for _, m := range migrations() {
		var n int
		err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM _migrations WHERE version = ?`, m.Version).Scan(&n)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if n > 0 {
			continue
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}
		if err := m.Up(tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}
		if _, err := tx.Exec(
			`INSERT INTO _migrations (version, description) VALUES (?, ?)`,
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}

		s.logger.Info("migration applied",
			zap.Int("version", m.Version),
			zap.String("description", m.Description),
		)
	}
	return nil
}
