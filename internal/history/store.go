// Package history persists analysis runs to SQLite so past topologies
// and findings can be listed and compared between invocations.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/HerbHall/netlens/pkg/models"
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver
)

// ErrNotFound is returned when the requested run does not exist.
var ErrNotFound = fmt.Errorf("run not found")

// Run is one stored analysis run. Document holds the full exported JSON.
type Run struct {
	ID        string               `json:"id"`
	CreatedAt time.Time            `json:"created_at"`
	Source    string               `json:"source"`
	Devices   int                  `json:"devices"`
	Links     int                  `json:"links"`
	Subnets   int                  `json:"subnets"`
	Findings  models.FindingCounts `json:"findings"`
	Document  json.RawMessage      `json:"document,omitempty"`
}

// Store is a SQLite-backed run history.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens (or creates) the history database at path and applies
// recommended pragmas and pending migrations.
func Open(path string, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}

	// SQLite performs best with a single write connection. WAL enables concurrent readers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %q: %w", path, err)
	}

	// modernc.org/sqlite requires SQL statements, not DSN params.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec %q: %w", p, err)
		}
	}

	s := &Store{db: db, logger: logger}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun inserts one run.
func (s *Store) SaveRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, created_at, source, device_count, link_count, subnet_count,
			error_count, warning_count, info_count, document)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt.UTC().Format(time.RFC3339), run.Source,
		run.Devices, run.Links, run.Subnets,
		run.Findings.Errors, run.Findings.Warnings, run.Findings.Infos,
		string(run.Document),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}

	s.logger.Debug("run saved",
		zap.String("run_id", run.ID),
		zap.Int("devices", run.Devices),
		zap.Int("links", run.Links),
	)
	return nil
}

// GetRun returns one run including its full document.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, source, device_count, link_count, subnet_count,
			error_count, warning_count, info_count, document
		FROM runs WHERE id = ?`, id)

	run, err := scanRun(row, true)
	if err == sql.ErrNoRows {
		return Run{}, ErrNotFound
	}
	if err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns returns up to limit runs, newest first, without documents.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, source, device_count, link_count, subnet_count,
			error_count, warning_count, info_count
		FROM runs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows, false)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// PruneRuns deletes all but the newest keep runs and returns the number
// deleted.
func (s *Store) PruneRuns(ctx context.Context, keep int) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM runs WHERE id NOT IN (
			SELECT id FROM runs ORDER BY created_at DESC, id LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner, withDocument bool) (Run, error) {
	var run Run
	var created string
	dest := []any{
		&run.ID, &created, &run.Source, &run.Devices, &run.Links, &run.Subnets,
		&run.Findings.Errors, &run.Findings.Warnings, &run.Findings.Infos,
	}
	var doc string
	if withDocument {
		dest = append(dest, &doc)
	}
	if err := row.Scan(dest...); err != nil {
		return Run{}, err
	}
	t, err := time.Parse(time.RFC3339, created)
	if err != nil {
		return Run{}, fmt.Errorf("parse created_at %q: %w", created, err)
	}
	run.CreatedAt = t
	if withDocument {
		run.Document = json.RawMessage(doc)
	}
	return run, nil
}
