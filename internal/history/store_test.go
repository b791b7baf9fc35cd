package history

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/HerbHall/netlens/pkg/models"
	"go.uber.org/zap/zaptest"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleRun(id string, created time.Time) Run {
	return Run{
		ID:        id,
		CreatedAt: created,
		Source:    "./configs",
		Devices:   3,
		Links:     2,
		Subnets:   4,
		Findings:  models.FindingCounts{Errors: 1, Warnings: 2},
		Document:  json.RawMessage(`{"devices":[]}`),
	}
}

func TestStore_SaveAndGetRun(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	run := sampleRun("run-1", time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC))
	if err := s.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	got, err := s.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Source != run.Source || got.Devices != 3 || got.Links != 2 {
		t.Errorf("unexpected run: %+v", got)
	}
	if got.Findings != run.Findings {
		t.Errorf("finding counts lost: %+v", got.Findings)
	}
	if !got.CreatedAt.Equal(run.CreatedAt) {
		t.Errorf("created_at mismatch: %v vs %v", got.CreatedAt, run.CreatedAt)
	}
	if string(got.Document) != `{"devices":[]}` {
		t.Errorf("document not stored verbatim: %s", got.Document)
	}
}

func TestStore_GetRunNotFound(t *testing.T) {
	s := openStore(t)
	if _, err := s.GetRun(context.Background(), "missing"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_ListRunsNewestFirst(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		run := sampleRun(fmt.Sprintf("run-%d", i), base.Add(time.Duration(i)*time.Minute))
		if err := s.SaveRun(ctx, run); err != nil {
			t.Fatalf("SaveRun: %v", err)
		}
	}

	runs, err := s.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	if runs[0].ID != "run-2" || runs[2].ID != "run-0" {
		t.Errorf("runs not newest-first: %s, %s, %s", runs[0].ID, runs[1].ID, runs[2].ID)
	}
	if runs[0].Document != nil {
		t.Error("ListRuns must not load documents")
	}
}

func TestStore_PruneRuns(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 24, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		run := sampleRun(fmt.Sprintf("run-%d", i), base.Add(time.Duration(i)*time.Minute))
		if err := s.SaveRun(ctx, run); err != nil {
			t.Fatalf("SaveRun: %v", err)
		}
	}

	deleted, err := s.PruneRuns(ctx, 2)
	if err != nil {
		t.Fatalf("PruneRuns: %v", err)
	}
	if deleted != 3 {
		t.Errorf("expected 3 deleted, got %d", deleted)
	}

	runs, err := s.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 remaining, got %d", len(runs))
	}
	if runs[0].ID != "run-4" || runs[1].ID != "run-3" {
		t.Errorf("wrong runs kept: %s, %s", runs[0].ID, runs[1].ID)
	}
}

func TestStore_MigrateIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	logger := zaptest.NewLogger(t)

	s1, err := Open(path, logger)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	s1.Close()

	s2, err := Open(path, logger)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	s2.Close()
}
