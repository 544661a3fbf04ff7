package history

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vthunder/google-tasks-agent/internal/types"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecordAndRecent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	start := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	due := "2026-02-13"
	meeting := "Weekly sync"

	first := Run{
		ID:         "run-1",
		StartedAt:  start,
		FinishedAt: start.Add(2 * time.Minute),
		Summary:    types.Summary{EmailsScanned: 12, ActionItemsFound: 2, TasksCreated: 1},
		Items: []types.ActionItem{
			{
				ID: "m1", Subject: "Budget", Sender: "cfo@example.com",
				Priority: types.PriorityHigh, Action: "Review budget", DueDate: &due,
				CreateTask: true, TaskCreated: true, SourceType: types.SourceEmail,
				NotifiedAt: start,
			},
			{
				ID: "m2", Subject: "Notes", Sender: "gemini-notes@google.com",
				Priority: types.PriorityLow, Action: "Send deck", RelatedMeeting: &meeting,
				SourceType: types.SourceGeminiNotes, NotifiedAt: start,
			},
		},
	}
	second := Run{
		ID:         "run-2",
		StartedAt:  start.Add(time.Hour),
		FinishedAt: start.Add(time.Hour + time.Minute),
		Force:      true,
	}

	if err := db.Record(ctx, first); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := db.Record(ctx, second); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	runs, err := db.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != "run-2" || !runs[0].Force {
		t.Errorf("expected newest forced run first, got %+v", runs[0])
	}

	got := runs[1]
	if !got.StartedAt.Equal(first.StartedAt) || got.Summary != first.Summary {
		t.Errorf("run mismatch: %+v", got)
	}
	if len(got.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(got.Items))
	}
	if got.Items[0].ID != "m1" || got.Items[0].DueDate == nil || *got.Items[0].DueDate != due || !got.Items[0].TaskCreated {
		t.Errorf("first item mismatch: %+v", got.Items[0])
	}
	if got.Items[1].SourceType != types.SourceGeminiNotes || got.Items[1].RelatedMeeting == nil || got.Items[1].DueDate != nil {
		t.Errorf("second item mismatch: %+v", got.Items[1])
	}

	limited, err := db.Recent(ctx, 1)
	if err != nil || len(limited) != 1 {
		t.Errorf("Recent(1) = %d runs, err %v", len(limited), err)
	}
}

func TestRecent_OrdersWithinOneSecond(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	second := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	runs := []Run{
		{ID: "whole-second", StartedAt: second, FinishedAt: second},
		{ID: "tenth-later", StartedAt: second, FinishedAt: second.Add(100 * time.Millisecond)},
		{ID: "nanos-later", StartedAt: second, FinishedAt: second.Add(100*time.Millisecond + 5)},
	}
	for _, r := range runs {
		if err := db.Record(ctx, r); err != nil {
			t.Fatalf("Record %s failed: %v", r.ID, err)
		}
	}

	got, err := db.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	want := []string{"nanos-later", "tenth-later", "whole-second"}
	if len(got) != len(want) {
		t.Fatalf("expected %d runs, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("Recent[%d] = %s, want %s", i, got[i].ID, id)
		}
	}
	if !got[1].FinishedAt.Equal(runs[1].FinishedAt) {
		t.Errorf("FinishedAt = %v, want %v", got[1].FinishedAt, runs[1].FinishedAt)
	}
}

func TestRecord_DuplicateIDFails(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	run := Run{ID: "dup", StartedAt: time.Now(), FinishedAt: time.Now()}

	if err := db.Record(ctx, run); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := db.Record(ctx, run); err == nil {
		t.Error("expected error for duplicate run id")
	}
	if n, _ := db.Count(ctx); n != 1 {
		t.Errorf("Count = %d, want 1", n)
	}
}

func TestOpen_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := db.Record(context.Background(), Run{ID: "r", StartedAt: time.Now(), FinishedAt: time.Now()}); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	db.Close()

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("database file missing: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("database mode = %o, want 600", info.Mode().Perm())
	}

	db, err = Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer db.Close()
	if n, _ := db.Count(context.Background()); n != 1 {
		t.Errorf("Count after reopen = %d, want 1", n)
	}
}
