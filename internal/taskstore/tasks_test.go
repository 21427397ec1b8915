package taskstore

import (
	"context"
	"testing"

	"github.com/desertthunder/spindle/internal/models"
)

func TestTaskLogPutInfoAndGet(t *testing.T) {
	log := NewTaskLog(NewMemoryStore())
	ctx := context.Background()

	task := &models.Task{TaskID: "abc123", Kind: models.KindTrack, SourceURL: "https://open.spotify.com/track/x"}
	if err := log.PutInfo(ctx, task); err != nil {
		t.Fatalf("PutInfo: %v", err)
	}

	got, err := log.GetInfo(ctx, "abc123")
	if err != nil {
		t.Fatalf("GetInfo: %v", err)
	}
	if got.SourceURL != task.SourceURL {
		t.Fatalf("unexpected source url %q", got.SourceURL)
	}
}

func TestTaskLogAppendIsDenseAndMonotonic(t *testing.T) {
	log := NewTaskLog(NewMemoryStore())
	ctx := context.Background()

	statuses := []models.Status{models.StatusQueued, models.StatusProcessing, models.StatusInitializing, models.StatusComplete}
	for _, s := range statuses {
		entry, err := log.Append(ctx, "t1", s, "", nil)
		if err != nil {
			t.Fatalf("Append(%s): %v", s, err)
		}
		_ = entry
	}

	entries, err := log.Log(ctx, "t1")
	if err != nil {
		t.Fatalf("Log: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(entries))
	}
	for i, e := range entries {
		if e.StatusID != i+1 {
			t.Fatalf("expected status_id %d, got %d", i+1, e.StatusID)
		}
	}
}

func TestTaskLogRejectsAppendAfterTerminal(t *testing.T) {
	log := NewTaskLog(NewMemoryStore())
	ctx := context.Background()

	if _, err := log.Append(ctx, "t1", models.StatusComplete, "done", nil); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := log.Append(ctx, "t1", models.StatusProgress, "late", nil); err == nil {
		t.Fatal("expected error appending after terminal status")
	}
}

func TestTaskLogAllowsRetryingAfterTerminal(t *testing.T) {
	log := NewTaskLog(NewMemoryStore())
	ctx := context.Background()

	if _, err := log.Append(ctx, "t1", models.StatusError, "boom", nil); err != nil {
		t.Fatalf("Append error: %v", err)
	}
	if _, err := log.Append(ctx, "t1", models.StatusRetrying, "retry", nil); err != nil {
		t.Fatalf("expected retrying to be allowed after error, got %v", err)
	}
}

func TestTaskLogListTaskIDs(t *testing.T) {
	log := NewTaskLog(NewMemoryStore())
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		task := &models.Task{TaskID: id, Kind: models.KindTrack, SourceURL: "https://open.spotify.com/track/" + id}
		if err := log.PutInfo(ctx, task); err != nil {
			t.Fatalf("PutInfo: %v", err)
		}
	}

	ids, err := log.ListTaskIDs(ctx)
	if err != nil {
		t.Fatalf("ListTaskIDs: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("expected 3 ids, got %v", ids)
	}
}
