package worker

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spindle/internal/history"
	"github.com/desertthunder/spindle/internal/models"
	"github.com/desertthunder/spindle/internal/shared"
	"github.com/desertthunder/spindle/internal/taskstore"
)

func setupHistory(t *testing.T) *history.Store {
	t.Helper()
	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("NewDatabase: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	h, err := history.Open(db, log.New(io.Discard))
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	return h
}

func testSchedulerConfig() shared.SchedulerConfig {
	return shared.SchedulerConfig{MaxRetries: 3, Service: "spotify"}
}

func submitTestTask(t *testing.T, tasks *taskstore.TaskLog, kind models.Kind) *models.Task {
	t.Helper()
	task := &models.Task{
		TaskID:     shared.GenerateID(),
		Kind:       kind,
		SourceURL:  "https://open.spotify.com/" + string(kind) + "/1",
		Display:    models.Display{Name: "Song", Artist: "Artist"},
		Parameters: map[string]any{"service": "spotify"},
	}
	if err := tasks.PutInfo(context.Background(), task); err != nil {
		t.Fatalf("PutInfo: %v", err)
	}
	if _, err := tasks.Append(context.Background(), task.TaskID, models.StatusQueued, "", nil); err != nil {
		t.Fatalf("Append queued: %v", err)
	}
	return task
}

func TestWorkerExecuteTrackSuccess(t *testing.T) {
	store := taskstore.NewMemoryStore()
	tasks := taskstore.NewTaskLog(store)
	hist := setupHistory(t)
	task := submitTestTask(t, tasks, models.KindTrack)

	fetch := &MockFetchLibrary{
		Events: []FetchEvent{
			{Kind: EventInitializing, DisplayName: "Song", TotalTracks: 1},
			{Kind: EventDownloading},
			{Kind: EventDone, Message: "done", Track: &models.ChildTrackRow{Title: "Song"}},
		},
	}
	w := New(store, hist, fetch, testSchedulerConfig(), log.New(io.Discard))

	if err := w.Execute(context.Background(), task); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	last, err := tasks.Last(context.Background(), task.TaskID)
	if err != nil {
		t.Fatalf("Last: %v", err)
	}
	if last.Status != models.StatusComplete {
		t.Errorf("expected COMPLETE, got %s", last.Status)
	}

	row, err := hist.GetByTaskID(task.TaskID)
	if err != nil {
		t.Fatalf("GetByTaskID: %v", err)
	}
	if row.Status() != string(models.StatusComplete) || row.SuccessfulTracks() != 1 {
		t.Errorf("unexpected history row: status=%s successful=%d", row.Status(), row.SuccessfulTracks())
	}
}

func TestWorkerExecuteAlbumWritesChildRowsProgressively(t *testing.T) {
	store := taskstore.NewMemoryStore()
	tasks := taskstore.NewTaskLog(store)
	hist := setupHistory(t)
	task := submitTestTask(t, tasks, models.KindAlbum)

	fetch := &MockFetchLibrary{
		Events: []FetchEvent{
			{Kind: EventInitializing, TotalTracks: 2},
			{Kind: EventDownloading},
			{Kind: EventDone, Scope: ScopeTrack, Track: &models.ChildTrackRow{Title: "Track 1"}},
			{Kind: EventDownloading},
			{Kind: EventDone, Scope: ScopeTrack, Track: &models.ChildTrackRow{Title: "Track 2"}},
			{Kind: EventDone, Scope: ScopeParent, Message: "album complete"},
		},
	}
	w := New(store, hist, fetch, testSchedulerConfig(), log.New(io.Discard))

	if err := w.Execute(context.Background(), task); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	refreshed, err := tasks.GetInfo(context.Background(), task.TaskID)
	if err != nil {
		t.Fatalf("GetInfo: %v", err)
	}
	if refreshed.ChildrenTable == "" {
		t.Fatal("expected children_table to be recorded")
	}

	rows, err := hist.ChildRows(refreshed.ChildrenTable)
	if err != nil {
		t.Fatalf("ChildRows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 child rows written progressively, got %d", len(rows))
	}

	row, err := hist.GetByTaskID(task.TaskID)
	if err != nil {
		t.Fatalf("GetByTaskID: %v", err)
	}
	if row.SuccessfulTracks() != 2 {
		t.Errorf("expected 2 successful tracks, got %d", row.SuccessfulTracks())
	}
}

func TestWorkerExecuteFailurePropagatesErrorStatus(t *testing.T) {
	store := taskstore.NewMemoryStore()
	tasks := taskstore.NewTaskLog(store)
	hist := setupHistory(t)
	task := submitTestTask(t, tasks, models.KindTrack)

	boom := errors.New("network unreachable")
	fetch := &MockFetchLibrary{Err: boom}
	w := New(store, hist, fetch, testSchedulerConfig(), log.New(io.Discard))

	if err := w.Execute(context.Background(), task); !errors.Is(err, boom) {
		t.Fatalf("expected Execute to propagate fetch error, got %v", err)
	}

	last, err := tasks.Last(context.Background(), task.TaskID)
	if err != nil {
		t.Fatalf("Last: %v", err)
	}
	if last.Status != models.StatusError {
		t.Errorf("expected ERROR status, got %s", last.Status)
	}
	if canRetry, _ := last.Payload["can_retry"].(bool); !canRetry {
		t.Error("expected can_retry=true under max_retries")
	}
}

func TestWorkerExecuteRetryingThenSuccess(t *testing.T) {
	store := taskstore.NewMemoryStore()
	tasks := taskstore.NewTaskLog(store)
	hist := setupHistory(t)
	task := submitTestTask(t, tasks, models.KindTrack)

	fetch := &MockFetchLibrary{
		Events: []FetchEvent{
			{Kind: EventError, Message: "transient"},
			{Kind: EventRetrying, RetryReason: "transient", SecondsLeft: 1},
			{Kind: EventDownloading},
			{Kind: EventDone, Track: &models.ChildTrackRow{Title: "Song"}},
		},
	}
	w := New(store, hist, fetch, testSchedulerConfig(), log.New(io.Discard))

	if err := w.Execute(context.Background(), task); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	last, err := tasks.Last(context.Background(), task.TaskID)
	if err != nil {
		t.Fatalf("Last: %v", err)
	}
	if last.Status != models.StatusComplete {
		t.Errorf("expected an in-job error+retry to still reach COMPLETE, got %s", last.Status)
	}
}

func TestWorkerBuildOptionsResolvesServiceSpecificQuality(t *testing.T) {
	store := taskstore.NewMemoryStore()
	tasks := taskstore.NewTaskLog(store)
	hist := setupHistory(t)

	task := &models.Task{
		TaskID:    shared.GenerateID(),
		Kind:      models.KindTrack,
		SourceURL: "https://api.deezer.com/track/1",
		Parameters: map[string]any{
			"service":        "deezer",
			"deezer_quality": "FLAC",
		},
	}
	if err := tasks.PutInfo(context.Background(), task); err != nil {
		t.Fatalf("PutInfo: %v", err)
	}
	if _, err := tasks.Append(context.Background(), task.TaskID, models.StatusQueued, "", nil); err != nil {
		t.Fatalf("Append: %v", err)
	}

	fetch := &MockFetchLibrary{Events: []FetchEvent{{Kind: EventDone, Track: &models.ChildTrackRow{Title: "x"}}}}
	w := New(store, hist, fetch, testSchedulerConfig(), log.New(io.Discard))
	if err := w.Execute(context.Background(), task); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if len(fetch.Calls) != 1 {
		t.Fatalf("expected exactly one Download call, got %d", len(fetch.Calls))
	}
	if fetch.Calls[0].Service != "deezer" || fetch.Calls[0].Quality != "FLAC" {
		t.Errorf("expected deezer/FLAC, got %+v", fetch.Calls[0])
	}
}
