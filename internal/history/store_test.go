package history

import (
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spindle/internal/models"
	"github.com/desertthunder/spindle/internal/shared"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store, err := Open(db, log.New(io.Discard))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return store
}

func TestStoreUpsertAndGetByTaskID(t *testing.T) {
	s := setupTestStore(t)

	h := models.NewDownloadHistory("task-1", models.KindTrack, "Song", "Artist", "spotify")
	h.SetStatus("completed")
	h.SetTotalTracks(1)
	h.SetSummary(1, 0, 0)

	if err := s.Upsert(h); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := s.GetByTaskID("task-1")
	if err != nil {
		t.Fatalf("GetByTaskID: %v", err)
	}
	if got.Title() != "Song" || got.Status() != "completed" {
		t.Fatalf("unexpected row: %+v", got)
	}
}

func TestStoreUpsertUpdatesExistingRow(t *testing.T) {
	s := setupTestStore(t)

	h := models.NewDownloadHistory("task-2", models.KindAlbum, "Album", "Artist", "spotify")
	h.SetStatus("processing")
	if err := s.Upsert(h); err != nil {
		t.Fatalf("initial Upsert: %v", err)
	}

	h.SetStatus("completed")
	h.SetSummary(10, 1, 0)
	if err := s.Upsert(h); err != nil {
		t.Fatalf("update Upsert: %v", err)
	}

	got, err := s.GetByTaskID("task-2")
	if err != nil {
		t.Fatalf("GetByTaskID: %v", err)
	}
	if got.Status() != "completed" || got.SuccessfulTracks() != 10 {
		t.Fatalf("expected updated row, got %+v", got)
	}

	rows, err := s.db.Query(`SELECT COUNT(*) FROM download_history WHERE task_id = ?`, "task-2")
	if err != nil {
		t.Fatalf("count query: %v", err)
	}
	defer rows.Close()
	var count int
	for rows.Next() {
		rows.Scan(&count)
	}
	if count != 1 {
		t.Fatalf("expected exactly one row for task-2, got %d", count)
	}
}

func TestStoreChildTableLifecycle(t *testing.T) {
	s := setupTestStore(t)

	table := "album_abc123"
	if err := s.EnsureChildTable(table); err != nil {
		t.Fatalf("EnsureChildTable: %v", err)
	}

	row := models.ChildTrackRow{
		Title:       "Track One",
		Artists:     "Artist",
		AlbumTitle:  "Album",
		DurationMS:  200000,
		TrackNumber: 1,
		Status:      "completed",
		Position:    0,
		Service:     "spotify",
	}
	if err := s.AppendChildRow(table, row); err != nil {
		t.Fatalf("AppendChildRow: %v", err)
	}

	rows, err := s.ChildRows(table)
	if err != nil {
		t.Fatalf("ChildRows: %v", err)
	}
	if len(rows) != 1 || rows[0].Title != "Track One" {
		t.Fatalf("unexpected child rows: %+v", rows)
	}
}

func TestStoreListFiltersByStatus(t *testing.T) {
	s := setupTestStore(t)

	done := models.NewDownloadHistory("task-done", models.KindTrack, "A", "B", "spotify")
	done.SetStatus("completed")
	if err := s.Upsert(done); err != nil {
		t.Fatalf("Upsert done: %v", err)
	}

	errored := models.NewDownloadHistory("task-err", models.KindTrack, "C", "D", "spotify")
	errored.SetStatus("error")
	if err := s.Upsert(errored); err != nil {
		t.Fatalf("Upsert errored: %v", err)
	}

	rows, err := s.List(ListOpts{Status: "completed"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(rows) != 1 || rows[0].TaskID() != "task-done" {
		t.Fatalf("expected only the completed row, got %+v", rows)
	}
}

func TestStoreCleanupDropsExpiredRowsAndChildTables(t *testing.T) {
	s := setupTestStore(t)

	h := models.NewDownloadHistory("task-old", models.KindAlbum, "Old Album", "Artist", "spotify")
	h.SetChildrenTable("album_old123")
	h.SetTimestamp(time.Unix(0, 0))
	if err := s.Upsert(h); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := s.EnsureChildTable("album_old123"); err != nil {
		t.Fatalf("EnsureChildTable: %v", err)
	}

	removed, err := s.Cleanup(0)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 row removed, got %d", removed)
	}

	var exists int
	row := s.db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='album_old123'`)
	if err := row.Scan(&exists); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if exists != 0 {
		t.Fatal("expected child table to be dropped after cleanup")
	}
}
