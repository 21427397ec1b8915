package watch

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/spindle/internal/models"
)

func TestWriteM3USkipsRowsWithoutFinalPath(t *testing.T) {
	store := setupStore(t)
	if err := store.AddPlaylist(models.NewWatchedPlaylist("pl1", "My Mix", "", "")); err != nil {
		t.Fatalf("AddPlaylist: %v", err)
	}

	withPath := models.NewPlaylistTrack("t1", "Song One", "Artist A", "", 1, 180000)
	withoutPath := models.NewPlaylistTrack("t2", "Song Two", "Artist B", "", 2, 200000)
	if err := store.UpsertPlaylistTrack("pl1", withPath, "snap-1"); err != nil {
		t.Fatalf("UpsertPlaylistTrack: %v", err)
	}
	if err := store.UpsertPlaylistTrack("pl1", withoutPath, "snap-1"); err != nil {
		t.Fatalf("UpsertPlaylistTrack: %v", err)
	}

	dir := t.TempDir()
	if err := store.SetPlaylistTrackFinalPath("pl1", "t1", filepath.Join(dir, "Song One.flac")); err != nil {
		t.Fatalf("SetPlaylistTrackFinalPath: %v", err)
	}

	if err := writeM3U(dir, "My Mix", store, "pl1"); err != nil {
		t.Fatalf("writeM3U: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "My Mix.m3u"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	content := string(data)
	if !strings.HasPrefix(content, "#EXTM3U\n") {
		t.Errorf("expected #EXTM3U header, got %q", content)
	}
	if !strings.Contains(content, "Artist A - Song One") {
		t.Errorf("expected entry for Song One, got %q", content)
	}
	if strings.Contains(content, "Song Two") {
		t.Errorf("expected Song Two (no final_path) to be skipped, got %q", content)
	}
}

func TestSanitizeFilename(t *testing.T) {
	if got := sanitizeFilename("Rock/Pop: Best?"); got != "Rock_Pop_ Best_" {
		t.Errorf("unexpected sanitized name: %q", got)
	}
}
