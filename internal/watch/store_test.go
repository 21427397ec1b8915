package watch

import (
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spindle/internal/models"
	"github.com/desertthunder/spindle/internal/shared"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("NewDatabase: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	store, err := Open(db, log.New(io.Discard))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return store
}

func TestStorePlaylistLifecycle(t *testing.T) {
	store := setupStore(t)
	p := models.NewWatchedPlaylist("pl1", "My Playlist", "user1", "User One")
	if err := store.AddPlaylist(p); err != nil {
		t.Fatalf("AddPlaylist: %v", err)
	}

	got, err := store.Playlist("pl1")
	if err != nil {
		t.Fatalf("Playlist: %v", err)
	}
	if got == nil || got.Name() != "My Playlist" {
		t.Fatalf("expected playlist to round-trip, got %+v", got)
	}

	if err := store.UpdatePlaylistProgress("pl1", 25, "snap-1"); err != nil {
		t.Fatalf("UpdatePlaylistProgress: %v", err)
	}
	got, _ = store.Playlist("pl1")
	if got.BatchNextOffset() != 25 || got.BatchProcessingSnapshotID() != "snap-1" {
		t.Errorf("expected progress to persist, got offset=%d snapshot=%s", got.BatchNextOffset(), got.BatchProcessingSnapshotID())
	}

	if err := store.FinishPlaylistSync("pl1", "snap-2", 100); err != nil {
		t.Fatalf("FinishPlaylistSync: %v", err)
	}
	got, _ = store.Playlist("pl1")
	if got.BatchNextOffset() != 0 || got.BatchProcessingSnapshotID() != "" || got.SnapshotID() != "snap-2" || got.TotalTracks() != 100 {
		t.Errorf("unexpected state after finish: %+v", got)
	}

	if err := store.RemovePlaylist("pl1"); err != nil {
		t.Fatalf("RemovePlaylist: %v", err)
	}
	got, err = store.Playlist("pl1")
	if err != nil {
		t.Fatalf("Playlist after remove: %v", err)
	}
	if got != nil {
		t.Error("expected removed playlist to be inactive and absent from Playlist()")
	}
}

func TestStorePlaylistTrackUpsertAndPresence(t *testing.T) {
	store := setupStore(t)
	p := models.NewWatchedPlaylist("pl2", "Another Playlist", "", "")
	if err := store.AddPlaylist(p); err != nil {
		t.Fatalf("AddPlaylist: %v", err)
	}

	track := models.NewPlaylistTrack("t1", "Song One", "Artist A", "Album X", 1, 200000)
	if err := store.UpsertPlaylistTrack("pl2", track, "snap-1"); err != nil {
		t.Fatalf("UpsertPlaylistTrack: %v", err)
	}

	ids, err := store.PlaylistTrackIDs("pl2")
	if err != nil {
		t.Fatalf("PlaylistTrackIDs: %v", err)
	}
	if !ids["t1"] {
		t.Fatal("expected t1 to be present")
	}

	snapshots, err := store.PlaylistTracksWithSnapshot("pl2")
	if err != nil {
		t.Fatalf("PlaylistTracksWithSnapshot: %v", err)
	}
	if snapshots["t1"] != "snap-1" {
		t.Errorf("expected snapshot snap-1, got %q", snapshots["t1"])
	}

	if err := store.SetPlaylistTrackFinalPath("pl2", "t1", "/music/Song One.flac"); err != nil {
		t.Fatalf("SetPlaylistTrackFinalPath: %v", err)
	}

	present, err := store.PresentPlaylistTracks("pl2")
	if err != nil {
		t.Fatalf("PresentPlaylistTracks: %v", err)
	}
	if len(present) != 1 || present[0].FinalPath() != "/music/Song One.flac" {
		t.Fatalf("unexpected present tracks: %+v", present)
	}

	// Re-upsert with a new snapshot should keep the row present and refresh snapshot_id.
	if err := store.UpsertPlaylistTrack("pl2", track, "snap-2"); err != nil {
		t.Fatalf("re-upsert: %v", err)
	}
	snapshots, _ = store.PlaylistTracksWithSnapshot("pl2")
	if snapshots["t1"] != "snap-2" {
		t.Errorf("expected refreshed snapshot snap-2, got %q", snapshots["t1"])
	}
}

func TestStoreArtistLifecycle(t *testing.T) {
	store := setupStore(t)
	a := models.NewWatchedArtist("ar1", "Some Artist")
	if err := store.AddArtist(a); err != nil {
		t.Fatalf("AddArtist: %v", err)
	}

	got, err := store.Artist("ar1")
	if err != nil {
		t.Fatalf("Artist: %v", err)
	}
	if got == nil || got.Name() != "Some Artist" {
		t.Fatalf("expected artist to round-trip, got %+v", got)
	}

	album := models.NewArtistAlbum("al1", "Some Album", "album", "2024-01-01", 10)
	album.SetDownloadTaskID("task-1")
	album.SetDownloadStatus(models.AlbumDownloadInitiated)
	if err := store.UpsertArtistAlbum("ar1", album); err != nil {
		t.Fatalf("UpsertArtistAlbum: %v", err)
	}

	ids, err := store.ArtistAlbumIDs("ar1")
	if err != nil {
		t.Fatalf("ArtistAlbumIDs: %v", err)
	}
	if !ids["al1"] {
		t.Fatal("expected al1 to be present")
	}

	if err := store.UpdateArtistProgress("ar1", 50); err != nil {
		t.Fatalf("UpdateArtistProgress: %v", err)
	}
	got, _ = store.Artist("ar1")
	if got.BatchNextOffset() != 50 {
		t.Errorf("expected offset 50, got %d", got.BatchNextOffset())
	}

	if err := store.FinishArtistScan("ar1", 12); err != nil {
		t.Fatalf("FinishArtistScan: %v", err)
	}
	got, _ = store.Artist("ar1")
	if got.BatchNextOffset() != 0 || got.TotalAlbumsOnSpotify() != 12 {
		t.Errorf("unexpected state after finish: %+v", got)
	}
}

func TestStorePlaylistsOrderedAndActiveOnly(t *testing.T) {
	store := setupStore(t)
	for _, id := range []string{"c", "a", "b"} {
		if err := store.AddPlaylist(models.NewWatchedPlaylist(id, id, "", "")); err != nil {
			t.Fatalf("AddPlaylist %s: %v", id, err)
		}
	}
	if err := store.RemovePlaylist("b"); err != nil {
		t.Fatalf("RemovePlaylist: %v", err)
	}

	all, err := store.Playlists()
	if err != nil {
		t.Fatalf("Playlists: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 active playlists, got %d", len(all))
	}
	if all[0].ID() != "a" || all[1].ID() != "c" {
		t.Errorf("expected stable spotify_id ordering [a c], got [%s %s]", all[0].ID(), all[1].ID())
	}
}
