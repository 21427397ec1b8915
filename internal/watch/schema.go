package watch

import (
	"database/sql"
	"fmt"
)

// ensureSchema creates the two parent tables (watched_playlists,
// watched_artists) if missing, grounded on watch/db.py's
// _init_watch_db table definitions.
func ensureSchema(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS watched_playlists (
			spotify_id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT,
			owner_id TEXT,
			owner_name TEXT,
			total_tracks INTEGER DEFAULT 0,
			snapshot_id TEXT,
			batch_next_offset INTEGER DEFAULT 0,
			batch_processing_snapshot_id TEXT,
			added_at REAL NOT NULL,
			last_checked REAL,
			is_active BOOLEAN DEFAULT 1
		)
	`); err != nil {
		return fmt.Errorf("watch: create watched_playlists: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS watched_artists (
			spotify_id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			genres TEXT,
			total_albums_on_spotify INTEGER DEFAULT 0,
			batch_next_offset INTEGER DEFAULT 0,
			added_at REAL NOT NULL,
			last_checked REAL,
			is_active BOOLEAN DEFAULT 1
		)
	`); err != nil {
		return fmt.Errorf("watch: create watched_artists: %w", err)
	}

	return nil
}

// playlistTrackColumns is the per-row column set for a watched
// playlist's playlist_tracks_{id} child table.
var playlistTrackColumns = []string{
	"spotify_track_id TEXT PRIMARY KEY",
	"title TEXT NOT NULL",
	"artists TEXT",
	"album TEXT",
	"track_number INTEGER",
	"duration_ms INTEGER",
	"added_at_playlist REAL",
	"added_to_db REAL NOT NULL",
	"is_present_in_spotify BOOLEAN DEFAULT 1",
	"last_seen_in_spotify REAL",
	"snapshot_id TEXT",
	"final_path TEXT",
}

// artistAlbumColumns is the per-row column set for a watched artist's
// artist_albums_{id} child table.
var artistAlbumColumns = []string{
	"album_spotify_id TEXT PRIMARY KEY",
	"title TEXT NOT NULL",
	"album_type TEXT",
	"release_date TEXT",
	"total_tracks INTEGER",
	"added_to_db REAL NOT NULL",
	"last_seen_on_spotify REAL",
	"download_task_id TEXT",
	"download_status INTEGER DEFAULT 0",
	"is_fully_downloaded_managed_by_app BOOLEAN DEFAULT 0",
}

func ensurePlaylistTrackTable(db *sql.DB, table string) error {
	return ensureTable(db, table, playlistTrackColumns)
}

func ensureArtistAlbumTable(db *sql.DB, table string) error {
	return ensureTable(db, table, artistAlbumColumns)
}

func ensureTable(db *sql.DB, table string, columns []string) error {
	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", table, joinColumns(columns))
	if _, err := db.Exec(stmt); err != nil {
		return fmt.Errorf("watch: create child table %s: %w", table, err)
	}
	return nil
}

func joinColumns(columns []string) string {
	out := ""
	for i, c := range columns {
		if i > 0 {
			out += ", "
		}
		out += c
	}
	return out
}

func playlistTrackTable(spotifyID string) string {
	return "playlist_tracks_" + sanitizeID(spotifyID)
}

func artistAlbumTable(spotifyID string) string {
	return "artist_albums_" + sanitizeID(spotifyID)
}

func sanitizeID(id string) string {
	out := make([]rune, 0, len(id))
	for _, r := range id {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			out = append(out, r)
		} else {
			out = append(out, '_')
		}
	}
	return string(out)
}
