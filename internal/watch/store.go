package watch

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spindle/internal/models"
)

// Store is the watch engine's persistence layer: the watched_playlists
// and watched_artists parent tables, plus the per-item playlist_tracks_*
// and artist_albums_* child tables, grounded on watch/db.py's schema and
// CRUD helpers.
type Store struct {
	db  *sql.DB
	log *log.Logger
}

// Open wraps an already-connected database and ensures the watch schema
// exists.
func Open(db *sql.DB, logger *log.Logger) (*Store, error) {
	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	return &Store{db: db, log: logger}, nil
}

// AddPlaylist registers a new watched playlist, or is a no-op if one
// with the same spotify_id already exists.
func (s *Store) AddPlaylist(p *models.WatchedPlaylist) error {
	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO watched_playlists (
			spotify_id, name, description, owner_id, owner_name,
			total_tracks, snapshot_id, added_at, is_active
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1)
	`, p.ID(), p.Name(), p.Description(), p.OwnerID(), p.OwnerName(), p.TotalTracks(), p.SnapshotID(), epochSeconds(p.CreatedAt()))
	if err != nil {
		return fmt.Errorf("watch: add playlist: %w", err)
	}
	return nil
}

// RemovePlaylist deactivates a watched playlist; its child table and
// history are left intact.
func (s *Store) RemovePlaylist(spotifyID string) error {
	_, err := s.db.Exec(`UPDATE watched_playlists SET is_active = 0 WHERE spotify_id = ?`, spotifyID)
	return err
}

// Playlists returns every active watched playlist, ordered by
// spotify_id for a stable round-robin sequence.
func (s *Store) Playlists() ([]*models.WatchedPlaylist, error) {
	rows, err := s.db.Query(`
		SELECT spotify_id, name, description, owner_id, owner_name, total_tracks, snapshot_id,
			batch_next_offset, batch_processing_snapshot_id, added_at, last_checked
		FROM watched_playlists WHERE is_active = 1 ORDER BY spotify_id
	`)
	if err != nil {
		return nil, fmt.Errorf("watch: list playlists: %w", err)
	}
	defer rows.Close()

	var out []*models.WatchedPlaylist
	for rows.Next() {
		var (
			id, name                      string
			description                   sql.NullString
			ownerID, ownerName            sql.NullString
			snapshotID                    sql.NullString
			totalTracks, batchNextOffset  int
			batchProcessingSnapshotID     sql.NullString
			addedAt                       float64
			lastChecked                   sql.NullFloat64
		)
		if err := rows.Scan(&id, &name, &description, &ownerID, &ownerName, &totalTracks, &snapshotID,
			&batchNextOffset, &batchProcessingSnapshotID, &addedAt, &lastChecked); err != nil {
			return nil, fmt.Errorf("watch: scan playlist row: %w", err)
		}
		p := models.NewWatchedPlaylist(id, name, ownerID.String, ownerName.String)
		p.SetDescription(description.String)
		p.SetTotalTracks(totalTracks)
		p.SetSnapshotID(snapshotID.String)
		p.SetBatchNextOffset(batchNextOffset)
		p.SetBatchProcessingSnapshotID(batchProcessingSnapshotID.String)
		if lastChecked.Valid {
			p.SetLastChecked(time.Unix(int64(lastChecked.Float64), 0))
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Playlist returns one active watched playlist by id, or nil if it
// isn't being watched.
func (s *Store) Playlist(spotifyID string) (*models.WatchedPlaylist, error) {
	all, err := s.Playlists()
	if err != nil {
		return nil, err
	}
	for _, p := range all {
		if p.ID() == spotifyID {
			return p, nil
		}
	}
	return nil, nil
}

// UpdatePlaylistProgress persists the batch cursor after a partial sync
// page, per spec.md §4.8's "persist the advanced cursor".
func (s *Store) UpdatePlaylistProgress(spotifyID string, nextOffset int, processingSnapshotID string) error {
	_, err := s.db.Exec(`
		UPDATE watched_playlists SET batch_next_offset = ?, batch_processing_snapshot_id = ?
		WHERE spotify_id = ?
	`, nextOffset, nullIfEmpty(processingSnapshotID), spotifyID)
	return err
}

// FinishPlaylistSync clears the batch cursor and records the completed
// snapshot, per spec.md §4.8's "end-of-scan" clause.
func (s *Store) FinishPlaylistSync(spotifyID, snapshotID string, totalTracks int) error {
	_, err := s.db.Exec(`
		UPDATE watched_playlists
		SET batch_next_offset = 0, batch_processing_snapshot_id = NULL,
			snapshot_id = ?, total_tracks = ?, last_checked = ?
		WHERE spotify_id = ?
	`, snapshotID, totalTracks, epochSeconds(time.Now()), spotifyID)
	return err
}

// TouchPlaylist records that a playlist was checked this tick without
// requiring a sync (snapshot and track counts matched).
func (s *Store) TouchPlaylist(spotifyID string) error {
	_, err := s.db.Exec(`UPDATE watched_playlists SET last_checked = ? WHERE spotify_id = ?`, epochSeconds(time.Now()), spotifyID)
	return err
}

// PlaylistTrackIDs returns the set of track ids already present in a
// playlist's child table.
func (s *Store) PlaylistTrackIDs(spotifyID string) (map[string]bool, error) {
	table := playlistTrackTable(spotifyID)
	if err := ensurePlaylistTrackTable(s.db, table); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(fmt.Sprintf(`SELECT spotify_track_id FROM %s`, table))
	if err != nil {
		return nil, fmt.Errorf("watch: list track ids in %s: %w", table, err)
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("watch: scan track id in %s: %w", table, err)
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

// PlaylistTracksWithSnapshot returns every track row and its stored
// snapshot_id, for §4.8's targeted-sync staleness check.
func (s *Store) PlaylistTracksWithSnapshot(spotifyID string) (map[string]string, error) {
	table := playlistTrackTable(spotifyID)
	if err := ensurePlaylistTrackTable(s.db, table); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(fmt.Sprintf(`SELECT spotify_track_id, snapshot_id FROM %s`, table))
	if err != nil {
		return nil, fmt.Errorf("watch: list track snapshots in %s: %w", table, err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var id string
		var snapshot sql.NullString
		if err := rows.Scan(&id, &snapshot); err != nil {
			return nil, fmt.Errorf("watch: scan track snapshot in %s: %w", table, err)
		}
		out[id] = snapshot.String
	}
	return out, rows.Err()
}

// UpsertPlaylistTrack writes or refreshes one track row in a playlist's
// child table, tagging it with the sync's snapshot id.
func (s *Store) UpsertPlaylistTrack(spotifyID string, t *models.PlaylistTrack, snapshotID string) error {
	table := playlistTrackTable(spotifyID)
	if err := ensurePlaylistTrackTable(s.db, table); err != nil {
		return err
	}
	_, err := s.db.Exec(fmt.Sprintf(`
		INSERT INTO %s (
			spotify_track_id, title, artists, album, track_number, duration_ms,
			added_to_db, is_present_in_spotify, last_seen_in_spotify, snapshot_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT(spotify_track_id) DO UPDATE SET
			is_present_in_spotify = 1, last_seen_in_spotify = excluded.last_seen_in_spotify,
			snapshot_id = excluded.snapshot_id
	`, table),
		t.ID(), t.Title(), t.Artists(), t.Album(), t.TrackNumber(), t.DurationMS(),
		epochSeconds(time.Now()), epochSeconds(time.Now()), snapshotID,
	)
	if err != nil {
		return fmt.Errorf("watch: upsert playlist track in %s: %w", table, err)
	}
	return nil
}

// MarkPlaylistTracksNotPresent flips is_present_in_spotify to 0 for every
// child row whose stored snapshot_id doesn't match the snapshot a full
// sync just finished against, without deleting the row. Grounded on
// original_source/routes/utils/watch/db.py's
// mark_tracks_as_not_present_in_spotify: a full scan upserts every track
// still in the playlist with the new snapshot id, so anything left
// behind on an older snapshot was removed from Spotify.
func (s *Store) MarkPlaylistTracksNotPresent(spotifyID, currentSnapshotID string) error {
	table := playlistTrackTable(spotifyID)
	if err := ensurePlaylistTrackTable(s.db, table); err != nil {
		return err
	}
	_, err := s.db.Exec(fmt.Sprintf(`
		UPDATE %s SET is_present_in_spotify = 0
		WHERE is_present_in_spotify = 1 AND (snapshot_id IS NULL OR snapshot_id != ?)
	`, table), currentSnapshotID)
	if err != nil {
		return fmt.Errorf("watch: mark tracks not present in %s: %w", table, err)
	}
	return nil
}

// SetPlaylistTrackFinalPath records the output path of a completed
// download, used later by m3u generation.
func (s *Store) SetPlaylistTrackFinalPath(spotifyID, trackID, finalPath string) error {
	table := playlistTrackTable(spotifyID)
	_, err := s.db.Exec(fmt.Sprintf(`UPDATE %s SET final_path = ? WHERE spotify_track_id = ?`, table), finalPath, trackID)
	return err
}

// PresentPlaylistTracks returns every row currently marked present in
// Spotify, ordered by track number, for m3u generation.
func (s *Store) PresentPlaylistTracks(spotifyID string) ([]*models.PlaylistTrack, error) {
	table := playlistTrackTable(spotifyID)
	rows, err := s.db.Query(fmt.Sprintf(`
		SELECT spotify_track_id, title, artists, album, track_number, duration_ms, final_path
		FROM %s WHERE is_present_in_spotify = 1 ORDER BY track_number ASC
	`, table))
	if err != nil {
		return nil, fmt.Errorf("watch: list present tracks in %s: %w", table, err)
	}
	defer rows.Close()

	var out []*models.PlaylistTrack
	for rows.Next() {
		var (
			id, title      string
			artists, album sql.NullString
			trackNumber    sql.NullInt64
			durationMS     sql.NullInt64
			finalPath      sql.NullString
		)
		if err := rows.Scan(&id, &title, &artists, &album, &trackNumber, &durationMS, &finalPath); err != nil {
			return nil, fmt.Errorf("watch: scan present track in %s: %w", table, err)
		}
		t := models.NewPlaylistTrack(id, title, artists.String, album.String, int(trackNumber.Int64), int(durationMS.Int64))
		t.SetFinalPath(finalPath.String)
		out = append(out, t)
	}
	return out, rows.Err()
}

// AddArtist registers a new watched artist, or is a no-op if one with
// the same spotify_id already exists.
func (s *Store) AddArtist(a *models.WatchedArtist) error {
	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO watched_artists (spotify_id, name, genres, added_at, is_active)
		VALUES (?, ?, ?, ?, 1)
	`, a.ID(), a.Name(), a.Genres(), epochSeconds(a.CreatedAt()))
	if err != nil {
		return fmt.Errorf("watch: add artist: %w", err)
	}
	return nil
}

// RemoveArtist deactivates a watched artist.
func (s *Store) RemoveArtist(spotifyID string) error {
	_, err := s.db.Exec(`UPDATE watched_artists SET is_active = 0 WHERE spotify_id = ?`, spotifyID)
	return err
}

// Artists returns every active watched artist, ordered by spotify_id
// for a stable round-robin sequence.
func (s *Store) Artists() ([]*models.WatchedArtist, error) {
	rows, err := s.db.Query(`
		SELECT spotify_id, name, genres, total_albums_on_spotify, batch_next_offset, added_at, last_checked
		FROM watched_artists WHERE is_active = 1 ORDER BY spotify_id
	`)
	if err != nil {
		return nil, fmt.Errorf("watch: list artists: %w", err)
	}
	defer rows.Close()

	var out []*models.WatchedArtist
	for rows.Next() {
		var (
			id, name           string
			genres             sql.NullString
			totalAlbums        int
			batchNextOffset    int
			addedAt            float64
			lastChecked        sql.NullFloat64
		)
		if err := rows.Scan(&id, &name, &genres, &totalAlbums, &batchNextOffset, &addedAt, &lastChecked); err != nil {
			return nil, fmt.Errorf("watch: scan artist row: %w", err)
		}
		a := models.NewWatchedArtist(id, name)
		a.SetGenres(genres.String)
		a.SetTotalAlbumsOnSpotify(totalAlbums)
		a.SetBatchNextOffset(batchNextOffset)
		if lastChecked.Valid {
			a.SetLastChecked(time.Unix(int64(lastChecked.Float64), 0))
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Artist returns one active watched artist by id, or nil if it isn't
// being watched.
func (s *Store) Artist(spotifyID string) (*models.WatchedArtist, error) {
	all, err := s.Artists()
	if err != nil {
		return nil, err
	}
	for _, a := range all {
		if a.ID() == spotifyID {
			return a, nil
		}
	}
	return nil, nil
}

// UpdateArtistProgress persists the batch cursor after a page of
// discography results.
func (s *Store) UpdateArtistProgress(spotifyID string, nextOffset int) error {
	_, err := s.db.Exec(`UPDATE watched_artists SET batch_next_offset = ? WHERE spotify_id = ?`, nextOffset, spotifyID)
	return err
}

// FinishArtistScan resets the cursor and records the discography total
// once a full page sweep completes.
func (s *Store) FinishArtistScan(spotifyID string, totalAlbums int) error {
	_, err := s.db.Exec(`
		UPDATE watched_artists SET batch_next_offset = 0, total_albums_on_spotify = ?, last_checked = ?
		WHERE spotify_id = ?
	`, totalAlbums, epochSeconds(time.Now()), spotifyID)
	return err
}

// ArtistAlbumIDs returns the set of album ids already present in an
// artist's child table.
func (s *Store) ArtistAlbumIDs(spotifyID string) (map[string]bool, error) {
	table := artistAlbumTable(spotifyID)
	if err := ensureArtistAlbumTable(s.db, table); err != nil {
		return nil, err
	}
	rows, err := s.db.Query(fmt.Sprintf(`SELECT album_spotify_id FROM %s`, table))
	if err != nil {
		return nil, fmt.Errorf("watch: list album ids in %s: %w", table, err)
	}
	defer rows.Close()

	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("watch: scan album id in %s: %w", table, err)
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

// UpsertArtistAlbum writes or refreshes one album row in an artist's
// child table, recording the download task submitted for it.
func (s *Store) UpsertArtistAlbum(spotifyID string, a *models.ArtistAlbum) error {
	table := artistAlbumTable(spotifyID)
	if err := ensureArtistAlbumTable(s.db, table); err != nil {
		return err
	}
	_, err := s.db.Exec(fmt.Sprintf(`
		INSERT INTO %s (
			album_spotify_id, title, album_type, release_date, total_tracks,
			added_to_db, last_seen_on_spotify, download_task_id, download_status
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(album_spotify_id) DO UPDATE SET
			last_seen_on_spotify = excluded.last_seen_on_spotify,
			download_task_id = excluded.download_task_id,
			download_status = excluded.download_status
	`, table),
		a.ID(), a.Title(), a.AlbumType(), a.ReleaseDate(), a.TotalTracks(),
		epochSeconds(time.Now()), epochSeconds(time.Now()), a.DownloadTaskID(), int(a.DownloadStatus()),
	)
	if err != nil {
		return fmt.Errorf("watch: upsert artist album in %s: %w", table, err)
	}
	return nil
}

func epochSeconds(t time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return float64(t.Unix())
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
