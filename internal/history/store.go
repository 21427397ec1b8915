package history

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spindle/internal/models"
)

// Store is the history/state store: the normalized download_history
// table plus dynamically-created child tables, grounded on
// internal/repositories/migration.go's CRUD/scan idiom and
// original_source/routes/utils/history_manager.py's schema-evolution
// algorithm (see schema.go).
type Store struct {
	db  *sql.DB
	log *log.Logger
}

// Open wraps an already-connected database and brings its schema up to
// date. Schema evolution runs on every call, per spec.md §4.4's "run on
// every startup" requirement.
func Open(db *sql.DB, logger *log.Logger) (*Store, error) {
	if err := ensureSchema(db, logger); err != nil {
		return nil, err
	}
	return &Store{db: db, log: logger}, nil
}

// Upsert writes or updates a parent row. It looks up an existing row by
// task_id alone and updates it if found, otherwise inserts; download_type
// and external_ids take no part in deciding between insert and update.
func (s *Store) Upsert(h *models.DownloadHistory) error {
	if err := h.Validate(); err != nil {
		return fmt.Errorf("history: %w", err)
	}

	existing, err := s.GetByTaskID(h.TaskID())
	if err == nil && existing != nil {
		return s.update(h)
	}
	return s.insert(h)
}

func (s *Store) insert(h *models.DownloadHistory) error {
	_, err := s.db.Exec(`
		INSERT INTO download_history (
			download_type, title, artists, timestamp, status, service,
			quality_format, quality_bitrate, total_tracks, successful_tracks,
			failed_tracks, skipped_tracks, children_table, task_id,
			external_ids, release_date, genres, images, owner, album_type,
			duration_total_ms, explicit
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		string(h.DownloadType()), h.Title(), h.Artists(), epochSeconds(h.Timestamp()), h.Status(), h.Service(),
		h.QualityFormat(), h.QualityBitrate(), h.TotalTracks(), h.SuccessfulTracks(),
		h.FailedTracks(), h.SkippedTracks(), nullIfEmpty(h.ChildrenTable()), h.TaskID(),
		nullIfEmpty(h.ExternalIDs()), nullIfEmpty(h.ReleaseDate()), nullIfEmpty(h.Genres()),
		nullIfEmpty(h.Images()), nullIfEmpty(h.Owner()), nullIfEmpty(h.AlbumType()),
		h.DurationTotalMS(), h.Explicit(),
	)
	if err != nil {
		return fmt.Errorf("history: insert parent row: %w", err)
	}
	return nil
}

func (s *Store) update(h *models.DownloadHistory) error {
	_, err := s.db.Exec(`
		UPDATE download_history SET
			status = ?, quality_format = ?, quality_bitrate = ?, total_tracks = ?,
			successful_tracks = ?, failed_tracks = ?, skipped_tracks = ?,
			children_table = ?, external_ids = ?, release_date = ?, genres = ?,
			images = ?, owner = ?, album_type = ?, duration_total_ms = ?, explicit = ?
		WHERE task_id = ?
	`,
		h.Status(), h.QualityFormat(), h.QualityBitrate(), h.TotalTracks(),
		h.SuccessfulTracks(), h.FailedTracks(), h.SkippedTracks(),
		nullIfEmpty(h.ChildrenTable()), nullIfEmpty(h.ExternalIDs()), nullIfEmpty(h.ReleaseDate()), nullIfEmpty(h.Genres()),
		nullIfEmpty(h.Images()), nullIfEmpty(h.Owner()), nullIfEmpty(h.AlbumType()), h.DurationTotalMS(), h.Explicit(),
		h.TaskID(),
	)
	if err != nil {
		return fmt.Errorf("history: update parent row: %w", err)
	}
	return nil
}

// GetByTaskID fetches a parent row by task_id.
func (s *Store) GetByTaskID(taskID string) (*models.DownloadHistory, error) {
	row := s.db.QueryRow(`
		SELECT download_type, title, artists, timestamp, status, service,
			quality_format, quality_bitrate, total_tracks, successful_tracks,
			failed_tracks, skipped_tracks, children_table, task_id, external_ids,
			release_date, genres, images, owner, album_type, duration_total_ms, explicit
		FROM download_history WHERE task_id = ?
	`, taskID)
	return scanParentRow(row)
}

// ListOpts filters and paginates List.
type ListOpts struct {
	Limit        int
	Offset       int
	DownloadType string
	Status       string
}

// List returns parent rows, most recent first, filtered and paginated
// per spec.md §4.4's "reads" clause.
func (s *Store) List(opts ListOpts) ([]*models.DownloadHistory, error) {
	query := `
		SELECT download_type, title, artists, timestamp, status, service,
			quality_format, quality_bitrate, total_tracks, successful_tracks,
			failed_tracks, skipped_tracks, children_table, task_id, external_ids,
			release_date, genres, images, owner, album_type, duration_total_ms, explicit
		FROM download_history WHERE 1=1
	`
	var args []any
	if opts.DownloadType != "" {
		query += " AND download_type = ?"
		args = append(args, opts.DownloadType)
	}
	if opts.Status != "" {
		query += " AND status = ?"
		args = append(args, opts.Status)
	}
	query += " ORDER BY timestamp DESC"
	if opts.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, opts.Limit, opts.Offset)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("history: list: %w", err)
	}
	defer rows.Close()

	var out []*models.DownloadHistory
	for rows.Next() {
		h, err := scanParentRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// Search does a LIKE search over title/artists, per spec.md §4.4.
func (s *Store) Search(term string, limit int) ([]*models.DownloadHistory, error) {
	like := "%" + term + "%"
	rows, err := s.db.Query(`
		SELECT download_type, title, artists, timestamp, status, service,
			quality_format, quality_bitrate, total_tracks, successful_tracks,
			failed_tracks, skipped_tracks, children_table, task_id, external_ids,
			release_date, genres, images, owner, album_type, duration_total_ms, explicit
		FROM download_history
		WHERE title LIKE ? OR artists LIKE ?
		ORDER BY timestamp DESC
		LIMIT ?
	`, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("history: search: %w", err)
	}
	defer rows.Close()

	var out []*models.DownloadHistory
	for rows.Next() {
		h, err := scanParentRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// Stats aggregates counts by (download_type, status) and sums successful
// track counts across direct-track rows and parent rows, per spec.md §4.4.
type Stats struct {
	DownloadType     string
	Status           string
	Count            int
	SuccessfulTracks int
}

func (s *Store) Stats() ([]Stats, error) {
	rows, err := s.db.Query(`
		SELECT download_type, status, COUNT(*),
			SUM(CASE WHEN download_type = 'track' AND status = 'completed' THEN 1
				ELSE COALESCE(successful_tracks, 0) END)
		FROM download_history
		GROUP BY download_type, status
	`)
	if err != nil {
		return nil, fmt.Errorf("history: stats: %w", err)
	}
	defer rows.Close()

	var out []Stats
	for rows.Next() {
		var st Stats
		if err := rows.Scan(&st.DownloadType, &st.Status, &st.Count, &st.SuccessfulTracks); err != nil {
			return nil, fmt.Errorf("history: scan stats row: %w", err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// EnsureChildTable creates (or evolves) the child table for a parent
// task before the first per-track row is written, per spec.md §4.4's
// "child-row writes happen progressively" clause.
func (s *Store) EnsureChildTable(table string) error {
	return ensureChildTable(s.db, table, s.log)
}

// AppendChildRow writes one track's terminal outcome into its parent's
// child table.
func (s *Store) AppendChildRow(table string, row models.ChildTrackRow) error {
	if err := s.EnsureChildTable(table); err != nil {
		return err
	}
	_, err := s.db.Exec(fmt.Sprintf(`
		INSERT INTO %s (
			title, artists, album_title, duration_ms, track_number, disc_number,
			explicit, status, external_ids, genres, isrc, timestamp, position,
			metadata, service, quality_format, quality_bitrate
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, table),
		row.Title, row.Artists, row.AlbumTitle, row.DurationMS, row.TrackNumber, row.DiscNumber,
		row.Explicit, row.Status, nullIfEmpty(row.ExternalIDs), nullIfEmpty(row.Genres), nullIfEmpty(row.ISRC),
		epochSeconds(row.Timestamp), row.Position, nullIfEmpty(row.Metadata), row.Service,
		row.QualityFormat, row.QualityBitrate,
	)
	if err != nil {
		return fmt.Errorf("history: append child row to %s: %w", table, err)
	}
	return nil
}

// ChildRows reads every row from a child table, ordered by position.
func (s *Store) ChildRows(table string) ([]models.ChildTrackRow, error) {
	rows, err := s.db.Query(fmt.Sprintf(`
		SELECT title, artists, album_title, duration_ms, track_number, disc_number,
			explicit, status, external_ids, genres, isrc, timestamp, position,
			metadata, service, quality_format, quality_bitrate
		FROM %s ORDER BY position ASC
	`, table))
	if err != nil {
		return nil, fmt.Errorf("history: read child table %s: %w", table, err)
	}
	defer rows.Close()

	var out []models.ChildTrackRow
	for rows.Next() {
		var (
			r          models.ChildTrackRow
			externalID sql.NullString
			genres     sql.NullString
			isrc       sql.NullString
			metadata   sql.NullString
			ts         float64
		)
		if err := rows.Scan(
			&r.Title, &r.Artists, &r.AlbumTitle, &r.DurationMS, &r.TrackNumber, &r.DiscNumber,
			&r.Explicit, &r.Status, &externalID, &genres, &isrc, &ts, &r.Position,
			&metadata, &r.Service, &r.QualityFormat, &r.QualityBitrate,
		); err != nil {
			return nil, fmt.Errorf("history: scan child row in %s: %w", table, err)
		}
		r.ExternalIDs, r.Genres, r.ISRC, r.Metadata = externalID.String, genres.String, isrc.String, metadata.String
		r.Timestamp = time.Unix(int64(ts), 0)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Cleanup deletes parent rows older than retentionDays and drops any
// child tables they reference, per spec.md §4.4's "retention" clause.
// Returns the number of parent rows removed.
func (s *Store) Cleanup(retentionDays int) (int, error) {
	cutoff := epochSeconds(time.Now().AddDate(0, 0, -retentionDays))

	rows, err := s.db.Query(`SELECT children_table FROM download_history WHERE timestamp < ? AND children_table IS NOT NULL`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("history: cleanup: list expired children tables: %w", err)
	}
	var tables []string
	for rows.Next() {
		var t sql.NullString
		if err := rows.Scan(&t); err != nil {
			rows.Close()
			return 0, fmt.Errorf("history: cleanup: scan children_table: %w", err)
		}
		if t.Valid && t.String != "" {
			tables = append(tables, t.String)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	result, err := s.db.Exec(`DELETE FROM download_history WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("history: cleanup: delete parent rows: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("history: cleanup: rows affected: %w", err)
	}

	for _, t := range tables {
		if !isChildTableName(t) {
			s.log.Warn("cleanup: refusing to drop table with unexpected name", "table", t)
			continue
		}
		if _, err := s.db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", t)); err != nil {
			s.log.Warn("cleanup: failed to drop child table", "table", t, "err", err)
		}
	}

	return int(removed), nil
}

func scanParentRow(row *sql.Row) (*models.DownloadHistory, error) {
	var (
		downloadType                                            string
		title, artists, status, service                         string
		ts                                                       float64
		qualityFormat, qualityBitrate                            sql.NullString
		totalTracks, successfulTracks, failedTracks, skippedTracks int
		childrenTable, taskID, externalIDs                       sql.NullString
		releaseDate, genres, images, owner, albumType            sql.NullString
		durationTotalMS                                          int
		explicit                                                 bool
	)
	err := row.Scan(
		&downloadType, &title, &artists, &ts, &status, &service,
		&qualityFormat, &qualityBitrate, &totalTracks, &successfulTracks,
		&failedTracks, &skippedTracks, &childrenTable, &taskID, &externalIDs,
		&releaseDate, &genres, &images, &owner, &albumType, &durationTotalMS, &explicit,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("history: parent row not found")
	}
	if err != nil {
		return nil, fmt.Errorf("history: scan parent row: %w", err)
	}
	return buildDownloadHistory(
		downloadType, title, artists, ts, status, service, qualityFormat, qualityBitrate,
		totalTracks, successfulTracks, failedTracks, skippedTracks, childrenTable, taskID,
		externalIDs, releaseDate, genres, images, owner, albumType, durationTotalMS, explicit,
	), nil
}

func scanParentRows(rows *sql.Rows) (*models.DownloadHistory, error) {
	var (
		downloadType                                            string
		title, artists, status, service                         string
		ts                                                       float64
		qualityFormat, qualityBitrate                            sql.NullString
		totalTracks, successfulTracks, failedTracks, skippedTracks int
		childrenTable, taskID, externalIDs                       sql.NullString
		releaseDate, genres, images, owner, albumType            sql.NullString
		durationTotalMS                                          int
		explicit                                                 bool
	)
	err := rows.Scan(
		&downloadType, &title, &artists, &ts, &status, &service,
		&qualityFormat, &qualityBitrate, &totalTracks, &successfulTracks,
		&failedTracks, &skippedTracks, &childrenTable, &taskID, &externalIDs,
		&releaseDate, &genres, &images, &owner, &albumType, &durationTotalMS, &explicit,
	)
	if err != nil {
		return nil, fmt.Errorf("history: scan parent row: %w", err)
	}
	return buildDownloadHistory(
		downloadType, title, artists, ts, status, service, qualityFormat, qualityBitrate,
		totalTracks, successfulTracks, failedTracks, skippedTracks, childrenTable, taskID,
		externalIDs, releaseDate, genres, images, owner, albumType, durationTotalMS, explicit,
	), nil
}

func buildDownloadHistory(
	downloadType, title, artists string, ts float64, status, service string,
	qualityFormat, qualityBitrate sql.NullString,
	totalTracks, successfulTracks, failedTracks, skippedTracks int,
	childrenTable, taskID, externalIDs sql.NullString,
	releaseDate, genres, images, owner, albumType sql.NullString,
	durationTotalMS int, explicit bool,
) *models.DownloadHistory {
	h := models.NewDownloadHistory(taskID.String, models.Kind(downloadType), title, artists, service)
	h.SetTimestamp(time.Unix(int64(ts), 0))
	h.SetStatus(status)
	h.SetQuality(qualityFormat.String, qualityBitrate.String)
	h.SetTotalTracks(totalTracks)
	h.SetSummary(successfulTracks, failedTracks, skippedTracks)
	h.SetChildrenTable(childrenTable.String)
	h.SetExternalIDs(externalIDs.String)
	h.SetReleaseMetadata(releaseDate.String, genres.String, images.String, owner.String, albumType.String, durationTotalMS, explicit)
	return h
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func epochSeconds(t time.Time) float64 {
	return float64(t.Unix())
}

func isChildTableName(name string) bool {
	return strings.HasPrefix(name, "album_") || strings.HasPrefix(name, "playlist_")
}
