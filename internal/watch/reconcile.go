package watch

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spindle/internal/catalogue"
	"github.com/desertthunder/spindle/internal/models"
	"github.com/desertthunder/spindle/internal/scheduler"
	"github.com/desertthunder/spindle/internal/shared"
)

// Reconciler drives one playlist or artist through a single
// reconciliation pass, per spec.md §4.8. It holds no per-tick state;
// all progress lives in Store so a crash mid-sync resumes cleanly on
// the next tick.
type Reconciler struct {
	store      *Store
	metadata   MetadataProvider
	submit     Submitter
	cfg        shared.WatchConfig
	sched      shared.SchedulerConfig
	outputRoot string
	log        *log.Logger
}

// NewReconciler constructs a Reconciler wired to the watch store,
// catalogue metadata provider, and task scheduler. outputRoot is the
// library root m3u files are written under, joined with the
// configured custom directory format.
func NewReconciler(store *Store, metadata MetadataProvider, submit Submitter, cfg shared.WatchConfig, sched shared.SchedulerConfig, outputRoot string, logger *log.Logger) *Reconciler {
	return &Reconciler{store: store, metadata: metadata, submit: submit, cfg: cfg, sched: sched, outputRoot: outputRoot, log: logger}
}

func constructSpotifyURL(id, kind string) string {
	return fmt.Sprintf("https://open.spotify.com/%s/%s", kind, id)
}

// batchLimit clamps the configured page size into Spotify's documented
// [1,50] pagination range, per §4.8's "limit = configured
// maxItemsPerRun ∈ [1,50]".
func (r *Reconciler) batchLimit() int {
	n := r.cfg.MaxItemsPerRun
	if n < 1 {
		return 50
	}
	if n > 50 {
		return 50
	}
	return n
}

// ReconcilePlaylist runs at most one reconciliation page for the given
// watched playlist, per §4.8's playlist reconciliation algorithm.
func (r *Reconciler) ReconcilePlaylist(ctx context.Context, playlistID string) error {
	playlist, err := r.store.Playlist(playlistID)
	if err != nil {
		return fmt.Errorf("watch: load playlist %s: %w", playlistID, err)
	}
	if playlist == nil {
		return fmt.Errorf("%w: playlist %s not watched", shared.ErrInvalidArgument, playlistID)
	}

	remote, err := r.metadata.GetPlaylist(ctx, "spotify", playlistID)
	if err != nil {
		return fmt.Errorf("watch: fetch playlist metadata for %s: %w", playlistID, err)
	}

	playlistChanged := true
	if r.cfg.UseSnapshotIDChecking {
		playlistChanged = playlist.SnapshotID() == "" || remote.SnapshotID != playlist.SnapshotID()
	}

	if !playlistChanged {
		needsSync, tracksToFind, err := r.needsTrackSync(playlistID, remote)
		if err != nil {
			return err
		}
		if !needsSync {
			r.log.Info("watch: playlist unchanged, skipping", "playlist_id", playlistID, "snapshot_id", remote.SnapshotID)
			return r.store.TouchPlaylist(playlistID)
		}
		if len(tracksToFind) > 0 {
			return r.targetedPlaylistSync(ctx, playlist, remote, tracksToFind)
		}
		// empty tracksToFind with needsSync=true means a count mismatch: fall
		// through to a full sync.
	}

	return r.fullPlaylistSync(ctx, playlist, remote)
}

// needsTrackSync compares the local child table against the remote
// snapshot, per §4.8's "per-track track counts match" check.
func (r *Reconciler) needsTrackSync(playlistID string, remote *catalogue.Playlist) (bool, []string, error) {
	trackSnapshots, err := r.store.PlaylistTracksWithSnapshot(playlistID)
	if err != nil {
		return false, nil, fmt.Errorf("watch: read track snapshots for %s: %w", playlistID, err)
	}
	if len(trackSnapshots) != remote.TotalTracks {
		r.log.Info("watch: track count mismatch, full sync required", "playlist_id", playlistID, "db", len(trackSnapshots), "api", remote.TotalTracks)
		return true, nil, nil
	}

	var stale []string
	for trackID, snapshot := range trackSnapshots {
		if snapshot != remote.SnapshotID {
			stale = append(stale, trackID)
		}
	}
	if len(stale) > 0 {
		return true, stale, nil
	}
	return false, nil, nil
}

// targetedPlaylistSync scans exactly one page for a small set of tracks
// whose local snapshot id is stale, per §4.8's targeted-sync mode. It
// never updates the playlist's own snapshot_id; only a full sync does.
func (r *Reconciler) targetedPlaylistSync(ctx context.Context, playlist *models.WatchedPlaylist, remote *catalogue.Playlist, tracksToFind []string) error {
	limit := r.batchLimit()
	offset := playlist.BatchNextOffset()

	page, err := r.metadata.PlaylistTracks(ctx, "spotify", playlist.ID(), limit, offset)
	if err != nil {
		return fmt.Errorf("watch: targeted sync fetch for %s: %w", playlist.ID(), err)
	}

	remaining := make(map[string]bool, len(tracksToFind))
	for _, id := range tracksToFind {
		remaining[id] = true
	}
	for _, t := range page.Items {
		if !remaining[t.ID] {
			continue
		}
		if err := r.store.UpsertPlaylistTrack(playlist.ID(), toPlaylistTrack(t), remote.SnapshotID); err != nil {
			return err
		}
		delete(remaining, t.ID)
	}

	nextOffset := offset + len(page.Items)
	if len(page.Items) > 0 && nextOffset < remote.TotalTracks {
		r.log.Info("watch: targeted sync processed page", "playlist_id", playlist.ID(), "offset", offset, "next_offset", nextOffset)
		return r.store.UpdatePlaylistProgress(playlist.ID(), nextOffset, "")
	}
	r.log.Info("watch: targeted sync reached end of playlist, resetting cursor", "playlist_id", playlist.ID())
	return r.store.UpdatePlaylistProgress(playlist.ID(), 0, "")
}

// fullPlaylistSync processes exactly one page toward a complete
// snapshot resync, per §4.8's full-sync mode.
func (r *Reconciler) fullPlaylistSync(ctx context.Context, playlist *models.WatchedPlaylist, remote *catalogue.Playlist) error {
	offset := playlist.BatchNextOffset()
	if playlist.BatchProcessingSnapshotID() == "" || playlist.BatchProcessingSnapshotID() != remote.SnapshotID || offset >= remote.TotalTracks {
		offset = 0
		if err := r.store.UpdatePlaylistProgress(playlist.ID(), 0, remote.SnapshotID); err != nil {
			return err
		}
		r.log.Info("watch: starting/resetting full sync", "playlist_id", playlist.ID(), "snapshot_id", remote.SnapshotID)
	}

	limit := r.batchLimit()
	page, err := r.metadata.PlaylistTracks(ctx, "spotify", playlist.ID(), limit, offset)
	if err != nil {
		return fmt.Errorf("watch: full sync fetch for %s: %w", playlist.ID(), err)
	}

	existingIDs, err := r.store.PlaylistTrackIDs(playlist.ID())
	if err != nil {
		return err
	}

	baseDir := r.sched.CustomDirFormat
	baseTrack := r.sched.CustomTrackFormat
	padTracks := r.sched.TracknumPadding

	for i, t := range page.Items {
		if !existingIDs[t.ID] {
			position := offset + i + 1
			dirFormat, trackFormat := applyPlaylistPlaceholders(baseDir, baseTrack, playlist.Name(), position, remote.TotalTracks, padTracks)
			params := map[string]any{
				"custom_dir_format":   dirFormat,
				"custom_track_format": trackFormat,
				"orig_request": map[string]any{
					"source":        "playlist_watch",
					"playlist_id":   playlist.ID(),
					"playlist_name": playlist.Name(),
				},
			}
			_, submitErr := r.submit.Submit(ctx, scheduler.SubmitRequest{
				Kind:       models.KindTrack,
				SourceURL:  constructSpotifyURL(t.ID, "track"),
				Display:    models.Display{Name: t.Title, Artist: strings.Join(t.Artists, ", ")},
				Parameters: params,
				Submitter:  "watch",
				FromWatch:  true,
			})
			if submitErr != nil && !errors.Is(submitErr, shared.ErrDuplicateDownload) {
				r.log.Error("watch: failed to queue download for playlist track", "playlist_id", playlist.ID(), "track_id", t.ID, "err", submitErr)
			}
		}
		if err := r.store.UpsertPlaylistTrack(playlist.ID(), toPlaylistTrack(t), remote.SnapshotID); err != nil {
			return err
		}
	}

	nextOffset := offset + len(page.Items)
	if len(page.Items) > 0 && nextOffset < remote.TotalTracks {
		r.log.Info("watch: full sync processed page", "playlist_id", playlist.ID(), "offset", offset, "next_offset", nextOffset)
		return r.store.UpdatePlaylistProgress(playlist.ID(), nextOffset, remote.SnapshotID)
	}

	if err := r.store.MarkPlaylistTracksNotPresent(playlist.ID(), remote.SnapshotID); err != nil {
		return err
	}

	if err := r.store.FinishPlaylistSync(playlist.ID(), remote.SnapshotID, remote.TotalTracks); err != nil {
		return err
	}
	r.log.Info("watch: full sync completed", "playlist_id", playlist.ID(), "snapshot_id", remote.SnapshotID)

	if err := r.regeneratePlaylistM3U(playlist); err != nil {
		r.log.Error("watch: failed to regenerate m3u", "playlist_id", playlist.ID(), "err", err)
	}
	return nil
}

// ReconcileArtist runs one page of discography reconciliation for the
// given watched artist, per §4.8's artist reconciliation algorithm.
func (r *Reconciler) ReconcileArtist(ctx context.Context, artistID string) error {
	artist, err := r.store.Artist(artistID)
	if err != nil {
		return fmt.Errorf("watch: load artist %s: %w", artistID, err)
	}
	if artist == nil {
		return fmt.Errorf("%w: artist %s not watched", shared.ErrInvalidArgument, artistID)
	}

	limit := r.batchLimit()
	offset := artist.BatchNextOffset()
	page, err := r.metadata.ArtistDiscography(ctx, "spotify", artistID, r.cfg.WatchedArtistAlbumGroup, limit, offset)
	if err != nil {
		return fmt.Errorf("watch: fetch discography for %s: %w", artistID, err)
	}

	existingIDs, err := r.store.ArtistAlbumIDs(artistID)
	if err != nil {
		return err
	}

	for _, album := range page.Items {
		if existingIDs[album.ID] {
			continue
		}
		a := models.NewArtistAlbum(album.ID, album.Title, album.AlbumType, album.ReleaseDate, album.TotalTracks)
		taskID, submitErr := r.submit.Submit(ctx, scheduler.SubmitRequest{
			Kind:      models.KindAlbum,
			SourceURL: constructSpotifyURL(album.ID, "album"),
			Display:   models.Display{Name: album.Title, Artist: artist.Name()},
			Parameters: map[string]any{
				"orig_request": map[string]any{
					"source":     "artist_watch",
					"artist_id":  artistID,
					"artist_name": artist.Name(),
				},
			},
			Submitter: "watch",
			FromWatch: true,
		})
		if submitErr != nil && !errors.Is(submitErr, shared.ErrDuplicateDownload) {
			r.log.Error("watch: failed to queue download for artist album", "artist_id", artistID, "album_id", album.ID, "err", submitErr)
		} else {
			a.SetDownloadTaskID(taskID)
			a.SetDownloadStatus(models.AlbumDownloadInitiated)
		}
		if err := r.store.UpsertArtistAlbum(artistID, a); err != nil {
			return err
		}
	}

	nextOffset := offset + len(page.Items)
	if page.HasMore {
		r.log.Info("watch: artist discography page processed", "artist_id", artistID, "next_offset", nextOffset)
		return r.store.UpdateArtistProgress(artistID, nextOffset)
	}
	r.log.Info("watch: artist discography scan complete", "artist_id", artistID, "total_albums", page.Total)
	return r.store.FinishArtistScan(artistID, page.Total)
}

// applyPlaylistPlaceholders substitutes %playlist%/%playlistnum% in the
// configured directory/track formats, per §4.8's per-track format
// override and _apply_playlist_placeholders's zero-padding rule.
func applyPlaylistPlaceholders(baseDirFmt, baseTrackFmt, playlistName string, position, totalTracks int, padTracks bool) (string, string) {
	width := 0
	if padTracks {
		width = len(strconv.Itoa(totalTracks))
		if width < 2 {
			width = 2
		}
	}

	var numStr string
	if padTracks && position > 0 {
		numStr = fmt.Sprintf("%0*d", width, position)
	} else if position > 0 {
		numStr = strconv.Itoa(position)
	}

	dirFmt := strings.ReplaceAll(baseDirFmt, "%playlist%", playlistName)
	trackFmt := strings.ReplaceAll(baseTrackFmt, "%playlist%", playlistName)
	trackFmt = strings.ReplaceAll(trackFmt, "%playlistnum%", numStr)
	return dirFmt, trackFmt
}

func toPlaylistTrack(t catalogue.Track) *models.PlaylistTrack {
	return models.NewPlaylistTrack(t.ID, t.Title, strings.Join(t.Artists, ", "), t.AlbumTitle, t.TrackNumber, t.DurationMS)
}
