package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/spindle/internal/models"
	"github.com/desertthunder/spindle/internal/shared"
	"github.com/urfave/cli/v3"
)

// WatchAddPlaylist registers a playlist for incremental reconciliation.
func (r *Runner) WatchAddPlaylist(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireWatch(); err != nil {
		return err
	}

	playlistID := cmd.StringArg("playlist_id")
	if playlistID == "" {
		return fmt.Errorf("%w: playlist_id argument is required", shared.ErrMissingArgument)
	}

	name := playlistID
	if r.catalogueSvc != nil {
		if remote, err := r.catalogueSvc.GetPlaylist(ctx, "spotify", playlistID); err == nil {
			name = remote.Title
		}
	}

	if err := r.watchStore.AddPlaylist(models.NewWatchedPlaylist(playlistID, name, "", "")); err != nil {
		return fmt.Errorf("failed to add watched playlist: %w", err)
	}
	return r.writePlainln("✓ Watching playlist %s", playlistID)
}

// WatchAddArtist registers an artist for incremental discography scanning.
func (r *Runner) WatchAddArtist(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireWatch(); err != nil {
		return err
	}

	artistID := cmd.StringArg("artist_id")
	if artistID == "" {
		return fmt.Errorf("%w: artist_id argument is required", shared.ErrMissingArgument)
	}

	name := artistID
	if r.catalogueSvc != nil {
		if remote, err := r.catalogueSvc.GetArtist(ctx, "spotify", artistID); err == nil {
			name = remote.Name
		}
	}

	if err := r.watchStore.AddArtist(models.NewWatchedArtist(artistID, name)); err != nil {
		return fmt.Errorf("failed to add watched artist: %w", err)
	}
	return r.writePlainln("✓ Watching artist %s", artistID)
}

// WatchRemovePlaylist stops watching a playlist.
func (r *Runner) WatchRemovePlaylist(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireWatch(); err != nil {
		return err
	}

	playlistID := cmd.StringArg("playlist_id")
	if playlistID == "" {
		return fmt.Errorf("%w: playlist_id argument is required", shared.ErrMissingArgument)
	}
	if err := r.watchStore.RemovePlaylist(playlistID); err != nil {
		return fmt.Errorf("failed to remove watched playlist: %w", err)
	}
	return r.writePlainln("✓ Stopped watching playlist %s", playlistID)
}

// WatchRemoveArtist stops watching an artist.
func (r *Runner) WatchRemoveArtist(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireWatch(); err != nil {
		return err
	}

	artistID := cmd.StringArg("artist_id")
	if artistID == "" {
		return fmt.Errorf("%w: artist_id argument is required", shared.ErrMissingArgument)
	}
	if err := r.watchStore.RemoveArtist(artistID); err != nil {
		return fmt.Errorf("failed to remove watched artist: %w", err)
	}
	return r.writePlainln("✓ Stopped watching artist %s", artistID)
}

// WatchList prints every watched playlist and artist.
func (r *Runner) WatchList(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireWatch(); err != nil {
		return err
	}

	playlists, err := r.watchStore.Playlists()
	if err != nil {
		return fmt.Errorf("failed to list watched playlists: %w", err)
	}
	artists, err := r.watchStore.Artists()
	if err != nil {
		return fmt.Errorf("failed to list watched artists: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{"playlists": playlists, "artists": artists}, true)
	}

	if len(playlists) == 0 && len(artists) == 0 {
		return r.writePlainln("Nothing is being watched.")
	}

	for _, p := range playlists {
		if err := r.writePlainln("playlist  %s  %s", p.ID(), p.Name()); err != nil {
			return err
		}
	}
	for _, a := range artists {
		if err := r.writePlainln("artist    %s  %s", a.ID(), a.Name()); err != nil {
			return err
		}
	}
	return nil
}
