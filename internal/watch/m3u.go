package watch

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/desertthunder/spindle/internal/models"
)

// regeneratePlaylistM3U writes the playlist's .m3u file after a
// completed full sync, per §4.8's "M3U generation" clause. The output
// path is the playlist's configured directory joined with its name;
// rows without a final_path (not yet downloaded) are skipped.
func (r *Reconciler) regeneratePlaylistM3U(playlist *models.WatchedPlaylist) error {
	outputDir := filepath.Join(r.outputRoot, playlistOutputDir(r.sched.CustomDirFormat, playlist.Name()))
	return writeM3U(outputDir, playlist.Name(), r.store, playlist.ID())
}

func playlistOutputDir(baseDirFmt, playlistName string) string {
	dirFmt, _ := applyPlaylistPlaceholders(baseDirFmt, "", playlistName, 0, 0, false)
	return dirFmt
}

// writeM3U enumerates a playlist's present-in-spotify rows and writes
// an #EXTM3U playlist file at outputDir/playlistName.m3u, with each
// track's final_path rewritten relative to outputDir.
func writeM3U(outputDir, playlistName string, store *Store, playlistID string) error {
	tracks, err := store.PresentPlaylistTracks(playlistID)
	if err != nil {
		return fmt.Errorf("watch: read present tracks for m3u: %w", err)
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("watch: create m3u output dir %s: %w", outputDir, err)
	}

	path := filepath.Join(outputDir, sanitizeFilename(playlistName)+".m3u")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("watch: create m3u file %s: %w", path, err)
	}
	defer f.Close()

	if _, err := fmt.Fprintln(f, "#EXTM3U"); err != nil {
		return fmt.Errorf("watch: write m3u header: %w", err)
	}

	for _, t := range tracks {
		if t.FinalPath() == "" {
			continue
		}
		rel, err := filepath.Rel(outputDir, t.FinalPath())
		if err != nil {
			rel = t.FinalPath()
		}
		durationSeconds := t.DurationMS() / 1000
		if _, err := fmt.Fprintf(f, "#EXTINF:%d,%s - %s\n%s\n", durationSeconds, t.Artists(), t.Title(), rel); err != nil {
			return fmt.Errorf("watch: write m3u entry: %w", err)
		}
	}
	return nil
}

func sanitizeFilename(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			out = append(out, '_')
		default:
			out = append(out, r)
		}
	}
	return string(out)
}
