package shared

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigMigratesLegacyWatchKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	contents := `
version = "` + AcceptedPredecessorVersion + `"

[watch]
max_tracks_per_run = 30
poll_interval_seconds = 90
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if config.Version != ConfigVersion {
		t.Errorf("expected migrated version %s, got %s", ConfigVersion, config.Version)
	}
	if config.Watch.MaxItemsPerRun != 30 {
		t.Errorf("expected legacy max_tracks_per_run to backfill to 30, got %d", config.Watch.MaxItemsPerRun)
	}
	if config.Watch.WatchPollIntervalSeconds != 90 {
		t.Errorf("expected legacy poll_interval_seconds to backfill to 90, got %d", config.Watch.WatchPollIntervalSeconds)
	}
}

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Version != ConfigVersion {
			t.Errorf("expected version %s, got %s", ConfigVersion, config.Version)
		}

		if config.Database.Path != "./tmp/spindle.db" {
			t.Errorf("expected database path ./tmp/spindle.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}

		if config.Credentials.Spotify.ClientID != "your_spotify_client_id" {
			t.Errorf("expected spotify client_id your_spotify_client_id, got %s", config.Credentials.Spotify.ClientID)
		}

		if config.Credentials.Deezer.ARL != "" {
			t.Errorf("expected empty deezer arl by default, got %s", config.Credentials.Deezer.ARL)
		}

		if config.Scheduler.MaxConcurrentDownloads != 3 {
			t.Errorf("expected max_concurrent_downloads 3, got %d", config.Scheduler.MaxConcurrentDownloads)
		}

		if config.Scheduler.Service != "spotify" {
			t.Errorf("expected service spotify, got %s", config.Scheduler.Service)
		}

		if config.RateLimit.SustainedMax != 90 {
			t.Errorf("expected sustained_max 90, got %d", config.RateLimit.SustainedMax)
		}

		if config.RateLimit.SustainedWindowS != 30 {
			t.Errorf("expected sustained_window_seconds 30, got %d", config.RateLimit.SustainedWindowS)
		}

		if config.Watch.Enabled {
			t.Error("expected watch disabled by default")
		}

		if config.Watch.MaxItemsPerRun != 50 {
			t.Errorf("expected max_items_per_run 50, got %d", config.Watch.MaxItemsPerRun)
		}

		if len(config.Watch.WatchedArtistAlbumGroup) != 2 {
			t.Errorf("expected 2 default album groups, got %d", len(config.Watch.WatchedArtistAlbumGroup))
		}

		if config.History.RetentionDays != 90 {
			t.Errorf("expected retention_days 90, got %d", config.History.RetentionDays)
		}
	})

	t.Run("DefaultConfigPassesMigration", func(t *testing.T) {
		config := DefaultConfig()
		if err := MigrateConfig(config); err != nil {
			t.Fatalf("MigrateConfig on default config: %v", err)
		}
		if config.Version != ConfigVersion {
			t.Errorf("expected version %s after migration, got %s", ConfigVersion, config.Version)
		}
	})
}
