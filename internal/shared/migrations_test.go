package shared

import "testing"

func TestMigrateConfigFromBytesBackfillsLegacyWatchKeys(t *testing.T) {
	cfg := &Config{Version: AcceptedPredecessorVersion}
	raw := []byte(`
version = "` + AcceptedPredecessorVersion + `"

[watch]
max_tracks_per_run = 25
poll_interval_seconds = 120
`)
	if err := MigrateConfigFromBytes(cfg, raw); err != nil {
		t.Fatalf("MigrateConfigFromBytes: %v", err)
	}
	if cfg.Watch.MaxItemsPerRun != 25 {
		t.Errorf("expected legacy max_tracks_per_run to backfill to 25, got %d", cfg.Watch.MaxItemsPerRun)
	}
	if cfg.Watch.WatchPollIntervalSeconds != 120 {
		t.Errorf("expected legacy poll_interval_seconds to backfill to 120, got %d", cfg.Watch.WatchPollIntervalSeconds)
	}
}

func TestMigrateConfigFromBytesCanonicalKeyWins(t *testing.T) {
	cfg := &Config{Version: AcceptedPredecessorVersion}
	cfg.Watch.MaxItemsPerRun = 10
	raw := []byte(`
version = "` + AcceptedPredecessorVersion + `"

[watch]
max_items_per_run = 10
max_tracks_per_run = 25
`)
	if err := MigrateConfigFromBytes(cfg, raw); err != nil {
		t.Fatalf("MigrateConfigFromBytes: %v", err)
	}
	if cfg.Watch.MaxItemsPerRun != 10 {
		t.Errorf("expected canonical key to win over legacy key, got %d", cfg.Watch.MaxItemsPerRun)
	}
}

func TestMigrateConfigNoopAtCurrentVersion(t *testing.T) {
	cfg := &Config{Version: ConfigVersion}
	if err := MigrateConfig(cfg); err != nil {
		t.Fatalf("MigrateConfig: %v", err)
	}
	if cfg.Version != ConfigVersion {
		t.Fatalf("expected version unchanged, got %q", cfg.Version)
	}
}

func TestMigrateConfigUpgradesAcceptedPredecessor(t *testing.T) {
	cfg := &Config{Version: AcceptedPredecessorVersion}
	if err := MigrateConfig(cfg); err != nil {
		t.Fatalf("MigrateConfig: %v", err)
	}
	if cfg.Version != ConfigVersion {
		t.Fatalf("expected upgrade to %q, got %q", ConfigVersion, cfg.Version)
	}
}

func TestMigrateConfigTreatsMissingVersionAsPredecessor(t *testing.T) {
	cfg := &Config{}
	if err := MigrateConfig(cfg); err != nil {
		t.Fatalf("MigrateConfig: %v", err)
	}
	if cfg.Version != ConfigVersion {
		t.Fatalf("expected upgrade to %q, got %q", ConfigVersion, cfg.Version)
	}
}

func TestMigrateConfigRejectsUnknownVersion(t *testing.T) {
	cfg := &Config{Version: "1.0.0"}
	if err := MigrateConfig(cfg); err == nil {
		t.Fatal("expected ErrVersionMismatch for unknown version")
	}
}

func TestMigrateConfigClampsMaxItemsPerRun(t *testing.T) {
	cfg := &Config{Version: AcceptedPredecessorVersion}
	cfg.Watch.MaxItemsPerRun = 500
	if err := MigrateConfig(cfg); err != nil {
		t.Fatalf("MigrateConfig: %v", err)
	}
	if cfg.Watch.MaxItemsPerRun != 50 {
		t.Fatalf("expected clamp to 50, got %d", cfg.Watch.MaxItemsPerRun)
	}
}

func TestMigrateConfigIsIdempotent(t *testing.T) {
	cfg := &Config{Version: AcceptedPredecessorVersion}
	if err := MigrateConfig(cfg); err != nil {
		t.Fatalf("first MigrateConfig: %v", err)
	}
	if err := MigrateConfig(cfg); err != nil {
		t.Fatalf("second MigrateConfig: %v", err)
	}
	if cfg.Version != ConfigVersion {
		t.Fatalf("expected stable version %q, got %q", ConfigVersion, cfg.Version)
	}
}
