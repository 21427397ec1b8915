package shared

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// configMigrationStep is one version-to-version upgrade applied to an
// in-memory Config. This mirrors the teacher's versioned Migration{Version,
// Up, Down} shape (this file, in the original), but operates on a Go
// struct instead of SQL text: the history store's schema evolution needed
// the additive-ALTER style instead (see internal/history/schema.go), so
// the SQL-execution half of the original file's machinery
// (applyMigration/rollbackMigration/removeComments) did not survive; the
// "step table keyed by version, applied in order, recorded as the new
// version" idea did, repointed at config version bumps.
type configMigrationStep struct {
	from, to string
	apply    func(raw map[string]any, cfg *Config)
}

var configMigrations = []configMigrationStep{
	{
		from: AcceptedPredecessorVersion,
		to:   ConfigVersion,
		apply: func(raw map[string]any, cfg *Config) {
			migrateLegacyWatchKeys(raw, cfg)
		},
	},
}

// MigrateConfig validates cfg.Version against the versions this build
// understands and applies any pending migration step in place, per
// SPEC_FULL.md §6's "Config version migration": an exact match to the one
// accepted predecessor is upgraded; anything else aborts with
// ErrVersionMismatch (fatal, per spec.md §7). It has no access to the
// original file's legacy snake_case keys (see MigrateConfigFromBytes for
// that); callers that only hold an in-memory Config still get the version
// bump, just not the legacy-key backfill.
func MigrateConfig(cfg *Config) error {
	return migrateConfig(cfg, nil)
}

// MigrateConfigFromBytes is MigrateConfig plus the original TOML file's
// raw bytes, so a pending migration step can see keys the typed Config
// struct dropped (legacy snake_case names with no matching field). Used
// by LoadConfig, which is the only caller with the raw bytes on hand.
func MigrateConfigFromBytes(cfg *Config, data []byte) error {
	return migrateConfig(cfg, data)
}

func migrateConfig(cfg *Config, data []byte) error {
	if cfg.Version == "" {
		cfg.Version = AcceptedPredecessorVersion
	}
	if cfg.Version == ConfigVersion {
		return nil
	}

	for _, step := range configMigrations {
		if cfg.Version != step.from {
			continue
		}
		var raw map[string]any
		if data != nil {
			_ = toml.Unmarshal(data, &raw)
		}
		step.apply(raw, cfg)
		cfg.Version = step.to
		return nil
	}

	return fmt.Errorf("%w: got %q, expected %q or %q", ErrVersionMismatch, cfg.Version, ConfigVersion, AcceptedPredecessorVersion)
}

// migrateLegacyWatchKeys tolerates the original system's legacy watch
// config keys (max_tracks_per_run, poll_interval_seconds) by backfilling
// the canonical fields only when they are still at their zero value, per
// spec.md §9's design note: "accept the camelCase form only but tolerate
// and migrate legacy snake_case keys on first read" (translated here to
// this module's snake_case TOML convention: canonical key wins if present,
// legacy key is read once and never written back).
func migrateLegacyWatchKeys(raw map[string]any, cfg *Config) {
	watch, _ := raw["watch"].(map[string]any)

	if cfg.Watch.MaxItemsPerRun == 0 {
		if v, ok := intFromAny(watch["max_tracks_per_run"]); ok {
			cfg.Watch.MaxItemsPerRun = v
		}
	}
	if cfg.Watch.MaxItemsPerRun > 50 {
		cfg.Watch.MaxItemsPerRun = 50
	}
	if cfg.Watch.MaxItemsPerRun < 1 {
		cfg.Watch.MaxItemsPerRun = 50
	}

	if cfg.Watch.WatchPollIntervalSeconds == 0 {
		if v, ok := intFromAny(watch["poll_interval_seconds"]); ok {
			cfg.Watch.WatchPollIntervalSeconds = v
		}
	}
}

func intFromAny(v any) (int, bool) {
	switch n := v.(type) {
	case int64:
		return int(n), true
	case int:
		return n, true
	case float64:
		return int(n), true
	}
	return 0, false
}
