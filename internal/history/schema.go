package history

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
)

// parentColumns is the full expected column set for download_history,
// grounded on original_source/routes/utils/history_manager.py's
// expected_download_history_columns map.
var parentColumns = []struct{ name, ddl string }{
	{"id", "INTEGER PRIMARY KEY AUTOINCREMENT"},
	{"download_type", "TEXT NOT NULL"},
	{"title", "TEXT NOT NULL"},
	{"artists", "TEXT"},
	{"timestamp", "REAL NOT NULL"},
	{"status", "TEXT NOT NULL"},
	{"service", "TEXT"},
	{"quality_format", "TEXT"},
	{"quality_bitrate", "TEXT"},
	{"total_tracks", "INTEGER"},
	{"successful_tracks", "INTEGER"},
	{"failed_tracks", "INTEGER"},
	{"skipped_tracks", "INTEGER"},
	{"children_table", "TEXT"},
	{"task_id", "TEXT"},
	{"external_ids", "TEXT"},
	{"metadata", "TEXT"},
	{"release_date", "TEXT"},
	{"genres", "TEXT"},
	{"images", "TEXT"},
	{"owner", "TEXT"},
	{"album_type", "TEXT"},
	{"duration_total_ms", "INTEGER"},
	{"explicit", "BOOLEAN"},
}

// childColumns is the expected column set for every album_*/playlist_*
// child table.
var childColumns = []struct{ name, ddl string }{
	{"id", "INTEGER PRIMARY KEY AUTOINCREMENT"},
	{"title", "TEXT NOT NULL"},
	{"artists", "TEXT"},
	{"album_title", "TEXT"},
	{"duration_ms", "INTEGER"},
	{"track_number", "INTEGER"},
	{"disc_number", "INTEGER"},
	{"explicit", "BOOLEAN"},
	{"status", "TEXT NOT NULL"},
	{"external_ids", "TEXT"},
	{"genres", "TEXT"},
	{"isrc", "TEXT"},
	{"timestamp", "REAL NOT NULL"},
	{"position", "INTEGER"},
	{"metadata", "TEXT"},
	{"service", "TEXT"},
	{"quality_format", "TEXT"},
	{"quality_bitrate", "TEXT"},
}

// ensureSchema creates download_history if missing and brings it (and any
// existing child tables) up to the current column set via additive ALTER
// statements, run idempotently on every startup. Never drops a column.
// Grounded on history_manager.py's _ensure_database_exists.
func ensureSchema(db *sql.DB, logger *log.Logger) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS download_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			download_type TEXT NOT NULL,
			title TEXT NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("history: create download_history: %w", err)
	}

	if err := ensureColumns(db, "download_history", parentColumns, logger); err != nil {
		return fmt.Errorf("history: evolve download_history schema: %w", err)
	}

	if err := migrateLegacyParentColumns(db, logger); err != nil {
		logger.Warn("non-fatal: legacy column migration failed", "err", err)
	}

	if err := ensureParentIndexes(db); err != nil {
		logger.Warn("non-fatal: index creation failed", "err", err)
	}

	if err := migrateExistingChildTables(db, logger); err != nil {
		logger.Warn("non-fatal: child table migration failed", "err", err)
	}

	return nil
}

// ensureColumns adds any column in want not already present in table,
// via ALTER TABLE ADD COLUMN. PRIMARY KEY/AUTOINCREMENT are stripped from
// the DDL fragment since SQLite forbids adding a primary key column to an
// existing table.
func ensureColumns(db *sql.DB, table string, want []struct{ name, ddl string }, logger *log.Logger) error {
	existing, err := tableColumns(db, table)
	if err != nil {
		return err
	}

	for _, col := range want {
		if existing[col.name] {
			continue
		}
		ddl := strings.TrimSpace(strings.NewReplacer(
			"PRIMARY KEY", "", "AUTOINCREMENT", "",
		).Replace(col.ddl))
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, col.name, ddl)
		if _, err := db.Exec(stmt); err != nil {
			logger.Warn("could not add column", "table", table, "column", col.name, "err", err)
			continue
		}
		logger.Info("added missing column", "table", table, "column", col.name)
	}
	return nil
}

func tableColumns(db *sql.DB, table string) (map[string]bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("table_info(%s): %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid        int
			name       string
			ctype      string
			notNull    int
			defaultVal sql.NullString
			pk         int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &defaultVal, &pk); err != nil {
			return nil, fmt.Errorf("scan table_info row: %w", err)
		}
		cols[name] = true
	}
	return cols, rows.Err()
}

// migrateLegacyParentColumns backfills timestamp from legacy time/created_at/date
// columns and copies quality→quality_format, bitrate→quality_bitrate, per
// history_manager.py's best-effort legacy migration.
func migrateLegacyParentColumns(db *sql.DB, logger *log.Logger) error {
	cols, err := tableColumns(db, "download_history")
	if err != nil {
		return err
	}

	for _, legacy := range []string{"time", "created_at", "date"} {
		if !cols[legacy] {
			continue
		}
		stmt := fmt.Sprintf(
			"UPDATE download_history SET timestamp = %s WHERE timestamp IS NULL",
			legacy,
		)
		if _, err := db.Exec(stmt); err != nil {
			logger.Warn("legacy timestamp backfill failed", "column", legacy, "err", err)
		}
		break
	}

	if cols["quality"] {
		if _, err := db.Exec(`UPDATE download_history SET quality_format = quality WHERE quality_format IS NULL`); err != nil {
			logger.Warn("legacy quality backfill failed", "err", err)
		}
	}
	if cols["bitrate"] {
		if _, err := db.Exec(`UPDATE download_history SET quality_bitrate = bitrate WHERE quality_bitrate IS NULL`); err != nil {
			logger.Warn("legacy bitrate backfill failed", "err", err)
		}
	}
	return nil
}

func ensureParentIndexes(db *sql.DB) error {
	cols, err := tableColumns(db, "download_history")
	if err != nil {
		return err
	}

	if cols["timestamp"] {
		if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_download_history_timestamp ON download_history(timestamp)`); err != nil {
			return err
		}
	}
	if cols["download_type"] && cols["status"] {
		if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_download_history_type_status ON download_history(download_type, status)`); err != nil {
			return err
		}
	}
	if cols["task_id"] {
		if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_download_history_task_id ON download_history(task_id)`); err != nil {
			return err
		}
	}
	if cols["task_id"] && cols["download_type"] && cols["external_ids"] {
		if _, err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS uq_download_history_task_type_ids ON download_history(task_id, download_type, external_ids)`); err != nil {
			return err
		}
	}
	return nil
}

// ensureChildTable creates a child table if missing and evolves its
// columns to the current set, per history_manager.py's _create_children_table.
func ensureChildTable(db *sql.DB, table string, logger *log.Logger) error {
	if _, err := db.Exec(fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL
		)
	`, table)); err != nil {
		return fmt.Errorf("history: create child table %s: %w", table, err)
	}
	return ensureColumns(db, table, childColumns, logger)
}

// migrateExistingChildTables scans for orphan album_*/playlist_* tables
// (e.g. left over from a crash before the parent row was finalized) and
// brings each up to the current child schema.
func migrateExistingChildTables(db *sql.DB, logger *log.Logger) error {
	rows, err := db.Query(`
		SELECT name FROM sqlite_master
		WHERE type='table' AND (name LIKE 'album_%' OR name LIKE 'playlist_%')
	`)
	if err != nil {
		return fmt.Errorf("list child tables: %w", err)
	}
	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return fmt.Errorf("scan child table name: %w", err)
		}
		tables = append(tables, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, t := range tables {
		if err := ensureChildTable(db, t, logger); err != nil {
			logger.Warn("non-fatal: failed to migrate child table", "table", t, "err", err)
		}
	}
	return nil
}
