// Package sqlite provides SQLite-based persistent storage for player state.
// Uses WAL mode for concurrent reads and crash-safe writes.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)

	"github.com/BigPhill11/pilot-program-learn-sub001/internal/domain"
)

// DB wraps a SQLite connection with WAL mode and migrations.
type DB struct {
	db *sql.DB
}

var _ domain.GameStore = (*DB)(nil)

// Open creates or opens the SQLite database at dir/state.db.
// Enables WAL mode, foreign keys, and 5-second busy timeout.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dir, "state.db")
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// Connection pool settings for SQLite
	db.SetMaxOpenConns(1) // SQLite is single-writer
	db.SetMaxIdleConns(1)

	d := &DB{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return d, nil
}

// Close cleanly shuts down the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks database connectivity.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// migration is one schema step. Versions are applied in order and recorded
// in schema_migrations so each runs once per database.
type migration struct {
	version int
	stmts   []string
}

var migrations = []migration{
	{1, []string{
		// Append-only swipe log; the sole input to streak calculation.
		`CREATE TABLE IF NOT EXISTS interactions (
			id           TEXT PRIMARY KEY,
			user_id      TEXT NOT NULL,
			candidate_id TEXT NOT NULL,
			action       TEXT NOT NULL,
			mode         TEXT NOT NULL DEFAULT 'classic',
			xp_delta     INTEGER NOT NULL DEFAULT 0,
			ts           INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_interactions_user_ts ON interactions(user_id, ts)`,

		// Cumulative counters, one row per user
		`CREATE TABLE IF NOT EXISTS stats (
			user_id               TEXT PRIMARY KEY,
			total_xp              INTEGER NOT NULL DEFAULT 0,
			level                 INTEGER NOT NULL DEFAULT 1,
			swipe_count           INTEGER NOT NULL DEFAULT 0,
			like_count            INTEGER NOT NULL DEFAULT 0,
			super_like_count      INTEGER NOT NULL DEFAULT 0,
			pass_count            INTEGER NOT NULL DEFAULT 0,
			current_streak        INTEGER NOT NULL DEFAULT 0,
			longest_streak        INTEGER NOT NULL DEFAULT 0,
			super_likes_remaining INTEGER NOT NULL DEFAULT 0,
			coins                 INTEGER NOT NULL DEFAULT 0,
			challenges_completed  INTEGER NOT NULL DEFAULT 0,
			allowance_day         TEXT NOT NULL DEFAULT '',
			updated_at            INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_stats_xp ON stats(total_xp)`,

		`CREATE TABLE IF NOT EXISTS achievements (
			user_id     TEXT NOT NULL,
			id          TEXT NOT NULL,
			unlocked_at INTEGER NOT NULL,
			PRIMARY KEY (user_id, id)
		)`,

		// Daily challenges keyed by calendar day; old days are kept
		`CREATE TABLE IF NOT EXISTS daily_challenges (
			user_id     TEXT NOT NULL,
			day         TEXT NOT NULL,
			id          TEXT NOT NULL,
			type        TEXT NOT NULL,
			name        TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			icon        TEXT NOT NULL DEFAULT '',
			target      INTEGER NOT NULL,
			progress    INTEGER NOT NULL DEFAULT 0,
			completed   BOOLEAN NOT NULL DEFAULT 0,
			xp_reward   INTEGER NOT NULL,
			category    TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (user_id, day)
		)`,
	}},
}

// migrate applies every migration newer than the recorded schema version.
func (d *DB) migrate() error {
	if _, err := d.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at INTEGER NOT NULL
	)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	current, err := d.SchemaVersion()
	if err != nil {
		return err
	}
	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if err := d.apply(m); err != nil {
			return fmt.Errorf("migration %d: %w", m.version, err)
		}
	}
	return nil
}

func (d *DB) apply(m migration) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range m.stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("%w\nSQL: %s", err, stmt)
		}
	}
	if _, err := tx.Exec(`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`,
		m.version, time.Now().UnixMilli()); err != nil {
		return err
	}
	return tx.Commit()
}

// SchemaVersion returns the highest applied migration, 0 for a new database.
func (d *DB) SchemaVersion() (int, error) {
	var v sql.NullInt64
	if err := d.db.QueryRow(`SELECT MAX(version) FROM schema_migrations`).Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return int(v.Int64), nil
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}
