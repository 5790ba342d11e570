// Package store provides the SQLite-backed tea catalog: compounds, effects,
// teas and their junctions, persisted blends, and an in-process knowledge
// index. A Store is an explicitly constructed handle passed to every engine;
// it is safe for concurrent use.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// Store is the catalog database handle.
type Store struct {
	// db is the underlying database connection pool.
	db *sql.DB
}

// DefaultDBPath returns the default path for the catalog database.
// It resolves to ~/.tealab/tealab.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("store: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".tealab")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("store: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "tealab.db"), nil
}

// Open opens (or creates) the catalog at the given path and runs the schema
// migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*Store, error) {
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	if path != ":memory:" {
		dsn += "&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// A single connection avoids SQLITE_BUSY under concurrent writes and keeps
	// an in-memory database alive for the lifetime of the handle.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// migrate creates the schema if it does not already exist.
func (s *Store) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS compounds (
    id                  INTEGER PRIMARY KEY AUTOINCREMENT,
    name                TEXT    NOT NULL UNIQUE COLLATE NOCASE,
    chemical_formula    TEXT    NOT NULL DEFAULT '',
    mechanism           TEXT    NOT NULL DEFAULT '',
    half_life_minutes   INTEGER NOT NULL DEFAULT 0,
    safe_daily_limit_mg REAL    NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS effects (
    id                 INTEGER PRIMARY KEY AUTOINCREMENT,
    name               TEXT    NOT NULL UNIQUE COLLATE NOCASE,
    category           TEXT    NOT NULL CHECK(category IN ('mental','physical','emotional')),
    description        TEXT    NOT NULL DEFAULT '',
    icon               TEXT    NOT NULL DEFAULT '',
    onset_range_min    INTEGER NOT NULL DEFAULT 0,
    onset_range_max    INTEGER NOT NULL DEFAULT 0,
    duration_range_min INTEGER NOT NULL DEFAULT 0,
    duration_range_max INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS teas (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    name         TEXT    NOT NULL UNIQUE COLLATE NOCASE,
    type         TEXT    NOT NULL,
    origin       TEXT    NOT NULL DEFAULT '',
    description  TEXT    NOT NULL DEFAULT '',
    price_per_oz REAL    NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS tea_compounds (
    tea_id                    INTEGER NOT NULL REFERENCES teas(id) ON DELETE CASCADE,
    compound_id               INTEGER NOT NULL REFERENCES compounds(id) ON DELETE CASCADE,
    amount_mg_per_cup         REAL    NOT NULL,
    optimal_extraction_temp_c INTEGER NOT NULL DEFAULT 0,
    optimal_steep_time_sec    INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (tea_id, compound_id)
);
CREATE TABLE IF NOT EXISTS tea_effects (
    tea_id           INTEGER NOT NULL REFERENCES teas(id) ON DELETE CASCADE,
    effect_id        INTEGER NOT NULL REFERENCES effects(id) ON DELETE CASCADE,
    intensity        INTEGER NOT NULL CHECK(intensity BETWEEN 1 AND 5),
    onset_minutes    INTEGER NOT NULL DEFAULT 0,
    duration_minutes INTEGER NOT NULL DEFAULT 0,
    confidence_score REAL    NOT NULL DEFAULT 0 CHECK(confidence_score BETWEEN 0 AND 1),
    data_source      TEXT    NOT NULL DEFAULT 'research',
    PRIMARY KEY (tea_id, effect_id)
);
CREATE INDEX IF NOT EXISTS idx_tea_effects_effect ON tea_effects (effect_id, intensity);
CREATE TABLE IF NOT EXISTS blends (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id         TEXT    NOT NULL,
    name            TEXT    NOT NULL,
    description     TEXT    NOT NULL DEFAULT '',
    target_effects  TEXT    NOT NULL DEFAULT '[]', -- JSON array of effect names
    is_public       INTEGER NOT NULL DEFAULT 0,
    times_favorited INTEGER NOT NULL DEFAULT 0,
    avg_rating      REAL,
    created_at      INTEGER NOT NULL, -- Unix timestamp (seconds)
    updated_at      INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS blend_components (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    blend_id       INTEGER NOT NULL REFERENCES blends(id) ON DELETE CASCADE,
    tea_id         INTEGER NOT NULL REFERENCES teas(id),
    ratio          REAL    NOT NULL CHECK(ratio >= 0 AND ratio <= 100),
    steep_time_sec INTEGER NOT NULL DEFAULT 0,
    steep_temp_c   INTEGER NOT NULL DEFAULT 0,
    notes          TEXT    NOT NULL DEFAULT '',
    order_added    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_blend_components_blend ON blend_components (blend_id, order_added);
CREATE TABLE IF NOT EXISTS blend_predicted_effects (
    blend_id            INTEGER NOT NULL REFERENCES blends(id) ON DELETE CASCADE,
    effect_id           INTEGER NOT NULL REFERENCES effects(id),
    predicted_intensity INTEGER NOT NULL,
    total_compound_mg   TEXT    NOT NULL DEFAULT '{}', -- JSON compound breakdown
    calculated_at       INTEGER NOT NULL,
    PRIMARY KEY (blend_id, effect_id)
);
CREATE TABLE IF NOT EXISTS knowledge_chunks (
    id         TEXT    PRIMARY KEY,
    content    TEXT    NOT NULL,
    metadata   TEXT    NOT NULL DEFAULT '{}', -- JSON KnowledgeMetadata
    tea_type   TEXT    NOT NULL DEFAULT '',
    effect     TEXT    NOT NULL DEFAULT '',
    compound   TEXT    NOT NULL DEFAULT '',
    embedding  BLOB    NOT NULL, -- little-endian float32 vector
    created_at INTEGER NOT NULL
);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("store: ping: %w", err)
	}
	return nil
}

// Close releases the database connection pool.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: close: %w", err)
	}
	return nil
}

// placeholders returns "?, ?, ..." with n markers and the ids as arguments.
func placeholders(ids []int64) (string, []any) {
	marks := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		marks[i] = "?"
		args[i] = id
	}
	return strings.Join(marks, ", "), args
}
