package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
//
// The analytics view is deliberately absent here: it is a derived artifact
// created by rebuild-and-swap, not part of the managed schema.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS raw_catalog (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    entity_id INTEGER NOT NULL,
    title TEXT NOT NULL,
    status TEXT,
    rating TEXT,
    score REAL,
    favorites INTEGER,
    snapshot_date TEXT NOT NULL,
    is_airing INTEGER NOT NULL DEFAULT 0,
    aired_from TEXT,
    aired_to TEXT,
    batch_id TEXT,
    consumed INTEGER DEFAULT 0,
    staged_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS raw_stats (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    entity_id INTEGER NOT NULL,
    snapshot_date TEXT NOT NULL,
    payload TEXT NOT NULL,
    batch_id TEXT,
    consumed INTEGER DEFAULT 0,
    staged_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS catalog_entries (
    entity_id INTEGER NOT NULL,
    title TEXT NOT NULL,
    is_airing INTEGER NOT NULL,
    status TEXT,
    rating TEXT,
    score REAL,
    favorites INTEGER,
    snapshot_date TEXT NOT NULL,
    aired_from TEXT,
    aired_to TEXT,
    PRIMARY KEY (entity_id, title, is_airing)
);

CREATE TABLE IF NOT EXISTS status_bucket_facts (
    entity_id INTEGER NOT NULL,
    watching INTEGER NOT NULL,
    completed INTEGER NOT NULL,
    on_hold INTEGER NOT NULL,
    dropped INTEGER NOT NULL,
    plan_to_watch INTEGER NOT NULL,
    total INTEGER NOT NULL,
    snapshot_date TEXT NOT NULL,
    PRIMARY KEY (entity_id, watching, completed, on_hold, dropped, plan_to_watch, total)
);

CREATE TABLE IF NOT EXISTS score_histogram_facts (
    entity_id INTEGER NOT NULL,
    score_value INTEGER NOT NULL,
    vote_count INTEGER NOT NULL,
    vote_percentage REAL NOT NULL,
    snapshot_date TEXT NOT NULL,
    PRIMARY KEY (entity_id, score_value, vote_count, vote_percentage)
);

CREATE TABLE IF NOT EXISTS run_reports (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    batch_id TEXT NOT NULL,
    started_at TEXT NOT NULL,
    finished_at TEXT,
    records_seen INTEGER DEFAULT 0,
    records_rejected INTEGER DEFAULT 0,
    entries_dropped INTEGER DEFAULT 0,
    facts_inserted INTEGER DEFAULT 0,
    facts_deduped INTEGER DEFAULT 0,
    catalog_inserted INTEGER DEFAULT 0,
    catalog_deduped INTEGER DEFAULT 0,
    view_rows INTEGER DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_raw_catalog_consumed ON raw_catalog(consumed);
CREATE INDEX IF NOT EXISTS idx_raw_stats_consumed ON raw_stats(consumed);
CREATE INDEX IF NOT EXISTS idx_status_facts_date ON status_bucket_facts(snapshot_date);
CREATE INDEX IF NOT EXISTS idx_score_facts_entity ON score_histogram_facts(entity_id, snapshot_date);
CREATE INDEX IF NOT EXISTS idx_catalog_entity ON catalog_entries(entity_id, snapshot_date);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version number.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
