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
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS offices (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT UNIQUE NOT NULL,
    region TEXT,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS feedback (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    reference TEXT UNIQUE NOT NULL,
    office_id INTEGER NOT NULL REFERENCES offices(id),
    rating INTEGER CHECK(rating IS NULL OR rating BETWEEN 1 AND 5),
    comment TEXT NOT NULL,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS classifications (
    feedback_id INTEGER PRIMARY KEY REFERENCES feedback(id),
    sentiment TEXT NOT NULL CHECK(sentiment IN ('positive', 'negative', 'neutral')),
    category TEXT,
    confidence REAL NOT NULL,
    language TEXT NOT NULL,
    analyzed_at TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS reports (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    office_id INTEGER NOT NULL REFERENCES offices(id),
    period_id TEXT NOT NULL,
    generator TEXT NOT NULL,
    total_feedback INTEGER DEFAULT 0,
    positive_count INTEGER DEFAULT 0,
    neutral_count INTEGER DEFAULT 0,
    negative_count INTEGER DEFAULT 0,
    top_issues TEXT,
    summary TEXT NOT NULL,
    key_insights TEXT,
    recommendations TEXT,
    trend_analysis TEXT,
    full_analysis TEXT,
    generated_at TEXT DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_feedback_office_created ON feedback(office_id, created_at);
CREATE INDEX IF NOT EXISTS idx_reports_office_period ON reports(office_id, period_id);
`)
			return err
		},
	},
	{
		Version:     2,
		Description: "report schedules",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS report_schedules (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    office_id INTEGER NOT NULL REFERENCES offices(id),
    frequency TEXT NOT NULL CHECK(frequency IN ('daily', 'weekly', 'monthly')),
    next_run_at TEXT NOT NULL,
    last_run_at TEXT,
    is_active INTEGER DEFAULT 1,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_report_schedules_due ON report_schedules(is_active, next_run_at);
`)
			return err
		},
	},
	{
		Version:     3,
		Description: "schedule last slot",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`ALTER TABLE report_schedules ADD COLUMN last_slot_at TEXT`)
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
