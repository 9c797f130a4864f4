package db

import (
	"database/sql"
	"fmt"
	"strings"
)

// Migrate runs all schema migrations.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			// Tolerate "duplicate column name" errors from ALTER TABLE
			// since the migration system re-runs all statements.
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS drafts (
		id           TEXT PRIMARY KEY,
		name         TEXT NOT NULL,
		channel_type TEXT NOT NULL DEFAULT 'linkedin'
		             CHECK(channel_type IN ('linkedin','sales_navigator','recruiter')),
		created_at   TEXT NOT NULL,
		updated_at   TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS draft_nodes (
		id         TEXT PRIMARY KEY,
		draft_id   TEXT NOT NULL REFERENCES drafts(id) ON DELETE CASCADE,
		role       TEXT NOT NULL
		           CHECK(role IN ('root','single_child','branching','pending','terminal','delay')),
		command    TEXT NOT NULL DEFAULT 'none',
		config     TEXT NOT NULL DEFAULT '{}',
		pos_x      REAL NOT NULL DEFAULT 0,
		pos_y      REAL NOT NULL DEFAULT 0,
		ordinal    INTEGER NOT NULL DEFAULT 0
	)`,

	`CREATE INDEX IF NOT EXISTS idx_draft_nodes_draft ON draft_nodes(draft_id)`,

	`CREATE TABLE IF NOT EXISTS draft_edges (
		id          TEXT PRIMARY KEY,
		draft_id    TEXT NOT NULL REFERENCES drafts(id) ON DELETE CASCADE,
		source_id   TEXT NOT NULL REFERENCES draft_nodes(id) ON DELETE CASCADE,
		source_port TEXT NOT NULL CHECK(source_port IN ('bottom','left','right')),
		target_id   TEXT NOT NULL UNIQUE REFERENCES draft_nodes(id) ON DELETE CASCADE,
		target_port TEXT NOT NULL DEFAULT 'top' CHECK(target_port = 'top'),
		UNIQUE(source_id, source_port)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_draft_edges_draft ON draft_edges(draft_id)`,

	`CREATE TABLE IF NOT EXISTS sequences (
		id           TEXT PRIMARY KEY,
		draft_id     TEXT NOT NULL UNIQUE REFERENCES drafts(id) ON DELETE CASCADE,
		name         TEXT NOT NULL,
		channel_type TEXT NOT NULL,
		step_count   INTEGER NOT NULL,
		saved_at     TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS sequence_steps (
		sequence_id TEXT NOT NULL REFERENCES sequences(id) ON DELETE CASCADE,
		step_index  INTEGER NOT NULL,
		ref         TEXT NOT NULL,
		parent_ref  TEXT NOT NULL DEFAULT '',
		port        TEXT NOT NULL DEFAULT '',
		role        TEXT NOT NULL,
		command     TEXT NOT NULL,
		config      TEXT NOT NULL DEFAULT '{}',
		pos_x       REAL,
		pos_y       REAL,
		PRIMARY KEY (sequence_id, step_index),
		UNIQUE (sequence_id, ref)
	)`,

	// Drafts remember which builtin or file seeded them.
	`ALTER TABLE drafts ADD COLUMN source TEXT NOT NULL DEFAULT ''`,
}
