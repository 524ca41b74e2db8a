// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
)

// Supported database types
const (
	Postgres = "postgres"
	SQLite   = "sqlite"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB, dialect string) error {
	var stmts []string
	switch dialect {
	case Postgres:
		stmts = []string{tablesSchema, postgresIndexes, postgresNotify}
	case SQLite:
		stmts = []string{tablesSchema, sqliteIndexes}
	default:
		return fmt.Errorf("unsupported database type %q", dialect)
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return nil
}

// DriverName maps a database type to its database/sql driver
func DriverName(dialect string) (string, error) {
	switch dialect {
	case Postgres:
		return "postgres", nil
	case SQLite:
		return "sqlite", nil
	}
	return "", fmt.Errorf("unsupported database type %q", dialect)
}

const tablesSchema = `
-- Polls
CREATE TABLE IF NOT EXISTS poll (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    period TEXT NOT NULL,
    active BOOLEAN NOT NULL DEFAULT FALSE,
    created_by TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_poll_period ON poll(period);

-- Options
CREATE TABLE IF NOT EXISTS option (
    id TEXT PRIMARY KEY,
    poll_id TEXT NOT NULL REFERENCES poll(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    description TEXT,
    image_url TEXT,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_option_poll_id ON option(poll_id, created_at);

-- Votes (one per voter per period)
CREATE TABLE IF NOT EXISTS vote (
    id TEXT PRIMARY KEY,
    voter_id TEXT NOT NULL,
    option_id TEXT NOT NULL REFERENCES option(id) ON DELETE CASCADE,
    period TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE (voter_id, period)
);

CREATE INDEX IF NOT EXISTS idx_vote_period ON vote(period);
`

// At most one active poll
const postgresIndexes = `
CREATE UNIQUE INDEX IF NOT EXISTS idx_poll_single_active ON poll(active) WHERE active;
`

const sqliteIndexes = `
CREATE UNIQUE INDEX IF NOT EXISTS idx_poll_single_active ON poll(active) WHERE active = 1;
`

// Row changes are published as {table, type, new, old} on one channel per table
const postgresNotify = `
CREATE OR REPLACE FUNCTION tally_notify() RETURNS trigger AS $$
DECLARE
    payload json;
BEGIN
    payload := json_build_object(
        'table', TG_TABLE_NAME,
        'type', TG_OP,
        'new', CASE WHEN TG_OP = 'DELETE' THEN NULL ELSE row_to_json(NEW) END,
        'old', CASE WHEN TG_OP = 'INSERT' THEN NULL ELSE row_to_json(OLD) END
    );
    PERFORM pg_notify(TG_ARGV[0], payload::text);
    RETURN NULL;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS vote_notify ON vote;
CREATE TRIGGER vote_notify AFTER INSERT OR DELETE ON vote
    FOR EACH ROW EXECUTE FUNCTION tally_notify('tally_votes');

DROP TRIGGER IF EXISTS poll_notify ON poll;
CREATE TRIGGER poll_notify AFTER INSERT OR UPDATE ON poll
    FOR EACH ROW EXECUTE FUNCTION tally_notify('tally_polls');

DROP TRIGGER IF EXISTS option_notify ON option;
CREATE TRIGGER option_notify AFTER INSERT OR UPDATE OR DELETE ON option
    FOR EACH ROW EXECUTE FUNCTION tally_notify('tally_options');
`
