// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db handles database schema creation.

# Schema Creation

CreateSchema initializes all required tables for a database type:

	if err := db.CreateSchema(conn, db.Postgres); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.
Supported types are db.Postgres (lib/pq) and db.SQLite (modernc.org/sqlite).

# Tables

  - poll: title, period key, active flag, creator
  - option: votable choices per poll, ordered by created_at
  - vote: one vote per voter per period (UNIQUE (voter_id, period))

# Relationships

	poll 1──* option
	option 1──* vote

Votes join polls through the period key, not a foreign key.

# Change Notifications

On Postgres, the tally_notify trigger publishes every row change as JSON:

	{"table": "vote", "type": "INSERT", "new": {...}, "old": null}

on the channels tally_votes, tally_polls and tally_options. SQLite has no
equivalent; the backend publishes the same records itself after each write.
*/
package db
