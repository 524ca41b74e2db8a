// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the Quickly Tally API server.

Quickly Tally runs one active poll per period. Voters get one vote each per
period and every viewer sees the tally move live as votes land.

# Starting the Server

The server requires environment variables or CLI flags for configuration:

	DATABASE_URL=tally.db ADMIN_KEY_SALT=... VOTER_ID_SALT=... go run .

Or with flags against Postgres:

	go run . -p 3318 -t postgres -d "postgres://..."

Print the admin key for the configured salt:

	go run . -print-admin-key

# Configuration

Required settings:

  - DATABASE_URL (-d): SQLite path or PostgreSQL connection string
  - ADMIN_KEY_SALT (-admin-salt): Secret for admin key HMAC
  - VOTER_ID_SALT (-voter-salt): Secret for deriving voter identities

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite or postgres (default: sqlite)
  - SUBMIT_TIMEOUT (-submit-timeout): Bound on one vote submission (default: 10s)
  - SESSION_IDLE_TIMEOUT (-session-idle): Close live sessions unused this long (default: 30m)
  - MAX_SESSIONS (-max-sessions): Most live sessions held at once (default: 10000)

A .env file is loaded if present (-env-file to pick another).

# Architecture

  - handlers: HTTP request handlers (identity, live state, admin)
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, JSON helpers
  - session: Live tally sessions (loader, reconciler, submitter)
  - state: View-state reducer and store
  - tally: Counts to totals and percentages
  - realtime: Change events, fan-out hub, Postgres LISTEN/NOTIFY bridge
  - backend: SQL store and the atomic cast-vote operation
  - models: Domain and request/response types
  - auth: Voter tokens, identities and admin keys
  - db: Schema creation
  - cliparse: Configuration parsing

See package documentation for each component.
*/
package main
