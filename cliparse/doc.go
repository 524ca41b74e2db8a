// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

# Config Fields

  - Port: Server listen port (default: 3318)
  - DatabaseURL: Database connection string (required)
  - DatabaseType: sqlite or postgres (default: sqlite)
  - SubmitTimeout: Bound on one vote submission (default: 10s)
  - SessionIdle: Live sessions unused this long are closed (default: 30m)
  - MaxSessions: Most live sessions held at once (default: 10000)
  - AdminKeySalt: Secret for admin key HMAC (required)
  - VoterIDSalt: Secret for deriving voter identities (required)
  - EnvFile: Env file merged into the environment (default: .env)
  - PrintAdminKey: Print the admin key and exit

# CLI Flags

	-p                Server port
	-d                Database URL
	-t                Database type
	-submit-timeout   Vote submission timeout
	-session-idle     Idle session timeout
	-max-sessions     Live session cap
	-admin-salt       Admin key salt
	-voter-salt       Voter identity salt
	-env-file         Env file path
	-print-admin-key  Print the admin key and exit

# Environment Variables

Flags fall back to environment variables:

	PORT                 → -p
	DATABASE_URL         → -d
	DATABASE_TYPE        → -t
	SUBMIT_TIMEOUT       → -submit-timeout
	SESSION_IDLE_TIMEOUT → -session-idle
	MAX_SESSIONS         → -max-sessions
	ADMIN_KEY_SALT       → -admin-salt
	VOTER_ID_SALT        → -voter-salt

CLI flags take precedence over environment variables. The env file is
loaded with godotenv and never overrides a variable that is already set;
a missing file is ignored.

# Validation

ParseFlags returns an error if required values are missing or malformed:

  - DATABASE_URL must be provided
  - ADMIN_KEY_SALT must be provided
  - VOTER_ID_SALT must be provided
  - DATABASE_TYPE must be sqlite or postgres
*/
package cliparse
