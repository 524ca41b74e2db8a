// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          int
	DatabaseURL   string
	DatabaseType  string
	AdminKeySalt  string
	VoterIDSalt   string
	SubmitTimeout time.Duration
	SessionIdle   time.Duration
	MaxSessions   int
	EnvFile       string
	PrintAdminKey bool
}

const (
	defaultPort          = 3318
	defaultSubmitTimeout = 10 * time.Second
	defaultSessionIdle   = 30 * time.Minute
	defaultMaxSessions   = 10000
)

// ParseFlags validates flags and fills the rest from the environment
func ParseFlags(args []string) (Config, error) {
	var cfg Config

	fs := flag.NewFlagSet("quickly-tally", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")
	fs.DurationVar(&cfg.SubmitTimeout, "submit-timeout", 0, "Timeout for one vote submission")
	fs.DurationVar(&cfg.SessionIdle, "session-idle", 0, "Close live sessions unused for this long")
	fs.IntVar(&cfg.MaxSessions, "max-sessions", 0, "Most live sessions held at once")
	fs.StringVar(&cfg.EnvFile, "env-file", ".env", "Env file to load; existing environment wins")
	fs.BoolVar(&cfg.PrintAdminKey, "print-admin-key", false, "Print the admin key for the configured salt and exit")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.AdminKeySalt, "admin-salt", "", "Admin key salt (prefer env)")
	fs.StringVar(&cfg.VoterIDSalt, "voter-salt", "", "Voter identity salt (prefer env)")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if err := loadEnvFile(cfg.EnvFile); err != nil {
		return Config{}, err
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = defaultPort
		}
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = "sqlite"
		}
	}
	if cfg.DatabaseType != "sqlite" && cfg.DatabaseType != "postgres" {
		return Config{}, fmt.Errorf("unsupported database type %q", cfg.DatabaseType)
	}

	if cfg.SubmitTimeout == 0 {
		if s := os.Getenv("SUBMIT_TIMEOUT"); s != "" {
			d, err := time.ParseDuration(s)
			if err != nil {
				return Config{}, errors.New("invalid SUBMIT_TIMEOUT env variable")
			}
			cfg.SubmitTimeout = d
		} else {
			cfg.SubmitTimeout = defaultSubmitTimeout
		}
	}
	if cfg.SubmitTimeout < 0 {
		return Config{}, errors.New("submit timeout must be positive")
	}

	if cfg.SessionIdle == 0 {
		if s := os.Getenv("SESSION_IDLE_TIMEOUT"); s != "" {
			d, err := time.ParseDuration(s)
			if err != nil {
				return Config{}, errors.New("invalid SESSION_IDLE_TIMEOUT env variable")
			}
			cfg.SessionIdle = d
		} else {
			cfg.SessionIdle = defaultSessionIdle
		}
	}
	if cfg.SessionIdle < 0 {
		return Config{}, errors.New("session idle timeout must be positive")
	}

	if cfg.MaxSessions == 0 {
		if s := os.Getenv("MAX_SESSIONS"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil {
				return Config{}, errors.New("invalid MAX_SESSIONS env variable")
			}
			cfg.MaxSessions = n
		} else {
			cfg.MaxSessions = defaultMaxSessions
		}
	}
	if cfg.MaxSessions < 0 {
		return Config{}, errors.New("max sessions must be positive")
	}

	// Secrets - MUST be provided
	if cfg.AdminKeySalt == "" {
		cfg.AdminKeySalt = os.Getenv("ADMIN_KEY_SALT")
	}
	if cfg.AdminKeySalt == "" {
		return Config{}, errors.New("ADMIN_KEY_SALT required")
	}

	if cfg.VoterIDSalt == "" {
		cfg.VoterIDSalt = os.Getenv("VOTER_ID_SALT")
	}
	if cfg.VoterIDSalt == "" {
		return Config{}, errors.New("VOTER_ID_SALT required")
	}

	return cfg, nil
}

// loadEnvFile merges the file into the environment. A missing file is fine.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}
