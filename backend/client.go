// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package backend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/danielhkuo/quickly-tally/db"
	"github.com/danielhkuo/quickly-tally/models"
	"github.com/danielhkuo/quickly-tally/realtime"
)

// SQLClient implements the store queries, the cast-vote operation and the
// change subscriptions on top of database/sql. A client may be bound to a
// voter identity with As; the identity is what CastVote votes as.
type SQLClient struct {
	db       *sql.DB
	hub      *realtime.Hub
	publish  bool
	identity string
	now      func() time.Time
}

// Open connects to the database, verifies the connection and creates the schema
func Open(dialect, url string) (*sql.DB, error) {
	driver, err := db.DriverName(dialect)
	if err != nil {
		return nil, err
	}

	conn, err := sql.Open(driver, url)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	if dialect == db.SQLite {
		// One writer; also keeps a ":memory:" database alive across calls
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	if err := db.CreateSchema(conn, dialect); err != nil {
		conn.Close()
		return nil, err
	}

	return conn, nil
}

// New creates an unbound client. On SQLite, which has no NOTIFY, the client
// publishes its own writes to hub; on Postgres the triggers do.
func New(conn *sql.DB, dialect string, hub *realtime.Hub) *SQLClient {
	return &SQLClient{
		db:      conn,
		hub:     hub,
		publish: dialect == db.SQLite,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// As returns a view of the client bound to a voter identity
func (c *SQLClient) As(identity string) *SQLClient {
	bound := *c
	bound.identity = identity
	return &bound
}

// CurrentIdentity returns the bound identity, or "" when anonymous
func (c *SQLClient) CurrentIdentity(ctx context.Context) (string, error) {
	return c.identity, nil
}

// Subscribe opens a change stream
func (c *SQLClient) Subscribe(ctx context.Context, ch realtime.Channel) (realtime.Subscription, error) {
	return c.hub.Subscribe(ctx, ch)
}

// ActivePoll returns the active poll, or nil when there is none
func (c *SQLClient) ActivePoll(ctx context.Context) (*models.Poll, error) {
	var p models.Poll
	err := c.db.QueryRowContext(ctx, `
		SELECT id, title, period, active, created_by, created_at
		FROM poll
		WHERE active = $1
		LIMIT 1
	`, true).Scan(&p.ID, &p.Title, &p.Period, &p.Active, &p.CreatedBy, &p.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query active poll: %w", err)
	}

	return &p, nil
}

// OptionsForPoll returns the poll's options in creation order
func (c *SQLClient) OptionsForPoll(ctx context.Context, pollID string) ([]models.Option, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, poll_id, name, description, image_url, created_at
		FROM option
		WHERE poll_id = $1
		ORDER BY created_at, id
	`, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to query options: %w", err)
	}
	defer rows.Close()

	options := []models.Option{}
	for rows.Next() {
		var opt models.Option
		if err := rows.Scan(&opt.ID, &opt.PollID, &opt.Name, &opt.Description, &opt.ImageURL, &opt.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan option: %w", err)
		}
		options = append(options, opt)
	}

	return options, rows.Err()
}

// CountsForPeriod returns one aggregate row per option that has votes in period
func (c *SQLClient) CountsForPeriod(ctx context.Context, period string) ([]models.CountRow, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT o.id, o.name, o.poll_id, v.period, COUNT(*)
		FROM vote v
		JOIN option o ON o.id = v.option_id
		WHERE v.period = $1
		GROUP BY o.id, o.name, o.poll_id, v.period
	`, period)
	if err != nil {
		return nil, fmt.Errorf("failed to query vote counts: %w", err)
	}
	defer rows.Close()

	counts := []models.CountRow{}
	for rows.Next() {
		var row models.CountRow
		if err := rows.Scan(&row.OptionID, &row.OptionName, &row.PollID, &row.Period, &row.Total); err != nil {
			return nil, fmt.Errorf("failed to scan vote count: %w", err)
		}
		counts = append(counts, row)
	}

	return counts, rows.Err()
}

// VoteForIdentity looks up the option identity voted for in period
func (c *SQLClient) VoteForIdentity(ctx context.Context, identity, period string) (string, bool, error) {
	var optionID string
	err := c.db.QueryRowContext(ctx, `
		SELECT option_id FROM vote WHERE voter_id = $1 AND period = $2
	`, identity, period).Scan(&optionID)

	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query user vote: %w", err)
	}

	return optionID, true, nil
}

// CastVote records a vote for optionID as the bound identity.
// Rule violations come back in CastVoteResult.Error with a nil error.
func (c *SQLClient) CastVote(ctx context.Context, optionID string) (models.CastVoteResult, error) {
	if c.identity == "" {
		return models.CastVoteResult{Error: models.RejectNotSignedIn}, nil
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return models.CastVoteResult{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var period string
	var active bool
	err = tx.QueryRowContext(ctx, `
		SELECT p.period, p.active
		FROM option o
		JOIN poll p ON p.id = o.poll_id
		WHERE o.id = $1
	`, optionID).Scan(&period, &active)

	if errors.Is(err, sql.ErrNoRows) {
		return models.CastVoteResult{Error: models.RejectUnknownOption}, nil
	}
	if err != nil {
		return models.CastVoteResult{}, fmt.Errorf("failed to query option: %w", err)
	}

	if !active {
		return models.CastVoteResult{Error: models.RejectPollClosed}, nil
	}

	var exists bool
	err = tx.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM vote WHERE voter_id = $1 AND period = $2
		)
	`, c.identity, period).Scan(&exists)
	if err != nil {
		return models.CastVoteResult{}, fmt.Errorf("failed to check existing vote: %w", err)
	}
	if exists {
		return models.CastVoteResult{Error: models.RejectAlreadyVoted}, nil
	}

	vote := realtime.VoteRecord{
		ID:       uuid.NewString(),
		VoterID:  c.identity,
		OptionID: optionID,
		Period:   period,
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO vote (id, voter_id, option_id, period, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, vote.ID, vote.VoterID, vote.OptionID, vote.Period, c.now())

	if err != nil {
		// A concurrent cast from the same identity won the race
		if isUniqueViolation(err) {
			return models.CastVoteResult{Error: models.RejectAlreadyVoted}, nil
		}
		return models.CastVoteResult{}, fmt.Errorf("failed to insert vote: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return models.CastVoteResult{Error: models.RejectAlreadyVoted}, nil
		}
		return models.CastVoteResult{}, fmt.Errorf("failed to commit vote: %w", err)
	}

	slog.Info("vote cast", "vote_id", vote.ID, "option_id", optionID, "period", period)
	c.emit(realtime.ChannelVotes, "vote", realtime.Insert, vote, nil)

	return models.CastVoteResult{VoteID: vote.ID}, nil
}

// emit publishes a change when the database cannot do it itself
func (c *SQLClient) emit(ch realtime.Channel, table string, typ realtime.ChangeType, newRec, oldRec any) {
	if !c.publish || c.hub == nil {
		return
	}
	change, err := realtime.NewChange(ch, table, typ, newRec, oldRec)
	if err != nil {
		slog.Error("failed to build change", "error", err, "table", table)
		return
	}
	c.hub.Publish(change)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
