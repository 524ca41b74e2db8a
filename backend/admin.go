// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package backend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/quickly-tally/models"
	"github.com/danielhkuo/quickly-tally/realtime"
)

var (
	ErrPollNotFound   = errors.New("poll not found")
	ErrOptionNotFound = errors.New("option not found")
)

// CreatePoll deactivates any active poll and creates a new active poll with
// its options, in one transaction.
func (c *SQLClient) CreatePoll(ctx context.Context, req models.CreatePollRequest) (models.CreatePollResponse, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return models.CreatePollResponse{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Remember what gets deactivated so it can be published
	rows, err := tx.QueryContext(ctx, `
		SELECT id, title, period, created_by FROM poll WHERE active = $1
	`, true)
	if err != nil {
		return models.CreatePollResponse{}, fmt.Errorf("failed to query active polls: %w", err)
	}
	var deactivated []realtime.PollRecord
	for rows.Next() {
		var rec realtime.PollRecord
		if err := rows.Scan(&rec.ID, &rec.Title, &rec.Period, &rec.CreatedBy); err != nil {
			rows.Close()
			return models.CreatePollResponse{}, fmt.Errorf("failed to scan poll: %w", err)
		}
		deactivated = append(deactivated, rec)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return models.CreatePollResponse{}, fmt.Errorf("failed to read active polls: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE poll SET active = $1 WHERE active = $2`, false, true); err != nil {
		return models.CreatePollResponse{}, fmt.Errorf("failed to deactivate polls: %w", err)
	}

	now := c.now()
	poll := realtime.PollRecord{
		ID:        uuid.NewString(),
		Title:     req.Title,
		Period:    req.Period,
		Active:    true,
		CreatedBy: req.CreatedBy,
		CreatedAt: now.Format(time.RFC3339Nano),
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO poll (id, title, period, active, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, poll.ID, poll.Title, poll.Period, poll.Active, poll.CreatedBy, now)
	if err != nil {
		return models.CreatePollResponse{}, fmt.Errorf("failed to insert poll: %w", err)
	}

	resp := models.CreatePollResponse{PollID: poll.ID, OptionIDs: []string{}}
	var inserted []realtime.OptionRecord
	for i, fields := range req.Options {
		opt := realtime.OptionRecord{ID: uuid.NewString(), PollID: poll.ID, Name: fields.Name}
		// Offset timestamps so creation order is stable even at equal clock readings
		_, err = tx.ExecContext(ctx, `
			INSERT INTO option (id, poll_id, name, description, image_url, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, opt.ID, opt.PollID, opt.Name, fields.Description, fields.ImageURL, now.Add(time.Duration(i)*time.Microsecond))
		if err != nil {
			return models.CreatePollResponse{}, fmt.Errorf("failed to insert option: %w", err)
		}
		inserted = append(inserted, opt)
		resp.OptionIDs = append(resp.OptionIDs, opt.ID)
	}

	if err := tx.Commit(); err != nil {
		return models.CreatePollResponse{}, fmt.Errorf("failed to commit poll: %w", err)
	}

	slog.Info("poll created", "poll_id", poll.ID, "period", poll.Period, "options", len(inserted), "deactivated", len(deactivated))

	for _, rec := range deactivated {
		prev := rec
		prev.Active = true
		c.emit(realtime.ChannelPolls, "poll", realtime.Update, rec, prev)
	}
	c.emit(realtime.ChannelPolls, "poll", realtime.Insert, poll, nil)
	for _, opt := range inserted {
		c.emit(realtime.ChannelOptions, "option", realtime.Insert, opt, nil)
	}

	return resp, nil
}

// ResetVotes deletes every vote in the poll's period, keeping its options
func (c *SQLClient) ResetVotes(ctx context.Context, pollID string) (int, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var period string
	err = tx.QueryRowContext(ctx, `SELECT period FROM poll WHERE id = $1`, pollID).Scan(&period)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrPollNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query poll: %w", err)
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT id, voter_id, option_id, period FROM vote WHERE period = $1
	`, period)
	if err != nil {
		return 0, fmt.Errorf("failed to query votes: %w", err)
	}
	var removed []realtime.VoteRecord
	for rows.Next() {
		var rec realtime.VoteRecord
		if err := rows.Scan(&rec.ID, &rec.VoterID, &rec.OptionID, &rec.Period); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan vote: %w", err)
		}
		removed = append(removed, rec)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("failed to read votes: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM vote WHERE period = $1`, period)
	if err != nil {
		return 0, fmt.Errorf("failed to delete votes: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted votes: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit reset: %w", err)
	}

	slog.Info("votes reset", "poll_id", pollID, "period", period, "deleted", deleted)

	for _, rec := range removed {
		c.emit(realtime.ChannelVotes, "vote", realtime.Delete, nil, rec)
	}

	return int(deleted), nil
}

// DeactivatePoll closes a poll without creating a replacement.
// Deactivating an inactive poll is a no-op.
func (c *SQLClient) DeactivatePoll(ctx context.Context, pollID string) error {
	var rec realtime.PollRecord
	var active bool
	err := c.db.QueryRowContext(ctx, `
		SELECT id, title, period, active, created_by FROM poll WHERE id = $1
	`, pollID).Scan(&rec.ID, &rec.Title, &rec.Period, &active, &rec.CreatedBy)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrPollNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to query poll: %w", err)
	}
	if !active {
		return nil
	}

	if _, err := c.db.ExecContext(ctx, `UPDATE poll SET active = $1 WHERE id = $2`, false, pollID); err != nil {
		return fmt.Errorf("failed to deactivate poll: %w", err)
	}

	slog.Info("poll deactivated", "poll_id", pollID)

	prev := rec
	prev.Active = true
	c.emit(realtime.ChannelPolls, "poll", realtime.Update, rec, prev)
	return nil
}

// AddOption appends an option to an existing poll
func (c *SQLClient) AddOption(ctx context.Context, pollID string, fields models.CreateOptionFields) (models.Option, error) {
	var exists bool
	err := c.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM poll WHERE id = $1)`, pollID).Scan(&exists)
	if err != nil {
		return models.Option{}, fmt.Errorf("failed to query poll: %w", err)
	}
	if !exists {
		return models.Option{}, ErrPollNotFound
	}

	opt := models.Option{
		ID:          uuid.NewString(),
		PollID:      pollID,
		Name:        fields.Name,
		Description: fields.Description,
		ImageURL:    fields.ImageURL,
		CreatedAt:   c.now(),
	}
	_, err = c.db.ExecContext(ctx, `
		INSERT INTO option (id, poll_id, name, description, image_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, opt.ID, opt.PollID, opt.Name, opt.Description, opt.ImageURL, opt.CreatedAt)
	if err != nil {
		return models.Option{}, fmt.Errorf("failed to insert option: %w", err)
	}

	slog.Info("option added", "poll_id", pollID, "option_id", opt.ID)
	c.emit(realtime.ChannelOptions, "option", realtime.Insert,
		realtime.OptionRecord{ID: opt.ID, PollID: opt.PollID, Name: opt.Name}, nil)

	return opt, nil
}

// RemoveOption deletes an option together with its votes
func (c *SQLClient) RemoveOption(ctx context.Context, optionID string) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var rec realtime.OptionRecord
	err = tx.QueryRowContext(ctx, `
		SELECT id, poll_id, name FROM option WHERE id = $1
	`, optionID).Scan(&rec.ID, &rec.PollID, &rec.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrOptionNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to query option: %w", err)
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT id, voter_id, option_id, period FROM vote WHERE option_id = $1
	`, optionID)
	if err != nil {
		return fmt.Errorf("failed to query votes: %w", err)
	}
	var removed []realtime.VoteRecord
	for rows.Next() {
		var v realtime.VoteRecord
		if err := rows.Scan(&v.ID, &v.VoterID, &v.OptionID, &v.Period); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan vote: %w", err)
		}
		removed = append(removed, v)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read votes: %w", err)
	}

	// Explicit rather than relying on ON DELETE CASCADE, which SQLite only
	// honours with foreign_keys enabled
	if _, err := tx.ExecContext(ctx, `DELETE FROM vote WHERE option_id = $1`, optionID); err != nil {
		return fmt.Errorf("failed to delete option votes: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM option WHERE id = $1`, optionID); err != nil {
		return fmt.Errorf("failed to delete option: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit option removal: %w", err)
	}

	slog.Info("option removed", "poll_id", rec.PollID, "option_id", optionID, "votes", len(removed))
	for _, v := range removed {
		c.emit(realtime.ChannelVotes, "vote", realtime.Delete, nil, v)
	}
	c.emit(realtime.ChannelOptions, "option", realtime.Delete, nil, rec)
	return nil
}
