// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package session

import (
	"context"

	"github.com/danielhkuo/quickly-tally/models"
	"github.com/danielhkuo/quickly-tally/realtime"
)

// Backend is everything a session needs from the store and the transport.
// A Backend is bound to one identity; CastVote votes as that identity.
type Backend interface {
	// ActivePoll returns nil without error when no poll is active
	ActivePoll(ctx context.Context) (*models.Poll, error)
	OptionsForPoll(ctx context.Context, pollID string) ([]models.Option, error)
	CountsForPeriod(ctx context.Context, period string) ([]models.CountRow, error)
	// CurrentIdentity returns "" for an anonymous viewer
	CurrentIdentity(ctx context.Context) (string, error)
	VoteForIdentity(ctx context.Context, identity, period string) (optionID string, found bool, err error)
	CastVote(ctx context.Context, optionID string) (models.CastVoteResult, error)
	Subscribe(ctx context.Context, ch realtime.Channel) (realtime.Subscription, error)
}
