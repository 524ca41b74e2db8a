// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package session

import (
	"context"
	"log/slog"

	"github.com/danielhkuo/quickly-tally/models"
	"github.com/danielhkuo/quickly-tally/state"
)

// Loader performs the one-shot bootstrap read of a session
type Loader struct {
	backend Backend
	store   *state.Store
}

func NewLoader(backend Backend, store *state.Store) *Loader {
	return &Loader{backend: backend, store: store}
}

// Load reads the active poll, its options, the period counts and the
// identity's own vote, dispatching as it goes. Each step fails on its own:
// only a missing poll stops the sequence. Nothing is dispatched once ctx
// is done, and the load stops as soon as the reconciler has put a
// different poll on display.
func (l *Loader) Load(ctx context.Context) {
	dispatch := func(cond func(state.State) bool, a state.Action) bool {
		if ctx.Err() != nil {
			slog.Debug("bootstrap canceled", "skipped", a.Name())
			return false
		}
		if _, ok := l.store.DispatchIf(cond, a); !ok {
			slog.Debug("bootstrap superseded", "skipped", a.Name())
			return false
		}
		return true
	}

	poll, err := l.backend.ActivePoll(ctx)
	if err != nil {
		slog.Error("failed to load active poll", "error", err)
	}
	if err != nil || poll == nil {
		dispatch(state.Bootstrapping, state.NoActivePoll{})
		return
	}

	options, err := l.backend.OptionsForPoll(ctx, poll.ID)
	if err != nil {
		slog.Warn("failed to load options, showing poll without them", "error", err, "poll_id", poll.ID)
		options = nil
	}
	if !dispatch(state.Bootstrapping, state.PollLoaded{Poll: *poll, Options: options}) {
		return
	}
	current := state.Displaying(poll.ID)

	rows, err := l.backend.CountsForPeriod(ctx, poll.Period)
	if err != nil {
		slog.Warn("failed to load vote counts", "error", err, "period", poll.Period)
	} else if !dispatch(current, state.CountsLoaded{Counts: SeedCounts(options, rows)}) {
		return
	}

	identity, err := l.backend.CurrentIdentity(ctx)
	if err != nil {
		slog.Warn("failed to resolve identity", "error", err)
		return
	}
	if identity == "" {
		return
	}

	optionID, found, err := l.backend.VoteForIdentity(ctx, identity, poll.Period)
	if err != nil {
		slog.Warn("failed to load user vote", "error", err, "period", poll.Period)
		return
	}
	if !found {
		optionID = ""
	}
	dispatch(current, state.UserVoteLoaded{OptionID: optionID})
}

// SeedCounts gives every known option an explicit zero, then applies the
// aggregate rows on top
func SeedCounts(options []models.Option, rows []models.CountRow) models.VoteCounts {
	counts := make(models.VoteCounts, len(options))
	for _, opt := range options {
		counts[opt.ID] = 0
	}
	for _, row := range rows {
		counts[row.OptionID] = row.Total
	}
	return counts
}
