// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/danielhkuo/quickly-tally/realtime"
	"github.com/danielhkuo/quickly-tally/state"
)

// Reconciler applies live change notifications onto a session's state.
// Every handler reads the displayed poll from the store at event time.
type Reconciler struct {
	backend Backend
	store   *state.Store
	applied *appliedVotes

	mu   sync.Mutex
	subs map[realtime.Channel]realtime.Subscription
}

func NewReconciler(backend Backend, store *state.Store) *Reconciler {
	return &Reconciler{
		backend: backend,
		store:   store,
		applied: newAppliedVotes(),
	}
}

// Subscribe opens the vote, poll and option streams. On failure nothing
// stays open.
func (r *Reconciler) Subscribe(ctx context.Context) error {
	subs := make(map[realtime.Channel]realtime.Subscription, len(realtime.Channels))
	for _, ch := range realtime.Channels {
		sub, err := r.backend.Subscribe(ctx, ch)
		if err != nil {
			for _, s := range subs {
				s.Close()
			}
			return fmt.Errorf("failed to subscribe to %s: %w", ch, err)
		}
		subs[ch] = sub
	}

	r.mu.Lock()
	r.subs = subs
	r.mu.Unlock()
	return nil
}

// Run handles changes one at a time until ctx is done or every stream has
// closed, then releases the subscriptions
func (r *Reconciler) Run(ctx context.Context) {
	defer r.Close()

	r.mu.Lock()
	votes := events(r.subs[realtime.ChannelVotes])
	polls := events(r.subs[realtime.ChannelPolls])
	options := events(r.subs[realtime.ChannelOptions])
	r.mu.Unlock()

	for votes != nil || polls != nil || options != nil {
		select {
		case <-ctx.Done():
			return

		case c, ok := <-votes:
			if !ok {
				votes = nil
				continue
			}
			r.HandleVote(ctx, c)

		case c, ok := <-polls:
			if !ok {
				polls = nil
				continue
			}
			r.HandlePoll(ctx, c)

		case c, ok := <-options:
			if !ok {
				options = nil
				continue
			}
			r.HandleOptions(ctx, c)
		}
	}
}

// Close tears down every subscription
func (r *Reconciler) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for ch, sub := range r.subs {
		if err := sub.Close(); err != nil {
			slog.Warn("failed to close subscription", "error", err, "channel", ch)
		}
	}
	r.subs = nil
}

func events(sub realtime.Subscription) <-chan realtime.Change {
	if sub == nil {
		return nil
	}
	return sub.Events()
}

// HandleVote turns a vote insert/delete in the displayed period into a +1/-1
func (r *Reconciler) HandleVote(ctx context.Context, c realtime.Change) {
	var rec realtime.VoteRecord
	var delta int
	var err error

	switch c.Type {
	case realtime.Insert:
		err = c.DecodeNew(&rec)
		delta = 1
	case realtime.Delete:
		err = c.DecodeOld(&rec)
		delta = -1
	default:
		slog.Debug("vote change ignored", "type", c.Type)
		return
	}
	if err != nil {
		slog.Warn("malformed vote change", "error", err)
		return
	}

	poll := r.store.CurrentPoll()
	if poll == nil || rec.Period != poll.Period {
		slog.Debug("vote change outside displayed period", "period", rec.Period)
		return
	}

	if !r.applied.firstTime(rec.Period, c.Type, rec.ID) {
		slog.Debug("duplicate vote change ignored", "vote_id", rec.ID, "type", c.Type)
		return
	}

	if ctx.Err() != nil {
		return
	}
	r.store.Dispatch(state.CountDelta{OptionID: rec.OptionID, Delta: delta})
}

// HandlePoll replaces the view when a different poll becomes active, and
// clears it when the displayed poll is deactivated
func (r *Reconciler) HandlePoll(ctx context.Context, c realtime.Change) {
	if c.Type != realtime.Insert && c.Type != realtime.Update {
		slog.Debug("poll change ignored", "type", c.Type)
		return
	}

	var rec realtime.PollRecord
	if err := c.DecodeNew(&rec); err != nil {
		slog.Warn("malformed poll change", "error", err)
		return
	}

	current := r.store.CurrentPoll()

	if !rec.Active {
		if c.Type == realtime.Update && current != nil && current.ID == rec.ID {
			if ctx.Err() != nil {
				return
			}
			slog.Info("displayed poll deactivated", "poll_id", rec.ID)
			r.store.Dispatch(state.NoActivePoll{})
		}
		return
	}

	// Already displayed: a redelivery, or an edit that is not an activation
	if current != nil && current.ID == rec.ID {
		slog.Debug("poll change for displayed poll ignored", "poll_id", rec.ID)
		return
	}

	options, err := r.backend.OptionsForPoll(ctx, rec.ID)
	if err != nil {
		slog.Warn("failed to load options for new poll", "error", err, "poll_id", rec.ID)
		options = nil
	}

	if ctx.Err() != nil {
		return
	}
	slog.Info("poll replaced", "poll_id", rec.ID, "period", rec.Period)
	r.store.Dispatch(state.PollReplaced{Poll: rec.Poll(), Options: options})
}

// HandleOptions re-reads the displayed poll's option list
func (r *Reconciler) HandleOptions(ctx context.Context, c realtime.Change) {
	poll := r.store.CurrentPoll()
	if poll == nil {
		return
	}

	// Skip changes that name another poll; a change without a row still refreshes
	var rec realtime.OptionRecord
	if err := c.DecodeNew(&rec); err != nil {
		if oldErr := c.DecodeOld(&rec); oldErr != nil {
			slog.Debug("option change has no readable row, refreshing anyway", "error", oldErr, "type", c.Type)
		}
	}
	if rec.PollID != "" && rec.PollID != poll.ID {
		slog.Debug("option change for another poll ignored", "poll_id", rec.PollID)
		return
	}

	options, err := r.backend.OptionsForPoll(ctx, poll.ID)
	if err != nil {
		slog.Warn("failed to reload options", "error", err, "poll_id", poll.ID)
		return
	}

	if ctx.Err() != nil {
		return
	}
	// The displayed poll may have been replaced while fetching
	if _, ok := r.store.DispatchIf(state.Displaying(poll.ID), state.OptionsReplaced{Options: options}); !ok {
		slog.Debug("option refresh for replaced poll dropped", "poll_id", poll.ID)
	}
}

// appliedVotes remembers which vote changes were already counted in the
// current period, so a redelivered notification is not counted twice
type appliedVotes struct {
	mu     sync.Mutex
	period string
	seen   map[string]struct{}
}

func newAppliedVotes() *appliedVotes {
	return &appliedVotes{seen: make(map[string]struct{})}
}

// firstTime records the change and reports whether it was new. Changes
// without a vote id cannot be deduplicated and always count.
func (a *appliedVotes) firstTime(period string, typ realtime.ChangeType, voteID string) bool {
	if voteID == "" {
		return true
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if period != a.period {
		a.period = period
		a.seen = make(map[string]struct{})
	}

	key := string(typ) + ":" + voteID
	if _, ok := a.seen[key]; ok {
		return false
	}
	a.seen[key] = struct{}{}
	return true
}
