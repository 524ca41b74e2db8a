// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/danielhkuo/quickly-tally/models"
	"github.com/danielhkuo/quickly-tally/state"
)

// DefaultSubmitTimeout bounds one cast-vote call
const DefaultSubmitTimeout = 10 * time.Second

// ErrSubmitInFlight is returned when a submission is already outstanding
var ErrSubmitInFlight = errors.New("a vote submission is already in flight")

// MsgSubmitTimeout is the error shown when the cast-vote call times out
const MsgSubmitTimeout = "vote submission timed out"

// Submitter drives the idle -> submitting -> voted|error lifecycle
type Submitter struct {
	backend Backend
	store   *state.Store
	timeout time.Duration

	mu sync.Mutex
}

func NewSubmitter(backend Backend, store *state.Store, timeout time.Duration) *Submitter {
	if timeout <= 0 {
		timeout = DefaultSubmitTimeout
	}
	return &Submitter{backend: backend, store: store, timeout: timeout}
}

// Submit casts a vote for optionID and returns the resulting state.
// Failures land in the state, not in the error; the only error is
// ErrSubmitInFlight. The counts are left alone: the vote arrives back
// through the change stream like everyone else's.
func (s *Submitter) Submit(ctx context.Context, optionID string) (state.State, error) {
	s.mu.Lock()
	if s.store.State().Status == models.StatusSubmitting {
		s.mu.Unlock()
		return s.store.State(), ErrSubmitInFlight
	}
	st := s.store.Dispatch(state.Submitting{})
	s.mu.Unlock()

	// The outcome only belongs to the poll the vote was cast against
	pollID := ""
	if st.Poll != nil {
		pollID = st.Poll.ID
	}
	settle := func(a state.Action) state.State {
		st, ok := s.store.DispatchIf(state.Displaying(pollID), a)
		if !ok {
			slog.Info("poll replaced during submission, outcome dropped", "poll_id", pollID, "action", a.Name())
		}
		return st
	}

	// Once started, the call completes even if the caller goes away, so the
	// state never stays stuck in submitting
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	res, err := s.backend.CastVote(callCtx, optionID)
	if err != nil {
		msg := err.Error()
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			msg = MsgSubmitTimeout
		}
		slog.Error("vote submission failed", "error", err, "option_id", optionID)
		return settle(state.VoteFailed{Message: msg}), nil
	}

	if res.Error != "" {
		slog.Info("vote rejected", "reason", res.Error, "option_id", optionID)
		return settle(state.VoteFailed{Message: res.Error}), nil
	}

	slog.Info("vote accepted", "vote_id", res.VoteID, "option_id", optionID)
	return settle(state.VoteSucceeded{OptionID: optionID}), nil
}

// ClearError returns an error state to idle. In any other status it does
// nothing.
func (s *Submitter) ClearError() state.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store.State().Status != models.StatusError {
		return s.store.State()
	}
	return s.store.Dispatch(state.ErrorCleared{})
}
