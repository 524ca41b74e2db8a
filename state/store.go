// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package state

import (
	"log/slog"
	"sync"

	"github.com/danielhkuo/quickly-tally/models"
)

// Store is the single owner of a session's State. Dispatch serializes
// every transition, so concurrent producers never interleave a half-applied
// update.
type Store struct {
	mu      sync.RWMutex
	state   State
	version uint64
	watch   chan struct{}
}

func NewStore() *Store {
	return &Store{
		state: Initial(),
		watch: make(chan struct{}),
	}
}

// Dispatch applies a to the current state and returns the result
func (s *Store) Dispatch(a Action) State {
	st, _ := s.DispatchIf(nil, a)
	return st
}

// DispatchIf applies a only if cond holds for the current state. The check
// and the apply happen under one lock, so no other transition can slip in
// between them. A nil cond always holds.
func (s *Store) DispatchIf(cond func(State) bool, a Action) (State, bool) {
	if a == nil {
		slog.Warn("nil action ignored")
		return s.State(), false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if cond != nil && !cond(s.state) {
		slog.Debug("stale action dropped", "action", a.Name(), "version", s.version)
		return s.state, false
	}

	s.state = Reduce(s.state, a)
	s.version++

	// Wake anyone blocked in Changed
	close(s.watch)
	s.watch = make(chan struct{})

	slog.Debug("action applied", "action", a.Name(), "version", s.version, "status", s.state.Status)
	return s.state, true
}

// Displaying reports whether st shows the poll with the given id. The empty
// id matches a state with no poll.
func Displaying(pollID string) func(State) bool {
	return func(st State) bool {
		if st.Poll == nil {
			return pollID == ""
		}
		return st.Poll.ID == pollID
	}
}

// Bootstrapping reports whether nothing has settled the poll yet
func Bootstrapping(st State) bool {
	return st.Loading
}

// State returns the current snapshot
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// CurrentPoll is the live "displayed poll" reference. Long-lived handlers
// must call it at event time instead of capturing a poll at setup.
func (s *Store) CurrentPoll() *models.Poll {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Poll
}

// Version counts applied actions
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Changed returns a channel closed on the next Dispatch after the call
func (s *Store) Changed() <-chan struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.watch
}
