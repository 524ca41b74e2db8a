// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/danielhkuo/quickly-tally/state"
)

type Options struct {
	// SubmitTimeout bounds one cast-vote call; zero means DefaultSubmitTimeout
	SubmitTimeout time.Duration

	// IdleTimeout lets a Manager close a session nobody has asked for in
	// this long. Zero keeps sessions until dropped.
	IdleTimeout time.Duration

	// MaxSessions caps how many sessions a Manager holds. Opening one more
	// closes the least recently used. Zero means no cap.
	MaxSessions int
}

// Session is one live tally view: a store fed by the loader, the
// reconciler and the submitter
type Session struct {
	store      *state.Store
	loader     *Loader
	reconciler *Reconciler
	submitter  *Submitter

	bootstrapped chan struct{}

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Open subscribes to the change streams, then runs the bootstrap read in
// the background. Subscribing first means no change committed between the
// read and the subscription is missed.
func Open(ctx context.Context, backend Backend, opts Options) (*Session, error) {
	store := state.NewStore()
	s := &Session{
		store:      store,
		loader:     NewLoader(backend, store),
		reconciler: NewReconciler(backend, store),
		submitter:  NewSubmitter(backend, store, opts.SubmitTimeout),

		bootstrapped: make(chan struct{}),
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	if err := s.reconciler.Subscribe(runCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open session: %w", err)
	}

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.reconciler.Run(runCtx)
	}()
	go func() {
		defer s.wg.Done()
		defer close(s.bootstrapped)
		s.loader.Load(runCtx)
	}()

	return s, nil
}

// State returns the current view-state
func (s *Session) State() state.State {
	return s.store.State()
}

func (s *Session) Submit(ctx context.Context, optionID string) (state.State, error) {
	return s.submitter.Submit(ctx, optionID)
}

func (s *Session) ClearError() state.State {
	return s.submitter.ClearError()
}

// Bootstrapped is closed once the bootstrap read has returned, whether it
// loaded everything, stopped early or was canceled
func (s *Session) Bootstrapped() <-chan struct{} {
	return s.bootstrapped
}

// Wait blocks until ready reports true for the current state or ctx is done
func (s *Session) Wait(ctx context.Context, ready func(state.State) bool) (state.State, error) {
	for {
		changed := s.store.Changed()
		st := s.store.State()
		if ready(st) {
			return st, nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return st, ctx.Err()
		}
	}
}

// Close stops the bootstrap, tears down the subscriptions and waits for
// the background work to exit. Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.cancel()
		s.wg.Wait()
		slog.Debug("session closed")
	})
}

// Loaded reports whether the bootstrap read has settled the poll
func Loaded(st state.State) bool {
	return !st.Loading
}
