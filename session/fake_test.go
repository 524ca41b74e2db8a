// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/danielhkuo/quickly-tally/models"
	"github.com/danielhkuo/quickly-tally/realtime"
	"github.com/danielhkuo/quickly-tally/state"
)

// fakeBackend is an in-memory Backend whose change streams come from a Hub
// the test publishes to directly
type fakeBackend struct {
	hub *realtime.Hub

	mu         sync.Mutex
	poll       *models.Poll
	pollErr    error
	options    map[string][]models.Option
	optionsErr error
	rows       []models.CountRow
	countsErr  error
	countsHold gate
	identity   string
	votes      map[string]string // period -> option id
	voteHold   gate
	castResult models.CastVoteResult
	castErr    error
	castBlock  chan struct{}
	castCalls  int
	optCalls   int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		hub:     realtime.NewHub(64),
		options: make(map[string][]models.Option),
		votes:   make(map[string]string),
	}
}

func (f *fakeBackend) ActivePoll(ctx context.Context) (*models.Poll, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pollErr != nil {
		return nil, f.pollErr
	}
	if f.poll == nil {
		return nil, nil
	}
	p := *f.poll
	return &p, nil
}

func (f *fakeBackend) OptionsForPoll(ctx context.Context, pollID string) ([]models.Option, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.optCalls++
	if f.optionsErr != nil {
		return nil, f.optionsErr
	}
	return append([]models.Option{}, f.options[pollID]...), nil
}

func (f *fakeBackend) CountsForPeriod(ctx context.Context, period string) ([]models.CountRow, error) {
	f.mu.Lock()
	hold := f.countsHold
	rows, err := f.rows, f.countsErr
	f.mu.Unlock()

	if err := hold.wait(ctx); err != nil {
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (f *fakeBackend) CurrentIdentity(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.identity, nil
}

func (f *fakeBackend) VoteForIdentity(ctx context.Context, identity, period string) (string, bool, error) {
	f.mu.Lock()
	hold := f.voteHold
	opt, ok := f.votes[period]
	f.mu.Unlock()

	if err := hold.wait(ctx); err != nil {
		return "", false, err
	}
	return opt, ok, nil
}

func (f *fakeBackend) CastVote(ctx context.Context, optionID string) (models.CastVoteResult, error) {
	f.mu.Lock()
	f.castCalls++
	block := f.castBlock
	res, err := f.castResult, f.castErr
	f.mu.Unlock()

	if err := gate(block).wait(ctx); err != nil {
		return models.CastVoteResult{}, err
	}
	return res, err
}

func (f *fakeBackend) Subscribe(ctx context.Context, ch realtime.Channel) (realtime.Subscription, error) {
	return f.hub.Subscribe(ctx, ch)
}

// gate holds a fake call until it is closed or the call's context ends.
// A nil gate is open.
type gate chan struct{}

func (g gate) wait(ctx context.Context) error {
	if g == nil {
		return nil
	}
	select {
	case <-g:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeBackend) calls() (cast, options int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.castCalls, f.optCalls
}

// Fixtures

const testPeriod = "2025-W01"

func testPoll() *models.Poll {
	return &models.Poll{ID: "poll-1", Title: "Lunch", Period: testPeriod, Active: true, CreatedBy: "admin"}
}

func testOptions() []models.Option {
	return []models.Option{
		{ID: "opt-a", PollID: "poll-1", Name: "Pizza"},
		{ID: "opt-b", PollID: "poll-1", Name: "Sushi"},
	}
}

// seededBackend has an active poll with 2 votes for A and 1 for B
func seededBackend() *fakeBackend {
	f := newFakeBackend()
	f.poll = testPoll()
	f.options["poll-1"] = testOptions()
	f.rows = []models.CountRow{
		{OptionID: "opt-a", OptionName: "Pizza", PollID: "poll-1", Period: testPeriod, Total: 2},
		{OptionID: "opt-b", OptionName: "Sushi", PollID: "poll-1", Period: testPeriod, Total: 1},
	}
	return f
}

func voteChange(t *testing.T, typ realtime.ChangeType, id, optionID, period string) realtime.Change {
	t.Helper()
	rec := realtime.VoteRecord{ID: id, VoterID: "someone", OptionID: optionID, Period: period}
	var c realtime.Change
	var err error
	if typ == realtime.Delete {
		c, err = realtime.NewChange(realtime.ChannelVotes, "vote", typ, nil, rec)
	} else {
		c, err = realtime.NewChange(realtime.ChannelVotes, "vote", typ, rec, nil)
	}
	if err != nil {
		t.Fatalf("Failed to build change: %v", err)
	}
	return c
}

func pollChange(t *testing.T, typ realtime.ChangeType, rec realtime.PollRecord) realtime.Change {
	t.Helper()
	c, err := realtime.NewChange(realtime.ChannelPolls, "poll", typ, rec, nil)
	if err != nil {
		t.Fatalf("Failed to build change: %v", err)
	}
	return c
}

func optionChange(t *testing.T, typ realtime.ChangeType, rec realtime.OptionRecord) realtime.Change {
	t.Helper()
	var c realtime.Change
	var err error
	if typ == realtime.Delete {
		c, err = realtime.NewChange(realtime.ChannelOptions, "option", typ, nil, rec)
	} else {
		c, err = realtime.NewChange(realtime.ChannelOptions, "option", typ, rec, nil)
	}
	if err != nil {
		t.Fatalf("Failed to build change: %v", err)
	}
	return c
}

// loadedStore returns a store already showing the seeded poll and counts
func loadedStore(counts models.VoteCounts) *state.Store {
	store := state.NewStore()
	store.Dispatch(state.PollLoaded{Poll: *testPoll(), Options: testOptions()})
	store.Dispatch(state.CountsLoaded{Counts: counts})
	return store
}

func waitFor(t *testing.T, s *Session, what string, ready func(state.State) bool) state.State {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	st, err := s.Wait(ctx, ready)
	if err != nil {
		t.Fatalf("Timed out waiting for %s; state = %+v", what, st)
	}
	return st
}

func bootstrapped(st state.State) bool {
	return !st.Loading && !st.CountsLoading
}

// settled waits for all three bootstrap dispatches of a signed-in session
func settled(s *Session) func(state.State) bool {
	return func(st state.State) bool {
		return bootstrapped(st) && s.store.Version() >= 3
	}
}
