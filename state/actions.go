// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package state

import "github.com/danielhkuo/quickly-tally/models"

// Action is the closed set of transitions accepted by Reduce
type Action interface {
	isAction()
	Name() string
}

// PollLoaded seeds the view with the active poll and its options
type PollLoaded struct {
	Poll    models.Poll
	Options []models.Option
}

// NoActivePoll is the terminal "nothing to vote on" view
type NoActivePoll struct{}

// CountsLoaded replaces counts with a bootstrap aggregate
type CountsLoaded struct {
	Counts models.VoteCounts
}

// UserVoteLoaded records the identity's existing vote; empty OptionID means none
type UserVoteLoaded struct {
	OptionID string
}

// CountDelta adds Delta to one option's count, floored at zero
type CountDelta struct {
	OptionID string
	Delta    int
}

// PollReplaced is a hard reset onto a newly active poll
type PollReplaced struct {
	Poll    models.Poll
	Options []models.Option
}

// OptionsReplaced swaps the option list of the displayed poll
type OptionsReplaced struct {
	Options []models.Option
}

type Submitting struct{}

type VoteSucceeded struct {
	OptionID string
}

type VoteFailed struct {
	Message string
}

type ErrorCleared struct{}

func (PollLoaded) isAction()      {}
func (NoActivePoll) isAction()    {}
func (CountsLoaded) isAction()    {}
func (UserVoteLoaded) isAction()  {}
func (CountDelta) isAction()      {}
func (PollReplaced) isAction()    {}
func (OptionsReplaced) isAction() {}
func (Submitting) isAction()      {}
func (VoteSucceeded) isAction()   {}
func (VoteFailed) isAction()      {}
func (ErrorCleared) isAction()    {}

func (PollLoaded) Name() string      { return "poll_loaded" }
func (NoActivePoll) Name() string    { return "no_active_poll" }
func (CountsLoaded) Name() string    { return "counts_loaded" }
func (UserVoteLoaded) Name() string  { return "user_vote_loaded" }
func (CountDelta) Name() string      { return "count_delta" }
func (PollReplaced) Name() string    { return "poll_replaced" }
func (OptionsReplaced) Name() string { return "options_replaced" }
func (Submitting) Name() string      { return "submitting" }
func (VoteSucceeded) Name() string   { return "vote_succeeded" }
func (VoteFailed) Name() string      { return "vote_failed" }
func (ErrorCleared) Name() string    { return "error_cleared" }
