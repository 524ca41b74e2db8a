// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package state

import (
	"fmt"
	"log/slog"
	"slices"

	"golang.org/x/exp/maps"

	"github.com/danielhkuo/quickly-tally/models"
	"github.com/danielhkuo/quickly-tally/tally"
)

// State is the session view-state. Values are treated as immutable:
// Reduce always builds new maps and slices rather than editing them.
type State struct {
	Poll          *models.Poll
	Options       []models.Option
	Counts        models.VoteCounts
	Percentages   map[string]int
	Total         int
	UserVote      string
	Status        string
	Error         string
	Loading       bool
	CountsLoading bool
}

// Initial returns the empty state a session starts from
func Initial() State {
	return State{
		Options:       []models.Option{},
		Counts:        models.VoteCounts{},
		Percentages:   map[string]int{},
		Status:        models.StatusIdle,
		Loading:       true,
		CountsLoading: true,
	}
}

// Reduce applies one action and returns the next state
func Reduce(s State, a Action) State {
	switch act := a.(type) {
	case PollLoaded:
		p := act.Poll
		s.Poll = &p
		s.Options = cloneOptions(act.Options)
		s.Loading = false

	case NoActivePoll:
		s.Poll = nil
		s.Options = []models.Option{}
		s = withCounts(s, models.VoteCounts{})
		s.UserVote = ""
		s.Status = models.StatusIdle
		s.Error = ""
		s.Loading = false
		s.CountsLoading = false

	case CountsLoaded:
		counts := maps.Clone(act.Counts)
		if counts == nil {
			counts = models.VoteCounts{}
		}
		s = withCounts(s, counts)
		s.CountsLoading = false

	case UserVoteLoaded:
		s.UserVote = act.OptionID
		if act.OptionID != "" {
			s.Status = models.StatusVoted
		} else {
			s.Status = models.StatusIdle
		}

	case CountDelta:
		counts := maps.Clone(s.Counts)
		if counts == nil {
			counts = models.VoteCounts{}
		}
		counts[act.OptionID] = max(counts[act.OptionID]+act.Delta, 0)
		s = withCounts(s, counts)

	case PollReplaced:
		p := act.Poll
		s.Poll = &p
		s.Options = cloneOptions(act.Options)
		s = withCounts(s, models.VoteCounts{})
		s.UserVote = ""
		s.Status = models.StatusIdle
		s.Error = ""
		s.Loading = false
		s.CountsLoading = true

	case OptionsReplaced:
		s.Options = cloneOptions(act.Options)

	case Submitting:
		s.Status = models.StatusSubmitting
		s.Error = ""

	case VoteSucceeded:
		s.Status = models.StatusVoted
		s.UserVote = act.OptionID
		s.Error = ""

	case VoteFailed:
		s.Status = models.StatusError
		s.Error = act.Message

	case ErrorCleared:
		s.Status = models.StatusIdle
		s.Error = ""

	default:
		slog.Warn("unexpected action ignored", "action", fmt.Sprintf("%T", a))
	}

	return s
}

// withCounts installs counts and recomputes the derived percentages and total
func withCounts(s State, counts models.VoteCounts) State {
	res := tally.Aggregate(counts)
	s.Counts = counts
	s.Percentages = res.Percentages
	s.Total = res.Total
	return s
}

func cloneOptions(opts []models.Option) []models.Option {
	if opts == nil {
		return []models.Option{}
	}
	return slices.Clone(opts)
}

// View converts the state to its JSON-facing shape
func (s State) View() models.ViewState {
	v := models.ViewState{
		Poll:          s.Poll,
		Options:       s.Options,
		Counts:        s.Counts,
		Percentages:   s.Percentages,
		Total:         s.Total,
		Status:        s.Status,
		Error:         s.Error,
		Loading:       s.Loading,
		CountsLoading: s.CountsLoading,
	}
	if s.UserVote != "" {
		vote := s.UserVote
		v.UserVote = &vote
	}
	return v
}
