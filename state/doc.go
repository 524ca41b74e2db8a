// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package state holds the session view-state and its reducer.

# Reducer

Reduce is a pure transition over an immutable State and a closed set of
actions:

	PollLoaded       bootstrap: poll + options
	NoActivePoll     terminal empty view
	CountsLoaded     bootstrap aggregate
	UserVoteLoaded   identity's existing vote (or none)
	CountDelta       +1/-1 from the live stream, floored at zero
	PollReplaced     hard reset onto a new active poll
	OptionsReplaced  option membership changed
	Submitting       vote attempt started
	VoteSucceeded    vote acknowledged
	VoteFailed       transport or business failure
	ErrorCleared     back to idle

Percentages and Total are always recomputed from Counts with
tally.Aggregate; no action sets them directly.

# Store

Store owns one State and serializes Dispatch:

	st := state.NewStore()
	st.Dispatch(state.PollLoaded{Poll: p, Options: opts})
	cur := st.CurrentPoll() // live reference, read at event time

Changed returns a channel closed on the next transition, for waiters.
*/
package state
