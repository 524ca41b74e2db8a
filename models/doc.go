// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types shared by the
backend, the live session, and the HTTP surface.

# Domain Types

  - Poll: the running tally instance, scoped to a period key (e.g. "2024-05")
  - Option: one selectable choice within a poll
  - Vote: one voter's choice for a period (at most one per voter per period)
  - CountRow: a row of the per-period aggregate (option, poll, period, total)
  - VoteCounts: option_id → count for the displayed period
  - CastVoteResult: success payload of the cast operation, optionally
    carrying a business-rule rejection in Error

# View State

ViewState is the JSON shape of a live session:

	{
	  "poll": {...},
	  "options": [...],
	  "counts": {"opt-a": 2, "opt-b": 1},
	  "percentages": {"opt-a": 67, "opt-b": 33},
	  "total": 3,
	  "user_vote": "opt-a",
	  "status": "voted"
	}

# Constants

Submission status values:

	StatusIdle       = "idle"
	StatusSubmitting = "submitting"
	StatusVoted      = "voted"
	StatusError      = "error"

Business-rule rejections:

	RejectAlreadyVoted  = "already voted this period"
	RejectPollClosed    = "poll closed"
	RejectUnknownOption = "unknown option"
	RejectNotSignedIn   = "not signed in"
*/
package models
