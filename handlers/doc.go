// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the Quickly Tally API.

# Handler Types

  - IdentityHandler: issues voter tokens
  - StateHandler: serves and drives a caller's live tally session
  - AdminHandler: poll lifecycle and moderation

Handlers are created via constructor functions:

	stateHandler := handlers.NewStateHandler(sessions, cfg)
	adminHandler := handlers.NewAdminHandler(client, cfg)

# Identities

	POST /identities → Issue (returns voter_token)

A voter token is presented in the X-Voter-Token header. The server keys
votes by an HMAC of the token, never the token itself. Requests without the
header are served as the anonymous viewer, who can watch but not vote.

# Live Tally

Each identity has one session, opened on first use and kept live by the
realtime change streams:

	GET    /state             → GetState (JSON view-state; ?format=text for a table)
	POST   /votes             → SubmitVote
	POST   /state/clear-error → ClearError
	DELETE /session           → CloseSession

A rejected vote ("already voted this period", "poll closed") is reported
through the view-state's status and error fields with a 200. A second vote
sent while one is still in flight gets 409.

# Admin

	POST   /admin/polls                 → CreatePoll (deactivates the previous poll)
	POST   /admin/polls/{id}/reset      → ResetVotes
	POST   /admin/polls/{id}/deactivate → DeactivatePoll
	POST   /admin/polls/{id}/options    → AddOption
	DELETE /admin/options/{id}          → RemoveOption

Admin operations require the X-Admin-Key header.
*/
package handlers
