// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the Quickly Tally API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(client, sessions, cfg)

# Endpoints

Health:

	GET /health

Identity:

	POST /identities - Issue a voter token

Live tally (X-Voter-Token optional for reads, required to vote):

	GET    /state             - Current view-state (?format=text for a table)
	POST   /votes             - Cast a vote for the active poll
	POST   /state/clear-error - Dismiss a failed submission
	DELETE /session           - Close the caller's live session

Poll management (admin, requires X-Admin-Key):

	POST   /admin/polls                 - Create and activate a poll
	POST   /admin/polls/{id}/reset      - Delete the poll's votes
	POST   /admin/polls/{id}/deactivate - Close the poll
	POST   /admin/polls/{id}/options    - Add option
	DELETE /admin/options/{id}          - Remove option

# Handler Initialization

The router creates handler instances with dependency injection:

	identityHandler := handlers.NewIdentityHandler(cfg)
	stateHandler := handlers.NewStateHandler(sessions, cfg)
	adminHandler := handlers.NewAdminHandler(client, cfg)

Sessions read through the session manager; admin writes go straight to
the backend client, whose change events reach every open session.
*/
package router
