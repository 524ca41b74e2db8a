// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware holds the HTTP plumbing shared by every Quickly Tally
route: request logs, CORS for the browser frontend and the JSON helpers the
handlers answer with.

# Request Logs

Every route in the router is wrapped:

	mux.HandleFunc("POST /votes", middleware.WithLogging(stateHandler.SubmitVote))

Two records are written per request. "request started" carries method, path
and remote (see GetClientIP). "request completed" adds the status the
handler actually sent and duration_ms. Completions are logged at Info, at
Warn for 4xx (a 409 for a vote already in flight, a 401 for a bad
X-Admin-Key) and at Error for 5xx. A handler that writes a body without
calling WriteHeader is logged as 200.

# CORS

The whole mux sits behind CORS:

	server := http.Server{Handler: middleware.CORS(mux)}

The caller's Origin is echoed back (with Vary: Origin), or "*" when there is
none. X-Voter-Token and X-Admin-Key are allowed request headers, so a
browser can vote and administer cross-origin. OPTIONS preflights are
answered directly.

# JSON

Live state, rejections included, goes out as a 200 with the view-state body:

	middleware.JSONResponse(w, http.StatusOK, st.View())

Failures use the models.ErrorResponse shape:

	middleware.ErrorResponse(w, http.StatusConflict, "A vote is already being submitted")

Request bodies decode with goccy/go-json:

	var req models.SubmitVoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
*/
package middleware
