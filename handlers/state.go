// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielhkuo/quickly-tally/cliparse"
	"github.com/danielhkuo/quickly-tally/middleware"
	"github.com/danielhkuo/quickly-tally/models"
	"github.com/danielhkuo/quickly-tally/session"
)

// loadWait bounds how long GET /state waits for a new session's bootstrap
const loadWait = 2 * time.Second

type StateHandler struct {
	sessions *session.Manager
	cfg      cliparse.Config
}

func NewStateHandler(sessions *session.Manager, cfg cliparse.Config) *StateHandler {
	return &StateHandler{sessions: sessions, cfg: cfg}
}

// session resolves the caller's session, writing the error response on failure
func (h *StateHandler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	identity, err := voterIdentity(r, h.cfg.VoterIDSalt)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid voter token")
		return nil, false
	}

	sess, err := h.sessions.Get(r.Context(), identity)
	if err != nil {
		if errors.Is(err, session.ErrManagerClosed) {
			middleware.ErrorResponse(w, http.StatusServiceUnavailable, "Shutting down")
			return nil, false
		}
		slog.Error("failed to open session", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to open session")
		return nil, false
	}

	return sess, true
}

// awaitBootstrap gives a fresh session a moment to finish its bootstrap
// read. It reports false only when the request itself went away.
func awaitBootstrap(r *http.Request, sess *session.Session) bool {
	timer := time.NewTimer(loadWait)
	defer timer.Stop()

	select {
	case <-sess.Bootstrapped():
	case <-timer.C:
		slog.Warn("bootstrap still running, serving current state")
	case <-r.Context().Done():
		return false
	}
	return true
}

// GetState handles GET /state
func (h *StateHandler) GetState(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	if !awaitBootstrap(r, sess) {
		return
	}
	st := sess.State()

	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if err := WriteTally(w, st, time.Now()); err != nil {
			slog.Error("failed to write tally", "error", err)
		}
		return
	}

	middleware.JSONResponse(w, http.StatusOK, st.View())
}

// SubmitVote handles POST /votes
func (h *StateHandler) SubmitVote(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get(HeaderVoterToken) == "" {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "X-Voter-Token required")
		return
	}

	var req models.SubmitVoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.OptionID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "option_id is required")
		return
	}

	sess, ok := h.session(w, r)
	if !ok || !awaitBootstrap(r, sess) {
		return
	}

	st, err := sess.Submit(r.Context(), req.OptionID)
	if errors.Is(err, session.ErrSubmitInFlight) {
		middleware.ErrorResponse(w, http.StatusConflict, "A vote is already being submitted")
		return
	}

	// Rejections are part of the view-state, not an HTTP failure
	middleware.JSONResponse(w, http.StatusOK, st.View())
}

// ClearError handles POST /state/clear-error
func (h *StateHandler) ClearError(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(w, r)
	if !ok {
		return
	}

	middleware.JSONResponse(w, http.StatusOK, sess.ClearError().View())
}

// CloseSession handles DELETE /session
func (h *StateHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	identity, err := voterIdentity(r, h.cfg.VoterIDSalt)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid voter token")
		return
	}

	if !h.sessions.Drop(identity) {
		middleware.ErrorResponse(w, http.StatusNotFound, "No open session")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
