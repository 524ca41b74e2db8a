// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielhkuo/quickly-tally/auth"
	"github.com/danielhkuo/quickly-tally/backend"
	"github.com/danielhkuo/quickly-tally/cliparse"
	"github.com/danielhkuo/quickly-tally/middleware"
	"github.com/danielhkuo/quickly-tally/models"
)

type AdminHandler struct {
	client *backend.SQLClient
	cfg    cliparse.Config
}

func NewAdminHandler(client *backend.SQLClient, cfg cliparse.Config) *AdminHandler {
	return &AdminHandler{client: client, cfg: cfg}
}

// authorized validates the X-Admin-Key header, writing 401 on failure
func (h *AdminHandler) authorized(w http.ResponseWriter, r *http.Request) bool {
	adminKey := r.Header.Get(HeaderAdminKey)
	if err := auth.ValidateAdminKey(auth.AdminScope, adminKey, h.cfg.AdminKeySalt); err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid admin key")
		return false
	}
	return true
}

// CreatePoll handles POST /admin/polls
func (h *AdminHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(w, r) {
		return
	}

	var req models.CreatePollRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	// Validate input
	req.Title = strings.TrimSpace(req.Title)
	req.Period = strings.TrimSpace(req.Period)
	if req.Title == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.Period == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "period is required")
		return
	}
	if len(req.Options) == 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "at least one option is required")
		return
	}
	for _, opt := range req.Options {
		if strings.TrimSpace(opt.Name) == "" {
			middleware.ErrorResponse(w, http.StatusBadRequest, "option name is required")
			return
		}
	}
	if req.CreatedBy == "" {
		req.CreatedBy = "admin"
	}

	resp, err := h.client.CreatePoll(r.Context(), req)
	if err != nil {
		slog.Error("failed to create poll", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create poll")
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, resp)
}

// ResetVotes handles POST /admin/polls/{id}/reset
func (h *AdminHandler) ResetVotes(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(w, r) {
		return
	}

	deleted, err := h.client.ResetVotes(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err, "Failed to reset votes")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.ResetVotesResponse{Deleted: deleted})
}

// DeactivatePoll handles POST /admin/polls/{id}/deactivate
func (h *AdminHandler) DeactivatePoll(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(w, r) {
		return
	}

	if err := h.client.DeactivatePoll(r.Context(), r.PathValue("id")); err != nil {
		h.writeError(w, err, "Failed to deactivate poll")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AddOption handles POST /admin/polls/{id}/options
func (h *AdminHandler) AddOption(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(w, r) {
		return
	}

	var req models.CreateOptionFields
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "name is required")
		return
	}

	opt, err := h.client.AddOption(r.Context(), r.PathValue("id"), req)
	if err != nil {
		h.writeError(w, err, "Failed to add option")
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, opt)
}

// RemoveOption handles DELETE /admin/options/{id}
func (h *AdminHandler) RemoveOption(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(w, r) {
		return
	}

	if err := h.client.RemoveOption(r.Context(), r.PathValue("id")); err != nil {
		h.writeError(w, err, "Failed to remove option")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) writeError(w http.ResponseWriter, err error, message string) {
	switch {
	case errors.Is(err, backend.ErrPollNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
	case errors.Is(err, backend.ErrOptionNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, "Option not found")
	default:
		slog.Error(strings.ToLower(message), "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, message)
	}
}
