// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/danielhkuo/quickly-tally/auth"
	"github.com/danielhkuo/quickly-tally/cliparse"
	"github.com/danielhkuo/quickly-tally/middleware"
	"github.com/danielhkuo/quickly-tally/models"
)

const (
	HeaderVoterToken = "X-Voter-Token"
	HeaderAdminKey   = "X-Admin-Key"
)

type IdentityHandler struct {
	cfg cliparse.Config
}

func NewIdentityHandler(cfg cliparse.Config) *IdentityHandler {
	return &IdentityHandler{cfg: cfg}
}

// Issue handles POST /identities
func (h *IdentityHandler) Issue(w http.ResponseWriter, r *http.Request) {
	token, err := auth.GenerateVoterToken()
	if err != nil {
		slog.Error("failed to generate voter token", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to issue identity")
		return
	}

	slog.Info("voter token issued")

	middleware.JSONResponse(w, http.StatusCreated, models.IdentityResponse{
		VoterToken: token,
	})
}

// voterIdentity resolves the caller's identity from the X-Voter-Token
// header. No header means the anonymous viewer.
func voterIdentity(r *http.Request, salt string) (string, error) {
	token := r.Header.Get(HeaderVoterToken)
	if token == "" {
		return "", nil
	}
	return auth.IdentityFromToken(token, salt)
}
