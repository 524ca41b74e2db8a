// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"

	"github.com/danielhkuo/quickly-tally/backend"
	"github.com/danielhkuo/quickly-tally/cliparse"
	"github.com/danielhkuo/quickly-tally/handlers"
	"github.com/danielhkuo/quickly-tally/middleware"
	"github.com/danielhkuo/quickly-tally/session"
)

func NewRouter(client *backend.SQLClient, sessions *session.Manager, cfg cliparse.Config) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	identityHandler := handlers.NewIdentityHandler(cfg)
	stateHandler := handlers.NewStateHandler(sessions, cfg)
	adminHandler := handlers.NewAdminHandler(client, cfg)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Voter identity
	mux.HandleFunc("POST /identities", middleware.WithLogging(identityHandler.Issue))

	// Live tally (public; voting requires X-Voter-Token)
	mux.HandleFunc("GET /state", middleware.WithLogging(stateHandler.GetState))
	mux.HandleFunc("POST /votes", middleware.WithLogging(stateHandler.SubmitVote))
	mux.HandleFunc("POST /state/clear-error", middleware.WithLogging(stateHandler.ClearError))
	mux.HandleFunc("DELETE /session", middleware.WithLogging(stateHandler.CloseSession))

	// Poll management (admin operations)
	mux.HandleFunc("POST /admin/polls", middleware.WithLogging(adminHandler.CreatePoll))
	mux.HandleFunc("POST /admin/polls/{id}/reset", middleware.WithLogging(adminHandler.ResetVotes))
	mux.HandleFunc("POST /admin/polls/{id}/deactivate", middleware.WithLogging(adminHandler.DeactivatePoll))
	mux.HandleFunc("POST /admin/polls/{id}/options", middleware.WithLogging(adminHandler.AddOption))
	mux.HandleFunc("DELETE /admin/options/{id}", middleware.WithLogging(adminHandler.RemoveOption))

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("quickly-tally API v1"))
	})

	return mux
}
