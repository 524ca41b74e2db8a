// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielhkuo/quickly-tally/backend"
	"github.com/danielhkuo/quickly-tally/cliparse"
	"github.com/danielhkuo/quickly-tally/models"
	"github.com/danielhkuo/quickly-tally/session"
	"github.com/danielhkuo/quickly-tally/state"
	"github.com/danielhkuo/quickly-tally/testutil"
)

const testPeriod = "2025-W01"

type testEnv struct {
	client   *backend.SQLClient
	sessions *session.Manager
	cfg      cliparse.Config
	state    *StateHandler
	admin    *AdminHandler
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	client, _ := testutil.SetupTestBackend(t)
	cfg := testutil.GetTestConfig()
	sessions := session.NewManager(func(identity string) session.Backend {
		return client.As(identity)
	}, session.Options{
		SubmitTimeout: cfg.SubmitTimeout,
		IdleTimeout:   cfg.SessionIdle,
		MaxSessions:   cfg.MaxSessions,
	})
	t.Cleanup(sessions.Close)

	return &testEnv{
		client:   client,
		sessions: sessions,
		cfg:      cfg,
		state:    NewStateHandler(sessions, cfg),
		admin:    NewAdminHandler(client, cfg),
	}
}

func (e *testEnv) adminHeaders() map[string]string {
	return map[string]string{HeaderAdminKey: testutil.AdminKey(e.cfg)}
}

func voterHeaders(token string) map[string]string {
	if token == "" {
		return nil
	}
	return map[string]string{HeaderVoterToken: token}
}

func (e *testEnv) getState(t *testing.T, token string) models.ViewState {
	t.Helper()

	req := testutil.MakeRequest("GET", "/state", nil, voterHeaders(token))
	w := httptest.NewRecorder()
	e.state.GetState(w, req)

	testutil.AssertStatus(t, w, http.StatusOK)
	var view models.ViewState
	testutil.AssertJSON(t, w, &view)
	return view
}

func (e *testEnv) submitVote(t *testing.T, token, optionID string) *httptest.ResponseRecorder {
	t.Helper()

	req := testutil.MakeRequest("POST", "/votes", models.SubmitVoteRequest{OptionID: optionID}, voterHeaders(token))
	w := httptest.NewRecorder()
	e.state.SubmitVote(w, req)
	return w
}

// waitForSession blocks until the open session for identity satisfies ready
func (e *testEnv) waitForSession(t *testing.T, identity, what string, ready func(state.State) bool) state.State {
	t.Helper()

	sess, err := e.sessions.Get(context.Background(), identity)
	if err != nil {
		t.Fatalf("Failed to get session: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	st, err := sess.Wait(ctx, ready)
	if err != nil {
		t.Fatalf("Timed out waiting for %s: last state %+v", what, st)
	}
	return st
}
