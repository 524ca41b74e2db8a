// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/danielhkuo/quickly-tally/auth"
	"github.com/danielhkuo/quickly-tally/backend"
	"github.com/danielhkuo/quickly-tally/cliparse"
	"github.com/danielhkuo/quickly-tally/db"
	"github.com/danielhkuo/quickly-tally/models"
	"github.com/danielhkuo/quickly-tally/realtime"
)

// TestDBURL is an in-memory SQLite database; every Open gets a fresh one
const TestDBURL = ":memory:"

// SetupTestDB creates a fresh test database with the full schema
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := backend.Open(db.SQLite, TestDBURL)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return conn
}

// SetupTestBackend returns an unbound client over a fresh database and the
// hub its writes are published to
func SetupTestBackend(t *testing.T) (*backend.SQLClient, *realtime.Hub) {
	t.Helper()

	hub := realtime.NewHub(realtime.DefaultBuffer)
	t.Cleanup(hub.Close)

	return backend.New(SetupTestDB(t), db.SQLite, hub), hub
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:          3318,
		DatabaseURL:   TestDBURL,
		DatabaseType:  db.SQLite,
		AdminKeySalt:  "test-admin-salt",
		VoterIDSalt:   "test-voter-salt",
		SubmitTimeout: 2 * time.Second,
		SessionIdle:   time.Minute,
		MaxSessions:   100,
	}
}

// AdminKey returns the admin key valid for cfg
func AdminKey(cfg cliparse.Config) string {
	return auth.GenerateAdminKey(auth.AdminScope, cfg.AdminKeySalt)
}

// CreateTestPoll creates an active poll with the named options
func CreateTestPoll(t *testing.T, client *backend.SQLClient, title, period string, options ...string) models.CreatePollResponse {
	t.Helper()

	req := models.CreatePollRequest{Title: title, Period: period, CreatedBy: "TestUser"}
	for _, name := range options {
		req.Options = append(req.Options, models.CreateOptionFields{Name: name})
	}

	resp, err := client.CreatePoll(context.Background(), req)
	if err != nil {
		t.Fatalf("Failed to create test poll: %v", err)
	}
	return resp
}

// CreateTestVoter issues a voter token and returns it with its identity
func CreateTestVoter(t *testing.T, cfg cliparse.Config) (token, identity string) {
	t.Helper()

	token, err := auth.GenerateVoterToken()
	if err != nil {
		t.Fatalf("Failed to create test voter: %v", err)
	}
	identity, err = auth.IdentityFromToken(token, cfg.VoterIDSalt)
	if err != nil {
		t.Fatalf("Failed to derive test identity: %v", err)
	}
	return token, identity
}

// CastTestVote records a vote as identity and fails the test on rejection
func CastTestVote(t *testing.T, client *backend.SQLClient, identity, optionID string) string {
	t.Helper()

	res, err := client.As(identity).CastVote(context.Background(), optionID)
	if err != nil {
		t.Fatalf("Failed to cast test vote: %v", err)
	}
	if res.Error != "" {
		t.Fatalf("Test vote rejected: %s", res.Error)
	}
	return res.VoteID
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
