// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package backend

import (
	"context"
	"testing"
	"time"

	"github.com/danielhkuo/quickly-tally/db"
	"github.com/danielhkuo/quickly-tally/models"
	"github.com/danielhkuo/quickly-tally/realtime"
)

// setupTestClient opens a fresh in-memory SQLite database
func setupTestClient(t *testing.T) (*SQLClient, *realtime.Hub) {
	t.Helper()

	conn, err := Open(db.SQLite, ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	hub := realtime.NewHub(64)
	t.Cleanup(hub.Close)

	return New(conn, db.SQLite, hub), hub
}

func createTestPoll(t *testing.T, c *SQLClient, title, period string, options ...string) models.CreatePollResponse {
	t.Helper()

	req := models.CreatePollRequest{Title: title, Period: period, CreatedBy: "admin"}
	for _, name := range options {
		req.Options = append(req.Options, models.CreateOptionFields{Name: name})
	}
	resp, err := c.CreatePoll(context.Background(), req)
	if err != nil {
		t.Fatalf("Failed to create test poll: %v", err)
	}
	return resp
}

func subscribe(t *testing.T, hub *realtime.Hub, ch realtime.Channel) realtime.Subscription {
	t.Helper()
	sub, err := hub.Subscribe(context.Background(), ch)
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	t.Cleanup(func() { sub.Close() })
	return sub
}

func nextChange(t *testing.T, sub realtime.Subscription) realtime.Change {
	t.Helper()
	select {
	case c := <-sub.Events():
		return c
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for change")
		return realtime.Change{}
	}
}

func expectNoChange(t *testing.T, sub realtime.Subscription) {
	t.Helper()
	select {
	case c := <-sub.Events():
		t.Errorf("Expected no change, got %s %s", c.Table, c.Type)
	default:
	}
}

func TestOpenUnsupportedDialect(t *testing.T) {
	if _, err := Open("mysql", "whatever"); err == nil {
		t.Error("Expected error for unsupported database type")
	}
}

func TestActivePollNone(t *testing.T) {
	c, _ := setupTestClient(t)

	poll, err := c.ActivePoll(context.Background())
	if err != nil {
		t.Fatalf("ActivePoll failed: %v", err)
	}
	if poll != nil {
		t.Errorf("Expected no active poll, got %+v", poll)
	}
}

func TestCreatePoll(t *testing.T) {
	c, hub := setupTestClient(t)
	ctx := context.Background()
	polls := subscribe(t, hub, realtime.ChannelPolls)
	options := subscribe(t, hub, realtime.ChannelOptions)

	resp := createTestPoll(t, c, "Lunch", "2025-W01", "Pizza", "Sushi", "Tacos")
	if len(resp.OptionIDs) != 3 {
		t.Fatalf("Expected 3 option ids, got %d", len(resp.OptionIDs))
	}

	poll, err := c.ActivePoll(ctx)
	if err != nil {
		t.Fatalf("ActivePoll failed: %v", err)
	}
	if poll == nil || poll.ID != resp.PollID {
		t.Fatalf("Expected active poll %s, got %+v", resp.PollID, poll)
	}
	if poll.Title != "Lunch" || poll.Period != "2025-W01" || !poll.Active {
		t.Errorf("Unexpected poll: %+v", poll)
	}

	opts, err := c.OptionsForPoll(ctx, resp.PollID)
	if err != nil {
		t.Fatalf("OptionsForPoll failed: %v", err)
	}
	// Creation order is preserved
	for i, name := range []string{"Pizza", "Sushi", "Tacos"} {
		if opts[i].Name != name || opts[i].ID != resp.OptionIDs[i] {
			t.Errorf("Option %d: expected %s/%s, got %s/%s", i, name, resp.OptionIDs[i], opts[i].Name, opts[i].ID)
		}
	}

	change := nextChange(t, polls)
	if change.Type != realtime.Insert {
		t.Errorf("Expected poll insert, got %s", change.Type)
	}
	var rec realtime.PollRecord
	if err := change.DecodeNew(&rec); err != nil {
		t.Fatalf("DecodeNew failed: %v", err)
	}
	if rec.ID != resp.PollID || !rec.Active || rec.Period != "2025-W01" {
		t.Errorf("Unexpected poll record: %+v", rec)
	}

	for i := 0; i < 3; i++ {
		if ch := nextChange(t, options); ch.Type != realtime.Insert {
			t.Errorf("Expected option insert, got %s", ch.Type)
		}
	}
}

func TestCreatePollDeactivatesPrevious(t *testing.T) {
	c, hub := setupTestClient(t)
	ctx := context.Background()

	first := createTestPoll(t, c, "Week 1", "2025-W01", "A")
	polls := subscribe(t, hub, realtime.ChannelPolls)
	second := createTestPoll(t, c, "Week 2", "2025-W02", "B")

	poll, err := c.ActivePoll(ctx)
	if err != nil {
		t.Fatalf("ActivePoll failed: %v", err)
	}
	if poll == nil || poll.ID != second.PollID {
		t.Fatalf("Expected second poll active, got %+v", poll)
	}

	// Deactivation is published before the new poll
	deactivated := nextChange(t, polls)
	if deactivated.Type != realtime.Update {
		t.Fatalf("Expected update, got %s", deactivated.Type)
	}
	var rec realtime.PollRecord
	if err := deactivated.DecodeNew(&rec); err != nil {
		t.Fatalf("DecodeNew failed: %v", err)
	}
	if rec.ID != first.PollID || rec.Active {
		t.Errorf("Expected first poll deactivated, got %+v", rec)
	}
	var prev realtime.PollRecord
	if err := deactivated.DecodeOld(&prev); err != nil {
		t.Fatalf("DecodeOld failed: %v", err)
	}
	if !prev.Active {
		t.Error("Expected old record to be active")
	}

	if inserted := nextChange(t, polls); inserted.Type != realtime.Insert {
		t.Errorf("Expected insert, got %s", inserted.Type)
	}
}

func TestCastVote(t *testing.T) {
	c, hub := setupTestClient(t)
	ctx := context.Background()
	resp := createTestPoll(t, c, "Lunch", "2025-W01", "Pizza", "Sushi")
	votes := subscribe(t, hub, realtime.ChannelVotes)

	voter := c.As("voter-1")
	res, err := voter.CastVote(ctx, resp.OptionIDs[1])
	if err != nil {
		t.Fatalf("CastVote failed: %v", err)
	}
	if res.Error != "" || res.VoteID == "" {
		t.Fatalf("Expected accepted vote, got %+v", res)
	}

	optionID, found, err := c.VoteForIdentity(ctx, "voter-1", "2025-W01")
	if err != nil {
		t.Fatalf("VoteForIdentity failed: %v", err)
	}
	if !found || optionID != resp.OptionIDs[1] {
		t.Errorf("Expected vote for %s, got %q (found=%v)", resp.OptionIDs[1], optionID, found)
	}

	change := nextChange(t, votes)
	var rec realtime.VoteRecord
	if err := change.DecodeNew(&rec); err != nil {
		t.Fatalf("DecodeNew failed: %v", err)
	}
	if change.Type != realtime.Insert || rec.ID != res.VoteID || rec.Period != "2025-W01" || rec.OptionID != resp.OptionIDs[1] {
		t.Errorf("Unexpected vote change: %s %+v", change.Type, rec)
	}
}

func TestCastVoteRejections(t *testing.T) {
	c, hub := setupTestClient(t)
	ctx := context.Background()

	old := createTestPoll(t, c, "Old", "2024-W52", "Stale")
	resp := createTestPoll(t, c, "Lunch", "2025-W01", "Pizza", "Sushi")

	if res, _ := c.As("voter-1").CastVote(ctx, resp.OptionIDs[0]); res.Error != "" {
		t.Fatalf("Setup vote rejected: %s", res.Error)
	}

	votes := subscribe(t, hub, realtime.ChannelVotes)

	tests := []struct {
		name     string
		identity string
		optionID string
		want     string
	}{
		{"anonymous", "", resp.OptionIDs[0], models.RejectNotSignedIn},
		{"unknown option", "voter-2", "no-such-option", models.RejectUnknownOption},
		{"inactive poll", "voter-2", old.OptionIDs[0], models.RejectPollClosed},
		{"second vote same option", "voter-1", resp.OptionIDs[0], models.RejectAlreadyVoted},
		{"second vote other option", "voter-1", resp.OptionIDs[1], models.RejectAlreadyVoted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := c.As(tt.identity).CastVote(ctx, tt.optionID)
			if err != nil {
				t.Fatalf("Expected rejection, got transport error: %v", err)
			}
			if res.Error != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, res.Error)
			}
			if res.VoteID != "" {
				t.Errorf("Expected no vote id, got %s", res.VoteID)
			}
		})
	}

	expectNoChange(t, votes)

	rows, err := c.CountsForPeriod(ctx, "2025-W01")
	if err != nil {
		t.Fatalf("CountsForPeriod failed: %v", err)
	}
	if len(rows) != 1 || rows[0].Total != 1 {
		t.Errorf("Expected a single vote recorded, got %+v", rows)
	}
}

func TestCastVoteOnePerPeriod(t *testing.T) {
	c, _ := setupTestClient(t)
	ctx := context.Background()

	first := createTestPoll(t, c, "Morning", "2025-W01", "Coffee")
	if res, _ := c.As("voter-1").CastVote(ctx, first.OptionIDs[0]); res.Error != "" {
		t.Fatalf("First vote rejected: %s", res.Error)
	}

	// A replacement poll in the same period does not grant a new vote
	second := createTestPoll(t, c, "Morning again", "2025-W01", "Tea")
	res, err := c.As("voter-1").CastVote(ctx, second.OptionIDs[0])
	if err != nil {
		t.Fatalf("CastVote failed: %v", err)
	}
	if res.Error != models.RejectAlreadyVoted {
		t.Errorf("Expected %q, got %q", models.RejectAlreadyVoted, res.Error)
	}

	// A new period does
	third := createTestPoll(t, c, "Next week", "2025-W02", "Juice")
	if res, _ := c.As("voter-1").CastVote(ctx, third.OptionIDs[0]); res.Error != "" {
		t.Errorf("Expected vote in new period accepted, got %q", res.Error)
	}
}

func TestCountsForPeriod(t *testing.T) {
	c, _ := setupTestClient(t)
	ctx := context.Background()
	resp := createTestPoll(t, c, "Lunch", "2025-W01", "Pizza", "Sushi", "Tacos")

	picks := map[string]string{
		"voter-1": resp.OptionIDs[0],
		"voter-2": resp.OptionIDs[0],
		"voter-3": resp.OptionIDs[1],
	}
	for voter, optionID := range picks {
		if res, err := c.As(voter).CastVote(ctx, optionID); err != nil || res.Error != "" {
			t.Fatalf("Vote for %s failed: %v %s", voter, err, res.Error)
		}
	}

	rows, err := c.CountsForPeriod(ctx, "2025-W01")
	if err != nil {
		t.Fatalf("CountsForPeriod failed: %v", err)
	}

	got := map[string]int{}
	for _, row := range rows {
		got[row.OptionID] = row.Total
		if row.PollID != resp.PollID || row.Period != "2025-W01" || row.OptionName == "" {
			t.Errorf("Unexpected row: %+v", row)
		}
	}
	if got[resp.OptionIDs[0]] != 2 || got[resp.OptionIDs[1]] != 1 {
		t.Errorf("Expected {A:2, B:1}, got %v", got)
	}
	// Options without votes have no row
	if _, ok := got[resp.OptionIDs[2]]; ok {
		t.Error("Expected no row for an option without votes")
	}

	other, err := c.CountsForPeriod(ctx, "2024-W52")
	if err != nil {
		t.Fatalf("CountsForPeriod failed: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("Expected no rows for another period, got %d", len(other))
	}
}

func TestVoteForIdentityMissing(t *testing.T) {
	c, _ := setupTestClient(t)

	_, found, err := c.VoteForIdentity(context.Background(), "nobody", "2025-W01")
	if err != nil {
		t.Fatalf("VoteForIdentity failed: %v", err)
	}
	if found {
		t.Error("Expected no vote")
	}
}

func TestCurrentIdentity(t *testing.T) {
	c, _ := setupTestClient(t)
	ctx := context.Background()

	if id, _ := c.CurrentIdentity(ctx); id != "" {
		t.Errorf("Expected anonymous client, got %q", id)
	}

	bound := c.As("voter-1")
	if id, _ := bound.CurrentIdentity(ctx); id != "voter-1" {
		t.Errorf("Expected voter-1, got %q", id)
	}
	// Binding does not change the original
	if id, _ := c.CurrentIdentity(ctx); id != "" {
		t.Errorf("Expected original client still anonymous, got %q", id)
	}
}

func TestPostgresClientDoesNotSelfPublish(t *testing.T) {
	c := New(nil, db.Postgres, realtime.NewHub(1))
	if c.publish {
		t.Error("Expected Postgres client to rely on triggers")
	}
}
