// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/danielhkuo/quickly-tally/models"
	"github.com/danielhkuo/quickly-tally/state"
)

func TestWriteTally(t *testing.T) {
	now := time.Date(2025, 1, 6, 12, 0, 0, 0, time.UTC)

	loaded := state.Initial()
	loaded = state.Reduce(loaded, state.PollLoaded{
		Poll: models.Poll{ID: "poll-1", Title: "Lunch", Period: testPeriod, Active: true, CreatedAt: now.Add(-2 * time.Hour)},
		Options: []models.Option{
			{ID: "opt-a", PollID: "poll-1", Name: "Pizza"},
			{ID: "opt-b", PollID: "poll-1", Name: "Sushi"},
		},
	})
	loaded = state.Reduce(loaded, state.CountsLoaded{Counts: models.VoteCounts{"opt-a": 1234, "opt-b": 1}})

	voted := state.Reduce(loaded, state.UserVoteLoaded{OptionID: "opt-b"})
	failed := state.Reduce(state.Reduce(loaded, state.Submitting{}), state.VoteFailed{Message: models.RejectPollClosed})
	noPoll := state.Reduce(state.Initial(), state.NoActivePoll{})

	tests := []struct {
		name    string
		st      state.State
		want    []string
		notWant []string
	}{
		{"loading", state.Initial(), []string{"Loading..."}, []string{"No active poll"}},
		{"no poll", noPoll, []string{"No active poll"}, []string{"votes"}},
		{"tally", loaded, []string{"Lunch [2025-W01], opened 2 hours ago", "Pizza", "1,234", "100%", "Sushi", "0%", "1,235 votes"}, []string{"your vote", "error:"}},
		{"own vote marked", voted, []string{"your vote"}, nil},
		{"error shown", failed, []string{"error: poll closed"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := WriteTally(&buf, tt.st, now); err != nil {
				t.Fatalf("WriteTally failed: %v", err)
			}

			out := buf.String()
			for _, s := range tt.want {
				if !strings.Contains(out, s) {
					t.Errorf("Expected %q in output:\n%s", s, out)
				}
			}
			for _, s := range tt.notWant {
				if strings.Contains(out, s) {
					t.Errorf("Did not expect %q in output:\n%s", s, out)
				}
			}
		})
	}
}

func TestWriteTally_OwnVoteRow(t *testing.T) {
	st := state.Reduce(state.Initial(), state.PollLoaded{
		Poll: models.Poll{ID: "poll-1", Title: "Lunch", Period: testPeriod},
		Options: []models.Option{
			{ID: "opt-a", Name: "Pizza"},
			{ID: "opt-b", Name: "Sushi"},
		},
	})
	st = state.Reduce(st, state.CountsLoaded{Counts: models.VoteCounts{"opt-a": 1, "opt-b": 1}})
	st = state.Reduce(st, state.UserVoteLoaded{OptionID: "opt-b"})

	var buf bytes.Buffer
	if err := WriteTally(&buf, st, time.Now()); err != nil {
		t.Fatalf("WriteTally failed: %v", err)
	}

	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.Contains(line, "Pizza") && strings.Contains(line, "your vote") {
			t.Errorf("Marker on the wrong row: %q", line)
		}
		if strings.Contains(line, "Sushi") && !strings.Contains(line, "your vote") {
			t.Errorf("Expected marker on Sushi row: %q", line)
		}
	}

	// A zero creation time has nothing to be relative to
	if strings.Contains(buf.String(), "opened") {
		t.Errorf("Did not expect creation time in output:\n%s", buf.String())
	}
}
