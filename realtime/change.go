// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package realtime

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"

	"github.com/danielhkuo/quickly-tally/models"
)

// Channel names one of the change streams a session subscribes to
type Channel string

const (
	ChannelVotes   Channel = "votes"
	ChannelPolls   Channel = "polls"
	ChannelOptions Channel = "options"
)

// Channels lists every stream, in subscription order
var Channels = []Channel{ChannelVotes, ChannelPolls, ChannelOptions}

type ChangeType string

const (
	Insert ChangeType = "INSERT"
	Update ChangeType = "UPDATE"
	Delete ChangeType = "DELETE"
)

// Change is one row-level notification. New is absent for deletes and
// Old is absent for inserts.
type Change struct {
	Channel Channel         `json:"-"`
	Table   string          `json:"table"`
	Type    ChangeType      `json:"type"`
	New     json.RawMessage `json:"new,omitempty"`
	Old     json.RawMessage `json:"old,omitempty"`
}

// Records carry only the columns the reconciler reads
type VoteRecord struct {
	ID       string `json:"id"`
	VoterID  string `json:"voter_id"`
	OptionID string `json:"option_id"`
	Period   string `json:"period"`
}

type PollRecord struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Period    string `json:"period"`
	Active    bool   `json:"active"`
	CreatedBy string `json:"created_by"`
	CreatedAt string `json:"created_at,omitempty"`
}

// row_to_json renders TIMESTAMP without a zone; treat those as UTC
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// Poll converts the record to a domain poll. An unparseable created_at
// leaves CreatedAt zero.
func (r PollRecord) Poll() models.Poll {
	p := models.Poll{
		ID:        r.ID,
		Title:     r.Title,
		Period:    r.Period,
		Active:    r.Active,
		CreatedBy: r.CreatedBy,
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, r.CreatedAt); err == nil {
			p.CreatedAt = t
			break
		}
	}
	return p
}

type OptionRecord struct {
	ID     string `json:"id"`
	PollID string `json:"poll_id"`
	Name   string `json:"name"`
}

// NewChange builds a change from typed records; pass nil for a missing side
func NewChange(ch Channel, table string, typ ChangeType, newRec, oldRec any) (Change, error) {
	c := Change{Channel: ch, Table: table, Type: typ}
	if newRec != nil {
		b, err := json.Marshal(newRec)
		if err != nil {
			return Change{}, fmt.Errorf("failed to encode new record: %w", err)
		}
		c.New = b
	}
	if oldRec != nil {
		b, err := json.Marshal(oldRec)
		if err != nil {
			return Change{}, fmt.Errorf("failed to encode old record: %w", err)
		}
		c.Old = b
	}
	return c, nil
}

// DecodeChange parses a notification payload received on ch
func DecodeChange(ch Channel, payload []byte) (Change, error) {
	var c Change
	if err := json.Unmarshal(payload, &c); err != nil {
		return Change{}, fmt.Errorf("failed to decode %s notification: %w", ch, err)
	}
	c.Channel = ch
	return c, nil
}

// DecodeNew decodes the post-change row into v
func (c Change) DecodeNew(v any) error {
	if len(c.New) == 0 || string(c.New) == "null" {
		return fmt.Errorf("%s %s change has no new record", c.Table, c.Type)
	}
	return json.Unmarshal(c.New, v)
}

// DecodeOld decodes the pre-change row into v
func (c Change) DecodeOld(v any) error {
	if len(c.Old) == 0 || string(c.Old) == "null" {
		return fmt.Errorf("%s %s change has no old record", c.Table, c.Type)
	}
	return json.Unmarshal(c.Old, v)
}
