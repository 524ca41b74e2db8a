// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "time"

// Submission status constants
const (
	StatusIdle       = "idle"
	StatusSubmitting = "submitting"
	StatusVoted      = "voted"
	StatusError      = "error"
)

// Business-rule rejections returned inside a successful cast response
const (
	RejectAlreadyVoted  = "already voted this period"
	RejectPollClosed    = "poll closed"
	RejectUnknownOption = "unknown option"
	RejectNotSignedIn   = "not signed in"
)

// Domain types

type Poll struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Period    string    `json:"period"`
	Active    bool      `json:"active"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

type Option struct {
	ID          string    `json:"id"`
	PollID      string    `json:"poll_id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	ImageURL    *string   `json:"image_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type Vote struct {
	ID        string    `json:"id"`
	VoterID   string    `json:"-"` // Never expose in JSON
	OptionID  string    `json:"option_id"`
	Period    string    `json:"period"`
	CreatedAt time.Time `json:"created_at"`
}

// CountRow is one row of the per-period aggregate
type CountRow struct {
	OptionID   string `json:"option_id"`
	OptionName string `json:"option_name"`
	PollID     string `json:"poll_id"`
	Period     string `json:"period"`
	Total      int    `json:"total"`
}

// option_id -> vote count for the displayed period
type VoteCounts map[string]int

// CastVoteResult is the success payload of the atomic cast operation.
// A non-empty Error is a business-rule rejection, not a transport failure.
type CastVoteResult struct {
	VoteID string `json:"vote_id,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Request types

type CreatePollRequest struct {
	Title     string               `json:"title"`
	Period    string               `json:"period"`
	CreatedBy string               `json:"created_by"`
	Options   []CreateOptionFields `json:"options"`
}

type CreateOptionFields struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	ImageURL    *string `json:"image_url,omitempty"`
}

type SubmitVoteRequest struct {
	OptionID string `json:"option_id"`
}

// Response types

type CreatePollResponse struct {
	PollID    string   `json:"poll_id"`
	OptionIDs []string `json:"option_ids"`
}

type ResetVotesResponse struct {
	Deleted int `json:"deleted"`
}

type IdentityResponse struct {
	VoterToken string `json:"voter_token"`
}

// ViewState is the session view-state as served to UI clients
type ViewState struct {
	Poll          *Poll          `json:"poll"`
	Options       []Option       `json:"options"`
	Counts        VoteCounts     `json:"counts"`
	Percentages   map[string]int `json:"percentages"`
	Total         int            `json:"total"`
	UserVote      *string        `json:"user_vote"`
	Status        string         `json:"status"`
	Error         string         `json:"error,omitempty"`
	Loading       bool           `json:"loading"`
	CountsLoading bool           `json:"counts_loading"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
