// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package realtime carries row-level change notifications from the store to
live sessions.

# Channels

Three streams, each delivering Change values:

	ChannelVotes   vote INSERT / DELETE
	ChannelPolls   poll INSERT / UPDATE
	ChannelOptions option INSERT / UPDATE / DELETE

A Change holds the table, the operation, and the new and/or old row as raw
JSON. Decode the side you need with DecodeNew / DecodeOld into VoteRecord,
PollRecord or OptionRecord.

# Hub

Hub fans changes out to any number of subscribers:

	hub := realtime.NewHub(realtime.DefaultBuffer)
	sub, err := hub.Subscribe(ctx, realtime.ChannelVotes)
	defer sub.Close()
	for c := range sub.Events() { ... }

Publish never blocks. A subscriber with a full queue misses the change and a
warning is logged; consumers must tolerate drops and duplicates.

# Postgres

PGListener LISTENs on tally_votes, tally_polls and tally_options (fed by the
tally_notify trigger in package db) and republishes into a Hub:

	l, err := realtime.NewPGListener(dsn, hub)
	go l.Run(ctx)
	defer l.Close()
*/
package realtime
