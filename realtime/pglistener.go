// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
)

// Postgres NOTIFY channel names written by the tally_notify trigger
var pgChannels = map[string]Channel{
	"tally_votes":   ChannelVotes,
	"tally_polls":   ChannelPolls,
	"tally_options": ChannelOptions,
}

const (
	minReconnectInterval = 1 * time.Second
	maxReconnectInterval = 30 * time.Second
	pingInterval         = 90 * time.Second
)

// PGListener bridges Postgres LISTEN/NOTIFY into a Hub
type PGListener struct {
	listener *pq.Listener
	hub      *Hub
}

// NewPGListener opens a dedicated listener connection and LISTENs on every tally channel
func NewPGListener(dsn string, hub *Hub) (*PGListener, error) {
	report := func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnectionAttemptFailed:
			slog.Error("listener connection attempt failed", "error", err)
		case pq.ListenerEventDisconnected:
			slog.Warn("listener disconnected", "error", err)
		case pq.ListenerEventReconnected:
			slog.Info("listener reconnected")
		}
	}

	l := pq.NewListener(dsn, minReconnectInterval, maxReconnectInterval, report)
	for name := range pgChannels {
		if err := l.Listen(name); err != nil {
			l.Close()
			return nil, fmt.Errorf("failed to listen on %s: %w", name, err)
		}
	}

	return &PGListener{listener: l, hub: hub}, nil
}

// Run forwards notifications until ctx is done
func (p *PGListener) Run(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case n, ok := <-p.listener.Notify:
			if !ok {
				return
			}
			if n == nil {
				// Sent after a reconnect; anything published meanwhile is lost
				slog.Warn("listener connection re-established, notifications may have been missed")
				continue
			}
			ch, known := pgChannels[n.Channel]
			if !known {
				slog.Warn("notification on unknown channel", "channel", n.Channel)
				continue
			}
			c, err := DecodeChange(ch, []byte(n.Extra))
			if err != nil {
				slog.Error("failed to decode notification", "error", err, "channel", n.Channel)
				continue
			}
			p.hub.Publish(c)

		case <-ticker.C:
			go func() {
				if err := p.listener.Ping(); err != nil {
					slog.Warn("listener ping failed", "error", err)
				}
			}()
		}
	}
}

func (p *PGListener) Close() error {
	return p.listener.Close()
}
