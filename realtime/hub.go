// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package realtime

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

var ErrHubClosed = errors.New("realtime hub closed")

// DefaultBuffer is the per-subscriber queue length
const DefaultBuffer = 256

// Subscription delivers changes for one channel until closed
type Subscription interface {
	Events() <-chan Change
	Close() error
}

// Hub fans changes out to subscribers. Delivery never blocks the
// publisher: a subscriber whose queue is full misses the change.
type Hub struct {
	mu     sync.RWMutex
	subs   map[Channel]map[*hubSubscription]struct{}
	buffer int
	closed bool
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		subs:   make(map[Channel]map[*hubSubscription]struct{}),
		buffer: buffer,
	}
}

// Subscribe registers a new subscriber on ch
func (h *Hub) Subscribe(ctx context.Context, ch Channel) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrHubClosed
	}

	sub := &hubSubscription{
		hub:     h,
		channel: ch,
		events:  make(chan Change, h.buffer),
	}
	if h.subs[ch] == nil {
		h.subs[ch] = make(map[*hubSubscription]struct{})
	}
	h.subs[ch][sub] = struct{}{}
	return sub, nil
}

// Publish delivers c to every subscriber of c.Channel
func (h *Hub) Publish(c Change) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}

	for sub := range h.subs[c.Channel] {
		select {
		case sub.events <- c:
		default:
			slog.Warn("subscriber queue full, change dropped",
				"channel", c.Channel, "table", c.Table, "type", c.Type)
		}
	}
}

// Subscribers returns the number of live subscriptions on ch
func (h *Hub) Subscribers(ch Channel) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[ch])
}

// Close ends every subscription
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for _, set := range h.subs {
		for sub := range set {
			close(sub.events)
		}
	}
	h.subs = nil
}

type hubSubscription struct {
	hub     *Hub
	channel Channel
	events  chan Change
	once    sync.Once
}

func (s *hubSubscription) Events() <-chan Change {
	return s.events
}

// Close is safe to call more than once
func (s *hubSubscription) Close() error {
	s.once.Do(func() {
		h := s.hub
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.closed {
			// Hub.Close already closed the queue
			return
		}
		delete(h.subs[s.channel], s)
		close(s.events)
	})
	return nil
}
