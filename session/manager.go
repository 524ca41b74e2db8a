// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var ErrManagerClosed = errors.New("session manager closed")

// Manager keeps one session per voter identity. The empty identity is the
// shared anonymous viewer.
//
// Sessions hold live subscriptions, so a Manager reclaims them: with
// Options.IdleTimeout set, a background sweep closes sessions that have
// not been fetched recently, and Options.MaxSessions bounds the total.
type Manager struct {
	factory func(identity string) Backend
	opts    Options
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*managed
	closed   bool
	stop     chan struct{}
}

type managed struct {
	session  *Session
	lastUsed time.Time
}

func NewManager(factory func(identity string) Backend, opts Options) *Manager {
	return newManager(factory, opts, time.Now)
}

func newManager(factory func(identity string) Backend, opts Options, now func() time.Time) *Manager {
	m := &Manager{
		factory:  factory,
		opts:     opts,
		now:      now,
		sessions: make(map[string]*managed),
		stop:     make(chan struct{}),
	}
	if opts.IdleTimeout > 0 {
		go m.sweepLoop(opts.IdleTimeout / 2)
	}
	return m
}

// Get returns the identity's session, opening it on first use
func (m *Manager) Get(ctx context.Context, identity string) (*Session, error) {
	m.mu.Lock()

	if m.closed {
		m.mu.Unlock()
		return nil, ErrManagerClosed
	}
	now := m.now()
	if e, ok := m.sessions[identity]; ok {
		e.lastUsed = now
		m.mu.Unlock()
		return e.session, nil
	}

	s, err := Open(ctx, m.factory(identity), m.opts)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}

	var evicted *Session
	if m.opts.MaxSessions > 0 && len(m.sessions) >= m.opts.MaxSessions {
		evicted = m.evictOldestLocked()
	}
	m.sessions[identity] = &managed{session: s, lastUsed: now}
	count := len(m.sessions)
	m.mu.Unlock()

	if evicted != nil {
		evicted.Close()
	}
	slog.Info("session opened", "sessions", count, "anonymous", identity == "")
	return s, nil
}

// evictOldestLocked forgets the least recently used session and returns it
// for the caller to close once the lock is released
func (m *Manager) evictOldestLocked() *Session {
	var (
		oldestID string
		oldest   *managed
	)
	for id, e := range m.sessions {
		if oldest == nil || e.lastUsed.Before(oldest.lastUsed) {
			oldestID, oldest = id, e
		}
	}
	if oldest == nil {
		return nil
	}
	delete(m.sessions, oldestID)
	slog.Info("session evicted", "max_sessions", m.opts.MaxSessions, "idle", m.now().Sub(oldest.lastUsed))
	return oldest.session
}

// Drop closes and forgets the identity's session. It reports whether one
// existed.
func (m *Manager) Drop(identity string) bool {
	m.mu.Lock()
	e, ok := m.sessions[identity]
	delete(m.sessions, identity)
	m.mu.Unlock()

	if !ok {
		return false
	}
	e.session.Close()
	return true
}

// Sweep closes every session idle for at least the idle timeout as of now,
// and returns how many it closed
func (m *Manager) Sweep(now time.Time) int {
	if m.opts.IdleTimeout <= 0 {
		return 0
	}

	m.mu.Lock()
	var idle []*Session
	for id, e := range m.sessions {
		if now.Sub(e.lastUsed) >= m.opts.IdleTimeout {
			idle = append(idle, e.session)
			delete(m.sessions, id)
		}
	}
	remaining := len(m.sessions)
	m.mu.Unlock()

	for _, s := range idle {
		s.Close()
	}
	if len(idle) > 0 {
		slog.Info("idle sessions closed", "closed", len(idle), "sessions", remaining)
	}
	return len(idle)
}

func (m *Manager) sweepLoop(interval time.Duration) {
	if interval <= 0 {
		interval = time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Sweep(m.now())
		case <-m.stop:
			return
		}
	}
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close tears down every session; later Gets fail with ErrManagerClosed
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	sessions := m.sessions
	m.sessions = make(map[string]*managed)
	m.closed = true
	close(m.stop)
	m.mu.Unlock()

	for _, e := range sessions {
		e.session.Close()
	}
	slog.Info("session manager closed", "sessions", len(sessions))
}
