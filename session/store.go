// Package session stores per-user onboarding progress. Each user+campaign
// pair has an independent, single-writer session; the stores here are safe
// for concurrent use across sessions, and the single-writer guarantee per
// session is the caller's contract.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/virionlabs/onboardflow/flow"
)

// ErrNotFound is returned when no live session exists for a key.
var ErrNotFound = errors.New("session not found")

// Key identifies a session. A proper struct key, not a concatenated string.
type Key struct {
	CampaignID string `json:"campaign_id"`
	UserID     string `json:"user_id"`
}

// State is a session's accumulated progress.
type State struct {
	CampaignID  string         `json:"campaign_id"`
	UserID      string         `json:"user_id"`
	CurrentStep int            `json:"current_step"`
	Responses   flow.Responses `json:"responses"`

	// Complete is set once the flow has no further step.
	Complete bool `json:"complete"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Store manages bounded-lifetime session state.
type Store interface {
	Get(ctx context.Context, key Key) (*State, error)
	Put(ctx context.Context, state *State) error
	Delete(ctx context.Context, key Key) error
}

// InMemoryStore implements Store with TTL eviction: lazily on access plus
// a background janitor so abandoned sessions don't accumulate.
type InMemoryStore struct {
	ttl     time.Duration
	mu      sync.RWMutex
	entries map[Key]*entry
	done    chan struct{}
	once    sync.Once
}

type entry struct {
	state     State
	expiresAt time.Time
}

// NewInMemoryStore creates an in-memory session store. ttl must be
// positive; the janitor sweeps at ttl/2.
func NewInMemoryStore(ttl time.Duration) *InMemoryStore {
	s := &InMemoryStore{
		ttl:     ttl,
		entries: make(map[Key]*entry),
		done:    make(chan struct{}),
	}
	go s.janitor()
	return s
}

// Get returns a live session, or ErrNotFound if absent or expired.
func (s *InMemoryStore) Get(ctx context.Context, key Key) (*State, error) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok || time.Now().After(e.expiresAt) {
		return nil, ErrNotFound
	}

	state := e.state
	state.Responses = state.Responses.Clone()
	return &state, nil
}

// Put stores a session and refreshes its TTL.
func (s *InMemoryStore) Put(ctx context.Context, state *State) error {
	key := Key{CampaignID: state.CampaignID, UserID: state.UserID}

	stored := *state
	stored.Responses = state.Responses.Clone()
	stored.UpdatedAt = time.Now()

	s.mu.Lock()
	s.entries[key] = &entry{state: stored, expiresAt: time.Now().Add(s.ttl)}
	s.mu.Unlock()
	return nil
}

// Delete removes a session.
func (s *InMemoryStore) Delete(ctx context.Context, key Key) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// Close stops the janitor goroutine.
func (s *InMemoryStore) Close() {
	s.once.Do(func() { close(s.done) })
}

func (s *InMemoryStore) janitor() {
	interval := s.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case now := <-ticker.C:
			s.mu.Lock()
			for key, e := range s.entries {
				if now.After(e.expiresAt) {
					delete(s.entries, key)
				}
			}
			s.mu.Unlock()
		}
	}
}
