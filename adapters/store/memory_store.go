package store

import (
	"context"
	"sync"
	"time"

	"github.com/0xblckmrq/signatory-role/core"
	"github.com/0xblckmrq/signatory-role/ports"
)

// MemoryChallengeStore is an in-memory implementation of the ChallengeStore interface
type MemoryChallengeStore struct {
	challenges map[string]*core.Challenge
	mu         sync.RWMutex
}

// NewMemoryChallengeStore creates a new in-memory challenge store
func NewMemoryChallengeStore() ports.ChallengeStore {
	return &MemoryChallengeStore{
		challenges: make(map[string]*core.Challenge),
	}
}

// Issue stores a challenge, replacing any prior one for the same requester
func (s *MemoryChallengeStore) Issue(ctx context.Context, challenge *core.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.challenges[challenge.RequesterID] = challenge
	return nil
}

// Get returns the pending challenge or nil
func (s *MemoryChallengeStore) Get(ctx context.Context, requesterID string) (*core.Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	challenge, exists := s.challenges[requesterID]
	if !exists {
		return nil, nil
	}
	return challenge, nil
}

// Clear removes the pending challenge; absent entries are ignored
func (s *MemoryChallengeStore) Clear(ctx context.Context, requesterID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.challenges, requesterID)
	return nil
}

// MemoryCooldownTracker is an in-memory implementation of the CooldownTracker
// interface. Entries are never evicted; they are superseded by later
// reservations, which bounds the map by the community population.
type MemoryCooldownTracker struct {
	lastAttempt map[string]time.Time
	mu          sync.Mutex
}

// NewMemoryCooldownTracker creates a new in-memory cooldown tracker
func NewMemoryCooldownTracker() ports.CooldownTracker {
	return &MemoryCooldownTracker{
		lastAttempt: make(map[string]time.Time),
	}
}

// CheckAndReserve records now as the latest attempt only if the window has
// elapsed. The check and the write happen under one lock so concurrent
// attempts for the same requester cannot both succeed.
func (t *MemoryCooldownTracker) CheckAndReserve(ctx context.Context, requesterID string, now time.Time, window time.Duration) (bool, time.Duration, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if last, exists := t.lastAttempt[requesterID]; exists {
		elapsed := now.Sub(last)
		if elapsed < window {
			return false, window - elapsed, nil
		}
	}

	t.lastAttempt[requesterID] = now
	return true, 0, nil
}

// Remaining reports the wait left inside the current window, zero if clear
func (t *MemoryCooldownTracker) Remaining(ctx context.Context, requesterID string, now time.Time, window time.Duration) (time.Duration, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	last, exists := t.lastAttempt[requesterID]
	if !exists {
		return 0, nil
	}

	if remaining := window - now.Sub(last); remaining > 0 {
		return remaining, nil
	}
	return 0, nil
}
