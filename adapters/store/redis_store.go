package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/0xblckmrq/signatory-role/core"
	"github.com/0xblckmrq/signatory-role/ports"
)

// RedisChallengeStore is a Redis implementation of the ChallengeStore
// interface. Challenges carry a TTL so a crashed process never leaves a
// pending challenge behind forever.
type RedisChallengeStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisChallengeStore creates a new Redis challenge store
func NewRedisChallengeStore(client *redis.Client, ttl time.Duration) ports.ChallengeStore {
	return &RedisChallengeStore{
		client: client,
		prefix: "signatory:challenge:",
		ttl:    ttl,
	}
}

// Issue stores the challenge under the requester key, replacing any prior one
func (s *RedisChallengeStore) Issue(ctx context.Context, challenge *core.Challenge) error {
	payload, err := json.Marshal(challenge)
	if err != nil {
		return fmt.Errorf("failed to encode challenge: %w", err)
	}

	key := s.prefix + challenge.RequesterID
	if err := s.client.Set(ctx, key, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store challenge: %w", err)
	}

	return nil
}

// Get returns the pending challenge or nil when the key is absent
func (s *RedisChallengeStore) Get(ctx context.Context, requesterID string) (*core.Challenge, error) {
	key := s.prefix + requesterID

	payload, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load challenge: %w", err)
	}

	var challenge core.Challenge
	if err := json.Unmarshal(payload, &challenge); err != nil {
		return nil, fmt.Errorf("failed to decode challenge: %w", err)
	}

	return &challenge, nil
}

// Clear removes the pending challenge; deleting an absent key is fine
func (s *RedisChallengeStore) Clear(ctx context.Context, requesterID string) error {
	key := s.prefix + requesterID

	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to clear challenge: %w", err)
	}

	return nil
}

// RedisCooldownTracker is a Redis implementation of the CooldownTracker
// interface. SET NX PX gives the per-key atomic check-and-reserve directly,
// and key expiry bounds the tracker's footprint.
type RedisCooldownTracker struct {
	client *redis.Client
	prefix string
}

// NewRedisCooldownTracker creates a new Redis cooldown tracker
func NewRedisCooldownTracker(client *redis.Client) ports.CooldownTracker {
	return &RedisCooldownTracker{
		client: client,
		prefix: "signatory:cooldown:",
	}
}

// CheckAndReserve reserves the window with SET NX; when the key already
// exists the remaining wait is read from its TTL.
func (t *RedisCooldownTracker) CheckAndReserve(ctx context.Context, requesterID string, now time.Time, window time.Duration) (bool, time.Duration, error) {
	key := t.prefix + requesterID

	set, err := t.client.SetNX(ctx, key, now.UnixMilli(), window).Result()
	if err != nil {
		return false, 0, fmt.Errorf("failed to reserve cooldown: %w", err)
	}
	if set {
		return true, 0, nil
	}

	remaining, err := t.client.PTTL(ctx, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("failed to read cooldown ttl: %w", err)
	}
	if remaining < 0 {
		// Key expired between SETNX and PTTL; the caller retries on its next attempt.
		remaining = 0
	}

	return false, remaining, nil
}

// Remaining reports the wait left on the reservation key, zero if clear
func (t *RedisCooldownTracker) Remaining(ctx context.Context, requesterID string, now time.Time, window time.Duration) (time.Duration, error) {
	key := t.prefix + requesterID

	remaining, err := t.client.PTTL(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read cooldown ttl: %w", err)
	}
	if remaining < 0 {
		return 0, nil
	}

	return remaining, nil
}
