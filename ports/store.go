package ports

import (
	"context"
	"time"

	"github.com/0xblckmrq/signatory-role/core"
)

// ChallengeStore keeps at most one pending challenge per requester
type ChallengeStore interface {
	// Issue stores a challenge, replacing any existing one for the requester
	Issue(ctx context.Context, challenge *core.Challenge) error

	// Get returns the pending challenge, or nil when there is none
	Get(ctx context.Context, requesterID string) (*core.Challenge, error)

	// Clear removes the pending challenge; clearing an absent entry is not an error
	Clear(ctx context.Context, requesterID string) error
}

// CooldownTracker rate limits verification attempts per requester
type CooldownTracker interface {
	// CheckAndReserve atomically records now as the latest attempt if the
	// window since the previous one has elapsed. It returns ok=false and the
	// remaining wait when the requester is still inside the window; among
	// concurrent calls for one requester at most one receives ok=true.
	CheckAndReserve(ctx context.Context, requesterID string, now time.Time, window time.Duration) (ok bool, remaining time.Duration, err error)

	// Remaining reports how long the requester must still wait, zero if clear
	Remaining(ctx context.Context, requesterID string, now time.Time, window time.Duration) (time.Duration, error)
}
