package core

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotInAllowlist is returned when no allow-list entry matches the wallet
	ErrNotInAllowlist = errors.New("wallet is not on the allow-list")

	// ErrCovenantNotSigned is returned when the matched entry has not signed the covenant
	ErrCovenantNotSigned = errors.New("wallet has not signed the covenant")

	// ErrHumanityNotVerified is returned when the matched entry has no humanity verification
	ErrHumanityNotVerified = errors.New("wallet humanity is not verified")

	// ErrAllowlistUnavailable is returned when the allow-list provider cannot be reached
	ErrAllowlistUnavailable = errors.New("allow-list is unavailable")

	// ErrNoActiveChallenge is returned when a signature arrives with no pending challenge
	ErrNoActiveChallenge = errors.New("no active challenge")

	// ErrInvalidSignature is returned when a signature cannot be decoded or recovered
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrWalletMismatch is returned when a valid signature recovers to the wrong wallet
	ErrWalletMismatch = errors.New("signature does not match the expected wallet")

	// ErrRoleNotConfigured is returned when the verified role does not exist in the community
	ErrRoleNotConfigured = errors.New("verified role is not configured")

	// ErrWorkspaceCreateFailed is returned when the private channel cannot be created
	ErrWorkspaceCreateFailed = errors.New("failed to create verification workspace")

	// ErrTokenNotHeld is returned when the on-chain token gate rejects the wallet
	ErrTokenNotHeld = errors.New("wallet does not hold the required token")
)

// BlockedError is returned when a requester retries inside the cooldown window.
type BlockedError struct {
	Remaining time.Duration
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("verification blocked for another %s", e.Remaining.Round(time.Second))
}

// AsBlocked unwraps err into a BlockedError if it carries one.
func AsBlocked(err error) (*BlockedError, bool) {
	var blocked *BlockedError
	if errors.As(err, &blocked) {
		return blocked, true
	}
	return nil, false
}
