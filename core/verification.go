package core

import (
	"fmt"
	"strings"
	"time"
)

// Allow-list status values a wallet must carry to be eligible.
const (
	CovenantSigned   = "SIGNED"
	HumanityVerified = "VERIFIED"
)

// AllowlistEntry is one record of the externally maintained allow-list,
// an immutable snapshot taken at fetch time.
type AllowlistEntry struct {
	WalletAddress  string `json:"walletAddress"`
	CovenantStatus string `json:"covenantStatus"`
	HumanityStatus string `json:"humanityStatus"`
}

// Eligible reports whether the entry satisfies both status gates.
func (e AllowlistEntry) Eligible() bool {
	return strings.EqualFold(e.CovenantStatus, CovenantSigned) &&
		strings.EqualFold(e.HumanityStatus, HumanityVerified)
}

// Challenge represents one pending proof obligation. At most one exists
// per requester at any time; issuing a new one replaces the prior.
type Challenge struct {
	RequesterID    string    // Opaque identity of the requester
	Message        string    // Text the requester must sign; unique per issue
	ExpectedWallet string    // Lowercase address the signature must recover to
	IssuedAt       time.Time // When the challenge was issued
}

// NewChallenge builds a challenge for the given wallet. The embedded
// millisecond timestamp makes the message act as a nonce.
func NewChallenge(requesterID, wallet string, now time.Time) *Challenge {
	wallet = strings.ToLower(wallet)
	return &Challenge{
		RequesterID:    requesterID,
		Message:        fmt.Sprintf("Verify ownership for %s at %d", wallet, now.UnixMilli()),
		ExpectedWallet: wallet,
		IssuedAt:       now,
	}
}

// Workspace is the ephemeral private channel a verification exchange
// happens in. It shares a lifecycle with its challenge but is owned
// independently: closing one must never depend on the other existing.
type Workspace struct {
	ID          string // Handle assigned by the hosting platform
	RequesterID string
	Name        string
}

// WorkspaceName derives the deterministic channel name for a requester's
// display name, folded to the lowercase-and-dashes form chat platforms accept.
func WorkspaceName(displayName string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(displayName) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '_', r == '-', r == '.':
			b.WriteRune('-')
		}
	}
	name := strings.Trim(b.String(), "-")
	if name == "" {
		name = "member"
	}
	return "verify-" + name
}
