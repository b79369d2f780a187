package ports

import (
	"context"

	"github.com/0xblckmrq/signatory-role/core"
)

// WorkspaceManager creates and destroys the ephemeral private channel a
// verification exchange happens in. Visibility of an opened workspace is
// restricted to the requester and the service identity.
type WorkspaceManager interface {
	Open(ctx context.Context, requesterID, displayName string) (*core.Workspace, error)

	// Close tears the workspace down; closing an already-deleted workspace
	// must succeed silently.
	Close(ctx context.Context, workspace *core.Workspace) error

	// Post sends a message into the workspace
	Post(ctx context.Context, workspace *core.Workspace, text string) error
}

// RoleGrantor applies the terminal privilege to a requester's identity
type RoleGrantor interface {
	// Grant assigns the verified role; granting an already-held role is a
	// no-op success. Returns core.ErrRoleNotConfigured when the role is
	// missing from the community.
	Grant(ctx context.Context, requesterID string) error

	// Has reports whether the requester already holds the verified role
	Has(ctx context.Context, requesterID string) (bool, error)
}

// TokenGate optionally checks on-chain token possession for a wallet
type TokenGate interface {
	Holds(ctx context.Context, wallet string) (bool, error)
}
