package ports

import (
	"context"

	"github.com/0xblckmrq/signatory-role/core"
)

// AllowlistClient fetches the remote allow-list. Results are never cached;
// each verification attempt sees a fresh snapshot.
type AllowlistClient interface {
	Fetch(ctx context.Context) ([]core.AllowlistEntry, error)
}
