package ports

import "context"

// EventPublisher publishes verification outcomes to interested consumers
type EventPublisher interface {
	PublishGranted(ctx context.Context, requesterID, wallet string) error
}
