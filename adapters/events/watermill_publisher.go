package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/0xblckmrq/signatory-role/ports"
)

// GrantedEvent represents a completed verification
type GrantedEvent struct {
	RequesterID string `json:"requester_id"`
	Wallet      string `json:"wallet"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
	topic     string
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{
		publisher: publisher,
		topic:     "verification.granted",
	}
}

// PublishGranted publishes a granted event
func (p *WatermillPublisher) PublishGranted(ctx context.Context, requesterID, wallet string) error {
	event := GrantedEvent{
		RequesterID: requesterID,
		Wallet:      wallet,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(uuid.New().String(), payload)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// NoopPublisher discards events; used when no broker is configured
type NoopPublisher struct{}

// NewNoopPublisher creates a publisher that drops every event
func NewNoopPublisher() ports.EventPublisher {
	return &NoopPublisher{}
}

// PublishGranted discards the event
func (p *NoopPublisher) PublishGranted(ctx context.Context, requesterID, wallet string) error {
	return nil
}
