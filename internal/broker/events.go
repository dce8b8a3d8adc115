package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"storefront-service/internal/models"

	"github.com/segmentio/kafka-go"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishOrderSubmitted publishes an OrderSubmitted event
func (ep *EventPublisher) PublishOrderSubmitted(ctx context.Context, event *models.OrderSubmittedEvent) error {
	key := fmt.Sprintf("shop-%s", event.ShopID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishOrderRelayed publishes an OrderRelayed event
func (ep *EventPublisher) PublishOrderRelayed(ctx context.Context, event *models.OrderRelayedEvent) error {
	key := fmt.Sprintf("shop-%s", event.ShopID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishSessionCreated publishes a SessionCreated event
func (ep *EventPublisher) PublishSessionCreated(ctx context.Context, event *models.SessionCreatedEvent) error {
	return ep.producer.PublishEvent(ctx, event.SessionID, event)
}

// EventHandler routes consumed events to registered callbacks
type EventHandler struct {
	onOrderSubmitted func(context.Context, *models.OrderSubmittedEvent) error
	onSessionCreated func(context.Context, *models.SessionCreatedEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnOrderSubmitted registers a handler for OrderSubmitted events
func (eh *EventHandler) OnOrderSubmitted(handler func(context.Context, *models.OrderSubmittedEvent) error) {
	eh.onOrderSubmitted = handler
}

// OnSessionCreated registers a handler for SessionCreated events
func (eh *EventHandler) OnSessionCreated(handler func(context.Context, *models.SessionCreatedEvent) error) {
	eh.onSessionCreated = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	switch baseEvent.EventType {
	case models.EventTypeOrderSubmitted:
		if eh.onOrderSubmitted != nil {
			var event models.OrderSubmittedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal OrderSubmitted event: %w", err)
			}
			return eh.onOrderSubmitted(ctx, &event)
		}

	case models.EventTypeSessionCreated:
		if eh.onSessionCreated != nil {
			var event models.SessionCreatedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal SessionCreated event: %w", err)
			}
			return eh.onSessionCreated(ctx, &event)
		}

	default:
		log.Printf("Unhandled event type: %s", baseEvent.EventType)
	}

	return nil
}
