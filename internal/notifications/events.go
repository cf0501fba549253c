// Package notifications turns lifecycle events into customer e-mails and
// broker messages without ever failing the operation that raised them.
package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// ErrDependency marks a failure of an external collaborator such as the mail
// server or the message broker.
var ErrDependency = errors.New("notification dependency failed")

// EventType is also used as the broker routing key.
type EventType string

const (
	EventOrderCreated       EventType = "order.created"
	EventOrderStatusChanged EventType = "order.status_changed"
	EventReturnRequested    EventType = "return.requested"
	EventReturnDecided      EventType = "return.decided"
)

// Recipient is who an event is addressed to.
type Recipient struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

// Event is a single lifecycle occurrence worth telling the customer about.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	Recipient  Recipient `json:"recipient"`
	OrderID    string    `json:"orderId"`
	ProductID  string    `json:"productId,omitempty"`
	ReturnID   string    `json:"returnId,omitempty"`
	Status     string    `json:"status,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	Total      float64   `json:"total,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// NewEvent stamps a new event with a time-ordered ID and the given time.
func NewEvent(eventType EventType, to Recipient, at time.Time) Event {
	return Event{
		ID:         ulid.Make().String(),
		Type:       eventType,
		Recipient:  to,
		OccurredAt: at,
	}
}

// DecodeEvent parses an event received from the broker.
func DecodeEvent(body []byte) (Event, error) {
	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		return Event{}, fmt.Errorf("failed to decode event: %w", err)
	}
	if event.Type == "" {
		return Event{}, fmt.Errorf("event %s has no type", event.ID)
	}
	return event, nil
}

// Notifier accepts events. Implementations must not block the caller on
// delivery and never report delivery failures back to it.
type Notifier interface {
	Notify(ctx context.Context, event Event)
}

// Sink delivers one event somewhere.
type Sink interface {
	Deliver(ctx context.Context, event Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, event Event) error

// Deliver calls f.
func (f SinkFunc) Deliver(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// NopNotifier drops every event.
type NopNotifier struct{}

// Notify does nothing.
func (NopNotifier) Notify(context.Context, Event) {}
