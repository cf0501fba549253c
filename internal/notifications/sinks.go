package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Publisher is the broker side of BrokerSink.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
}

// BrokerSink publishes events as JSON using the event type as routing key.
type BrokerSink struct {
	publisher Publisher
}

// NewBrokerSink creates a sink backed by publisher.
func NewBrokerSink(publisher Publisher) *BrokerSink {
	return &BrokerSink{publisher: publisher}
}

// Deliver publishes the event.
func (s *BrokerSink) Deliver(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", event.ID, err)
	}
	if err := s.publisher.Publish(ctx, string(event.Type), body); err != nil {
		return fmt.Errorf("%w: publish %s: %v", ErrDependency, event.Type, err)
	}
	return nil
}

// MailSink renders events into e-mails and hands them to a Mailer.
type MailSink struct {
	mailer   Mailer
	renderer *Renderer
}

// NewMailSink creates a sink that e-mails the event recipient.
func NewMailSink(mailer Mailer, renderer *Renderer) *MailSink {
	return &MailSink{mailer: mailer, renderer: renderer}
}

// Deliver renders and sends the e-mail for event.
func (s *MailSink) Deliver(ctx context.Context, event Event) error {
	if event.Recipient.Email == "" {
		return fmt.Errorf("%w: event %s has no recipient e-mail", ErrDependency, event.ID)
	}
	msg, err := s.renderer.Render(event)
	if err != nil {
		return err
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("%w: send %s to %s: %v", ErrDependency, event.Type, msg.To, err)
	}
	log.Info().Str("to", msg.To).Str("subject", msg.Subject).Msg("Notification e-mail sent")
	return nil
}
