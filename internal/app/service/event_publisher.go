package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/oklog/ulid/v2"
	"github.com/sifan077/paylink/internal/app/model"
)

// DefaultEventPublishTimeout bounds the wait for a JetStream ack.
const DefaultEventPublishTimeout = 2 * time.Second

// EventPublisher publishes link lifecycle events to NATS JetStream.
type EventPublisher struct {
	js      nats.JetStreamContext
	now     func() time.Time
	timeout time.Duration
}

// NewEventPublisher creates a new link event publisher.
func NewEventPublisher(js nats.JetStreamContext) *EventPublisher {
	return &EventPublisher{js: js, now: time.Now, timeout: DefaultEventPublishTimeout}
}

// Publish stamps the event with a ULID and time when missing and publishes it.
// ULIDs sort by creation time, which keeps audit rows roughly insertion ordered.
func (p *EventPublisher) Publish(event model.LinkEvent) error {
	if event.ID == "" {
		event.ID = ulid.Make().String()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = p.now().UTC()
	}
	if len(event.UserAgent) > model.MaxEventUserAgentLen {
		event.UserAgent = event.UserAgent[:model.MaxEventUserAgentLen]
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	// The event id doubles as the JetStream dedup key.
	_, err = p.js.Publish(event.Subject(), data, nats.MsgId(event.ID), nats.Context(ctx))
	return err
}
