package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sifan077/paylink/internal/app/model"
	apprepository "github.com/sifan077/paylink/internal/app/repository"
	"go.uber.org/zap"
)

const (
	eventFetchBatch   = 10
	eventFetchMaxWait = 5 * time.Second

	eventFetchRetryDelay = time.Second
)

// EventConsumer drains link events from JetStream into the audit log.
type EventConsumer struct {
	js     nats.JetStreamContext
	logger *zap.Logger
	repo   apprepository.LinkEventRepository
}

// NewEventConsumer creates a new link event consumer.
func NewEventConsumer(js nats.JetStreamContext, logger *zap.Logger, repo apprepository.LinkEventRepository) *EventConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventConsumer{js: js, logger: logger, repo: repo}
}

// Start ensures the stream and durable consumer exist and begins consuming
// until ctx is cancelled.
func (c *EventConsumer) Start(ctx context.Context) error {
	if _, err := c.js.StreamInfo(model.LinkStreamName); err != nil {
		_, err = c.js.AddStream(&nats.StreamConfig{
			Name:     model.LinkStreamName,
			Subjects: []string{model.LinkStreamSubjects},
			MaxBytes: model.LinkStreamMaxBytes,
		})
		if err != nil {
			return fmt.Errorf("failed to create stream: %w", err)
		}
	}

	if _, err := c.js.ConsumerInfo(model.LinkStreamName, model.LinkConsumerName); err != nil {
		_, err = c.js.AddConsumer(model.LinkStreamName, &nats.ConsumerConfig{
			Durable:       model.LinkConsumerName,
			AckPolicy:     nats.AckExplicitPolicy,
			FilterSubject: model.LinkStreamSubjects,
		})
		if err != nil {
			return fmt.Errorf("failed to create consumer: %w", err)
		}
	}

	sub, err := c.js.PullSubscribe(model.LinkStreamSubjects, model.LinkConsumerName, nats.Bind(model.LinkStreamName, model.LinkConsumerName))
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	go c.consume(ctx, sub)
	return nil
}

func (c *EventConsumer) consume(ctx context.Context, sub *nats.Subscription) {
	defer func() {
		if err := sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
			c.logger.Warn("failed to unsubscribe link event consumer", zap.Error(err))
		}
	}()

	for {
		if ctx.Err() != nil {
			c.logger.Info("link event consumer stopped")
			return
		}

		msgs, err := sub.Fetch(eventFetchBatch, nats.MaxWait(eventFetchMaxWait))
		if err != nil && !errors.Is(err, nats.ErrTimeout) {
			if errors.Is(err, nats.ErrConnectionClosed) || errors.Is(err, nats.ErrBadSubscription) {
				c.logger.Warn("link event consumer lost its subscription", zap.Error(err))
				return
			}
			c.logger.Error("failed to fetch messages", zap.Error(err))
			if !sleepCtx(ctx, eventFetchRetryDelay) {
				c.logger.Info("link event consumer stopped")
				return
			}
			continue
		}

		for _, msg := range msgs {
			if err := c.handle(ctx, msg.Data); err != nil {
				if errors.Is(err, errPoisonEvent) {
					// Redelivery cannot fix a payload that does not decode.
					_ = msg.Term()
					continue
				}
				_ = msg.Nak()
				continue
			}
			_ = msg.Ack()
		}
	}
}

var errPoisonEvent = errors.New("undecodable link event")

func (c *EventConsumer) handle(ctx context.Context, data []byte) error {
	var event model.LinkEvent
	if err := json.Unmarshal(data, &event); err != nil {
		c.logger.Error("failed to unmarshal link event", zap.Error(err))
		return errPoisonEvent
	}
	if event.ID == "" || event.Type == "" {
		c.logger.Error("link event without id or type", zap.String("type", event.Type))
		return errPoisonEvent
	}

	if err := c.repo.Create(ctx, &event); err != nil {
		c.logger.Error("failed to store link event",
			zap.String("id", event.ID),
			zap.String("type", event.Type),
			zap.String("link_id", event.LinkID),
			zap.Error(err))
		return err
	}

	c.logger.Debug("link event stored",
		zap.String("id", event.ID),
		zap.String("type", event.Type),
		zap.String("link_id", event.LinkID),
		zap.Time("occurred_at", event.OccurredAt),
	)
	return nil
}

// sleepCtx waits for d and reports false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
