package handler

import (
	"github.com/sifan077/paylink/internal/app/model"
	"go.uber.org/zap"
)

// EventPublisher emits link lifecycle events. Publishing is best effort and
// never affects the HTTP response.
type EventPublisher interface {
	Publish(event model.LinkEvent) error
}

type eventEmitter struct {
	publisher EventPublisher
	logger    *zap.Logger
}

// emit publishes in the background. The event must already be detached from
// the request, since fiber recycles its context after the handler returns.
func (e eventEmitter) emit(event model.LinkEvent) {
	if e.publisher == nil {
		return
	}
	go func() {
		if err := e.publisher.Publish(event); err != nil {
			e.logger.Warn("failed to publish link event",
				zap.String("type", event.Type),
				zap.String("link_id", event.LinkID),
				zap.Error(err),
			)
		}
	}()
}
