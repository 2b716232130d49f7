package interfaces

import (
	"context"

	"github.com/customeros/waitlist/internal/enum"
)

// EventPublisher sends waitlist events to the broker. Direct events are commands for a
// single queue; fanout events notify every bound consumer.
type EventPublisher interface {
	PublishDirectEvent(ctx context.Context, entityId string, entityType enum.EntityType, message interface{}) error
	PublishFanoutEvent(ctx context.Context, entityId string, entityType enum.EntityType, message interface{}) error
	Close() error
}

type EventListener interface {
	GetEventType() string
	GetQueueName() string
	Handle(ctx context.Context, event any) error
}

type EventSubscriber interface {
	RegisterListener(listener EventListener)
	ListenQueue(queueName string) error
	Close() error
}
