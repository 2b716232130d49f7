package events

import (
	"github.com/pkg/errors"

	"github.com/customeros/waitlist/internal/logger"
)

// EventsService owns the broker connections for the waitlist queues.
type EventsService struct {
	Publisher  *RabbitMQPublisher
	Subscriber *RabbitMQSubscriber
}

func NewEventsService(rabbitmqURL string, log logger.Logger, publisherConfig *PublisherConfig, subscriberConfig *SubscriberConfig) (*EventsService, error) {
	publisher, err := NewRabbitMQPublisher(rabbitmqURL, log, publisherConfig)
	if err != nil {
		return nil, errors.Wrap(err, "publisher")
	}

	subscriber, err := NewRabbitMQSubscriber(rabbitmqURL, log, subscriberConfig)
	if err != nil {
		_ = publisher.Close()
		return nil, errors.Wrap(err, "subscriber")
	}

	return &EventsService{Publisher: publisher, Subscriber: subscriber}, nil
}

// Close stops consuming before the publisher goes away. The first failure is returned.
func (s *EventsService) Close() error {
	var first error
	if s.Subscriber != nil {
		if err := s.Subscriber.Close(); err != nil {
			first = errors.Wrap(err, "closing subscriber")
		}
	}
	if s.Publisher != nil {
		if err := s.Publisher.Close(); err != nil && first == nil {
			first = errors.Wrap(err, "closing publisher")
		}
	}
	return first
}
