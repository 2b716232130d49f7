package events

import (
	"time"

	"github.com/pkg/errors"
	"github.com/rabbitmq/amqp091-go"
)

// TopologyDeclarer is the subset of *amqp091.Channel used to declare the broker topology.
type TopologyDeclarer interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp091.Table) (amqp091.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp091.Table) error
}

type exchangeSpec struct {
	name string
	kind string
}

type queueSpec struct {
	name       string
	dlq        string
	exchange   string
	routingKey string
}

var (
	exchanges = []exchangeSpec{
		{ExchangeDeadLetter, amqp091.ExchangeDirect},
		{ExchangeWaitlist, amqp091.ExchangeFanout},
		{ExchangeWaitlistDirect, amqp091.ExchangeDirect},
	}

	queues = []queueSpec{
		{QueueWaitlist, DLQWaitlist, ExchangeWaitlist, ""},
		{QueueSendConfirmation, DLQSendConfirmation, ExchangeWaitlistDirect, RoutingKeySendConfirmation},
	}
)

// DeclareTopology declares every exchange, then each queue with its dead letter queue.
// All declarations are durable and idempotent.
func DeclareTopology(channel TopologyDeclarer, ttl time.Duration) error {
	for _, exchange := range exchanges {
		if err := channel.ExchangeDeclare(exchange.name, exchange.kind, true, false, false, false, nil); err != nil {
			return errors.Wrapf(err, "Failed to declare %s exchange", exchange.name)
		}
	}

	for _, queue := range queues {
		if _, err := channel.QueueDeclare(queue.dlq, true, false, false, false, nil); err != nil {
			return errors.Wrapf(err, "Failed to declare DLQ %s", queue.dlq)
		}
		if err := channel.QueueBind(queue.dlq, RoutingKeyDeadLetter, ExchangeDeadLetter, false, nil); err != nil {
			return errors.Wrapf(err, "Failed to bind DLQ %s", queue.dlq)
		}

		if _, err := channel.QueueDeclare(queue.name, true, false, false, false, QueueArguments(ttl)); err != nil {
			return errors.Wrapf(err, "Failed to declare queue %s", queue.name)
		}
		if err := channel.QueueBind(queue.name, queue.routingKey, queue.exchange, false, nil); err != nil {
			return errors.Wrapf(err, "Failed to bind queue %s to exchange %s", queue.name, queue.exchange)
		}
	}

	return nil
}

// QueueArguments dead-letters rejected or expired messages.
func QueueArguments(ttl time.Duration) amqp091.Table {
	return amqp091.Table{
		"x-dead-letter-exchange":    ExchangeDeadLetter,
		"x-dead-letter-routing-key": RoutingKeyDeadLetter,
		"x-message-ttl":             ttl.Milliseconds(),
	}
}
