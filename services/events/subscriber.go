package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rabbitmq/amqp091-go"

	"github.com/customeros/waitlist/dto"
	"github.com/customeros/waitlist/interfaces"
	"github.com/customeros/waitlist/internal/logger"
	"github.com/customeros/waitlist/internal/tracing"
	"github.com/customeros/waitlist/internal/utils"
)

const (
	consumeRetryDelay = 5 * time.Second
	DefaultPrefetch   = 10
)

type SubscriberConfig struct {
	// Prefetch caps unacknowledged deliveries per consumer. Zero means no limit.
	Prefetch            int
	MaxRetries          int
	ReconnectBackoff    time.Duration
	MaxReconnectBackoff time.Duration
}

type RabbitMQSubscriber struct {
	connection      *amqp091.Connection
	connectionMutex sync.Mutex
	url             string
	logger          logger.Logger
	config          SubscriberConfig
	listeners       map[string]interfaces.EventListener
	listenerMutex   sync.RWMutex
	done            chan struct{}
	closeOnce       sync.Once
}

func NewRabbitMQSubscriber(rabbitmqURL string, logger logger.Logger, config *SubscriberConfig) (*RabbitMQSubscriber, error) {
	if config == nil {
		config = &SubscriberConfig{
			Prefetch:            DefaultPrefetch,
			MaxRetries:          5,
			ReconnectBackoff:    time.Second,
			MaxReconnectBackoff: time.Second * 30,
		}
	}

	subscriber := newSubscriber(rabbitmqURL, logger, *config)

	err := subscriber.connect()
	if err != nil {
		return nil, err
	}

	return subscriber, nil
}

func newSubscriber(rabbitmqURL string, logger logger.Logger, config SubscriberConfig) *RabbitMQSubscriber {
	return &RabbitMQSubscriber{
		url:       rabbitmqURL,
		logger:    logger,
		config:    config,
		listeners: make(map[string]interfaces.EventListener),
		done:      make(chan struct{}),
	}
}

func (r *RabbitMQSubscriber) RegisterListener(listener interfaces.EventListener) {
	r.listenerMutex.Lock()
	defer r.listenerMutex.Unlock()

	eventType := listener.GetEventType()
	r.listeners[eventType] = listener
	r.logger.Infof("Registered listener for event type: %s on queue: %s",
		eventType, listener.GetQueueName())
}

// ListenQueue consumes queueName in the background until Close, reopening the channel
// whenever the connection drops.
func (r *RabbitMQSubscriber) ListenQueue(queueName string) error {
	go func() {
		defer tracing.RecoverAndLogToJaeger(r.logger)
		for r.consume(queueName) {
		}
	}()

	return nil
}

// consume drains one channel until it closes. It returns false once the subscriber is closed.
func (r *RabbitMQSubscriber) consume(queueName string) bool {
	select {
	case <-r.done:
		return false
	default:
	}

	r.connectionMutex.Lock()
	connection := r.connection
	r.connectionMutex.Unlock()

	if connection == nil || connection.IsClosed() {
		return r.wait(consumeRetryDelay)
	}

	channel, err := connection.Channel()
	if err != nil {
		r.logger.Errorf("Failed to open channel for queue %s: %v. Retrying...", queueName, err)
		return r.wait(consumeRetryDelay)
	}
	defer channel.Close()

	if err := channel.Qos(r.config.Prefetch, 0, false); err != nil {
		r.logger.Errorf("Failed to set prefetch on queue %s: %v. Retrying...", queueName, err)
		return r.wait(consumeRetryDelay)
	}

	msgs, err := channel.Consume(
		queueName, // queue
		"",        // consumer tag
		false,     // auto-ack
		false,     // exclusive
		false,     // no-local
		false,     // no-wait
		nil,       // args
	)
	if err != nil {
		r.logger.Errorf("Failed to register consumer on queue %s: %v. Retrying...", queueName, err)
		return r.wait(consumeRetryDelay)
	}

	r.logger.Infof("Listening for messages on queue %s", queueName)

	for {
		select {
		case <-r.done:
			return false
		case d, ok := <-msgs:
			if !ok {
				r.logger.Warnf("Connection lost for queue %s. Reconnecting...", queueName)
				return r.wait(consumeRetryDelay)
			}
			r.handleMessage(d, queueName)
		}
	}
}

func (r *RabbitMQSubscriber) wait(d time.Duration) bool {
	select {
	case <-r.done:
		return false
	case <-time.After(d):
		return true
	}
}

func (r *RabbitMQSubscriber) handleMessage(d amqp091.Delivery, queueName string) {
	defer tracing.RecoverAndLogToJaeger(r.logger)

	err := r.processMessage(d.Body, queueName)
	if err != nil {
		r.logger.Errorf("Failed to process message on queue %s: %v", queueName, err)
		r.retryAckNack(d, false)
	} else {
		r.retryAckNack(d, true)
	}
}

func (r *RabbitMQSubscriber) processMessage(body []byte, queueName string) error {
	ctx := context.Background()

	var event dto.Event
	if err := json.Unmarshal(body, &event); err != nil {
		return errors.Wrap(err, "failed to unmarshal message")
	}

	ctx = utils.WithCustomContext(ctx, &utils.CustomContext{
		AppSource: utils.AppSourceWorker,
		ClientIP:  event.Metadata.ClientIP,
	})

	ctx, span := tracing.StartMessageSpan(ctx, "RabbitMQSubscriber.ProcessMessage", event.Metadata.UberTraceId)
	defer span.Finish()
	span.LogKV("event_type", event.Event.EventType)
	span.LogKV("queue_name", queueName)

	r.listenerMutex.RLock()
	listener, exists := r.listeners[event.Event.EventType]
	r.listenerMutex.RUnlock()

	if !exists {
		r.logger.Infof("No listener found for event type: %s on queue: %s", event.Event.EventType, queueName)
		return nil
	}

	if listener.GetQueueName() != queueName {
		r.logger.Warnf("Event type %s received on wrong queue. Expected %s, got %s",
			event.Event.EventType, listener.GetQueueName(), queueName)
		return nil
	}

	err := listener.Handle(ctx, event)
	if err != nil {
		tracing.TraceErr(span, err)
	}
	return err
}

func (r *RabbitMQSubscriber) connect() error {
	r.connectionMutex.Lock()
	defer r.connectionMutex.Unlock()

	connection, err := amqp091.Dial(r.url)
	if err != nil {
		return errors.Wrap(err, "Failed to connect to RabbitMQ")
	}
	r.connection = connection

	go r.handleReconnection(connection)

	return nil
}

func (r *RabbitMQSubscriber) handleReconnection(connection *amqp091.Connection) {
	notifyClose := connection.NotifyClose(make(chan *amqp091.Error, 1))
	if _, ok := <-notifyClose; !ok {
		return
	}

	backoff := r.config.ReconnectBackoff
	for {
		select {
		case <-r.done:
			return
		default:
		}

		r.logger.Warn("RabbitMQ connection closed, attempting to reconnect")
		if err := r.connect(); err == nil {
			return
		}
		if !r.wait(backoff) {
			return
		}
		backoff *= 2
		if backoff > r.config.MaxReconnectBackoff {
			backoff = r.config.MaxReconnectBackoff
		}
	}
}

func (r *RabbitMQSubscriber) retryAckNack(d amqp091.Delivery, ack bool) {
	maxRetries := r.config.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 5
	}
	retryDelay := 100 * time.Millisecond

	for i := 0; i < maxRetries; i++ {
		var err error
		if ack {
			err = d.Ack(false)
		} else {
			err = d.Nack(false, false)
		}

		if err == nil {
			return
		}

		time.Sleep(retryDelay)
	}

	r.logger.Errorf("Failed to %s message after %d attempts",
		map[bool]string{true: "acknowledge", false: "negative acknowledge"}[ack],
		maxRetries)
}

func (r *RabbitMQSubscriber) Close() error {
	r.closeOnce.Do(func() { close(r.done) })

	r.connectionMutex.Lock()
	defer r.connectionMutex.Unlock()

	if r.connection != nil && !r.connection.IsClosed() {
		return r.connection.Close()
	}
	return nil
}
