package events

import (
	"context"
	"encoding/json"
	"reflect"
	"sync"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	"github.com/rabbitmq/amqp091-go"

	"github.com/customeros/waitlist/dto"
	"github.com/customeros/waitlist/internal/enum"
	"github.com/customeros/waitlist/internal/logger"
	"github.com/customeros/waitlist/internal/tracing"
	"github.com/customeros/waitlist/internal/utils"
)

const (
	// Exchange names
	ExchangeWaitlistDirect = "waitlist-direct"
	ExchangeWaitlist       = "waitlist"
	ExchangeDeadLetter     = "dead-letter"

	// queues
	QueueWaitlist         = "events-waitlist"
	QueueSendConfirmation = "send-confirmation"
	DLQWaitlist           = QueueWaitlist + "-dlq"
	DLQSendConfirmation   = QueueSendConfirmation + "-dlq"

	// routing keys
	RoutingKeyDeadLetter       = "dead-letter"
	RoutingKeySendConfirmation = "waitlist-send-confirmation"

	// Default configurations
	DefaultMessageTTL          = 240 * time.Hour // after TTL message moves to DLQ
	DefaultMaxRetries          = 3
	DefaultPublishTimeout      = 5 * time.Second
	DefaultReconnectBackoff    = time.Second
	DefaultMaxReconnectBackoff = 30 * time.Second
)

// directRoutes maps event types published on the direct exchange to their routing key.
var directRoutes = map[string]string{
	GetEventType[dto.SendConfirmation](): RoutingKeySendConfirmation,
}

type PublisherConfig struct {
	MessageTTL          time.Duration
	MaxRetries          int
	PublishTimeout      time.Duration
	ReconnectBackoff    time.Duration
	MaxReconnectBackoff time.Duration
}

func DefaultPublisherConfig() *PublisherConfig {
	return &PublisherConfig{
		MessageTTL:          DefaultMessageTTL,
		MaxRetries:          DefaultMaxRetries,
		PublishTimeout:      DefaultPublishTimeout,
		ReconnectBackoff:    DefaultReconnectBackoff,
		MaxReconnectBackoff: DefaultMaxReconnectBackoff,
	}
}

type RabbitMQPublisher struct {
	connection      *amqp091.Connection
	connectionMutex sync.Mutex
	publishChannel  *amqp091.Channel
	publishMutex    sync.Mutex
	url             string
	logger          logger.Logger
	confirms        chan amqp091.Confirmation
	config          PublisherConfig
	closed          bool
}

func NewRabbitMQPublisher(rabbitmqURL string, logger logger.Logger, config *PublisherConfig) (*RabbitMQPublisher, error) {
	if config == nil {
		config = DefaultPublisherConfig()
	}

	publisher := &RabbitMQPublisher{
		url:    rabbitmqURL,
		logger: logger,
		config: *config,
	}

	err := publisher.connect()
	if err != nil {
		return nil, err
	}

	return publisher, nil
}

// PublishDirectEvent routes a point-to-point command to the queue bound for its type.
func (r *RabbitMQPublisher) PublishDirectEvent(ctx context.Context, entityId string, entityType enum.EntityType, message interface{}) error {
	routingKey, err := RoutingKeyFor(message)
	if err != nil {
		return err
	}
	return r.publishEventOnExchange(ctx, entityId, entityType, message, ExchangeWaitlistDirect, routingKey)
}

// PublishFanoutEvent broadcasts a domain event to every queue bound on the waitlist exchange.
func (r *RabbitMQPublisher) PublishFanoutEvent(ctx context.Context, entityId string, entityType enum.EntityType, message interface{}) error {
	return r.publishEventOnExchange(ctx, entityId, entityType, message, ExchangeWaitlist, "")
}

func RoutingKeyFor(message interface{}) (string, error) {
	eventType := eventTypeOf(message)
	routingKey, ok := directRoutes[eventType]
	if !ok {
		return "", errors.Errorf("no direct route for event type %s", eventType)
	}
	return routingKey, nil
}

func eventTypeOf(message interface{}) string {
	messageType := reflect.TypeOf(message)
	if messageType == nil {
		return ""
	}
	if messageType.Kind() == reflect.Ptr {
		messageType = messageType.Elem()
	}
	return messageType.Name()
}

// NewEvent wraps a payload in the envelope consumers expect.
func NewEvent(ctx context.Context, entityId string, entityType enum.EntityType, message interface{}, uberTraceId string) dto.Event {
	return dto.Event{
		Event: dto.EventDetails{
			Id:         utils.GenerateNanoIDWithPrefix("event", 21),
			EntityId:   entityId,
			EntityType: entityType,
			EventType:  eventTypeOf(message),
			Data:       message,
		},
		Metadata: dto.EventMetadata{
			UberTraceId: uberTraceId,
			AppSource:   utils.GetAppSourceFromContext(ctx),
			ClientIP:    utils.GetClientIPFromContext(ctx),
			Timestamp:   utils.Now().Format(time.RFC3339),
		},
	}
}

func (r *RabbitMQPublisher) setupPublishChannel() error {
	channel, err := r.connection.Channel()
	if err != nil {
		return errors.Wrap(err, "Failed to open publish channel")
	}

	// Enable publisher confirms
	err = channel.Confirm(false)
	if err != nil {
		channel.Close()
		return errors.Wrap(err, "Failed to enable publisher confirms")
	}

	r.confirms = channel.NotifyPublish(make(chan amqp091.Confirmation, 1))
	r.publishChannel = channel
	return nil
}

func (r *RabbitMQPublisher) handleReconnection(connection *amqp091.Connection) {
	backoff := r.config.ReconnectBackoff

	notifyClose := connection.NotifyClose(make(chan *amqp091.Error, 1))
	err, ok := <-notifyClose
	if !ok || r.isClosed() {
		return
	}
	r.logger.Warnf("RabbitMQ connection closed: %v, attempting to reconnect", err)

	for !r.isClosed() {
		err := r.connect()
		if err == nil {
			r.logger.Info("Successfully reconnected to RabbitMQ")
			return
		}

		r.logger.Errorf("Failed to reconnect: %v, retrying in %v", err, backoff)
		time.Sleep(backoff)

		backoff *= 2
		if backoff > r.config.MaxReconnectBackoff {
			backoff = r.config.MaxReconnectBackoff
		}
	}
}

func (r *RabbitMQPublisher) isClosed() bool {
	r.connectionMutex.Lock()
	defer r.connectionMutex.Unlock()
	return r.closed
}

func (r *RabbitMQPublisher) declareTopology() error {
	channel, err := r.connection.Channel()
	if err != nil {
		return errors.Wrap(err, "Failed to open channel for topology setup")
	}
	defer channel.Close()

	return DeclareTopology(channel, r.config.MessageTTL)
}

func (r *RabbitMQPublisher) connect() error {
	r.connectionMutex.Lock()
	defer r.connectionMutex.Unlock()

	connection, err := amqp091.Dial(r.url)
	if err != nil {
		return errors.Wrap(err, "Failed to connect to RabbitMQ")
	}
	r.connection = connection

	if err := r.declareTopology(); err != nil {
		return err
	}

	err = r.setupPublishChannel()
	if err != nil {
		return errors.Wrap(err, "Failed to setup publish channel")
	}

	go r.handleReconnection(connection)

	return nil
}

func (r *RabbitMQPublisher) ensureConnectionAndChannel() error {
	if r.connection == nil || r.connection.IsClosed() {
		if err := r.connect(); err != nil {
			return errors.Wrap(err, "Failed to establish connection")
		}
	}

	if r.publishChannel == nil || r.publishChannel.IsClosed() {
		if err := r.setupPublishChannel(); err != nil {
			return errors.Wrap(err, "Failed to establish channel")
		}
	}

	return nil
}

func (r *RabbitMQPublisher) publishEventOnExchange(ctx context.Context, entityId string, entityType enum.EntityType, message interface{}, exchange, routingKey string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "RabbitMQPublisher.PublishEventOnExchange")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagEntity(span, entityId)
	span.SetTag("exchange", exchange)

	eventMessage := NewEvent(ctx, entityId, entityType, message, tracing.UberTraceId(span))

	err := r.publishMessageOnExchange(ctx, eventMessage, exchange, routingKey)
	if err != nil {
		tracing.TraceErr(span, err)
	}
	return err
}

func (r *RabbitMQPublisher) publishMessageOnExchange(ctx context.Context, message interface{}, exchange, routingKey string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "RabbitMQPublisher.PublishMessageOnExchange")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	tracing.LogObjectAsJson(span, "message", message)

	var lastErr error
	for attempt := 0; attempt < r.config.MaxRetries; attempt++ {
		lastErr = r.publishWithConfirm(ctx, message, exchange, routingKey)
		if lastErr == nil {
			return nil
		}

		r.logger.Warnf("Publish attempt %d failed: %v", attempt+1, lastErr)
		if attempt < r.config.MaxRetries-1 {
			select {
			case <-ctx.Done():
				return errors.Wrap(ctx.Err(), "publish abandoned")
			case <-time.After(time.Millisecond * 100 * time.Duration(attempt+1)):
			}
		}
	}

	return errors.Wrap(lastErr, "Failed to publish message after all retries")
}

func (r *RabbitMQPublisher) publishWithConfirm(ctx context.Context, message interface{}, exchange, routingKey string) error {
	r.publishMutex.Lock()
	defer r.publishMutex.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := r.ensureConnectionAndChannel(); err != nil {
		return err
	}

	jsonBody, err := json.Marshal(message)
	if err != nil {
		return errors.Wrap(err, "Failed to marshal message")
	}

	actualRoutingKey := routingKey
	if exchange == ExchangeWaitlist {
		actualRoutingKey = ""
	}

	err = r.publishChannel.PublishWithContext(
		ctx,
		exchange,
		actualRoutingKey,
		true,  // mandatory - ensure message is routed
		false, // immediate
		amqp091.Publishing{
			DeliveryMode: amqp091.Persistent,
			ContentType:  "application/json",
			Body:         jsonBody,
			Timestamp:    time.Now(),
		})
	if err != nil {
		return errors.Wrap(err, "Failed to publish message")
	}

	select {
	case confirm := <-r.confirms:
		if !confirm.Ack {
			return errors.New("Message was not confirmed by server")
		}
	case <-time.After(r.config.PublishTimeout):
		return errors.New("Publish confirmation timeout")
	case <-ctx.Done():
		return ctx.Err()
	}

	return nil
}

// Close gracefully shuts down the publisher
func (r *RabbitMQPublisher) Close() error {
	r.connectionMutex.Lock()
	defer r.connectionMutex.Unlock()
	r.closed = true

	var err error
	if r.publishChannel != nil {
		err = r.publishChannel.Close()
		if err != nil {
			r.logger.Errorf("Error closing publish channel: %v", err)
		}
	}

	if r.connection != nil && !r.connection.IsClosed() {
		if closeErr := r.connection.Close(); closeErr != nil {
			r.logger.Errorf("Error closing connection: %v", closeErr)
			if err == nil {
				err = closeErr
			}
		}
	}

	return err
}
