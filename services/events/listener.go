package events

import (
	"context"
	"encoding/json"
	"reflect"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/customeros/waitlist/dto"
	"github.com/customeros/waitlist/internal/logger"
	"github.com/customeros/waitlist/internal/tracing"
)

// BaseEventListener carries the event type and queue a listener is bound to.
type BaseEventListener struct {
	logger    logger.Logger
	eventType string
	queueName string
}

func NewBaseEventListener(logger logger.Logger, eventType, queueName string) BaseEventListener {
	return BaseEventListener{
		logger:    logger,
		eventType: eventType,
		queueName: queueName,
	}
}

func (b BaseEventListener) GetEventType() string {
	return b.eventType
}

func (b BaseEventListener) GetQueueName() string {
	return b.queueName
}

func (b BaseEventListener) Logger() logger.Logger {
	return b.logger
}

// ValidateBaseEvent checks the envelope of a delivered event and that it is the type
// this listener subscribed to.
func (b BaseEventListener) ValidateBaseEvent(ctx context.Context, input any) (*dto.Event, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Events.ValidateEvent")
	defer span.Finish()
	tracing.SetDefaultListenerSpanTags(ctx, span)

	var message dto.Event
	switch event := input.(type) {
	case dto.Event:
		message = event
	case *dto.Event:
		if event == nil {
			err := errors.New("event is nil")
			tracing.TraceErr(span, err)
			return nil, err
		}
		message = *event
	default:
		err := errors.Errorf("unexpected event payload %T", input)
		tracing.TraceErr(span, err)
		return nil, err
	}

	if err := b.checkEnvelope(message.Event); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	tracing.TagEntity(span, message.Event.EntityId)

	return &message, nil
}

func (b BaseEventListener) checkEnvelope(details dto.EventDetails) error {
	switch {
	case details.Data == nil:
		return errors.New("event data is nil")
	case details.EntityId == "":
		return errors.New("event entity id is empty")
	case !details.EntityType.Valid():
		return errors.Errorf("unknown entity type %q", details.EntityType)
	case details.EventType == "":
		return errors.New("event type is empty")
	case details.EventType != b.eventType:
		return errors.Errorf("unexpected event type %s, expected %s", details.EventType, b.eventType)
	}
	return nil
}

// DecodeEventData converts the event payload into T. Payloads read off the wire arrive
// as generic maps; payloads built in process may already be a T.
func DecodeEventData[T any](ctx context.Context, event *dto.Event) (T, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "Listener.DecodeEventData")
	defer span.Finish()
	tracing.SetDefaultListenerSpanTags(ctx, span)

	var decoded T
	switch data := event.Event.Data.(type) {
	case T:
		return data, nil
	case *T:
		if data != nil {
			return *data, nil
		}
	case map[string]interface{}, json.RawMessage:
		raw, err := json.Marshal(data)
		if err == nil {
			err = json.Unmarshal(raw, &decoded)
		}
		if err != nil {
			tracing.TraceErr(span, err)
			return decoded, errors.Wrapf(err, "failed to decode %s payload", GetEventType[T]())
		}
		return decoded, nil
	}

	err := errors.Errorf("cannot decode %T into %s", event.Event.Data, GetEventType[T]())
	tracing.TraceErr(span, err)
	return decoded, err
}

// GetEventType names an event by its payload type.
func GetEventType[T any]() string {
	eventType := reflect.TypeOf((*T)(nil)).Elem()
	if eventType.Kind() == reflect.Ptr {
		eventType = eventType.Elem()
	}
	return eventType.Name()
}
