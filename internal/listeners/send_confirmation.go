package listeners

import (
	"context"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/customeros/waitlist/dto"
	"github.com/customeros/waitlist/interfaces"
	waitlisterrors "github.com/customeros/waitlist/internal/errors"
	"github.com/customeros/waitlist/internal/logger"
	"github.com/customeros/waitlist/internal/tracing"
	"github.com/customeros/waitlist/services/events"
)

type SendConfirmationListener struct {
	events.BaseEventListener
	waitlistService interfaces.WaitlistService
}

func NewSendConfirmationListener(logger logger.Logger, waitlistService interfaces.WaitlistService) interfaces.EventListener {
	return &SendConfirmationListener{
		BaseEventListener: events.NewBaseEventListener(
			logger,
			events.GetEventType[dto.SendConfirmation](), // subscribed event
			events.QueueSendConfirmation,                // listening on Direct queue
		),
		waitlistService: waitlistService,
	}
}

func (l *SendConfirmationListener) Handle(ctx context.Context, baseEvent any) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "SendConfirmationListener.Handle")
	defer span.Finish()
	tracing.SetDefaultListenerSpanTags(ctx, span)
	tracing.LogObjectAsJson(span, "event", baseEvent)

	validatedEvent, err := l.ValidateBaseEvent(ctx, baseEvent)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	sendConfirmation, err := events.DecodeEventData[dto.SendConfirmation](ctx, validatedEvent)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	if sendConfirmation.EntryID == "" {
		sendConfirmation.EntryID = validatedEvent.Event.EntityId
	}
	tracing.TagEntity(span, sendConfirmation.EntryID)

	err = l.waitlistService.SendConfirmation(ctx, sendConfirmation.EntryID)
	if errors.Is(err, waitlisterrors.ErrEntryNotFound) {
		// entry was removed after the event was queued
		l.Logger().Warnf("Skipping confirmation for removed entry %s", sendConfirmation.EntryID)
		return nil
	}
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	return nil
}
