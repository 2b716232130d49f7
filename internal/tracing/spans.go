package tracing

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"github.com/opentracing/opentracing-go/log"

	"github.com/customeros/waitlist/internal/utils"
)

const (
	SpanTagAppSource   = "app-source"
	SpanTagClientIP    = "client-ip"
	SpanTagRequestId   = "request-id"
	SpanTagEntityId    = "entity-id"
	SpanTagComponent   = "component"
	SpanTagEmailDomain = "email.domain"
	SpanTagAccepted    = "verdict.accepted"
	SpanTagReason      = "verdict.reason"
)

const (
	SpanTagComponentPostgresRepository = "postgresRepository"
	SpanTagComponentRedis              = "redis"
	SpanTagComponentRest               = "rest"
	SpanTagComponentCronJob            = "cronJob"
	SpanTagComponentService            = "service"
	SpanTagComponentListener           = "listener"
)

const uberTraceIdHeader = "uber-trace-id"

// StartHTTPServerSpan continues the trace carried in the request headers, or starts a new one.
func StartHTTPServerSpan(ctx context.Context, operationName string, headers http.Header) (context.Context, opentracing.Span) {
	tracer := opentracing.GlobalTracer()

	var span opentracing.Span
	if spanCtx, err := tracer.Extract(opentracing.HTTPHeaders, opentracing.HTTPHeadersCarrier(headers)); err == nil {
		span = tracer.StartSpan(operationName, ext.RPCServerOption(spanCtx))
	} else {
		span = tracer.StartSpan(operationName)
	}
	return opentracing.ContextWithSpan(ctx, span), span
}

// StartMessageSpan continues the trace whose id travelled in an event's metadata.
func StartMessageSpan(ctx context.Context, operationName string, uberTraceId string) (context.Context, opentracing.Span) {
	tracer := opentracing.GlobalTracer()
	carrier := opentracing.TextMapCarrier{uberTraceIdHeader: uberTraceId}

	var span opentracing.Span
	if uberTraceId != "" {
		if spanCtx, err := tracer.Extract(opentracing.TextMap, carrier); err == nil {
			span = tracer.StartSpan(operationName, ext.RPCServerOption(spanCtx))
		}
	}
	if span == nil {
		span = tracer.StartSpan(operationName)
	}
	return opentracing.ContextWithSpan(ctx, span), span
}

// StartTracerSpan starts a root span, for work that is not triggered by a request.
func StartTracerSpan(ctx context.Context, operationName string) (opentracing.Span, context.Context) {
	span := opentracing.GlobalTracer().StartSpan(operationName)
	return span, opentracing.ContextWithSpan(ctx, span)
}

// UberTraceId returns the serialized span context to put on outgoing events.
func UberTraceId(span opentracing.Span) string {
	carrier := opentracing.TextMapCarrier{}
	if err := opentracing.GlobalTracer().Inject(span.Context(), opentracing.TextMap, carrier); err != nil {
		return ""
	}
	return carrier[uberTraceIdHeader]
}

func setDefaultSpanTags(ctx context.Context, span opentracing.Span, component string) {
	customContext := utils.GetContext(ctx)
	if customContext.AppSource != "" {
		span.SetTag(SpanTagAppSource, customContext.AppSource)
	}
	if customContext.ClientIP != "" {
		span.SetTag(SpanTagClientIP, customContext.ClientIP)
	}
	if customContext.RequestId != "" {
		span.SetTag(SpanTagRequestId, customContext.RequestId)
	}
	span.SetTag(SpanTagComponent, component)
}

func SetDefaultRestSpanTags(ctx context.Context, span opentracing.Span) {
	setDefaultSpanTags(ctx, span, SpanTagComponentRest)
}

func SetDefaultServiceSpanTags(ctx context.Context, span opentracing.Span) {
	setDefaultSpanTags(ctx, span, SpanTagComponentService)
}

func SetDefaultPostgresRepositorySpanTags(ctx context.Context, span opentracing.Span) {
	setDefaultSpanTags(ctx, span, SpanTagComponentPostgresRepository)
}

func SetDefaultListenerSpanTags(ctx context.Context, span opentracing.Span) {
	setDefaultSpanTags(ctx, span, SpanTagComponentListener)
}

func TraceErr(span opentracing.Span, err error, fields ...log.Field) {
	if span == nil || err == nil {
		return
	}
	ext.LogError(span, err, fields...)
}

func LogObjectAsJson(span opentracing.Span, name string, object any) {
	if object == nil {
		span.LogFields(log.String(name, "nil"))
		return
	}
	if jsonObject, err := json.Marshal(object); err == nil {
		span.LogFields(log.String(name, string(jsonObject)))
		return
	}
	span.LogFields(log.Object(name, object))
}

func TagEntity(span opentracing.Span, entityId string) {
	if entityId != "" {
		span.SetTag(SpanTagEntityId, entityId)
	}
}

func TagEmailDomain(span opentracing.Span, domain string) {
	if domain != "" {
		span.SetTag(SpanTagEmailDomain, domain)
	}
}

// TagVerdict records an intake outcome. reason is empty for accepted addresses.
func TagVerdict(span opentracing.Span, accepted bool, reason string) {
	span.SetTag(SpanTagAccepted, accepted)
	if reason != "" {
		span.SetTag(SpanTagReason, reason)
	}
}

func TagComponentRedis(span opentracing.Span) {
	span.SetTag(SpanTagComponent, SpanTagComponentRedis)
}

func TagComponentCronJob(span opentracing.Span) {
	span.SetTag(SpanTagComponent, SpanTagComponentCronJob)
}
