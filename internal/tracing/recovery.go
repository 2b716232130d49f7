package tracing

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"

	"github.com/customeros/waitlist/internal/logger"
)

func logPanic(tracer opentracing.Tracer, recovered any) string {
	span := tracer.StartSpan("panic-recovery")
	defer span.Finish()

	stack := string(debug.Stack())
	ext.Error.Set(span, true)
	span.LogKV(
		"event", "error",
		"error.object", recovered,
		"stack", stack,
	)
	return stack
}

// RecoveryWithJaeger turns a handler panic into a 500 and a span carrying the stack.
func RecoveryWithJaeger(tracer opentracing.Tracer) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logPanic(tracer, r)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			}
		}()
		c.Next()
	}
}

// RecoverAndLogToJaeger is deferred at the top of background goroutines.
func RecoverAndLogToJaeger(appLogger logger.Logger) {
	if r := recover(); r != nil {
		stack := logPanic(opentracing.GlobalTracer(), r)
		appLogger.Errorf("Recovered from panic: %v\nStack trace:\n%s", r, stack)
	}
}
