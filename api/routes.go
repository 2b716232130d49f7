package api

import (
	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/customeros/waitlist/api/handlers"
	"github.com/customeros/waitlist/api/middleware"
	"github.com/customeros/waitlist/interfaces"
	"github.com/customeros/waitlist/internal/logger"
	"github.com/customeros/waitlist/internal/metrics"
	"github.com/customeros/waitlist/internal/tracing"
	"github.com/customeros/waitlist/internal/utils"
)

type RouteConfig struct {
	APIKey  string
	Limiter interfaces.RateLimiter
	Metrics *metrics.Metrics
}

// RegisterRoutes sets up all API endpoints
func RegisterRoutes(r *gin.Engine, waitlist interfaces.WaitlistService, log logger.Logger, cfg RouteConfig) {
	if waitlist == nil {
		panic("Waitlist service cannot be nil")
	}

	r.Use(tracing.RecoveryWithJaeger(opentracing.GlobalTracer()))

	apiHandlers := handlers.InitHandlers(waitlist, log)

	r.GET("/health", handlers.HealthCheck)
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/v1")
	api.Use(middleware.CustomContextMiddleware(utils.AppSourceApi))
	api.Use(middleware.TracingMiddleware())
	{
		api.POST("/waitlist",
			middleware.RateLimitMiddleware(cfg.Limiter, cfg.Metrics, log),
			apiHandlers.Waitlist.Join(),
		)

		admin := api.Group("/admin")
		admin.Use(middleware.APIKeyMiddleware(middleware.APIKeyConfig{
			HeaderName:  middleware.APIKeyHeader,
			ValidAPIKey: cfg.APIKey,
		}))
		{
			admin.POST("/validate", apiHandlers.Admin.Validate())
			admin.GET("/waitlist", apiHandlers.Admin.ListEntries())
			admin.DELETE("/waitlist/:id", apiHandlers.Admin.RemoveEntry())
			admin.POST("/waitlist/:id/confirmation", apiHandlers.Admin.ResendConfirmation())
			admin.GET("/scam-logs", apiHandlers.Admin.ListScamLogs())
		}
	}
}
