package services

import (
	"context"

	"github.com/pkg/errors"

	"github.com/customeros/waitlist/config"
	"github.com/customeros/waitlist/interfaces"
	"github.com/customeros/waitlist/internal/intake"
	"github.com/customeros/waitlist/internal/logger"
	"github.com/customeros/waitlist/internal/metrics"
	"github.com/customeros/waitlist/internal/ratelimit"
	"github.com/customeros/waitlist/internal/repository"
	"github.com/customeros/waitlist/services/email_filter"
	"github.com/customeros/waitlist/services/events"
	"github.com/customeros/waitlist/services/mailer"
	"github.com/customeros/waitlist/services/storage"
	"github.com/customeros/waitlist/services/waitlist"
)

type Services struct {
	EventsService      *events.EventsService
	Publisher          interfaces.EventPublisher
	Subscriber         interfaces.EventSubscriber
	EmailFilterService interfaces.EmailFilterService
	Mailer             interfaces.Mailer
	StorageService     interfaces.StorageService
	Validator          interfaces.Validator
	RateLimiter        interfaces.RateLimiter
	Metrics            *metrics.Metrics
	WaitlistService    interfaces.WaitlistService
}

func InitServices(ctx context.Context, cfg *config.Config, log logger.Logger, repos *repository.Repositories) (*Services, error) {
	svcs := Services{
		EmailFilterService: email_filter.NewEmailFilterService(true),
		Mailer:             mailer.NewMailer(cfg.SMTPConfig, log),
		StorageService:     InitStorage(cfg.R2StorageConfig),
		Metrics:            metrics.New(nil),
	}

	validator, err := InitValidator(ctx, cfg, svcs.StorageService, log)
	if err != nil {
		return nil, err
	}
	svcs.Validator = validator

	// events
	if cfg.AppConfig.RabbitMQURL != "" {
		subscriberConfig := &events.SubscriberConfig{
			Prefetch:            events.DefaultPrefetch,
			MaxRetries:          events.DefaultMaxRetries,
			ReconnectBackoff:    events.DefaultReconnectBackoff,
			MaxReconnectBackoff: events.DefaultMaxReconnectBackoff,
		}

		eventsService, err := events.NewEventsService(cfg.AppConfig.RabbitMQURL, log, events.DefaultPublisherConfig(), subscriberConfig)
		if err != nil {
			return nil, err
		}
		svcs.EventsService = eventsService
		svcs.Publisher = eventsService.Publisher
		svcs.Subscriber = eventsService.Subscriber
	} else {
		log.Warn("RABBITMQ_URL not set, confirmations will be sent inline")
	}

	// rate limiting
	if cfg.RateLimitConfig.RedisURL != "" {
		client, err := ratelimit.NewRedisClient(cfg.RateLimitConfig.RedisURL)
		if err != nil {
			svcs.Close()
			return nil, err
		}
		svcs.RateLimiter = ratelimit.NewFixedWindowLimiter(client, cfg.RateLimitConfig.Requests, cfg.RateLimitConfig.Window)
	} else {
		log.Warn("REDIS_URL not set, join requests are not rate limited")
	}

	svcs.WaitlistService = waitlist.NewWaitlistService(
		log,
		repos,
		svcs.Validator,
		svcs.EmailFilterService,
		svcs.Mailer,
		svcs.Publisher,
		svcs.Metrics,
		waitlist.Content{
			ProductName: cfg.AppConfig.ProductName,
			PublicURL:   cfg.AppConfig.PublicURL,
		},
	)

	return &svcs, nil
}

// InitStorage returns nil when R2 credentials are not configured.
func InitStorage(cfg *config.R2StorageConfig) interfaces.StorageService {
	if !cfg.Enabled() {
		return nil
	}
	return storage.NewR2StorageService(cfg)
}

// InitValidator loads the scam registry and builds the intake validator with a live MX resolver.
func InitValidator(ctx context.Context, cfg *config.Config, storageService interfaces.StorageService, log logger.Logger) (*intake.Validator, error) {
	registry, err := waitlist.LoadScamRegistry(ctx, cfg.IntakeConfig, storageService, log)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load scam registry")
	}

	resolver := intake.NewDNSResolver(intake.DNSResolverConfig{
		Nameserver: cfg.IntakeConfig.DNSNameserver,
		Timeout:    cfg.IntakeConfig.DNSTimeout,
	})
	return intake.NewValidator(registry, resolver), nil
}

func (s *Services) Close() error {
	if s.EventsService != nil {
		return s.EventsService.Close()
	}
	return nil
}
