package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	"gorm.io/gorm"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"

	"github.com/customeros/waitlist/api"
	"github.com/customeros/waitlist/config"
	"github.com/customeros/waitlist/internal/cron"
	"github.com/customeros/waitlist/internal/listeners"
	"github.com/customeros/waitlist/internal/logger"
	"github.com/customeros/waitlist/internal/repository"
	"github.com/customeros/waitlist/internal/tracing"
	"github.com/customeros/waitlist/services"
	"github.com/customeros/waitlist/services/events"
)

type Server struct {
	config       *config.Config
	log          logger.Logger
	httpServer   *http.Server
	router       *gin.Engine
	services     *services.Services
	repositories *repository.Repositories
	cronManager  *cron.CronManager
	tracerCloser io.Closer
}

func NewServer(ctx context.Context, cfg *config.Config, waitlistDB *gorm.DB) (*Server, error) {
	// Initialize logger
	appLogger := logger.NewAppLogger(cfg.Logger)
	appLogger.InitLogger()

	// Initialize tracing
	tracer, closer, err := tracing.NewJaegerTracer(cfg.Tracing, appLogger)
	if err != nil {
		return nil, fmt.Errorf("could not initialize jaeger tracer: %w", err)
	}
	opentracing.SetGlobalTracer(tracer)

	// Initialize repositories
	repos := repository.InitRepositories(waitlistDB)

	// Initialize services
	svcs, err := services.InitServices(ctx, cfg, appLogger, repos)
	if err != nil {
		_ = closer.Close()
		return nil, err
	}

	// Initialize Gin
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	return &Server{
		config:       cfg,
		log:          appLogger,
		router:       router,
		services:     svcs,
		repositories: repos,
		cronManager:  cron.NewCronManager(cfg, appLogger, newKubernetesClient(appLogger), svcs.WaitlistService),
		tracerCloser: closer,
		httpServer: &http.Server{
			Addr:              ":" + cfg.AppConfig.APIPort,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// newKubernetesClient returns nil outside a cluster, which runs crons without leader election.
func newKubernetesClient(log logger.Logger) kubernetes.Interface {
	restConfig, err := rest.InClusterConfig()
	if err != nil {
		log.Infof("Not running in kubernetes: %v", err)
		return nil
	}
	client, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		log.Warnf("Failed to create kubernetes client: %v", err)
		return nil
	}
	return client
}

func (s *Server) Initialize() error {
	// Register event listeners
	if subscriber := s.services.Subscriber; subscriber != nil {
		s.log.Info("Registering event listeners...")
		subscriber.RegisterListener(listeners.NewSendConfirmationListener(s.log, s.services.WaitlistService))
		if err := subscriber.ListenQueue(events.QueueSendConfirmation); err != nil {
			return err
		}
	}

	// Setup API routes
	api.RegisterRoutes(s.router, s.services.WaitlistService, s.log, api.RouteConfig{
		APIKey:  s.config.AppConfig.APIKey,
		Limiter: s.services.RateLimiter,
		Metrics: s.services.Metrics,
	})

	return nil
}

func (s *Server) recoverWithJaeger(name string) {
	if r := recover(); r != nil {
		span := opentracing.GlobalTracer().StartSpan(
			fmt.Sprintf("panic.%s", name),
		)
		defer span.Finish()

		ext.Error.Set(span, true)

		span.LogKV(
			"event", "panic",
			"process", name,
			"error", fmt.Sprintf("%v", r),
			"stack", string(debug.Stack()),
		)

		s.log.Errorf("Panic in %s: %v\n%s", name, r, debug.Stack())
	}
}

func (s *Server) wrapGoroutine(name string, fn func()) {
	defer s.recoverWithJaeger(name)
	fn()
}

func (s *Server) Run() error {
	if err := s.Initialize(); err != nil {
		return err
	}

	// Start crons with panic recovery
	s.log.Info("Starting cron manager...")
	s.wrapGoroutine("cron_manager", func() {
		if err := s.cronManager.Start(s.config.AppConfig.PodName, s.config.AppConfig.PodNamespace); err != nil {
			s.log.Errorf("Cron manager error: %v", err)
		}
	})

	// Start HTTP server in a goroutine with panic recovery
	go s.wrapGoroutine("http_server", func() {
		s.log.Infof("Starting HTTP server on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Errorf("HTTP server error: %v", err)
		}
	})
	s.log.Info("Waitlist is now running. Press Ctrl+C to exit.")

	return s.waitForShutdown()
}

func (s *Server) waitForShutdown() error {
	defer s.recoverWithJaeger("shutdown")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	s.log.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	s.log.Info("Shutting down HTTP server...")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.log.Errorf("HTTP server shutdown error: %v", err)
	} else {
		s.log.Info("HTTP server shut down successfully")
	}

	// Stop crons with timeout
	stopDone := make(chan struct{})
	go s.wrapGoroutine("cron_shutdown", func() {
		defer close(stopDone)
		s.cronManager.Stop()
	})

	select {
	case <-stopDone:
		s.log.Info("Cron manager stopped gracefully")
	case <-time.After(10 * time.Second):
		s.log.Warn("Cron manager stop timed out")
	}

	if err := s.services.Close(); err != nil {
		s.log.Errorf("Events service shutdown error: %v", err)
	}

	if s.tracerCloser != nil {
		_ = s.tracerCloser.Close()
	}
	_ = s.log.Sync()

	return nil
}
