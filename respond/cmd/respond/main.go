package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/threatlens/threatlens-stack/common/logging"
	natsclient "github.com/threatlens/threatlens-stack/common/messaging/nats"
	"github.com/threatlens/threatlens-stack/respond/internal/auth"
	"github.com/threatlens/threatlens-stack/respond/internal/config"
	"github.com/threatlens/threatlens-stack/respond/internal/handlers"
	natspub "github.com/threatlens/threatlens-stack/respond/internal/nats"
	"github.com/threatlens/threatlens-stack/respond/internal/predict"
	"github.com/threatlens/threatlens-stack/respond/internal/ratelimit"
	"github.com/threatlens/threatlens-stack/respond/internal/repository"
	"github.com/threatlens/threatlens-stack/respond/internal/scheduler"
	"github.com/threatlens/threatlens-stack/respond/internal/server"
	"github.com/threatlens/threatlens-stack/respond/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.New(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format).
		With(logging.Service("respond"))
	logging.SetDefault(logger)

	connString := cfg.Database.Postgres.ConnString()

	// Run database migrations
	logger.Info("running database migrations")
	m, err := migrate.New("file://migrations", connString)
	if err != nil {
		log.Fatalf("Failed to initialize migrations: %v", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	logger.Info("database migrations completed")

	// Initialize repository
	repo, err := repository.NewPostgresRepository(context.Background(), connString, cfg.Database.Postgres.MaxConns)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer repo.Close()

	// Submit rate limiting
	var limiter ratelimit.RateLimiter = &ratelimit.NoOpRateLimiter{}
	if cfg.Redis.Enabled {
		limiter, err = ratelimit.NewRedisRateLimiter(cfg.Redis.URL, cfg.Redis.RateLimitRequests, cfg.Redis.RateLimitWindow)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		logger.Info("submit rate limiting enabled",
			"limit", cfg.Redis.RateLimitRequests,
			"window", cfg.Redis.RateLimitWindow.String(),
		)
	}
	defer limiter.Close()

	// Alert events
	var events natspub.EventPublisher = natspub.NoOpPublisher{}
	if cfg.NATS.Enabled {
		natsCfg := natsclient.DefaultConfig()
		natsCfg.URL = cfg.NATS.URL
		natsCfg.Name = "threatlens-respond"
		natsCfg.MaxReconnects = cfg.NATS.MaxReconnects
		natsCfg.ReconnectWait = cfg.NATS.ReconnectWait

		nc, err := natsclient.NewClient(natsCfg, logger.Logger)
		if err != nil {
			log.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer nc.Drain()

		events = natspub.NewPublisher(nc)
		logger.Info("alert event publishing enabled", "url", cfg.NATS.URL)
	}

	predictor := predict.NewClient(cfg.Prediction.URL, cfg.Prediction.Timeout)
	tokens := auth.NewTokenGenerator(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL)

	svc := service.NewService(repo, predictor, tokens,
		service.WithEvents(events),
		service.WithLogger(logger),
		service.WithDefaultPageSize(cfg.Alerts.DefaultPageSize),
		service.WithAdminEmails(cfg.Auth.AdminEmails),
	)

	// Background reanalysis of records saved while the prediction service was down
	var sweeper *scheduler.Scheduler
	if cfg.Reanalysis.Enabled {
		sweeper = scheduler.NewScheduler(svc, scheduler.Config{
			Interval:  cfg.Reanalysis.Interval,
			Grace:     cfg.Reanalysis.Grace,
			BatchSize: cfg.Reanalysis.BatchSize,
		}, logger)
		go sweeper.Start(context.Background())
	}

	// Setup HTTP router
	router := server.NewRouter(server.Deps{
		Handler: handlers.NewHandler(svc, logger),
		Auth:    auth.NewMiddleware(tokens),
		Limiter: limiter,
		Logger:  logger,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("respond service listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	if sweeper != nil {
		sweeper.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.WriteTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("server stopped gracefully")
}
