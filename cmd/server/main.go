package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"studiobook/internal/api"
	"studiobook/internal/availability"
	"studiobook/internal/config"
	"studiobook/internal/database"
	"studiobook/internal/domain"
	"studiobook/internal/events"
	"studiobook/internal/logging"
	"studiobook/internal/metrics"
	"studiobook/internal/models"
	"studiobook/internal/notify"
	"studiobook/internal/payments"
	"studiobook/internal/repository"
	"studiobook/internal/service"
	"studiobook/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	db, err := initDatabase(cfg, &logger)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient := initRedis(cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}
	locker := initLocker(redisClient)

	gateway := payments.NewStripeGateway(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret, cfg.StripeTimeout(), &logger)

	mailWorker := initMailWorker(cfg, &logger)
	eventBus := initEventBus(&logger)

	deps := api.Deps{
		Checkout:      service.NewCheckoutService(gateway, cfg.Booking.Currency, cfg.HTTP.BaseURL, &logger),
		Reconciler:    service.NewReconcilerService(db, locker, mailWorker, eventBus, &logger),
		Cancellation:  service.NewCancellationService(db, gateway, mailWorker, eventBus, &logger),
		Slots:         service.NewSlotTemplateService(db, &logger),
		Availability:  availability.NewEngine(db, &logger),
		Store:         db,
		WebhookParser: gateway,
	}
	httpServer := api.NewHTTPServer(cfg.HTTP, cfg.Auth, cfg.Booking, deps, &logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go mailWorker.Start(ctx)
	startMetrics(ctx, cfg, &logger)

	return startServer(ctx, httpServer, cfg, &logger)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := logging.Component(baseLogger, "server-main")

	return cfg, logger, closer, nil
}

func initDatabase(cfg *config.Config, logger *zerolog.Logger) (*database.DB, error) {
	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return nil, err
	}

	if len(cfg.SlotTemplates) > 0 {
		if err := db.SeedSlotTemplates(context.Background(), cfg.SlotTemplates); err != nil {
			logger.Error().Err(err).Msg("seed slot templates")
			db.Close()
			return nil, err
		}
		logger.Info().Int("count", len(cfg.SlotTemplates)).Msg("slot templates seeded")
	}
	return db, nil
}

func initRedis(cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if !cfg.Redis.Enabled || cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, falling back to in-process session locks")
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

func initLocker(redisClient *redis.Client) domain.Locker {
	if redisClient == nil {
		return repository.NewMemorySessionLocker()
	}
	return repository.NewRedisSessionLocker(redisClient, models.SessionLockTTLSeconds*time.Second)
}

func initMailWorker(cfg *config.Config, logger *zerolog.Logger) *worker.MailWorker {
	var notifier domain.Notifier
	if cfg.Email.Enabled && cfg.Email.ResendKey != "" {
		notifier = notify.NewResendNotifier(cfg.Email, logger)
		logger.Info().Str("from", cfg.Email.FromAddress).Msg("resend email delivery enabled")
	} else {
		notifier = notify.NewConsoleNotifier(logger)
		logger.Info().Msg("email delivery disabled, logging notifications to console")
	}

	return worker.NewMailWorker(notifier, worker.RetryPolicy{MaxRetries: cfg.Email.MaxRetries}, logger)
}

// initEventBus wires an audit subscriber so every booking transition
// lands in the log even when no other consumer is attached.
func initEventBus(logger *zerolog.Logger) *events.EventBus {
	bus := events.NewEventBus()
	for _, eventType := range []string{
		events.EventBookingConfirmed,
		events.EventBookingCancelled,
		events.EventBookingRefunded,
		events.EventPaymentFailed,
	} {
		bus.Subscribe(eventType, func(event *events.Event) error {
			logger.Info().
				Str("event_type", event.Type).
				RawJSON("payload", event.Payload).
				Msg("booking event")
			return nil
		})
	}
	return bus
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	port := cfg.Monitoring.PrometheusPort
	if port == 0 {
		port = 9090
	}
	go startMetricsServer(ctx, port, logger)
}

func startServer(ctx context.Context, httpServer *api.HTTPServer, cfg *config.Config, logger *zerolog.Logger) error {
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	logger.Info().Int("http_port", cfg.HTTP.Port).Msg("booking server started")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownTimeout := time.Duration(cfg.HTTP.ShutdownTimeout) * time.Second
	if shutdownTimeout == 0 {
		shutdownTimeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown")
	}

	logger.Info().Msg("booking server stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
