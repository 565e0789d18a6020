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

	"gorental/internal/api"
	"gorental/internal/config"
	"gorental/internal/database"
	"gorental/internal/domain"
	"gorental/internal/events"
	"gorental/internal/google"
	"gorental/internal/logging"
	"gorental/internal/metrics"
	"gorental/internal/models"
	"gorental/internal/notify"
	"gorental/internal/pay"
	"gorental/internal/repository"
	"gorental/internal/service"
	"gorental/internal/worker"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
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
		defer func() { _ = closer.Close() }()
	}

	db, err := initDatabase(cfg, &logger)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient := initRedis(cfg, &logger)
	if redisClient != nil {
		defer repository.Close(redisClient)
	}

	idempotency := initIdempotency(redisClient, &logger)
	eventBus := events.NewEventBus()

	if notifier := initTelegram(cfg, &logger); notifier != nil {
		notifier.SubscribeTo(eventBus)
	}

	var gateway domain.CheckoutGateway
	var verifier domain.WebhookVerifier
	if cfg.Stripe.Enabled {
		stripeClient := pay.NewStripeClient(cfg.Stripe, &logger)
		gateway = stripeClient
		verifier = stripeClient
	}

	ledgerWorker := initLedger(ctx, cfg, redisClient, &logger)

	bookingService := service.NewBookingService(
		db, eventBus, gateway, idempotency, ledgerQueue(ledgerWorker),
		cfg.Booking.MaxBookingDays, cfg.Booking.CashGraceHours, &logger,
	)
	carService := service.NewCarService(db, cfg.Booking.CarsPerPage, &logger)
	salesService := service.NewSalesService(db, &logger)

	reaper := worker.NewReaper(db, cfg.Booking.PendingRetentionHours, cfg.Booking.ReaperIntervalMinutes, &logger)
	go reaper.Start(ctx)

	if cfg.Backup.Enabled {
		backup := database.NewBackupService(cfg.Database.Path, cfg.Backup, &logger)
		go backup.Start(ctx)
	}

	startMetrics(ctx, cfg, &logger)

	httpServer := api.NewHTTPServer(cfg.Server, cfg.Booking, bookingService, carService, salesService, verifier, &logger)
	return serve(ctx, httpServer, &logger)
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
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

func initDatabase(cfg *config.Config, logger *zerolog.Logger) (*database.DB, error) {
	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return nil, err
	}

	if err := seedFleet(db, cfg.Fleet.Path, logger); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// seedFleet upserts the catalog from the fleet file. The file is the
// source of truth for car attributes; reservations always reference
// cars by id so reseeding is safe.
func seedFleet(db *database.DB, path string, logger *zerolog.Logger) error {
	if path == "" {
		path = "configs/fleet.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Error().Err(err).Str("fleet_path", path).Msg("read fleet")
		return err
	}

	var fleet struct {
		Cars []models.Car `yaml:"cars"`
	}
	if err := yaml.Unmarshal(data, &fleet); err != nil {
		logger.Error().Err(err).Str("fleet_path", path).Msg("parse fleet")
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for i := range fleet.Cars {
		if err := db.UpsertCar(ctx, &fleet.Cars[i]); err != nil {
			return fmt.Errorf("seed car %d: %w", fleet.Cars[i].ID, err)
		}
	}

	logger.Info().Int("cars", len(fleet.Cars)).Msg("fleet seeded")
	return nil
}

func initRedis(cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	client := repository.NewRedisClient(cfg.Redis)
	if err := repository.Ping(context.Background(), client); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return client
}

func initIdempotency(redisClient *redis.Client, logger *zerolog.Logger) domain.IdempotencyStore {
	ttl := time.Duration(models.WebhookEventTTL) * time.Second
	memory := repository.NewMemoryIdempotencyStore(ttl)
	if redisClient == nil {
		return memory
	}
	return repository.NewFailoverIdempotencyStore(
		repository.NewRedisIdempotencyStore(redisClient, ttl), memory, logger)
}

func initTelegram(cfg *config.Config, logger *zerolog.Logger) *notify.TelegramNotifier {
	if cfg.Telegram.BotToken == "" {
		return nil
	}

	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		logger.Warn().Err(err).Msg("telegram init failed, continuing without alerts")
		return nil
	}
	bot.Debug = cfg.Telegram.Debug

	logger.Info().Str("bot", bot.Self.UserName).Msg("telegram connected")
	return notify.NewTelegramNotifier(bot, cfg.Telegram.AlertChatID, logger)
}

func initLedger(ctx context.Context, cfg *config.Config, redisClient *redis.Client, logger *zerolog.Logger) *worker.LedgerWorker {
	if cfg.Google.CredentialsFile == "" || cfg.Google.LedgerSpreadsheetID == "" {
		return nil
	}

	sink, err := google.NewLedgerClient(cfg.Google.CredentialsFile, cfg.Google.LedgerSpreadsheetID, cfg.Google.LedgerSheetRange)
	if err != nil {
		logger.Warn().Err(err).Msg("google sheets init failed, continuing without ledger")
		return nil
	}

	ledgerWorker := worker.NewLedgerWorker(sink, redisClient, worker.RetryPolicy{}, logger)
	go ledgerWorker.Start(ctx)

	logger.Info().Msg("ledger worker started")
	return ledgerWorker
}

// ledgerQueue avoids handing the service a typed nil.
func ledgerQueue(w *worker.LedgerWorker) domain.LedgerQueue {
	if w == nil {
		return nil
	}
	return w
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

func serve(ctx context.Context, httpServer *api.HTTPServer, logger *zerolog.Logger) error {
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown")
	}

	logger.Info().Msg("server stopped")
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
