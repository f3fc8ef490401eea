// The expiry worker runs the hold-expiry and tour-completion sweeps as a
// standalone binary, for deployments that keep the API serving traffic only.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/wavetours/booking-engine/internal/config"
	"github.com/wavetours/booking-engine/internal/database"
	"github.com/wavetours/booking-engine/internal/discount"
	"github.com/wavetours/booking-engine/internal/events"
	"github.com/wavetours/booking-engine/internal/ledger"
	"github.com/wavetours/booking-engine/internal/lock"
	"github.com/wavetours/booking-engine/internal/logger"
	"github.com/wavetours/booking-engine/internal/pricing"
	pkgredis "github.com/wavetours/booking-engine/internal/redis"
	"github.com/wavetours/booking-engine/internal/repository"
	"github.com/wavetours/booking-engine/internal/service"
	"github.com/wavetours/booking-engine/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(&logger.Config{
		Level:       "info",
		ServiceName: cfg.App.Name + "-worker",
		Development: cfg.IsDevelopment(),
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting expiry worker...")

	ctx := context.Background()

	db, err := database.NewPostgres(ctx, &database.PostgresConfig{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		Database: cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: 10,
		MinConns: 2,
	})
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Database connection failed: %v", err))
	}
	defer db.Close()

	redisClient, err := pkgredis.NewClient(ctx, &pkgredis.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Redis connection failed: %v", err))
	}
	defer redisClient.Close()

	capacityLedger := ledger.NewRedisLedger(redisClient)
	if err := capacityLedger.LoadScripts(ctx); err != nil {
		appLog.Warn(fmt.Sprintf("Failed to pre-load ledger scripts: %v", err))
	}
	lockCoordinator := lock.NewRedisCoordinator(redisClient)
	if err := lockCoordinator.LoadScripts(ctx); err != nil {
		appLog.Warn(fmt.Sprintf("Failed to pre-load lease scripts: %v", err))
	}

	var publisher events.Publisher
	publisher, err = events.NewKafkaPublisher(ctx, &events.KafkaPublisherConfig{
		Brokers:     cfg.Kafka.Brokers,
		Topic:       cfg.Kafka.Topic,
		ServiceName: cfg.App.Name + "-worker",
		ClientID:    cfg.Kafka.ClientID,
	})
	if err != nil {
		appLog.Warn(fmt.Sprintf("Kafka connection failed, using no-op publisher: %v", err))
		publisher = events.NewNoOpPublisher()
	}
	defer publisher.Close()

	bookingService := service.NewBookingService(
		repository.NewPostgresSlotRepository(db.Pool()),
		repository.NewPostgresBookingRepository(db.Pool()),
		lockCoordinator,
		capacityLedger,
		pricing.NewEngine(nil),
		pricing.DefaultRateTable(),
		discount.NewValidator(repository.NewPostgresDiscountRepository(db.Pool())),
		publisher,
		&service.BookingServiceConfig{HoldTTL: cfg.Booking.HoldTTL},
	)

	expiryWorker := worker.NewExpiryWorker(bookingService, &worker.ExpiryWorkerConfig{
		Interval:  cfg.Booking.WorkerTick,
		BatchSize: cfg.Booking.WorkerBatch,
	})

	workerCtx, cancel := context.WithCancel(ctx)
	expiryWorker.Start(workerCtx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down worker...")

	cancel()
	expiryWorker.Stop()
	appLog.Info("Worker exited gracefully")
}
