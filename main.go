package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wavetours/booking-engine/internal/config"
	"github.com/wavetours/booking-engine/internal/database"
	"github.com/wavetours/booking-engine/internal/discount"
	"github.com/wavetours/booking-engine/internal/events"
	"github.com/wavetours/booking-engine/internal/gateway"
	"github.com/wavetours/booking-engine/internal/handler"
	"github.com/wavetours/booking-engine/internal/ledger"
	"github.com/wavetours/booking-engine/internal/lock"
	"github.com/wavetours/booking-engine/internal/logger"
	"github.com/wavetours/booking-engine/internal/middleware"
	"github.com/wavetours/booking-engine/internal/pricing"
	pkgredis "github.com/wavetours/booking-engine/internal/redis"
	"github.com/wavetours/booking-engine/internal/repository"
	"github.com/wavetours/booking-engine/internal/service"
	"github.com/wavetours/booking-engine/internal/telemetry"
	"github.com/wavetours/booking-engine/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logCfg := &logger.Config{
		Level:       "info",
		ServiceName: cfg.App.Name,
		Development: cfg.IsDevelopment(),
	}
	if cfg.App.Debug {
		logCfg.Level = "debug"
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting booking engine...")

	ctx := context.Background()

	_, err = telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
	})
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Telemetry init failed: %v", err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = telemetry.Shutdown(shutdownCtx)
	}()

	db, err := database.NewPostgres(ctx, &database.PostgresConfig{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.ConnMaxLifetime,
		MaxConnIdleTime: cfg.Database.ConnMaxIdleTime,
		EnableTracing:   cfg.OTel.Enabled,
	})
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Database connection failed: %v", err))
	}
	defer db.Close()
	appLog.Info("Database connected")

	redisClient, err := pkgredis.NewClient(ctx, &pkgredis.Config{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Redis connection failed: %v", err))
	}
	defer redisClient.Close()
	appLog.Info("Redis connected")

	// Capacity ledger and slot lease coordinator share the Redis client.
	capacityLedger := ledger.NewRedisLedger(redisClient)
	if err := capacityLedger.LoadScripts(ctx); err != nil {
		appLog.Warn(fmt.Sprintf("Failed to pre-load ledger scripts: %v", err))
	}
	lockCoordinator := lock.NewRedisCoordinator(redisClient)
	if err := lockCoordinator.LoadScripts(ctx); err != nil {
		appLog.Warn(fmt.Sprintf("Failed to pre-load lease scripts: %v", err))
	}

	// Event publisher falls back to no-op when Kafka is unreachable.
	var publisher events.Publisher
	publisher, err = events.NewKafkaPublisher(ctx, &events.KafkaPublisherConfig{
		Brokers:     cfg.Kafka.Brokers,
		Topic:       cfg.Kafka.Topic,
		ServiceName: cfg.App.Name,
		ClientID:    cfg.Kafka.ClientID,
	})
	if err != nil {
		appLog.Warn(fmt.Sprintf("Kafka connection failed, using no-op publisher: %v", err))
		publisher = events.NewNoOpPublisher()
	} else {
		appLog.Info("Kafka event publisher connected")
	}
	defer publisher.Close()

	// Repositories
	slotRepo := repository.NewPostgresSlotRepository(db.Pool())
	bookingRepo := repository.NewPostgresBookingRepository(db.Pool())
	paymentRepo := repository.NewPostgresPaymentRepository(db.Pool())
	cancellationRepo := repository.NewPostgresCancellationRepository(db.Pool())
	discountRepo := repository.NewPostgresDiscountRepository(db.Pool())

	// Pricing and discounts
	pricer := pricing.NewEngine(nil)
	rates := pricing.DefaultRateTable()
	validator := discount.NewValidator(discountRepo)

	// Payment gateways
	registry := gateway.NewRegistry(&gateway.Config{
		StripeSecretKey:     cfg.Gateway.StripeSecretKey,
		StripeWebhookSecret: cfg.Gateway.StripeWebhookSecret,
		Environment:         cfg.App.Environment,
		WalletDelay:         cfg.Gateway.WalletDelay,
	})

	// Services
	bookingService := service.NewBookingService(
		slotRepo, bookingRepo, lockCoordinator, capacityLedger,
		pricer, rates, validator, publisher,
		&service.BookingServiceConfig{
			HoldTTL:       cfg.Booking.HoldTTL,
			MaxPassengers: 50,
		},
	)
	paymentService := service.NewPaymentService(
		bookingService, bookingRepo, paymentRepo, registry,
		&service.PaymentServiceConfig{
			DefaultProvider:  cfg.Gateway.DefaultProvider,
			TransientRetries: 1,
			RetryInterval:    500 * time.Millisecond,
		},
	)
	cancellationService := service.NewCancellationService(
		bookingRepo, slotRepo, cancellationRepo,
		paymentService, bookingService,
		service.RefundPolicyByName(cfg.Booking.RefundPolicy),
	)

	// Background sweeps run in-process alongside the API.
	expiryWorker := worker.NewExpiryWorker(bookingService, &worker.ExpiryWorkerConfig{
		Interval:  cfg.Booking.WorkerTick,
		BatchSize: cfg.Booking.WorkerBatch,
	})
	workerCtx, stopWorker := context.WithCancel(ctx)
	expiryWorker.Start(workerCtx)
	defer func() {
		stopWorker()
		expiryWorker.Stop()
	}()

	// Handlers
	bookingHandler := handler.NewBookingHandler(bookingService, cancellationService)
	paymentHandler := handler.NewPaymentHandler(paymentService)
	discountHandler := handler.NewDiscountHandler(validator)
	webhookHandler := handler.NewWebhookHandler(paymentService, cfg.Gateway.StripeWebhookSecret)
	healthHandler := handler.NewHealthHandler(db, redisClient)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(appLog))
	router.Use(telemetry.TracingMiddleware(cfg.OTel.ServiceName))

	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)
	router.POST("/webhooks/stripe", webhookHandler.HandleStripe)

	idemCfg := middleware.DefaultIdempotencyConfig(redisClient)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/tours/:tour_id/availability", bookingHandler.Availability)
		v1.POST("/discounts/validate", discountHandler.Validate)

		authed := v1.Group("")
		authed.Use(middleware.Auth(cfg.JWT.Secret))
		{
			authed.POST("/bookings/quote", bookingHandler.Quote)
			authed.GET("/bookings", bookingHandler.ListBookings)
			authed.GET("/bookings/:id", bookingHandler.GetBooking)
			authed.GET("/bookings/:id/cancellation", bookingHandler.GetCancellation)

			authed.POST("/bookings", middleware.Idempotency(idemCfg), bookingHandler.Checkout)
			authed.POST("/bookings/:id/cancel", middleware.Idempotency(idemCfg), bookingHandler.Cancel)
			authed.POST("/payments/charge", middleware.Idempotency(idemCfg), paymentHandler.Charge)
			authed.POST("/payments/challenge/complete", middleware.Idempotency(idemCfg), paymentHandler.CompleteChallenge)
			authed.GET("/payments/:id", paymentHandler.GetTransaction)
		}
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 2 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		appLog.Info(fmt.Sprintf("Booking engine listening on %s", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal(fmt.Sprintf("Failed to start server: %v", err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Fatal(fmt.Sprintf("Server forced to shutdown: %v", err))
	}

	appLog.Info("Server exited gracefully")
}
