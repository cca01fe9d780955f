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

	"frontdesk-service/config"
	"frontdesk-service/internal/api"
	"frontdesk-service/internal/audit"
	"frontdesk-service/internal/broker"
	"frontdesk-service/internal/redisclient"
	"frontdesk-service/internal/service"
	"frontdesk-service/internal/store"
	"frontdesk-service/internal/util"
	"frontdesk-service/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env, cfg.Server.Debug); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}
	logger.Info("Starting front desk service",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port))

	tp, err := util.InitTracer("frontdesk-service", cfg.Server.Env, cfg.Observ.JaegerEndpoint)
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Error("Error shutting down tracer", zap.Error(err))
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("Database connected")

	ctx := context.Background()
	if cfg.Database.Migrate {
		if err := db.Migrate(ctx); err != nil {
			logger.Fatal("Failed to apply schema", zap.Error(err))
		}
	}

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	logger.Info("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents)
	defer producer.Close()
	logger.Info("Kafka producer initialized", zap.String("topic", cfg.Kafka.TopicEvents))

	eventPublisher := broker.NewEventPublisher(producer)
	auditWriter := audit.NewWriter(logger)
	numbers := service.NewInvoiceNumberer(cfg.Business.InvoicePrefix, cfg.Business.InvoiceNumberAttempts)

	invoiceService := service.NewInvoiceService(db, auditWriter, numbers, redisClient, cfg.Business.IdempotencyTTL, eventPublisher)
	reservationService := service.NewReservationService(db, invoiceService, auditWriter, eventPublisher)
	roomService := service.NewRoomService(db, redisClient)

	if err := roomService.SyncRoomBoard(ctx); err != nil {
		logger.Warn("Failed to sync room board to Redis", zap.Error(err))
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	boardConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents, cfg.Kafka.ConsumerGroup)
	boardWorker := worker.NewRoomBoardWorker(boardConsumer, roomService)
	go func() {
		if err := boardWorker.Start(workerCtx); err != nil && workerCtx.Err() == nil {
			logger.Error("Room board worker stopped", zap.Error(err))
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(
		reservationService,
		invoiceService,
		roomService,
		api.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		cfg.Server.Debug,
		api.ReadinessCheck{Name: "postgres", Ping: db.Ping},
		api.ReadinessCheck{Name: "redis", Ping: redisClient.Ping},
	)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if err := boardWorker.Stop(); err != nil {
		logger.Warn("Error stopping room board worker", zap.Error(err))
	}

	logger.Info("Server exited")
}
