package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/juju/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"

	"jeeptrack-service/internal/domain/repository"
	"jeeptrack-service/internal/infrastructure/config"
	"jeeptrack-service/internal/infrastructure/oauth"
	"jeeptrack-service/internal/infrastructure/persistence"
	"jeeptrack-service/internal/infrastructure/router"
	"jeeptrack-service/internal/interface/api"
	repo "jeeptrack-service/internal/interface/repository"
	"jeeptrack-service/internal/usecase"
	"jeeptrack-service/pkg/logger"
	"jeeptrack-service/pkg/metrics"
	"jeeptrack-service/templates"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.NewLogger("info").Fatal("Failed to load config", "error", err)
	}

	// Create logger
	log := logger.NewLogger(cfg.LogLevel)
	defer log.Sync()
	log.Info("Starting Jeeptrack Service", "version", cfg.AppVersion, "storage", cfg.StorageMode, "push", cfg.PushTransport)

	m := metrics.NewMetrics("jeeptrack", prometheus.DefaultRegisterer)
	clk := clock.WallClock

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		gormDB      *gorm.DB
		mongoClient *mongo.Client
		redisClient *redis.Client
	)
	postgres := func() *gorm.DB {
		if gormDB == nil {
			log.Info("Connecting to PostgreSQL")
			db, err := persistence.NewPostgresDB(cfg.PostgresURI)
			if err != nil {
				log.Fatal("Failed to connect to PostgreSQL", "error", err)
			}
			gormDB = db
		}
		return gormDB
	}

	// Route directory
	var directory repository.DirectoryRepository
	if cfg.DirectorySource == "postgres" {
		directory = repo.NewGormDirectoryRepository(postgres())
	} else {
		log.Info("Loading route directory", "file", cfg.DirectoryFile)
		directory, err = repo.NewYAMLDirectoryRepository(cfg.DirectoryFile)
		if err != nil {
			log.Fatal("Failed to load route directory", "error", err)
		}
	}

	// Storage
	var (
		locations     repository.LocationRepository
		subscriptions repository.SubscriptionRepository
		notifications repository.NotificationRepository
		snapshotCache repository.SnapshotCache
	)
	switch cfg.StorageMode {
	case config.StoragePersistent:
		log.Info("Connecting to Redis", "addr", cfg.RedisAddr)
		redisClient, err = persistence.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Fatal("Failed to connect to Redis", "error", err)
		}

		log.Info("Connecting to MongoDB")
		var db *mongo.Database
		mongoClient, db, err = persistence.NewMongoClient(ctx, cfg.MongoURI, cfg.MongoDB, cfg.MongoUser, cfg.MongoPassword)
		if err != nil {
			log.Fatal("Failed to connect to MongoDB", "error", err)
		}

		locations = repo.NewRedisLocationRepository(redisClient)
		snapshotCache = repo.NewRedisSnapshotCache(redisClient)
		subscriptions = repo.NewGormSubscriptionRepository(postgres())
		notifications = repo.NewMongoNotificationRepository(db)
	default:
		log.Warn("Using in-memory storage; state is lost on restart")
		locations = repo.NewMemoryLocationRepository()
		subscriptions = repo.NewMemorySubscriptionRepository()
		notifications = repo.NewMemoryNotificationRepository()
	}

	// Push transport
	var push repository.PushRepository
	switch cfg.PushTransport {
	case config.PushWebhook:
		push = repo.NewWebhookPushRepository(log, cfg.PushWebhookURL, cfg.PushWebhookToken, cfg.DeliveryTimeout)
	case config.PushFCM:
		fcmOAuth := oauth.NewFCMOAuth(cfg.FCMClientID, cfg.FCMClientSecret, cfg.FCMRefreshToken, log)
		tokenSource, err := fcmOAuth.GetTokenSource(ctx)
		if err != nil {
			log.Fatal("Failed to set up FCM credentials", "error", err)
		}
		push, err = repo.NewFCMPushRepository(ctx, log, cfg.FCMProjectID, tokenSource)
		if err != nil {
			log.Fatal("Failed to create FCM client", "error", err)
		}
	default:
		push = repo.NewLogPushRepository(log)
	}

	// Templates
	eventRouter := router.NewEventRouter(log)
	eventRouter.Register(templates.NewCheckpointAdvanceHandler())
	eventRouter.Register(templates.NewShiftEventHandler())

	// Use cases
	worker := usecase.NewDeliveryWorker(notifications, push, clk, m, log, usecase.DeliveryConfig{
		Workers:       cfg.DeliveryWorkers,
		QueueSize:     cfg.DeliveryQueueSize,
		SweepInterval: cfg.DeliverySweepInterval,
		MaxAttempts:   cfg.DeliveryMaxAttempts,
		BaseBackoff:   cfg.DeliveryBaseBackoff,
		Timeout:       cfg.DeliveryTimeout,
	})
	store := usecase.NewLocationStore(locations, clk, m, log)
	registry := usecase.NewSubscriptionRegistry(subscriptions, directory, clk, log)
	dispatcher := usecase.NewNotificationDispatcher(notifications, registry, eventRouter, worker, clk, m, log)
	eta := usecase.NewETAEstimator(cfg.ETAMinBand, cfg.ETASpreadPercent, cfg.DefaultSegmentDuration)
	ingestor := usecase.NewScanIngestor(store, directory, usecase.NewChangeDetector(cfg.SuppressRescans), eta, dispatcher, clk, m, log, usecase.IngestConfig{
		Budget:                 cfg.IngestBudget,
		RestartMinBackwardJump: cfg.RestartMinBackwardJump,
		RestartMinGap:          cfg.RestartMinGap,
		AnomalyPolicy:          cfg.AnomalyPolicy,
	})
	staleness := usecase.NewStalenessClassifier(cfg.LiveThreshold, cfg.RecentThreshold, cfg.HardStaleCutoff)
	aggregator := usecase.NewPollingAggregator(store, directory, eta, staleness, snapshotCache, cfg.SnapshotCacheTTL, clk, m, log)

	// Start delivery in the background
	worker.Start()

	handler := api.NewHandler(ingestor, aggregator, registry, dispatcher, log)
	server := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: api.RegisterRoutes(handler, map[string]http.Handler{
			"/metrics": promhttp.Handler(),
		}),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start HTTP server in a goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Info("Received signal", "signal", sig)

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", "error", err)
	}

	if err := worker.Stop(); err != nil {
		log.Error("Delivery worker stopped with error", "error", err)
	}

	cancel() // Cancel the context to stop all goroutines

	if mongoClient != nil {
		if err := mongoClient.Disconnect(shutdownCtx); err != nil {
			log.Error("MongoDB disconnect error", "error", err)
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error("Redis close error", "error", err)
		}
	}
	if gormDB != nil {
		if sqlDB, err := gormDB.DB(); err == nil {
			sqlDB.Close()
		}
	}

	log.Info("Jeeptrack Service stopped")
}
