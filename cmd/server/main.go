package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"habitsync/config"
	"habitsync/internal/habits"
	"habitsync/internal/handler"
	"habitsync/internal/httpserver"
	"habitsync/internal/localstore"
	"habitsync/internal/realtime"
	"habitsync/internal/reconcile"
	"habitsync/internal/repository"
	"habitsync/internal/service"
	"habitsync/pkg/db"
	"habitsync/pkg/logger"
	"habitsync/pkg/mq"
	"habitsync/pkg/outbox"
	pkgredis "habitsync/pkg/redis"
	"habitsync/pkg/util"
)

func main() {
	cfg := config.Load()

	log := logger.NewLogger()
	defer log.Sync()

	log.Info("Starting habitsync server...",
		zap.String("db_host", cfg.DB.Host),
		zap.Int("db_port", cfg.DB.Port),
		zap.String("mq_url", cfg.MQ.URL),
		zap.String("port", cfg.Server.Port),
	)

	// DB
	log.Info("Initializing database connection...")
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()
	log.Info("Database connection established successfully")

	// Redis
	rdb := pkgredis.NewClient(cfg.Redis)
	defer rdb.Close()

	// Repositories
	outboxRepo := outbox.NewRepository(dbConn)
	syncedRepo := repository.NewSyncedDataRepository(dbConn, outboxRepo, log)
	profileRepo := repository.NewProfileRepository(dbConn, log)
	streakRepo := repository.NewStreakRepository(dbConn, log)

	// Services
	habitSvc := habits.NewService(localstore.NewRedisKV(rdb), log)
	streakSvc := service.NewStreakService(streakRepo, cfg.Sync.LookbackDays, log)
	friendsSvc := service.NewFriendsService(profileRepo, streakRepo, log)
	manager := reconcile.NewManager(syncedRepo, log)

	// MQ Publisher + outbox dispatcher
	log.Info("Initializing MQ publisher...")
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init publisher", zap.Error(err))
	}
	defer publisher.Close()

	dispatcherCtx, stopDispatcher := context.WithCancel(context.Background())
	defer stopDispatcher()

	dispatcher := outbox.NewDispatcher(outboxRepo, publisher, log).
		WithInterval(time.Duration(cfg.Sync.DispatchInterval) * time.Second).
		WithBatchSize(cfg.Sync.DispatchBatch)
	go dispatcher.Start(dispatcherCtx)

	// MQ Consumer for sync.changed, exclusive queue per server process
	log.Info("Initializing MQ consumer for sync.changed...",
		zap.String("routing_key", realtime.RoutingKeySyncChanged),
	)
	consumer, err := mq.NewConsumer(cfg.MQ.URL, "", realtime.RoutingKeySyncChanged, log)
	if err != nil {
		log.Fatal("Failed to init consumer", zap.Error(err))
	}

	deduper := util.NewDeduper(rdb, 10*time.Minute, log)
	retryCounter := util.NewRetryCounter(rdb, 30*time.Minute)
	subscriber := realtime.NewSubscriber(consumer, manager, deduper, retryCounter, log)

	go func() {
		log.Info("Starting sync.changed consumer...")
		if err := subscriber.Start(); err != nil {
			log.Fatal("Sync consumer failed", zap.Error(err))
		}
	}()
	log.Info("sync.changed consumer started successfully")

	// HTTP Server
	log.Info("Initializing HTTP server...", zap.String("port", cfg.Server.Port))
	handlers := httpserver.Handlers{
		Habit:       handler.NewHabitHandler(habitSvc, log),
		Consumption: handler.NewConsumptionHandler(habitSvc, streakSvc, log),
		Stats:       handler.NewStatsHandler(habitSvc, cfg.Sync.LookbackDays, log),
		Sync:        handler.NewSyncHandler(manager, log),
		Profile:     handler.NewProfileHandler(profileRepo, friendsSvc, log),
	}
	router := httpserver.NewRouter(cfg, handlers, log, dbConn, consumer)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	log.Info("habitsync is fully initialized and running",
		zap.String("http_port", cfg.Server.Port),
		zap.String("exchange", mq.ExchangeName),
	)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down...")

	stopDispatcher()
	subscriber.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", zap.Error(err))
	}

	log.Info("Shutdown complete")
}
