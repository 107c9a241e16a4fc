package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"golang-stock-scanner/internal/scanner/aggregator"
	"golang-stock-scanner/internal/scanner/config"
	"golang-stock-scanner/internal/scanner/delivery/consumer"
	"golang-stock-scanner/internal/scanner/orchestrator"
	"golang-stock-scanner/internal/scanner/repository"
	"golang-stock-scanner/internal/scanner/service"
	"golang-stock-scanner/pkg/common"
	"golang-stock-scanner/pkg/logger"
	"golang-stock-scanner/pkg/postgres"
	"golang-stock-scanner/pkg/redis"
	"golang-stock-scanner/pkg/telegram"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the scanner service",
	Run:   runServe,
}

func runServe(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	appLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	appLogger.Info("Starting Scanner Service", zap.String("name", cfg.App.Name))

	// Initialize database
	postgresCfg := postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}
	db, err := postgres.NewDB(postgresCfg)
	if err != nil {
		appLogger.Fatal("Failed to initialize database", zap.Error(err))
	}
	if sqlDB, err := db.DB.DB(); err == nil {
		defer sqlDB.Close()
	}

	// Initialize Redis
	redisCfg := redis.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	}
	redisClient, err := redis.NewClient(redisCfg)
	if err != nil {
		appLogger.Fatal("Failed to initialize Redis", zap.Error(err))
	}
	defer redisClient.Close()

	// Create the consumer groups if they don't exist
	// MKSTREAM creates the stream if it doesn't exist
	if err := redisClient.XGroupCreateMkStream(context.Background(), common.RedisStreamScanTrigger, common.RedisStreamGroup, "0").Err(); err != nil {
		if err.Error() != "BUSYGROUP Consumer Group name already exists" {
			appLogger.Fatal("Failed to create consumer group", logger.ErrorField(err))
		}
	}
	if err := redisClient.XGroupCreateMkStream(context.Background(), common.RedisStreamWatchlistAggregate, common.RedisStreamGroup, "0").Err(); err != nil {
		if err.Error() != "BUSYGROUP Consumer Group name already exists" {
			appLogger.Fatal("Failed to create consumer group", logger.ErrorField(err))
		}
	}

	// Initialize repositories
	runRepo := repository.NewRunRepository(db.DB)
	strategyRepo := repository.NewStrategyRepository(db.DB)
	accountRepo := repository.NewAccountRepository(db.DB)
	instrumentsRepo := repository.NewInstrumentsRepository(db.DB)
	priceHistoryRepo := repository.NewPriceHistoryRepository(cfg, appLogger)

	telegramNotifier, err := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
	if err != nil {
		appLogger.Fatal("Failed to initialize Telegram notifier", zap.Error(err))
	}

	// Initialize the scan engine
	registry := orchestrator.NewRegistry()
	orch := orchestrator.New(registry, instrumentsRepo, priceHistoryRepo, runRepo, appLogger, orchestrator.Options{
		Workers:              cfg.Scanner.Workers,
		FailureRateThreshold: cfg.Scanner.FailureRateThreshold,
		RunBudget:            cfg.Scanner.RunBudget,
	})
	agg := aggregator.New(runRepo, runRepo, appLogger)

	// Initialize services
	scanSvc := service.NewScanService(cfg, appLogger, redisClient.Client, strategyRepo, accountRepo, orch, telegramNotifier)
	aggregationSvc := service.NewAggregationService(cfg, appLogger, redisClient.Client, accountRepo, runRepo, agg, telegramNotifier)

	// Initialize and start the Redis consumer
	redisConsumer := consumer.NewRedisConsumer(cfg, redisClient.Client, scanSvc, aggregationSvc, appLogger)
	redisConsumer.Start(ctx)

	appLogger.Info("Scanner service started. Waiting for triggers...")

	// Wait for interrupt signal to gracefully shut down the service
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down scanner service...")
	cancel()
	redisConsumer.Stop()
	appLogger.Info("Scanner service stopped.")
}

func main() {
	rootCmd := &cobra.Command{Use: "scanner-service"}

	serveCmd.Flags().StringVarP(&configPath, "config", "c", "configs/config-scanner.yaml", "Path to the configuration file")

	rootCmd.AddCommand(serveCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing scanner-service CLI: %s\n", err)
		os.Exit(1)
	}
}
