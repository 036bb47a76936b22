package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"cargocalc-bot/internal/bot"
	"cargocalc-bot/internal/config"
	"cargocalc-bot/internal/pricing"
	"cargocalc-bot/internal/rates"
	"cargocalc-bot/internal/storage"
	"cargocalc-bot/pkg/logger"
	"cargocalc-bot/pkg/redis"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ENTRY POINT

func main() {
	zapLogger, err := logger.New()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer zapLogger.Sync()

	cfg, err := config.Load()
	if err != nil {
		zapLogger.Fatal("Failed to load config", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	redisClient := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisTTL)
	defer redisClient.Close()

	pgStorage, err := storage.NewPostgresStorage(ctx, cfg, redisClient, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to init PostgreSQL storage", zap.Error(err))
	}
	defer pgStorage.Close()

	if err := storage.RunMigrations(ctx, pgStorage.DB(), zapLogger); err != nil {
		zapLogger.Fatal("Failed to run migrations", zap.Error(err))
	}

	categories, err := pgStorage.GetCategories(ctx)
	if err != nil {
		zapLogger.Fatal("Failed to load categories", zap.Error(err))
	}
	registry := pricing.NewRegistry(categories)
	zapLogger.Info("Category registry loaded", zap.Int("categories", len(registry.All())))

	ratesProvider := rates.NewProvider(
		cfg.RatesAPIURL,
		cfg.HTTPRequestTimeout,
		redisClient,
		pricing.ExchangeRates{CNYToRUB: cfg.CNYToRUB, CNYToUSD: cfg.CNYToUSD},
		zapLogger,
	)

	tgBot, err := bot.New(
		cfg.TelegramToken,
		redisClient,
		pgStorage,
		registry,
		ratesProvider,
		zapLogger,
		cfg,
	)
	if err != nil {
		zapLogger.Fatal("Failed to create bot", zap.Error(err))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ratesProvider.Run(gctx, cfg.RatesRefreshPeriod)
	})
	g.Go(func() error {
		return tgBot.Start(gctx)
	})

	if err := g.Wait(); err != nil {
		zapLogger.Fatal("Bot stopped with error", zap.Error(err))
	}

	zapLogger.Info("Bot shutdown gracefully")
}
