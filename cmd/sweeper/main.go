// Standalone reservation-expiry sweeper. The API binary runs the sweeper
// in-process; this binary exists for deployments that prefer a dedicated
// worker, or for one-shot sweeps from cron.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"storefront/internal/cache"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/events"
	"storefront/internal/repository"
	"storefront/internal/sweeper"

	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	once := flag.Bool("once", false, "run a single sweep and exit")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := config.NewLogger(cfg.Logger)
	logger.Info().Bool("once", *once).Msg("starting storefront sweeper")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	redisCache := cache.New(cfg.Redis.Addr, logger)
	defer redisCache.Close()

	producer := events.NewProducer(cfg.Kafka.Brokers, 256, logger)
	producer.Start(ctx)

	orderRepo := repository.NewOrderRepository(pool, logger)
	productRepo := repository.NewProductRepository(pool, logger)

	sw := sweeper.New(orderRepo, productRepo, redisCache, producer, sweeper.SystemClock{},
		cfg.Sweep.Interval, cfg.Sweep.MaxAge, logger)

	if *once {
		if err := sw.SweepOnce(ctx); err != nil {
			return fmt.Errorf("sweep failed: %w", err)
		}
		cancel()
		producer.WaitClosed()
		return nil
	}

	done := make(chan struct{})
	go func() {
		sw.Run(ctx)
		close(done)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	sig := <-shutdown
	logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")

	cancel()
	<-done
	producer.WaitClosed()

	logger.Info().Msg("sweeper shutdown completed")
	return nil
}
