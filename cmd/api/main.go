package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/auth"
	"storefront/internal/cache"
	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/events"
	"storefront/internal/handler"
	"storefront/internal/images"
	"storefront/internal/repository"
	"storefront/internal/router"
	"storefront/internal/service"
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
	// Load .env when present; real deployments set the environment directly.
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting storefront API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	// Apply the schema; every statement is idempotent
	if err := database.Migrate(ctx, pool, logger); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	// Initialize redis cache
	redisCache := cache.New(cfg.Redis.Addr, logger)
	defer redisCache.Close()
	if err := redisCache.Ping(ctx); err != nil {
		logger.Warn().Err(err).Msg("redis unreachable at startup, continuing without cache acceleration")
	}

	// Initialize kafka producer for notification events
	producer := events.NewProducer(cfg.Kafka.Brokers, 256, logger)
	producer.Start(ctx)

	// Initialize product image store with S3 and local fallback
	var imageStore images.Store
	if cfg.Images.S3Enabled {
		s3Store, err := images.NewS3Store(ctx, cfg.Images.S3Bucket, cfg.Images.S3Region, cfg.Images.S3Prefix, logger)
		if err != nil {
			logger.Warn().
				Err(err).
				Msg("failed to initialise S3 image store, falling back to local file system")
			imageStore = images.NewFileStore(cfg.Images.LocalDir, logger)
		} else {
			imageStore = s3Store
		}
	} else {
		imageStore = images.NewFileStore(cfg.Images.LocalDir, logger)
		logger.Info().Msg("using local file system for product images (S3 disabled)")
	}

	// Initialize repositories
	productRepo := repository.NewProductRepository(pool, logger)
	cartRepo := repository.NewCartRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	paymentRepo := repository.NewPaymentRepository(pool, logger)

	// Initialize services
	productService := service.NewProductService(productRepo, imageStore, producer, logger)
	cartService := service.NewCartService(cartRepo, productRepo, logger)
	orderService := service.NewOrderService(orderRepo, productRepo, cartRepo, paymentRepo, redisCache, producer, logger)
	paymentService := service.NewPaymentService(paymentRepo, orderRepo, productRepo, redisCache, producer, logger)

	// Initialize HTTP handlers
	productHandler := handler.NewProductHandler(productService, logger)
	cartHandler := handler.NewCartHandler(cartService, logger)
	orderHandler := handler.NewOrderHandler(orderService, logger)
	paymentHandler := handler.NewPaymentHandler(paymentService, logger)

	// Initialize router
	mux := router.New(router.Deps{
		Products: productHandler,
		Carts:    cartHandler,
		Orders:   orderHandler,
		Payments: paymentHandler,
		Verifier: auth.NewVerifier(cfg.Auth.JWTSecret),
		Cache:    redisCache,
		Logger:   logger,
	})

	// Run the reservation-expiry sweeper alongside the API
	sw := sweeper.New(orderRepo, productRepo, redisCache, producer, sweeper.SystemClock{},
		cfg.Sweep.Interval, cfg.Sweep.MaxAge, logger)
	go sw.Run(ctx)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		// Create a context with timeout for shutdown
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		// Attempt graceful shutdown
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			// Force close
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		// Stop the sweeper and flush queued notification events
		cancel()
		producer.WaitClosed()

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}
