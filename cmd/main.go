package main

import (
	"context"

	"vendor-service/internal/handler"
	"vendor-service/internal/lock"
	"vendor-service/internal/middleware"
	"vendor-service/internal/performance"
	"vendor-service/internal/store"
	"vendor-service/pkg/config"
	"vendor-service/pkg/database"
	"vendor-service/pkg/jwtutil"
	"vendor-service/pkg/logger"
	"vendor-service/prometheus"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	logger.InitLogger(cfg)
	log := logger.GetLogger()
	log.Info("Starting vendor service...", cfg.LogConfig()...)

	// Initialize JWT utilities
	jwtutil.Initialize(&cfg.JWT)
	log.Info("JWT utilities initialized")

	// Initialize Prometheus metrics
	prometheus.InitMetrics(cfg)
	log.Info("Prometheus metrics initialized")

	// Initialize database and run migrations
	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established and migrations completed",
		zap.String("db_driver", cfg.DB.Driver),
		zap.String("db_name", cfg.DB.DBName))

	// Vendor locks serialize recomputes per vendor
	locker := newLocker(cfg, log)

	basis, err := performance.ParseFulfillmentBasis(cfg.Performance.FulfillmentBasis)
	if err != nil {
		log.Fatal("Invalid fulfillment basis", zap.Error(err))
	}
	engine := performance.NewEngine(performance.WithFulfillmentBasis(basis))
	vendorStore := store.New(db, engine, locker)
	log.Info("Performance engine initialized",
		zap.String("fulfillment_basis", string(vendorStore.Engine().Basis())))

	// Wire handlers to the store
	handler.InitHandlers(vendorStore, cfg.Performance.RecomputeWorkers)

	// Backfill KPIs and history for existing orders
	if cfg.Performance.RecomputeOnStart {
		n, err := vendorStore.RecomputeAll(logger.WithLogger(context.Background(), log), cfg.Performance.RecomputeWorkers)
		if err != nil {
			log.Fatal("Failed to recompute vendors on start", zap.Int("recomputed", n), zap.Error(err))
		}
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()

	// Middleware
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(middleware.RequestLoggerMiddleware)
	e.Use(middleware.MetricsMiddleware)

	// Public routes
	e.GET("/", handler.Hello)
	e.GET("/health", handler.Hello)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// API routes that require authentication
	api := e.Group("/api")
	api.Use(middleware.AuthMiddleware)
	handler.RegisterRoutes(api)

	// Start server
	port := cfg.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}

// newLocker uses redis when configured so replicas share vendor locks,
// and an in-process keyed mutex otherwise.
func newLocker(cfg *config.Config, log *zap.Logger) lock.Locker {
	if cfg.Redis.Address == "" {
		log.Info("Using in-process vendor locks")
		return lock.NewKeyedMutex()
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatal("Failed to connect to redis", zap.String("address", cfg.Redis.Address), zap.Error(err))
	}

	log.Info("Using redis vendor locks",
		zap.String("address", cfg.Redis.Address),
		zap.Duration("ttl", cfg.Lock.TTL),
		zap.Duration("wait_timeout", cfg.Lock.WaitTimeout))
	return lock.NewRedisLocker(rdb, cfg.Lock.TTL, cfg.Lock.WaitTimeout, log)
}
