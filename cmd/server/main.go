package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/api"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/config"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/database"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/logging"
	zaplogrus "github.com/pixelbuilders001/whydesigns-backend-server/internal/logging/zaplogrus"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/middleware"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/observability"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/utils"
	"go.uber.org/zap"
)

const serviceName = "whydesigns-backend-api"

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "seed":
			if err := runSeeder(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "Seeding failed: %v\n", err)
				os.Exit(1)
			}
			return
		case "migrate":
			if err := runMigrate(os.Args[2:]); err != nil {
				fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
				os.Exit(1)
			}
			return
		}
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Application failed: %v\n", err)
		os.Exit(1)
	}
}

// run starts the API and blocks until SIGINT or SIGTERM.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := observability.InitSentry(cfg.Sentry, version, cfg.Environment); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize Sentry: %v\n", err)
	}
	defer observability.Flush(context.Background())

	logger := newLogger(cfg)
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := openDatabase(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.WithError(err).Error("Failed to close database connection")
		}
	}()

	redisClient, err := database.NewRedisConnection(ctx, cfg.Redis, 3)
	if err != nil {
		logger.WithError(err).Warn("Redis unavailable, continuing without Redis-backed features")
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	deps, err := buildDependencies(ctx, cfg, db, redisClient, logger)
	if err != nil {
		return err
	}

	router := newRouter(cfg, redisClient, logger)
	api.SetupRoutes(router, deps)

	srv := &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.LogStartup(serviceName, version, cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.LogShutdown(serviceName, sig.String())
	case err := <-serverErr:
		observability.CaptureError(ctx, err, map[string]string{"component": "http_server"})
		logger.LogShutdown(serviceName, "listener failed")
		return fmt.Errorf("server failed: %w", err)
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("Server exited gracefully")
	return nil
}

// newLogger builds the zap logger and routes the logrus facade used by the
// database layer through it.
func newLogger(cfg *config.Config) *logging.StandardLogger {
	logger := logging.NewStandardLogger(cfg.LogLevel, cfg.Environment).WithService(serviceName)
	zaplogrus.ReplaceStandard(zaplogrus.FromZap(logger.WithComponent("infra").Logger(), logging.ParseLogrusLevel(cfg.LogLevel)))
	return logger
}

// openDatabase connects and applies pending migrations.
func openDatabase(ctx context.Context, cfg *config.Config, logger *logging.StandardLogger) (database.Database, error) {
	db, err := database.NewDatabaseConnectionWithContext(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	applied, err := database.Migrate(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	fields := []zap.Field{
		zap.String("driver", string(database.DetectDBType(cfg.Database.Driver))),
		zap.Int("migrations_applied", applied),
	}
	if cfg.Database.DatabaseURL != "" {
		fields = append(fields, zap.String("url", utils.MaskConnectionString(cfg.Database.DatabaseURL)))
	}
	logger.Info("Database ready", fields...)
	return db, nil
}

func newRouter(cfg *config.Config, redisClient *database.RedisClient, logger *logging.StandardLogger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestID(), middleware.RequestLogger(logger))
	if cfg.Sentry.Enabled && cfg.Sentry.DSN != "" {
		router.Use(middleware.Telemetry())
	}
	router.Use(gin.Recovery(), middleware.CORS(cfg.Server.AllowedOrigins))

	limitConfig := middleware.DefaultRateLimitConfig()
	if cfg.RateLimit.Requests > 0 {
		limitConfig.Requests = cfg.RateLimit.Requests
	}
	if cfg.RateLimit.Window > 0 {
		limitConfig.Window = cfg.RateLimit.Window
	}
	router.Use(middleware.NewRateLimiter(limitConfig, redisOrNil(redisClient), logger.WithComponent("rate_limit").Logger()).Middleware())
	return router
}
