package main

import (
	"context"
	"fmt"

	"github.com/pixelbuilders001/whydesigns-backend-server/internal/api"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/api/handlers"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/cache"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/config"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/crypto"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/database"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/logging"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/middleware"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/services"
	"github.com/pixelbuilders001/whydesigns-backend-server/internal/services/distributedlock"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// buildDependencies assembles repositories, services and middleware for the
// route table. redisClient may be nil.
func buildDependencies(ctx context.Context, cfg *config.Config, db database.Database, redisClient *database.RedisClient, logger *logging.StandardLogger) (api.Dependencies, error) {
	if err := handlers.RegisterValidators(); err != nil {
		return api.Dependencies{}, fmt.Errorf("failed to register validators: %w", err)
	}

	userRepo := database.NewUserRepository(db)
	roleRepo := database.NewRoleRepository(db)
	otpRepo := database.NewOTPRepository(db)
	counselorRepo := database.NewCounselorRepository(db)
	bookingRepo := database.NewBookingRepository(db)

	mailer, err := services.NewMailer(ctx, cfg.Mail, cfg.AWS, logger.WithComponent("mail"))
	if err != nil {
		return api.Dependencies{}, fmt.Errorf("failed to initialize mailer: %w", err)
	}

	tokens := services.NewTokenService(cfg.Auth)
	otps := services.NewOTPService(otpRepo, services.NewOTPAttemptGuard(redisClient), services.OTPOptions{
		Length:         cfg.OTP.Length,
		TTL:            cfg.OTP.TTL,
		MaxAttempts:    cfg.OTP.MaxAttempts,
		ResendCooldown: cfg.OTP.ResendCooldown,
	}, logger.WithComponent("otp"))

	users := services.NewUserService(services.UserServiceDeps{
		Users:  userRepo,
		Roles:  roleRepo,
		OTPs:   otps,
		Mailer: mailer,
		Hasher: crypto.NewPasswordHasher(0),
		Tokens: tokens,
		Google: services.NewGoogleAuthClient(cfg.Google.ClientID),
		OTPTTL: cfg.OTP.TTL,
		Logger: logger.WithComponent("users"),
	})

	var (
		queryCache *cache.QueryResultCache
		locker     *distributedlock.Locker
	)
	if rc := redisOrNil(redisClient); rc != nil {
		queryCache = cache.NewQueryResultCache(rc, cfg.Cache.TTL)
		locker = distributedlock.NewLocker(rc)
	}

	calendar, err := services.NewCalendarClient(ctx, cfg.Calendar)
	if err != nil {
		logger.WithError(err).Warn("Calendar integration disabled")
		calendar = services.NoopCalendar{}
	}

	deps := api.Dependencies{
		Users:          users,
		Roles:          services.NewRoleService(roleRepo, logger.WithComponent("roles")),
		Counselors:     services.NewCounselorService(counselorRepo, userRepo, queryCache, logger.WithComponent("counselors")),
		Bookings:       services.NewBookingService(bookingRepo, counselorRepo, calendar, locker, logger.WithComponent("bookings")),
		Database:       db,
		Auth:           middleware.NewAuthMiddleware(tokens, userRepo, logger.WithComponent("auth").Logger()),
		OTPLimiter:     middleware.NewRateLimiter(middleware.OTPRateLimitConfig(cfg.RateLimit.OTPRequests, cfg.RateLimit.OTPWindow), redisOrNil(redisClient), logger.WithComponent("rate_limit").Logger()),
		MaxUploadBytes: cfg.Storage.MaxUploadSize,
		Version:        version,
		Logger:         logger,
		Cookies: handlers.CookieConfig{
			Secure:     cfg.Auth.CookieSecure || cfg.IsProduction(),
			AccessTTL:  cfg.Auth.AccessTTL,
			RefreshTTL: cfg.Auth.RefreshTTL,
		},
	}
	if redisClient != nil {
		deps.Redis = redisClient
	}

	if cfg.Storage.Bucket != "" {
		storage, err := services.NewS3Storage(cfg.Storage, cfg.AWS)
		if err != nil {
			return api.Dependencies{}, fmt.Errorf("failed to initialize storage: %w", err)
		}
		deps.Images = services.NewImageService(storage, cfg.Storage.MaxUploadSize, logger.WithComponent("images"))
	} else {
		logger.Warn("Storage bucket not configured, image routes disabled", zap.String("setting", "storage.bucket"))
	}

	return deps, nil
}

func redisOrNil(rc *database.RedisClient) *redis.Client {
	if rc == nil {
		return nil
	}
	return rc.Client
}
