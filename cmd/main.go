package main

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/AldJayR/DormFinder/config"
	"github.com/AldJayR/DormFinder/db"
	"github.com/AldJayR/DormFinder/internal/auth/fingerprint"
	authhandler "github.com/AldJayR/DormFinder/internal/auth/handler"
	authrepo "github.com/AldJayR/DormFinder/internal/auth/repository/postgres"
	authservice "github.com/AldJayR/DormFinder/internal/auth/service"
	"github.com/AldJayR/DormFinder/internal/auth/store"
	"github.com/AldJayR/DormFinder/internal/auth/token"
	bookinghandler "github.com/AldJayR/DormFinder/internal/booking/handler"
	bookingrepo "github.com/AldJayR/DormFinder/internal/booking/repository/postgres"
	bookingservice "github.com/AldJayR/DormFinder/internal/booking/service"
)

func main() {
	cfg := config.Load()

	logger := newLogger(cfg.Env)
	defer logger.Sync() //nolint:errcheck

	if err := db.RunMigrations(cfg.MigrationsPath, cfg.DBURL); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbPool, err := db.NewPostgresPool(ctx, cfg.DBURL)
	if err != nil {
		logger.Fatal("postgres unavailable", zap.Error(err))
	}
	defer dbPool.Close()

	redisClient, err := store.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Fatal("redis unavailable", zap.Error(err))
	}
	defer redisClient.Close()

	fingerprintKey, err := cfg.FingerprintKey()
	if err != nil {
		logger.Fatal("bad encryption key", zap.Error(err))
	}
	sealer, err := fingerprint.NewSealer(fingerprintKey, logger)
	if err != nil {
		logger.Fatal("sealer init failed", zap.Error(err))
	}

	codec := token.NewCodec(cfg.AccessTokenSecret, cfg.RefreshTokenSecret,
		cfg.AccessExpiryMin, cfg.RefreshExpiryMin)
	tokens := authservice.NewTokenService(codec, sealer, cfg.MaxRefreshUses)

	revocations := store.NewRedisRevocationStore(redisClient)
	failures := store.NewRedisFailureCounterStore(redisClient)
	availability := store.NewRedisAvailabilityCache(redisClient)

	userRepo := authrepo.NewUserRepository(dbPool)
	bookingRepo := bookingrepo.NewBookingRepository(dbPool)

	authenticator := authservice.NewAuthenticator(tokens, userRepo, revocations, failures,
		authservice.HourWindowPolicy(cfg.AccessHourStart, cfg.AccessHourEnd),
		cfg.AccessTokenSecret, cfg.LoginMaxAttempts,
		time.Duration(cfg.LoginWindowMinutes)*time.Minute, logger)
	userService := authservice.NewUserService(userRepo, tokens, authenticator,
		revocations, cfg.AccessTokenSecret, logger)
	bookingService := bookingservice.NewBookingService(bookingRepo, availability, logger)

	authHandler := authhandler.NewAuthHandler(userService, authhandler.CookieOptions{
		Domain: cfg.CookieDomain,
		Secure: cfg.CookieSecure,
	})
	bookingHandler := bookinghandler.NewBookingHandler(bookingService)
	mw := authhandler.NewMiddleware(authenticator)

	app := fiber.New()
	app.Use(authhandler.SecurityHeaders())
	authhandler.RegisterRoutes(app, authHandler, mw)
	bookinghandler.RegisterRoutes(app, bookingHandler, mw)

	logger.Info("listening", zap.String("port", cfg.Port))
	if err := app.Listen(":" + cfg.Port); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func newLogger(env string) *zap.Logger {
	if env == "production" {
		logger, err := zap.NewProduction()
		if err != nil {
			panic(err)
		}
		return logger
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	return logger
}
