package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sanjiv-madhavan/natours-api/cache"
	"github.com/sanjiv-madhavan/natours-api/constants"
	"github.com/sanjiv-madhavan/natours-api/controllers"
	"github.com/sanjiv-madhavan/natours-api/database"
	"github.com/sanjiv-madhavan/natours-api/env"
	"github.com/sanjiv-madhavan/natours-api/mailer"
	"github.com/sanjiv-madhavan/natours-api/middleware"
	"github.com/sanjiv-madhavan/natours-api/router"
	"github.com/sanjiv-madhavan/natours-api/server"
	"github.com/sanjiv-madhavan/natours-api/services"
	"github.com/sanjiv-madhavan/natours-api/utils"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		AddSource: true, // Enable adding filename and line number
	}))

	if err := run(ctx, logger); err != nil {
		logger.Error("Server exited with error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	settings, err := env.LoadEnvironment(ctx)
	if err != nil {
		return err
	}

	dbClient, err := database.NewMongoClient(ctx, logger, settings.MongoDBURL, settings.MongoDBName)
	if err != nil {
		return err
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := dbClient.Disconnect(disconnectCtx); err != nil {
			logger.Error("Failed to disconnect from database", slog.Any("error", err))
		}
	}()
	if err := dbClient.EnsureIndexes(ctx); err != nil {
		return err
	}

	checks := map[string]controllers.Pinger{"mongo": dbClient}

	var revoker services.Revoker = cache.NoopRevocationStore{}
	if settings.RedisAddr != "" {
		redisClient := cache.NewRedisClient(logger, settings.RedisAddr, settings.RedisPassword, settings.RedisDB)
		defer redisClient.Close()
		if err := redisClient.Ping(ctx); err != nil {
			return err
		}
		revoker = cache.NewRevocationStore(redisClient, settings.JWTExpiresIn)
		checks["redis"] = redisClient
	} else {
		logger.Warn("REDIS_ADDR not set, logout and session revocation are disabled")
	}

	var mail services.Mailer = mailer.NewLogMailer(logger)
	if settings.EmailHost != "" {
		mail = mailer.NewSMTPMailer(logger, settings.EmailHost, settings.EmailPort, settings.EmailUsername, settings.EmailPassword, settings.EmailFrom)
	}

	users := database.NewUserRepository(dbClient.OpenCollection(constants.UserCollection), logger)
	tours := database.NewTourRepository(dbClient.OpenCollection(constants.TourCollection), logger)
	tokens := utils.NewTokenManager(settings.SecretKey, settings.JWTExpiresIn, nil)
	auth := services.NewAuthService(logger, users, tokens, mail, revoker, settings.PasswordResetExpires)

	mw := middleware.NewMiddleware(logger, auth)
	controller := controllers.NewController(logger, mw, auth, tours, users, checks, settings.PublicURL)
	handler := router.CreateMuxRouter(logger, mw, controller, settings.CORSAllowedOrigins)

	srv := server.NewServer(handler, settings.HTTPServerPort, logger)
	if err := srv.Start(ctx); err != nil {
		return err
	}
	return srv.Wait(ctx)
}
