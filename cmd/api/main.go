package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/JJediny/heimdall2/internal/auth"
	"github.com/JJediny/heimdall2/internal/config"
	"github.com/JJediny/heimdall2/internal/database"
	"github.com/JJediny/heimdall2/internal/handler"
	"github.com/JJediny/heimdall2/internal/middleware"
	"github.com/JJediny/heimdall2/internal/repository"
	"github.com/JJediny/heimdall2/internal/router"
	"github.com/JJediny/heimdall2/internal/service"
	"github.com/JJediny/heimdall2/pkg/github"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()

	// Refuse to serve without usable signing material.
	issuer, err := auth.NewSessionIssuer(auth.SessionConfig{
		Secret: cfg.JWTSecret,
		Issuer: cfg.JWTIssuer,
		TTL:    cfg.SessionTTL,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure session issuer")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	if err := repository.AutoMigrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	natsConn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to nats")
	}
	if natsConn != nil {
		defer natsConn.Close()
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	hasher := auth.NewPasswordHasher(0)
	events := service.NewNATSEventPublisher(natsConn, cfg.NATSSubject, logger)

	userRepo := repository.NewUserRepository(db)
	tagRepo := repository.NewEvaluationTagRepository(db)

	verifier := service.NewCredentialVerifier(userRepo, hasher, logger)
	resolver := service.NewFederatedIdentityResolver(userRepo, logger)
	gateway := service.NewAuthenticationGateway(verifier, resolver, issuer, userRepo, hasher, validate, events, logger)
	tagService := service.NewEvaluationTagService(tagRepo, validate, events, logger)

	githubLogin := service.NewGitHubLoginService(nil, nil, gateway, logger)
	if cfg.GitHubEnabled() {
		redisClient, err := database.ConnectRedis(context.Background(), cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()

		githubClient, err := github.New(github.Config{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			RedirectURL:  cfg.GitHubCallbackURL,
			Scopes:       cfg.GitHubScopes,
		}, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create github client")
		}

		states := service.NewRedisOAuthStateStore(redisClient, cfg.OAuthStateTTL)
		githubLogin = service.NewGitHubLoginService(githubClient, states, gateway, logger)
	} else {
		logger.Info().Msg("github login disabled")
	}

	app := fiber.New(router.FiberConfig(cfg))

	middleware.Register(app, middleware.Config{Logger: &logger, AllowOrigins: cfg.CORSAllowOrigins})
	router.Register(app, cfg, router.Dependencies{
		AuthnHandler:         handler.NewAuthnHandler(gateway, githubLogin, validate, logger),
		UserHandler:          handler.NewUserHandler(gateway, logger),
		EvaluationTagHandler: handler.NewEvaluationTagHandler(tagService, logger),
		SessionMiddleware:    middleware.RequireSession(gateway),
		LoginRateLimiter:     middleware.LoginRateLimit(cfg.LoginRateLimitMax, cfg.LoginRateLimitWindow),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(app, logger)
}

func waitForShutdown(app *fiber.App, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
