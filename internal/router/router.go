package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/JJediny/heimdall2/internal/config"
	"github.com/JJediny/heimdall2/internal/handler"
	"github.com/JJediny/heimdall2/internal/middleware"
	"github.com/JJediny/heimdall2/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthnHandler         *handler.AuthnHandler
	UserHandler          *handler.UserHandler
	EvaluationTagHandler *handler.EvaluationTagHandler
	SessionMiddleware    fiber.Handler
	LoginRateLimiter     fiber.Handler
}

// FiberConfig builds the application settings derived from runtime config.
// The proxy header is only honoured from trusted proxies when any are listed.
func FiberConfig(cfg config.Config) fiber.Config {
	return fiber.Config{
		AppName:                 cfg.AppName,
		ServerHeader:            cfg.AppName,
		BodyLimit:               cfg.BodyLimit,
		ProxyHeader:             cfg.ProxyHeader,
		EnableTrustedProxyCheck: len(cfg.TrustedProxies) > 0,
		TrustedProxies:          cfg.TrustedProxies,
	}
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	app.Get("/metrics", observability.MetricsHandler())

	sessionMiddleware := deps.SessionMiddleware
	if sessionMiddleware == nil {
		sessionMiddleware = func(c *fiber.Ctx) error {
			return fiber.ErrUnauthorized
		}
	}

	loginLimiter := deps.LoginRateLimiter
	if loginLimiter == nil {
		loginLimiter = middleware.LoginRateLimit(cfg.LoginRateLimitMax, cfg.LoginRateLimitWindow)
	}

	if deps.AuthnHandler != nil {
		authn := app.Group("/authn")
		// The limiter counts every attempt, successful or not.
		authn.Use("/login", loginLimiter)
		deps.AuthnHandler.Register(authn, sessionMiddleware)
	}

	if deps.UserHandler != nil {
		deps.UserHandler.Register(app.Group("/users"))
	}

	if deps.EvaluationTagHandler != nil {
		deps.EvaluationTagHandler.Register(app.Group("/evaluation-tags", sessionMiddleware))
	}
}
