package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// RateLimitedResponse is the body returned once a client exhausts its window.
type RateLimitedResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// LoginRateLimit applies a fixed-window limit per client IP.
func LoginRateLimit(max int, window time.Duration) fiber.Handler {
	if max <= 0 {
		max = 20
	}
	if window <= 0 {
		window = time.Minute
	}

	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return fmt.Sprintf("login:%s", c.IP())
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(RateLimitedResponse{
				Status:  fiber.StatusTooManyRequests,
				Message: "Too Many Requests",
				Error:   "Ratelimited",
			})
		},
	})
}
