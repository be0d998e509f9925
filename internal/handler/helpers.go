package handler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/JJediny/heimdall2/internal/middleware"
	"github.com/JJediny/heimdall2/internal/service"
	"github.com/JJediny/heimdall2/internal/utils"
)

// parseUintParam reads a positive integer path parameter.
func parseUintParam(c *fiber.Ctx, name string) (uint, error) {
	raw := strings.TrimSpace(c.Params(name))
	if raw == "" {
		return 0, fmt.Errorf("%s is required", name)
	}

	parsed, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || parsed == 0 {
		return 0, fmt.Errorf("%s must be a positive integer", name)
	}
	return uint(parsed), nil
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

func isValidationError(err error) bool {
	return errors.Is(err, service.ErrValidation)
}

// sendValidationError responds 400 with per-field details when available.
func sendValidationError(c *fiber.Ctx, err error) error {
	var validationErr *service.ValidationError
	if errors.As(err, &validationErr) && len(validationErr.Fields) > 0 {
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", validationErr.Fields)
	}
	return utils.SendError(c, fiber.StatusBadRequest, "validation failed")
}
