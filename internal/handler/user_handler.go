package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/JJediny/heimdall2/internal/dto"
	"github.com/JJediny/heimdall2/internal/service"
	"github.com/JJediny/heimdall2/internal/utils"
)

// UserHandler handles local account registration.
type UserHandler struct {
	gateway service.AuthenticationGateway
	logger  zerolog.Logger
}

// NewUserHandler constructs a user handler.
func NewUserHandler(gateway service.AuthenticationGateway, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		gateway: gateway,
		logger:  logger.With().Str("component", "user_handler").Logger(),
	}
}

// Register wires user routes.
func (h *UserHandler) Register(router fiber.Router) {
	router.Post("", h.create)
}

func (h *UserHandler) create(c *fiber.Ctx) error {
	var payload dto.RegisterRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	user, err := h.gateway.Register(c.UserContext(), payload)
	if err != nil {
		switch {
		case isValidationError(err):
			return sendValidationError(c, err)
		case errors.Is(err, service.ErrConflict):
			return utils.SendError(c, fiber.StatusConflict, "username already taken")
		default:
			requestLogger(h.logger, c).Error().Err(err).Msg("failed to register user")
			return utils.SendError(c, fiber.StatusInternalServerError, "failed to register user")
		}
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "user created", user)
}
