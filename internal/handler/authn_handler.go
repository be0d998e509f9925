package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/JJediny/heimdall2/internal/dto"
	"github.com/JJediny/heimdall2/internal/middleware"
	"github.com/JJediny/heimdall2/internal/service"
	"github.com/JJediny/heimdall2/internal/utils"
)

// AuthnHandler exposes login and session endpoints.
type AuthnHandler struct {
	gateway   service.AuthenticationGateway
	github    service.GitHubLoginService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewAuthnHandler constructs the authentication handler.
func NewAuthnHandler(gateway service.AuthenticationGateway, github service.GitHubLoginService, validator *validator.Validate, logger zerolog.Logger) *AuthnHandler {
	return &AuthnHandler{
		gateway:   gateway,
		github:    github,
		validator: validator,
		logger:    logger.With().Str("component", "authn_handler").Logger(),
	}
}

// Register wires authentication routes. requireSession guards the profile endpoint.
func (h *AuthnHandler) Register(router fiber.Router, requireSession fiber.Handler) {
	router.Post("/login", h.login)
	router.Get("/github", h.githubFlow)
	router.Get("/profile", requireSession, h.profile)
}

func (h *AuthnHandler) login(c *fiber.Ctx) error {
	var payload dto.LoginRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if err := h.validator.Struct(payload); err != nil {
		return sendValidationError(c, service.ValidationFromError(err))
	}

	session, err := h.gateway.LoginWithCredentials(c.UserContext(), payload.Username, payload.Password)
	if err != nil {
		return h.respondError(c, err)
	}

	return utils.SendSuccess(c, "login successful", session)
}

// githubFlow starts the OAuth redirect, or completes it when GitHub calls back with a code.
func (h *AuthnHandler) githubFlow(c *fiber.Ctx) error {
	var query dto.GitHubCallbackQuery
	if err := c.QueryParser(&query); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query")
	}

	if query.Code == "" {
		redirect, err := h.github.Begin(c.UserContext())
		if err != nil {
			return h.respondError(c, err)
		}
		return c.Redirect(redirect, fiber.StatusFound)
	}

	session, err := h.github.Complete(c.UserContext(), query.Code, query.State)
	if err != nil {
		return h.respondError(c, err)
	}

	return utils.SendSuccess(c, "login successful", session)
}

func (h *AuthnHandler) profile(c *fiber.Ctx) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return utils.SendError(c, fiber.StatusUnauthorized, "invalid session")
	}

	return utils.SendSuccess(c, "profile retrieved", dto.NewUserResponse(user))
}

func (h *AuthnHandler) respondError(c *fiber.Ctx, err error) error {
	switch {
	case isValidationError(err):
		return sendValidationError(c, err)
	case errors.Is(err, service.ErrInvalidCredentials):
		return utils.SendError(c, fiber.StatusUnauthorized, "invalid username or password")
	case errors.Is(err, service.ErrOAuthState):
		return utils.SendError(c, fiber.StatusBadRequest, "invalid or expired state")
	case errors.Is(err, service.ErrOAuthDisabled):
		return utils.SendError(c, fiber.StatusNotFound, "github login is not configured")
	case errors.Is(err, service.ErrOAuthProvider):
		requestLogger(h.logger, c).Warn().Err(err).Msg("identity provider failure")
		return utils.SendError(c, fiber.StatusBadGateway, "identity provider unavailable")
	case errors.Is(err, service.ErrConflict):
		return utils.SendError(c, fiber.StatusConflict, "account conflict")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("authentication failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "authentication failed")
	}
}
