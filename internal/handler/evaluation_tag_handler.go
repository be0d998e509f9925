package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/JJediny/heimdall2/internal/dto"
	"github.com/JJediny/heimdall2/internal/service"
	"github.com/JJediny/heimdall2/internal/utils"
)

// EvaluationTagHandler wires evaluation tag HTTP routes.
type EvaluationTagHandler struct {
	service service.EvaluationTagService
	logger  zerolog.Logger
}

// NewEvaluationTagHandler constructs the handler.
func NewEvaluationTagHandler(service service.EvaluationTagService, logger zerolog.Logger) *EvaluationTagHandler {
	return &EvaluationTagHandler{
		service: service,
		logger:  logger.With().Str("component", "evaluation_tag_handler").Logger(),
	}
}

// Register attaches evaluation tag endpoints to the router group.
func (h *EvaluationTagHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:id", h.get)
	router.Post("/:evaluationId", h.create)
	router.Put("/:id", h.update)
	router.Delete("/:id", h.remove)
}

func (h *EvaluationTagHandler) list(c *fiber.Ctx) error {
	tags, err := h.service.FindAll(c.UserContext())
	if err != nil {
		return h.respondError(c, err)
	}

	return utils.SendSuccess(c, "evaluation tags retrieved", tags)
}

func (h *EvaluationTagHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	tag, err := h.service.FindByID(c.UserContext(), id)
	if err != nil {
		return h.respondError(c, err)
	}

	return utils.SendSuccess(c, "evaluation tag retrieved", tag)
}

func (h *EvaluationTagHandler) create(c *fiber.Ctx) error {
	evaluationID, err := parseUintParam(c, "evaluationId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.CreateEvaluationTagRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	tag, err := h.service.Create(c.UserContext(), evaluationID, payload)
	if err != nil {
		return h.respondError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "evaluation tag created", tag)
}

func (h *EvaluationTagHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.UpdateEvaluationTagRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	tag, err := h.service.Update(c.UserContext(), id, payload)
	if err != nil {
		return h.respondError(c, err)
	}

	return utils.SendSuccess(c, "evaluation tag updated", tag)
}

func (h *EvaluationTagHandler) remove(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	tag, err := h.service.Remove(c.UserContext(), id)
	if err != nil {
		return h.respondError(c, err)
	}

	return utils.SendSuccess(c, "evaluation tag deleted", tag)
}

func (h *EvaluationTagHandler) respondError(c *fiber.Ctx, err error) error {
	switch {
	case isValidationError(err):
		return sendValidationError(c, err)
	case errors.Is(err, service.ErrEvaluationTagNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "evaluation tag not found")
	case errors.Is(err, service.ErrReferentialViolation):
		return utils.SendError(c, fiber.StatusNotFound, "evaluation not found")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("evaluation tag request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to process evaluation tag request")
	}
}
