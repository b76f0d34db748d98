package handler

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/codearena/arena-go-api/internal/dto"
	"github.com/codearena/arena-go-api/internal/models"
	"github.com/codearena/arena-go-api/internal/repository"
	"github.com/codearena/arena-go-api/internal/service"
	"github.com/codearena/arena-go-api/internal/utils"
)

// QuestionHandler exposes the question catalog endpoints.
type QuestionHandler struct {
	service   service.QuestionService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewQuestionHandler constructs the handler.
func NewQuestionHandler(service service.QuestionService, validator *validator.Validate, logger zerolog.Logger) *QuestionHandler {
	return &QuestionHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "question_handler").Logger(),
	}
}

// Register wires the handler endpoints into the router group.
func (h *QuestionHandler) Register(router fiber.Router) {
	router.Post("", h.create)
	router.Post("/import", h.importQuestion)
	router.Get("", h.list)
	router.Get("/:id", h.get)
	router.Put("/:id", h.update)
	router.Delete("/:id", h.deactivate)
	router.Get("/:id/export", h.export)
}

func (h *QuestionHandler) create(c *fiber.Ctx) error {
	var payload dto.QuestionCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	user := currentUser(c)
	if user == nil {
		return utils.SendError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	response, err := h.service.Create(c.Context(), user, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "question created", response)
}

func (h *QuestionHandler) importQuestion(c *fiber.Ctx) error {
	user := currentUser(c)
	if user == nil {
		return utils.SendError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	response, err := h.service.Import(c.Context(), user, c.Body())
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "question imported", response)
}

func (h *QuestionHandler) list(c *fiber.Ctx) error {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page_size")
	}

	query := repository.QuestionQuery{
		Kind:       strings.TrimSpace(c.Query("kind")),
		OnlyActive: c.QueryBool("active", true),
		Page:       page,
		PageSize:   pageSize,
	}

	questions, total, err := h.service.List(c.Context(), query)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "questions retrieved", fiber.Map{
		"items": questions,
		"total": total,
	})
}

func (h *QuestionHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.service.Get(c.Context(), currentUser(c), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "question retrieved", response)
}

func (h *QuestionHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.QuestionCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	user := currentUser(c)
	if user == nil {
		return utils.SendError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	response, err := h.service.Update(c.Context(), user, id, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "question updated", response)
}

func (h *QuestionHandler) deactivate(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	user := currentUser(c)
	if user == nil {
		return utils.SendError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	if err := h.service.Deactivate(c.Context(), user, id); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "question deactivated", nil)
}

func (h *QuestionHandler) export(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	export, err := h.service.Export(c.Context(), currentUser(c), id, c.Query("format", "json"))
	if err != nil {
		return h.handleError(c, err)
	}

	c.Set(fiber.HeaderContentType, export.ContentType)
	return c.SendString(export.Content)
}

func (h *QuestionHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrQuestionNotFound), errors.Is(err, service.ErrResponseNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrQuestionForbidden), errors.Is(err, service.ErrNotTeacher):
		return utils.SendError(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrQuestionNotGradable):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, models.ErrGradingUnsupported):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, models.ErrInvalidBinding):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("question operation failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}

func currentUser(c *fiber.Ctx) *models.User {
	id := userIDFromContext(c)
	if id == 0 {
		return nil
	}
	return &models.User{ID: id, Role: userRoleFromContext(c)}
}
