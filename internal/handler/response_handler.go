package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/codearena/arena-go-api/internal/dto"
	"github.com/codearena/arena-go-api/internal/models"
	"github.com/codearena/arena-go-api/internal/service"
	"github.com/codearena/arena-go-api/internal/utils"
)

// ResponseHandler exposes the response ledger endpoints. Grading lives here
// too: a grade is always requested for a concrete response.
type ResponseHandler struct {
	responses service.ResponseService
	questions service.QuestionService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewResponseHandler constructs the handler.
func NewResponseHandler(responses service.ResponseService, questions service.QuestionService, validator *validator.Validate, logger zerolog.Logger) *ResponseHandler {
	return &ResponseHandler{
		responses: responses,
		questions: questions,
		validator: validator,
		logger:    logger.With().Str("component", "response_handler").Logger(),
	}
}

// Register wires the handler endpoints into the router group.
func (h *ResponseHandler) Register(router fiber.Router) {
	router.Post("", h.create)
	router.Get("/:id", h.get)
	router.Post("/:id/bind/:questionID", h.bind)
	router.Post("/:id/grade", h.grade)
	router.Post("/:id/review", h.review)
}

// RegisterActivityRoutes wires the activity-scoped endpoints.
func (h *ResponseHandler) RegisterActivityRoutes(router fiber.Router) {
	router.Post("/:id/retroact", h.retroact)
}

func (h *ResponseHandler) create(c *fiber.Ctx) error {
	var payload dto.ResponseCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	response, err := h.responses.Create(c.Context(), userID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "response recorded", response)
}

func (h *ResponseHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.responses.Get(c.Context(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "response retrieved", response)
}

func (h *ResponseHandler) bind(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	questionID, err := parseUintParam(c, "questionID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.responses.BindQuestion(c.Context(), id, questionID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "response bound", response)
}

func (h *ResponseHandler) grade(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	feedback, err := h.questions.Grade(c.Context(), currentUser(c), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "response graded", feedback)
}

func (h *ResponseHandler) review(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	review, err := h.responses.Review(c.Context(), id, userRoleFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "response reviewed", review)
}

func (h *ResponseHandler) retroact(c *fiber.Ctx) error {
	activityID, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	linked, err := h.responses.Retroact(c.Context(), activityID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "responses retroacted", fiber.Map{
		"linked": linked,
		"count":  len(linked),
	})
}

func (h *ResponseHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrResponseNotFound), errors.Is(err, service.ErrQuestionNotFound), errors.Is(err, service.ErrActivityNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrInvalidBinding):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, models.ErrGradingUnsupported):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, service.ErrQuestionNotGradable):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, service.ErrReviewForbidden):
		return utils.SendError(c, fiber.StatusForbidden, "forbidden")
	case errors.Is(err, service.ErrReviewerUnavailable):
		return utils.SendError(c, fiber.StatusServiceUnavailable, "reviewer unavailable")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("response operation failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
