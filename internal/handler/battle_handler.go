package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/codearena/arena-go-api/internal/dto"
	"github.com/codearena/arena-go-api/internal/service"
	"github.com/codearena/arena-go-api/internal/utils"
	"github.com/codearena/arena-go-api/pkg/runner"
)

// BattleHandler exposes the competitive battle endpoints.
type BattleHandler struct {
	service   service.BattleService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewBattleHandler constructs the handler.
func NewBattleHandler(service service.BattleService, validator *validator.Validate, logger zerolog.Logger) *BattleHandler {
	return &BattleHandler{
		service:   service,
		validator: validator,
		logger:    logger.With().Str("component", "battle_handler").Logger(),
	}
}

// Register wires the handler endpoints into the router group.
func (h *BattleHandler) Register(router fiber.Router) {
	router.Post("", h.create)
	router.Get("/:id", h.get)
	router.Get("/:id/standings", h.standings)
	router.Post("/:id/invite/:userID", h.invite)
	router.Post("/:id/join", h.join)
	router.Post("/:id/submissions", h.submit)
	router.Post("/:id/give-up", h.giveUp)
	router.Post("/:id/winner", h.determineWinner)
}

func (h *BattleHandler) create(c *fiber.Ctx) error {
	var payload dto.BattleCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	ownerID := userIDFromContext(c)
	if ownerID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	battle, err := h.service.Create(c.Context(), ownerID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "battle created", battle)
}

func (h *BattleHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	battle, err := h.service.Get(c.Context(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "battle retrieved", battle)
}

func (h *BattleHandler) standings(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	standings, err := h.service.Standings(c.Context(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "standings retrieved", standings)
}

func (h *BattleHandler) invite(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	inviteeID, err := parseUintParam(c, "userID")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	ownerID := userIDFromContext(c)
	if ownerID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	if err := h.service.Invite(c.Context(), ownerID, id, inviteeID); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "invitation sent", nil)
}

func (h *BattleHandler) join(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	participant, err := h.service.Join(c.Context(), id, userID)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "battle joined", participant)
}

func (h *BattleHandler) submit(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.BattleSubmissionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	result, err := h.service.SubmitCode(c.Context(), id, userID, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "submission accepted", result)
}

func (h *BattleHandler) giveUp(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	userID := userIDFromContext(c)
	if userID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "unauthorized")
	}

	if err := h.service.GiveUp(c.Context(), id, userID); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "participant forfeited", nil)
}

func (h *BattleHandler) determineWinner(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	winner, err := h.service.DetermineWinner(c.Context(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "winner determined", winner)
}

// handleError maps service failures to HTTP statuses. Each admission rejection
// reason keeps its own message so clients can tell them apart.
func (h *BattleHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrBattleNotFound), errors.Is(err, service.ErrQuestionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrBattleClosed):
		return utils.SendError(c, fiber.StatusConflict, "battle is closed")
	case errors.Is(err, service.ErrSubmissionLimitReached):
		return utils.SendError(c, fiber.StatusConflict, "submission limit reached")
	case errors.Is(err, service.ErrParticipantGaveUp):
		return utils.SendError(c, fiber.StatusConflict, "participant gave up")
	case errors.Is(err, service.ErrBattleNotActive), errors.Is(err, service.ErrNoEligibleWinner):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, service.ErrAlreadyJoined):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, service.ErrNotInvited), errors.Is(err, service.ErrNotParticipant), errors.Is(err, service.ErrQuestionForbidden):
		return utils.SendError(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrNotCodingQuestion):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, runner.ErrUnsupportedLanguage):
		return utils.SendError(c, fiber.StatusBadRequest, "language not supported")
	case errors.Is(err, runner.ErrRunnerTimeout):
		return utils.SendError(c, fiber.StatusRequestTimeout, "code execution timed out")
	case errors.Is(err, runner.ErrRunnerUnavailable):
		return utils.SendError(c, fiber.StatusServiceUnavailable, "runner unavailable")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("battle operation failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
