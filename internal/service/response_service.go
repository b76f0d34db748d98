package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/codearena/arena-go-api/internal/dto"
	"github.com/codearena/arena-go-api/internal/models"
	"github.com/codearena/arena-go-api/internal/repository"
	"github.com/codearena/arena-go-api/pkg/ai"
)

// ErrResponseNotFound indicates the response cannot be located.
var ErrResponseNotFound = errors.New("response not found")

// ErrActivityNotFound indicates the activity cannot be located.
var ErrActivityNotFound = errors.New("activity not found")

// ErrReviewerUnavailable indicates no AI reviewer is configured.
var ErrReviewerUnavailable = errors.New("reviewer unavailable")

// ErrReviewForbidden indicates the caller may not request a review.
var ErrReviewForbidden = errors.New("forbidden")

// ResponseService exposes the response ledger operations.
type ResponseService interface {
	Create(ctx context.Context, userID uint, payload dto.ResponseCreateRequest) (dto.ResponseDetail, error)
	Get(ctx context.Context, id uint) (dto.ResponseDetail, error)
	BindQuestion(ctx context.Context, responseID, questionID uint) (dto.ResponseDetail, error)
	Retroact(ctx context.Context, activityID uint) ([]dto.ResponseDetail, error)
	Review(ctx context.Context, responseID uint, role string) (dto.ReviewResponse, error)
}

type responseService struct {
	responses  repository.ResponseRepository
	questions  repository.QuestionRepository
	activities repository.ActivityRepository
	reviewer   ai.Reviewer
	validator  *validator.Validate
	logger     zerolog.Logger
}

// NewResponseService constructs a response service.
func NewResponseService(responseRepo repository.ResponseRepository, questionRepo repository.QuestionRepository, activityRepo repository.ActivityRepository, reviewer ai.Reviewer, validate *validator.Validate, logger zerolog.Logger) ResponseService {
	return &responseService{
		responses:  responseRepo,
		questions:  questionRepo,
		activities: activityRepo,
		reviewer:   reviewer,
		validator:  validate,
		logger:     logger.With().Str("component", "response_service").Logger(),
	}
}

func (s *responseService) Create(ctx context.Context, userID uint, payload dto.ResponseCreateRequest) (dto.ResponseDetail, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ResponseDetail{}, err
	}
	if (payload.QuestionID == nil) == (payload.ActivityID == nil) {
		return dto.ResponseDetail{}, models.ErrInvalidBinding
	}

	if payload.QuestionID != nil {
		if _, err := s.questions.GetByID(ctx, *payload.QuestionID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return dto.ResponseDetail{}, ErrQuestionNotFound
			}
			return dto.ResponseDetail{}, err
		}
	}
	if payload.ActivityID != nil {
		if _, err := s.activities.GetByID(ctx, *payload.ActivityID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return dto.ResponseDetail{}, ErrActivityNotFound
			}
			return dto.ResponseDetail{}, err
		}
	}

	response := models.Response{
		UserID:               userID,
		Kind:                 payload.Kind,
		Value:                payload.Value,
		ValueBool:            payload.ValueBool,
		ValueText:            payload.ValueText,
		QuestionForUnboundID: payload.QuestionID,
		ActivityID:           payload.ActivityID,
	}
	if err := s.responses.Create(ctx, &response); err != nil {
		return dto.ResponseDetail{}, err
	}

	return dto.NewResponseDetail(response), nil
}

func (s *responseService) Get(ctx context.Context, id uint) (dto.ResponseDetail, error) {
	response, err := s.load(ctx, id)
	if err != nil {
		return dto.ResponseDetail{}, err
	}
	return dto.NewResponseDetail(response), nil
}

// BindQuestion sets the question reference on an unbound response. Rebinding an
// activity-scoped response to a different question fails with ErrInvalidBinding.
func (s *responseService) BindQuestion(ctx context.Context, responseID, questionID uint) (dto.ResponseDetail, error) {
	response, err := s.load(ctx, responseID)
	if err != nil {
		return dto.ResponseDetail{}, err
	}

	if _, err := s.questions.GetByID(ctx, questionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ResponseDetail{}, ErrQuestionNotFound
		}
		return dto.ResponseDetail{}, err
	}

	if err := response.BindQuestion(questionID); err != nil {
		return dto.ResponseDetail{}, err
	}
	if !response.IsBound() {
		if err := s.responses.Update(ctx, &response); err != nil {
			return dto.ResponseDetail{}, err
		}
	}

	return dto.NewResponseDetail(response), nil
}

// Retroact links the question's unbound responses to the given activity: each
// one that is not already referenced as a parent by an activity-scoped response
// gets a new activity-bound child response pointing back at it. The difference
// is computed by primary key so responses never get linked twice.
func (s *responseService) Retroact(ctx context.Context, activityID uint) ([]dto.ResponseDetail, error) {
	activity, err := s.activities.GetByID(ctx, activityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrActivityNotFound
		}
		return nil, err
	}

	siblings, err := s.activities.ListByQuestion(ctx, activity.QuestionID)
	if err != nil {
		return nil, err
	}
	activityIDs := make([]uint, 0, len(siblings))
	for _, sibling := range siblings {
		activityIDs = append(activityIDs, sibling.ID)
	}

	retroactedIDs, err := s.responses.ListRetroactedParentIDs(ctx, activityIDs)
	if err != nil {
		return nil, err
	}
	retroacted := make(map[uint]struct{}, len(retroactedIDs))
	for _, id := range retroactedIDs {
		retroacted[id] = struct{}{}
	}

	unbound, err := s.responses.ListUnboundByQuestion(ctx, activity.QuestionID)
	if err != nil {
		return nil, err
	}

	var linked []dto.ResponseDetail
	for _, original := range unbound {
		if _, done := retroacted[original.ID]; done {
			continue
		}

		parentID := original.ID
		child := models.Response{
			UserID:       original.UserID,
			Kind:         original.Kind,
			Value:        original.Value,
			ValueBool:    original.ValueBool,
			ValueText:    original.ValueText,
			ActivityID:   &activity.ID,
			ParentID:     &parentID,
			Grade:        original.Grade,
			FeedbackData: original.FeedbackData,
		}
		if err := s.responses.Create(ctx, &child); err != nil {
			return linked, err
		}
		linked = append(linked, dto.NewResponseDetail(child))
	}

	s.logger.Info().Uint("activity_id", activityID).Int("linked", len(linked)).Msg("retroacted unbound responses")
	return linked, nil
}

// Review asks the configured AI reviewer for qualitative feedback on a coding
// response's latest run.
func (s *responseService) Review(ctx context.Context, responseID uint, role string) (dto.ReviewResponse, error) {
	role = strings.ToLower(strings.TrimSpace(role))
	if role != "teacher" && role != "admin" {
		return dto.ReviewResponse{}, ErrReviewForbidden
	}
	if s.reviewer == nil {
		return dto.ReviewResponse{}, ErrReviewerUnavailable
	}

	response, err := s.load(ctx, responseID)
	if err != nil {
		return dto.ReviewResponse{}, err
	}
	item := response.LastItem()
	if response.Kind != models.QuestionKindCoding || item == nil {
		return dto.ReviewResponse{}, models.ErrGradingUnsupported
	}

	var question models.Question
	if questionID := response.QuestionBaseID(); questionID != 0 {
		question, err = s.questions.GetByID(ctx, questionID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ReviewResponse{}, err
		}
	}

	result, err := s.reviewer.Review(ctx, ai.ReviewInput{
		QuestionTitle:  question.Title,
		Prompt:         question.LongDescription,
		Language:       question.Language,
		Source:         item.Source,
		Output:         item.Stdout,
		ExpectedOutput: question.ExpectedOutput,
	})
	if err != nil {
		return dto.ReviewResponse{}, err
	}

	return dto.ReviewResponse{
		Score:    result.Score,
		Verdict:  result.Verdict,
		Feedback: result.Feedback,
		Details:  result.Details,
		Provider: s.providerName(),
	}, nil
}

func (s *responseService) providerName() string {
	switch s.reviewer.(type) {
	case *ai.OpenAIReviewer:
		return "openai"
	case *ai.AnthropicReviewer:
		return "anthropic"
	default:
		return "unknown"
	}
}

func (s *responseService) load(ctx context.Context, id uint) (models.Response, error) {
	response, err := s.responses.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Response{}, ErrResponseNotFound
		}
		return models.Response{}, err
	}
	return response, nil
}
