package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/codearena/arena-go-api/internal/dto"
	"github.com/codearena/arena-go-api/internal/models"
	"github.com/codearena/arena-go-api/internal/repository"
)

// ErrQuestionNotFound indicates the question cannot be located.
var ErrQuestionNotFound = errors.New("question not found")

// ErrQuestionNotGradable indicates the question is inactive and the caller is
// not its owner.
var ErrQuestionNotGradable = errors.New("question is not gradable")

// ErrQuestionForbidden indicates the caller may not modify the question.
var ErrQuestionForbidden = errors.New("forbidden")

// ErrNotTeacher indicates the caller does not teach any course and therefore
// cannot create questions.
var ErrNotTeacher = errors.New("question authors must teach at least one course")

// questionImportSchema validates question payloads imported as raw JSON.
const questionImportSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["kind", "title"],
  "properties": {
    "kind": {"enum": ["numeric", "boolean", "text", "coding"]},
    "title": {"type": "string", "minLength": 1, "maxLength": 200},
    "short_description": {"type": "string", "maxLength": 140},
    "long_description": {"type": "string"},
    "is_active": {"type": "boolean"},
    "default_extension": {"type": "string"},
    "answer": {"type": "number"},
    "tolerance": {"type": "number", "minimum": 0},
    "answer_bool": {"type": "boolean"},
    "answer_text": {"type": "string"},
    "is_regex": {"type": "boolean"},
    "language": {"type": "string"},
    "expected_output": {"type": "string"}
  }
}`

// QuestionService exposes the question catalog operations.
type QuestionService interface {
	Create(ctx context.Context, owner *models.User, payload dto.QuestionCreateRequest) (dto.QuestionResponse, error)
	Update(ctx context.Context, user *models.User, id uint, payload dto.QuestionCreateRequest) (dto.QuestionResponse, error)
	Get(ctx context.Context, user *models.User, id uint) (dto.QuestionResponse, error)
	List(ctx context.Context, query repository.QuestionQuery) ([]dto.QuestionResponse, int64, error)
	Deactivate(ctx context.Context, user *models.User, id uint) error
	Grade(ctx context.Context, user *models.User, responseID uint) (models.Feedback, error)
	Export(ctx context.Context, user *models.User, id uint, format string) (dto.QuestionExport, error)
	Import(ctx context.Context, owner *models.User, raw []byte) (dto.QuestionResponse, error)
}

type questionService struct {
	questions repository.QuestionRepository
	responses repository.ResponseRepository
	courses   repository.CourseRepository
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	schema    *jsonschema.Schema
	logger    zerolog.Logger
}

// NewQuestionService constructs a question service.
func NewQuestionService(questionRepo repository.QuestionRepository, responseRepo repository.ResponseRepository, courseRepo repository.CourseRepository, validate *validator.Validate, logger zerolog.Logger) QuestionService {
	return &questionService{
		questions: questionRepo,
		responses: responseRepo,
		courses:   courseRepo,
		validator: validate,
		sanitizer: bluemonday.UGCPolicy(),
		schema:    jsonschema.MustCompileString("question.json", questionImportSchema),
		logger:    logger.With().Str("component", "question_service").Logger(),
	}
}

func (s *questionService) Create(ctx context.Context, owner *models.User, payload dto.QuestionCreateRequest) (dto.QuestionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.QuestionResponse{}, err
	}
	if err := s.requireTeacher(ctx, owner); err != nil {
		return dto.QuestionResponse{}, err
	}

	question := s.fromPayload(payload)
	if owner != nil {
		question.OwnerID = &owner.ID
	}
	if err := question.Normalize(); err != nil {
		return dto.QuestionResponse{}, err
	}
	if err := s.questions.Create(ctx, &question); err != nil {
		return dto.QuestionResponse{}, err
	}

	s.logger.Info().Uint("question_id", question.ID).Str("kind", question.Kind).Msg("question created")
	return dto.NewQuestionResponse(question, true), nil
}

func (s *questionService) Update(ctx context.Context, user *models.User, id uint, payload dto.QuestionCreateRequest) (dto.QuestionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.QuestionResponse{}, err
	}

	question, err := s.load(ctx, id)
	if err != nil {
		return dto.QuestionResponse{}, err
	}
	if !question.CanEdit(user) {
		return dto.QuestionResponse{}, ErrQuestionForbidden
	}

	updated := s.fromPayload(payload)
	updated.ID = question.ID
	updated.OwnerID = question.OwnerID
	updated.CreatedAt = question.CreatedAt
	if err := updated.Normalize(); err != nil {
		return dto.QuestionResponse{}, err
	}
	if err := s.questions.Update(ctx, &updated); err != nil {
		return dto.QuestionResponse{}, err
	}

	return dto.NewQuestionResponse(updated, true), nil
}

func (s *questionService) Get(ctx context.Context, user *models.User, id uint) (dto.QuestionResponse, error) {
	question, err := s.load(ctx, id)
	if err != nil {
		return dto.QuestionResponse{}, err
	}
	return dto.NewQuestionResponse(question, question.CanEdit(user)), nil
}

func (s *questionService) List(ctx context.Context, query repository.QuestionQuery) ([]dto.QuestionResponse, int64, error) {
	questions, total, err := s.questions.List(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]dto.QuestionResponse, 0, len(questions))
	for _, question := range questions {
		responses = append(responses, dto.NewQuestionResponse(question, false))
	}
	return responses, total, nil
}

// Deactivate soft-disables a question. Questions are never deleted while
// responses reference them.
func (s *questionService) Deactivate(ctx context.Context, user *models.User, id uint) error {
	question, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !question.CanEdit(user) {
		return ErrQuestionForbidden
	}
	return s.questions.Deactivate(ctx, id)
}

// Grade evaluates a stored response against its question and persists the
// resulting feedback on the ledger entry.
func (s *questionService) Grade(ctx context.Context, user *models.User, responseID uint) (models.Feedback, error) {
	response, err := s.responses.GetByID(ctx, responseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Feedback{}, ErrResponseNotFound
		}
		return models.Feedback{}, err
	}

	questionID := response.QuestionBaseID()
	if questionID == 0 {
		return models.Feedback{}, models.ErrInvalidBinding
	}

	question, err := s.load(ctx, questionID)
	if err != nil {
		return models.Feedback{}, err
	}
	if !question.GradableBy(user) {
		return models.Feedback{}, ErrQuestionNotGradable
	}

	feedback, err := question.Grade(response)
	if err != nil {
		return models.Feedback{}, err
	}

	grade := feedback.Grade
	response.Grade = &grade
	response.FeedbackData = datatypes.JSONMap{
		"correct": feedback.Correct,
		"grade":   feedback.Grade,
	}
	if err := s.responses.Update(ctx, &response); err != nil {
		return models.Feedback{}, err
	}

	return feedback, nil
}

// Export serializes the question into the requested format. Unsupported
// formats yield models.ErrGradingUnsupported, which callers treat as a
// capability signal rather than a failure.
func (s *questionService) Export(ctx context.Context, user *models.User, id uint, format string) (dto.QuestionExport, error) {
	question, err := s.load(ctx, id)
	if err != nil {
		return dto.QuestionExport{}, err
	}

	includeAnswers := question.CanEdit(user)
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		payload, err := json.MarshalIndent(dto.NewQuestionResponse(question, includeAnswers), "", "  ")
		if err != nil {
			return dto.QuestionExport{}, err
		}
		return dto.QuestionExport{Format: "json", ContentType: "application/json", Content: string(payload)}, nil
	case "markdown", "md":
		var b strings.Builder
		fmt.Fprintf(&b, "# %s\n\n", question.Title)
		if question.ShortDescription != "" {
			fmt.Fprintf(&b, "%s\n\n", question.ShortDescription)
		}
		if question.LongDescription != "" {
			fmt.Fprintf(&b, "%s\n", question.LongDescription)
		}
		return dto.QuestionExport{Format: "markdown", ContentType: "text/markdown", Content: b.String()}, nil
	default:
		return dto.QuestionExport{}, models.ErrGradingUnsupported
	}
}

// Import creates a question from raw JSON validated against the import schema.
func (s *questionService) Import(ctx context.Context, owner *models.User, raw []byte) (dto.QuestionResponse, error) {
	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return dto.QuestionResponse{}, err
	}
	if err := s.schema.Validate(decoded); err != nil {
		return dto.QuestionResponse{}, err
	}

	var payload dto.QuestionCreateRequest
	if err := json.Unmarshal(raw, &payload); err != nil {
		return dto.QuestionResponse{}, err
	}
	return s.Create(ctx, owner, payload)
}

func (s *questionService) requireTeacher(ctx context.Context, user *models.User) error {
	if user == nil {
		return ErrNotTeacher
	}
	count, err := s.courses.CountTaughtBy(ctx, user.ID)
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrNotTeacher
	}
	return nil
}

func (s *questionService) load(ctx context.Context, id uint) (models.Question, error) {
	question, err := s.questions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Question{}, ErrQuestionNotFound
		}
		return models.Question{}, err
	}
	return question, nil
}

func (s *questionService) fromPayload(payload dto.QuestionCreateRequest) models.Question {
	return models.Question{
		Kind:             payload.Kind,
		Title:            strings.TrimSpace(payload.Title),
		ShortDescription: strings.TrimSpace(s.sanitizer.Sanitize(payload.ShortDescription)),
		LongDescription:  s.sanitizer.Sanitize(payload.LongDescription),
		IsActive:         payload.IsActive,
		DefaultExtension: payload.DefaultExtension,
		Answer:           payload.Answer,
		Tolerance:        payload.Tolerance,
		AnswerBool:       payload.AnswerBool,
		AnswerText:       payload.AnswerText,
		IsRegex:          payload.IsRegex,
		Language:         payload.Language,
		ExpectedOutput:   payload.ExpectedOutput,
	}
}
