package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/codearena/arena-go-api/internal/dto"
	"github.com/codearena/arena-go-api/internal/models"
	"github.com/codearena/arena-go-api/pkg/ai"
)

type stubActivityRepo struct {
	activities map[uint]models.Activity
}

func (s *stubActivityRepo) GetByID(ctx context.Context, id uint) (models.Activity, error) {
	activity, ok := s.activities[id]
	if !ok {
		return models.Activity{}, gorm.ErrRecordNotFound
	}
	return activity, nil
}

func (s *stubActivityRepo) ListByQuestion(ctx context.Context, questionID uint) ([]models.Activity, error) {
	var result []models.Activity
	for _, activity := range s.activities {
		if activity.QuestionID == questionID {
			result = append(result, activity)
		}
	}
	return result, nil
}

type stubReviewer struct {
	result ai.ReviewResult
	err    error
	input  ai.ReviewInput
}

func (s *stubReviewer) Review(ctx context.Context, input ai.ReviewInput) (ai.ReviewResult, error) {
	s.input = input
	if s.err != nil {
		return ai.ReviewResult{}, s.err
	}
	return s.result, nil
}

func newResponseTestService(ledger *stubResponseLedger, questions *stubQuestionRepo, activities *stubActivityRepo, reviewer ai.Reviewer) ResponseService {
	if activities == nil {
		activities = &stubActivityRepo{activities: map[uint]models.Activity{}}
	}
	return NewResponseService(ledger, questions, activities, reviewer, validator.New(validator.WithRequiredStructEnabled()), zerolog.Nop())
}

func TestResponseServiceCreateEnforcesExclusiveBinding(t *testing.T) {
	questionID := uint(7)
	activityID := uint(3)
	svc := newResponseTestService(newStubResponseLedger(), &stubQuestionRepo{question: models.Question{ID: 7, Kind: models.QuestionKindText}}, nil, nil)

	_, err := svc.Create(context.Background(), 1, dto.ResponseCreateRequest{Kind: models.QuestionKindText, QuestionID: &questionID, ActivityID: &activityID})
	require.ErrorIs(t, err, models.ErrInvalidBinding)

	_, err = svc.Create(context.Background(), 1, dto.ResponseCreateRequest{Kind: models.QuestionKindText})
	require.ErrorIs(t, err, models.ErrInvalidBinding)
}

func TestResponseServiceCreateChecksReferences(t *testing.T) {
	questionID := uint(99)
	svc := newResponseTestService(newStubResponseLedger(), &stubQuestionRepo{}, nil, nil)

	_, err := svc.Create(context.Background(), 1, dto.ResponseCreateRequest{Kind: models.QuestionKindText, QuestionID: &questionID})
	require.ErrorIs(t, err, ErrQuestionNotFound)

	activityID := uint(4)
	_, err = svc.Create(context.Background(), 1, dto.ResponseCreateRequest{Kind: models.QuestionKindText, ActivityID: &activityID})
	require.ErrorIs(t, err, ErrActivityNotFound)
}

func TestResponseServiceCreateUnbound(t *testing.T) {
	questionID := uint(7)
	ledger := newStubResponseLedger()
	svc := newResponseTestService(ledger, &stubQuestionRepo{question: models.Question{ID: 7, Kind: models.QuestionKindText}}, nil, nil)

	detail, err := svc.Create(context.Background(), 1, dto.ResponseCreateRequest{Kind: models.QuestionKindText, QuestionID: &questionID, ValueText: "Paris"})
	require.NoError(t, err)
	require.NotNil(t, detail.QuestionForUnboundID)
	require.Equal(t, questionID, *detail.QuestionForUnboundID)
	require.Nil(t, detail.ActivityID)
}

func TestResponseServiceBindQuestionRejectsRebinding(t *testing.T) {
	ledger := newStubResponseLedger()
	activityID := uint(3)
	bound := models.Response{UserID: 1, Kind: models.QuestionKindText, ActivityID: &activityID, Activity: &models.Activity{ID: 3, QuestionID: 7}}
	require.NoError(t, ledger.Create(context.Background(), &bound))

	svc := newResponseTestService(ledger, &stubQuestionRepo{question: models.Question{ID: 8, Kind: models.QuestionKindText}}, nil, nil)

	_, err := svc.BindQuestion(context.Background(), bound.ID, 8)
	require.ErrorIs(t, err, models.ErrInvalidBinding)
}

func TestResponseServiceRetroactSkipsAlreadyLinked(t *testing.T) {
	ledger := newStubResponseLedger()
	questionID := uint(7)
	ledger.unbound = []models.Response{
		{ID: 101, UserID: 1, Kind: models.QuestionKindText, ValueText: "a", QuestionForUnboundID: &questionID},
		{ID: 102, UserID: 2, Kind: models.QuestionKindText, ValueText: "b", QuestionForUnboundID: &questionID},
		{ID: 103, UserID: 3, Kind: models.QuestionKindText, ValueText: "c", QuestionForUnboundID: &questionID},
	}
	ledger.retroacted = []uint{102}

	activities := &stubActivityRepo{activities: map[uint]models.Activity{
		3: {ID: 3, CourseID: 1, QuestionID: questionID},
	}}
	svc := newResponseTestService(ledger, &stubQuestionRepo{}, activities, nil)

	linked, err := svc.Retroact(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, linked, 2)

	parents := map[uint]bool{}
	for _, child := range linked {
		require.NotNil(t, child.ActivityID)
		require.Equal(t, uint(3), *child.ActivityID)
		require.NotNil(t, child.ParentID)
		parents[*child.ParentID] = true
	}
	require.True(t, parents[101])
	require.True(t, parents[103])
	require.False(t, parents[102])
}

func TestResponseServiceRetroactSecondRunLinksNothing(t *testing.T) {
	ledger := newStubResponseLedger()
	questionID := uint(7)
	ledger.unbound = []models.Response{
		{ID: 101, UserID: 1, Kind: models.QuestionKindText, ValueText: "a", QuestionForUnboundID: &questionID},
	}
	ledger.retroacted = []uint{101}

	activities := &stubActivityRepo{activities: map[uint]models.Activity{
		3: {ID: 3, CourseID: 1, QuestionID: questionID},
	}}
	svc := newResponseTestService(ledger, &stubQuestionRepo{}, activities, nil)

	linked, err := svc.Retroact(context.Background(), 3)
	require.NoError(t, err)
	require.Empty(t, linked)
}

func TestResponseServiceReviewRequiresPrivilegedRole(t *testing.T) {
	svc := newResponseTestService(newStubResponseLedger(), &stubQuestionRepo{}, nil, &stubReviewer{})

	_, err := svc.Review(context.Background(), 1, "student")
	require.ErrorIs(t, err, ErrReviewForbidden)
}

func TestResponseServiceReviewRequiresReviewer(t *testing.T) {
	svc := newResponseTestService(newStubResponseLedger(), &stubQuestionRepo{}, nil, nil)

	_, err := svc.Review(context.Background(), 1, "teacher")
	require.ErrorIs(t, err, ErrReviewerUnavailable)
}

func TestResponseServiceReviewForwardsLatestRun(t *testing.T) {
	questionID := uint(7)
	ledger := newStubResponseLedger()
	seeded := models.Response{
		UserID:               2,
		Kind:                 models.QuestionKindCoding,
		QuestionForUnboundID: &questionID,
		Items: []models.ResponseItem{
			{ID: 1, Source: "print(1)", Stdout: "1\n", CreatedAt: time.Now().Add(-time.Minute)},
			{ID: 2, Source: "print(42)", Stdout: "42\n", CreatedAt: time.Now()},
		},
	}
	require.NoError(t, ledger.Create(context.Background(), &seeded))

	reviewer := &stubReviewer{result: ai.ReviewResult{Score: 0.8, Verdict: "pass", Feedback: "solid"}}
	questions := &stubQuestionRepo{question: models.Question{ID: questionID, Kind: models.QuestionKindCoding, Title: "Answer", Language: "python", ExpectedOutput: "42"}}
	svc := newResponseTestService(ledger, questions, nil, reviewer)

	review, err := svc.Review(context.Background(), seeded.ID, "teacher")
	require.NoError(t, err)
	require.InDelta(t, 0.8, review.Score, 0.001)
	require.Equal(t, "pass", review.Verdict)
	require.Equal(t, "print(42)", reviewer.input.Source)
	require.Equal(t, "42", reviewer.input.ExpectedOutput)
}

func TestResponseServiceReviewRejectsNonCoding(t *testing.T) {
	questionID := uint(7)
	ledger := newStubResponseLedger()
	seeded := models.Response{UserID: 2, Kind: models.QuestionKindText, ValueText: "Paris", QuestionForUnboundID: &questionID}
	require.NoError(t, ledger.Create(context.Background(), &seeded))

	svc := newResponseTestService(ledger, &stubQuestionRepo{}, nil, &stubReviewer{})

	_, err := svc.Review(context.Background(), seeded.ID, "teacher")
	require.ErrorIs(t, err, models.ErrGradingUnsupported)
}
