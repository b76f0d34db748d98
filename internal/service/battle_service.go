package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/codearena/arena-go-api/internal/dto"
	"github.com/codearena/arena-go-api/internal/models"
	"github.com/codearena/arena-go-api/internal/observability"
	"github.com/codearena/arena-go-api/internal/repository"
	"github.com/codearena/arena-go-api/pkg/runner"
)

// ErrBattleNotFound indicates the battle cannot be located.
var ErrBattleNotFound = errors.New("battle not found")

// ErrSubmissionRejected is the family root for expected admission failures.
// Use errors.Is against the specific reasons below to tell them apart.
var ErrSubmissionRejected = errors.New("submission rejected")

// ErrBattleClosed rejects submissions against a battle that already has a winner.
var ErrBattleClosed = fmt.Errorf("%w: battle is closed", ErrSubmissionRejected)

// ErrSubmissionLimitReached rejects submissions from an exhausted participant.
var ErrSubmissionLimitReached = fmt.Errorf("%w: submission limit reached", ErrSubmissionRejected)

// ErrParticipantGaveUp rejects submissions from a participant who forfeited.
var ErrParticipantGaveUp = fmt.Errorf("%w: participant gave up", ErrSubmissionRejected)

// ErrNotInvited indicates the user has no outstanding invitation to the battle.
var ErrNotInvited = errors.New("user is not invited to this battle")

// ErrAlreadyJoined indicates the user already has a session in the battle.
var ErrAlreadyJoined = errors.New("user already joined this battle")

// ErrNotParticipant indicates the user never joined the battle.
var ErrNotParticipant = errors.New("user is not a battle participant")

// ErrBattleNotActive indicates the battle cannot be resolved: nobody has
// started, or invitations are still outstanding.
var ErrBattleNotActive = errors.New("battle is not active")

// ErrNoEligibleWinner indicates no participant qualifies under the battle's
// winner strategy yet.
var ErrNoEligibleWinner = errors.New("no eligible winner")

// ErrNotCodingQuestion indicates the battle question is not a coding question.
var ErrNotCodingQuestion = errors.New("battles require a coding question")

// BattleService exposes the competitive battle operations.
type BattleService interface {
	Create(ctx context.Context, ownerID uint, payload dto.BattleCreateRequest) (dto.BattleDetail, error)
	Get(ctx context.Context, id uint) (dto.BattleDetail, error)
	Invite(ctx context.Context, ownerID, battleID, userID uint) error
	Join(ctx context.Context, battleID, userID uint) (dto.BattleParticipant, error)
	SubmitCode(ctx context.Context, battleID, userID uint, payload dto.BattleSubmissionRequest) (dto.BattleSubmissionResult, error)
	GiveUp(ctx context.Context, battleID, userID uint) error
	DetermineWinner(ctx context.Context, battleID uint) (dto.BattleParticipant, error)
	Standings(ctx context.Context, battleID uint) (dto.BattleStandings, error)
}

// BattleConfig groups battle service configuration knobs.
type BattleConfig struct {
	StandingsTTL time.Duration
	NATSSubject  string
}

type battleService struct {
	battles   repository.BattleRepository
	responses repository.ResponseRepository
	questions repository.QuestionRepository
	runner    runner.Runner
	redis     *redis.Client
	nats      *nats.Conn
	validator *validator.Validate
	logger    zerolog.Logger
	tracer    trace.Tracer
	cfg       BattleConfig

	// admission serializes check-then-record per (battle, participant);
	// resolution serializes winner computation per battle. The repository
	// compare-and-set on the winner column covers racing processes.
	admission  keyedMutex
	resolution keyedMutex
}

// NewBattleService constructs a battle service.
func NewBattleService(battleRepo repository.BattleRepository, responseRepo repository.ResponseRepository, questionRepo repository.QuestionRepository, codeRunner runner.Runner, redisClient *redis.Client, natsConn *nats.Conn, validate *validator.Validate, logger zerolog.Logger, cfg BattleConfig) BattleService {
	if cfg.StandingsTTL <= 0 {
		cfg.StandingsTTL = 30 * time.Second
	}
	if cfg.NATSSubject == "" {
		cfg.NATSSubject = "arena.battles"
	}

	return &battleService{
		battles:   battleRepo,
		responses: responseRepo,
		questions: questionRepo,
		runner:    codeRunner,
		redis:     redisClient,
		nats:      natsConn,
		validator: validate,
		logger:    logger.With().Str("component", "battle_service").Logger(),
		tracer:    otel.Tracer("github.com/codearena/arena-go-api/internal/service/battle"),
		cfg:       cfg,
	}
}

func (s *battleService) Create(ctx context.Context, ownerID uint, payload dto.BattleCreateRequest) (dto.BattleDetail, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.BattleDetail{}, err
	}

	question, err := s.questions.GetByID(ctx, payload.QuestionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.BattleDetail{}, ErrQuestionNotFound
		}
		return dto.BattleDetail{}, err
	}
	if question.Kind != models.QuestionKindCoding {
		return dto.BattleDetail{}, ErrNotCodingQuestion
	}

	battle := models.Battle{
		OwnerID:          ownerID,
		QuestionID:       payload.QuestionID,
		Type:             payload.Type,
		Language:         payload.Language,
		LimitSubmissions: payload.LimitSubmissions,
	}
	if err := s.battles.Create(ctx, &battle); err != nil {
		return dto.BattleDetail{}, err
	}

	for _, invitee := range payload.Invitees {
		if invitee == ownerID {
			continue
		}
		invitation := models.BattleInvitation{BattleID: battle.ID, UserID: invitee}
		if err := s.battles.CreateInvitation(ctx, &invitation); err != nil {
			return dto.BattleDetail{}, err
		}
	}

	created, err := s.loadBattle(ctx, battle.ID)
	if err != nil {
		return dto.BattleDetail{}, err
	}

	s.logger.Info().Uint("battle_id", battle.ID).Str("type", battle.Type).Msg("battle created")
	return dto.NewBattleDetail(created), nil
}

func (s *battleService) Get(ctx context.Context, id uint) (dto.BattleDetail, error) {
	battle, err := s.loadBattle(ctx, id)
	if err != nil {
		return dto.BattleDetail{}, err
	}
	return dto.NewBattleDetail(battle), nil
}

func (s *battleService) Invite(ctx context.Context, ownerID, battleID, userID uint) error {
	battle, err := s.loadBattle(ctx, battleID)
	if err != nil {
		return err
	}
	if battle.OwnerID != ownerID {
		return ErrQuestionForbidden
	}
	if battle.WinnerID != nil {
		return ErrBattleClosed
	}
	return s.battles.CreateInvitation(ctx, &models.BattleInvitation{BattleID: battleID, UserID: userID})
}

// Join consumes the user's invitation and opens their participant session. The
// battle owner may join without an invitation. One session per (user, battle):
// joining twice fails with ErrAlreadyJoined.
func (s *battleService) Join(ctx context.Context, battleID, userID uint) (dto.BattleParticipant, error) {
	battle, err := s.loadBattle(ctx, battleID)
	if err != nil {
		return dto.BattleParticipant{}, err
	}
	if battle.WinnerID != nil {
		return dto.BattleParticipant{}, ErrBattleClosed
	}

	if _, err := s.battles.GetResponse(ctx, battleID, userID); err == nil {
		return dto.BattleParticipant{}, ErrAlreadyJoined
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.BattleParticipant{}, err
	}

	consumed, err := s.battles.ConsumeInvitation(ctx, battleID, userID)
	if err != nil {
		return dto.BattleParticipant{}, err
	}
	if !consumed && battle.OwnerID != userID {
		return dto.BattleParticipant{}, ErrNotInvited
	}

	response := models.Response{
		UserID:               userID,
		Kind:                 models.QuestionKindCoding,
		QuestionForUnboundID: &battle.QuestionID,
	}
	if err := s.responses.Create(ctx, &response); err != nil {
		return dto.BattleParticipant{}, err
	}

	session := models.BattleResponse{
		BattleID:   battleID,
		ResponseID: response.ID,
		UserID:     userID,
		TimeBegin:  time.Now(),
	}
	if err := s.battles.CreateResponse(ctx, &session); err != nil {
		return dto.BattleParticipant{}, err
	}

	s.publish(battleEvent{Type: "participant_joined", BattleID: battleID, UserID: userID})
	s.invalidateStandings(ctx, battleID)
	return dto.NewBattleParticipant(session), nil
}

// SubmitCode runs one submission through admission control, the sandboxed
// runner and the ledger. The admission lock is held around the check and the
// bookkeeping only; the runner call happens outside it. A run that fails
// before producing a result does not consume a submission slot.
func (s *battleService) SubmitCode(ctx context.Context, battleID, userID uint, payload dto.BattleSubmissionRequest) (dto.BattleSubmissionResult, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.BattleSubmissionResult{}, err
	}

	ctx, span := s.tracer.Start(ctx, "battle.submit_code", trace.WithAttributes(
		attribute.Int64("battle.id", int64(battleID)),
		attribute.Int64("battle.user_id", int64(userID)),
	))
	defer span.End()

	battle, err := s.admitSubmission(ctx, battleID, userID)
	if err != nil {
		observability.BattleSubmissions().WithLabelValues("rejected").Inc()
		return dto.BattleSubmissionResult{}, err
	}

	run, err := s.runner.Execute(ctx, payload.Source, battle.Language)
	if err != nil {
		observability.BattleSubmissions().WithLabelValues("runner_error").Inc()
		return dto.BattleSubmissionResult{}, err
	}

	result, err := s.recordSubmission(ctx, battle, userID, payload.Source, run)
	if err != nil {
		observability.BattleSubmissions().WithLabelValues("rejected").Inc()
		return dto.BattleSubmissionResult{}, err
	}

	observability.BattleSubmissions().WithLabelValues("accepted").Inc()
	s.invalidateStandings(ctx, battleID)
	return result, nil
}

// admitSubmission performs the fast pre-check under the admission lock so
// obviously doomed submissions never reach the runner.
func (s *battleService) admitSubmission(ctx context.Context, battleID, userID uint) (models.Battle, error) {
	unlock := s.admission.lock(admissionKey(battleID, userID))
	defer unlock()

	battle, _, err := s.checkAdmission(ctx, battleID, userID)
	return battle, err
}

// checkAdmission enforces the admission policy against fresh repository state.
// Callers must hold the admission lock for the (battle, participant) pair.
func (s *battleService) checkAdmission(ctx context.Context, battleID, userID uint) (models.Battle, models.BattleResponse, error) {
	battle, err := s.loadBattle(ctx, battleID)
	if err != nil {
		return models.Battle{}, models.BattleResponse{}, err
	}

	session, err := s.battles.GetResponse(ctx, battleID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return battle, models.BattleResponse{}, ErrNotParticipant
		}
		return battle, models.BattleResponse{}, err
	}

	switch {
	case battle.WinnerID != nil:
		return battle, session, ErrBattleClosed
	case session.GiveUp:
		return battle, session, ErrParticipantGaveUp
	case session.Exhausted(battle.LimitSubmissions):
		return battle, session, ErrSubmissionLimitReached
	}
	return battle, session, nil
}

// recordSubmission re-checks admission and books the accepted run atomically.
// A run completing after the participant's state turned terminal keeps its
// history but cannot resurrect the session; a run racing past the cap is
// dropped entirely so the cap is never exceeded.
func (s *battleService) recordSubmission(ctx context.Context, battle models.Battle, userID uint, source string, run runner.ExecutionResult) (dto.BattleSubmissionResult, error) {
	unlock := s.admission.lock(admissionKey(battle.ID, userID))
	defer unlock()

	fresh, session, err := s.checkAdmission(ctx, battle.ID, userID)
	if err != nil {
		if (errors.Is(err, ErrBattleClosed) || errors.Is(err, ErrParticipantGaveUp)) && session.ResponseID != 0 {
			item := newResponseItem(session.ResponseID, source, run)
			if addErr := s.responses.AddItem(ctx, &item); addErr != nil {
				s.logger.Error().Err(addErr).Uint("battle_id", battle.ID).Msg("failed to record late submission")
			}
		}
		return dto.BattleSubmissionResult{}, err
	}

	item := newResponseItem(session.ResponseID, source, run)
	if err := s.responses.AddItem(ctx, &item); err != nil {
		return dto.BattleSubmissionResult{}, err
	}

	session.SubmissionCount++
	session.RecordItem(item)
	if err := s.battles.UpdateResponse(ctx, &session); err != nil {
		return dto.BattleSubmissionResult{}, err
	}

	result := dto.BattleSubmissionResult{
		Item:            dto.NewResponseItemDetail(item),
		SubmissionCount: session.SubmissionCount,
		Remaining:       fresh.LimitSubmissions - session.SubmissionCount,
	}
	if feedback, err := s.gradeRun(ctx, fresh.Question, session.ResponseID, item); err == nil {
		result.Feedback = &feedback
	} else if !errors.Is(err, models.ErrGradingUnsupported) {
		s.logger.Error().Err(err).Uint("response_id", session.ResponseID).Msg("failed to grade submission")
	}

	s.publish(battleEvent{Type: "submission_accepted", BattleID: battle.ID, UserID: userID})
	return result, nil
}

// gradeRun grades the accepted run against the battle question and persists
// the outcome on the underlying ledger entry.
func (s *battleService) gradeRun(ctx context.Context, question models.Question, responseID uint, item models.ResponseItem) (models.Feedback, error) {
	if question.ID == 0 {
		return models.Feedback{}, models.ErrGradingUnsupported
	}

	probe := models.Response{Kind: models.QuestionKindCoding, Items: []models.ResponseItem{item}}
	feedback, err := question.Grade(probe)
	if err != nil {
		return models.Feedback{}, err
	}

	response, err := s.responses.GetByID(ctx, responseID)
	if err != nil {
		return feedback, err
	}
	grade := feedback.Grade
	response.Grade = &grade
	response.FeedbackData = datatypes.JSONMap{
		"correct": feedback.Correct,
		"grade":   feedback.Grade,
	}
	if err := s.responses.Update(ctx, &response); err != nil {
		return feedback, err
	}
	return feedback, nil
}

// GiveUp marks the participant's session as forfeited. Idempotent; history is
// kept. Safe to call while a submission is in flight.
func (s *battleService) GiveUp(ctx context.Context, battleID, userID uint) error {
	unlock := s.admission.lock(admissionKey(battleID, userID))
	defer unlock()

	session, err := s.battles.GetResponse(ctx, battleID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotParticipant
		}
		return err
	}
	if session.GiveUp {
		return nil
	}

	session.GiveUp = true
	if session.TimeEnd == nil {
		now := time.Now()
		session.TimeEnd = &now
	}
	if err := s.battles.UpdateResponse(ctx, &session); err != nil {
		return err
	}

	s.publish(battleEvent{Type: "participant_gave_up", BattleID: battleID, UserID: userID})
	s.invalidateStandings(ctx, battleID)
	return nil
}

// DetermineWinner resolves and persists the battle winner. Idempotent: once a
// winner is stored every call returns it without writing. Concurrent callers
// are serialized in-process and the repository compare-and-set guarantees a
// single surviving write across processes.
func (s *battleService) DetermineWinner(ctx context.Context, battleID uint) (dto.BattleParticipant, error) {
	ctx, span := s.tracer.Start(ctx, "battle.determine_winner", trace.WithAttributes(
		attribute.Int64("battle.id", int64(battleID)),
	))
	defer span.End()

	unlock := s.resolution.lock(resolutionKey(battleID))
	defer unlock()

	battle, err := s.loadBattle(ctx, battleID)
	if err != nil {
		return dto.BattleParticipant{}, err
	}

	if battle.WinnerID != nil {
		observability.WinnerResolutions().WithLabelValues("already_resolved").Inc()
		return s.storedWinner(battle)
	}
	if !battle.IsActive() {
		observability.WinnerResolutions().WithLabelValues("not_active").Inc()
		return dto.BattleParticipant{}, ErrBattleNotActive
	}

	var winner *models.BattleResponse
	switch battle.Type {
	case models.BattleTypeTime:
		winner = battle.WinnerByTime()
	default:
		winner = battle.WinnerByLength()
	}
	if winner == nil {
		observability.WinnerResolutions().WithLabelValues("no_candidate").Inc()
		return dto.BattleParticipant{}, ErrNoEligibleWinner
	}

	if err := s.battles.SetWinner(ctx, battle.ID, winner.ID); err != nil {
		if errors.Is(err, repository.ErrWinnerAlreadySet) {
			// lost the race; the stored winner is authoritative
			observability.WinnerResolutions().WithLabelValues("lost_race").Inc()
			reloaded, err := s.loadBattle(ctx, battleID)
			if err != nil {
				return dto.BattleParticipant{}, err
			}
			return s.storedWinner(reloaded)
		}
		return dto.BattleParticipant{}, err
	}

	observability.WinnerResolutions().WithLabelValues("resolved").Inc()
	s.publish(battleEvent{Type: "winner_decided", BattleID: battleID, UserID: winner.UserID, WinnerID: winner.ID})
	s.invalidateStandings(ctx, battleID)
	s.logger.Info().Uint("battle_id", battleID).Uint("winner_id", winner.ID).Str("type", battle.Type).Msg("battle winner decided")
	return dto.NewBattleParticipant(*winner), nil
}

// Standings summarises the battle for spectators, cached briefly in Redis.
func (s *battleService) Standings(ctx context.Context, battleID uint) (dto.BattleStandings, error) {
	cacheKey := standingsKey(battleID)
	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, cacheKey).Result(); err == nil {
			var standings dto.BattleStandings
			if err := json.Unmarshal([]byte(cached), &standings); err == nil {
				return standings, nil
			}
		}
	}

	battle, err := s.loadBattle(ctx, battleID)
	if err != nil {
		return dto.BattleStandings{}, err
	}

	standings := dto.BattleStandings{
		BattleID:    battle.ID,
		Type:        battle.Type,
		IsActive:    battle.IsActive(),
		WinnerID:    battle.WinnerID,
		GeneratedAt: time.Now(),
	}
	for _, response := range battle.Responses {
		participant := dto.NewBattleParticipant(response)
		participant.IsActive = response.Active(battle)
		standings.Participants = append(standings.Participants, participant)
	}

	if s.redis != nil {
		if payload, err := json.Marshal(standings); err == nil {
			if err := s.redis.Set(ctx, cacheKey, payload, s.cfg.StandingsTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Uint("battle_id", battleID).Msg("failed to cache standings")
			}
		}
	}

	return standings, nil
}

func (s *battleService) storedWinner(battle models.Battle) (dto.BattleParticipant, error) {
	for _, response := range battle.Responses {
		if battle.WinnerID != nil && response.ID == *battle.WinnerID {
			return dto.NewBattleParticipant(response), nil
		}
	}
	return dto.BattleParticipant{}, ErrBattleNotFound
}

func (s *battleService) loadBattle(ctx context.Context, id uint) (models.Battle, error) {
	battle, err := s.battles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Battle{}, ErrBattleNotFound
		}
		return models.Battle{}, err
	}
	return battle, nil
}

func (s *battleService) invalidateStandings(ctx context.Context, battleID uint) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, standingsKey(battleID)).Err(); err != nil {
		s.logger.Warn().Err(err).Uint("battle_id", battleID).Msg("failed to invalidate standings cache")
	}
}

type battleEvent struct {
	Type     string    `json:"type"`
	BattleID uint      `json:"battle_id"`
	UserID   uint      `json:"user_id,omitempty"`
	WinnerID uint      `json:"winner_id,omitempty"`
	At       time.Time `json:"at"`
}

func (s *battleService) publish(event battleEvent) {
	if s.nats == nil {
		return
	}
	event.At = time.Now()
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	subject := fmt.Sprintf("%s.%s", s.cfg.NATSSubject, event.Type)
	if err := s.nats.Publish(subject, payload); err != nil {
		s.logger.Warn().Err(err).Str("subject", subject).Msg("failed to publish battle event")
	}
}

func newResponseItem(responseID uint, source string, run runner.ExecutionResult) models.ResponseItem {
	return models.ResponseItem{
		ResponseID: responseID,
		Source:     source,
		Stdout:     run.Stdout,
		Stderr:     run.Stderr,
		ExitCode:   run.ExitCode,
		DurationMs: run.Duration.Milliseconds(),
		CreatedAt:  time.Now(),
	}
}

func admissionKey(battleID, userID uint) string {
	return fmt.Sprintf("%d/%d", battleID, userID)
}

func resolutionKey(battleID uint) string {
	return fmt.Sprintf("battle/%d", battleID)
}

func standingsKey(battleID uint) string {
	return fmt.Sprintf("arena:battles:%d:standings", battleID)
}

// keyedMutex hands out one mutex per key. Entries are never evicted; the key
// space is bounded by (battle, participant) pairs seen by this process.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	lock, ok := k.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		k.locks[key] = lock
	}
	k.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
