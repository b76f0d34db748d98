package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/codearena/arena-go-api/internal/dto"
	"github.com/codearena/arena-go-api/internal/models"
	"github.com/codearena/arena-go-api/internal/repository"
	"github.com/codearena/arena-go-api/pkg/runner"
)

type stubBattleRepo struct {
	mu             sync.Mutex
	battle         models.Battle
	invitations    map[uint]bool
	sessions       map[uint]*models.BattleResponse
	nextSessionID  uint
	setWinnerCalls int
}

func newStubBattleRepo(battle models.Battle) *stubBattleRepo {
	return &stubBattleRepo{
		battle:      battle,
		invitations: make(map[uint]bool),
		sessions:    make(map[uint]*models.BattleResponse),
	}
}

func (s *stubBattleRepo) Create(ctx context.Context, battle *models.Battle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if battle.ID == 0 {
		battle.ID = 1
	}
	s.battle = *battle
	return nil
}

func (s *stubBattleRepo) GetByID(ctx context.Context, id uint) (models.Battle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.battle.ID == 0 || s.battle.ID != id {
		return models.Battle{}, gorm.ErrRecordNotFound
	}
	return s.snapshotLocked(), nil
}

func (s *stubBattleRepo) snapshotLocked() models.Battle {
	battle := s.battle
	battle.Invitations = nil
	for userID := range s.invitations {
		battle.Invitations = append(battle.Invitations, models.BattleInvitation{BattleID: battle.ID, UserID: userID})
	}
	battle.Responses = nil
	for _, session := range s.sessions {
		battle.Responses = append(battle.Responses, *session)
	}
	sort.Slice(battle.Responses, func(i, j int) bool {
		return battle.Responses[i].ID < battle.Responses[j].ID
	})
	return battle
}

func (s *stubBattleRepo) CreateInvitation(ctx context.Context, invitation *models.BattleInvitation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invitations[invitation.UserID] = true
	return nil
}

func (s *stubBattleRepo) ConsumeInvitation(ctx context.Context, battleID, userID uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.invitations[userID] {
		return false, nil
	}
	delete(s.invitations, userID)
	return true, nil
}

func (s *stubBattleRepo) CreateResponse(ctx context.Context, response *models.BattleResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSessionID++
	response.ID = s.nextSessionID
	clone := *response
	s.sessions[response.UserID] = &clone
	return nil
}

func (s *stubBattleRepo) UpdateResponse(ctx context.Context, response *models.BattleResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *response
	s.sessions[response.UserID] = &clone
	return nil
}

func (s *stubBattleRepo) GetResponse(ctx context.Context, battleID, userID uint) (models.BattleResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[userID]
	if !ok {
		return models.BattleResponse{}, gorm.ErrRecordNotFound
	}
	return *session, nil
}

func (s *stubBattleRepo) SetWinner(ctx context.Context, battleID, winnerID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.battle.WinnerID != nil {
		return repository.ErrWinnerAlreadySet
	}
	s.setWinnerCalls++
	s.battle.WinnerID = &winnerID
	return nil
}

type stubResponseLedger struct {
	mu         sync.Mutex
	nextID     uint
	responses  map[uint]models.Response
	items      []models.ResponseItem
	unbound    []models.Response
	retroacted []uint
}

func newStubResponseLedger() *stubResponseLedger {
	return &stubResponseLedger{responses: make(map[uint]models.Response)}
}

func (s *stubResponseLedger) Create(ctx context.Context, response *models.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	response.ID = s.nextID
	s.responses[response.ID] = *response
	return nil
}

func (s *stubResponseLedger) Update(ctx context.Context, response *models.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[response.ID] = *response
	return nil
}

func (s *stubResponseLedger) GetByID(ctx context.Context, id uint) (models.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	response, ok := s.responses[id]
	if !ok {
		return models.Response{}, gorm.ErrRecordNotFound
	}
	return response, nil
}

func (s *stubResponseLedger) AddItem(ctx context.Context, item *models.ResponseItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item.ID = uint(len(s.items) + 1)
	s.items = append(s.items, *item)
	return nil
}

func (s *stubResponseLedger) ListUnboundByQuestion(ctx context.Context, questionID uint) ([]models.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unbound, nil
}

func (s *stubResponseLedger) ListRetroactedParentIDs(ctx context.Context, activityIDs []uint) ([]uint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retroacted, nil
}

func (s *stubResponseLedger) itemCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

type stubRunner struct {
	mu     sync.Mutex
	calls  int
	errs   []error
	result runner.ExecutionResult
}

func (s *stubRunner) Execute(ctx context.Context, source, language string) (runner.ExecutionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return runner.ExecutionResult{}, err
		}
	}
	return s.result, nil
}

func (s *stubRunner) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubQuestionRepo struct {
	question models.Question
	err      error
}

func (s *stubQuestionRepo) Create(ctx context.Context, question *models.Question) error {
	if s.err != nil {
		return s.err
	}
	if question.ID == 0 {
		question.ID = 1
	}
	s.question = *question
	return nil
}

func (s *stubQuestionRepo) Update(ctx context.Context, question *models.Question) error {
	if s.err != nil {
		return s.err
	}
	s.question = *question
	return nil
}

func (s *stubQuestionRepo) GetByID(ctx context.Context, id uint) (models.Question, error) {
	if s.err != nil {
		return models.Question{}, s.err
	}
	if s.question.ID == 0 || s.question.ID != id {
		return models.Question{}, gorm.ErrRecordNotFound
	}
	return s.question, nil
}

func (s *stubQuestionRepo) List(ctx context.Context, query repository.QuestionQuery) ([]models.Question, int64, error) {
	if s.err != nil {
		return nil, 0, s.err
	}
	if s.question.ID == 0 {
		return nil, 0, nil
	}
	return []models.Question{s.question}, 1, nil
}

func (s *stubQuestionRepo) Deactivate(ctx context.Context, id uint) error {
	if s.err != nil {
		return s.err
	}
	s.question.IsActive = false
	return nil
}

func newBattleTestService(battles *stubBattleRepo, responses *stubResponseLedger, run runner.Runner) BattleService {
	questions := &stubQuestionRepo{question: battles.battle.Question}
	return NewBattleService(battles, responses, questions, run, nil, nil, validator.New(validator.WithRequiredStructEnabled()), zerolog.Nop(), BattleConfig{})
}

func battleFixture(limit int, battleType string) models.Battle {
	return models.Battle{
		ID:               1,
		OwnerID:          1,
		QuestionID:       7,
		Type:             battleType,
		Language:         "python",
		LimitSubmissions: limit,
		Question: models.Question{
			ID:             7,
			Kind:           models.QuestionKindCoding,
			Language:       "python",
			ExpectedOutput: "42",
		},
	}
}

func joinParticipant(t *testing.T, svc BattleService, userID uint) {
	t.Helper()
	_, err := svc.Join(context.Background(), 1, userID)
	require.NoError(t, err)
}

func TestBattleServiceCreateRequiresCodingQuestion(t *testing.T) {
	repo := newStubBattleRepo(models.Battle{})
	questions := &stubQuestionRepo{question: models.Question{ID: 7, Kind: models.QuestionKindNumeric}}
	svc := NewBattleService(repo, newStubResponseLedger(), questions, &stubRunner{}, nil, nil, validator.New(validator.WithRequiredStructEnabled()), zerolog.Nop(), BattleConfig{})

	_, err := svc.Create(context.Background(), 1, dto.BattleCreateRequest{QuestionID: 7, Type: models.BattleTypeLength, Language: "python"})
	require.ErrorIs(t, err, ErrNotCodingQuestion)

	_, err = svc.Create(context.Background(), 1, dto.BattleCreateRequest{QuestionID: 8, Type: models.BattleTypeLength, Language: "python"})
	require.ErrorIs(t, err, ErrQuestionNotFound)
}

func TestBattleServiceJoinRequiresInvitation(t *testing.T) {
	repo := newStubBattleRepo(battleFixture(3, models.BattleTypeLength))
	svc := newBattleTestService(repo, newStubResponseLedger(), &stubRunner{})

	_, err := svc.Join(context.Background(), 1, 99)
	require.ErrorIs(t, err, ErrNotInvited)

	require.NoError(t, repo.CreateInvitation(context.Background(), &models.BattleInvitation{BattleID: 1, UserID: 99}))
	participant, err := svc.Join(context.Background(), 1, 99)
	require.NoError(t, err)
	require.Equal(t, uint(99), participant.UserID)

	_, err = svc.Join(context.Background(), 1, 99)
	require.ErrorIs(t, err, ErrAlreadyJoined)
}

func TestBattleServiceOwnerJoinsWithoutInvitation(t *testing.T) {
	repo := newStubBattleRepo(battleFixture(3, models.BattleTypeLength))
	svc := newBattleTestService(repo, newStubResponseLedger(), &stubRunner{})

	participant, err := svc.Join(context.Background(), 1, 1)
	require.NoError(t, err)
	require.Equal(t, uint(1), participant.UserID)
	require.False(t, participant.TimeBegin.IsZero())
}

func TestBattleServiceSubmissionCapIsExact(t *testing.T) {
	repo := newStubBattleRepo(battleFixture(3, models.BattleTypeLength))
	ledger := newStubResponseLedger()
	run := &stubRunner{result: runner.ExecutionResult{Stdout: "42\n", ExitCode: 0}}
	svc := newBattleTestService(repo, ledger, run)
	joinParticipant(t, svc, 1)

	for i := 0; i < 3; i++ {
		result, err := svc.SubmitCode(context.Background(), 1, 1, dto.BattleSubmissionRequest{Source: "print(42)"})
		require.NoError(t, err)
		require.Equal(t, i+1, result.SubmissionCount)
	}

	_, err := svc.SubmitCode(context.Background(), 1, 1, dto.BattleSubmissionRequest{Source: "print(42)"})
	require.ErrorIs(t, err, ErrSubmissionLimitReached)
	require.ErrorIs(t, err, ErrSubmissionRejected)
	require.Equal(t, 3, ledger.itemCount())
	require.Equal(t, 3, run.callCount())
}

func TestBattleServiceZeroLimitRejectsImmediately(t *testing.T) {
	repo := newStubBattleRepo(battleFixture(0, models.BattleTypeLength))
	run := &stubRunner{}
	svc := newBattleTestService(repo, newStubResponseLedger(), run)
	joinParticipant(t, svc, 1)

	_, err := svc.SubmitCode(context.Background(), 1, 1, dto.BattleSubmissionRequest{Source: "print(42)"})
	require.ErrorIs(t, err, ErrSubmissionLimitReached)
	require.Zero(t, run.callCount())
}

func TestBattleServiceRunnerFailureConsumesNoSlot(t *testing.T) {
	repo := newStubBattleRepo(battleFixture(1, models.BattleTypeLength))
	ledger := newStubResponseLedger()
	run := &stubRunner{
		errs:   []error{runner.ErrRunnerTimeout},
		result: runner.ExecutionResult{Stdout: "42\n", ExitCode: 0},
	}
	svc := newBattleTestService(repo, ledger, run)
	joinParticipant(t, svc, 1)

	_, err := svc.SubmitCode(context.Background(), 1, 1, dto.BattleSubmissionRequest{Source: "while True: pass"})
	require.ErrorIs(t, err, runner.ErrRunnerTimeout)
	require.Zero(t, ledger.itemCount())

	result, err := svc.SubmitCode(context.Background(), 1, 1, dto.BattleSubmissionRequest{Source: "print(42)"})
	require.NoError(t, err)
	require.Equal(t, 1, result.SubmissionCount)
}

func TestBattleServiceGiveUpIsIdempotentAndTerminal(t *testing.T) {
	repo := newStubBattleRepo(battleFixture(5, models.BattleTypeLength))
	run := &stubRunner{}
	svc := newBattleTestService(repo, newStubResponseLedger(), run)
	joinParticipant(t, svc, 1)

	require.NoError(t, svc.GiveUp(context.Background(), 1, 1))
	require.NoError(t, svc.GiveUp(context.Background(), 1, 1))

	_, err := svc.SubmitCode(context.Background(), 1, 1, dto.BattleSubmissionRequest{Source: "print(42)"})
	require.ErrorIs(t, err, ErrParticipantGaveUp)
	require.ErrorIs(t, err, ErrSubmissionRejected)
	require.Zero(t, run.callCount())
}

func TestBattleServiceGiveUpRequiresParticipation(t *testing.T) {
	repo := newStubBattleRepo(battleFixture(5, models.BattleTypeLength))
	svc := newBattleTestService(repo, newStubResponseLedger(), &stubRunner{})

	err := svc.GiveUp(context.Background(), 1, 42)
	require.ErrorIs(t, err, ErrNotParticipant)
}

func TestBattleServiceWinnerByTimePrefersFastest(t *testing.T) {
	repo := newStubBattleRepo(battleFixture(5, models.BattleTypeTime))
	svc := newBattleTestService(repo, newStubResponseLedger(), &stubRunner{})

	begin := time.Now().Add(-time.Minute)
	slowEnd := begin.Add(12300 * time.Millisecond)
	fastEnd := begin.Add(9800 * time.Millisecond)
	repo.sessions[1] = &models.BattleResponse{ID: 1, BattleID: 1, ResponseID: 1, UserID: 1, TimeBegin: begin, TimeEnd: &slowEnd, Source: "x", SubmissionCount: 1}
	repo.sessions[2] = &models.BattleResponse{ID: 2, BattleID: 1, ResponseID: 2, UserID: 2, TimeBegin: begin, TimeEnd: &fastEnd, Source: "longer source", SubmissionCount: 1}

	winner, err := svc.DetermineWinner(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, uint(2), winner.UserID)
	require.InDelta(t, 9.8, winner.ElapsedSeconds, 0.001)
}

func TestBattleServiceWinnerByLengthTieGoesToFirstJoined(t *testing.T) {
	repo := newStubBattleRepo(battleFixture(5, models.BattleTypeLength))
	svc := newBattleTestService(repo, newStubResponseLedger(), &stubRunner{})

	end := time.Now()
	repo.sessions[1] = &models.BattleResponse{ID: 1, BattleID: 1, ResponseID: 1, UserID: 1, TimeBegin: end.Add(-time.Minute), TimeEnd: &end, Source: "print(42)", SubmissionCount: 1}
	repo.sessions[2] = &models.BattleResponse{ID: 2, BattleID: 1, ResponseID: 2, UserID: 2, TimeBegin: end.Add(-time.Minute), TimeEnd: &end, Source: "print(24)", SubmissionCount: 1}

	winner, err := svc.DetermineWinner(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, uint(1), winner.UserID)
}

func TestBattleServiceWinnerSkipsParticipantsWithoutSubmissions(t *testing.T) {
	repo := newStubBattleRepo(battleFixture(5, models.BattleTypeLength))
	svc := newBattleTestService(repo, newStubResponseLedger(), &stubRunner{})

	end := time.Now()
	repo.sessions[1] = &models.BattleResponse{ID: 1, BattleID: 1, ResponseID: 1, UserID: 1, TimeBegin: end.Add(-time.Minute), Source: "", SubmissionCount: 0}
	repo.sessions[2] = &models.BattleResponse{ID: 2, BattleID: 1, ResponseID: 2, UserID: 2, TimeBegin: end.Add(-time.Minute), TimeEnd: &end, Source: "print(42)", SubmissionCount: 1}

	winner, err := svc.DetermineWinner(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, uint(2), winner.UserID)
}

func TestBattleServiceWinnerRequiresActiveBattle(t *testing.T) {
	repo := newStubBattleRepo(battleFixture(5, models.BattleTypeLength))
	svc := newBattleTestService(repo, newStubResponseLedger(), &stubRunner{})

	_, err := svc.DetermineWinner(context.Background(), 1)
	require.ErrorIs(t, err, ErrBattleNotActive)

	end := time.Now()
	repo.sessions[1] = &models.BattleResponse{ID: 1, BattleID: 1, ResponseID: 1, UserID: 1, TimeBegin: end.Add(-time.Minute), TimeEnd: &end, Source: "print(42)", SubmissionCount: 1}
	repo.invitations[2] = true

	_, err = svc.DetermineWinner(context.Background(), 1)
	require.ErrorIs(t, err, ErrBattleNotActive)
}

func TestBattleServiceWinnerResolutionIsIdempotent(t *testing.T) {
	repo := newStubBattleRepo(battleFixture(5, models.BattleTypeLength))
	svc := newBattleTestService(repo, newStubResponseLedger(), &stubRunner{})

	end := time.Now()
	repo.sessions[1] = &models.BattleResponse{ID: 1, BattleID: 1, ResponseID: 1, UserID: 1, TimeBegin: end.Add(-time.Minute), TimeEnd: &end, Source: "print(42)", SubmissionCount: 1}

	first, err := svc.DetermineWinner(context.Background(), 1)
	require.NoError(t, err)
	second, err := svc.DetermineWinner(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, 1, repo.setWinnerCalls)
}

func TestBattleServiceClosedBattleRejectsSubmissions(t *testing.T) {
	repo := newStubBattleRepo(battleFixture(5, models.BattleTypeLength))
	run := &stubRunner{}
	svc := newBattleTestService(repo, newStubResponseLedger(), run)
	joinParticipant(t, svc, 1)

	winnerID := uint(1)
	repo.battle.WinnerID = &winnerID

	_, err := svc.SubmitCode(context.Background(), 1, 1, dto.BattleSubmissionRequest{Source: "print(42)"})
	require.ErrorIs(t, err, ErrBattleClosed)
	require.ErrorIs(t, err, ErrSubmissionRejected)
	require.Zero(t, run.callCount())
}

func TestBattleServiceConcurrentSubmissionsRespectCap(t *testing.T) {
	repo := newStubBattleRepo(battleFixture(10, models.BattleTypeLength))
	ledger := newStubResponseLedger()
	run := &stubRunner{result: runner.ExecutionResult{Stdout: "42\n", ExitCode: 0}}
	svc := newBattleTestService(repo, ledger, run)
	joinParticipant(t, svc, 1)

	var wg sync.WaitGroup
	results := make([]error, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			_, err := svc.SubmitCode(context.Background(), 1, 1, dto.BattleSubmissionRequest{Source: "print(42)"})
			results[slot] = err
		}(i)
	}
	wg.Wait()

	accepted, rejected := 0, 0
	for _, err := range results {
		if err == nil {
			accepted++
			continue
		}
		require.ErrorIs(t, err, ErrSubmissionLimitReached)
		rejected++
	}
	require.Equal(t, 10, accepted)
	require.Equal(t, 40, rejected)
	require.Equal(t, 10, ledger.itemCount())

	session, err := repo.GetResponse(context.Background(), 1, 1)
	require.NoError(t, err)
	require.Equal(t, 10, session.SubmissionCount)
}

func TestBattleServiceConcurrentResolutionPicksOneWinner(t *testing.T) {
	repo := newStubBattleRepo(battleFixture(5, models.BattleTypeTime))
	svc := newBattleTestService(repo, newStubResponseLedger(), &stubRunner{})

	begin := time.Now().Add(-time.Minute)
	end1 := begin.Add(15 * time.Second)
	end2 := begin.Add(11 * time.Second)
	repo.sessions[1] = &models.BattleResponse{ID: 1, BattleID: 1, ResponseID: 1, UserID: 1, TimeBegin: begin, TimeEnd: &end1, Source: "a", SubmissionCount: 1}
	repo.sessions[2] = &models.BattleResponse{ID: 2, BattleID: 1, ResponseID: 2, UserID: 2, TimeBegin: begin, TimeEnd: &end2, Source: "b", SubmissionCount: 1}

	var wg sync.WaitGroup
	winners := make([]uint, 20)
	failures := make([]error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			winner, err := svc.DetermineWinner(context.Background(), 1)
			winners[slot] = winner.ID
			failures[slot] = err
		}(i)
	}
	wg.Wait()

	for i, id := range winners {
		require.NoError(t, failures[i])
		require.Equal(t, winners[0], id)
	}
	require.Equal(t, 1, repo.setWinnerCalls)
	require.NotNil(t, repo.battle.WinnerID)
	require.Equal(t, uint(2), *repo.battle.WinnerID)
}

func TestBattleServiceStandingsWithoutCache(t *testing.T) {
	repo := newStubBattleRepo(battleFixture(5, models.BattleTypeLength))
	svc := newBattleTestService(repo, newStubResponseLedger(), &stubRunner{})
	joinParticipant(t, svc, 1)

	standings, err := svc.Standings(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, uint(1), standings.BattleID)
	require.Len(t, standings.Participants, 1)
	require.True(t, standings.IsActive)
	require.True(t, standings.Participants[0].IsActive)
}

func TestBattleServiceStandingsCacheLifecycle(t *testing.T) {
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })

	repo := newStubBattleRepo(battleFixture(5, models.BattleTypeLength))
	questions := &stubQuestionRepo{question: repo.battle.Question}
	svc := NewBattleService(repo, newStubResponseLedger(), questions, &stubRunner{}, redisClient, nil, validator.New(validator.WithRequiredStructEnabled()), zerolog.Nop(), BattleConfig{})
	joinParticipant(t, svc, 1)
	require.NoError(t, repo.CreateInvitation(context.Background(), &models.BattleInvitation{BattleID: 1, UserID: 2}))
	joinParticipant(t, svc, 2)

	first, err := svc.Standings(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, first.Participants, 2)
	require.True(t, mr.Exists("arena:battles:1:standings"))

	// A participant added behind the cache stays invisible until the TTL
	// or an invalidating event.
	repo.mu.Lock()
	repo.sessions[3] = &models.BattleResponse{ID: 9, BattleID: 1, UserID: 3, TimeBegin: time.Now()}
	repo.mu.Unlock()

	cached, err := svc.Standings(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, cached.Participants, 2)
	require.Equal(t, first.GeneratedAt.Unix(), cached.GeneratedAt.Unix())

	require.NoError(t, svc.GiveUp(context.Background(), 1, 2))
	require.False(t, mr.Exists("arena:battles:1:standings"))

	fresh, err := svc.Standings(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, fresh.Participants, 3)
	for _, participant := range fresh.Participants {
		if participant.UserID == 2 {
			require.True(t, participant.GiveUp)
			require.False(t, participant.IsActive)
		}
	}
}
