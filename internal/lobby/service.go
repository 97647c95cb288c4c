// Package lobby owns lobby creation, joining, configuration and the lobby
// state machine WAITING -> IN_LOBBY_CONFIG -> RUNNING -> FINISHED.
package lobby

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/thesrcielos/QuizBattle/internal/apperrors"
	"github.com/thesrcielos/QuizBattle/internal/config"
	"github.com/thesrcielos/QuizBattle/internal/game"
	"github.com/thesrcielos/QuizBattle/internal/metrics"
	"go.uber.org/zap"
)

const (
	DefaultTimePerQuestion = 20
	MinTimePerQuestion     = 5
	MaxTimePerQuestion     = 120

	DefaultCharadesDuration = 80
	MinCharadesDuration     = 30
	MaxCharadesDuration     = 180
	DefaultCharadesRounds   = 3
	MaxCharadesRounds       = 10

	BotDisplayName = "Bot"
)

type ContentProvider interface {
	Questions(ctx context.Context, selection game.ContentSelection) ([]game.Question, error)
	Word(ctx context.Context, used []string) (string, error)
	Shuffle(ids []string) []string
}

// Launch is everything a session needs to drive a lobby that just started.
type Launch struct {
	Lobby     *game.Lobby
	Questions []game.Question
	Charades  *game.CharadesState
}

type SessionRunner interface {
	Run(ctx context.Context, launch Launch) error
	// PlayerLeft reports whether a running session took over the departure.
	PlayerLeft(lobbyID, playerID string) bool
	Stop(lobbyID string)
	// Running reports whether this instance drives the lobby's session.
	Running(lobbyID string) bool
}

// Settings is the host's configuration; fields for the other mode are ignored.
type Settings struct {
	Selection       game.ContentSelection `json:"selection"`
	TimePerQuestion int                   `json:"timePerQuestion"`
	DurationSeconds int                   `json:"durationSeconds"`
	Rounds          int                   `json:"rounds"`
}

type LobbyService struct {
	repo     LobbyRepository
	content  ContentProvider
	sessions SessionRunner
	cfg      config.Config
	metrics  *metrics.Metrics
	log      *zap.Logger

	mu      sync.Mutex
	now     func() time.Time
	newPin  func() (string, error)
	pending map[string]*time.Timer
}

func NewLobbyService(repo LobbyRepository, content ContentProvider, cfg config.Config, m *metrics.Metrics, log *zap.Logger) *LobbyService {
	return &LobbyService{
		repo:    repo,
		content: content,
		cfg:     cfg,
		metrics: m,
		log:     log,
		now:     time.Now,
		newPin:  randomPin,
		pending: make(map[string]*time.Timer),
	}
}

// AttachSessions wires the session runner after construction; the runner
// itself depends on this service to finish lobbies.
func (s *LobbyService) AttachSessions(runner SessionRunner) {
	s.sessions = runner
}

func (s *LobbyService) Get(ctx context.Context, lobbyID string) (*game.Lobby, error) {
	return s.repo.GetLobby(ctx, lobbyID)
}

func (s *LobbyService) Create(ctx context.Context, host game.Player, mode game.Mode) (*game.Lobby, error) {
	if !mode.Valid() {
		return nil, apperrors.NewAppError(400, "unknown mode", nil)
	}
	if host.ID == "" {
		return nil, apperrors.NewAppError(400, "host id is required", nil)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	l := &game.Lobby{
		ID:        uuid.New().String(),
		Mode:      mode,
		HostID:    host.ID,
		Status:    game.StatusWaiting,
		Players:   map[string]*game.PlayerSlot{host.ID: game.NewSlot(host)},
		CreatedAt: s.now(),
	}

	if mode != game.ModeQuizDuel {
		pin, err := s.reservePin(ctx, l.ID)
		if err != nil {
			return nil, err
		}
		l.Pin = pin
	}

	if err := s.repo.SaveLobby(ctx, l); err != nil {
		if l.Pin != "" {
			_ = s.repo.ReleasePin(ctx, l.Pin)
		}
		return nil, err
	}

	s.metrics.LobbyCreated(string(mode))
	s.log.Info("lobby created",
		zap.String("lobby_id", l.ID),
		zap.String("mode", string(mode)),
		zap.String("host_id", host.ID),
	)
	return l, nil
}

func (s *LobbyService) reservePin(ctx context.Context, lobbyID string) (string, error) {
	for attempt := 0; attempt < pinAttempts; attempt++ {
		pin, err := s.newPin()
		if err != nil {
			return "", apperrors.NewAppError(500, "error generating pin", err)
		}
		ok, err := s.repo.ReservePin(ctx, pin, lobbyID)
		if err != nil {
			return "", err
		}
		if ok {
			return pin, nil
		}
	}
	return "", apperrors.TransientSyncFailure("could not allocate a free pin", nil)
}

func (s *LobbyService) FindByPin(ctx context.Context, pin string) (*game.Lobby, error) {
	lobbyID, found, err := s.repo.LobbyIDForPin(ctx, pin)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperrors.NotFound("no lobby with that pin")
	}
	return s.repo.GetLobby(ctx, lobbyID)
}

func (s *LobbyService) Join(ctx context.Context, pin string, player game.Player) (*game.Lobby, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.FindByPin(ctx, pin)
	if err != nil {
		return nil, err
	}
	if _, ok := l.Players[player.ID]; ok {
		return l, nil
	}
	if !l.Status.Joinable() {
		return nil, apperrors.AlreadyRunning("lobby has already started")
	}

	l.Players[player.ID] = game.NewSlot(player)
	if err := s.repo.SaveLobby(ctx, l); err != nil {
		return nil, err
	}
	s.log.Info("player joined lobby", zap.String("lobby_id", l.ID), zap.String("player_id", player.ID))
	return l, nil
}

func (s *LobbyService) Configure(ctx context.Context, lobbyID, hostID string, settings Settings) (*game.Lobby, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.hostLobby(ctx, lobbyID, hostID)
	if err != nil {
		return nil, err
	}
	if !l.Status.Joinable() {
		return nil, apperrors.AlreadyRunning("lobby has already started")
	}
	if l.Mode == game.ModeQuizDuel {
		return nil, apperrors.InvalidState("duel lobbies are configured automatically")
	}

	if l.Mode == game.ModeCharades {
		charades, err := charadesConfig(settings)
		if err != nil {
			return nil, err
		}
		l.Charades = charades
	} else {
		quiz, err := quizConfig(settings)
		if err != nil {
			return nil, err
		}
		l.Quiz = quiz
	}
	l.Status = game.StatusConfig

	if err := s.repo.SaveLobby(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

func quizConfig(settings Settings) (*game.QuizConfig, error) {
	if settings.Selection.Count < 0 {
		return nil, apperrors.NewAppError(400, "question count cannot be negative", nil)
	}
	tpq := settings.TimePerQuestion
	if tpq == 0 {
		tpq = DefaultTimePerQuestion
	}
	if tpq < MinTimePerQuestion || tpq > MaxTimePerQuestion {
		return nil, apperrors.NewAppError(400, "time per question out of range", nil)
	}
	return &game.QuizConfig{Selection: settings.Selection, TimePerQuestion: tpq}, nil
}

func charadesConfig(settings Settings) (*game.CharadesConfig, error) {
	duration := settings.DurationSeconds
	if duration == 0 {
		duration = DefaultCharadesDuration
	}
	rounds := settings.Rounds
	if rounds == 0 {
		rounds = DefaultCharadesRounds
	}
	if duration < MinCharadesDuration || duration > MaxCharadesDuration {
		return nil, apperrors.NewAppError(400, "round duration out of range", nil)
	}
	if rounds < 1 || rounds > MaxCharadesRounds {
		return nil, apperrors.NewAppError(400, "round count out of range", nil)
	}
	return &game.CharadesConfig{DurationSeconds: duration, TotalRounds: rounds}, nil
}

func (s *LobbyService) Start(ctx context.Context, lobbyID, hostID string) (*game.Lobby, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.hostLobby(ctx, lobbyID, hostID)
	if err != nil {
		return nil, err
	}
	if !l.Status.Joinable() {
		return nil, apperrors.AlreadyRunning("lobby has already started")
	}

	switch l.Mode {
	case game.ModeQuizGroup:
		if l.Quiz == nil {
			return nil, apperrors.InvalidState("select content before starting")
		}
	case game.ModeQuizDuel:
		if len(l.Players) != 2 {
			return nil, apperrors.InvalidState("a duel needs exactly two players")
		}
		l.Quiz = s.duelConfig()
	case game.ModeCharades:
		if len(l.Humans()) < 2 {
			return nil, apperrors.InvalidState("charades needs at least two players")
		}
		if l.Charades == nil {
			l.Charades = &game.CharadesConfig{DurationSeconds: DefaultCharadesDuration, TotalRounds: DefaultCharadesRounds}
		}
	}
	return s.launch(ctx, l)
}

func (s *LobbyService) duelConfig() *game.QuizConfig {
	return &game.QuizConfig{
		Selection:       game.ContentSelection{Count: s.cfg.DuelQuestionCount},
		TimePerQuestion: int(s.cfg.DuelTimePerQuestion / time.Second),
	}
}

// launch moves a lobby to RUNNING and hands it to the session runner. On any
// failure the stored lobby is left as it was.
func (s *LobbyService) launch(ctx context.Context, l *game.Lobby) (*game.Lobby, error) {
	if s.sessions == nil {
		return nil, apperrors.NewAppError(500, "session runner not attached", nil)
	}
	previous, err := s.repo.GetLobby(ctx, l.ID)
	if err != nil {
		return nil, err
	}

	run := Launch{Lobby: l}
	if l.Mode.IsQuiz() {
		questions, err := s.content.Questions(ctx, l.Quiz.Selection)
		if err != nil {
			return nil, err
		}
		public := make([]game.PublicQuestion, len(questions))
		for i, q := range questions {
			public[i] = q.Public()
		}
		quiz := *l.Quiz
		quiz.Questions = public
		if l.Mode == game.ModeQuizGroup {
			quiz.Checkpoints = game.Checkpoints(len(questions))
		}
		l.Quiz = &quiz
		run.Questions = questions
	} else {
		state, err := s.firstRound(ctx, l)
		if err != nil {
			return nil, err
		}
		run.Charades = state
	}

	started := s.now()
	l.Status = game.StatusRunning
	l.StartedAt = &started
	if err := s.repo.SaveLobby(ctx, l); err != nil {
		return nil, err
	}

	if err := s.sessions.Run(ctx, run); err != nil {
		if restoreErr := s.repo.SaveLobby(ctx, previous); restoreErr != nil {
			s.log.Warn("error restoring lobby after failed start", zap.String("lobby_id", l.ID), zap.Error(restoreErr))
		}
		return nil, err
	}

	s.log.Info("lobby started",
		zap.String("lobby_id", l.ID),
		zap.String("mode", string(l.Mode)),
		zap.Int("players", len(l.Players)),
	)
	return l, nil
}

func (s *LobbyService) firstRound(ctx context.Context, l *game.Lobby) (*game.CharadesState, error) {
	humans := l.Humans()
	sort.Strings(humans)
	order := s.content.Shuffle(humans)

	word, err := s.content.Word(ctx, nil)
	if err != nil {
		return nil, err
	}
	state := &game.CharadesState{
		CurrentWord:     word,
		StartTime:       s.now(),
		DurationSeconds: l.Charades.DurationSeconds,
		TotalRounds:     l.Charades.TotalRounds,
		CurrentRound:    1,
		DrawerOrder:     order,
		RevealedIndices: []int{},
		GuessedBy:       []string{},
		Status:          game.CharadesDrawing,
	}
	state.DrawerID = state.DrawerFor(1)
	return state, nil
}

// AddBot puts a synthetic opponent with the given rating into the lobby and
// starts it immediately.
func (s *LobbyService) AddBot(ctx context.Context, lobbyID, hostID string, botRating int) (*game.Lobby, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.hostLobby(ctx, lobbyID, hostID)
	if err != nil {
		return nil, err
	}
	return s.addBot(ctx, l, botRating)
}

func (s *LobbyService) addBot(ctx context.Context, l *game.Lobby, botRating int) (*game.Lobby, error) {
	if !l.Status.Joinable() {
		return nil, apperrors.AlreadyRunning("lobby has already started")
	}
	if l.Mode == game.ModeCharades {
		return nil, apperrors.InvalidState("bots cannot play charades")
	}
	if l.HasBot() {
		return nil, apperrors.InvalidState("lobby already has a bot")
	}
	if l.Mode == game.ModeQuizDuel && len(l.Players) != 1 {
		return nil, apperrors.InvalidState("duel is full")
	}

	botID := "bot-" + uuid.New().String()
	l.Players[botID] = game.NewBotSlot(botID, BotDisplayName, botRating)
	if l.Mode == game.ModeQuizDuel || l.Quiz == nil {
		l.Quiz = s.duelConfig()
	}
	return s.launch(ctx, l)
}

// CreateDuel parks a duel lobby for a player waiting in the queue.
func (s *LobbyService) CreateDuel(ctx context.Context, host game.Player) (*game.Lobby, error) {
	return s.Create(ctx, host, game.ModeQuizDuel)
}

// StartDuel injects the opponent into a parked duel lobby and runs it.
func (s *LobbyService) StartDuel(ctx context.Context, lobbyID string, opponent game.Player) (*game.Lobby, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.repo.GetLobby(ctx, lobbyID)
	if err != nil {
		return nil, err
	}
	if l.Mode != game.ModeQuizDuel {
		return nil, apperrors.InvalidState("not a duel lobby")
	}
	if !l.Status.Joinable() {
		return nil, apperrors.AlreadyRunning("duel has already started")
	}
	if len(l.Players) != 1 {
		return nil, apperrors.InvalidState("duel is full")
	}
	l.Players[opponent.ID] = game.NewSlot(opponent)
	l.Quiz = s.duelConfig()
	return s.launch(ctx, l)
}

// StartDuelWithBot is the matchmaking fallback when nobody else is waiting.
func (s *LobbyService) StartDuelWithBot(ctx context.Context, lobbyID string, botRating int) (*game.Lobby, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.repo.GetLobby(ctx, lobbyID)
	if err != nil {
		return nil, err
	}
	return s.addBot(ctx, l, botRating)
}

// Leave removes a player. In a running lobby the session marks them finished
// instead; the lobby goes on for everyone else.
func (s *LobbyService) Leave(ctx context.Context, lobbyID, playerID string) error {
	s.mu.Lock()
	l, err := s.repo.GetLobby(ctx, lobbyID)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if _, ok := l.Players[playerID]; !ok {
		s.mu.Unlock()
		return apperrors.NotFound("player is not in this lobby")
	}

	switch l.Status {
	case game.StatusFinished:
		s.mu.Unlock()
		return nil
	case game.StatusRunning:
		s.mu.Unlock()
		if s.sessions != nil && s.sessions.PlayerLeft(lobbyID, playerID) {
			return nil
		}
		return apperrors.InvalidState("session is not active on this instance")
	}
	defer s.mu.Unlock()

	delete(l.Players, playerID)
	if len(l.Humans()) == 0 {
		return s.finishLocked(ctx, l)
	}
	if l.HostID == playerID {
		l.HostID = nextHost(l)
	}
	if err := s.repo.SaveLobby(ctx, l); err != nil {
		return err
	}
	s.log.Info("player left lobby", zap.String("lobby_id", l.ID), zap.String("player_id", playerID))
	return nil
}

func nextHost(l *game.Lobby) string {
	humans := l.Humans()
	sort.Strings(humans)
	return humans[0]
}

// Teardown ends a lobby for everyone; only the host may call it.
func (s *LobbyService) Teardown(ctx context.Context, lobbyID, hostID string) error {
	s.mu.Lock()
	l, err := s.hostLobby(ctx, lobbyID, hostID)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	if l.Status == game.StatusRunning && s.sessions != nil {
		s.sessions.Stop(lobbyID)
	}
	return s.Finish(ctx, lobbyID)
}

// Finish marks a lobby FINISHED and deletes it after the teardown grace, so
// clients mid-transition still observe the terminal status. Finishing an
// already finished lobby is a no-op.
func (s *LobbyService) Finish(ctx context.Context, lobbyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.repo.GetLobby(ctx, lobbyID)
	if err != nil {
		return err
	}
	return s.finishLocked(ctx, l)
}

func (s *LobbyService) finishLocked(ctx context.Context, l *game.Lobby) error {
	if l.Status == game.StatusFinished {
		return nil
	}
	finished := s.now()
	l.Status = game.StatusFinished
	l.FinishedAt = &finished
	if err := s.repo.SaveLobby(ctx, l); err != nil {
		return err
	}
	s.scheduleDelete(l)
	s.log.Info("lobby finished", zap.String("lobby_id", l.ID))
	return nil
}

func (s *LobbyService) scheduleDelete(l *game.Lobby) {
	snapshot := *l
	if _, ok := s.pending[l.ID]; ok {
		return
	}
	s.pending[l.ID] = time.AfterFunc(s.cfg.TeardownGrace, func() {
		s.mu.Lock()
		delete(s.pending, snapshot.ID)
		s.mu.Unlock()

		if err := s.repo.DeleteLobby(context.Background(), &snapshot); err != nil {
			s.log.Warn("error deleting finished lobby", zap.String("lobby_id", snapshot.ID), zap.Error(err))
		}
	})
}

// UpdateSlot folds a progress update into a player's slot. Stale updates are
// ignored.
func (s *LobbyService) UpdateSlot(ctx context.Context, lobbyID string, update game.PlayerSlot) (*game.Lobby, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.repo.GetLobby(ctx, lobbyID)
	if err != nil {
		return nil, err
	}
	slot, ok := l.Players[update.PlayerID]
	if !ok {
		return nil, apperrors.NotFound("player is not in this lobby")
	}
	if !slot.Merge(update) {
		return l, nil
	}
	if err := s.repo.SaveLobby(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *LobbyService) hostLobby(ctx context.Context, lobbyID, hostID string) (*game.Lobby, error) {
	l, err := s.repo.GetLobby(ctx, lobbyID)
	if err != nil {
		return nil, err
	}
	if l.HostID != hostID {
		return nil, apperrors.Forbidden("only the host can do that")
	}
	return l, nil
}
