package lobby

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/thesrcielos/QuizBattle/internal/apperrors"
	"github.com/thesrcielos/QuizBattle/internal/config"
	"github.com/thesrcielos/QuizBattle/internal/content"
	"github.com/thesrcielos/QuizBattle/internal/game"
	"github.com/thesrcielos/QuizBattle/internal/store"
	"go.uber.org/zap"
)

var (
	alice = game.Player{ID: "1", DisplayName: "alice"}
	bob   = game.Player{ID: "2", DisplayName: "bob"}
	carol = game.Player{ID: "3", DisplayName: "carol"}
)

func testBank() *content.Bank {
	questions := []content.QuestionRecord{}
	for _, id := range []string{"q1", "q2", "q3", "q4", "q5", "q6", "q7", "q8", "q9", "q10", "q11", "q12"} {
		questions = append(questions, content.QuestionRecord{ID: id, Prompt: "prompt " + id, Options: []string{"a", "b"}, Answer: 0})
	}
	return &content.Bank{
		Topics: []content.Topic{{ID: "bio", Label: "Biology", Questions: questions}},
		Words:  []string{"DNA", "cell"},
	}
}

type fixture struct {
	svc    *LobbyService
	repo   *StoreLobbyRepository
	runner *SessionRunnerMock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := config.Config{
		TeardownGrace:       200 * time.Millisecond,
		LobbyTTL:            time.Minute,
		DuelQuestionCount:   10,
		DuelTimePerQuestion: 15 * time.Second,
	}
	repo := NewLobbyRepository(store.NewMemoryStore())
	provider := content.NewProviderWithSource(testBank(), rand.NewSource(3))
	svc := NewLobbyService(repo, provider, cfg, nil, zap.NewNop())
	runner := &SessionRunnerMock{}
	svc.AttachSessions(runner)
	return &fixture{svc: svc, repo: repo, runner: runner}
}

func TestCreate_GroupLobbyGetsPin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	l, err := f.svc.Create(ctx, alice, game.ModeQuizGroup)
	require.NoError(t, err)
	assert.Len(t, l.Pin, 6)
	assert.Equal(t, game.StatusWaiting, l.Status)
	assert.Equal(t, alice.ID, l.HostID)
	require.Contains(t, l.Players, alice.ID)
	assert.Equal(t, -1, l.Players[alice.ID].LastCompletedIndex)

	found, err := f.svc.FindByPin(ctx, l.Pin)
	require.NoError(t, err)
	assert.Equal(t, l.ID, found.ID)
}

func TestCreate_DuelLobbyHasNoPin(t *testing.T) {
	f := newFixture(t)
	l, err := f.svc.CreateDuel(context.Background(), alice)
	require.NoError(t, err)
	assert.Empty(t, l.Pin)
	assert.Equal(t, game.ModeQuizDuel, l.Mode)
}

func TestCreate_RetriesOnPinCollision(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pins := []string{"111111", "111111", "222222"}
	f.svc.newPin = func() (string, error) {
		p := pins[0]
		pins = pins[1:]
		return p, nil
	}

	first, err := f.svc.Create(ctx, alice, game.ModeQuizGroup)
	require.NoError(t, err)
	second, err := f.svc.Create(ctx, bob, game.ModeCharades)
	require.NoError(t, err)
	assert.Equal(t, "111111", first.Pin)
	assert.Equal(t, "222222", second.Pin)
}

func TestCreate_GivesUpWhenPinsExhausted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.svc.newPin = func() (string, error) { return "999999", nil }

	_, err := f.svc.Create(ctx, alice, game.ModeQuizGroup)
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, bob, game.ModeQuizGroup)
	assert.True(t, apperrors.Is(err, apperrors.KindTransientSyncFailure))

	lobbies, err := f.repo.ListLobbies(ctx)
	require.NoError(t, err)
	assert.Len(t, lobbies, 1)
}

func TestCreate_RejectsUnknownMode(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), alice, game.Mode("poker"))
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))
}

func TestJoin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l, err := f.svc.Create(ctx, alice, game.ModeQuizGroup)
	require.NoError(t, err)

	_, err = f.svc.Join(ctx, "000000", bob)
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))

	joined, err := f.svc.Join(ctx, l.Pin, bob)
	require.NoError(t, err)
	assert.Len(t, joined.Players, 2)

	again, err := f.svc.Join(ctx, l.Pin, bob)
	require.NoError(t, err)
	assert.Len(t, again.Players, 2)
}

func TestJoin_AfterStartIsAlreadyRunning(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.runner.On("Run", mock.Anything, mock.AnythingOfType("lobby.Launch")).Return(nil)

	l, err := f.svc.Create(ctx, alice, game.ModeQuizGroup)
	require.NoError(t, err)
	_, err = f.svc.Configure(ctx, l.ID, alice.ID, Settings{Selection: game.ContentSelection{Count: 5}})
	require.NoError(t, err)
	_, err = f.svc.Start(ctx, l.ID, alice.ID)
	require.NoError(t, err)

	_, err = f.svc.Join(ctx, l.Pin, bob)
	assert.True(t, apperrors.Is(err, apperrors.KindAlreadyRunning))
}

func TestConfigure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l, err := f.svc.Create(ctx, alice, game.ModeQuizGroup)
	require.NoError(t, err)
	_, err = f.svc.Join(ctx, l.Pin, bob)
	require.NoError(t, err)

	_, err = f.svc.Configure(ctx, l.ID, bob.ID, Settings{})
	assert.True(t, apperrors.Is(err, apperrors.KindForbidden))

	_, err = f.svc.Configure(ctx, l.ID, alice.ID, Settings{TimePerQuestion: 500})
	assert.True(t, apperrors.Is(err, apperrors.KindValidation))

	configured, err := f.svc.Configure(ctx, l.ID, alice.ID, Settings{Selection: game.ContentSelection{Topics: []string{"bio"}}})
	require.NoError(t, err)
	assert.Equal(t, game.StatusConfig, configured.Status)
	assert.Equal(t, DefaultTimePerQuestion, configured.Quiz.TimePerQuestion)
}

func TestConfigure_CharadesBounds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l, err := f.svc.Create(ctx, alice, game.ModeCharades)
	require.NoError(t, err)

	_, err = f.svc.Configure(ctx, l.ID, alice.ID, Settings{DurationSeconds: 10})
	assert.Error(t, err)
	_, err = f.svc.Configure(ctx, l.ID, alice.ID, Settings{Rounds: 11})
	assert.Error(t, err)

	configured, err := f.svc.Configure(ctx, l.ID, alice.ID, Settings{DurationSeconds: 30, Rounds: 2})
	require.NoError(t, err)
	assert.Equal(t, 30, configured.Charades.DurationSeconds)
	assert.Equal(t, 2, configured.Charades.TotalRounds)
}

func TestStart_RequiresContent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l, err := f.svc.Create(ctx, alice, game.ModeQuizGroup)
	require.NoError(t, err)

	_, err = f.svc.Start(ctx, l.ID, alice.ID)
	assert.True(t, apperrors.Is(err, apperrors.KindInvalidState))
	f.runner.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
}

func TestStart_GroupQuiz(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	var launched Launch
	f.runner.On("Run", mock.Anything, mock.AnythingOfType("lobby.Launch")).
		Run(func(args mock.Arguments) { launched = args.Get(1).(Launch) }).
		Return(nil)

	l, err := f.svc.Create(ctx, alice, game.ModeQuizGroup)
	require.NoError(t, err)
	_, err = f.svc.Configure(ctx, l.ID, alice.ID, Settings{Selection: game.ContentSelection{Count: 10}, TimePerQuestion: 10})
	require.NoError(t, err)

	started, err := f.svc.Start(ctx, l.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, game.StatusRunning, started.Status)
	require.NotNil(t, started.StartedAt)
	assert.Len(t, started.Quiz.Questions, 10)
	assert.Equal(t, []int{2, 5, 8, 9}, started.Quiz.Checkpoints)
	assert.Len(t, launched.Questions, 10)
	assert.Equal(t, l.ID, launched.Lobby.ID)

	stored, err := f.svc.Get(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, game.StatusRunning, stored.Status)
}

func TestStart_RunnerFailureLeavesLobbyUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.runner.On("Run", mock.Anything, mock.Anything).Return(errors.New("no capacity"))

	l, err := f.svc.Create(ctx, alice, game.ModeQuizGroup)
	require.NoError(t, err)
	_, err = f.svc.Configure(ctx, l.ID, alice.ID, Settings{})
	require.NoError(t, err)

	_, err = f.svc.Start(ctx, l.ID, alice.ID)
	assert.Error(t, err)

	stored, err := f.svc.Get(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, game.StatusConfig, stored.Status)
	assert.Nil(t, stored.StartedAt)
}

func TestStart_Charades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	var launched Launch
	f.runner.On("Run", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { launched = args.Get(1).(Launch) }).
		Return(nil)

	l, err := f.svc.Create(ctx, alice, game.ModeCharades)
	require.NoError(t, err)
	_, err = f.svc.Start(ctx, l.ID, alice.ID)
	assert.True(t, apperrors.Is(err, apperrors.KindInvalidState))

	_, err = f.svc.Join(ctx, l.Pin, bob)
	require.NoError(t, err)
	_, err = f.svc.Start(ctx, l.ID, alice.ID)
	require.NoError(t, err)

	state := launched.Charades
	require.NotNil(t, state)
	assert.ElementsMatch(t, []string{alice.ID, bob.ID}, state.DrawerOrder)
	assert.Equal(t, state.DrawerOrder[0], state.DrawerID)
	assert.Equal(t, 1, state.CurrentRound)
	assert.Equal(t, DefaultCharadesRounds, state.TotalRounds)
	assert.Contains(t, []string{"DNA", "cell"}, state.CurrentWord)
	assert.Equal(t, game.CharadesDrawing, state.Status)
}

func TestAddBot_StartsDuelImmediately(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.runner.On("Run", mock.Anything, mock.Anything).Return(nil)

	l, err := f.svc.CreateDuel(ctx, alice)
	require.NoError(t, err)

	_, err = f.svc.AddBot(ctx, l.ID, bob.ID, 1000)
	assert.True(t, apperrors.Is(err, apperrors.KindForbidden))

	started, err := f.svc.AddBot(ctx, l.ID, alice.ID, 1000)
	require.NoError(t, err)
	assert.Equal(t, game.StatusRunning, started.Status)
	assert.True(t, started.HasBot())
	assert.Len(t, started.Quiz.Questions, 10)
	assert.Equal(t, 15, started.Quiz.TimePerQuestion)
	assert.Empty(t, started.Quiz.Checkpoints)
	for _, slot := range started.Players {
		if slot.IsBot {
			require.NotNil(t, slot.BotRating)
			assert.Equal(t, 1000, *slot.BotRating)
		}
	}
}

func TestAddBot_RejectsCharades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l, err := f.svc.Create(ctx, alice, game.ModeCharades)
	require.NoError(t, err)

	_, err = f.svc.AddBot(ctx, l.ID, alice.ID, 1000)
	assert.True(t, apperrors.Is(err, apperrors.KindInvalidState))
}

func TestStartDuel_InjectsOpponent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.runner.On("Run", mock.Anything, mock.Anything).Return(nil)

	l, err := f.svc.CreateDuel(ctx, alice)
	require.NoError(t, err)
	started, err := f.svc.StartDuel(ctx, l.ID, bob)
	require.NoError(t, err)
	assert.Len(t, started.Players, 2)
	assert.Equal(t, game.StatusRunning, started.Status)

	_, err = f.svc.StartDuel(ctx, l.ID, carol)
	assert.True(t, apperrors.Is(err, apperrors.KindAlreadyRunning))
}

func TestLeave_ReassignsHostAndFinishesWhenEmpty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l, err := f.svc.Create(ctx, alice, game.ModeQuizGroup)
	require.NoError(t, err)
	_, err = f.svc.Join(ctx, l.Pin, carol)
	require.NoError(t, err)
	_, err = f.svc.Join(ctx, l.Pin, bob)
	require.NoError(t, err)

	require.NoError(t, f.svc.Leave(ctx, l.ID, alice.ID))
	stored, err := f.svc.Get(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, bob.ID, stored.HostID)
	assert.NotContains(t, stored.Players, alice.ID)

	err = f.svc.Leave(ctx, l.ID, alice.ID)
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))

	require.NoError(t, f.svc.Leave(ctx, l.ID, bob.ID))
	require.NoError(t, f.svc.Leave(ctx, l.ID, carol.ID))
	stored, err = f.svc.Get(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, game.StatusFinished, stored.Status)
}

func TestLeave_RunningLobbyDelegatesToSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.runner.On("Run", mock.Anything, mock.Anything).Return(nil)
	f.runner.On("PlayerLeft", mock.Anything, bob.ID).Return(true)

	l, err := f.svc.CreateDuel(ctx, alice)
	require.NoError(t, err)
	_, err = f.svc.StartDuel(ctx, l.ID, bob)
	require.NoError(t, err)

	require.NoError(t, f.svc.Leave(ctx, l.ID, bob.ID))
	f.runner.AssertCalled(t, "PlayerLeft", l.ID, bob.ID)

	stored, err := f.svc.Get(ctx, l.ID)
	require.NoError(t, err)
	assert.Contains(t, stored.Players, bob.ID)
}

func TestTeardown_FinishesThenDeletesAfterGrace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.runner.On("Run", mock.Anything, mock.Anything).Return(nil)
	f.runner.On("Stop", mock.Anything).Return()

	l, err := f.svc.CreateDuel(ctx, alice)
	require.NoError(t, err)
	_, err = f.svc.StartDuel(ctx, l.ID, bob)
	require.NoError(t, err)

	err = f.svc.Teardown(ctx, l.ID, bob.ID)
	assert.True(t, apperrors.Is(err, apperrors.KindForbidden))

	require.NoError(t, f.svc.Teardown(ctx, l.ID, alice.ID))
	f.runner.AssertCalled(t, "Stop", l.ID)

	stored, err := f.svc.Get(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, game.StatusFinished, stored.Status)
	require.NoError(t, f.svc.Finish(ctx, l.ID))

	require.Eventually(t, func() bool {
		_, err := f.svc.Get(ctx, l.ID)
		return apperrors.Is(err, apperrors.KindNotFound)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestFinish_ReleasesPinWithRecord(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l, err := f.svc.Create(ctx, alice, game.ModeQuizGroup)
	require.NoError(t, err)

	require.NoError(t, f.svc.Finish(ctx, l.ID))
	_, err = f.svc.Join(ctx, l.Pin, bob)
	assert.True(t, apperrors.Is(err, apperrors.KindAlreadyRunning))

	require.Eventually(t, func() bool {
		_, err := f.svc.FindByPin(ctx, l.Pin)
		return apperrors.Is(err, apperrors.KindNotFound)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestUpdateSlot_IsMonotonic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	l, err := f.svc.Create(ctx, alice, game.ModeQuizGroup)
	require.NoError(t, err)

	_, err = f.svc.UpdateSlot(ctx, l.ID, game.PlayerSlot{PlayerID: alice.ID, Score: 1500, LastCompletedIndex: 1})
	require.NoError(t, err)
	updated, err := f.svc.UpdateSlot(ctx, l.ID, game.PlayerSlot{PlayerID: alice.ID, Score: 1000, LastCompletedIndex: 0})
	require.NoError(t, err)

	slot := updated.Players[alice.ID]
	assert.Equal(t, 1500, slot.Score)
	assert.Equal(t, 1, slot.LastCompletedIndex)

	_, err = f.svc.UpdateSlot(ctx, l.ID, game.PlayerSlot{PlayerID: "ghost"})
	assert.True(t, apperrors.Is(err, apperrors.KindNotFound))
}

func TestReap_FinishesAbandonedLobbies(t *testing.T) {
	f := newFixture(t)
	f.svc.cfg.TeardownGrace = time.Minute
	ctx := context.Background()
	start := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return start }

	old, err := f.svc.Create(ctx, alice, game.ModeQuizGroup)
	require.NoError(t, err)

	f.svc.now = func() time.Time { return start.Add(50 * time.Second) }
	fresh, err := f.svc.Create(ctx, bob, game.ModeQuizGroup)
	require.NoError(t, err)

	f.svc.now = func() time.Time { return start.Add(90 * time.Second) }
	assert.Equal(t, 1, f.svc.Reap(ctx))

	stored, err := f.svc.Get(ctx, old.ID)
	require.NoError(t, err)
	assert.Equal(t, game.StatusFinished, stored.Status)

	stored, err = f.svc.Get(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, game.StatusWaiting, stored.Status)
}

func TestReap_FinishesRunningLobbyWithNoLiveSession(t *testing.T) {
	f := newFixture(t)
	f.svc.cfg.TeardownGrace = time.Minute
	ctx := context.Background()
	start := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return start }
	f.runner.On("Run", mock.Anything, mock.Anything).Return(nil)

	startQuiz := func(host game.Player) *game.Lobby {
		l, err := f.svc.Create(ctx, host, game.ModeQuizGroup)
		require.NoError(t, err)
		_, err = f.svc.Configure(ctx, l.ID, host.ID, Settings{Selection: game.ContentSelection{Count: 10}, TimePerQuestion: 10})
		require.NoError(t, err)
		started, err := f.svc.Start(ctx, l.ID, host.ID)
		require.NoError(t, err)
		return started
	}
	orphan := startQuiz(alice)
	live := startQuiz(bob)
	f.runner.On("Running", orphan.ID).Return(false)
	f.runner.On("Running", live.ID).Return(true)

	// ten questions of 10s can still be in play, plus the one minute TTL
	f.svc.now = func() time.Time { return start.Add(150 * time.Second) }
	assert.Equal(t, 0, f.svc.Reap(ctx))
	f.runner.AssertNotCalled(t, "Running", mock.Anything)

	f.svc.now = func() time.Time { return start.Add(161 * time.Second) }
	assert.Equal(t, 1, f.svc.Reap(ctx))

	stored, err := f.svc.Get(ctx, orphan.ID)
	require.NoError(t, err)
	assert.Equal(t, game.StatusFinished, stored.Status)

	stored, err = f.svc.Get(ctx, live.ID)
	require.NoError(t, err)
	assert.Equal(t, game.StatusRunning, stored.Status)
}

func TestCreate_InstancesSharingAStoreNeverShareAPin(t *testing.T) {
	st := store.NewMemoryStore()
	cfg := config.Config{TeardownGrace: time.Minute, LobbyTTL: time.Minute, DuelQuestionCount: 10}

	const instances = 8
	services := make([]*LobbyService, instances)
	for i := range services {
		svc := NewLobbyService(NewLobbyRepository(st), content.NewProviderWithSource(testBank(), rand.NewSource(int64(i))), cfg, nil, zap.NewNop())
		svc.newPin = func() (string, error) { return "424242", nil }
		services[i] = svc
	}

	errs := make(chan error, instances)
	for i, svc := range services {
		go func(svc *LobbyService, i int) {
			_, err := svc.Create(context.Background(), game.Player{ID: string(rune('a' + i)), DisplayName: "host"}, game.ModeQuizGroup)
			errs <- err
		}(svc, i)
	}

	created := 0
	for i := 0; i < instances; i++ {
		if err := <-errs; err == nil {
			created++
		} else {
			assert.True(t, apperrors.Is(err, apperrors.KindTransientSyncFailure))
		}
	}
	assert.Equal(t, 1, created)
}
