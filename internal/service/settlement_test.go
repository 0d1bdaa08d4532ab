package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"trivia_duel/internal/config"
	"trivia_duel/internal/domain"
	"trivia_duel/internal/game"
)

var testRewards = config.RewardConfig{WinPoints: 100, WinCoins: 50, LoseCoins: 10}

type settlerFixture struct {
	settler   *Settler
	progress  *fakeProgress
	matches   *fakeMatches
	audit     *fakeAudit
	publisher *fakePublisher
}

func newSettlerFixture(maxAttempts int) *settlerFixture {
	f := &settlerFixture{
		progress:  newFakeProgress(),
		matches:   &fakeMatches{},
		audit:     &fakeAudit{},
		publisher: &fakePublisher{},
	}
	f.settler = NewSettler(f.progress, f.matches, NewAuditService(f.audit), f.publisher, testRewards, maxAttempts)
	return f
}

func matchQuestions() []domain.Question {
	qs := make([]domain.Question, 0, domain.QuestionsPerMatch)
	for _, band := range domain.MatchBands {
		for i := 0; i < band.Size; i++ {
			n := len(qs)
			qs = append(qs, domain.Question{ID: fmt.Sprintf("q%d", n), Difficulty: band.Difficulty, CorrectIndex: 0})
		}
	}
	return qs
}

// alice отвечает правильно на 3 вопроса и ошибается, bob проходит все 10
func finishedMatch(t *testing.T) (domain.Match, *game.Result) {
	t.Helper()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m, err := game.NewMatch("m1", "science", "alice", "bob", matchQuestions(), game.Timing{}, now)
	require.NoError(t, err)
	require.NoError(t, m.Start(now))

	right, wrong := 0, 1
	for i := 0; i < 3; i++ {
		_, err := m.SubmitAnswer("alice", fmt.Sprintf("q%d", i), &right, now.Add(time.Second))
		require.NoError(t, err)
	}
	_, err = m.SubmitAnswer("alice", "q3", &wrong, now.Add(2*time.Second))
	require.NoError(t, err)

	var out *game.AnswerOutcome
	for i := 0; i < 10; i++ {
		out, err = m.SubmitAnswer("bob", fmt.Sprintf("q%d", i), &right, now.Add(3*time.Second))
		require.NoError(t, err)
	}
	require.NotNil(t, out.Result)
	return m.Snapshot(), out.Result
}

func TestSettleNormalMatch(t *testing.T) {
	f := newSettlerFixture(3)
	m, res := finishedMatch(t)

	require.NoError(t, f.settler.Settle(context.Background(), m, res))

	bob := f.progress.get("bob")
	require.Equal(t, int64(100), bob.Points)
	require.Equal(t, int64(50), bob.Coins)
	require.Equal(t, int64(10), bob.Answered)
	require.Equal(t, int64(10), bob.Correct)
	require.Equal(t, int64(1), bob.MatchesWon)

	alice := f.progress.get("alice")
	require.Equal(t, int64(0), alice.Points)
	require.Equal(t, int64(10), alice.Coins)
	require.Equal(t, int64(4), alice.Answered)
	require.Equal(t, int64(3), alice.Correct)
	require.Equal(t, int64(1), alice.MatchesPlayed)
	require.Equal(t, int64(0), alice.MatchesWon)

	require.Contains(t, f.matches.saved, "m1")
	require.Equal(t, 1, f.publisher.count())
	require.Contains(t, f.audit.actions("bob"), domain.AuditActionMatchWin)
	require.Contains(t, f.audit.actions("alice"), domain.AuditActionMatchLose)
	require.Contains(t, f.audit.actions("alice"), domain.AuditActionRewardCredit)
}

func TestSettleExactlyOnce(t *testing.T) {
	f := newSettlerFixture(3)
	m, res := finishedMatch(t)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- f.settler.Settle(context.Background(), m, res)
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
		} else {
			require.ErrorIs(t, err, ErrAlreadySettled)
		}
	}
	require.Equal(t, 1, ok)
	require.Equal(t, 1, f.progress.calls)
	require.Equal(t, int64(100), f.progress.get("bob").Points)
}

func TestSettleForfeitLoserGetsConsolation(t *testing.T) {
	f := newSettlerFixture(3)
	now := time.Now()
	m, err := game.NewMatch("m2", "science", "alice", "bob", matchQuestions(), game.Timing{}, now)
	require.NoError(t, err)
	require.NoError(t, m.Start(now))
	res, err := m.Forfeit("alice", now.Add(time.Minute))
	require.NoError(t, err)

	require.NoError(t, f.settler.Settle(context.Background(), m.Snapshot(), res))
	require.Equal(t, int64(10), f.progress.get("alice").Coins)
	require.Equal(t, int64(0), f.progress.get("alice").Points)
	require.Equal(t, int64(50), f.progress.get("bob").Coins)
	require.Contains(t, f.audit.actions("alice"), domain.AuditActionMatchForfeit)
}

func TestSettleCancelledHasNoRewards(t *testing.T) {
	f := newSettlerFixture(3)
	now := time.Now()
	m, err := game.NewMatch("m3", "science", "alice", "bob", matchQuestions(), game.Timing{}, now)
	require.NoError(t, err)
	require.NoError(t, m.Start(now))
	res, err := m.Cancel(now.Add(time.Minute))
	require.NoError(t, err)

	require.NoError(t, f.settler.Settle(context.Background(), m.Snapshot(), res))
	require.Equal(t, 0, f.progress.calls)
	require.Equal(t, domain.UserProgress{}, f.progress.get("alice"))
	require.Equal(t, 1, f.publisher.count())
	require.Contains(t, f.audit.actions("bob"), domain.AuditActionMatchCancel)
}

func TestSettleRetryOutbox(t *testing.T) {
	f := newSettlerFixture(5)
	f.progress.failures = 2
	m, res := finishedMatch(t)

	err := f.settler.Settle(context.Background(), m, res)
	require.ErrorIs(t, err, errStorage)
	require.True(t, f.settler.IsSettled("m1"))
	require.Equal(t, 1, f.settler.Pending())
	require.Equal(t, 0, f.publisher.count())

	// второй Settle того же матча не создает второе начисление
	require.ErrorIs(t, f.settler.Settle(context.Background(), m, res), ErrAlreadySettled)

	f.settler.RetryPending(context.Background())
	require.Equal(t, 1, f.settler.Pending())

	f.settler.RetryPending(context.Background())
	require.Equal(t, 0, f.settler.Pending())
	require.Equal(t, int64(100), f.progress.get("bob").Points)
	require.Equal(t, 1, f.publisher.count())
}

func TestSettleRetryGivesUp(t *testing.T) {
	f := newSettlerFixture(2)
	f.progress.failures = 100
	m, res := finishedMatch(t)

	require.Error(t, f.settler.Settle(context.Background(), m, res))
	f.settler.RetryPending(context.Background())
	require.Equal(t, 0, f.settler.Pending())
	require.Contains(t, f.audit.actions("bob"), domain.AuditActionRewardFailed)
	require.Equal(t, int64(0), f.progress.get("bob").Points)
}

func TestRetryScheduler(t *testing.T) {
	f := newSettlerFixture(10)
	f.progress.failures = 1
	m, res := finishedMatch(t)
	require.Error(t, f.settler.Settle(context.Background(), m, res))

	sched, err := f.settler.StartRetryScheduler(50 * time.Millisecond)
	require.NoError(t, err)
	defer sched.Shutdown()

	require.Eventually(t, func() bool {
		return f.settler.Pending() == 0
	}, 2*time.Second, 20*time.Millisecond)
	require.Equal(t, int64(100), f.progress.get("bob").Points)
}
