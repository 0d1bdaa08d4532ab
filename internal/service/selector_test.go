package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"trivia_duel/internal/domain"
)

var fullPool = map[domain.Difficulty]int{
	domain.DifficultyEasy:   20,
	domain.DifficultyMedium: 20,
	domain.DifficultyHard:   10,
}

func TestBuildBandOrder(t *testing.T) {
	pool := newFakePool("science", fullPool)
	sel := NewSelector(pool, newFakeExposure()).WithSeed(1)

	qs, err := sel.Build(context.Background(), "alice", "bob", "science")
	require.NoError(t, err)
	require.Len(t, qs, domain.QuestionsPerMatch)

	want := []domain.Difficulty{
		domain.DifficultyEasy, domain.DifficultyEasy, domain.DifficultyEasy, domain.DifficultyEasy,
		domain.DifficultyMedium, domain.DifficultyMedium, domain.DifficultyMedium, domain.DifficultyMedium,
		domain.DifficultyHard, domain.DifficultyHard,
	}
	ids := map[string]bool{}
	for i, q := range qs {
		require.Equal(t, want[i], q.Difficulty, "position %d", i)
		require.False(t, ids[q.ID], "duplicate %s", q.ID)
		ids[q.ID] = true
	}
}

func TestBuildMarksExposureForBoth(t *testing.T) {
	exposure := newFakeExposure()
	sel := NewSelector(newFakePool("science", fullPool), exposure).WithSeed(2)

	qs, err := sel.Build(context.Background(), "alice", "bob", "science")
	require.NoError(t, err)
	require.Equal(t, 1, exposure.marks)
	for _, q := range qs {
		require.True(t, exposure.has("science", "alice", q.ID))
		require.True(t, exposure.has("science", "bob", q.ID))
		require.False(t, exposure.has("history", "alice", q.ID))
	}
}

func TestBuildExcludesPriorExposure(t *testing.T) {
	ctx := context.Background()
	exposure := newFakeExposure()
	pool := newFakePool("science", fullPool)
	sel := NewSelector(pool, exposure).WithSeed(3)

	first, err := sel.Build(ctx, "alice", "carol", "science")
	require.NoError(t, err)

	// bob не видел вопросов alice, но набор общий - исключаются показы обоих
	second, err := sel.Build(ctx, "bob", "alice", "science")
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, q := range first {
		seen[q.ID] = true
	}
	for _, q := range second {
		require.False(t, seen[q.ID], "question %s shown to alice twice", q.ID)
	}
}

func TestBuildPoolExhausted(t *testing.T) {
	ctx := context.Background()
	exposure := newFakeExposure()
	pool := newFakePool("science", map[domain.Difficulty]int{
		domain.DifficultyEasy:   8,
		domain.DifficultyMedium: 8,
		domain.DifficultyHard:   3,
	})
	sel := NewSelector(pool, exposure).WithSeed(4)

	_, err := sel.Build(ctx, "alice", "bob", "science")
	require.NoError(t, err)
	marks := exposure.marks

	// у hard осталась 1 непросмотренная
	_, err = sel.Build(ctx, "alice", "bob", "science")
	require.ErrorIs(t, err, ErrQuestionPoolExhausted)
	require.Equal(t, marks, exposure.marks, "failed build must not write exposure")
}

func TestBuildEmptyCategory(t *testing.T) {
	sel := NewSelector(newFakePool("science", fullPool), newFakeExposure())
	_, err := sel.Build(context.Background(), "alice", "bob", "geography")
	require.ErrorIs(t, err, ErrQuestionPoolExhausted)
}

func TestBuildExposureWriteFails(t *testing.T) {
	exposure := newFakeExposure()
	exposure.markErr = errStorage
	sel := NewSelector(newFakePool("science", fullPool), exposure)

	_, err := sel.Build(context.Background(), "alice", "bob", "science")
	require.ErrorIs(t, err, errStorage)
}

func TestBuildShufflesWithinBand(t *testing.T) {
	pool := newFakePool("science", fullPool)
	orders := map[string]bool{}
	for seed := int64(0); seed < 10; seed++ {
		sel := NewSelector(pool, newFakeExposure()).WithSeed(seed)
		qs, err := sel.Build(context.Background(), "alice", "bob", "science")
		require.NoError(t, err)
		orders[qs[0].ID+qs[1].ID] = true
	}
	require.Greater(t, len(orders), 1)
}
