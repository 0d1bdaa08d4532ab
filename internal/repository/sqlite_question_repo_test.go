package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"trivia_duel/internal/domain"
)

func seedSQLite(t *testing.T, repo *SQLiteQuestionRepository, category string, difficulty domain.Difficulty, n int) []string {
	t.Helper()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		q := domain.Question{
			ID:           fmt.Sprintf("%s-%s-%d", category, difficulty, i),
			Category:     category,
			Difficulty:   difficulty,
			Text:         fmt.Sprintf("question %d", i),
			Options:      [4]string{"a", "b", "c", "d"},
			CorrectIndex: i % 4,
		}
		require.NoError(t, repo.Upsert(context.Background(), &q))
		ids = append(ids, q.ID)
	}
	return ids
}

func TestSQLiteFindUnseen(t *testing.T) {
	repo, err := OpenSQLiteQuestions(":memory:")
	require.NoError(t, err)
	defer repo.Close()
	ctx := context.Background()

	easy := seedSQLite(t, repo, "science", domain.DifficultyEasy, 6)
	seedSQLite(t, repo, "science", domain.DifficultyHard, 3)
	seedSQLite(t, repo, "history", domain.DifficultyEasy, 3)

	n, err := repo.Count(ctx, "science", domain.DifficultyEasy)
	require.NoError(t, err)
	require.Equal(t, 6, n)

	all, err := repo.FindUnseen(ctx, "science", domain.DifficultyEasy, nil, 100)
	require.NoError(t, err)
	require.Len(t, all, 6)
	for _, q := range all {
		require.Equal(t, "science", q.Category)
		require.Equal(t, domain.DifficultyEasy, q.Difficulty)
		require.Equal(t, [4]string{"a", "b", "c", "d"}, q.Options)
	}

	excluded := easy[:4]
	rest, err := repo.FindUnseen(ctx, "science", domain.DifficultyEasy, excluded, 100)
	require.NoError(t, err)
	require.Len(t, rest, 2)
	for _, q := range rest {
		require.NotContains(t, excluded, q.ID)
	}

	limited, err := repo.FindUnseen(ctx, "science", domain.DifficultyEasy, nil, 3)
	require.NoError(t, err)
	require.Len(t, limited, 3)
}

func TestSQLiteUpsertKeepsAnswerKey(t *testing.T) {
	repo, err := OpenSQLiteQuestions(":memory:")
	require.NoError(t, err)
	defer repo.Close()
	ctx := context.Background()

	q := domain.Question{ID: "q1", Category: "art", Difficulty: domain.DifficultyMedium, Text: "old", Options: [4]string{"1", "2", "3", "4"}, CorrectIndex: 1}
	require.NoError(t, repo.Upsert(ctx, &q))
	q.Text = "new"
	q.CorrectIndex = 3
	require.NoError(t, repo.Upsert(ctx, &q))

	got, err := repo.FindUnseen(ctx, "art", domain.DifficultyMedium, nil, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "new", got[0].Text)
	require.Equal(t, 3, got[0].CorrectIndex)
}
