package repository

import (
	"context"

	"trivia_duel/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// счетчики очков, монет и точности игроков
type ProgressRepository struct {
	db *pgxpool.Pool
}

func NewProgressRepository(db *pgxpool.Pool) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// получает прогресс игрока, nil если игрок еще не играл
func (r *ProgressRepository) GetByUserID(ctx context.Context, userID string) (*domain.UserProgress, error) {
	var p domain.UserProgress
	err := r.db.QueryRow(ctx, `
		SELECT user_id, points, coins, answered, correct, matches_played, matches_won, updated_at
		FROM user_progress
		WHERE user_id = $1
	`, userID).Scan(&p.UserID, &p.Points, &p.Coins, &p.Answered, &p.Correct, &p.MatchesPlayed, &p.MatchesWon, &p.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// ApplyDeltas атомарно начисляет итоги матча обоим игрокам в одной транзакции.
// Только инкременты, без read-modify-write
func (r *ProgressRepository) ApplyDeltas(ctx context.Context, deltas []domain.ProgressDelta) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, d := range deltas {
		won := int64(0)
		if d.Won {
			won = 1
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO user_progress (user_id, points, coins, answered, correct, matches_played, matches_won)
			VALUES ($1, $2, $3, $4, $5, 1, $6)
			ON CONFLICT (user_id) DO UPDATE SET
				points = user_progress.points + EXCLUDED.points,
				coins = user_progress.coins + EXCLUDED.coins,
				answered = user_progress.answered + EXCLUDED.answered,
				correct = user_progress.correct + EXCLUDED.correct,
				matches_played = user_progress.matches_played + 1,
				matches_won = user_progress.matches_won + EXCLUDED.matches_won,
				updated_at = NOW()
		`, d.UserID, d.Points, d.Coins, d.Answered, d.Correct, won); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// Top - лучшие игроки по очкам
func (r *ProgressRepository) Top(ctx context.Context, limit int) ([]*domain.UserProgress, error) {
	rows, err := r.db.Query(ctx, `
		SELECT user_id, points, coins, answered, correct, matches_played, matches_won, updated_at
		FROM user_progress
		ORDER BY points DESC, matches_won DESC, user_id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.UserProgress
	for rows.Next() {
		var p domain.UserProgress
		if err := rows.Scan(&p.UserID, &p.Points, &p.Coins, &p.Answered, &p.Correct, &p.MatchesPlayed, &p.MatchesWon, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}
