package repository

import (
	"context"

	"trivia_duel/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// банк вопросов в postgres, только чтение со стороны матчей
type QuestionRepository struct {
	db *pgxpool.Pool
}

func NewQuestionRepository(db *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{db: db}
}

// FindUnseen возвращает до limit случайных вопросов категории и сложности, исключая excludeIDs
func (r *QuestionRepository) FindUnseen(ctx context.Context, category string, difficulty domain.Difficulty, excludeIDs []string, limit int) ([]domain.Question, error) {
	if excludeIDs == nil {
		excludeIDs = []string{}
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, category, difficulty, text, option_a, option_b, option_c, option_d, correct_index
		FROM questions
		WHERE category = $1 AND difficulty = $2 AND NOT (id = ANY($3))
		ORDER BY random()
		LIMIT $4
	`, category, string(difficulty), excludeIDs, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanQuestions(rows)
}

// получает вопрос по id
func (r *QuestionRepository) GetByID(ctx context.Context, id string) (*domain.Question, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, category, difficulty, text, option_a, option_b, option_c, option_d, correct_index
		FROM questions
		WHERE id = $1
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	qs, err := scanQuestions(rows)
	if err != nil || len(qs) == 0 {
		return nil, err
	}
	return &qs[0], nil
}

// добавляет или обновляет вопрос (сидинг банка)
func (r *QuestionRepository) Upsert(ctx context.Context, q *domain.Question) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO questions (id, category, difficulty, text, option_a, option_b, option_c, option_d, correct_index)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			category = EXCLUDED.category,
			difficulty = EXCLUDED.difficulty,
			text = EXCLUDED.text,
			option_a = EXCLUDED.option_a,
			option_b = EXCLUDED.option_b,
			option_c = EXCLUDED.option_c,
			option_d = EXCLUDED.option_d,
			correct_index = EXCLUDED.correct_index
	`, q.ID, q.Category, string(q.Difficulty), q.Text,
		q.Options[0], q.Options[1], q.Options[2], q.Options[3], q.CorrectIndex)
	return err
}

func scanQuestions(rows pgx.Rows) ([]domain.Question, error) {
	var qs []domain.Question
	for rows.Next() {
		var q domain.Question
		var difficulty string
		if err := rows.Scan(
			&q.ID, &q.Category, &difficulty, &q.Text,
			&q.Options[0], &q.Options[1], &q.Options[2], &q.Options[3],
			&q.CorrectIndex,
		); err != nil {
			return nil, err
		}
		q.Difficulty = domain.Difficulty(difficulty)
		qs = append(qs, q)
	}
	return qs, rows.Err()
}
