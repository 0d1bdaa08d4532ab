package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// записи "игрок видел вопрос" в категории. Никогда не удаляются
type ExposureRepository struct {
	db *pgxpool.Pool
}

func NewExposureRepository(db *pgxpool.Pool) *ExposureRepository {
	return &ExposureRepository{db: db}
}

// SeenIDs - объединение просмотренных вопросов всех userIDs в категории
func (r *ExposureRepository) SeenIDs(ctx context.Context, category string, userIDs []string) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT DISTINCT question_id
		FROM question_exposures
		WHERE category = $1 AND user_id = ANY($2)
	`, category, userIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Mark записывает показ каждого вопроса каждому игроку одним запросом.
// Повторная запись - no-op
func (r *ExposureRepository) Mark(ctx context.Context, category string, userIDs, questionIDs []string) error {
	if len(userIDs) == 0 || len(questionIDs) == 0 {
		return nil
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO question_exposures (user_id, category, question_id)
		SELECT u, $1, q
		FROM unnest($2::text[]) AS u
		CROSS JOIN unnest($3::text[]) AS q
		ON CONFLICT DO NOTHING
	`, category, userIDs, questionIDs)
	return err
}
