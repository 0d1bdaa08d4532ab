package repository

import (
	"context"
	"encoding/json"

	"trivia_duel/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// хранит итоговые записи матчей
type MatchRepository struct {
	db *pgxpool.Pool
}

func NewMatchRepository(db *pgxpool.Pool) *MatchRepository {
	return &MatchRepository{db: db}
}

// сохраняет снимок матча; повторное сохранение перезаписывает запись
func (r *MatchRepository) Save(ctx context.Context, m *domain.Match) error {
	playersJSON, err := json.Marshal(m.Players)
	if err != nil {
		return err
	}
	questionsJSON, err := json.Marshal(m.QuestionSet)
	if err != nil {
		return err
	}

	var reason *string
	if m.FinishReason != nil {
		s := string(*m.FinishReason)
		reason = &s
	}

	_, err = r.db.Exec(ctx, `
		INSERT INTO matches (id, category, state, players, question_set, winner_user_id, finish_reason, created_at, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			state = EXCLUDED.state,
			players = EXCLUDED.players,
			winner_user_id = EXCLUDED.winner_user_id,
			finish_reason = EXCLUDED.finish_reason,
			started_at = EXCLUDED.started_at,
			finished_at = EXCLUDED.finished_at
	`, m.ID, m.Category, string(m.State), playersJSON, questionsJSON,
		m.WinnerUserID, reason, m.CreatedAt, m.StartedAt, m.FinishedAt)
	return err
}

// получает матч по id, nil если не найден
func (r *MatchRepository) GetByID(ctx context.Context, id string) (*domain.Match, error) {
	var m domain.Match
	var state string
	var reason *string
	var playersJSON, questionsJSON []byte

	err := r.db.QueryRow(ctx, `
		SELECT id, category, state, players, question_set, winner_user_id, finish_reason, created_at, started_at, finished_at
		FROM matches
		WHERE id = $1
	`, id).Scan(&m.ID, &m.Category, &state, &playersJSON, &questionsJSON,
		&m.WinnerUserID, &reason, &m.CreatedAt, &m.StartedAt, &m.FinishedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	m.State = domain.MatchState(state)
	if reason != nil {
		fr := domain.FinishReason(*reason)
		m.FinishReason = &fr
	}
	if err := json.Unmarshal(playersJSON, &m.Players); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(questionsJSON, &m.QuestionSet); err != nil {
		return nil, err
	}
	return &m, nil
}
