package service

import (
	"context"

	"trivia_duel/internal/domain"
	"trivia_duel/internal/events"
)

// QuestionPool - банк вопросов (postgres или sqlite)
type QuestionPool interface {
	FindUnseen(ctx context.Context, category string, difficulty domain.Difficulty, excludeIDs []string, limit int) ([]domain.Question, error)
}

// ExposureStore - какие вопросы игрок уже видел в категории
type ExposureStore interface {
	SeenIDs(ctx context.Context, category string, userIDs []string) ([]string, error)
	Mark(ctx context.Context, category string, userIDs, questionIDs []string) error
}

type ProgressStore interface {
	ApplyDeltas(ctx context.Context, deltas []domain.ProgressDelta) error
}

type MatchStore interface {
	Save(ctx context.Context, m *domain.Match) error
}

type AuditStore interface {
	Create(ctx context.Context, log *domain.AuditLog) error
}

type EventPublisher interface {
	PublishMatchFinished(ctx context.Context, ev events.MatchFinished) error
}
