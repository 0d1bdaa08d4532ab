package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"trivia_duel/internal/domain"
	"trivia_duel/internal/logger"
	"trivia_duel/internal/metrics"
)

var ErrQuestionPoolExhausted = errors.New("question pool exhausted")

// CandidateFactor - во сколько раз выборка кандидатов больше нужного числа вопросов
const CandidateFactor = 5

// Selector собирает общий для двух игроков набор из 10 вопросов,
// который ни один из них раньше не видел
type Selector struct {
	pool     QuestionPool
	exposure ExposureStore

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewSelector(pool QuestionPool, exposure ExposureStore) *Selector {
	return &Selector{
		pool:     pool,
		exposure: exposure,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// WithSeed фиксирует генератор (тесты)
func (s *Selector) WithSeed(seed int64) *Selector {
	s.rnd = rand.New(rand.NewSource(seed))
	return s
}

// Build возвращает вопросы в порядке матча: 4 easy, 4 medium, 2 hard.
// Перемешивание только внутри группы. Показы записываются для обоих
// игроков до возврата
func (s *Selector) Build(ctx context.Context, userA, userB, category string) ([]domain.Question, error) {
	users := []string{userA, userB}
	seen, err := s.exposure.SeenIDs(ctx, category, users)
	if err != nil {
		return nil, fmt.Errorf("load exposure: %w", err)
	}

	set := make([]domain.Question, 0, domain.QuestionsPerMatch)
	for _, band := range domain.MatchBands {
		candidates, err := s.pool.FindUnseen(ctx, category, band.Difficulty, seen, band.Size*CandidateFactor)
		if err != nil {
			return nil, fmt.Errorf("find %s questions: %w", band.Difficulty, err)
		}
		candidates = dropSeen(candidates, seen, set)
		if len(candidates) < band.Size {
			metrics.PoolExhausted.WithLabelValues(category, string(band.Difficulty)).Inc()
			logger.Warn("question pool exhausted",
				"category", category,
				"difficulty", band.Difficulty,
				"have", len(candidates),
				"need", band.Size,
			)
			return nil, fmt.Errorf("%w: %s/%s has %d unseen, need %d",
				ErrQuestionPoolExhausted, category, band.Difficulty, len(candidates), band.Size)
		}

		s.shuffle(candidates)
		set = append(set, candidates[:band.Size]...)
	}

	ids := make([]string, len(set))
	for i, q := range set {
		ids[i] = q.ID
	}
	if err := s.exposure.Mark(ctx, category, users, ids); err != nil {
		return nil, fmt.Errorf("mark exposure: %w", err)
	}
	return set, nil
}

func (s *Selector) shuffle(qs []domain.Question) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rnd.Shuffle(len(qs), func(i, j int) { qs[i], qs[j] = qs[j], qs[i] })
}

// убирает показанные игрокам и уже выбранные вопросы
func dropSeen(candidates []domain.Question, seen []string, picked []domain.Question) []domain.Question {
	skip := make(map[string]bool, len(seen)+len(picked))
	for _, id := range seen {
		skip[id] = true
	}
	for _, q := range picked {
		skip[q.ID] = true
	}
	out := candidates[:0]
	for _, q := range candidates {
		if !skip[q.ID] {
			skip[q.ID] = true
			out = append(out, q)
		}
	}
	return out
}
