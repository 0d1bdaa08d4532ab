package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"trivia_duel/internal/config"
	"trivia_duel/internal/domain"
	"trivia_duel/internal/events"
	"trivia_duel/internal/game"
	"trivia_duel/internal/logger"
	"trivia_duel/internal/metrics"

	"github.com/go-co-op/gocron/v2"
)

var ErrAlreadySettled = errors.New("match already settled")

// Settler начисляет итоги матча ровно один раз на match id.
// Неудачные начисления остаются в outbox и повторяются по расписанию
type Settler struct {
	progress ProgressStore
	matches  MatchStore
	audit    *AuditService
	events   EventPublisher
	rewards  config.RewardConfig

	maxAttempts int
	timeout     time.Duration

	mu      sync.Mutex
	settled map[string]bool
	pending map[string]*pendingSettlement
}

type pendingSettlement struct {
	match    domain.Match
	result   game.Result
	deltas   []domain.ProgressDelta
	attempts int
	lastErr  error
}

func NewSettler(progress ProgressStore, matches MatchStore, audit *AuditService, publisher EventPublisher, rewards config.RewardConfig, maxAttempts int) *Settler {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &Settler{
		progress:    progress,
		matches:     matches,
		audit:       audit,
		events:      publisher,
		rewards:     rewards,
		maxAttempts: maxAttempts,
		timeout:     5 * time.Second,
		settled:     make(map[string]bool),
		pending:     make(map[string]*pendingSettlement),
	}
}

// Deltas - начисления по итогам матча. Без победителя (cancel/expire) начислений нет.
// Победитель: очки и монеты; проигравший, в том числе по forfeit, - утешительные монеты.
// Оба получают счетчики ответов
func (s *Settler) Deltas(m *domain.Match, res *game.Result) []domain.ProgressDelta {
	if !res.HasWinner() {
		return nil
	}
	deltas := make([]domain.ProgressDelta, 0, 2)
	for _, uid := range m.UserIDs() {
		p := m.Player(uid)
		d := domain.ProgressDelta{
			UserID:   uid,
			Answered: int64(len(p.Answers)),
			Correct:  int64(p.CorrectCount()),
		}
		if uid == *res.WinnerID {
			d.Won = true
			d.Points = s.rewards.WinPoints
			d.Coins = s.rewards.WinCoins
		} else {
			d.Coins = s.rewards.LoseCoins
		}
		deltas = append(deltas, d)
	}
	return deltas
}

// Settle вызывается владельцем матча после перехода в терминальное состояние.
// Ошибка хранилища не откатывает матч: начисление уходит в outbox
func (s *Settler) Settle(ctx context.Context, m domain.Match, res *game.Result) error {
	if res == nil {
		return fmt.Errorf("settle %s: no result", m.ID)
	}

	s.mu.Lock()
	if s.settled[m.ID] {
		s.mu.Unlock()
		return ErrAlreadySettled
	}
	s.settled[m.ID] = true
	s.mu.Unlock()

	log := logger.With("component", "settler", "match_id", m.ID)
	metrics.MatchesFinished.WithLabelValues(string(res.Reason)).Inc()

	if err := s.saveRecord(ctx, &m); err != nil {
		log.Error("failed to store match record", "error", err)
	}
	s.audit.LogMatchResult(ctx, &m, res)

	ps := &pendingSettlement{match: m, result: *res, deltas: s.Deltas(&m, res)}
	if err := s.apply(ctx, ps); err != nil {
		ps.attempts = 1
		ps.lastErr = err
		s.enqueue(ps)
		log.Error("settlement failed, queued for retry", "error", err)
		return err
	}

	log.Info("match settled",
		"state", m.State,
		"reason", res.Reason,
		"winner", strPtr(res.WinnerID),
	)
	return nil
}

// IsSettled - был ли матч принят к начислению (в т.ч. если ждет повтора)
func (s *Settler) IsSettled(matchID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settled[matchID]
}

// Pending - число начислений в outbox
func (s *Settler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// RetryPending повторяет неудачные начисления. После maxAttempts
// начисление выбрасывается с записью в аудит
func (s *Settler) RetryPending(ctx context.Context) {
	s.mu.Lock()
	batch := make([]*pendingSettlement, 0, len(s.pending))
	for _, ps := range s.pending {
		batch = append(batch, ps)
	}
	s.mu.Unlock()

	for _, ps := range batch {
		log := logger.With("component", "settler", "match_id", ps.match.ID)
		err := s.apply(ctx, ps)

		s.mu.Lock()
		if err == nil {
			delete(s.pending, ps.match.ID)
		} else {
			ps.attempts++
			ps.lastErr = err
			if s.maxAttempts > 0 && ps.attempts >= s.maxAttempts {
				delete(s.pending, ps.match.ID)
			}
		}
		metrics.SettlementPending.Set(float64(len(s.pending)))
		s.mu.Unlock()

		switch {
		case err == nil:
			log.Info("settlement retried successfully", "attempts", ps.attempts+1)
		case s.maxAttempts > 0 && ps.attempts >= s.maxAttempts:
			log.Error("settlement abandoned", "attempts", ps.attempts, "error", err)
			for _, d := range ps.deltas {
				s.audit.LogReward(ctx, ps.match.ID, d, err)
			}
		default:
			log.Warn("settlement retry failed", "attempts", ps.attempts, "error", err)
		}
	}
}

// StartRetryScheduler запускает периодический повтор outbox
func (s *Settler) StartRetryScheduler(interval time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if s.Pending() == 0 {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			defer cancel()
			s.RetryPending(ctx)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, err
	}

	sched.Start()
	return sched, nil
}

func (s *Settler) apply(ctx context.Context, ps *pendingSettlement) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if len(ps.deltas) > 0 {
		if err := s.progress.ApplyDeltas(ctx, ps.deltas); err != nil {
			metrics.SettlementFailures.Inc()
			return fmt.Errorf("apply progress: %w", err)
		}
		for _, d := range ps.deltas {
			s.audit.LogReward(ctx, ps.match.ID, d, nil)
		}
	}

	if err := s.events.PublishMatchFinished(ctx, s.event(&ps.match, &ps.result, ps.deltas)); err != nil {
		logger.Warn("failed to publish match.finished", "match_id", ps.match.ID, "error", err)
	}
	return nil
}

func (s *Settler) enqueue(ps *pendingSettlement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[ps.match.ID] = ps
	metrics.SettlementPending.Set(float64(len(s.pending)))
}

func (s *Settler) saveRecord(ctx context.Context, m *domain.Match) error {
	if s.matches == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.matches.Save(ctx, m)
}

func (s *Settler) event(m *domain.Match, res *game.Result, deltas []domain.ProgressDelta) events.MatchFinished {
	byUser := make(map[string]domain.ProgressDelta, len(deltas))
	for _, d := range deltas {
		byUser[d.UserID] = d
	}

	ev := events.MatchFinished{
		MatchID:      m.ID,
		Category:     m.Category,
		State:        string(m.State),
		Reason:       string(res.Reason),
		WinnerUserID: res.WinnerID,
	}
	if m.FinishedAt != nil {
		ev.FinishedAt = *m.FinishedAt
	}
	for _, uid := range m.UserIDs() {
		p := m.Player(uid)
		d := byUser[uid]
		ev.Players = append(ev.Players, events.PlayerResult{
			UserID:        uid,
			FurthestIndex: p.FurthestIndex,
			TotalTimeMs:   p.TotalTimeMs,
			Correct:       p.CorrectCount(),
			Answered:      len(p.Answers),
			Points:        d.Points,
			Coins:         d.Coins,
		})
	}
	return ev
}

func strPtr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
