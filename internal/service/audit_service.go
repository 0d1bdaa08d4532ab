package service

import (
	"context"

	"trivia_duel/internal/domain"
	"trivia_duel/internal/game"
	"trivia_duel/internal/logger"
)

// обрабатывает логирование аудита. Ошибки записи только логируются
type AuditService struct {
	repo AuditStore
}

func NewAuditService(repo AuditStore) *AuditService {
	return &AuditService{repo: repo}
}

// создает новую запись в журнале аудита
func (s *AuditService) Log(ctx context.Context, userID, matchID, action, category string, details map[string]interface{}) {
	if s == nil || s.repo == nil {
		return
	}
	log := &domain.AuditLog{
		UserID:   userID,
		MatchID:  matchID,
		Action:   action,
		Category: category,
		Details:  details,
	}

	if err := s.repo.Create(ctx, log); err != nil {
		logger.Error("не удалось создать запись аудита", "error", err, "action", action, "user_id", userID, "match_id", matchID)
	}
}

// логирует старт матча для обоих игроков
func (s *AuditService) LogMatchStart(ctx context.Context, m *domain.Match) {
	ids := m.UserIDs()
	for i, uid := range ids {
		s.Log(ctx, uid, m.ID, domain.AuditActionMatchStart, domain.AuditCategoryMatch, map[string]interface{}{
			"category": m.Category,
			"opponent": ids[1-i],
		})
	}
}

// логирует исход матча по каждому игроку
func (s *AuditService) LogMatchResult(ctx context.Context, m *domain.Match, res *game.Result) {
	for _, uid := range m.UserIDs() {
		p := m.Player(uid)
		details := map[string]interface{}{
			"reason":         string(res.Reason),
			"rule":           string(res.Rule),
			"furthest_index": p.FurthestIndex,
			"correct":        p.CorrectCount(),
		}
		if p.TotalTimeMs != nil {
			details["total_time_ms"] = *p.TotalTimeMs
		}

		action := resultAction(res, uid)
		s.Log(ctx, uid, m.ID, action, domain.AuditCategoryMatch, details)
	}
}

// логирует начисление (или провал начисления) по итогам матча
func (s *AuditService) LogReward(ctx context.Context, matchID string, d domain.ProgressDelta, err error) {
	details := map[string]interface{}{
		"points":   d.Points,
		"coins":    d.Coins,
		"answered": d.Answered,
		"correct":  d.Correct,
	}
	action := domain.AuditActionRewardCredit
	if err != nil {
		action = domain.AuditActionRewardFailed
		details["error"] = err.Error()
	}
	s.Log(ctx, d.UserID, matchID, action, domain.AuditCategorySettlement, details)
}

func resultAction(res *game.Result, userID string) string {
	switch res.Reason {
	case domain.FinishCancelled:
		return domain.AuditActionMatchCancel
	case domain.FinishExpired:
		return domain.AuditActionMatchExpire
	}
	if res.WinnerID != nil && *res.WinnerID == userID {
		return domain.AuditActionMatchWin
	}
	if res.Reason == domain.FinishForfeit {
		return domain.AuditActionMatchForfeit
	}
	return domain.AuditActionMatchLose
}
