package game

import (
	"errors"
	"time"

	"trivia_duel/internal/domain"
)

var (
	ErrUnknownMatch       = errors.New("unknown match")
	ErrStaleQuestion      = errors.New("stale question")
	ErrPlayerAlreadyEnded = errors.New("player already ended")
	ErrQuestionNotFound   = errors.New("question not found")
	ErrInvalidOption      = errors.New("selected option out of range")
	ErrInvalidQuestionSet = errors.New("invalid question set")
	ErrSamePlayer         = errors.New("match needs two different players")
)

// Timing - серверные лимиты на ответ. Нулевой TimePerQuestion отключает проверку
type Timing struct {
	TimePerQuestion time.Duration
	AnswerGrace     time.Duration
}

func (t Timing) deadline(shownAt time.Time) (time.Time, bool) {
	if t.TimePerQuestion <= 0 {
		return time.Time{}, false
	}
	return shownAt.Add(t.TimePerQuestion + t.AnswerGrace), true
}

// Result - итог матча
type Result struct {
	MatchID  string
	WinnerID *string
	LoserID  *string
	Reason   domain.FinishReason
	Rule     Rule // по какому правилу определен победитель (для normal)
	State    domain.MatchState
}

// HasWinner - у отмененного/просроченного матча победителя нет
func (r *Result) HasWinner() bool {
	return r != nil && r.WinnerID != nil
}
