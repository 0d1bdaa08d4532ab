package domain

import "time"

type MatchState string

const (
	MatchWaiting           MatchState = "WAITING"
	MatchMatched           MatchState = "MATCHED"
	MatchActive            MatchState = "ACTIVE"
	MatchWaitingOnOpponent MatchState = "WAITING_ON_OPPONENT"
	MatchFinished          MatchState = "FINISHED"
	MatchCancelled         MatchState = "CANCELLED"
	MatchExpired           MatchState = "EXPIRED"
	MatchForfeited         MatchState = "FORFEITED"
)

// IsTerminal - после терминального состояния матч больше не меняется
func (s MatchState) IsTerminal() bool {
	switch s {
	case MatchFinished, MatchCancelled, MatchExpired, MatchForfeited:
		return true
	}
	return false
}

type FinishReason string

const (
	FinishNormal    FinishReason = "normal"
	FinishForfeit   FinishReason = "forfeit"
	FinishCancelled FinishReason = "cancelled"
	FinishExpired   FinishReason = "expired"
)

// ответ игрока; Selected == nil - таймаут
type AnswerRecord struct {
	QuestionID string    `json:"questionId"`
	Selected   *int      `json:"selected"`
	IsCorrect  bool      `json:"isCorrect"`
	AnsweredAt time.Time `json:"answeredAt"`
}

type PlayerState struct {
	UserID         string         `json:"userId"`
	Connected      bool           `json:"connected"`
	LastSeenAt     time.Time      `json:"lastSeenAt"`
	DisconnectedAt *time.Time     `json:"disconnectedAt,omitempty"`
	CurrentIndex   int            `json:"currentIndex"`
	FurthestIndex  int            `json:"furthestIndex"`
	FailedAtIndex  *int           `json:"failedAtIndex"`
	Completed      bool           `json:"completed"`
	StartedAt      time.Time      `json:"startedAt"`
	EndedAt        *time.Time     `json:"endedAt,omitempty"`
	TotalTimeMs    *int64         `json:"totalTimeMs"`
	Answers        []AnswerRecord `json:"answers"`

	// момент, когда текущий вопрос стал активным для игрока
	QuestionShownAt time.Time `json:"-"`
}

// Ended - игрок завершил (прошел все вопросы или ошибся)
func (p *PlayerState) Ended() bool {
	return p.Completed || p.FailedAtIndex != nil
}

// CorrectCount - число правильных ответов в матче
func (p *PlayerState) CorrectCount() int {
	n := 0
	for _, a := range p.Answers {
		if a.IsCorrect {
			n++
		}
	}
	return n
}

type Match struct {
	ID           string                           `json:"id"`
	Category     string                           `json:"category"`
	State        MatchState                       `json:"state"`
	Players      [2]PlayerState                   `json:"players"`
	QuestionSet  [QuestionsPerMatch]MatchQuestion `json:"questionSet"`
	CreatedAt    time.Time                        `json:"createdAt"`
	StartedAt    *time.Time                       `json:"startedAt,omitempty"`
	FinishedAt   *time.Time                       `json:"finishedAt,omitempty"`
	WinnerUserID *string                          `json:"winnerUserId"`
	FinishReason *FinishReason                    `json:"finishReason"`
}

// Player ищет игрока по userID; порядок в массиве ничего не значит
func (m *Match) Player(userID string) *PlayerState {
	for i := range m.Players {
		if m.Players[i].UserID == userID {
			return &m.Players[i]
		}
	}
	return nil
}

// Opponent возвращает соперника userID
func (m *Match) Opponent(userID string) *PlayerState {
	if m.Player(userID) == nil {
		return nil
	}
	for i := range m.Players {
		if m.Players[i].UserID != userID {
			return &m.Players[i]
		}
	}
	return nil
}

func (m *Match) HasPlayer(userID string) bool {
	return m.Player(userID) != nil
}

func (m *Match) UserIDs() []string {
	return []string{m.Players[0].UserID, m.Players[1].UserID}
}
