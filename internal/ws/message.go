package ws

import (
	"encoding/json"

	"trivia_duel/internal/domain"
	"trivia_duel/internal/logger"
)

// входящие
const (
	MsgJoinQueue  = "join_queue"
	MsgLeaveQueue = "leave_queue"
	MsgAnswer     = "answer"
	MsgRejoin     = "rejoin"
)

// исходящие
const (
	MsgQueued            = "queued"
	MsgQueueTimeout      = "queue_timeout"
	MsgMatched           = "matched"
	MsgMatchStart        = "match_start"
	MsgPlayerUpdate      = "player_update"
	MsgWaitingOnOpponent = "waiting_on_opponent"
	MsgMatchFinished     = "match_finished"
	MsgError             = "error"
)

type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type JoinQueuePayload struct {
	Category string `json:"category"`
}

type AnswerPayload struct {
	MatchID    string `json:"matchId"`
	QuestionID string `json:"questionId"`
	Selected   *int   `json:"selected"` // null - таймаут на клиенте
}

type RejoinPayload struct {
	MatchID string `json:"matchId"`
}

type QueuedPayload struct {
	Category    string `json:"category"`
	WaitSeconds int    `json:"waitSeconds"`
}

type QueueTimeoutPayload struct {
	Category string `json:"category"`
}

type MatchedPayload struct {
	MatchID         string   `json:"matchId"`
	Category        string   `json:"category"`
	Players         []string `json:"players"`
	TimePerQuestion int      `json:"timePerQuestion"`
	TotalQuestions  int      `json:"totalQuestions"`
}

type MatchStartPayload struct {
	MatchID         string                `json:"matchId"`
	Questions       []domain.QuestionView `json:"questions"`
	TimePerQuestion int                   `json:"timePerQuestion"`
}

// без выбранного варианта - сопернику ответ не раскрывается
type PlayerUpdatePayload struct {
	MatchID       string `json:"matchId"`
	UserID        string `json:"userId"`
	CurrentIndex  int    `json:"currentIndex"`
	FurthestIndex int    `json:"furthestIndex"`
	Ended         bool   `json:"ended"`
	FailedAtIndex *int   `json:"failedAtIndex,omitempty"`
	Connected     bool   `json:"connected"`
}

type WaitingOnOpponentPayload struct {
	MatchID string `json:"matchId"`
}

type MatchFinishedPayload struct {
	MatchID      string  `json:"matchId"`
	WinnerUserID *string `json:"winnerUserId"`
	Reason       string  `json:"reason"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

func errorMessage(text string) Message {
	return Message{Type: MsgError, Payload: ErrorPayload{Message: text}}
}

func playerUpdate(matchID string, p domain.PlayerState) Message {
	return Message{Type: MsgPlayerUpdate, Payload: PlayerUpdatePayload{
		MatchID:       matchID,
		UserID:        p.UserID,
		CurrentIndex:  p.CurrentIndex,
		FurthestIndex: p.FurthestIndex,
		Ended:         p.Ended(),
		FailedAtIndex: p.FailedAtIndex,
		Connected:     p.Connected,
	}}
}

func encode(msg Message) []byte {
	data, err := json.Marshal(msg)
	if err != nil {
		logger.Error("ws: marshal message", "type", msg.Type, "error", err)
		return nil
	}
	return data
}
