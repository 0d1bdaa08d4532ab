package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"trivia_duel/internal/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	MatchExchange           = "match.events"
	MatchFinishedRoutingKey = "match.finished"
)

// MatchFinished - событие для внешних потребителей (лидерборды, аналитика)
type MatchFinished struct {
	MatchID      string         `json:"matchId"`
	Category     string         `json:"category"`
	State        string         `json:"state"`
	Reason       string         `json:"reason"`
	WinnerUserID *string        `json:"winnerUserId"`
	Players      []PlayerResult `json:"players"`
	FinishedAt   time.Time      `json:"finishedAt"`
}

type PlayerResult struct {
	UserID        string `json:"userId"`
	FurthestIndex int    `json:"furthestIndex"`
	TotalTimeMs   *int64 `json:"totalTimeMs"`
	Correct       int    `json:"correct"`
	Answered      int    `json:"answered"`
	Points        int64  `json:"points"`
	Coins         int64  `json:"coins"`
}

// Publisher отправляет события матчей в RabbitMQ
type Publisher struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	mu   sync.Mutex // amqp.Channel не потокобезопасен для publish
}

// NewPublisher подключается и объявляет topic exchange
func NewPublisher(url string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		MatchExchange,
		"topic",
		true,  // durable
		false, // auto delete
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	return &Publisher{conn: conn, ch: ch}, nil
}

func (p *Publisher) PublishMatchFinished(ctx context.Context, ev MatchFinished) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch.PublishWithContext(ctx,
		MatchExchange,
		MatchFinishedRoutingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    ev.MatchID,
			Timestamp:    ev.FinishedAt,
			Body:         body,
		})
}

func (p *Publisher) Close() error {
	if err := p.ch.Close(); err != nil {
		logger.Warn("rabbitmq channel close", "error", err)
	}
	return p.conn.Close()
}

// NoopPublisher используется, когда RABBITMQ_URL не задан
type NoopPublisher struct{}

func (NoopPublisher) PublishMatchFinished(_ context.Context, ev MatchFinished) error {
	logger.Debug("match.finished not published, broker disabled", "match_id", ev.MatchID)
	return nil
}
