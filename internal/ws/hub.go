package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"trivia_duel/internal/config"
	"trivia_duel/internal/domain"
	"trivia_duel/internal/game"
	"trivia_duel/internal/logger"
	"trivia_duel/internal/metrics"
	"trivia_duel/internal/service"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

var (
	ErrAlreadyInMatch  = errors.New("already in match")
	ErrInvalidCategory = errors.New("invalid category")
)

// QuestionSelector собирает набор вопросов для пары игроков
type QuestionSelector interface {
	Build(ctx context.Context, userA, userB, category string) ([]domain.Question, error)
}

// MatchSettler начисляет итоги завершенного матча
type MatchSettler interface {
	Settle(ctx context.Context, m domain.Match, res *game.Result) error
}

// Hub владеет очередью и реестром живых матчей
type Hub struct {
	mu       sync.RWMutex
	rooms    map[string]*Room
	userRoom map[string]string
	pending  map[string]bool // пара собрана, матч еще создается

	queue    *Queue
	selector QuestionSelector
	settler  MatchSettler
	audit    *service.AuditService

	cfg        config.MatchConfig
	categories map[string]bool

	now   func() time.Time
	newID func() string
	log   *slog.Logger
}

func NewHub(selector QuestionSelector, settler MatchSettler, audit *service.AuditService, cfg config.MatchConfig, categories []string) *Hub {
	h := &Hub{
		rooms:      make(map[string]*Room),
		userRoom:   make(map[string]string),
		pending:    make(map[string]bool),
		selector:   selector,
		settler:    settler,
		audit:      audit,
		cfg:        cfg,
		categories: make(map[string]bool, len(categories)),
		now:        time.Now,
		newID:      uuid.NewString,
		log:        logger.Component("hub"),
	}
	for _, c := range categories {
		if s := slug.Make(c); s != "" {
			h.categories[s] = true
		}
	}
	h.queue = NewQueue(cfg.QueueTimeout, h.onQueueTimeout)
	return h
}

func (h *Hub) timing() game.Timing {
	return game.Timing{TimePerQuestion: h.cfg.TimePerQuestion, AnswerGrace: h.cfg.AnswerGrace}
}

// HandleMessage - точка входа для всех сообщений соединения
func (h *Hub) HandleMessage(c *Client, raw []byte) {
	var in inboundMessage
	if err := json.Unmarshal(raw, &in); err != nil {
		c.send(errorMessage("malformed message"))
		return
	}

	switch in.Type {
	case MsgJoinQueue:
		var p JoinQueuePayload
		if !decodePayload(c, in.Payload, &p) {
			return
		}
		_ = h.Join(c, p.Category)

	case MsgLeaveQueue:
		h.Leave(c)

	case MsgAnswer:
		var p AnswerPayload
		if !decodePayload(c, in.Payload, &p) {
			return
		}
		room, err := h.roomFor(c.UserID, p.MatchID)
		if err != nil {
			c.send(errorMessage(err.Error()))
			return
		}
		room.SubmitAnswer(c, p)

	case MsgRejoin:
		var p RejoinPayload
		if !decodePayload(c, in.Payload, &p) {
			return
		}
		room, err := h.roomFor(c.UserID, p.MatchID)
		if err != nil {
			c.send(errorMessage(err.Error()))
			return
		}
		room.Rejoin(c)

	default:
		c.send(errorMessage("unknown message type"))
	}
}

func decodePayload(c *Client, raw json.RawMessage, v any) bool {
	if len(raw) == 0 {
		return true
	}
	if err := json.Unmarshal(raw, v); err != nil {
		c.send(errorMessage("malformed payload"))
		return false
	}
	return true
}

// Join ставит игрока в очередь категории или сразу создает матч
func (h *Hub) Join(c *Client, category string) error {
	cat := slug.Make(category)
	if cat == "" || (len(h.categories) > 0 && !h.categories[cat]) {
		c.send(errorMessage(ErrInvalidCategory.Error()))
		return ErrInvalidCategory
	}

	h.mu.Lock()
	if _, live := h.userRoom[c.UserID]; live || h.pending[c.UserID] {
		h.mu.Unlock()
		c.send(errorMessage(ErrAlreadyInMatch.Error()))
		return ErrAlreadyInMatch
	}
	pair := h.queue.Join(c, cat, h.now())
	if pair != nil {
		h.pending[pair.First.UserID] = true
		h.pending[pair.Second.UserID] = true
	}
	h.mu.Unlock()

	if pair == nil {
		c.send(Message{Type: MsgQueued, Payload: QueuedPayload{
			Category:    cat,
			WaitSeconds: int(h.cfg.QueueTimeout / time.Second),
		}})
		return nil
	}

	h.startMatch(pair)
	return nil
}

// Connect - новое соединение: если у пользователя идет матч, возвращаем его туда,
// иначе при заданной категории ставим в очередь
func (h *Hub) Connect(c *Client, category string) {
	if id, ok := h.MatchOf(c.UserID); ok {
		if room, err := h.roomFor(c.UserID, id); err == nil {
			room.Rejoin(c)
			return
		}
	}
	if category != "" {
		_ = h.Join(c, category)
	}
}

// Leave - идемпотентно, вне очереди ничего не делает
func (h *Hub) Leave(c *Client) {
	h.queue.Leave(c.UserID)
}

// OnDisconnect: в очереди равносильно Leave, в матче запускает forfeit-таймер
func (h *Hub) OnDisconnect(c *Client) {
	h.queue.LeaveConn(c.UserID, c.ConnID)

	h.mu.RLock()
	room := h.rooms[h.userRoom[c.UserID]]
	h.mu.RUnlock()
	if room != nil {
		room.Disconnect(c)
	}
}

func (h *Hub) startMatch(pair *Pair) {
	a, b := pair.First, pair.Second
	log := h.log.With("category", a.Category, "user_a", a.UserID, "user_b", b.UserID)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	questions, err := h.selector.Build(ctx, a.UserID, b.UserID, a.Category)
	var m *game.Match
	if err == nil {
		now := h.now()
		m, err = game.NewMatch(h.newID(), a.Category, a.UserID, b.UserID, questions, h.timing(), now)
		if err == nil {
			err = m.Start(now)
		}
	}
	if err != nil {
		h.mu.Lock()
		delete(h.pending, a.UserID)
		delete(h.pending, b.UserID)
		h.mu.Unlock()

		text := "could not start match"
		if errors.Is(err, service.ErrQuestionPoolExhausted) {
			text = "not enough new questions in this category"
			log.Warn("match aborted", "error", err)
		} else {
			log.Error("match aborted", "error", err)
		}
		a.Client.send(errorMessage(text))
		b.Client.send(errorMessage(text))
		return
	}

	room := newRoom(h, m, map[string]*Client{a.UserID: a.Client, b.UserID: b.Client})

	h.mu.Lock()
	h.rooms[room.ID] = room
	h.userRoom[a.UserID] = room.ID
	h.userRoom[b.UserID] = room.ID
	delete(h.pending, a.UserID)
	delete(h.pending, b.UserID)
	h.mu.Unlock()

	metrics.ActiveMatches.Inc()
	snap := m.Snapshot()
	h.audit.LogMatchStart(ctx, &snap)
	log.Info("match created", "match_id", room.ID)

	room.begin()
}

func (h *Hub) roomFor(userID, matchID string) (*Room, error) {
	h.mu.RLock()
	room := h.rooms[matchID]
	h.mu.RUnlock()
	if room == nil || !room.hasPlayer(userID) {
		return nil, game.ErrUnknownMatch
	}
	return room, nil
}

// finish вызывается комнатой один раз после терминального перехода
func (h *Hub) finish(room *Room, snap domain.Match, res *game.Result) {
	h.mu.Lock()
	if h.rooms[room.ID] == room {
		delete(h.rooms, room.ID)
	}
	for _, uid := range snap.UserIDs() {
		if h.userRoom[uid] == room.ID {
			delete(h.userRoom, uid)
		}
	}
	h.mu.Unlock()
	metrics.ActiveMatches.Dec()

	if h.settler == nil {
		return
	}
	if err := h.settler.Settle(context.Background(), snap, res); err != nil && !errors.Is(err, service.ErrAlreadySettled) {
		// матч уже завершен для игроков, начисление повторит outbox
		h.log.Warn("settlement deferred", "match_id", room.ID, "error", err)
	}
}

func (h *Hub) onQueueTimeout(entry *QueueEntry) {
	entry.Client.send(Message{Type: MsgQueueTimeout, Payload: QueueTimeoutPayload{Category: entry.Category}})
}

// LiveMatch - снимок идущего матча
func (h *Hub) LiveMatch(matchID string) (domain.Match, bool) {
	h.mu.RLock()
	room := h.rooms[matchID]
	h.mu.RUnlock()
	if room == nil {
		return domain.Match{}, false
	}
	return room.snapshot(), true
}

// MatchOf - id живого матча пользователя
func (h *Hub) MatchOf(userID string) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	id, ok := h.userRoom[userID]
	return id, ok
}

func (h *Hub) ActiveMatches() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

func (h *Hub) Queue() *Queue { return h.queue }

// Shutdown останавливает таймеры всех комнат
func (h *Hub) Shutdown() {
	h.mu.RLock()
	rooms := make([]*Room, 0, len(h.rooms))
	for _, r := range h.rooms {
		rooms = append(rooms, r)
	}
	h.mu.RUnlock()

	for _, r := range rooms {
		r.stopTimers()
	}
	h.log.Info("hub stopped", "live_matches", len(rooms))
}
