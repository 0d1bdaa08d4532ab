package ws

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"trivia_duel/internal/domain"
	"trivia_duel/internal/game"
	"trivia_duel/internal/logger"
	"trivia_duel/internal/metrics"
)

// outgoing - сообщение, собранное под блокировкой и отправляемое после нее
type outgoing struct {
	client *Client
	msg    Message
}

// Room - единственный писатель своего матча. Все изменения идут под mu
type Room struct {
	ID  string
	hub *Hub

	mu      sync.Mutex
	match   *game.Match
	clients map[string]*Client

	forfeitTimers map[string]*time.Timer
	forfeitSeq    map[string]uint64 // поколение таймера: устаревшее срабатывание - no-op
	expiry        *time.Timer
	closed        bool

	log *slog.Logger
}

func newRoom(h *Hub, m *game.Match, clients map[string]*Client) *Room {
	return &Room{
		ID:            m.ID(),
		hub:           h,
		match:         m,
		clients:       clients,
		forfeitTimers: make(map[string]*time.Timer),
		forfeitSeq:    make(map[string]uint64),
		log:           logger.Component("room", "match_id", m.ID()),
	}
}

// begin рассылает matched и match_start и запускает ограничение длительности матча.
// Соединения, оборвавшиеся пока подбирались вопросы, сразу уходят в forfeit-ожидание
func (r *Room) begin() {
	r.mu.Lock()
	snap := r.match.Snapshot()
	tpq := int(r.hub.cfg.TimePerQuestion / time.Second)
	matched := Message{Type: MsgMatched, Payload: MatchedPayload{
		MatchID:         r.ID,
		Category:        snap.Category,
		Players:         snap.UserIDs(),
		TimePerQuestion: tpq,
		TotalQuestions:  domain.QuestionsPerMatch,
	}}
	start := r.matchStartLocked()

	var out []outgoing
	var dead []*Client
	for _, uid := range snap.UserIDs() {
		c := r.clients[uid]
		out = append(out, outgoing{c, matched}, outgoing{c, start})
		if c.Closed() {
			dead = append(dead, c)
		}
	}
	if d := r.hub.cfg.MaxDuration; d > 0 {
		r.expiry = time.AfterFunc(d, r.expire)
	}
	r.mu.Unlock()

	r.deliver(out)
	for _, c := range dead {
		r.Disconnect(c)
	}
}

func (r *Room) matchStartLocked() Message {
	return Message{Type: MsgMatchStart, Payload: MatchStartPayload{
		MatchID:         r.ID,
		Questions:       r.match.Questions(),
		TimePerQuestion: int(r.hub.cfg.TimePerQuestion / time.Second),
	}}
}

// SubmitAnswer применяет ответ. Ошибка валидации уходит только отправителю
func (r *Room) SubmitAnswer(c *Client, p AnswerPayload) {
	now := r.hub.now()

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		c.send(errorMessage(game.ErrUnknownMatch.Error()))
		return
	}
	var out []outgoing
	if r.clients[c.UserID] != c {
		out = append(out, r.attachLocked(c, now)...)
	}

	res, err := r.match.SubmitAnswer(c.UserID, p.QuestionID, p.Selected, now)
	if err != nil {
		r.mu.Unlock()
		r.deliver(out)
		r.rejectAnswer(c, p, err)
		return
	}

	switch {
	case res.TimedOut:
		metrics.Answers.WithLabelValues("timeout").Inc()
	case res.Correct:
		metrics.Answers.WithLabelValues("correct").Inc()
	default:
		metrics.Answers.WithLabelValues("wrong").Inc()
	}

	update := playerUpdate(r.ID, res.Player)
	for _, uid := range r.match.UserIDs() {
		out = append(out, outgoing{r.clients[uid], update})
	}
	if res.State == domain.MatchWaitingOnOpponent && res.Player.Ended() {
		out = append(out, outgoing{c, Message{Type: MsgWaitingOnOpponent, Payload: WaitingOnOpponentPayload{MatchID: r.ID}}})
	}

	var snap domain.Match
	if res.Result != nil {
		out = append(out, r.closeLocked(res.Result)...)
		snap = r.match.Snapshot()
	}
	r.mu.Unlock()

	r.deliver(out)
	if res.Result != nil {
		r.log.Info("match finished", "winner", *res.Result.WinnerID, "rule", res.Result.Rule)
		r.hub.finish(r, snap, res.Result)
	}
}

func (r *Room) rejectAnswer(c *Client, p AnswerPayload, err error) {
	label := "other"
	switch {
	case errors.Is(err, game.ErrStaleQuestion):
		label = "stale_question"
	case errors.Is(err, game.ErrPlayerAlreadyEnded):
		label = "player_ended"
	case errors.Is(err, game.ErrUnknownMatch):
		label = "unknown_match"
	case errors.Is(err, game.ErrInvalidOption):
		label = "invalid_option"
	case errors.Is(err, game.ErrQuestionNotFound):
		label = "question_not_found"
		r.log.Error("answer key missing question", "user_id", c.UserID, "question_id", p.QuestionID, "error", err)
	}
	metrics.RejectedAnswers.WithLabelValues(label).Inc()
	r.log.Debug("answer rejected", "user_id", c.UserID, "question_id", p.QuestionID, "error", err)

	text := err.Error()
	if errors.Is(err, game.ErrQuestionNotFound) {
		text = game.ErrQuestionNotFound.Error()
	}
	c.send(errorMessage(text))
}

// Rejoin - переподключение: новое соединение получает актуальное состояние
func (r *Room) Rejoin(c *Client) {
	now := r.hub.now()

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		c.send(errorMessage(game.ErrUnknownMatch.Error()))
		return
	}
	out := r.attachLocked(c, now)
	if len(out) == 0 {
		// то же соединение прислало rejoin: просто отдаем состояние
		out = r.stateLocked(c)
	}
	r.mu.Unlock()

	r.deliver(out)
}

// attachLocked привязывает новое соединение игрока и снимает forfeit-таймер
func (r *Room) attachLocked(c *Client, now time.Time) []outgoing {
	prev := r.clients[c.UserID]
	r.clients[c.UserID] = c
	r.stopForfeitLocked(c.UserID)

	p, err := r.match.SetConnected(c.UserID, true, now)
	if err != nil {
		return nil
	}
	if prev != nil && prev != c {
		prev.markClosed()
	}
	r.log.Info("player reconnected", "user_id", c.UserID)

	out := r.stateLocked(c)
	update := playerUpdate(r.ID, p)
	if opp := r.opponentClientLocked(c.UserID); opp != nil {
		out = append(out, outgoing{opp, update})
	}
	return out
}

// stateLocked - match_start и прогресс обоих игроков для одного соединения
func (r *Room) stateLocked(c *Client) []outgoing {
	out := []outgoing{{c, r.matchStartLocked()}}
	for _, uid := range r.match.UserIDs() {
		if p, ok := r.match.Player(uid); ok {
			out = append(out, outgoing{c, playerUpdate(r.ID, p)})
		}
	}
	return out
}

// Disconnect: отмечаем отключение и запускаем forfeit-таймер,
// если игрок еще не закончил свою часть
func (r *Room) Disconnect(c *Client) {
	now := r.hub.now()

	r.mu.Lock()
	if r.closed || r.clients[c.UserID] != c {
		r.mu.Unlock()
		return
	}
	p, err := r.match.SetConnected(c.UserID, false, now)
	if err != nil {
		r.mu.Unlock()
		return
	}

	var out []outgoing
	if opp := r.opponentClientLocked(c.UserID); opp != nil {
		out = append(out, outgoing{opp, playerUpdate(r.ID, p)})
	}

	if !p.Ended() {
		r.forfeitSeq[c.UserID]++
		seq := r.forfeitSeq[c.UserID]
		uid := c.UserID
		r.forfeitTimers[uid] = time.AfterFunc(r.hub.cfg.ForfeitGrace, func() {
			r.forfeit(uid, seq)
		})
		r.log.Info("player disconnected, forfeit timer started", "user_id", uid, "grace", r.hub.cfg.ForfeitGrace)
	} else {
		r.log.Info("player disconnected after finishing", "user_id", c.UserID)
	}
	r.mu.Unlock()

	r.deliver(out)
}

// forfeit срабатывает по таймеру. Если соперник тоже отключен дольше grace -
// матч отменяется без победителя
func (r *Room) forfeit(userID string, seq uint64) {
	now := r.hub.now()

	r.mu.Lock()
	if r.closed || r.forfeitSeq[userID] != seq {
		r.mu.Unlock()
		return
	}
	delete(r.forfeitTimers, userID)

	p, ok := r.match.Player(userID)
	if !ok || p.Connected {
		r.mu.Unlock()
		return
	}

	var res *game.Result
	var err error
	if r.opponentGraceElapsedLocked(userID, now) {
		res, err = r.match.Cancel(now)
	} else {
		res, err = r.match.Forfeit(userID, now)
	}
	if err != nil {
		r.mu.Unlock()
		r.log.Warn("forfeit ignored", "user_id", userID, "error", err)
		return
	}
	out := r.closeLocked(res)
	snap := r.match.Snapshot()
	r.mu.Unlock()

	r.deliver(out)
	r.log.Info("match closed by disconnect", "user_id", userID, "state", res.State)
	r.hub.finish(r, snap, res)
}

func (r *Room) opponentGraceElapsedLocked(userID string, now time.Time) bool {
	for _, uid := range r.match.UserIDs() {
		if uid == userID {
			continue
		}
		opp, ok := r.match.Player(uid)
		if !ok || opp.Connected || opp.Ended() || opp.DisconnectedAt == nil {
			return false
		}
		return now.Sub(*opp.DisconnectedAt) >= r.hub.cfg.ForfeitGrace
	}
	return false
}

// expire - жесткий предел длительности матча
func (r *Room) expire() {
	now := r.hub.now()

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	res, err := r.match.Expire(now)
	if err != nil {
		r.mu.Unlock()
		return
	}
	out := r.closeLocked(res)
	snap := r.match.Snapshot()
	r.mu.Unlock()

	r.deliver(out)
	r.log.Warn("match hit max duration", "state", res.State)
	r.hub.finish(r, snap, res)
}

// closeLocked переводит комнату в закрытое состояние ровно один раз
// и готовит match_finished для подключенных игроков
func (r *Room) closeLocked(res *game.Result) []outgoing {
	r.closed = true
	r.stopTimersLocked()

	finished := Message{Type: MsgMatchFinished, Payload: MatchFinishedPayload{
		MatchID:      r.ID,
		WinnerUserID: res.WinnerID,
		Reason:       string(res.Reason),
	}}
	var out []outgoing
	for _, uid := range r.match.UserIDs() {
		out = append(out, outgoing{r.clients[uid], finished})
	}
	return out
}

func (r *Room) stopTimers() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopTimersLocked()
}

func (r *Room) stopTimersLocked() {
	for uid := range r.forfeitTimers {
		r.stopForfeitLocked(uid)
	}
	if r.expiry != nil {
		r.expiry.Stop()
		r.expiry = nil
	}
}

func (r *Room) stopForfeitLocked(userID string) {
	if t, ok := r.forfeitTimers[userID]; ok {
		t.Stop()
		delete(r.forfeitTimers, userID)
	}
	r.forfeitSeq[userID]++
}

func (r *Room) opponentClientLocked(userID string) *Client {
	for uid, c := range r.clients {
		if uid != userID {
			return c
		}
	}
	return nil
}

func (r *Room) hasPlayer(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.match.HasPlayer(userID)
}

func (r *Room) snapshot() domain.Match {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.match.Snapshot()
}

// deliver отправляет без блокировки комнаты. Отключенным не пишем
func (r *Room) deliver(out []outgoing) {
	for _, o := range out {
		o.client.send(o.msg)
	}
}
