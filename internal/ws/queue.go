package ws

import (
	"sync"
	"time"

	"trivia_duel/internal/logger"
	"trivia_duel/internal/metrics"
)

// QueueEntry - игрок, ожидающий соперника. Живет только в памяти
type QueueEntry struct {
	UserID       string
	Category     string
	ConnectionID string
	Client       *Client
	EnqueuedAt   time.Time

	timer *time.Timer
}

// Pair - два игрока, снятые из очереди одним действием
type Pair struct {
	First  *QueueEntry // дольше ждал
	Second *QueueEntry
}

// Queue - FIFO по категориям
type Queue struct {
	mu         sync.Mutex
	byCategory map[string][]*QueueEntry
	byUser     map[string]*QueueEntry

	timeout   time.Duration
	onTimeout func(*QueueEntry)
}

func NewQueue(timeout time.Duration, onTimeout func(*QueueEntry)) *Queue {
	return &Queue{
		byCategory: make(map[string][]*QueueEntry),
		byUser:     make(map[string]*QueueEntry),
		timeout:    timeout,
		onTimeout:  onTimeout,
	}
}

// Join пытается сразу подобрать самого старого ожидающего той же категории.
// Повторный Join заменяет прежнюю запись пользователя.
// Возвращает пару или nil, если игрок поставлен в очередь
func (q *Queue) Join(c *Client, category string, now time.Time) *Pair {
	q.mu.Lock()
	defer q.mu.Unlock()

	if old, ok := q.byUser[c.UserID]; ok {
		q.removeLocked(old)
	}

	entry := &QueueEntry{
		UserID:       c.UserID,
		Category:     category,
		ConnectionID: c.ConnID,
		Client:       c,
		EnqueuedAt:   now,
	}

	for _, waiting := range append([]*QueueEntry(nil), q.byCategory[category]...) {
		if waiting.UserID == entry.UserID {
			continue
		}
		q.removeLocked(waiting)
		if waiting.Client.Closed() {
			continue
		}
		return &Pair{First: waiting, Second: entry}
	}

	q.byCategory[category] = append(q.byCategory[category], entry)
	q.byUser[entry.UserID] = entry
	entry.timer = time.AfterFunc(q.timeout, func() { q.expire(entry) })
	metrics.QueueDepth.WithLabelValues(category).Set(float64(len(q.byCategory[category])))
	return nil
}

// Leave снимает пользователя с очереди. Если не стоял - no-op
func (q *Queue) Leave(userID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	entry, ok := q.byUser[userID]
	if !ok {
		return false
	}
	q.removeLocked(entry)
	return true
}

// LeaveConn - Leave для разорванного соединения: запись от нового соединения не трогаем
func (q *Queue) LeaveConn(userID, connID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	entry, ok := q.byUser[userID]
	if !ok || entry.ConnectionID != connID {
		return false
	}
	q.removeLocked(entry)
	return true
}

func (q *Queue) Queued(userID string) (*QueueEntry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.byUser[userID]
	return e, ok
}

func (q *Queue) Depth(category string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.byCategory[category])
}

func (q *Queue) expire(entry *QueueEntry) {
	q.mu.Lock()
	// запись уже снята (пара, leave или повторный join)
	if q.byUser[entry.UserID] != entry {
		q.mu.Unlock()
		return
	}
	q.removeLocked(entry)
	q.mu.Unlock()

	metrics.QueueTimeouts.Inc()
	logger.Debug("queue timeout", "user_id", entry.UserID, "category", entry.Category)
	if q.onTimeout != nil {
		q.onTimeout(entry)
	}
}

func (q *Queue) removeLocked(entry *QueueEntry) {
	if entry.timer != nil {
		entry.timer.Stop()
	}
	if q.byUser[entry.UserID] == entry {
		delete(q.byUser, entry.UserID)
	}

	list := q.byCategory[entry.Category]
	for i, e := range list {
		if e == entry {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(q.byCategory, entry.Category)
	} else {
		q.byCategory[entry.Category] = list
	}
	metrics.QueueDepth.WithLabelValues(entry.Category).Set(float64(len(list)))
}
