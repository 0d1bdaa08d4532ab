package ws

import (
	"sync"
	"time"

	"trivia_duel/internal/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 30 * time.Second
	pingPeriod     = 25 * time.Second
	maxMessageSize = 4096
)

// таймаут постановки сообщения в Send
var sendTimeout = 2 * time.Second

// Client - одно ws-соединение проверенного пользователя
type Client struct {
	UserID string
	ConnID string
	Conn   *websocket.Conn
	Send   chan []byte

	Hub *Hub

	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(userID string, conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		UserID: userID,
		ConnID: uuid.NewString(),
		Conn:   conn,
		Send:   make(chan []byte, 256),
		Hub:    hub,
		done:   make(chan struct{}),
	}
}

// Run запускает writer и блокируется в readPump до разрыва соединения
func (c *Client) Run() {
	go c.writePump()
	c.readPump()
}

// Closed - соединение уже разорвано
func (c *Client) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *Client) readPump() {
	defer c.disconnect()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("ws read error", "user_id", c.UserID, "conn_id", c.ConnID, "error", err)
			}
			return
		}
		c.Hub.HandleMessage(c, msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case msg := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Warn("ws write error", "user_id", c.UserID, "error", err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// send ставит сообщение в очередь соединения. Закрытому соединению не пишем
func (c *Client) send(msg Message) bool {
	if c == nil || c.Closed() {
		return false
	}
	data := encode(msg)
	if data == nil {
		return false
	}
	select {
	case c.Send <- data:
		return true
	case <-c.done:
		return false
	case <-time.After(sendTimeout):
		logger.Warn("ws send timeout", "user_id", c.UserID, "type", msg.Type)
		return false
	}
}

func (c *Client) markClosed() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Client) disconnect() {
	c.markClosed()
	c.Hub.OnDisconnect(c)
	if c.Conn != nil {
		_ = c.Conn.Close()
	}
}
