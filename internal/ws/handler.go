package ws

import (
	"net/http"
	"strings"

	"trivia_duel/internal/logger"
	"trivia_duel/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// WSHandler поднимает ws-соединение проверенного пользователя
type WSHandler struct {
	Hub           *Hub
	JWTSecret     string
	AllowedOrigin string
}

func NewWSHandler(hub *Hub, jwtSecret, allowedOrigin string) *WSHandler {
	return &WSHandler{
		Hub:           hub,
		JWTSecret:     jwtSecret,
		AllowedOrigin: allowedOrigin,
	}
}

// HandleWS: токен в query (браузер не дает выставить заголовки на upgrade)
// или в Authorization. ?category=... сразу ставит в очередь
func (h *WSHandler) HandleWS() gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if h.AllowedOrigin == "" {
				return true
			}
			return r.Header.Get("Origin") == h.AllowedOrigin
		},
	}

	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			token = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		}
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "token required"})
			return
		}

		userID, err := service.ParseToken(h.JWTSecret, token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("ws upgrade failed", "user_id", userID, "error", err)
			return
		}

		client := NewClient(userID, conn, h.Hub)
		go client.Run()
		h.Hub.Connect(client, c.Query("category"))
	}
}
