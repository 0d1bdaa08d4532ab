package middleware

import (
	"context"
	"net/http"
	"time"

	"trivia_duel/internal/logger"

	"github.com/gin-gonic/gin"
)

// Limiter - счетчик запросов в окне (redis)
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RateLimit ограничивает запросы пользователя (или IP до авторизации) за минуту.
// При недоступном redis пропускает запрос
func RateLimit(l Limiter, perMinute int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil || perMinute <= 0 {
			c.Next()
			return
		}

		key := "rl:ip:" + c.ClientIP()
		if v, ok := c.Get("user_id"); ok {
			if id, _ := v.(string); id != "" {
				key = "rl:user:" + id
			}
		}

		ok, err := l.Allow(c.Request.Context(), key, perMinute, time.Minute)
		if err != nil {
			logger.Warn("rate limiter unavailable", "key", key, "error", err)
			c.Next()
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
