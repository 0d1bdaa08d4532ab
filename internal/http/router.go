package http

import (
	"net/http"

	"trivia_duel/internal/http/handlers"
	"trivia_duel/internal/http/middleware"
	"trivia_duel/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterConfig struct {
	JWTSecret     string
	AllowedOrigin string
	RateLimit     int
	Version       string
}

// RegisterRoutes вешает REST, ws и служебные ручки на r
func RegisterRoutes(r *gin.Engine, h *handlers.Handler, hub *ws.Hub, limiter middleware.Limiter, cfg RouterConfig) {
	r.Use(cors(cfg.AllowedOrigin))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":         "ok",
			"version":        cfg.Version,
			"active_matches": hub.ActiveMatches(),
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	wsHandler := ws.NewWSHandler(hub, cfg.JWTSecret, cfg.AllowedOrigin)
	r.GET("/ws", middleware.RateLimit(limiter, cfg.RateLimit), wsHandler.HandleWS())

	api := r.Group("/api")
	api.GET("/leaderboard", middleware.RateLimit(limiter, cfg.RateLimit), h.GetLeaderboard)

	auth := api.Group("")
	auth.Use(middleware.Auth(cfg.JWTSecret), middleware.RateLimit(limiter, cfg.RateLimit))
	auth.GET("/me/progress", h.MyProgress)
	auth.GET("/me/match", h.GetCurrentMatch)
	auth.GET("/matches/:id", h.GetMatch)
}

// CORS для фронта на другом домене
func cors(allowedOrigin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" && (allowedOrigin == "" || origin == allowedOrigin) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
