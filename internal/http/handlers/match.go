package handlers

import (
	"net/http"

	"trivia_duel/internal/domain"
	"trivia_duel/internal/logger"

	"github.com/gin-gonic/gin"
)

// GetMatch отдает матч только его участникам. Чужой и несуществующий
// неразличимы - оба 404
func (h *Handler) GetMatch(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	id := c.Param("id")

	if m, live := h.Live.LiveMatch(id); live {
		if !m.HasPlayer(userID) {
			c.JSON(http.StatusNotFound, gin.H{"error": "match not found"})
			return
		}
		c.JSON(http.StatusOK, matchView(&m, userID, true))
		return
	}

	m, err := h.Matches.GetByID(c.Request.Context(), id)
	if err != nil {
		logger.Error("get match failed", "match_id", id, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	if m == nil || !m.HasPlayer(userID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "match not found"})
		return
	}
	c.JSON(http.StatusOK, matchView(m, userID, false))
}

// GetCurrentMatch - id идущего матча пользователя, если есть
func (h *Handler) GetCurrentMatch(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	id, live := h.Live.MatchOf(userID)
	if !live {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active match"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"match_id": id})
}

// в идущем матче ответы соперника не раскрываются
func matchView(m *domain.Match, viewer string, live bool) gin.H {
	players := make([]gin.H, 0, len(m.Players))
	for _, p := range m.Players {
		view := gin.H{
			"user_id":         p.UserID,
			"connected":       p.Connected,
			"current_index":   p.CurrentIndex,
			"furthest_index":  p.FurthestIndex,
			"failed_at_index": p.FailedAtIndex,
			"completed":       p.Completed,
			"total_time_ms":   p.TotalTimeMs,
		}
		if !live || p.UserID == viewer {
			view["answers"] = p.Answers
		}
		players = append(players, view)
	}

	return gin.H{
		"id":             m.ID,
		"category":       m.Category,
		"state":          m.State,
		"players":        players,
		"question_set":   m.QuestionSet,
		"created_at":     m.CreatedAt,
		"started_at":     m.StartedAt,
		"finished_at":    m.FinishedAt,
		"winner_user_id": m.WinnerUserID,
		"finish_reason":  m.FinishReason,
	}
}
