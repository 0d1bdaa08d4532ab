package handlers

import (
	"net/http"

	"trivia_duel/internal/logger"

	"github.com/gin-gonic/gin"
)

// Прогресс текущего пользователя. Кто еще не играл - нули
func (h *Handler) MyProgress(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	p, err := h.Progress.GetByUserID(c.Request.Context(), userID)
	if err != nil {
		logger.Error("get progress failed", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	if p == nil {
		c.JSON(http.StatusOK, gin.H{
			"user_id":        userID,
			"points":         0,
			"coins":          0,
			"answered":       0,
			"correct":        0,
			"accuracy":       0,
			"matches_played": 0,
			"matches_won":    0,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":        p.UserID,
		"points":         p.Points,
		"coins":          p.Coins,
		"answered":       p.Answered,
		"correct":        p.Correct,
		"accuracy":       p.Accuracy(),
		"matches_played": p.MatchesPlayed,
		"matches_won":    p.MatchesWon,
	})
}
