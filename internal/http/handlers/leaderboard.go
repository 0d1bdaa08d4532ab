package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// список лучших игроков по очкам, ?limit= до 100
func (h *Handler) GetLeaderboard(c *gin.Context) {
	limit := 100
	if s := c.Query("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n < limit {
			limit = n
		}
	}

	top, err := h.Progress.Top(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get leaderboard"})
		return
	}

	board := make([]gin.H, 0, len(top))
	for i, p := range top {
		board = append(board, gin.H{
			"rank":        i + 1,
			"user_id":     p.UserID,
			"points":      p.Points,
			"matches_won": p.MatchesWon,
			"accuracy":    p.Accuracy(),
		})
	}

	c.JSON(http.StatusOK, gin.H{"leaderboard": board})
}
