package handlers

import (
	"context"

	"trivia_duel/internal/domain"

	"github.com/gin-gonic/gin"
)

type MatchReader interface {
	GetByID(ctx context.Context, id string) (*domain.Match, error)
}

type ProgressReader interface {
	GetByUserID(ctx context.Context, userID string) (*domain.UserProgress, error)
	Top(ctx context.Context, limit int) ([]*domain.UserProgress, error)
}

// LiveMatches - матчи, которые еще идут в памяти хаба
type LiveMatches interface {
	LiveMatch(matchID string) (domain.Match, bool)
	MatchOf(userID string) (string, bool)
}

type Handler struct {
	Matches  MatchReader
	Progress ProgressReader
	Live     LiveMatches
}

func New(matches MatchReader, progress ProgressReader, live LiveMatches) *Handler {
	return &Handler{Matches: matches, Progress: progress, Live: live}
}

// userID кладет middleware.Auth
func getUserID(c *gin.Context) (string, bool) {
	v, ok := c.Get("user_id")
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}
