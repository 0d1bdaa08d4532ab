package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"trivia_duel/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

type fakeMatches struct {
	byID map[string]*domain.Match
	err  error
}

func (f *fakeMatches) GetByID(_ context.Context, id string) (*domain.Match, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byID[id], nil
}

type fakeProgress struct {
	byUser map[string]*domain.UserProgress
	top    []*domain.UserProgress
}

func (f *fakeProgress) GetByUserID(_ context.Context, userID string) (*domain.UserProgress, error) {
	return f.byUser[userID], nil
}

func (f *fakeProgress) Top(_ context.Context, limit int) ([]*domain.UserProgress, error) {
	if limit < len(f.top) {
		return f.top[:limit], nil
	}
	return f.top, nil
}

type fakeLive struct {
	matches map[string]domain.Match
}

func (f *fakeLive) LiveMatch(id string) (domain.Match, bool) {
	m, ok := f.matches[id]
	return m, ok
}

func (f *fakeLive) MatchOf(userID string) (string, bool) {
	for id, m := range f.matches {
		if m.HasPlayer(userID) {
			return id, true
		}
	}
	return "", false
}

func testMatch(id string, state domain.MatchState) domain.Match {
	sel := 1
	m := domain.Match{ID: id, Category: "science", State: state}
	m.Players[0] = domain.PlayerState{UserID: "alice", Answers: []domain.AnswerRecord{{QuestionID: "q0", Selected: &sel}}}
	m.Players[1] = domain.PlayerState{UserID: "bob", Answers: []domain.AnswerRecord{{QuestionID: "q0", Selected: &sel}}}
	return m
}

func newRouter(h *Handler, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID != "" {
			c.Set("user_id", userID)
		}
		c.Next()
	})
	r.GET("/matches/:id", h.GetMatch)
	r.GET("/me/match", h.GetCurrentMatch)
	r.GET("/me/progress", h.MyProgress)
	r.GET("/leaderboard", h.GetLeaderboard)
	return r
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestGetMatchLiveHidesOpponentAnswers(t *testing.T) {
	live := &fakeLive{matches: map[string]domain.Match{"m1": testMatch("m1", domain.MatchActive)}}
	h := New(&fakeMatches{}, &fakeProgress{}, live)

	w := get(newRouter(h, "alice"), "/matches/m1")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		State   string           `json:"state"`
		Players []map[string]any `json:"players"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "ACTIVE", body.State)
	require.Contains(t, body.Players[0], "answers")
	require.NotContains(t, body.Players[1], "answers")
}

func TestGetMatchFinishedFromStore(t *testing.T) {
	m := testMatch("m2", domain.MatchFinished)
	h := New(&fakeMatches{byID: map[string]*domain.Match{"m2": &m}}, &fakeProgress{}, &fakeLive{})

	w := get(newRouter(h, "bob"), "/matches/m2")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Players []map[string]any `json:"players"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Contains(t, body.Players[0], "answers")
}

func TestGetMatchNotParticipant(t *testing.T) {
	m := testMatch("m2", domain.MatchFinished)
	live := &fakeLive{matches: map[string]domain.Match{"m1": testMatch("m1", domain.MatchActive)}}
	h := New(&fakeMatches{byID: map[string]*domain.Match{"m2": &m}}, &fakeProgress{}, live)
	r := newRouter(h, "mallory")

	require.Equal(t, http.StatusNotFound, get(r, "/matches/m1").Code)
	require.Equal(t, http.StatusNotFound, get(r, "/matches/m2").Code)
	require.Equal(t, http.StatusNotFound, get(r, "/matches/nope").Code)
}

func TestGetMatchStoreError(t *testing.T) {
	h := New(&fakeMatches{err: errors.New("boom")}, &fakeProgress{}, &fakeLive{})
	require.Equal(t, http.StatusInternalServerError, get(newRouter(h, "alice"), "/matches/x").Code)
}

func TestGetMatchUnauthorized(t *testing.T) {
	h := New(&fakeMatches{}, &fakeProgress{}, &fakeLive{})
	require.Equal(t, http.StatusUnauthorized, get(newRouter(h, ""), "/matches/x").Code)
}

func TestGetCurrentMatch(t *testing.T) {
	live := &fakeLive{matches: map[string]domain.Match{"m1": testMatch("m1", domain.MatchActive)}}
	h := New(&fakeMatches{}, &fakeProgress{}, live)

	w := get(newRouter(h, "bob"), "/me/match")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"match_id":"m1"}`, w.Body.String())

	require.Equal(t, http.StatusNotFound, get(newRouter(h, "carol"), "/me/match").Code)
}

func TestMyProgress(t *testing.T) {
	progress := &fakeProgress{byUser: map[string]*domain.UserProgress{
		"alice": {UserID: "alice", Points: 200, Answered: 20, Correct: 15, MatchesPlayed: 3, MatchesWon: 2},
	}}
	h := New(&fakeMatches{}, progress, &fakeLive{})

	var body map[string]any
	w := get(newRouter(h, "alice"), "/me/progress")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.EqualValues(t, 200, body["points"])
	require.EqualValues(t, 75, body["accuracy"])

	w = get(newRouter(h, "newbie"), "/me/progress")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.EqualValues(t, 0, body["matches_played"])
}

func TestLeaderboardLimit(t *testing.T) {
	progress := &fakeProgress{top: []*domain.UserProgress{
		{UserID: "alice", Points: 300},
		{UserID: "bob", Points: 200},
		{UserID: "carol", Points: 100},
	}}
	h := New(&fakeMatches{}, progress, &fakeLive{})

	var body struct {
		Leaderboard []struct {
			Rank   int    `json:"rank"`
			UserID string `json:"user_id"`
		} `json:"leaderboard"`
	}
	w := get(newRouter(h, ""), "/leaderboard?limit=2")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Leaderboard, 2)
	require.Equal(t, 1, body.Leaderboard[0].Rank)
	require.Equal(t, "bob", body.Leaderboard[1].UserID)
}
