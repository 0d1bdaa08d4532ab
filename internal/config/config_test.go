package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{name: "go duration", value: "90s", want: 90 * time.Second},
		{name: "plain seconds", value: "45", want: 45 * time.Second},
		{name: "garbage falls back", value: "soon", want: time.Minute},
		{name: "empty falls back", value: "", want: time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.value)
			require.Equal(t, tt.want, getEnvDuration("TEST_DURATION", time.Minute))
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("QUEUE_TIMEOUT", "")
	t.Setenv("FORFEIT_GRACE", "")
	t.Setenv("WIN_POINTS", "")

	cfg := Load()
	require.Equal(t, 60*time.Second, cfg.Match.QueueTimeout)
	require.Equal(t, 60*time.Second, cfg.Match.ForfeitGrace)
	require.Equal(t, int64(100), cfg.Rewards.WinPoints)
	require.Greater(t, cfg.Match.MaxDuration, 10*cfg.Match.TimePerQuestion)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("QUEUE_TIMEOUT", "5s")
	t.Setenv("LOSE_COINS", "3")
	t.Setenv("QUESTION_POOL_DRIVER", "sqlite")

	cfg := Load()
	require.Equal(t, 5*time.Second, cfg.Match.QueueTimeout)
	require.Equal(t, int64(3), cfg.Rewards.LoseCoins)
	require.Equal(t, "sqlite", cfg.QuestionPoolDriver)
}

func TestCategoriesList(t *testing.T) {
	t.Setenv("CATEGORIES", " science, World History ,,art")
	require.Equal(t, []string{"science", "World History", "art"}, Load().Categories)

	t.Setenv("CATEGORIES", "")
	require.Empty(t, Load().Categories)
}
