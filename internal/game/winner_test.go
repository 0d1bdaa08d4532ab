package game

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func ms(v int64) *int64 { return &v }

func TestResolveWinner(t *testing.T) {
	tests := []struct {
		name   string
		a, b   Standing
		winner string
		rule   Rule
	}{
		{
			name:   "furthest index beats time",
			a:      Standing{UserID: "a", FurthestIndex: 10, TotalTimeMs: ms(42000)},
			b:      Standing{UserID: "b", FurthestIndex: 6, TotalTimeMs: ms(20000)},
			winner: "a",
			rule:   RuleFurthestIndex,
		},
		{
			name:   "faster of two full runs",
			a:      Standing{UserID: "a", FurthestIndex: 10, TotalTimeMs: ms(50000)},
			b:      Standing{UserID: "b", FurthestIndex: 10, TotalTimeMs: ms(48000)},
			winner: "b",
			rule:   RuleTotalTime,
		},
		{
			name:   "missing time loses",
			a:      Standing{UserID: "a", FurthestIndex: 0},
			b:      Standing{UserID: "b", FurthestIndex: 0, TotalTimeMs: ms(90000)},
			winner: "b",
			rule:   RuleTotalTime,
		},
		{
			name:   "full tie goes to smaller user id",
			a:      Standing{UserID: "zed", FurthestIndex: 3, TotalTimeMs: ms(1000)},
			b:      Standing{UserID: "amy", FurthestIndex: 3, TotalTimeMs: ms(1000)},
			winner: "amy",
			rule:   RuleUserID,
		},
		{
			name:   "both without time",
			a:      Standing{UserID: "b", FurthestIndex: 0},
			b:      Standing{UserID: "a", FurthestIndex: 0},
			winner: "a",
			rule:   RuleUserID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			winner, rule := ResolveWinner(tt.a, tt.b)
			require.Equal(t, tt.winner, winner)
			require.Equal(t, tt.rule, rule)

			// порядок аргументов не влияет на результат
			swapped, swappedRule := ResolveWinner(tt.b, tt.a)
			require.Equal(t, winner, swapped)
			require.Equal(t, rule, swappedRule)
		})
	}
}
