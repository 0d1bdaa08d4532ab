package domain

import "time"

// Агрегированный прогресс игрока. Меняется только атомарными инкрементами
type UserProgress struct {
	UserID        string    `db:"user_id" json:"user_id"`
	Points        int64     `db:"points" json:"points"`
	Coins         int64     `db:"coins" json:"coins"`
	Answered      int64     `db:"answered" json:"answered"`
	Correct       int64     `db:"correct" json:"correct"`
	MatchesPlayed int64     `db:"matches_played" json:"matches_played"`
	MatchesWon    int64     `db:"matches_won" json:"matches_won"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Accuracy в процентах, 0 если ответов не было
func (p UserProgress) Accuracy() float64 {
	if p.Answered == 0 {
		return 0
	}
	return float64(p.Correct) * 100 / float64(p.Answered)
}

// Начисление по итогам одного матча для одного игрока
type ProgressDelta struct {
	UserID   string
	Points   int64
	Coins    int64
	Answered int64
	Correct  int64
	Won      bool
}
