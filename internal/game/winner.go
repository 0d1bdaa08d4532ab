package game

// Rule - правило, которое выявило победителя
type Rule string

const (
	RuleFurthestIndex Rule = "furthest_index"
	RuleTotalTime     Rule = "total_time"
	RuleUserID        Rule = "user_id"
	RuleForfeit       Rule = "forfeit"
)

// Standing - все, от чего зависит победитель
type Standing struct {
	UserID        string
	FurthestIndex int
	TotalTimeMs   *int64
}

// ResolveWinner - чистая функция от (furthestIndex, totalTimeMs, userId) обоих игроков.
// 1) дальше продвинулся; 2) меньше время (nil проигрывает значению); 3) меньший userId.
func ResolveWinner(a, b Standing) (string, Rule) {
	if a.FurthestIndex != b.FurthestIndex {
		if a.FurthestIndex > b.FurthestIndex {
			return a.UserID, RuleFurthestIndex
		}
		return b.UserID, RuleFurthestIndex
	}

	switch {
	case a.TotalTimeMs != nil && b.TotalTimeMs == nil:
		return a.UserID, RuleTotalTime
	case a.TotalTimeMs == nil && b.TotalTimeMs != nil:
		return b.UserID, RuleTotalTime
	case a.TotalTimeMs != nil && b.TotalTimeMs != nil && *a.TotalTimeMs != *b.TotalTimeMs:
		if *a.TotalTimeMs < *b.TotalTimeMs {
			return a.UserID, RuleTotalTime
		}
		return b.UserID, RuleTotalTime
	}

	if a.UserID < b.UserID {
		return a.UserID, RuleUserID
	}
	return b.UserID, RuleUserID
}
