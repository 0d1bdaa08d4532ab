package domain

import "time"

// Журнал важных событий матча по каждому игроку
type AuditLog struct {
	ID        int64                  `db:"id" json:"id"`
	UserID    string                 `db:"user_id" json:"user_id"`
	MatchID   string                 `db:"match_id" json:"match_id,omitempty"`
	Action    string                 `db:"action" json:"action"`
	Category  string                 `db:"category" json:"category"`
	Details   map[string]interface{} `db:"details" json:"details"`
	CreatedAt time.Time              `db:"created_at" json:"created_at"`
}

const (
	AuditCategoryMatch      = "match"
	AuditCategorySettlement = "settlement"
)

const (
	AuditActionMatchStart   = "match_start"
	AuditActionMatchWin     = "match_win"
	AuditActionMatchLose    = "match_lose"
	AuditActionMatchForfeit = "match_forfeit"
	AuditActionMatchCancel  = "match_cancel"
	AuditActionMatchExpire  = "match_expire"

	AuditActionRewardCredit = "reward_credit"
	AuditActionRewardFailed = "reward_failed"
)
