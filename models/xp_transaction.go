package models

import (
	"time"
)

// XpTransaction is the XP log record. One row per (game, user) pair, keyed by
// the deterministic transaction_id ("game_{gameId}_user_{userId}"). Created
// once when a game finishes; the only later write flips post_processed when
// the follow-up stats/league/badge work lands.
type XpTransaction struct {
	ID            string `gorm:"primaryKey;type:uuid" json:"id"`
	TransactionID string `gorm:"uniqueIndex;not null" json:"transaction_id"` // idempotency key
	GameID        string `gorm:"index;not null" json:"game_id"`
	UserID        string `gorm:"index;not null" json:"user_id"`

	XpEarned    int `json:"xp_earned"`
	XpBefore    int `json:"xp_before"`
	XpAfter     int `json:"xp_after"`
	LevelBefore int `json:"level_before"`
	LevelAfter  int `json:"level_after"`

	// Breakdown (per-category XP contributions, summing to xp_earned)
	XpParticipation int `json:"xp_participation"`
	XpGoals         int `json:"xp_goals"`
	XpAssists       int `json:"xp_assists"`
	XpSaves         int `json:"xp_saves"`
	XpResult        int `json:"xp_result"`
	XpMvp           int `json:"xp_mvp"`
	XpCleanSheet    int `json:"xp_clean_sheet"`
	XpMilestones    int `json:"xp_milestones"`
	XpStreak        int `json:"xp_streak"`
	XpPenalty       int `json:"xp_penalty"`

	// Metadata (raw stats the XP was derived from)
	Goals              int      `json:"goals"`
	Assists            int      `json:"assists"`
	Saves              int      `json:"saves"`
	WasMvp             bool     `json:"was_mvp"`
	WasCleanSheet      bool     `json:"was_clean_sheet"`
	WasWorstPlayer     bool     `json:"was_worst_player"`
	GameResult         string   `gorm:"type:varchar(8)" json:"game_result"` // WIN / DRAW / LOSS
	MilestonesUnlocked []string `gorm:"serializer:json" json:"milestones_unlocked"`

	// Set once the stats/league/badge follow-up for this award committed.
	// Lets a crashed game-finish run resume exactly where it stopped.
	PostProcessed bool `gorm:"default:false" json:"post_processed"`

	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	ProcessedAt time.Time `gorm:"autoCreateTime" json:"processed_at"`
}
