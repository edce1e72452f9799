// models/game.go
package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	GameStatusScheduled = "SCHEDULED"
	GameStatusLive      = "LIVE"
	GameStatusFinished  = "FINISHED"
	GameStatusCancelled = "CANCELLED"
)

const (
	ConfirmationConfirmed = "CONFIRMED"
	ConfirmationDeclined  = "DECLINED"
	ConfirmationPending   = "PENDING"
)

const (
	PositionGoalkeeper = "GOALKEEPER"
	PositionLine       = "LINE"
)

// Game results from a single player's perspective.
const (
	ResultWin  = "WIN"
	ResultDraw = "DRAW"
	ResultLoss = "LOSS"
)

// Game is a pickup match. Scheduling, location and roster management happen in
// the mobile client; this service only reads games to award XP once they finish.
type Game struct {
	ID      string `json:"id" gorm:"primaryKey"`
	GroupID string `json:"group_id" gorm:"index"`
	Status  string `json:"status" gorm:"index;default:'SCHEDULED'"`
	MvpID   string `json:"mvp_id,omitempty"`

	// Reward processing state. Set exactly once by the gamification engine.
	XpProcessed   bool       `json:"xp_processed" gorm:"index;default:false"`
	XpProcessedAt *time.Time `json:"xp_processed_at,omitempty"`

	StartsAt  time.Time      `json:"starts_at"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// GameConfirmation is a player's attendance record with the per-game stats
// reported at the final whistle. Stats feed validation and XP computation.
type GameConfirmation struct {
	ID       string `json:"id" gorm:"primaryKey"` // "{gameId}_{userId}"
	GameID   string `json:"game_id" gorm:"index;not null"`
	UserID   string `json:"user_id" gorm:"index;not null"`
	Status   string `json:"status" gorm:"default:'PENDING'"`
	Position string `json:"position" gorm:"type:varchar(16);default:'LINE'"`

	Goals       int `json:"goals"`
	Assists     int `json:"assists"`
	Saves       int `json:"saves"`
	YellowCards int `json:"yellow_cards"`
	RedCards    int `json:"red_cards"`

	// Filled in by the engine after processing.
	XpEarned int `json:"xp_earned"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GameTeam is one side of a pickup match.
type GameTeam struct {
	ID        string   `json:"id" gorm:"primaryKey"`
	GameID    string   `json:"game_id" gorm:"index;not null"`
	PlayerIDs []string `json:"player_ids" gorm:"serializer:json"`
	Score     int      `json:"score"`
}

// GamificationSettings holds the tunable XP weights. A single row (ID=1) may
// override the defaults; absence of the row means defaults apply.
type GamificationSettings struct {
	ID          int `json:"id" gorm:"primaryKey"`
	XpPresence  int `json:"xp_presence" gorm:"default:10"`
	XpPerGoal   int `json:"xp_per_goal" gorm:"default:10"`
	XpPerAssist int `json:"xp_per_assist" gorm:"default:7"`
	XpPerSave   int `json:"xp_per_save" gorm:"default:5"`
	XpWin       int `json:"xp_win" gorm:"default:20"`
	XpDraw      int `json:"xp_draw" gorm:"default:10"`
	XpMvp       int `json:"xp_mvp" gorm:"default:30"`
	XpStreak3   int `json:"xp_streak_3" gorm:"default:20"`
	XpStreak7   int `json:"xp_streak_7" gorm:"default:50"`
	XpStreak10  int `json:"xp_streak_10" gorm:"default:100"`
}

// DefaultGamificationSettings returns the built-in XP weights.
func DefaultGamificationSettings() GamificationSettings {
	return GamificationSettings{
		ID:          1,
		XpPresence:  10,
		XpPerGoal:   10,
		XpPerAssist: 7,
		XpPerSave:   5,
		XpWin:       20,
		XpDraw:      10,
		XpMvp:       30,
		XpStreak3:   20,
		XpStreak7:   50,
		XpStreak10:  100,
	}
}
