package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// League divisions, lowest to highest.
const (
	DivisionBronze   = "BRONZE"
	DivisionPrata    = "PRATA"
	DivisionOuro     = "OURO"
	DivisionDiamante = "DIAMANTE"
)

// LeagueGame is one entry of a player's recent-games window, kept on the
// progress record so the league rating can be recomputed after each game.
type LeagueGame struct {
	GameID   string `json:"game_id"`
	XpEarned int    `json:"xp_earned"`
	Won      bool   `json:"won"`
	GoalDiff int    `json:"goal_diff"`
	WasMvp   bool   `json:"was_mvp"`
}

// UserProgress tracks gamified progression for each user (denormalized for performance).
// XP/level fields are only ever mutated through the idempotent XP processor.
type UserProgress struct {
	ID     string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID string `gorm:"uniqueIndex;not null" json:"user_id"` // links to auth/profile service

	// Core progression
	ExperiencePoints   int64    `json:"experience_points" gorm:"default:0"`
	Level              int      `json:"level" gorm:"default:0"`
	MilestonesAchieved []string `json:"milestones_achieved" gorm:"serializer:json"`

	// League state. protection_games > 0 implies both progress counters are 0.
	Division           string       `json:"division" gorm:"type:varchar(16);default:'BRONZE'"`
	LeagueRating       float64      `json:"league_rating" gorm:"default:0"`
	PromotionProgress  int          `json:"promotion_progress" gorm:"default:0"`
	RelegationProgress int          `json:"relegation_progress" gorm:"default:0"`
	ProtectionGames    int          `json:"protection_games" gorm:"default:0"`
	RecentGames        []LeagueGame `json:"recent_games" gorm:"serializer:json"`

	// Activity counters
	TotalGames      int64 `json:"total_games" gorm:"default:0"`
	TotalGoals      int64 `json:"total_goals" gorm:"default:0"`
	TotalAssists    int64 `json:"total_assists" gorm:"default:0"`
	TotalSaves      int64 `json:"total_saves" gorm:"default:0"`
	GamesWon        int64 `json:"games_won" gorm:"default:0"`
	GamesLost       int64 `json:"games_lost" gorm:"default:0"`
	GamesDraw       int64 `json:"games_draw" gorm:"default:0"`
	BestPlayerCount int64 `json:"best_player_count" gorm:"default:0"`

	// Streaks
	CurrentStreak    int `json:"current_streak" gorm:"default:0"`
	CurrentMvpStreak int `json:"current_mvp_streak" gorm:"default:0"`

	// Milestones
	LastLevelUpAt *time.Time `json:"last_level_up_at,omitempty"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// NewUserProgress returns a zeroed progress record for a first-time player.
func NewUserProgress(userID string) UserProgress {
	return UserProgress{
		ID:                 uuid.NewString(),
		UserID:             userID,
		Division:           DivisionBronze,
		MilestonesAchieved: []string{},
		RecentGames:        []LeagueGame{},
	}
}

// HasMilestone reports whether the user already unlocked a milestone.
func (p *UserProgress) HasMilestone(name string) bool {
	for _, m := range p.MilestonesAchieved {
		if m == name {
			return true
		}
	}
	return false
}

// AddMilestones unions new milestone names into the achieved set.
func (p *UserProgress) AddMilestones(names []string) {
	for _, n := range names {
		if n != "" && !p.HasMilestone(n) {
			p.MilestonesAchieved = append(p.MilestonesAchieved, n)
		}
	}
}
