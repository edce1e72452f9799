package services

import (
	"log"
	"time"

	"futeba-gamification-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BadgeContext carries everything a single game contributes to badge rules.
type BadgeContext struct {
	Goals    int
	Assists  int
	Saves    int
	Position string
	IsMvp    bool

	TotalGames int64
	GamesWon   int64

	Streak        int
	NewMvpStreak  int
	NewLevel      int
	Result        string
	OpponentScore *int
}

// GetStreakBadges returns the single streak badge for the current run of
// consecutive games. Tiers are exclusive, only the highest applies.
func GetStreakBadges(streak int) []string {
	switch {
	case streak >= 30:
		return []string{"streak_30"}
	case streak >= 10:
		return []string{"iron_man"}
	case streak >= 7:
		return []string{"streak_7"}
	default:
		return nil
	}
}

// GetGoalsBadges returns every goal badge earned in one game. Tiers stack:
// scoring 5 earns hat_trick, poker and manita together.
func GetGoalsBadges(goals int) []string {
	var badges []string
	if goals >= 3 {
		badges = append(badges, "hat_trick")
	}
	if goals >= 4 {
		badges = append(badges, "poker")
	}
	if goals >= 5 {
		badges = append(badges, "manita")
	}
	return badges
}

func GetAssistsBadges(assists int) []string {
	if assists >= 3 {
		return []string{"playmaker"}
	}
	return nil
}

func GetBalancedPlayerBadge(goals, assists int) []string {
	if goals >= 2 && assists >= 2 {
		return []string{"balanced_player"}
	}
	return nil
}

// GetMvpBadges awards mvp_streak_3 on the exact third consecutive MVP, so the
// badge fires once per run instead of on every game past three.
func GetMvpBadges(isMvp bool, mvpStreak int) []string {
	if isMvp && mvpStreak == 3 {
		return []string{"mvp_streak_3"}
	}
	return nil
}

// CalculateMvpStreak advances the consecutive-MVP counter.
func CalculateMvpStreak(currentStreak int, isMvp bool) int {
	if isMvp {
		return currentStreak + 1
	}
	return 0
}

// GetVeteranBadges fires exactly at the 50th and 100th game.
func GetVeteranBadges(totalGames int64) []string {
	switch totalGames {
	case 100:
		return []string{"veteran_100"}
	case 50:
		return []string{"veteran_50"}
	default:
		return nil
	}
}

func GetLevelBadges(level int) []string {
	var badges []string
	if level >= 10 {
		badges = append(badges, "level_10")
	}
	if level >= 5 {
		badges = append(badges, "level_5")
	}
	return badges
}

// GetGoalkeeperBadges evaluates keeper-only badges. A nil opponentScore means
// the opposing score was never recorded, so clean-sheet badges cannot apply;
// defensive_wall depends only on saves.
func GetGoalkeeperBadges(position string, saves int, opponentScore *int) []string {
	if position != models.PositionGoalkeeper {
		return nil
	}
	var badges []string
	cleanSheet := opponentScore != nil && *opponentScore == 0
	if cleanSheet {
		badges = append(badges, "clean_sheet")
	}
	if saves >= 5 && cleanSheet {
		badges = append(badges, "paredao")
	}
	if saves >= 10 {
		badges = append(badges, "defensive_wall")
	}
	return badges
}

// GetWinnerBadges fires exactly at the 25th and 50th win, and only when the
// game that crossed the line was itself a win.
func GetWinnerBadges(result string, gamesWon int64) []string {
	if result != models.ResultWin {
		return nil
	}
	switch gamesWon {
	case 50:
		return []string{"winner_50"}
	case 25:
		return []string{"winner_25"}
	default:
		return nil
	}
}

// GetAllBadgesToAward evaluates every badge rule against one game's context.
func GetAllBadgesToAward(ctx BadgeContext) []string {
	var badges []string
	badges = append(badges, GetStreakBadges(ctx.Streak)...)
	badges = append(badges, GetGoalsBadges(ctx.Goals)...)
	badges = append(badges, GetAssistsBadges(ctx.Assists)...)
	badges = append(badges, GetBalancedPlayerBadge(ctx.Goals, ctx.Assists)...)
	badges = append(badges, GetMvpBadges(ctx.IsMvp, ctx.NewMvpStreak)...)
	badges = append(badges, GetVeteranBadges(ctx.TotalGames)...)
	badges = append(badges, GetLevelBadges(ctx.NewLevel)...)
	badges = append(badges, GetGoalkeeperBadges(ctx.Position, ctx.Saves, ctx.OpponentScore)...)
	badges = append(badges, GetWinnerBadges(ctx.Result, ctx.GamesWon)...)
	return badges
}

type BadgeService struct {
	DB *gorm.DB
}

func NewBadgeService(db *gorm.DB) *BadgeService {
	return &BadgeService{DB: db}
}

// AwardBadges persists the given badge codes for a user. Already-owned badges
// are skipped via the unique (user_id, badge_code) index, so re-processing a
// game never duplicates awards. Returns the codes actually granted.
func (s *BadgeService) AwardBadges(userID, gameID string, codes []string) ([]string, error) {
	var granted []string
	for _, code := range codes {
		if _, ok := models.BadgeCatalog[code]; !ok {
			log.Printf("[Badges] ⚠️ Unknown badge code %q for user %s, skipping", code, userID)
			continue
		}
		badge := models.UserBadge{
			ID:        uuid.NewString(),
			UserID:    userID,
			BadgeCode: code,
			GameID:    gameID,
			AwardedAt: time.Now(),
		}
		res := s.DB.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "badge_code"}},
			DoNothing: true,
		}).Create(&badge)
		if res.Error != nil {
			return granted, res.Error
		}
		if res.RowsAffected > 0 {
			granted = append(granted, code)
			log.Printf("🎖️ Badge awarded: %s → %s", code, userID)
		}
	}
	return granted, nil
}

// GetUserBadges lists all badges a user owns, newest first.
func (s *BadgeService) GetUserBadges(userID string) ([]models.UserBadge, error) {
	var badges []models.UserBadge
	err := s.DB.Where("user_id = ?", userID).
		Order("awarded_at DESC").
		Find(&badges).Error
	return badges, err
}
