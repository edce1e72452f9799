package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"futeba-gamification-system/models"

	"gorm.io/gorm"
)

// Level table: cumulative XP required to hold each level. The curve roughly
// doubles the gap per level so the cap stays meaningful for long-lived groups.
type LevelThreshold struct {
	Level      int
	XpRequired int64
}

var Levels = []LevelThreshold{
	{Level: 0, XpRequired: 0},
	{Level: 1, XpRequired: 100},
	{Level: 2, XpRequired: 350},
	{Level: 3, XpRequired: 850},
	{Level: 4, XpRequired: 1850},
	{Level: 5, XpRequired: 3850},
	{Level: 6, XpRequired: 7350},
	{Level: 7, XpRequired: 12850},
	{Level: 8, XpRequired: 20850},
	{Level: 9, XpRequired: 32850},
	{Level: 10, XpRequired: 52850},
}

// GetLevelForXp maps total XP onto the level table.
func GetLevelForXp(xp int64) int {
	for i := len(Levels) - 1; i >= 0; i-- {
		if xp >= Levels[i].XpRequired {
			return Levels[i].Level
		}
	}
	return 0
}

// XpToNextLevel returns how much XP is missing for the next level, or 0 at cap.
func XpToNextLevel(xp int64) int64 {
	level := GetLevelForXp(xp)
	if level >= Levels[len(Levels)-1].Level {
		return 0
	}
	return Levels[level+1].XpRequired - xp
}

// MilestoneDef is a one-time career achievement with an XP reward.
type MilestoneDef struct {
	Name      string
	XpReward  int
	Threshold int64
	Stat      func(*models.UserProgress) int64
}

var Milestones = []MilestoneDef{
	{Name: "GAMES_10", XpReward: 50, Threshold: 10, Stat: func(p *models.UserProgress) int64 { return p.TotalGames }},
	{Name: "GAMES_25", XpReward: 100, Threshold: 25, Stat: func(p *models.UserProgress) int64 { return p.TotalGames }},
	{Name: "GAMES_50", XpReward: 200, Threshold: 50, Stat: func(p *models.UserProgress) int64 { return p.TotalGames }},
	{Name: "GOALS_10", XpReward: 50, Threshold: 10, Stat: func(p *models.UserProgress) int64 { return p.TotalGoals }},
	{Name: "GOALS_25", XpReward: 100, Threshold: 25, Stat: func(p *models.UserProgress) int64 { return p.TotalGoals }},
	{Name: "GOALS_50", XpReward: 200, Threshold: 50, Stat: func(p *models.UserProgress) int64 { return p.TotalGoals }},
	{Name: "ASSISTS_10", XpReward: 50, Threshold: 10, Stat: func(p *models.UserProgress) int64 { return p.TotalAssists }},
	{Name: "ASSISTS_25", XpReward: 100, Threshold: 25, Stat: func(p *models.UserProgress) int64 { return p.TotalAssists }},
	{Name: "WINS_10", XpReward: 75, Threshold: 10, Stat: func(p *models.UserProgress) int64 { return p.GamesWon }},
	{Name: "WINS_25", XpReward: 150, Threshold: 25, Stat: func(p *models.UserProgress) int64 { return p.GamesWon }},
}

// CheckMilestones returns milestones newly crossed by the given stats, plus
// their combined XP reward. Already-achieved names never fire again.
func CheckMilestones(prog *models.UserProgress) (newMilestones []string, xp int) {
	for _, m := range Milestones {
		if prog.HasMilestone(m.Name) {
			continue
		}
		if m.Stat(prog) >= m.Threshold {
			newMilestones = append(newMilestones, m.Name)
			xp += m.XpReward
		}
	}
	return newMilestones, xp
}

type ProgressionService struct {
	DB *gorm.DB
}

func NewProgressionService(db *gorm.DB) *ProgressionService {
	return &ProgressionService{DB: db}
}

// GetSettings loads the gamification XP weights, falling back to defaults
// when the settings row was never created.
func (s *ProgressionService) GetSettings() models.GamificationSettings {
	var settings models.GamificationSettings
	err := s.DB.First(&settings, 1).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[Progression] ⚠️ Failed to load settings, using defaults: %v", err)
		}
		return models.DefaultGamificationSettings()
	}
	return settings
}

// EnsureProgressRecord ensures a UserProgress row exists (idempotent)
func (s *ProgressionService) EnsureProgressRecord(userID string) (*models.UserProgress, error) {
	var prog models.UserProgress
	err := s.DB.Where("user_id = ?", userID).First(&prog).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		prog = models.NewUserProgress(userID)
		if err := s.DB.Create(&prog).Error; err != nil {
			return nil, err
		}
		return &prog, nil
	}
	if err != nil {
		return nil, err
	}
	return &prog, nil
}

// GetUserProgress returns the full progress record for a user.
func (s *ProgressionService) GetUserProgress(userID string) (*models.UserProgress, error) {
	var prog models.UserProgress
	if err := s.DB.Where("user_id = ?", userID).First(&prog).Error; err != nil {
		return nil, fmt.Errorf("progress record not found for %s", userID)
	}
	return &prog, nil
}

// GetXpHistory returns a user's XP log entries, newest first, paginated.
func (s *ProgressionService) GetXpHistory(userID string, page, size int) (map[string]interface{}, error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	var total int64
	s.DB.Model(&models.XpTransaction{}).Where("user_id = ?", userID).Count(&total)

	var logs []models.XpTransaction
	err := s.DB.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(size).Offset(offset).
		Find(&logs).Error
	if err != nil {
		return nil, err
	}

	totalPages := int((total + int64(size) - 1) / int64(size))
	return map[string]interface{}{
		"logs":        logs,
		"page":        page,
		"size":        size,
		"total_items": total,
		"total_pages": totalPages,
	}, nil
}

// LeaderboardEntry is one row of the XP leaderboard.
type LeaderboardEntry struct {
	UserID           string  `json:"user_id"`
	ExperiencePoints int64   `json:"experience_points"`
	Level            int     `json:"level"`
	Division         string  `json:"division"`
	LeagueRating     float64 `json:"league_rating"`
	Rank             int     `json:"rank"`
}

// GetLeaderboard returns the top players by XP.
func (s *ProgressionService) GetLeaderboard(limit int) ([]LeaderboardEntry, error) {
	if limit < 1 || limit > 100 {
		limit = 50
	}
	var progs []models.UserProgress
	err := s.DB.Order("experience_points DESC").Limit(limit).Find(&progs).Error
	if err != nil {
		return nil, err
	}
	entries := make([]LeaderboardEntry, len(progs))
	for i, p := range progs {
		entries[i] = LeaderboardEntry{
			UserID:           p.UserID,
			ExperiencePoints: p.ExperiencePoints,
			Level:            p.Level,
			Division:         p.Division,
			LeagueRating:     p.LeagueRating,
			Rank:             i + 1,
		}
	}
	return entries, nil
}

// GetRecentTransactions returns a user's XP logs in the last N days.
func (s *ProgressionService) GetRecentTransactions(userID string, days int) ([]models.XpTransaction, error) {
	var txns []models.XpTransaction
	since := time.Now().AddDate(0, 0, -days)
	err := s.DB.Where("user_id = ? AND created_at >= ?", userID, since).
		Order("created_at DESC").
		Find(&txns).Error
	return txns, err
}
