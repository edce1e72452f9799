// handlers/progression_routes.go
package handlers

import (
	"strconv"

	"futeba-gamification-system/middleware"
	"futeba-gamification-system/models"
	"futeba-gamification-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupProgressionRoutes(app *fiber.App, progressionService *services.ProgressionService, badgeService *services.BadgeService, limiter *services.RateLimiter) {
	// 🔐 Secured routes — require user context (userID, roles)
	// The gateway forwards paths like /api/v1/gamification/s/user/progress -> /user/progress
	securedGroup := app.Group("/",
		middleware.UserContextMiddleware(),
		middleware.WithRateLimit(limiter, services.RateLimits["progression"]),
	)

	securedGroup.Get("/user/progress", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		prog, err := progressionService.EnsureProgressRecord(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load progress record",
				"cause": err.Error(),
			})
		}

		return c.JSON(fiber.Map{
			"id":                  prog.ID,
			"user_id":             prog.UserID,
			"xp":                  prog.ExperiencePoints,
			"level":               prog.Level,
			"xp_to_next_level":    services.XpToNextLevel(prog.ExperiencePoints),
			"division":            prog.Division,
			"league_rating":       prog.LeagueRating,
			"promotion_progress":  prog.PromotionProgress,
			"relegation_progress": prog.RelegationProgress,
			"protection_games":    prog.ProtectionGames,
			"total_games":         prog.TotalGames,
			"total_goals":         prog.TotalGoals,
			"total_assists":       prog.TotalAssists,
			"total_saves":         prog.TotalSaves,
			"games_won":           prog.GamesWon,
			"games_lost":          prog.GamesLost,
			"games_draw":          prog.GamesDraw,
			"best_player_count":   prog.BestPlayerCount,
			"current_streak":      prog.CurrentStreak,
			"current_mvp_streak":  prog.CurrentMvpStreak,
			"milestones_achieved": prog.MilestonesAchieved,
			"last_level_up_at":    prog.LastLevelUpAt,
		})
	})

	securedGroup.Get("/user/progress/history", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		page, _ := strconv.Atoi(c.Query("page", "1"))
		size, _ := strconv.Atoi(c.Query("size", "20"))
		history, err := progressionService.GetXpHistory(userID, page, size)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get history",
				"cause": err.Error(),
			})
		}
		return c.JSON(history)
	})

	securedGroup.Get("/user/progress/recent", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		days, _ := strconv.Atoi(c.Query("days", "7"))
		txns, err := progressionService.GetRecentTransactions(userID, days)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get recent transactions",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"transactions": txns})
	})

	securedGroup.Get("/user/progress/badges", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		userBadges, err := badgeService.GetUserBadges(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get badges",
				"cause": err.Error(),
			})
		}

		response := make([]fiber.Map, 0, len(userBadges))
		for _, ub := range userBadges {
			entry := fiber.Map{
				"id":         ub.ID,
				"code":       ub.BadgeCode,
				"game_id":    ub.GameID,
				"awarded_at": ub.AwardedAt,
			}
			if bt, ok := models.BadgeCatalog[ub.BadgeCode]; ok {
				entry["name"] = bt.Name
				entry["description"] = bt.Description
				entry["rarity"] = bt.Rarity
			}
			response = append(response, entry)
		}
		return c.JSON(response)
	})

	securedGroup.Get("/leaderboard", func(c *fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit", "50"))
		entries, err := progressionService.GetLeaderboard(limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get leaderboard",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"leaderboard": entries})
	})
}
