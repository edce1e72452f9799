// handlers/admin_routes.go
package handlers

import (
	"strconv"
	"time"

	"futeba-gamification-system/middleware"
	"futeba-gamification-system/models"
	"futeba-gamification-system/services"
	"futeba-gamification-system/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// SetupAdminRoutes wires operator endpoints: rate limit inspection/reset and
// dead letter queue triage.
func SetupAdminRoutes(app *fiber.App, db *gorm.DB, limiter *services.RateLimiter, archiver *utils.DeadLetterArchiver) {
	adminGroup := app.Group("/s/admin",
		middleware.UserContextMiddleware(),
		middleware.RequireAdmin(),
		middleware.WithRateLimit(limiter, services.RateLimits["admin"]),
	)

	adminGroup.Get("/ratelimit/:userId", func(c *fiber.Ctx) error {
		userID := c.Params("userId")
		preset := c.Query("preset", "xp_processing")
		cfg, ok := services.RateLimits[preset]
		if !ok {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "unknown rate limit preset",
			})
		}
		stats, err := limiter.GetUserRateLimitStats(userID, cfg)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to read rate limit stats",
				"cause": err.Error(),
			})
		}
		return c.JSON(stats)
	})

	adminGroup.Delete("/ratelimit/:userId", func(c *fiber.Ctx) error {
		userID := c.Params("userId")
		preset := c.Query("preset", "xp_processing")
		cfg, ok := services.RateLimits[preset]
		if !ok {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "unknown rate limit preset",
			})
		}
		if err := limiter.ResetUserRateLimit(userID, cfg); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to reset rate limit",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"message": "rate limit reset", "user_id": userID})
	})

	adminGroup.Post("/ratelimit/cleanup", func(c *fiber.Ctx) error {
		removed, err := limiter.CleanupExpiredRateLimits()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "cleanup failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"message": "cleanup complete", "removed": removed})
	})

	adminGroup.Get("/dead-letters", func(c *fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit", "50"))
		if limit < 1 || limit > 200 {
			limit = 50
		}
		status := c.Query("status", models.DeadLetterPending)

		var entries []models.DeadLetterEntry
		if err := db.Where("status = ?", status).
			Order("created_at DESC").
			Limit(limit).
			Find(&entries).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to list dead letters",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"entries": entries, "count": len(entries)})
	})

	adminGroup.Post("/dead-letters/export", func(c *fiber.Ctx) error {
		if archiver == nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "archiving not configured",
			})
		}
		status := c.Query("status", models.DeadLetterResolved)

		var entries []models.DeadLetterEntry
		if err := db.Where("status = ?", status).
			Order("created_at ASC").
			Find(&entries).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load dead letters",
				"cause": err.Error(),
			})
		}
		if err := archiver.ArchiveBatch(c.Context(), entries); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "export failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"message": "export complete", "count": len(entries)})
	})

	adminGroup.Post("/dead-letters/:id/resolve", func(c *fiber.Ctx) error {
		id := c.Params("id")
		resolvedBy, _ := c.Locals("user_id").(string)

		var entry models.DeadLetterEntry
		if err := db.First(&entry, "id = ?", id).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "dead letter not found",
			})
		}

		now := time.Now()
		entry.Status = models.DeadLetterResolved
		entry.ResolvedAt = &now
		entry.ResolvedBy = resolvedBy
		if err := db.Save(&entry).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to resolve dead letter",
				"cause": err.Error(),
			})
		}

		// Archive resolved entries to R2 when configured, best effort
		if archiver != nil {
			if err := archiver.Archive(c.Context(), &entry); err != nil {
				return c.JSON(fiber.Map{
					"message": "resolved (archive failed)",
					"entry":   entry,
					"warning": err.Error(),
				})
			}
		}
		return c.JSON(fiber.Map{"message": "resolved", "entry": entry})
	})
}
