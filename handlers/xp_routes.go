// handlers/xp_routes.go
package handlers

import (
	"futeba-gamification-system/middleware"
	"futeba-gamification-system/services"

	"github.com/gofiber/fiber/v2"
)

// SetupXpRoutes wires the XP processing endpoints. These are service-to-service
// routes: the game service (or a replay tool) posts computed XP transactions.
func SetupXpRoutes(app *fiber.App, processor *services.XpProcessor, finisher *services.GameFinisher, limiter *services.RateLimiter) {
	group := app.Group("/xp",
		middleware.UserContextMiddleware(),
		middleware.WithRateLimit(limiter, services.RateLimits["xp_processing"]),
	)

	// Single idempotent transaction. Duplicate submissions return
	// already_processed=true with HTTP 200.
	group.Post("/process", func(c *fiber.Ctx) error {
		var data services.XpTransactionData
		if err := c.BodyParser(&data); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}

		result := processor.ProcessXpIdempotent(c.Context(), data)
		if !result.Success {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(result)
		}
		return c.JSON(result)
	})

	// Batch path: one atomic commit for every non-duplicate entry.
	group.Post("/process/batch", func(c *fiber.Ctx) error {
		var payload struct {
			Transactions []services.XpTransactionData `json:"transactions"`
		}
		if err := c.BodyParser(&payload); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}

		results := processor.ProcessXpBatch(c.Context(), payload.Transactions)
		succeeded := 0
		for _, r := range results {
			if r.Success {
				succeeded++
			}
		}
		return c.JSON(fiber.Map{
			"results":   results,
			"total":     len(results),
			"succeeded": succeeded,
		})
	})

	// Full game pipeline: stats -> XP -> league -> badges for every
	// confirmed player of a finished game.
	finishGroup := app.Group("/games",
		middleware.UserContextMiddleware(),
		middleware.WithRateLimit(limiter, services.RateLimits["game_finish"]),
	)

	finishGroup.Post("/:id/process-xp", func(c *fiber.Ctx) error {
		gameID := c.Params("id")
		if err := finisher.ProcessGame(c.Context(), gameID); err != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error": "game processing failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"message": "game processed",
			"game_id": gameID,
		})
	})
}
