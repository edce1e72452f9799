// workers/game_finish_worker.go
package workers

import (
	"context"
	"log"
	"time"

	"futeba-gamification-system/models"
	"futeba-gamification-system/services"

	"gorm.io/gorm"
)

// GameFinishWorker polls for finished games that have not been processed for
// XP yet and runs the reward pipeline for each. It is the safety net behind
// the synchronous /games/:id/process-xp endpoint: if the caller crashed
// between finishing a game and triggering processing, the worker picks it up.
type GameFinishWorker struct {
	db       *gorm.DB
	finisher *services.GameFinisher
	interval time.Duration
	limit    int
}

func NewGameFinishWorker(db *gorm.DB, finisher *services.GameFinisher) *GameFinishWorker {
	return &GameFinishWorker{
		db:       db,
		finisher: finisher,
		interval: 1 * time.Minute,
		limit:    20,
	}
}

func (w *GameFinishWorker) Start(ctx context.Context) {
	log.Println("🔁 Starting Game Finish Worker (finished games → XP pipeline)…")
	go w.run(ctx)
}

func (w *GameFinishWorker) run(ctx context.Context) {
	// Initial sweep for anything left over from before a restart
	w.sweep(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.sweep(ctx)
		case <-ctx.Done():
			log.Println("⏹️ Game Finish Worker stopped")
			return
		}
	}
}

// sweep processes a bounded batch of unprocessed finished games. Each game is
// independent; one failure does not block the rest, and the idempotent
// pipeline makes re-picking a partially processed game safe.
func (w *GameFinishWorker) sweep(ctx context.Context) {
	var games []models.Game
	err := w.db.Where("status = ? AND xp_processed = ?", models.GameStatusFinished, false).
		Order("updated_at ASC").
		Limit(w.limit).
		Find(&games).Error
	if err != nil {
		log.Printf("[GameFinishWorker] ❌ DB error: %v", err)
		return
	}
	if len(games) == 0 {
		return
	}

	log.Printf("[GameFinishWorker] 📥 Found %d unprocessed finished game(s)", len(games))
	for _, g := range games {
		if ctx.Err() != nil {
			return
		}
		if err := w.finisher.ProcessGame(ctx, g.ID); err != nil {
			log.Printf("[GameFinishWorker] ⚠️ Failed to process game %s: %v", g.ID, err)
		}
	}
}
