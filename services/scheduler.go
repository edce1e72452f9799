// services/scheduler.go
package services

import (
	"log"
	"time"

	"futeba-gamification-system/models"

	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

// MaintenanceScheduler owns the periodic housekeeping jobs: expired rate
// limit buckets and stale dead letters.
type MaintenanceScheduler struct {
	DB      *gorm.DB
	Limiter *RateLimiter
	sched   gocron.Scheduler
}

func NewMaintenanceScheduler(db *gorm.DB, limiter *RateLimiter) *MaintenanceScheduler {
	return &MaintenanceScheduler{DB: db, Limiter: limiter}
}

func (s *MaintenanceScheduler) Start() {
	sched, err := gocron.NewScheduler()
	if err != nil {
		log.Printf("[Scheduler] ❌ Failed to create scheduler: %v", err)
		return
	}
	s.sched = sched
	sched.Start()

	// Every 10 minutes: drop rate limit buckets whose window fully aged out
	_, _ = sched.NewJob(
		gocron.DurationJob(10*time.Minute),
		gocron.NewTask(func() {
			removed, err := s.Limiter.CleanupExpiredRateLimits()
			if err != nil {
				log.Printf("[Scheduler] Rate limit cleanup failed: %v", err)
				return
			}
			if removed > 0 {
				log.Printf("✅ Rate limit cleanup: removed %d bucket(s)", removed)
			}
		}),
	)

	// Daily: mark dead letters older than 30 days as IGNORED so the pending
	// queue stays reviewable
	_, _ = sched.NewJob(
		gocron.DurationJob(24*time.Hour),
		gocron.NewTask(func() {
			cutoff := time.Now().AddDate(0, 0, -30)
			res := s.DB.Model(&models.DeadLetterEntry{}).
				Where("status = ? AND created_at < ?", models.DeadLetterPending, cutoff).
				Update("status", models.DeadLetterIgnored)
			if res.Error != nil {
				log.Printf("[Scheduler] DLQ sweep failed: %v", res.Error)
				return
			}
			if res.RowsAffected > 0 {
				log.Printf("✅ DLQ sweep: ignored %d stale entr(ies)", res.RowsAffected)
			}
		}),
	)

	log.Println("⏰ Maintenance scheduler started")
}

func (s *MaintenanceScheduler) Stop() {
	if s.sched != nil {
		_ = s.sched.Shutdown()
	}
}
