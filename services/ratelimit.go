package services

import (
	"fmt"
	"log"
	"time"

	"futeba-gamification-system/models"

	"github.com/gosimple/slug"
)

// RateLimitConfig tunes one sliding window.
//
// FailOpen is a deliberate availability-over-enforcement tradeoff: when the
// bucket store errors, a FailOpen limiter allows the request (remaining 0)
// instead of blocking legitimate traffic on an infra blip. FailOpen false
// propagates the store error to the caller.
type RateLimitConfig struct {
	MaxRequests int
	Window      time.Duration
	KeyPrefix   string
	FailOpen    bool
}

// RateLimitResult is the outcome of one rate limit check.
type RateLimitResult struct {
	Allowed   bool      `json:"allowed"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
}

// RateLimitStats is the operator view of a bucket.
type RateLimitStats struct {
	Key            string    `json:"key"`
	ActiveRequests int       `json:"active_requests"`
	MaxRequests    int       `json:"max_requests"`
	Remaining      int       `json:"remaining"`
	ResetAt        time.Time `json:"reset_at"`
	Exists         bool      `json:"exists"`
}

// Preset limits per endpoint class.
var RateLimits = map[string]RateLimitConfig{
	"xp_processing": {MaxRequests: 10, Window: time.Minute, KeyPrefix: "xp", FailOpen: true},
	"game_finish":   {MaxRequests: 5, Window: time.Minute, KeyPrefix: "finish", FailOpen: true},
	"progression":   {MaxRequests: 60, Window: time.Minute, KeyPrefix: "prog", FailOpen: true},
	"admin":         {MaxRequests: 30, Window: time.Minute, KeyPrefix: "admin", FailOpen: false},
}

type RateLimiter struct {
	Store BucketStore
	// test seam, defaults to time.Now
	Now func() time.Time
}

func NewRateLimiter(store BucketStore) *RateLimiter {
	return &RateLimiter{Store: store, Now: time.Now}
}

func bucketKey(prefix, identity string) string {
	if prefix == "" {
		prefix = "rl"
	}
	return fmt.Sprintf("%s_%s", prefix, identity)
}

// CheckRateLimit runs one sliding-window check for the given identity.
// Expired timestamps are pruned, and the current request timestamp is
// appended only when allowed, so a rejected burst cannot extend its own
// lockout. The read-filter-append-write runs in one store transaction with
// the bucket row locked; concurrent checks for the same key serialize
// instead of both admitting against the same snapshot.
func (r *RateLimiter) CheckRateLimit(identity string, cfg RateLimitConfig) (RateLimitResult, error) {
	now := r.Now()
	key := bucketKey(cfg.KeyPrefix, identity)
	windowStart := now.Add(-cfg.Window).UnixMilli()
	nowMs := now.UnixMilli()

	var result RateLimitResult
	err := r.Store.InTransaction(func(tx BucketStoreTx) error {
		bucket, err := tx.GetBucketForUpdate(key)
		if err != nil {
			return err
		}

		var active []int64
		if bucket != nil {
			for _, ts := range bucket.Requests {
				if ts >= windowStart && ts <= nowMs {
					active = append(active, ts)
				}
			}
		}

		allowed := len(active) < cfg.MaxRequests
		if allowed {
			active = append(active, nowMs)
		}

		// resetAt reports when capacity first frees up (oldest entry ages
		// out). The persisted expiry keys on the newest entry instead: the
		// bucket stays alive until its whole timestamp list is out of window,
		// so the cleanup sweep never removes live state.
		resetAt := now.Add(cfg.Window)
		expiresAt := now.Add(cfg.Window)
		if len(active) > 0 {
			resetAt = time.UnixMilli(active[0]).Add(cfg.Window)
			expiresAt = time.UnixMilli(active[len(active)-1]).Add(cfg.Window)
		}

		updated := &models.RateLimitBucket{
			Key:       key,
			Requests:  active,
			ExpiresAt: expiresAt,
		}
		if bucket != nil {
			updated.IPAddress = bucket.IPAddress
		}
		if err := tx.SaveBucket(updated); err != nil {
			return err
		}

		remaining := cfg.MaxRequests - len(active)
		if remaining < 0 {
			remaining = 0
		}
		result = RateLimitResult{Allowed: allowed, Remaining: remaining, ResetAt: resetAt}
		return nil
	})
	if err != nil {
		return r.failOpen(cfg, now, err)
	}
	return result, nil
}

// CheckRateLimitByIP sanitizes a raw IP (possibly spoofed or malformed) into
// a safe storage key before running the same check.
func (r *RateLimiter) CheckRateLimitByIP(ip string, cfg RateLimitConfig) (RateLimitResult, error) {
	sanitized := slug.Make(ip)
	if sanitized == "" {
		sanitized = "unknown"
	}
	return r.CheckRateLimit("ip-"+sanitized, cfg)
}

func (r *RateLimiter) failOpen(cfg RateLimitConfig, now time.Time, err error) (RateLimitResult, error) {
	if cfg.FailOpen {
		log.Printf("[RateLimit] ⚠️ Bucket store error, failing open: %v", err)
		return RateLimitResult{Allowed: true, Remaining: 0, ResetAt: now.Add(cfg.Window)}, nil
	}
	return RateLimitResult{}, err
}

// CleanupExpiredRateLimits removes buckets whose whole window has aged out.
// Returns the number removed.
func (r *RateLimiter) CleanupExpiredRateLimits() (int64, error) {
	removed, err := r.Store.DeleteExpiredBuckets(r.Now())
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		log.Printf("[RateLimit] 🧹 Cleaned up %d expired bucket(s)", removed)
	}
	return removed, nil
}

// ResetUserRateLimit clears one user's bucket. Operator utility.
func (r *RateLimiter) ResetUserRateLimit(userID string, cfg RateLimitConfig) error {
	return r.Store.DeleteBucket(bucketKey(cfg.KeyPrefix, userID))
}

// GetUserRateLimitStats inspects one user's bucket without mutating it.
func (r *RateLimiter) GetUserRateLimitStats(userID string, cfg RateLimitConfig) (RateLimitStats, error) {
	now := r.Now()
	key := bucketKey(cfg.KeyPrefix, userID)
	stats := RateLimitStats{
		Key:         key,
		MaxRequests: cfg.MaxRequests,
		Remaining:   cfg.MaxRequests,
		ResetAt:     now.Add(cfg.Window),
	}

	bucket, err := r.Store.GetBucket(key)
	if err != nil {
		return stats, err
	}
	if bucket == nil {
		return stats, nil
	}

	stats.Exists = true
	windowStart := now.Add(-cfg.Window).UnixMilli()
	for _, ts := range bucket.Requests {
		if ts >= windowStart {
			stats.ActiveRequests++
			if stats.ActiveRequests == 1 {
				stats.ResetAt = time.UnixMilli(ts).Add(cfg.Window)
			}
		}
	}
	stats.Remaining = cfg.MaxRequests - stats.ActiveRequests
	if stats.Remaining < 0 {
		stats.Remaining = 0
	}
	return stats, nil
}
