package services

import (
	"context"
	"errors"
	"log"
	"math"
	"math/rand"
	"strings"
	"time"

	"futeba-gamification-system/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// RetryConfig tunes one retried operation.
type RetryConfig struct {
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
	Jitter            bool
	OperationName     string
	// Exhausted or permanent failures are recorded to the sink when set.
	DeadLetterSink DeadLetterSink
	Context        map[string]any
	IsTransient    func(error) bool
}

var DefaultRetryConfig = RetryConfig{
	MaxRetries:        3,
	InitialBackoff:    time.Second,
	MaxBackoff:        30 * time.Second,
	BackoffMultiplier: 2,
	Jitter:            true,
	OperationName:     "operation",
}

// RetryResult reports how a retried operation ended.
type RetryResult[T any] struct {
	Success               bool
	Result                T
	Err                   error
	Attempts              int
	TotalDuration         time.Duration
	SentToDeadLetterQueue bool
}

// Postgres SQLSTATEs where an immediate retry can succeed:
// serialization_failure, deadlock_detected, lock_not_available.
var transientPgCodes = map[string]bool{
	"40001": true,
	"40P01": true,
	"55P03": true,
}

var transientMessages = []string{
	"deadline_exceeded",
	"unavailable",
	"aborted",
	"contention",
	"econnreset",
	"etimedout",
	"econnrefused",
	"socket hang up",
	"network error",
	"resource_exhausted",
}

// DefaultIsTransientError classifies errors as retryable or permanent.
// Database contention and network blips retry; validation failures,
// permission errors and duplicates fail fast.
func DefaultIsTransientError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return transientPgCodes[pgErr.Code]
	}

	msg := strings.ToLower(err.Error())
	for _, m := range transientMessages {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultRetryConfig.MaxRetries
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = DefaultRetryConfig.InitialBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = DefaultRetryConfig.MaxBackoff
	}
	if c.BackoffMultiplier <= 0 {
		c.BackoffMultiplier = DefaultRetryConfig.BackoffMultiplier
	}
	if c.OperationName == "" {
		c.OperationName = DefaultRetryConfig.OperationName
	}
	if c.IsTransient == nil {
		c.IsTransient = DefaultIsTransientError
	}
	return c
}

// RetryWithBackoff runs operation with exponential backoff between attempts.
// Transient errors retry up to MaxRetries; permanent errors fail on the
// first occurrence. Backoff for attempt n is
// min(initial * multiplier^(n-1), max), plus up to 30% jitter when enabled.
func RetryWithBackoff[T any](ctx context.Context, operation func() (T, error), cfg RetryConfig) RetryResult[T] {
	c := cfg.withDefaults()
	start := time.Now()
	var lastErr error
	var zero T

	for attempt := 1; attempt <= c.MaxRetries; attempt++ {
		result, err := operation()
		if err == nil {
			if attempt > 1 {
				log.Printf("[RETRY] %s: succeeded on attempt %d/%d (%v total)",
					c.OperationName, attempt, c.MaxRetries, time.Since(start))
			}
			return RetryResult[T]{
				Success:       true,
				Result:        result,
				Attempts:      attempt,
				TotalDuration: time.Since(start),
			}
		}
		lastErr = err

		if !c.IsTransient(err) {
			log.Printf("[RETRY] %s: permanent error on attempt %d, not retrying: %v",
				c.OperationName, attempt, err)
			sent := c.recordDeadLetter(err, attempt, time.Since(start))
			return RetryResult[T]{
				Success:               false,
				Result:                zero,
				Err:                   err,
				Attempts:              attempt,
				TotalDuration:         time.Since(start),
				SentToDeadLetterQueue: sent,
			}
		}

		if attempt == c.MaxRetries {
			log.Printf("[RETRY] %s: max retries (%d) reached, last error: %v",
				c.OperationName, c.MaxRetries, err)
			break
		}

		backoff := time.Duration(math.Min(
			float64(c.InitialBackoff)*math.Pow(c.BackoffMultiplier, float64(attempt-1)),
			float64(c.MaxBackoff),
		))
		if c.Jitter {
			backoff += time.Duration(rand.Float64() * float64(backoff) * 0.3)
		}

		log.Printf("[RETRY] %s: attempt %d/%d failed (transient: %v), retrying in %v",
			c.OperationName, attempt, c.MaxRetries, err, backoff)

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return RetryResult[T]{
				Success:       false,
				Result:        zero,
				Err:           ctx.Err(),
				Attempts:      attempt,
				TotalDuration: time.Since(start),
			}
		}
	}

	sent := c.recordDeadLetter(lastErr, c.MaxRetries, time.Since(start))
	return RetryResult[T]{
		Success:               false,
		Result:                zero,
		Err:                   lastErr,
		Attempts:              c.MaxRetries,
		TotalDuration:         time.Since(start),
		SentToDeadLetterQueue: sent,
	}
}

// recordDeadLetter stores the failure for manual triage. A DLQ write failure
// is logged and swallowed, it must never mask the original error.
func (c RetryConfig) recordDeadLetter(err error, attempts int, duration time.Duration) bool {
	if c.DeadLetterSink == nil || err == nil {
		return false
	}

	errorCode := ""
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		errorCode = pgErr.Code
	}

	entry := &models.DeadLetterEntry{
		ID:              uuid.NewString(),
		OperationName:   c.OperationName,
		ErrorMessage:    err.Error(),
		ErrorCode:       errorCode,
		Attempts:        attempts,
		TotalDurationMs: duration.Milliseconds(),
		Context:         c.Context,
		Status:          models.DeadLetterPending,
	}
	if dlqErr := c.DeadLetterSink.Record(entry); dlqErr != nil {
		log.Printf("[DLQ] ❌ Failed to record dead letter for %s: %v", c.OperationName, dlqErr)
		return false
	}
	log.Printf("[DLQ] Operation %q recorded to dead letter queue (%d attempts, %dms)",
		c.OperationName, attempts, duration.Milliseconds())
	return true
}
