package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"futeba-gamification-system/models"

	"github.com/jackc/pgx/v5/pgconn"
)

type fakeDeadLetterSink struct {
	entries []*models.DeadLetterEntry
	err     error
}

func (s *fakeDeadLetterSink) Record(entry *models.DeadLetterEntry) error {
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, entry)
	return nil
}

func fastRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		OperationName:  "test_op",
	}
}

func TestRetryWithBackoff_SucceedsFirstAttempt(t *testing.T) {
	result := RetryWithBackoff(context.Background(), func() (int, error) {
		return 42, nil
	}, fastRetryConfig())

	if !result.Success {
		t.Fatalf("Success = false, want true (err: %v)", result.Err)
	}
	if result.Result != 42 {
		t.Fatalf("Result = %d, want 42", result.Result)
	}
	if result.Attempts != 1 {
		t.Fatalf("Attempts = %d, want 1", result.Attempts)
	}
}

func TestRetryWithBackoff_RecoversFromTransientError(t *testing.T) {
	calls := 0
	result := RetryWithBackoff(context.Background(), func() (string, error) {
		calls++
		if calls < 2 {
			return "", errors.New("ECONNRESET while writing")
		}
		return "ok", nil
	}, fastRetryConfig())

	if !result.Success {
		t.Fatalf("Success = false, want true (err: %v)", result.Err)
	}
	if result.Attempts != 2 {
		t.Fatalf("Attempts = %d, want 2", result.Attempts)
	}
	if result.Result != "ok" {
		t.Fatalf("Result = %q, want %q", result.Result, "ok")
	}
}

func TestRetryWithBackoff_ExhaustsTransientRetries(t *testing.T) {
	calls := 0
	result := RetryWithBackoff(context.Background(), func() (int, error) {
		calls++
		return 0, errors.New("service unavailable")
	}, fastRetryConfig())

	if result.Success {
		t.Fatal("Success = true, want false")
	}
	if calls != 3 {
		t.Fatalf("operation called %d times, want 3", calls)
	}
	if result.Attempts != 3 {
		t.Fatalf("Attempts = %d, want 3", result.Attempts)
	}
}

func TestRetryWithBackoff_PermanentErrorFailsFast(t *testing.T) {
	calls := 0
	result := RetryWithBackoff(context.Background(), func() (int, error) {
		calls++
		return 0, errors.New("validation failed: negative goals")
	}, fastRetryConfig())

	if result.Success {
		t.Fatal("Success = true, want false")
	}
	if calls != 1 {
		t.Fatalf("operation called %d times, want 1", calls)
	}
	if result.Attempts != 1 {
		t.Fatalf("Attempts = %d, want 1", result.Attempts)
	}
}

func TestRetryWithBackoff_RecordsDeadLetter(t *testing.T) {
	sink := &fakeDeadLetterSink{}
	cfg := fastRetryConfig()
	cfg.DeadLetterSink = sink
	cfg.Context = map[string]any{"game_id": "g1"}

	result := RetryWithBackoff(context.Background(), func() (int, error) {
		return 0, errors.New("connection aborted")
	}, cfg)

	if !result.SentToDeadLetterQueue {
		t.Fatal("SentToDeadLetterQueue = false, want true")
	}
	if len(sink.entries) != 1 {
		t.Fatalf("dead letter entries = %d, want 1", len(sink.entries))
	}
	entry := sink.entries[0]
	if entry.OperationName != "test_op" {
		t.Fatalf("OperationName = %q, want %q", entry.OperationName, "test_op")
	}
	if entry.Status != models.DeadLetterPending {
		t.Fatalf("Status = %q, want %q", entry.Status, models.DeadLetterPending)
	}
	if entry.Attempts != 3 {
		t.Fatalf("Attempts = %d, want 3", entry.Attempts)
	}
	if entry.Context["game_id"] != "g1" {
		t.Fatalf("Context[game_id] = %v, want g1", entry.Context["game_id"])
	}
}

func TestRetryWithBackoff_DeadLetterFailureIsSwallowed(t *testing.T) {
	sink := &fakeDeadLetterSink{err: errors.New("dlq table missing")}
	cfg := fastRetryConfig()
	cfg.DeadLetterSink = sink

	result := RetryWithBackoff(context.Background(), func() (int, error) {
		return 0, errors.New("connection aborted")
	}, cfg)

	if result.SentToDeadLetterQueue {
		t.Fatal("SentToDeadLetterQueue = true, want false when the sink errors")
	}
	if result.Err == nil || result.Err.Error() != "connection aborted" {
		t.Fatalf("Err = %v, want the original operation error", result.Err)
	}
}

func TestRetryWithBackoff_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	cfg := fastRetryConfig()
	// Long backoff on both knobs so the retry parks in the backoff select
	// until cancel fires.
	cfg.InitialBackoff = time.Minute
	cfg.MaxBackoff = time.Minute

	calls := 0
	done := make(chan RetryResult[int], 1)
	go func() {
		done <- RetryWithBackoff(ctx, func() (int, error) {
			calls++
			return 0, errors.New("unavailable")
		}, cfg)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case result := <-done:
		if result.Success {
			t.Fatal("Success = true, want false")
		}
		if !errors.Is(result.Err, context.Canceled) {
			t.Fatalf("Err = %v, want context.Canceled", result.Err)
		}
		if calls != 1 {
			t.Fatalf("operation called %d times, want 1", calls)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("retry did not stop after cancellation")
	}
}

func TestDefaultIsTransientError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"serialization failure", &pgconn.PgError{Code: "40001"}, true},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, true},
		{"lock not available", &pgconn.PgError{Code: "55P03"}, true},
		{"unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"context deadline", context.DeadlineExceeded, true},
		{"wrapped context deadline", fmt.Errorf("query users: %w", context.DeadlineExceeded), true},
		{"timeout message", errors.New("request ETIMEDOUT"), true},
		{"socket hang up", errors.New("socket hang up"), true},
		{"validation", errors.New("invalid user id"), false},
	}
	for _, tt := range tests {
		if got := DefaultIsTransientError(tt.err); got != tt.want {
			t.Fatalf("%s: DefaultIsTransientError = %v, want %v", tt.name, got, tt.want)
		}
	}
}
