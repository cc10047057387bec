package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryWithBackoffSucceedsEventually(t *testing.T) {
	attempts := 0
	err := RetryWithBackoff(context.Background(), RetryConfig{
		MaxRetries:   3,
		InitialDelay: time.Millisecond,
		MaxDelay:     10 * time.Millisecond,
		Multiplier:   2,
	}, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RetryWithBackoff() error = %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestRetryWithBackoffExhausted(t *testing.T) {
	err := RetryWithBackoff(context.Background(), RetryConfig{
		MaxRetries:   2,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2,
	}, func() error {
		return errors.New("permanent")
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
}

func TestRetryRespectsRateLimitRetryAfter(t *testing.T) {
	calls := 0
	start := time.Now()
	err := RetryWithBackoff(context.Background(), RetryConfig{
		MaxRetries:        1,
		InitialDelay:      time.Millisecond,
		MaxDelay:          time.Second,
		Multiplier:        2,
		RespectRetryAfter: true,
	}, func() error {
		calls++
		if calls == 1 {
			return &RateLimitError{RetryAfter: 20 * time.Millisecond, Message: "rate limited"}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("RetryWithBackoff() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("expected to wait for RetryAfter, elapsed = %v", elapsed)
	}
}

func TestRetryWithBackoffResult(t *testing.T) {
	attempts := 0
	got, err := RetryWithBackoffResult(context.Background(), RetryConfig{
		MaxRetries:   2,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2,
	}, func() ([]Sample, error) {
		attempts++
		if attempts < 2 {
			return nil, errors.New("transient")
		}
		return []Sample{{Callsign: "N1"}}, nil
	})
	if err != nil {
		t.Fatalf("RetryWithBackoffResult() error = %v", err)
	}
	if len(got) != 1 || got[0].Callsign != "N1" {
		t.Errorf("got = %+v, want one sample for N1", got)
	}
}

func TestIsRateLimitErrorUnwraps(t *testing.T) {
	wrapped := errors.New("poll failed")
	_, ok := IsRateLimitError(wrapped)
	if ok {
		t.Error("expected non-rate-limit error to not match")
	}

	rle := &RateLimitError{RetryAfter: time.Second, Message: "slow down"}
	if _, ok := IsRateLimitError(rle); !ok {
		t.Error("expected RateLimitError to match")
	}
}
