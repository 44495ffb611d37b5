package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func fastConfig() Config {
	return Config{
		MaxRetries: 3,
		BaseDelay:  time.Millisecond,
		MaxDelay:   5 * time.Millisecond,
		Multiplier: 2.0,
	}
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	res := Do(context.Background(), fastConfig(), func() error {
		calls++
		return nil
	})

	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if calls != 1 || res.Attempts != 1 {
		t.Errorf("expected exactly one attempt, got calls=%d attempts=%d", calls, res.Attempts)
	}
}

func TestDo_RetriesTransientThenSucceeds(t *testing.T) {
	calls := 0
	res := Do(context.Background(), fastConfig(), func() error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	})

	if !res.Success {
		t.Fatalf("expected eventual success: %v", res.LastError)
	}
	if res.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", res.Attempts)
	}
}

func TestDo_NonRetryableFailsImmediately(t *testing.T) {
	calls := 0
	res := Do(context.Background(), fastConfig(), func() error {
		calls++
		return errors.New("invalid api key")
	})

	if res.Success {
		t.Fatal("expected failure")
	}
	if calls != 1 {
		t.Errorf("non-retryable error should not be retried, got %d calls", calls)
	}
}

func TestDo_ExhaustsRetries(t *testing.T) {
	cfg := fastConfig()
	calls := 0
	res := Do(context.Background(), cfg, func() error {
		calls++
		return errors.New("service unavailable")
	})

	if res.Success {
		t.Fatal("expected failure after exhausting retries")
	}
	if calls != cfg.MaxRetries+1 {
		t.Errorf("expected %d attempts, got %d", cfg.MaxRetries+1, calls)
	}
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := fastConfig()
	cfg.BaseDelay = 500 * time.Millisecond
	cfg.MaxDelay = time.Second

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	res := Do(ctx, cfg, func() error {
		return errors.New("timeout")
	})

	if res.Success {
		t.Fatal("expected failure")
	}
	if !errors.Is(res.LastError, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", res.LastError)
	}
}

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("connection refused"), true},
		{errors.New("HTTP 429 Too Many Requests"), true},
		{fmt.Errorf("wrapping: %w", errors.New("rate limit exceeded")), true},
		{errors.New("Context Deadline Exceeded"), true},
		{errors.New("schema mismatch"), false},
		{errors.New("invalid api key"), false},
	}

	for _, tc := range cases {
		if got := IsRetryable(tc.err); got != tc.want {
			t.Errorf("IsRetryable(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestBackoffDelay_CappedAtMax(t *testing.T) {
	cfg := Config{BaseDelay: time.Second, MaxDelay: 3 * time.Second, Multiplier: 10}
	if d := backoffDelay(cfg, 5); d > cfg.MaxDelay {
		t.Errorf("delay %v exceeds cap %v", d, cfg.MaxDelay)
	}
}
