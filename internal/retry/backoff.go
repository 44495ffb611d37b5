package retry

import (
	"context"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Config controls exponential backoff behavior
type Config struct {
	MaxRetries int           `json:"max_retries"`
	BaseDelay  time.Duration `json:"base_delay"`
	MaxDelay   time.Duration `json:"max_delay"`
	Multiplier float64       `json:"multiplier"`
	Jitter     bool          `json:"jitter"`
}

// Result describes how a retried operation went
type Result struct {
	Attempts      int           `json:"attempts"`
	TotalDuration time.Duration `json:"total_duration"`
	LastError     error         `json:"-"`
	Success       bool          `json:"success"`
}

// DefaultConfig returns sensible general-purpose retry settings
func DefaultConfig() Config {
	return Config{
		MaxRetries: 3,
		BaseDelay:  1 * time.Second,
		MaxDelay:   30 * time.Second,
		Multiplier: 2.0,
		Jitter:     true,
	}
}

// GatewayConfig returns retry settings tuned for language-model requests,
// which are slow and rate-limited more often than regular HTTP calls
func GatewayConfig() Config {
	return Config{
		MaxRetries: 2,
		BaseDelay:  2 * time.Second,
		MaxDelay:   20 * time.Second,
		Multiplier: 2.5,
		Jitter:     true,
	}
}

// Do executes op with exponential backoff. Non-retryable errors fail
// immediately; context cancellation stops the loop between attempts.
func Do(ctx context.Context, cfg Config, op func() error) Result {
	start := time.Now()
	var res Result

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		res.Attempts = attempt + 1

		err := op()
		if err == nil {
			res.Success = true
			res.TotalDuration = time.Since(start)
			return res
		}
		res.LastError = err

		if !IsRetryable(err) || attempt >= cfg.MaxRetries {
			res.TotalDuration = time.Since(start)
			return res
		}

		delay := backoffDelay(cfg, attempt)
		log.Debug().
			Int("attempt", attempt+1).
			Int("max_attempts", cfg.MaxRetries+1).
			Dur("delay", delay).
			Err(err).
			Msg("Retrying after failure")

		select {
		case <-ctx.Done():
			res.LastError = ctx.Err()
			res.TotalDuration = time.Since(start)
			return res
		case <-time.After(delay):
		}
	}

	res.TotalDuration = time.Since(start)
	return res
}

// backoffDelay computes baseDelay * multiplier^attempt, capped at MaxDelay,
// with up to 10% jitter when enabled
func backoffDelay(cfg Config, attempt int) time.Duration {
	delay := float64(cfg.BaseDelay) * math.Pow(cfg.Multiplier, float64(attempt))
	if delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}

	if cfg.Jitter {
		jitterRange := delay * 0.1
		delay += (rand.Float64() - 0.5) * 2 * jitterRange
		if delay < 0 {
			delay = float64(cfg.BaseDelay)
		}
	}

	return time.Duration(delay)
}

// retryableFragments are error-text markers for transient transport failures
var retryableFragments = []string{
	"connection refused",
	"connection reset",
	"timeout",
	"temporary failure",
	"service unavailable",
	"too many requests",
	"rate limit",
	"429",
	"502",
	"503",
	"504",
	"no such host",
	"network unreachable",
	"broken pipe",
	"context deadline exceeded",
}

// IsRetryable reports whether an error looks like a transient failure worth
// another attempt
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, fragment := range retryableFragments {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}
