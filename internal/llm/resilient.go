package llm

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/urbanalert/internal/retry"
)

// ResilientClient wraps a Client with request pacing, per-call timeouts, and
// exponential-backoff retries for transient transport failures. Permanent
// failures still surface as errors; turning those into conversation-safe
// fallbacks is the gateway's job, not this layer's.
type ResilientClient struct {
	inner    Client
	cfg      retry.Config
	limiter  *rate.Limiter
	callTime time.Duration
}

// NewResilientClient builds the standard wrapper used by the AI gateway:
// gateway retry profile, 2 requests/second with a small burst.
func NewResilientClient(inner Client) *ResilientClient {
	return &ResilientClient{
		inner:    inner,
		cfg:      retry.GatewayConfig(),
		limiter:  rate.NewLimiter(rate.Every(500*time.Millisecond), 2),
		callTime: 45 * time.Second,
	}
}

func (c *ResilientClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	var out string
	err := c.do(ctx, func(callCtx context.Context) error {
		text, err := c.inner.GenerateText(callCtx, prompt)
		if err != nil {
			return err
		}
		out = text
		return nil
	})
	return out, err
}

func (c *ResilientClient) GenerateStructured(ctx context.Context, prompt string, target any) error {
	return c.do(ctx, func(callCtx context.Context) error {
		return c.inner.GenerateStructured(callCtx, prompt, target)
	})
}

func (c *ResilientClient) do(ctx context.Context, op func(context.Context) error) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	res := retry.Do(ctx, c.cfg, func() error {
		callCtx, cancel := context.WithTimeout(ctx, c.callTime)
		defer cancel()
		return op(callCtx)
	})
	if !res.Success {
		return res.LastError
	}
	return nil
}
