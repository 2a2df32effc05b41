package poolstate

import (
	"context"
	"errors"
	"time"

	"poolPilot/internal/dex"
)

// Option configures a Client.
type Option func(*Client)

// WithRetry retries transport failures of read-only calls up to maxRetries
// times, doubling the delay from baseDelay. Reverts are never retried.
func WithRetry(maxRetries int, baseDelay time.Duration) Option {
	return func(c *Client) {
		if maxRetries < 0 {
			maxRetries = 0
		}
		if baseDelay <= 0 {
			baseDelay = 100 * time.Millisecond
		}
		c.maxRetries = maxRetries
		c.baseDelay = baseDelay
	}
}

func (c *Client) withRetry(ctx context.Context, fn func(context.Context) error) error {
	delay := c.baseDelay
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil || !retryable(err) || attempt >= c.maxRetries {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
	}
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	_, isRevert := dex.AsRevert(err)
	return !isRevert
}
