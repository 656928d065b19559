package retry

import (
	"context"
	"time"

	"github.com/neurobridge/support-backend/internal/pkg/httpx"
)

// Policy is a single exponential-backoff policy shared by every upstream I/O
// adapter (embedding, LLM, vector store). Transient errors are retried at
// the call site only; boundary validation errors are never retried.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func Default() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: 250 * time.Millisecond, MaxDelay: 5 * time.Second}
}

// Do runs fn up to MaxAttempts times, retrying only when shouldRetry(err) is
// true. It sleeps a jittered exponential backoff between attempts and
// respects ctx cancellation.
func Do(ctx context.Context, p Policy, shouldRetry func(error) bool, fn func(ctx context.Context) error) error {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	if shouldRetry == nil {
		shouldRetry = httpx.IsRetryableError
	}

	var lastErr error
	delay := p.BaseDelay
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == p.MaxAttempts || !shouldRetry(lastErr) {
			return lastErr
		}
		sleep := httpx.JitterSleep(delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleep):
		}
		delay *= 2
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
	return lastErr
}
