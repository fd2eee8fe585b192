package retry

import (
	"context"
	"time"

	"custody-engine/utility/appError"
	"custody-engine/utility/logger"
)

// Do runs fn up to maxAttempts times, backing off exponentially between
// attempts starting at baseDelay. Only retryable errors (RPC_UNAVAILABLE) are
// retried; any other failure is returned immediately.
func Do(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func() error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	var err error
	delay := baseDelay
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if !appError.IsRetryable(err) || attempt == maxAttempts {
			return err
		}
		logger.Warning("Retryable failure on attempt %d of %d : %s", attempt, maxAttempts, err)
		select {
		case <-ctx.Done():
			return err
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}
