package connector

import (
	"context"
	"time"

	"github.com/Konsultn-Engineering/quest/database"
)

const defaultBaseDelay = time.Second

// retryConnect calls connectFn up to opts.MaxRetries+1 times, doubling the
// delay between attempts up to opts.MaxDelay.
func retryConnect(ctx context.Context, opts RetryConfig, onRetry func(attempt int, delay time.Duration, err error), connectFn func(context.Context) (database.Conn, error)) (database.Conn, error) {
	delay := opts.BaseDelay
	if delay <= 0 {
		delay = defaultBaseDelay
	}

	attempt := 0
	for {
		attempt++
		conn, err := connectFn(ctx)
		if err == nil {
			return conn, nil
		}
		if attempt > opts.MaxRetries {
			return nil, err
		}
		if onRetry != nil {
			onRetry(attempt, delay, err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
			delay *= 2
			if opts.MaxDelay > 0 && delay > opts.MaxDelay {
				delay = opts.MaxDelay
			}
		}
	}
}
