package printer

import (
	"context"
	"log/slog"
	"math/rand"
	"time"
)

const (
	// maxAttempts bounds one generation request: the first try plus two retries.
	maxAttempts = 3

	backoffBase   = 500 * time.Millisecond
	backoffJitter = 1500 * time.Millisecond
)

// withRetry runs fn up to maxAttempts times with randomized backoff between
// attempts. The jitter spreads concurrent generations out against the shared
// rendering engine. After the final attempt the original error is returned
// unchanged.
func withRetry(ctx context.Context, logger *slog.Logger, documentID string, fn func(context.Context) error) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			logger.Info("retrying resume generation",
				slog.String("document_id", documentID),
				slog.Int("attempt", attempt),
				slog.Any("error", err),
			)
			select {
			case <-time.After(backoffBase + time.Duration(rand.Int63n(int64(backoffJitter)))):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err = fn(ctx); err == nil {
			return nil
		}
	}
	return err
}
