package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// upstreamAttempts is the number of tries for an upstream call (LINE sends,
// Gemini embed/generate) before the error is surfaced to the caller.
const upstreamAttempts = 3

// withRetry runs fn up to upstreamAttempts times with doubling backoff.
// Context cancellation stops the loop immediately.
func withRetry(ctx context.Context, logger *logrus.Logger, op string, fn func() error) error {
	var err error
	backoff := 200 * time.Millisecond
	for attempt := 1; attempt <= upstreamAttempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.WithFields(logrus.Fields{
			"op":      op,
			"attempt": attempt,
			"error":   err,
		}).Warn("upstream call failed")
		if attempt < upstreamAttempts {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff *= 2
		}
	}
	return fmt.Errorf("%s after %d attempts: %w", op, upstreamAttempts, err)
}
