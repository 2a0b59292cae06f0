package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/istmo-digital/docintel/internal/common"
	"github.com/istmo-digital/docintel/internal/ocr"
)

// withRetry runs fn up to attempts times with exponential backoff starting
// at baseDelay. Question rejections and context cancellation are not
// retried; the last error is returned.
func withRetry(ctx context.Context, logger *slog.Logger, attempts int, baseDelay time.Duration, op string, fn func(context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	delay := baseDelay
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}
		if attempt == attempts {
			break
		}
		logger.Warn("operation failed, backing off",
			"op", op, "attempt", attempt, "delay", delay, "error", lastErr)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return lastErr
}

func retryable(err error) bool {
	switch {
	case errors.Is(err, ocr.ErrQuestionsRejected):
		return false
	case errors.Is(err, ocr.ErrBackendUnavailable):
		return false
	case errors.Is(err, common.ErrUnreadable):
		// The same bytes will not become readable on retry.
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}
