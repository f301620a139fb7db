package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lexdraft-backend/logger"
)

const (
	defaultMaxAttempts    = 3
	defaultInitialBackoff = 2 * time.Second
)

// Retrying repeats failed completions with exponential backoff
type Retrying struct {
	next           Completer
	maxAttempts    int
	initialBackoff time.Duration
	logger         logger.Logger
}

// NewRetrying wraps next. Non-positive values select the defaults.
func NewRetrying(next Completer, maxAttempts int, initialBackoff time.Duration, log logger.Logger) *Retrying {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	if initialBackoff <= 0 {
		initialBackoff = defaultInitialBackoff
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Retrying{next: next, maxAttempts: maxAttempts, initialBackoff: initialBackoff, logger: log}
}

func (r *Retrying) Complete(ctx context.Context, prompt string, params Params) (string, error) {
	backoff := r.initialBackoff
	var lastErr error
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("completion cancelled after %d attempts: %w", attempt, errors.Join(ctx.Err(), lastErr))
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		text, err := r.next.Complete(ctx, prompt, params)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !retryable(ctx, err) {
			return "", err
		}
		r.logger.Warn("Completion attempt failed", logger.Fields{
			"attempt": attempt + 1,
			"error":   err.Error(),
		})
	}
	return "", fmt.Errorf("failed to generate content after %d attempts: %w", r.maxAttempts, lastErr)
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var cerr *CompletionError
	if errors.As(err, &cerr) {
		return cerr.Retryable()
	}
	return true
}
