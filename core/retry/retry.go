package retry

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/siherrmann/tmsrag/model"
)

// Policy bounds the retries of an external call: up to MaxAttempts attempts with
// exponential waits starting at MinWait, doubling, capped at MaxWait. There is no
// wait before the first attempt and none after the last.
type Policy struct {
	MaxAttempts int
	MinWait     time.Duration
	MaxWait     time.Duration
	Classify    Classifier
	Logger      *slog.Logger
	// NewTimer replaces the wall clock timer, nil uses the real one.
	NewTimer func() backoff.Timer
}

// NewPolicy creates a policy from the retry configuration.
func NewPolicy(config model.RetryConfig, logger *slog.Logger) *Policy {
	if logger == nil {
		logger = slog.Default()
	}
	return &Policy{
		MaxAttempts: config.MaxAttempts,
		MinWait:     config.MinWait,
		MaxWait:     config.MaxWait,
		Classify:    Classify,
		Logger:      logger,
	}
}

// DefaultPolicy is 3 attempts waiting 1s then 2s.
func DefaultPolicy() *Policy {
	return NewPolicy(model.DefaultConfig().Retry, nil)
}

func (p *Policy) backOff(ctx context.Context) backoff.BackOff {
	exponential := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(p.MinWait),
		backoff.WithMaxInterval(p.MaxWait),
		backoff.WithMultiplier(2),
		backoff.WithRandomizationFactor(0),
		backoff.WithMaxElapsedTime(0),
	)

	retries := 0
	if p.MaxAttempts > 1 {
		retries = p.MaxAttempts - 1
	}

	return backoff.WithContext(backoff.WithMaxRetries(exponential, uint64(retries)), ctx)
}

// Do runs fn under the policy. A retriable failure is retried until the attempts are
// used up, then the last error is returned unchanged. A fatal failure is returned
// after the first attempt. Cancelling ctx aborts a pending wait.
func Do[T any](ctx context.Context, p *Policy, operation string, fn func() (T, error)) (T, error) {
	if p == nil {
		p = DefaultPolicy()
	}
	classify := p.Classify
	if classify == nil {
		classify = Classify
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	attempt := 0
	var lastKind Kind
	wrapped := func() (T, error) {
		attempt++
		result, err := fn()
		if err == nil {
			return result, nil
		}

		lastKind = classify(err)
		if !lastKind.Retriable() {
			return result, backoff.Permanent(err)
		}
		return result, err
	}

	notify := func(err error, wait time.Duration) {
		logger.Warn(
			"Retrying external call",
			slog.String("operation", operation),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", p.MaxAttempts),
			slog.String("kind", lastKind.String()),
			slog.Duration("wait", wait),
			slog.String("error", err.Error()),
		)
	}

	var timer backoff.Timer
	if p.NewTimer != nil {
		timer = p.NewTimer()
	}

	result, err := backoff.RetryNotifyWithTimerAndData(wrapped, p.backOff(ctx), notify, timer)
	if err != nil && lastKind.Retriable() {
		logger.Error(
			"Giving up external call",
			slog.String("operation", operation),
			slog.Int("attempts", attempt),
			slog.String("kind", lastKind.String()),
			slog.String("error", err.Error()),
		)
	}

	return result, err
}

// Wrap returns fn decorated with the policy. The wrapped function has the same
// success contract as fn.
func Wrap[T any](p *Policy, operation string, fn func(ctx context.Context) (T, error)) func(ctx context.Context) (T, error) {
	return func(ctx context.Context) (T, error) {
		return Do(ctx, p, operation, func() (T, error) {
			return fn(ctx)
		})
	}
}
