package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

type RetryConfig struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// RetryingBackend retries ErrBackendUnavailable failures with exponential
// backoff. Other errors are returned on the first attempt.
type RetryingBackend struct {
	next   Backend
	cfg    RetryConfig
	logger *zap.Logger
}

func WithRetry(next Backend, cfg RetryConfig, logger *zap.Logger) *RetryingBackend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetryingBackend{next: next, cfg: cfg, logger: logger}
}

func (r *RetryingBackend) Dialect() string {
	return r.next.Dialect()
}

// Unwrap returns the wrapped backend.
func (r *RetryingBackend) Unwrap() Backend {
	return r.next
}

func (r *RetryingBackend) Close() error {
	return r.next.Close()
}

func (r *RetryingBackend) ExecuteStatement(ctx context.Context, query string, params []interface{}, mode Mode) (*Result, error) {
	var result *Result
	err := r.do(ctx, "statement", func() error {
		var err error
		result, err = r.next.ExecuteStatement(ctx, query, params, mode)
		return err
	})
	return result, err
}

func (r *RetryingBackend) ExecuteBatch(ctx context.Context, statements []Statement) ([]*Result, error) {
	var results []*Result
	err := r.do(ctx, "batch", func() error {
		var err error
		results, err = r.next.ExecuteBatch(ctx, statements)
		return err
	})
	return results, err
}

func (r *RetryingBackend) RunMigrations(ctx context.Context, statements []string) error {
	return r.do(ctx, "migrate", func() error {
		return r.next.RunMigrations(ctx, statements)
	})
}

func (r *RetryingBackend) policy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if r.cfg.InitialDelay > 0 {
		b.InitialInterval = r.cfg.InitialDelay
	}
	if r.cfg.MaxDelay > 0 {
		b.MaxInterval = r.cfg.MaxDelay
	}
	b.MaxElapsedTime = 0

	retries := r.cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}

func (r *RetryingBackend) do(ctx context.Context, op string, fn func() error) error {
	attempts := 0
	err := backoff.RetryNotify(func() error {
		attempts++
		err := fn()
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrBackendUnavailable) {
			return backoff.Permanent(err)
		}
		return err
	}, r.policy(ctx), func(err error, wait time.Duration) {
		r.logger.Warn("backend call failed, retrying",
			zap.String("op", op),
			zap.Int("attempt", attempts),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	})

	if err != nil && errors.Is(err, ErrBackendUnavailable) && attempts > 1 {
		return fmt.Errorf("%s failed after %d attempts: %w", op, attempts, err)
	}
	return err
}
