package database

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedBackend returns the queued errors in order, then succeeds.
type scriptedBackend struct {
	*MemoryBackend
	errs  []error
	calls int
}

func (s *scriptedBackend) next() error {
	s.calls++
	if len(s.errs) == 0 {
		return nil
	}
	err := s.errs[0]
	s.errs = s.errs[1:]
	return err
}

func (s *scriptedBackend) ExecuteStatement(ctx context.Context, query string, params []interface{}, mode Mode) (*Result, error) {
	if err := s.next(); err != nil {
		return nil, err
	}
	return s.MemoryBackend.ExecuteStatement(ctx, query, params, mode)
}

func (s *scriptedBackend) ExecuteBatch(ctx context.Context, statements []Statement) ([]*Result, error) {
	if err := s.next(); err != nil {
		return nil, err
	}
	return s.MemoryBackend.ExecuteBatch(ctx, statements)
}

func (s *scriptedBackend) RunMigrations(ctx context.Context, statements []string) error {
	if err := s.next(); err != nil {
		return err
	}
	return s.MemoryBackend.RunMigrations(ctx, statements)
}

var fastRetry = RetryConfig{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

func unavailable(i int) error {
	return fmt.Errorf("%w: attempt %d", ErrBackendUnavailable, i)
}

func TestRetryRecoversFromTransientFailures(t *testing.T) {
	inner := &scriptedBackend{MemoryBackend: NewMemoryBackend(), errs: []error{unavailable(1), unavailable(2)}}
	b := WithRetry(inner, fastRetry, nil)

	_, err := b.ExecuteStatement(context.Background(), "INSERT INTO shippers (id) VALUES (?)", []interface{}{1}, ModeRun)
	require.NoError(t, err)
	assert.Equal(t, 3, inner.calls)
	assert.Equal(t, 1, inner.Count("shippers"))
}

func TestRetryGivesUp(t *testing.T) {
	inner := &scriptedBackend{MemoryBackend: NewMemoryBackend()}
	for i := 0; i < 10; i++ {
		inner.errs = append(inner.errs, unavailable(i))
	}
	b := WithRetry(inner, fastRetry, nil)

	_, err := b.ExecuteBatch(context.Background(), []Statement{{SQL: "DELETE FROM shippers"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBackendUnavailable)
	assert.Contains(t, err.Error(), "after 4 attempts")
	assert.Equal(t, 4, inner.calls)
}

func TestRetrySkipsRejected(t *testing.T) {
	inner := &scriptedBackend{MemoryBackend: NewMemoryBackend(), errs: []error{fmt.Errorf("%w: syntax error", ErrBackendRejected)}}
	b := WithRetry(inner, fastRetry, nil)

	err := b.RunMigrations(context.Background(), []string{"CREATE TABLE"})
	assert.ErrorIs(t, err, ErrBackendRejected)
	assert.Equal(t, 1, inner.calls)
}

func TestRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	inner := &scriptedBackend{MemoryBackend: NewMemoryBackend(), errs: []error{unavailable(1), unavailable(2)}}
	b := WithRetry(inner, RetryConfig{MaxRetries: 5, InitialDelay: time.Second}, nil)

	_, err := b.ExecuteStatement(ctx, "DELETE FROM shippers", nil, ModeRun)
	require.Error(t, err)
	assert.Equal(t, 1, inner.calls)
}

func TestRetryZeroRetries(t *testing.T) {
	inner := &scriptedBackend{MemoryBackend: NewMemoryBackend(), errs: []error{unavailable(1)}}
	b := WithRetry(inner, RetryConfig{}, nil)

	_, err := b.ExecuteStatement(context.Background(), "DELETE FROM shippers", nil, ModeRun)
	assert.ErrorIs(t, err, ErrBackendUnavailable)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, DialectSQLite, b.Dialect())
}
