package dbretry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

var (
	maxElapsedTime  = 30 * time.Second
	initialInterval = 500 * time.Millisecond
	maxInterval     = 5 * time.Second
	maxRetries      = uint64(5)
)

// retryableClasses are SQLSTATE classes that describe transient server conditions:
// connection exceptions, transaction rollbacks, insufficient resources and operator intervention.
var retryableClasses = map[string]struct{}{
	"08": {},
	"40": {},
	"53": {},
	"57": {},
}

// retryableCodes are individual SQLSTATE codes outside those classes.
var retryableCodes = map[string]struct{}{
	"55006": {}, // object_in_use
	"55P03": {}, // lock_not_available
}

var networkErrors = []string{
	"connection reset by peer",
	"broken pipe",
	"connection refused",
	"no connection",
	"i/o timeout",
	"EOF",
}

// IsRetryableError reports whether err is worth retrying.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var pgerr pgdriver.Error
	if errors.As(err, &pgerr) {
		code := pgerr.Field('C')
		if _, ok := retryableCodes[code]; ok {
			return true
		}
		if len(code) >= 2 {
			_, ok := retryableClasses[code[:2]]
			return ok
		}
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	msg := err.Error()
	for _, s := range networkErrors {
		if strings.Contains(msg, s) {
			return true
		}
	}

	return false
}

// Operation runs operation with exponential backoff, retrying only retryable errors.
func Operation[T any](ctx context.Context, operation func(context.Context) (T, error)) (T, error) {
	var (
		result  T
		lastErr error
	)

	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithMaxElapsedTime(maxElapsedTime),
		backoff.WithInitialInterval(initialInterval),
		backoff.WithMaxInterval(maxInterval),
	), maxRetries)

	err := backoff.Retry(func() error {
		var err error

		result, err = operation(ctx)
		if err == nil {
			return nil
		}

		if !IsRetryableError(err) {
			return backoff.Permanent(err)
		}

		lastErr = err

		return err
	}, backoff.WithContext(b, ctx))
	if err != nil {
		if lastErr != nil && !errors.Is(err, lastErr) {
			return result, fmt.Errorf("database operation failed after retries: %w", lastErr)
		}
		return result, fmt.Errorf("database operation failed: %w", err)
	}

	return result, nil
}

// NoResult wraps a database operation that doesn't return a result.
func NoResult(ctx context.Context, operation func(context.Context) error) error {
	_, err := Operation(ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, operation(ctx)
	})
	return err
}

// Transaction runs fn inside a transaction, retrying the whole transaction on transient errors.
func Transaction(ctx context.Context, db bun.IDB, fn func(context.Context, bun.Tx) error) error {
	return NoResult(ctx, func(ctx context.Context) error {
		return db.RunInTx(ctx, nil, fn)
	})
}
