package dbretry_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/robalyx/guildpulse/internal/database/dbretry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errConstraint = errors.New("duplicate key value violates unique constraint")

func TestIsRetryableError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "nil", err: nil, expected: false},
		{name: "deadline", err: fmt.Errorf("query: %w", context.DeadlineExceeded), expected: true},
		{name: "canceled", err: context.Canceled, expected: false},
		{name: "connection reset", err: errors.New("read tcp: connection reset by peer"), expected: true},
		{name: "unexpected eof", err: errors.New("unexpected EOF"), expected: true},
		{name: "constraint", err: errConstraint, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, dbretry.IsRetryableError(tt.err))
		})
	}
}

func TestOperationStopsOnPermanentError(t *testing.T) {
	t.Parallel()

	calls := 0
	_, err := dbretry.Operation(t.Context(), func(context.Context) (int, error) {
		calls++
		return 0, errConstraint
	})

	require.ErrorIs(t, err, errConstraint)
	assert.Equal(t, 1, calls)
}

func TestOperationRetriesTransientError(t *testing.T) {
	t.Parallel()

	calls := 0
	result, err := dbretry.Operation(t.Context(), func(context.Context) (int, error) {
		calls++
		if calls < 2 {
			return 0, errors.New("write: broken pipe")
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, 2, calls)
}
