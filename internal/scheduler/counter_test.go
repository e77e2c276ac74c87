package scheduler_test

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/rueidis"
	"github.com/robalyx/guildpulse/internal/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCounter(t *testing.T) {
	t.Parallel()

	counter := scheduler.NewMemoryCounter()

	for i := int64(1); i <= 3; i++ {
		count, err := counter.Increment(t.Context(), 1)
		require.NoError(t, err)
		assert.Equal(t, i, count)
	}

	count, err := counter.Increment(t.Context(), 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	require.NoError(t, counter.Reset(t.Context(), 1))
	require.NoError(t, counter.Reset(t.Context(), 99))

	count, err = counter.Increment(t.Context(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestRedisCounter(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{mr.Addr()},
		DisableCache: true,
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	counter := scheduler.NewRedisCounter(client, time.Hour)

	for i := int64(1); i <= 3; i++ {
		count, err := counter.Increment(t.Context(), 42)
		require.NoError(t, err)
		assert.Equal(t, i, count)
	}

	assert.Equal(t, time.Hour, mr.TTL("guildpulse:trigger:42"))

	require.NoError(t, counter.Reset(t.Context(), 42))
	assert.False(t, mr.Exists("guildpulse:trigger:42"))

	count, err := counter.Increment(t.Context(), 42)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
