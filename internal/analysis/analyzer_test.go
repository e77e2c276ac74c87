package analysis_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/robalyx/guildpulse/internal/analysis"
	"github.com/robalyx/guildpulse/internal/database/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAnalyzerPreservesOrderAndIsolatesFailures(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore(fixedClock(now))
	scorer := newFakeScorer()
	scorer.delay = 5 * time.Millisecond

	var messages []*types.Message
	for i := range 20 {
		content := fmt.Sprintf("message %d", i)
		msg := &types.Message{ID: uint64(i + 1), GuildID: 1, AuthorID: uint64(100 + i), Content: content, SentAt: now}
		messages = append(messages, msg)
		store.addMessage(msg)

		// Every third message produces garbage.
		if i%3 != 0 {
			scorer.set(content, okScore(0.1, 0.1, 0.6, 0.6))
		}
	}

	analyzer := analysis.NewAnalyzer(scorer, store, 5, nil, zap.NewNop())
	results := analyzer.Analyze(t.Context(), messages)

	require.Len(t, results, len(messages))
	for i, result := range results {
		assert.Equal(t, messages[i].ID, result.MessageID)
		assert.Equal(t, i%3 != 0, result.OK(), "message %d", i)
		if !result.OK() {
			require.ErrorIs(t, result.Err, analysis.ErrScoringFailed)
		}
	}

	assert.LessOrEqual(t, scorer.maxFlight.Load(), int32(5))
	assert.Equal(t, 13, store.writeCount())
	assert.Equal(t, 20, scorer.totalCalls())
}

func TestAnalyzerWriteFailureMarksResult(t *testing.T) {
	t.Parallel()

	store := newFakeStore(time.Now)
	store.writeErr[2] = errors.New("connection refused")

	scorer := newFakeScorer()
	scorer.set("a", okScore(0.2, 0, 0.5, 0.5))
	scorer.set("b", okScore(0.4, 0, 0.5, 0.5))

	messages := []*types.Message{
		{ID: 1, GuildID: 1, Content: "a"},
		{ID: 2, GuildID: 1, Content: "b"},
	}
	for _, msg := range messages {
		store.addMessage(msg)
	}

	results := analysis.NewAnalyzer(scorer, store, 2, nil, zap.NewNop()).Analyze(t.Context(), messages)

	require.Len(t, results, 2)
	assert.True(t, results[0].OK())
	assert.False(t, results[1].OK())
	require.ErrorIs(t, results[1].Err, analysis.ErrWriteFailed)
	assert.Nil(t, messages[1].AnalyzedAt)
	assert.NotNil(t, messages[0].AnalyzedAt)
}
