package analysis_test

import (
	"errors"
	"testing"
	"time"

	"github.com/robalyx/guildpulse/internal/ai"
	"github.com/robalyx/guildpulse/internal/analysis"
	"github.com/robalyx/guildpulse/internal/database/types"
	"github.com/robalyx/guildpulse/internal/database/types/enum"
	"github.com/robalyx/guildpulse/internal/setup/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func success(author uint64, sentiment, toxicity, engagement, quality float64) *analysis.AnalysisResult {
	return &analysis.AnalysisResult{
		AuthorID: author,
		Scores:   okScore(sentiment, toxicity, engagement, quality).Result,
	}
}

func failure(author uint64) *analysis.AnalysisResult {
	return &analysis.AnalysisResult{
		AuthorID: author,
		Scores:   ai.DefaultScoreResult(),
		Failure:  ai.FailureTransport,
		Err:      analysis.ErrScoringFailed,
	}
}

func TestComputeMetricsExcludesFailures(t *testing.T) {
	t.Parallel()

	m := analysis.ComputeMetrics([]*analysis.AnalysisResult{
		success(1, 0.8, 0.0, 0.9, 0.5),
		failure(2),
		success(3, -0.2, 0.3, 0.4, 0.5),
	})

	assert.InDelta(t, 0.3, m.Sentiment, 1e-9)
	assert.InDelta(t, 0.15, m.Toxicity, 1e-9)
	assert.InDelta(t, 0.65, m.Engagement, 1e-9)
	assert.Equal(t, 2, m.Analyzed)
	assert.Equal(t, 1, m.Failed)
}

func TestComputeMetricsAllFailures(t *testing.T) {
	t.Parallel()

	for _, results := range [][]*analysis.AnalysisResult{
		nil,
		{failure(1), failure(2), failure(3)},
	} {
		m := analysis.ComputeMetrics(results)

		assert.InDelta(t, 0.0, m.Sentiment, 1e-9)
		assert.InDelta(t, 0.0, m.Toxicity, 1e-9)
		assert.InDelta(t, 0.5, m.Engagement, 1e-9)
		assert.InDelta(t, 0.5, m.Quality, 1e-9)
		assert.Equal(t, 0, m.Analyzed)
		assert.Equal(t, len(results), m.Failed)
	}
}

func TestHealthScore(t *testing.T) {
	t.Parallel()

	weights := config.Defaults().Worker.Analysis.Weights

	tests := []struct {
		name    string
		metrics analysis.Metrics
		weights config.HealthWeights
		want    float64
	}{
		{
			name:    "weighted means",
			metrics: analysis.Metrics{Engagement: 0.65, Quality: 0.7, Toxicity: 0.15},
			weights: weights,
			// (0.4*0.65 + 0.4*0.7 - 0.2*0.15 + 0.2) / 1.0
			want: 0.71,
		},
		{
			name:    "perfect community",
			metrics: analysis.Metrics{Engagement: 1, Quality: 1, Toxicity: 0},
			weights: weights,
			want:    1,
		},
		{
			name:    "worst community",
			metrics: analysis.Metrics{Engagement: 0, Quality: 0, Toxicity: 1},
			weights: weights,
			want:    0,
		},
		{
			name:    "unnormalized weights",
			metrics: analysis.Metrics{Engagement: 0.5, Quality: 0.5, Toxicity: 0.5},
			weights: config.HealthWeights{Engagement: 2, Quality: 2, Toxicity: 1},
			want:    0.5,
		},
		{
			name:    "zero weights",
			metrics: analysis.Metrics{Engagement: 1, Quality: 1},
			weights: config.HealthWeights{},
			want:    0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, analysis.HealthScore(tt.metrics, tt.weights), 1e-9)
		})
	}
}

func TestClassifyActivity(t *testing.T) {
	t.Parallel()

	cutoffs := config.Defaults().Worker.Analysis.Activity

	tests := []struct {
		count int
		want  enum.ActivityLevel
	}{
		{0, enum.ActivityLevelLow},
		{9, enum.ActivityLevelLow},
		{10, enum.ActivityLevelMedium},
		{24, enum.ActivityLevelMedium},
		{25, enum.ActivityLevelHigh},
		{44, enum.ActivityLevelHigh},
		{45, enum.ActivityLevelVeryHigh},
		{500, enum.ActivityLevelVeryHigh},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, analysis.ClassifyActivity(tt.count, cutoffs), "count %d", tt.count)
	}
}

func TestGuildScoreSaturates(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.0, analysis.GuildScore(0, 100), 1e-9)
	assert.InDelta(t, 0.42, analysis.GuildScore(42, 100), 1e-9)
	assert.InDelta(t, 1.0, analysis.GuildScore(100, 100), 1e-9)
	assert.InDelta(t, 1.0, analysis.GuildScore(250, 100), 1e-9)
}

func TestAggregatorSummaryFallback(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	store := newFakeStore(fixedClock(now))
	summarizer := &fakeSummarizer{err: errors.New("quota exceeded")}
	aggregator := analysis.NewAggregator(store, summarizer, config.Defaults().Worker.Analysis, nil, zap.NewNop())

	health := aggregator.Aggregate(t.Context(), &types.Guild{ID: 1, Name: "Gophers"},
		[]*analysis.AnalysisResult{success(1, 0.5, 0.1, 0.6, 0.7)}, 3, now)

	assert.Equal(t, []string{"Active community"}, health.Indicators)
	assert.Empty(t, health.Concerns)
	assert.Equal(t, []string{"Continue engaging with community"}, health.Recommendations)
	assert.InDelta(t, 3.0, health.OverallRating, 1e-9)
	assert.InDelta(t, 0.1, health.ToxicityLevel, 1e-9)
	assert.Equal(t, enum.ActivityLevelLow, health.ActivityLevel)
	assert.Equal(t, int32(1), summarizer.calls.Load())
}

func TestAggregatorSkipsSummaryWithoutSuccesses(t *testing.T) {
	t.Parallel()

	now := time.Now()
	summarizer := &fakeSummarizer{}
	aggregator := analysis.NewAggregator(newFakeStore(fixedClock(now)), summarizer,
		config.Defaults().Worker.Analysis, nil, zap.NewNop())

	health := aggregator.Aggregate(t.Context(), &types.Guild{ID: 1},
		[]*analysis.AnalysisResult{failure(1)}, 1, now)

	assert.Equal(t, int32(0), summarizer.calls.Load())
	assert.Equal(t, ai.DefaultCommunitySummary().Recommendations, health.Recommendations)
	assert.InDelta(t, 0.5, health.EngagementScore, 1e-9)
}

func TestAggregatorReusesStoredSummary(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	summarizer := &fakeSummarizer{summary: ai.CommunitySummary{Recommendations: []string{"fresh"}}}
	aggregator := analysis.NewAggregator(newFakeStore(fixedClock(now)), summarizer,
		config.Defaults().Worker.Analysis, nil, zap.NewNop())

	guild := &types.Guild{
		ID:                    1,
		OverallRating:         4,
		HealthIndicators:      []string{"Helpful members"},
		HealthRecommendations: []string{"Host weekly events"},
		LastAnalyzed:          now.Add(-10 * time.Minute),
	}

	reused := success(1, 0.5, 0, 0.5, 0.5)
	reused.Reused = true

	health := aggregator.Aggregate(t.Context(), guild, []*analysis.AnalysisResult{reused}, 1, now)
	assert.Equal(t, int32(0), summarizer.calls.Load())
	assert.Equal(t, []string{"Helpful members"}, health.Indicators)
	assert.Equal(t, []string{}, health.Concerns)
	assert.Equal(t, []string{"Host weekly events"}, health.Recommendations)
	assert.InDelta(t, 4.0, health.OverallRating, 1e-9)

	// A summary from an earlier cycle is stale.
	guild.LastAnalyzed = now.Add(-time.Hour)
	health = aggregator.Aggregate(t.Context(), guild, []*analysis.AnalysisResult{reused}, 1, now)
	assert.Equal(t, int32(1), summarizer.calls.Load())
	assert.Equal(t, []string{"fresh"}, health.Recommendations)

	// Any newly scored message asks the model again.
	guild.LastAnalyzed = now
	aggregator.Aggregate(t.Context(), guild,
		[]*analysis.AnalysisResult{reused, success(2, 0.1, 0, 0.5, 0.5)}, 2, now)
	assert.Equal(t, int32(2), summarizer.calls.Load())
}

func TestAggregatorPersistRefreshesBatchAuthors(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := newFakeStore(fixedClock(base))

	// Counters as left by ingestion: one per stored message.
	store.counters[memberKey{1, 10}] = 40
	store.counters[memberKey{1, 11}] = 1
	store.counters[memberKey{1, 20}] = 150
	store.counters[memberKey{1, 30}] = 7
	store.scores[memberKey{1, 30}] = 0.07

	aggregator := analysis.NewAggregator(store, nil, config.Defaults().Worker.Analysis, nil, zap.NewNop())

	older := success(10, 0, 0, 0.5, 0.5)
	older.SentAt = base.Add(-time.Hour)
	newer := success(10, 0, 0, 0.5, 0.5)
	newer.SentAt = base.Add(-time.Minute)
	failed := failure(11)
	failed.SentAt = base.Add(-2 * time.Minute)
	reused := success(20, 0, 0, 0.5, 0.5)
	reused.Reused = true
	reused.SentAt = base.Add(-3 * time.Minute)

	results := []*analysis.AnalysisResult{older, newer, failed, reused}
	require.NoError(t, aggregator.Persist(t.Context(), &types.GuildHealth{GuildID: 1}, results))

	tests := []struct {
		name     string
		author   uint64
		count    int64
		score    float64
		lastSeen time.Time
	}{
		{name: "one author with many messages", author: 10, count: 40, score: 0.4, lastSeen: newer.SentAt},
		{name: "author of a failed message", author: 11, count: 1, score: 0.01, lastSeen: failed.SentAt},
		{name: "saturated author with reused scores", author: 20, count: 150, score: 1.0, lastSeen: reused.SentAt},
	}

	for _, tt := range tests {
		key := memberKey{1, tt.author}
		assert.Equal(t, tt.count, store.counters[key], tt.name)
		assert.InDelta(t, tt.score, store.scores[key], 1e-9, tt.name)
		assert.Equal(t, tt.lastSeen, store.lastSeen[key], tt.name)
	}

	// Members absent from the batch keep their stored values.
	assert.Equal(t, int64(7), store.counters[memberKey{1, 30}])
	assert.InDelta(t, 0.07, store.scores[memberKey{1, 30}], 1e-9)
	require.Len(t, store.health, 1)
}
