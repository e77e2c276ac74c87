package analysis

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/robalyx/guildpulse/internal/ai"
	"github.com/robalyx/guildpulse/internal/database/types"
	"github.com/robalyx/guildpulse/internal/database/types/enum"
	"github.com/robalyx/guildpulse/internal/metrics"
	"github.com/robalyx/guildpulse/internal/setup/config"
	"github.com/robalyx/guildpulse/pkg/utils"
	"go.uber.org/zap"
)

// Neutral values used when a batch has no successful result.
const (
	NeutralSentiment  = 0.0
	NeutralToxicity   = 0.0
	NeutralEngagement = 0.5
	NeutralQuality    = 0.5
)

// maxTopCategories is the number of categories passed to the summary pass.
const maxTopCategories = 3

// Metrics holds the per-batch means over successful results.
type Metrics struct {
	Sentiment  float64
	Toxicity   float64
	Engagement float64
	Quality    float64
	Analyzed   int
	Failed     int
}

// ComputeMetrics averages sentiment, toxicity, engagement and quality over the
// successful results. Failures are excluded from every denominator.
func ComputeMetrics(results []*AnalysisResult) Metrics {
	var sentiment, toxicity, engagement, quality []float64
	failed := 0

	for _, r := range results {
		if !r.OK() {
			failed++
			continue
		}
		sentiment = append(sentiment, r.Scores.Sentiment)
		toxicity = append(toxicity, r.Scores.Toxicity)
		engagement = append(engagement, r.Scores.EngagementPotential)
		quality = append(quality, r.Scores.QualityScore)
	}

	m := Metrics{
		Sentiment:  NeutralSentiment,
		Toxicity:   NeutralToxicity,
		Engagement: NeutralEngagement,
		Quality:    NeutralQuality,
		Analyzed:   len(sentiment),
		Failed:     failed,
	}

	if v, ok := utils.Mean(sentiment); ok {
		m.Sentiment = v
	}
	if v, ok := utils.Mean(toxicity); ok {
		m.Toxicity = v
	}
	if v, ok := utils.Mean(engagement); ok {
		m.Engagement = v
	}
	if v, ok := utils.Mean(quality); ok {
		m.Quality = v
	}

	return m
}

// HealthScore combines the means as
// (wE*engagement + wQ*quality + wT*(1-toxicity)) / (wE+wQ+wT), clamped to [0,1].
func HealthScore(m Metrics, w config.HealthWeights) float64 {
	total := w.Engagement + w.Quality + w.Toxicity
	if total <= 0 {
		return 0.5
	}

	raw := w.Engagement*m.Engagement + w.Quality*m.Quality - w.Toxicity*m.Toxicity + w.Toxicity
	return utils.Clamp01(raw / total)
}

// ClassifyActivity maps an in-window message count onto the activity ladder.
func ClassifyActivity(count int, cutoffs config.ActivityCutoffs) enum.ActivityLevel {
	switch {
	case count >= cutoffs.VeryHigh:
		return enum.ActivityLevelVeryHigh
	case count >= cutoffs.High:
		return enum.ActivityLevelHigh
	case count >= cutoffs.Medium:
		return enum.ActivityLevelMedium
	default:
		return enum.ActivityLevelLow
	}
}

// GuildScore is a member's saturating contribution score.
func GuildScore(messageCount int64, saturation int) float64 {
	if saturation <= 0 {
		return 1
	}
	return utils.Clamp01(float64(messageCount) / float64(saturation))
}

// Aggregator folds analysis results into a guild health record and member counters.
type Aggregator struct {
	store      HealthStore
	summarizer CommunitySummarizer
	cfg        config.Analysis
	metrics    *metrics.Manager
	logger     *zap.Logger
}

// NewAggregator creates a health aggregator.
func NewAggregator(
	store HealthStore, summarizer CommunitySummarizer, cfg config.Analysis,
	metricsManager *metrics.Manager, logger *zap.Logger,
) *Aggregator {
	return &Aggregator{
		store:      store,
		summarizer: summarizer,
		cfg:        cfg,
		metrics:    metricsManager,
		logger:     logger.Named("analysis_aggregator"),
	}
}

// Insufficient returns the neutral record used when a guild has no messages to analyze.
func (a *Aggregator) Insufficient(guildID uint64, now time.Time) *types.GuildHealth {
	summary := ai.DefaultCommunitySummary()

	return &types.GuildHealth{
		GuildID:         guildID,
		HealthScore:     HealthScore(ComputeMetrics(nil), a.cfg.Weights),
		ActivityLevel:   enum.ActivityLevelLow,
		ToxicityLevel:   NeutralToxicity,
		EngagementScore: NeutralEngagement,
		SentimentScore:  NeutralSentiment,
		QualityScore:    NeutralQuality,
		OverallRating:   summary.OverallRating,
		Indicators:      summary.PositiveIndicators,
		Concerns:        summary.Concerns,
		Recommendations: summary.Recommendations,
		Insufficient:    true,
		LastAnalyzed:    now,
	}
}

// Aggregate computes the guild health of a batch. The health score is always
// recomputed from this batch alone.
func (a *Aggregator) Aggregate(
	ctx context.Context, guild *types.Guild, results []*AnalysisResult, inWindow int, now time.Time,
) *types.GuildHealth {
	m := ComputeMetrics(results)
	summary := a.summarize(ctx, guild, results, m, now)

	return &types.GuildHealth{
		GuildID:         guild.ID,
		HealthScore:     HealthScore(m, a.cfg.Weights),
		ActivityLevel:   ClassifyActivity(inWindow, a.cfg.Activity),
		ToxicityLevel:   m.Toxicity,
		EngagementScore: m.Engagement,
		SentimentScore:  m.Sentiment,
		QualityScore:    m.Quality,
		OverallRating:   summary.OverallRating,
		Indicators:      summary.PositiveIndicators,
		Concerns:        summary.Concerns,
		Recommendations: summary.Recommendations,
		SampleSize:      len(results),
		Analyzed:        m.Analyzed,
		Failed:          m.Failed,
		LastAnalyzed:    now,
	}
}

// summarize runs the community pass, substituting defaults on any failure.
// A batch made only of scores reused from this cycle keeps the summary
// stored by the run that scored them.
func (a *Aggregator) summarize(
	ctx context.Context, guild *types.Guild, results []*AnalysisResult, m Metrics, now time.Time,
) ai.CommunitySummary {
	if m.Analyzed == 0 || a.summarizer == nil {
		return ai.DefaultCommunitySummary()
	}

	if allReused(results) && hasStoredSummary(guild, now.Truncate(time.Hour)) {
		return ai.CommunitySummary{
			PositiveIndicators: guild.HealthIndicators,
			Concerns:           nonNil(guild.HealthConcerns),
			Recommendations:    guild.HealthRecommendations,
			OverallRating:      guild.OverallRating,
		}
	}

	input := &ai.CommunityInput{
		GuildName:     guild.Name,
		MemberCount:   guild.MemberCount,
		BatchSize:     len(results),
		MeanSentiment: m.Sentiment,
		MeanToxicity:  m.Toxicity,
		TopCategories: topCategories(results),
	}
	for _, r := range results {
		if r.OK() && len(input.Messages) < ai.MaxCommunityMessages {
			input.Messages = append(input.Messages, r.Content)
		}
	}

	summary, err := a.summarizer.Summarize(ctx, input)
	if err != nil {
		a.logger.Warn("Community summary failed, using defaults",
			zap.Uint64("guildID", guild.ID),
			zap.Error(err))
		return ai.DefaultCommunitySummary()
	}

	return summary
}

// Persist writes the health record, then refreshes the counter and guild score
// of every distinct author in the batch. Messages are counted as they are
// ingested, so the refresh adds nothing and only recomputes the score.
// Member write failures are logged and skipped.
func (a *Aggregator) Persist(ctx context.Context, health *types.GuildHealth, results []*AnalysisResult) error {
	if err := a.store.UpsertGuildHealth(ctx, health); err != nil {
		a.metrics.IncPersistenceError("upsert_guild_health")
		return fmt.Errorf("failed to store guild health: %w", err)
	}

	var errs []error
	for _, author := range batchAuthors(results) {
		if err := a.updateMember(ctx, health.GuildID, author.id, author.lastSentAt); err != nil {
			a.metrics.IncPersistenceError("update_member")
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		a.logger.Warn("Some member updates failed",
			zap.Uint64("guildID", health.GuildID),
			zap.Int("failed", len(errs)),
			zap.Error(errors.Join(errs...)))
	}

	return nil
}

func (a *Aggregator) updateMember(ctx context.Context, guildID, userID uint64, lastSentAt time.Time) error {
	count, err := a.store.IncrementUserGuildCounter(ctx, guildID, userID, 0, lastSentAt)
	if err != nil {
		return fmt.Errorf("refresh member %d: %w", userID, err)
	}

	if err := a.store.SetUserGuildScore(ctx, guildID, userID, GuildScore(count, a.cfg.SaturationCount)); err != nil {
		return fmt.Errorf("score member %d: %w", userID, err)
	}

	return nil
}

func allReused(results []*AnalysisResult) bool {
	for _, r := range results {
		if !r.Reused {
			return false
		}
	}
	return true
}

func hasStoredSummary(guild *types.Guild, cycleStart time.Time) bool {
	return !guild.LastAnalyzed.Before(cycleStart) && len(guild.HealthRecommendations) > 0
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

type batchAuthor struct {
	id         uint64
	lastSentAt time.Time
}

// batchAuthors returns each author of the batch once, in first-seen order,
// with the send time of their latest message.
func batchAuthors(results []*AnalysisResult) []batchAuthor {
	var authors []batchAuthor
	index := make(map[uint64]int)

	for _, r := range results {
		if r.AuthorID == 0 {
			continue
		}

		i, ok := index[r.AuthorID]
		if !ok {
			index[r.AuthorID] = len(authors)
			authors = append(authors, batchAuthor{id: r.AuthorID, lastSentAt: r.SentAt})
			continue
		}

		if r.SentAt.After(authors[i].lastSentAt) {
			authors[i].lastSentAt = r.SentAt
		}
	}

	return authors
}

// topCategories returns the most frequent categories among successful results.
func topCategories(results []*AnalysisResult) []string {
	counts := make(map[enum.MessageCategory]int)
	for _, r := range results {
		if r.OK() {
			counts[r.Scores.ActivityCategory]++
		}
	}

	categories := make([]enum.MessageCategory, 0, len(counts))
	for c := range counts {
		categories = append(categories, c)
	}

	slices.SortFunc(categories, func(x, y enum.MessageCategory) int {
		if n := cmp.Compare(counts[y], counts[x]); n != 0 {
			return n
		}
		return cmp.Compare(x, y)
	})

	names := make([]string, 0, maxTopCategories)
	for _, c := range categories[:min(len(categories), maxTopCategories)] {
		names = append(names, string(c))
	}

	return names
}
