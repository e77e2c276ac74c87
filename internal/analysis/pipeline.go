package analysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robalyx/guildpulse/internal/database/types"
	"github.com/robalyx/guildpulse/internal/metrics"
	"github.com/robalyx/guildpulse/internal/setup/config"
	"github.com/robalyx/guildpulse/pkg/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock replaces the wall clock used for cycle boundaries and timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
		p.analyzer.now = now
	}
}

// WithRetryOptions replaces the backoff used for transport failures.
func WithRetryOptions(opts utils.RetryOptions) Option {
	return func(p *Pipeline) {
		p.analyzer.retry = opts
	}
}

// Pipeline runs collection, scoring, aggregation and persistence for one guild.
type Pipeline struct {
	store      Store
	collector  *Collector
	analyzer   *Analyzer
	aggregator *Aggregator
	batchLimit int
	metrics    *metrics.Manager
	tracer     trace.Tracer
	logger     *zap.Logger
	now        func() time.Time
}

// NewPipeline wires the analysis components over a store.
func NewPipeline(
	store Store, scorer MessageScorer, summarizer CommunitySummarizer, cfg config.Analysis,
	metricsManager *metrics.Manager, logger *zap.Logger, opts ...Option,
) *Pipeline {
	p := &Pipeline{
		store:      store,
		collector:  NewCollector(store, cfg.WindowHours, logger),
		analyzer:   NewAnalyzer(scorer, store, cfg.Concurrency, metricsManager, logger),
		aggregator: NewAggregator(store, summarizer, cfg, metricsManager, logger),
		batchLimit: cfg.BatchLimit,
		metrics:    metricsManager,
		tracer:     otel.Tracer("guildpulse/analysis"),
		logger:     logger.Named("analysis_pipeline"),
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// RunAnalysis analyzes the most recent batch of a guild and stores the result.
// Messages already scored in the current hourly cycle reuse their stored
// scores, so repeated runs on an unchanged message set yield the same record.
func (p *Pipeline) RunAnalysis(ctx context.Context, guildID uint64) (*types.GuildHealth, error) {
	start := p.now()
	runID := uuid.NewString()

	ctx, span := p.tracer.Start(ctx, "analysis.RunAnalysis", trace.WithAttributes(
		attribute.String("guild.id", fmt.Sprint(guildID)),
		attribute.String("run.id", runID),
	))
	defer span.End()

	logger := p.logger.With(zap.Uint64("guildID", guildID), zap.String("runID", runID))

	health, err := p.run(ctx, guildID, start, logger)
	duration := p.now().Sub(start)

	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.metrics.ObserveRun(metrics.RunFailed, duration)
		logger.Error("Guild analysis failed", zap.Error(err))
		return nil, err
	case health.Insufficient:
		p.metrics.ObserveRun(metrics.RunInsufficient, duration)
		logger.Info("Insufficient data for guild analysis")
	default:
		p.metrics.ObserveRun(metrics.RunSucceeded, duration)
		span.SetAttributes(
			attribute.Int("batch.size", health.SampleSize),
			attribute.Int("batch.failed", health.Failed),
			attribute.Float64("health.score", health.HealthScore),
		)
		logger.Info("Guild analysis completed",
			zap.Int("sampleSize", health.SampleSize),
			zap.Int("analyzed", health.Analyzed),
			zap.Int("failed", health.Failed),
			zap.Float64("healthScore", health.HealthScore),
			zap.String("activityLevel", string(health.ActivityLevel)),
			zap.Duration("duration", duration))
	}

	return health, nil
}

func (p *Pipeline) run(
	ctx context.Context, guildID uint64, now time.Time, logger *zap.Logger,
) (*types.GuildHealth, error) {
	guild, err := p.store.GetGuild(ctx, guildID)
	if errors.Is(err, types.ErrGuildNotFound) {
		guild = &types.Guild{ID: guildID}
	} else if err != nil {
		return nil, fmt.Errorf("failed to load guild: %w", err)
	}

	messages, err := p.collector.Collect(ctx, guildID, p.batchLimit)
	if err != nil {
		return nil, err
	}

	if len(messages) == 0 {
		return p.aggregator.Insufficient(guildID, now), nil
	}

	pending, reused := splitByCycle(messages, now.Truncate(time.Hour))
	logger.Debug("Collected batch",
		zap.Int("pending", len(pending)),
		zap.Int("reused", len(reused)))

	byID := make(map[uint64]*AnalysisResult, len(messages))
	for i, result := range p.analyzer.Analyze(ctx, pending) {
		byID[pending[i].ID] = result
	}
	for _, msg := range reused {
		byID[msg.ID] = reusedResult(msg, msg.Scores())
	}

	results := make([]*AnalysisResult, 0, len(messages))
	for _, msg := range messages {
		results = append(results, byID[msg.ID])
	}

	inWindow := countInWindow(messages, p.collector.WindowStart(now))
	health := p.aggregator.Aggregate(ctx, guild, results, inWindow, now)

	if err := p.aggregator.Persist(ctx, health, results); err != nil {
		return nil, err
	}

	return health, nil
}
