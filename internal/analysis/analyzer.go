package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/robalyx/guildpulse/internal/ai"
	"github.com/robalyx/guildpulse/internal/database/types"
	"github.com/robalyx/guildpulse/internal/metrics"
	"github.com/robalyx/guildpulse/pkg/utils"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// Analyzer drives the scorer over a batch with bounded concurrency and writes
// each successful score back as soon as it is available.
type Analyzer struct {
	scorer      MessageScorer
	store       MessageStore
	concurrency int
	retry       utils.RetryOptions
	metrics     *metrics.Manager
	logger      *zap.Logger
	now         func() time.Time
}

// NewAnalyzer creates a batch analyzer.
func NewAnalyzer(
	scorer MessageScorer, store MessageStore, concurrency int, metricsManager *metrics.Manager, logger *zap.Logger,
) *Analyzer {
	return &Analyzer{
		scorer:      scorer,
		store:       store,
		concurrency: max(concurrency, 1),
		retry:       utils.GetAIRetryOptions(),
		metrics:     metricsManager,
		logger:      logger.Named("analysis_analyzer"),
		now:         time.Now,
	}
}

// Analyze returns one result per message in input order. A failing message
// never affects its siblings.
func (a *Analyzer) Analyze(ctx context.Context, messages []*types.Message) []*AnalysisResult {
	results := make([]*AnalysisResult, len(messages))
	p := pool.New().WithMaxGoroutines(a.concurrency)

	for i, msg := range messages {
		p.Go(func() {
			results[i] = a.analyzeOne(ctx, msg)
		})
	}

	p.Wait()

	return results
}

func (a *Analyzer) analyzeOne(ctx context.Context, msg *types.Message) *AnalysisResult {
	input := ai.NewMessageInput(msg)

	// Only transport failures are worth another call.
	score, err := utils.WithRetry(ctx, func() (ai.Score, error) {
		score := a.scorer.Score(ctx, input)
		if score.Failure == ai.FailureTransport {
			return score, score.Err
		}
		return score, nil
	}, a.retry)
	if err != nil && score.Failure == ai.FailureNone {
		score = ai.Score{Result: ai.DefaultScoreResult(), Failure: ai.FailureTransport, Err: err}
	}

	if !score.OK() {
		return failedResult(msg, score)
	}

	result := newResult(msg)
	result.Scores = score.Result

	if err := a.store.WriteMessageScores(ctx, msg.ID, score.Result.MessageScores(a.now())); err != nil {
		a.metrics.IncPersistenceError("write_message_scores")
		a.logger.Error("Failed to write message scores",
			zap.Uint64("messageID", msg.ID),
			zap.Error(err))

		result.Err = fmt.Errorf("%w: %w", ErrWriteFailed, err)
		return result
	}

	a.metrics.IncMessagesScored()

	return result
}
