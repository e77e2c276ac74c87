package analysis

import (
	"errors"
	"fmt"
	"time"

	"github.com/robalyx/guildpulse/internal/ai"
	"github.com/robalyx/guildpulse/internal/database/types"
)

var (
	// ErrScoringFailed marks a message whose scoring fell back to defaults.
	ErrScoringFailed = errors.New("scoring failed")
	// ErrWriteFailed marks a message whose scores could not be stored.
	ErrWriteFailed = errors.New("score write failed")
)

// AnalysisResult pairs a message with either its validated scores or a failure.
type AnalysisResult struct {
	MessageID uint64
	AuthorID  uint64
	SentAt    time.Time
	Content   string
	Scores    ai.ScoreResult
	Failure   ai.Failure
	Err       error
	// Reused is set when the scores come from an earlier run in the same cycle.
	Reused bool
}

// OK reports whether the result carries usable scores.
func (r *AnalysisResult) OK() bool {
	return r.Err == nil
}

func newResult(msg *types.Message) *AnalysisResult {
	return &AnalysisResult{
		MessageID: msg.ID,
		AuthorID:  msg.AuthorID,
		SentAt:    msg.SentAt,
		Content:   msg.Content,
	}
}

func failedResult(msg *types.Message, score ai.Score) *AnalysisResult {
	result := newResult(msg)
	result.Scores = score.Result
	result.Failure = score.Failure
	result.Err = fmt.Errorf("%w (%s): %w", ErrScoringFailed, score.Failure, score.Err)
	return result
}

// reusedResult builds a success result from scores stored earlier in the cycle.
func reusedResult(msg *types.Message, stored *types.MessageScores) *AnalysisResult {
	result := newResult(msg)
	result.Reused = true
	result.Scores = ai.ScoreResult{
		Sentiment:           stored.Sentiment,
		Toxicity:            stored.Toxicity,
		Constructiveness:    stored.Constructiveness,
		AILikelihood:        stored.AILikelihood,
		QualityScore:        stored.QualityScore,
		EngagementPotential: stored.EngagementPotential,
		ActivityCategory:    stored.ActivityCategory,
		Emotions:            stored.Emotions,
		Topics:              stored.Topics,
	}
	return result
}
