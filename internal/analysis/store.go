package analysis

import (
	"context"
	"time"

	"github.com/robalyx/guildpulse/internal/ai"
	"github.com/robalyx/guildpulse/internal/database/types"
)

// MessageStore reads pending messages and writes per-message scores.
type MessageStore interface {
	GetUnanalyzedMessages(ctx context.Context, guildID uint64, windowHours, limit int) ([]*types.Message, error)
	WriteMessageScores(ctx context.Context, messageID uint64, scores *types.MessageScores) error
}

// HealthStore writes guild and member aggregates.
type HealthStore interface {
	GetGuild(ctx context.Context, guildID uint64) (*types.Guild, error)
	UpsertGuildHealth(ctx context.Context, health *types.GuildHealth) error
	IncrementUserGuildCounter(ctx context.Context, guildID, userID uint64, delta int64, at time.Time) (int64, error)
	SetUserGuildScore(ctx context.Context, guildID, userID uint64, score float64) error
}

// Store is the full persistence surface of the pipeline.
type Store interface {
	MessageStore
	HealthStore
}

// MessageScorer scores one message. Implementations never fail; failures are
// reported on the returned Score.
type MessageScorer interface {
	Score(ctx context.Context, input *ai.MessageInput) ai.Score
}

// CommunitySummarizer produces the holistic free-text assessment of a batch.
type CommunitySummarizer interface {
	Summarize(ctx context.Context, input *ai.CommunityInput) (ai.CommunitySummary, error)
}
