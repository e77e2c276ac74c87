package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robalyx/guildpulse/internal/database/dbretry"
	"github.com/robalyx/guildpulse/internal/database/types"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"go.uber.org/zap"
)

// ErrMessageNotFound is returned when a score write targets an unknown message.
var ErrMessageNotFound = errors.New("message not found")

// MessageModel handles database operations for stored messages.
type MessageModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewMessage creates a new message model instance.
func NewMessage(db *bun.DB, logger *zap.Logger) *MessageModel {
	return &MessageModel{
		db:     db,
		logger: logger.Named("db_message"),
	}
}

// SaveMessage stores a message. It reports false when the message already existed.
func (m *MessageModel) SaveMessage(ctx context.Context, msg *types.Message) (bool, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (bool, error) {
		result, err := m.db.NewInsert().
			Model(msg).
			On("CONFLICT (id) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to save message %d: %w", msg.ID, err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return false, fmt.Errorf("failed to read affected rows: %w", err)
		}

		return affected > 0, nil
	})
}

// GetRecent returns up to limit messages of a guild sent at or after since,
// newest first. A zero since disables the time bound.
func (m *MessageModel) GetRecent(
	ctx context.Context, guildID uint64, since time.Time, limit int,
) ([]*types.Message, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.Message, error) {
		var messages []*types.Message

		query := m.db.NewSelect().
			Model(&messages).
			Where("guild_id = ?", guildID)
		if !since.IsZero() {
			query = query.Where("sent_at >= ?", since)
		}

		err := query.
			Order("sent_at DESC", "id DESC").
			Limit(limit).
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get messages for guild %d: %w", guildID, err)
		}

		return messages, nil
	})
}

// WriteScores stores the score tuple of one message.
func (m *MessageModel) WriteScores(ctx context.Context, messageID uint64, scores *types.MessageScores) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		result, err := m.db.NewUpdate().
			Model((*types.Message)(nil)).
			Set("sentiment = ?", scores.Sentiment).
			Set("toxicity = ?", scores.Toxicity).
			Set("constructiveness = ?", scores.Constructiveness).
			Set("ai_likelihood = ?", scores.AILikelihood).
			Set("quality_score = ?", scores.QualityScore).
			Set("engagement_potential = ?", scores.EngagementPotential).
			Set("activity_category = ?", scores.ActivityCategory).
			Set("emotions = ?", pgdialect.Array(scores.Emotions)).
			Set("topics = ?", pgdialect.Array(scores.Topics)).
			Set("analyzed_at = ?", scores.AnalyzedAt).
			Where("id = ?", messageID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to write scores for message %d: %w", messageID, err)
		}

		if affected, err := result.RowsAffected(); err == nil && affected == 0 {
			return fmt.Errorf("%w: %d", ErrMessageNotFound, messageID)
		}

		return nil
	})
}
