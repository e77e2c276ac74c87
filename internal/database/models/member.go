package models

import (
	"context"
	"fmt"
	"time"

	"github.com/robalyx/guildpulse/internal/database/dbretry"
	"github.com/robalyx/guildpulse/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// MemberModel handles database operations for per-guild member counters.
type MemberModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewMember creates a new member model instance.
func NewMember(db *bun.DB, logger *zap.Logger) *MemberModel {
	return &MemberModel{
		db:     db,
		logger: logger.Named("db_member"),
	}
}

// UpsertMember records a member joining or being seen with a new username.
func (m *MemberModel) UpsertMember(ctx context.Context, member *types.GuildMember) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().
			Model(member).
			On("CONFLICT (guild_id, user_id) DO UPDATE").
			Set("username = EXCLUDED.username").
			Set("joined_at = COALESCE(guild_member.joined_at, EXCLUDED.joined_at)").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to upsert member %d in guild %d: %w", member.UserID, member.GuildID, err)
		}

		return nil
	})
}

// IncrementMessageCount adds delta to a member's message counter, creating the
// row when missing, and returns the new count.
func (m *MemberModel) IncrementMessageCount(
	ctx context.Context, guildID, userID uint64, delta int64, at time.Time,
) (int64, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (int64, error) {
		member := &types.GuildMember{
			GuildID:       guildID,
			UserID:        userID,
			MessageCount:  delta,
			LastMessageAt: at,
		}

		err := m.db.NewInsert().
			Model(member).
			On("CONFLICT (guild_id, user_id) DO UPDATE").
			Set("message_count = guild_member.message_count + EXCLUDED.message_count").
			Set("last_message_at = GREATEST(guild_member.last_message_at, EXCLUDED.last_message_at)").
			Returning("message_count").
			Scan(ctx, &member.MessageCount)
		if err != nil {
			return 0, fmt.Errorf("failed to increment counter for member %d in guild %d: %w", userID, guildID, err)
		}

		return member.MessageCount, nil
	})
}

// SetGuildScore stores a member's derived guild score.
func (m *MemberModel) SetGuildScore(ctx context.Context, guildID, userID uint64, score float64) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewUpdate().
			Model((*types.GuildMember)(nil)).
			Set("guild_score = ?", score).
			Where("guild_id = ?", guildID).
			Where("user_id = ?", userID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to set score for member %d in guild %d: %w", userID, guildID, err)
		}

		return nil
	})
}

// GetLeaderboard returns the top members of a guild by guild score.
func (m *MemberModel) GetLeaderboard(ctx context.Context, guildID uint64, limit int) ([]*types.GuildMember, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.GuildMember, error) {
		var members []*types.GuildMember

		err := m.db.NewSelect().
			Model(&members).
			Where("guild_id = ?", guildID).
			Where("message_count > 0").
			Order("guild_score DESC", "message_count DESC", "user_id ASC").
			Limit(limit).
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get leaderboard for guild %d: %w", guildID, err)
		}

		return members, nil
	})
}
