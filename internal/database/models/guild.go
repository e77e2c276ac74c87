package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/robalyx/guildpulse/internal/database/dbretry"
	"github.com/robalyx/guildpulse/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Sort orders accepted by ListPublic.
const (
	GuildSortHealth     = "health_score"
	GuildSortMembers    = "member_count"
	GuildSortActivity   = "daily_messages"
	GuildSortEngagement = "engagement_score"
)

// GuildModel handles database operations for guilds and their health records.
type GuildModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewGuild creates a new guild model instance.
func NewGuild(db *bun.DB, logger *zap.Logger) *GuildModel {
	return &GuildModel{
		db:     db,
		logger: logger.Named("db_guild"),
	}
}

// UpsertGuild inserts or refreshes a guild's identity columns and marks it active.
func (m *GuildModel) UpsertGuild(ctx context.Context, guild *types.Guild) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		guild.IsActive = true
		guild.UpdatedAt = time.Now()

		_, err := m.db.NewInsert().
			Model(guild).
			On("CONFLICT (id) DO UPDATE").
			Set("name = EXCLUDED.name").
			Set("icon = EXCLUDED.icon").
			Set("member_count = EXCLUDED.member_count").
			Set("is_active = TRUE").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to upsert guild %d: %w", guild.ID, err)
		}

		return nil
	})
}

// SetActive flips the is_active flag of a guild.
func (m *GuildModel) SetActive(ctx context.Context, guildID uint64, active bool) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewUpdate().
			Model((*types.Guild)(nil)).
			Set("is_active = ?", active).
			Set("updated_at = ?", time.Now()).
			Where("id = ?", guildID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to update guild %d active flag: %w", guildID, err)
		}

		return nil
	})
}

// GetGuild retrieves a guild by ID.
func (m *GuildModel) GetGuild(ctx context.Context, guildID uint64) (*types.Guild, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.Guild, error) {
		var guild types.Guild

		err := m.db.NewSelect().
			Model(&guild).
			Where("id = ?", guildID).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, types.ErrGuildNotFound
			}
			return nil, fmt.Errorf("failed to get guild %d: %w", guildID, err)
		}

		return &guild, nil
	})
}

// ListActivePublic returns the id and last analysis time of every active public guild.
func (m *GuildModel) ListActivePublic(ctx context.Context) ([]*types.GuildSchedule, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.GuildSchedule, error) {
		var guilds []*types.GuildSchedule

		err := m.db.NewSelect().
			Model((*types.Guild)(nil)).
			Column("id", "last_analyzed").
			Where("is_active = TRUE").
			Where("is_public = TRUE").
			Order("last_analyzed ASC NULLS FIRST").
			Scan(ctx, &guilds)
		if err != nil {
			return nil, fmt.Errorf("failed to list active public guilds: %w", err)
		}

		return guilds, nil
	})
}

// UpsertHealth writes an aggregation result. last_analyzed never moves backwards.
func (m *GuildModel) UpsertHealth(ctx context.Context, health *types.GuildHealth) error {
	guild := &types.Guild{
		ID:                    health.GuildID,
		HealthScore:           health.HealthScore,
		ActivityLevel:         health.ActivityLevel,
		ToxicityLevel:         health.ToxicityLevel,
		EngagementScore:       health.EngagementScore,
		SentimentScore:        health.SentimentScore,
		OverallRating:         health.OverallRating,
		HealthIndicators:      health.Indicators,
		HealthConcerns:        health.Concerns,
		HealthRecommendations: health.Recommendations,
		LastAnalyzed:          health.LastAnalyzed,
		IsActive:              true,
		IsPublic:              true,
		CreatedAt:             health.LastAnalyzed,
		UpdatedAt:             health.LastAnalyzed,
	}

	err := dbretry.NoResult(ctx, func(ctx context.Context) error {
		// Zero scores must not fall back to column defaults.
		_, err := m.db.NewInsert().
			Model(guild).
			Value("health_score", "?", health.HealthScore).
			Value("engagement_score", "?", health.EngagementScore).
			On("CONFLICT (id) DO UPDATE").
			Set("health_score = EXCLUDED.health_score").
			Set("activity_level = EXCLUDED.activity_level").
			Set("toxicity_level = EXCLUDED.toxicity_level").
			Set("engagement_score = EXCLUDED.engagement_score").
			Set("sentiment_score = EXCLUDED.sentiment_score").
			Set("overall_rating = EXCLUDED.overall_rating").
			Set("health_indicators = EXCLUDED.health_indicators").
			Set("health_concerns = EXCLUDED.health_concerns").
			Set("health_recommendations = EXCLUDED.health_recommendations").
			Set("last_analyzed = GREATEST(guild.last_analyzed, EXCLUDED.last_analyzed)").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to upsert health for guild %d: %w", health.GuildID, err)
	}

	m.logger.Debug("Updated guild health",
		zap.Uint64("guild_id", health.GuildID),
		zap.Float64("health_score", health.HealthScore),
		zap.String("activity_level", string(health.ActivityLevel)))

	return nil
}

// TouchAnalyzed advances last_analyzed without touching the health columns.
func (m *GuildModel) TouchAnalyzed(ctx context.Context, guildID uint64, at time.Time) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewUpdate().
			Model((*types.Guild)(nil)).
			Set("last_analyzed = GREATEST(last_analyzed, ?)", at).
			Where("id = ?", guildID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to touch guild %d: %w", guildID, err)
		}

		return nil
	})
}

// BumpMessageCounters records one new message for a guild.
func (m *GuildModel) BumpMessageCounters(ctx context.Context, guildID uint64, sentAt time.Time) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewUpdate().
			Model((*types.Guild)(nil)).
			Set("total_messages = total_messages + 1").
			Set("daily_messages = daily_messages + 1").
			Set("weekly_messages = weekly_messages + 1").
			Set("last_message_at = GREATEST(last_message_at, ?)", sentAt).
			Where("id = ?", guildID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to bump counters for guild %d: %w", guildID, err)
		}

		return nil
	})
}

// ResetPeriodCounters zeroes the daily counters, and the weekly ones when weekly is set.
func (m *GuildModel) ResetPeriodCounters(ctx context.Context, weekly bool) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		query := m.db.NewUpdate().
			Model((*types.Guild)(nil)).
			Set("daily_messages = 0").
			Where("TRUE")
		if weekly {
			query = query.Set("weekly_messages = 0")
		}

		if _, err := query.Exec(ctx); err != nil {
			return fmt.Errorf("failed to reset message counters: %w", err)
		}

		return nil
	})
}

// ListPublic returns one page of active public guilds and the total count.
func (m *GuildModel) ListPublic(ctx context.Context, page, limit int, sortBy string) ([]*types.Guild, int, error) {
	switch sortBy {
	case GuildSortHealth, GuildSortMembers, GuildSortActivity, GuildSortEngagement:
	default:
		sortBy = GuildSortHealth
	}

	type result struct {
		guilds []*types.Guild
		total  int
	}

	res, err := dbretry.Operation(ctx, func(ctx context.Context) (result, error) {
		var guilds []*types.Guild

		total, err := m.db.NewSelect().
			Model(&guilds).
			Where("is_active = TRUE").
			Where("is_public = TRUE").
			OrderExpr("? DESC", bun.Ident(sortBy)).
			Order("id ASC").
			Limit(limit).
			Offset((max(page, 1) - 1) * limit).
			ScanAndCount(ctx)
		if err != nil {
			return result{}, fmt.Errorf("failed to list public guilds: %w", err)
		}

		return result{guilds: guilds, total: total}, nil
	})
	if err != nil {
		return nil, 0, err
	}

	return res.guilds, res.total, nil
}

// ListTrending returns active public guilds with the most messages today.
func (m *GuildModel) ListTrending(ctx context.Context, limit int) ([]*types.Guild, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.Guild, error) {
		var guilds []*types.Guild

		err := m.db.NewSelect().
			Model(&guilds).
			Where("is_active = TRUE").
			Where("is_public = TRUE").
			Where("daily_messages > 0").
			Order("daily_messages DESC", "engagement_score DESC").
			Limit(limit).
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list trending guilds: %w", err)
		}

		return guilds, nil
	})
}

// GetPlatformStats aggregates totals and averages across active guilds.
func (m *GuildModel) GetPlatformStats(ctx context.Context) (*types.PlatformStats, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.PlatformStats, error) {
		var stats types.PlatformStats

		err := m.db.NewSelect().
			Model((*types.Guild)(nil)).
			ColumnExpr("COUNT(*) AS total_guilds").
			ColumnExpr("COALESCE(SUM(member_count), 0) AS total_members").
			ColumnExpr("COALESCE(SUM(total_messages), 0) AS total_messages").
			ColumnExpr("COALESCE(SUM(daily_messages), 0) AS daily_messages").
			ColumnExpr("COALESCE(AVG(health_score), 0) AS avg_health").
			ColumnExpr("COALESCE(AVG(toxicity_level), 0) AS avg_toxicity").
			ColumnExpr("(SELECT COUNT(*) FROM messages WHERE analyzed_at IS NOT NULL) AS analyzed_messages").
			Where("is_active = TRUE").
			Scan(ctx, &stats)
		if err != nil {
			return nil, fmt.Errorf("failed to get platform stats: %w", err)
		}

		return &stats, nil
	})
}
