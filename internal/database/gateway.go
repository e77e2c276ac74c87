package database

import (
	"context"
	"time"

	"github.com/robalyx/guildpulse/internal/database/types"
	"go.uber.org/zap"
)

// Gateway is the persistence surface of the analysis pipeline. It narrows the
// repository down to the reads and writes the pipeline and scheduler perform.
type Gateway struct {
	repo   *Repository
	logger *zap.Logger
}

// NewGateway creates a Gateway over the given repository.
func NewGateway(repo *Repository, logger *zap.Logger) *Gateway {
	return &Gateway{
		repo:   repo,
		logger: logger.Named("db_gateway"),
	}
}

// GetUnanalyzedMessages returns up to limit recent messages of a guild, newest
// first. A windowHours of zero or less disables the recency bound.
func (g *Gateway) GetUnanalyzedMessages(
	ctx context.Context, guildID uint64, windowHours, limit int,
) ([]*types.Message, error) {
	var since time.Time
	if windowHours > 0 {
		since = time.Now().Add(-time.Duration(windowHours) * time.Hour)
	}

	return g.repo.Message().GetRecent(ctx, guildID, since, limit)
}

// WriteMessageScores stores the scores of one message, overwriting earlier ones.
func (g *Gateway) WriteMessageScores(ctx context.Context, messageID uint64, scores *types.MessageScores) error {
	return g.repo.Message().WriteScores(ctx, messageID, scores)
}

// UpsertGuildHealth stores the health record of a guild.
func (g *Gateway) UpsertGuildHealth(ctx context.Context, health *types.GuildHealth) error {
	return g.repo.Guild().UpsertHealth(ctx, health)
}

// IncrementUserGuildCounter adds delta to a member's message counter and
// returns the new count. A zero delta only refreshes the last message time.
func (g *Gateway) IncrementUserGuildCounter(
	ctx context.Context, guildID, userID uint64, delta int64, at time.Time,
) (int64, error) {
	return g.repo.Member().IncrementMessageCount(ctx, guildID, userID, delta, at)
}

// SetUserGuildScore stores a member's guild score.
func (g *Gateway) SetUserGuildScore(ctx context.Context, guildID, userID uint64, score float64) error {
	return g.repo.Member().SetGuildScore(ctx, guildID, userID, score)
}

// ListActivePublicGuilds returns the schedule view of every active public guild.
func (g *Gateway) ListActivePublicGuilds(ctx context.Context) ([]*types.GuildSchedule, error) {
	return g.repo.Guild().ListActivePublic(ctx)
}

// TouchGuildAnalyzed advances a guild's last analysis time.
func (g *Gateway) TouchGuildAnalyzed(ctx context.Context, guildID uint64, at time.Time) error {
	return g.repo.Guild().TouchAnalyzed(ctx, guildID, at)
}

// GetGuild returns a guild row.
func (g *Gateway) GetGuild(ctx context.Context, guildID uint64) (*types.Guild, error) {
	return g.repo.Guild().GetGuild(ctx, guildID)
}

// ResetMessageCounters zeroes the daily counters and, when weekly is set, the weekly ones.
func (g *Gateway) ResetMessageCounters(ctx context.Context, weekly bool) error {
	if err := g.repo.Guild().ResetPeriodCounters(ctx, weekly); err != nil {
		return err
	}

	g.logger.Info("Reset guild message counters", zap.Bool("weekly", weekly))

	return nil
}

// SaveGuild records a guild the bot can see and marks it active.
func (g *Gateway) SaveGuild(ctx context.Context, guild *types.Guild) error {
	return g.repo.Guild().UpsertGuild(ctx, guild)
}

// DeactivateGuild hides a guild the bot left from scheduling and listings.
func (g *Gateway) DeactivateGuild(ctx context.Context, guildID uint64) error {
	return g.repo.Guild().SetActive(ctx, guildID, false)
}

// SaveMember records a member row without touching its counters.
func (g *Gateway) SaveMember(ctx context.Context, member *types.GuildMember) error {
	return g.repo.Member().UpsertMember(ctx, member)
}

// IngestMessage stores a new message and bumps the guild's message counters.
// It reports false without bumping anything when the message was already stored.
func (g *Gateway) IngestMessage(ctx context.Context, msg *types.Message) (bool, error) {
	created, err := g.repo.Message().SaveMessage(ctx, msg)
	if err != nil || !created {
		return false, err
	}

	if err := g.repo.Guild().BumpMessageCounters(ctx, msg.GuildID, msg.SentAt); err != nil {
		return true, err
	}

	return true, nil
}

// ListPublicGuilds returns one page of active public guilds and the total count.
func (g *Gateway) ListPublicGuilds(ctx context.Context, page, limit int, sortBy string) ([]*types.Guild, int, error) {
	return g.repo.Guild().ListPublic(ctx, page, limit, sortBy)
}

// ListTrendingGuilds returns the public guilds with the most messages today.
func (g *Gateway) ListTrendingGuilds(ctx context.Context, limit int) ([]*types.Guild, error) {
	return g.repo.Guild().ListTrending(ctx, limit)
}

// GetLeaderboard returns the top members of a guild.
func (g *Gateway) GetLeaderboard(ctx context.Context, guildID uint64, limit int) ([]*types.GuildMember, error) {
	return g.repo.Member().GetLeaderboard(ctx, guildID, limit)
}

// GetPlatformStats returns totals across all active guilds.
func (g *Gateway) GetPlatformStats(ctx context.Context) (*types.PlatformStats, error) {
	return g.repo.Guild().GetPlatformStats(ctx)
}
