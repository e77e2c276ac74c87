package events

import (
	"context"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/guildpulse/internal/scheduler"
	"go.uber.org/zap"
)

// BackfillWindow is how far back history collection reaches.
const BackfillWindow = 24 * time.Hour

// HistoryClient is the part of the Discord REST client used for backfill.
type HistoryClient interface {
	GetGuildChannels(guildID snowflake.ID, opts ...rest.RequestOpt) ([]discord.GuildChannel, error)
	GetMessages(
		channelID snowflake.ID, around, before, after snowflake.ID, limit int, opts ...rest.RequestOpt,
	) ([]discord.Message, error)
}

// Backfiller collects recent channel history when a guild becomes ready.
type Backfiller struct {
	messages *MessageEventHandler
	limit    int
	logger   *zap.Logger
	now      func() time.Time
}

// NewBackfiller creates a backfiller fetching up to limit messages per channel.
func NewBackfiller(messages *MessageEventHandler, limit int, logger *zap.Logger) *Backfiller {
	return &Backfiller{
		messages: messages,
		limit:    min(max(limit, 1), 100),
		logger:   logger.Named("backfill"),
		now:      time.Now,
	}
}

// Collect ingests the last day of messages from every text channel of a guild
// in backfill mode. Only the latest page of each channel is read, so busy
// channels contribute their most recent messages. Channels that cannot be
// read are skipped. It returns the number of messages stored.
func (b *Backfiller) Collect(ctx context.Context, client HistoryClient, guildID snowflake.ID) int {
	channels, err := client.GetGuildChannels(guildID)
	if err != nil {
		b.logger.Warn("Failed to list guild channels",
			zap.String("guildID", guildID.String()),
			zap.Error(err))
		return 0
	}

	since := b.now().Add(-BackfillWindow)

	stored := 0
	for _, channel := range channels {
		if channel.Type() != discord.ChannelTypeGuildText {
			continue
		}

		if ctx.Err() != nil {
			break
		}

		messages, err := client.GetMessages(channel.ID(), 0, 0, 0, b.limit)
		if err != nil {
			b.logger.Debug("Could not fetch channel history",
				zap.String("guildID", guildID.String()),
				zap.String("channelID", channel.ID().String()),
				zap.Error(err))
			continue
		}

		for _, msg := range messages {
			if msg.CreatedAt.Before(since) {
				continue
			}

			created, err := b.messages.Ingest(ctx, guildID, msg, scheduler.ModeBackfill)
			if err != nil {
				b.logger.Warn("Failed to ingest history message",
					zap.String("messageID", msg.ID.String()),
					zap.Error(err))
				continue
			}

			if created {
				stored++
			}
		}
	}

	b.logger.Info("Collected recent history",
		zap.String("guildID", guildID.String()),
		zap.Int("channels", len(channels)),
		zap.Int("stored", stored))

	return stored
}
