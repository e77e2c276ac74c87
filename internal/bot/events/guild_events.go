package events

import (
	"context"
	"time"

	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/guildpulse/internal/database/types"
	"go.uber.org/zap"
)

// Store is the persistence the gateway handlers write to.
type Store interface {
	SaveGuild(ctx context.Context, guild *types.Guild) error
	DeactivateGuild(ctx context.Context, guildID uint64) error
	SaveMember(ctx context.Context, member *types.GuildMember) error
	IngestMessage(ctx context.Context, msg *types.Message) (bool, error)
	IncrementUserGuildCounter(ctx context.Context, guildID, userID uint64, delta int64, at time.Time) (int64, error)
	SetUserGuildScore(ctx context.Context, guildID, userID uint64, score float64) error
}

// GuildEventHandler keeps guild and member rows in sync with the gateway.
type GuildEventHandler struct {
	store    Store
	backfill *Backfiller
	logger   *zap.Logger
}

// NewGuildEventHandler creates a new instance of the guild event handler.
// A nil backfiller disables history collection on ready.
func NewGuildEventHandler(store Store, backfill *Backfiller, logger *zap.Logger) *GuildEventHandler {
	return &GuildEventHandler{
		store:    store,
		backfill: backfill,
		logger:   logger.Named("guild_events"),
	}
}

// OnGuildReady handles guilds delivered when the gateway session starts.
func (h *GuildEventHandler) OnGuildReady(event *events.GuildReady) {
	h.saveGuild(event.Guild.ID, NewGuild(event.Guild))

	if h.backfill != nil {
		go h.backfill.Collect(context.Background(), event.Client().Rest(), event.Guild.ID)
	}
}

// OnGuildJoin handles the event when the bot joins a new guild.
func (h *GuildEventHandler) OnGuildJoin(event *events.GuildJoin) {
	h.logger.Info("Bot joined a new guild",
		zap.String("guildID", event.Guild.ID.String()),
		zap.String("guild_name", event.Guild.Name))

	h.saveGuild(event.Guild.ID, NewGuild(event.Guild))
}

// OnGuildUpdate refreshes the name, icon and member count of a guild.
func (h *GuildEventHandler) OnGuildUpdate(event *events.GuildUpdate) {
	h.saveGuild(event.Guild.ID, NewGuild(event.Guild))
}

// OnGuildLeave marks a guild inactive so it is no longer scheduled or listed.
func (h *GuildEventHandler) OnGuildLeave(event *events.GuildLeave) {
	if err := h.store.DeactivateGuild(context.Background(), uint64(event.GuildID)); err != nil {
		h.logger.Error("Failed to deactivate guild",
			zap.String("guildID", event.GuildID.String()),
			zap.Error(err))
		return
	}

	h.logger.Info("Bot left guild", zap.String("guildID", event.GuildID.String()))
}

// OnGuildMemberJoin records a new member.
func (h *GuildEventHandler) OnGuildMemberJoin(event *events.GuildMemberJoin) {
	member := NewMember(event.GuildID, event.Member.User)
	member.JoinedAt = time.Now()

	if err := h.store.SaveMember(context.Background(), member); err != nil {
		h.logger.Error("Failed to save member",
			zap.String("guildID", event.GuildID.String()),
			zap.String("userID", event.Member.User.ID.String()),
			zap.Error(err))
	}
}

func (h *GuildEventHandler) saveGuild(guildID snowflake.ID, guild *types.Guild) {
	if err := h.store.SaveGuild(context.Background(), guild); err != nil {
		h.logger.Error("Failed to save guild",
			zap.String("guildID", guildID.String()),
			zap.Error(err))
		return
	}

	h.logger.Debug("Saved guild",
		zap.String("guildID", guildID.String()),
		zap.Int("members", guild.MemberCount))
}
