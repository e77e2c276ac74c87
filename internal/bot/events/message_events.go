package events

import (
	"context"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/guildpulse/internal/analysis"
	"github.com/robalyx/guildpulse/internal/metrics"
	"github.com/robalyx/guildpulse/internal/scheduler"
	"go.uber.org/zap"
)

// Trigger is notified of every newly stored message.
type Trigger interface {
	OnMessageIngested(ctx context.Context, guildID uint64, mode scheduler.Mode) (bool, error)
}

// MessageEventHandler stores guild messages and feeds the scheduler.
type MessageEventHandler struct {
	store      Store
	trigger    Trigger
	saturation int
	metrics    *metrics.Manager
	logger     *zap.Logger
}

// NewMessageEventHandler creates a message handler. Saturation is the message
// count at which a member's guild score reaches 1.
func NewMessageEventHandler(
	store Store, trigger Trigger, saturation int, metricsManager *metrics.Manager, logger *zap.Logger,
) *MessageEventHandler {
	return &MessageEventHandler{
		store:      store,
		trigger:    trigger,
		saturation: saturation,
		metrics:    metricsManager,
		logger:     logger.Named("message_events"),
	}
}

// OnGuildMessageCreate ingests a live guild message.
func (h *MessageEventHandler) OnGuildMessageCreate(event *events.GuildMessageCreate) {
	if _, err := h.Ingest(context.Background(), event.GuildID, event.Message, scheduler.ModeLive); err != nil {
		h.logger.Error("Failed to ingest message",
			zap.String("guildID", event.GuildID.String()),
			zap.String("messageID", event.Message.ID.String()),
			zap.Error(err))
	}
}

// Ingest stores a message, counts it toward its author and toward the
// guild's trigger. Messages from bots, webhooks and the system are ignored,
// as are messages that were already stored. It reports whether the message
// was stored.
func (h *MessageEventHandler) Ingest(
	ctx context.Context, guildID snowflake.ID, msg discord.Message, mode scheduler.Mode,
) (bool, error) {
	if !isIngestible(msg) {
		return false, nil
	}

	row := NewMessage(guildID, msg)

	created, err := h.store.IngestMessage(ctx, row)
	if err != nil {
		return false, fmt.Errorf("failed to store message: %w", err)
	}

	if !created {
		return false, nil
	}

	h.metrics.IncMessagesIngested()

	if err := h.countAuthor(ctx, guildID, msg.Author, row.SentAt); err != nil {
		h.logger.Warn("Failed to update message author",
			zap.String("guildID", guildID.String()),
			zap.String("userID", msg.Author.ID.String()),
			zap.Error(err))
	}

	dispatched, err := h.trigger.OnMessageIngested(ctx, uint64(guildID), mode)
	if err != nil {
		return true, fmt.Errorf("failed to count message toward trigger: %w", err)
	}

	if dispatched {
		h.logger.Debug("Message threshold reached, analysis dispatched",
			zap.String("guildID", guildID.String()))
	}

	return true, nil
}

// countAuthor records the author's username, adds the message to their
// counter and recomputes their guild score.
func (h *MessageEventHandler) countAuthor(
	ctx context.Context, guildID snowflake.ID, author discord.User, sentAt time.Time,
) error {
	if err := h.store.SaveMember(ctx, NewMember(guildID, author)); err != nil {
		return fmt.Errorf("save member: %w", err)
	}

	count, err := h.store.IncrementUserGuildCounter(ctx, uint64(guildID), uint64(author.ID), 1, sentAt)
	if err != nil {
		return fmt.Errorf("increment counter: %w", err)
	}

	score := analysis.GuildScore(count, h.saturation)
	if err := h.store.SetUserGuildScore(ctx, uint64(guildID), uint64(author.ID), score); err != nil {
		return fmt.Errorf("set guild score: %w", err)
	}

	return nil
}
