package events

import (
	"strings"
	"unicode/utf8"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/guildpulse/internal/database/types"
)

// NewGuild converts a gateway guild into a guild row.
func NewGuild(guild discord.Guild) *types.Guild {
	var icon string
	if guild.Icon != nil {
		icon = *guild.Icon
	}

	return &types.Guild{
		ID:          uint64(guild.ID),
		Name:        guild.Name,
		Icon:        icon,
		MemberCount: guild.MemberCount,
		IsActive:    true,
		IsPublic:    true,
	}
}

// NewMessage converts a guild message into a message row.
func NewMessage(guildID snowflake.ID, msg discord.Message) *types.Message {
	message := &types.Message{
		ID:             uint64(msg.ID),
		GuildID:        uint64(guildID),
		ChannelID:      uint64(msg.ChannelID),
		AuthorID:       uint64(msg.Author.ID),
		Content:        msg.Content,
		ContentLength:  utf8.RuneCountInString(msg.Content),
		WordCount:      len(strings.Fields(msg.Content)),
		HasAttachments: len(msg.Attachments) > 0,
		HasEmbeds:      len(msg.Embeds) > 0,
		MentionCount:   len(msg.Mentions),
		SentAt:         msg.CreatedAt,
	}

	if msg.MessageReference != nil && msg.MessageReference.MessageID != nil {
		message.ReplyToID = uint64(*msg.MessageReference.MessageID)
	}

	if message.SentAt.IsZero() {
		message.SentAt = msg.ID.Time()
	}

	return message
}

// NewMember converts a message author into a member row.
func NewMember(guildID snowflake.ID, user discord.User) *types.GuildMember {
	return &types.GuildMember{
		GuildID:  uint64(guildID),
		UserID:   uint64(user.ID),
		Username: user.Username,
	}
}

// isIngestible reports whether a message should be stored for analysis.
func isIngestible(msg discord.Message) bool {
	return !msg.Author.Bot && !msg.Author.System && msg.WebhookID == nil
}
