package events_test

import (
	"testing"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/snowflake/v2"
	"github.com/robalyx/guildpulse/internal/bot/events"
	"github.com/stretchr/testify/assert"
)

func TestNewMessage(t *testing.T) {
	t.Parallel()

	sentAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	replyTo := snowflake.ID(77)

	msg := discord.Message{
		ID:          snowflake.ID(10),
		ChannelID:   snowflake.ID(20),
		Author:      discord.User{ID: snowflake.ID(30), Username: "alice"},
		Content:     "héllo  there <@40>",
		CreatedAt:   sentAt,
		Attachments: []discord.Attachment{{}},
		Mentions:    []discord.User{{ID: snowflake.ID(40)}},
		MessageReference: &discord.MessageReference{
			MessageID: &replyTo,
		},
	}

	got := events.NewMessage(snowflake.ID(1), msg)

	assert.Equal(t, uint64(10), got.ID)
	assert.Equal(t, uint64(1), got.GuildID)
	assert.Equal(t, uint64(20), got.ChannelID)
	assert.Equal(t, uint64(30), got.AuthorID)
	assert.Equal(t, 18, got.ContentLength)
	assert.Equal(t, 3, got.WordCount)
	assert.True(t, got.HasAttachments)
	assert.False(t, got.HasEmbeds)
	assert.Equal(t, 1, got.MentionCount)
	assert.Equal(t, uint64(77), got.ReplyToID)
	assert.True(t, got.IsReply())
	assert.Equal(t, sentAt, got.SentAt)
	assert.Nil(t, got.Scores())
}

func TestNewMessageFallsBackToSnowflakeTime(t *testing.T) {
	t.Parallel()

	sentAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	id := snowflake.New(sentAt)

	got := events.NewMessage(snowflake.ID(1), discord.Message{ID: id, Content: ""})

	assert.Equal(t, sentAt.Unix(), got.SentAt.Unix())
	assert.Zero(t, got.WordCount)
	assert.False(t, got.IsReply())
}

func TestNewGuild(t *testing.T) {
	t.Parallel()

	icon := "a_icon"

	got := events.NewGuild(discord.Guild{
		ID:          snowflake.ID(5),
		Name:        "Gophers",
		Icon:        &icon,
		MemberCount: 120,
	})

	assert.Equal(t, uint64(5), got.ID)
	assert.Equal(t, "Gophers", got.Name)
	assert.Equal(t, "a_icon", got.Icon)
	assert.Equal(t, 120, got.MemberCount)
	assert.True(t, got.IsActive)

	assert.Empty(t, events.NewGuild(discord.Guild{ID: snowflake.ID(6)}).Icon)
}
