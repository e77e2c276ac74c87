package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		indexes := []string{
			// Batch collection: newest messages of a guild
			`CREATE INDEX IF NOT EXISTS idx_messages_guild_sent_at
				ON messages (guild_id, sent_at DESC)`,
			// Hourly tick: active public guilds
			`CREATE INDEX IF NOT EXISTS idx_guilds_active_public
				ON guilds (last_analyzed) WHERE is_active AND is_public`,
			// Public listing sorted by health
			`CREATE INDEX IF NOT EXISTS idx_guilds_health_score
				ON guilds (health_score DESC) WHERE is_active AND is_public`,
			// Member leaderboard
			`CREATE INDEX IF NOT EXISTS idx_guild_members_score
				ON guild_members (guild_id, guild_score DESC, message_count DESC)`,
		}

		for _, index := range indexes {
			if _, err := db.NewRaw(index).Exec(ctx); err != nil {
				return fmt.Errorf("failed to create index: %w", err)
			}
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		for _, name := range []string{
			"idx_messages_guild_sent_at",
			"idx_guilds_active_public",
			"idx_guilds_health_score",
			"idx_guild_members_score",
		} {
			if _, err := db.NewRaw("DROP INDEX IF EXISTS " + name).Exec(ctx); err != nil {
				return fmt.Errorf("failed to drop index %s: %w", name, err)
			}
		}
		return nil
	})
}
