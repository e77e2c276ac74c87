package migrations

import (
	"context"
	"fmt"

	"github.com/robalyx/guildpulse/internal/database/types"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		tables := []any{
			(*types.Guild)(nil),
			(*types.Message)(nil),
			(*types.GuildMember)(nil),
		}

		for _, model := range tables {
			if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
				return fmt.Errorf("failed to create table for %T: %w", model, err)
			}
		}

		_, err := db.NewRaw(`
			DO $$ BEGIN
				ALTER TABLE guilds ADD CONSTRAINT guilds_activity_level_check
					CHECK (activity_level IN ('low', 'medium', 'high', 'very_high'));
			EXCEPTION WHEN duplicate_object THEN NULL;
			END $$;
		`).Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to add activity level constraint: %w", err)
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		for _, model := range []any{
			(*types.GuildMember)(nil),
			(*types.Message)(nil),
			(*types.Guild)(nil),
		} {
			if _, err := db.NewDropTable().Model(model).IfExists().Exec(ctx); err != nil {
				return fmt.Errorf("failed to drop table for %T: %w", model, err)
			}
		}
		return nil
	})
}
