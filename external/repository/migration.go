package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrationStatements = []string{
	`DO $$ BEGIN CREATE TYPE feedback_status AS ENUM ('open', 'resolved', 'abandoned'); EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
	`CREATE TABLE IF NOT EXISTS feedback (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		user_tag TEXT NOT NULL,
		content TEXT NOT NULL,
		category TEXT NOT NULL,
		origin_guild_id TEXT NOT NULL,
		origin_guild_name TEXT NOT NULL,
		origin_icon_url TEXT NOT NULL DEFAULT '',
		support_guild_id TEXT NOT NULL DEFAULT '',
		support_channel_id TEXT NOT NULL,
		support_message_id TEXT NOT NULL,
		thread_id TEXT NOT NULL DEFAULT '',
		dm_channel_id TEXT NOT NULL DEFAULT '',
		dm_message_id TEXT NOT NULL DEFAULT '',
		status feedback_status NOT NULL DEFAULT 'open',
		more_shown BOOLEAN NOT NULL DEFAULT FALSE,
		last_staff_reply TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_feedback_user ON feedback (user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS feedback_blacklist (
		user_id TEXT PRIMARY KEY,
		until TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

func RunMigration(ctx context.Context, pool *pgxpool.Pool) error {
	for _, s := range migrationStatements {
		stmt := strings.TrimSpace(s)
		if stmt == "" {
			continue
		}
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
