package repository

import (
	"context"
	"errors"
	"time"

	"github.com/foxseedlab/darkbot/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) repository.Repository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) SaveFeedback(ctx context.Context, f *repository.Feedback) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO feedback (
			id, user_id, user_tag, content, category,
			origin_guild_id, origin_guild_name, origin_icon_url,
			support_guild_id, support_channel_id, support_message_id,
			thread_id, dm_channel_id, dm_message_id,
			status, more_shown, last_staff_reply, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (id) DO UPDATE SET
			thread_id = EXCLUDED.thread_id,
			dm_channel_id = EXCLUDED.dm_channel_id,
			dm_message_id = EXCLUDED.dm_message_id,
			status = EXCLUDED.status,
			more_shown = EXCLUDED.more_shown,
			last_staff_reply = EXCLUDED.last_staff_reply,
			updated_at = EXCLUDED.updated_at`,
		f.ID, f.UserID, f.UserTag, f.Content, f.Category,
		f.OriginGuildID, f.OriginGuildName, f.OriginIconURL,
		f.SupportGuildID, f.SupportChannelID, f.SupportMessageID,
		f.ThreadID, f.DMChannelID, f.DMMessageID,
		string(f.Status), f.MoreShown, f.LastStaffReply, f.CreatedAt, f.UpdatedAt)
	return err
}

func (r *PostgresRepository) GetFeedback(ctx context.Context, id string) (*repository.Feedback, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, user_id, user_tag, content, category,
			origin_guild_id, origin_guild_name, origin_icon_url,
			support_guild_id, support_channel_id, support_message_id,
			thread_id, dm_channel_id, dm_message_id,
			status, more_shown, last_staff_reply, created_at, updated_at
		 FROM feedback WHERE id = $1`,
		id)
	var f repository.Feedback
	var status string
	err := row.Scan(&f.ID, &f.UserID, &f.UserTag, &f.Content, &f.Category,
		&f.OriginGuildID, &f.OriginGuildName, &f.OriginIconURL,
		&f.SupportGuildID, &f.SupportChannelID, &f.SupportMessageID,
		&f.ThreadID, &f.DMChannelID, &f.DMMessageID,
		&status, &f.MoreShown, &f.LastStaffReply, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	f.Status = repository.FeedbackStatus(status)
	return &f, nil
}

func (r *PostgresRepository) SetBlacklist(ctx context.Context, userID string, until time.Time) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO feedback_blacklist (user_id, until) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET until = EXCLUDED.until`,
		userID, until)
	return err
}

func (r *PostgresRepository) GetBlacklist(ctx context.Context, userID string) (*repository.BlacklistEntry, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT user_id, until, created_at FROM feedback_blacklist WHERE user_id = $1`,
		userID)
	var e repository.BlacklistEntry
	if err := row.Scan(&e.UserID, &e.Until, &e.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

func (r *PostgresRepository) DeleteBlacklist(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM feedback_blacklist WHERE user_id = $1`, userID)
	return err
}
