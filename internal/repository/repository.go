package repository

import (
	"context"
	"time"
)

type FeedbackRepository interface {
	// SaveFeedback inserts or replaces the ticket with f.ID.
	SaveFeedback(ctx context.Context, f *Feedback) error
	// GetFeedback returns nil without error when no ticket has the id.
	GetFeedback(ctx context.Context, id string) (*Feedback, error)
}

type BlacklistRepository interface {
	SetBlacklist(ctx context.Context, userID string, until time.Time) error
	// GetBlacklist returns nil without error when the user is not listed.
	GetBlacklist(ctx context.Context, userID string) (*BlacklistEntry, error)
	DeleteBlacklist(ctx context.Context, userID string) error
}

type Repository interface {
	FeedbackRepository
	BlacklistRepository
}
