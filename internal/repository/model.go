package repository

import "time"

type FeedbackStatus string

const (
	FeedbackStatusOpen      FeedbackStatus = "open"
	FeedbackStatusResolved  FeedbackStatus = "resolved"
	FeedbackStatusAbandoned FeedbackStatus = "abandoned"
)

// Feedback is one support ticket and where its messages live.
type Feedback struct {
	ID       string
	UserID   string
	UserTag  string
	Content  string
	Category string

	OriginGuildID   string
	OriginGuildName string
	OriginIconURL   string

	SupportGuildID   string
	SupportChannelID string
	SupportMessageID string
	ThreadID         string
	DMChannelID      string
	DMMessageID      string

	Status         FeedbackStatus
	MoreShown      bool
	LastStaffReply string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (f *Feedback) Closed() bool {
	return f.Status == FeedbackStatusResolved || f.Status == FeedbackStatusAbandoned
}

func (f *Feedback) Abandoned() bool {
	return f.Status == FeedbackStatusAbandoned
}

type BlacklistEntry struct {
	UserID    string
	Until     time.Time
	CreatedAt time.Time
}
