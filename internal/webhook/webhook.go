package webhook

import (
	"context"
	"time"
)

type GuildEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// IconURL is null for guilds without an icon.
	IconURL *string `json:"icon_url"`
}

type GuildSnapshotPayload struct {
	GeneratedAt time.Time    `json:"generated_at"`
	Count       int          `json:"count"`
	Guilds      []GuildEntry `json:"guilds"`
}

type Sender interface {
	SendGuildSnapshot(ctx context.Context, payload GuildSnapshotPayload) error
}
