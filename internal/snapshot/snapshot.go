// Package snapshot keeps a JSON listing of the guilds the bot is in.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/foxseedlab/darkbot/internal/clock"
	"github.com/foxseedlab/darkbot/internal/config"
	"github.com/foxseedlab/darkbot/internal/discord"
	"github.com/foxseedlab/darkbot/internal/webhook"
)

type Writer struct {
	cfg     *config.Config
	discord discord.Client
	sender  webhook.Sender
	clock   clock.Clock

	// mu keeps concurrent refreshes from interleaving file writes.
	mu sync.Mutex
}

func NewWriter(cfg *config.Config, dc discord.Client, sender webhook.Sender, clk clock.Clock) *Writer {
	return &Writer{cfg: cfg, discord: dc, sender: sender, clock: clk}
}

// Build lists the current guilds ordered by id.
func (w *Writer) Build() webhook.GuildSnapshotPayload {
	guilds := w.discord.ListGuilds()
	sort.Slice(guilds, func(i, j int) bool { return guilds[i].ID < guilds[j].ID })

	entries := make([]webhook.GuildEntry, 0, len(guilds))
	for _, g := range guilds {
		e := webhook.GuildEntry{ID: g.ID, Name: g.Name}
		if g.IconURL != "" {
			icon := g.IconURL
			e.IconURL = &icon
		}
		entries = append(entries, e)
	}
	return webhook.GuildSnapshotPayload{
		GeneratedAt: w.clock.Now().UTC(),
		Count:       len(entries),
		Guilds:      entries,
	}
}

// Write saves the snapshot to the configured path and posts it to the
// webhook when one is set.
func (w *Writer) Write(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	payload := w.Build()
	b, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode guild snapshot: %w", err)
	}
	if err := writeFileAtomic(w.cfg.GuildSnapshotPath, b); err != nil {
		return fmt.Errorf("failed to write guild snapshot: %w", err)
	}
	slog.Info("saved guild snapshot", "count", payload.Count, "path", w.cfg.GuildSnapshotPath)

	if err := w.sender.SendGuildSnapshot(ctx, payload); err != nil {
		return fmt.Errorf("failed to send guild snapshot webhook: %w", err)
	}
	return nil
}

// Refresh is Write for event handlers: errors are logged, never returned.
func (w *Writer) Refresh(ctx context.Context) {
	if err := w.Write(ctx); err != nil {
		slog.Error("guild snapshot refresh failed", "error", err)
	}
}

// writeFileAtomic replaces path with data so readers never observe a
// partial file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
