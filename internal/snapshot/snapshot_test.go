package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/foxseedlab/darkbot/internal/clock"
	"github.com/foxseedlab/darkbot/internal/config"
	"github.com/foxseedlab/darkbot/internal/discord"
	"github.com/foxseedlab/darkbot/internal/discord/discordtest"
	"github.com/foxseedlab/darkbot/internal/webhook"
)

type recordingSender struct {
	payloads []webhook.GuildSnapshotPayload
	err      error
}

func (s *recordingSender) SendGuildSnapshot(_ context.Context, p webhook.GuildSnapshotPayload) error {
	s.payloads = append(s.payloads, p)
	return s.err
}

func newWriter(t *testing.T) (*Writer, *discordtest.Client, *recordingSender, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "guilds.json")
	dc := discordtest.NewClient()
	dc.Guilds = []discord.GuildInfo{
		{ID: "2", Name: "Beta"},
		{ID: "1", Name: "Alpha", IconURL: "https://cdn/a.png"},
	}
	sender := &recordingSender{}
	clk := clock.NewFake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	return NewWriter(&config.Config{GuildSnapshotPath: path}, dc, sender, clk), dc, sender, path
}

func TestWrite(t *testing.T) {
	w, _, sender, path := newWriter(t)

	if err := w.Write(context.Background()); err != nil {
		t.Fatalf("Write: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read snapshot: %v", err)
	}
	var got struct {
		GeneratedAt string `json:"generated_at"`
		Count       int    `json:"count"`
		Guilds      []struct {
			ID      string  `json:"id"`
			Name    string  `json:"name"`
			IconURL *string `json:"icon_url"`
		} `json:"guilds"`
	}
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if got.GeneratedAt != "2026-03-01T12:00:00Z" || got.Count != 2 {
		t.Fatalf("unexpected header: %+v", got)
	}
	if got.Guilds[0].ID != "1" || got.Guilds[0].IconURL == nil || *got.Guilds[0].IconURL != "https://cdn/a.png" {
		t.Fatalf("unexpected first guild: %+v", got.Guilds[0])
	}
	if got.Guilds[1].IconURL != nil {
		t.Fatalf("expected null icon, got %v", *got.Guilds[1].IconURL)
	}
	if len(sender.payloads) != 1 || sender.payloads[0].Count != 2 {
		t.Fatalf("unexpected webhook payloads: %+v", sender.payloads)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("temporary files left behind: %v", entries)
	}
}

func TestWrite_ReplacesPreviousSnapshot(t *testing.T) {
	w, dc, _, path := newWriter(t)
	if err := w.Write(context.Background()); err != nil {
		t.Fatal(err)
	}

	dc.Guilds = dc.Guilds[:1]
	if err := w.Write(context.Background()); err != nil {
		t.Fatal(err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got webhook.GuildSnapshotPayload
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatal(err)
	}
	if got.Count != 1 || len(got.Guilds) != 1 {
		t.Fatalf("expected one guild after removal, got %+v", got)
	}
}

func TestWrite_WebhookError(t *testing.T) {
	w, _, sender, path := newWriter(t)
	sender.err = errors.New("down")

	if err := w.Write(context.Background()); err == nil {
		t.Fatal("expected webhook error")
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("file must still be written: %v", err)
	}
	w.Refresh(context.Background())
}

func TestWrite_UnwritableDirectory(t *testing.T) {
	w, _, sender, _ := newWriter(t)
	w.cfg.GuildSnapshotPath = filepath.Join(t.TempDir(), "missing", "guilds.json")

	if err := w.Write(context.Background()); err == nil {
		t.Fatal("expected error for missing directory")
	}
	if len(sender.payloads) != 0 {
		t.Fatal("webhook must not fire when the file could not be written")
	}
}
