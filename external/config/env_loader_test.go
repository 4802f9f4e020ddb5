package config

import (
	"testing"
	"time"
)

func TestLoad_DefaultsAndFallbacks(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("FEEDBACK_GUILD_ID", "support-guild")
	t.Setenv("SUPPORT_INVITE_CODE", "abc")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.SupportGuildID != "support-guild" {
		t.Fatalf("expected FEEDBACK_GUILD_ID fallback, got %q", cfg.SupportGuildID)
	}
	if cfg.SupportInviteURL != "https://discord.gg/abc" {
		t.Fatalf("unexpected invite url: %q", cfg.SupportInviteURL)
	}
	if cfg.MusicInactivity != 10*time.Minute {
		t.Fatalf("unexpected inactivity window: %s", cfg.MusicInactivity)
	}
	if cfg.ResolveCacheTTL != 5*time.Minute {
		t.Fatalf("unexpected resolve ttl: %s", cfg.ResolveCacheTTL)
	}
	if cfg.AIModel != defaultCohereModel {
		t.Fatalf("unexpected default model: %q", cfg.AIModel)
	}
}

func TestLoad_MissingToken(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DISCORD_TOKEN", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error when DISCORD_TOKEN is empty")
	}
}

func TestLoad_OpenAIDefaultModel(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("AI_PROVIDER", "OpenAI")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.AIModel != defaultOpenAIModel {
		t.Fatalf("unexpected model: %q", cfg.AIModel)
	}
}
