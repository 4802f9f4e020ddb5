package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	internalconfig "github.com/foxseedlab/darkbot/internal/config"
	"github.com/joho/godotenv"
)

type envConfig struct {
	Env            string `env:"ENV" envDefault:"production"`
	DiscordToken   string `env:"DISCORD_TOKEN,required"`
	DiscordGuildID string `env:"DISCORD_GUILD_ID"`
	BotOwnerID     string `env:"BOT_OWNER_ID"`
	DatabaseURL    string `env:"DATABASE_URL"`
	RedisURL       string `env:"REDIS_URL"`

	YtdlpPath          string `env:"YTDLP_PATH" envDefault:"yt-dlp"`
	FFmpegPath         string `env:"FFMPEG_PATH" envDefault:"ffmpeg"`
	ResolveCacheTTLSec int    `env:"RESOLVE_CACHE_TTL_SEC" envDefault:"300"`
	OEmbedTimeoutMs    int    `env:"OEMBED_TIMEOUT_MS" envDefault:"350"`
	OEmbedCacheTTLSec  int    `env:"OEMBED_CACHE_TTL_SEC" envDefault:"600"`
	MusicInactivityMin int    `env:"MUSIC_INACTIVITY_MIN" envDefault:"10"`
	MusicLogCapacity   int    `env:"MUSIC_LOG_CAPACITY" envDefault:"100"`
	MusicVolume        int    `env:"MUSIC_VOLUME" envDefault:"50"`
	MusicPrefetchSize  int    `env:"MUSIC_PREFETCH" envDefault:"2"`

	AIProvider          string `env:"AI_PROVIDER" envDefault:"cohere"`
	CohereAPIKey        string `env:"COHERE_API_KEY"`
	OpenAIAPIKey        string `env:"OPENAI_API_KEY"`
	AIModel             string `env:"AI_MODEL"`
	AIBaseURL           string `env:"AI_BASE_URL"`
	AIInactivityMin     int    `env:"AI_INACTIVITY_MIN" envDefault:"5"`
	AIRequestsPerMinute int    `env:"AI_REQUESTS_PER_MINUTE" envDefault:"30"`

	SupportGuildID         string `env:"SUPPORT_GUILD_ID"`
	FeedbackGuildID        string `env:"FEEDBACK_GUILD_ID"`
	SupportChannelID       string `env:"SUPPORT_CHANNEL_ID"`
	SupportBugChannelID    string `env:"SUPPORT_CH_BUG"`
	SupportIdeaChannelID   string `env:"SUPPORT_CH_IDEA"`
	SupportOtherChannelID  string `env:"SUPPORT_CH_OTHER"`
	SupportCategoryMapJSON string `env:"SUPPORT_CATEGORY_MAP"`
	SupportIntakeChannelID string `env:"SUPPORT_INTAKE_CHANNEL_ID"`
	SupportInviteURL       string `env:"SUPPORT_INVITE_URL"`
	SupportInviteCode      string `env:"SUPPORT_INVITE_CODE"`
	FeedbackCooldownSec    int    `env:"FEEDBACK_COOLDOWN_SEC" envDefault:"60"`

	GuildSnapshotPath       string `env:"GUILD_SNAPSHOT_PATH" envDefault:"guilds.json"`
	GuildSnapshotWebhookURL string `env:"GUILD_SNAPSHOT_WEBHOOK_URL"`

	APIListenAddr string `env:"API_LISTEN_ADDR" envDefault:":3000"`
	APISecret     string `env:"API_SECRET"`
}

const defaultCohereModel = "command-a-03-2025"
const defaultOpenAIModel = "gpt-4o-mini"

// Load reads .env (when present) and the process environment.
func Load() (*internalconfig.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load .env file", "error", err)
	}

	var raw envConfig
	if err := env.Parse(&raw); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}

	cfg := &internalconfig.Config{
		Env:            raw.Env,
		DiscordToken:   raw.DiscordToken,
		DiscordGuildID: raw.DiscordGuildID,
		BotOwnerID:     raw.BotOwnerID,
		DatabaseURL:    raw.DatabaseURL,
		RedisURL:       raw.RedisURL,

		YtdlpPath:         raw.YtdlpPath,
		FFmpegPath:        raw.FFmpegPath,
		ResolveCacheTTL:   time.Duration(raw.ResolveCacheTTLSec) * time.Second,
		OEmbedTimeout:     time.Duration(raw.OEmbedTimeoutMs) * time.Millisecond,
		OEmbedCacheTTL:    time.Duration(raw.OEmbedCacheTTLSec) * time.Second,
		MusicInactivity:   time.Duration(raw.MusicInactivityMin) * time.Minute,
		MusicLogCapacity:  raw.MusicLogCapacity,
		MusicVolume:       raw.MusicVolume,
		MusicPrefetchSize: raw.MusicPrefetchSize,

		AIProvider:          strings.ToLower(strings.TrimSpace(raw.AIProvider)),
		CohereAPIKey:        raw.CohereAPIKey,
		OpenAIAPIKey:        raw.OpenAIAPIKey,
		AIModel:             raw.AIModel,
		AIBaseURL:           raw.AIBaseURL,
		AIInactivity:        time.Duration(raw.AIInactivityMin) * time.Minute,
		AIRequestsPerMinute: raw.AIRequestsPerMinute,

		SupportGuildID:         firstNonEmpty(raw.SupportGuildID, raw.FeedbackGuildID),
		SupportChannelID:       raw.SupportChannelID,
		SupportBugChannelID:    raw.SupportBugChannelID,
		SupportIdeaChannelID:   raw.SupportIdeaChannelID,
		SupportOtherChannelID:  raw.SupportOtherChannelID,
		SupportCategoryMapJSON: raw.SupportCategoryMapJSON,
		SupportIntakeChannelID: raw.SupportIntakeChannelID,
		SupportInviteURL:       supportInviteURL(raw.SupportInviteURL, raw.SupportInviteCode),
		FeedbackCooldown:       time.Duration(raw.FeedbackCooldownSec) * time.Second,

		GuildSnapshotPath:       raw.GuildSnapshotPath,
		GuildSnapshotWebhookURL: raw.GuildSnapshotWebhookURL,

		APIListenAddr: raw.APIListenAddr,
		APISecret:     raw.APISecret,
	}
	if cfg.AIModel == "" {
		cfg.AIModel = defaultModel(cfg.AIProvider)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultModel(provider string) string {
	if provider == internalconfig.AIProviderOpenAI {
		return defaultOpenAIModel
	}
	return defaultCohereModel
}

func supportInviteURL(url, code string) string {
	if url = strings.TrimSpace(url); url != "" {
		return url
	}
	if code = strings.TrimSpace(code); code != "" {
		return "https://discord.gg/" + code
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
