package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	AIProviderCohere = "cohere"
	AIProviderOpenAI = "openai"
)

type Config struct {
	Env            string
	DiscordToken   string
	DiscordGuildID string
	BotOwnerID     string
	DatabaseURL    string
	RedisURL       string

	YtdlpPath         string
	FFmpegPath        string
	ResolveCacheTTL   time.Duration
	OEmbedTimeout     time.Duration
	OEmbedCacheTTL    time.Duration
	MusicInactivity   time.Duration
	MusicLogCapacity  int
	MusicVolume       int
	MusicPrefetchSize int

	AIProvider          string
	CohereAPIKey        string
	OpenAIAPIKey        string
	AIModel             string
	AIBaseURL           string
	AIInactivity        time.Duration
	AIRequestsPerMinute int

	SupportGuildID         string
	SupportChannelID       string
	SupportBugChannelID    string
	SupportIdeaChannelID   string
	SupportOtherChannelID  string
	SupportCategoryMapJSON string
	SupportIntakeChannelID string
	SupportInviteURL       string
	FeedbackCooldown       time.Duration

	GuildSnapshotPath       string
	GuildSnapshotWebhookURL string

	APIListenAddr string
	APISecret     string
}

func (c *Config) Validate() error {
	for _, req := range c.requiredFieldChecks() {
		if req.value == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}
	switch c.AIProvider {
	case AIProviderCohere, AIProviderOpenAI:
	default:
		return fmt.Errorf("AI_PROVIDER must be %q or %q, got %q", AIProviderCohere, AIProviderOpenAI, c.AIProvider)
	}
	for _, d := range c.positiveDurationChecks() {
		if d.value <= 0 {
			return fmt.Errorf("%s must be positive, got %s", d.name, d.value)
		}
	}
	if c.MusicLogCapacity <= 0 {
		return fmt.Errorf("MUSIC_LOG_CAPACITY must be positive, got %d", c.MusicLogCapacity)
	}
	if c.MusicVolume < 0 || c.MusicVolume > 200 {
		return fmt.Errorf("MUSIC_VOLUME must be between 0 and 200, got %d", c.MusicVolume)
	}
	if c.AIRequestsPerMinute <= 0 {
		return fmt.Errorf("AI_REQUESTS_PER_MINUTE must be positive, got %d", c.AIRequestsPerMinute)
	}
	if _, err := c.SupportCategoryMap(); err != nil {
		return err
	}
	return nil
}

type requiredEnvField struct {
	name  string
	value string
}

func (c *Config) requiredFieldChecks() []requiredEnvField {
	return []requiredEnvField{
		{name: "DISCORD_TOKEN", value: c.DiscordToken},
		{name: "YTDLP_PATH", value: c.YtdlpPath},
		{name: "FFMPEG_PATH", value: c.FFmpegPath},
		{name: "GUILD_SNAPSHOT_PATH", value: c.GuildSnapshotPath},
	}
}

type positiveDurationField struct {
	name  string
	value time.Duration
}

func (c *Config) positiveDurationChecks() []positiveDurationField {
	return []positiveDurationField{
		{name: "RESOLVE_CACHE_TTL_SEC", value: c.ResolveCacheTTL},
		{name: "OEMBED_TIMEOUT_MS", value: c.OEmbedTimeout},
		{name: "OEMBED_CACHE_TTL_SEC", value: c.OEmbedCacheTTL},
		{name: "MUSIC_INACTIVITY_MIN", value: c.MusicInactivity},
		{name: "AI_INACTIVITY_MIN", value: c.AIInactivity},
		{name: "FEEDBACK_COOLDOWN_SEC", value: c.FeedbackCooldown},
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c *Config) APIEnabled() bool {
	return c.APISecret != ""
}

// AIAPIKey returns the key of the selected provider.
func (c *Config) AIAPIKey() string {
	if c.AIProvider == AIProviderOpenAI {
		return c.OpenAIAPIKey
	}
	return c.CohereAPIKey
}

func (c *Config) SupportCategoryMap() (map[string]string, error) {
	raw := strings.TrimSpace(c.SupportCategoryMapJSON)
	if raw == "" {
		return map[string]string{}, nil
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("SUPPORT_CATEGORY_MAP must be a JSON object of strings: %w", err)
	}
	return m, nil
}

// SupportChannelFor picks the support channel for a normalized feedback
// category: the JSON map first, then the per-category variable, then the
// default channel.
func (c *Config) SupportChannelFor(category string) string {
	if m, err := c.SupportCategoryMap(); err == nil {
		if id := strings.TrimSpace(m[category]); id != "" {
			return id
		}
	}
	var perCategory string
	switch category {
	case "bug":
		perCategory = c.SupportBugChannelID
	case "idea":
		perCategory = c.SupportIdeaChannelID
	case "other":
		perCategory = c.SupportOtherChannelID
	}
	if perCategory != "" {
		return perCategory
	}
	return c.SupportChannelID
}
