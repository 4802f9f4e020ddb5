package discord

import (
	"context"
	"time"
)

type CommandOptionType int

const (
	OptionString CommandOptionType = iota
	OptionInteger
	OptionBoolean
	OptionUser
)

type CommandOption struct {
	Name        string
	Description string
	Type        CommandOptionType
	Required    bool
}

type SlashCommandDefinition struct {
	Name        string
	Description string
	Options     []CommandOption
	// DMAllowed registers the command for direct messages as well.
	DMAllowed bool
}

type VoiceStateEvent struct {
	GuildID         string
	UserID          string
	UserIsBot       bool
	BeforeChannelID string
	AfterChannelID  string
}

type VoiceParticipant struct {
	UserID string
	IsBot  bool
}

type MessageEvent struct {
	ID          string
	GuildID     string
	ChannelID   string
	AuthorID    string
	AuthorBot   bool
	Content     string
	ReferenceID string
}

type GuildInfo struct {
	ID      string
	Name    string
	IconURL string
	OwnerID string
}

type UserInfo struct {
	ID        string
	Tag       string
	AvatarURL string
	Bot       bool
}

// Member carries what moderation checks need about a guild member.
type Member struct {
	User            UserInfo
	Found           bool
	TopRolePosition int
}

type Message struct {
	ID        string
	ChannelID string
	GuildID   string
	AuthorID  string
	AuthorBot bool
	Content   string
	Embeds    []Embed
	// ButtonIDs lists the custom ids of every button on the message.
	ButtonIDs []string
	Pinned    bool
	CreatedAt time.Time
}

type Client interface {
	Connect(ctx context.Context) error
	Close() error
	Run() error
	GetBotUserID() (string, error)
	Latency() time.Duration
	UpsertSlashCommands(guildID string, defs []SlashCommandDefinition) error

	RegisterInteractionHandler(handler func(Interaction))
	RegisterMessageHandler(handler func(MessageEvent))
	RegisterVoiceStateUpdateHandler(handler func(VoiceStateEvent))
	RegisterGuildsChangedHandler(handler func())
	RegisterReadyHandler(handler func())

	ListGuilds() []GuildInfo
	GetGuild(guildID string) (GuildInfo, error)

	JoinVoiceChannel(guildID, channelID string) (VoiceConnection, error)
	GetUserVoiceChannelID(guildID, userID string) (string, error)
	ListVoiceChannelParticipants(guildID, channelID string) ([]VoiceParticipant, error)
	ChannelName(channelID string) string
	BotChannelPermissions(channelID string) (int64, error)

	SendMessage(channelID string, msg MessagePayload) (Message, error)
	EditMessage(channelID, messageID string, msg MessagePayload) error
	FetchMessage(channelID, messageID string) (Message, error)
	ListMessages(channelID string, limit int) ([]Message, error)
	DeleteMessage(channelID, messageID string) error
	PinMessage(channelID, messageID string) error
	ReplyToMessage(channelID, messageID, content string) (Message, error)
	SendTyping(channelID string) error
	BulkDeleteMessages(channelID string, count int) (int, error)

	SendDirectMessage(userID string, msg MessagePayload) (Message, error)
	GetUser(userID string) (UserInfo, error)
	IsTextChannel(channelID string) bool
	ChannelExists(channelID string) bool
	StartPrivateThread(channelID, name string) (string, error)
	AddThreadMember(threadID, userID string) error
	DeleteChannel(channelID string) error

	GetMember(guildID, userID string) (Member, error)
	BotMember(guildID string) (Member, error)
	BotGuildPermissions(guildID string) (int64, error)
	BanMember(guildID, userID, reason string) error
	KickMember(guildID, userID, reason string) error
	TimeoutMember(guildID, userID string, until time.Time, reason string) error
}

type VoiceConnection interface {
	ChannelID() string
	Speaking(on bool) error
	SendOpusFrame(ctx context.Context, frame []byte) error
	Disconnect() error
}
