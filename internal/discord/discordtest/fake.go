// Package discordtest provides in-memory fakes of the discord ports for
// package tests.
package discordtest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/foxseedlab/darkbot/internal/discord"
)

type SentMessage struct {
	ChannelID string
	MessageID string
	Payload   discord.MessagePayload
}

type Moderation struct {
	Action  string
	GuildID string
	UserID  string
	Reason  string
	Until   time.Time
}

// Client is a recording fake of discord.Client. Maps may be filled directly
// before use; all methods are safe for concurrent use.
type Client struct {
	mu sync.Mutex

	BotUserID     string
	UserVoice     map[string]string
	Participants  map[string][]discord.VoiceParticipant
	ChannelNames  map[string]string
	ChannelPerms  map[string]int64
	TextChannels  map[string]bool
	Guilds        []discord.GuildInfo
	Users         map[string]discord.UserInfo
	Members       map[string]discord.Member
	BotGuildPerms int64
	Messages      map[string][]discord.Message
	JoinErr       error
	SendErr       error

	Sent       []SentMessage
	Edits      []SentMessage
	Deleted    []string
	Pinned     []string
	DMs        []SentMessage
	Replies    []SentMessage
	Threads    []string
	ThreadAdds []string
	Moderated  []Moderation
	Joined     []string
	Voices     []*VoiceConnection
	Upserted   []discord.SlashCommandDefinition

	// UpsertGuildID is the scope of the last UpsertSlashCommands call.
	UpsertGuildID string

	// Registered event handlers; nil until the code under test registers.
	OnInteraction   func(discord.Interaction)
	OnMessage       func(discord.MessageEvent)
	OnVoiceState    func(discord.VoiceStateEvent)
	OnGuildsChanged func()
	OnReady         func()

	seq int
}

var _ discord.Client = (*Client)(nil)

func NewClient() *Client {
	return &Client{
		BotUserID:    "bot",
		UserVoice:    map[string]string{},
		Participants: map[string][]discord.VoiceParticipant{},
		ChannelNames: map[string]string{},
		ChannelPerms: map[string]int64{},
		TextChannels: map[string]bool{},
		Users:        map[string]discord.UserInfo{},
		Members:      map[string]discord.Member{},
		Messages:     map[string][]discord.Message{},
	}
}

func (c *Client) nextID(prefix string) string {
	c.seq++
	return fmt.Sprintf("%s-%d", prefix, c.seq)
}

func (c *Client) Connect(context.Context) error { return nil }
func (c *Client) Close() error                  { return nil }
func (c *Client) Run() error                    { return nil }
func (c *Client) Latency() time.Duration        { return 42 * time.Millisecond }

func (c *Client) GetBotUserID() (string, error) { return c.BotUserID, nil }

func (c *Client) UpsertSlashCommands(guildID string, defs []discord.SlashCommandDefinition) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.UpsertGuildID = guildID
	c.Upserted = append(c.Upserted, defs...)
	return nil
}

func (c *Client) RegisterInteractionHandler(h func(discord.Interaction)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.OnInteraction = h
}

func (c *Client) RegisterMessageHandler(h func(discord.MessageEvent)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.OnMessage = h
}

func (c *Client) RegisterVoiceStateUpdateHandler(h func(discord.VoiceStateEvent)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.OnVoiceState = h
}

func (c *Client) RegisterGuildsChangedHandler(h func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.OnGuildsChanged = h
}

func (c *Client) RegisterReadyHandler(h func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.OnReady = h
}

func (c *Client) ListGuilds() []discord.GuildInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]discord.GuildInfo(nil), c.Guilds...)
}

func (c *Client) GetGuild(guildID string) (discord.GuildInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, g := range c.Guilds {
		if g.ID == guildID {
			return g, nil
		}
	}
	return discord.GuildInfo{ID: guildID, Name: guildID}, fmt.Errorf("guild %s not found", guildID)
}

func (c *Client) JoinVoiceChannel(guildID, channelID string) (discord.VoiceConnection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.JoinErr != nil {
		return nil, c.JoinErr
	}
	c.Joined = append(c.Joined, guildID+":"+channelID)
	c.UserVoice[c.BotUserID] = channelID
	vc := &VoiceConnection{client: c, channelID: channelID}
	c.Voices = append(c.Voices, vc)
	return vc, nil
}

func (c *Client) GetUserVoiceChannelID(_, userID string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.UserVoice[userID], nil
}

func (c *Client) SetUserVoice(userID, channelID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if channelID == "" {
		delete(c.UserVoice, userID)
		return
	}
	c.UserVoice[userID] = channelID
}

func (c *Client) ListVoiceChannelParticipants(_, channelID string) ([]discord.VoiceParticipant, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]discord.VoiceParticipant(nil), c.Participants[channelID]...), nil
}

func (c *Client) SetParticipants(channelID string, participants ...discord.VoiceParticipant) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Participants[channelID] = participants
}

func (c *Client) ChannelName(channelID string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if name, ok := c.ChannelNames[channelID]; ok {
		return name
	}
	return channelID
}

func (c *Client) BotChannelPermissions(channelID string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if perms, ok := c.ChannelPerms[channelID]; ok {
		return perms, nil
	}
	return discord.PermissionVoiceConnect | discord.PermissionVoiceSpeak | discord.PermissionSendMessages | discord.PermissionViewChannel, nil
}

func (c *Client) SendMessage(channelID string, msg discord.MessagePayload) (discord.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SendErr != nil {
		return discord.Message{}, c.SendErr
	}
	id := c.nextID("msg")
	c.Sent = append(c.Sent, SentMessage{ChannelID: channelID, MessageID: id, Payload: msg})
	m := discord.Message{ID: id, ChannelID: channelID, AuthorID: c.BotUserID, AuthorBot: true, Content: msg.Content, Embeds: msg.Embeds, CreatedAt: time.Now()}
	c.Messages[channelID] = append(c.Messages[channelID], m)
	return m, nil
}

func (c *Client) EditMessage(channelID, messageID string, msg discord.MessagePayload) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Edits = append(c.Edits, SentMessage{ChannelID: channelID, MessageID: messageID, Payload: msg})
	return nil
}

func (c *Client) FetchMessage(channelID, messageID string) (discord.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range c.Messages[channelID] {
		if m.ID == messageID {
			return m, nil
		}
	}
	return discord.Message{}, fmt.Errorf("message %s not found", messageID)
}

func (c *Client) ListMessages(channelID string, limit int) ([]discord.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	list := c.Messages[channelID]
	out := make([]discord.Message, 0, len(list))
	for i := len(list) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, list[i])
	}
	return out, nil
}

func (c *Client) AddMessage(m discord.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Messages[m.ChannelID] = append(c.Messages[m.ChannelID], m)
}

func (c *Client) DeleteMessage(channelID, messageID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Deleted = append(c.Deleted, channelID+"/"+messageID)
	return nil
}

func (c *Client) PinMessage(channelID, messageID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Pinned = append(c.Pinned, channelID+"/"+messageID)
	return nil
}

func (c *Client) ReplyToMessage(channelID, messageID, content string) (discord.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID("reply")
	c.Replies = append(c.Replies, SentMessage{ChannelID: channelID, MessageID: messageID, Payload: discord.Text(content)})
	m := discord.Message{ID: id, ChannelID: channelID, AuthorID: c.BotUserID, AuthorBot: true, Content: content, CreatedAt: time.Now()}
	c.Messages[channelID] = append(c.Messages[channelID], m)
	return m, nil
}

func (c *Client) SendTyping(string) error { return nil }

func (c *Client) BulkDeleteMessages(channelID string, count int) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.Messages[channelID])
	if count < n {
		n = count
	}
	c.Messages[channelID] = c.Messages[channelID][:len(c.Messages[channelID])-n]
	return n, nil
}

func (c *Client) SendDirectMessage(userID string, msg discord.MessagePayload) (discord.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID("dm")
	channelID := "dm-" + userID
	c.DMs = append(c.DMs, SentMessage{ChannelID: channelID, MessageID: id, Payload: msg})
	return discord.Message{ID: id, ChannelID: channelID, AuthorID: c.BotUserID, AuthorBot: true}, nil
}

func (c *Client) GetUser(userID string) (discord.UserInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if u, ok := c.Users[userID]; ok {
		return u, nil
	}
	return discord.UserInfo{ID: userID, Tag: userID}, nil
}

func (c *Client) IsTextChannel(channelID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.TextChannels[channelID]
}

func (c *Client) ChannelExists(channelID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.TextChannels[channelID] {
		return true
	}
	for _, t := range c.Threads {
		if t == channelID {
			return true
		}
	}
	return false
}

func (c *Client) StartPrivateThread(channelID, name string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextID("thread")
	c.Threads = append(c.Threads, id)
	return id, nil
}

func (c *Client) AddThreadMember(threadID, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ThreadAdds = append(c.ThreadAdds, threadID+":"+userID)
	return nil
}

func (c *Client) DeleteChannel(channelID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	kept := c.Threads[:0]
	for _, t := range c.Threads {
		if t != channelID {
			kept = append(kept, t)
		}
	}
	c.Threads = kept
	c.Deleted = append(c.Deleted, channelID)
	return nil
}

func (c *Client) GetMember(_, userID string) (discord.Member, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m, ok := c.Members[userID]; ok {
		return m, nil
	}
	return discord.Member{User: discord.UserInfo{ID: userID}}, nil
}

func (c *Client) BotMember(guildID string) (discord.Member, error) {
	return c.GetMember(guildID, c.BotUserID)
}

func (c *Client) BotGuildPermissions(string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.BotGuildPerms, nil
}

func (c *Client) BanMember(guildID, userID, reason string) error {
	return c.moderate(Moderation{Action: "ban", GuildID: guildID, UserID: userID, Reason: reason})
}

func (c *Client) KickMember(guildID, userID, reason string) error {
	return c.moderate(Moderation{Action: "kick", GuildID: guildID, UserID: userID, Reason: reason})
}

func (c *Client) TimeoutMember(guildID, userID string, until time.Time, reason string) error {
	return c.moderate(Moderation{Action: "timeout", GuildID: guildID, UserID: userID, Reason: reason, Until: until})
}

func (c *Client) moderate(m Moderation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Moderated = append(c.Moderated, m)
	return nil
}

// Snapshot helpers return copies for assertions.

func (c *Client) SentMessages() []SentMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]SentMessage(nil), c.Sent...)
}

func (c *Client) EditedMessages() []SentMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]SentMessage(nil), c.Edits...)
}

func (c *Client) LastEdit() (SentMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.Edits) == 0 {
		return SentMessage{}, false
	}
	return c.Edits[len(c.Edits)-1], true
}

type VoiceConnection struct {
	client       *Client
	channelID    string
	mu           sync.Mutex
	frames       int
	disconnected int
}

func (v *VoiceConnection) ChannelID() string { return v.channelID }

func (v *VoiceConnection) Speaking(bool) error { return nil }

func (v *VoiceConnection) SendOpusFrame(context.Context, []byte) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.frames++
	return nil
}

func (v *VoiceConnection) Disconnect() error {
	v.mu.Lock()
	v.disconnected++
	v.mu.Unlock()
	v.client.mu.Lock()
	delete(v.client.UserVoice, v.client.BotUserID)
	v.client.mu.Unlock()
	return nil
}

func (v *VoiceConnection) Disconnects() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.disconnected
}
