package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	discordpkg "github.com/foxseedlab/darkbot/internal/discord"
)

const guildIconSize = "128"

type Client struct {
	session   *discordgo.Session
	token     string
	botUserID string

	mu        sync.Mutex
	pending   []func(s *discordgo.Session)
	runDone   chan struct{}
	closeOnce sync.Once
}

func NewClient(token string) discordpkg.Client {
	return &Client{
		token:   token,
		runDone: make(chan struct{}),
	}
}

// Connect opens the gateway. Handlers registered before Connect are attached
// to the session before it opens, so no early event is lost.
func (c *Client) Connect(ctx context.Context) error {
	s, err := discordgo.New("Bot " + c.token)
	if err != nil {
		return err
	}
	s.Identify.Intents = discordgo.MakeIntent(
		discordgo.IntentsGuilds |
			discordgo.IntentsGuildMessages |
			discordgo.IntentsMessageContent |
			discordgo.IntentsGuildVoiceStates |
			discordgo.IntentsGuildMembers |
			discordgo.IntentsDirectMessages,
	)
	s.State.TrackVoice = true
	s.State.TrackMembers = true
	s.State.TrackRoles = true

	c.mu.Lock()
	c.session = s
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()
	for _, attach := range pending {
		attach(s)
	}

	opened := make(chan error, 1)
	go func() { opened <- s.Open() }()
	select {
	case err := <-opened:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		return fmt.Errorf("discord gateway open: %w", ctx.Err())
	}

	userID, err := c.GetBotUserID()
	if err != nil {
		return err
	}
	c.botUserID = userID
	return nil
}

func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		if c.session != nil {
			err = c.session.Close()
		}
		close(c.runDone)
	})
	return err
}

// Run blocks until Close is called.
func (c *Client) Run() error {
	<-c.runDone
	return nil
}

func (c *Client) Latency() time.Duration {
	if c.session == nil {
		return 0
	}
	return c.session.HeartbeatLatency()
}

// addHandler attaches immediately when connected, otherwise on Connect.
func (c *Client) addHandler(attach func(s *discordgo.Session)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		attach(c.session)
		return
	}
	c.pending = append(c.pending, attach)
}

func (c *Client) RegisterVoiceStateUpdateHandler(handler func(discordpkg.VoiceStateEvent)) {
	c.addHandler(func(s *discordgo.Session) {
		s.AddHandler(func(s *discordgo.Session, vs *discordgo.VoiceStateUpdate) {
			if vs == nil || vs.VoiceState == nil {
				return
			}
			beforeChannelID := ""
			if vs.BeforeUpdate != nil {
				beforeChannelID = vs.BeforeUpdate.ChannelID
			}
			afterChannelID := vs.ChannelID
			if beforeChannelID == afterChannelID && beforeChannelID != "" {
				return
			}
			if vs.GuildID == "" || vs.UserID == "" {
				return
			}
			handler(discordpkg.VoiceStateEvent{
				GuildID:         vs.GuildID,
				UserID:          vs.UserID,
				UserIsBot:       c.resolveUserIsBot(vs.GuildID, vs.UserID, vs.VoiceState),
				BeforeChannelID: beforeChannelID,
				AfterChannelID:  afterChannelID,
			})
		})
	})
}

func (c *Client) RegisterMessageHandler(handler func(discordpkg.MessageEvent)) {
	c.addHandler(func(s *discordgo.Session) {
		s.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
			if m == nil || m.Message == nil || m.Author == nil {
				return
			}
			event := discordpkg.MessageEvent{
				ID:        m.ID,
				GuildID:   m.GuildID,
				ChannelID: m.ChannelID,
				AuthorID:  m.Author.ID,
				AuthorBot: m.Author.Bot,
				Content:   m.Content,
			}
			if m.MessageReference != nil {
				event.ReferenceID = m.MessageReference.MessageID
			}
			handler(event)
		})
	})
}

func (c *Client) RegisterGuildsChangedHandler(handler func()) {
	c.addHandler(func(s *discordgo.Session) {
		s.AddHandler(func(s *discordgo.Session, g *discordgo.GuildCreate) {
			handler()
		})
		s.AddHandler(func(s *discordgo.Session, g *discordgo.GuildDelete) {
			handler()
		})
	})
}

func (c *Client) RegisterReadyHandler(handler func()) {
	c.addHandler(func(s *discordgo.Session) {
		s.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
			slog.Info("discord gateway ready", "user", r.User.Username, "guilds", len(r.Guilds))
			handler()
		})
	})
}

func (c *Client) UpsertSlashCommands(guildID string, defs []discordpkg.SlashCommandDefinition) error {
	appID := c.applicationID()
	if appID == "" {
		return fmt.Errorf("discord application id is not available")
	}
	existing, err := c.session.ApplicationCommands(appID, guildID)
	if err != nil {
		return err
	}
	existingByName := make(map[string]*discordgo.ApplicationCommand, len(existing))
	for _, cmd := range existing {
		if cmd == nil || cmd.Name == "" {
			continue
		}
		existingByName[cmd.Name] = cmd
	}
	for _, def := range defs {
		if err := c.upsertSlashCommand(appID, guildID, def, existingByName); err != nil {
			return fmt.Errorf("upsert command %s: %w", def.Name, err)
		}
	}
	return nil
}

func (c *Client) upsertSlashCommand(appID, guildID string, def discordpkg.SlashCommandDefinition, existingByName map[string]*discordgo.ApplicationCommand) error {
	if def.Name == "" {
		return nil
	}
	payload := toApplicationCommand(def)
	cmd, ok := existingByName[def.Name]
	if !ok {
		_, err := c.session.ApplicationCommandCreate(appID, guildID, payload)
		return err
	}
	if !commandChanged(cmd, payload) {
		return nil
	}
	_, err := c.session.ApplicationCommandEdit(appID, guildID, cmd.ID, payload)
	return err
}

func toApplicationCommand(def discordpkg.SlashCommandDefinition) *discordgo.ApplicationCommand {
	dm := def.DMAllowed
	cmd := &discordgo.ApplicationCommand{
		Name:         def.Name,
		Description:  def.Description,
		DMPermission: &dm,
	}
	for _, opt := range def.Options {
		cmd.Options = append(cmd.Options, &discordgo.ApplicationCommandOption{
			Type:        toOptionType(opt.Type),
			Name:        opt.Name,
			Description: opt.Description,
			Required:    opt.Required,
		})
	}
	return cmd
}

func toOptionType(t discordpkg.CommandOptionType) discordgo.ApplicationCommandOptionType {
	switch t {
	case discordpkg.OptionInteger:
		return discordgo.ApplicationCommandOptionInteger
	case discordpkg.OptionBoolean:
		return discordgo.ApplicationCommandOptionBoolean
	case discordpkg.OptionUser:
		return discordgo.ApplicationCommandOptionUser
	default:
		return discordgo.ApplicationCommandOptionString
	}
}

func commandChanged(existing, want *discordgo.ApplicationCommand) bool {
	if existing.Description != want.Description || len(existing.Options) != len(want.Options) {
		return true
	}
	for i, opt := range want.Options {
		cur := existing.Options[i]
		if cur == nil || cur.Name != opt.Name || cur.Type != opt.Type || cur.Required != opt.Required || cur.Description != opt.Description {
			return true
		}
	}
	return false
}

func (c *Client) ListGuilds() []discordpkg.GuildInfo {
	if c.session == nil || c.session.State == nil {
		return nil
	}
	c.session.State.RLock()
	defer c.session.State.RUnlock()
	guilds := make([]discordpkg.GuildInfo, 0, len(c.session.State.Guilds))
	for _, g := range c.session.State.Guilds {
		if g == nil {
			continue
		}
		guilds = append(guilds, toGuildInfo(g))
	}
	return guilds
}

func (c *Client) GetGuild(guildID string) (discordpkg.GuildInfo, error) {
	guild := c.resolveGuild(guildID)
	if guild == nil {
		return discordpkg.GuildInfo{ID: guildID, Name: guildID}, fmt.Errorf("guild %s not found", guildID)
	}
	return toGuildInfo(guild), nil
}

func toGuildInfo(g *discordgo.Guild) discordpkg.GuildInfo {
	info := discordpkg.GuildInfo{ID: g.ID, Name: g.Name, OwnerID: g.OwnerID}
	if g.Icon != "" {
		info.IconURL = g.IconURL(guildIconSize)
	}
	return info
}

func (c *Client) GetUserVoiceChannelID(guildID, userID string) (string, error) {
	if c.session == nil {
		return "", nil
	}
	if c.session.State != nil {
		vs, err := c.session.State.VoiceState(guildID, userID)
		if err == nil && vs != nil {
			return vs.ChannelID, nil
		}
		guild, err := c.session.State.Guild(guildID)
		if err == nil && guild != nil {
			for _, state := range guild.VoiceStates {
				if state != nil && state.UserID == userID {
					return state.ChannelID, nil
				}
			}
		}
	}

	// Cache may be cold right after bot startup; ask Discord API directly as fallback.
	vs, err := c.session.UserVoiceState(guildID, userID)
	if err != nil {
		if isRESTNotFound(err) {
			return "", nil
		}
		return "", err
	}
	if vs == nil {
		return "", nil
	}
	return vs.ChannelID, nil
}

func isRESTNotFound(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return false
	}
	if restErr.Response == nil {
		return false
	}
	return restErr.Response.StatusCode == http.StatusNotFound
}

func (c *Client) ListVoiceChannelParticipants(guildID, channelID string) ([]discordpkg.VoiceParticipant, error) {
	if c.session == nil || c.session.State == nil {
		return nil, nil
	}
	guild, err := c.session.State.Guild(guildID)
	if err != nil || guild == nil {
		return nil, nil
	}
	participants := make([]discordpkg.VoiceParticipant, 0)
	seen := make(map[string]struct{})
	for _, state := range guild.VoiceStates {
		if state == nil || state.ChannelID != channelID || state.UserID == "" {
			continue
		}
		if _, exists := seen[state.UserID]; exists {
			continue
		}
		seen[state.UserID] = struct{}{}
		participants = append(participants, discordpkg.VoiceParticipant{
			UserID: state.UserID,
			IsBot:  c.resolveUserIsBot(guildID, state.UserID, state),
		})
	}
	return participants, nil
}

func (c *Client) ChannelName(channelID string) string {
	channel := c.resolveChannel(channelID)
	if channel == nil {
		return channelID
	}
	return channel.Name
}

func (c *Client) BotChannelPermissions(channelID string) (int64, error) {
	if c.session == nil || c.session.State == nil {
		return 0, fmt.Errorf("discord session is not initialized")
	}
	botID, err := c.GetBotUserID()
	if err != nil {
		return 0, err
	}
	return c.session.State.UserChannelPermissions(botID, channelID)
}

func (c *Client) GetBotUserID() (string, error) {
	if c.botUserID != "" {
		return c.botUserID, nil
	}
	if c.session == nil {
		return "", fmt.Errorf("discord session is not initialized")
	}
	if c.session.State != nil && c.session.State.User != nil && c.session.State.User.ID != "" {
		c.botUserID = c.session.State.User.ID
		return c.botUserID, nil
	}
	u, err := c.session.User("@me")
	if err != nil {
		return "", err
	}
	c.botUserID = u.ID
	return c.botUserID, nil
}

func (c *Client) resolveUserIsBot(guildID, userID string, state *discordgo.VoiceState) bool {
	if isBot, ok := botFlagFromVoiceState(state); ok {
		return isBot
	}
	if isBot, ok := c.botFlagFromSessionState(guildID, userID); ok {
		return isBot
	}
	return c.botFlagFromUserAPI(userID)
}

func botFlagFromVoiceState(state *discordgo.VoiceState) (bool, bool) {
	if state != nil && state.Member != nil && state.Member.User != nil {
		return state.Member.User.Bot, true
	}
	return false, false
}

func (c *Client) botFlagFromSessionState(guildID, userID string) (bool, bool) {
	if c.session == nil || c.session.State == nil {
		return false, false
	}
	if c.session.State.User != nil && c.session.State.User.ID == userID {
		return true, true
	}
	member, err := c.session.State.Member(guildID, userID)
	if err == nil && member != nil && member.User != nil {
		return member.User.Bot, true
	}
	return false, false
}

func (c *Client) botFlagFromUserAPI(userID string) bool {
	u, err := c.session.User(userID)
	if err != nil {
		return false
	}
	return u.Bot
}

func (c *Client) resolveGuild(guildID string) *discordgo.Guild {
	if c.session == nil {
		return nil
	}
	if c.session.State != nil {
		guild, err := c.session.State.Guild(guildID)
		if err == nil && guild != nil && guild.Name != "" {
			return guild
		}
	}
	guild, err := c.session.Guild(guildID)
	if err != nil || guild == nil {
		return nil
	}
	if guild.Name == "" {
		return nil
	}
	return guild
}

func (c *Client) resolveChannel(channelID string) *discordgo.Channel {
	if c.session == nil {
		return nil
	}
	if c.session.State != nil {
		channel, err := c.session.State.Channel(channelID)
		if err == nil && channel != nil && channel.Name != "" {
			return channel
		}
	}
	channel, err := c.session.Channel(channelID)
	if err != nil || channel == nil {
		return nil
	}
	return channel
}

func (c *Client) applicationID() string {
	if c.session == nil || c.session.State == nil {
		return ""
	}
	if c.session.State.Application != nil && c.session.State.Application.ID != "" {
		return c.session.State.Application.ID
	}
	if c.session.State.User != nil {
		return c.session.State.User.ID
	}
	return ""
}

func userTag(u *discordgo.User) string {
	if u == nil {
		return ""
	}
	if u.Discriminator == "" || u.Discriminator == "0" {
		return u.Username
	}
	return u.Username + "#" + u.Discriminator
}

func toUserInfo(u *discordgo.User) discordpkg.UserInfo {
	if u == nil {
		return discordpkg.UserInfo{}
	}
	return discordpkg.UserInfo{
		ID:        u.ID,
		Tag:       userTag(u),
		AvatarURL: u.AvatarURL("128"),
		Bot:       u.Bot,
	}
}
