package moderation

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/foxseedlab/darkbot/internal/clock"
	"github.com/foxseedlab/darkbot/internal/config"
	"github.com/foxseedlab/darkbot/internal/discord"
)

type Service struct {
	cfg       *config.Config
	discord   discord.Client
	clock     clock.Clock
	startedAt time.Time
}

func NewService(cfg *config.Config, dc discord.Client, clk clock.Clock) *Service {
	return &Service{cfg: cfg, discord: dc, clock: clk, startedAt: clk.Now()}
}

// HandleCommand answers every command named in CommandNames.
func (s *Service) HandleCommand(_ context.Context, in discord.Interaction) error {
	switch in.CommandName {
	case CommandBan:
		return s.ban(in)
	case CommandKick:
		return s.kick(in)
	case CommandTimeout:
		return s.timeout(in)
	case CommandClear:
		return s.clear(in)
	case CommandPing:
		return s.ping(in)
	default:
		return fmt.Errorf("unsupported moderation command %q", in.CommandName)
	}
}

func (s *Service) isOwner(userID string) bool {
	return s.cfg.BotOwnerID != "" && userID == s.cfg.BotOwnerID
}

// allowed reports whether the caller holds perm in the guild or is the bot
// owner.
func (s *Service) allowed(in discord.Interaction, perm int64) bool {
	if s.isOwner(in.User.ID) {
		return true
	}
	return in.GuildID != "" && in.HasPermission(perm)
}

func (s *Service) botHas(guildID string, perm int64) bool {
	perms, err := s.discord.BotGuildPermissions(guildID)
	if err != nil {
		slog.Warn("failed to read bot permissions", "guild_id", guildID, "error", err)
		return false
	}
	return perms&discord.PermissionAdministrator != 0 || perms&perm != 0
}

func ephemeral(in discord.Interaction, content string) error {
	return in.Responder.Reply(discord.Text(content), true)
}

func (s *Service) ban(in discord.Interaction) error {
	if !s.allowed(in, discord.PermissionBanMembers) {
		return ephemeral(in, "You do not have permission to ban members.")
	}
	if !s.botHas(in.GuildID, discord.PermissionBanMembers) {
		return ephemeral(in, "I do not have permission to ban members.")
	}
	target, err := s.discord.GetMember(in.GuildID, in.Option("target"))
	if err != nil || !target.Found {
		return ephemeral(in, "I cannot find that user in this server.")
	}
	bot, err := s.discord.BotMember(in.GuildID)
	if err != nil {
		return fmt.Errorf("failed to get bot member: %w", err)
	}
	if target.TopRolePosition >= bot.TopRolePosition {
		return ephemeral(in, "I cannot ban this user because their role is higher than mine.")
	}

	if err := s.discord.BanMember(in.GuildID, target.User.ID, "Banned by "+in.User.Tag); err != nil {
		slog.Error("failed to ban member", "guild_id", in.GuildID, "user_id", target.User.ID, "error", err)
		return ephemeral(in, "I was unable to ban the user. Please ensure I have the necessary permissions.")
	}
	slog.Info("member banned", "guild_id", in.GuildID, "user_id", target.User.ID, "by", in.User.ID)
	return in.Responder.Reply(discord.MessagePayload{Embeds: []discord.Embed{{
		Title:       "🚫 User Banned",
		Description: fmt.Sprintf("%s has been banned from the server!", target.User.Tag),
		Color:       colorRed,
		Footer:      "Banned by " + in.User.Tag,
		Timestamp:   s.clock.Now(),
	}}}, false)
}

// kickable mirrors the platform rule: the bot needs Kick Members, the
// target must not own the guild and must sit below the bot's top role.
func (s *Service) kickable(guildID string, target discord.Member) bool {
	if !s.botHas(guildID, discord.PermissionKickMembers) {
		return false
	}
	if g, err := s.discord.GetGuild(guildID); err == nil && g.OwnerID == target.User.ID {
		return false
	}
	bot, err := s.discord.BotMember(guildID)
	if err != nil {
		return false
	}
	return target.TopRolePosition < bot.TopRolePosition
}

func (s *Service) kick(in discord.Interaction) error {
	if !s.allowed(in, discord.PermissionKickMembers) {
		return ephemeral(in, "You do not have permission to kick members.")
	}
	target, err := s.discord.GetMember(in.GuildID, in.Option("member"))
	if err != nil || !target.Found {
		return ephemeral(in, "I cannot find that member.")
	}
	if !s.kickable(in.GuildID, target) {
		return ephemeral(in, "I cannot kick this member. Ensure I have the necessary permissions.")
	}

	if err := s.discord.KickMember(in.GuildID, target.User.ID, "Kicked by "+in.User.Tag); err != nil {
		slog.Error("failed to kick member", "guild_id", in.GuildID, "user_id", target.User.ID, "error", err)
		return ephemeral(in, "Failed to kick the member.")
	}
	slog.Info("member kicked", "guild_id", in.GuildID, "user_id", target.User.ID, "by", in.User.ID)
	return in.Responder.Reply(discord.MessagePayload{Embeds: []discord.Embed{{
		Title:       "🔨 User Kicked",
		Description: fmt.Sprintf("%s has been kicked.", target.User.Tag),
		Color:       colorRed,
		Footer:      "Kicked by " + in.User.Tag,
		Timestamp:   s.clock.Now(),
	}}}, false)
}

func (s *Service) timeout(in discord.Interaction) error {
	if !s.allowed(in, discord.PermissionModerateMembers) {
		return ephemeral(in, "You do not have permission to timeout members.")
	}
	target, err := s.discord.GetMember(in.GuildID, in.Option("target"))
	if err != nil || !target.Found {
		return ephemeral(in, "I cannot find that member.")
	}
	if !s.botHas(in.GuildID, discord.PermissionModerateMembers) {
		return ephemeral(in, "I do not have the **Timeout Members** permission.")
	}
	if g, err := s.discord.GetGuild(in.GuildID); err == nil && g.OwnerID == target.User.ID {
		return ephemeral(in, "I cannot timeout the server owner.")
	}
	bot, err := s.discord.BotMember(in.GuildID)
	if err != nil {
		return fmt.Errorf("failed to get bot member: %w", err)
	}
	if bot.TopRolePosition <= target.TopRolePosition {
		return ephemeral(in, "I cannot timeout this user because their top role is higher than (or equal to) my top role.")
	}
	if target.User.ID == bot.User.ID {
		return ephemeral(in, "I cannot timeout myself.")
	}

	d, err := ParseDuration(in.Option("duration"))
	if err != nil {
		return ephemeral(in, msgInvalidDuration)
	}

	reason := strings.TrimSpace(in.Option("reason"))
	displayReason, auditReason := reason, reason
	if reason == "" {
		displayReason = "—"
		auditReason = "Timed out by " + in.User.Tag
	}

	until := s.clock.Now().Add(d)
	if err := s.discord.TimeoutMember(in.GuildID, target.User.ID, until, auditReason); err != nil {
		slog.Error("failed to timeout member", "guild_id", in.GuildID, "user_id", target.User.ID, "error", err)
		return ephemeral(in, "Unable to timeout the user. Check my permissions and role position.")
	}
	slog.Info("member timed out", "guild_id", in.GuildID, "user_id", target.User.ID, "duration", d, "by", in.User.ID)
	return in.Responder.Reply(discord.MessagePayload{Embeds: []discord.Embed{{
		Title:       "⏳ User Timed Out",
		Description: fmt.Sprintf("<@%s> has been timed out.", target.User.ID),
		Color:       colorOrange,
		Thumbnail:   target.User.AvatarURL,
		Fields: []discord.EmbedField{
			{Name: "Duration", Value: formatDuration(d), Inline: true},
			{Name: "Reason", Value: displayReason, Inline: true},
		},
		Footer:    "Requested by " + in.User.Tag,
		Timestamp: s.clock.Now(),
	}}}, false)
}

func (s *Service) clear(in discord.Interaction) error {
	if !s.allowed(in, discord.PermissionManageMessages) {
		return ephemeral(in, "You do not have permission to manage messages.")
	}
	amount, err := strconv.Atoi(in.Option("amount"))
	if err != nil || amount < clearMin || amount > clearMax {
		return ephemeral(in, fmt.Sprintf("Please provide a number between %d and %d.", clearMin, clearMax))
	}

	deleted, err := s.discord.BulkDeleteMessages(in.ChannelID, amount)
	if err != nil {
		slog.Error("failed to bulk delete messages", "channel_id", in.ChannelID, "amount", amount, "error", err)
		return ephemeral(in, "Failed to clear messages. Ensure I have the correct permissions.")
	}
	slog.Info("messages cleared", "channel_id", in.ChannelID, "requested", amount, "deleted", deleted, "by", in.User.ID)
	return ephemeral(in, fmt.Sprintf("Successfully deleted %d messages.", deleted))
}

func (s *Service) ping(in discord.Interaction) error {
	hidden := true
	if v, err := strconv.ParseBool(in.Option("ephemeral")); err == nil {
		hidden = v
	}
	if err := in.Responder.Reply(discord.Text("🏓"), hidden); err != nil {
		return err
	}

	now := s.clock.Now()
	gateway := s.discord.Latency().Round(time.Millisecond)
	var rest time.Duration
	if !in.CreatedAt.IsZero() {
		rest = now.Sub(in.CreatedAt)
	}

	var footer string
	if botID, err := s.discord.GetBotUserID(); err == nil {
		if u, err := s.discord.GetUser(botID); err == nil {
			footer = u.Tag
		}
	}

	return in.Responder.EditReply(discord.MessagePayload{
		ClearContent: true,
		Embeds: []discord.Embed{{
			Title: "🏓 Pong!",
			Color: pingColor(gateway),
			Fields: []discord.EmbedField{
				{Name: "🌐 Gateway (WS)", Value: fmt.Sprintf("%d ms", gateway.Milliseconds()), Inline: true},
				{Name: "📨 REST Create", Value: fmt.Sprintf("%d ms", rest.Milliseconds()), Inline: true},
				{Name: "⏱️ Uptime", Value: formatMillis(now.Sub(s.startedAt)), Inline: true},
			},
			Footer:    footer,
			Timestamp: now,
		}},
	})
}
