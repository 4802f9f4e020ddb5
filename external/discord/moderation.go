package discord

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	discordpkg "github.com/foxseedlab/darkbot/internal/discord"
)

func (c *Client) GetMember(guildID, userID string) (discordpkg.Member, error) {
	member := c.resolveGuildMember(guildID, userID)
	if member == nil {
		return discordpkg.Member{User: discordpkg.UserInfo{ID: userID}}, nil
	}
	return discordpkg.Member{
		User:            toUserInfo(member.User),
		Found:           true,
		TopRolePosition: c.topRolePosition(guildID, member.Roles),
	}, nil
}

func (c *Client) BotMember(guildID string) (discordpkg.Member, error) {
	botID, err := c.GetBotUserID()
	if err != nil {
		return discordpkg.Member{}, err
	}
	return c.GetMember(guildID, botID)
}

// BotGuildPermissions folds the bot's role permissions for the guild.
func (c *Client) BotGuildPermissions(guildID string) (int64, error) {
	botID, err := c.GetBotUserID()
	if err != nil {
		return 0, err
	}
	guild := c.resolveGuild(guildID)
	if guild == nil {
		return 0, fmt.Errorf("guild %s not found", guildID)
	}
	if guild.OwnerID == botID {
		return discordgo.PermissionAll, nil
	}
	member := c.resolveGuildMember(guildID, botID)
	if member == nil {
		return 0, fmt.Errorf("bot member not found in guild %s", guildID)
	}
	var perms int64
	for _, role := range guild.Roles {
		if role == nil {
			continue
		}
		if role.ID == guildID || containsString(member.Roles, role.ID) {
			perms |= role.Permissions
		}
	}
	if perms&discordgo.PermissionAdministrator != 0 {
		return discordgo.PermissionAll, nil
	}
	return perms, nil
}

func (c *Client) BanMember(guildID, userID, reason string) error {
	return c.session.GuildBanCreateWithReason(guildID, userID, reason, 0)
}

func (c *Client) KickMember(guildID, userID, reason string) error {
	return c.session.GuildMemberDeleteWithReason(guildID, userID, reason)
}

func (c *Client) TimeoutMember(guildID, userID string, until time.Time, reason string) error {
	return c.session.GuildMemberTimeout(guildID, userID, &until, discordgo.WithAuditLogReason(reason))
}

func (c *Client) resolveGuildMember(guildID, userID string) *discordgo.Member {
	if c.session == nil {
		return nil
	}
	if c.session.State != nil {
		member, err := c.session.State.Member(guildID, userID)
		if err == nil && member != nil {
			return member
		}
	}
	member, err := c.session.GuildMember(guildID, userID)
	if err != nil {
		return nil
	}
	return member
}

func (c *Client) topRolePosition(guildID string, roleIDs []string) int {
	guild := c.resolveGuild(guildID)
	if guild == nil {
		return 0
	}
	top := 0
	for _, role := range guild.Roles {
		if role != nil && containsString(roleIDs, role.ID) && role.Position > top {
			top = role.Position
		}
	}
	return top
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
