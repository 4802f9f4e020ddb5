package discord

import (
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	discordpkg "github.com/foxseedlab/darkbot/internal/discord"
)

const threadAutoArchiveMinutes = 10080

func (c *Client) SendMessage(channelID string, msg discordpkg.MessagePayload) (discordpkg.Message, error) {
	sent, err := c.session.ChannelMessageSendComplex(channelID, toMessageSend(msg))
	if err != nil {
		return discordpkg.Message{}, err
	}
	return toMessage(sent), nil
}

func (c *Client) EditMessage(channelID, messageID string, msg discordpkg.MessagePayload) error {
	edit := discordgo.NewMessageEdit(channelID, messageID)
	if msg.Content != "" || msg.ClearContent {
		content := msg.Content
		edit.Content = &content
	}
	if msg.Embeds != nil {
		embeds := toEmbeds(msg.Embeds)
		edit.Embeds = &embeds
	}
	if msg.Components != nil {
		components := toComponents(msg.Components)
		edit.Components = &components
	}
	_, err := c.session.ChannelMessageEditComplex(edit)
	return err
}

func (c *Client) FetchMessage(channelID, messageID string) (discordpkg.Message, error) {
	if c.session.State != nil {
		if m, err := c.session.State.Message(channelID, messageID); err == nil && m != nil {
			return toMessage(m), nil
		}
	}
	m, err := c.session.ChannelMessage(channelID, messageID)
	if err != nil {
		return discordpkg.Message{}, err
	}
	return toMessage(m), nil
}

func (c *Client) ListMessages(channelID string, limit int) ([]discordpkg.Message, error) {
	list, err := c.session.ChannelMessages(channelID, limit, "", "", "")
	if err != nil {
		return nil, err
	}
	out := make([]discordpkg.Message, 0, len(list))
	for _, m := range list {
		if m != nil {
			out = append(out, toMessage(m))
		}
	}
	return out, nil
}

func (c *Client) DeleteMessage(channelID, messageID string) error {
	return c.session.ChannelMessageDelete(channelID, messageID)
}

func (c *Client) PinMessage(channelID, messageID string) error {
	return c.session.ChannelMessagePin(channelID, messageID)
}

func (c *Client) ReplyToMessage(channelID, messageID, content string) (discordpkg.Message, error) {
	sent, err := c.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content:   content,
		Reference: &discordgo.MessageReference{MessageID: messageID, ChannelID: channelID},
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Parse:       []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeUsers},
			RepliedUser: true,
		},
	})
	if err != nil {
		return discordpkg.Message{}, err
	}
	return toMessage(sent), nil
}

func (c *Client) SendTyping(channelID string) error {
	return c.session.ChannelTyping(channelID)
}

// BulkDeleteMessages removes up to count recent messages. Messages older
// than two weeks are skipped, as the bulk endpoint refuses them.
func (c *Client) BulkDeleteMessages(channelID string, count int) (int, error) {
	list, err := c.session.ChannelMessages(channelID, count, "", "", "")
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().Add(-14 * 24 * time.Hour)
	ids := make([]string, 0, len(list))
	for _, m := range list {
		if m == nil || m.Timestamp.Before(cutoff) {
			continue
		}
		ids = append(ids, m.ID)
	}
	switch len(ids) {
	case 0:
		return 0, nil
	case 1:
		return 1, c.session.ChannelMessageDelete(channelID, ids[0])
	}
	if err := c.session.ChannelMessagesBulkDelete(channelID, ids); err != nil {
		return 0, err
	}
	return len(ids), nil
}

func (c *Client) SendDirectMessage(userID string, msg discordpkg.MessagePayload) (discordpkg.Message, error) {
	ch, err := c.session.UserChannelCreate(userID)
	if err != nil {
		return discordpkg.Message{}, fmt.Errorf("open dm channel: %w", err)
	}
	return c.SendMessage(ch.ID, msg)
}

func (c *Client) GetUser(userID string) (discordpkg.UserInfo, error) {
	u, err := c.session.User(userID)
	if err != nil {
		return discordpkg.UserInfo{ID: userID, Tag: userID}, err
	}
	return toUserInfo(u), nil
}

func (c *Client) IsTextChannel(channelID string) bool {
	channel := c.resolveChannel(channelID)
	if channel == nil {
		return false
	}
	switch channel.Type {
	case discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews,
		discordgo.ChannelTypeGuildPublicThread, discordgo.ChannelTypeGuildPrivateThread:
		return true
	default:
		return false
	}
}

func (c *Client) ChannelExists(channelID string) bool {
	if channelID == "" {
		return false
	}
	return c.resolveChannel(channelID) != nil
}

func (c *Client) StartPrivateThread(channelID, name string) (string, error) {
	ch, err := c.session.ThreadStartComplex(channelID, &discordgo.ThreadStart{
		Name:                name,
		Type:                discordgo.ChannelTypeGuildPrivateThread,
		AutoArchiveDuration: threadAutoArchiveMinutes,
		Invitable:           false,
	})
	if err != nil {
		return "", err
	}
	return ch.ID, nil
}

func (c *Client) AddThreadMember(threadID, userID string) error {
	return c.session.ThreadMemberAdd(threadID, userID)
}

func (c *Client) DeleteChannel(channelID string) error {
	_, err := c.session.ChannelDelete(channelID)
	return err
}

func toMessageSend(msg discordpkg.MessagePayload) *discordgo.MessageSend {
	return &discordgo.MessageSend{
		Content:    msg.Content,
		Embeds:     toEmbeds(msg.Embeds),
		Components: toComponents(msg.Components),
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Parse: []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeUsers},
		},
	}
}

func toEmbeds(embeds []discordpkg.Embed) []*discordgo.MessageEmbed {
	if embeds == nil {
		return nil
	}
	out := make([]*discordgo.MessageEmbed, 0, len(embeds))
	for _, e := range embeds {
		me := &discordgo.MessageEmbed{
			Title:       e.Title,
			Description: e.Description,
			URL:         e.URL,
			Color:       e.Color,
		}
		if e.Thumbnail != "" {
			me.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: e.Thumbnail}
		}
		if e.AuthorName != "" {
			me.Author = &discordgo.MessageEmbedAuthor{Name: e.AuthorName, IconURL: e.AuthorIcon}
		}
		if e.Footer != "" {
			me.Footer = &discordgo.MessageEmbedFooter{Text: e.Footer}
		}
		if !e.Timestamp.IsZero() {
			me.Timestamp = e.Timestamp.UTC().Format(time.RFC3339)
		}
		for _, f := range e.Fields {
			me.Fields = append(me.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
		}
		out = append(out, me)
	}
	return out
}

func toComponents(rows [][]discordpkg.Button) []discordgo.MessageComponent {
	if rows == nil {
		return nil
	}
	out := make([]discordgo.MessageComponent, 0, len(rows))
	for _, row := range rows {
		buttons := make([]discordgo.MessageComponent, 0, len(row))
		for _, b := range row {
			btn := discordgo.Button{
				Label:    b.Label,
				Style:    toButtonStyle(b.Style),
				Disabled: b.Disabled,
				CustomID: b.CustomID,
				URL:      b.URL,
			}
			if b.Emoji != "" {
				btn.Emoji = &discordgo.ComponentEmoji{Name: b.Emoji}
			}
			if b.Style == discordpkg.ButtonLink {
				btn.CustomID = ""
			}
			buttons = append(buttons, btn)
		}
		if len(buttons) > 0 {
			out = append(out, discordgo.ActionsRow{Components: buttons})
		}
	}
	return out
}

func toButtonStyle(s discordpkg.ButtonStyle) discordgo.ButtonStyle {
	switch s {
	case discordpkg.ButtonPrimary:
		return discordgo.PrimaryButton
	case discordpkg.ButtonSuccess:
		return discordgo.SuccessButton
	case discordpkg.ButtonDanger:
		return discordgo.DangerButton
	case discordpkg.ButtonLink:
		return discordgo.LinkButton
	default:
		return discordgo.SecondaryButton
	}
}

func toMessage(m *discordgo.Message) discordpkg.Message {
	out := discordpkg.Message{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		GuildID:   m.GuildID,
		Content:   m.Content,
		Pinned:    m.Pinned,
		CreatedAt: m.Timestamp,
	}
	if m.Author != nil {
		out.AuthorID = m.Author.ID
		out.AuthorBot = m.Author.Bot
	}
	for _, e := range m.Embeds {
		if e == nil {
			continue
		}
		out.Embeds = append(out.Embeds, fromEmbed(e))
	}
	out.ButtonIDs = buttonIDs(m.Components)
	return out
}

func fromEmbed(e *discordgo.MessageEmbed) discordpkg.Embed {
	out := discordpkg.Embed{
		Title:       e.Title,
		Description: e.Description,
		URL:         e.URL,
		Color:       e.Color,
	}
	if e.Thumbnail != nil {
		out.Thumbnail = e.Thumbnail.URL
	}
	if e.Author != nil {
		out.AuthorName = e.Author.Name
		out.AuthorIcon = e.Author.IconURL
	}
	if e.Footer != nil {
		out.Footer = e.Footer.Text
	}
	if ts, err := time.Parse(time.RFC3339, e.Timestamp); err == nil {
		out.Timestamp = ts
	}
	for _, f := range e.Fields {
		if f != nil {
			out.Fields = append(out.Fields, discordpkg.EmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
		}
	}
	return out
}

func buttonIDs(components []discordgo.MessageComponent) []string {
	var ids []string
	for _, comp := range components {
		switch v := comp.(type) {
		case *discordgo.ActionsRow:
			ids = append(ids, buttonIDs(v.Components)...)
		case discordgo.ActionsRow:
			ids = append(ids, buttonIDs(v.Components)...)
		case *discordgo.Button:
			if v.CustomID != "" {
				ids = append(ids, v.CustomID)
			}
		case discordgo.Button:
			if v.CustomID != "" {
				ids = append(ids, v.CustomID)
			}
		}
	}
	return ids
}
