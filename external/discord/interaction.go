package discord

import (
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"
	discordpkg "github.com/foxseedlab/darkbot/internal/discord"
)

func (c *Client) RegisterInteractionHandler(handler func(discordpkg.Interaction)) {
	c.addHandler(func(s *discordgo.Session) {
		s.AddHandler(func(s *discordgo.Session, ic *discordgo.InteractionCreate) {
			if ic == nil || ic.Interaction == nil {
				return
			}
			interaction, ok := toInteraction(s, ic.Interaction)
			if !ok {
				return
			}
			slog.Debug("interaction received", "kind", interaction.Kind.String(), "guild_id", interaction.GuildID, "channel_id", interaction.ChannelID, "user_id", interaction.User.ID, "command", interaction.CommandName, "custom_id", interaction.CustomID)
			handler(interaction)
		})
	})
}

func toInteraction(s *discordgo.Session, ic *discordgo.Interaction) (discordpkg.Interaction, bool) {
	out := discordpkg.Interaction{
		ID:        ic.ID,
		GuildID:   ic.GuildID,
		ChannelID: ic.ChannelID,
		Responder: &responder{session: s, interaction: ic},
	}
	if ic.Member != nil {
		out.User = toUserInfo(ic.Member.User)
		out.MemberPermissions = ic.Member.Permissions
	}
	if out.User.ID == "" && ic.User != nil {
		out.User = toUserInfo(ic.User)
	}
	if out.User.ID == "" {
		return out, false
	}
	if ts, err := discordgo.SnowflakeTimestamp(ic.ID); err == nil {
		out.CreatedAt = ts
	}

	switch ic.Type {
	case discordgo.InteractionApplicationCommand:
		data := ic.ApplicationCommandData()
		if data.Name == "" {
			return out, false
		}
		out.Kind = discordpkg.InteractionCommand
		out.CommandName = data.Name
		out.Options = commandOptions(data.Options)
	case discordgo.InteractionMessageComponent:
		data := ic.MessageComponentData()
		out.Kind = discordpkg.InteractionComponent
		out.CustomID = data.CustomID
		if ic.Message != nil {
			out.MessageID = ic.Message.ID
		}
	case discordgo.InteractionModalSubmit:
		data := ic.ModalSubmitData()
		out.Kind = discordpkg.InteractionModalSubmit
		out.CustomID = data.CustomID
		out.Fields = modalFields(data.Components)
		if ic.Message != nil {
			out.MessageID = ic.Message.ID
		}
	default:
		return out, false
	}
	return out, true
}

func commandOptions(opts []*discordgo.ApplicationCommandInteractionDataOption) map[string]string {
	values := make(map[string]string, len(opts))
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		switch opt.Type {
		case discordgo.ApplicationCommandOptionString:
			values[opt.Name] = opt.StringValue()
		case discordgo.ApplicationCommandOptionInteger:
			values[opt.Name] = strconv.FormatInt(opt.IntValue(), 10)
		case discordgo.ApplicationCommandOptionBoolean:
			values[opt.Name] = strconv.FormatBool(opt.BoolValue())
		default:
			values[opt.Name] = fmt.Sprint(opt.Value)
		}
	}
	return values
}

func modalFields(components []discordgo.MessageComponent) map[string]string {
	fields := make(map[string]string)
	var walk func(list []discordgo.MessageComponent)
	walk = func(list []discordgo.MessageComponent) {
		for _, comp := range list {
			switch v := comp.(type) {
			case *discordgo.ActionsRow:
				walk(v.Components)
			case discordgo.ActionsRow:
				walk(v.Components)
			case *discordgo.TextInput:
				fields[v.CustomID] = v.Value
			case discordgo.TextInput:
				fields[v.CustomID] = v.Value
			}
		}
	}
	walk(components)
	return fields
}

type responder struct {
	session     *discordgo.Session
	interaction *discordgo.Interaction
	acked       atomic.Bool
}

func (r *responder) respond(resp *discordgo.InteractionResponse) error {
	if err := r.session.InteractionRespond(r.interaction, resp); err != nil {
		return err
	}
	r.acked.Store(true)
	return nil
}

func (r *responder) Reply(msg discordpkg.MessagePayload, ephemeral bool) error {
	data := &discordgo.InteractionResponseData{
		Content:    msg.Content,
		Embeds:     toEmbeds(msg.Embeds),
		Components: toComponents(msg.Components),
	}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return r.respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
}

func (r *responder) Defer(ephemeral bool) error {
	resp := &discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredChannelMessageWithSource}
	if ephemeral {
		resp.Data = &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral}
	}
	return r.respond(resp)
}

func (r *responder) DeferUpdate() error {
	return r.respond(&discordgo.InteractionResponse{Type: discordgo.InteractionResponseDeferredMessageUpdate})
}

func (r *responder) UpdateMessage(msg discordpkg.MessagePayload) error {
	return r.respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    msg.Content,
			Embeds:     toEmbeds(msg.Embeds),
			Components: toComponents(msg.Components),
		},
	})
}

func (r *responder) EditReply(msg discordpkg.MessagePayload) error {
	edit := &discordgo.WebhookEdit{}
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
	_, err := r.session.InteractionResponseEdit(r.interaction, edit)
	return err
}

func (r *responder) FollowUp(msg discordpkg.MessagePayload, ephemeral bool) error {
	params := &discordgo.WebhookParams{
		Content:    msg.Content,
		Embeds:     toEmbeds(msg.Embeds),
		Components: toComponents(msg.Components),
	}
	if ephemeral {
		params.Flags = discordgo.MessageFlagsEphemeral
	}
	_, err := r.session.FollowupMessageCreate(r.interaction, true, params)
	return err
}

func (r *responder) ShowModal(modal discordpkg.Modal) error {
	rows := make([]discordgo.MessageComponent, 0, len(modal.Inputs))
	for _, in := range modal.Inputs {
		style := discordgo.TextInputShort
		if in.Paragraph {
			style = discordgo.TextInputParagraph
		}
		required := in.Required
		rows = append(rows, discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.TextInput{
				CustomID:    in.CustomID,
				Label:       in.Label,
				Style:       style,
				Placeholder: in.Placeholder,
				Required:    &required,
				MaxLength:   in.MaxLength,
			},
		}})
	}
	return r.respond(&discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID:   modal.CustomID,
			Title:      modal.Title,
			Components: rows,
		},
	})
}

func (r *responder) DeleteReply() error {
	return r.session.InteractionResponseDelete(r.interaction)
}

func (r *responder) Acknowledged() bool {
	return r.acked.Load()
}
