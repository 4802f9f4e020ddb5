package feedback

import (
	"fmt"
	"strings"

	"github.com/foxseedlab/darkbot/internal/discord"
	"github.com/foxseedlab/darkbot/internal/repository"
)

const CommandName = "feedback"

// Component and modal ids. These are persisted in posted messages and must
// not change.
const (
	Prefix = "fb:"

	ModalSubmit      = "fb:modal"
	InputCategory    = "fb:category"
	InputContent     = "fb:content"
	ButtonGrant      = "fb:grant"
	ModalGrant       = "fb:grantModal"
	InputGrantID     = "fb:grantId"
	ButtonReply      = "fb:reply:"
	ModalStaffDM     = "fb:dmModal:"
	InputStaffDM     = "fb:dmText"
	ButtonResolve    = "fb:resolve:"
	ButtonMore       = "fb:more:"
	ButtonBlacklist  = "fb:blacklist:"
	ButtonExpand     = "fb:expand:"
	ButtonLess       = "fb:less:"
	ButtonUserClose  = "fb:userClose:"
	ButtonUserReply  = "fb:userReply:"
	ModalUserReply   = "fb:userReplyModal:"
	InputUserReply   = "fb:userReplyText"
	categoryMaxLen   = 50
	contentMaxLen    = 1500
	grantIDMaxLen    = 128
	descriptionLimit = 4096
)

const (
	colorBlurple = 0x5865F2
	colorGreen   = 0x57F287
	colorRed     = 0xED4245
)

const (
	msgNotConfigured    = "⚠️ Support server is not configured. Ask an admin to set `SUPPORT_GUILD_ID`."
	msgForwarding       = "✨ Thanks! Your feedback is being forwarded to the support server."
	msgNoSupportChannel = "⚠️ Couldn’t reach the appropriate support channel. Please alert an admin."
	msgNotFound         = "❌ Feedback metadata not found."
	msgClosed           = "ℹ️ This feedback is closed."
	msgStaffOnly        = "🔒 Staff only."
	msgAlreadyClosed    = "✅ Already closed."
	msgResolved         = "✅ Marked as resolved."
	msgUpdateFailed     = "⚠️ Could not update."
	msgMoreShown        = "↗️ More options."
	msgMoreFailed       = "⚠️ Could not open more options."
	msgLessShown        = "↙️ Less options."
	msgLessFailed       = "⚠️ Could not close more options."
	msgDiscussionOpened = "🧵 Discussion opened."
	msgDiscussionFailed = "⚠️ Failed to open discussion."
	msgCaseNotFound     = "❌ Case not found."
	msgAbandonFailed    = "⚠️ Could not abandon right now."
	msgWrongIntake      = "↪️ Please use this button in the designated intake channel."
	msgGrantEmpty       = "✏️ Please provide a Feedback ID."
	msgGrantNotFound    = "❌ Feedback ID not found. Double-check the ID from your DM."
	msgGrantNotOwner    = "🔒 This Feedback ID does not belong to your account."
	msgGrantAbandoned   = "⛔ This Feedback ID was abandoned and cannot be redeemed. Please open a new /feedback."
	msgGrantFailed      = "⚠️ Could not open or access the conversation. Ask staff to check bot permissions."
	msgStaffDMEmpty     = "✏️ Please provide a message."
	msgStaffDMAbandoned = "⛔ Case was abandoned by user."
	msgStaffDMSent      = "✅ DM sent. User’s case card updated."
	msgStaffDMFailed    = "⚠️ Failed to DM the user or update thread."
	msgUserReplyMissing = "❌ Feedback reference not found."
	msgUserReplyEmpty   = "✏️ Please type a message."
	msgUserReplyClosed  = "⛔ This case was abandoned. Create a new /feedback."
	msgUserReplySent    = "✅ Sent your comment to the support team."
	msgUserReplyFailed  = "⚠️ Could not forward your comment."
	threadOpenedNotice  = "🧵 Discussion opened for this feedback."
	userCommentTitle    = "💬 User Comment"
	staffDMSentTitle    = "📬 Staff DM Sent to User"
	staffReplyTitle     = "📬 Support Team Reply"
	staffFooterPrefix   = "staff: "
)

func blockedMessage(remaining string) string {
	return fmt.Sprintf("🚫 You are blocked from using `/feedback` for **%s**.", remaining)
}

func cooldownMessage(remaining string) string {
	return fmt.Sprintf("⏳ Please wait **%s** before sending more feedback.", remaining)
}

func submittedMessage(id string) string {
	return fmt.Sprintf("✅ Thanks for the feedback — staff may contact you via DM.\n🧾 Feedback ID: `%s`", id)
}

func blacklistedMessage(days int) string {
	return fmt.Sprintf("🛑 User blacklisted for **%d days**.", days)
}

func SlashCommandDefinitions() []discord.SlashCommandDefinition {
	return []discord.SlashCommandDefinition{{
		Name:        CommandName,
		Description: "Send feedback to the support team.",
		DMAllowed:   true,
	}}
}

// sanitize defuses mass mentions and caps s at max runes.
func sanitize(s string, max int) string {
	s = strings.ReplaceAll(s, "@everyone", "@\u200beveryone")
	s = strings.ReplaceAll(s, "@here", "@\u200bhere")
	r := []rune(s)
	if len(r) > max {
		return string(r[:max-1]) + "…"
	}
	return s
}

func capRunes(s string, max int) string {
	r := []rune(s)
	if len(r) > max {
		return string(r[:max])
	}
	return s
}

func quoted(id string) string {
	return "`" + id + "`"
}

func feedbackModal() discord.Modal {
	return discord.Modal{
		CustomID: ModalSubmit,
		Title:    "Send Feedback",
		Inputs: []discord.TextInput{
			{
				CustomID:    InputCategory,
				Label:       "Category (Bug / Idea / Other)",
				Placeholder: "Bug / Idea / Other (optional)",
				MaxLength:   categoryMaxLen,
			},
			{
				CustomID:    InputContent,
				Label:       "Your message",
				Placeholder: "Explain clearly. Include steps, examples, or links.",
				Paragraph:   true,
				Required:    true,
				MaxLength:   contentMaxLen,
			},
		},
	}
}

func grantModal() discord.Modal {
	return discord.Modal{
		CustomID: ModalGrant,
		Title:    "Enter your Feedback ID",
		Inputs: []discord.TextInput{{
			CustomID:    InputGrantID,
			Label:       "Feedback ID",
			Placeholder: "e.g., DM-1729261880000-123456789012345678",
			Required:    true,
			MaxLength:   grantIDMaxLen,
		}},
	}
}

func staffDMModal(id string) discord.Modal {
	return discord.Modal{
		CustomID: ModalStaffDM + id,
		Title:    "Reply to Feedback (DM)",
		Inputs: []discord.TextInput{{
			CustomID:  InputStaffDM,
			Label:     "Message to the user",
			Paragraph: true,
			Required:  true,
			MaxLength: contentMaxLen,
		}},
	}
}

func userReplyModal(id string) discord.Modal {
	return discord.Modal{
		CustomID: ModalUserReply + id,
		Title:    "Reply to Support",
		Inputs: []discord.TextInput{{
			CustomID:  InputUserReply,
			Label:     "Your message",
			Paragraph: true,
			Required:  true,
			MaxLength: contentMaxLen,
		}},
	}
}

func intakePanel() discord.MessagePayload {
	return discord.MessagePayload{
		Embeds: []discord.Embed{{
			Title: "🔑 Get Access to Your Conversation",
			Description: "Already submitted feedback and received a **Feedback ID** in DM?\n" +
				"Click the button below and paste your **Feedback ID** to join your private conversation thread.",
			Color: colorBlurple,
		}},
		Components: [][]discord.Button{{
			{CustomID: ButtonGrant, Label: "Grant access to convo", Style: discord.ButtonPrimary},
		}},
	}
}

func originName(f *repository.Feedback) string {
	if f.OriginGuildName == "" {
		return "Direct Message"
	}
	return f.OriginGuildName
}

// compactEmbed is the staff view of a ticket.
func compactEmbed(f *repository.Feedback) discord.Embed {
	content := f.Content
	if content == "" {
		content = "—"
	}
	category := f.Category
	if category == "" {
		category = "other"
	}
	e := discord.Embed{
		Title:       "🗳️ Feedback",
		Description: content,
		Color:       colorGreen,
		Fields: []discord.EmbedField{
			{Name: "Sender", Value: fmt.Sprintf("<@%s> (`%s`)", f.UserID, f.UserID), Inline: true},
			{Name: "Category", Value: sanitize(category, 64), Inline: true},
		},
		Timestamp: f.CreatedAt,
	}
	if f.OriginIconURL != "" {
		e.AuthorName = originName(f)
		e.AuthorIcon = f.OriginIconURL
		e.Thumbnail = f.OriginIconURL
	}
	return e
}

func expandedEmbed(f *repository.Feedback) discord.Embed {
	e := compactEmbed(f)
	origin := "Direct Message"
	if f.OriginGuildID != "" && f.OriginGuildID != dmOrigin {
		origin = fmt.Sprintf("%s (`%s`)", f.OriginGuildName, f.OriginGuildID)
	}
	e.Fields = append(e.Fields,
		discord.EmbedField{Name: "Feedback ID", Value: quoted(f.ID)},
		discord.EmbedField{Name: "Origin", Value: origin},
	)
	return e
}

func abandonedEmbed(f *repository.Feedback) discord.Embed {
	e := compactEmbed(f)
	e.Color = colorRed
	e.Fields = append(e.Fields, discord.EmbedField{Name: "Status", Value: "Abandoned"})
	return e
}

func staffPage1(id string, closed bool) [][]discord.Button {
	return [][]discord.Button{{
		{CustomID: ButtonReply + id, Label: "Reply via DM", Style: discord.ButtonPrimary, Disabled: closed},
		{CustomID: ButtonResolve + id, Label: "Mark Resolved", Style: discord.ButtonSuccess, Disabled: closed},
		{CustomID: ButtonMore + id, Label: "More", Style: discord.ButtonSecondary, Disabled: closed},
	}}
}

func staffPage2(id string, closed, hasThread bool) [][]discord.Button {
	return [][]discord.Button{{
		{CustomID: ButtonBlacklist + id, Label: "Blacklist 1 week", Style: discord.ButtonDanger, Disabled: closed},
		{CustomID: ButtonExpand + id, Label: "Open Discussion", Style: discord.ButtonSecondary, Disabled: closed || hasThread},
		{CustomID: ButtonLess + id, Label: "Less", Style: discord.ButtonSecondary, Disabled: closed},
	}}
}

func staffAbandoned(id string) [][]discord.Button {
	return [][]discord.Button{{
		{CustomID: ButtonBlacklist + id, Label: "Blacklist 1 week", Style: discord.ButtonDanger},
	}}
}

func statusLabel(f *repository.Feedback) string {
	switch f.Status {
	case repository.FeedbackStatusAbandoned:
		return "Abandoned"
	case repository.FeedbackStatusResolved:
		return "Closed"
	default:
		return "Open"
	}
}

// userCardEmbed is the single case card kept in the reporter's DMs.
func userCardEmbed(f *repository.Feedback, conversation string) discord.Embed {
	desc := f.Content
	if desc == "" {
		desc = "—"
	}
	if conversation != "" {
		desc += "\n\n__Conversation__\n" + conversation
	}
	if r := []rune(desc); len(r) > descriptionLimit {
		desc = string(r[:descriptionLimit-1]) + "…"
	}

	title, color := "🗳️ Feedback (Open)", colorBlurple
	switch f.Status {
	case repository.FeedbackStatusAbandoned:
		title, color = "⛔ Feedback (Abandoned)", colorRed
	case repository.FeedbackStatusResolved:
		title, color = "✅ Feedback (Closed)", colorGreen
	}

	fields := []discord.EmbedField{
		{Name: "Feedback ID", Value: quoted(f.ID)},
		{Name: "Status", Value: statusLabel(f), Inline: true},
	}
	if f.LastStaffReply != "" {
		fields = append(fields, discord.EmbedField{Name: "Last Support Reply", Value: sanitize(f.LastStaffReply, 1024)})
	}
	return discord.Embed{Title: title, Description: desc, Color: color, Fields: fields, Timestamp: f.UpdatedAt}
}

// userCardButtons returns the DM card buttons; a closed case has none.
func userCardButtons(f *repository.Feedback, inviteURL string) [][]discord.Button {
	if f.Closed() {
		return [][]discord.Button{}
	}
	row := []discord.Button{
		{CustomID: ButtonUserReply + f.ID, Label: "Reply", Style: discord.ButtonPrimary},
		{CustomID: ButtonUserClose + f.ID, Label: "Abandon", Style: discord.ButtonSecondary},
	}
	if inviteURL != "" {
		row = append(row, discord.Button{Label: "Further help", Style: discord.ButtonLink, URL: inviteURL})
	}
	return [][]discord.Button{row}
}

func userCommentEmbed(f *repository.Feedback, text string) discord.Embed {
	return discord.Embed{
		Title:       userCommentTitle,
		Description: text,
		Color:       colorGreen,
		Fields: []discord.EmbedField{
			{Name: "From", Value: fmt.Sprintf("<@%s> (`%s`)", f.UserID, f.UserTag), Inline: true},
			{Name: "Feedback ID", Value: quoted(f.ID), Inline: true},
		},
	}
}

func staffReplyEmbed(title, id, text, staffTag string) discord.Embed {
	e := discord.Embed{
		Title:       title,
		Description: text,
		Color:       colorBlurple,
		Fields:      []discord.EmbedField{{Name: "Feedback ID", Value: quoted(id)}},
	}
	if staffTag != "" {
		e.Footer = staffFooterPrefix + staffTag
	}
	return e
}
