package feedback

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	memrepo "github.com/foxseedlab/darkbot/external/repository"
	"github.com/foxseedlab/darkbot/internal/clock"
	"github.com/foxseedlab/darkbot/internal/config"
	"github.com/foxseedlab/darkbot/internal/discord"
	"github.com/foxseedlab/darkbot/internal/discord/discordtest"
	"github.com/foxseedlab/darkbot/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc  *Service
	dc   *discordtest.Client
	repo *memrepo.MemoryRepository
	clk  *clock.Fake
	cfg  *config.Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := &config.Config{
		SupportGuildID:         "sg",
		SupportChannelID:       "support",
		SupportIntakeChannelID: "intake",
		SupportInviteURL:       "https://discord.gg/help",
		FeedbackCooldown:       time.Minute,
	}
	f := &fixture{
		dc:   discordtest.NewClient(),
		repo: memrepo.NewMemoryRepository(),
		clk:  clock.NewFake(epoch),
		cfg:  cfg,
	}
	f.dc.TextChannels["support"] = true
	f.dc.TextChannels["intake"] = true
	f.dc.Guilds = []discord.GuildInfo{{ID: "g1", Name: "Guild One", IconURL: "https://cdn/icon.png"}}
	f.svc = NewService(cfg, f.dc, f.repo, f.clk)
	return f
}

var alice = discord.UserInfo{ID: "alice", Tag: "alice#1"}

func userModal(customID string, fields map[string]string) (discord.Interaction, *discordtest.Responder) {
	r := &discordtest.Responder{}
	return discord.Interaction{
		Kind:      discord.InteractionModalSubmit,
		GuildID:   "g1",
		ChannelID: "general",
		User:      alice,
		CustomID:  customID,
		Fields:    fields,
		Responder: r,
	}, r
}

func staffPress(customID string) (discord.Interaction, *discordtest.Responder) {
	r := &discordtest.Responder{}
	return discord.Interaction{
		Kind:              discord.InteractionComponent,
		GuildID:           "sg",
		ChannelID:         "support",
		User:              discord.UserInfo{ID: "mod", Tag: "mod#0001"},
		MemberPermissions: discord.PermissionManageMessages,
		CustomID:          customID,
		Responder:         r,
	}, r
}

func dmPress(customID string) (discord.Interaction, *discordtest.Responder) {
	r := &discordtest.Responder{}
	return discord.Interaction{
		Kind:      discord.InteractionComponent,
		ChannelID: "dm-alice",
		User:      alice,
		CustomID:  customID,
		Responder: r,
	}, r
}

// submit files a ticket as alice and returns it.
func (f *fixture) submit(t *testing.T, category, content string) *repository.Feedback {
	t.Helper()
	in, r := userModal(ModalSubmit, map[string]string{InputCategory: category, InputContent: content})
	require.NoError(t, f.svc.HandleModal(context.Background(), in))
	id := fmt.Sprintf("g1-%d-alice", f.clk.Now().UnixMilli())
	require.Equal(t, submittedMessage(id), r.LastText())
	return f.ticket(t, id)
}

func (f *fixture) ticket(t *testing.T, id string) *repository.Feedback {
	t.Helper()
	fb, err := f.repo.GetFeedback(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, fb)
	return fb
}

func (f *fixture) lastEditOf(t *testing.T, channelID, messageID string) discord.MessagePayload {
	t.Helper()
	edits := f.dc.EditedMessages()
	for i := len(edits) - 1; i >= 0; i-- {
		if edits[i].ChannelID == channelID && edits[i].MessageID == messageID {
			return edits[i].Payload
		}
	}
	t.Fatalf("no edit of %s/%s", channelID, messageID)
	return discord.MessagePayload{}
}

func buttonIDs(rows [][]discord.Button) []string {
	var ids []string
	for _, row := range rows {
		for _, b := range row {
			ids = append(ids, b.CustomID)
		}
	}
	return ids
}

func TestHandleCommand(t *testing.T) {
	f := newFixture(t)
	r := &discordtest.Responder{}
	in := discord.Interaction{Kind: discord.InteractionCommand, User: alice, CommandName: CommandName, Responder: r}

	require.NoError(t, f.svc.HandleCommand(context.Background(), in))
	assert.Equal(t, []string{"modal"}, r.Kinds())
	assert.Equal(t, ModalSubmit, r.Last().Modal.CustomID)

	f.cfg.SupportGuildID = ""
	r = &discordtest.Responder{}
	in.Responder = r
	require.NoError(t, f.svc.HandleCommand(context.Background(), in))
	assert.Equal(t, msgNotConfigured, r.LastText())
	assert.True(t, r.Last().Ephemeral)
}

func TestSubmit_PostsTicketAndUserCard(t *testing.T) {
	f := newFixture(t)

	fb := f.submit(t, "Found a BUG in music", "Music stops after one song @everyone")

	assert.Equal(t, "bug", fb.Category)
	assert.Equal(t, "Guild One", fb.OriginGuildName)
	assert.Equal(t, repository.FeedbackStatusOpen, fb.Status)

	sent := f.dc.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "support", sent[0].ChannelID)
	assert.Equal(t, sent[0].MessageID, fb.SupportMessageID)
	embed := sent[0].Payload.Embeds[0]
	assert.Equal(t, "🗳️ Feedback", embed.Title)
	assert.Equal(t, "Guild One", embed.AuthorName)
	assert.Equal(t, []string{ButtonReply + fb.ID, ButtonResolve + fb.ID, ButtonMore + fb.ID}, buttonIDs(sent[0].Payload.Components))

	require.Len(t, f.dc.DMs, 1)
	card := f.dc.DMs[0].Payload
	assert.Equal(t, "🗳️ Feedback (Open)", card.Embeds[0].Title)
	assert.Equal(t, []string{ButtonUserReply + fb.ID, ButtonUserClose + fb.ID, ""}, buttonIDs(card.Components))
	assert.Equal(t, "https://discord.gg/help", card.Components[0][2].URL)
	assert.Equal(t, "dm-alice", fb.DMChannelID)
	assert.Equal(t, f.dc.DMs[0].MessageID, fb.DMMessageID)
}

func TestSubmit_Cooldown(t *testing.T) {
	f := newFixture(t)
	f.submit(t, "", "first")

	in, r := userModal(ModalSubmit, map[string]string{InputContent: "second"})
	require.NoError(t, f.svc.HandleModal(context.Background(), in))
	assert.Equal(t, "⏳ Please wait **1m** before sending more feedback.", r.LastText())

	f.clk.Advance(time.Minute + time.Second)
	fb := f.submit(t, "idea", "second")
	assert.Equal(t, "idea", fb.Category)
}

func TestSubmit_UnreachableChannelDoesNotConsumeCooldown(t *testing.T) {
	f := newFixture(t)
	f.dc.TextChannels["support"] = false

	in, r := userModal(ModalSubmit, map[string]string{InputContent: "hello"})
	require.NoError(t, f.svc.HandleModal(context.Background(), in))
	assert.Equal(t, []string{"reply", "edit"}, r.Kinds())
	assert.Equal(t, msgNoSupportChannel, r.LastText())
	assert.Empty(t, f.dc.DMs)

	f.dc.TextChannels["support"] = true
	f.submit(t, "", "hello again")
}

func TestBlacklist(t *testing.T) {
	f := newFixture(t)
	fb := f.submit(t, "", "spam")

	in, r := staffPress(ButtonBlacklist + fb.ID)
	require.NoError(t, f.svc.HandleButton(context.Background(), in))
	assert.Equal(t, "🛑 User blacklisted for **7 days**.", r.LastText())

	cmd := &discordtest.Responder{}
	require.NoError(t, f.svc.HandleCommand(context.Background(), discord.Interaction{User: alice, Responder: cmd}))
	assert.Equal(t, "🚫 You are blocked from using `/feedback` for **7d 0h**.", cmd.LastText())

	f.clk.Advance(blacklistDuration)
	cmd = &discordtest.Responder{}
	require.NoError(t, f.svc.HandleCommand(context.Background(), discord.Interaction{User: alice, Responder: cmd}))
	assert.Equal(t, []string{"modal"}, cmd.Kinds())

	entry, err := f.repo.GetBlacklist(context.Background(), "alice")
	require.NoError(t, err)
	assert.Nil(t, entry, "expired entries are dropped")
}

func TestStaffButtons_RequireStaff(t *testing.T) {
	f := newFixture(t)
	fb := f.submit(t, "", "hello")

	for _, prefix := range []string{ButtonReply, ButtonResolve, ButtonMore, ButtonLess, ButtonBlacklist, ButtonExpand} {
		in, r := staffPress(prefix + fb.ID)
		in.MemberPermissions = 0
		require.NoError(t, f.svc.HandleButton(context.Background(), in))
		assert.Equal(t, msgStaffOnly, r.LastText(), prefix)

		in, r = staffPress(prefix + fb.ID)
		in.GuildID = "g1"
		in.MemberPermissions = discord.PermissionAdministrator
		require.NoError(t, f.svc.HandleButton(context.Background(), in))
		assert.Equal(t, msgStaffOnly, r.LastText(), "outside the support guild: "+prefix)
	}

	in, r := staffPress(ButtonResolve + "missing")
	require.NoError(t, f.svc.HandleButton(context.Background(), in))
	assert.Equal(t, msgNotFound, r.LastText())
}

func TestResolve(t *testing.T) {
	f := newFixture(t)
	fb := f.submit(t, "", "hello")

	in, _ := staffPress(ButtonExpand + fb.ID)
	require.NoError(t, f.svc.HandleButton(context.Background(), in))
	threadID := f.ticket(t, fb.ID).ThreadID
	require.NotEmpty(t, threadID)

	in, r := staffPress(ButtonResolve + fb.ID)
	require.NoError(t, f.svc.HandleButton(context.Background(), in))
	assert.Equal(t, msgResolved, r.LastText())

	got := f.ticket(t, fb.ID)
	assert.Equal(t, repository.FeedbackStatusResolved, got.Status)
	assert.Empty(t, got.ThreadID)
	assert.Contains(t, f.dc.Deleted, threadID)

	staff := f.lastEditOf(t, "support", fb.SupportMessageID)
	for _, b := range staff.Components[0] {
		assert.True(t, b.Disabled, b.CustomID)
	}
	card := f.lastEditOf(t, fb.DMChannelID, fb.DMMessageID)
	assert.Equal(t, "✅ Feedback (Closed)", card.Embeds[0].Title)
	assert.NotNil(t, card.Components)
	assert.Empty(t, card.Components)

	in, r = staffPress(ButtonResolve + fb.ID)
	require.NoError(t, f.svc.HandleButton(context.Background(), in))
	assert.Equal(t, msgAlreadyClosed, r.LastText())

	in, r = staffPress(ButtonReply + fb.ID)
	require.NoError(t, f.svc.HandleButton(context.Background(), in))
	assert.Equal(t, msgClosed, r.LastText())
}

func TestMoreAndLess(t *testing.T) {
	f := newFixture(t)
	fb := f.submit(t, "", "hello")

	in, r := staffPress(ButtonMore + fb.ID)
	require.NoError(t, f.svc.HandleButton(context.Background(), in))
	assert.Equal(t, msgMoreShown, r.LastText())
	assert.True(t, f.ticket(t, fb.ID).MoreShown)
	more := f.lastEditOf(t, "support", fb.SupportMessageID)
	assert.Equal(t, []string{ButtonBlacklist + fb.ID, ButtonExpand + fb.ID, ButtonLess + fb.ID}, buttonIDs(more.Components))
	var names []string
	for _, field := range more.Embeds[0].Fields {
		names = append(names, field.Name)
	}
	assert.Equal(t, []string{"Sender", "Category", "Feedback ID", "Origin"}, names)

	in, r = staffPress(ButtonLess + fb.ID)
	require.NoError(t, f.svc.HandleButton(context.Background(), in))
	assert.Equal(t, msgLessShown, r.LastText())
	less := f.lastEditOf(t, "support", fb.SupportMessageID)
	assert.Equal(t, []string{ButtonReply + fb.ID, ButtonResolve + fb.ID, ButtonMore + fb.ID}, buttonIDs(less.Components))
}

func TestStaffDM_UpdatesCardWithTranscript(t *testing.T) {
	f := newFixture(t)
	fb := f.submit(t, "", "hello")

	in, r := staffPress(ButtonReply + fb.ID)
	require.NoError(t, f.svc.HandleButton(context.Background(), in))
	assert.Equal(t, ModalStaffDM+fb.ID, r.Last().Modal.CustomID)

	in, r = staffPress(ModalStaffDM + fb.ID)
	in.Kind = discord.InteractionModalSubmit
	in.Fields = map[string]string{InputStaffDM: "Try   restarting\nthe bot"}
	require.NoError(t, f.svc.HandleModal(context.Background(), in))
	assert.Equal(t, msgStaffDMSent, r.LastText())

	require.Len(t, f.dc.DMs, 2)
	assert.Equal(t, staffReplyTitle, f.dc.DMs[1].Payload.Embeds[0].Title)

	got := f.ticket(t, fb.ID)
	assert.Equal(t, "Try   restarting\nthe bot", got.LastStaffReply)
	require.NotEmpty(t, got.ThreadID)

	card := f.lastEditOf(t, fb.DMChannelID, fb.DMMessageID).Embeds[0]
	assert.Contains(t, card.Description, "hello\n\n__Conversation__\n@staff (mod#0001): Try restarting the bot — <t:")
	assert.Equal(t, "Last Support Reply", card.Fields[len(card.Fields)-1].Name)

	in, r = staffPress(ModalStaffDM + fb.ID)
	in.Fields = map[string]string{InputStaffDM: "  "}
	require.NoError(t, f.svc.HandleModal(context.Background(), in))
	assert.Equal(t, msgStaffDMEmpty, r.LastText())
}

func TestGrantAccess(t *testing.T) {
	f := newFixture(t)
	fb := f.submit(t, "", "hello")

	press := &discordtest.Responder{}
	require.NoError(t, f.svc.HandleButton(context.Background(), discord.Interaction{ChannelID: "general", User: alice, CustomID: ButtonGrant, Responder: press}))
	assert.Equal(t, msgWrongIntake, press.LastText())

	press = &discordtest.Responder{}
	require.NoError(t, f.svc.HandleButton(context.Background(), discord.Interaction{ChannelID: "intake", User: alice, CustomID: ButtonGrant, Responder: press}))
	assert.Equal(t, ModalGrant, press.Last().Modal.CustomID)

	cases := []struct {
		typed string
		user  string
		want  string
	}{
		{typed: " ", user: "alice", want: msgGrantEmpty},
		{typed: "nope", user: "alice", want: msgGrantNotFound},
		{typed: fb.ID, user: "mallory", want: msgGrantNotOwner},
	}
	for _, tc := range cases {
		in, r := userModal(ModalGrant, map[string]string{InputGrantID: tc.typed})
		in.User = discord.UserInfo{ID: tc.user}
		require.NoError(t, f.svc.HandleModal(context.Background(), in))
		assert.Equal(t, tc.want, r.LastText(), tc.typed)
	}

	in, r := userModal(ModalGrant, map[string]string{InputGrantID: fb.ID})
	require.NoError(t, f.svc.HandleModal(context.Background(), in))
	threadID := f.ticket(t, fb.ID).ThreadID
	require.NotEmpty(t, threadID)
	assert.Equal(t, fmt.Sprintf("✅ Access granted. Jump in: <#%s>", threadID), r.LastText())
	assert.Contains(t, f.dc.ThreadAdds, threadID+":alice")
}

func TestAbandon(t *testing.T) {
	f := newFixture(t)
	fb := f.submit(t, "", "hello")

	in, r := dmPress(ButtonUserClose + fb.ID)
	require.NoError(t, f.svc.HandleButton(context.Background(), in))
	assert.Equal(t, []string{"defer_update"}, r.Kinds())

	got := f.ticket(t, fb.ID)
	assert.Equal(t, repository.FeedbackStatusAbandoned, got.Status)

	staff := f.lastEditOf(t, "support", fb.SupportMessageID)
	assert.Equal(t, colorRed, staff.Embeds[0].Color)
	assert.Equal(t, []string{ButtonBlacklist + fb.ID}, buttonIDs(staff.Components))
	card := f.lastEditOf(t, fb.DMChannelID, fb.DMMessageID)
	assert.Equal(t, "⛔ Feedback (Abandoned)", card.Embeds[0].Title)
	assert.Empty(t, card.Components)

	in, r = userModal(ModalGrant, map[string]string{InputGrantID: fb.ID})
	require.NoError(t, f.svc.HandleModal(context.Background(), in))
	assert.Equal(t, msgGrantAbandoned, r.LastText())

	// Replies in DMs cannot be ephemeral and are cleaned up shortly after.
	in, r = dmPress(ModalUserReply + fb.ID)
	in.Fields = map[string]string{InputUserReply: "wait"}
	require.NoError(t, f.svc.HandleModal(context.Background(), in))
	assert.Equal(t, msgUserReplyClosed, r.LastText())
	assert.False(t, r.Last().Ephemeral)
	f.clk.Advance(dmNoticeLifetime)
	assert.Equal(t, []string{"reply", "delete"}, r.Kinds())
}

func TestUserReply_ReopensResolvedTicket(t *testing.T) {
	f := newFixture(t)
	fb := f.submit(t, "", "hello")

	in, _ := staffPress(ButtonResolve + fb.ID)
	require.NoError(t, f.svc.HandleButton(context.Background(), in))

	in, r := dmPress(ButtonUserReply + fb.ID)
	require.NoError(t, f.svc.HandleButton(context.Background(), in))
	assert.Equal(t, ModalUserReply+fb.ID, r.Last().Modal.CustomID)

	in, r = dmPress(ModalUserReply + fb.ID)
	in.Fields = map[string]string{InputUserReply: "still broken"}
	require.NoError(t, f.svc.HandleModal(context.Background(), in))
	assert.Equal(t, msgUserReplySent, r.LastText())

	got := f.ticket(t, fb.ID)
	assert.Equal(t, repository.FeedbackStatusOpen, got.Status)
	require.NotEmpty(t, got.ThreadID)

	staff := f.lastEditOf(t, "support", fb.SupportMessageID)
	for _, b := range staff.Components[0] {
		assert.False(t, b.Disabled, b.CustomID)
	}
	card := f.lastEditOf(t, fb.DMChannelID, fb.DMMessageID)
	assert.Equal(t, "🗳️ Feedback (Open)", card.Embeds[0].Title)
	assert.Contains(t, card.Embeds[0].Description, "@alice#1: still broken — <t:")
}

func TestEnsureIntakePanel(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.svc.EnsureIntakePanel(context.Background()))
	require.NoError(t, f.svc.EnsureIntakePanel(context.Background()))

	sent := f.dc.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "intake", sent[0].ChannelID)
	assert.Equal(t, []string{ButtonGrant}, buttonIDs(sent[0].Payload.Components))
	assert.Equal(t, []string{"intake/" + sent[0].MessageID}, f.dc.Pinned)

	f.cfg.SupportIntakeChannelID = ""
	require.NoError(t, f.svc.EnsureIntakePanel(context.Background()))
	assert.Len(t, f.dc.SentMessages(), 1)
}

func TestNormalizeCategory(t *testing.T) {
	tests := map[string]string{
		"":                    "other",
		"Bug":                 "bug",
		"found an ERROR":      "bug",
		"feature request":     "idea",
		"Suggestion for /ai":  "idea",
		"misc":                "other",
		"something unrelated": "other",
	}
	for in, want := range tests {
		assert.Equal(t, want, normalizeCategory(in), in)
	}
}

func TestFormatRemaining(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{d: 0, want: "0m"},
		{d: 20 * time.Second, want: "1m"},
		{d: 5*time.Minute + 10*time.Second, want: "5m"},
		{d: 2*time.Hour + 3*time.Minute, want: "2h 3m"},
		{d: 7 * 24 * time.Hour, want: "7d 0h"},
		{d: 50 * time.Hour, want: "2d 2h"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, formatRemaining(tc.d), tc.d.String())
	}
}

func TestTranscript(t *testing.T) {
	fb := &repository.Feedback{UserTag: "alice#1"}
	at := func(min int) time.Time { return epoch.Add(time.Duration(min) * time.Minute) }
	msgs := []discord.Message{
		{Embeds: []discord.Embed{{Title: staffDMSentTitle, Description: "ping @here", Footer: staffFooterPrefix + "mod#0001"}}, CreatedAt: at(2)},
		{Content: threadOpenedNotice, CreatedAt: at(0)},
		{Embeds: []discord.Embed{{Title: userCommentTitle, Description: strings.Repeat("x", 400)}}, CreatedAt: at(1)},
		{Embeds: []discord.Embed{{Title: "🗳️ Feedback", Description: "ignored"}}, CreatedAt: at(3)},
	}

	lines := strings.Split(transcript(fb, msgs), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "@alice#1: "+strings.Repeat("x", 299)+"… — <t:"), lines[0])
	assert.Equal(t, fmt.Sprintf("@staff (mod#0001): ping @\u200bhere — <t:%d:t>", at(2).Unix()), lines[1])
}
