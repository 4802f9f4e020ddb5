package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/foxseedlab/darkbot/internal/clock"
	"github.com/foxseedlab/darkbot/internal/config"
	"github.com/foxseedlab/darkbot/internal/discord"
	"github.com/foxseedlab/darkbot/internal/discord/discordtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type completeCall struct {
	prompt  string
	history []Turn
}

type fakeCompleter struct {
	mu      sync.Mutex
	answers []string
	err     error
	calls   []completeCall
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string, history []Turn) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, completeCall{prompt: prompt, history: append([]Turn(nil), history...)})
	if f.err != nil {
		return "", f.err
	}
	if len(f.answers) == 0 {
		return "ok", nil
	}
	a := f.answers[0]
	f.answers = f.answers[1:]
	return a, nil
}

type fixture struct {
	svc       *Service
	dc        *discordtest.Client
	completer *fakeCompleter
	clk       *clock.Fake
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := &config.Config{
		AIProvider:          config.AIProviderCohere,
		CohereAPIKey:        "key",
		AIInactivity:        5 * time.Minute,
		AIRequestsPerMinute: 30,
	}
	f := &fixture{
		dc:        discordtest.NewClient(),
		completer: &fakeCompleter{},
		clk:       clock.NewFake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
	}
	f.svc = NewService(cfg, f.dc, f.completer, f.clk)
	t.Cleanup(f.svc.Close)
	return f
}

func (f *fixture) start(t *testing.T, prompt string) (string, *discordtest.Responder) {
	t.Helper()
	r := &discordtest.Responder{}
	in := discord.Interaction{
		Kind:        discord.InteractionCommand,
		ChannelID:   "c1",
		User:        discord.UserInfo{ID: "alice"},
		CommandName: CommandName,
		Options:     map[string]string{"prompt": prompt},
		Responder:   r,
	}
	require.NoError(t, f.svc.HandleCommand(context.Background(), in))
	sent := f.dc.SentMessages()
	if len(sent) == 0 {
		return "", r
	}
	return sent[len(sent)-1].MessageID, r
}

func reply(id, author, refID, content string) discord.MessageEvent {
	return discord.MessageEvent{ID: id, ChannelID: "c1", AuthorID: author, ReferenceID: refID, Content: content}
}

func TestHandleCommand_StartsSession(t *testing.T) {
	f := newFixture(t)
	f.completer.answers = []string{"Hi Alice!"}

	anchor, r := f.start(t, "  hello  ")

	assert.Equal(t, []string{"defer", "edit"}, r.Kinds())
	assert.Equal(t, msgSessionStarted, r.LastText())
	require.Len(t, f.completer.calls, 1)
	assert.Equal(t, "hello", f.completer.calls[0].prompt)
	assert.Empty(t, f.completer.calls[0].history)

	sent := f.dc.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "Hi Alice!", sent[0].Payload.Content)
	assert.Equal(t, "msg-1", anchor)
	assert.Equal(t, 1, f.svc.Active())
}

func TestHandleCommand_Validation(t *testing.T) {
	f := newFixture(t)

	_, r := f.start(t, "   ")
	assert.Equal(t, msgEmptyPrompt, r.LastText())
	assert.True(t, r.Last().Ephemeral)

	f.svc.cfg.CohereAPIKey = ""
	_, r = f.start(t, "hello")
	assert.Equal(t, "❌ Missing COHERE_API_KEY in .env", r.LastText())
	assert.Empty(t, f.completer.calls)
}

func TestHandleCommand_CompletionError(t *testing.T) {
	f := newFixture(t)
	f.completer.err = errors.New("boom")

	_, r := f.start(t, "hello")

	assert.Equal(t, msgContactFailed, r.LastText())
	assert.Empty(t, f.dc.SentMessages())
	assert.Equal(t, 0, f.svc.Active())
}

func TestHandleCommand_TruncatesLongAnswers(t *testing.T) {
	f := newFixture(t)
	f.completer.answers = []string{strings.Repeat("é", 2500)}

	f.start(t, "essay")

	sent := f.dc.SentMessages()
	require.Len(t, sent, 1)
	assert.Len(t, []rune(sent[0].Payload.Content), maxReplyLength)
}

func TestHandleMessage_ContinuesConversation(t *testing.T) {
	f := newFixture(t)
	f.completer.answers = []string{"first answer", "second answer", "third answer"}
	anchor, _ := f.start(t, "first")

	f.svc.HandleMessage(context.Background(), reply("u-1", "alice", anchor, "second"))

	require.Len(t, f.completer.calls, 2)
	assert.Equal(t, "second", f.completer.calls[1].prompt)
	assert.Equal(t, []Turn{{Role: RoleUser, Text: "first"}, {Role: RoleChatbot, Text: "first answer"}}, f.completer.calls[1].history)
	require.Len(t, f.dc.Replies, 1)
	assert.Equal(t, "second answer", f.dc.Replies[0].Payload.Content)

	// Replying to the bot's follow-up continues the same conversation.
	f.svc.HandleMessage(context.Background(), reply("u-2", "alice", "reply-2", "third"))
	require.Len(t, f.completer.calls, 3)
	assert.Len(t, f.completer.calls[2].history, 4)
}

func TestHandleMessage_IgnoresUnrelated(t *testing.T) {
	f := newFixture(t)
	anchor, _ := f.start(t, "first")

	f.svc.HandleMessage(context.Background(), reply("u-1", "alice", "", "no reference"))
	f.svc.HandleMessage(context.Background(), reply("u-2", "alice", "unknown", "other message"))
	bot := reply("u-3", "bot", anchor, "from a bot")
	bot.AuthorBot = true
	f.svc.HandleMessage(context.Background(), bot)

	assert.Len(t, f.completer.calls, 1)
	assert.Empty(t, f.dc.Replies)
}

func TestHandleMessage_OtherUserIsRejected(t *testing.T) {
	f := newFixture(t)
	anchor, _ := f.start(t, "first")

	f.svc.HandleMessage(context.Background(), reply("u-1", "mallory", anchor, "let me in"))

	require.Len(t, f.dc.Replies, 1)
	assert.Equal(t, msgNotOwner, f.dc.Replies[0].Payload.Content)
	assert.Len(t, f.completer.calls, 1)
}

func TestHandleMessage_GoodbyeEndsSession(t *testing.T) {
	f := newFixture(t)
	anchor, _ := f.start(t, "first")

	f.svc.HandleMessage(context.Background(), reply("u-1", "alice", anchor, "ok bye now"))

	require.Len(t, f.dc.Replies, 1)
	assert.Equal(t, msgEnded, f.dc.Replies[0].Payload.Content)
	assert.Equal(t, 0, f.svc.Active())

	f.clk.Advance(noticeLifetime)
	assert.Equal(t, []string{"c1/reply-2"}, f.dc.Deleted)

	f.svc.HandleMessage(context.Background(), reply("u-2", "alice", anchor, "still there?"))
	assert.Len(t, f.completer.calls, 1)
}

func TestSessionExpiresAfterInactivity(t *testing.T) {
	f := newFixture(t)
	anchor, _ := f.start(t, "first")

	f.clk.Advance(4 * time.Minute)
	f.svc.HandleMessage(context.Background(), reply("u-1", "alice", anchor, "still here"))
	f.clk.Advance(4 * time.Minute)
	assert.Equal(t, 1, f.svc.Active(), "activity must reset the inactivity timer")

	f.clk.Advance(time.Minute)
	assert.Equal(t, 0, f.svc.Active())
	sent := f.dc.SentMessages()
	last := sent[len(sent)-1]
	assert.Equal(t, "💤 Conversation with <@alice> expired after 5 minutes of inactivity.", last.Payload.Content)

	f.clk.Advance(noticeLifetime)
	assert.Contains(t, f.dc.Deleted, "c1/"+last.MessageID)
}

func TestTrimHistory(t *testing.T) {
	var h []Turn
	for i := 0; i < 20; i++ {
		h = append(h, Turn{Role: RoleUser, Text: string(rune('a' + i))})
	}
	trimmed := trimHistory(h, maxHistoryTurns)
	require.Len(t, trimmed, 12)
	assert.Equal(t, "i", trimmed[0].Text)
	assert.Equal(t, "t", trimmed[11].Text)
}

func TestGoodbyePattern(t *testing.T) {
	for _, s := range []string{"bye", "Goodbye!", "please END CHAT", "cancel that", "quit"} {
		assert.True(t, goodbyePattern.MatchString(s), s)
	}
	for _, s := range []string{"byebye", "abortion laws", "quitting time"} {
		assert.False(t, goodbyePattern.MatchString(s), s)
	}
}
