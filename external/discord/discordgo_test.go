package discord

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	discordpkg "github.com/foxseedlab/darkbot/internal/discord"
)

type roundTripFunc func(req *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestSession(t *testing.T, rt roundTripFunc) *discordgo.Session {
	t.Helper()
	s, err := discordgo.New("Bot test-token")
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	if rt != nil {
		s.Client = &http.Client{Transport: rt}
	}
	return s
}

func TestGetUserVoiceChannelID_UsesStateCacheFirst(t *testing.T) {
	s := newTestSession(t, func(req *http.Request) (*http.Response, error) {
		t.Fatalf("unexpected REST call: %s %s", req.Method, req.URL.String())
		return nil, nil
	})
	if err := s.State.GuildAdd(&discordgo.Guild{
		ID: "guild-1",
		VoiceStates: []*discordgo.VoiceState{
			{GuildID: "guild-1", ChannelID: "vc-1", UserID: "user-1"},
		},
	}); err != nil {
		t.Fatalf("failed to add guild to state: %v", err)
	}

	c := &Client{session: s}
	channelID, err := c.GetUserVoiceChannelID("guild-1", "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if channelID != "vc-1" {
		t.Fatalf("expected vc-1, got %q", channelID)
	}
}

func TestGetUserVoiceChannelID_FallsBackToRESTWhenStateIsCold(t *testing.T) {
	s := newTestSession(t, func(req *http.Request) (*http.Response, error) {
		if !strings.HasSuffix(req.URL.Path, "/guilds/guild-1/voice-states/user-1") {
			t.Fatalf("unexpected request path: %s", req.URL.Path)
		}
		return &http.Response{
			StatusCode: http.StatusOK,
			Status:     "200 OK",
			Body: io.NopCloser(strings.NewReader(
				`{"guild_id":"guild-1","channel_id":"vc-rest","user_id":"user-1","session_id":"x","deaf":false,"mute":false,"self_deaf":false,"self_mute":false,"self_video":false,"suppress":false}`,
			)),
			Header: make(http.Header),
		}, nil
	})

	c := &Client{session: s}
	channelID, err := c.GetUserVoiceChannelID("guild-1", "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if channelID != "vc-rest" {
		t.Fatalf("expected vc-rest, got %q", channelID)
	}
}

func TestGetUserVoiceChannelID_ReturnsEmptyOnRESTNotFound(t *testing.T) {
	s := newTestSession(t, func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusNotFound,
			Status:     "404 Not Found",
			Body:       io.NopCloser(strings.NewReader(`{"message":"Unknown Voice State","code":10065}`)),
			Header:     make(http.Header),
		}, nil
	})

	c := &Client{session: s}
	channelID, err := c.GetUserVoiceChannelID("guild-1", "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if channelID != "" {
		t.Fatalf("expected empty channel id, got %q", channelID)
	}
}

func TestListVoiceChannelParticipants_UsesVoiceStateMemberFlag(t *testing.T) {
	s := newTestSession(t, func(req *http.Request) (*http.Response, error) {
		t.Fatalf("unexpected REST call: %s %s", req.Method, req.URL.String())
		return nil, nil
	})
	if err := s.State.GuildAdd(&discordgo.Guild{
		ID: "guild-1",
		VoiceStates: []*discordgo.VoiceState{
			{GuildID: "guild-1", ChannelID: "vc-1", UserID: "human", Member: &discordgo.Member{User: &discordgo.User{ID: "human"}}},
			{GuildID: "guild-1", ChannelID: "vc-1", UserID: "bot", Member: &discordgo.Member{User: &discordgo.User{ID: "bot", Bot: true}}},
			{GuildID: "guild-1", ChannelID: "vc-2", UserID: "elsewhere", Member: &discordgo.Member{User: &discordgo.User{ID: "elsewhere"}}},
		},
	}); err != nil {
		t.Fatalf("failed to add guild to state: %v", err)
	}

	c := &Client{session: s}
	participants, err := c.ListVoiceChannelParticipants("guild-1", "vc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(participants) != 2 {
		t.Fatalf("expected 2 participants, got %d", len(participants))
	}
	for _, p := range participants {
		if p.UserID == "bot" && !p.IsBot {
			t.Fatal("expected bot flag for bot participant")
		}
		if p.UserID == "human" && p.IsBot {
			t.Fatal("unexpected bot flag for human participant")
		}
	}
}

func TestToInteraction_ModalSubmitFields(t *testing.T) {
	s := newTestSession(t, nil)
	ic := &discordgo.Interaction{
		ID:        "1",
		Type:      discordgo.InteractionModalSubmit,
		GuildID:   "guild-1",
		ChannelID: "text-1",
		Member:    &discordgo.Member{User: &discordgo.User{ID: "user-1", Username: "alice", Discriminator: "0"}, Permissions: discordpkg.PermissionManageGuild},
		Data: discordgo.ModalSubmitInteractionData{
			CustomID: "music:play:modal:root",
			Components: []discordgo.MessageComponent{
				&discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					&discordgo.TextInput{CustomID: "music:play:input", Value: "lofi beats"},
				}},
			},
		},
	}

	got, ok := toInteraction(s, ic)
	if !ok {
		t.Fatal("expected interaction to convert")
	}
	if got.Kind != discordpkg.InteractionModalSubmit {
		t.Fatalf("unexpected kind: %v", got.Kind)
	}
	if got.Field("music:play:input") != "lofi beats" {
		t.Fatalf("unexpected field value: %q", got.Field("music:play:input"))
	}
	if got.User.Tag != "alice" {
		t.Fatalf("unexpected user tag: %q", got.User.Tag)
	}
	if !got.HasPermission(discordpkg.PermissionManageGuild) {
		t.Fatal("expected member permission to carry over")
	}
}

func TestToInteraction_SkipsMissingUser(t *testing.T) {
	s := newTestSession(t, nil)
	ic := &discordgo.Interaction{
		ID:   "1",
		Type: discordgo.InteractionMessageComponent,
		Data: discordgo.MessageComponentInteractionData{CustomID: "music:play"},
	}
	if _, ok := toInteraction(s, ic); ok {
		t.Fatal("expected interaction without user to be skipped")
	}
}

func TestCommandOptions(t *testing.T) {
	opts := commandOptions([]*discordgo.ApplicationCommandInteractionDataOption{
		{Name: "prompt", Type: discordgo.ApplicationCommandOptionString, Value: "hello"},
		{Name: "amount", Type: discordgo.ApplicationCommandOptionInteger, Value: float64(12)},
		{Name: "ephemeral", Type: discordgo.ApplicationCommandOptionBoolean, Value: false},
		{Name: "target", Type: discordgo.ApplicationCommandOptionUser, Value: "user-9"},
	})
	want := map[string]string{"prompt": "hello", "amount": "12", "ephemeral": "false", "target": "user-9"}
	for k, v := range want {
		if opts[k] != v {
			t.Fatalf("option %s: expected %q, got %q", k, v, opts[k])
		}
	}
}

func TestToComponents_LinkButtonDropsCustomID(t *testing.T) {
	rows := toComponents([][]discordpkg.Button{{
		{CustomID: "x", Label: "Invite", Style: discordpkg.ButtonLink, URL: "https://discord.gg/abc"},
		{CustomID: "music:stop", Emoji: "🛑", Style: discordpkg.ButtonDanger, Disabled: true},
	}})
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	row := rows[0].(discordgo.ActionsRow)
	link := row.Components[0].(discordgo.Button)
	if link.CustomID != "" || link.Style != discordgo.LinkButton {
		t.Fatalf("unexpected link button: %+v", link)
	}
	stop := row.Components[1].(discordgo.Button)
	if !stop.Disabled || stop.Emoji == nil || stop.Emoji.Name != "🛑" {
		t.Fatalf("unexpected stop button: %+v", stop)
	}
}

func TestCommandChanged(t *testing.T) {
	def := discordpkg.SlashCommandDefinition{
		Name:        "ai",
		Description: "Chat with the AI",
		Options:     []discordpkg.CommandOption{{Name: "prompt", Description: "Your message", Required: true}},
	}
	want := toApplicationCommand(def)
	same := toApplicationCommand(def)
	if commandChanged(same, want) {
		t.Fatal("expected identical commands to be unchanged")
	}
	same.Options[0].Required = false
	if !commandChanged(same, want) {
		t.Fatal("expected option change to be detected")
	}
}

func TestUpsertSlashCommands_CreatesMissingCommand(t *testing.T) {
	var created []string
	s := newTestSession(t, func(req *http.Request) (*http.Response, error) {
		switch {
		case req.Method == http.MethodGet && strings.HasSuffix(req.URL.Path, "/applications/app-1/guilds/guild-1/commands"):
			return jsonResponse(http.StatusOK, `[{"id":"c1","name":"ping","description":"Replies with Pong! and latency metrics","options":[{"type":5,"name":"ephemeral","description":"Show only to you (default: true)","required":false}]}]`), nil
		case req.Method == http.MethodPost && strings.HasSuffix(req.URL.Path, "/applications/app-1/guilds/guild-1/commands"):
			body, _ := io.ReadAll(req.Body)
			created = append(created, string(body))
			return jsonResponse(http.StatusCreated, `{"id":"c2","name":"music"}`), nil
		}
		t.Fatalf("unexpected request: %s %s", req.Method, req.URL.Path)
		return nil, nil
	})
	s.State.User = &discordgo.User{ID: "app-1"}

	c := &Client{session: s}
	err := c.UpsertSlashCommands("guild-1", []discordpkg.SlashCommandDefinition{
		{Name: "ping", Description: "Replies with Pong! and latency metrics", Options: []discordpkg.CommandOption{{Name: "ephemeral", Description: "Show only to you (default: true)", Type: discordpkg.OptionBoolean}}},
		{Name: "music", Description: "Music controller"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(created) != 1 || !strings.Contains(created[0], `"name":"music"`) {
		t.Fatalf("expected only music to be created, got %v", created)
	}
}

func TestShowModal_SendsRequiredFlagPerInput(t *testing.T) {
	var body map[string]any
	s := newTestSession(t, func(req *http.Request) (*http.Response, error) {
		if req.Method != http.MethodPost || !strings.HasSuffix(req.URL.Path, "/interactions/i-1/tok/callback") {
			t.Fatalf("unexpected request: %s %s", req.Method, req.URL.Path)
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode body: %v", err)
		}
		return jsonResponse(http.StatusNoContent, ""), nil
	})

	r := &responder{session: s, interaction: &discordgo.Interaction{ID: "i-1", Token: "tok", AppID: "app-1"}}
	err := r.ShowModal(discordpkg.Modal{
		CustomID: "fb:modal",
		Title:    "Feedback",
		Inputs: []discordpkg.TextInput{
			{CustomID: "fb:category", Label: "Category", Required: true, MaxLength: 50},
			{CustomID: "fb:content", Label: "Details", Paragraph: true},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !r.Acknowledged() {
		t.Fatal("modal must acknowledge the interaction")
	}

	data := body["data"].(map[string]any)
	rows := data["components"].([]any)
	if len(rows) != 2 {
		t.Fatalf("expected two rows, got %v", rows)
	}
	required := make([]any, 0, 2)
	for _, row := range rows {
		input := row.(map[string]any)["components"].([]any)[0].(map[string]any)
		required = append(required, input["required"])
	}
	if required[0] != true || required[1] != false {
		t.Fatalf("unexpected required flags: %v", required)
	}
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}
