package chat

import (
	"context"
	"regexp"

	"github.com/foxseedlab/darkbot/internal/discord"
)

const CommandName = "ai"

const (
	maxHistoryTurns = 6
	maxReplyLength  = 2000
)

type Role string

const (
	RoleUser    Role = "USER"
	RoleChatbot Role = "CHATBOT"
)

type Turn struct {
	Role Role
	Text string
}

// Completer produces the assistant's answer to prompt given the earlier
// turns of the conversation. history never contains prompt itself.
type Completer interface {
	Complete(ctx context.Context, prompt string, history []Turn) (string, error)
}

const (
	msgEmptyPrompt    = "⚠️ Please type a non-empty message."
	msgSessionStarted = "✅ Session started! Reply to the bot’s message to continue chatting."
	msgContactFailed  = "❌ Error contacting the AI."
	msgReplyFailed    = "❌ AI error."
	msgNotOwner       = "🚫 This conversation belongs to someone else. Start your own with `/ai`."
	msgEnded          = "👋 Conversation ended."
	msgBusy           = "⏳ The AI is busy right now. Try again in a moment."
	EmptyResponse     = "⚠️ Empty response."
)

var goodbyePattern = regexp.MustCompile(`(?i)\b(end chat|goodbye|bye|cancel|quit|abort)\b`)

func SlashCommandDefinitions() []discord.SlashCommandDefinition {
	return []discord.SlashCommandDefinition{{
		Name:        CommandName,
		Description: "Chat with the AI (reply to continue your own session)",
		Options: []discord.CommandOption{{
			Name:        "prompt",
			Description: "Your first message to start chatting",
			Type:        discord.OptionString,
			Required:    true,
		}},
	}}
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func trimHistory(h []Turn, maxTurns int) []Turn {
	maxMsgs := maxTurns * 2
	if len(h) <= maxMsgs {
		return h
	}
	return append([]Turn(nil), h[len(h)-maxMsgs:]...)
}
