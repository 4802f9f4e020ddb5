package music

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/foxseedlab/darkbot/internal/discord"
	"github.com/foxseedlab/darkbot/internal/player"
)

const (
	CommandName = "music"

	ButtonPlay     = "music:play"
	ButtonStop     = "music:stop"
	ButtonNext     = "music:next"
	ButtonSkip     = "music:skip"
	ButtonPrevious = "music:previous"
	ButtonLoop     = "music:loop"

	ModalPrefix   = "music:play:modal:"
	RootModalID   = ModalPrefix + "root"
	PlayInputID   = "music:play:input"
	ComponentRoot = "music:"
)

const (
	colorActive = 0x5865F2
	colorIdle   = 0x2B2D31
)

const (
	msgJoinVoice        = "Join a voice channel first."
	msgGuildOnly        = "This command only works in a server."
	msgControllerClosed = "This controller is closed. Start a new one with /music."
	msgCannotConnect    = "I cannot connect to that voice channel."
	msgCannotSpeak      = "I cannot speak in that voice channel."
	msgPlayFailed       = "Could not play that link. Try another link or search words."
	msgNothingToStop    = "Nothing to stop."
	msgStopped          = "Stopped and cleared the queue."
	msgNothingToSkip    = "Nothing to skip."
	msgNothingPlaying   = "Nothing is playing."
	msgPreviousDone     = "Playing previous track."
	msgNoPrevious       = "Previous is not supported by this player build."
	msgLoopOn           = "Loop enabled (track)."
	msgLoopOff          = "Loop disabled."
	msgOperationFailed  = "Operation failed."
)

func wrongVoiceMessage(channelName string) string {
	if channelName == "" {
		channelName = "the bot’s voice channel"
	}
	return fmt.Sprintf("You should join **%s**.", channelName)
}

func commandDefinition() discord.SlashCommandDefinition {
	return discord.SlashCommandDefinition{
		Name:        CommandName,
		Description: "Music controller (Play • Stop • Next • Previous • Loop).",
	}
}

func SlashCommandDefinitions() []discord.SlashCommandDefinition {
	return []discord.SlashCommandDefinition{commandDefinition()}
}

func playModal(customID string) discord.Modal {
	return discord.Modal{
		CustomID: customID,
		Title:    "Play — URL or keywords",
		Inputs: []discord.TextInput{{
			CustomID:    PlayInputID,
			Label:       "YouTube/Spotify URL or search",
			Placeholder: `https://youtu.be/... | https://open.spotify.com/... | "lofi beats"`,
			Required:    true,
			MaxLength:   200,
		}},
	}
}

func controllerButtons(disabled bool) [][]discord.Button {
	return [][]discord.Button{{
		{CustomID: ButtonPlay, Label: "Play", Emoji: "▶️", Style: discord.ButtonSuccess, Disabled: disabled},
		{CustomID: ButtonStop, Label: "Stop", Emoji: "🛑", Style: discord.ButtonDanger, Disabled: disabled},
		{CustomID: ButtonNext, Label: "Next", Emoji: "⏭️", Style: discord.ButtonSecondary, Disabled: disabled},
		{CustomID: ButtonPrevious, Label: "Previous", Emoji: "⏮️", Style: discord.ButtonSecondary, Disabled: disabled},
		{CustomID: ButtonLoop, Label: "Loop", Emoji: "🔁", Style: discord.ButtonPrimary, Disabled: disabled},
	}}
}

// controllerView is the queue state an embed is rendered from.
type controllerView struct {
	current   *player.Track
	repeat    player.RepeatMode
	queueSize int
	lyricsURL string
}

func controllerEmbed(v controllerView) discord.Embed {
	embed := discord.Embed{Title: "🎧 Music Controller"}
	if v.current == nil {
		embed.Description = "No track is currently playing.\nUse **Play** to add something!"
		embed.Color = colorIdle
		return embed
	}

	t := v.current
	var desc strings.Builder
	desc.WriteString("**Now Playing**\n")
	if t.PageURL != "" {
		fmt.Fprintf(&desc, "[%s](%s)\n", t.DisplayTitle(), t.PageURL)
	} else {
		desc.WriteString(t.DisplayTitle() + "\n")
	}
	if t.RequestedBy != "" {
		fmt.Fprintf(&desc, "*requested by <@%s>*", t.RequestedBy)
	}

	lyrics := "—"
	if v.lyricsURL != "" {
		lyrics = fmt.Sprintf("[here](%s)", v.lyricsURL)
	}

	embed.Description = desc.String()
	embed.Color = colorActive
	embed.Thumbnail = t.Thumbnail
	embed.Fields = []discord.EmbedField{
		{Name: "Loop", Value: v.repeat.String(), Inline: true},
		{Name: "Lyrics", Value: lyrics, Inline: true},
		{Name: "Queue size", Value: strconv.Itoa(v.queueSize), Inline: true},
	}
	return embed
}

func controllerPayload(v controllerView) discord.MessagePayload {
	return discord.MessagePayload{
		Embeds:     []discord.Embed{controllerEmbed(v)},
		Components: controllerButtons(false),
	}
}

func finalizedPayload() discord.MessagePayload {
	return discord.MessagePayload{
		Embeds: []discord.Embed{{
			Title:       "🎧 DarkBot Music",
			Description: "Thanks for using DarkBot music.",
			Color:       colorIdle,
		}},
		Components: controllerButtons(true),
	}
}

var (
	titleNoise     = regexp.MustCompile(`(?i)\s*[(\[](?:official(?:\s+music)?(?:\s+(?:video|audio|lyric video))?|(?:music\s+)?video|audio|lyrics?(?:\s+video)?|mv|hd|4k|visualizer|prod\.[^)\]]*)[)\]]\s*`)
	repeatedSpaces = regexp.MustCompile(`\s{2,}`)
)

func cleanTitle(s string) string {
	s = titleNoise.ReplaceAllString(s, " ")
	s = repeatedSpaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// lyricsSearchURL links to a Genius search for the track. Nothing is
// fetched; the link is built from the cleaned title.
func lyricsSearchURL(title string) string {
	title = cleanTitle(title)
	if title == "" {
		return ""
	}
	return "https://genius.com/search?q=" + url.QueryEscape(title+" lyrics")
}

func addedMessage(title string) string {
	return fmt.Sprintf("Added to queue: **%s**", title)
}

func queuedPlaylistMessage(kind string, count int, first string) string {
	return fmt.Sprintf("Queued **%d** tracks from %s. Now playing: **%s**", count, kind, first)
}

func skippedMessage(title string) string {
	return fmt.Sprintf("Skipped **%s**.", title)
}
