// Package moderation implements the guild administration commands and
// /ping.
package moderation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/foxseedlab/darkbot/internal/discord"
)

const (
	CommandBan     = "ban"
	CommandKick    = "kick"
	CommandTimeout = "timeout"
	CommandClear   = "clear"
	CommandPing    = "ping"

	// MaxTimeout is the longest timeout the platform accepts.
	MaxTimeout = 28 * 24 * time.Hour

	clearMin = 1
	clearMax = 100

	colorRed    = 0xFF0000
	colorOrange = 0xFFA500
	colorGreen  = 0x57F287
	colorYellow = 0xFEE75C
	colorCrit   = 0xED4245
)

// CommandNames lists every command this package answers.
var CommandNames = []string{CommandBan, CommandKick, CommandTimeout, CommandClear, CommandPing}

const msgInvalidDuration = "Invalid duration. Use `30s`, `10m`, `2h`, `3d`, or a plain number of seconds."

func SlashCommandDefinitions() []discord.SlashCommandDefinition {
	return []discord.SlashCommandDefinition{
		{
			Name:        CommandBan,
			Description: "Ban a user from the server",
			Options: []discord.CommandOption{
				{Name: "target", Description: "The user to ban", Type: discord.OptionUser, Required: true},
			},
		},
		{
			Name:        CommandKick,
			Description: "Kicks a member from the server.",
			Options: []discord.CommandOption{
				{Name: "member", Description: "The member to kick", Type: discord.OptionUser, Required: true},
			},
		},
		{
			Name:        CommandTimeout,
			Description: "Timeout a member for a specified duration",
			Options: []discord.CommandOption{
				{Name: "target", Description: "The member to timeout", Type: discord.OptionUser, Required: true},
				{Name: "duration", Description: "e.g. 30s, 10m, 2h, 3d, or plain seconds like 100", Type: discord.OptionString, Required: true},
				{Name: "reason", Description: "Reason (optional)", Type: discord.OptionString},
			},
		},
		{
			Name:        CommandClear,
			Description: "Deletes a specified number of messages from the channel.",
			Options: []discord.CommandOption{
				{Name: "amount", Description: "Number of messages to delete", Type: discord.OptionInteger, Required: true},
			},
		},
		{
			Name:        CommandPing,
			Description: "Replies with Pong! and latency metrics",
			Options: []discord.CommandOption{
				{Name: "ephemeral", Description: "Show only to you (default: true)", Type: discord.OptionBoolean},
			},
			DMAllowed: true,
		},
	}
}

var (
	plainSeconds = regexp.MustCompile(`^\d+(\.\d+)?$`)
	unitDuration = regexp.MustCompile(`^(\d+(?:\.\d+)?)(s|sec|secs|second|seconds|m|min|mins|minute|minutes|h|hr|hrs|hour|hours|d|day|days)$`)
)

// ParseDuration reads "100", "30s", "10m", "2h", "3d" and their long unit
// spellings. Results are at least one second and at most MaxTimeout.
func ParseDuration(input string) (time.Duration, error) {
	raw := strings.ToLower(strings.TrimSpace(input))

	var seconds float64
	switch {
	case plainSeconds.MatchString(raw):
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", input, err)
		}
		seconds = n
	default:
		m := unitDuration.FindStringSubmatch(raw)
		if m == nil {
			return 0, fmt.Errorf("invalid duration %q", input)
		}
		n, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", input, err)
		}
		seconds = n * unitSeconds(m[2])
	}

	d := time.Duration(int64(seconds)) * time.Second
	if d < time.Second {
		d = time.Second
	}
	if d > MaxTimeout {
		d = MaxTimeout
	}
	return d, nil
}

func unitSeconds(unit string) float64 {
	switch unit[0] {
	case 's':
		return 1
	case 'm':
		return 60
	case 'h':
		return 3600
	default:
		return 86400
	}
}

// formatDuration renders d as "3d 4h 5m", falling back to seconds below a
// minute.
func formatDuration(d time.Duration) string {
	s := int64(d / time.Second)
	if s < 1 {
		s = 1
	}
	days := s / 86400
	hours := (s % 86400) / 3600
	minutes := (s % 3600) / 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	if len(parts) == 0 {
		return fmt.Sprintf("%ds", s)
	}
	return strings.Join(parts, " ")
}

func formatMillis(d time.Duration) string {
	ms := d.Milliseconds()
	if ms < 1000 {
		return fmt.Sprintf("%d ms", ms)
	}
	return fmt.Sprintf("%ds", ms/1000)
}

func pingColor(d time.Duration) int {
	switch ms := d.Milliseconds(); {
	case ms <= 120:
		return colorGreen
	case ms <= 250:
		return colorYellow
	default:
		return colorCrit
	}
}
