// Package feedback runs the /feedback support desk: tickets are posted to a
// support channel for staff, mirrored to a status card in the reporter's
// DMs, and discussed in a private thread the reporter can join from the
// intake panel.
package feedback

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/foxseedlab/darkbot/internal/discord"
	"github.com/foxseedlab/darkbot/internal/repository"
)

const (
	dmOrigin          = "DM"
	blacklistDays     = 7
	blacklistDuration = blacklistDays * 24 * time.Hour
	transcriptItems   = 100
	transcriptChars   = 3500
	transcriptLineMax = 300
	dmNoticeLifetime  = 2500 * time.Millisecond
)

var categoryKeywords = []struct {
	key   string
	words []string
}{
	{key: "bug", words: []string{"bug", "issue", "error", "problem", "glitch", "fix"}},
	{key: "idea", words: []string{"idea", "suggestion", "feature", "request", "improvement"}},
	{key: "other", words: []string{"other", "misc", "general"}},
}

// normalizeCategory maps free text onto bug, idea or other.
func normalizeCategory(raw string) string {
	c := strings.ToLower(strings.TrimSpace(raw))
	for _, k := range categoryKeywords {
		if c == k.key {
			return k.key
		}
		for _, w := range k.words {
			if strings.Contains(c, w) {
				return k.key
			}
		}
	}
	return "other"
}

func newFeedbackID(guildID, userID string, now time.Time) string {
	origin := guildID
	if origin == "" {
		origin = dmOrigin
	}
	return fmt.Sprintf("%s-%d-%s", origin, now.UnixMilli(), userID)
}

// formatRemaining renders a wait as "2d 3h", "4h 5m" or "6m". Waits under a
// minute round up to "1m".
func formatRemaining(d time.Duration) string {
	s := int64(math.Ceil(d.Seconds()))
	if s < 0 {
		s = 0
	}
	days := s / 86400
	hours := (s % 86400) / 3600
	minutes := (s % 3600) / 60
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case minutes == 0 && s > 0:
		return "1m"
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}

func threadName(f *repository.Feedback) string {
	return fmt.Sprintf("FB • %s • %s", sanitize(f.Category, 20), sanitize(f.UserTag, 16))
}

var whitespace = regexp.MustCompile(`\s+`)

// transcript rebuilds the conversation from the thread's comment and staff
// reply embeds, oldest first. msgs may come in any order.
func transcript(f *repository.Feedback, msgs []discord.Message) string {
	sorted := append([]discord.Message(nil), msgs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	var lines []string
	total := 0
	for _, m := range sorted {
		if len(m.Embeds) == 0 {
			continue
		}
		e := m.Embeds[0]
		title := strings.ToLower(e.Title)
		var who string
		switch {
		case strings.Contains(title, "user comment"):
			who = "@" + f.UserTag
		case strings.Contains(title, "staff dm sent to user"):
			tag := strings.TrimPrefix(e.Footer, staffFooterPrefix)
			if tag == "" {
				tag = "staff"
			}
			who = fmt.Sprintf("@staff (%s)", tag)
		default:
			continue
		}

		text := whitespace.ReplaceAllString(strings.TrimSpace(e.Description), " ")
		text = strings.ReplaceAll(text, "@", "@\u200b")
		if r := []rune(text); len(r) > transcriptLineMax {
			text = string(r[:transcriptLineMax-1]) + "…"
		}
		line := fmt.Sprintf("%s: %s — <t:%d:t>", who, text, m.CreatedAt.Unix())

		n := len([]rune(line))
		if len(lines) > 0 {
			n++
		}
		if total+n > transcriptChars {
			break
		}
		lines = append(lines, line)
		total += n
		if len(lines) >= transcriptItems {
			break
		}
	}
	return strings.Join(lines, "\n")
}

func isPanelMessage(m discord.Message) bool {
	for _, id := range m.ButtonIDs {
		if id == ButtonGrant {
			return true
		}
	}
	for _, e := range m.Embeds {
		if strings.Contains(e.Title, "Get Access to Your Conversation") {
			return true
		}
	}
	return false
}
