package music

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/foxseedlab/darkbot/internal/discord"
	"github.com/foxseedlab/darkbot/internal/player"
)

// handlePlayerEvent keeps the controller and timers in step with playback.
// Events from a queue that is no longer the guild's current one are
// dropped so they cannot touch a newer controller.
func (s *Service) handlePlayerEvent(guildID string, q QueueHandle, e player.Event) {
	release := s.sessions.Acquire(guildID)
	defer release()

	if !s.isCurrentQueue(guildID, q) {
		slog.Debug("ignoring event from detached queue", "guild_id", guildID, "event", e.Type.String())
		return
	}

	switch e.Type {
	case player.EventTrackAdd:
		s.sessions.Touch(guildID)
		s.sessions.AppendLog(guildID, fmt.Sprintf("➕ Added **%s** to the queue.", e.Track.DisplayTitle()))
		s.prefetch(q, s.prefetchSize())
		s.refreshController(guildID)
	case player.EventTracksAdd:
		s.sessions.Touch(guildID)
		s.sessions.AppendLog(guildID, fmt.Sprintf("📃 Added playlist **%d** tracks.", len(e.Tracks)))
		s.prefetch(q, playlistPrefetchSize)
		s.refreshController(guildID)
	case player.EventTrackStart:
		s.sessions.Touch(guildID)
		s.sessions.AppendLog(guildID, fmt.Sprintf("▶️ Now playing: **%s**", e.Track.DisplayTitle()))
		s.prefetch(q, s.prefetchSize())
		s.refreshController(guildID)
	case player.EventTrackEnd:
		slog.Debug("track finished", "guild_id", guildID, "title", e.Track.DisplayTitle())
	case player.EventEmptyQueue:
		s.sessions.AppendLog(guildID, "⏳ Queue finished (staying in channel).")
		s.armIdle(guildID)
		s.refreshController(guildID)
	case player.EventError:
		s.sessions.AppendLog(guildID, fmt.Sprintf("⚠️ Player error: %v", e.Err))
		s.refreshController(guildID)
	case player.EventDisconnect:
		s.detachQueue(guildID)
		s.sessions.AppendLog(guildID, "🔚 Disconnected from voice.")
		s.sessions.CancelIdle(guildID)
		s.sessions.CancelAlone(guildID)
		s.finalizeController(guildID)
	}
}

func (s *Service) armIdle(guildID string) {
	s.sessions.ArmIdle(guildID, func() { s.onIdle(guildID) })
}

func (s *Service) armAlone(guildID string) {
	s.sessions.ArmAlone(guildID, func() { s.onAlone(guildID) })
}

func (s *Service) onIdle(guildID string) {
	release := s.sessions.Acquire(guildID)
	defer release()

	if q := s.detachQueue(guildID); q != nil {
		if q.Connected() {
			s.sessions.AppendLog(guildID, fmt.Sprintf("🕙 Inactive for %s — leaving voice.", humanMinutes(s.cfg.MusicInactivity)))
		}
		q.Destroy()
	}
	s.sessions.CancelAlone(guildID)
	s.finalizeController(guildID)
}

func (s *Service) onAlone(guildID string) {
	release := s.sessions.Acquire(guildID)
	defer release()

	if s.queue(guildID) == nil || !s.botAlone(guildID) {
		return
	}
	s.sessions.AppendLog(guildID, fmt.Sprintf("🕙 Alone for %s — leaving voice.", humanMinutes(s.cfg.MusicInactivity)))
	if q := s.detachQueue(guildID); q != nil {
		q.Destroy()
	}
	s.sessions.CancelIdle(guildID)
	s.finalizeController(guildID)
}

// botAlone reports whether the bot sits in a voice channel with no human
// members.
func (s *Service) botAlone(guildID string) bool {
	channelID, err := s.discord.GetUserVoiceChannelID(guildID, s.botUserID())
	if err != nil || channelID == "" {
		return false
	}
	participants, err := s.discord.ListVoiceChannelParticipants(guildID, channelID)
	if err != nil {
		slog.Debug("failed to list voice participants", "guild_id", guildID, "channel_id", channelID, "error", err)
		return false
	}
	for _, p := range participants {
		if !p.IsBot {
			return false
		}
	}
	return true
}

// HandleVoiceStateUpdate tears the queue down when the bot is disconnected
// and arms or cancels the alone timer as members come and go.
func (s *Service) HandleVoiceStateUpdate(event discord.VoiceStateEvent) {
	if event.GuildID == "" {
		return
	}
	guildID := event.GuildID
	botID := s.botUserID()

	release := s.sessions.Acquire(guildID)
	defer release()

	if event.UserID == botID && event.AfterChannelID == "" {
		if q := s.detachQueue(guildID); q != nil {
			slog.Info("bot was disconnected from voice", "guild_id", guildID, "channel_id", event.BeforeChannelID)
			s.sessions.AppendLog(guildID, "🔚 Disconnected from voice.")
			q.Destroy()
		}
		s.sessions.CancelIdle(guildID)
		s.sessions.CancelAlone(guildID)
		s.finalizeController(guildID)
		return
	}

	q := s.queue(guildID)
	if q == nil || !q.Connected() {
		s.sessions.CancelAlone(guildID)
		return
	}
	if !s.botAlone(guildID) {
		if s.sessions.CancelAlone(guildID) {
			slog.Info("alone timer cancelled", "guild_id", guildID)
		}
		return
	}
	if snap, ok := s.sessions.Get(guildID); ok && snap.AloneArmed {
		return
	}
	slog.Info("bot is alone in voice; arming alone timer", "guild_id", guildID, "after", s.cfg.MusicInactivity)
	s.armAlone(guildID)
}

func humanMinutes(d time.Duration) string {
	m := int(d.Round(time.Minute) / time.Minute)
	if m == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", m)
}
