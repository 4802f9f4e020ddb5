package music

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/foxseedlab/darkbot/internal/player"
)

// prefetchMaxAge bounds how long a pre-resolved stream URL is trusted.
// Signed CDN URLs from yt-dlp usually stay valid for several hours.
const prefetchMaxAge = 20 * time.Minute

const playlistPrefetchSize = 3

// QueueHandle is the queue surface the controller relies on. Optional
// operations are advertised through Capabilities and must not be called
// when their flag is false.
type QueueHandle interface {
	GuildID() string
	VoiceChannelID() string
	Connected() bool
	Capabilities() player.Capabilities

	AddTrack(t *player.Track) error
	AddTracks(ts []*player.Track) error
	InsertTrack(t *player.Track, idx int) error
	Tracks() []*player.Track
	Size() int
	Current() *player.Track
	History() []*player.Track
	PopHistory() (*player.Track, bool)

	IsPlaying() bool
	IsPaused() bool
	Play() error
	Skip() error
	Back() error
	Seek(pos time.Duration) error
	RepeatMode() player.RepeatMode
	SetRepeatMode(m player.RepeatMode)
	Destroy()
}

type QueueFactory func(opts player.Options) QueueHandle

func newPlayerQueue(opts player.Options) QueueHandle {
	return player.NewQueue(opts)
}

func (s *Service) queue(guildID string) QueueHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queues[guildID]
}

// detachQueue forgets the guild's queue and returns it so the caller can
// destroy it. Events from a detached queue are ignored.
func (s *Service) detachQueue(guildID string) QueueHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	q := s.queues[guildID]
	delete(s.queues, guildID)
	return q
}

func (s *Service) isCurrentQueue(guildID string, q QueueHandle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.queues[guildID]
	return ok && current == q
}

// getOrCreateQueue reuses the guild's connected queue or joins the voice
// channel and builds a new one. The queue never leaves voice on its own;
// leaving is decided by the idle and alone timers.
func (s *Service) getOrCreateQueue(guildID, voiceChannelID string) (QueueHandle, error) {
	if q := s.queue(guildID); q != nil {
		if q.Connected() {
			return q, nil
		}
		s.detachQueue(guildID)
	}

	voice, err := s.discord.JoinVoiceChannel(guildID, voiceChannelID)
	if err != nil {
		return nil, fmt.Errorf("failed to join voice channel: %w", err)
	}
	slog.Info("joined voice channel for music", "guild_id", guildID, "channel_id", voiceChannelID)

	var q QueueHandle
	q = s.newQueue(player.Options{
		GuildID:        guildID,
		VoiceChannelID: voiceChannelID,
		Hook:           s.streamHook(guildID),
		Sink:           s.newSink(voice, s.cfg.MusicVolume),
		OnEvent: func(e player.Event) {
			s.handlePlayerEvent(guildID, q, e)
		},
		Disconnect:   voice.Disconnect,
		Clock:        s.clock,
		LeaveOnEmpty: false,
		LeaveOnEnd:   false,
	})

	s.mu.Lock()
	s.queues[guildID] = q
	s.mu.Unlock()
	s.sessions.AppendLog(guildID, "🔊 Connected to voice channel.")
	return q, nil
}

// streamHook returns the URL the player should stream for a track. A fresh
// prefetched URL wins; otherwise the track is resolved now.
func (s *Service) streamHook(guildID string) player.StreamHook {
	return func(ctx context.Context, t *player.Track) (string, error) {
		if url, ok := t.TakeStream(s.clock.Now(), prefetchMaxAge); ok {
			s.sessions.Touch(guildID)
			return url, nil
		}

		basis := firstNonEmpty(t.Title, t.Query, t.PageURL)
		res := s.resolver.Resolve(ctx, basis)
		if res.OK && res.StreamURL != "" {
			t.AttachStream(res.StreamURL, s.clock.Now())
			s.sessions.Touch(guildID)
			return res.StreamURL, nil
		}
		page := firstNonEmpty(res.PageURL, t.PageURL, basis)
		return "", fmt.Errorf("direct stream unavailable: %s", page)
	}
}

// prefetch resolves the next n upcoming tracks in the background so the
// stream hook can start them without waiting on yt-dlp. Failures are
// ignored.
func (s *Service) prefetch(q QueueHandle, n int) {
	if q == nil || n <= 0 {
		return
	}
	upcoming := q.Tracks()
	if len(upcoming) > n {
		upcoming = upcoming[:n]
	}
	if len(upcoming) == 0 {
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.background.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.background.Done()
		for _, t := range upcoming {
			if t.HasFreshStream(s.clock.Now(), prefetchMaxAge) {
				continue
			}
			basis := firstNonEmpty(t.Title, t.PageURL, t.Query)
			if basis == "" {
				continue
			}
			res := s.resolver.Resolve(context.Background(), basis)
			if !res.OK || res.StreamURL == "" {
				slog.Debug("prefetch failed", "guild_id", q.GuildID(), "basis", basis, "error", res.Error)
				continue
			}
			t.AttachStream(res.StreamURL, s.clock.Now())
		}
	}()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
