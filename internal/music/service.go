package music

import (
	"log/slog"
	"sync"

	"github.com/foxseedlab/darkbot/internal/audio"
	"github.com/foxseedlab/darkbot/internal/clock"
	"github.com/foxseedlab/darkbot/internal/config"
	"github.com/foxseedlab/darkbot/internal/discord"
	"github.com/foxseedlab/darkbot/internal/resolver"
	"github.com/foxseedlab/darkbot/internal/session"
)

// Service runs the music controller: one queue and one controller message
// per guild, driven by interactions, player events and voice updates.
type Service struct {
	cfg      *config.Config
	discord  discord.Client
	resolver resolver.Resolver
	sessions session.Store
	newSink  audio.SinkFactory
	newQueue QueueFactory
	clock    clock.Clock

	mu     sync.Mutex
	queues map[string]QueueHandle
	// closed stops new background work once Close has started waiting.
	closed bool

	background sync.WaitGroup
}

func NewService(cfg *config.Config, dc discord.Client, res resolver.Resolver, sessions session.Store, newSink audio.SinkFactory, clk clock.Clock) *Service {
	return &Service{
		cfg:      cfg,
		discord:  dc,
		resolver: res,
		sessions: sessions,
		newSink:  newSink,
		newQueue: newPlayerQueue,
		clock:    clk,
		queues:   make(map[string]QueueHandle),
	}
}

func (s *Service) prefetchSize() int {
	if s.cfg.MusicPrefetchSize > 0 {
		return s.cfg.MusicPrefetchSize
	}
	return 2
}

func (s *Service) botUserID() string {
	id, err := s.discord.GetBotUserID()
	if err != nil {
		slog.Warn("failed to resolve bot user id", "error", err)
	}
	return id
}

// Close tears down every queue and waits for background prefetches.
func (s *Service) Close() {
	s.mu.Lock()
	s.closed = true
	queues := s.queues
	s.queues = make(map[string]QueueHandle)
	s.mu.Unlock()

	for guildID, q := range queues {
		q.Destroy()
		s.finalizeController(guildID)
	}
	s.background.Wait()
}

// Logs returns the guild's recent music events, oldest first.
func (s *Service) Logs(guildID string) []string {
	return s.sessions.Logs(guildID)
}
