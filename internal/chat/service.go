package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/foxseedlab/darkbot/internal/clock"
	"github.com/foxseedlab/darkbot/internal/config"
	"github.com/foxseedlab/darkbot/internal/discord"
	"golang.org/x/time/rate"
)

// noticeLifetime is how long end and expiry notices stay visible.
const noticeLifetime = 5 * time.Second

var errBusy = errors.New("ai request limit reached")

type session struct {
	anchorID  string
	userID    string
	channelID string
	history   []Turn
	timer     clock.Timer
	gen       uint64
}

// Service runs /ai conversations. A conversation is anchored on the first
// bot reply; replying to any bot message of it continues the conversation.
type Service struct {
	cfg       *config.Config
	discord   discord.Client
	completer Completer
	clock     clock.Clock
	limiter   *rate.Limiter

	mu       sync.Mutex
	sessions map[string]*session
	anchors  map[string]string
	gen      uint64
}

func NewService(cfg *config.Config, dc discord.Client, completer Completer, clk clock.Clock) *Service {
	perMinute := cfg.AIRequestsPerMinute
	if perMinute <= 0 {
		perMinute = 30
	}
	return &Service{
		cfg:       cfg,
		discord:   dc,
		completer: completer,
		clock:     clk,
		limiter:   rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
		sessions:  make(map[string]*session),
		anchors:   make(map[string]string),
	}
}

func (s *Service) missingKeyMessage() string {
	name := "COHERE_API_KEY"
	if s.cfg.AIProvider == config.AIProviderOpenAI {
		name = "OPENAI_API_KEY"
	}
	return fmt.Sprintf("❌ Missing %s in .env", name)
}

func (s *Service) complete(ctx context.Context, prompt string, history []Turn) (string, error) {
	if !s.limiter.Allow() {
		return "", errBusy
	}
	text, err := s.completer.Complete(ctx, prompt, history)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return EmptyResponse, nil
	}
	return text, nil
}

// HandleCommand starts a conversation from /ai prompt:<text>.
func (s *Service) HandleCommand(ctx context.Context, in discord.Interaction) error {
	prompt := strings.TrimSpace(in.Option("prompt"))
	if s.cfg.AIAPIKey() == "" {
		return in.Responder.Reply(discord.Text(s.missingKeyMessage()), true)
	}
	if prompt == "" {
		return in.Responder.Reply(discord.Text(msgEmptyPrompt), true)
	}
	if err := in.Responder.Defer(true); err != nil {
		return err
	}
	_ = s.discord.SendTyping(in.ChannelID)

	text, err := s.complete(ctx, prompt, nil)
	if err != nil {
		slog.Error("ai completion failed", "user_id", in.User.ID, "error", err)
		if errors.Is(err, errBusy) {
			return in.Responder.EditReply(discord.Text(msgBusy))
		}
		return in.Responder.EditReply(discord.Text(msgContactFailed))
	}

	msg, err := s.discord.SendMessage(in.ChannelID, discord.Text(truncate(text, maxReplyLength)))
	if err != nil {
		slog.Error("failed to post ai reply", "channel_id", in.ChannelID, "error", err)
		return in.Responder.EditReply(discord.Text(msgContactFailed))
	}

	s.mu.Lock()
	sess := &session{
		anchorID:  msg.ID,
		userID:    in.User.ID,
		channelID: in.ChannelID,
		history:   []Turn{{Role: RoleUser, Text: prompt}, {Role: RoleChatbot, Text: text}},
	}
	s.sessions[msg.ID] = sess
	s.anchors[msg.ID] = msg.ID
	s.armLocked(sess)
	s.mu.Unlock()

	slog.Info("ai session started", "anchor_id", msg.ID, "user_id", in.User.ID, "channel_id", in.ChannelID)
	return in.Responder.EditReply(discord.Text(msgSessionStarted))
}

// HandleMessage continues a conversation when a user replies to one of its
// bot messages.
func (s *Service) HandleMessage(ctx context.Context, ev discord.MessageEvent) {
	if ev.ReferenceID == "" || ev.AuthorBot {
		return
	}

	s.mu.Lock()
	anchorID, ok := s.anchors[ev.ReferenceID]
	var sess *session
	if ok {
		sess = s.sessions[anchorID]
	}
	s.mu.Unlock()
	if sess == nil {
		return
	}

	if ev.AuthorID != sess.userID {
		s.reply(ev, msgNotOwner)
		return
	}
	text := strings.TrimSpace(ev.Content)
	if text == "" {
		return
	}
	if goodbyePattern.MatchString(text) {
		s.end(anchorID, ev)
		return
	}

	s.mu.Lock()
	if s.sessions[anchorID] != sess {
		s.mu.Unlock()
		return
	}
	s.armLocked(sess)
	history := append([]Turn(nil), sess.history...)
	s.mu.Unlock()

	_ = s.discord.SendTyping(ev.ChannelID)
	answer, err := s.complete(ctx, text, history)
	if err != nil {
		slog.Error("ai reply failed", "anchor_id", anchorID, "error", err)
		if errors.Is(err, errBusy) {
			s.reply(ev, msgBusy)
			return
		}
		s.reply(ev, msgReplyFailed)
		return
	}

	reply, err := s.discord.ReplyToMessage(ev.ChannelID, ev.ID, truncate(answer, maxReplyLength))
	if err != nil {
		slog.Warn("failed to post ai reply", "anchor_id", anchorID, "error", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessions[anchorID] != sess {
		return
	}
	sess.history = append(sess.history, Turn{Role: RoleUser, Text: text}, Turn{Role: RoleChatbot, Text: answer})
	sess.history = trimHistory(sess.history, maxHistoryTurns)
	s.anchors[reply.ID] = anchorID
}

func (s *Service) reply(ev discord.MessageEvent, content string) {
	if _, err := s.discord.ReplyToMessage(ev.ChannelID, ev.ID, content); err != nil {
		slog.Warn("failed to reply", "channel_id", ev.ChannelID, "error", err)
	}
}

// armLocked replaces the session's inactivity timer. A timer that was
// superseded before it ran does nothing.
func (s *Service) armLocked(sess *session) {
	if sess.timer != nil {
		sess.timer.Stop()
	}
	s.gen++
	gen := s.gen
	sess.gen = gen
	sess.timer = s.clock.AfterFunc(s.cfg.AIInactivity, func() { s.expire(sess, gen) })
}

func (s *Service) removeLocked(anchorID string) {
	if sess, ok := s.sessions[anchorID]; ok && sess.timer != nil {
		sess.timer.Stop()
	}
	delete(s.sessions, anchorID)
	for msgID, a := range s.anchors {
		if a == anchorID {
			delete(s.anchors, msgID)
		}
	}
}

func (s *Service) expire(sess *session, gen uint64) {
	s.mu.Lock()
	if s.sessions[sess.anchorID] != sess || sess.gen != gen {
		s.mu.Unlock()
		return
	}
	s.removeLocked(sess.anchorID)
	s.mu.Unlock()

	slog.Info("ai session expired", "anchor_id", sess.anchorID, "user_id", sess.userID)
	notice := fmt.Sprintf("💤 Conversation with <@%s> expired after %s of inactivity.", sess.userID, humanMinutes(s.cfg.AIInactivity))
	msg, err := s.discord.SendMessage(sess.channelID, discord.Text(notice))
	if err != nil {
		slog.Debug("failed to announce ai session expiry", "anchor_id", sess.anchorID, "error", err)
		return
	}
	s.deleteLater(msg)
}

func (s *Service) end(anchorID string, ev discord.MessageEvent) {
	s.mu.Lock()
	if _, ok := s.sessions[anchorID]; !ok {
		s.mu.Unlock()
		return
	}
	s.removeLocked(anchorID)
	s.mu.Unlock()

	slog.Info("ai session ended by user", "anchor_id", anchorID, "user_id", ev.AuthorID)
	msg, err := s.discord.ReplyToMessage(ev.ChannelID, ev.ID, msgEnded)
	if err != nil {
		slog.Warn("failed to send end-session message", "anchor_id", anchorID, "error", err)
		return
	}
	s.deleteLater(msg)
}

func (s *Service) deleteLater(msg discord.Message) {
	s.clock.AfterFunc(noticeLifetime, func() {
		_ = s.discord.DeleteMessage(msg.ChannelID, msg.ID)
	})
}

// Active reports how many conversations are open.
func (s *Service) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Close stops every inactivity timer.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.sessions {
		s.removeLocked(id)
	}
}

func humanMinutes(d time.Duration) string {
	m := int(d.Round(time.Minute) / time.Minute)
	if m == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", m)
}
