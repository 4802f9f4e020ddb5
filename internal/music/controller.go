package music

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/foxseedlab/darkbot/internal/discord"
	"github.com/foxseedlab/darkbot/internal/player"
	"github.com/foxseedlab/darkbot/internal/session"
)

// HandleCommand answers /music by opening the play modal.
func (s *Service) HandleCommand(_ context.Context, in discord.Interaction) error {
	if in.GuildID == "" {
		return in.Responder.Reply(discord.Text(msgGuildOnly), true)
	}
	voiceID, err := s.discord.GetUserVoiceChannelID(in.GuildID, in.User.ID)
	if err != nil || voiceID == "" {
		return in.Responder.Reply(discord.Text(msgJoinVoice), true)
	}
	s.sessions.GetOrCreate(in.GuildID)
	return in.Responder.ShowModal(playModal(RootModalID))
}

// HandleModal runs the play flow for a submitted play modal. The root modal
// creates a fresh controller; a controller modal refreshes its own message.
func (s *Service) HandleModal(ctx context.Context, in discord.Interaction) error {
	target := strings.TrimPrefix(in.CustomID, ModalPrefix)
	root := in.CustomID == RootModalID
	if !root {
		ctrl, ok := s.sessions.Controller(in.GuildID)
		if !ok || ctrl.MessageID != target {
			return in.Responder.DeferUpdate()
		}
	}
	if err := in.Responder.Defer(true); err != nil {
		return err
	}

	release := s.sessions.Acquire(in.GuildID)
	defer release()

	if !root && s.sessions.Locked(in.GuildID) {
		return in.Responder.EditReply(discord.Text(msgControllerClosed))
	}

	out, err := s.play(ctx, playRequest{
		GuildID: in.GuildID,
		UserID:  in.User.ID,
		UserTag: in.User.Tag,
		Query:   in.Field(PlayInputID),
	})
	if err != nil {
		return in.Responder.EditReply(discord.Text(s.userMessage(in.GuildID, err)))
	}

	if root {
		if err := in.Responder.EditReply(discord.Text(out.Message)); err != nil {
			return err
		}
		s.createController(in.GuildID, in.ChannelID)
		return nil
	}
	s.refreshController(in.GuildID)
	return in.Responder.EditReply(discord.Text(out.Message))
}

// HandleButton applies a controller button. Buttons on an older controller
// are acknowledged silently; buttons on a finalized controller only get the
// closed notice.
func (s *Service) HandleButton(_ context.Context, in discord.Interaction) error {
	if in.User.Bot {
		return nil
	}
	ctrl, ok := s.sessions.Controller(in.GuildID)
	if !ok || in.MessageID != ctrl.MessageID {
		return in.Responder.DeferUpdate()
	}
	if s.sessions.Locked(in.GuildID) {
		return in.Responder.Reply(discord.Text(msgControllerClosed), true)
	}
	if _, err := s.sameVoiceChannel(in.GuildID, in.User.ID); err != nil {
		return in.Responder.Reply(discord.Text(s.userMessage(in.GuildID, err)), true)
	}
	if in.CustomID == ButtonPlay {
		return in.Responder.ShowModal(playModal(ModalPrefix + ctrl.MessageID))
	}

	release := s.sessions.Acquire(in.GuildID)
	defer release()

	// A concurrent stop may have finalized the controller while we waited.
	if s.sessions.Locked(in.GuildID) {
		return in.Responder.Reply(discord.Text(msgControllerClosed), true)
	}

	reply, err := s.applyButton(in)
	if err != nil {
		slog.Error("music button failed", "guild_id", in.GuildID, "custom_id", in.CustomID, "error", err)
		reply = msgOperationFailed
	}
	if reply == "" {
		return in.Responder.DeferUpdate()
	}
	return in.Responder.Reply(discord.Text(reply), true)
}

func (s *Service) applyButton(in discord.Interaction) (string, error) {
	guildID := in.GuildID
	switch in.CustomID {
	case ButtonStop:
		return s.stop(guildID, in.User.Tag), nil
	case ButtonNext, ButtonSkip:
		return s.skip(guildID, in.User.Tag)
	case ButtonPrevious:
		return s.previous(guildID, in.User.Tag)
	case ButtonLoop:
		return s.toggleLoop(guildID, in.User.Tag), nil
	default:
		slog.Warn("unknown music button", "guild_id", guildID, "custom_id", in.CustomID)
		return "", nil
	}
}

func (s *Service) stop(guildID, userTag string) string {
	q := s.detachQueue(guildID)
	if q == nil {
		return msgNothingToStop
	}
	s.sessions.AppendLog(guildID, fmt.Sprintf("🛑 **%s** stopped the player and cleared the queue.", userTag))
	q.Destroy()
	s.sessions.CancelIdle(guildID)
	s.sessions.CancelAlone(guildID)
	s.finalizeController(guildID)
	return msgStopped
}

func (s *Service) skip(guildID, userTag string) (string, error) {
	q := s.queue(guildID)
	if q == nil || (!q.IsPlaying() && !q.IsPaused()) {
		return msgNothingToSkip, nil
	}
	title := "current track"
	if cur := q.Current(); cur != nil {
		title = cur.DisplayTitle()
	}
	if err := q.Skip(); err != nil {
		if errors.Is(err, player.ErrNothingPlaying) {
			return msgNothingToSkip, nil
		}
		return "", err
	}
	s.sessions.AppendLog(guildID, fmt.Sprintf("⏭️ **%s** skipped **%s**.", userTag, title))
	s.sessions.Touch(guildID)
	s.refreshController(guildID)
	s.prefetch(q, s.prefetchSize())
	return skippedMessage(title), nil
}

func (s *Service) previous(guildID, userTag string) (string, error) {
	q := s.queue(guildID)
	if q == nil || q.Current() == nil {
		return msgNothingPlaying, nil
	}
	strategy, err := goPrevious(q)
	if errors.Is(err, player.ErrUnsupported) {
		return msgNoPrevious, nil
	}
	if err != nil {
		return "", err
	}
	slog.Debug("went to previous track", "guild_id", guildID, "strategy", strategy)
	s.sessions.AppendLog(guildID, fmt.Sprintf("⏮️ **%s** went to previous track.", userTag))
	s.sessions.Touch(guildID)
	s.refreshController(guildID)
	s.prefetch(q, s.prefetchSize())
	return msgPreviousDone, nil
}

func (s *Service) toggleLoop(guildID, userTag string) string {
	q := s.queue(guildID)
	if q == nil || q.Current() == nil {
		return msgNothingPlaying
	}
	enabled := q.RepeatMode() == player.RepeatTrack
	if enabled {
		q.SetRepeatMode(player.RepeatOff)
		s.sessions.AppendLog(guildID, fmt.Sprintf("🔁❌ **%s** disabled loop.", userTag))
	} else {
		q.SetRepeatMode(player.RepeatTrack)
		s.sessions.AppendLog(guildID, fmt.Sprintf("🔁✅ **%s** enabled loop.", userTag))
	}
	s.sessions.Touch(guildID)
	s.refreshController(guildID)
	if enabled {
		return msgLoopOff
	}
	return msgLoopOn
}

func (s *Service) view(guildID string) controllerView {
	q := s.queue(guildID)
	if q == nil {
		return controllerView{}
	}
	v := controllerView{
		current:   q.Current(),
		repeat:    q.RepeatMode(),
		queueSize: q.Size(),
	}
	if v.current != nil {
		v.lyricsURL = s.lyricsFor(guildID, v.current)
	}
	return v
}

// lyricsFor caches the lyrics link per track in the session's derived data.
func (s *Service) lyricsFor(guildID string, t *player.Track) string {
	key := "lyrics:" + firstNonEmpty(t.PageURL, t.Title, t.Query)
	if u, ok := s.sessions.DerivedGet(guildID, key); ok {
		return u
	}
	u := lyricsSearchURL(t.Title)
	s.sessions.DerivedSet(guildID, key, u)
	return u
}

func (s *Service) createController(guildID, channelID string) {
	msg, err := s.discord.SendMessage(channelID, controllerPayload(s.view(guildID)))
	if err != nil {
		slog.Warn("failed to send music controller", "guild_id", guildID, "channel_id", channelID, "error", err)
		return
	}
	s.sessions.SetController(guildID, session.Controller{ChannelID: msg.ChannelID, MessageID: msg.ID})
	slog.Info("music controller created", "guild_id", guildID, "channel_id", channelID, "message_id", msg.ID)
}

// refreshController re-renders the active controller. Finalized
// controllers are never touched again.
func (s *Service) refreshController(guildID string) {
	ctrl, ok := s.sessions.Controller(guildID)
	if !ok || s.sessions.Locked(guildID) {
		return
	}
	if err := s.discord.EditMessage(ctrl.ChannelID, ctrl.MessageID, controllerPayload(s.view(guildID))); err != nil {
		slog.Debug("failed to refresh music controller", "guild_id", guildID, "message_id", ctrl.MessageID, "error", err)
	}
}

// finalizeController locks the controller and disables its buttons. It is
// a no-op when the controller is already finalized.
func (s *Service) finalizeController(guildID string) {
	ctrl, ok := s.sessions.Controller(guildID)
	if !ok || s.sessions.Locked(guildID) {
		return
	}
	s.sessions.Lock(guildID)
	if err := s.discord.EditMessage(ctrl.ChannelID, ctrl.MessageID, finalizedPayload()); err != nil {
		slog.Debug("failed to finalize music controller", "guild_id", guildID, "message_id", ctrl.MessageID, "error", err)
	}
	slog.Info("music controller finalized", "guild_id", guildID, "message_id", ctrl.MessageID)
}
