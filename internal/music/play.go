package music

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/foxseedlab/darkbot/internal/discord"
	"github.com/foxseedlab/darkbot/internal/player"
	"github.com/foxseedlab/darkbot/internal/resolver"
)

// UserError carries a message that is safe to show to the user as is.
type UserError struct {
	Message string
}

func (e *UserError) Error() string {
	return e.Message
}

var (
	ErrNotInVoice    = &UserError{Message: msgJoinVoice}
	ErrCannotConnect = &UserError{Message: msgCannotConnect}
	ErrCannotSpeak   = &UserError{Message: msgCannotSpeak}
	ErrNoResults     = errors.New("no results found")
)

type playRequest struct {
	GuildID string
	UserID  string
	UserTag string
	Query   string
	// VoiceChannelID skips the caller's voice lookup when set.
	VoiceChannelID string
}

type playOutcome struct {
	Message string
	Title   string
	Count   int
}

// sameVoiceChannel returns the user's voice channel, requiring it to match
// the bot's when the bot is already connected somewhere.
func (s *Service) sameVoiceChannel(guildID, userID string) (string, error) {
	userVC, err := s.discord.GetUserVoiceChannelID(guildID, userID)
	if err != nil || userVC == "" {
		return "", ErrNotInVoice
	}
	botVC, err := s.discord.GetUserVoiceChannelID(guildID, s.botUserID())
	if err == nil && botVC != "" && botVC != userVC {
		return "", &UserError{Message: wrongVoiceMessage(s.discord.ChannelName(botVC))}
	}
	return userVC, nil
}

func (s *Service) checkVoicePermissions(channelID string) error {
	perms, err := s.discord.BotChannelPermissions(channelID)
	if err != nil {
		return fmt.Errorf("failed to read voice channel permissions: %w", err)
	}
	if perms&discord.PermissionAdministrator != 0 {
		return nil
	}
	if perms&discord.PermissionVoiceConnect == 0 {
		return ErrCannotConnect
	}
	if perms&discord.PermissionVoiceSpeak == 0 {
		return ErrCannotSpeak
	}
	return nil
}

// userMessage maps a play failure to the text shown to the user. Anything
// that is not a UserError is logged and replaced by a generic message.
func (s *Service) userMessage(guildID string, err error) string {
	var ue *UserError
	if errors.As(err, &ue) {
		return ue.Message
	}
	slog.Error("music play failed", "guild_id", guildID, "error", err)
	return msgPlayFailed
}

// play validates the caller's voice state, classifies the query and
// enqueues either a whole playlist or a single resolved track. The caller
// must hold the guild's session lock.
func (s *Service) play(ctx context.Context, req playRequest) (playOutcome, error) {
	voiceID := req.VoiceChannelID
	if voiceID == "" {
		var err error
		if voiceID, err = s.sameVoiceChannel(req.GuildID, req.UserID); err != nil {
			return playOutcome{}, err
		}
	}
	if err := s.checkVoicePermissions(voiceID); err != nil {
		return playOutcome{}, err
	}

	query := strings.TrimSpace(req.Query)
	kind := resolver.Classify(query)
	slog.Info("music play requested", "guild_id", req.GuildID, "user_id", req.UserID, "kind", kind.String())

	if kind == resolver.KindSpotifyPlaylist || kind == resolver.KindYouTubePlaylist {
		out, ok, err := s.enqueuePlaylist(ctx, req, voiceID, query, kind)
		if err != nil || ok {
			return out, err
		}
		slog.Info("playlist expansion returned nothing; resolving as a single track", "guild_id", req.GuildID)
	}
	if resolver.LooksLikeURL(query) {
		query = resolver.NormalizeYouTubeURL(query)
	}
	return s.enqueueSingle(ctx, req, voiceID, query, kind)
}

func (s *Service) enqueuePlaylist(ctx context.Context, req playRequest, voiceID, query string, kind resolver.Kind) (playOutcome, bool, error) {
	var (
		stubs  []resolver.Stub
		err    error
		label  string
		source string
	)
	if kind == resolver.KindSpotifyPlaylist {
		stubs, err = s.resolver.ExpandSpotifyPlaylist(ctx, query)
		label = "Spotify playlist"
		if strings.Contains(query, "/album/") {
			label = "Spotify album"
		}
		source = player.SourceSpotifyPlaylist
	} else {
		stubs, err = s.resolver.ExpandYouTubePlaylist(ctx, query)
		label = "playlist"
		source = player.SourceYouTubePlaylist
	}
	if err != nil || len(stubs) == 0 {
		slog.Warn("failed to expand playlist", "guild_id", req.GuildID, "url", query, "error", err)
		return playOutcome{}, false, nil
	}

	tracks := make([]*player.Track, 0, len(stubs))
	for _, stub := range stubs {
		title := firstNonEmpty(stub.Title, "Untitled")
		page := stub.PageURL
		if page == "" && kind == resolver.KindSpotifyPlaylist {
			page = stub.Title
		}
		tracks = append(tracks, &player.Track{
			Title:       title,
			PageURL:     page,
			Thumbnail:   stub.Thumbnail,
			RequestedBy: req.UserID,
			Source:      source,
		})
	}

	q, err := s.getOrCreateQueue(req.GuildID, voiceID)
	if err != nil {
		return playOutcome{}, true, err
	}
	if err := q.AddTracks(tracks); err != nil {
		return playOutcome{}, true, err
	}
	s.sessions.Touch(req.GuildID)
	if err := s.startPlayback(q); err != nil {
		return playOutcome{}, true, err
	}

	first := tracks[0].Title
	s.sessions.AppendLog(req.GuildID, fmt.Sprintf("📃 **%s** queued **%d** tracks from %s.", req.UserTag, len(tracks), label))
	return playOutcome{
		Message: queuedPlaylistMessage(label, len(tracks), first),
		Title:   first,
		Count:   len(tracks),
	}, true, nil
}

func (s *Service) enqueueSingle(ctx context.Context, req playRequest, voiceID, query string, kind resolver.Kind) (playOutcome, error) {
	res := s.resolver.Resolve(ctx, query)
	if !res.OK || res.PageURL == "" {
		if res.Error != "" {
			return playOutcome{}, fmt.Errorf("%w: %s", ErrNoResults, res.Error)
		}
		return playOutcome{}, ErrNoResults
	}

	t := &player.Track{
		Title:       firstNonEmpty(res.Title, "Unknown title"),
		PageURL:     res.PageURL,
		Query:       query,
		Thumbnail:   res.Thumbnail,
		Duration:    res.Duration,
		RequestedBy: req.UserID,
		Source:      singleSource(kind, req.VoiceChannelID != ""),
	}
	if res.StreamURL != "" {
		at := res.ResolvedAt
		if at.IsZero() {
			at = s.clock.Now()
		}
		t.AttachStream(res.StreamURL, at)
	}

	q, err := s.getOrCreateQueue(req.GuildID, voiceID)
	if err != nil {
		return playOutcome{}, err
	}
	if err := q.AddTrack(t); err != nil {
		return playOutcome{}, err
	}
	s.sessions.Touch(req.GuildID)
	if err := s.startPlayback(q); err != nil {
		return playOutcome{}, err
	}

	s.sessions.AppendLog(req.GuildID, fmt.Sprintf("➕ **%s** added **%s** to the queue.", req.UserTag, t.Title))
	return playOutcome{Message: addedMessage(t.Title), Title: t.Title, Count: 1}, nil
}

func (s *Service) startPlayback(q QueueHandle) error {
	if q.IsPlaying() {
		return nil
	}
	if err := q.Play(); err != nil && !errors.Is(err, player.ErrEmptyQueue) {
		return err
	}
	return nil
}

func singleSource(kind resolver.Kind, remote bool) string {
	switch {
	case remote:
		return player.SourceAPI
	case kind == resolver.KindSpotifyTrack:
		return player.SourceSpotifyTrack
	case kind == resolver.KindSearch:
		return player.SourceSearch
	default:
		return player.SourceURL
	}
}

// PlayRemote enqueues a query on behalf of a user outside Discord. The bot
// joins channelID if it is not connected yet. It returns the queued title.
func (s *Service) PlayRemote(ctx context.Context, guildID, channelID, userID, query string) (string, error) {
	if guildID == "" || channelID == "" || strings.TrimSpace(query) == "" {
		return "", &UserError{Message: "guildId, channelId and query are required"}
	}
	release := s.sessions.Acquire(guildID)
	defer release()

	if q := s.queue(guildID); q != nil && q.Connected() && q.VoiceChannelID() != channelID {
		slog.Info("remote play targets a different voice channel",
			"guild_id", guildID, "requested", channelID, "connected", q.VoiceChannelID())
		return "", &UserError{Message: wrongVoiceMessage(s.discord.ChannelName(q.VoiceChannelID()))}
	}

	out, err := s.play(ctx, playRequest{
		GuildID:        guildID,
		UserID:         userID,
		UserTag:        "remote:" + userID,
		Query:          query,
		VoiceChannelID: channelID,
	})
	if err != nil {
		return "", err
	}
	s.refreshController(guildID)
	return out.Title, nil
}
