package feedback

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/foxseedlab/darkbot/internal/clock"
	"github.com/foxseedlab/darkbot/internal/config"
	"github.com/foxseedlab/darkbot/internal/discord"
	"github.com/foxseedlab/darkbot/internal/repository"
	"golang.org/x/time/rate"
)

type Service struct {
	cfg     *config.Config
	discord discord.Client
	repo    repository.Repository
	clock   clock.Clock

	// mu serializes ticket read-modify-write cycles.
	mu sync.Mutex

	cooldownMu sync.Mutex
	cooldowns  map[string]*rate.Limiter
}

func NewService(cfg *config.Config, dc discord.Client, repo repository.Repository, clk clock.Clock) *Service {
	return &Service{
		cfg:       cfg,
		discord:   dc,
		repo:      repo,
		clock:     clk,
		cooldowns: make(map[string]*rate.Limiter),
	}
}

// HandleCommand opens the feedback modal for /feedback.
func (s *Service) HandleCommand(ctx context.Context, in discord.Interaction) error {
	if s.cfg.SupportGuildID == "" {
		return in.Responder.Reply(discord.Text(msgNotConfigured), true)
	}
	if msg, err := s.gate(ctx, in.User.ID); err != nil {
		return err
	} else if msg != "" {
		return in.Responder.Reply(discord.Text(msg), true)
	}
	return in.Responder.ShowModal(feedbackModal())
}

// gate returns the refusal shown to a blacklisted or cooling-down user, or
// "" when the user may submit.
func (s *Service) gate(ctx context.Context, userID string) (string, error) {
	now := s.clock.Now()
	entry, err := s.repo.GetBlacklist(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to read blacklist: %w", err)
	}
	if entry != nil {
		if now.Before(entry.Until) {
			return blockedMessage(formatRemaining(entry.Until.Sub(now))), nil
		}
		if err := s.repo.DeleteBlacklist(ctx, userID); err != nil {
			slog.Warn("failed to drop expired blacklist entry", "user_id", userID, "error", err)
		}
	}
	if wait := s.cooldownRemaining(userID, now); wait > 0 {
		return cooldownMessage(formatRemaining(wait)), nil
	}
	return "", nil
}

func (s *Service) limiter(userID string) *rate.Limiter {
	s.cooldownMu.Lock()
	defer s.cooldownMu.Unlock()
	l, ok := s.cooldowns[userID]
	if !ok {
		l = rate.NewLimiter(rate.Every(s.cfg.FeedbackCooldown), 1)
		s.cooldowns[userID] = l
	}
	return l
}

func (s *Service) cooldownRemaining(userID string, now time.Time) time.Duration {
	if s.cfg.FeedbackCooldown <= 0 {
		return 0
	}
	tokens := s.limiter(userID).TokensAt(now)
	if tokens >= 1 {
		return 0
	}
	return time.Duration((1 - tokens) * float64(s.cfg.FeedbackCooldown))
}

func (s *Service) consumeCooldown(userID string, now time.Time) {
	if s.cfg.FeedbackCooldown <= 0 {
		return
	}
	s.limiter(userID).AllowN(now, 1)
}

// HandleModal routes every fb: modal submission.
func (s *Service) HandleModal(ctx context.Context, in discord.Interaction) error {
	id := in.CustomID
	switch {
	case id == ModalSubmit:
		return s.submit(ctx, in)
	case id == ModalGrant:
		return s.grant(ctx, in)
	case strings.HasPrefix(id, ModalStaffDM):
		return s.staffDM(ctx, in, strings.TrimPrefix(id, ModalStaffDM))
	case strings.HasPrefix(id, ModalUserReply):
		return s.userReply(ctx, in, strings.TrimPrefix(id, ModalUserReply))
	default:
		slog.Warn("unknown feedback modal", "custom_id", id)
		return in.Responder.DeferUpdate()
	}
}

// HandleButton routes every fb: button press.
func (s *Service) HandleButton(ctx context.Context, in discord.Interaction) error {
	id := in.CustomID
	switch {
	case id == ButtonGrant:
		if s.cfg.SupportIntakeChannelID != "" && in.ChannelID != s.cfg.SupportIntakeChannelID {
			return in.Responder.Reply(discord.Text(msgWrongIntake), true)
		}
		return in.Responder.ShowModal(grantModal())
	case strings.HasPrefix(id, ButtonReply):
		return s.openStaffDM(ctx, in, strings.TrimPrefix(id, ButtonReply))
	case strings.HasPrefix(id, ButtonResolve):
		return s.resolve(ctx, in, strings.TrimPrefix(id, ButtonResolve))
	case strings.HasPrefix(id, ButtonMore):
		return s.showPage(ctx, in, strings.TrimPrefix(id, ButtonMore), true)
	case strings.HasPrefix(id, ButtonLess):
		return s.showPage(ctx, in, strings.TrimPrefix(id, ButtonLess), false)
	case strings.HasPrefix(id, ButtonBlacklist):
		return s.blacklist(ctx, in, strings.TrimPrefix(id, ButtonBlacklist))
	case strings.HasPrefix(id, ButtonExpand):
		return s.expand(ctx, in, strings.TrimPrefix(id, ButtonExpand))
	case strings.HasPrefix(id, ButtonUserClose):
		return s.abandon(ctx, in, strings.TrimPrefix(id, ButtonUserClose))
	case strings.HasPrefix(id, ButtonUserReply):
		return s.openUserReply(ctx, in, strings.TrimPrefix(id, ButtonUserReply))
	default:
		slog.Warn("unknown feedback button", "custom_id", id)
		return in.Responder.DeferUpdate()
	}
}

func (s *Service) isStaff(in discord.Interaction) bool {
	if in.GuildID == "" || in.GuildID != s.cfg.SupportGuildID {
		return false
	}
	return in.HasPermission(discord.PermissionManageGuild) || in.HasPermission(discord.PermissionManageMessages)
}

func (s *Service) submit(ctx context.Context, in discord.Interaction) error {
	if s.cfg.SupportGuildID == "" {
		return in.Responder.Reply(discord.Text(msgNotConfigured), true)
	}
	if msg, err := s.gate(ctx, in.User.ID); err != nil {
		return err
	} else if msg != "" {
		return in.Responder.Reply(discord.Text(msg), true)
	}

	content := capRunes(strings.TrimSpace(in.Field(InputContent)), contentMaxLen)
	if content == "" {
		return in.Responder.Reply(discord.Text(msgUserReplyEmpty), true)
	}
	category := normalizeCategory(capRunes(in.Field(InputCategory), categoryMaxLen))

	if err := in.Responder.Reply(discord.Text(msgForwarding), true); err != nil {
		return err
	}

	channelID := s.cfg.SupportChannelFor(category)
	if channelID == "" || !s.discord.IsTextChannel(channelID) {
		slog.Warn("support channel unavailable", "category", category, "channel_id", channelID)
		return in.Responder.EditReply(discord.Text(msgNoSupportChannel))
	}

	now := s.clock.Now()
	f := &repository.Feedback{
		ID:       newFeedbackID(in.GuildID, in.User.ID, now),
		UserID:   in.User.ID,
		UserTag:  in.User.Tag,
		Content:  content,
		Category: category,

		SupportGuildID:   s.cfg.SupportGuildID,
		SupportChannelID: channelID,

		Status:    repository.FeedbackStatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.GuildID != "" {
		f.OriginGuildID = in.GuildID
		if g, err := s.discord.GetGuild(in.GuildID); err == nil {
			f.OriginGuildName = g.Name
			f.OriginIconURL = g.IconURL
		} else {
			slog.Debug("failed to look up origin guild", "guild_id", in.GuildID, "error", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	msg, err := s.discord.SendMessage(channelID, discord.MessagePayload{
		Embeds:     []discord.Embed{compactEmbed(f)},
		Components: staffPage1(f.ID, false),
	})
	if err != nil {
		slog.Error("failed to post feedback to support channel", "channel_id", channelID, "error", err)
		return in.Responder.EditReply(discord.Text(msgNoSupportChannel))
	}
	f.SupportMessageID = msg.ID

	s.consumeCooldown(in.User.ID, now)
	s.syncUserCard(f)
	if err := s.repo.SaveFeedback(ctx, f); err != nil {
		return fmt.Errorf("failed to save feedback %s: %w", f.ID, err)
	}

	slog.Info("feedback submitted", "feedback_id", f.ID, "user_id", f.UserID, "category", category, "channel_id", channelID)
	return in.Responder.EditReply(discord.Text(submittedMessage(f.ID)))
}

// load fetches a ticket. Callers hold s.mu.
func (s *Service) load(ctx context.Context, id string) (*repository.Feedback, error) {
	f, err := s.repo.GetFeedback(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load feedback %s: %w", id, err)
	}
	return f, nil
}

func (s *Service) save(ctx context.Context, f *repository.Feedback) error {
	f.UpdatedAt = s.clock.Now()
	if err := s.repo.SaveFeedback(ctx, f); err != nil {
		return fmt.Errorf("failed to save feedback %s: %w", f.ID, err)
	}
	return nil
}

// ensureThread returns the ticket's discussion thread, opening a new one
// when none exists or the old one is gone.
func (s *Service) ensureThread(f *repository.Feedback) (string, error) {
	if f.ThreadID != "" && s.discord.ChannelExists(f.ThreadID) {
		return f.ThreadID, nil
	}
	threadID, err := s.discord.StartPrivateThread(f.SupportChannelID, threadName(f))
	if err != nil {
		return "", fmt.Errorf("failed to start thread for %s: %w", f.ID, err)
	}
	if _, err := s.discord.SendMessage(threadID, discord.Text(threadOpenedNotice)); err != nil {
		slog.Warn("failed to post thread notice", "thread_id", threadID, "error", err)
	}
	f.ThreadID = threadID
	slog.Info("feedback thread opened", "feedback_id", f.ID, "thread_id", threadID)
	return threadID, nil
}

func (s *Service) deleteThread(f *repository.Feedback) {
	if f.ThreadID == "" {
		return
	}
	if err := s.discord.DeleteChannel(f.ThreadID); err != nil {
		slog.Warn("failed to delete feedback thread", "feedback_id", f.ID, "thread_id", f.ThreadID, "error", err)
	}
	f.ThreadID = ""
}

func (s *Service) conversation(f *repository.Feedback) string {
	if f.ThreadID == "" {
		return ""
	}
	msgs, err := s.discord.ListMessages(f.ThreadID, transcriptItems)
	if err != nil {
		slog.Debug("failed to read feedback thread", "thread_id", f.ThreadID, "error", err)
		return ""
	}
	return transcript(f, msgs)
}

// syncUserCard edits the reporter's DM card, or sends a new one when there
// is none or the old one cannot be edited. Failures are logged only.
func (s *Service) syncUserCard(f *repository.Feedback) {
	payload := discord.MessagePayload{
		Embeds:     []discord.Embed{userCardEmbed(f, s.conversation(f))},
		Components: userCardButtons(f, s.cfg.SupportInviteURL),
	}
	if f.DMMessageID != "" {
		err := s.discord.EditMessage(f.DMChannelID, f.DMMessageID, payload)
		if err == nil {
			return
		}
		slog.Debug("failed to edit dm card; sending a new one", "feedback_id", f.ID, "error", err)
	}
	msg, err := s.discord.SendDirectMessage(f.UserID, payload)
	if err != nil {
		slog.Warn("failed to send dm card", "feedback_id", f.ID, "user_id", f.UserID, "error", err)
		return
	}
	f.DMChannelID = msg.ChannelID
	f.DMMessageID = msg.ID
}

func (s *Service) editStaffMessage(f *repository.Feedback, payload discord.MessagePayload) error {
	return s.discord.EditMessage(f.SupportChannelID, f.SupportMessageID, payload)
}

// staffView renders the staff message for the ticket's current page and
// state.
func (s *Service) staffView(f *repository.Feedback) discord.MessagePayload {
	switch {
	case f.Abandoned():
		return discord.MessagePayload{Embeds: []discord.Embed{abandonedEmbed(f)}, Components: staffAbandoned(f.ID)}
	case f.MoreShown:
		return discord.MessagePayload{Embeds: []discord.Embed{expandedEmbed(f)}, Components: staffPage2(f.ID, f.Closed(), f.ThreadID != "")}
	default:
		return discord.MessagePayload{Embeds: []discord.Embed{compactEmbed(f)}, Components: staffPage1(f.ID, f.Closed())}
	}
}

func (s *Service) openStaffDM(ctx context.Context, in discord.Interaction, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if f == nil {
		return in.Responder.Reply(discord.Text(msgNotFound), true)
	}
	if !s.isStaff(in) {
		return in.Responder.Reply(discord.Text(msgStaffOnly), true)
	}
	if f.Closed() {
		return in.Responder.Reply(discord.Text(msgClosed), true)
	}
	return in.Responder.ShowModal(staffDMModal(id))
}

func (s *Service) resolve(ctx context.Context, in discord.Interaction, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if f == nil {
		return in.Responder.Reply(discord.Text(msgNotFound), true)
	}
	if !s.isStaff(in) {
		return in.Responder.Reply(discord.Text(msgStaffOnly), true)
	}
	if f.Closed() {
		return in.Responder.Reply(discord.Text(msgAlreadyClosed), true)
	}

	f.Status = repository.FeedbackStatusResolved
	f.MoreShown = false
	if err := s.editStaffMessage(f, s.staffView(f)); err != nil {
		slog.Warn("failed to update staff message", "feedback_id", id, "error", err)
		return in.Responder.Reply(discord.Text(msgUpdateFailed), true)
	}
	s.deleteThread(f)
	s.syncUserCard(f)
	if err := s.save(ctx, f); err != nil {
		return err
	}

	slog.Info("feedback resolved", "feedback_id", id, "staff_id", in.User.ID)
	return in.Responder.Reply(discord.Text(msgResolved), true)
}

func (s *Service) showPage(ctx context.Context, in discord.Interaction, id string, more bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	failed := msgLessFailed
	if more {
		failed = msgMoreFailed
	}

	f, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if f == nil {
		return in.Responder.Reply(discord.Text(msgNotFound), true)
	}
	if !s.isStaff(in) {
		return in.Responder.Reply(discord.Text(msgStaffOnly), true)
	}

	f.MoreShown = more
	if err := s.editStaffMessage(f, s.staffView(f)); err != nil {
		slog.Warn("failed to switch staff page", "feedback_id", id, "more", more, "error", err)
		return in.Responder.Reply(discord.Text(failed), true)
	}
	if err := s.save(ctx, f); err != nil {
		return err
	}
	if more {
		return in.Responder.Reply(discord.Text(msgMoreShown), true)
	}
	return in.Responder.Reply(discord.Text(msgLessShown), true)
}

func (s *Service) blacklist(ctx context.Context, in discord.Interaction, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if f == nil {
		return in.Responder.Reply(discord.Text(msgNotFound), true)
	}
	if !s.isStaff(in) {
		return in.Responder.Reply(discord.Text(msgStaffOnly), true)
	}

	until := s.clock.Now().Add(blacklistDuration)
	if err := s.repo.SetBlacklist(ctx, f.UserID, until); err != nil {
		return fmt.Errorf("failed to blacklist %s: %w", f.UserID, err)
	}
	slog.Info("feedback user blacklisted", "feedback_id", id, "user_id", f.UserID, "until", until, "staff_id", in.User.ID)
	return in.Responder.Reply(discord.Text(blacklistedMessage(blacklistDays)), true)
}

func (s *Service) expand(ctx context.Context, in discord.Interaction, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if f == nil {
		return in.Responder.Reply(discord.Text(msgNotFound), true)
	}
	if !s.isStaff(in) {
		return in.Responder.Reply(discord.Text(msgStaffOnly), true)
	}

	if _, err := s.ensureThread(f); err != nil {
		slog.Warn("failed to open discussion", "feedback_id", id, "error", err)
		return in.Responder.Reply(discord.Text(msgDiscussionFailed), true)
	}
	if err := s.save(ctx, f); err != nil {
		return err
	}
	if err := s.editStaffMessage(f, discord.MessagePayload{Components: staffPage2(f.ID, f.Closed(), true)}); err != nil {
		slog.Warn("failed to update staff buttons", "feedback_id", id, "error", err)
		return in.Responder.Reply(discord.Text(msgDiscussionFailed), true)
	}
	return in.Responder.Reply(discord.Text(msgDiscussionOpened), true)
}

// replyUser answers the reporter. Replies cannot be ephemeral in DMs, so
// there they are posted plainly and optionally removed after a moment.
func (s *Service) replyUser(in discord.Interaction, content string, autoDelete bool) error {
	if in.GuildID != "" {
		return in.Responder.Reply(discord.Text(content), true)
	}
	if err := in.Responder.Reply(discord.Text(content), false); err != nil {
		return err
	}
	if autoDelete {
		s.clock.AfterFunc(dmNoticeLifetime, func() {
			if err := in.Responder.DeleteReply(); err != nil {
				slog.Debug("failed to delete dm notice", "error", err)
			}
		})
	}
	return nil
}

func (s *Service) abandon(ctx context.Context, in discord.Interaction, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if f == nil {
		return s.replyUser(in, msgCaseNotFound, false)
	}
	if f.Abandoned() {
		return in.Responder.DeferUpdate()
	}

	f.Status = repository.FeedbackStatusAbandoned
	f.MoreShown = false
	if err := s.editStaffMessage(f, s.staffView(f)); err != nil {
		slog.Warn("failed to mark staff message abandoned", "feedback_id", id, "error", err)
		return s.replyUser(in, msgAbandonFailed, false)
	}
	s.deleteThread(f)
	s.syncUserCard(f)
	if err := s.save(ctx, f); err != nil {
		return err
	}

	slog.Info("feedback abandoned by user", "feedback_id", id, "user_id", in.User.ID)
	return in.Responder.DeferUpdate()
}

func (s *Service) openUserReply(ctx context.Context, in discord.Interaction, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if f == nil {
		return s.replyUser(in, msgUserReplyMissing, true)
	}
	if f.UserID != in.User.ID {
		return s.replyUser(in, msgGrantNotOwner, true)
	}
	if f.Abandoned() {
		return s.replyUser(in, msgUserReplyClosed, true)
	}
	return in.Responder.ShowModal(userReplyModal(id))
}

func (s *Service) grant(ctx context.Context, in discord.Interaction) error {
	typed := strings.TrimSpace(in.Field(InputGrantID))
	if typed == "" {
		return in.Responder.Reply(discord.Text(msgGrantEmpty), true)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load(ctx, typed)
	if err != nil {
		return err
	}
	switch {
	case f == nil:
		return in.Responder.Reply(discord.Text(msgGrantNotFound), true)
	case f.UserID != in.User.ID:
		return in.Responder.Reply(discord.Text(msgGrantNotOwner), true)
	case f.Abandoned():
		return in.Responder.Reply(discord.Text(msgGrantAbandoned), true)
	}

	threadID, err := s.ensureThread(f)
	if err != nil {
		slog.Warn("failed to open thread for access grant", "feedback_id", f.ID, "error", err)
		return in.Responder.Reply(discord.Text(msgGrantFailed), true)
	}
	if err := s.discord.AddThreadMember(threadID, in.User.ID); err != nil {
		slog.Warn("failed to add user to feedback thread", "thread_id", threadID, "user_id", in.User.ID, "error", err)
	}
	if _, err := s.discord.SendMessage(threadID, discord.Text(fmt.Sprintf("🔓 <@%s> was granted access via intake panel.", in.User.ID))); err != nil {
		slog.Warn("failed to announce access grant", "thread_id", threadID, "error", err)
		return in.Responder.Reply(discord.Text(msgGrantFailed), true)
	}
	if err := s.save(ctx, f); err != nil {
		return err
	}

	slog.Info("feedback thread access granted", "feedback_id", f.ID, "user_id", in.User.ID)
	return in.Responder.Reply(discord.Text(fmt.Sprintf("✅ Access granted. Jump in: <#%s>", threadID)), true)
}

func (s *Service) staffDM(ctx context.Context, in discord.Interaction, id string) error {
	text := strings.TrimSpace(in.Field(InputStaffDM))

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	switch {
	case f == nil:
		return in.Responder.Reply(discord.Text(msgNotFound), true)
	case !s.isStaff(in):
		return in.Responder.Reply(discord.Text(msgStaffOnly), true)
	case text == "":
		return in.Responder.Reply(discord.Text(msgStaffDMEmpty), true)
	case f.Abandoned():
		return in.Responder.Reply(discord.Text(msgStaffDMAbandoned), true)
	}

	dm := discord.MessagePayload{Embeds: []discord.Embed{staffReplyEmbed(staffReplyTitle, f.ID, text, "")}}
	if _, err := s.discord.SendDirectMessage(f.UserID, dm); err != nil {
		slog.Warn("failed to dm feedback reporter", "feedback_id", id, "user_id", f.UserID, "error", err)
		return in.Responder.Reply(discord.Text(msgStaffDMFailed), true)
	}
	f.LastStaffReply = text

	threadID, err := s.ensureThread(f)
	if err == nil {
		record := discord.MessagePayload{Embeds: []discord.Embed{staffReplyEmbed(staffDMSentTitle, f.ID, text, in.User.Tag)}}
		_, err = s.discord.SendMessage(threadID, record)
	}
	s.syncUserCard(f)
	if saveErr := s.save(ctx, f); saveErr != nil {
		return saveErr
	}
	if err != nil {
		slog.Warn("failed to log staff dm to thread", "feedback_id", id, "error", err)
		return in.Responder.Reply(discord.Text(msgStaffDMFailed), true)
	}

	slog.Info("staff replied to feedback", "feedback_id", id, "staff_id", in.User.ID)
	return in.Responder.Reply(discord.Text(msgStaffDMSent), true)
}

func (s *Service) userReply(ctx context.Context, in discord.Interaction, id string) error {
	text := strings.TrimSpace(in.Field(InputUserReply))

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	switch {
	case f == nil:
		return s.replyUser(in, msgUserReplyMissing, true)
	case text == "":
		return s.replyUser(in, msgUserReplyEmpty, true)
	case f.Abandoned():
		return s.replyUser(in, msgUserReplyClosed, true)
	}

	if f.Status == repository.FeedbackStatusResolved {
		f.Status = repository.FeedbackStatusOpen
		f.MoreShown = false
		if err := s.editStaffMessage(f, s.staffView(f)); err != nil {
			slog.Warn("failed to reopen staff message", "feedback_id", id, "error", err)
			return s.replyUser(in, msgUserReplyFailed, true)
		}
		slog.Info("feedback reopened by user comment", "feedback_id", id)
	}

	threadID, err := s.ensureThread(f)
	if err == nil {
		_, err = s.discord.SendMessage(threadID, discord.MessagePayload{Embeds: []discord.Embed{userCommentEmbed(f, text)}})
	}
	if err != nil {
		slog.Warn("failed to forward user comment", "feedback_id", id, "error", err)
		if saveErr := s.save(ctx, f); saveErr != nil {
			return saveErr
		}
		return s.replyUser(in, msgUserReplyFailed, true)
	}
	s.syncUserCard(f)
	if err := s.save(ctx, f); err != nil {
		return err
	}
	return s.replyUser(in, msgUserReplySent, true)
}

// EnsureIntakePanel posts and pins the access panel in the intake channel
// unless a recent bot message already carries it.
func (s *Service) EnsureIntakePanel(_ context.Context) error {
	channelID := s.cfg.SupportIntakeChannelID
	if channelID == "" || s.cfg.SupportGuildID == "" {
		return nil
	}
	if !s.discord.IsTextChannel(channelID) {
		slog.Warn("intake channel is not a text channel", "channel_id", channelID)
		return nil
	}
	botID, err := s.discord.GetBotUserID()
	if err != nil {
		return fmt.Errorf("failed to get bot user id: %w", err)
	}
	recent, err := s.discord.ListMessages(channelID, 50)
	if err != nil {
		return fmt.Errorf("failed to read intake channel: %w", err)
	}
	for _, m := range recent {
		if m.AuthorID == botID && isPanelMessage(m) {
			return nil
		}
	}

	msg, err := s.discord.SendMessage(channelID, intakePanel())
	if err != nil {
		return fmt.Errorf("failed to post intake panel: %w", err)
	}
	if err := s.discord.PinMessage(channelID, msg.ID); err != nil {
		slog.Debug("failed to pin intake panel", "channel_id", channelID, "error", err)
	}
	slog.Info("intake panel posted", "channel_id", channelID, "message_id", msg.ID)
	return nil
}
