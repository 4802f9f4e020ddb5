// Package bot wires the feature services to gateway events.
package bot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/foxseedlab/darkbot/internal/chat"
	"github.com/foxseedlab/darkbot/internal/config"
	"github.com/foxseedlab/darkbot/internal/discord"
	"github.com/foxseedlab/darkbot/internal/feedback"
	"github.com/foxseedlab/darkbot/internal/moderation"
	"github.com/foxseedlab/darkbot/internal/music"
	"github.com/foxseedlab/darkbot/internal/snapshot"
)

type Bot struct {
	cfg        *config.Config
	discord    discord.Client
	router     *Router
	music      *music.Service
	chat       *chat.Service
	feedback   *feedback.Service
	moderation *moderation.Service
	snapshot   *snapshot.Writer

	ctx context.Context
}

func New(
	cfg *config.Config,
	dc discord.Client,
	musicSvc *music.Service,
	chatSvc *chat.Service,
	feedbackSvc *feedback.Service,
	moderationSvc *moderation.Service,
	snapshotWriter *snapshot.Writer,
) *Bot {
	b := &Bot{
		cfg:        cfg,
		discord:    dc,
		router:     NewRouter(),
		music:      musicSvc,
		chat:       chatSvc,
		feedback:   feedbackSvc,
		moderation: moderationSvc,
		snapshot:   snapshotWriter,
		ctx:        context.Background(),
	}
	b.registerRoutes()
	return b
}

func (b *Bot) registerRoutes() {
	r := b.router

	r.Command(music.CommandName, b.music.HandleCommand)
	r.Component(music.ComponentRoot, b.music.HandleButton)
	r.Modal(music.ModalPrefix, b.music.HandleModal)
	r.OnVoiceState(b.music.HandleVoiceStateUpdate)

	r.Command(chat.CommandName, b.chat.HandleCommand)
	r.OnMessage(b.chat.HandleMessage)

	r.Command(feedback.CommandName, b.feedback.HandleCommand)
	r.Component(feedback.Prefix, b.feedback.HandleButton)
	r.Modal(feedback.Prefix, b.feedback.HandleModal)

	for _, name := range moderation.CommandNames {
		r.Command(name, b.moderation.HandleCommand)
	}
}

// Commands returns every slash command the bot answers.
func Commands() []discord.SlashCommandDefinition {
	var defs []discord.SlashCommandDefinition
	defs = append(defs, music.SlashCommandDefinitions()...)
	defs = append(defs, chat.SlashCommandDefinitions()...)
	defs = append(defs, feedback.SlashCommandDefinitions()...)
	defs = append(defs, moderation.SlashCommandDefinitions()...)
	return defs
}

// DeployCommands registers the slash commands, globally when no guild id is
// configured.
func DeployCommands(cfg *config.Config, dc discord.Client) error {
	defs := Commands()
	if err := dc.UpsertSlashCommands(cfg.DiscordGuildID, defs); err != nil {
		return fmt.Errorf("failed to upsert slash commands: %w", err)
	}
	names := make([]string, 0, len(defs))
	for _, d := range defs {
		names = append(names, d.Name)
	}
	slog.Info("slash commands registered", "guild_id", cfg.DiscordGuildID, "commands", names)
	return nil
}

// Attach subscribes to gateway events. ctx is handed to every handler and
// should live as long as the gateway session.
func (b *Bot) Attach(ctx context.Context) {
	b.ctx = ctx
	b.discord.RegisterInteractionHandler(func(in discord.Interaction) {
		b.router.Dispatch(b.ctx, in)
	})
	b.discord.RegisterMessageHandler(func(ev discord.MessageEvent) {
		b.router.DispatchMessage(b.ctx, ev)
	})
	b.discord.RegisterVoiceStateUpdateHandler(b.router.DispatchVoiceState)
	b.discord.RegisterReadyHandler(b.onReady)
	b.discord.RegisterGuildsChangedHandler(b.onGuildsChanged)
}

func (b *Bot) onReady() {
	slog.Info("discord session ready", "guilds", len(b.discord.ListGuilds()))

	if err := DeployCommands(b.cfg, b.discord); err != nil {
		slog.Error("failed to register slash commands on ready", "error", err)
	}
	if err := b.feedback.EnsureIntakePanel(b.ctx); err != nil {
		slog.Warn("failed to ensure feedback intake panel", "error", err)
	}
	b.snapshot.Refresh(b.ctx)
}

func (b *Bot) onGuildsChanged() {
	b.snapshot.Refresh(b.ctx)
}

// Close stops the feature services' timers and playback.
func (b *Bot) Close() {
	b.music.Close()
	b.chat.Close()
}
