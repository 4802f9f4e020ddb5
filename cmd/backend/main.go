package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	audioimpl "github.com/foxseedlab/darkbot/external/audio"
	cacheimpl "github.com/foxseedlab/darkbot/external/cache"
	chatimpl "github.com/foxseedlab/darkbot/external/chat"
	configloader "github.com/foxseedlab/darkbot/external/config"
	"github.com/foxseedlab/darkbot/external/discord"
	oembedimpl "github.com/foxseedlab/darkbot/external/oembed"
	repositoryimpl "github.com/foxseedlab/darkbot/external/repository"
	webhookimpl "github.com/foxseedlab/darkbot/external/webhook"
	ytdlpimpl "github.com/foxseedlab/darkbot/external/ytdlp"
	"github.com/foxseedlab/darkbot/internal/api"
	"github.com/foxseedlab/darkbot/internal/bot"
	"github.com/foxseedlab/darkbot/internal/chat"
	"github.com/foxseedlab/darkbot/internal/clock"
	"github.com/foxseedlab/darkbot/internal/config"
	discordpkg "github.com/foxseedlab/darkbot/internal/discord"
	"github.com/foxseedlab/darkbot/internal/feedback"
	"github.com/foxseedlab/darkbot/internal/moderation"
	"github.com/foxseedlab/darkbot/internal/music"
	"github.com/foxseedlab/darkbot/internal/resolver"
	"github.com/foxseedlab/darkbot/internal/session"
	"github.com/foxseedlab/darkbot/internal/snapshot"
	"github.com/lmittmann/tint"
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"
)

const (
	discordConnectTimeout = 20 * time.Second
	shutdownTimeout       = 15 * time.Second
)

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		slog.Error("darkbot exited with error", "error", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "darkbot",
		Short:         "DarkBot Discord bot",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runBot(cmd.Context(), cfg)
		},
	}
	root.AddCommand(&cobra.Command{
		Use:   "deploy-commands",
		Short: "Register slash commands and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return deployCommands(cmd.Context(), cfg)
		},
	})
	return root
}

func loadConfig() (*config.Config, error) {
	slog.Info("startup: loading configuration")
	cfg, err := configloader.Load()
	if err != nil {
		slog.Error("config validation failed", "error", err)
		return nil, err
	}
	initLogger(cfg)
	slog.Info("startup: configuration loaded", "env", cfg.Env)
	return cfg, nil
}

func initLogger(cfg *config.Config) {
	var handler slog.Handler
	if cfg.IsDevelopment() {
		handler = tint.NewHandler(os.Stdout, &tint.Options{Level: slog.LevelDebug, TimeFormat: time.Kitchen})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}
	slog.SetDefault(slog.New(handler))
	discord.InstallLogger(handler, cfg.IsDevelopment())
}

func setupDI(cfg *config.Config) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	do.ProvideValue[clock.Clock](injector, clock.Real{})

	discord.RegisterDI(injector)
	repositoryimpl.RegisterDI(injector)
	cacheimpl.RegisterDI(injector)
	ytdlpimpl.RegisterDI(injector)
	oembedimpl.RegisterDI(injector)
	audioimpl.RegisterDI(injector)
	chatimpl.RegisterDI(injector)
	webhookimpl.RegisterDI(injector)

	resolver.RegisterDI(injector)
	session.RegisterDI(injector)
	music.RegisterDI(injector)
	chat.RegisterDI(injector)
	feedback.RegisterDI(injector)
	moderation.RegisterDI(injector)
	snapshot.RegisterDI(injector)
	api.RegisterDI(injector)
	bot.RegisterDI(injector)

	return injector
}

func deployCommands(ctx context.Context, cfg *config.Config) error {
	dc := discord.NewClient(cfg.DiscordToken)

	connectCtx, cancel := context.WithTimeout(ctx, discordConnectTimeout)
	defer cancel()
	if err := dc.Connect(connectCtx); err != nil {
		return fmt.Errorf("discord connect failed: %w", err)
	}
	defer func() {
		if err := dc.Close(); err != nil {
			slog.Warn("discord close failed", "error", err)
		}
	}()

	return bot.DeployCommands(cfg, dc)
}

func runBot(parent context.Context, cfg *config.Config) error {
	slog.Info("startup: building dependency graph")
	injector := setupDI(cfg)

	dc, err := do.Invoke[discordpkg.Client](injector)
	if err != nil {
		return fmt.Errorf("failed to resolve discord client: %w", err)
	}
	b, err := do.Invoke[*bot.Bot](injector)
	if err != nil {
		return fmt.Errorf("failed to resolve bot: %w", err)
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b.Attach(ctx)

	connectCtx, cancel := context.WithTimeout(ctx, discordConnectTimeout)
	defer cancel()
	slog.Info("startup: connecting to discord gateway")
	if err := dc.Connect(connectCtx); err != nil {
		return fmt.Errorf("discord connect failed: %w", err)
	}
	slog.Info("startup: discord connected")

	apiDone := make(chan error, 1)
	if cfg.APIEnabled() {
		server, err := do.Invoke[*api.Server](injector)
		if err != nil {
			return fmt.Errorf("failed to resolve api server: %w", err)
		}
		go func() { apiDone <- server.Run(ctx) }()
	} else {
		slog.Info("api disabled: API_SECRET is empty")
	}

	done := make(chan struct{})
	go func() {
		slog.Info("startup: entering discord run loop")
		if err := dc.Run(); err != nil {
			slog.Error("discord run failed", "error", err)
		}
		close(done)
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case <-done:
	case err := <-apiDone:
		if err != nil {
			slog.Error("api server failed", "error", err)
		}
	}
	stop()

	b.Close()
	if err := dc.Close(); err != nil {
		slog.Error("discord close failed", "error", err)
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if errs := injector.ShutdownWithContext(shutdownCtx); errs != nil {
		slog.Warn("dependency shutdown reported errors", "error", errs)
	}
	return nil
}
