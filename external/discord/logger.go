package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bwmarrin/discordgo"
)

var discordgoLogLevels = map[int]slog.Level{
	discordgo.LogDebug:         slog.LevelDebug,
	discordgo.LogInformational: slog.LevelInfo,
	discordgo.LogWarning:       slog.LevelWarn,
	discordgo.LogError:         slog.LevelError,
}

// InstallLogger routes discordgo's package logger through slog.
func InstallLogger(handler slog.Handler, debug bool) {
	logger := slog.New(handler).With("logger", "discordgo")
	discordgo.Logger = func(msgL, _ int, format string, args ...any) {
		level, ok := discordgoLogLevels[msgL]
		if !ok {
			level = slog.LevelInfo
		}
		logger.LogAttrs(context.Background(), level, strings.ReplaceAll(fmt.Sprintf(format, args...), "\n", ""))
	}
	if debug {
		discordgo.Logger = wrapLevel(discordgo.Logger, discordgo.LogDebug)
	} else {
		discordgo.Logger = wrapLevel(discordgo.Logger, discordgo.LogWarning)
	}
}

func wrapLevel(next func(int, int, string, ...any), max int) func(int, int, string, ...any) {
	return func(msgL, caller int, format string, args ...any) {
		if msgL > max {
			return
		}
		next(msgL, caller, format, args...)
	}
}
