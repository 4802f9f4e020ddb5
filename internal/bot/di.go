package bot

import (
	"github.com/foxseedlab/darkbot/internal/chat"
	"github.com/foxseedlab/darkbot/internal/config"
	"github.com/foxseedlab/darkbot/internal/discord"
	"github.com/foxseedlab/darkbot/internal/feedback"
	"github.com/foxseedlab/darkbot/internal/moderation"
	"github.com/foxseedlab/darkbot/internal/music"
	"github.com/foxseedlab/darkbot/internal/snapshot"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (*Bot, error) {
		return New(
			do.MustInvoke[*config.Config](i),
			do.MustInvoke[discord.Client](i),
			do.MustInvoke[*music.Service](i),
			do.MustInvoke[*chat.Service](i),
			do.MustInvoke[*feedback.Service](i),
			do.MustInvoke[*moderation.Service](i),
			do.MustInvoke[*snapshot.Writer](i),
		), nil
	})
}
